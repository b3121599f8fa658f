package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"love-piece/internal/catalog"
	"love-piece/internal/composer"
	"love-piece/internal/domain"
	"love-piece/internal/logging"
	"love-piece/internal/mediagroup"
	"love-piece/internal/session"
	"love-piece/internal/telegram"
)

// Messenger is the part of the Telegram client the handler talks to.
type Messenger interface {
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	AnswerCallback(callbackID, text string, alert bool) error
	SendTyping(chatID int64)
	DownloadImage(ctx context.Context, fileID string) (string, error)
	SendAudioFile(chatID int64, path, caption string) error
}

// Flow generates from a stored session.
type Flow interface {
	Submit(ctx context.Context, store *session.Store) (composer.Result, error)
	Regenerate(ctx context.Context, store *session.Store, tone string) (composer.Result, error)
}

type Options struct {
	Messenger Messenger
	Flow      Flow
	Sessions  *session.Manager
	Catalog   *catalog.Catalog
	// BGMDir holds the per-relationship audio files. Empty disables audio.
	BGMDir string
	Logger *slog.Logger
}

type Handler struct {
	tg         Messenger
	flow       Flow
	sessions   *session.Manager
	catalog    *catalog.Catalog
	bgmDir     string
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}

	return &Handler{
		tg:       opts.Messenger,
		flow:     opts.Flow,
		sessions: opts.Sessions,
		catalog:  cat,
		bgmDir:   opts.BGMDir,
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

// SessionKey is the store key of one chat.
func SessionKey(chatID int64) string {
	return fmt.Sprintf("chat:%d", chatID)
}

func (h *Handler) store(chatID int64) *session.Store {
	return h.sessions.For(SessionKey(chatID))
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, msg)
	}

	if len(msg.Photo) > 0 {
		return h.handlePhoto(ctx, chatID, msg)
	}

	if strings.TrimSpace(msg.Text) != "" {
		return h.tg.SendText(chatID, textUnknownInput)
	}

	return nil
}

// HandleMediaGroup stores a complete album at once.
func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processPhotos(ctx, group.ChatID, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
	}
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		return h.tg.SendText(chatID, textHelp)
	case "tone":
		if args == "" {
			_, err := h.tg.SendTextWithKeyboard(chatID, textChooseTone, toneKeyboard())
			return err
		}
		return h.setTone(chatID, args)
	case "relationship":
		if args == "" {
			_, err := h.tg.SendTextWithKeyboard(chatID, textChooseRelationship, relationshipKeyboard(h.catalog))
			return err
		}
		return h.setRelationship(chatID, args)
	case "occasion":
		h.store(chatID).MergeForm(session.FormPatch{Occasion: session.Ptr(args)})
		return h.tg.SendText(chatID, textSaved)
	case "note":
		h.store(chatID).MergeForm(session.FormPatch{CustomMessage: session.Ptr(args)})
		return h.tg.SendText(chatID, textSaved)
	case "status":
		return h.tg.SendText(chatID, h.statusText(h.store(chatID).ReadAll()))
	case "generate":
		return h.generate(ctx, chatID)
	case "regenerate":
		return h.regenerate(ctx, chatID, args)
	case "new":
		h.store(chatID).Clear()
		return h.tg.SendText(chatID, textCleared)
	default:
		return h.tg.SendText(chatID, textUnknownCommand)
	}
}

func (h *Handler) setTone(chatID int64, value string) error {
	tone, err := domain.ParseTone(value)
	if err != nil {
		return h.tg.SendText(chatID, textInvalidTone)
	}
	h.store(chatID).MergeForm(session.FormPatch{SelectedTone: &tone})
	return h.tg.SendText(chatID, fmt.Sprintf(textToneSet, tone.Label()))
}

// setRelationship stores the catalog key when the value resolves, the raw
// text otherwise.
func (h *Handler) setRelationship(chatID int64, value string) error {
	value = strings.TrimSpace(value)
	label := value
	if rel, ok := h.catalog.Resolve(value); ok {
		value = rel.Key
		label = rel.Label
	}
	h.store(chatID).MergeForm(session.FormPatch{Relationship: &value})
	return h.tg.SendText(chatID, fmt.Sprintf(textRelationshipSet, label))
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, msg *tgbotapi.Message) error {
	photo := msg.Photo[len(msg.Photo)-1]
	fileID := photo.FileID

	if msg.MediaGroupID != "" && h.aggregator != nil {
		var userID int64
		if msg.From != nil {
			userID = msg.From.ID
		}
		if h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MessageID:    msg.MessageID,
			MediaGroupID: msg.MediaGroupID,
			Caption:      msg.Caption,
			FileID:       fileID,
		}) {
			return nil
		}
	}

	return h.processPhotos(ctx, chatID, msg.Caption, []string{fileID})
}

// processPhotos downloads every photo before touching the session, so a
// failed album adds nothing.
func (h *Handler) processPhotos(ctx context.Context, chatID int64, caption string, fileIDs []string) error {
	h.tg.SendTyping(chatID)

	images := make([]string, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			img, err := h.tg.DownloadImage(egCtx, fileID)
			if err != nil {
				return err
			}
			images[i] = img
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, textDownloadFailed)
	}

	st := h.store(chatID)
	total := st.AppendImages(images...)
	if caption = strings.TrimSpace(caption); caption != "" {
		st.MergeForm(session.FormPatch{CustomMessage: &caption})
	}

	return h.tg.SendText(chatID, fmt.Sprintf(textPhotosAdded, len(images), total))
}

func (h *Handler) generate(ctx context.Context, chatID int64) error {
	st := h.store(chatID)
	if !st.ReadAll().ReadyToGenerate() {
		return h.tg.SendText(chatID, textNotReady)
	}

	h.tg.SendTyping(chatID)
	res, err := h.flow.Submit(ctx, st)
	return h.reply(chatID, st, res, err)
}

func (h *Handler) regenerate(ctx context.Context, chatID int64, tone string) error {
	st := h.store(chatID)
	if !st.ReadAll().ReadyToGenerate() {
		return h.tg.SendText(chatID, textNotReady)
	}

	h.tg.SendTyping(chatID)
	res, err := h.flow.Regenerate(ctx, st, tone)
	return h.reply(chatID, st, res, err)
}

func (h *Handler) reply(chatID int64, st *session.Store, res composer.Result, err error) error {
	if err != nil {
		return h.tg.SendText(chatID, errorText(err))
	}

	if _, err := h.tg.SendTextWithKeyboard(chatID, res.Text, resultKeyboard(res.Tone)); err != nil {
		return err
	}

	h.sendBGM(chatID, st.ReadAll().Relationship)
	return nil
}

// sendBGM is best effort; a missing file only gets logged.
func (h *Handler) sendBGM(chatID int64, relationship string) {
	if h.bgmDir == "" {
		return
	}
	rel, ok := h.catalog.Resolve(relationship)
	if !ok || rel.BGM == "" {
		return
	}

	path := filepath.Join(h.bgmDir, rel.BGM)
	if _, err := os.Stat(path); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			h.logger.Warn("bgm stat failed", "path", path, "err", err)
		}
		return
	}
	if err := h.tg.SendAudioFile(chatID, path, rel.Label); err != nil {
		h.logger.Warn("bgm send failed", "chat_id", chatID, "file", rel.BGM, "err", err)
	}
}

func (h *Handler) statusText(rec domain.SessionRecord) string {
	rel := rec.Relationship
	if r, ok := h.catalog.Resolve(rel); ok {
		rel = r.Label
	}

	var b strings.Builder
	fmt.Fprintf(&b, "写真: %d枚\n", len(rec.SelectedImages))
	fmt.Fprintf(&b, "トーン: %s\n", rec.SelectedTone.Label())
	fmt.Fprintf(&b, "関係: %s\n", orDash(rel))
	fmt.Fprintf(&b, "シーン: %s\n", orDash(rec.Occasion))
	fmt.Fprintf(&b, "メモ: %s", orDash(rec.CustomMessage))
	if rec.Generated.HasText() {
		fmt.Fprintf(&b, "\n\n最新のメッセージ (%s):\n%s", rec.Generated.Tone.Label(), *rec.Generated.Text)
	}
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
