package handlers

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"love-piece/internal/catalog"
	"love-piece/internal/domain"
	"love-piece/internal/telegram"
)

// Callback data is "<action>" or "<action>:<value>".
const (
	cbTone         = "tone"
	cbRelationship = "rel"
	cbRegenerate   = "regen"
	cbNew          = "new"
)

func toneKeyboard() telegram.Keyboard {
	row := make([]telegram.Button, 0, len(domain.Tones()))
	for _, t := range domain.Tones() {
		row = append(row, telegram.Button{Text: t.Label(), Data: cbTone + ":" + string(t)})
	}
	return telegram.Keyboard{row}
}

// relationshipKeyboard lays the catalog out two buttons per row.
func relationshipKeyboard(cat *catalog.Catalog) telegram.Keyboard {
	var kb telegram.Keyboard
	var row []telegram.Button
	for _, r := range cat.Relationships() {
		row = append(row, telegram.Button{Text: r.Label, Data: cbRelationship + ":" + r.Key})
		if len(row) == 2 {
			kb = append(kb, row)
			row = nil
		}
	}
	if len(row) > 0 {
		kb = append(kb, row)
	}
	return kb
}

// resultKeyboard offers the other tones and a fresh start under a result.
func resultKeyboard(current domain.Tone) telegram.Keyboard {
	var row []telegram.Button
	for _, t := range domain.Tones() {
		if t == current {
			continue
		}
		row = append(row, telegram.Button{Text: t.Label() + "で再生成", Data: cbRegenerate + ":" + string(t)})
	}
	return telegram.Keyboard{
		row,
		{
			{Text: "もう一度", Data: cbRegenerate},
			{Text: "新しく作る", Data: cbNew},
		},
	}
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	if q == nil || q.Message == nil {
		return nil
	}

	action, value, _ := strings.Cut(strings.TrimSpace(q.Data), ":")
	chatID := q.Message.Chat.ID

	switch action {
	case cbTone:
		tone, err := domain.ParseTone(value)
		if err != nil {
			return h.tg.AnswerCallback(q.ID, textInvalidTone, true)
		}
		_ = h.tg.AnswerCallback(q.ID, tone.Label(), false)
		return h.setTone(chatID, value)
	case cbRelationship:
		rel, ok := h.catalog.Resolve(value)
		if !ok {
			return h.tg.AnswerCallback(q.ID, textUnknownRelationship, true)
		}
		_ = h.tg.AnswerCallback(q.ID, rel.Label, false)
		return h.setRelationship(chatID, rel.Key)
	case cbRegenerate:
		_ = h.tg.AnswerCallback(q.ID, textGenerating, false)
		return h.regenerate(ctx, chatID, value)
	case cbNew:
		_ = h.tg.AnswerCallback(q.ID, "", false)
		h.store(chatID).Clear()
		return h.tg.SendText(chatID, textCleared)
	default:
		return h.tg.AnswerCallback(q.ID, "", false)
	}
}
