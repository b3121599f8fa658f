package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"love-piece/internal/domain"
	"love-piece/internal/logging"
)

// DefaultKey is the fixed key of the single browser-tab record.
const DefaultKey = "love-piece-session"

// recordVersion is written with every record. Records without a version
// predate it and share its layout.
const recordVersion = 1

type Options struct {
	KV     KV
	Key    string
	Logger *slog.Logger
}

// Store reads and writes one session record. Storage failures never reach
// the caller: reads fall back to defaults and failed writes are logged.
type Store struct {
	mu     sync.Mutex
	kv     KV
	key    string
	logger *slog.Logger
}

func NewStore(opts Options) *Store {
	kv := opts.KV
	if kv == nil {
		kv = NewMemoryKV()
	}

	key := strings.TrimSpace(opts.Key)
	if key == "" {
		key = DefaultKey
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	return &Store{kv: kv, key: key, logger: logger}
}

func (s *Store) Key() string { return s.key }

// FormPatch names the fields to overwrite; nil fields are left untouched.
type FormPatch struct {
	SelectedImages *[]string
	SelectedTone   *domain.Tone
	Relationship   *string
	Occasion       *string
	CustomMessage  *string
}

func Ptr[T any](v T) *T { return &v }

// ReadAll returns the stored record or the default one.
func (s *Store) ReadAll() domain.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// MergeForm shallow-merges patch into the stored form fields.
func (s *Store) MergeForm(patch FormPatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.readLocked()
	applyPatch(&rec.FormState, patch)
	s.writeLocked(rec)
}

// AppendImages adds images after the ones already selected.
func (s *Store) AppendImages(images ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.readLocked()
	if len(images) > 0 {
		rec.SelectedImages = append(rec.SelectedImages, images...)
		s.writeLocked(rec)
	}
	return len(rec.SelectedImages)
}

// SetGeneratedText overwrites only the generated text.
func (s *Store) SetGeneratedText(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.readLocked()
	rec.Generated.Text = &text
	s.writeLocked(rec)
}

// SetGeneratedResult overwrites the generated text and the tone that made it.
func (s *Store) SetGeneratedResult(res domain.GeneratedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.readLocked()
	rec.Generated = res
	s.writeLocked(rec)
}

// Clear removes the record; the next read returns the default.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Clear(s.key); err != nil {
		s.logger.Warn("session clear failed", "key", s.key, "err", err)
	}
}

func (s *Store) readLocked() domain.SessionRecord {
	raw, err := s.kv.Read(s.key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("session read failed", "key", s.key, "err", err)
		}
		return domain.DefaultSessionRecord()
	}

	rec, err := Decode(raw)
	if err != nil {
		s.logger.Warn("session record unreadable", "key", s.key, "err", err)
		return domain.DefaultSessionRecord()
	}
	return rec
}

func (s *Store) writeLocked(rec domain.SessionRecord) {
	raw, err := Encode(rec)
	if err != nil {
		s.logger.Warn("session encode failed", "key", s.key, "err", err)
		return
	}
	if err := s.kv.Write(s.key, raw); err != nil {
		s.logger.Warn("session write failed", "key", s.key, "err", err)
	}
}

func applyPatch(f *domain.FormState, p FormPatch) {
	if p.SelectedImages != nil {
		f.SelectedImages = append([]string{}, (*p.SelectedImages)...)
	}
	if p.SelectedTone != nil {
		f.SelectedTone = *p.SelectedTone
	}
	if p.Relationship != nil {
		f.Relationship = *p.Relationship
	}
	if p.Occasion != nil {
		f.Occasion = *p.Occasion
	}
	if p.CustomMessage != nil {
		f.CustomMessage = *p.CustomMessage
	}
}

// record is the stored JSON layout, shared with the browser client.
type record struct {
	Version        int         `json:"version"`
	SelectedImages []string    `json:"selectedImages"`
	SelectedTone   domain.Tone `json:"selectedTone"`
	Relationship   string      `json:"relationship"`
	Occasion       string      `json:"occasion"`
	CustomMessage  string      `json:"customMessage"`
	GeneratedText  *string     `json:"generatedText"`
	GeneratedTone  domain.Tone `json:"generatedTone,omitempty"`
}

func Encode(rec domain.SessionRecord) ([]byte, error) {
	images := rec.SelectedImages
	if images == nil {
		images = []string{}
	}
	return json.Marshal(record{
		Version:        recordVersion,
		SelectedImages: images,
		SelectedTone:   rec.SelectedTone,
		Relationship:   rec.Relationship,
		Occasion:       rec.Occasion,
		CustomMessage:  rec.CustomMessage,
		GeneratedText:  rec.Generated.Text,
		GeneratedTone:  rec.Generated.Tone,
	})
}

// Decode parses a stored record. An unknown version or malformed JSON is an
// error; an unrecognised tone falls back to the default.
func Decode(raw []byte) (domain.SessionRecord, error) {
	var r record
	if err := json.Unmarshal(raw, &r); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode session: %w", err)
	}
	if r.Version != 0 && r.Version != recordVersion {
		return domain.SessionRecord{}, fmt.Errorf("decode session: unsupported version %d", r.Version)
	}

	rec := domain.DefaultSessionRecord()
	if r.SelectedImages != nil {
		rec.SelectedImages = r.SelectedImages
	}
	if r.SelectedTone.Valid() {
		rec.SelectedTone = r.SelectedTone
	}
	rec.Relationship = r.Relationship
	rec.Occasion = r.Occasion
	rec.CustomMessage = r.CustomMessage
	rec.Generated.Text = r.GeneratedText
	if r.GeneratedTone.Valid() {
		rec.Generated.Tone = r.GeneratedTone
	}
	return rec, nil
}
