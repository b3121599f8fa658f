package session

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"love-piece/internal/domain"
)

type failingKV struct {
	readErr, writeErr, clearErr error
	writes                      int
}

func (f *failingKV) Read(string) ([]byte, error) { return nil, f.readErr }

func (f *failingKV) Write(string, []byte) error {
	f.writes++
	return f.writeErr
}

func (f *failingKV) Clear(string) error { return f.clearErr }

func TestReadAllDefaults(t *testing.T) {
	rec := NewStore(Options{}).ReadAll()

	assert.Equal(t, []string{}, rec.SelectedImages)
	assert.Equal(t, domain.ToneCasual, rec.SelectedTone)
	assert.Empty(t, rec.Relationship)
	assert.Empty(t, rec.Occasion)
	assert.Empty(t, rec.CustomMessage)
	assert.Nil(t, rec.Generated.Text)
	assert.False(t, rec.ReadyToGenerate())
}

func TestMergeFormIdempotent(t *testing.T) {
	kv := NewMemoryKV()
	s := NewStore(Options{KV: kv})

	s.MergeForm(FormPatch{Relationship: Ptr("friend")})
	once, err := kv.Read(DefaultKey)
	require.NoError(t, err)

	s.MergeForm(FormPatch{Relationship: Ptr("friend")})
	twice, err := kv.Read(DefaultKey)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
}

func TestMergeFormPreservesOtherFields(t *testing.T) {
	s := NewStore(Options{})

	s.MergeForm(FormPatch{Relationship: Ptr("friend")})
	s.MergeForm(FormPatch{Occasion: Ptr("birthday")})

	rec := s.ReadAll()
	assert.Equal(t, "friend", rec.Relationship)
	assert.Equal(t, "birthday", rec.Occasion)
	assert.Equal(t, domain.ToneCasual, rec.SelectedTone)
}

func TestMergeFormEveryField(t *testing.T) {
	s := NewStore(Options{})
	images := []string{"data:image/png;base64,QUJD"}

	s.MergeForm(FormPatch{
		SelectedImages: &images,
		SelectedTone:   Ptr(domain.TonePoetic),
		Relationship:   Ptr("partner"),
		Occasion:       Ptr("anniversary"),
		CustomMessage:  Ptr("thanks for everything"),
	})
	images[0] = "mutated"

	rec := s.ReadAll()
	assert.Equal(t, []string{"data:image/png;base64,QUJD"}, rec.SelectedImages)
	assert.Equal(t, domain.TonePoetic, rec.SelectedTone)
	assert.Equal(t, "partner", rec.Relationship)
	assert.Equal(t, "anniversary", rec.Occasion)
	assert.Equal(t, "thanks for everything", rec.CustomMessage)
	assert.True(t, rec.ReadyToGenerate())
}

func TestSetGeneratedTextKeepsForm(t *testing.T) {
	s := NewStore(Options{})
	s.MergeForm(FormPatch{Relationship: Ptr("parent"), SelectedTone: Ptr(domain.ToneFormal)})

	s.SetGeneratedText("ありがとう")

	rec := s.ReadAll()
	require.NotNil(t, rec.Generated.Text)
	assert.Equal(t, "ありがとう", *rec.Generated.Text)
	assert.Equal(t, "parent", rec.Relationship)
	assert.Equal(t, domain.ToneFormal, rec.SelectedTone)
}

func TestSetGeneratedResult(t *testing.T) {
	s := NewStore(Options{})
	s.SetGeneratedResult(domain.GeneratedResult{Text: Ptr("hi"), Tone: domain.TonePoetic})

	rec := s.ReadAll()
	assert.True(t, rec.Generated.HasText())
	assert.Equal(t, domain.TonePoetic, rec.Generated.Tone)
}

func TestAppendImages(t *testing.T) {
	s := NewStore(Options{})

	assert.Equal(t, 1, s.AppendImages("a"))
	assert.Equal(t, 3, s.AppendImages("b", "c"))
	assert.Equal(t, 3, s.AppendImages())
	assert.Equal(t, []string{"a", "b", "c"}, s.ReadAll().SelectedImages)
}

func TestClear(t *testing.T) {
	kv := NewMemoryKV()
	s := NewStore(Options{KV: kv})
	s.MergeForm(FormPatch{Relationship: Ptr("friend")})
	s.SetGeneratedText("x")

	s.Clear()

	assert.Equal(t, domain.DefaultSessionRecord(), s.ReadAll())
	_, err := kv.Read(DefaultKey)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCorruptRecordFallsBack(t *testing.T) {
	for name, raw := range map[string]string{
		"not json":       "{{{",
		"future version": `{"version":7,"relationship":"friend"}`,
		"wrong types":    `{"selectedImages":"nope"}`,
	} {
		t.Run(name, func(t *testing.T) {
			kv := NewMemoryKV()
			require.NoError(t, kv.Write(DefaultKey, []byte(raw)))

			assert.Equal(t, domain.DefaultSessionRecord(), NewStore(Options{KV: kv}).ReadAll())
		})
	}
}

func TestUnversionedRecordIsRead(t *testing.T) {
	kv := NewMemoryKV()
	raw := `{"selectedImages":["data:image/png;base64,QUJD"],"selectedTone":"formal","relationship":"parent","occasion":"","customMessage":"","generatedText":null}`
	require.NoError(t, kv.Write(DefaultKey, []byte(raw)))

	rec := NewStore(Options{KV: kv}).ReadAll()
	assert.Equal(t, domain.ToneFormal, rec.SelectedTone)
	assert.Equal(t, "parent", rec.Relationship)
	assert.Nil(t, rec.Generated.Text)
}

func TestUnknownToneFallsBackToDefault(t *testing.T) {
	rec, err := Decode([]byte(`{"version":1,"selectedTone":"angry"}`))
	require.NoError(t, err)
	assert.Equal(t, domain.ToneCasual, rec.SelectedTone)
	assert.Equal(t, []string{}, rec.SelectedImages)
}

func TestEncodeLayout(t *testing.T) {
	raw, err := Encode(domain.DefaultSessionRecord())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"version": 1,
		"selectedImages": [],
		"selectedTone": "casual",
		"relationship": "",
		"occasion": "",
		"customMessage": "",
		"generatedText": null
	}`, string(raw))
}

func TestStorageFailuresAreSwallowed(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	kv := &failingKV{
		readErr:  errors.New("storage disabled"),
		writeErr: errors.New("quota exceeded"),
		clearErr: errors.New("storage disabled"),
	}
	s := NewStore(Options{KV: kv, Logger: logger})

	assert.NotPanics(t, func() {
		s.MergeForm(FormPatch{Relationship: Ptr("friend")})
		s.SetGeneratedText("x")
		s.Clear()
	})
	assert.Equal(t, domain.DefaultSessionRecord(), s.ReadAll())
	assert.Equal(t, 2, kv.writes)
	assert.Contains(t, buf.String(), "quota exceeded")
}

func TestMemoryKVPrune(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	kv.now = func() time.Time { return now }
	require.NoError(t, kv.Write("old", []byte("1")))

	now = now.Add(time.Hour)
	require.NoError(t, kv.Write("new", []byte("2")))

	removed := kv.Prune(now.Add(-time.Minute))
	assert.Equal(t, []string{"old"}, removed)
	assert.Equal(t, 1, kv.Len())
}

func TestManagerReusesStores(t *testing.T) {
	m := NewManager(nil, nil)

	a := m.For("chat:1")
	assert.Same(t, a, m.For("chat:1"))
	assert.NotSame(t, a, m.For("chat:2"))
	assert.Equal(t, "chat:1", a.Key())

	a.MergeForm(FormPatch{Relationship: Ptr("friend")})
	m.Forget("chat:1")
	assert.Equal(t, "friend", m.For("chat:1").ReadAll().Relationship)
}
