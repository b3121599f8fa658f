package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"love-piece/internal/domain"
)

const builderDoc = `- common
  - shared rule
- 両親
  - parents rule
`

func TestBuildOrder(t *testing.T) {
	b := NewBuilder(Options{Guidance: ParseGuidance(builderDoc), CompletionGuard: true})

	got, err := b.Build(domain.ToneFormal, "parent")
	require.NoError(t, err)

	formal, _ := ToneInstruction(domain.ToneFormal)
	want := "- shared rule\n\n- parents rule\n\n" + CompletionGuard + "\n\n" + formal
	assert.Equal(t, want, got)
}

func TestBuildIsDeterministic(t *testing.T) {
	b := NewBuilder(Options{Guidance: ParseGuidance(builderDoc), CompletionGuard: true})

	first, err := b.Build(domain.TonePoetic, "両親")
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := b.Build(domain.TonePoetic, "両親")
		require.NoError(t, err)
		require.Equal(t, first, again)
	}
}

func TestBuildMissingRelationshipSection(t *testing.T) {
	b := NewBuilder(Options{Guidance: ParseGuidance(builderDoc), CompletionGuard: true})

	got, err := b.Build(domain.ToneCasual, "colleague")
	require.NoError(t, err)

	casual, _ := ToneInstruction(domain.ToneCasual)
	assert.Equal(t, "- shared rule\n\n"+CompletionGuard+"\n\n"+casual, got)
	assert.NotContains(t, got, "parents rule")
}

func TestBuildWithoutGuidanceOrGuard(t *testing.T) {
	b := NewBuilder(Options{})

	got, err := b.Build(domain.ToneCasual, "friend")
	require.NoError(t, err)

	casual, _ := ToneInstruction(domain.ToneCasual)
	assert.Equal(t, casual, got)
}

func TestBuildIgnoresCommonAsRelationship(t *testing.T) {
	b := NewBuilder(Options{Guidance: ParseGuidance(builderDoc)})

	got, err := b.Build(domain.ToneCasual, "common")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(got, "shared rule"))
}

func TestBuildRejectsUnknownTone(t *testing.T) {
	_, err := NewBuilder(Options{}).Build(domain.Tone("angry"), "")
	assert.Equal(t, domain.KindValidation, domain.Classify(err))
}

func TestToneTemplates(t *testing.T) {
	for _, tone := range domain.Tones() {
		text, ok := ToneInstruction(tone)
		require.True(t, ok, tone)
		assert.Contains(t, text, "3〜5文")
		assert.Contains(t, text, "複数の写真")
	}
}
