package prompt

import (
	"fmt"
	"strings"

	"love-piece/internal/catalog"
	"love-piece/internal/domain"
)

type Options struct {
	Guidance        Guidance
	Catalog         *catalog.Catalog
	CompletionGuard bool
}

// Builder assembles the instruction text sent ahead of the images.
// It holds no mutable state and is safe for concurrent use.
type Builder struct {
	guidance        Guidance
	catalog         *catalog.Catalog
	completionGuard bool
}

func NewBuilder(opts Options) *Builder {
	cat := opts.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	return &Builder{
		guidance:        opts.Guidance,
		catalog:         cat,
		completionGuard: opts.CompletionGuard,
	}
}

// Build joins, in this order and separated by blank lines: the common
// guidance block, the relationship block, the completion guard and the
// tone instruction. Empty blocks are left out.
func (b *Builder) Build(tone domain.Tone, relationship string) (string, error) {
	toneText, ok := ToneInstruction(tone)
	if !ok {
		return "", &domain.ValidationError{Field: "tone", Message: "invalid tone"}
	}

	blocks := []string{
		b.guidance.Block(CommonSection),
		b.relationshipBlock(relationship),
	}
	if b.completionGuard {
		blocks = append(blocks, CompletionGuard)
	}
	blocks = append(blocks, toneText)

	return joinBlocks(blocks), nil
}

// relationshipBlock tries the raw value first, then every catalog name of
// the relationship it resolves to. The first non-empty section wins.
func (b *Builder) relationshipBlock(relationship string) string {
	relationship = strings.TrimSpace(relationship)
	if relationship == "" {
		return ""
	}

	candidates := []string{relationship}
	if rel, ok := b.catalog.Resolve(relationship); ok {
		candidates = append(candidates, rel.Names()...)
	}
	for _, name := range candidates {
		if strings.EqualFold(strings.TrimSpace(name), CommonSection) {
			continue
		}
		if block := b.guidance.Block(name); block != "" {
			return block
		}
	}
	return ""
}

func joinBlocks(blocks []string) string {
	present := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if block = strings.TrimSpace(block); block != "" {
			present = append(present, block)
		}
	}
	return strings.Join(present, "\n\n")
}

func (b *Builder) String() string {
	return fmt.Sprintf("prompt.Builder{sections: %d, guard: %t}", b.guidance.Len(), b.completionGuard)
}
