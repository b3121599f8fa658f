package catalog

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed relationships.yaml
var relationshipsYAML []byte

type Relationship struct {
	Key     string   `yaml:"key"`
	Label   string   `yaml:"label"`
	Aliases []string `yaml:"aliases"`
	BGM     string   `yaml:"bgm"`
}

// Names returns the values a guidance document may use as a heading
// for this relationship, most specific first.
func (r Relationship) Names() []string {
	out := []string{r.Label, r.Key}
	return append(out, r.Aliases...)
}

type Catalog struct {
	relationships []Relationship
	index         map[string]int
}

type document struct {
	Relationships []Relationship `yaml:"relationships"`
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(relationshipsYAML)
	if err != nil {
		panic(err)
	}
	return c
}

func Parse(data []byte) (*Catalog, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	c := &Catalog{index: make(map[string]int)}
	for _, r := range doc.Relationships {
		r.Key = strings.TrimSpace(r.Key)
		r.Label = strings.TrimSpace(r.Label)
		if r.Key == "" {
			return nil, fmt.Errorf("relationship %q has no key", r.Label)
		}
		idx := len(c.relationships)
		c.relationships = append(c.relationships, r)
		for _, name := range r.Names() {
			name = normalize(name)
			if name == "" {
				continue
			}
			if prev, ok := c.index[name]; ok && prev != idx {
				return nil, fmt.Errorf("relationship name %q is ambiguous", name)
			}
			c.index[name] = idx
		}
	}
	return c, nil
}

func (c *Catalog) Relationships() []Relationship {
	out := make([]Relationship, len(c.relationships))
	copy(out, c.relationships)
	return out
}

// Resolve finds a relationship by key, label or alias.
func (c *Catalog) Resolve(value string) (Relationship, bool) {
	idx, ok := c.index[normalize(value)]
	if !ok {
		return Relationship{}, false
	}
	return c.relationships[idx], true
}

// BGMFiles is the allow-list of audio asset names.
func (c *Catalog) BGMFiles() map[string]struct{} {
	out := make(map[string]struct{}, len(c.relationships))
	for _, r := range c.relationships {
		if r.BGM != "" {
			out[r.BGM] = struct{}{}
		}
	}
	return out
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
