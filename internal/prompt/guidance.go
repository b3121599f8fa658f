package prompt

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// CommonSection is the heading whose body applies to every relationship.
const CommonSection = "common"

// Guidance holds instruction lines grouped by heading.
//
// The source document is a flat list: a top-level bullet ("- name" or
// "* name" at column 0) opens a section, and every following non-blank
// line, indented or not, belongs to it. Text before the first heading is
// ignored and malformed input simply yields fewer or empty sections; a
// missing section is an empty block, never an error.
type Guidance struct {
	sections map[string][]string
}

// ParseGuidance never fails.
func ParseGuidance(doc string) Guidance {
	g := Guidance{sections: make(map[string][]string)}

	current := ""
	open := false
	sc := bufio.NewScanner(strings.NewReader(doc))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		if heading, ok := topLevelBullet(line); ok {
			current = sectionKey(heading)
			open = current != ""
			if open {
				if _, exists := g.sections[current]; !exists {
					g.sections[current] = nil
				}
			}
			continue
		}
		if !open {
			continue
		}

		if body := stripBullet(strings.TrimSpace(line)); body != "" {
			g.sections[current] = append(g.sections[current], body)
		}
	}
	return g
}

// LoadGuidance reads and parses the document at path.
func LoadGuidance(path string) (Guidance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Guidance{}, fmt.Errorf("read guidance: %w", err)
	}
	return ParseGuidance(string(data)), nil
}

// Lines returns the body of a section (nil when absent).
func (g Guidance) Lines(heading string) []string {
	lines := g.sections[sectionKey(heading)]
	if len(lines) == 0 {
		return nil
	}
	return append([]string(nil), lines...)
}

// Block renders a section as a bulleted instruction block, or "".
func (g Guidance) Block(heading string) string {
	lines := g.sections[sectionKey(heading)]
	if len(lines) == 0 {
		return ""
	}
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("- " + line)
	}
	return b.String()
}

// Len is the number of headings found, including empty ones.
func (g Guidance) Len() int {
	return len(g.sections)
}

func topLevelBullet(line string) (string, bool) {
	if len(line) < 2 {
		return "", false
	}
	if (line[0] == '-' || line[0] == '*') && (line[1] == ' ' || line[1] == '\t') {
		return strings.TrimSpace(line[2:]), true
	}
	return "", false
}

func stripBullet(line string) string {
	for _, marker := range []string{"- ", "* ", "・"} {
		if strings.HasPrefix(line, marker) {
			return strings.TrimSpace(strings.TrimPrefix(line, marker))
		}
	}
	return line
}

func sectionKey(heading string) string {
	heading = strings.TrimSpace(heading)
	heading = strings.TrimSuffix(heading, ":")
	heading = strings.TrimSuffix(heading, "：")
	return strings.ToLower(strings.TrimSpace(heading))
}
