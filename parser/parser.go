// Package parser extracts members and attendance rows from listing markup
// with streaming state machines over a token stream.
package parser

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/aluiziolira/mp-attendance/models"
	"golang.org/x/text/unicode/norm"
)

// ValidateMember ensures the directory scan captured the required fields.
func ValidateMember(m *models.Member) error {
	if m == nil {
		return fmt.Errorf("member is nil")
	}
	if strings.TrimSpace(m.ID) == "" {
		return fmt.Errorf("member missing id")
	}
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("member missing name for %s", m.ID)
	}
	if strings.TrimSpace(m.Party) == "" {
		return fmt.Errorf("member missing party for %s", m.ID)
	}
	if strings.TrimSpace(m.District) == "" {
		return fmt.Errorf("member missing district for %s", m.ID)
	}
	return nil
}

// NormalizeText applies NFKC, drops control characters and collapses runs
// of whitespace to a single space.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return strings.Join(strings.Fields(normed), " ")
}

// NormalizeName folds a person's name for comparison across page families.
func NormalizeName(name string) string {
	name = strings.ToLower(NormalizeText(name))
	for _, title := range []string{"hon. ", "hon ", "dr. ", "dr "} {
		name = strings.TrimPrefix(name, title)
	}
	return strings.Join(strings.Fields(strings.ReplaceAll(name, ".", " ")), " ")
}

// firstLine returns the first non-empty line of text, normalized.
func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return NormalizeText(trimmed)
		}
	}
	return ""
}
