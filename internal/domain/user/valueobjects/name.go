package valueobjects

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	nameMinRunes = 2
	nameMaxRunes = 100
)

var polishTitle = cases.Title(language.Polish)

// Name is a display name. Letters outside ASCII (ą, ł, ż...) are allowed.
type Name struct {
	value string
}

func NewName(value string) (*Name, error) {
	normalized := strings.Join(strings.Fields(value), " ")

	n := utf8.RuneCountInString(normalized)
	if n == 0 {
		return nil, fmt.Errorf("name cannot be empty")
	}
	if n < nameMinRunes {
		return nil, fmt.Errorf("name must be at least %d characters long", nameMinRunes)
	}
	if n > nameMaxRunes {
		return nil, fmt.Errorf("name cannot exceed %d characters", nameMaxRunes)
	}

	for _, r := range normalized {
		if !unicode.IsLetter(r) && r != ' ' && r != '-' && r != '\'' && r != '.' {
			return nil, fmt.Errorf("name contains invalid characters: %s", value)
		}
	}
	return &Name{value: normalized}, nil
}

func (n *Name) String() string {
	return n.value
}

// DisplayName title-cases every word with Polish casing rules.
func (n *Name) DisplayName() string {
	return polishTitle.String(strings.ToLower(n.value))
}

func (n *Name) FirstName() string {
	if parts := strings.Fields(n.value); len(parts) > 0 {
		return parts[0]
	}
	return ""
}

// MustName wraps a stored value without validation. Only for rehydrating
// legacy records.
func MustName(value string) *Name {
	return &Name{value: strings.TrimSpace(value)}
}
