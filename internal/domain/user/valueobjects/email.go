package valueobjects

import (
	"fmt"
	"regexp"
	"strings"
)

var emailRegex = regexp.MustCompile(`^[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}$`)

// Email is a lowercased, trimmed address. It is the user's immutable natural key.
type Email struct {
	value string
}

func NewEmail(value string) (*Email, error) {
	normalized := NormalizeEmail(value)

	if normalized == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}
	if len(normalized) > 255 {
		return nil, fmt.Errorf("email cannot exceed 255 characters")
	}
	if !emailRegex.MatchString(normalized) {
		return nil, fmt.Errorf("invalid email format: %s", value)
	}
	return &Email{value: normalized}, nil
}

// NormalizeEmail applies the same folding NewEmail does, for lookups by
// addresses that arrive from Stripe payloads.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func (e *Email) String() string {
	return e.value
}

func (e *Email) Equals(other *Email) bool {
	if e == nil || other == nil {
		return e == other
	}
	return e.value == other.value
}
