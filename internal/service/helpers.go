package service

import (
	"strings"

	"github.com/google/uuid"
)

// generateID returns a prefixed random identifier, e.g. "evt_9f8a...".
func generateID(prefix string) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	if prefix != "" {
		return prefix + "_" + id
	}
	return id
}

// normalizePhoneNumber reduces a phone number to its canonical form for
// identity comparison: a leading "+" is preserved, every other
// non-digit character is stripped. This transformation is for phone
// numbers only - passwords are never normalized.
func normalizePhoneNumber(number string) string {
	trimmed := strings.TrimSpace(number)
	hadPlus := strings.HasPrefix(trimmed, "+")

	var b strings.Builder
	for _, r := range trimmed {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if hadPlus {
		return "+" + b.String()
	}
	return b.String()
}
