package middleware

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxSymptomsLength bounds the free-text description, in runes
const MaxSymptomsLength = 4000

// SanitizeString removes null bytes and control characters
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateSymptoms checks the length limit; emptiness is the service's concern
func ValidateSymptoms(s string) error {
	if n := utf8.RuneCountInString(s); n > MaxSymptomsLength {
		return fmt.Errorf("symptoms too long: %d characters (max %d)", n, MaxSymptomsLength)
	}
	return nil
}

// ValidateAnalysisID checks the uuid format of an analysis id
func ValidateAnalysisID(id string) error {
	if id == "" {
		return fmt.Errorf("analysis ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid analysis ID format")
	}
	return nil
}

// ValidatePage validates pagination page
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}
