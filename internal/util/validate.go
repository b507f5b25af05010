package util

import (
	"fmt"
	"regexp"
)

const maxEngineIDLen = 128

// validEngineChars matches lowercase alphanumerics plus the separators engine
// identifiers use in practice ("openai/gpt-4o", "claude-3.5:latest").
var validEngineChars = regexp.MustCompile(`^[a-z0-9._/:\-]+$`)

// ValidateEngineID checks that an AI engine identifier is usable as a stored
// key:
//   - 1 to 128 characters
//   - Only a-z, 0-9, '.', '_', '/', ':' and '-'
//   - First character must be alphanumeric
func ValidateEngineID(id string) error {
	if len(id) == 0 {
		return fmt.Errorf("engine id must not be empty")
	}
	if len(id) > maxEngineIDLen {
		return fmt.Errorf("engine id must be at most %d characters, got %d", maxEngineIDLen, len(id))
	}

	if !validEngineChars.MatchString(id) {
		return fmt.Errorf("engine id %q contains invalid characters (only a-z, 0-9, '.', '_', '/', ':' and '-' are allowed)", id)
	}

	if !isAlphanumeric(id[0]) {
		return fmt.Errorf("engine id must start with an alphanumeric character, got %q", string(id[0]))
	}

	return nil
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}
