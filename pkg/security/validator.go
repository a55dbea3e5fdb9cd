package security

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode"
)

// Validator provides security validation for incoming object keys before
// they are used to build scratch file paths.
type Validator struct {
	maxKeyLength int
}

// NewValidator creates a new security validator.
func NewValidator(maxKeyLength int) *Validator {
	slog.Info("security_validator_init", "max_key_length", maxKeyLength)

	return &Validator{maxKeyLength: maxKeyLength}
}

// ValidateObjectKey checks an object key for path traversal and other
// hostile shapes. Keys are attacker-controlled; anything suspicious is
// rejected before the object is downloaded.
func (v *Validator) ValidateObjectKey(key string) error {
	if key == "" {
		slog.Error("security_key_validation_failed", "reason", "empty_key")
		return fmt.Errorf("security: object key cannot be empty")
	}

	if len(key) > v.maxKeyLength {
		slog.Error("security_key_validation_failed", "key", key, "reason", "key_too_long", "length", len(key))
		return fmt.Errorf("security: object key length %d exceeds max %d", len(key), v.maxKeyLength)
	}

	// Reject absolute paths
	if filepath.IsAbs(key) {
		slog.Error("security_key_validation_failed", "key", key, "reason", "absolute_path")
		return fmt.Errorf("security: absolute path not allowed: %s", key)
	}

	// Reject keys that escape upward after cleaning
	clean := filepath.Clean(key)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		slog.Error("security_key_validation_failed", "key", key, "reason", "path_traversal")
		return fmt.Errorf("security: path traversal detected: %s", key)
	}

	for _, r := range key {
		if unicode.IsControl(r) {
			slog.Error("security_key_validation_failed", "key", key, "reason", "control_character")
			return fmt.Errorf("security: control character in object key")
		}
	}

	return nil
}
