package errors

import (
	"strings"
	"unicode"
)

// MaxColumnNameLength bounds attribute column names.
const MaxColumnNameLength = 256

// ValidateColumnName validates an attribute column name.
//
// Column names are shown to users and used as keys by persistence backends, so
// the rules are conservative:
//   - No empty or whitespace-only names
//   - No control characters or null bytes
//   - Maximum length of 256 characters
func ValidateColumnName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidArgument, "column name cannot be empty")
	}

	if len(name) > MaxColumnNameLength {
		return New(ErrCodeInvalidArgument, "column name too long (max %d characters)", MaxColumnNameLength)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidArgument, "column name contains invalid control characters")
		}
	}

	return nil
}

// ValidateDelimiter validates a field delimiter for coordinate input.
// The delimiter must be a single printable rune or a tab, and may not be a
// character that can appear inside a number.
func ValidateDelimiter(delim rune) error {
	switch {
	case delim == '\t':
		return nil
	case delim == 0 || unicode.IsControl(delim):
		return New(ErrCodeInvalidArgument, "delimiter must be a printable character or tab")
	case unicode.IsDigit(delim) || strings.ContainsRune(".-+eE", delim):
		return New(ErrCodeInvalidArgument, "delimiter %q cannot be part of a number", delim)
	case delim == '"' || delim == '\r' || delim == '\n':
		return New(ErrCodeInvalidArgument, "delimiter %q is reserved", delim)
	}
	return nil
}

// ValidatePath validates a user-supplied file path.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 4096 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 4096
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	return nil
}
