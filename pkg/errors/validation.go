package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateIdentifier validates an opaque identifier (user or letter id) for
// safety. Identifiers end up in file names, cache keys and database rows, so
// the rules reject anything usable for path traversal or injection:
//   - No empty identifiers
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateIdentifier(kind, id string) error {
	if id == "" {
		return New(ErrCodeInvalidInput, "%s cannot be empty", kind)
	}

	if len(id) > 128 {
		return New(ErrCodeInvalidInput, "%s too long (max 128 characters)", kind)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "%s contains invalid control characters", kind)
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(id, pattern) {
			return New(ErrCodeInvalidInput, "%s contains invalid characters: %q", kind, pattern)
		}
	}

	return nil
}

// previewNameRegex matches "{letter_id}-{page_index}.png".
var previewNameRegex = regexp.MustCompile(`^([A-Za-z0-9_-]+)-([0-9]+)\.png$`)

// ValidatePreviewName validates a preview image file name and returns the
// letter id it belongs to.
func ValidatePreviewName(name string) (string, error) {
	if name == "" {
		return "", New(ErrCodeInvalidPath, "preview name cannot be empty")
	}
	m := previewNameRegex.FindStringSubmatch(name)
	if m == nil {
		return "", New(ErrCodeInvalidPath, "invalid preview name: %q", name)
	}
	id := m[1]
	if err := ValidateIdentifier("letter id", id); err != nil {
		return "", err
	}
	return id, nil
}

// ValidateBackgroundKey validates a background registry key. Keys are plain
// file names inside the background directory.
func ValidateBackgroundKey(key string) error {
	if key == "" {
		return New(ErrCodeInvalidInput, "background cannot be empty")
	}
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return New(ErrCodeInvalidPath, "background cannot contain path components: %q", key)
	}
	if strings.HasPrefix(key, ".") {
		return New(ErrCodeInvalidPath, "background cannot be a hidden file: %q", key)
	}
	return nil
}
