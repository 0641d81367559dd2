package processor

import (
	"fmt"
	"strings"
)

// IsTruthy interprets the loosely-typed apply_effects flag. Accepts JSON
// booleans, numbers and the usual string spellings.
func IsTruthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			return true
		}
	}
	return false
}

// NullIfEmpty: para columnas nullable en pgx.
func NullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// outputObjectKey is the canonical bucket path for a finished render.
func outputObjectKey(projectID string) string {
	return fmt.Sprintf("renders/%s/video.mp4", projectID)
}
