// Package masking redacts customer contact data before it is written to audit rows.
package masking

import "strings"

const maskToken = "****"

// MaskEmail keeps the first character of the local part and the domain.
func MaskEmail(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	at := strings.LastIndex(trimmed, "@")
	if at <= 0 {
		return MaskTail(trimmed)
	}
	return trimmed[:1] + maskToken + trimmed[at:]
}

// MaskTail keeps the last four characters, e.g. phone numbers.
func MaskTail(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if len(trimmed) <= 4 {
		return maskToken
	}
	return maskToken + trimmed[len(trimmed)-4:]
}

var sensitiveKeys = map[string]func(string) string{
	"email":     MaskEmail,
	"to":        MaskEmail,
	"recipient": MaskEmail,
	"phone":     MaskTail,
	"address":   func(string) string { return maskToken },
}

// MaskMetadata returns a copy of input with contact fields masked at any depth.
func MaskMetadata(input map[string]any) map[string]any {
	if len(input) == 0 {
		return nil
	}

	masked := make(map[string]any, len(input))
	for key, value := range input {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" {
			continue
		}
		masked[trimmedKey] = maskValue(trimmedKey, value)
	}
	if len(masked) == 0 {
		return nil
	}
	return masked
}

func maskValue(key string, value any) any {
	switch cast := value.(type) {
	case string:
		if fn, ok := sensitiveKeys[strings.ToLower(key)]; ok {
			return fn(cast)
		}
		return cast
	case map[string]any:
		return MaskMetadata(cast)
	case []any:
		out := make([]any, 0, len(cast))
		for _, item := range cast {
			out = append(out, maskValue(key, item))
		}
		return out
	default:
		return value
	}
}
