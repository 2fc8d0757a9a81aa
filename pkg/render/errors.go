package render

import (
	"sort"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrorMapping splits a backend error payload into field-level messages keyed
// by field name and form-level messages.
type ErrorMapping struct {
	Fields map[string][]string
	Form   []string
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload assigns backend field errors to the form's fields. Keys
// are field names; an index suffix ("documents.0", "documents[1]") maps onto
// the list field itself. Form-level and unknown keys become form errors so
// messages are not lost.
func MapErrorPayload(fields []model.FormField, payload map[string][]string) ErrorMapping {
	mapping := ErrorMapping{
		Fields: make(map[string][]string),
	}
	if len(payload) == 0 {
		return mapping
	}

	known := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		if name := strings.TrimSpace(field.FieldName); name != "" {
			known[name] = struct{}{}
		}
	}

	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		messages := normalizeMessages(payload[key])
		if len(messages) == 0 {
			continue
		}
		name := fieldName(key)
		if _, ok := known[name]; !ok {
			mapping.Form = append(mapping.Form, messages...)
			continue
		}
		mapping.Fields[name] = append(mapping.Fields[name], messages...)
	}

	if len(mapping.Fields) == 0 {
		mapping.Fields = nil
	}
	mapping.Form = normalizeMessages(mapping.Form)
	return mapping
}

// fieldName strips a trailing list index from key.
func fieldName(key string) string {
	name := strings.TrimSpace(key)
	if open := strings.IndexByte(name, '['); open > 0 && strings.HasSuffix(name, "]") {
		if _, err := strconv.Atoi(name[open+1 : len(name)-1]); err == nil {
			return name[:open]
		}
	}
	if dot := strings.LastIndexByte(name, '.'); dot > 0 {
		if _, err := strconv.Atoi(name[dot+1:]); err == nil {
			return name[:dot]
		}
	}
	return name
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
