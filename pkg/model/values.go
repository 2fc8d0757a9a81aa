package model

import (
	"encoding/json"
	"strings"
)

// Values is the value snapshot of a session, keyed by field name.
type Values map[string]any

// Clone returns a shallow copy. Lists are copied so callers cannot mutate
// the original through them.
func (v Values) Clone() Values {
	if v == nil {
		return Values{}
	}
	out := make(Values, len(v))
	for key, value := range v {
		out[key] = cloneValue(value)
	}
	return out
}

func cloneValue(value any) any {
	switch typed := value.(type) {
	case []any:
		out := make([]any, len(typed))
		copy(out, typed)
		return out
	case []string:
		out := make([]string, len(typed))
		copy(out, typed)
		return out
	case []FileDescriptor:
		out := make([]FileDescriptor, len(typed))
		copy(out, typed)
		return out
	case []LocalFile:
		out := make([]LocalFile, len(typed))
		copy(out, typed)
		return out
	default:
		return value
	}
}

// ParseDefaultValue interprets a field's default_value: JSON when it decodes,
// otherwise the literal string. Empty defaults report false.
func ParseDefaultValue(raw string) (any, bool) {
	if raw == "" {
		return nil, false
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err == nil {
		return decoded, true
	}
	return raw, true
}

// SeedValues builds the initial snapshot: parsed defaults first, then any
// existing submission data on top.
func SeedValues(fields []FormField, existing map[string]any) Values {
	values := make(Values, len(fields)+len(existing))
	for _, field := range fields {
		name := strings.TrimSpace(field.FieldName)
		if name == "" {
			continue
		}
		if value, ok := ParseDefaultValue(field.DefaultValue); ok {
			values[name] = value
		}
	}
	for key, value := range existing {
		values[key] = value
	}
	return values
}

// IsEmpty reports whether a value counts as "not provided": nil, a blank
// string or an empty list.
func IsEmpty(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	case []string:
		return len(typed) == 0
	case []FileDescriptor:
		return len(typed) == 0
	case []LocalFile:
		return len(typed) == 0
	default:
		return false
	}
}

// Export converts the snapshot into plain data for serialization. Pending
// uploads are reported by file name and stored files as id/name/url maps.
func (v Values) Export() map[string]any {
	out := make(map[string]any, len(v))
	for name, value := range v {
		out[name] = exportValue(value)
	}
	return out
}

func exportValue(value any) any {
	switch typed := value.(type) {
	case LocalFile:
		return typed.Name
	case []LocalFile:
		names := make([]any, 0, len(typed))
		for _, file := range typed {
			names = append(names, file.Name)
		}
		return names
	case FileDescriptor:
		return descriptorMap(typed)
	case []FileDescriptor:
		out := make([]any, 0, len(typed))
		for _, descriptor := range typed {
			out = append(out, descriptorMap(descriptor))
		}
		return out
	case []string:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, item)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, exportValue(item))
		}
		return out
	default:
		return value
	}
}

func descriptorMap(descriptor FileDescriptor) map[string]any {
	out := map[string]any{"id": descriptor.ID, "name": descriptor.Name}
	if descriptor.URL != "" {
		out["url"] = descriptor.URL
	}
	return out
}
