package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultLocale is used when no locale is requested and as the first fallback.
const DefaultLocale = "en"

// LocalizedString is one locale entry of an I18nText bundle.
type LocalizedString struct {
	Locale string
	Text   string
}

// I18nText is a locale → text bundle that remembers declaration order.
//
// On the wire it is a JSON object ({"en": "Name", "fr": "Nom"}); a bare
// string is accepted as the English text.
type I18nText []LocalizedString

// Text builds a bundle from alternating locale/text pairs. A trailing locale
// without text is ignored.
func Text(pairs ...string) I18nText {
	out := make(I18nText, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = out.With(pairs[i], pairs[i+1])
	}
	return out
}

// PlainText wraps s as the English entry.
func PlainText(s string) I18nText {
	return I18nText{{Locale: DefaultLocale, Text: s}}
}

// Get returns the text for an exact locale.
func (t I18nText) Get(locale string) (string, bool) {
	for _, entry := range t {
		if entry.Locale == locale {
			return entry.Text, true
		}
	}
	return "", false
}

// With returns a copy with locale set to text. Existing locales keep their
// position; new ones are appended.
func (t I18nText) With(locale, text string) I18nText {
	out := make(I18nText, len(t), len(t)+1)
	copy(out, t)
	for i := range out {
		if out[i].Locale == locale {
			out[i].Text = text
			return out
		}
	}
	return append(out, LocalizedString{Locale: locale, Text: text})
}

// Resolve returns the text for locale, then English, then the first declared
// entry, then "". Empty entries fall through. An empty locale means English.
func (t I18nText) Resolve(locale string) string {
	return Localize(t, locale)
}

// IsEmpty reports whether the bundle has no entries.
func (t I18nText) IsEmpty() bool {
	return len(t) == 0
}

// Map returns the bundle as a plain map, losing order.
func (t I18nText) Map() map[string]string {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]string, len(t))
	for _, entry := range t {
		out[entry.Locale] = entry.Text
	}
	return out
}

// Localize resolves bundle for locale. It never fails.
func Localize(bundle I18nText, locale string) string {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		locale = DefaultLocale
	}
	if text, ok := bundle.Get(locale); ok && text != "" {
		return text
	}
	if text, ok := bundle.Get(DefaultLocale); ok && text != "" {
		return text
	}
	if len(bundle) > 0 {
		return bundle[0].Text
	}
	return ""
}

// MarshalJSON encodes the bundle as an object, preserving order.
func (t I18nText) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, entry := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(entry.Locale)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(entry.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object (keeping key order), a bare string or null.
func (t *I18nText) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*t = nil
		return nil
	}
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("model: decode i18n text: %w", err)
		}
		*t = PlainText(s)
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("model: decode i18n text: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.New("model: i18n text must be an object or string")
	}

	out := I18nText{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("model: decode i18n text: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return errors.New("model: i18n text key must be a string")
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("model: decode i18n text %q: %w", key, err)
		}
		out = out.With(key, stringify(raw))
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("model: decode i18n text: %w", err)
	}
	*t = out
	return nil
}

// UnmarshalYAML decodes a mapping (keeping key order) or a scalar.
func (t *I18nText) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" {
			*t = nil
			return nil
		}
		*t = PlainText(node.Value)
		return nil
	case yaml.MappingNode:
		out := make(I18nText, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			out = out.With(node.Content[i].Value, node.Content[i+1].Value)
		}
		*t = out
		return nil
	default:
		return fmt.Errorf("model: i18n text must be a mapping or scalar (line %d)", node.Line)
	}
}

// MarshalYAML encodes the bundle as an ordered mapping.
func (t I18nText) MarshalYAML() (any, error) {
	if t == nil {
		return nil, nil
	}
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, entry := range t {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry.Locale},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: entry.Text},
		)
	}
	return node, nil
}

func stringify(v any) string {
	switch typed := v.(type) {
	case nil:
		return ""
	case string:
		return typed
	default:
		return fmt.Sprint(typed)
	}
}
