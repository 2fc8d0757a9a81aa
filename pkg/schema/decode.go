package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// ErrInvalidDocument wraps decode failures and strict validation issues.
var ErrInvalidDocument = errors.New("schema: invalid form document")

// ValidationError lists the issues found in strict mode.
type ValidationError struct {
	Location string
	Issues   []validation.SchemaIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		if issue.Path != "" {
			parts = append(parts, issue.Path+": "+issue.Message)
			continue
		}
		parts = append(parts, issue.Message)
	}
	return fmt.Sprintf("schema: %s: %s", e.Location, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidDocument
}

type decodeConfig struct {
	strict bool
}

// DecodeOption tunes Decode.
type DecodeOption func(*decodeConfig)

// Strict validates the payload against the embedded JSON Schema and the
// structural checks before returning it.
func Strict() DecodeOption {
	return func(cfg *decodeConfig) {
		cfg.strict = true
	}
}

// Decode turns a JSON or YAML document into FormData. Payloads wrapped in the
// backend response envelope ({"message": ..., "data": {...}}) are unwrapped.
func Decode(doc Document, options ...DecodeOption) (model.FormData, error) {
	cfg := decodeConfig{}
	for _, opt := range options {
		if opt != nil {
			opt(&cfg)
		}
	}

	generic, err := decodeGeneric(doc)
	if err != nil {
		return model.FormData{}, err
	}
	generic, wrapped := unwrapEnvelope(generic)

	if cfg.strict {
		if result := validation.ValidateValue(generic); !result.Valid {
			return model.FormData{}, &ValidationError{Location: doc.Location(), Issues: result.Issues}
		}
	}

	data, err := decodeTyped(doc, wrapped)
	if err != nil {
		return model.FormData{}, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, doc.Location(), err)
	}

	if cfg.strict {
		if result := validation.ValidateFormData(data); !result.Valid {
			return model.FormData{}, &ValidationError{Location: doc.Location(), Issues: result.Issues}
		}
	}
	return data, nil
}

// DecodeBytes is a convenience wrapper for in-memory payloads.
func DecodeBytes(name string, raw []byte, options ...DecodeOption) (model.FormData, error) {
	doc, err := NewDocument(SourceInline(name), raw)
	if err != nil {
		return model.FormData{}, err
	}
	return Decode(doc, options...)
}

func decodeGeneric(doc Document) (map[string]any, error) {
	var generic map[string]any
	switch doc.Format() {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(doc.raw))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, doc.Location(), err)
		}
		generic = normalizeNumbers(generic).(map[string]any)
	default:
		if err := yaml.Unmarshal(doc.raw, &generic); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidDocument, doc.Location(), err)
		}
	}
	if generic == nil {
		return nil, fmt.Errorf("%w: %s: expected an object", ErrInvalidDocument, doc.Location())
	}
	return generic, nil
}

// normalizeNumbers converts json.Number leaves into int64 or float64 so the
// schema validator and the model see plain Go numbers.
func normalizeNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeNumbers(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalizeNumbers(item)
		}
		return v
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		if f, err := v.Float64(); err == nil {
			return f
		}
		return v.String()
	default:
		return value
	}
}

// decodeTyped decodes straight from the payload so localized bundles keep
// their declaration order.
func decodeTyped(doc Document, wrapped bool) (model.FormData, error) {
	var data model.FormData
	switch doc.Format() {
	case FormatJSON:
		if wrapped {
			var envelope struct {
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(doc.raw, &envelope); err != nil {
				return data, err
			}
			return data, json.Unmarshal(envelope.Data, &data)
		}
		return data, json.Unmarshal(doc.raw, &data)
	default:
		if wrapped {
			var envelope struct {
				Data yaml.Node `yaml:"data"`
			}
			if err := yaml.Unmarshal(doc.raw, &envelope); err != nil {
				return data, err
			}
			return data, envelope.Data.Decode(&data)
		}
		return data, yaml.Unmarshal(doc.raw, &data)
	}
}

func unwrapEnvelope(doc map[string]any) (map[string]any, bool) {
	if _, ok := doc["form_definition"]; ok {
		return doc, false
	}
	inner, ok := doc["data"].(map[string]any)
	if !ok {
		return doc, false
	}
	if _, ok := inner["form_definition"]; ok {
		return inner, true
	}
	if _, ok := inner["fields"]; ok {
		return inner, true
	}
	return doc, false
}
