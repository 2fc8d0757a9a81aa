package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schema/form_data.schema.json
var formDataSchema []byte

// SchemaIssue represents a validation error with optional location metadata.
type SchemaIssue struct {
	Path    string `json:"path,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// SchemaValidationResult captures validation outcomes for linting.
type SchemaValidationResult struct {
	Valid  bool          `json:"valid"`
	Issues []SchemaIssue `json:"issues,omitempty"`
}

// Merge folds other into r.
func (r SchemaValidationResult) Merge(other SchemaValidationResult) SchemaValidationResult {
	r.Issues = append(r.Issues, other.Issues...)
	r.Valid = r.Valid && other.Valid && len(r.Issues) == 0
	return r
}

var (
	compileOnce    sync.Once
	compiledSchema *gojsonschema.Schema
	compileErr     error
)

// FormDataSchema exposes the embedded JSON Schema describing form payloads.
func FormDataSchema() []byte {
	out := make([]byte, len(formDataSchema))
	copy(out, formDataSchema)
	return out
}

func loadSchema() (*gojsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiledSchema, compileErr = gojsonschema.NewSchema(gojsonschema.NewBytesLoader(formDataSchema))
	})
	return compiledSchema, compileErr
}

// ValidateDocument checks a raw JSON form payload against the embedded schema.
func ValidateDocument(raw []byte) SchemaValidationResult {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return SchemaValidationResult{Issues: []SchemaIssue{{Message: fmt.Sprintf("invalid JSON: %v", err)}}}
	}
	return validateWith(gojsonschema.NewBytesLoader(raw), doc)
}

// ValidateValue checks an already decoded document (for example a YAML
// definition decoded into maps) against the embedded schema.
func ValidateValue(doc map[string]any) SchemaValidationResult {
	return validateWith(gojsonschema.NewGoLoader(doc), doc)
}

func validateWith(loader gojsonschema.JSONLoader, doc map[string]any) SchemaValidationResult {
	schema, err := loadSchema()
	if err != nil {
		return SchemaValidationResult{Issues: []SchemaIssue{{Message: fmt.Sprintf("schema: %v", err)}}}
	}

	result, err := schema.Validate(loader)
	if err != nil {
		return SchemaValidationResult{Issues: []SchemaIssue{{Message: strings.TrimSpace(err.Error())}}}
	}
	if result.Valid() {
		return SchemaValidationResult{Valid: true}
	}

	out := SchemaValidationResult{}
	for _, resultErr := range result.Errors() {
		path := contextPath(resultErr.Field())
		out.Issues = append(out.Issues, SchemaIssue{
			Path:    path,
			Field:   fieldNameFromPath(path, doc),
			Message: resultErr.Description(),
		})
	}
	return out
}

// contextPath turns "(root).fields.0.label" into "fields.0.label".
func contextPath(ctx string) string {
	trimmed := strings.TrimPrefix(strings.TrimSpace(ctx), "(root)")
	return strings.Trim(trimmed, ".")
}

// fieldNameFromPath resolves "fields.<n>..." to the field_name at that index
// when the decoded document is available, otherwise to the index path.
func fieldNameFromPath(path string, doc map[string]any) string {
	parts := strings.Split(path, ".")
	if len(parts) < 2 || parts[0] != "fields" || !isNumeric(parts[1]) {
		return ""
	}
	if doc != nil {
		idx, _ := strconv.Atoi(parts[1])
		if fields, ok := doc["fields"].([]any); ok && idx < len(fields) {
			if entry, ok := fields[idx].(map[string]any); ok {
				if name, ok := entry["field_name"].(string); ok && name != "" {
					return name
				}
			}
		}
	}
	return parts[0] + "." + parts[1]
}

func isNumeric(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
