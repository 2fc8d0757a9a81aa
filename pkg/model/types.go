package model

import "strings"

// FieldType is the closed set of input kinds a form field can declare.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeEmail    FieldType = "email"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeFile     FieldType = "file"
	FieldTypeFiles    FieldType = "files"
	FieldTypeNumber   FieldType = "number"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeDate     FieldType = "date"
)

// Normalize maps unknown or differently cased kinds onto the closed set.
// Anything unrecognised is treated as plain text.
func (t FieldType) Normalize() FieldType {
	switch FieldType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case FieldTypeText:
		return FieldTypeText
	case FieldTypeEmail:
		return FieldTypeEmail
	case FieldTypeTextarea:
		return FieldTypeTextarea
	case FieldTypeSelect:
		return FieldTypeSelect
	case FieldTypeRadio:
		return FieldTypeRadio
	case FieldTypeCheckbox:
		return FieldTypeCheckbox
	case FieldTypeFile:
		return FieldTypeFile
	case FieldTypeFiles:
		return FieldTypeFiles
	case FieldTypeNumber:
		return FieldTypeNumber
	case FieldTypeCurrency:
		return FieldTypeCurrency
	case FieldTypeDate:
		return FieldTypeDate
	default:
		return FieldTypeText
	}
}

// IsFile reports whether the kind collects uploads.
func (t FieldType) IsFile() bool {
	n := t.Normalize()
	return n == FieldTypeFile || n == FieldTypeFiles
}

// IsNumeric reports whether the kind holds a number.
func (t FieldType) IsNumeric() bool {
	n := t.Normalize()
	return n == FieldTypeNumber || n == FieldTypeCurrency
}

// IsChoice reports whether the kind selects from FieldOptions.
func (t FieldType) IsChoice() bool {
	switch t.Normalize() {
	case FieldTypeSelect, FieldTypeRadio, FieldTypeCheckbox:
		return true
	default:
		return false
	}
}

// FormDefinition carries form-level metadata.
type FormDefinition struct {
	ID                        string `json:"id" yaml:"id" validate:"required"`
	Name                      string `json:"name" yaml:"name"`
	Slug                      string `json:"slug,omitempty" yaml:"slug,omitempty"`
	Description               string `json:"description,omitempty" yaml:"description,omitempty"`
	FormType                  string `json:"form_type,omitempty" yaml:"form_type,omitempty"`
	Version                   int    `json:"version,omitempty" yaml:"version,omitempty"`
	IsMultiStep               bool   `json:"is_multi_step" yaml:"is_multi_step"`
	RequiresApproval          bool   `json:"requires_approval" yaml:"requires_approval"`
	IsEditableAfterSubmission bool   `json:"is_editable_after_submission" yaml:"is_editable_after_submission"`
}

// FormStep is one page of a multi-step form. StepNumber is 1-based and
// defines the only navigation order.
type FormStep struct {
	ID          string `json:"id" yaml:"id" validate:"required"`
	StepNumber  int    `json:"step_number" yaml:"step_number" validate:"gte=1"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	IsOptional  bool   `json:"is_optional" yaml:"is_optional"`
}

// FormField describes a single input.
type FormField struct {
	ID               string            `json:"id" yaml:"id"`
	FormStepID       string            `json:"form_step_id,omitempty" yaml:"form_step_id,omitempty"`
	FieldName        string            `json:"field_name" yaml:"field_name" validate:"required"`
	FieldType        FieldType         `json:"field_type" yaml:"field_type"`
	Label            I18nText          `json:"label" yaml:"label"`
	Placeholder      I18nText          `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	HelpText         I18nText          `json:"help_text,omitempty" yaml:"help_text,omitempty"`
	ValidationRules  ValidationRules   `json:"validation_rules" yaml:"validation_rules"`
	Options          *FieldOptions     `json:"options,omitempty" yaml:"options,omitempty"`
	DisplayOrder     int               `json:"display_order" yaml:"display_order"`
	IsRequired       bool              `json:"is_required" yaml:"is_required"`
	IsReadonly       bool              `json:"is_readonly" yaml:"is_readonly"`
	DefaultValue     string            `json:"default_value,omitempty" yaml:"default_value,omitempty"`
	ConditionalLogic *ConditionalLogic `json:"conditional_logic,omitempty" yaml:"conditional_logic,omitempty"`
	FileConfig       *FileConfig       `json:"file_config,omitempty" yaml:"file_config,omitempty"`
}

// Type returns the normalised field kind.
func (f FormField) Type() FieldType {
	return f.FieldType.Normalize()
}

// StaticOptions returns the statically declared choices, if any.
func (f FormField) StaticOptions() []Option {
	if f.Options == nil {
		return nil
	}
	return f.Options.Static
}

// ValidationRules are client-side constraints. Pointer members distinguish
// "unset" from a zero bound.
type ValidationRules struct {
	Required    bool           `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength   *int           `json:"min_length,omitempty" yaml:"min_length,omitempty"`
	MaxLength   *int           `json:"max_length,omitempty" yaml:"max_length,omitempty"`
	Pattern     *string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Min         *float64       `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64       `json:"max,omitempty" yaml:"max,omitempty"`
	Email       bool           `json:"email,omitempty" yaml:"email,omitempty"`
	MinItems    *int           `json:"min_items,omitempty" yaml:"min_items,omitempty"`
	MaxItems    *int           `json:"max_items,omitempty" yaml:"max_items,omitempty"`
	AllRequired bool           `json:"all_required,omitempty" yaml:"all_required,omitempty"`
	CustomRules map[string]any `json:"custom_rules,omitempty" yaml:"custom_rules,omitempty"`
}

// FieldOptions lists the choices offered by select, radio and checkbox fields.
type FieldOptions struct {
	Type    string         `json:"type,omitempty" yaml:"type,omitempty"`
	Static  []Option       `json:"static,omitempty" yaml:"static,omitempty"`
	Dynamic *DynamicSource `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
}

// Option is a single choice.
type Option struct {
	Value string   `json:"value" yaml:"value"`
	Label I18nText `json:"label" yaml:"label"`
}

// DynamicSource names a remote option list. FilterParams values may reference
// other fields with {{field_name}} tokens.
type DynamicSource struct {
	SourceID     string            `json:"source_id,omitempty" yaml:"source_id,omitempty"`
	SourceName   string            `json:"source_name" yaml:"source_name"`
	FilterParams map[string]string `json:"filter_params,omitempty" yaml:"filter_params,omitempty"`
}

// Conditional logic actions and combinators.
const (
	ActionShow = "show"
	ActionHide = "hide"

	LogicAll = "all"
	LogicAny = "any"
)

// Condition operators.
const (
	OperatorEquals    = "equals"
	OperatorNotEquals = "not_equals"
	OperatorIn        = "in"
	OperatorNotIn     = "not_in"
)

// ConditionalLogic decides field visibility from other field values.
type ConditionalLogic struct {
	Action     string      `json:"action" yaml:"action"`
	Logic      string      `json:"logic" yaml:"logic"`
	Conditions []Condition `json:"conditions" yaml:"conditions"`
}

// Condition compares the current value of Field against Value.
type Condition struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
}

// FileConfig constrains uploads for file and files fields.
type FileConfig struct {
	MaxSize      int64    `json:"max_size,omitempty" yaml:"max_size,omitempty"`
	AllowedTypes []string `json:"allowed_types,omitempty" yaml:"allowed_types,omitempty"`
	MaxFiles     int      `json:"max_files,omitempty" yaml:"max_files,omitempty"`
}

// FormData is everything needed to start a session.
type FormData struct {
	FormDefinition       FormDefinition `json:"form_definition" yaml:"form_definition"`
	Steps                []FormStep     `json:"steps" yaml:"steps" validate:"dive"`
	Fields               []FormField    `json:"fields" yaml:"fields" validate:"dive"`
	ExistingData         map[string]any `json:"existing_data,omitempty" yaml:"existing_data,omitempty"`
	SubmissionID         string         `json:"submission_id,omitempty" yaml:"submission_id,omitempty"`
	StepProgress         []StepProgress `json:"step_progress,omitempty" yaml:"step_progress,omitempty"`
	CurrentStep          int            `json:"current_step" yaml:"current_step"`
	CompletionPercentage int            `json:"completion_percentage" yaml:"completion_percentage"`
}

// Step progress statuses recorded by the backend.
const (
	StepStatusInProgress = "in_progress"
	StepStatusCompleted  = "completed"
)

// StepProgress is the backend's record of a step saved in an earlier session.
type StepProgress struct {
	FormStepID string `json:"form_step_id,omitempty" yaml:"form_step_id,omitempty"`
	StepNumber int    `json:"step_number" yaml:"step_number"`
	Status     string `json:"status" yaml:"status"`
}

// Field returns the field with the given name.
func (d FormData) Field(name string) (FormField, bool) {
	for _, field := range d.Fields {
		if field.FieldName == name {
			return field, true
		}
	}
	return FormField{}, false
}
