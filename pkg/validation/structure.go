package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-formflow/pkg/model"
)

var (
	structOnce     sync.Once
	structValidate *validator.Validate
)

func structValidator() *validator.Validate {
	structOnce.Do(func() {
		structValidate = validator.New(validator.WithRequiredStructEnabled())
		structValidate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return structValidate
}

// ValidateFormData checks a decoded form for structural problems that the
// engine would otherwise paper over: duplicate names, broken step numbering,
// fields pointing at unknown steps and conditions referencing unknown fields.
func ValidateFormData(data model.FormData) SchemaValidationResult {
	var issues []SchemaIssue

	if err := structValidator().Struct(data); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				issues = append(issues, SchemaIssue{
					Path:    strings.TrimPrefix(fe.Namespace(), "FormData."),
					Message: fmt.Sprintf("failed %q constraint", fe.Tag()),
				})
			}
		} else {
			issues = append(issues, SchemaIssue{Message: err.Error()})
		}
	}

	issues = append(issues, checkSteps(data)...)
	issues = append(issues, checkFields(data)...)

	return SchemaValidationResult{Valid: len(issues) == 0, Issues: issues}
}

func checkSteps(data model.FormData) []SchemaIssue {
	var issues []SchemaIssue
	numbers := make([]int, 0, len(data.Steps))
	seenID := make(map[string]struct{}, len(data.Steps))
	seenNumber := make(map[int]struct{}, len(data.Steps))

	for i, step := range data.Steps {
		path := fmt.Sprintf("steps.%d", i)
		if _, dup := seenID[step.ID]; dup && step.ID != "" {
			issues = append(issues, SchemaIssue{Path: path, Message: fmt.Sprintf("duplicate step id %q", step.ID)})
		}
		seenID[step.ID] = struct{}{}
		if _, dup := seenNumber[step.StepNumber]; dup {
			issues = append(issues, SchemaIssue{Path: path, Message: fmt.Sprintf("duplicate step_number %d", step.StepNumber)})
			continue
		}
		seenNumber[step.StepNumber] = struct{}{}
		numbers = append(numbers, step.StepNumber)
	}

	sort.Ints(numbers)
	for i, n := range numbers {
		if n != i+1 {
			issues = append(issues, SchemaIssue{Path: "steps", Message: fmt.Sprintf("step numbers must be contiguous from 1, found %d at position %d", n, i+1)})
			break
		}
	}

	if data.FormDefinition.IsMultiStep && len(data.Steps) == 0 {
		issues = append(issues, SchemaIssue{Path: "steps", Message: "multi-step form declares no steps"})
	}
	return issues
}

func checkFields(data model.FormData) []SchemaIssue {
	var issues []SchemaIssue

	stepIDs := make(map[string]struct{}, len(data.Steps))
	for _, step := range data.Steps {
		stepIDs[step.ID] = struct{}{}
	}
	names := make(map[string]struct{}, len(data.Fields))
	for _, field := range data.Fields {
		names[field.FieldName] = struct{}{}
	}

	seen := make(map[string]struct{}, len(data.Fields))
	for i, field := range data.Fields {
		path := fmt.Sprintf("fields.%d", i)
		name := field.FieldName

		if _, dup := seen[name]; dup && name != "" {
			issues = append(issues, SchemaIssue{Path: path, Field: name, Message: "duplicate field_name"})
		}
		seen[name] = struct{}{}

		if len(data.Steps) > 0 && field.FormStepID != "" {
			if _, ok := stepIDs[field.FormStepID]; !ok {
				issues = append(issues, SchemaIssue{Path: path + ".form_step_id", Field: name, Message: fmt.Sprintf("unknown step %q", field.FormStepID)})
			}
		}

		if field.FieldType.Normalize() != model.FieldType(strings.ToLower(strings.TrimSpace(string(field.FieldType)))) {
			issues = append(issues, SchemaIssue{Path: path + ".field_type", Field: name, Message: fmt.Sprintf("unknown field_type %q is treated as text", field.FieldType)})
		}

		if field.ValidationRules.Pattern != nil && compilePattern(*field.ValidationRules.Pattern) == nil {
			issues = append(issues, SchemaIssue{Path: path + ".validation_rules.pattern", Field: name, Message: "pattern does not compile"})
		}

		if logic := field.ConditionalLogic; logic != nil {
			for j, cond := range logic.Conditions {
				condPath := fmt.Sprintf("%s.conditional_logic.conditions.%d", path, j)
				if _, ok := names[cond.Field]; !ok {
					issues = append(issues, SchemaIssue{Path: condPath, Field: name, Message: fmt.Sprintf("condition references unknown field %q", cond.Field)})
				}
				switch cond.Operator {
				case model.OperatorEquals, model.OperatorNotEquals, model.OperatorIn, model.OperatorNotIn:
				default:
					issues = append(issues, SchemaIssue{Path: condPath + ".operator", Field: name, Message: fmt.Sprintf("unknown operator %q always matches", cond.Operator)})
				}
			}
		}
	}
	return issues
}
