package engine

import (
	"sort"

	"github.com/goliatone/go-formflow/pkg/model"
)

// FieldsForStep returns the fields owned by step, sorted by display_order.
// Ties keep schema order.
func FieldsForStep(fields []model.FormField, step model.FormStep) []model.FormField {
	var out []model.FormField
	for _, field := range fields {
		if field.FormStepID == step.ID {
			out = append(out, field)
		}
	}
	sortByDisplayOrder(out)
	return out
}

// SortSteps returns a copy of steps ordered by step_number.
func SortSteps(steps []model.FormStep) []model.FormStep {
	out := make([]model.FormStep, len(steps))
	copy(out, steps)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StepNumber < out[j].StepNumber
	})
	return out
}

func sortByDisplayOrder(fields []model.FormField) {
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].DisplayOrder < fields[j].DisplayOrder
	})
}

// implicitStep stands in for forms that declare no steps: every field
// belongs to it.
func implicitStep(def model.FormDefinition) model.FormStep {
	return model.FormStep{
		StepNumber:  1,
		Name:        def.Name,
		Description: def.Description,
	}
}
