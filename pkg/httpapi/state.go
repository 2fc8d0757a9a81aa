package httpapi

import (
	"github.com/goliatone/go-formflow/pkg/engine"
)

// State is the JSON view of a session returned by the API endpoints.
type State struct {
	ID             string              `json:"id"`
	FormID         string              `json:"form_id"`
	Status         engine.Status       `json:"status"`
	SubmissionID   string              `json:"submission_id,omitempty"`
	CurrentStep    int                 `json:"current_step"`
	TotalSteps     int                 `json:"total_steps"`
	CompletedSteps []int               `json:"completed_steps"`
	MissingSteps   []int               `json:"missing_steps"`
	Progress       int                 `json:"progress"`
	VisibleFields  []string            `json:"visible_fields"`
	Values         map[string]any      `json:"values"`
	Errors         map[string][]string `json:"errors"`
	FormErrors     []string            `json:"form_errors,omitempty"`
	PendingOptions []string            `json:"pending_options,omitempty"`
	Notice         string              `json:"notice,omitempty"`
}

func stateOf(id string, session *engine.Engine) State {
	visible := make([]string, 0)
	for _, field := range session.CurrentFields() {
		visible = append(visible, field.FieldName)
	}
	missing := session.MissingSteps()
	if missing == nil {
		missing = []int{}
	}

	return State{
		ID:             id,
		FormID:         session.Definition().ID,
		Status:         session.Status(),
		SubmissionID:   session.SubmissionID(),
		CurrentStep:    session.CurrentStep(),
		TotalSteps:     session.TotalSteps(),
		CompletedSteps: session.CompletedSteps(),
		MissingSteps:   missing,
		Progress:       session.CompletionPercentage(),
		VisibleFields:  visible,
		Values:         session.Values().Export(),
		Errors:         session.Errors(),
		PendingOptions: session.PendingOptions(),
	}
}
