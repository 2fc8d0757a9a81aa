// Package jsonview renders a session as a JSON document for client-side
// applications that draw the form themselves and post answers back.
package jsonview

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

// Option customises the renderer configuration.
type Option func(*Renderer)

// WithIndent pretty prints the document with the given indent.
func WithIndent(indent string) Option {
	return func(r *Renderer) {
		r.indent = indent
	}
}

// Renderer turns a session into a hydration payload.
type Renderer struct {
	indent string
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs a JSON view renderer.
func New(options ...Option) *Renderer {
	r := &Renderer{}
	for _, opt := range options {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Name identifies the renderer inside the registry.
func (r *Renderer) Name() string {
	return "json"
}

// ContentType returns the MIME type for generated documents.
func (r *Renderer) ContentType() string {
	return "application/json"
}

// Render serializes the view of the current step.
func (r *Renderer) Render(_ context.Context, session *engine.Engine, options render.RenderOptions) ([]byte, error) {
	if session == nil {
		return nil, fmt.Errorf("json renderer: session is nil")
	}

	doc := toDocument(render.BuildView(session, options))
	doc.MissingSteps = session.MissingSteps()
	doc.PendingOptions = session.PendingOptions()

	var (
		payload []byte
		err     error
	)
	if r.indent != "" {
		payload, err = json.MarshalIndent(doc, "", r.indent)
	} else {
		payload, err = json.Marshal(doc)
	}
	if err != nil {
		return nil, fmt.Errorf("json renderer: marshal view: %w", err)
	}
	return payload, nil
}

type document struct {
	FormID          string            `json:"formId"`
	Title           string            `json:"title"`
	Description     string            `json:"description,omitempty"`
	Locale          string            `json:"locale"`
	Status          string            `json:"status"`
	SubmissionID    string            `json:"submissionId,omitempty"`
	Action          string            `json:"action,omitempty"`
	Method          string            `json:"method"`
	CurrentStep     int               `json:"currentStep"`
	TotalSteps      int               `json:"totalSteps"`
	IsMultiStep     bool              `json:"isMultiStep"`
	IsFirstStep     bool              `json:"isFirstStep"`
	IsLastStep      bool              `json:"isLastStep"`
	Progress        int               `json:"progress"`
	StepTitle       string            `json:"stepTitle,omitempty"`
	StepDescription string            `json:"stepDescription,omitempty"`
	Steps           []step            `json:"steps"`
	Fields          []field           `json:"fields"`
	FormErrors      []string          `json:"formErrors,omitempty"`
	Notice          string            `json:"notice,omitempty"`
	Hidden          map[string]string `json:"hidden,omitempty"`
	Labels          map[string]string `json:"labels"`
	MissingSteps    []int             `json:"missingSteps,omitempty"`
	PendingOptions  []string          `json:"pendingOptions,omitempty"`
}

type step struct {
	Number      int    `json:"number"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Optional    bool   `json:"optional,omitempty"`
	Current     bool   `json:"current,omitempty"`
	Completed   bool   `json:"completed,omitempty"`
	Clickable   bool   `json:"clickable"`
}

type field struct {
	Name           string                 `json:"name"`
	Type           string                 `json:"type"`
	Label          string                 `json:"label"`
	Placeholder    string                 `json:"placeholder,omitempty"`
	HelpText       string                 `json:"helpText,omitempty"`
	Required       bool                   `json:"required"`
	Readonly       bool                   `json:"readonly,omitempty"`
	Value          string                 `json:"value,omitempty"`
	Values         []string               `json:"values,omitempty"`
	Options        []option               `json:"options,omitempty"`
	OptionsPending bool                   `json:"optionsPending,omitempty"`
	Errors         []string               `json:"errors,omitempty"`
	Files          []model.FileDescriptor `json:"files,omitempty"`
	Pending        []string               `json:"pending,omitempty"`
	Upload         *upload                `json:"upload,omitempty"`
	Constraints    *constraints           `json:"constraints,omitempty"`
}

type option struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Selected bool   `json:"selected,omitempty"`
}

type upload struct {
	Multiple bool   `json:"multiple"`
	Accept   string `json:"accept,omitempty"`
	MaxSize  int64  `json:"maxSize,omitempty"`
	MaxFiles int    `json:"maxFiles,omitempty"`
}

type constraints struct {
	Min       string `json:"min,omitempty"`
	Max       string `json:"max,omitempty"`
	MinLength int    `json:"minLength,omitempty"`
	MaxLength int    `json:"maxLength,omitempty"`
	Pattern   string `json:"pattern,omitempty"`
}

func toDocument(view render.View) document {
	doc := document{
		FormID:          view.FormID,
		Title:           view.Title,
		Description:     view.Description,
		Locale:          view.Locale,
		Status:          view.Status,
		SubmissionID:    view.SubmissionID,
		Action:          view.Action,
		Method:          view.Method,
		CurrentStep:     view.CurrentStep,
		TotalSteps:      view.TotalSteps,
		IsMultiStep:     view.IsMultiStep,
		IsFirstStep:     view.IsFirstStep,
		IsLastStep:      view.IsLastStep,
		Progress:        view.Progress,
		StepTitle:       view.StepTitle,
		StepDescription: view.StepDescription,
		FormErrors:      view.FormErrors,
		Notice:          view.Notice,
		Labels:          view.Labels,
		Steps:           make([]step, 0, len(view.Steps)),
		Fields:          make([]field, 0, len(view.Fields)),
	}
	if view.MethodOverride != "" {
		doc.Method = view.MethodOverride
	}
	if len(view.Hidden) > 0 {
		doc.Hidden = make(map[string]string, len(view.Hidden))
		for _, hidden := range view.Hidden {
			if hidden.Name == "_method" {
				continue
			}
			doc.Hidden[hidden.Name] = hidden.Value
		}
	}

	for _, s := range view.Steps {
		doc.Steps = append(doc.Steps, step{
			Number:      s.Number,
			Name:        s.Name,
			Description: s.Description,
			Optional:    s.Optional,
			Current:     s.Current,
			Completed:   s.Completed,
			Clickable:   s.Clickable,
		})
	}
	for _, f := range view.Fields {
		doc.Fields = append(doc.Fields, toField(f))
	}
	return doc
}

func toField(f render.FieldView) field {
	out := field{
		Name:           f.Name,
		Type:           f.Type,
		Label:          f.Label,
		Placeholder:    f.Placeholder,
		HelpText:       f.HelpText,
		Required:       f.Required,
		Readonly:       f.Readonly,
		Value:          f.Value,
		Values:         f.Values,
		OptionsPending: f.OptionsPending,
		Errors:         f.Errors,
		Files:          f.Files,
		Pending:        f.Pending,
	}
	for _, o := range f.Options {
		out.Options = append(out.Options, option{Value: o.Value, Label: o.Label, Selected: o.Selected})
	}
	if model.FieldType(f.Type).IsFile() {
		out.Upload = &upload{Multiple: f.Multiple, Accept: f.Accept, MaxSize: f.MaxSize, MaxFiles: f.MaxFiles}
	}
	c := constraints{Min: f.Min, Max: f.Max, MinLength: f.MinLength, MaxLength: f.MaxLength, Pattern: f.Pattern}
	if c != (constraints{}) {
		out.Constraints = &c
	}
	return out
}
