package render

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
)

// View is a renderer-neutral snapshot of a session: everything a template or
// a terminal driver needs to draw the current step.
type View struct {
	FormID         string
	Title          string
	Description    string
	Locale         string
	Status         string
	SubmissionID   string
	Action         string
	Method         string
	MethodOverride string

	Steps       []StepView
	CurrentStep int
	TotalSteps  int
	IsMultiStep bool
	IsFirstStep bool
	IsLastStep  bool
	Progress    int

	StepTitle       string
	StepDescription string

	Fields     []FieldView
	FormErrors []string
	Notice     string
	Hidden     []HiddenField

	// Labels holds translated chrome captions keyed by short name: next,
	// back, draft, submit, counter, progress, loading, remove, select.
	Labels map[string]string
}

// StepView describes one entry of the step navigation.
type StepView struct {
	Number      int
	Name        string
	Description string
	Optional    bool
	Current     bool
	Completed   bool
	Clickable   bool
}

// FieldView describes one visible control of the current step.
type FieldView struct {
	Name        string
	ID          string
	Type        string
	Label       string
	Placeholder string
	HelpText    string
	Required    bool
	Readonly    bool

	// Value is the scalar representation; Values lists selections for
	// checkbox groups.
	Value  string
	Values []string

	Options        []OptionView
	OptionsPending bool

	Errors []string

	Files    []model.FileDescriptor
	Pending  []string
	Multiple bool
	Accept   string
	MaxSize  int64
	MaxFiles int

	Min       string
	Max       string
	MinLength int
	MaxLength int
	Pattern   string
}

// OptionView is one localized choice.
type OptionView struct {
	Value    string
	Label    string
	Selected bool
}

// BuildView projects session into a View for the given options.
func BuildView(session *engine.Engine, opts RenderOptions) View {
	locale := strings.TrimSpace(opts.Locale)
	if locale == "" {
		locale = session.Locale()
		opts.Locale = locale
	}
	def := session.Definition()

	method := strings.ToUpper(strings.TrimSpace(opts.Method))
	if method == "" {
		method = http.MethodPost
	}
	override := ""
	if method != http.MethodGet && method != http.MethodPost {
		override = method
		method = http.MethodPost
	}

	view := View{
		FormID:         def.ID,
		Title:          def.Name,
		Description:    def.Description,
		Locale:         locale,
		Status:         string(session.Status()),
		SubmissionID:   session.SubmissionID(),
		Action:         opts.Action,
		Method:         method,
		MethodOverride: override,
		CurrentStep:    session.CurrentStep(),
		TotalSteps:     session.TotalSteps(),
		IsMultiStep:    session.IsMultiStep(),
		IsFirstStep:    session.IsFirstStep(),
		IsLastStep:     session.IsLastStep(),
		Progress:       session.CompletionPercentage(),
		FormErrors:     MergeFormErrors(opts.FormErrors),
		Notice:         strings.TrimSpace(opts.Notice),
	}

	hidden := opts.HiddenFields
	if override != "" {
		hidden = MergeHiddenFields(hidden, Hidden("_method", override))
	}
	view.Hidden = SortedHiddenFields(hidden)

	for _, step := range session.Steps() {
		view.Steps = append(view.Steps, StepView{
			Number:      step.StepNumber,
			Name:        step.Name,
			Description: step.Description,
			Optional:    step.IsOptional,
			Current:     step.StepNumber == view.CurrentStep,
			Completed:   session.IsCompleted(step.StepNumber),
			Clickable:   session.CanNavigateTo(step.StepNumber),
		})
		if step.StepNumber == view.CurrentStep {
			view.StepTitle = step.Name
			view.StepDescription = step.Description
		}
	}

	for _, field := range session.CurrentFields() {
		view.Fields = append(view.Fields, buildFieldView(session, field, opts))
	}

	view.Labels = map[string]string{
		"next":     Chrome(opts, KeyNext),
		"back":     Chrome(opts, KeyBack),
		"draft":    Chrome(opts, KeySaveDraft),
		"submit":   Chrome(opts, KeySubmit),
		"counter":  Chrome(opts, KeyStepCounter, view.CurrentStep, view.TotalSteps),
		"progress": Chrome(opts, KeyProgress, view.Progress),
		"loading":  Chrome(opts, KeyLoading),
		"remove":   Chrome(opts, KeyRemoveFile),
		"select":   Chrome(opts, KeySelectOne),
		"required": Chrome(opts, KeyRequired),
	}
	switch session.Status() {
	case engine.StatusSubmitted:
		view.Labels["status"] = Chrome(opts, KeySubmitted)
	case engine.StatusDraftSaved:
		view.Labels["status"] = Chrome(opts, KeyDraftSaved)
	}
	return view
}

func buildFieldView(session *engine.Engine, field model.FormField, opts RenderOptions) FieldView {
	kind := field.Type()
	value, _ := session.Value(field.FieldName)

	fv := FieldView{
		Name:        field.FieldName,
		ID:          "field-" + field.FieldName,
		Type:        string(kind),
		Label:       model.Localize(field.Label, opts.Locale),
		Placeholder: model.Localize(field.Placeholder, opts.Locale),
		HelpText:    model.Localize(field.HelpText, opts.Locale),
		Required:    field.IsRequired,
		Readonly:    field.IsReadonly,
		Errors:      MergeFormErrors(session.FieldErrors(field.FieldName), opts.Errors[field.FieldName]...),
	}
	if fv.Label == "" {
		fv.Label = field.FieldName
	}

	rules := field.ValidationRules
	if rules.Min != nil {
		fv.Min = strconv.FormatFloat(*rules.Min, 'f', -1, 64)
	}
	if rules.Max != nil {
		fv.Max = strconv.FormatFloat(*rules.Max, 'f', -1, 64)
	}
	if rules.MinLength != nil {
		fv.MinLength = *rules.MinLength
	}
	if rules.MaxLength != nil {
		fv.MaxLength = *rules.MaxLength
	}
	if rules.Pattern != nil {
		fv.Pattern = *rules.Pattern
	}

	switch {
	case kind.IsFile():
		fv.Files = session.ExistingFiles(field.FieldName)
		for _, file := range session.PendingFiles(field.FieldName) {
			fv.Pending = append(fv.Pending, file.Name)
		}
		fv.Multiple = kind == model.FieldTypeFiles
		if cfg := field.FileConfig; cfg != nil {
			fv.Accept = strings.Join(cfg.AllowedTypes, ",")
			fv.MaxSize = cfg.MaxSize
			fv.MaxFiles = cfg.MaxFiles
		}
	case kind.IsChoice():
		selected := selections(value)
		fv.Values = selected
		if len(selected) > 0 && kind != model.FieldTypeCheckbox {
			fv.Value = selected[0]
		}
		options, ok := session.Options(field.FieldName)
		fv.OptionsPending = !ok
		chosen := make(map[string]struct{}, len(selected))
		for _, s := range selected {
			chosen[s] = struct{}{}
		}
		for _, option := range options {
			_, isSelected := chosen[option.Value]
			label := model.Localize(option.Label, opts.Locale)
			if label == "" {
				label = option.Value
			}
			fv.Options = append(fv.Options, OptionView{Value: option.Value, Label: label, Selected: isSelected})
		}
	default:
		fv.Value = ValueString(value)
	}
	return fv
}

func selections(value any) []string {
	switch typed := value.(type) {
	case nil:
		return nil
	case []string:
		return append([]string(nil), typed...)
	case []any:
		out := make([]string, 0, len(typed))
		for _, item := range typed {
			if item != nil {
				out = append(out, ValueString(item))
			}
		}
		return out
	default:
		if s := ValueString(value); s != "" {
			return []string{s}
		}
		return nil
	}
}

// ValueString renders a snapshot value the way an input control shows it.
func ValueString(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case bool:
		return strconv.FormatBool(typed)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case json.Number:
		return typed.String()
	case fmt.Stringer:
		return typed.String()
	}
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value)
	}
	return string(encoded)
}
