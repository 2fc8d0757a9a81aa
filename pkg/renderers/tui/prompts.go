package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/validation"
)

const skipOption = "(none)"

// promptStep asks every visible field of the current step once. The view is
// rebuilt after each answer so fields revealed by conditional logic are
// picked up and fields that became hidden are skipped.
func (r *Renderer) promptStep(ctx context.Context, session *engine.Engine, opts render.RenderOptions) error {
	if err := session.ResolveOptions(ctx); err != nil {
		if infoErr := r.errorf(ctx, "%s", engine.UserMessage(err)); infoErr != nil {
			return infoErr
		}
	}

	view := render.BuildView(session, opts)
	if err := r.printHeader(ctx, view); err != nil {
		return err
	}

	asked := make(map[string]struct{})
	for {
		field, ok := nextField(view, asked)
		if !ok {
			return nil
		}
		asked[field.Name] = struct{}{}

		definition, _ := session.Field(field.Name)
		if err := r.promptField(ctx, session, definition, field, opts); err != nil {
			return err
		}

		if len(session.DependentOptionFields(field.Name)) > 0 {
			if err := session.ResolveOptions(ctx); err != nil {
				if infoErr := r.errorf(ctx, "%s", engine.UserMessage(err)); infoErr != nil {
					return infoErr
				}
			}
		}
		view = render.BuildView(session, opts)
	}
}

func nextField(view render.View, asked map[string]struct{}) (render.FieldView, bool) {
	for _, field := range view.Fields {
		if _, done := asked[field.Name]; !done {
			return field, true
		}
	}
	return render.FieldView{}, false
}

func (r *Renderer) printHeader(ctx context.Context, view render.View) error {
	var lines []string
	if view.Title != "" {
		lines = append(lines, view.Title)
	}
	if view.IsMultiStep {
		header := view.Labels["counter"]
		if view.StepTitle != "" {
			header += ": " + view.StepTitle
		}
		lines = append(lines, header)
	}
	if view.StepDescription != "" {
		lines = append(lines, view.StepDescription)
	}
	for _, line := range lines {
		if err := r.info(ctx, line); err != nil {
			return err
		}
	}
	for _, message := range view.FormErrors {
		if err := r.errorf(ctx, "%s", message); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptField(ctx context.Context, session *engine.Engine, definition model.FormField, field render.FieldView, opts render.RenderOptions) error {
	if field.Readonly {
		return r.info(ctx, fmt.Sprintf("%s: %s", field.Label, readonlyValue(field)))
	}

	for _, message := range field.Errors {
		if err := r.errorf(ctx, "%s: %s", field.Label, message); err != nil {
			return err
		}
	}

	kind := definition.Type()
	switch {
	case kind.IsFile():
		return r.promptFiles(ctx, session, definition, field)
	case kind == model.FieldTypeCheckbox && !field.OptionsPending:
		return r.promptCheckbox(ctx, session, definition, field)
	case kind.IsChoice() && !field.OptionsPending:
		return r.promptChoice(ctx, session, definition, field)
	case kind.IsChoice():
		if err := r.info(ctx, fmt.Sprintf("%s: %s", field.Label, render.Chrome(opts, render.KeyLoading))); err != nil {
			return err
		}
		return r.promptText(ctx, session, definition, field)
	case kind == model.FieldTypeTextarea:
		return r.promptTextArea(ctx, session, definition, field)
	default:
		return r.promptText(ctx, session, definition, field)
	}
}

func readonlyValue(field render.FieldView) string {
	if len(field.Values) > 0 {
		return strings.Join(field.Values, ", ")
	}
	if len(field.Files) > 0 {
		names := make([]string, 0, len(field.Files))
		for _, file := range field.Files {
			names = append(names, file.Name)
		}
		return strings.Join(names, ", ")
	}
	return field.Value
}

func (r *Renderer) promptText(ctx context.Context, session *engine.Engine, definition model.FormField, field render.FieldView) error {
	kind := definition.Type()
	help := field.HelpText
	if kind == model.FieldTypeDate && help == "" {
		help = "YYYY-MM-DD"
	}

	for {
		raw, err := r.driver.Input(ctx, InputConfig{
			Message:     r.message(field),
			Default:     field.Value,
			Help:        help,
			Placeholder: field.Placeholder,
			Validator: func(answer string) error {
				_, msgs := parseAnswer(definition, answer)
				return firstError(msgs)
			},
		})
		if err != nil {
			return err
		}

		value, msgs := parseAnswer(definition, raw)
		if len(msgs) == 0 {
			return setOrClear(session, field.Name, value)
		}
		if err := r.errorf(ctx, "%s", msgs[0]); err != nil {
			return err
		}
	}
}

func (r *Renderer) promptTextArea(ctx context.Context, session *engine.Engine, definition model.FormField, field render.FieldView) error {
	for {
		raw, err := r.driver.TextArea(ctx, TextAreaConfig{
			Message: r.message(field),
			Default: field.Value,
			Help:    field.HelpText,
		})
		if err != nil {
			return err
		}

		value, msgs := parseAnswer(definition, raw)
		if len(msgs) == 0 {
			return setOrClear(session, field.Name, value)
		}
		if err := r.errorf(ctx, "%s", msgs[0]); err != nil {
			return err
		}
	}
}

// parseAnswer converts a typed answer into the snapshot representation of
// the field and runs the field checks against it.
func parseAnswer(definition model.FormField, raw string) (any, []string) {
	answer := strings.TrimSpace(raw)
	if definition.Type() == model.FieldTypeTextarea {
		answer = strings.TrimRight(raw, "\n")
	}
	if strings.TrimSpace(answer) == "" {
		return nil, validation.ValidateField(definition, nil)
	}

	if definition.Type().IsNumeric() {
		number, err := strconv.ParseFloat(answer, 64)
		if err != nil {
			return nil, []string{validation.MessageInvalidNumber}
		}
		return number, validation.ValidateField(definition, number)
	}
	return answer, validation.ValidateField(definition, answer)
}

func (r *Renderer) promptChoice(ctx context.Context, session *engine.Engine, definition model.FormField, field render.FieldView) error {
	labels := make([]string, 0, len(field.Options)+1)
	values := make([]string, 0, len(field.Options)+1)
	if !field.Required {
		labels = append(labels, skipOption)
		values = append(values, "")
	}
	defaultIndex := 0
	for _, option := range field.Options {
		if option.Selected {
			defaultIndex = len(labels)
		}
		labels = append(labels, option.Label)
		values = append(values, option.Value)
	}
	if len(field.Options) == 0 {
		if err := r.errorf(ctx, "%s: no options available", field.Label); err != nil {
			return err
		}
		return nil
	}

	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      r.message(field),
			Options:      labels,
			DefaultIndex: defaultIndex,
			Help:         field.HelpText,
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(values) {
			return fmt.Errorf("tui: option index %d out of range for %q", idx, field.Name)
		}

		var value any
		if values[idx] != "" {
			value = values[idx]
		}
		msgs := validation.ValidateField(definition, value)
		if len(msgs) == 0 {
			return setOrClear(session, field.Name, value)
		}
		if err := r.errorf(ctx, "%s", msgs[0]); err != nil {
			return err
		}
	}
}

func (r *Renderer) promptCheckbox(ctx context.Context, session *engine.Engine, definition model.FormField, field render.FieldView) error {
	labels := make([]string, 0, len(field.Options))
	var defaults []int
	for i, option := range field.Options {
		labels = append(labels, option.Label)
		if option.Selected {
			defaults = append(defaults, i)
		}
	}

	for {
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message:  r.message(field),
			Options:  labels,
			Defaults: defaults,
			Help:     field.HelpText,
		})
		if err != nil {
			return err
		}

		selected := make([]any, 0, len(indices))
		for _, idx := range indices {
			if idx >= 0 && idx < len(field.Options) {
				selected = append(selected, field.Options[idx].Value)
			}
		}
		var value any
		if len(selected) > 0 {
			value = selected
		}
		msgs := validation.ValidateField(definition, value)
		if len(msgs) == 0 {
			return setOrClear(session, field.Name, value)
		}
		if err := r.errorf(ctx, "%s", msgs[0]); err != nil {
			return err
		}
	}
}

// promptFiles lets the user drop previously uploaded files and add new ones
// by path. New files replace pending ones picked earlier in the session.
func (r *Renderer) promptFiles(ctx context.Context, session *engine.Engine, definition model.FormField, field render.FieldView) error {
	if len(field.Files) > 0 {
		names := make([]string, 0, len(field.Files))
		for _, file := range field.Files {
			names = append(names, file.Name)
		}
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message: fmt.Sprintf("%s: %s", field.Label, "remove uploaded files?"),
			Options: names,
		})
		if err != nil {
			return err
		}
		for _, idx := range indices {
			if idx < 0 || idx >= len(field.Files) {
				continue
			}
			if err := session.RemoveExistingFile(ctx, field.Name, field.Files[idx].ID); err != nil {
				return err
			}
		}
	}

	help := "Comma separated paths"
	if field.Accept != "" {
		help += " (" + field.Accept + ")"
	}

	for {
		raw, err := r.driver.Input(ctx, InputConfig{
			Message: r.message(field),
			Default: strings.Join(field.Pending, ", "),
			Help:    help,
		})
		if err != nil {
			return err
		}

		value, msgs, err := r.fileAnswer(session, definition, raw)
		if err != nil {
			if errors.Is(err, ErrNoFileOpener) {
				return err
			}
			if infoErr := r.errorf(ctx, "%v", err); infoErr != nil {
				return infoErr
			}
			continue
		}
		if len(msgs) == 0 {
			return setOrClear(session, field.Name, value)
		}
		if err := r.errorf(ctx, "%s", msgs[0]); err != nil {
			return err
		}
	}
}

func (r *Renderer) fileAnswer(session *engine.Engine, definition model.FormField, raw string) (any, []string, error) {
	existing := session.ExistingFiles(definition.FieldName)
	var pending []model.LocalFile

	pendingNames := make(map[string]model.LocalFile)
	for _, file := range session.PendingFiles(definition.FieldName) {
		pendingNames[file.Name] = file
	}

	for _, part := range strings.Split(raw, ",") {
		path := strings.TrimSpace(part)
		if path == "" {
			continue
		}
		if file, ok := pendingNames[path]; ok {
			pending = append(pending, file)
			continue
		}
		if r.openFile == nil {
			return nil, nil, ErrNoFileOpener
		}
		file, err := r.openFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open %s: %w", path, err)
		}
		pending = append(pending, file)
	}

	var value any
	switch {
	case definition.Type() == model.FieldTypeFile && len(pending) > 0:
		value = pending[0]
	case definition.Type() == model.FieldTypeFile && len(existing) > 0:
		value = existing[0]
	case len(pending) == 0 && len(existing) > 0:
		value = existing
	case len(pending) > 0:
		mixed := make([]any, 0, len(existing)+len(pending))
		for _, descriptor := range existing {
			mixed = append(mixed, descriptor)
		}
		for _, file := range pending {
			mixed = append(mixed, file)
		}
		value = mixed
	}
	return value, validation.ValidateField(definition, value), nil
}

func (r *Renderer) message(field render.FieldView) string {
	message := r.theme.PromptPrefix + field.Label
	if field.Required {
		message += " *"
	}
	return message
}

func setOrClear(session *engine.Engine, name string, value any) error {
	if value == nil {
		return session.ClearFieldValue(name)
	}
	return session.SetFieldValue(name, value)
}

func firstError(messages []string) error {
	if len(messages) == 0 {
		return nil
	}
	return errors.New(messages[0])
}
