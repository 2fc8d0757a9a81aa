package engine

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

var templateToken = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

// ResolveFilterParams substitutes {{field_name}} tokens in params with the
// current snapshot values. Missing or nil values become empty strings.
func ResolveFilterParams(params map[string]string, values model.Values) map[string]string {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, raw := range params {
		out[key] = templateToken.ReplaceAllStringFunc(raw, func(token string) string {
			name := templateToken.FindStringSubmatch(token)[1]
			value, ok := values[name]
			if !ok || value == nil {
				return ""
			}
			return fmt.Sprint(value)
		})
	}
	return out
}

// PendingOptions lists the names of choice fields whose options come from a
// dynamic source and have not been supplied yet.
func (e *Engine) PendingOptions() []string {
	var pending []string
	for _, field := range e.data.Fields {
		if !isDynamic(field) {
			continue
		}
		if _, ok := e.resolved[field.FieldName]; !ok {
			pending = append(pending, field.FieldName)
		}
	}
	sort.Strings(pending)
	return pending
}

// SetOptions records the resolved options for a dynamic field.
func (e *Engine) SetOptions(name string, options []model.Option) error {
	field, ok := e.data.Field(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if !isDynamic(field) {
		return fmt.Errorf("engine: field %q has no dynamic options", name)
	}
	e.resolved[name] = append([]model.Option(nil), options...)
	return nil
}

// InvalidateOptions forgets resolved options so they are fetched again, for
// example after a field referenced by their filter params changed.
func (e *Engine) InvalidateOptions(names ...string) {
	if len(names) == 0 {
		e.resolved = make(map[string][]model.Option)
		return
	}
	for _, name := range names {
		delete(e.resolved, name)
	}
}

// Options returns the choices for a field: static options, or resolved
// dynamic ones. The second result is false while dynamic options are pending.
func (e *Engine) Options(name string) ([]model.Option, bool) {
	field, ok := e.data.Field(name)
	if !ok {
		return nil, false
	}
	if isDynamic(field) {
		opts, ok := e.resolved[name]
		return opts, ok
	}
	return field.StaticOptions(), true
}

// ResolveOptions asks the OptionSource for every pending dynamic field of the
// current step's visible fields. Failures are collected; fields that failed
// stay pending.
func (e *Engine) ResolveOptions(ctx context.Context) error {
	if e.optionSource == nil {
		return nil
	}
	var errs []error
	for _, field := range e.CurrentFields() {
		if !isDynamic(field) {
			continue
		}
		if _, ok := e.resolved[field.FieldName]; ok {
			continue
		}
		source := field.Options.Dynamic
		params := ResolveFilterParams(source.FilterParams, e.values)
		opts, err := e.optionSource.Options(ctx, source.SourceName, params)
		if err != nil {
			e.logger.WithError(err).WithField("field", field.FieldName).Warn("option lookup failed")
			errs = append(errs, &TransportError{Op: "options " + source.SourceName, Err: err})
			continue
		}
		e.resolved[field.FieldName] = opts
	}
	return errors.Join(errs...)
}

// DependentOptionFields lists dynamic fields whose filter params reference name.
func (e *Engine) DependentOptionFields(name string) []string {
	var out []string
	for _, field := range e.data.Fields {
		if !isDynamic(field) {
			continue
		}
		for _, raw := range field.Options.Dynamic.FilterParams {
			if referencesField(raw, name) {
				out = append(out, field.FieldName)
				break
			}
		}
	}
	return out
}

func referencesField(raw, name string) bool {
	for _, match := range templateToken.FindAllStringSubmatch(raw, -1) {
		if strings.TrimSpace(match[1]) == name {
			return true
		}
	}
	return false
}

func isDynamic(field model.FormField) bool {
	return field.Options != nil && field.Options.Dynamic != nil && strings.TrimSpace(field.Options.Dynamic.SourceName) != ""
}
