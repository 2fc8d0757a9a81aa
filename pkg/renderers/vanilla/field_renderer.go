package vanilla

import (
	"bytes"
	"fmt"
	"html"
	"slices"
	"strings"

	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/render/template"
	"github.com/goliatone/go-formflow/pkg/render/template/pongo"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla/components"
)

type componentRenderer struct {
	templates    template.TemplateRenderer
	registry     *components.Registry
	overrides    map[string]string
	configs      map[string]map[string]any
	fieldClasses map[string]string
	classes      ChromeClasses
	labels       map[string]string

	usedComponents map[string]struct{}
}

func (r *componentRenderer) render(field render.FieldView) (string, error) {
	componentName := r.overrides[field.Name]
	if componentName == "" {
		componentName = components.ResolveName(field)
	}

	descriptor, ok := r.registry.Descriptor(componentName)
	if !ok {
		return "", fmt.Errorf("component %q not registered for field %q", componentName, field.Name)
	}

	data := components.ComponentData{
		Template: r.templates,
		Labels:   r.labels,
		Config:   r.configs[componentName],
	}

	var control bytes.Buffer
	if err := descriptor.Renderer(&control, field, data); err != nil {
		return "", fmt.Errorf("render component %q for field %q: %w", componentName, field.Name, err)
	}

	r.usedComponents[componentName] = struct{}{}

	return r.buildFieldMarkup(field, componentName, control.String()), nil
}

func (r *componentRenderer) assets() (stylesheets []string, scripts []components.Script) {
	if r.registry == nil || len(r.usedComponents) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(r.usedComponents))
	for name := range r.usedComponents {
		names = append(names, name)
	}
	slices.Sort(names)
	return r.registry.Assets(names)
}

func (r *componentRenderer) buildFieldMarkup(field render.FieldView, componentName, control string) string {
	var builder strings.Builder
	builder.Grow(len(control) + 256)

	builder.WriteString(`<div class="`)
	builder.WriteString(html.EscapeString(r.classes.Field))
	if len(field.Errors) > 0 {
		builder.WriteString(` has-error`)
	}
	if extra := sanitizeClassList(r.fieldClasses[field.Name]); extra != "" {
		builder.WriteByte(' ')
		builder.WriteString(html.EscapeString(extra))
	}
	builder.WriteString(`" data-field="`)
	builder.WriteString(html.EscapeString(field.Name))
	builder.WriteString(`" data-component="`)
	builder.WriteString(html.EscapeString(componentName))
	builder.WriteString(`">` + "\n")

	if strings.TrimSpace(field.Label) != "" {
		if labelSupportsFor(componentName) {
			builder.WriteString(`    <label for="`)
			builder.WriteString(html.EscapeString(field.ID))
			builder.WriteString(`">`)
		} else {
			builder.WriteString(`    <span id="`)
			builder.WriteString(html.EscapeString(componentLabelID(field.ID)))
			builder.WriteString(`">`)
		}
		builder.WriteString(html.EscapeString(field.Label))
		if field.Required {
			builder.WriteString(`<span class="formflow-required" title="`)
			builder.WriteString(html.EscapeString(r.labels["required"]))
			builder.WriteString(`">*</span>`)
		}
		if labelSupportsFor(componentName) {
			builder.WriteString("</label>\n")
		} else {
			builder.WriteString("</span>\n")
		}
	}

	for _, line := range strings.Split(control, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		builder.WriteString("    ")
		builder.WriteString(line)
		builder.WriteByte('\n')
	}

	if help := pongo.SanitizeHTML(field.HelpText); help != "" {
		builder.WriteString(`    <small class="`)
		builder.WriteString(html.EscapeString(r.classes.Help))
		builder.WriteString(`">`)
		builder.WriteString(help)
		builder.WriteString("</small>\n")
	}

	if len(field.Errors) > 0 {
		builder.WriteString(`    <ul id="`)
		builder.WriteString(html.EscapeString(field.ID))
		builder.WriteString(`-errors" class="`)
		builder.WriteString(html.EscapeString(r.classes.Errors))
		builder.WriteString(`">`)
		for _, message := range field.Errors {
			builder.WriteString(`<li>`)
			builder.WriteString(html.EscapeString(message))
			builder.WriteString(`</li>`)
		}
		builder.WriteString("</ul>\n")
	}

	builder.WriteString("</div>\n")
	return builder.String()
}
