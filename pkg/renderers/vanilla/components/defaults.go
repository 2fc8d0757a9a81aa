package components

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
)

const (
	templatePrefix = "templates/components/"
)

// FilesScriptName is the bundled helper that lists chosen files before upload.
const FilesScriptName = "formflow-files.js"

// NewDefaultRegistry constructs a registry pre-populated with the built-in
// components used by the vanilla renderer.
func NewDefaultRegistry() *Registry {
	registry := New()

	registry.MustRegister(NameInput, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "input.tmpl"),
	})
	registry.MustRegister(NameTextarea, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "textarea.tmpl"),
	})
	registry.MustRegister(NameSelect, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "select.tmpl"),
	})
	registry.MustRegister(NameRadio, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "radio.tmpl"),
	})
	registry.MustRegister(NameCheckboxGroup, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "checkbox_group.tmpl"),
	})
	registry.MustRegister(NameFileUploader, Descriptor{
		Renderer: templateComponentRenderer(templatePrefix + "file_uploader.tmpl"),
		Scripts: []Script{
			{Src: FilesScriptName, Defer: true},
		},
	})

	return registry
}

// ResolveName picks the default component for a field kind.
func ResolveName(field render.FieldView) string {
	switch model.FieldType(field.Type).Normalize() {
	case model.FieldTypeTextarea:
		return NameTextarea
	case model.FieldTypeSelect:
		return NameSelect
	case model.FieldTypeRadio:
		return NameRadio
	case model.FieldTypeCheckbox:
		return NameCheckboxGroup
	case model.FieldTypeFile, model.FieldTypeFiles:
		return NameFileUploader
	default:
		return NameInput
	}
}

// InputType maps a field kind onto an HTML input type.
func InputType(kind string) string {
	switch model.FieldType(kind).Normalize() {
	case model.FieldTypeEmail:
		return "email"
	case model.FieldTypeNumber, model.FieldTypeCurrency:
		return "number"
	case model.FieldTypeDate:
		return "date"
	default:
		return "text"
	}
}

func stepAttribute(kind string) string {
	switch model.FieldType(kind).Normalize() {
	case model.FieldTypeCurrency:
		return "0.01"
	case model.FieldTypeNumber:
		return "any"
	default:
		return ""
	}
}

func templateComponentRenderer(templateName string) Renderer {
	return func(buf *bytes.Buffer, field render.FieldView, data ComponentData) error {
		if data.Template == nil {
			return fmt.Errorf("components: template renderer not configured for %q", templateName)
		}

		payload := map[string]any{
			"field":      field,
			"config":     data.Config,
			"labels":     data.Labels,
			"input_type": InputType(field.Type),
			"step_attr":  stepAttribute(field.Type),
			"label_id":   strings.TrimSpace(field.ID) + "-label",
		}
		rendered, err := data.Template.RenderTemplate(templateName, payload)
		if err != nil {
			return fmt.Errorf("components: render template %q: %w", templateName, err)
		}
		buf.WriteString(rendered)
		return nil
	}
}
