package vanilla

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/render"
	rendertemplate "github.com/goliatone/go-formflow/pkg/render/template"
	"github.com/goliatone/go-formflow/pkg/render/template/pongo"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla/components"
)

type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	registry         *components.Registry
	overrides        map[string]string
	componentConfigs map[string]map[string]any
	fieldClasses     map[string]string
	classes          ChromeClasses
	stylesheets      []string
	inlineStyles     bool
	assetsBase       string
}

// WithTemplatesFS supplies an alternate template bundle via fs.FS.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithComponentRegistry replaces the default component registry.
func WithComponentRegistry(registry *components.Registry) Option {
	return func(cfg *config) {
		if registry != nil {
			cfg.registry = registry
		}
	}
}

// WithComponentOverride renders the named field with a specific component.
func WithComponentOverride(fieldName, component string) Option {
	return func(cfg *config) {
		fieldName = strings.TrimSpace(fieldName)
		if fieldName == "" {
			return
		}
		if cfg.overrides == nil {
			cfg.overrides = make(map[string]string)
		}
		cfg.overrides[fieldName] = strings.TrimSpace(component)
	}
}

// WithComponentConfig passes settings to every render of a component, for
// example {"rows": 8} for textareas.
func WithComponentConfig(component string, settings map[string]any) Option {
	return func(cfg *config) {
		if cfg.componentConfigs == nil {
			cfg.componentConfigs = make(map[string]map[string]any)
		}
		cfg.componentConfigs[strings.TrimSpace(component)] = settings
	}
}

// WithFieldClass appends extra classes to a field wrapper.
func WithFieldClass(fieldName, classes string) Option {
	return func(cfg *config) {
		if cfg.fieldClasses == nil {
			cfg.fieldClasses = make(map[string]string)
		}
		cfg.fieldClasses[strings.TrimSpace(fieldName)] = classes
	}
}

// WithChromeClasses overrides the chrome CSS classes.
func WithChromeClasses(classes ChromeClasses) Option {
	return func(cfg *config) {
		cfg.classes = classes
	}
}

// WithStylesheet links an external stylesheet ahead of the form.
func WithStylesheet(href string) Option {
	return func(cfg *config) {
		if href = strings.TrimSpace(href); href != "" {
			cfg.stylesheets = append(cfg.stylesheets, href)
		}
	}
}

// WithDefaultStyles inlines the bundled stylesheet.
func WithDefaultStyles() Option {
	return func(cfg *config) {
		cfg.inlineStyles = true
	}
}

// WithAssetsBase sets the URL prefix relative component scripts are served
// from (see AssetsFS).
func WithAssetsBase(base string) Option {
	return func(cfg *config) {
		cfg.assetsBase = strings.TrimSpace(base)
	}
}

// Renderer produces an HTML form for the current step of a session.
type Renderer struct {
	templates rendertemplate.TemplateRenderer
	cfg       config
}

var _ render.Renderer = (*Renderer)(nil)

// New constructs the vanilla renderer applying any provided options.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS(), assetsBase: "/assets"}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	if cfg.templateFS == nil {
		cfg.templateFS = TemplatesFS()
	}
	if cfg.registry == nil {
		cfg.registry = components.NewDefaultRegistry()
	}
	cfg.classes = cfg.classes.withDefaults()

	renderer := cfg.templateRenderer
	if renderer == nil {
		engine, err := pongo.New(
			pongo.WithName("vanilla"),
			pongo.WithFS(cfg.templateFS),
			pongo.WithExtension(".tmpl"),
		)
		if err != nil {
			return nil, fmt.Errorf("vanilla renderer: configure template renderer: %w", err)
		}
		renderer = engine
	}

	return &Renderer{templates: renderer, cfg: cfg}, nil
}

func (r *Renderer) Name() string {
	return "vanilla"
}

func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

type renderedField struct {
	Name string
	HTML string
}

func (r *Renderer) Render(_ context.Context, session *engine.Engine, options render.RenderOptions) ([]byte, error) {
	if r.templates == nil {
		return nil, fmt.Errorf("vanilla renderer: template renderer is nil")
	}
	if session == nil {
		return nil, fmt.Errorf("vanilla renderer: session is nil")
	}

	view := render.BuildView(session, options)

	fields := &componentRenderer{
		templates:      r.templates,
		registry:       r.cfg.registry,
		overrides:      r.cfg.overrides,
		configs:        r.cfg.componentConfigs,
		fieldClasses:   r.cfg.fieldClasses,
		classes:        r.cfg.classes,
		labels:         view.Labels,
		usedComponents: make(map[string]struct{}),
	}

	submitted := session.Status() == engine.StatusSubmitted
	var rendered []renderedField
	if !submitted {
		for _, field := range view.Fields {
			markup, err := fields.render(field)
			if err != nil {
				return nil, fmt.Errorf("vanilla renderer: %w", err)
			}
			rendered = append(rendered, renderedField{Name: field.Name, HTML: markup})
		}
	}

	componentStyles, componentScripts := fields.assets()
	stylesheets := append(append([]string(nil), r.cfg.stylesheets...), componentStyles...)
	for i := range stylesheets {
		stylesheets[i] = resolveAsset(r.cfg.assetsBase, stylesheets[i])
	}
	for i := range componentScripts {
		componentScripts[i].Src = resolveAsset(r.cfg.assetsBase, componentScripts[i].Src)
	}

	inlineStyles := ""
	if r.cfg.inlineStyles {
		inlineStyles = defaultStylesheet()
	}

	result, err := r.templates.RenderTemplate("templates/form.tmpl", map[string]any{
		"view":          view,
		"fields":        rendered,
		"classes":       r.cfg.classes.asMap(),
		"stylesheets":   stylesheets,
		"scripts":       componentScripts,
		"inline_styles": inlineStyles,
		"submitted":     submitted,
	})
	if err != nil {
		return nil, fmt.Errorf("vanilla renderer: render template: %w", err)
	}
	return []byte(result), nil
}
