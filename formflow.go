// Package formflow is the top-level entry point for loading multi-step form
// definitions and driving them through an engine session. The heavy lifting
// lives in the pkg/ packages; this package wires the common path together.
package formflow

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"github.com/goliatone/go-formflow/internal/loader"
	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/render"
	"github.com/goliatone/go-formflow/pkg/renderers/vanilla"
	"github.com/goliatone/go-formflow/pkg/schema"
)

// RenderOptions describes per-request overrides that renderers use to surface
// errors, notices and hidden fields.
type RenderOptions = render.RenderOptions

// Engine aliases the session engine so callers can stay on this package for
// the quick start path.
type Engine = engine.Engine

// NewLoader constructs a loader using the internal implementation while keeping
// the concrete type hidden from consumers.
func NewLoader(options ...schema.LoaderOption) schema.Loader {
	cfg := schema.NewLoaderOptions(options...)
	return loader.New(cfg)
}

// NewEngine starts a session over data.
func NewEngine(data model.FormData, options ...engine.Option) *engine.Engine {
	return engine.New(data, options...)
}

// LoadForm fetches src through l and decodes it into FormData.
func LoadForm(ctx context.Context, l schema.Loader, src schema.Source, options ...schema.DecodeOption) (model.FormData, error) {
	if l == nil {
		return model.FormData{}, fmt.Errorf("formflow: loader is nil")
	}
	doc, err := l.Load(ctx, src)
	if err != nil {
		return model.FormData{}, err
	}
	return schema.Decode(doc, options...)
}

// SourceFor picks a URL source for http(s) locations and a file source for
// everything else.
func SourceFor(location string) (schema.Source, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("formflow: empty form location")
	}
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		if _, err := url.ParseRequestURI(location); err != nil {
			return nil, fmt.Errorf("formflow: invalid form URL %q: %w", location, err)
		}
		return schema.SourceFromURL(location), nil
	}
	return schema.SourceFromFile(location), nil
}

// EmbeddedTemplates exposes the built-in vanilla renderer templates so callers
// can reuse or extend them without importing the renderer package directly.
func EmbeddedTemplates() fs.FS {
	return vanilla.TemplatesFS()
}

// AssetsFS exposes the stylesheet and upload script the vanilla templates
// link to.
//
// Typical mount:
//
//	mux.Handle("/assets/",
//	  http.StripPrefix("/assets/",
//	    http.FileServerFS(formflow.AssetsFS()),
//	  ),
//	)
func AssetsFS() fs.FS {
	return vanilla.AssetsFS()
}
