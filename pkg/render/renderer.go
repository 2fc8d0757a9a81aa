package render

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/engine"
)

// Renderer turns the current state of a session into a byte representation
// (HTML, terminal output, etc.).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, session *engine.Engine, options RenderOptions) ([]byte, error)
}
