package render

import (
	"io"

	"github.com/goliatone/go-include/pkg/partials"
)

// Renderer renders templates whose include tags resolve against a partial
// store. Each call is an independent render: include scopes opened by one
// never reach another.
type Renderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	RenderString(templateContent string, data any, out ...io.Writer) (string, error)

	// Store is the partial cache include tags read from. Watchers invalidate
	// it when partial files change.
	Store() *partials.Store
}

// Extender adds process-wide filters and per-engine globals.
type Extender interface {
	RegisterFilter(name string, fn func(input any, param any) (any, error)) error
	GlobalContext(data any) error
}

var (
	_ Renderer = (*Engine)(nil)
	_ Extender = (*Engine)(nil)
)
