package includetag

import (
	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-include/pkg/scope"
)

// RuntimeKey is the render-context entry carrying the *Runtime. It is
// reserved: render data must not use it, and it must stay a valid pongo2
// identifier.
const RuntimeKey = "_include_runtime"

// Reserved reports whether key is owned by the include tag and may not be
// supplied as render data.
func Reserved(key string) bool {
	return key == RuntimeKey || key == IncludeKey
}

// PartialSource resolves a partial name to a compiled template. Lookups may
// run concurrently from independent renders.
type PartialSource interface {
	Partial(name string) (*pongo2.Template, error)
}

// Runtime is the per-render state the include tag needs. A Runtime must not
// be shared between renders running at the same time. It is opaque to
// templates and renders as an empty string.
type Runtime struct {
	partials PartialSource
	scopes   *scope.Stack
}

// NewRuntime returns a runtime with a fresh scope stack. A non-positive
// maxDepth selects scope.DefaultMaxDepth.
func NewRuntime(partials PartialSource, maxDepth int) *Runtime {
	return &Runtime{
		partials: partials,
		scopes:   scope.NewStack(maxDepth),
	}
}

// Depth reports how many includes are currently open.
func (rt *Runtime) Depth() int {
	return rt.scopes.Depth()
}

// OpenScopes returns the partial names of the open includes, outermost first.
func (rt *Runtime) OpenScopes() []string {
	return rt.scopes.Names()
}

// String keeps the runtime out of rendered output.
func (rt *Runtime) String() string {
	return ""
}

// Attach returns a copy of vars carrying rt under RuntimeKey, ready to pass
// to pongo2.Template.Execute and friends. Partials rendered by the include
// tag inherit it.
func Attach(vars pongo2.Context, rt *Runtime) pongo2.Context {
	out := make(pongo2.Context, len(vars)+1)
	out.Update(vars)
	out[RuntimeKey] = rt
	return out
}

func runtimeFrom(ctx *pongo2.ExecutionContext) (*Runtime, bool) {
	v, ok := ctx.Private[RuntimeKey]
	if !ok {
		v, ok = ctx.Public[RuntimeKey]
	}
	if !ok {
		return nil, false
	}
	rt, ok := v.(*Runtime)
	if !ok || rt == nil || rt.partials == nil || rt.scopes == nil {
		return nil, false
	}
	return rt, true
}
