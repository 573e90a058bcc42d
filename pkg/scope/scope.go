package scope

import (
	"errors"
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// DefaultMaxDepth bounds how many frames may be open at once on a Stack.
const DefaultMaxDepth = 64

// ErrDepthExceeded is returned by Open when the stack is already at its limit.
var ErrDepthExceeded = errors.New("scope: maximum nesting depth exceeded")

// Stack tracks the frames opened during one render. It is not safe for
// concurrent use.
type Stack struct {
	maxDepth int
	names    []string
}

// NewStack returns an empty stack. A non-positive maxDepth selects
// DefaultMaxDepth.
func NewStack(maxDepth int) *Stack {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Stack{maxDepth: maxDepth}
}

// Depth reports the number of open frames.
func (st *Stack) Depth() int {
	return len(st.names)
}

// MaxDepth reports the configured limit.
func (st *Stack) MaxDepth() int {
	return st.maxDepth
}

// Names returns the names of the open frames, outermost first.
func (st *Stack) Names() []string {
	out := make([]string, len(st.names))
	copy(out, st.names)
	return out
}

// Open pushes a frame named name on top of parent.
func (st *Stack) Open(name string, parent *pongo2.ExecutionContext) (*Scope, error) {
	if parent == nil {
		return nil, errors.New("scope: parent context is required")
	}
	if len(st.names) >= st.maxDepth {
		return nil, fmt.Errorf("%w: limit %d reached opening %q", ErrDepthExceeded, st.maxDepth, name)
	}

	st.names = append(st.names, name)
	return &Scope{
		name:  name,
		depth: len(st.names),
		stack: st,
		ctx:   pongo2.NewChildExecutionContext(parent),
	}, nil
}

// Run opens a frame, hands it to fn and closes it once fn returns.
func (st *Stack) Run(name string, parent *pongo2.ExecutionContext, fn func(*Scope) error) error {
	s, err := st.Open(name, parent)
	if err != nil {
		return err
	}
	defer s.Close()

	return fn(s)
}

// Scope is one named frame.
type Scope struct {
	name   string
	depth  int
	stack  *Stack
	ctx    *pongo2.ExecutionContext
	closed bool
}

// Name returns the descriptive name the frame was opened with.
func (s *Scope) Name() string {
	return s.name
}

// Context exposes the frame as a pongo2 execution context so expressions can
// be evaluated against it.
func (s *Scope) Context() *pongo2.ExecutionContext {
	return s.ctx
}

// Set binds key in this frame only, shadowing outer bindings.
func (s *Scope) Set(key string, value any) {
	s.ctx.Private[key] = value
}

// Get looks key up in this frame, falling through to the outer frames.
func (s *Scope) Get(key string) (any, bool) {
	if v, ok := s.ctx.Private[key]; ok {
		return v, true
	}
	v, ok := s.ctx.Public[key]
	return v, ok
}

// Vars flattens the frame chain into a context suitable for rendering another
// template. Frame-local bindings win over inherited ones.
func (s *Scope) Vars() pongo2.Context {
	out := make(pongo2.Context, len(s.ctx.Public)+len(s.ctx.Private))
	out.Update(s.ctx.Public)
	out.Update(s.ctx.Private)
	return out
}

// Close pops the frame, and any frame left open above it. Calling Close more
// than once is a no-op.
func (s *Scope) Close() {
	if s == nil || s.closed {
		return
	}
	s.closed = true
	if len(s.stack.names) >= s.depth {
		s.stack.names = s.stack.names[:s.depth-1]
	}
}
