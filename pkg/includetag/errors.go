package includetag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
)

// Kind classifies include failures.
type Kind string

const (
	KindMissingArgument         Kind = "missing_argument"
	KindInvalidSyntax           Kind = "invalid_syntax"
	KindInvalidIdentifier       Kind = "invalid_identifier"
	KindInvalidExpression       Kind = "invalid_expression"
	KindInvalidPartialName      Kind = "invalid_partial_name"
	KindBindingEvaluationFailed Kind = "binding_evaluation_failed"
	KindPartialNotFound         Kind = "partial_not_found"
	KindRenderFailure           Kind = "render_failure"
	KindRecursionLimit          Kind = "recursion_limit"
	KindMissingRuntime          Kind = "missing_runtime"
)

// Sentinel errors matched by errors.Is against an *Error of the same kind.
var (
	ErrMissingArgument         = errors.New("include: missing argument")
	ErrInvalidSyntax           = errors.New("include: invalid syntax")
	ErrInvalidIdentifier       = errors.New("include: invalid identifier")
	ErrInvalidExpression       = errors.New("include: invalid expression")
	ErrInvalidPartialName      = errors.New("include: invalid partial name")
	ErrBindingEvaluationFailed = errors.New("include: binding evaluation failed")
	ErrPartialNotFound         = errors.New("include: partial not found")
	ErrRenderFailure           = errors.New("include: partial render failed")
	ErrRecursionLimit          = errors.New("include: recursion limit exceeded")
	ErrMissingRuntime          = errors.New("include: no runtime attached")
)

var kindSentinels = map[Kind]error{
	KindMissingArgument:         ErrMissingArgument,
	KindInvalidSyntax:           ErrInvalidSyntax,
	KindInvalidIdentifier:       ErrInvalidIdentifier,
	KindInvalidExpression:       ErrInvalidExpression,
	KindInvalidPartialName:      ErrInvalidPartialName,
	KindBindingEvaluationFailed: ErrBindingEvaluationFailed,
	KindPartialNotFound:         ErrPartialNotFound,
	KindRenderFailure:           ErrRenderFailure,
	KindRecursionLimit:          ErrRecursionLimit,
	KindMissingRuntime:          ErrMissingRuntime,
}

// Frame attributes an error to one include site.
type Frame struct {
	Tag      string // source text of the tag, e.g. {% include 'a.liquid' %}
	Partial  string // evaluated partial name, empty if not yet resolved
	Filename string
	Line     int
	Col      int
}

func (f Frame) String() string {
	var b strings.Builder
	b.WriteString(f.Tag)
	if f.Partial != "" {
		fmt.Fprintf(&b, " (partial %q)", f.Partial)
	}
	if f.Line > 0 {
		fmt.Fprintf(&b, " at %s:%d:%d", f.Filename, f.Line, f.Col)
	}
	return b.String()
}

// Error is the failure type of the include tag.
type Error struct {
	Kind    Kind
	Msg     string
	Expr    string  // source of the offending expression, if any
	Binding string  // binding identifier, for binding failures
	Frames  []Frame // innermost include site first
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("include: ")
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(strings.ReplaceAll(string(e.Kind), "_", " "))
	}
	if e.Binding != "" {
		fmt.Fprintf(&b, " (binding %q)", e.Binding)
	}
	if e.Expr != "" {
		fmt.Fprintf(&b, " (expression %s)", e.Expr)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	for _, f := range e.Frames {
		b.WriteString("\n\tfrom ")
		b.WriteString(f.String())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	sentinel, ok := kindSentinels[e.Kind]
	return ok && sentinel == target
}

// Trace returns the include sites the error crossed, innermost first.
func (e *Error) Trace() []string {
	out := make([]string, 0, len(e.Frames))
	for _, f := range e.Frames {
		out = append(out, f.String())
	}
	return out
}

// AsError finds the include *Error in err's chain, looking through pongo2
// errors that carry it as their original error.
func AsError(err error) (*Error, bool) {
	for err != nil {
		var ie *Error
		if errors.As(err, &ie) {
			return ie, true
		}
		var pe *pongo2.Error
		if !errors.As(err, &pe) || pe.OrigError == nil {
			return nil, false
		}
		err = pe.OrigError
	}
	return nil, false
}

// KindOf returns the kind of the include error in err's chain, or "" when
// there is none.
func KindOf(err error) Kind {
	if ie, ok := AsError(err); ok {
		return ie.Kind
	}
	return ""
}

func toPongo(err *Error) *pongo2.Error {
	return &pongo2.Error{Sender: "tag:" + TagName, OrigError: err}
}
