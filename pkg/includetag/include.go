package includetag

import (
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-include/pkg/scope"
	"github.com/goliatone/go-include/pkg/value"
)

// Execute renders the partial into w. It implements pongo2.INodeTag.
func (in *Instruction) Execute(ctx *pongo2.ExecutionContext, w pongo2.TemplateWriter) *pongo2.Error {
	if err := in.render(ctx, w); err != nil {
		return toPongo(err)
	}
	return nil
}

func (in *Instruction) render(ctx *pongo2.ExecutionContext, w io.Writer) *Error {
	rt, ok := runtimeFrom(ctx)
	if !ok {
		return in.trace(&Error{
			Kind: KindMissingRuntime,
			Msg:  "no include runtime attached to the render context",
		}, "")
	}

	name, err := in.partialName(ctx)
	if err != nil {
		return in.trace(err, "")
	}

	runErr := rt.scopes.Run(name, ctx, func(s *scope.Scope) error {
		if err := in.renderScoped(s, rt.partials, name, w); err != nil {
			return err
		}
		return nil
	})
	if runErr == nil {
		return nil
	}

	var ie *Error
	if errors.As(runErr, &ie) {
		return ie
	}
	return in.trace(&Error{
		Kind: KindRecursionLimit,
		Msg:  "includes nested too deeply",
		Err:  runErr,
	}, name)
}

// renderScoped runs with the partial's scope open. Every error it returns has
// already been traced.
func (in *Instruction) renderScoped(s *scope.Scope, partials PartialSource, name string, w io.Writer) *Error {
	if err := in.bind(s); err != nil {
		return in.trace(err, name)
	}

	partial, err := partials.Partial(name)
	if err != nil {
		kind := KindRenderFailure
		msg := "failed to load partial"
		if errors.Is(err, fs.ErrNotExist) {
			kind = KindPartialNotFound
			msg = "partial not found"
		}
		return in.trace(&Error{Kind: kind, Msg: msg, Err: err}, name)
	}

	if err := partial.ExecuteWriter(s.Vars(), w); err != nil {
		return in.trace(err, name)
	}
	return nil
}

func (in *Instruction) partialName(ctx *pongo2.ExecutionContext) (string, *Error) {
	v, perr := in.partial.Evaluate(ctx)
	if perr != nil {
		return "", &Error{
			Kind: KindInvalidPartialName,
			Msg:  "failed to evaluate partial name",
			Expr: in.partialSrc,
			Err:  perr,
		}
	}
	name, ok := value.Scalar(v)
	if !ok {
		return "", &Error{
			Kind: KindInvalidPartialName,
			Msg:  "can only include strings",
			Expr: in.partialSrc,
		}
	}
	return name, nil
}

// bind evaluates the bindings against the partial's scope and installs them
// as a single object under IncludeKey. Without bindings the key is left
// untouched. A value that resolves to nothing fails unless it is the nil
// literal or a variable the caller defined as nil.
func (in *Instruction) bind(s *scope.Scope) *Error {
	if len(in.bindings) == 0 {
		return nil
	}

	vars := make(map[string]any, len(in.bindings))
	for _, b := range in.bindings {
		v, perr := b.Expr.Evaluate(s.Context())
		if perr != nil {
			return &Error{
				Kind:    KindBindingEvaluationFailed,
				Msg:     "failed to evaluate value",
				Binding: b.Name,
				Expr:    b.src,
				Err:     perr,
			}
		}
		if v == nil || v.IsNil() {
			if !b.mayBeNil(s) {
				return &Error{
					Kind:    KindBindingEvaluationFailed,
					Msg:     "failed to evaluate value",
					Binding: b.Name,
					Expr:    b.src,
					Err:     fmt.Errorf("%s is undefined", b.src),
				}
			}
			vars[b.Name] = nil
			continue
		}
		vars[b.Name] = v.Interface()
	}

	s.Set(IncludeKey, vars)
	return nil
}

// trace appends this include site to the include error in err's chain, or
// wraps a foreign error as a render failure.
func (in *Instruction) trace(err error, partial string) *Error {
	ie, ok := AsError(err)
	if !ok {
		ie = &Error{Kind: KindRenderFailure, Msg: "partial failed to render", Err: err}
	}
	ie.Frames = append(ie.Frames, in.frame(partial))
	return ie
}
