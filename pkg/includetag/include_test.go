package includetag_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/flosch/pongo2/v6"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-include/pkg/includetag"
	"github.com/goliatone/go-include/pkg/partials"
)

func TestInclude_RendersPartialWithCallerVariables(t *testing.T) {
	h := newHarness(testPartials())

	got, err := h.render(t, "{% include 'example.txt' %}", pongo2.Context{
		"num":    5.0,
		"numTwo": 10.0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "5 wat wot"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInclude_ExposesBindingsUnderInclude(t *testing.T) {
	h := newHarness(testPartials())

	got, err := h.render(t, `{% include 'example_var.txt' example_var:"hello" %}`, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "hello"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInclude_MissingPartialFails(t *testing.T) {
	h := newHarness(testPartials())

	got, err := h.render(t, "{% include 'file_does_not_exist.liquid' %}", pongo2.Context{
		"num":    5.0,
		"numTwo": 10.0,
	})
	ie := mustIncludeError(t, err)

	if got != "" {
		t.Fatalf("expected no output, got %q", got)
	}
	if ie.Kind != includetag.KindPartialNotFound {
		t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindPartialNotFound)
	}
	if !errors.Is(ie, includetag.ErrPartialNotFound) {
		t.Fatal("expected errors.Is(ErrPartialNotFound)")
	}
	if !errors.Is(ie, partials.ErrNotFound) {
		t.Fatal("expected the source error to be wrapped")
	}

	want := []includetag.Frame{{
		Tag:      "{% include 'file_does_not_exist.liquid' %}",
		Partial:  "file_does_not_exist.liquid",
		Filename: ie.Frames[0].Filename,
		Line:     1,
		Col:      ie.Frames[0].Col,
	}}
	if diff := cmp.Diff(want, ie.Frames); diff != "" {
		t.Fatalf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestInclude_DuplicateBindingsLastWins(t *testing.T) {
	h := newHarness(partials.MapSource{
		"pair.txt": "{{ include.a }}-{{ include.b }}",
	})

	got, err := h.render(t, "{% include 'pair.txt' a:1 b:2 a:3 %}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "3-2"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInclude_BindingsSeeCallerScope(t *testing.T) {
	h := newHarness(partials.MapSource{
		"card.txt": "{{ include.title }} by {{ author }}",
	})

	got, err := h.render(t, "{% include 'card.txt' title:post.title %}", pongo2.Context{
		"post":   map[string]any{"title": "Scopes"},
		"author": "Ada",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Scopes by Ada"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInclude_BindingsDoNotLeakIntoCaller(t *testing.T) {
	h := newHarness(testPartials())

	got, err := h.render(t,
		`{% include 'example_var.txt' example_var:"inner" %}[{{ include.example_var }}]`,
		pongo2.Context{"include": map[string]any{"example_var": "outer"}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "inner[outer]"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInclude_NoBindingsLeavesIncludeUnset(t *testing.T) {
	h := newHarness(partials.MapSource{
		"probe.txt": "{% if include %}set:{{ include.example_var }}{% else %}unset{% endif %}",
	})

	got, err := h.render(t, "{% include 'probe.txt' %}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "unset"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	got, err = h.render(t, "{% include 'probe.txt' %}", pongo2.Context{
		"include": map[string]any{"example_var": "outer"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "set:outer"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInclude_PartialNameFromVariable(t *testing.T) {
	h := newHarness(partials.MapSource{
		"hello.txt": "hi",
		"42":        "answer",
	})

	tests := []struct {
		name string
		vars pongo2.Context
		want string
	}{
		{name: "string variable", vars: pongo2.Context{"which": "hello.txt"}, want: "hi"},
		{name: "integer variable", vars: pongo2.Context{"which": 42}, want: "answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.render(t, "{% include which %}", tt.vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInclude_NonScalarPartialNameNeverLooksUp(t *testing.T) {
	tests := []struct {
		name string
		vars pongo2.Context
	}{
		{name: "array", vars: pongo2.Context{"which": []string{"example.txt"}}},
		{name: "object", vars: pongo2.Context{"which": map[string]any{"name": "example.txt"}}},
		{name: "undefined", vars: pongo2.Context{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := partials.NewStore(testPartials())
			counter := &countingSource{inner: store}

			tpl, err := store.Set().FromString("{% include which a:1 %}")
			if err != nil {
				t.Fatalf("compile: %v", err)
			}
			rt := includetag.NewRuntime(counter, 0)
			_, err = tpl.Execute(includetag.Attach(tt.vars, rt))

			ie := mustIncludeError(t, err)
			if ie.Kind != includetag.KindInvalidPartialName {
				t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindInvalidPartialName)
			}
			if ie.Expr != "which" {
				t.Fatalf("expr = %q, want %q", ie.Expr, "which")
			}
			if counter.calls != 0 {
				t.Fatalf("partial source consulted %d times", counter.calls)
			}
			if rt.Depth() != 0 {
				t.Fatalf("scope left open: %v", rt.OpenScopes())
			}
		})
	}
}

func TestInclude_BindingEvaluationFailure(t *testing.T) {
	h := newHarness(testPartials())
	rt := h.runtime()

	tpl := h.compile(t, `{% include 'example_var.txt' ok:1 bad:"x"|fail %}`)
	_, err := tpl.Execute(includetag.Attach(nil, rt))

	ie := mustIncludeError(t, err)
	if ie.Kind != includetag.KindBindingEvaluationFailed {
		t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindBindingEvaluationFailed)
	}
	if ie.Binding != "bad" {
		t.Fatalf("binding = %q, want %q", ie.Binding, "bad")
	}
	if len(ie.Frames) != 1 || ie.Frames[0].Partial != "example_var.txt" {
		t.Fatalf("unexpected frames: %+v", ie.Frames)
	}
	if rt.Depth() != 0 {
		t.Fatalf("scope left open: %v", rt.OpenScopes())
	}
}

func TestInclude_UndefinedBindingValueFails(t *testing.T) {
	tests := []struct {
		name     string
		template string
		vars     pongo2.Context
		binding  string
		expr     string
	}{
		{
			name:     "undefined variable",
			template: "{% include 'example_var.txt' example_var:nosuchvar %}",
			binding:  "example_var",
			expr:     "nosuchvar",
		},
		{
			name:     "missing attribute",
			template: "{% include 'example_var.txt' ok:1 example_var:post.missing %}",
			vars:     pongo2.Context{"post": map[string]any{"title": "Scopes"}},
			binding:  "example_var",
			expr:     "post.missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(testPartials())
			rt := h.runtime()

			got, err := h.compile(t, tt.template).Execute(includetag.Attach(tt.vars, rt))
			ie := mustIncludeError(t, err)

			if got != "" {
				t.Fatalf("expected no output, got %q", got)
			}
			if ie.Kind != includetag.KindBindingEvaluationFailed {
				t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindBindingEvaluationFailed)
			}
			if !errors.Is(ie, includetag.ErrBindingEvaluationFailed) {
				t.Fatal("expected errors.Is(ErrBindingEvaluationFailed)")
			}
			if ie.Binding != tt.binding || ie.Expr != tt.expr {
				t.Fatalf("binding = %q expr = %q, want %q %q", ie.Binding, ie.Expr, tt.binding, tt.expr)
			}
			if rt.Depth() != 0 {
				t.Fatalf("scope left open: %v", rt.OpenScopes())
			}
		})
	}
}

func TestInclude_NilBindingValues(t *testing.T) {
	h := newHarness(partials.MapSource{
		"nil.txt": "[{{ include.value }}]{% if include.value %}set{% else %}empty{% endif %}",
	})

	tests := []struct {
		name     string
		template string
		vars     pongo2.Context
	}{
		{name: "nil literal", template: "{% include 'nil.txt' value:nil %}"},
		{name: "variable defined as nil", template: "{% include 'nil.txt' value:missing %}", vars: pongo2.Context{"missing": nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.render(t, tt.template, tt.vars)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want := "[]empty"; got != want {
				t.Fatalf("got %q, want %q", got, want)
			}
		})
	}
}

func TestInclude_RuntimeIsOpaqueToTemplates(t *testing.T) {
	h := newHarness(partials.MapSource{
		"peek.txt": "({{ _include_runtime }})",
	})

	got, err := h.render(t, "[{{ _include_runtime }}]{% include 'peek.txt' %}", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "[]()"; got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestInclude_PartialRenderFailureIsWrapped(t *testing.T) {
	h := newHarness(partials.MapSource{
		"boom.txt": `before {{ "x"|fail }}`,
	})

	_, err := h.render(t, "{% include 'boom.txt' %}", nil)
	ie := mustIncludeError(t, err)

	if ie.Kind != includetag.KindRenderFailure {
		t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindRenderFailure)
	}
	if !strings.Contains(ie.Error(), errFilterFailed.Error()) {
		t.Fatalf("error should mention the partial's failure: %v", ie)
	}
	if diff := cmp.Diff([]string{"boom.txt"}, framePartials(ie)); diff != "" {
		t.Fatalf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestInclude_NestedFailureTracesEveryIncludeSite(t *testing.T) {
	h := newHarness(partials.MapSource{
		"outer.txt": "outer:{% include 'inner.txt' depth:1 %}",
		"inner.txt": "inner:{% include 'missing.txt' %}",
	})

	_, err := h.render(t, "{% include 'outer.txt' %}", nil)
	ie := mustIncludeError(t, err)

	if ie.Kind != includetag.KindPartialNotFound {
		t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindPartialNotFound)
	}
	if diff := cmp.Diff([]string{"missing.txt", "inner.txt", "outer.txt"}, framePartials(ie)); diff != "" {
		t.Fatalf("partials mismatch (-want +got):\n%s", diff)
	}
	wantTags := []string{
		"{% include 'missing.txt' %}",
		"{% include 'inner.txt' depth:1 %}",
		"{% include 'outer.txt' %}",
	}
	var gotTags []string
	for _, f := range ie.Frames {
		gotTags = append(gotTags, f.Tag)
	}
	if diff := cmp.Diff(wantTags, gotTags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
	if len(ie.Trace()) != 3 {
		t.Fatalf("trace = %v", ie.Trace())
	}
}

func TestInclude_RecursionIsBounded(t *testing.T) {
	store := partials.NewStore(partials.MapSource{
		"self.txt": "x{% include 'self.txt' %}",
	})
	tpl, err := store.Set().FromString("{% include 'self.txt' %}")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	rt := includetag.NewRuntime(store, 4)
	_, err = tpl.Execute(includetag.Attach(nil, rt))

	ie := mustIncludeError(t, err)
	if ie.Kind != includetag.KindRecursionLimit {
		t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindRecursionLimit)
	}
	if got := len(ie.Frames); got != 5 {
		t.Fatalf("frames = %d, want 5", got)
	}
	if rt.Depth() != 0 {
		t.Fatalf("scope left open: %v", rt.OpenScopes())
	}
}

func TestInclude_WithoutRuntime(t *testing.T) {
	h := newHarness(testPartials())

	_, err := h.compile(t, "{% include 'example.txt' %}").Execute(nil)
	ie := mustIncludeError(t, err)
	if ie.Kind != includetag.KindMissingRuntime {
		t.Fatalf("kind = %q, want %q", ie.Kind, includetag.KindMissingRuntime)
	}
}

func TestInclude_IsIdempotentAcrossRuntimes(t *testing.T) {
	h := newHarness(testPartials())
	vars := pongo2.Context{"num": 5.0, "numTwo": 10.0, "label": "five"}

	ok := h.compile(t, `{% include 'example.txt' %}|{% include 'example_var.txt' example_var:label %}`)
	first, err := ok.Execute(includetag.Attach(vars, h.runtime()))
	if err != nil {
		t.Fatalf("first render: %v", err)
	}
	second, err := ok.Execute(includetag.Attach(vars, h.runtime()))
	if err != nil {
		t.Fatalf("second render: %v", err)
	}
	if first != second || first != "5 wat wot|five" {
		t.Fatalf("renders differ: %q vs %q", first, second)
	}

	failing := h.compile(t, "{% include 'nope.txt' a:1 %}")
	_, errA := failing.Execute(includetag.Attach(vars, h.runtime()))
	_, errB := failing.Execute(includetag.Attach(vars, h.runtime()))
	ieA, ieB := mustIncludeError(t, errA), mustIncludeError(t, errB)
	if ieA.Error() != ieB.Error() {
		t.Fatalf("errors differ:\n%v\n%v", ieA, ieB)
	}
	if len(ieA.Frames) != 1 {
		t.Fatalf("frames accumulated across renders: %+v", ieA.Frames)
	}
}

func framePartials(ie *includetag.Error) []string {
	out := make([]string, 0, len(ie.Frames))
	for _, f := range ie.Frames {
		out = append(out, f.Partial)
	}
	return out
}
