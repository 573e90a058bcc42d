package includetag_test

import (
	"errors"
	"testing"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-include/pkg/filters"
	"github.com/goliatone/go-include/pkg/includetag"
	"github.com/goliatone/go-include/pkg/partials"
)

var errFilterFailed = errors.New("filter exploded")

// lastParsed holds the instruction most recently built by the capture tag.
var lastParsed *includetag.Instruction

const captureTag = "include_capture"

func init() {
	if err := includetag.Register(); err != nil {
		panic(err)
	}
	if err := filters.RegisterDefaults(); err != nil {
		panic(err)
	}
	if err := pongo2.RegisterTag(captureTag, captureParse); err != nil {
		panic(err)
	}
	if !pongo2.FilterExists("fail") {
		if err := pongo2.RegisterFilter("fail", failFilter); err != nil {
			panic(err)
		}
	}
}

// captureParse parses like the include tag and keeps the instruction for
// inspection.
func captureParse(doc *pongo2.Parser, start *pongo2.Token, args *pongo2.Parser) (pongo2.INodeTag, *pongo2.Error) {
	node, err := includetag.Parse(doc, start, args)
	if err != nil {
		return nil, err
	}
	lastParsed = node.(*includetag.Instruction)
	return node, nil
}

func failFilter(_ *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return nil, &pongo2.Error{Sender: "filter:fail", OrigError: errFilterFailed}
}

// testPartials mirrors the fixtures the tag was first specified against.
func testPartials() partials.MapSource {
	return partials.MapSource{
		"example.txt":     `{{'whooo' | size}}{%comment%}What happens{%endcomment%} {%if num < numTwo%}wat{%else%}wot{%endif%} {%if num > numTwo%}wat{%else%}wot{%endif%}`,
		"example_var.txt": `{{include.example_var}}`,
	}
}

type countingSource struct {
	inner includetag.PartialSource
	calls int
}

func (c *countingSource) Partial(name string) (*pongo2.Template, error) {
	c.calls++
	return c.inner.Partial(name)
}

type harness struct {
	store *partials.Store
}

func newHarness(src partials.MapSource) *harness {
	return &harness{store: partials.NewStore(src)}
}

func (h *harness) compile(t *testing.T, text string) *pongo2.Template {
	t.Helper()
	tpl, err := h.store.Set().FromString(text)
	if err != nil {
		t.Fatalf("compile %q: %v", text, err)
	}
	return tpl
}

func (h *harness) runtime() *includetag.Runtime {
	return includetag.NewRuntime(h.store, 0)
}

func (h *harness) render(t *testing.T, text string, vars pongo2.Context) (string, error) {
	t.Helper()
	return h.compile(t, text).Execute(includetag.Attach(vars, h.runtime()))
}

func mustIncludeError(t *testing.T, err error) *includetag.Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	ie, ok := includetag.AsError(err)
	if !ok {
		t.Fatalf("expected include error in chain, got %T: %v", err, err)
	}
	return ie
}
