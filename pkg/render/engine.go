package render

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"reflect"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"

	"github.com/goliatone/go-include/pkg/filters"
	"github.com/goliatone/go-include/pkg/includetag"
	"github.com/goliatone/go-include/pkg/partials"
	"github.com/goliatone/go-include/pkg/scope"
)

// Engine renders pongo2 templates whose include tags resolve against a shared
// partial store.
type Engine struct {
	mu sync.RWMutex

	templateSet *pongo2.TemplateSet
	store       *partials.Store
	tplExt      string
	maxDepth    int
	logger      *slog.Logger
}

// New constructs an Engine using the provided configuration options.
func New(options ...Option) (*Engine, error) {
	cfg := &config{
		name:      "include",
		extension: ".liquid",
		maxDepth:  scope.DefaultMaxDepth,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	var sources []partials.Source
	if cfg.source != nil {
		sources = append(sources, cfg.source)
	}
	if cfg.baseDir != "" {
		src, err := partials.NewDirSource(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("render: create directory source: %w", err)
		}
		sources = append(sources, src)
	}
	if cfg.aferoFs != nil {
		sources = append(sources, partials.NewAferoSource(cfg.aferoFs))
	}
	if cfg.templates != nil {
		sources = append(sources, partials.NewFSSource(cfg.templates))
	}
	if len(sources) == 0 {
		return nil, errors.New("render: need to provide a partial source, base dir or fs.FS")
	}

	if err := includetag.Register(); err != nil {
		return nil, fmt.Errorf("render: register include tag: %w", err)
	}
	if err := filters.RegisterDefaults(); err != nil {
		return nil, fmt.Errorf("render: register default filters: %w", err)
	}

	source := partials.Chain(sources...)
	set := partials.NewSet(cfg.name, source)
	engine := &Engine{
		templateSet: set,
		store:       partials.NewStore(source, partials.WithTemplateSet(set), partials.WithLogger(cfg.logger)),
		tplExt:      cfg.extension,
		maxDepth:    cfg.maxDepth,
		logger:      cfg.logger,
	}

	if err := engine.GlobalContext(cfg.globalData); err != nil {
		return nil, fmt.Errorf("render: apply global data: %w", err)
	}
	for name, fn := range cfg.templateFn {
		if err := engine.registerTemplateFunc(name, fn); err != nil {
			return nil, fmt.Errorf("render: register template func %q: %w", name, err)
		}
	}

	return engine, nil
}

// Store exposes the partial store, e.g. to attach a partials.Watcher.
func (e *Engine) Store() *partials.Store {
	return e.store
}

// Render treats name as template content when it contains template
// delimiters and as a template name otherwise.
func (e *Engine) Render(name string, data any, out ...io.Writer) (string, error) {
	if isTemplateContent(name) {
		return e.RenderString(name, data, out...)
	}
	return e.RenderTemplate(name, data, out...)
}

// RenderTemplate renders the named template. Names without an extension get
// the configured one appended.
func (e *Engine) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("render: engine is nil")
	}
	templatePath := strings.TrimSpace(name)
	if path.Ext(templatePath) == "" {
		templatePath += e.tplExt
	}

	tmpl, err := e.store.Partial(templatePath)
	if err != nil {
		return "", fmt.Errorf("render: load template %q: %w", templatePath, err)
	}

	rendered, err := e.execute(tmpl, data)
	if err != nil {
		e.logFailure(templatePath, err)
		return "", fmt.Errorf("render: execute template %q: %w", templatePath, err)
	}
	if err := writeAll(rendered, out); err != nil {
		return "", err
	}
	return rendered, nil
}

// RenderString compiles and renders templateContent.
func (e *Engine) RenderString(templateContent string, data any, out ...io.Writer) (string, error) {
	if e == nil || e.templateSet == nil {
		return "", errors.New("render: engine is nil")
	}

	tmpl, err := e.templateSet.FromString(templateContent)
	if err != nil {
		return "", fmt.Errorf("render: parse template string: %w", err)
	}

	rendered, err := e.execute(tmpl, data)
	if err != nil {
		e.logFailure("<string>", err)
		return "", fmt.Errorf("render: execute template string: %w", err)
	}
	if err := writeAll(rendered, out); err != nil {
		return "", err
	}
	return rendered, nil
}

// RegisterFilter registers a template filter. Filters are process wide in
// pongo2, so an existing name is an error.
func (e *Engine) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	if strings.TrimSpace(name) == "" || fn == nil {
		return errors.New("render: filter name and function required")
	}

	filter := func(in *pongo2.Value, param *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		var paramVal any
		if param != nil {
			paramVal = param.Interface()
		}
		result, err := fn(in.Interface(), paramVal)
		if err != nil {
			return nil, &pongo2.Error{Sender: "custom_filter", OrigError: err}
		}
		return pongo2.AsValue(result), nil
	}

	if pongo2.FilterExists(name) {
		return fmt.Errorf("render: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, filter)
}

// GlobalContext merges data into the globals every template sees.
func (e *Engine) GlobalContext(data any) error {
	if e == nil || e.templateSet == nil {
		return errors.New("render: engine is nil")
	}
	if data == nil {
		return nil
	}

	globalCtx, err := convertToContext(data)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals.Update(globalCtx)
	return nil
}

func (e *Engine) execute(tmpl *pongo2.Template, data any) (string, error) {
	viewContext, err := convertToContext(data)
	if err != nil {
		return "", fmt.Errorf("render: convert data: %w", err)
	}
	runtime := includetag.NewRuntime(e.store, e.maxDepth)

	var buf bytes.Buffer

	e.mu.RLock()
	err = tmpl.ExecuteWriter(includetag.Attach(viewContext, runtime), &buf)
	e.mu.RUnlock()

	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Engine) logFailure(name string, err error) {
	ie, ok := includetag.AsError(err)
	if !ok {
		return
	}
	e.logger.Warn("include failed",
		slog.String("template", name),
		slog.String("kind", string(ie.Kind)),
		slog.Any("trace", ie.Trace()))
}

func (e *Engine) registerTemplateFunc(name string, fn any) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || fn == nil {
		return nil
	}

	if filter, ok := fn.(pongo2.FilterFunction); ok {
		if pongo2.FilterExists(trimmed) {
			return nil
		}
		return pongo2.RegisterFilter(trimmed, filter)
	}

	if !isCallable(fn) {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.templateSet.Globals == nil {
		e.templateSet.Globals = make(pongo2.Context)
	}
	e.templateSet.Globals[trimmed] = fn
	return nil
}

func writeAll(rendered string, out []io.Writer) error {
	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return err
		}
	}
	return nil
}

func isTemplateContent(s string) bool {
	return strings.Contains(s, "{{") || strings.Contains(s, "{%")
}

func isCallable(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	return rv.IsValid() && rv.Kind() == reflect.Func
}
