package include

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-include/pkg/config"
	"github.com/goliatone/go-include/pkg/includetag"
	"github.com/goliatone/go-include/pkg/partials"
	"github.com/goliatone/go-include/pkg/render"
)

// Engine aliases render.Engine so callers can stay on the root package.
type Engine = render.Engine

// Renderer aliases render.Renderer.
type Renderer = render.Renderer

// Option aliases render.Option.
type Option = render.Option

// Config aliases config.Config.
type Config = config.Config

// Error aliases includetag.Error, the error returned for failed includes.
type Error = includetag.Error

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// New validates cfg and builds an engine rooted at cfg.PartialsDir. Options
// are applied after the ones derived from cfg, so they win.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("include: invalid config: %w", err)
	}

	options := []Option{
		render.WithBaseDir(cfg.PartialsDir),
		render.WithExtension(cfg.Extension),
		render.WithMaxDepth(cfg.MaxDepth),
		render.WithGlobalData(cfg.Globals),
	}
	options = append(options, opts...)

	engine, err := render.New(options...)
	if err != nil {
		return nil, fmt.Errorf("include: %w", err)
	}
	return engine, nil
}

// RenderString builds an engine from cfg and renders content once.
func RenderString(cfg Config, content string, data any, opts ...Option) (string, error) {
	engine, err := New(cfg, opts...)
	if err != nil {
		return "", err
	}
	return engine.RenderString(content, data)
}

// Watch invalidates the renderer's cached partials as files under dir change,
// until ctx is cancelled.
func Watch(ctx context.Context, r Renderer, dir string, opts ...partials.WatchOption) error {
	if r == nil {
		return errors.New("include: renderer is nil")
	}
	watcher, err := partials.NewWatcher(dir, r.Store(), opts...)
	if err != nil {
		return fmt.Errorf("include: %w", err)
	}
	defer watcher.Close()

	err = watcher.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Trace returns the include frames recorded in err, innermost first, or nil
// when err did not come from an include tag.
func Trace(err error) []string {
	ie, ok := includetag.AsError(err)
	if !ok {
		return nil
	}
	return ie.Trace()
}
