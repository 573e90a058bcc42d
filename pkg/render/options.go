package render

import (
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/afero"

	"github.com/goliatone/go-include/pkg/partials"
)

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	name       string
	source     partials.Source
	baseDir    string
	templates  fs.FS
	aferoFs    afero.Fs
	extension  string
	templateFn map[string]any
	globalData map[string]any
	maxDepth   int
	logger     *slog.Logger
}

// WithSource resolves templates and partials through src. It is consulted
// before any directory or filesystem configured with the other options.
func WithSource(src partials.Source) Option {
	return func(cfg *config) {
		cfg.source = src
	}
}

// WithBaseDir loads templates and partials from a directory on disk.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS loads templates and partials from an fs.FS.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithAferoFs loads templates and partials from an afero filesystem.
func WithAferoFs(files afero.Fs) Option {
	return func(cfg *config) {
		cfg.aferoFs = files
	}
}

// WithExtension overrides the extension appended to extensionless template
// names passed to RenderTemplate.
func WithExtension(ext string) Option {
	return func(cfg *config) {
		trimmed := strings.TrimSpace(ext)
		if trimmed == "" {
			return
		}
		if !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		cfg.extension = trimmed
	}
}

// WithTemplateFunc registers helper functions or filters when the engine loads.
func WithTemplateFunc(funcs map[string]any) Option {
	return func(cfg *config) {
		if len(funcs) == 0 {
			return
		}
		if cfg.templateFn == nil {
			cfg.templateFn = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.templateFn[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds global context values available to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if len(data) == 0 {
			return
		}
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// WithMaxDepth bounds how deeply includes may nest within one render.
func WithMaxDepth(depth int) Option {
	return func(cfg *config) {
		if depth > 0 {
			cfg.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used by the engine and its partial store.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithName names the underlying pongo2 template set.
func WithName(name string) Option {
	return func(cfg *config) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.name = trimmed
		}
	}
}
