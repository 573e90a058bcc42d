package partials

import (
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync"

	"github.com/flosch/pongo2/v6"
)

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithTemplateSet compiles partials with set, so its globals and options apply.
func WithTemplateSet(set *pongo2.TemplateSet) StoreOption {
	return func(s *Store) {
		if set != nil {
			s.set = set
		}
	}
}

// WithLogger sets the logger used for cache events.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Store compiles partials on first use and caches them by name.
type Store struct {
	mu     sync.RWMutex
	source Source
	set    *pongo2.TemplateSet
	cache  map[string]*pongo2.Template
	logger *slog.Logger
}

// NewStore builds a Store over source. Without WithTemplateSet the store
// creates its own set backed by a Loader over the same source.
func NewStore(source Source, opts ...StoreOption) *Store {
	s := &Store{
		source: source,
		cache:  make(map[string]*pongo2.Template),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.set == nil {
		s.set = NewSet("partials", source)
	}
	return s
}

// Partial returns the compiled partial called name. Unknown names yield an
// error matching ErrNotFound. Names are normalised with Key, so "/card.liquid"
// and "card.liquid" share one entry.
func (s *Store) Partial(name string) (*pongo2.Template, error) {
	key := Key(name)

	s.mu.RLock()
	if tpl, ok := s.cache[key]; ok {
		s.mu.RUnlock()
		return tpl, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if tpl, ok := s.cache[key]; ok {
		return tpl, nil
	}

	text, err := s.source.Get(key)
	if err != nil {
		return nil, err
	}
	tpl, err := s.set.FromString(text)
	if err != nil {
		return nil, fmt.Errorf("partials: compile %q: %w", name, err)
	}

	s.cache[key] = tpl
	s.logger.Debug("partial compiled", slog.String("partial", key))
	return tpl, nil
}

// Invalidate drops the cached template for name.
func (s *Store) Invalidate(name string) {
	key := Key(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cache[key]; ok {
		delete(s.cache, key)
		s.logger.Debug("partial invalidated", slog.String("partial", key))
	}
}

// Reset drops every cached template.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache = make(map[string]*pongo2.Template)
}

// Cached reports whether name has a compiled entry.
func (s *Store) Cached(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.cache[Key(name)]
	return ok
}

// Key is the cache key for a partial name: slash separated, cleaned and
// relative to the source root. It resolves to the same file the filesystem
// sources read.
func Key(name string) string {
	return path.Clean("/" + name)[1:]
}

// Set returns the template set partials are compiled with.
func (s *Store) Set() *pongo2.TemplateSet {
	return s.set
}

// Loader exposes a Source as a pongo2.TemplateLoader so loader-based tags
// such as extends and import resolve against the same partials.
type Loader struct {
	source Source
}

// NewLoader wraps source.
func NewLoader(source Source) *Loader {
	return &Loader{source: source}
}

// Abs implements pongo2.TemplateLoader. Partial names are already absolute.
func (l *Loader) Abs(_, name string) string {
	return name
}

// Get implements pongo2.TemplateLoader.
func (l *Loader) Get(path string) (io.Reader, error) {
	text, err := l.source.Get(path)
	if err != nil {
		return nil, err
	}
	return strings.NewReader(text), nil
}

// NewSet creates a pongo2 template set whose loader reads from source.
func NewSet(name string, source Source) *pongo2.TemplateSet {
	return pongo2.NewSet(name, NewLoader(source))
}
