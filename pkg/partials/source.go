package partials

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// ErrNotFound reports a partial name no source knows about. It matches
// fs.ErrNotExist as well.
var ErrNotFound = fmt.Errorf("partial not found: %w", fs.ErrNotExist)

// Source looks up the raw template text of a partial.
type Source interface {
	Get(name string) (string, error)
}

// MapSource serves partials from memory.
type MapSource map[string]string

// Get implements Source.
func (m MapSource) Get(name string) (string, error) {
	text, ok := m[name]
	if !ok {
		return "", fmt.Errorf("partials: %q: %w", name, ErrNotFound)
	}
	return text, nil
}

// FSSource serves partials from an fs.FS, typically an embed.FS.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource wraps fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// Get implements Source.
func (s *FSSource) Get(name string) (string, error) {
	clean := path.Clean(strings.TrimPrefix(name, "/"))
	if !fs.ValidPath(clean) {
		return "", fmt.Errorf("partials: invalid name %q: %w", name, ErrNotFound)
	}
	data, err := fs.ReadFile(s.fsys, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("partials: %q: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("partials: read %s: %w", name, err)
	}
	return string(data), nil
}

// AferoSource serves partials from an afero filesystem. Names are resolved
// from the filesystem root and cannot climb above it.
type AferoSource struct {
	fs afero.Fs
}

// NewAferoSource wraps an afero filesystem.
func NewAferoSource(fsys afero.Fs) *AferoSource {
	return &AferoSource{fs: fsys}
}

// NewDirSource serves partials from a directory on disk.
func NewDirSource(dir string) (*AferoSource, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("partials: directory is required")
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("partials: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("partials: %s is not a directory", dir)
	}
	return NewAferoSource(afero.NewBasePathFs(afero.NewOsFs(), dir)), nil
}

// Get implements Source.
func (s *AferoSource) Get(name string) (string, error) {
	clean := filepath.Join(string(filepath.Separator), filepath.FromSlash(name))
	data, err := afero.ReadFile(s.fs, clean)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("partials: %q: %w", name, ErrNotFound)
		}
		return "", fmt.Errorf("partials: read %s: %w", name, err)
	}
	return string(data), nil
}

type chain []Source

// Chain consults each source in order and returns the first hit. Errors other
// than ErrNotFound stop the search.
func Chain(sources ...Source) Source {
	if len(sources) == 1 {
		return sources[0]
	}
	return chain(sources)
}

func (c chain) Get(name string) (string, error) {
	for _, src := range c {
		text, err := src.Get(name)
		if err == nil {
			return text, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", fmt.Errorf("partials: %q: %w", name, ErrNotFound)
}
