package includetag

import (
	"sync"

	"github.com/flosch/pongo2/v6"
)

// TagName is the name the tag is registered under.
const TagName = "include"

// IncludeKey is the variable partials read their bindings from.
const IncludeKey = "include"

var (
	registerOnce sync.Once
	registerErr  error
)

// Register installs the tag in pongo2's global tag registry, replacing the
// built-in include tag. Subsequent calls return the first call's result.
func Register() error {
	registerOnce.Do(func() {
		if err := pongo2.ReplaceTag(TagName, Parse); err != nil {
			registerErr = pongo2.RegisterTag(TagName, Parse)
		}
	})
	return registerErr
}
