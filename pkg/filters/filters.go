// Package filters registers the Liquid filters templates written for the
// include tag commonly rely on and pongo2 lacks.
package filters

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-include/pkg/value"
)

var (
	stripPolicyOnce sync.Once
	stripPolicy     *bluemonday.Policy
)

// RegisterDefaults registers size and strip_html unless a filter with the
// same name already exists.
func RegisterDefaults() error {
	defaults := []struct {
		name string
		fn   pongo2.FilterFunction
	}{
		{name: "size", fn: Size},
		{name: "strip_html", fn: StripHTML},
	}
	for _, f := range defaults {
		if pongo2.FilterExists(f.name) {
			continue
		}
		if err := pongo2.RegisterFilter(f.name, f.fn); err != nil {
			return err
		}
	}
	return nil
}

// Size returns the character count of a scalar's text or the number of
// entries in a collection. Anything else has size 0.
func Size(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	if n, ok := value.Size(in); ok {
		return pongo2.AsValue(n), nil
	}
	if s, ok := value.Scalar(in); ok {
		return pongo2.AsValue(utf8.RuneCountInString(s)), nil
	}
	return pongo2.AsValue(0), nil
}

// StripHTML removes every tag from the input, keeping the text.
func StripHTML(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	s, ok := value.Scalar(in)
	if !ok {
		return pongo2.AsValue(""), nil
	}
	return pongo2.AsSafeValue(strings.TrimSpace(stripHTMLPolicy().Sanitize(s))), nil
}

func stripHTMLPolicy() *bluemonday.Policy {
	stripPolicyOnce.Do(func() {
		stripPolicy = bluemonday.StrictPolicy()
	})
	return stripPolicy
}
