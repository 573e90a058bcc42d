// Package includetag implements a Liquid style include tag for pongo2:
//
//	{% include 'card.liquid' %}
//	{% include partial_name title:page.title count:3 %}
//
// The first argument is an expression yielding the partial name. Any
// following name:value pairs are evaluated when the tag renders and exposed to
// the partial as fields of a single object called include, so the partial
// above can read {{ include.title }}. Callers' variables stay visible to the
// partial; bindings never leak back into the caller.
//
// Partials are resolved through the Runtime attached to the render context
// with Attach. Failures surface as *Error values carrying a Kind and one Frame
// per include site they crossed, innermost first.
package includetag
