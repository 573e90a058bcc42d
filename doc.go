// Package include wires the Liquid style include tag, the partial store and
// the render engine together from a single Config.
//
// The include tag splices a named partial into the current render:
//
//	{% include 'card.liquid' title:post.title body:post.body %}
//
// Bindings are visible inside the partial under the reserved name include,
// e.g. {{ include.title }}, and disappear once the partial finishes.
package include
