// Package render wires pongo2, the include tag and a partial store into a
// ready to use template engine.
//
// Every render gets its own include runtime, so nothing a template does during
// one render is visible to the next.
package render
