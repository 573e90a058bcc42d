// Package partials resolves named template fragments and compiles them with
// pongo2.
//
// A Source returns the raw text of a partial by name. Store wraps a Source,
// compiles each partial once with a shared pongo2.TemplateSet and caches the
// result; it is safe for concurrent lookups from renders in flight. Watcher
// drops cached entries when the files backing a directory source change.
package partials
