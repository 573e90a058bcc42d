// Package scope provides named, nested variable frames layered over pongo2
// execution contexts.
//
// A Stack belongs to a single render call. Every frame opened on it must be
// closed exactly once; Run does that on both the success and the error path.
// Frames never write into their parent: values set on a Scope live in the
// child context's private map and disappear when the frame is dropped.
package scope
