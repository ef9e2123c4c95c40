// Package extension implements the pluggable "external collaborator"
// mechanism (spec.md §4.7): a keyword set plus an invoke(keyword, args,
// context) -> Value function, registered by name before a program is
// parsed and dispatched at run time via the VM's OpInvokeExtension
// opcode.
//
// Keywords are resolved at parse time: cmd/tawk builds the Registry
// first (sockets, stdinwrap, and any -x/-y extensions the flags
// enable), then hands it to pkg/ast.Resolve as a Registry satisfies
// ast.ExtensionLookup. Resolve checks every call's name against the
// function table, the builtin set, and finally the registry in that
// order, arity-checking a matched keyword and reporting an unresolved
// name as a SemanticError — so by the time pkg/compiler emits
// OpCall/OpInvokeExtension it is reading back a decision Resolve
// already made, not guessing, and an unknown keyword never reaches the
// VM.
package extension

import (
	"fmt"

	"github.com/tawk-lang/tawk/pkg/value"
)

// Context is the subset of VM-owned facilities an extension may call
// back into. Kept intentionally small: extensions keep their own
// private resource tables (see sockets.go) rather than reaching into
// VM internals.
type Context interface {
	// Warnf reports a best-effort diagnostic without aborting execution.
	Warnf(format string, args ...any)
}

// Extension is implemented by a pluggable external collaborator.
type Extension interface {
	// Name identifies the extension module for duplicate-registration
	// checks; it is not itself a callable keyword.
	Name() string
	Keywords() []string
	// Arity reports the expected argument count for keyword, or -1 if
	// the keyword accepts a variable number of arguments.
	Arity(keyword string) int
	Invoke(keyword string, args []value.Value, ctx Context) (value.Value, error)
}

// Registry resolves keyword -> Extension at parse time and dispatches
// invocations at run time.
type Registry struct {
	byName    map[string]Extension
	byKeyword map[string]Extension
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: map[string]Extension{}, byKeyword: map[string]Extension{}}
}

// Register adds ext's keywords. Registering the same extension name
// twice is a no-op (the caller may warn); two distinct extensions
// claiming the same keyword is an error.
func (r *Registry) Register(ext Extension) error {
	if _, dup := r.byName[ext.Name()]; dup {
		return nil
	}
	for _, kw := range ext.Keywords() {
		if owner, exists := r.byKeyword[kw]; exists {
			return fmt.Errorf("extension keyword %q already registered by %q", kw, owner.Name())
		}
	}
	r.byName[ext.Name()] = ext
	for _, kw := range ext.Keywords() {
		r.byKeyword[kw] = ext
	}
	return nil
}

// Lookup reports whether keyword names a registered extension call,
// used by the VM's OpInvokeExtension handler to find the owning
// Extension to dispatch to.
func (r *Registry) Lookup(keyword string) (Extension, bool) {
	e, ok := r.byKeyword[keyword]
	return e, ok
}

// LookupArity reports keyword's expected argument count without handing
// back the whole Extension, satisfying ast.ExtensionLookup so
// pkg/ast.Resolve can arity-check and mark an extension call without
// importing this package.
func (r *Registry) LookupArity(keyword string) (int, bool) {
	e, ok := r.byKeyword[keyword]
	if !ok {
		return 0, false
	}
	return e.Arity(keyword), true
}

// Invoke dispatches keyword to its owning extension.
func (r *Registry) Invoke(keyword string, args []value.Value, ctx Context) (value.Value, error) {
	ext, ok := r.byKeyword[keyword]
	if !ok {
		return value.Uninitialized, fmt.Errorf("unknown extension keyword %q", keyword)
	}
	return ext.Invoke(keyword, args, ctx)
}
