// Package registry stores named votings declared with declare blocks.
//
// A Registry only grows: names are never rebound or removed. It is safe for
// concurrent use; lookups take a read lock, registrations a write lock, and
// no lock is held while a voting is parsed or evaluated.
package registry

import (
	"crypto/sha256"
	"fmt"
	"slices"
	"sync"

	"mercator-hq/ldatranslate/pkg/voting/ast"
	"mercator-hq/ldatranslate/pkg/voting/buildin"
	"mercator-hq/ldatranslate/pkg/voting/interpreter"
	"mercator-hq/ldatranslate/pkg/voting/parser"
)

// Registry is a thread-safe name to function map.
type Registry struct {
	mu        sync.RWMutex
	functions map[string]*ast.Function
	version   string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		functions: make(map[string]*ast.Function),
	}
}

// Register parses text, which must be a declare block, and binds the
// declared name. Names referenced by text resolve against r.
func (r *Registry) Register(text string) error {
	decl, err := r.parseDeclaration("register", text)
	if err != nil {
		return err
	}
	return r.bind("register", decl.Function, decl.Name)
}

// RegisterAt is like Register but additionally binds name to the same
// function, so both names refer to one shared instance.
func (r *Registry) RegisterAt(name, text string) error {
	if name == "" || parser.IsKeyword(name) || !isName(name) {
		return &RegistrationError{Name: name, Operation: "register_at", Err: ErrInvalidName}
	}
	if buildin.IsBuildIn(name) {
		return &RegistrationError{Name: name, Operation: "register_at", Err: ErrBuildInNotRegistrable}
	}
	decl, err := r.parseDeclaration("register_at", text)
	if err != nil {
		return err
	}
	return r.bind("register_at", decl.Function, decl.Name, name)
}

func (r *Registry) parseDeclaration(op, text string) (*ast.Declaration, error) {
	v, err := parser.Parse(text, r)
	if err != nil {
		return nil, &RegistrationError{Operation: op, Err: err}
	}
	switch n := v.(type) {
	case *ast.Declaration:
		if buildin.IsBuildIn(n.Name) {
			return nil, &RegistrationError{Name: n.Name, Operation: op, Err: ErrBuildInNotRegistrable}
		}
		return n, nil
	case *ast.BuildInRef:
		return nil, &RegistrationError{Name: n.BuildIn.String(), Operation: op, Err: ErrBuildInNotRegistrable}
	case *ast.NamedRef:
		return nil, &RegistrationError{Name: n.Name, Operation: op, Err: ErrAlreadyRegistered}
	case *ast.LimitedRef:
		return nil, &RegistrationError{Operation: op, Err: ErrLimitedNotRegistrable}
	default:
		return nil, &RegistrationError{Operation: op, Err: ErrMissingDeclarationName}
	}
}

// bind stores fn under every name, or under none if any name is taken.
func (r *Registry) bind(op string, fn *ast.Function, names ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range names {
		if _, ok := r.functions[name]; ok {
			return &RegistrationError{Name: name, Operation: op, Err: ErrAlreadyRegistered}
		}
	}
	for _, name := range names {
		r.functions[name] = fn
	}
	r.updateVersion()
	return nil
}

// Get returns the function bound to name.
func (r *Registry) Get(name string) (*ast.Function, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.functions[name]
	return fn, ok
}

// Lookup resolves name to a build-in or a registered voting.
func (r *Registry) Lookup(name string) (interpreter.Method, bool) {
	if b, ok := buildin.Parse(name); ok {
		return interpreter.BuildInMethod(b), true
	}
	if fn, ok := r.Get(name); ok {
		return interpreter.RegisteredMethod(name, fn), true
	}
	return interpreter.Method{}, false
}

// Names returns every registered name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of registered names.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.functions)
}

// Version returns a hash identifying the set of registered names.
// Since names are never rebound, equal versions imply equal contents.
func (r *Registry) Version() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.version
}

// updateVersion must be called with the write lock held.
func (r *Registry) updateVersion() {
	names := make([]string, 0, len(r.functions))
	for name := range r.functions {
		names = append(names, name)
	}
	slices.Sort(names)

	h := sha256.New()
	for _, name := range names {
		fmt.Fprintf(h, "%s\n", name)
	}
	r.version = fmt.Sprintf("%x", h.Sum(nil))[:16]
}

func isName(s string) bool {
	for i, r := range s {
		if r == '_' || ('a' <= r && r <= 'z') || ('A' <= r && r <= 'Z') || r >= 0x80 {
			continue
		}
		if i > 0 && '0' <= r && r <= '9' {
			continue
		}
		return false
	}
	return true
}

var _ parser.Resolver = (*Registry)(nil)
