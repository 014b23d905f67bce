// Package scope provides the variable contexts a voting is evaluated against.
//
// One evaluation sees exactly one global context and one context per voter.
// Contexts are owned by the caller; the interpreter only reads and writes them.
package scope

import (
	"slices"

	"mercator-hq/ldatranslate/pkg/voting/value"
)

// Context is the capability a voting needs from a variable scope.
type Context interface {
	// Get returns the value bound to name.
	Get(name string) (value.Value, bool)

	// Set binds name to v, replacing any previous binding.
	Set(name string, v value.Value)

	// Contains reports whether name is bound.
	Contains(name string) bool

	// Snapshot returns every binding in insertion order.
	Snapshot() []Var
}

// Var is a single named binding.
type Var struct {
	Name  string      `json:"name" yaml:"name"`
	Value value.Value `json:"value" yaml:"value"`
}

// Vars is an insertion-ordered Context backed by a slice and an index.
// The zero value is ready to use. Vars is not safe for concurrent use.
type Vars struct {
	vars  []Var
	index map[string]int
}

// New creates a context pre-populated with vars, applied in order.
func New(vars ...Var) *Vars {
	c := &Vars{}
	for _, v := range vars {
		c.Set(v.Name, v.Value)
	}
	return c
}

// FromMap creates a context from m. Keys are inserted in sorted order
// so that the resulting snapshot is deterministic.
func FromMap(m map[string]value.Value) *Vars {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	c := &Vars{}
	for _, k := range keys {
		c.Set(k, m[k])
	}
	return c
}

// Get implements Context.
func (c *Vars) Get(name string) (value.Value, bool) {
	i, ok := c.index[name]
	if !ok {
		return value.Value{}, false
	}
	return c.vars[i].Value, true
}

// Set implements Context.
func (c *Vars) Set(name string, v value.Value) {
	if i, ok := c.index[name]; ok {
		c.vars[i].Value = v
		return
	}
	if c.index == nil {
		c.index = make(map[string]int)
	}
	c.index[name] = len(c.vars)
	c.vars = append(c.vars, Var{Name: name, Value: v})
}

// Contains implements Context.
func (c *Vars) Contains(name string) bool {
	_, ok := c.index[name]
	return ok
}

// Snapshot implements Context.
func (c *Vars) Snapshot() []Var {
	return slices.Clone(c.vars)
}

// Len returns the number of bindings.
func (c *Vars) Len() int { return len(c.vars) }

// Clone returns an independent copy of c.
func (c *Vars) Clone() *Vars {
	return New(c.vars...)
}

// combined layers a voter context over the global context.
type combined struct {
	voter  Context
	global Context
}

// Combined returns the view used while evaluating per-voter bodies.
// Reads consult voter first and fall back to global; writes go to voter.
func Combined(voter, global Context) Context {
	return &combined{voter: voter, global: global}
}

func (c *combined) Get(name string) (value.Value, bool) {
	if v, ok := c.voter.Get(name); ok {
		return v, true
	}
	return c.global.Get(name)
}

func (c *combined) Set(name string, v value.Value) {
	c.voter.Set(name, v)
}

func (c *combined) Contains(name string) bool {
	return c.voter.Contains(name) || c.global.Contains(name)
}

// Snapshot lists global bindings not shadowed by the voter, followed by the voter's.
func (c *combined) Snapshot() []Var {
	voter := c.voter.Snapshot()
	global := c.global.Snapshot()
	out := make([]Var, 0, len(voter)+len(global))
	for _, g := range global {
		if !c.voter.Contains(g.Name) {
			out = append(out, g)
		}
	}
	return append(out, voter...)
}

// Env converts the bindings of ctx into a plain map for the expression evaluator.
func Env(ctx Context) map[string]any {
	snap := ctx.Snapshot()
	env := make(map[string]any, len(snap))
	for _, v := range snap {
		env[v.Name] = v.Value.Native()
	}
	return env
}

var _ Context = (*Vars)(nil)
