package interpreter

import (
	"mercator-hq/ldatranslate/pkg/voting/ast"
	"mercator-hq/ldatranslate/pkg/voting/buildin"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

// HostFunc is a voting implemented by the embedding host. It sees the
// contexts only through scope.Context and only for the duration of the call.
// The result is converted with value.FromNative.
type HostFunc func(global scope.Context, voters []scope.Context) (any, error)

// MethodKind tells which variant a Method holds.
type MethodKind uint8

const (
	MethodNone MethodKind = iota
	MethodBuildIn
	MethodRegistered
	MethodForeign
	MethodParsed
)

// Method is the host-facing handle of something that can vote: a build-in,
// a registered function, a host function or a freshly parsed tree.
// The zero Method evaluates to ErrNoValue.
type Method struct {
	kind     MethodKind
	name     string
	buildIn  buildin.Voting
	function *ast.Function
	foreign  HostFunc
	tree     ast.Voting
}

// BuildInMethod returns a Method for a build-in.
func BuildInMethod(b buildin.Voting) Method {
	return Method{kind: MethodBuildIn, name: b.String(), buildIn: b}
}

// RegisteredMethod returns a Method for a function stored under name.
func RegisteredMethod(name string, fn *ast.Function) Method {
	return Method{kind: MethodRegistered, name: name, function: fn}
}

// ForeignMethod returns a Method backed by a host function.
func ForeignMethod(name string, fn HostFunc) Method {
	return Method{kind: MethodForeign, name: name, foreign: fn}
}

// ParsedMethod returns a Method for a parsed tree.
func ParsedMethod(tree ast.Voting) Method {
	return Method{kind: MethodParsed, tree: tree}
}

// Kind returns the variant of m.
func (m Method) Kind() MethodKind { return m.kind }

// Name returns the name m was created with, or the source form of a
// parsed tree.
func (m Method) Name() string {
	if m.kind == MethodParsed {
		return ast.Format(m.tree)
	}
	return m.name
}

// Tree returns the syntax tree behind m, if it has one.
func (m Method) Tree() (ast.Voting, bool) {
	switch m.kind {
	case MethodBuildIn:
		return &ast.BuildInRef{BuildIn: m.buildIn}, true
	case MethodRegistered:
		return &ast.NamedRef{Name: m.name, Function: m.function}, true
	case MethodParsed:
		return m.tree, true
	}
	return nil, false
}

// ExecuteWithVoters implements Evaluator.
func (m Method) ExecuteWithVoters(global scope.Context, voters []scope.Context) (value.Value, []scope.Context, error) {
	switch m.kind {
	case MethodForeign:
		out, err := m.foreign(global, voters)
		if err != nil {
			return value.Value{}, voters, &HostError{Name: m.name, Err: err}
		}
		v, err := value.FromNative(out)
		if err != nil {
			return value.Value{}, voters, &HostError{Name: m.name, Err: err}
		}
		return v, voters, nil
	case MethodNone:
		return value.Value{}, voters, ErrNoValue
	}
	tree, _ := m.Tree()
	return ExecuteWithVoters(tree, global, voters)
}

// Execute evaluates m and returns its value.
func (m Method) Execute(global scope.Context, voters []scope.Context) (value.Value, error) {
	out, _, err := m.ExecuteWithVoters(global, voters)
	return out, err
}
