// Package voting is the entry point to the voting expression language.
//
// A voting combines the scores of many voters into one value. Sources are
// parsed into an ast.Voting, evaluated by the interpreter against a global
// context and one context per voter, and can be printed back to source.
// Named votings are kept in a registry.Registry.
//
// Quick start:
//
//	reg := registry.New()
//	if err := reg.Register(`declare Top { aggregate(let s = sumOf(3)): score }`); err != nil {
//		return err
//	}
//	out, err := voting.Evaluate("Top", reg, global, voters)
package voting

import (
	"mercator-hq/ldatranslate/pkg/voting/ast"
	"mercator-hq/ldatranslate/pkg/voting/interpreter"
	"mercator-hq/ldatranslate/pkg/voting/parser"
	"mercator-hq/ldatranslate/pkg/voting/registry"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

// Parse parses src. Names of registered votings resolve against reg, which
// may be nil.
func Parse(src string, reg *registry.Registry) (ast.Voting, error) {
	if reg == nil {
		return parser.Parse(src, nil)
	}
	return parser.Parse(src, reg)
}

// Evaluate parses src and evaluates it once.
func Evaluate(src string, reg *registry.Registry, global scope.Context, voters []scope.Context) (value.Value, error) {
	tree, err := Parse(src, reg)
	if err != nil {
		return value.Value{}, err
	}
	return interpreter.Execute(tree, global, voters)
}

// Format prints a parsed voting in canonical form.
func Format(v ast.Voting) string {
	return ast.Format(v)
}

// Reformat parses src and prints it in canonical form.
func Reformat(src string, reg *registry.Registry) (string, error) {
	tree, err := Parse(src, reg)
	if err != nil {
		return "", err
	}
	return ast.Format(tree), nil
}
