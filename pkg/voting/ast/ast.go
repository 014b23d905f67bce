// Package ast defines the syntax tree of the voting language.
//
// Trees are built once by the parser and are immutable afterwards, so a
// single tree may be evaluated concurrently by any number of goroutines.
package ast

import (
	"github.com/expr-lang/expr/vm"

	"mercator-hq/ldatranslate/pkg/voting/aggregate"
	"mercator-hq/ldatranslate/pkg/voting/buildin"
)

// Voting is anything that can be evaluated to a score: a build-in, a
// registered voting, a limited call, a declaration or a parsed function.
type Voting interface {
	votingNode()
}

// Call is a Voting that may appear after execute(let x = ...).
type Call interface {
	Voting
	callNode()
}

// BuildInRef references an entry of the build-in table.
type BuildInRef struct {
	BuildIn buildin.Voting
}

// NamedRef references a registered voting. Function is resolved at parse
// time, so later registrations never change the meaning of a tree.
type NamedRef struct {
	Name     string
	Function *Function
}

// LimitedRef narrows the voters to the Limit best ranked ones before
// evaluating Target. Limit is always positive.
type LimitedRef struct {
	Limit  int
	Target Call
}

// Declaration is a named voting that can be stored in a registry.
type Declaration struct {
	Name     string
	Function *Function
}

// Function is a sequence of operations. The value of the last operation is
// the value of the function. Root marks a function parsed at document root;
// it only affects formatting.
type Function struct {
	Ops  []Operation
	Root bool
}

func (*BuildInRef) votingNode()  {}
func (*NamedRef) votingNode()    {}
func (*LimitedRef) votingNode()  {}
func (*Declaration) votingNode() {}
func (*Function) votingNode()    {}

func (*BuildInRef) callNode() {}
func (*NamedRef) callNode()   {}
func (*LimitedRef) callNode() {}

// Operation is one top-level step of a Function.
type Operation interface {
	operationNode()
}

// ForEach runs Body once per voter and discards the results.
type ForEach struct {
	Body ExecList
}

// Global runs Body once against the global context.
type Global struct {
	Body ExecList
}

// Aggregate runs Body once per voter, reduces the results with Aggregation
// and binds the result to Name in the global context.
type Aggregate struct {
	Name        string
	Aggregation aggregate.Aggregation
	Body        ExecList
}

// Execute evaluates Call against the current contexts and binds the result
// to Name in the global context.
type Execute struct {
	Name string
	Call Call
}

func (*ForEach) operationNode()   {}
func (*Global) operationNode()    {}
func (*Aggregate) operationNode() {}
func (*Execute) operationNode()   {}

// ExecList is a non-empty sequence of expressions and statements. Only the
// value of the last item is returned. Braced records whether the list was
// written inside braces.
type ExecList struct {
	Items  []Executable
	Braced bool
}

// Single wraps one executable in an unbraced list.
func Single(e Executable) ExecList {
	return ExecList{Items: []Executable{e}}
}

// Executable is an Expression or a Statement.
type Executable interface {
	executableNode()
}

// Expression is an Executable that yields a value.
type Expression interface {
	Executable
	expressionNode()
}

// Statement is an Executable evaluated for its side effects; it yields Empty.
type Statement interface {
	Executable
	statementNode()
}

// RawExpr is an arithmetic, boolean or string expression compiled by the
// expression library. Identifiers lists the free variables it reads.
type RawExpr struct {
	Source      string
	Program     *vm.Program
	Identifiers []string
}

// IfElse evaluates to Then or Else depending on Cond.
type IfElse struct {
	Cond Expression
	Then ExecList
	Else ExecList
}

// TupleIndex projects an element or a sub-tuple out of a tuple variable.
type TupleIndex struct {
	Name  string
	Index IndexOrRange
}

// If runs Then when Cond is true.
type If struct {
	Cond Expression
	Then ExecList
}

// Let binds Name in the current scope.
type Let struct {
	Name  string
	Value ExecList
}

func (*RawExpr) executableNode()    {}
func (*IfElse) executableNode()     {}
func (*TupleIndex) executableNode() {}
func (*If) executableNode()         {}
func (*Let) executableNode()        {}

func (*RawExpr) expressionNode()    {}
func (*IfElse) expressionNode()     {}
func (*TupleIndex) expressionNode() {}

func (*If) statementNode()  {}
func (*Let) statementNode() {}
