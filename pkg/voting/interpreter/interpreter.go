// Package interpreter evaluates voting trees against a global context and a
// slice of voter contexts.
//
// Evaluation is synchronous and keeps no state between calls. The same tree
// may be evaluated concurrently as long as each call gets its own contexts.
package interpreter

import (
	"fmt"
	"slices"

	"github.com/expr-lang/expr"

	"mercator-hq/ldatranslate/pkg/voting/aggregate"
	"mercator-hq/ldatranslate/pkg/voting/ast"
	"mercator-hq/ldatranslate/pkg/voting/scope"
	"mercator-hq/ldatranslate/pkg/voting/value"
)

// Evaluator is anything that can score a set of voters. The returned slice
// is the one the evaluation actually used, which a limit may have narrowed.
type Evaluator interface {
	ExecuteWithVoters(global scope.Context, voters []scope.Context) (value.Value, []scope.Context, error)
}

// Execute evaluates v and returns its value.
func Execute(v ast.Voting, global scope.Context, voters []scope.Context) (value.Value, error) {
	out, _, err := ExecuteWithVoters(v, global, voters)
	return out, err
}

// ExecuteWithVoters evaluates v and also returns the voters it used.
func ExecuteWithVoters(v ast.Voting, global scope.Context, voters []scope.Context) (value.Value, []scope.Context, error) {
	switch n := v.(type) {
	case *ast.BuildInRef:
		out, err := n.BuildIn.Execute(global, voters)
		return out, voters, err
	case *ast.NamedRef:
		out, err := executeFunction(n.Function, global, voters)
		return out, voters, err
	case *ast.LimitedRef:
		l, err := NewLimited(n.Limit, Voting{Tree: n.Target})
		if err != nil {
			return value.Value{}, voters, err
		}
		return l.ExecuteWithVoters(global, voters)
	case *ast.Declaration:
		out, err := executeFunction(n.Function, global, voters)
		return out, voters, err
	case *ast.Function:
		out, err := executeFunction(n, global, voters)
		return out, voters, err
	case nil:
		return value.Value{}, voters, ErrNoValue
	default:
		return value.Value{}, voters, fmt.Errorf("cannot evaluate %T", v)
	}
}

// Voting adapts a parsed tree to the Evaluator interface.
type Voting struct {
	Tree ast.Voting
}

// ExecuteWithVoters implements Evaluator.
func (v Voting) ExecuteWithVoters(global scope.Context, voters []scope.Context) (value.Value, []scope.Context, error) {
	return ExecuteWithVoters(v.Tree, global, voters)
}

func executeFunction(fn *ast.Function, global scope.Context, voters []scope.Context) (value.Value, error) {
	if fn == nil || len(fn.Ops) == 0 {
		return value.Value{}, ErrNoValue
	}
	var last value.Value
	for _, op := range fn.Ops {
		out, err := executeOperation(op, global, voters)
		if err != nil {
			return value.Value{}, err
		}
		last = out
	}
	return last, nil
}

func executeOperation(op ast.Operation, global scope.Context, voters []scope.Context) (value.Value, error) {
	switch n := op.(type) {
	case *ast.ForEach:
		for i, voter := range voters {
			if _, err := executeList(n.Body, scope.Combined(voter, global)); err != nil {
				return value.Value{}, &OperationError{Operation: "foreach", Voter: i, Err: err}
			}
		}
		return value.Empty(), nil

	case *ast.Global:
		out, err := executeList(n.Body, global)
		if err != nil {
			return value.Value{}, &OperationError{Operation: "global", Voter: -1, Err: err}
		}
		return out, nil

	case *ast.Aggregate:
		results := make([]float64, 0, len(voters))
		for i, voter := range voters {
			out, err := executeList(n.Body, scope.Combined(voter, global))
			if err == nil {
				var f float64
				if f, err = out.AsNumber(); err == nil {
					results = append(results, f)
					continue
				}
			}
			return value.Value{}, &OperationError{Operation: "aggregate", Name: n.Name, Voter: i, Err: err}
		}
		f, err := aggregate.CalculateDesc(n.Aggregation, slices.Values(results))
		if err != nil {
			return value.Value{}, &OperationError{Operation: "aggregate", Name: n.Name, Voter: -1, Err: err}
		}
		out := value.Float(f)
		global.Set(n.Name, out)
		return out, nil

	case *ast.Execute:
		out, _, err := ExecuteWithVoters(n.Call, global, voters)
		if err != nil {
			return value.Value{}, &OperationError{Operation: "execute", Name: n.Name, Voter: -1, Err: err}
		}
		global.Set(n.Name, out)
		return out, nil

	default:
		return value.Value{}, fmt.Errorf("unknown operation %T", op)
	}
}

// executeList runs every item against ctx and returns the value of the last.
func executeList(l ast.ExecList, ctx scope.Context) (value.Value, error) {
	if len(l.Items) == 0 {
		return value.Value{}, ErrNoValue
	}
	var last value.Value
	for _, item := range l.Items {
		out, err := executeItem(item, ctx)
		if err != nil {
			return value.Value{}, err
		}
		last = out
	}
	return last, nil
}

func executeItem(e ast.Executable, ctx scope.Context) (value.Value, error) {
	switch n := e.(type) {
	case *ast.RawExpr:
		return evalRaw(n, ctx)

	case *ast.TupleIndex:
		v, err := scope.Lookup(ctx, n.Name)
		if err != nil {
			return value.Value{}, err
		}
		items, err := v.AsTuple()
		if err != nil {
			return value.Value{}, fmt.Errorf("%s: %w", n.Name, err)
		}
		out, ok := n.Index.Get(items)
		if !ok {
			return value.Value{}, &TupleGetError{Variable: n.Name, Index: n.Index, Len: len(items)}
		}
		return out, nil

	case *ast.IfElse:
		ok, err := condition(n.Cond, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if ok {
			return executeList(n.Then, ctx)
		}
		return executeList(n.Else, ctx)

	case *ast.If:
		ok, err := condition(n.Cond, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if ok {
			if _, err := executeList(n.Then, ctx); err != nil {
				return value.Value{}, err
			}
		}
		return value.Empty(), nil

	case *ast.Let:
		out, err := executeList(n.Value, ctx)
		if err != nil {
			return value.Value{}, err
		}
		ctx.Set(n.Name, out)
		return value.Empty(), nil

	default:
		return value.Value{}, fmt.Errorf("unknown executable %T", e)
	}
}

// condition evaluates cond to a boolean. Numbers are true when non-zero.
func condition(cond ast.Expression, ctx scope.Context) (bool, error) {
	v, err := executeItem(cond, ctx)
	if err != nil {
		return false, err
	}
	if v.IsNumber() {
		f, _ := v.AsNumber()
		return f != 0, nil
	}
	return v.AsBoolean()
}

// evalRaw runs a compiled expression with the variables it references.
func evalRaw(e *ast.RawExpr, ctx scope.Context) (value.Value, error) {
	env := make(map[string]any, len(e.Identifiers))
	for _, name := range e.Identifiers {
		v, err := scope.Lookup(ctx, name)
		if err != nil {
			return value.Value{}, err
		}
		env[name] = v.Native()
	}
	out, err := expr.Run(e.Program, env)
	if err != nil {
		return value.Value{}, &ExpressionError{Source: e.Source, Err: err}
	}
	v, err := value.FromNative(out)
	if err != nil {
		return value.Value{}, &ExpressionError{Source: e.Source, Err: err}
	}
	return v, nil
}
