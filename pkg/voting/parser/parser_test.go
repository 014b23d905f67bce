package parser

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"mercator-hq/ldatranslate/pkg/voting/aggregate"
	"mercator-hq/ldatranslate/pkg/voting/ast"
	"mercator-hq/ldatranslate/pkg/voting/buildin"
	verrors "mercator-hq/ldatranslate/pkg/voting/errors"
)

// mapResolver is a fixed set of registered votings.
type mapResolver map[string]*ast.Function

func (m mapResolver) Get(name string) (*ast.Function, bool) {
	fn, ok := m[name]
	return fn, ok
}

func (m mapResolver) Names() []string {
	var names []string
	for n := range m {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func mustParse(t *testing.T, src string, r Resolver) ast.Voting {
	t.Helper()
	v, err := Parse(src, r)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", src, err)
	}
	return v
}

func TestTopLevelShapes(t *testing.T) {
	registered := &ast.Function{Ops: []ast.Operation{&ast.Global{Body: ast.Single(&ast.RawExpr{Source: "1"})}}}
	r := mapResolver{"Mine": registered}

	t.Run("build-in", func(t *testing.T) {
		v, ok := mustParse(t, "  CombSum ", r).(*ast.BuildInRef)
		if !ok || v.BuildIn != buildin.CombSum {
			t.Errorf("got %#v, want CombSum", v)
		}
	})

	t.Run("limited build-in", func(t *testing.T) {
		v, ok := mustParse(t, "RRPow2(3)", r).(*ast.LimitedRef)
		if !ok || v.Limit != 3 {
			t.Fatalf("got %#v, want limited", v)
		}
		if b, ok := v.Target.(*ast.BuildInRef); !ok || b.BuildIn != buildin.RRPow2 {
			t.Errorf("target = %#v", v.Target)
		}
	})

	t.Run("registered", func(t *testing.T) {
		v, ok := mustParse(t, "Mine", r).(*ast.NamedRef)
		if !ok || v.Function != registered {
			t.Errorf("got %#v, want reference to registered function", v)
		}
	})

	t.Run("limited registered", func(t *testing.T) {
		v, ok := mustParse(t, "Mine (2)", r).(*ast.LimitedRef)
		if !ok {
			t.Fatalf("got %T, want *ast.LimitedRef", v)
		}
		if n, ok := v.Target.(*ast.NamedRef); !ok || n.Name != "Mine" {
			t.Errorf("target = %#v", v.Target)
		}
	})

	t.Run("declaration", func(t *testing.T) {
		v, ok := mustParse(t, "declare Other { global: 1 }", r).(*ast.Declaration)
		if !ok || v.Name != "Other" || len(v.Function.Ops) != 1 || v.Function.Root {
			t.Errorf("got %#v", v)
		}
	})

	t.Run("function", func(t *testing.T) {
		fn, ok := mustParse(t, "foreach: let x = 1; global: 2", r).(*ast.Function)
		if !ok || !fn.Root || len(fn.Ops) != 2 {
			t.Fatalf("got %#v", fn)
		}
		if _, ok := fn.Ops[0].(*ast.ForEach); !ok {
			t.Errorf("op 0 = %T", fn.Ops[0])
		}
	})
}

func TestAggregationSyntax(t *testing.T) {
	tests := []struct {
		src  string
		want aggregate.Aggregation
	}{
		{"sumOf", aggregate.Aggregation{Kind: aggregate.SumOf}},
		{"maxOf(3)", aggregate.Aggregation{Kind: aggregate.MaxOf, Limit: 3}},
		{"minOf( 2 )", aggregate.Aggregation{Kind: aggregate.MinOf, Limit: 2}},
		{"avgOf(*)", aggregate.Aggregation{Kind: aggregate.AvgOf}},
		{"gAvgOf limit(4)", aggregate.Aggregation{Kind: aggregate.GAvgOf, Limit: 4}},
		{"sumOf limit(*)", aggregate.Aggregation{Kind: aggregate.SumOf}},
		{"sumOf limit", aggregate.Aggregation{Kind: aggregate.SumOf}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			fn := mustParse(t, "aggregate(let s = "+tt.src+"): score", nil).(*ast.Function)
			agg := fn.Ops[0].(*ast.Aggregate)
			if agg.Aggregation != tt.want || agg.Name != "s" {
				t.Errorf("got %+v %q, want %+v", agg.Aggregation, agg.Name, tt.want)
			}
		})
	}
}

func TestExecutables(t *testing.T) {
	fn := mustParse(t, `global: {
		let x = 1;
		if (x > 0) { let y = 2 }
		let z = if (x > 0) { 1 } else { 2 };
		tup[1..];
		x + 1
	}`, nil).(*ast.Function)

	items := fn.Ops[0].(*ast.Global).Body.Items
	if len(items) != 5 {
		t.Fatalf("got %d items, want 5", len(items))
	}
	if _, ok := items[0].(*ast.Let); !ok {
		t.Errorf("item 0 = %T, want *ast.Let", items[0])
	}
	if _, ok := items[1].(*ast.If); !ok {
		t.Errorf("item 1 = %T, want *ast.If", items[1])
	}
	if l, ok := items[2].(*ast.Let); !ok {
		t.Errorf("item 2 = %T, want *ast.Let", items[2])
	} else if _, ok := l.Value.Items[0].(*ast.IfElse); !ok {
		t.Errorf("let value = %T, want *ast.IfElse", l.Value.Items[0])
	}
	if ti, ok := items[3].(*ast.TupleIndex); !ok || ti.Index.Kind != ast.RangeFrom || ti.Index.Start != 1 {
		t.Errorf("item 3 = %#v", items[3])
	}
	if raw, ok := items[4].(*ast.RawExpr); !ok || raw.Source != "x + 1" {
		t.Errorf("item 4 = %#v", items[4])
	}
}

func TestIndexShapes(t *testing.T) {
	tests := []struct {
		src  string
		want ast.IndexOrRange
	}{
		{"t[2]", ast.IndexOrRange{Kind: ast.Index, Start: 2}},
		{"t[1..3]", ast.IndexOrRange{Kind: ast.Range, Start: 1, End: 3}},
		{"t[..3]", ast.IndexOrRange{Kind: ast.RangeTo, End: 3}},
		{"t[1..]", ast.IndexOrRange{Kind: ast.RangeFrom, Start: 1}},
		{"t[1..=3]", ast.IndexOrRange{Kind: ast.RangeInclusive, Start: 1, End: 3}},
		{"t[..=3]", ast.IndexOrRange{Kind: ast.RangeToInclusive, End: 3}},
		{"t[..]", ast.IndexOrRange{Kind: ast.RangeFull}},
		{"t[ 1 .. 2 ]", ast.IndexOrRange{Kind: ast.Range, Start: 1, End: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			fn := mustParse(t, "global: "+tt.src, nil).(*ast.Function)
			ti, ok := fn.Ops[0].(*ast.Global).Body.Items[0].(*ast.TupleIndex)
			if !ok {
				t.Fatalf("got %T, want *ast.TupleIndex", fn.Ops[0].(*ast.Global).Body.Items[0])
			}
			if ti.Name != "t" || ti.Index != tt.want {
				t.Errorf("got %s[%+v], want %+v", ti.Name, ti.Index, tt.want)
			}
		})
	}
}

func TestRawExpressionExtent(t *testing.T) {
	fn := mustParse(t, `foreach: let y = score * (1 + len("a;b")) global: globalish + y`, nil).(*ast.Function)
	if len(fn.Ops) != 2 {
		t.Fatalf("got %d ops, want 2", len(fn.Ops))
	}
	let := fn.Ops[0].(*ast.ForEach).Body.Items[0].(*ast.Let)
	raw := let.Value.Items[0].(*ast.RawExpr)
	if raw.Source != `score * (1 + len("a;b"))` {
		t.Errorf("source = %q", raw.Source)
	}
	second := fn.Ops[1].(*ast.Global).Body.Items[0].(*ast.RawExpr)
	if second.Source != "globalish + y" {
		t.Errorf("source = %q", second.Source)
	}
}

func TestIdentifiers(t *testing.T) {
	fn := mustParse(t, "global: a + b * a + len(xs)", nil).(*ast.Function)
	raw := fn.Ops[0].(*ast.Global).Body.Items[0].(*ast.RawExpr)
	want := []string{"a", "b", "xs"}
	if !slices.Equal(raw.Identifiers, want) {
		t.Errorf("Identifiers = %v, want %v", raw.Identifiers, want)
	}
}

func TestErrors(t *testing.T) {
	r := mapResolver{"Mine": {}}
	tests := []struct {
		name       string
		src        string
		typ        verrors.ErrorType
		contains   string
		suggestion string
	}{
		{"empty", "   ", verrors.ErrorTypeSyntax, "empty voting", ""},
		{"unbalanced raw", "global: (1 + 2", verrors.ErrorTypeDelimiter, "expected ')'", ""},
		{"zero limit", "aggregate(let s = sumOf(0)): 1", verrors.ErrorTypeLiteral, "limit must be positive", ""},
		{"zero call limit", "CombSum(0)", verrors.ErrorTypeLiteral, "limit must be positive", ""},
		{"bad limit", "aggregate(let s = sumOf(x)): 1", verrors.ErrorTypeLiteral, "expected limit", ""},
		{"huge limit", "CombSum(99999999999999999999999)", verrors.ErrorTypeLiteral, "invalid limit", ""},
		{"empty index", "global: t[]", verrors.ErrorTypeLiteral, "empty index", ""},
		{"open inclusive range", "global: t[1..=]", verrors.ErrorTypeLiteral, "right-hand value", ""},
		{"reserved let target", "global: let score = 1", verrors.ErrorTypeReserved, "well-known", ""},
		{"legacy reserved let target", "foreach: let reciprocal_rank = 1", verrors.ErrorTypeReserved, "well-known", ""},
		{"keyword let target", "global: let global = 1", verrors.ErrorTypeReserved, "keyword", ""},
		{"reserved aggregate target", "aggregate(let n_voters = sumOf): 1", verrors.ErrorTypeReserved, "well-known", ""},
		{"unknown voting", "CombSun", verrors.ErrorTypeReference, "unknown voting", "did you mean 'CombSum'?"},
		{"unknown registered", "Mein(2)", verrors.ErrorTypeReference, "unknown voting", "did you mean 'Mine'?"},
		{"unknown aggregation", "aggregate(let s = sumof): 1", verrors.ErrorTypeReference, "unknown aggregation", "did you mean 'sumOf'?"},
		{"unknown execute target", "execute(let x = Nope);", verrors.ErrorTypeReference, "unknown voting", ""},
		{"execute without semicolon", "execute(let x = CombSum)", verrors.ErrorTypeSyntax, "expected ';'", ""},
		{"empty block", "global: {}", verrors.ErrorTypeSyntax, "empty block", ""},
		{"missing colon", "foreach 1", verrors.ErrorTypeSyntax, "expected ':'", ""},
		{"if expression without else", "global: if (if (a) { 1 }) { 2 }", verrors.ErrorTypeSyntax, "requires an else", ""},
		{"bad expression", "global: 1 +", verrors.ErrorTypeExpression, "invalid expression", ""},
		{"assignment in expression", "global: x = 4", verrors.ErrorTypeExpression, "invalid expression", ""},
		{"parenthesised tuple", "global: (1, 2)", verrors.ErrorTypeExpression, "invalid expression", ""},
		{"stray closer", "global: 1 )", verrors.ErrorTypeSyntax, "expected foreach", ""},
		{"unclosed declaration", "declare X { global: 1 ", verrors.ErrorTypeDelimiter, "expected '}'", ""},
		{"unclosed aggregate header", "aggregate(let s = sumOf: 1", verrors.ErrorTypeDelimiter, "expected ')'", ""},
		{"unterminated string", `global: "abc`, verrors.ErrorTypeDelimiter, "unterminated string", ""},
		{"trailing input", "CombSum extra", verrors.ErrorTypeSyntax, "unexpected", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.src, r)
			var pe *verrors.Error
			if !errors.As(err, &pe) {
				t.Fatalf("Parse() error = %v, want *errors.Error", err)
			}
			if pe.Type != tt.typ {
				t.Errorf("Type = %s, want %s (%v)", pe.Type, tt.typ, err)
			}
			if !strings.Contains(pe.Message, tt.contains) {
				t.Errorf("Message = %q, want it to contain %q", pe.Message, tt.contains)
			}
			if tt.suggestion != "" && pe.Suggestion != tt.suggestion {
				t.Errorf("Suggestion = %q, want %q", pe.Suggestion, tt.suggestion)
			}
		})
	}
}

func TestErrorContexts(t *testing.T) {
	_, err := Parse("aggregate(let s = sumOf: 1", nil)
	var pe *verrors.Error
	if !errors.As(err, &pe) {
		t.Fatalf("Parse() error = %v", err)
	}
	want := []string{"closing parentheses for aggregate header", "aggregate"}
	if !slices.Equal(pe.Contexts, want) {
		t.Errorf("Contexts = %v, want %v", pe.Contexts, want)
	}
}

func TestErrorPosition(t *testing.T) {
	_, err := Parse("foreach: let a = 1;\nglobal: t[]", nil)
	var pe *verrors.Error
	if !errors.As(err, &pe) {
		t.Fatalf("Parse() error = %v", err)
	}
	if pe.Pos.Line != 2 || pe.Pos.Column != 11 {
		t.Errorf("Pos = %s, want 2:11", pe.Pos)
	}
}
