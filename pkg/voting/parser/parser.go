// Package parser turns voting source text into an ast.Voting.
//
// The grammar is parsed by hand with a single cursor. Names of registered
// votings are resolved while parsing, through a read-only Resolver, so a
// parsed tree holds direct references to the functions it calls.
// Arithmetic, boolean and string expressions are compiled with expr-lang.
package parser

import (
	"slices"
	"strconv"

	"mercator-hq/ldatranslate/pkg/voting/aggregate"
	"mercator-hq/ldatranslate/pkg/voting/ast"
	"mercator-hq/ldatranslate/pkg/voting/buildin"
	verrors "mercator-hq/ldatranslate/pkg/voting/errors"
	"mercator-hq/ldatranslate/pkg/voting/scope"
)

// Resolver looks up registered votings during parsing.
type Resolver interface {
	Get(name string) (*ast.Function, bool)
	Names() []string
}

type parser struct {
	cursor
	resolver Resolver
}

// Parse parses a complete voting document. In order of precedence the
// document is a limited call such as CombSum(3), a bare build-in name, a
// registered name, a declare block or a voting function, optionally
// wrapped in one pair of braces. resolver may be nil.
func Parse(src string, resolver Resolver) (ast.Voting, error) {
	p := &parser{cursor: cursor{src: src}, resolver: resolver}
	v, err := p.document()
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (p *parser) document() (ast.Voting, error) {
	p.skipSpace()
	if p.atEOF() {
		return nil, p.errorf(verrors.ErrorTypeSyntax, "empty voting")
	}

	if w := p.peekWord(); w != "" && !IsKeyword(w) {
		call, err := p.call()
		if err != nil {
			return nil, err
		}
		if err := p.end(); err != nil {
			return nil, err
		}
		return call, nil
	}

	if p.acceptKeyword("declare") {
		d, err := p.declaration()
		if err != nil {
			return nil, err
		}
		if err := p.end(); err != nil {
			return nil, err
		}
		return d, nil
	}

	var (
		fn  *ast.Function
		err error
	)
	if p.accept('{') {
		p.push("voting function")
		fn, err = p.function()
		p.pop()
		if err == nil {
			err = p.expect('}', "closing brace for voting function")
		}
	} else {
		fn, err = p.function()
	}
	if err != nil {
		return nil, err
	}
	if err := p.end(); err != nil {
		return nil, err
	}
	fn.Root = true
	return fn, nil
}

func (p *parser) end() error {
	p.skipSpace()
	if !p.atEOF() {
		return p.errorf(verrors.ErrorTypeSyntax, "unexpected %s after voting", p.found())
	}
	return nil
}

// declaration parses NAME { function } after the declare keyword.
func (p *parser) declaration() (*ast.Declaration, error) {
	p.push("declaration")
	defer p.pop()

	p.skipSpace()
	name, err := p.name()
	if err != nil {
		return nil, err
	}
	if err := p.expect('{', "opening brace for declaration"); err != nil {
		return nil, err
	}
	fn, err := p.function()
	if err != nil {
		return nil, err
	}
	if err := p.expect('}', "closing brace for declaration"); err != nil {
		return nil, err
	}
	return &ast.Declaration{Name: name, Function: fn}, nil
}

// function parses one or more operations, up to a closing brace or end of input.
func (p *parser) function() (*ast.Function, error) {
	fn := &ast.Function{}
	for {
		p.skipSpace()
		if p.atEOF() || p.peek() == '}' {
			break
		}
		op, err := p.operation()
		if err != nil {
			return nil, err
		}
		fn.Ops = append(fn.Ops, op)
	}
	if len(fn.Ops) == 0 {
		return nil, p.errorf(verrors.ErrorTypeSyntax, "expected at least one of foreach, global, aggregate or execute")
	}
	return fn, nil
}

func (p *parser) operation() (ast.Operation, error) {
	start := p.pos
	switch {
	case p.acceptKeyword("foreach"):
		p.push("foreach")
		defer p.pop()
		body, err := p.opBody()
		if err != nil {
			return nil, err
		}
		return &ast.ForEach{Body: body}, nil

	case p.acceptKeyword("global"):
		p.push("global")
		defer p.pop()
		body, err := p.opBody()
		if err != nil {
			return nil, err
		}
		return &ast.Global{Body: body}, nil

	case p.acceptKeyword("aggregate"):
		p.push("aggregate")
		defer p.pop()
		name, agg, err := p.aggregateHeader()
		if err != nil {
			return nil, err
		}
		body, err := p.opBody()
		if err != nil {
			return nil, err
		}
		return &ast.Aggregate{Name: name, Aggregation: agg, Body: body}, nil

	case p.acceptKeyword("execute"):
		p.push("execute")
		defer p.pop()
		return p.execute()
	}
	return nil, p.errorAt(start, verrors.ErrorTypeSyntax,
		"expected foreach, global, aggregate or execute, found %s", p.found())
}

// opBody parses ':' execList with an optional trailing ';'.
func (p *parser) opBody() (ast.ExecList, error) {
	if err := p.expect(':', "colon before operation body"); err != nil {
		return ast.ExecList{}, err
	}
	list, err := p.execList()
	if err != nil {
		return ast.ExecList{}, err
	}
	p.skipSpace()
	p.accept(';')
	return list, nil
}

// letHeader parses "let NAME =".
func (p *parser) letHeader() (string, error) {
	p.skipSpace()
	if !p.acceptKeyword("let") {
		return "", p.errorf(verrors.ErrorTypeSyntax, "expected let, found %s", p.found())
	}
	p.skipSpace()
	name, err := p.target()
	if err != nil {
		return "", err
	}
	if err := p.expect('=', "assignment"); err != nil {
		return "", err
	}
	return name, nil
}

func (p *parser) aggregateHeader() (string, aggregate.Aggregation, error) {
	if err := p.expect('(', "opening parentheses for aggregate header"); err != nil {
		return "", aggregate.Aggregation{}, err
	}
	name, err := p.letHeader()
	if err != nil {
		return "", aggregate.Aggregation{}, err
	}
	agg, err := p.aggregation()
	if err != nil {
		return "", aggregate.Aggregation{}, err
	}
	if err := p.expect(')', "closing parentheses for aggregate header"); err != nil {
		return "", aggregate.Aggregation{}, err
	}
	return name, agg, nil
}

// aggregation parses a reducer with an optional limit, in either the
// sumOf(3) form or the legacy sumOf limit(3) form. '*' means unlimited.
func (p *parser) aggregation() (aggregate.Aggregation, error) {
	p.push("aggregation")
	defer p.pop()

	p.skipSpace()
	start := p.pos
	word := p.peekWord()
	kind, ok := aggregate.ParseKind(word)
	if !ok {
		err := p.errorAt(start, verrors.ErrorTypeReference, "unknown aggregation %s", p.found())
		err.Suggestion = verrors.SuggestName(word, aggregate.Kinds())
		return aggregate.Aggregation{}, err
	}
	p.pos += len(word)

	p.skipSpace()
	if p.acceptKeyword("limit") {
		p.skipSpace()
		if p.peek() != '(' {
			return aggregate.New(kind), nil
		}
	}
	if !p.accept('(') {
		return aggregate.New(kind), nil
	}
	p.skipSpace()
	if p.accept('*') {
		if err := p.expect(')', "closing parentheses for limit"); err != nil {
			return aggregate.Aggregation{}, err
		}
		return aggregate.New(kind), nil
	}
	limit, err := p.positive("limit")
	if err != nil {
		return aggregate.Aggregation{}, err
	}
	if err := p.expect(')', "closing parentheses for limit"); err != nil {
		return aggregate.Aggregation{}, err
	}
	return aggregate.NewLimited(kind, limit)
}

// execute parses (let NAME = call); after the execute keyword.
func (p *parser) execute() (ast.Operation, error) {
	if err := p.expect('(', "opening parentheses for execute"); err != nil {
		return nil, err
	}
	name, err := p.letHeader()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	call, err := p.call()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')', "closing parentheses for execute"); err != nil {
		return nil, err
	}
	if err := p.expect(';', "semicolon after execute"); err != nil {
		return nil, err
	}
	return &ast.Execute{Name: name, Call: call}, nil
}

// call parses a build-in or registered name with an optional (k) limit.
func (p *parser) call() (ast.Call, error) {
	p.push("call")
	defer p.pop()

	start := p.pos
	name := p.peekWord()
	if name == "" || IsKeyword(name) {
		return nil, p.errorf(verrors.ErrorTypeSyntax, "expected voting name, found %s", p.found())
	}
	p.pos += len(name)

	var target ast.Call
	if b, ok := buildin.Parse(name); ok {
		target = &ast.BuildInRef{BuildIn: b}
	} else if fn, ok := p.lookup(name); ok {
		target = &ast.NamedRef{Name: name, Function: fn}
	} else {
		err := p.errorAt(start, verrors.ErrorTypeReference, "unknown voting %q", name)
		err.Suggestion = verrors.SuggestName(name, p.knownNames())
		return nil, err
	}

	save := p.pos
	p.skipSpace()
	if !p.accept('(') {
		p.pos = save
		return target, nil
	}
	p.skipSpace()
	limit, err := p.positive("limit")
	if err != nil {
		return nil, err
	}
	if err := p.expect(')', "closing parentheses for limit"); err != nil {
		return nil, err
	}
	return &ast.LimitedRef{Limit: limit, Target: target}, nil
}

func (p *parser) lookup(name string) (*ast.Function, bool) {
	if p.resolver == nil {
		return nil, false
	}
	return p.resolver.Get(name)
}

func (p *parser) knownNames() []string {
	names := buildin.Names()
	if p.resolver != nil {
		names = append(names, p.resolver.Names()...)
	}
	slices.Sort(names)
	return names
}

// name parses an identifier that is not a keyword.
func (p *parser) name() (string, error) {
	word := p.peekWord()
	if word == "" {
		return "", p.errorf(verrors.ErrorTypeSyntax, "expected name, found %s", p.found())
	}
	if IsKeyword(word) {
		return "", p.errorf(verrors.ErrorTypeReserved, "keyword %q cannot be used as a name", word)
	}
	p.pos += len(word)
	return word, nil
}

// target parses a name that may be bound with let.
func (p *parser) target() (string, error) {
	start := p.pos
	name, err := p.name()
	if err != nil {
		return "", err
	}
	if scope.IsReserved(name) || scope.Canonical(name) != name {
		return "", p.errorAt(start, verrors.ErrorTypeReserved, "%q is a well-known variable and cannot be assigned", name)
	}
	return name, nil
}

// digits parses an unsigned decimal literal.
func (p *parser) digits(what string) (int, error) {
	start := p.pos
	for p.peek() >= '0' && p.peek() <= '9' {
		p.next()
	}
	if start == p.pos {
		return 0, p.errorf(verrors.ErrorTypeLiteral, "expected %s, found %s", what, p.found())
	}
	n, err := strconv.Atoi(p.src[start:p.pos])
	if err != nil {
		e := p.errorAt(start, verrors.ErrorTypeLiteral, "invalid %s %q", what, p.src[start:p.pos])
		e.Err = err
		return 0, e
	}
	return n, nil
}

// positive parses a non-zero count.
func (p *parser) positive(what string) (int, error) {
	start := p.pos
	n, err := p.digits(what)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, p.errorAt(start, verrors.ErrorTypeLiteral, "%s must be positive", what)
	}
	return n, nil
}
