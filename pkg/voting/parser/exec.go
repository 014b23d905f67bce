package parser

import (
	"strings"

	"github.com/expr-lang/expr"

	"mercator-hq/ldatranslate/pkg/voting/ast"
	verrors "mercator-hq/ldatranslate/pkg/voting/errors"
)

// execList parses a braced block or a single expression or statement.
func (p *parser) execList() (ast.ExecList, error) {
	p.skipSpace()
	if p.peek() != '{' {
		item, err := p.executable()
		if err != nil {
			return ast.ExecList{}, err
		}
		return ast.Single(item), nil
	}
	return p.block()
}

// block parses { item (;)? item ... }. Semicolons separate items; a
// trailing one before the closing brace is allowed.
func (p *parser) block() (ast.ExecList, error) {
	p.push("block")
	defer p.pop()

	p.next() // '{'
	list := ast.ExecList{Braced: true}
	for {
		p.skipSpace()
		if p.peek() == '}' || p.atEOF() {
			break
		}
		item, err := p.executable()
		if err != nil {
			return ast.ExecList{}, err
		}
		list.Items = append(list.Items, item)
		p.skipSpace()
		p.accept(';')
	}
	if len(list.Items) == 0 {
		return ast.ExecList{}, p.errorf(verrors.ErrorTypeSyntax, "empty block")
	}
	if err := p.expect('}', "closing brace for block"); err != nil {
		return ast.ExecList{}, err
	}
	return list, nil
}

// executable parses a statement or an expression.
func (p *parser) executable() (ast.Executable, error) {
	p.skipSpace()
	switch {
	case p.acceptKeyword("let"):
		p.push("let")
		defer p.pop()
		p.skipSpace()
		name, err := p.target()
		if err != nil {
			return nil, err
		}
		if err := p.expect('=', "assignment"); err != nil {
			return nil, err
		}
		value, err := p.execList()
		if err != nil {
			return nil, err
		}
		return &ast.Let{Name: name, Value: value}, nil

	case p.acceptKeyword("if"):
		return p.conditional(false)
	}
	return p.expression()
}

// expression parses an if/else, a tuple index or a raw expression.
func (p *parser) expression() (ast.Expression, error) {
	p.skipSpace()
	if p.acceptKeyword("if") {
		e, err := p.conditional(true)
		if err != nil {
			return nil, err
		}
		return e.(ast.Expression), nil
	}
	idx, ok, err := p.tupleIndex()
	if err != nil {
		return nil, err
	}
	if ok {
		return idx, nil
	}
	raw, err := p.raw()
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// conditional parses the remainder of an if after the keyword. Without an
// else branch the result is an If statement, which is rejected when an
// expression is required.
func (p *parser) conditional(requireElse bool) (ast.Executable, error) {
	p.push("if")
	defer p.pop()

	if err := p.expect('(', "opening parentheses for if condition"); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if err := p.expect(')', "closing parentheses for if condition"); err != nil {
		return nil, err
	}
	then, err := p.execList()
	if err != nil {
		return nil, err
	}

	save := p.pos
	p.skipSpace()
	if !p.acceptKeyword("else") {
		p.pos = save
		if requireElse {
			return nil, p.errorf(verrors.ErrorTypeSyntax, "if used as an expression requires an else branch")
		}
		return &ast.If{Cond: cond, Then: then}, nil
	}
	els, err := p.execList()
	if err != nil {
		return nil, err
	}
	return &ast.IfElse{Cond: cond, Then: then, Else: els}, nil
}

// tupleIndex parses name[index] when it forms a whole expression. It
// reports false, without consuming input, when the text is not a tuple
// index and should be read as a raw expression instead.
func (p *parser) tupleIndex() (*ast.TupleIndex, bool, error) {
	start := p.pos
	word := p.peekWord()
	if word == "" || IsKeyword(word) || !hasPrefixAt(p.src, start+len(word), "[") {
		return nil, false, nil
	}
	p.pos += len(word) + 1
	p.skipSpace()
	switch r := p.peek(); {
	case r == ']':
		p.push("tuple index")
		defer p.pop()
		return nil, false, p.errorf(verrors.ErrorTypeLiteral, "empty index")
	case r == '.' || (r >= '0' && r <= '9'):
	default:
		p.pos = start
		return nil, false, nil
	}

	p.push("tuple index")
	idx, err := p.indexOrRange()
	if err == nil {
		err = p.expect(']', "closing bracket for tuple index")
	}
	p.pop()
	if err != nil {
		return nil, false, err
	}

	end := p.pos
	p.skipSpace()
	if !p.atTerminator() {
		p.pos = start
		return nil, false, nil
	}
	p.pos = end
	return &ast.TupleIndex{Name: word, Index: idx}, true, nil
}

func hasPrefixAt(s string, i int, prefix string) bool {
	return i <= len(s) && len(s[i:]) >= len(prefix) && s[i:i+len(prefix)] == prefix
}

// atTerminator reports whether the cursor is at a token that ends an expression.
func (p *parser) atTerminator() bool {
	switch p.peek() {
	case eof, ';', ')', ']', '}':
		return true
	}
	return IsKeyword(p.peekWord())
}

func (p *parser) indexOrRange() (ast.IndexOrRange, error) {
	p.skipSpace()
	if p.hasPrefix("..") {
		p.pos += 2
		if p.accept('=') {
			p.skipSpace()
			end, err := p.rangeEnd()
			if err != nil {
				return ast.IndexOrRange{}, err
			}
			return ast.IndexOrRange{Kind: ast.RangeToInclusive, End: end}, nil
		}
		p.skipSpace()
		if !isDigit(p.peek()) {
			return ast.IndexOrRange{Kind: ast.RangeFull}, nil
		}
		end, err := p.digits("index")
		if err != nil {
			return ast.IndexOrRange{}, err
		}
		return ast.IndexOrRange{Kind: ast.RangeTo, End: end}, nil
	}

	start, err := p.digits("index")
	if err != nil {
		return ast.IndexOrRange{}, err
	}
	p.skipSpace()
	if !p.hasPrefix("..") {
		return ast.IndexOrRange{Kind: ast.Index, Start: start}, nil
	}
	p.pos += 2
	if p.accept('=') {
		p.skipSpace()
		end, err := p.rangeEnd()
		if err != nil {
			return ast.IndexOrRange{}, err
		}
		return ast.IndexOrRange{Kind: ast.RangeInclusive, Start: start, End: end}, nil
	}
	p.skipSpace()
	if !isDigit(p.peek()) {
		return ast.IndexOrRange{Kind: ast.RangeFrom, Start: start}, nil
	}
	end, err := p.digits("index")
	if err != nil {
		return ast.IndexOrRange{}, err
	}
	return ast.IndexOrRange{Kind: ast.Range, Start: start, End: end}, nil
}

// rangeEnd parses the mandatory right-hand side of ..=.
func (p *parser) rangeEnd() (int, error) {
	if !isDigit(p.peek()) {
		return 0, p.errorf(verrors.ErrorTypeLiteral, "'..=' requires a right-hand value")
	}
	return p.digits("index")
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// raw scans a raw expression and compiles it. The expression ends at a ';'
// or keyword outside any nesting, at an unbalanced closer, or at end of input.
func (p *parser) raw() (*ast.RawExpr, error) {
	p.push("raw expression")
	defer p.pop()

	start := p.pos
	end, err := p.scanRaw()
	if err != nil {
		return nil, err
	}
	src := p.src[start:end]
	trimmed := strings.TrimSpace(src)
	if trimmed == "" {
		return nil, p.errorf(verrors.ErrorTypeSyntax, "expected expression, found %s", p.found())
	}

	program, err := expr.Compile(trimmed)
	if err != nil {
		e := p.errorAt(start, verrors.ErrorTypeExpression, "invalid expression %q", trimmed)
		e.Err = err
		return nil, e
	}
	idents, err := identifiers(trimmed)
	if err != nil {
		e := p.errorAt(start, verrors.ErrorTypeExpression, "invalid expression %q", trimmed)
		e.Err = err
		return nil, e
	}
	p.pos = end
	return &ast.RawExpr{Source: trimmed, Program: program, Identifiers: idents}, nil
}

func (p *parser) scanRaw() (int, error) {
	var stack []rune
	i := p.pos
	for i < len(p.src) {
		c := p.src[i]
		switch c {
		case '"', '\'', '`':
			j, ok := skipString(p.src, i)
			if !ok {
				return 0, p.errorAt(i, verrors.ErrorTypeDelimiter, "unterminated string literal")
			}
			i = j
			continue
		case '(':
			stack = append(stack, ')')
		case '[':
			stack = append(stack, ']')
		case '{':
			stack = append(stack, '}')
		case ')', ']', '}':
			if len(stack) == 0 {
				return i, nil
			}
			if want := stack[len(stack)-1]; rune(c) != want {
				return 0, p.errorAt(i, verrors.ErrorTypeDelimiter, "expected '%c', found '%c'", want, c)
			}
			stack = stack[:len(stack)-1]
		case ';':
			if len(stack) == 0 {
				return i, nil
			}
		default:
			if len(stack) == 0 && (i == p.pos || !isIdentByte(p.src[i-1])) {
				save := p.pos
				p.pos = i
				w := p.peekWord()
				p.pos = save
				if IsKeyword(w) {
					return i, nil
				}
				if w != "" {
					i += len(w)
					continue
				}
			}
		}
		i++
	}
	if len(stack) > 0 {
		return 0, p.errorAt(i, verrors.ErrorTypeDelimiter, "expected '%c', found end of input", stack[len(stack)-1])
	}
	return i, nil
}

// isIdentByte reports whether b may continue an identifier. Bytes of
// multi-byte runes count as identifier bytes so that a keyword is never
// matched in the middle of a non-ASCII word.
func isIdentByte(b byte) bool {
	return b == '_' || b == '.' || b >= 0x80 ||
		(b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// skipString returns the index just after the string literal starting at i.
func skipString(s string, i int) (int, bool) {
	quote := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case quote:
			return j + 1, true
		}
	}
	return 0, false
}
