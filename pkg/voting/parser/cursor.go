package parser

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	verrors "mercator-hq/ldatranslate/pkg/voting/errors"
)

const eof rune = -1

// keywords cannot be used as names and end raw expressions.
var keywords = map[string]struct{}{
	"foreach": {}, "global": {}, "aggregate": {}, "let": {},
	"execute": {}, "declare": {}, "if": {}, "else": {},
}

// IsKeyword reports whether s is a reserved word of the voting language.
func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

// cursor walks the source text and keeps the stack of grammar contexts
// used to annotate errors.
type cursor struct {
	src      string
	pos      int
	contexts []string
}

func (c *cursor) peek() rune {
	if c.pos >= len(c.src) {
		return eof
	}
	r, _ := utf8.DecodeRuneInString(c.src[c.pos:])
	return r
}

func (c *cursor) next() rune {
	if c.pos >= len(c.src) {
		return eof
	}
	r, n := utf8.DecodeRuneInString(c.src[c.pos:])
	c.pos += n
	return r
}

func (c *cursor) hasPrefix(prefix string) bool {
	return strings.HasPrefix(c.src[c.pos:], prefix)
}

func (c *cursor) atEOF() bool {
	return c.pos >= len(c.src)
}

func (c *cursor) skipSpace() {
	for {
		r := c.peek()
		if r == eof || !unicode.IsSpace(r) {
			return
		}
		c.next()
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// peekWord returns the identifier-shaped word at the cursor without consuming it.
func (c *cursor) peekWord() string {
	r, n := utf8.DecodeRuneInString(c.src[c.pos:])
	if c.atEOF() || !isIdentStart(r) {
		return ""
	}
	end := c.pos + n
	for end < len(c.src) {
		r, n := utf8.DecodeRuneInString(c.src[end:])
		if !isIdentPart(r) {
			break
		}
		end += n
	}
	return c.src[c.pos:end]
}

// acceptKeyword consumes kw if it is the next word.
func (c *cursor) acceptKeyword(kw string) bool {
	if c.peekWord() == kw {
		c.pos += len(kw)
		return true
	}
	return false
}

// accept consumes r if it is the next rune.
func (c *cursor) accept(r rune) bool {
	if c.peek() == r {
		c.next()
		return true
	}
	return false
}

func (c *cursor) push(context string) {
	c.contexts = append(c.contexts, context)
}

func (c *cursor) pop() {
	c.contexts = c.contexts[:len(c.contexts)-1]
}

// errorAt builds a parse error at offset, recording the active contexts
// innermost first.
func (c *cursor) errorAt(offset int, typ verrors.ErrorType, format string, args ...any) *verrors.Error {
	pos := verrors.PositionOf(c.src, offset)
	contexts := slices.Clone(c.contexts)
	slices.Reverse(contexts)
	return &verrors.Error{
		Type:     typ,
		Message:  fmt.Sprintf(format, args...),
		Pos:      pos,
		Contexts: contexts,
		Snippet:  verrors.ExtractSnippet(c.src, pos, 1),
	}
}

func (c *cursor) errorf(typ verrors.ErrorType, format string, args ...any) *verrors.Error {
	return c.errorAt(c.pos, typ, format, args...)
}

// found describes the text at the cursor for error messages.
func (c *cursor) found() string {
	if c.atEOF() {
		return "end of input"
	}
	if w := c.peekWord(); w != "" {
		return fmt.Sprintf("%q", w)
	}
	return fmt.Sprintf("%q", c.peek())
}

// expect consumes the delimiter r or fails naming what was expected.
func (c *cursor) expect(r rune, context string) error {
	c.skipSpace()
	if c.accept(r) {
		return nil
	}
	c.push(context)
	defer c.pop()
	typ := verrors.ErrorTypeSyntax
	switch r {
	case ')', ']', '}':
		typ = verrors.ErrorTypeDelimiter
	}
	return c.errorf(typ, "expected '%c', found %s", r, c.found())
}
