// Package errors provides rich parse errors for the voting language.
//
// Errors carry a source position, the stack of grammar contexts that were
// active when parsing failed (for example "closing parentheses for block
// expr"), a snippet of the surrounding source and, for unknown names, a
// suggestion computed from the known names.
package errors
