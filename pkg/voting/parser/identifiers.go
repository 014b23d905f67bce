package parser

import (
	"strings"

	exprast "github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/conf"
	exprparser "github.com/expr-lang/expr/parser"
)

// identifierCollector gathers the free variables of an expression in order
// of first use.
type identifierCollector struct {
	seen  map[string]struct{}
	names []string
}

func (c *identifierCollector) Visit(node *exprast.Node) {
	n, ok := (*node).(*exprast.IdentifierNode)
	if !ok || strings.HasPrefix(n.Value, "$") {
		return
	}
	if _, dup := c.seen[n.Value]; dup {
		return
	}
	c.seen[n.Value] = struct{}{}
	c.names = append(c.names, n.Value)
}

// identifiers returns the variables read by the expression src.
func identifiers(src string) ([]string, error) {
	tree, err := exprparser.ParseWithConfig(src, conf.CreateNew())
	if err != nil {
		return nil, err
	}
	c := &identifierCollector{seen: make(map[string]struct{})}
	exprast.Walk(&tree.Node, c)
	return c.names, nil
}
