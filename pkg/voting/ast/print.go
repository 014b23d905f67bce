package ast

import (
	"fmt"
	"strings"
)

const indentUnit = "    "

// Format renders v as voting source. The output is not necessarily identical
// to the text v was parsed from, but parses back to an equivalent tree.
func Format(v Voting) string {
	var p printer
	p.voting(v)
	return p.String()
}

// FormatExecutable renders a single expression or statement.
func FormatExecutable(e Executable) string {
	var p printer
	p.executable(e)
	return p.String()
}

type printer struct {
	strings.Builder
	depth int
}

func (p *printer) newline() {
	p.WriteByte('\n')
	p.WriteString(strings.Repeat(indentUnit, p.depth))
}

func (p *printer) voting(v Voting) {
	switch n := v.(type) {
	case *BuildInRef:
		p.WriteString(n.BuildIn.String())
	case *NamedRef:
		p.WriteString(n.Name)
	case *LimitedRef:
		p.voting(n.Target)
		fmt.Fprintf(p, "(%d)", n.Limit)
	case *Declaration:
		p.WriteString("declare ")
		p.WriteString(n.Name)
		p.WriteString(" {")
		p.depth++
		p.newline()
		p.ops(n.Function.Ops)
		p.depth--
		p.newline()
		p.WriteByte('}')
	case *Function:
		if n.Root {
			p.ops(n.Ops)
			return
		}
		p.WriteByte('{')
		p.depth++
		p.newline()
		p.ops(n.Ops)
		p.depth--
		p.newline()
		p.WriteByte('}')
	default:
		fmt.Fprintf(p, "<%T>", v)
	}
}

func (p *printer) ops(ops []Operation) {
	for i, op := range ops {
		if i > 0 {
			p.newline()
		}
		p.operation(op)
	}
}

func (p *printer) operation(op Operation) {
	switch n := op.(type) {
	case *ForEach:
		p.WriteString("foreach: ")
		p.body(n.Body)
	case *Global:
		p.WriteString("global: ")
		p.body(n.Body)
	case *Aggregate:
		fmt.Fprintf(p, "aggregate(let %s = %s): ", n.Name, n.Aggregation)
		p.body(n.Body)
	case *Execute:
		fmt.Fprintf(p, "execute(let %s = ", n.Name)
		p.voting(n.Call)
		p.WriteString(");")
	default:
		fmt.Fprintf(p, "<%T>", op)
	}
}

// body prints the list of an operation. An unbraced body is terminated with
// a semicolon so the next operation cannot be read as part of it.
func (p *printer) body(l ExecList) {
	if p.list(l, false) {
		return
	}
	p.WriteByte(';')
}

// list prints l and reports whether it was written with braces.
func (p *printer) list(l ExecList, forceBraces bool) bool {
	if !forceBraces && !l.Braced && len(l.Items) == 1 {
		p.executable(l.Items[0])
		return false
	}
	p.WriteByte('{')
	p.depth++
	for _, item := range l.Items {
		p.newline()
		p.executable(item)
		p.WriteByte(';')
	}
	p.depth--
	p.newline()
	p.WriteByte('}')
	return true
}

func (p *printer) executable(e Executable) {
	switch n := e.(type) {
	case *RawExpr:
		p.WriteString(strings.TrimSpace(n.Source))
	case *TupleIndex:
		fmt.Fprintf(p, "%s[%s]", n.Name, n.Index)
	case *IfElse:
		p.WriteString("if (")
		p.executable(n.Cond)
		p.WriteString(") ")
		p.list(n.Then, true)
		p.WriteString(" else ")
		p.list(n.Else, true)
	case *If:
		p.WriteString("if (")
		p.executable(n.Cond)
		p.WriteString(") ")
		p.list(n.Then, true)
	case *Let:
		fmt.Fprintf(p, "let %s = ", n.Name)
		p.list(n.Value, false)
	default:
		fmt.Fprintf(p, "<%T>", e)
	}
}
