package ast

import (
	"fmt"
	"io"
	"strings"
)

// Printer outputs the AST in its lowered form: loops and switches
// appear as label and jump sequences.
type Printer struct {
	w      io.Writer
	indent int
}

// NewPrinter creates a new AST printer
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// PrintUnit prints a complete translation unit
func (p *Printer) PrintUnit(unit *TranslationUnit) {
	for _, item := range unit.Items {
		switch n := item.(type) {
		case *FuncDef:
			p.printFuncDef(n)
		case *CompoundStmt:
			// A lifted declaration: print its initializers flat.
			for _, s := range n.Items {
				p.printStmt(s)
			}
		case Stmt:
			p.printStmt(n)
		}
	}
}

func (p *Printer) writeIndent() {
	fmt.Fprint(p.w, strings.Repeat("  ", p.indent))
}

func (p *Printer) printFuncDef(f *FuncDef) {
	fmt.Fprintf(p.w, "%s %s(", f.Ty.Return(), f.Name)
	for i, prm := range f.Ty.Params() {
		if i > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprint(p.w, prm)
	}
	if f.Ty.Variadic() {
		if len(f.Ty.Params()) > 0 {
			fmt.Fprint(p.w, ", ")
		}
		fmt.Fprint(p.w, "...")
	}
	fmt.Fprintln(p.w, ")")
	p.printStmt(f.Body)
}

func (p *Printer) printStmt(s Stmt) {
	switch n := s.(type) {
	case *EmptyStmt:
		p.writeIndent()
		fmt.Fprintln(p.w, ";")
	case *CompoundStmt:
		p.writeIndent()
		fmt.Fprintln(p.w, "{")
		p.indent++
		for _, item := range n.Items {
			p.printStmt(item)
		}
		p.indent--
		p.writeIndent()
		fmt.Fprintln(p.w, "}")
	case *IfStmt:
		p.writeIndent()
		fmt.Fprintf(p.w, "if (%s)\n", exprString(n.Cond))
		p.indentStmt(n.Then)
		if n.Else != nil {
			p.writeIndent()
			fmt.Fprintln(p.w, "else")
			p.indentStmt(n.Else)
		}
	case *LabelStmt:
		fmt.Fprintf(p.w, "%s:\n", n.Name())
	case *JumpStmt:
		p.writeIndent()
		if n.Label == nil {
			fmt.Fprintln(p.w, "goto <unresolved>;")
		} else {
			fmt.Fprintf(p.w, "goto %s;\n", n.Label.Name())
		}
	case *ReturnStmt:
		p.writeIndent()
		if n.Expr == nil {
			fmt.Fprintln(p.w, "return;")
		} else {
			fmt.Fprintf(p.w, "return %s;\n", exprString(n.Expr))
		}
	case Expr:
		p.writeIndent()
		fmt.Fprintf(p.w, "%s;\n", exprString(n))
	case nil:
	default:
		p.writeIndent()
		fmt.Fprintf(p.w, "/* unknown statement %T */\n", s)
	}
}

// indentStmt prints a statement one level deeper unless it is a block,
// which manages its own braces.
func (p *Printer) indentStmt(s Stmt) {
	if _, ok := s.(*CompoundStmt); ok {
		p.printStmt(s)
		return
	}
	p.indent++
	p.printStmt(s)
	p.indent--
}

func exprString(e Expr) string {
	switch n := e.(type) {
	case *Constant:
		if n.IsIntegerConst() {
			return fmt.Sprintf("%d", n.I)
		}
		return fmt.Sprintf("%g", n.F)
	case *Identifier:
		return n.Name
	case *Object:
		return n.Name
	case *TempVar:
		return fmt.Sprintf("t%d", n.ID)
	case *BinaryOp:
		switch n.Op {
		case OpSubscript:
			return fmt.Sprintf("%s[%s]", exprString(n.Lhs), exprString(n.Rhs))
		case OpMember, OpArrow:
			name := "?"
			if n.Member != nil {
				name = n.Member.Name
			}
			return fmt.Sprintf("%s%s%s", exprString(n.Lhs), n.Op, name)
		}
		return fmt.Sprintf("(%s %s %s)", exprString(n.Lhs), n.Op, exprString(n.Rhs))
	case *UnaryOp:
		switch n.Op {
		case OpPostfixInc, OpPostfixDec:
			return fmt.Sprintf("(%s%s)", exprString(n.Operand), n.Op)
		case OpCast:
			return fmt.Sprintf("(%s)%s", n.Ty, exprString(n.Operand))
		}
		return fmt.Sprintf("(%s%s)", n.Op, exprString(n.Operand))
	case *ConditionalOp:
		return fmt.Sprintf("(%s ? %s : %s)",
			exprString(n.Cond), exprString(n.Then), exprString(n.Else))
	case *FuncCall:
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			args[i] = exprString(a)
		}
		return fmt.Sprintf("%s(%s)", exprString(n.Designator), strings.Join(args, ", "))
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("<%T>", e)
}
