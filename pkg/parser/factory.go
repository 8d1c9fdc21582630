package parser

import (
	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/lexer"
)

// The node factory: every expression allocation runs the type checker,
// which either sets the node's result type or reports a diagnostic. A
// nil operand means an error was already reported for a subexpression;
// the factory then returns nil instead of building a half-typed node.

func (p *Parser) newBinaryOp(tok lexer.Token, op ast.Op, lhs, rhs ast.Expr) *ast.BinaryOp {
	if lhs == nil || rhs == nil {
		return nil
	}
	n := p.pools.binaryOp.Alloc()
	*n = ast.BinaryOp{Op: op, Lhs: lhs, Rhs: rhs}
	p.checkBinaryOp(n, tok)
	return n
}

// newMemberRefOp builds a '.' or '->' reference; the right side is
// resolved against the struct type by the checker.
func (p *Parser) newMemberRefOp(tok lexer.Token, op ast.Op, lhs ast.Expr, member string) *ast.BinaryOp {
	if lhs == nil {
		return nil
	}
	n := p.pools.binaryOp.Alloc()
	*n = ast.BinaryOp{Op: op, Lhs: lhs}
	p.checkMemberRefOp(n, tok, member)
	return n
}

// newInitAssign builds the assignment a declaration initializer lowers
// to. Initialization may write const objects, so only operand
// compatibility is checked.
func (p *Parser) newInitAssign(tok lexer.Token, lhs, rhs ast.Expr) *ast.BinaryOp {
	if lhs == nil || rhs == nil {
		return nil
	}
	n := p.pools.binaryOp.Alloc()
	*n = ast.BinaryOp{Op: ast.OpAssign, Lhs: lhs, Rhs: rhs, Ty: lhs.Type()}
	if !ctypes.Compatible(lhs.Type(), rhs.Type()) {
		p.errorf(tok.Coord(), "incompatible types when initializing type '%s' from type '%s'",
			lhs.Type(), rhs.Type())
	}
	return n
}

func (p *Parser) newUnaryOp(tok lexer.Token, op ast.Op, operand ast.Expr, ty ctypes.Type) *ast.UnaryOp {
	if operand == nil {
		return nil
	}
	n := p.pools.unaryOp.Alloc()
	*n = ast.UnaryOp{Op: op, Operand: operand, Ty: ty}
	p.checkUnaryOp(n, tok)
	return n
}

func (p *Parser) newConditionalOp(tok lexer.Token, cond, then, els ast.Expr) *ast.ConditionalOp {
	if cond == nil || then == nil || els == nil {
		return nil
	}
	n := p.pools.conditionalOp.Alloc()
	*n = ast.ConditionalOp{Cond: cond, Then: then, Else: els}
	p.checkConditionalOp(n, tok)
	return n
}

func (p *Parser) newFuncCall(tok lexer.Token, designator ast.Expr, args []ast.Expr) *ast.FuncCall {
	if designator == nil {
		return nil
	}
	n := p.pools.funcCall.Alloc()
	*n = ast.FuncCall{Designator: designator, Args: args}
	p.checkFuncCall(n, tok)
	return n
}

func (p *Parser) newIdentifier(name string, ty ctypes.Type, linkage ast.Linkage) *ast.Identifier {
	n := p.pools.identifier.Alloc()
	*n = ast.Identifier{Name: name, Ty: ty, Link: linkage}
	return n
}

func (p *Parser) newObject(name string, ty ctypes.Type, storage int, linkage ast.Linkage) *ast.Object {
	n := p.pools.object.Alloc()
	*n = ast.Object{
		Identifier: ast.Identifier{Name: name, Ty: ty, Link: linkage},
		Storage:    storage,
	}
	return n
}

func (p *Parser) newTypeName(name string, ty ctypes.Type) *ast.TypeName {
	n := p.pools.typeName.Alloc()
	*n = ast.TypeName{Identifier: ast.Identifier{Name: name, Ty: ty}}
	return n
}

func (p *Parser) newConstantInt(ty *ctypes.ArithmType, val int64) *ast.Constant {
	n := p.pools.constant.Alloc()
	*n = ast.Constant{Ty: ty, I: val}
	return n
}

func (p *Parser) newConstantFloat(ty *ctypes.ArithmType, val float64) *ast.Constant {
	n := p.pools.constant.Alloc()
	*n = ast.Constant{Ty: ty, F: val}
	return n
}

func (p *Parser) newTempVar(ty ctypes.Type) *ast.TempVar {
	p.tempID++
	n := p.pools.tempVar.Alloc()
	*n = ast.TempVar{Ty: ty, ID: p.tempID}
	return n
}

func (p *Parser) newEmptyStmt() *ast.EmptyStmt {
	return p.pools.emptyStmt.Alloc()
}

func (p *Parser) newCompoundStmt(items []ast.Stmt) *ast.CompoundStmt {
	n := p.pools.compoundStmt.Alloc()
	*n = ast.CompoundStmt{Items: items}
	return n
}

func (p *Parser) newIfStmt(cond ast.Expr, then, els ast.Stmt) *ast.IfStmt {
	n := p.pools.ifStmt.Alloc()
	*n = ast.IfStmt{Cond: cond, Then: then, Else: els}
	return n
}

func (p *Parser) newJumpStmt(label *ast.LabelStmt) *ast.JumpStmt {
	n := p.pools.jumpStmt.Alloc()
	*n = ast.JumpStmt{Label: label}
	return n
}

func (p *Parser) newReturnStmt(expr ast.Expr) *ast.ReturnStmt {
	n := p.pools.returnStmt.Alloc()
	*n = ast.ReturnStmt{Expr: expr}
	return n
}

func (p *Parser) newLabelStmt() *ast.LabelStmt {
	p.labelID++
	n := p.pools.labelStmt.Alloc()
	*n = ast.LabelStmt{ID: p.labelID}
	return n
}

func (p *Parser) newFuncDef(name string, ty *ctypes.FuncType, body *ast.CompoundStmt) *ast.FuncDef {
	n := p.pools.funcDef.Alloc()
	*n = ast.FuncDef{Name: name, Ty: ty, Body: body}
	return n
}
