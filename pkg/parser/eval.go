package parser

import (
	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/lexer"
)

// Simple integer constant evaluation over the AST, enough for array
// lengths, enumerators, case values, _Alignas and _Static_assert.
// Anything beyond integer constants, enum constants and the integer
// operators is not a constant expression here.

// evalInteger evaluates e as an integer constant expression.
func evalInteger(e ast.Expr) (int64, bool) {
	switch n := e.(type) {
	case *ast.Constant:
		if !n.IsIntegerConst() {
			return 0, false
		}
		return n.I, true

	case *ast.UnaryOp:
		v, ok := evalInteger(n.Operand)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case ast.OpPlus:
			return v, true
		case ast.OpMinus:
			return -v, true
		case ast.OpBitNot:
			return ^v, true
		case ast.OpLogicalNot:
			return boolToInt(v == 0), true
		case ast.OpCast:
			return v, true
		}
		return 0, false

	case *ast.BinaryOp:
		lhs, ok := evalInteger(n.Lhs)
		if !ok {
			return 0, false
		}
		rhs, ok := evalInteger(n.Rhs)
		if !ok {
			return 0, false
		}
		switch n.Op {
		case ast.OpAdd:
			return lhs + rhs, true
		case ast.OpSub:
			return lhs - rhs, true
		case ast.OpMul:
			return lhs * rhs, true
		case ast.OpDiv:
			if rhs == 0 {
				return 0, false
			}
			return lhs / rhs, true
		case ast.OpMod:
			if rhs == 0 {
				return 0, false
			}
			return lhs % rhs, true
		case ast.OpShl:
			return lhs << uint(rhs&63), true
		case ast.OpShr:
			return lhs >> uint(rhs&63), true
		case ast.OpBitAnd:
			return lhs & rhs, true
		case ast.OpBitXor:
			return lhs ^ rhs, true
		case ast.OpBitOr:
			return lhs | rhs, true
		case ast.OpLt:
			return boolToInt(lhs < rhs), true
		case ast.OpGt:
			return boolToInt(lhs > rhs), true
		case ast.OpLe:
			return boolToInt(lhs <= rhs), true
		case ast.OpGe:
			return boolToInt(lhs >= rhs), true
		case ast.OpEq:
			return boolToInt(lhs == rhs), true
		case ast.OpNe:
			return boolToInt(lhs != rhs), true
		case ast.OpLogicalAnd:
			return boolToInt(lhs != 0 && rhs != 0), true
		case ast.OpLogicalOr:
			return boolToInt(lhs != 0 || rhs != 0), true
		case ast.OpComma:
			return rhs, true
		}
		return 0, false

	case *ast.ConditionalOp:
		cond, ok := evalInteger(n.Cond)
		if !ok {
			return 0, false
		}
		if cond != 0 {
			return evalInteger(n.Then)
		}
		return evalInteger(n.Else)
	}

	return 0, false
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// evalIntegerExpr evaluates e and reports a diagnostic at tok when it is
// not an integer constant expression.
func (p *Parser) evalIntegerExpr(tok lexer.Token, e ast.Expr) int64 {
	if e == nil {
		return 0
	}
	v, ok := evalInteger(e)
	if !ok {
		p.errorf(tok.Coord(), "expect constant integer expression")
		return 0
	}
	return v
}
