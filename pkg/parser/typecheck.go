package parser

import (
	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/lexer"
)

// The type checker. One compact rule set per operator category, invoked
// by the node factory: each check either sets the node's result type or
// reports a diagnostic and falls back to a best-effort type so parsing
// can continue.

func (p *Parser) checkBinaryOp(n *ast.BinaryOp, tok lexer.Token) {
	switch n.Op {
	case ast.OpComma:
		n.Ty = n.Rhs.Type()
	case ast.OpSubscript:
		p.checkSubscriptOp(n, tok)
	case ast.OpMul, ast.OpDiv, ast.OpMod:
		p.checkMultiplicativeOp(n, tok)
	case ast.OpAdd, ast.OpSub:
		p.checkAdditiveOp(n, tok)
	case ast.OpShl, ast.OpShr:
		p.checkShiftOp(n, tok)
	case ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		p.checkRelationalOp(n, tok)
	case ast.OpEq, ast.OpNe:
		p.checkEqualityOp(n, tok)
	case ast.OpBitAnd, ast.OpBitXor, ast.OpBitOr:
		p.checkBitwiseOp(n, tok)
	case ast.OpLogicalAnd, ast.OpLogicalOr:
		p.checkLogicalOp(n, tok)
	case ast.OpAssign:
		p.checkAssignOp(n, tok)
	}
	if n.Ty == nil {
		n.Ty = ctypes.Int()
	}
}

func (p *Parser) checkSubscriptOp(n *ast.BinaryOp, tok lexer.Token) {
	lhsType := ctypes.ToPointer(ctypes.Decay(n.Lhs.Type()))
	if lhsType == nil {
		p.errorf(tok.Coord(), "a pointer expected")
		return
	}
	if !ctypes.IsInteger(n.Rhs.Type()) {
		p.errorf(tok.Coord(), "the operand of [] should be integer")
	}

	// The type of the [] operator is the pointee.
	n.Ty = lhsType.Base()
}

func (p *Parser) checkMemberRefOp(n *ast.BinaryOp, tok lexer.Token, member string) {
	var structType *ctypes.StructType
	if n.Op == ast.OpArrow {
		pointer := ctypes.ToPointer(ctypes.Decay(n.Lhs.Type()))
		if pointer == nil {
			p.errorf(tok.Coord(), "pointer expected for operator '->'")
		} else {
			structType = ctypes.ToStructUnion(pointer.Base())
			if structType == nil {
				p.errorf(tok.Coord(), "pointer to struct/union expected")
			}
		}
	} else {
		structType = ctypes.ToStructUnion(n.Lhs.Type())
		if structType == nil {
			p.errorf(tok.Coord(), "a struct/union expected")
		}
	}

	if structType == nil {
		n.Ty = ctypes.Int()
		return
	}
	if !structType.Complete() {
		p.errorf(tok.Coord(), "'%s' is incomplete", structType)
		n.Ty = ctypes.Int()
		return
	}

	m := structType.Member(member)
	if m == nil {
		p.errorf(tok.Coord(), "'%s' is not a member of '%s'", member, structType)
		n.Ty = ctypes.Int()
		return
	}

	n.Member = m
	memberObj := p.newObject(m.Name, m.Type, 0, ast.LinkNone)
	memberObj.Offset = m.Offset
	n.Rhs = memberObj
	n.Ty = m.Type
}

func (p *Parser) checkMultiplicativeOp(n *ast.BinaryOp, tok lexer.Token) {
	lhsType := ctypes.ToArithm(n.Lhs.Type())
	rhsType := ctypes.ToArithm(n.Rhs.Type())

	if lhsType == nil || rhsType == nil {
		p.errorf(tok.Coord(), "operands should have arithmetic type")
		return
	}

	if n.Op == ast.OpMod && !(lhsType.IsInteger() && rhsType.IsInteger()) {
		p.errorf(tok.Coord(), "operands of '%%' should be integers")
		return
	}

	n.Ty = ctypes.UsualArithConv(lhsType, rhsType)
}

// checkAdditiveOp allows pointer ± integer, pointer − pointer of the
// same pointee (yielding a signed integer), and arithmetic operands
// under the usual conversions.
func (p *Parser) checkAdditiveOp(n *ast.BinaryOp, tok lexer.Token) {
	lhsDecayed := ctypes.Decay(n.Lhs.Type())
	rhsDecayed := ctypes.Decay(n.Rhs.Type())
	lhsPtr := ctypes.ToPointer(lhsDecayed)
	rhsPtr := ctypes.ToPointer(rhsDecayed)

	switch {
	case lhsPtr != nil && rhsPtr != nil:
		if n.Op != ast.OpSub || !ctypes.Equal(lhsPtr.Base(), rhsPtr.Base()) {
			p.errorf(tok.Coord(), "invalid operands to binary %s", n.Op)
			return
		}
		n.Ty = ctypes.Long()

	case lhsPtr != nil:
		if !ctypes.IsInteger(n.Rhs.Type()) {
			p.errorf(tok.Coord(), "invalid operands to binary %s", n.Op)
			return
		}
		n.Ty = lhsDecayed

	case rhsPtr != nil:
		if n.Op != ast.OpAdd || !ctypes.IsInteger(n.Lhs.Type()) {
			p.errorf(tok.Coord(), "invalid operands to binary %s", n.Op)
			return
		}
		n.Ty = rhsDecayed

	default:
		lhsType := ctypes.ToArithm(n.Lhs.Type())
		rhsType := ctypes.ToArithm(n.Rhs.Type())
		if lhsType == nil || rhsType == nil {
			p.errorf(tok.Coord(), "invalid operands to binary %s", n.Op)
			return
		}
		n.Ty = ctypes.UsualArithConv(lhsType, rhsType)
	}
}

// checkShiftOp requires integer operands; the result keeps the left
// operand's type.
func (p *Parser) checkShiftOp(n *ast.BinaryOp, tok lexer.Token) {
	if !ctypes.IsInteger(n.Lhs.Type()) || !ctypes.IsInteger(n.Rhs.Type()) {
		p.errorf(tok.Coord(), "operands of '%s' should be integers", n.Op)
		return
	}
	n.Ty = n.Lhs.Type()
}

func (p *Parser) checkRelationalOp(n *ast.BinaryOp, tok lexer.Token) {
	p.checkComparisonOperands(n, tok)
	n.Ty = ctypes.Bool()
}

func (p *Parser) checkEqualityOp(n *ast.BinaryOp, tok lexer.Token) {
	p.checkComparisonOperands(n, tok)
	n.Ty = ctypes.Bool()
}

// checkComparisonOperands accepts arithmetic pairs, pointer pairs of
// equal type, and pointer against integer.
func (p *Parser) checkComparisonOperands(n *ast.BinaryOp, tok lexer.Token) {
	lhsType := ctypes.Decay(n.Lhs.Type())
	rhsType := ctypes.Decay(n.Rhs.Type())

	if ctypes.ToArithm(lhsType) != nil && ctypes.ToArithm(rhsType) != nil {
		return
	}
	lhsPtr := ctypes.ToPointer(lhsType)
	rhsPtr := ctypes.ToPointer(rhsType)
	if lhsPtr != nil && rhsPtr != nil {
		if !ctypes.Equal(lhsPtr.Base(), rhsPtr.Base()) &&
			!ctypes.IsVoid(lhsPtr.Base()) && !ctypes.IsVoid(rhsPtr.Base()) {
			p.errorf(tok.Coord(), "comparison of distinct pointer types")
		}
		return
	}
	if (lhsPtr != nil && ctypes.IsInteger(rhsType)) ||
		(rhsPtr != nil && ctypes.IsInteger(lhsType)) {
		return
	}
	p.errorf(tok.Coord(), "invalid operands to binary %s", n.Op)
}

// checkBitwiseOp requires both operands to be integers.
func (p *Parser) checkBitwiseOp(n *ast.BinaryOp, tok lexer.Token) {
	if !ctypes.IsInteger(n.Lhs.Type()) || !ctypes.IsInteger(n.Rhs.Type()) {
		p.errorf(tok.Coord(), "operands of '%s' should be integers", n.Op)
		return
	}
	n.Ty = ctypes.UsualArithConv(ctypes.ToArithm(n.Lhs.Type()), ctypes.ToArithm(n.Rhs.Type()))
}

func (p *Parser) checkLogicalOp(n *ast.BinaryOp, tok lexer.Token) {
	if !ctypes.IsScalar(ctypes.Decay(n.Lhs.Type())) ||
		!ctypes.IsScalar(ctypes.Decay(n.Rhs.Type())) {
		p.errorf(tok.Coord(), "the operand should be arithmetic type or pointer")
	}
	n.Ty = ctypes.Bool()
}

func (p *Parser) checkAssignOp(n *ast.BinaryOp, tok lexer.Token) {
	if !n.Lhs.IsLValue() {
		p.errorf(tok.Coord(), "lvalue expression expected")
	} else if n.Lhs.Type().Qual()&ctypes.QConst != 0 {
		p.errorf(tok.Coord(), "can't modify 'const' qualified expression")
	} else if !ctypes.Compatible(n.Lhs.Type(), n.Rhs.Type()) {
		p.errorf(tok.Coord(), "incompatible types when assigning to type '%s' from type '%s'",
			n.Lhs.Type(), n.Rhs.Type())
	}

	n.Ty = n.Lhs.Type()
}

func (p *Parser) checkUnaryOp(n *ast.UnaryOp, tok lexer.Token) {
	switch n.Op {
	case ast.OpPostfixInc, ast.OpPostfixDec, ast.OpPrefixInc, ast.OpPrefixDec:
		p.checkIncDecOp(n, tok)
	case ast.OpAddr:
		p.checkAddrOp(n, tok)
	case ast.OpDeref:
		p.checkDerefOp(n, tok)
	case ast.OpPlus, ast.OpMinus, ast.OpBitNot, ast.OpLogicalNot:
		p.checkUnaryArithmOp(n, tok)
	case ast.OpCast:
		p.checkCastOp(n, tok)
	}
	if n.Ty == nil {
		n.Ty = ctypes.Int()
	}
}

func (p *Parser) checkIncDecOp(n *ast.UnaryOp, tok lexer.Token) {
	if !n.Operand.IsLValue() {
		p.errorf(tok.Coord(), "lvalue expression expected")
	} else if n.Operand.Type().Qual()&ctypes.QConst != 0 {
		p.errorf(tok.Coord(), "can't modify 'const' qualified expression")
	} else if !ctypes.IsScalar(n.Operand.Type()) {
		p.errorf(tok.Coord(), "scalar expression expected")
	}

	n.Ty = n.Operand.Type()
}

func (p *Parser) checkAddrOp(n *ast.UnaryOp, tok lexer.Token) {
	if ctypes.ToFunc(n.Operand.Type()) == nil && !n.Operand.IsLValue() {
		p.errorf(tok.Coord(), "expression must be an lvalue or function designator")
	}
	n.Ty = ctypes.NewPointer(n.Operand.Type())
}

func (p *Parser) checkDerefOp(n *ast.UnaryOp, tok lexer.Token) {
	pointerType := ctypes.ToPointer(ctypes.Decay(n.Operand.Type()))
	if pointerType == nil {
		p.errorf(tok.Coord(), "pointer expected for deref operator '*'")
		return
	}
	n.Ty = pointerType.Base()
}

func (p *Parser) checkUnaryArithmOp(n *ast.UnaryOp, tok lexer.Token) {
	operandType := n.Operand.Type()
	switch n.Op {
	case ast.OpPlus, ast.OpMinus:
		if ctypes.ToArithm(operandType) == nil {
			p.errorf(tok.Coord(), "arithmetic type expected")
		}
		n.Ty = operandType
	case ast.OpBitNot:
		if !ctypes.IsInteger(operandType) {
			p.errorf(tok.Coord(), "integer expected for operator '~'")
		}
		n.Ty = operandType
	default: // OpLogicalNot
		if !ctypes.IsScalar(ctypes.Decay(operandType)) {
			p.errorf(tok.Coord(), "arithmetic type or pointer expected for operator '!'")
		}
		n.Ty = ctypes.Bool()
	}
}

// checkCastOp validates '(type) expr': the destination must be scalar
// (or void), and pointers never convert to or from floating types.
func (p *Parser) checkCastOp(n *ast.UnaryOp, tok lexer.Token) {
	// The destination type was stored by the factory.
	if ctypes.IsVoid(n.Ty) {
		return
	}
	if !ctypes.IsScalar(n.Ty) {
		p.errorf(tok.Coord(), "the cast type should be arithmetic type or pointer")
		return
	}

	operandType := ctypes.Decay(n.Operand.Type())
	if ctypes.IsFloating(n.Ty) && ctypes.ToPointer(operandType) != nil {
		p.errorf(tok.Coord(), "can't cast a pointer to floating")
	} else if ctypes.ToPointer(n.Ty) != nil && ctypes.IsFloating(operandType) {
		p.errorf(tok.Coord(), "can't cast a floating to pointer")
	}
}

// checkConditionalOp requires a scalar condition and computes the common
// branch type: identical types, usual arithmetic conversions, or equal
// pointer types.
func (p *Parser) checkConditionalOp(n *ast.ConditionalOp, tok lexer.Token) {
	if !ctypes.IsScalar(ctypes.Decay(n.Cond.Type())) {
		p.errorf(tok.Coord(), "scalar is required")
	}

	thenType := ctypes.Decay(n.Then.Type())
	elseType := ctypes.Decay(n.Else.Type())

	switch {
	case ctypes.Equal(thenType, elseType):
		n.Ty = thenType
	case ctypes.ToArithm(thenType) != nil && ctypes.ToArithm(elseType) != nil:
		n.Ty = ctypes.UsualArithConv(ctypes.ToArithm(thenType), ctypes.ToArithm(elseType))
	default:
		p.errorf(tok.Coord(), "type mismatch in conditional expression")
		n.Ty = thenType
	}
	if n.Ty == nil {
		n.Ty = ctypes.Int()
	}
}

// checkFuncCall requires a function (or pointer-to-function) designator
// and checks every argument against the declared parameter; extra
// arguments are allowed only for variadic functions.
func (p *Parser) checkFuncCall(n *ast.FuncCall, tok lexer.Token) {
	desType := n.Designator.Type()
	if ptr := ctypes.ToPointer(desType); ptr != nil {
		desType = ptr.Base()
	}
	funcType := ctypes.ToFunc(desType)
	if funcType == nil {
		p.errorf(tok.Coord(), "called object is not a function")
		n.Ty = ctypes.Int()
		return
	}

	n.Ty = funcType.Return()
	if funcType.Unspecified() {
		return
	}

	params := funcType.Params()
	if len(n.Args) < len(params) {
		p.errorf(tok.Coord(), "too few arguments to function")
		return
	}
	if len(n.Args) > len(params) && !funcType.Variadic() {
		p.errorf(tok.Coord(), "too many arguments to function")
		return
	}

	for i, prm := range params {
		arg := n.Args[i]
		if arg == nil {
			continue
		}
		if !ctypes.Compatible(prm, arg.Type()) {
			p.errorf(tok.Coord(), "incompatible type for argument %d", i+1)
		}
	}
}
