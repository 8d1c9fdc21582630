package parser

import (
	"strconv"
	"strings"

	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/lexer"
)

// The expression parser: a seventeen-level precedence cascade from the
// comma operator down to primary expressions. Each level parses the next
// higher level and loops on its own operator set; every constructed node
// goes through the factory, which runs the type checker.

// parseExpr parses a full expression, comma operators included.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseCommaExpr()
}

func (p *Parser) parseCommaExpr() ast.Expr {
	lhs := p.parseAssignExpr()
	for {
		tok := p.cur.peek()
		if !p.cur.try(lexer.TokenComma) {
			return lhs
		}
		rhs := p.parseAssignExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, ast.OpComma, lhs, rhs))
	}
}

// compoundOps maps a compound-assignment token to the underlying
// operator.
var compoundOps = map[lexer.TokenType]ast.Op{
	lexer.TokenStarAssign:    ast.OpMul,
	lexer.TokenSlashAssign:   ast.OpDiv,
	lexer.TokenPercentAssign: ast.OpMod,
	lexer.TokenPlusAssign:    ast.OpAdd,
	lexer.TokenMinusAssign:   ast.OpSub,
	lexer.TokenShlAssign:     ast.OpShl,
	lexer.TokenShrAssign:     ast.OpShr,
	lexer.TokenAndAssign:     ast.OpBitAnd,
	lexer.TokenXorAssign:     ast.OpBitXor,
	lexer.TokenOrAssign:      ast.OpBitOr,
}

// parseAssignExpr parses assignment, desugaring compound assignments to
// 'lhs = lhs op rhs'. The produced assignment is marked so consumers
// evaluate the left side once.
func (p *Parser) parseAssignExpr() ast.Expr {
	// The lhs should be a unary expression; the type checker enforces
	// the lvalue constraint instead of the grammar.
	lhs := p.parseConditionalExpr()

	tok := p.cur.next()
	if op, ok := compoundOps[tok.Type]; ok {
		rhs := p.parseAssignExpr()
		inner := p.exprOrNil(p.newBinaryOp(tok, op, lhs, rhs))
		assign := p.newBinaryOp(tok, ast.OpAssign, lhs, inner)
		if assign != nil {
			assign.Compound = true
			return assign
		}
		return nil
	}
	if tok.Type == lexer.TokenAssign {
		rhs := p.parseAssignExpr()
		return p.exprOrNil(p.newBinaryOp(tok, ast.OpAssign, lhs, rhs))
	}

	p.cur.putBack()
	return lhs
}

func (p *Parser) parseConditionalExpr() ast.Expr {
	cond := p.parseLogicalOrExpr()
	tok := p.cur.peek()
	if p.cur.try(lexer.TokenQuestion) {
		exprTrue := p.parseExpr()
		p.expect(lexer.TokenColon, lexer.TokenColon, lexer.TokenSemicolon)
		exprFalse := p.parseConditionalExpr()
		return p.exprOrNil(p.newConditionalOp(tok, cond, exprTrue, exprFalse))
	}
	return cond
}

func (p *Parser) parseLogicalOrExpr() ast.Expr {
	lhs := p.parseLogicalAndExpr()
	for {
		tok := p.cur.peek()
		if !p.cur.try(lexer.TokenOr) {
			return lhs
		}
		rhs := p.parseLogicalAndExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, ast.OpLogicalOr, lhs, rhs))
	}
}

func (p *Parser) parseLogicalAndExpr() ast.Expr {
	lhs := p.parseBitwiseOrExpr()
	for {
		tok := p.cur.peek()
		if !p.cur.try(lexer.TokenAnd) {
			return lhs
		}
		rhs := p.parseBitwiseOrExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, ast.OpLogicalAnd, lhs, rhs))
	}
}

func (p *Parser) parseBitwiseOrExpr() ast.Expr {
	lhs := p.parseBitwiseXorExpr()
	for {
		tok := p.cur.peek()
		if !p.cur.try(lexer.TokenPipe) {
			return lhs
		}
		rhs := p.parseBitwiseXorExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, ast.OpBitOr, lhs, rhs))
	}
}

func (p *Parser) parseBitwiseXorExpr() ast.Expr {
	lhs := p.parseBitwiseAndExpr()
	for {
		tok := p.cur.peek()
		if !p.cur.try(lexer.TokenCaret) {
			return lhs
		}
		rhs := p.parseBitwiseAndExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, ast.OpBitXor, lhs, rhs))
	}
}

func (p *Parser) parseBitwiseAndExpr() ast.Expr {
	lhs := p.parseEqualityExpr()
	for {
		tok := p.cur.peek()
		if !p.cur.try(lexer.TokenAmpersand) {
			return lhs
		}
		rhs := p.parseEqualityExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, ast.OpBitAnd, lhs, rhs))
	}
}

var equalityOps = map[lexer.TokenType]ast.Op{
	lexer.TokenEq: ast.OpEq,
	lexer.TokenNe: ast.OpNe,
}

func (p *Parser) parseEqualityExpr() ast.Expr {
	lhs := p.parseRelationalExpr()
	for {
		tok := p.cur.peek()
		op, ok := equalityOps[tok.Type]
		if !ok {
			return lhs
		}
		p.cur.next()
		rhs := p.parseRelationalExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, op, lhs, rhs))
	}
}

var relationalOps = map[lexer.TokenType]ast.Op{
	lexer.TokenLt: ast.OpLt,
	lexer.TokenGt: ast.OpGt,
	lexer.TokenLe: ast.OpLe,
	lexer.TokenGe: ast.OpGe,
}

func (p *Parser) parseRelationalExpr() ast.Expr {
	lhs := p.parseShiftExpr()
	for {
		tok := p.cur.peek()
		op, ok := relationalOps[tok.Type]
		if !ok {
			return lhs
		}
		p.cur.next()
		rhs := p.parseShiftExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, op, lhs, rhs))
	}
}

var shiftOps = map[lexer.TokenType]ast.Op{
	lexer.TokenShl: ast.OpShl,
	lexer.TokenShr: ast.OpShr,
}

func (p *Parser) parseShiftExpr() ast.Expr {
	lhs := p.parseAdditiveExpr()
	for {
		tok := p.cur.peek()
		op, ok := shiftOps[tok.Type]
		if !ok {
			return lhs
		}
		p.cur.next()
		rhs := p.parseAdditiveExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, op, lhs, rhs))
	}
}

var additiveOps = map[lexer.TokenType]ast.Op{
	lexer.TokenPlus:  ast.OpAdd,
	lexer.TokenMinus: ast.OpSub,
}

func (p *Parser) parseAdditiveExpr() ast.Expr {
	lhs := p.parseMultiplicativeExpr()
	for {
		tok := p.cur.peek()
		op, ok := additiveOps[tok.Type]
		if !ok {
			return lhs
		}
		p.cur.next()
		rhs := p.parseMultiplicativeExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, op, lhs, rhs))
	}
}

var multiplicativeOps = map[lexer.TokenType]ast.Op{
	lexer.TokenStar:    ast.OpMul,
	lexer.TokenSlash:   ast.OpDiv,
	lexer.TokenPercent: ast.OpMod,
}

func (p *Parser) parseMultiplicativeExpr() ast.Expr {
	lhs := p.parseCastExpr()
	for {
		tok := p.cur.peek()
		op, ok := multiplicativeOps[tok.Type]
		if !ok {
			return lhs
		}
		p.cur.next()
		rhs := p.parseCastExpr()
		lhs = p.exprOrNil(p.newBinaryOp(tok, op, lhs, rhs))
	}
}

// parseCastExpr parses '(' type-name ')' cast-expression, or falls back
// to a unary expression.
func (p *Parser) parseCastExpr() ast.Expr {
	tok := p.cur.next()
	if tok.Type == lexer.TokenLParen && p.isTypeNameStart(p.cur.peek()) {
		desType := p.parseTypeName()
		p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenSemicolon)
		if p.cur.try(lexer.TokenLBrace) {
			p.errorf(tok.Coord(), "compound literals not supported yet")
			p.skipBracedInitializer()
			return nil
		}
		operand := p.parseCastExpr()
		return p.exprOrNil(p.newUnaryOp(tok, ast.OpCast, operand, desType))
	}

	p.cur.putBack()
	return p.parseUnaryExpr()
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	tok := p.cur.next()
	switch tok.Type {
	case lexer.TokenAlignof:
		return p.parseAlignof(tok)
	case lexer.TokenSizeof:
		return p.parseSizeof(tok)
	case lexer.TokenIncrement:
		return p.parsePrefixIncDec(tok, ast.OpPrefixInc)
	case lexer.TokenDecrement:
		return p.parsePrefixIncDec(tok, ast.OpPrefixDec)
	case lexer.TokenAmpersand:
		return p.parseUnaryOp(tok, ast.OpAddr)
	case lexer.TokenStar:
		return p.parseUnaryOp(tok, ast.OpDeref)
	case lexer.TokenPlus:
		return p.parseUnaryOp(tok, ast.OpPlus)
	case lexer.TokenMinus:
		return p.parseUnaryOp(tok, ast.OpMinus)
	case lexer.TokenTilde:
		return p.parseUnaryOp(tok, ast.OpBitNot)
	case lexer.TokenNot:
		return p.parseUnaryOp(tok, ast.OpLogicalNot)
	default:
		p.cur.putBack()
		return p.parsePostfixExpr()
	}
}

// parseSizeof parses sizeof applied to a parenthesised type name or to a
// unary expression; the result is an unsigned long constant.
func (p *Parser) parseSizeof(szTok lexer.Token) ast.Expr {
	var ty ctypes.Type

	tok := p.cur.next()
	if tok.Type == lexer.TokenLParen && p.isTypeNameStart(p.cur.peek()) {
		ty = p.parseTypeName()
		p.expect(lexer.TokenRParen)
	} else {
		p.cur.putBack()
		operand := p.parseUnaryExpr()
		if operand == nil {
			return nil
		}
		ty = operand.Type()
	}

	if ctypes.ToFunc(ty) != nil {
		p.errorf(szTok.Coord(), "sizeof operator can't act on function")
		return p.newConstantInt(ctypes.ULong(), 0)
	}
	if !ty.Complete() {
		p.errorf(szTok.Coord(), "invalid application of 'sizeof' to incomplete type")
		return p.newConstantInt(ctypes.ULong(), 0)
	}

	return p.newConstantInt(ctypes.ULong(), int64(ty.Width()))
}

// parseAlignof parses _Alignof '(' type-name ')'.
func (p *Parser) parseAlignof(alTok lexer.Token) ast.Expr {
	p.expect(lexer.TokenLParen)
	ty := p.parseTypeName()
	p.expect(lexer.TokenRParen)
	return p.newConstantInt(ctypes.ULong(), int64(ty.Align()))
}

func (p *Parser) parsePrefixIncDec(tok lexer.Token, op ast.Op) ast.Expr {
	operand := p.parseUnaryExpr()
	return p.exprOrNil(p.newUnaryOp(tok, op, operand, nil))
}

func (p *Parser) parseUnaryOp(tok lexer.Token, op ast.Op) ast.Expr {
	operand := p.parseCastExpr()
	return p.exprOrNil(p.newUnaryOp(tok, op, operand, nil))
}

func (p *Parser) parsePostfixExpr() ast.Expr {
	tok := p.cur.next()
	if tok.IsEOF() {
		p.errorf(tok.Coord(), "premature end of input")
		return nil
	}

	if tok.Type == lexer.TokenLParen && p.isTypeNameStart(p.cur.peek()) {
		p.errorf(tok.Coord(), "compound literals not supported yet")
		p.parseTypeName()
		p.expect(lexer.TokenRParen)
		if p.cur.try(lexer.TokenLBrace) {
			p.skipBracedInitializer()
		}
		return nil
	}

	p.cur.putBack()
	primExpr := p.parsePrimaryExpr()

	return p.parsePostfixExprTail(primExpr)
}

// parsePostfixExprTail applies subscript, call, member and postfix
// inc/dec suffixes left to right.
func (p *Parser) parsePostfixExprTail(lhs ast.Expr) ast.Expr {
	for {
		tok := p.cur.next()

		switch tok.Type {
		case lexer.TokenLBracket:
			lhs = p.parseSubscripting(tok, lhs)

		case lexer.TokenLParen:
			lhs = p.parseFuncCall(tok, lhs)

		case lexer.TokenDot:
			lhs = p.parseMemberRef(tok, ast.OpMember, lhs)

		case lexer.TokenArrow:
			lhs = p.parseMemberRef(tok, ast.OpArrow, lhs)

		case lexer.TokenIncrement:
			lhs = p.exprOrNil(p.newUnaryOp(tok, ast.OpPostfixInc, lhs, nil))

		case lexer.TokenDecrement:
			lhs = p.exprOrNil(p.newUnaryOp(tok, ast.OpPostfixDec, lhs, nil))

		default:
			p.cur.putBack()
			return lhs
		}
	}
}

func (p *Parser) parseSubscripting(tok lexer.Token, pointer ast.Expr) ast.Expr {
	indexExpr := p.parseExpr()
	p.expect(lexer.TokenRBracket, lexer.TokenRBracket, lexer.TokenSemicolon)
	return p.exprOrNil(p.newBinaryOp(tok, ast.OpSubscript, pointer, indexExpr))
}

func (p *Parser) parseMemberRef(tok lexer.Token, op ast.Op, lhs ast.Expr) ast.Expr {
	memberTok := p.expect(lexer.TokenIdent)
	if memberTok.Type != lexer.TokenIdent {
		return nil
	}
	return p.exprOrNil(p.newMemberRefOp(tok, op, lhs, memberTok.Literal))
}

// parseFuncCall parses the argument list of a call; the designator has
// already been parsed.
func (p *Parser) parseFuncCall(tok lexer.Token, designator ast.Expr) ast.Expr {
	var args []ast.Expr
	if !p.cur.try(lexer.TokenRParen) {
		for {
			args = append(args, p.parseAssignExpr())
			if !p.cur.try(lexer.TokenComma) {
				break
			}
		}
		p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenSemicolon)
	}

	return p.exprOrNil(p.newFuncCall(tok, designator, args))
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	if p.cur.peek().IsKeyword() {
		tok := p.cur.peek()
		switch tok.Type {
		case lexer.TokenGeneric:
			p.cur.next()
			p.errorf(tok.Coord(), "'_Generic' not supported yet")
			p.skipParenBalanced()
		default:
			p.errorf(tok.Coord(), "expect expression")
		}
		return nil
	}

	tok := p.cur.next()
	if tok.IsEOF() {
		p.errorf(tok.Coord(), "premature end of input")
		return nil
	}

	switch {
	case tok.Type == lexer.TokenLParen:
		expr := p.parseExpr()
		p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenSemicolon)
		return expr

	case tok.Type == lexer.TokenIdent:
		sym := p.curScope.Find(tok.Literal)
		if sym == nil {
			p.errorf(tok.Coord(), "undefined symbol '%s'", tok.Literal)
			return nil
		}
		if _, ok := sym.(*ast.TypeName); ok {
			p.errorf(tok.Coord(), "unexpected type name '%s'", tok.Literal)
			return nil
		}
		return sym

	case tok.IsConstant():
		return p.parseConstant(tok)

	case tok.Type == lexer.TokenString:
		p.errorf(tok.Coord(), "string literal in expression not supported")
		return nil
	}

	p.errorf(tok.Coord(), "expect expression")
	p.cur.putBack()
	return nil
}

// skipParenBalanced consumes a parenthesis-balanced token run, used to
// recover from unsupported primary forms.
func (p *Parser) skipParenBalanced() {
	if !p.cur.try(lexer.TokenLParen) {
		return
	}
	depth := 1
	for depth > 0 {
		tok := p.cur.next()
		switch {
		case tok.IsEOF():
			return
		case tok.Type == lexer.TokenLParen:
			depth++
		case tok.Type == lexer.TokenRParen:
			depth--
		}
	}
}

// parseConstant converts an integer, character or floating constant
// token into a typed literal node.
func (p *Parser) parseConstant(tok lexer.Token) ast.Expr {
	switch tok.Type {
	case lexer.TokenInt:
		val, err := strconv.ParseInt(stripIntSuffix(tok.Literal), 0, 64)
		if err != nil {
			p.errorf(tok.Coord(), "invalid integer constant '%s'", tok.Literal)
			val = 0
		}
		return p.newConstantInt(ctypes.Int(), val)

	case lexer.TokenCharLit:
		return p.newConstantInt(ctypes.Int(), int64(charValue(tok.Literal)))

	case lexer.TokenFloatLit:
		lexeme, isFloat := stripFloatSuffix(tok.Literal)
		val, err := strconv.ParseFloat(lexeme, 64)
		if err != nil {
			p.errorf(tok.Coord(), "invalid floating constant '%s'", tok.Literal)
			val = 0
		}
		ty := ctypes.Double()
		if isFloat {
			ty = ctypes.Float()
		}
		return p.newConstantFloat(ty, val)
	}
	return nil
}

func stripIntSuffix(s string) string {
	return strings.TrimRight(s, "uUlL")
}

// stripFloatSuffix drops a trailing f/F/l/L and reports whether the
// constant has type float.
func stripFloatSuffix(s string) (string, bool) {
	if n := len(s); n > 0 {
		switch s[n-1] {
		case 'f', 'F':
			return s[:n-1], true
		case 'l', 'L':
			return s[:n-1], false
		}
	}
	return s, false
}

// charValue decodes a character constant's lexeme, escape included.
func charValue(s string) int {
	if s == "" {
		return 0
	}
	if s[0] != '\\' {
		return int(s[0])
	}
	if len(s) < 2 {
		return 0
	}
	switch s[1] {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case 'a':
		return 7
	case 'b':
		return 8
	case 'f':
		return 12
	case 'v':
		return 11
	default:
		return int(s[1])
	}
}

// exprOrNil converts a typed nil node pointer into a nil interface so
// callers can test failure uniformly.
func (p *Parser) exprOrNil(e ast.Expr) ast.Expr {
	switch n := e.(type) {
	case *ast.BinaryOp:
		if n == nil {
			return nil
		}
	case *ast.UnaryOp:
		if n == nil {
			return nil
		}
	case *ast.ConditionalOp:
		if n == nil {
			return nil
		}
	case *ast.FuncCall:
		if n == nil {
			return nil
		}
	}
	return e
}
