package parser

import (
	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/lexer"
	"github.com/echopoint/wgtcc/pkg/scope"
)

// The statement parser. while, do, for and switch do not survive into
// the AST: they are lowered to label and conditional-jump sequences as
// they are parsed. break, continue, case and default resolve against a
// side-channel context saved and restored around each enclosing
// construct.

// enterLoopBody installs the jump targets for break and continue and
// returns a function restoring the previous targets.
func (p *Parser) enterLoopBody(breakDest, continueDest *ast.LabelStmt) func() {
	prevBreak, prevContinue := p.breakDest, p.continueDest
	p.breakDest, p.continueDest = breakDest, continueDest
	return func() {
		p.breakDest, p.continueDest = prevBreak, prevContinue
	}
}

// enterSwitchBody installs the break target and the case-label
// accumulator and returns a function restoring the previous state.
func (p *Parser) enterSwitchBody(breakDest *ast.LabelStmt, caseLabels *[]caseLabel) func() {
	prevBreak, prevCases, prevDefault := p.breakDest, p.caseLabels, p.defaultLabel
	p.breakDest, p.caseLabels, p.defaultLabel = breakDest, caseLabels, nil
	return func() {
		p.breakDest, p.caseLabels, p.defaultLabel = prevBreak, prevCases, prevDefault
	}
}

func (p *Parser) parseStmt() ast.Stmt {
	tok := p.cur.next()
	if tok.IsEOF() {
		p.errorf(tok.Coord(), "premature end of input")
		return p.newEmptyStmt()
	}

	switch tok.Type {
	case lexer.TokenSemicolon:
		return p.newEmptyStmt()
	case lexer.TokenLBrace:
		return p.parseCompoundStmt()
	case lexer.TokenIf:
		return p.parseIfStmt()
	case lexer.TokenSwitch:
		return p.parseSwitchStmt()
	case lexer.TokenWhile:
		return p.parseWhileStmt()
	case lexer.TokenDo:
		return p.parseDoStmt()
	case lexer.TokenFor:
		return p.parseForStmt()
	case lexer.TokenGoto:
		return p.parseGotoStmt()
	case lexer.TokenContinue:
		return p.parseContinueStmt(tok)
	case lexer.TokenBreak:
		return p.parseBreakStmt(tok)
	case lexer.TokenReturn:
		return p.parseReturnStmt()
	case lexer.TokenCase:
		return p.parseCaseStmt(tok)
	case lexer.TokenDefault:
		return p.parseDefaultStmt(tok)
	}

	if tok.Type == lexer.TokenIdent && p.cur.try(lexer.TokenColon) {
		return p.parseLabelStmt(tok)
	}

	p.cur.putBack()
	expr := p.parseExpr()
	p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)

	if expr == nil {
		return p.newEmptyStmt()
	}
	return expr
}

// parseCompoundStmt parses the rest of a brace-enclosed block in a new
// block scope; the opening brace is already consumed.
func (p *Parser) parseCompoundStmt() *ast.CompoundStmt {
	p.enterScope(scope.Block)
	stmt := p.parseCompoundBody()
	p.exitScope()
	return stmt
}

// parseCompoundBody parses declarations and statements up to the closing
// brace in the current scope.
func (p *Parser) parseCompoundBody() *ast.CompoundStmt {
	var stmts []ast.Stmt

	for !p.cur.try(lexer.TokenRBrace) {
		if p.cur.peek().IsEOF() {
			p.errorf(p.cur.peek().Coord(), "premature end of input")
			break
		}

		var s ast.Stmt
		if p.isDeclStart(p.cur.peek()) {
			s = p.parseDecl()
		} else {
			s = p.parseStmt()
		}
		if s != nil {
			stmts = append(stmts, s)
		}
	}

	return p.newCompoundStmt(stmts)
}

func (p *Parser) parseIfStmt() ast.Stmt {
	p.expect(lexer.TokenLParen, lexer.TokenLParen, lexer.TokenSemicolon)
	tok := p.cur.peek()
	cond := p.parseExpr()
	if cond != nil && !ctypes.IsScalar(ctypes.Decay(cond.Type())) {
		p.errorf(tok.Coord(), "expect scalar")
	}
	p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenLBrace)

	then := p.parseStmt()
	var els ast.Stmt
	if p.cur.try(lexer.TokenElse) {
		els = p.parseStmt()
	}

	return p.newIfStmt(cond, then, els)
}

// parseWhileStmt lowers
//
//	while (cond) body
//
// to
//
//	cond: if (cond) {} else goto end;
//	      body
//	      goto cond;
//	end:
func (p *Parser) parseWhileStmt() ast.Stmt {
	var stmts []ast.Stmt
	p.expect(lexer.TokenLParen, lexer.TokenLParen, lexer.TokenSemicolon)
	tok := p.cur.peek()
	condExpr := p.parseExpr()
	p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenLBrace)

	if condExpr != nil && !ctypes.IsScalar(ctypes.Decay(condExpr.Type())) {
		p.errorf(tok.Coord(), "scalar expression expected")
	}

	condLabel := p.newLabelStmt()
	endLabel := p.newLabelStmt()
	gotoEnd := p.newJumpStmt(endLabel)
	stmts = append(stmts, condLabel, p.newIfStmt(condExpr, nil, gotoEnd))

	restore := p.enterLoopBody(endLabel, condLabel)
	bodyStmt := p.parseStmt()
	restore()

	stmts = append(stmts, bodyStmt, p.newJumpStmt(condLabel), endLabel)

	return p.newCompoundStmt(stmts)
}

// parseDoStmt lowers
//
//	do body while (cond);
//
// to
//
//	begin: body
//	cond:  if (cond) goto begin; else goto end;
//	end:
func (p *Parser) parseDoStmt() ast.Stmt {
	beginLabel := p.newLabelStmt()
	condLabel := p.newLabelStmt()
	endLabel := p.newLabelStmt()

	restore := p.enterLoopBody(endLabel, condLabel)
	bodyStmt := p.parseStmt()
	restore()

	p.expect(lexer.TokenWhile, lexer.TokenWhile, lexer.TokenSemicolon)
	p.expect(lexer.TokenLParen, lexer.TokenLParen, lexer.TokenSemicolon)
	condExpr := p.parseExpr()
	p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenSemicolon)
	p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)

	gotoBegin := p.newJumpStmt(beginLabel)
	gotoEnd := p.newJumpStmt(endLabel)
	ifStmt := p.newIfStmt(condExpr, gotoBegin, gotoEnd)

	return p.newCompoundStmt([]ast.Stmt{beginLabel, bodyStmt, condLabel, ifStmt, endLabel})
}

// parseForStmt lowers
//
//	for (init; cond; step) body
//
// to
//
//	init;
//	cond: if (cond) {} else goto end;
//	      body
//	step: step;
//	      goto cond;
//	end:
//
// The init declaration lives in its own block scope enclosing the body.
func (p *Parser) parseForStmt() ast.Stmt {
	p.enterScope(scope.Block)
	p.expect(lexer.TokenLParen, lexer.TokenLParen, lexer.TokenSemicolon)

	var stmts []ast.Stmt

	if p.isDeclStart(p.cur.peek()) {
		stmts = append(stmts, p.parseDecl())
	} else if !p.cur.try(lexer.TokenSemicolon) {
		if e := p.parseExpr(); e != nil {
			stmts = append(stmts, e)
		}
		p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRParen)
	}

	var condExpr ast.Expr
	if !p.cur.try(lexer.TokenSemicolon) {
		condExpr = p.parseExpr()
		p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRParen)
	}

	var stepExpr ast.Expr
	if !p.cur.try(lexer.TokenRParen) {
		stepExpr = p.parseExpr()
		p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenLBrace)
	}

	condLabel := p.newLabelStmt()
	stepLabel := p.newLabelStmt()
	endLabel := p.newLabelStmt()
	stmts = append(stmts, condLabel)
	if condExpr != nil {
		gotoEnd := p.newJumpStmt(endLabel)
		stmts = append(stmts, p.newIfStmt(condExpr, nil, gotoEnd))
	}

	restore := p.enterLoopBody(endLabel, stepLabel)
	bodyStmt := p.parseStmt()
	restore()

	stmts = append(stmts, bodyStmt, stepLabel)
	if stepExpr != nil {
		stmts = append(stmts, stepExpr)
	}
	stmts = append(stmts, p.newJumpStmt(condLabel), endLabel)

	p.exitScope()

	return p.newCompoundStmt(stmts)
}

// parseSwitchStmt lowers
//
//	switch (e) body
//
// to
//
//	t = e;
//	goto test;
//	body            (case labels land here)
//	test: if (t == k1) goto case1; ... goto default-or-end;
//	end:
func (p *Parser) parseSwitchStmt() ast.Stmt {
	var stmts []ast.Stmt
	p.expect(lexer.TokenLParen, lexer.TokenLParen, lexer.TokenLBrace)
	tok := p.cur.peek()
	expr := p.parseExpr()
	p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenLBrace)

	condType := ctypes.Type(ctypes.Int())
	if expr != nil {
		if !ctypes.IsInteger(expr.Type()) {
			p.errorf(tok.Coord(), "switch quantity not an integer")
		} else {
			condType = expr.Type()
		}
	}

	testLabel := p.newLabelStmt()
	endLabel := p.newLabelStmt()
	t := p.newTempVar(condType)
	if expr != nil {
		if assign := p.newBinaryOp(tok, ast.OpAssign, t, expr); assign != nil {
			stmts = append(stmts, assign)
		}
	}
	stmts = append(stmts, p.newJumpStmt(testLabel))

	var caseLabels []caseLabel
	restore := p.enterSwitchBody(endLabel, &caseLabels)

	bodyStmt := p.parseStmt() // fills caseLabels and defaultLabel
	stmts = append(stmts, bodyStmt, testLabel)

	for _, cl := range caseLabels {
		cond := p.newBinaryOp(tok, ast.OpEq, t, p.newConstantInt(ctypes.Int(), cl.val))
		if cond != nil {
			stmts = append(stmts, p.newIfStmt(cond, p.newJumpStmt(cl.label), nil))
		}
	}

	// With no default the controlling value falls out of the switch.
	defaultDest := p.defaultLabel
	if defaultDest == nil {
		defaultDest = endLabel
	}
	stmts = append(stmts, p.newJumpStmt(defaultDest))
	restore()

	stmts = append(stmts, endLabel)

	return p.newCompoundStmt(stmts)
}

func (p *Parser) parseCaseStmt(caseTok lexer.Token) ast.Stmt {
	p.errTok = p.cur.peek()
	expr := p.parseConditionalExpr()
	p.expect(lexer.TokenColon, lexer.TokenColon, lexer.TokenSemicolon)

	if p.caseLabels == nil {
		p.errorf(caseTok.Coord(), "'case' is allowed only in switch")
		return p.parseStmt()
	}

	val := p.evalIntegerExpr(p.errTok, expr)
	labelStmt := p.newLabelStmt()
	*p.caseLabels = append(*p.caseLabels, caseLabel{val: val, label: labelStmt})

	return p.newCompoundStmt([]ast.Stmt{labelStmt, p.parseStmt()})
}

func (p *Parser) parseDefaultStmt(defTok lexer.Token) ast.Stmt {
	p.expect(lexer.TokenColon, lexer.TokenColon, lexer.TokenSemicolon)

	if p.caseLabels == nil {
		p.errorf(defTok.Coord(), "'default' is allowed only in switch")
		return p.parseStmt()
	}
	if p.defaultLabel != nil {
		p.errorf(defTok.Coord(), "multiple default labels in one switch")
		return p.parseStmt()
	}

	labelStmt := p.newLabelStmt()
	p.defaultLabel = labelStmt

	return p.newCompoundStmt([]ast.Stmt{labelStmt, p.parseStmt()})
}

func (p *Parser) parseContinueStmt(tok lexer.Token) ast.Stmt {
	p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)
	if p.continueDest == nil {
		p.errorf(tok.Coord(), "'continue' is allowed only in loop")
		return p.newEmptyStmt()
	}
	return p.newJumpStmt(p.continueDest)
}

func (p *Parser) parseBreakStmt(tok lexer.Token) ast.Stmt {
	p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)
	if p.breakDest == nil {
		p.errorf(tok.Coord(), "'break' is allowed only in switch/loop")
		return p.newEmptyStmt()
	}
	return p.newJumpStmt(p.breakDest)
}

func (p *Parser) parseReturnStmt() ast.Stmt {
	var expr ast.Expr
	if !p.cur.try(lexer.TokenSemicolon) {
		expr = p.parseExpr()
		p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)
	}
	return p.newReturnStmt(expr)
}

// parseGotoStmt resolves the target eagerly when the label is already
// defined; otherwise the jump is queued until function exit.
func (p *Parser) parseGotoStmt() ast.Stmt {
	label := p.cur.peek()
	p.expect(lexer.TokenIdent, lexer.TokenSemicolon)
	p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)

	if label.Type != lexer.TokenIdent {
		return p.newEmptyStmt()
	}
	if labelStmt := p.findLabel(label.Literal); labelStmt != nil {
		return p.newJumpStmt(labelStmt)
	}

	unresolved := p.newJumpStmt(nil)
	p.unresolvedJumps = append(p.unresolvedJumps, unresolvedJump{tok: label, jump: unresolved})
	return unresolved
}

// parseLabelStmt parses 'name : stmt'; the name and the colon are
// already consumed.
func (p *Parser) parseLabelStmt(label lexer.Token) ast.Stmt {
	if p.findLabel(label.Literal) != nil {
		p.errorf(label.Coord(), "redefinition of label '%s'", label.Literal)
		return p.parseStmt()
	}

	labelStmt := p.newLabelStmt()
	p.addLabel(label.Literal, labelStmt)

	return p.newCompoundStmt([]ast.Stmt{labelStmt, p.parseStmt()})
}
