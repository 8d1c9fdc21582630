// Package parser implements a recursive descent parser for C with
// integrated semantic analysis. It consumes a token stream and produces
// a typed AST for one translation unit; loops and switches are lowered
// to label and jump sequences during parsing.
package parser

import (
	"github.com/echopoint/wgtcc/pkg/arena"
	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/diag"
	"github.com/echopoint/wgtcc/pkg/lexer"
	"github.com/echopoint/wgtcc/pkg/scope"
)

// caseLabel pairs a case value with its target label.
type caseLabel struct {
	val   int64
	label *ast.LabelStmt
}

// unresolvedJump is a goto whose label was not yet defined when parsed.
type unresolvedJump struct {
	tok  lexer.Token
	jump *ast.JumpStmt
}

// protoParam records one parameter of the most recently parsed function
// declarator, so a definition can redeclare it in the body scope.
type protoParam struct {
	tok     *lexer.Token
	ty      ctypes.Type
	storage int
}

// Parser parses one translation unit.
type Parser struct {
	cur  *cursor
	rep  diag.Reporter
	errs int

	unit            *ast.TranslationUnit
	curScope        *scope.Scope
	fileScope       *scope.Scope
	externalSymbols *scope.Scope

	// probing is non-zero during function-definition lookahead:
	// diagnostics are muted and scope insertions skipped.
	probing int

	errTok lexer.Token

	// Side-channel context for statement parsing; saved and restored by
	// the scoped helpers in stmt.go.
	breakDest       *ast.LabelStmt
	continueDest    *ast.LabelStmt
	caseLabels      *[]caseLabel
	defaultLabel    *ast.LabelStmt
	curLabels       map[string]*ast.LabelStmt
	unresolvedJumps []unresolvedJump

	protoParams []protoParam

	labelID int
	tempID  int

	pools nodePools
}

// nodePools holds one arena per AST node kind; Release drops them all.
type nodePools struct {
	binaryOp      *arena.Pool[ast.BinaryOp]
	unaryOp       *arena.Pool[ast.UnaryOp]
	conditionalOp *arena.Pool[ast.ConditionalOp]
	funcCall      *arena.Pool[ast.FuncCall]
	identifier    *arena.Pool[ast.Identifier]
	object        *arena.Pool[ast.Object]
	typeName      *arena.Pool[ast.TypeName]
	constant      *arena.Pool[ast.Constant]
	tempVar       *arena.Pool[ast.TempVar]
	emptyStmt     *arena.Pool[ast.EmptyStmt]
	compoundStmt  *arena.Pool[ast.CompoundStmt]
	ifStmt        *arena.Pool[ast.IfStmt]
	jumpStmt      *arena.Pool[ast.JumpStmt]
	returnStmt    *arena.Pool[ast.ReturnStmt]
	labelStmt     *arena.Pool[ast.LabelStmt]
	funcDef       *arena.Pool[ast.FuncDef]
}

func newNodePools() nodePools {
	return nodePools{
		binaryOp:      arena.NewPool[ast.BinaryOp](),
		unaryOp:       arena.NewPool[ast.UnaryOp](),
		conditionalOp: arena.NewPool[ast.ConditionalOp](),
		funcCall:      arena.NewPool[ast.FuncCall](),
		identifier:    arena.NewPool[ast.Identifier](),
		object:        arena.NewPool[ast.Object](),
		typeName:      arena.NewPool[ast.TypeName](),
		constant:      arena.NewPool[ast.Constant](),
		tempVar:       arena.NewPool[ast.TempVar](),
		emptyStmt:     arena.NewPool[ast.EmptyStmt](),
		compoundStmt:  arena.NewPool[ast.CompoundStmt](),
		ifStmt:        arena.NewPool[ast.IfStmt](),
		jumpStmt:      arena.NewPool[ast.JumpStmt](),
		returnStmt:    arena.NewPool[ast.ReturnStmt](),
		labelStmt:     arena.NewPool[ast.LabelStmt](),
		funcDef:       arena.NewPool[ast.FuncDef](),
	}
}

func (p *nodePools) reset() {
	p.binaryOp.Reset()
	p.unaryOp.Reset()
	p.conditionalOp.Reset()
	p.funcCall.Reset()
	p.identifier.Reset()
	p.object.Reset()
	p.typeName.Reset()
	p.constant.Reset()
	p.tempVar.Reset()
	p.emptyStmt.Reset()
	p.compoundStmt.Reset()
	p.ifStmt.Reset()
	p.jumpStmt.Reset()
	p.returnStmt.Reset()
	p.labelStmt.Reset()
	p.funcDef.Reset()
}

// New creates a Parser reading from src and reporting through rep.
func New(src TokenSource, rep diag.Reporter) *Parser {
	fileScope := scope.New(nil, scope.File)
	return &Parser{
		cur:             newCursor(src),
		rep:             rep,
		unit:            &ast.TranslationUnit{},
		curScope:        fileScope,
		fileScope:       fileScope,
		externalSymbols: scope.New(nil, scope.File),
		curLabels:       make(map[string]*ast.LabelStmt),
		pools:           newNodePools(),
	}
}

// ErrorCount returns the number of diagnostics reported so far.
func (p *Parser) ErrorCount() int { return p.errs }

// Invalid reports whether any error occurred; the AST is still usable
// best-effort.
func (p *Parser) Invalid() bool { return p.errs > 0 }

// Release drops every node pool. The translation unit and all nodes in
// it become invalid.
func (p *Parser) Release() { p.pools.reset() }

// errorf reports a diagnostic unless the parser is probing ahead.
func (p *Parser) errorf(c diag.Coord, format string, args ...any) {
	if p.probing > 0 {
		return
	}
	p.errs++
	p.rep.Errorf(c, format, args...)
}

// expect consumes a token of the given type or reports a diagnostic and
// skips to the nearest follow tag.
func (p *Parser) expect(t lexer.TokenType, follow ...lexer.TokenType) lexer.Token {
	tok := p.cur.next()
	if tok.Type != t {
		p.cur.putBack()
		p.errorf(tok.Coord(), "'%s' expected, but got '%s'", t, tokenText(tok))
		p.cur.skipTo(follow...)
	}
	return tok
}

func tokenText(tok lexer.Token) string {
	if tok.IsEOF() {
		return "end of input"
	}
	return tok.Literal
}

// ParseTranslationUnit parses until EOF and returns the unit.
func (p *Parser) ParseTranslationUnit() *ast.TranslationUnit {
	for !p.cur.peek().IsEOF() {
		if p.isFuncDef() {
			if def := p.parseFuncDef(); def != nil {
				p.unit.Add(def)
			}
		} else {
			p.unit.Add(p.parseDecl())
		}
	}
	return p.unit
}

// isFuncDef distinguishes a function definition from a declaration by
// parsing the specifier and declarator ahead and checking the next
// token; the cursor is rewound before the committed parse. This is the
// only multi-token lookahead in the parser.
func (p *Parser) isFuncDef() bool {
	if p.cur.test(lexer.TokenStaticAssert) {
		return false
	}
	p.cur.mark()
	p.probing++

	var storage, fnSpec int
	ty := p.parseDeclSpec(&storage, &fnSpec)
	p.parseDeclarator(ty)
	isDef := !(p.cur.test(lexer.TokenComma) ||
		p.cur.test(lexer.TokenAssign) ||
		p.cur.test(lexer.TokenSemicolon))

	p.probing--
	p.cur.release()
	return isDef
}

// parseFuncDef parses a function definition. Parameters named in the
// prototype are redeclared in the body's block scope.
func (p *Parser) parseFuncDef() *ast.FuncDef {
	var storage, fnSpec int
	ty := p.parseDeclSpec(&storage, &fnSpec)
	sym := p.parseDirectDeclarator(ty, storage, fnSpec)

	var name string
	var fnType *ctypes.FuncType
	if sym != nil {
		name = sym.SymbolName()
		fnType = ctypes.ToFunc(sym.Type())
	}
	if fnType == nil {
		p.errorf(p.errTok.Coord(), "expected function definition")
	}
	params := p.protoParams

	p.expect(lexer.TokenLBrace)
	p.enterFunc()
	p.enterScope(scope.Block)
	for _, prm := range params {
		if prm.tok != nil {
			p.processDeclarator(*prm.tok, prm.ty, prm.storage, 0)
		}
	}
	body := p.parseCompoundBody()
	p.exitScope()
	p.exitFunc()

	if fnType == nil {
		return nil
	}
	return p.newFuncDef(name, fnType, body)
}

// enterFunc resets the per-function label state.
func (p *Parser) enterFunc() {
	p.curLabels = make(map[string]*ast.LabelStmt)
	p.unresolvedJumps = nil
}

// exitFunc resolves pending gotos against the per-function label table;
// jumps still unresolved name labels that were never defined.
func (p *Parser) exitFunc() {
	for _, uj := range p.unresolvedJumps {
		labelStmt := p.findLabel(uj.tok.Literal)
		if labelStmt == nil {
			p.errorf(uj.tok.Coord(), "label '%s' used but not defined", uj.tok.Literal)
			continue
		}
		uj.jump.SetLabel(labelStmt)
	}
	p.unresolvedJumps = nil
	p.curLabels = make(map[string]*ast.LabelStmt)
}

func (p *Parser) findLabel(name string) *ast.LabelStmt {
	return p.curLabels[name]
}

func (p *Parser) addLabel(name string, l *ast.LabelStmt) {
	p.curLabels[name] = l
}

func (p *Parser) enterScope(kind scope.Kind) {
	p.curScope = scope.New(p.curScope, kind)
}

func (p *Parser) exitScope() {
	if p.curScope.Parent() != nil {
		p.curScope = p.curScope.Parent()
	}
}
