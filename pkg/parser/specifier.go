package parser

import (
	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/lexer"
)

// Storage-class specifier bits.
const (
	STypedef = 1 << iota
	SExtern
	SStatic
	SThread
	SAuto
	SRegister
)

// Function specifier bits.
const (
	FInline = 1 << iota
	FNoreturn
)

// Compatibility masks for the specifier state machine: the set of bits a
// keyword may be combined with.
const (
	compSigned   = ctypes.TShort | ctypes.TInt | ctypes.TLong | ctypes.TLongLong
	compUnsigned = compSigned
	compChar     = ctypes.TSigned | ctypes.TUnsigned
	compShort    = ctypes.TSigned | ctypes.TUnsigned | ctypes.TInt
	compInt      = ctypes.TSigned | ctypes.TUnsigned | ctypes.TShort | ctypes.TLong | ctypes.TLongLong
	compLong     = ctypes.TSigned | ctypes.TUnsigned | ctypes.TInt | ctypes.TLong
	compFloat    = ctypes.TComplex
	compDouble   = ctypes.TLong | ctypes.TComplex
	compComplex  = ctypes.TFloat | ctypes.TDouble | ctypes.TLong

	compThread = SExtern | SStatic
)

// typeLL turns long into long long on a second 'long'.
func typeLL(spec ctypes.Spec) ctypes.Spec {
	if spec&ctypes.TLong != 0 {
		return spec&^ctypes.TLong | ctypes.TLongLong
	}
	return spec | ctypes.TLong
}

// parseSpecQual parses a specifier-qualifier list: storage-class and
// function specifiers are diagnosed.
func (p *Parser) parseSpecQual() ctypes.Type {
	return p.parseDeclSpec(nil, nil)
}

// parseDeclSpec accumulates storage, function, qualifier and
// type-specifier bits across the specifier tokens and resolves them to a
// type. With nil out-params only type specifiers and qualifiers are
// accepted. On an incompatible combination it reports a diagnostic,
// skips to the end of the declaration and returns int.
func (p *Parser) parseDeclSpec(storage, fnSpec *int) ctypes.Type {
	var ty ctypes.Type
	align := -1
	storageSpec := 0
	funcSpec := 0
	var qualSpec ctypes.Qual
	var typeSpec ctypes.Spec

	var tok lexer.Token
loop:
	for {
		tok = p.cur.next()
		switch tok.Type {
		// Function specifiers
		case lexer.TokenInline:
			funcSpec |= FInline

		case lexer.TokenNoreturn:
			funcSpec |= FNoreturn

		// Alignment specifier
		case lexer.TokenAlignas:
			align = p.parseAlignas()

		// Storage-class specifiers
		case lexer.TokenTypedef:
			if storageSpec != 0 {
				return p.specError(tok)
			}
			storageSpec |= STypedef

		case lexer.TokenExtern:
			if storageSpec&^SThread != 0 {
				return p.specError(tok)
			}
			storageSpec |= SExtern

		case lexer.TokenStatic:
			if storageSpec&^SThread != 0 {
				return p.specError(tok)
			}
			storageSpec |= SStatic

		case lexer.TokenThread:
			if storageSpec&^compThread != 0 {
				return p.specError(tok)
			}
			storageSpec |= SThread

		case lexer.TokenAuto:
			if storageSpec != 0 {
				return p.specError(tok)
			}
			storageSpec |= SAuto

		case lexer.TokenRegister:
			if storageSpec != 0 {
				return p.specError(tok)
			}
			storageSpec |= SRegister

		// Type qualifiers
		case lexer.TokenConst:
			qualSpec |= ctypes.QConst

		case lexer.TokenRestrict:
			qualSpec |= ctypes.QRestrict

		case lexer.TokenVolatile:
			qualSpec |= ctypes.QVolatile

		// Type specifiers
		case lexer.TokenSigned:
			if typeSpec&^compSigned != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TSigned

		case lexer.TokenUnsigned:
			if typeSpec&^compUnsigned != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TUnsigned

		case lexer.TokenVoid:
			if typeSpec != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TVoid

		case lexer.TokenChar:
			if typeSpec&^compChar != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TChar

		case lexer.TokenShort:
			if typeSpec&^compShort != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TShort

		case lexer.TokenInt_:
			if typeSpec&^compInt != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TInt

		case lexer.TokenLong:
			if typeSpec&^compLong != 0 {
				return p.specError(tok)
			}
			typeSpec = typeLL(typeSpec)

		case lexer.TokenFloat:
			if typeSpec&^compFloat != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TFloat

		case lexer.TokenDouble:
			if typeSpec&^compDouble != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TDouble

		case lexer.TokenBool:
			if typeSpec != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TBool

		case lexer.TokenComplex:
			if typeSpec&^compComplex != 0 {
				return p.specError(tok)
			}
			typeSpec |= ctypes.TComplex

		case lexer.TokenStruct, lexer.TokenUnion:
			if typeSpec != 0 {
				return p.specError(tok)
			}
			ty = p.parseStructUnionSpec(tok.Type == lexer.TokenStruct)
			typeSpec |= ctypes.TStructUnion

		case lexer.TokenEnum:
			if typeSpec != 0 {
				return p.specError(tok)
			}
			ty = p.parseEnumSpec()
			typeSpec |= ctypes.TEnum

		case lexer.TokenAtomic:
			p.errorf(tok.Coord(), "'_Atomic' type specifier not supported")

		default:
			if typeSpec == 0 && p.isTypeName(tok) {
				if tn, ok := p.curScope.Find(tok.Literal).(*ast.TypeName); ok {
					ty = tn.Type()
				}
				typeSpec |= ctypes.TTypedefName
			} else {
				p.cur.putBack()
				break loop
			}
		}
	}

	switch typeSpec {
	case 0:
		p.errorf(tok.Coord(), "expect type specifier")
		ty = ctypes.Int()

	case ctypes.TVoid:
		ty = ctypes.NewVoid()

	case ctypes.TStructUnion, ctypes.TEnum, ctypes.TTypedefName:
		// Recorded while scanning.

	default:
		// Integer types other than char and _Bool get one canonical mask:
		// plain means signed, and int is implied by sign or size keywords.
		spec := typeSpec
		if spec&(ctypes.TChar|ctypes.TBool|ctypes.TFloat|ctypes.TDouble|ctypes.TComplex) == 0 {
			if spec&(ctypes.TShort|ctypes.TLong|ctypes.TLongLong) != 0 {
				spec &^= ctypes.TInt
			} else {
				spec |= ctypes.TInt
			}
			if spec&ctypes.TUnsigned == 0 {
				spec |= ctypes.TSigned
			}
		}
		ty = ctypes.NewArithm(spec)
	}

	if storage == nil || fnSpec == nil {
		if funcSpec != 0 || storageSpec != 0 || align != -1 {
			p.errorf(tok.Coord(), "type specifier/qualifier only")
		}
	} else {
		*storage = storageSpec
		*fnSpec = funcSpec
	}

	if ty == nil {
		ty = ctypes.Int()
	}
	return ctypes.Qualify(ty, qualSpec)
}

// specError reports an invalid specifier combination and aborts the
// current declaration by skipping to its end.
func (p *Parser) specError(tok lexer.Token) ctypes.Type {
	p.errorf(tok.Coord(), "type specifier/qualifier/storage error at '%s'", tokenText(tok))
	p.cur.skipTo(lexer.TokenSemicolon, lexer.TokenRBrace)
	return ctypes.Int()
}

// parseAlignas parses _Alignas '(' type-name | constant-expression ')'.
func (p *Parser) parseAlignas() int {
	p.expect(lexer.TokenLParen)
	var align int
	if p.isTypeNameStart(p.cur.peek()) {
		ty := p.parseTypeName()
		align = ty.Align()
	} else {
		p.errTok = p.cur.peek()
		expr := p.parseConditionalExpr()
		align = int(p.evalIntegerExpr(p.errTok, expr))
	}
	p.expect(lexer.TokenRParen)
	return align
}

// parseStructUnionSpec parses a struct or union specifier. A lone tag
// refers to (or forward-declares) the tag; a brace begins a definition,
// completing a forward declaration from the same scope in place.
func (p *Parser) parseStructUnionSpec(isStruct bool) ctypes.Type {
	kind := ctypes.KindUnion
	if isStruct {
		kind = ctypes.KindStruct
	}

	tagName := ""
	tok := p.cur.next()
	if tok.Type == lexer.TokenIdent {
		tagName = tok.Literal
		if p.cur.try(lexer.TokenLBrace) {
			tagIdent := p.curScope.FindTagInCurrent(tagName)
			if tagIdent != nil {
				prior := ctypes.ToStructUnion(tagIdent.Type())
				if prior != nil && !prior.Complete() {
					// Forward declaration in this scope: fill it in.
					return p.parseStructDecl(prior)
				}
				p.errorf(tok.Coord(), "redefinition of struct tag '%s'", tagName)
				return p.parseStructDecl(ctypes.NewStructUnion(kind, tagName))
			}
			ty := ctypes.NewStructUnion(kind, tagName)
			p.insertTag(tagName, ty)
			return p.parseStructDecl(ty)
		}

		// No brace: a reference, possibly the first forward declaration.
		if tagIdent := p.curScope.FindTag(tagName); tagIdent != nil {
			return tagIdent.Type()
		}
		ty := ctypes.NewStructUnion(kind, tagName)
		p.insertTag(tagName, ty)
		return ty
	}

	// Anonymous struct/union: the definition must follow.
	p.cur.putBack()
	p.expect(lexer.TokenLBrace)
	return p.parseStructDecl(ctypes.NewStructUnion(kind, ""))
}

func (p *Parser) insertTag(name string, ty ctypes.Type) {
	if p.probing > 0 {
		return
	}
	p.curScope.InsertTag(name, p.newIdentifier(name, ty, ast.LinkNone))
}

// parseStructDecl parses the member declarations up to the closing brace
// and completes the type.
func (p *Parser) parseStructDecl(ty *ctypes.StructType) *ctypes.StructType {
	for !p.cur.try(lexer.TokenRBrace) {
		if p.cur.peek().IsEOF() {
			p.errorf(p.cur.peek().Coord(), "premature end of input")
			break
		}

		memberBase := p.parseSpecQual()
		for {
			tok, mty := p.parseDeclarator(memberBase)
			if tok == nil {
				p.errorf(p.errTok.Coord(), "expect member name")
			} else {
				p.addMember(ty, *tok, mty)
			}
			if !p.cur.try(lexer.TokenComma) {
				break
			}
		}
		p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)
	}

	// Lookahead must not complete a type the committed parse will see.
	if p.probing == 0 {
		ty.Finalize()
	}
	return ty
}

func (p *Parser) addMember(ty *ctypes.StructType, tok lexer.Token, mty ctypes.Type) {
	if ctypes.ToFunc(mty) != nil {
		p.errorf(tok.Coord(), "member '%s' declared as function", tok.Literal)
		return
	}
	if !mty.Complete() {
		p.errorf(tok.Coord(), "member '%s' has incomplete type", tok.Literal)
		return
	}
	if p.probing > 0 {
		return
	}
	if !ty.AddMember(tok.Literal, mty) {
		p.errorf(tok.Coord(), "duplicate member '%s'", tok.Literal)
	}
}

// parseEnumSpec parses an enum specifier. The enum type is int; a tag
// without a definition forward-declares an incomplete enum.
func (p *Parser) parseEnumSpec() ctypes.Type {
	tagName := ""
	tok := p.cur.next()
	if tok.Type == lexer.TokenIdent {
		tagName = tok.Literal
		if p.cur.try(lexer.TokenLBrace) {
			tagIdent := p.curScope.FindTagInCurrent(tagName)
			if tagIdent != nil {
				prior := ctypes.ToArithm(tagIdent.Type())
				if prior != nil && !prior.Complete() {
					return p.parseEnumerators(prior)
				}
				p.errorf(tok.Coord(), "redefinition of enumeration tag '%s'", tagName)
				return p.parseEnumerators(ctypes.NewEnum())
			}
			ty := ctypes.NewEnum()
			p.insertTag(tagName, ty)
			return p.parseEnumerators(ty)
		}

		if tagIdent := p.curScope.FindTag(tagName); tagIdent != nil {
			return tagIdent.Type()
		}
		ty := ctypes.NewEnum()
		p.insertTag(tagName, ty)
		return ty
	}

	p.cur.putBack()
	p.expect(lexer.TokenLBrace)
	return p.parseEnumerators(ctypes.NewEnum())
}

// parseEnumerators parses the enumerator list and inserts each
// enumerator into the ordinary namespace as an int constant.
func (p *Parser) parseEnumerators(ty *ctypes.ArithmType) ctypes.Type {
	var val int64
	for {
		tok := p.cur.peek()
		if tok.Type != lexer.TokenIdent {
			p.errorf(tok.Coord(), "enumeration constant expected")
			p.cur.skipTo(lexer.TokenRBrace)
			p.cur.try(lexer.TokenRBrace)
			break
		}
		p.cur.next()

		if p.curScope.FindInCurrent(tok.Literal) != nil {
			p.errorf(tok.Coord(), "redefinition of enumerator '%s'", tok.Literal)
		}
		if p.cur.try(lexer.TokenAssign) {
			p.errTok = p.cur.peek()
			expr := p.parseConditionalExpr()
			val = p.evalIntegerExpr(p.errTok, expr)
		}
		if p.probing == 0 {
			p.curScope.Insert(tok.Literal, p.newConstantInt(ctypes.Int(), val))
		}
		val++

		p.cur.try(lexer.TokenComma)
		if p.cur.try(lexer.TokenRBrace) {
			break
		}
	}

	if p.probing == 0 {
		ty.SetComplete(true)
	}
	return ty
}

// isTypeName reports whether the token names a typedef in scope.
func (p *Parser) isTypeName(tok lexer.Token) bool {
	if tok.Type != lexer.TokenIdent {
		return false
	}
	_, ok := p.curScope.Find(tok.Literal).(*ast.TypeName)
	return ok
}

// isTypeNameStart reports whether the token can begin a type name, as
// needed to disambiguate casts, sizeof and compound literals.
func (p *Parser) isTypeNameStart(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.TokenVoid, lexer.TokenChar, lexer.TokenShort, lexer.TokenInt_,
		lexer.TokenLong, lexer.TokenFloat, lexer.TokenDouble, lexer.TokenSigned,
		lexer.TokenUnsigned, lexer.TokenBool, lexer.TokenComplex,
		lexer.TokenStruct, lexer.TokenUnion, lexer.TokenEnum,
		lexer.TokenConst, lexer.TokenRestrict, lexer.TokenVolatile,
		lexer.TokenAtomic:
		return true
	}
	return p.isTypeName(tok)
}

// isDeclStart reports whether the token can begin a declaration.
func (p *Parser) isDeclStart(tok lexer.Token) bool {
	switch tok.Type {
	case lexer.TokenTypedef, lexer.TokenExtern, lexer.TokenStatic,
		lexer.TokenAuto, lexer.TokenRegister, lexer.TokenThread,
		lexer.TokenInline, lexer.TokenNoreturn, lexer.TokenAlignas,
		lexer.TokenStaticAssert:
		return true
	}
	return p.isTypeNameStart(tok)
}

// parseDecl parses one declaration and lifts any initializers into a
// compound statement of assignment expressions.
func (p *Parser) parseDecl() *ast.CompoundStmt {
	var stmts []ast.Stmt
	if p.cur.try(lexer.TokenStaticAssert) {
		p.parseStaticAssert()
	} else {
		var storage, fnSpec int
		ty := p.parseDeclSpec(&storage, &fnSpec)

		// FIRST(init-declarator) = { '*', identifier, '(' }
		if p.cur.test(lexer.TokenStar) || p.cur.test(lexer.TokenIdent) || p.cur.test(lexer.TokenLParen) {
			for {
				if initStmt := p.parseInitDeclarator(ty, storage, fnSpec); initStmt != nil {
					stmts = append(stmts, initStmt)
				}
				if !p.cur.try(lexer.TokenComma) {
					break
				}
			}
		}
		p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)
	}

	return p.newCompoundStmt(stmts)
}

// parseStaticAssert parses _Static_assert '(' expr ',' string ')' ';'.
func (p *Parser) parseStaticAssert() {
	p.expect(lexer.TokenLParen)
	p.errTok = p.cur.peek()
	cond := p.parseConditionalExpr()
	p.expect(lexer.TokenComma)
	msg := p.expect(lexer.TokenString)
	p.expect(lexer.TokenRParen)
	p.expect(lexer.TokenSemicolon, lexer.TokenSemicolon, lexer.TokenRBrace)

	if val, ok := evalInteger(cond); ok && val == 0 {
		p.errorf(p.errTok.Coord(), "static assertion failed: \"%s\"", msg.Literal)
	}
}

// parseInitDeclarator parses one declarator and, with '=', its
// initializer; the initializer is returned as an assignment statement.
func (p *Parser) parseInitDeclarator(ty ctypes.Type, storage, fnSpec int) ast.Stmt {
	sym := p.parseDirectDeclarator(ty, storage, fnSpec)

	if p.cur.try(lexer.TokenAssign) {
		obj, ok := sym.(*ast.Object)
		if !ok {
			p.errorf(p.cur.peek().Coord(), "unexpected initializer")
			// Consume and drop the initializer expression.
			p.parseInitializerInto(nil)
			return nil
		}
		return p.parseInitializer(obj)
	}

	return nil
}

// parseInitializer parses an initializer for obj and translates it into
// assignment statements.
func (p *Parser) parseInitializer(obj *ast.Object) ast.Stmt {
	return p.parseInitializerInto(obj)
}

func (p *Parser) parseInitializerInto(obj *ast.Object) ast.Stmt {
	if p.cur.try(lexer.TokenLBrace) {
		if obj != nil {
			if ctypes.ToArray(obj.Type()) != nil {
				return p.parseArrayInitializer(obj)
			}
			if ctypes.ToStructUnion(obj.Type()) != nil {
				p.errorf(p.cur.peek().Coord(), "struct/union initializer not supported")
			} else {
				p.errorf(p.cur.peek().Coord(), "unexpected brace initializer")
			}
		}
		p.skipBracedInitializer()
		return nil
	}

	tok := p.cur.peek()
	rhs := p.parseAssignExpr()
	if obj == nil {
		return nil
	}
	return p.newInitAssign(tok, obj, rhs)
}

// skipBracedInitializer consumes a brace-balanced initializer that could
// not be translated, so parsing can resume at the declarator tail.
func (p *Parser) skipBracedInitializer() {
	depth := 1
	for depth > 0 {
		tok := p.cur.next()
		switch {
		case tok.IsEOF():
			return
		case tok.Type == lexer.TokenLBrace:
			depth++
		case tok.Type == lexer.TokenRBrace:
			depth--
		}
	}
}

// parseArrayInitializer parses '{ ... }' for an array object, honoring
// index designators; each element initializer becomes an assignment to a
// synthesized element object at the element's offset.
func (p *Parser) parseArrayInitializer(arr *ast.Object) ast.Stmt {
	arrType := ctypes.ToArray(arr.Type())
	elemWidth := arrType.Elem().Width()

	defaultIdx := 0
	idxSet := make(map[int]bool)
	var stmts []ast.Stmt

	for {
		tok := p.cur.next()
		if tok.Type == lexer.TokenRBrace {
			break
		}
		if tok.IsEOF() {
			p.errorf(tok.Coord(), "premature end of input")
			break
		}

		idx := -1
		if tok.Type == lexer.TokenLBracket {
			p.errTok = p.cur.peek()
			expr := p.parseConditionalExpr()
			idx = int(p.evalIntegerExpr(p.errTok, expr))
			p.expect(lexer.TokenRBracket)
			p.expect(lexer.TokenAssign)
		} else {
			p.cur.putBack()
			for idxSet[defaultIdx] {
				defaultIdx++
			}
			idx = defaultIdx
		}
		idxSet[idx] = true

		if arrType.Complete() && (idx < 0 || idx >= arrType.Len()) {
			p.errorf(tok.Coord(), "array index %d out of bounds", idx)
		}

		elem := p.newObject(arr.Name, arrType.Elem(), arr.Storage, arr.Link)
		elem.Offset = arr.Offset + idx*elemWidth
		if s := p.parseInitializerInto(elem); s != nil {
			stmts = append(stmts, s)
		}

		// A needless comma before the closing brace is allowed.
		if !p.cur.try(lexer.TokenComma) {
			if p.cur.peek().Type != lexer.TokenRBrace {
				p.errorf(p.cur.peek().Coord(), "expect ',' or '}'")
				p.cur.skipTo(lexer.TokenRBrace, lexer.TokenSemicolon)
			}
		}
	}

	return p.newCompoundStmt(stmts)
}
