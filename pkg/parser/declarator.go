package parser

import (
	"github.com/echopoint/wgtcc/pkg/ast"
	"github.com/echopoint/wgtcc/pkg/ctypes"
	"github.com/echopoint/wgtcc/pkg/lexer"
	"github.com/echopoint/wgtcc/pkg/scope"
)

// parseQual parses a possibly empty type-qualifier list.
func (p *Parser) parseQual() ctypes.Qual {
	var qual ctypes.Qual
	for {
		switch p.cur.next().Type {
		case lexer.TokenConst:
			qual |= ctypes.QConst
		case lexer.TokenRestrict:
			qual |= ctypes.QRestrict
		case lexer.TokenVolatile:
			qual |= ctypes.QVolatile
		case lexer.TokenAtomic:
			qual |= ctypes.QAtomic
		default:
			p.cur.putBack()
			return qual
		}
	}
}

// parsePointer wraps base in one pointer level per '*', each with its
// own qualifier bits.
func (p *Parser) parsePointer(base ctypes.Type) ctypes.Type {
	ret := base
	for p.cur.try(lexer.TokenStar) {
		ptr := ctypes.NewPointer(ret)
		ptr.SetQual(p.parseQual())
		ret = ptr
	}
	return ret
}

// modifyBase substitutes newBase for base at the innermost position of
// t's derived-type chain. It is how "pointer to array of int" and
// "function returning pointer" get their suffix types in the right
// place after a parenthesised inner declarator.
func modifyBase(t, base, newBase ctypes.Type) ctypes.Type {
	if t == base {
		return newBase
	}
	switch ty := t.(type) {
	case *ctypes.PointerType:
		ty.SetBase(modifyBase(ty.Base(), base, newBase))
	case *ctypes.ArrayType:
		ty.SetElem(modifyBase(ty.Elem(), base, newBase))
	case *ctypes.FuncType:
		ty.SetReturn(modifyBase(ty.Return(), base, newBase))
	}
	return t
}

// parseDeclarator parses pointer prefixes, an optional parenthesised
// inner declarator and trailing array/function suffixes. It returns the
// innermost identifier token, or nil for an abstract declarator, and the
// complete derived type.
func (p *Parser) parseDeclarator(base ctypes.Type) (*lexer.Token, ctypes.Type) {
	pointerType := p.parsePointer(base)

	if p.cur.try(lexer.TokenLParen) {
		if p.isTypeNameStart(p.cur.peek()) || p.cur.test(lexer.TokenRParen) {
			// Not an inner declarator: the paren begins a parameter list
			// of an abstract function declarator.
			p.cur.putBack()
		} else {
			// pointerType is not yet the true base: the suffix parsed
			// after the closing paren binds tighter than the inner
			// declarator.
			tok, innerType := p.parseDeclarator(pointerType)
			p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenSemicolon)
			newBase := p.parseArrayFuncDeclarator(pointerType)
			retType := modifyBase(innerType, pointerType, newBase)
			p.checkDerived(tok, retType)
			return tok, retType
		}
	}

	if p.cur.test(lexer.TokenIdent) {
		tok := p.cur.next()
		retType := p.parseArrayFuncDeclarator(pointerType)
		return &tok, retType
	}

	p.errTok = p.cur.peek()
	return nil, p.parseArrayFuncDeclarator(pointerType)
}

// checkDerived re-validates a substituted declarator chain: base
// substitution can produce shapes the suffix parser could not see.
func (p *Parser) checkDerived(tok *lexer.Token, t ctypes.Type) {
	coord := p.errTok.Coord()
	if tok != nil {
		coord = tok.Coord()
	}
	switch ty := t.(type) {
	case *ctypes.PointerType:
		p.checkDerived(tok, ty.Base())
	case *ctypes.ArrayType:
		if ctypes.ToFunc(ty.Elem()) != nil {
			p.errorf(coord, "the element of array can't be a function")
			return
		}
		p.checkDerived(tok, ty.Elem())
	case *ctypes.FuncType:
		if ctypes.ToFunc(ty.Return()) != nil {
			p.errorf(coord, "the return value of function can't be function")
			return
		}
		if ctypes.ToArray(ty.Return()) != nil {
			p.errorf(coord, "the return value of function can't be array")
			return
		}
		p.checkDerived(tok, ty.Return())
	}
}

// parseArrayFuncDeclarator parses the trailing '[...]' and '(...)'
// suffixes right to left: the suffix parsed first applies last.
func (p *Parser) parseArrayFuncDeclarator(base ctypes.Type) ctypes.Type {
	if p.cur.try(lexer.TokenLBracket) {
		if ctypes.ToFunc(base) != nil {
			p.errorf(p.cur.peek().Coord(), "the element of array can't be a function")
		}

		length := p.parseArrayLength()
		if length == 0 {
			p.errorf(p.cur.peek().Coord(), "can't declare an array of length 0")
			length = 1
		}
		p.expect(lexer.TokenRBracket, lexer.TokenRBracket, lexer.TokenSemicolon)
		base = p.parseArrayFuncDeclarator(base)

		return ctypes.NewArray(base, length)
	}

	if p.cur.try(lexer.TokenLParen) {
		if ctypes.ToFunc(base) != nil {
			p.errorf(p.cur.peek().Coord(), "the return value of function can't be function")
		} else if ctypes.ToArray(base) != nil {
			p.errorf(p.cur.peek().Coord(), "the return value of function can't be array")
		}

		p.enterScope(scope.Proto)
		params, variadic, unspecified := p.parseParamList()
		p.exitScope()

		p.expect(lexer.TokenRParen, lexer.TokenRParen, lexer.TokenLBrace)
		base = p.parseArrayFuncDeclarator(base)
		p.protoParams = params

		if unspecified {
			return ctypes.NewUnspecifiedFunc(base)
		}
		types := make([]ctypes.Type, len(params))
		for i, prm := range params {
			types[i] = prm.ty
		}
		return ctypes.NewFunc(base, types, variadic)
	}

	return base
}

// parseArrayLength parses the bracketed array length. It returns -1 for
// an unspecified length and leaves the closing bracket unconsumed.
// Variable-length arrays are rejected: the length must be a constant
// expression.
func (p *Parser) parseArrayLength() int {
	hasStatic := p.cur.try(lexer.TokenStatic)
	if qual := p.parseQual(); qual != 0 && !hasStatic {
		hasStatic = p.cur.try(lexer.TokenStatic)
	}

	if !hasStatic && p.cur.test(lexer.TokenRBracket) {
		return -1
	}

	p.errTok = p.cur.peek()
	expr := p.parseAssignExpr()
	val, ok := evalInteger(expr)
	if !ok {
		p.errorf(p.errTok.Coord(), "variable-length array not supported")
		return 1
	}
	if val < 0 {
		p.errorf(p.errTok.Coord(), "array length must be positive")
		return 1
	}
	return int(val)
}

// parseParamList parses a parameter-type list. It reports variadic
// parameters and the unprototyped empty list '()'.
func (p *Parser) parseParamList() (params []protoParam, variadic, unspecified bool) {
	if p.cur.test(lexer.TokenRParen) {
		return nil, false, true
	}

	prm := p.parseParamDecl()
	if ctypes.IsVoid(prm.ty) && prm.tok == nil {
		// The parameter list is 'void'.
		return nil, false, false
	}
	params = append(params, prm)

	for p.cur.try(lexer.TokenComma) {
		if p.cur.try(lexer.TokenEllipsis) {
			return params, true, false
		}

		tok := p.cur.peek()
		prm = p.parseParamDecl()
		if ctypes.IsVoid(prm.ty) {
			p.errorf(tok.Coord(), "'void' must be the only parameter")
			continue
		}
		params = append(params, prm)
	}

	return params, false, false
}

// parseParamDecl parses one parameter declaration. Array and function
// parameters adjust to pointers.
func (p *Parser) parseParamDecl() protoParam {
	var storage, fnSpec int
	ty := p.parseDeclSpec(&storage, &fnSpec)

	// No declarator at all.
	if p.cur.test(lexer.TokenComma) || p.cur.test(lexer.TokenRParen) {
		return protoParam{ty: ty, storage: storage}
	}

	tok, dty := p.parseDeclarator(ty)
	dty = adjustParamType(dty)
	if tok != nil {
		p.processDeclarator(*tok, dty, storage, fnSpec)
	}
	return protoParam{tok: tok, ty: dty, storage: storage}
}

// adjustParamType applies the parameter adjustments: array of T becomes
// pointer to T, function becomes pointer to function.
func adjustParamType(t ctypes.Type) ctypes.Type {
	if a := ctypes.ToArray(t); a != nil {
		return ctypes.NewPointer(a.Elem())
	}
	if f := ctypes.ToFunc(t); f != nil {
		return ctypes.NewPointer(f)
	}
	return t
}

// parseTypeName parses a type-name: specifier-qualifier list plus an
// optional abstract declarator.
func (p *Parser) parseTypeName() ctypes.Type {
	ty := p.parseSpecQual()
	if p.cur.test(lexer.TokenStar) || p.cur.test(lexer.TokenLParen) || p.cur.test(lexer.TokenLBracket) {
		return p.parseAbstractDeclarator(ty)
	}
	return ty
}

// parseAbstractDeclarator parses a declarator that must not name an
// identifier.
func (p *Parser) parseAbstractDeclarator(base ctypes.Type) ctypes.Type {
	tok, ty := p.parseDeclarator(base)
	if tok != nil {
		p.errorf(tok.Coord(), "unexpected identifier '%s'", tok.Literal)
	}
	return ty
}

// parseDirectDeclarator parses a declarator that must name an identifier
// and declares it in the current scope.
func (p *Parser) parseDirectDeclarator(base ctypes.Type, storage, fnSpec int) ast.Symbol {
	tok, ty := p.parseDeclarator(base)
	if tok == nil {
		p.errorf(p.errTok.Coord(), "expect identifier or '('")
		return nil
	}
	return p.processDeclarator(*tok, ty, storage, fnSpec)
}

// processDeclarator declares the identifier: it decides linkage from the
// scope kind and storage class, merges redeclarations, unifies external
// symbols across scopes and inserts the resulting symbol.
func (p *Parser) processDeclarator(tok lexer.Token, ty ctypes.Type, storage, fnSpec int) ast.Symbol {
	name := tok.Literal

	if storage&STypedef != 0 {
		prior := p.curScope.FindInCurrent(name)
		if prior != nil {
			if _, ok := prior.(*ast.TypeName); ok && ctypes.Equal(ty, prior.Type()) {
				// The same typedef again: keep the prior binding.
				return prior
			}
			p.errorf(tok.Coord(), "conflicting types for '%s'", name)
			return prior
		}
		tn := p.newTypeName(name, ty)
		p.curScope.Insert(name, tn)
		return tn
	}

	if ctypes.IsVoid(ty) {
		p.errorf(tok.Coord(), "variable or field '%s' declared void", name)
		return nil
	}

	fnType := ctypes.ToFunc(ty)
	if fnType == nil && !ty.Complete() {
		p.errorf(tok.Coord(), "storage size of '%s' isn't known", name)
		return nil
	}

	if fnType != nil && p.curScope.Kind() != scope.File && storage&SStatic != 0 {
		p.errorf(tok.Coord(), "invalid storage class for function '%s'", name)
	}

	var linkage ast.Linkage
	switch {
	case p.curScope.Kind() == scope.Proto:
		// Identifiers in a prototype have no linkage.
		linkage = ast.LinkNone
	case p.curScope.Kind() == scope.File:
		linkage = ast.LinkExternal
		if storage&SStatic != 0 {
			linkage = ast.LinkInternal
		}
	case storage&SExtern == 0:
		linkage = ast.LinkNone
		if fnType != nil {
			linkage = ast.LinkExternal
		}
	default:
		linkage = ast.LinkExternal
	}

	if prior := p.curScope.FindInCurrent(name); prior != nil {
		if !ctypes.Equal(ty, prior.Type()) {
			p.errorf(tok.Coord(), "conflicting types for '%s'", name)
			return prior
		}
		switch {
		case linkage == ast.LinkNone:
			p.errorf(tok.Coord(), "redeclaration of '%s' with no linkage", name)
		case linkage == ast.LinkExternal && prior.Linkage() == ast.LinkNone:
			p.errorf(tok.Coord(), "conflicting linkage for '%s'", name)
		case linkage == ast.LinkInternal && prior.Linkage() != ast.LinkInternal:
			p.errorf(tok.Coord(), "conflicting linkage for '%s'", name)
		}
		// The same redeclaration: return the prior symbol.
		return prior
	}

	var upward ast.Symbol
	if linkage == ast.LinkExternal {
		upward = p.curScope.Find(name)
		if upward != nil {
			if !ctypes.Equal(ty, upward.Type()) {
				p.errorf(tok.Coord(), "conflicting types for '%s'", name)
			}
			if upward.Linkage() != ast.LinkNone {
				linkage = upward.Linkage()
			}
		} else if ext := p.externalSymbols.FindInCurrent(name); ext != nil {
			if !ctypes.Equal(ty, ext.Type()) {
				p.errorf(tok.Coord(), "conflicting types for '%s'", name)
			}
		}
	}

	var sym ast.Symbol
	if fnType != nil {
		sym = p.newIdentifier(name, ty, linkage)
	} else {
		sym = p.newObject(name, ty, storage, linkage)
	}
	p.curScope.Insert(name, sym)

	if linkage == ast.LinkExternal && upward == nil {
		p.externalSymbols.Insert(name, sym)
	}

	return sym
}
