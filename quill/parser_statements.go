package quill

import "slices"

func (p *parser) parseStatement() Statement {
	switch p.curToken.Type {
	case tokenLBrace:
		return p.parseBlockStatement()
	case tokenSemicolon:
		return &EmptyStmt{position: p.curToken.Pos}
	case tokenVar, tokenLet, tokenConst:
		decl := p.parseVarDecl(true)
		p.consumeSemicolon()
		return decl
	case tokenFunction:
		pos := p.curToken.Pos
		p.expectPeek(tokenIdent)
		fn := p.parseFunctionRest(p.curToken.Literal, pos)
		return &FunctionDecl{Func: fn, position: pos}
	case tokenIf:
		return p.parseIfStatement()
	case tokenWhile:
		return p.parseWhileStatement()
	case tokenDo:
		return p.parseDoWhileStatement()
	case tokenFor:
		return p.parseForStatement()
	case tokenReturn:
		return p.parseReturnStatement()
	case tokenBreak, tokenContinue:
		return p.parseJumpStatement()
	case tokenThrow:
		return p.parseThrowStatement()
	case tokenTry:
		return p.parseTryStatement()
	case tokenSwitch:
		return p.parseSwitchStatement()
	case tokenIdent:
		if p.peekToken.Type == tokenColon {
			return p.parseLabeledStatement()
		}
	}
	return p.parseExpressionStatement()
}

func (p *parser) parseExpressionStatement() Statement {
	pos := p.curToken.Pos
	expr := p.parseExpression(lowestPrec)
	p.consumeSemicolon()
	return &ExprStmt{Expr: expr, position: pos}
}

// parseBlockStatement expects the current token to be `{` and leaves the
// parser on the matching `}`.
func (p *parser) parseBlockStatement() *BlockStmt {
	block := &BlockStmt{position: p.curToken.Pos}
	p.nextToken()
	for p.curToken.Type != tokenRBrace {
		if p.curToken.Type == tokenEOF {
			p.errorExpected(p.curToken, "'}'")
		}
		block.Body = append(block.Body, p.parseStatement())
		p.nextToken()
	}
	return block
}

// parseVarDecl parses `var|let|const a = 1, b`. allowIn is false inside a
// for-statement head, where `in` introduces a for-in loop.
func (p *parser) parseVarDecl(allowIn bool) *VarDecl {
	decl := &VarDecl{Kind: p.curToken.Literal, position: p.curToken.Pos}
	saved := p.noIn
	p.noIn = !allowIn
	defer func() { p.noIn = saved }()

	for {
		p.expectPeek(tokenIdent)
		d := VarDeclarator{Name: p.curToken.Literal, position: p.curToken.Pos}
		if p.peekToken.Type == tokenAssign {
			p.nextToken()
			p.nextToken()
			d.Init = p.parseExpression(precComma)
		} else if decl.Kind == "const" && allowIn {
			p.errorExpected(p.peekToken, "initializer for const declaration")
		}
		decl.Declarations = append(decl.Declarations, d)
		if p.peekToken.Type != tokenComma {
			return decl
		}
		p.nextToken()
	}
}

func (p *parser) parseIfStatement() Statement {
	stmt := &IfStmt{position: p.curToken.Pos}
	p.expectPeek(tokenLParen)
	p.nextToken()
	stmt.Condition = p.parseExpression(lowestPrec)
	p.expectPeek(tokenRParen)
	p.nextToken()
	stmt.Consequent = p.parseStatement()
	if p.peekToken.Type == tokenElse {
		p.nextToken()
		p.nextToken()
		stmt.Alternate = p.parseStatement()
	}
	return stmt
}

func (p *parser) parseLoopBody() Statement {
	p.scope.loopDepth++
	defer func() { p.scope.loopDepth-- }()
	return p.parseStatement()
}

func (p *parser) parseWhileStatement() Statement {
	stmt := &WhileStmt{position: p.curToken.Pos}
	p.expectPeek(tokenLParen)
	p.nextToken()
	stmt.Condition = p.parseExpression(lowestPrec)
	p.expectPeek(tokenRParen)
	p.nextToken()
	stmt.Body = p.parseLoopBody()
	return stmt
}

func (p *parser) parseDoWhileStatement() Statement {
	stmt := &DoWhileStmt{position: p.curToken.Pos}
	p.nextToken()
	stmt.Body = p.parseLoopBody()
	p.expectPeek(tokenWhile)
	p.expectPeek(tokenLParen)
	p.nextToken()
	stmt.Condition = p.parseExpression(lowestPrec)
	p.expectPeek(tokenRParen)
	if p.peekToken.Type == tokenSemicolon {
		p.nextToken()
	}
	return stmt
}

func (p *parser) parseForStatement() Statement {
	pos := p.curToken.Pos
	p.expectPeek(tokenLParen)
	p.nextToken()

	var init Statement
	switch p.curToken.Type {
	case tokenSemicolon:
	case tokenVar, tokenLet, tokenConst:
		after := p.tokenAt(p.idx + 2)
		if p.peekToken.Type == tokenIdent && (after.Type == tokenIn || isOfToken(after)) {
			kind := p.curToken.Literal
			p.nextToken()
			target := &Identifier{Name: p.curToken.Literal, position: p.curToken.Pos}
			return p.parseForInRest(pos, kind, target)
		}
		init = p.parseVarDecl(false)
		p.expectPeek(tokenSemicolon)
	default:
		exprPos := p.curToken.Pos
		saved := p.noIn
		p.noIn = true
		expr := p.parseExpression(lowestPrec)
		p.noIn = saved
		if p.peekToken.Type == tokenIn || isOfToken(p.peekToken) {
			if !isAssignable(expr) {
				p.fail(p.curToken, "assignable target", "invalid left-hand side in for-in/of loop")
			}
			return p.parseForInRest(pos, "", expr)
		}
		init = &ExprStmt{Expr: expr, position: exprPos}
		p.expectPeek(tokenSemicolon)
	}

	stmt := &ForStmt{Init: init, position: pos}
	if p.peekToken.Type != tokenSemicolon {
		p.nextToken()
		stmt.Condition = p.parseExpression(lowestPrec)
	}
	p.expectPeek(tokenSemicolon)
	if p.peekToken.Type != tokenRParen {
		p.nextToken()
		stmt.Update = p.parseExpression(lowestPrec)
	}
	p.expectPeek(tokenRParen)
	p.nextToken()
	stmt.Body = p.parseLoopBody()
	return stmt
}

// parseForInRest continues after the loop target; the current token is the
// last token of the target.
func (p *parser) parseForInRest(pos Position, kind string, target Expression) Statement {
	p.nextToken()
	stmt := &ForInStmt{DeclKind: kind, Target: target, Of: isOfToken(p.curToken), position: pos}
	p.nextToken()
	if stmt.Of {
		stmt.Iterable = p.parseExpression(precComma)
	} else {
		stmt.Iterable = p.parseExpression(lowestPrec)
	}
	p.expectPeek(tokenRParen)
	p.nextToken()
	stmt.Body = p.parseLoopBody()
	return stmt
}

func isOfToken(tok Token) bool {
	return tok.Type == tokenIdent && tok.Literal == "of"
}

func (p *parser) parseReturnStatement() Statement {
	stmt := &ReturnStmt{position: p.curToken.Pos}
	switch p.peekToken.Type {
	case tokenSemicolon, tokenRBrace, tokenEOF:
	default:
		if !p.peekToken.newlineBefore {
			p.nextToken()
			stmt.Value = p.parseExpression(lowestPrec)
		}
	}
	p.consumeSemicolon()
	return stmt
}

func (p *parser) parseJumpStatement() Statement {
	tok := p.curToken
	label := ""
	if p.peekToken.Type == tokenIdent && !p.peekToken.newlineBefore {
		p.nextToken()
		label = p.curToken.Literal
		if !slices.Contains(p.scope.labels, label) {
			p.fail(p.curToken, "", "undefined label '"+label+"'")
		}
	}

	if tok.Type == tokenBreak {
		if label == "" && p.scope.loopDepth == 0 && p.scope.switchDepth == 0 {
			p.fail(tok, "", "illegal break statement")
		}
		p.consumeSemicolon()
		return &BreakStmt{Label: label, position: tok.Pos}
	}
	if p.scope.loopDepth == 0 {
		p.fail(tok, "", "illegal continue statement: no surrounding iteration statement")
	}
	p.consumeSemicolon()
	return &ContinueStmt{Label: label, position: tok.Pos}
}

func (p *parser) parseThrowStatement() Statement {
	stmt := &ThrowStmt{position: p.curToken.Pos}
	if p.peekToken.newlineBefore {
		p.fail(p.peekToken, "expression", "illegal newline after throw")
	}
	p.nextToken()
	stmt.Value = p.parseExpression(lowestPrec)
	p.consumeSemicolon()
	return stmt
}

func (p *parser) parseTryStatement() Statement {
	stmt := &TryStmt{position: p.curToken.Pos}
	p.expectPeek(tokenLBrace)
	stmt.Block = p.parseBlockStatement()

	if p.peekToken.Type == tokenCatch {
		p.nextToken()
		if p.peekToken.Type == tokenLParen {
			p.nextToken()
			p.expectPeek(tokenIdent)
			stmt.Param = p.curToken.Literal
			p.expectPeek(tokenRParen)
		}
		p.expectPeek(tokenLBrace)
		stmt.Handler = p.parseBlockStatement()
	}
	if p.peekToken.Type == tokenFinally {
		p.nextToken()
		p.expectPeek(tokenLBrace)
		stmt.Finalizer = p.parseBlockStatement()
	}
	if stmt.Handler == nil && stmt.Finalizer == nil {
		p.errorExpected(p.peekToken, "'catch' or 'finally'")
	}
	return stmt
}

func (p *parser) parseSwitchStatement() Statement {
	stmt := &SwitchStmt{position: p.curToken.Pos}
	p.expectPeek(tokenLParen)
	p.nextToken()
	stmt.Discriminant = p.parseExpression(lowestPrec)
	p.expectPeek(tokenRParen)
	p.expectPeek(tokenLBrace)
	p.nextToken()

	p.scope.switchDepth++
	defer func() { p.scope.switchDepth-- }()

	seenDefault := false
	for p.curToken.Type != tokenRBrace {
		clause := SwitchCase{position: p.curToken.Pos}
		switch p.curToken.Type {
		case tokenCase:
			p.nextToken()
			clause.Test = p.parseExpression(lowestPrec)
		case tokenDefault:
			if seenDefault {
				p.fail(p.curToken, "", "more than one default clause in switch statement")
			}
			seenDefault = true
		default:
			p.errorExpected(p.curToken, "'case', 'default' or '}'")
		}
		p.expectPeek(tokenColon)
		p.nextToken()
		for p.curToken.Type != tokenCase && p.curToken.Type != tokenDefault && p.curToken.Type != tokenRBrace {
			if p.curToken.Type == tokenEOF {
				p.errorExpected(p.curToken, "'}'")
			}
			clause.Body = append(clause.Body, p.parseStatement())
			p.nextToken()
		}
		stmt.Cases = append(stmt.Cases, clause)
	}
	return stmt
}

func (p *parser) parseLabeledStatement() Statement {
	stmt := &LabeledStmt{Label: p.curToken.Literal, position: p.curToken.Pos}
	p.nextToken()
	p.nextToken()
	p.scope.labels = append(p.scope.labels, stmt.Label)
	defer func() { p.scope.labels = p.scope.labels[:len(p.scope.labels)-1] }()
	stmt.Body = p.parseStatement()
	return stmt
}

// parseFunctionRest parses parameters and body; the current token is the
// function name (or `function` for anonymous expressions).
func (p *parser) parseFunctionRest(name string, pos Position) *FunctionLiteral {
	p.expectPeek(tokenLParen)
	fn := &FunctionLiteral{Name: name, position: pos}
	fn.Params = p.parseParameterList()
	p.expectPeek(tokenLBrace)
	fn.Body = p.parseFunctionBody()
	fn.Strict = hasUseStrict(fn.Body)
	fn.varNames = collectVarNames(fn.Body)
	return fn
}

// parseParameterList expects the current token to be `(` and leaves the parser
// on the closing `)`.
func (p *parser) parseParameterList() []Param {
	params := []Param{}
	if p.peekToken.Type == tokenRParen {
		p.nextToken()
		return params
	}
	saved := p.noIn
	p.noIn = false
	defer func() { p.noIn = saved }()

	for {
		p.nextToken()
		param := Param{}
		if p.curToken.Type == tokenEllipsis {
			param.Rest = true
			p.nextToken()
		}
		if p.curToken.Type != tokenIdent {
			p.errorExpected(p.curToken, "parameter name")
		}
		param.Name = p.curToken.Literal
		if !param.Rest && p.peekToken.Type == tokenAssign {
			p.nextToken()
			p.nextToken()
			param.DefaultVal = p.parseExpression(precComma)
		}
		params = append(params, param)
		if param.Rest || p.peekToken.Type != tokenComma {
			p.expectPeek(tokenRParen)
			return params
		}
		p.nextToken()
		if p.peekToken.Type == tokenRParen {
			p.nextToken()
			return params
		}
	}
}

// parseFunctionBody expects `{` and leaves the parser on the matching `}`.
// Jump statements never cross a function boundary.
func (p *parser) parseFunctionBody() []Statement {
	savedScope, savedNoIn := p.scope, p.noIn
	p.scope = parseScope{}
	p.noIn = false
	defer func() {
		p.scope, p.noIn = savedScope, savedNoIn
	}()
	return p.parseBlockStatement().Body
}
