package quill

import (
	"strconv"
	"strings"
)

const (
	lowestPrec = iota
	precComma
	precAssign
	precConditional
	precNullish
	precOr
	precAnd
	precBitOr
	precBitXor
	precBitAnd
	precEquality
	precRelational
	precShift
	precSum
	precProduct
	precExponent
	precPrefix
	precPostfix
	precCall
)

var assignmentOperators = map[TokenType]struct{}{
	tokenAssign: {}, tokenPlusAssign: {}, tokenMinusAssign: {}, tokenStarAssign: {},
	tokenSlashAssign: {}, tokenPercentAssign: {}, tokenPowAssign: {}, tokenShlAssign: {},
	tokenShrAssign: {}, tokenUShrAssign: {}, tokenBitAndAssign: {}, tokenBitOrAssign: {},
	tokenBitXorAssign: {}, tokenAndAssign: {}, tokenOrAssign: {}, tokenNullishAssign: {},
}

var precedences = map[TokenType]int{
	tokenComma:         precComma,
	tokenQuestion:      precConditional,
	tokenNullish:       precNullish,
	tokenOr:            precOr,
	tokenAnd:           precAnd,
	tokenBitOr:         precBitOr,
	tokenBitXor:        precBitXor,
	tokenBitAnd:        precBitAnd,
	tokenEQ:            precEquality,
	tokenNotEQ:         precEquality,
	tokenStrictEQ:      precEquality,
	tokenStrictNotEQ:   precEquality,
	tokenLT:            precRelational,
	tokenLTE:           precRelational,
	tokenGT:            precRelational,
	tokenGTE:           precRelational,
	tokenInstanceof:    precRelational,
	tokenIn:            precRelational,
	tokenShl:           precShift,
	tokenShr:           precShift,
	tokenUShr:          precShift,
	tokenPlus:          precSum,
	tokenMinus:         precSum,
	tokenAsterisk:      precProduct,
	tokenSlash:         precProduct,
	tokenPercent:       precProduct,
	tokenPow:           precExponent,
	tokenIncrement:     precPostfix,
	tokenDecrement:     precPostfix,
	tokenLParen:        precCall,
	tokenDot:           precCall,
	tokenOptionalChain: precCall,
	tokenLBracket:      precCall,
}

func init() {
	for tt := range assignmentOperators {
		precedences[tt] = precAssign
	}
}

func (p *parser) peekPrecedence() int {
	tt := p.peekToken.Type
	if tt == tokenIn && p.noIn {
		return lowestPrec
	}
	// a newline before ++/-- ends the statement instead of forming a postfix update
	if (tt == tokenIncrement || tt == tokenDecrement) && p.peekToken.newlineBefore {
		return lowestPrec
	}
	return precedences[tt]
}

func (p *parser) curPrecedence() int {
	return precedences[p.curToken.Type]
}

func (p *parser) parseExpression(precedence int) Expression {
	prefix := p.prefixFns[p.curToken.Type]
	if prefix == nil {
		p.errorUnexpected(p.curToken)
	}

	left := prefix()

	for precedence < p.peekPrecedence() {
		infix := p.infixFns[p.peekToken.Type]
		if infix == nil {
			return left
		}
		p.nextToken()
		left = infix(left)
	}

	return left
}

// parseNested parses a full expression with `in` re-enabled, as inside any
// bracketed construct.
func (p *parser) parseNested(precedence int) Expression {
	saved := p.noIn
	p.noIn = false
	defer func() { p.noIn = saved }()
	return p.parseExpression(precedence)
}

func (p *parser) parseIdentifier() Expression {
	if p.peekToken.Type == tokenArrow && !p.peekToken.newlineBefore {
		pos := p.curToken.Pos
		params := []Param{{Name: p.curToken.Literal}}
		p.nextToken()
		return p.parseArrowBody(params, pos)
	}
	return &Identifier{Name: p.curToken.Literal, position: p.curToken.Pos}
}

func (p *parser) parseNumberLiteral() Expression {
	value, ok := parseNumericLiteral(p.curToken.Literal)
	if !ok {
		p.fail(p.curToken, "", "invalid numeric literal "+p.curToken.Literal)
	}
	return &NumberLiteral{Value: value, Raw: p.curToken.Literal, position: p.curToken.Pos}
}

func parseNumericLiteral(raw string) (float64, bool) {
	if len(raw) > 2 && raw[0] == '0' {
		base := 0
		switch raw[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			value := 0.0
			for _, r := range raw[2:] {
				digit, err := strconv.ParseUint(string(r), base, 8)
				if err != nil {
					return 0, false
				}
				value = value*float64(base) + float64(digit)
			}
			return value, true
		}
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return value, true
		}
		return 0, false
	}
	return value, true
}

func (p *parser) parseStringLiteral() Expression {
	return &StringLiteral{Value: p.curToken.Value, position: p.curToken.Pos}
}

func (p *parser) parseRegexLiteral() Expression {
	raw := p.curToken.Literal
	end := strings.LastIndexByte(raw, '/')
	return &RegexLiteral{Pattern: raw[1:end], Flags: raw[end+1:], position: p.curToken.Pos}
}

func (p *parser) parseBooleanLiteral() Expression {
	return &BoolLiteral{Value: p.curToken.Type == tokenTrue, position: p.curToken.Pos}
}

func (p *parser) parseNullLiteral() Expression {
	return &NullLiteral{position: p.curToken.Pos}
}

func (p *parser) parseThis() Expression {
	return &ThisExpr{position: p.curToken.Pos}
}

func (p *parser) parseGroupedOrArrow() Expression {
	pos := p.curToken.Pos
	if p.isArrowHead() {
		params := p.parseParameterList()
		p.nextToken()
		return p.parseArrowBody(params, pos)
	}
	p.nextToken()
	expr := p.parseNested(lowestPrec)
	p.expectPeek(tokenRParen)
	return expr
}

// isArrowHead scans from the current `(` to its matching `)` and reports
// whether `=>` follows on the same line.
func (p *parser) isArrowHead() bool {
	depth := 0
	for i := p.idx; i < len(p.tokens); i++ {
		switch p.tokens[i].Type {
		case tokenLParen, tokenLBracket, tokenLBrace:
			depth++
		case tokenRParen, tokenRBracket, tokenRBrace:
			depth--
			if depth == 0 {
				next := p.tokenAt(i + 1)
				return next.Type == tokenArrow && !next.newlineBefore
			}
		case tokenEOF:
			return false
		}
	}
	return false
}

// parseArrowBody expects the current token to be `=>`.
func (p *parser) parseArrowBody(params []Param, pos Position) Expression {
	fn := &FunctionLiteral{Params: params, Arrow: true, position: pos}
	if p.peekToken.Type == tokenLBrace {
		p.nextToken()
		fn.Body = p.parseFunctionBody()
		fn.Strict = hasUseStrict(fn.Body)
		fn.varNames = collectVarNames(fn.Body)
		return fn
	}
	p.nextToken()
	savedScope := p.scope
	p.scope = parseScope{}
	fn.ExprBody = p.parseExpression(precComma)
	p.scope = savedScope
	return fn
}

func (p *parser) parseArrayLiteral() Expression {
	arr := &ArrayLiteral{position: p.curToken.Pos}
	for {
		switch p.peekToken.Type {
		case tokenRBracket:
			p.nextToken()
			return arr
		case tokenComma:
			p.nextToken()
			arr.Elements = append(arr.Elements, nil)
			continue
		}
		p.nextToken()
		arr.Elements = append(arr.Elements, p.parseElement())
		switch p.peekToken.Type {
		case tokenComma:
			p.nextToken()
		case tokenRBracket:
			p.nextToken()
			return arr
		default:
			p.errorExpected(p.peekToken, "',' or ']'")
		}
	}
}

// parseElement parses an array element or call argument, including spread.
func (p *parser) parseElement() Expression {
	if p.curToken.Type == tokenEllipsis {
		pos := p.curToken.Pos
		p.nextToken()
		return &SpreadExpr{Value: p.parseNested(precComma), position: pos}
	}
	return p.parseNested(precComma)
}

func (p *parser) parseObjectLiteral() Expression {
	obj := &ObjectLiteral{position: p.curToken.Pos}
	for {
		if p.peekToken.Type == tokenRBrace {
			p.nextToken()
			return obj
		}
		p.nextToken()
		obj.Properties = append(obj.Properties, p.parseObjectProperty())
		switch p.peekToken.Type {
		case tokenComma:
			p.nextToken()
		case tokenRBrace:
			p.nextToken()
			return obj
		default:
			p.errorExpected(p.peekToken, "',' or '}'")
		}
	}
}

func (p *parser) parseObjectProperty() ObjectProperty {
	tok := p.curToken
	prop := ObjectProperty{}
	switch {
	case tok.Type == tokenEllipsis:
		p.nextToken()
		prop.Spread = true
		prop.Value = p.parseNested(precComma)
		return prop
	case tok.Type == tokenLBracket:
		p.nextToken()
		prop.Computed = p.parseNested(precComma)
		p.expectPeek(tokenRBracket)
	case tok.Type == tokenString:
		prop.Key = tok.Value
	case tok.Type == tokenNumber:
		value, _ := parseNumericLiteral(tok.Literal)
		prop.Key = numberToString(value)
	case identifierName(tok):
		prop.Key = tok.Literal
	default:
		p.errorExpected(tok, "property name")
	}

	switch p.peekToken.Type {
	case tokenColon:
		p.nextToken()
		p.nextToken()
		prop.Value = p.parseNested(precComma)
	case tokenLParen:
		p.nextToken()
		fn := &FunctionLiteral{Name: prop.Key, position: tok.Pos}
		fn.Params = p.parseParameterList()
		p.expectPeek(tokenLBrace)
		fn.Body = p.parseFunctionBody()
		fn.Strict = hasUseStrict(fn.Body)
		fn.varNames = collectVarNames(fn.Body)
		prop.Value = fn
	case tokenComma, tokenRBrace:
		if tok.Type != tokenIdent {
			p.errorExpected(p.peekToken, "':'")
		}
		prop.Value = &Identifier{Name: tok.Literal, position: tok.Pos}
	default:
		p.errorExpected(p.peekToken, "':'")
	}
	return prop
}

func (p *parser) parseFunctionExpression() Expression {
	pos := p.curToken.Pos
	name := ""
	if p.peekToken.Type == tokenIdent {
		p.nextToken()
		name = p.curToken.Literal
	}
	return p.parseFunctionRest(name, pos)
}

// parseNewExpression binds arguments to the nearest `new`: `new a.B(1).c`
// constructs a.B and then reads c from the instance.
func (p *parser) parseNewExpression() Expression {
	expr := &NewExpr{position: p.curToken.Pos}
	p.nextToken()
	if p.curToken.Type == tokenNew {
		expr.Callee = p.parseNewExpression()
	} else {
		prefix := p.prefixFns[p.curToken.Type]
		if prefix == nil {
			p.errorUnexpected(p.curToken)
		}
		expr.Callee = prefix()
	}
	for p.peekToken.Type == tokenDot || p.peekToken.Type == tokenLBracket {
		p.nextToken()
		if p.curToken.Type == tokenDot {
			expr.Callee = p.parseMemberExpression(expr.Callee)
		} else {
			expr.Callee = p.parseIndexExpression(expr.Callee)
		}
	}
	if p.peekToken.Type == tokenLParen {
		p.nextToken()
		expr.Args = p.parseArguments()
	}
	return expr
}

func (p *parser) parseUnaryExpression() Expression {
	expr := &UnaryExpr{Operator: p.curToken.Literal, position: p.curToken.Pos}
	p.nextToken()
	expr.Operand = p.parseExpression(precPrefix)
	return expr
}

func (p *parser) parsePrefixUpdate() Expression {
	expr := &UpdateExpr{Operator: p.curToken.Literal, Prefix: true, position: p.curToken.Pos}
	p.nextToken()
	expr.Target = p.parseExpression(precPrefix)
	if !isAssignable(expr.Target) {
		p.fail(p.curToken, "assignable target", "invalid left-hand side expression in prefix operation")
	}
	return expr
}

func (p *parser) parsePostfixUpdate(left Expression) Expression {
	if !isAssignable(left) {
		p.fail(p.curToken, "assignable target", "invalid left-hand side expression in postfix operation")
	}
	return &UpdateExpr{Operator: p.curToken.Literal, Target: left, position: left.Pos()}
}

func (p *parser) parseInfixExpression(left Expression) Expression {
	expr := &BinaryExpr{Operator: p.curToken.Literal, Left: left, position: p.curToken.Pos}
	precedence := p.curPrecedence()
	if p.curToken.Type == tokenPow {
		// exponentiation is right-associative
		precedence--
	}
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *parser) parseLogicalExpression(left Expression) Expression {
	expr := &LogicalExpr{Operator: p.curToken.Literal, Left: left, position: p.curToken.Pos}
	precedence := p.curPrecedence()
	p.nextToken()
	expr.Right = p.parseExpression(precedence)
	return expr
}

func (p *parser) parseAssignExpression(left Expression) Expression {
	if !isAssignable(left) {
		p.fail(p.curToken, "assignable target", "invalid assignment target")
	}
	expr := &AssignExpr{Operator: p.curToken.Literal, Target: left, position: p.curToken.Pos}
	p.nextToken()
	expr.Value = p.parseExpression(precComma)
	return expr
}

func (p *parser) parseConditionalExpression(condition Expression) Expression {
	expr := &ConditionalExpr{Condition: condition, position: p.curToken.Pos}
	p.nextToken()
	expr.Consequent = p.parseNested(precComma)
	p.expectPeek(tokenColon)
	p.nextToken()
	expr.Alternate = p.parseExpression(precComma)
	return expr
}

func (p *parser) parseSequenceExpression(left Expression) Expression {
	seq, ok := left.(*SequenceExpr)
	if !ok {
		seq = &SequenceExpr{Expressions: []Expression{left}, position: left.Pos()}
	}
	p.nextToken()
	seq.Expressions = append(seq.Expressions, p.parseExpression(precComma))
	return seq
}

func (p *parser) parseCallExpression(callee Expression) Expression {
	pos := p.curToken.Pos
	return &CallExpr{Callee: callee, Args: p.parseArguments(), position: pos}
}

// parseArguments expects `(` and leaves the parser on `)`.
func (p *parser) parseArguments() []Expression {
	args := []Expression{}
	for {
		if p.peekToken.Type == tokenRParen {
			p.nextToken()
			return args
		}
		p.nextToken()
		args = append(args, p.parseElement())
		if p.peekToken.Type != tokenComma {
			p.expectPeek(tokenRParen)
			return args
		}
		p.nextToken()
	}
}

func (p *parser) parseMemberExpression(object Expression) Expression {
	pos := p.curToken.Pos
	p.nextToken()
	if !identifierName(p.curToken) {
		p.errorExpected(p.curToken, "property name")
	}
	return &MemberExpr{Object: object, Property: p.curToken.Literal, position: pos}
}

func (p *parser) parseIndexExpression(object Expression) Expression {
	pos := p.curToken.Pos
	p.nextToken()
	index := p.parseNested(lowestPrec)
	p.expectPeek(tokenRBracket)
	return &IndexExpr{Object: object, Index: index, position: pos}
}

func (p *parser) parseOptionalChain(object Expression) Expression {
	pos := p.curToken.Pos
	switch p.peekToken.Type {
	case tokenLParen:
		p.nextToken()
		return &CallExpr{Callee: object, Args: p.parseArguments(), Optional: true, position: pos}
	case tokenLBracket:
		p.nextToken()
		expr := p.parseIndexExpression(object).(*IndexExpr)
		expr.Optional = true
		return expr
	}
	expr := p.parseMemberExpression(object).(*MemberExpr)
	expr.Optional = true
	return expr
}

func isAssignable(expr Expression) bool {
	switch e := expr.(type) {
	case *Identifier:
		return true
	case *MemberExpr:
		return !e.Optional
	case *IndexExpr:
		return !e.Optional
	default:
		return false
	}
}
