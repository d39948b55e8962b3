package quill

import (
	"fmt"
	"strings"
)

type (
	prefixParseFn func() Expression
	infixParseFn  func(Expression) Expression
)

// parseBailout unwinds the recursive descent on the first syntax error. It
// never escapes ParseProgram.
type parseBailout struct{}

type parser struct {
	source string
	tokens []Token
	idx    int

	curToken  Token
	peekToken Token

	err *ParseError

	prefixFns map[TokenType]prefixParseFn
	infixFns  map[TokenType]infixParseFn

	// noIn suppresses `in` as a binary operator inside for-statement heads.
	noIn bool

	scope parseScope
}

// parseScope tracks which jump statements are legal at the current point.
type parseScope struct {
	loopDepth   int
	switchDepth int
	labels      []string
}

// Parse lexes and parses source into a Program. The first lexical or syntax
// error aborts the parse and is returned as a *LexError or *ParseError.
func Parse(source string) (*Program, error) {
	p, err := newParser(source)
	if err != nil {
		return nil, err
	}
	return p.ParseProgram()
}

func newParser(source string) (*parser, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	p := &parser{source: source, tokens: tokens}

	p.prefixFns = map[TokenType]prefixParseFn{
		tokenIdent:     p.parseIdentifier,
		tokenNumber:    p.parseNumberLiteral,
		tokenString:    p.parseStringLiteral,
		tokenRegex:     p.parseRegexLiteral,
		tokenTrue:      p.parseBooleanLiteral,
		tokenFalse:     p.parseBooleanLiteral,
		tokenNull:      p.parseNullLiteral,
		tokenThis:      p.parseThis,
		tokenLParen:    p.parseGroupedOrArrow,
		tokenLBracket:  p.parseArrayLiteral,
		tokenLBrace:    p.parseObjectLiteral,
		tokenFunction:  p.parseFunctionExpression,
		tokenNew:       p.parseNewExpression,
		tokenBang:      p.parseUnaryExpression,
		tokenMinus:     p.parseUnaryExpression,
		tokenPlus:      p.parseUnaryExpression,
		tokenTilde:     p.parseUnaryExpression,
		tokenTypeof:    p.parseUnaryExpression,
		tokenVoid:      p.parseUnaryExpression,
		tokenDelete:    p.parseUnaryExpression,
		tokenIncrement: p.parsePrefixUpdate,
		tokenDecrement: p.parsePrefixUpdate,
	}

	p.infixFns = make(map[TokenType]infixParseFn)
	for _, tt := range []TokenType{
		tokenPlus, tokenMinus, tokenAsterisk, tokenSlash, tokenPercent, tokenPow,
		tokenShl, tokenShr, tokenUShr, tokenBitAnd, tokenBitOr, tokenBitXor,
		tokenEQ, tokenNotEQ, tokenStrictEQ, tokenStrictNotEQ,
		tokenLT, tokenLTE, tokenGT, tokenGTE, tokenInstanceof, tokenIn,
	} {
		p.infixFns[tt] = p.parseInfixExpression
	}
	for _, tt := range []TokenType{tokenAnd, tokenOr, tokenNullish} {
		p.infixFns[tt] = p.parseLogicalExpression
	}
	for tt := range assignmentOperators {
		p.infixFns[tt] = p.parseAssignExpression
	}
	p.infixFns[tokenQuestion] = p.parseConditionalExpression
	p.infixFns[tokenComma] = p.parseSequenceExpression
	p.infixFns[tokenLParen] = p.parseCallExpression
	p.infixFns[tokenDot] = p.parseMemberExpression
	p.infixFns[tokenOptionalChain] = p.parseOptionalChain
	p.infixFns[tokenLBracket] = p.parseIndexExpression
	p.infixFns[tokenIncrement] = p.parsePostfixUpdate
	p.infixFns[tokenDecrement] = p.parsePostfixUpdate

	p.idx = -2
	p.nextToken()
	p.nextToken()
	return p, nil
}

func (p *parser) tokenAt(i int) Token {
	if i < 0 {
		return Token{}
	}
	if i >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[i]
}

func (p *parser) nextToken() {
	p.idx++
	p.curToken = p.tokenAt(p.idx)
	p.peekToken = p.tokenAt(p.idx + 1)
}

// ParseProgram parses the whole token stream.
func (p *parser) ParseProgram() (program *Program, err error) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseBailout); !ok {
				panic(r)
			}
			program, err = nil, p.err
		}
	}()

	program = &Program{source: p.source}
	for p.curToken.Type != tokenEOF {
		program.Statements = append(program.Statements, p.parseStatement())
		p.nextToken()
	}
	program.Strict = hasUseStrict(program.Statements)
	program.varNames = collectVarNames(program.Statements)
	return program, nil
}

func (p *parser) expectPeek(tt TokenType) {
	if p.peekToken.Type != tt {
		p.errorExpected(p.peekToken, tokenLabel(tt))
	}
	p.nextToken()
}

// consumeSemicolon ends a statement, inserting a semicolon before a newline,
// a closing brace or the end of input.
func (p *parser) consumeSemicolon() {
	switch {
	case p.peekToken.Type == tokenSemicolon:
		p.nextToken()
	case p.peekToken.Type == tokenRBrace, p.peekToken.Type == tokenEOF, p.peekToken.newlineBefore:
	default:
		p.errorExpected(p.peekToken, "';'")
	}
}

func (p *parser) errorExpected(tok Token, expected string) {
	p.fail(tok, expected, fmt.Sprintf("expected %s, got %s", expected, describeToken(tok)))
}

func (p *parser) errorUnexpected(tok Token) {
	p.fail(tok, "", fmt.Sprintf("unexpected token %s", describeToken(tok)))
}

func (p *parser) fail(tok Token, expected, msg string) {
	p.err = &ParseError{Pos: tok.Pos, Message: msg, Expected: expected, Found: tok, source: p.source}
	panic(parseBailout{})
}

func describeToken(tok Token) string {
	switch tok.Type {
	case tokenIdent:
		return fmt.Sprintf("identifier %q", tok.Literal)
	case tokenNumber, tokenString, tokenRegex:
		return fmt.Sprintf("%s %s", strings.ToLower(string(tok.Type)), tok.Literal)
	case tokenIllegal:
		return fmt.Sprintf("invalid character %q", tok.Literal)
	}
	return tokenLabel(tok.Type)
}

func tokenLabel(tt TokenType) string {
	switch tt {
	case tokenIllegal:
		return "invalid token"
	case tokenEOF:
		return "end of input"
	case tokenIdent:
		return "identifier"
	case tokenNumber:
		return "number"
	case tokenString:
		return "string"
	case tokenRegex:
		return "regular expression"
	}
	for word, kw := range keywords {
		if kw == tt {
			return fmt.Sprintf("'%s'", word)
		}
	}
	return fmt.Sprintf("%q", string(tt))
}

func hasUseStrict(stmts []Statement) bool {
	for _, stmt := range stmts {
		expr, ok := stmt.(*ExprStmt)
		if !ok {
			return false
		}
		lit, ok := expr.Expr.(*StringLiteral)
		if !ok {
			return false
		}
		if lit.Value == "use strict" {
			return true
		}
	}
	return false
}
