package quill

import (
	"maps"
	"slices"
)

// TokenType identifies the lexical category of a token.
type TokenType string

const (
	tokenIllegal TokenType = "UNKNOWN"
	tokenEOF     TokenType = "EOF"

	tokenIdent  TokenType = "IDENT"
	tokenNumber TokenType = "NUMBER"
	tokenString TokenType = "STRING"
	tokenRegex  TokenType = "REGEX"

	tokenAssign        TokenType = "="
	tokenPlusAssign    TokenType = "+="
	tokenMinusAssign   TokenType = "-="
	tokenStarAssign    TokenType = "*="
	tokenSlashAssign   TokenType = "/="
	tokenPercentAssign TokenType = "%="
	tokenPowAssign     TokenType = "**="
	tokenShlAssign     TokenType = "<<="
	tokenShrAssign     TokenType = ">>="
	tokenUShrAssign    TokenType = ">>>="
	tokenBitAndAssign  TokenType = "&="
	tokenBitOrAssign   TokenType = "|="
	tokenBitXorAssign  TokenType = "^="
	tokenAndAssign     TokenType = "&&="
	tokenOrAssign      TokenType = "||="
	tokenNullishAssign TokenType = "??="
	tokenPlus          TokenType = "+"
	tokenMinus         TokenType = "-"
	tokenAsterisk      TokenType = "*"
	tokenPow           TokenType = "**"
	tokenSlash         TokenType = "/"
	tokenPercent       TokenType = "%"
	tokenIncrement     TokenType = "++"
	tokenDecrement     TokenType = "--"
	tokenBang          TokenType = "!"
	tokenTilde         TokenType = "~"
	tokenLT            TokenType = "<"
	tokenGT            TokenType = ">"
	tokenLTE           TokenType = "<="
	tokenGTE           TokenType = ">="
	tokenEQ            TokenType = "=="
	tokenNotEQ         TokenType = "!="
	tokenStrictEQ      TokenType = "==="
	tokenStrictNotEQ   TokenType = "!=="
	tokenShl           TokenType = "<<"
	tokenShr           TokenType = ">>"
	tokenUShr          TokenType = ">>>"
	tokenBitAnd        TokenType = "&"
	tokenBitOr         TokenType = "|"
	tokenBitXor        TokenType = "^"
	tokenAnd           TokenType = "&&"
	tokenOr            TokenType = "||"
	tokenNullish       TokenType = "??"
	tokenQuestion      TokenType = "?"
	tokenOptionalChain TokenType = "?."
	tokenArrow         TokenType = "=>"
	tokenEllipsis      TokenType = "..."
	tokenComma         TokenType = ","
	tokenColon         TokenType = ":"
	tokenSemicolon     TokenType = ";"
	tokenDot           TokenType = "."
	tokenLParen        TokenType = "("
	tokenRParen        TokenType = ")"
	tokenLBrace        TokenType = "{"
	tokenRBrace        TokenType = "}"
	tokenLBracket      TokenType = "["
	tokenRBracket      TokenType = "]"

	tokenVar        TokenType = "VAR"
	tokenLet        TokenType = "LET"
	tokenConst      TokenType = "CONST"
	tokenFunction   TokenType = "FUNCTION"
	tokenReturn     TokenType = "RETURN"
	tokenIf         TokenType = "IF"
	tokenElse       TokenType = "ELSE"
	tokenWhile      TokenType = "WHILE"
	tokenDo         TokenType = "DO"
	tokenFor        TokenType = "FOR"
	tokenIn         TokenType = "IN"
	tokenBreak      TokenType = "BREAK"
	tokenContinue   TokenType = "CONTINUE"
	tokenSwitch     TokenType = "SWITCH"
	tokenCase       TokenType = "CASE"
	tokenDefault    TokenType = "DEFAULT"
	tokenTry        TokenType = "TRY"
	tokenCatch      TokenType = "CATCH"
	tokenFinally    TokenType = "FINALLY"
	tokenThrow      TokenType = "THROW"
	tokenNew        TokenType = "NEW"
	tokenThis       TokenType = "THIS"
	tokenTypeof     TokenType = "TYPEOF"
	tokenInstanceof TokenType = "INSTANCEOF"
	tokenVoid       TokenType = "VOID"
	tokenDelete     TokenType = "DELETE"
	tokenTrue       TokenType = "TRUE"
	tokenFalse      TokenType = "FALSE"
	tokenNull       TokenType = "NULL"
)

var keywords = map[string]TokenType{
	"var":        tokenVar,
	"let":        tokenLet,
	"const":      tokenConst,
	"function":   tokenFunction,
	"return":     tokenReturn,
	"if":         tokenIf,
	"else":       tokenElse,
	"while":      tokenWhile,
	"do":         tokenDo,
	"for":        tokenFor,
	"in":         tokenIn,
	"break":      tokenBreak,
	"continue":   tokenContinue,
	"switch":     tokenSwitch,
	"case":       tokenCase,
	"default":    tokenDefault,
	"try":        tokenTry,
	"catch":      tokenCatch,
	"finally":    tokenFinally,
	"throw":      tokenThrow,
	"new":        tokenNew,
	"this":       tokenThis,
	"typeof":     tokenTypeof,
	"instanceof": tokenInstanceof,
	"void":       tokenVoid,
	"delete":     tokenDelete,
	"true":       tokenTrue,
	"false":      tokenFalse,
	"null":       tokenNull,
}

var punctuatorNames = map[TokenType]string{
	tokenAssign:        "ASSIGN",
	tokenPlusAssign:    "PLUS_ASSIGN",
	tokenMinusAssign:   "MINUS_ASSIGN",
	tokenStarAssign:    "STAR_ASSIGN",
	tokenSlashAssign:   "SLASH_ASSIGN",
	tokenPercentAssign: "PERCENT_ASSIGN",
	tokenPowAssign:     "POW_ASSIGN",
	tokenShlAssign:     "SHL_ASSIGN",
	tokenShrAssign:     "SHR_ASSIGN",
	tokenUShrAssign:    "USHR_ASSIGN",
	tokenBitAndAssign:  "BITAND_ASSIGN",
	tokenBitOrAssign:   "BITOR_ASSIGN",
	tokenBitXorAssign:  "BITXOR_ASSIGN",
	tokenAndAssign:     "AND_ASSIGN",
	tokenOrAssign:      "OR_ASSIGN",
	tokenNullishAssign: "NULLISH_ASSIGN",
	tokenPlus:          "PLUS",
	tokenMinus:         "MINUS",
	tokenAsterisk:      "STAR",
	tokenPow:           "POW",
	tokenSlash:         "SLASH",
	tokenPercent:       "PERCENT",
	tokenIncrement:     "INC",
	tokenDecrement:     "DEC",
	tokenBang:          "BANG",
	tokenTilde:         "TILDE",
	tokenLT:            "LT",
	tokenGT:            "GT",
	tokenLTE:           "LTE",
	tokenGTE:           "GTE",
	tokenEQ:            "EQ",
	tokenNotEQ:         "NOT_EQ",
	tokenStrictEQ:      "STRICT_EQ",
	tokenStrictNotEQ:   "STRICT_NOT_EQ",
	tokenShl:           "SHL",
	tokenShr:           "SHR",
	tokenUShr:          "USHR",
	tokenBitAnd:        "BITAND",
	tokenBitOr:         "BITOR",
	tokenBitXor:        "BITXOR",
	tokenAnd:           "AND",
	tokenOr:            "OR",
	tokenNullish:       "NULLISH",
	tokenQuestion:      "QUESTION",
	tokenOptionalChain: "OPTIONAL_CHAIN",
	tokenArrow:         "ARROW",
	tokenEllipsis:      "ELLIPSIS",
	tokenComma:         "COMMA",
	tokenColon:         "COLON",
	tokenSemicolon:     "SEMICOLON",
	tokenDot:           "DOT",
	tokenLParen:        "LPAREN",
	tokenRParen:        "RPAREN",
	tokenLBrace:        "LBRACE",
	tokenRBrace:        "RBRACE",
	tokenLBracket:      "LBRACKET",
	tokenRBracket:      "RBRACKET",
}

// Name is the upper-case kind used in token dumps. Punctuators, whose
// TokenType is their lexeme, get a descriptive name such as SLASH.
func (t TokenType) Name() string {
	if name, ok := punctuatorNames[t]; ok {
		return name
	}
	return string(t)
}

// Keywords lists the reserved words in sorted order.
func Keywords() []string {
	return slices.Sorted(maps.Keys(keywords))
}

// Token captures lexical information for the parser.
type Token struct {
	Type    TokenType
	Literal string
	Pos     Position

	// Value holds the decoded form of string literals; Literal keeps the
	// source text including quotes.
	Value string

	newlineBefore bool
}

// Position identifies a 1-based line and column in the source text.
type Position struct {
	Line   int
	Column int
}

// identifierName reports whether tok can serve as a property name after a dot
// or as an object literal key. Reserved words qualify there.
func identifierName(tok Token) bool {
	if tok.Type == tokenIdent {
		return true
	}
	_, ok := keywords[tok.Literal]
	return ok
}
