package quill

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// punctuators lists every operator the lexer recognises, grouped by length so
// scanning can try the longest candidate first.
var punctuators = [...]map[string]TokenType{
	1: {
		"=": tokenAssign, "+": tokenPlus, "-": tokenMinus, "*": tokenAsterisk,
		"/": tokenSlash, "%": tokenPercent, "!": tokenBang, "~": tokenTilde,
		"<": tokenLT, ">": tokenGT, "&": tokenBitAnd, "|": tokenBitOr,
		"^": tokenBitXor, "?": tokenQuestion, ",": tokenComma, ":": tokenColon,
		";": tokenSemicolon, ".": tokenDot, "(": tokenLParen, ")": tokenRParen,
		"{": tokenLBrace, "}": tokenRBrace, "[": tokenLBracket, "]": tokenRBracket,
	},
	2: {
		"+=": tokenPlusAssign, "-=": tokenMinusAssign, "*=": tokenStarAssign,
		"/=": tokenSlashAssign, "%=": tokenPercentAssign, "&=": tokenBitAndAssign,
		"|=": tokenBitOrAssign, "^=": tokenBitXorAssign, "**": tokenPow,
		"++": tokenIncrement, "--": tokenDecrement, "<=": tokenLTE, ">=": tokenGTE,
		"==": tokenEQ, "!=": tokenNotEQ, "<<": tokenShl, ">>": tokenShr,
		"&&": tokenAnd, "||": tokenOr, "??": tokenNullish, "?.": tokenOptionalChain,
		"=>": tokenArrow,
	},
	3: {
		"===": tokenStrictEQ, "!==": tokenStrictNotEQ, "**=": tokenPowAssign,
		"<<=": tokenShlAssign, ">>=": tokenShrAssign, ">>>": tokenUShr,
		"&&=": tokenAndAssign, "||=": tokenOrAssign, "??=": tokenNullishAssign,
		"...": tokenEllipsis,
	},
	4: {
		">>>=": tokenUShrAssign,
	},
}

type lexer struct {
	input string

	offset int
	width  int

	line   int
	column int

	ch rune

	// last is the previous significant token; it decides whether a slash
	// opens a regular expression or divides.
	last    TokenType
	hasLast bool

	newline bool
}

func newLexer(input string) *lexer {
	l := &lexer{input: input, line: 1, column: 0}
	l.readRune()
	return l
}

// Tokenize splits source into tokens, ending with an EOF token. Unknown
// characters become UNKNOWN tokens so the parser can report them in context;
// unterminated strings, comments and regular expressions and malformed numbers
// fail with a *LexError.
func Tokenize(source string) ([]Token, error) {
	l := newLexer(source)
	tokens := make([]Token, 0, len(source)/4+1)
	for {
		tok, err := l.NextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == tokenEOF {
			return tokens, nil
		}
	}
}

func (l *lexer) readRune() {
	if l.offset >= len(l.input) {
		l.width = 0
		l.ch = 0
		l.column++
		return
	}

	r, w := utf8.DecodeRuneInString(l.input[l.offset:])
	l.width = w
	l.offset += w

	if r == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}

	l.ch = r
}

func (l *lexer) peekRune() rune {
	if l.offset >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.offset:])
	return r
}

func (l *lexer) atEOF() bool {
	return l.ch == 0 && l.width == 0
}

func (l *lexer) currentOffset() int {
	return l.offset - l.width
}

func (l *lexer) errorAt(pos Position, msg string) *LexError {
	return &LexError{Pos: pos, Message: msg, source: l.input}
}

// NextToken scans the next token.
func (l *lexer) NextToken() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	pos := Position{Line: l.line, Column: l.column}
	tok, err := l.scan(pos)
	if err != nil {
		return Token{}, err
	}
	tok.Pos = pos
	tok.newlineBefore = l.newline
	l.newline = false
	l.last = tok.Type
	l.hasLast = true
	return tok, nil
}

func (l *lexer) scan(pos Position) (Token, error) {
	switch {
	case l.atEOF():
		return Token{Type: tokenEOF}, nil
	case l.ch == '"' || l.ch == '\'':
		return l.readString(pos)
	case isIdentifierStart(l.ch):
		literal := l.readIdentifier()
		if tt, ok := keywords[literal]; ok {
			return Token{Type: tt, Literal: literal}, nil
		}
		return Token{Type: tokenIdent, Literal: literal}, nil
	case isDigit(l.ch), l.ch == '.' && isDigit(l.peekRune()):
		return l.readNumber(pos)
	case l.ch == '/' && l.regexAllowed():
		return l.readRegex(pos)
	}

	start := l.currentOffset()
	for size := 4; size >= 1; size-- {
		end := start + size
		if end > len(l.input) {
			continue
		}
		candidate := l.input[start:end]
		tt, ok := punctuators[size][candidate]
		if !ok {
			continue
		}
		// `a?.5:b` is a conditional, not an optional chain.
		if tt == tokenOptionalChain && end < len(l.input) && isDigit(rune(l.input[end])) {
			continue
		}
		for range size {
			l.readRune()
		}
		return Token{Type: tt, Literal: candidate}, nil
	}

	literal := string(l.ch)
	l.readRune()
	return Token{Type: tokenIllegal, Literal: literal}, nil
}

// regexAllowed applies the slash disambiguation rule: a regular expression may
// start only where an expression may start.
func (l *lexer) regexAllowed() bool {
	if !l.hasLast {
		return true
	}
	switch l.last {
	case tokenIdent, tokenNumber, tokenString, tokenRegex,
		tokenRParen, tokenRBracket,
		tokenThis, tokenTrue, tokenFalse, tokenNull:
		return false
	}
	return true
}

func (l *lexer) skipWhitespaceAndComments() error {
	for {
		switch {
		case l.ch == '\n' || l.ch == '\u2028' || l.ch == '\u2029':
			l.newline = true
			l.readRune()
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\v' || l.ch == '\f' || l.ch == '\u00a0' || l.ch == '\ufeff':
			l.readRune()
		case l.ch == '/' && l.peekRune() == '/':
			for !l.atEOF() && l.ch != '\n' {
				l.readRune()
			}
		case l.ch == '/' && l.peekRune() == '*':
			pos := Position{Line: l.line, Column: l.column}
			l.readRune()
			l.readRune()
			closed := false
			for !l.atEOF() {
				if l.ch == '*' && l.peekRune() == '/' {
					l.readRune()
					l.readRune()
					closed = true
					break
				}
				if l.ch == '\n' {
					l.newline = true
				}
				l.readRune()
			}
			if !closed {
				return l.errorAt(pos, "unterminated block comment")
			}
		default:
			return nil
		}
	}
}

func (l *lexer) readIdentifier() string {
	start := l.currentOffset()
	for isIdentifierRune(l.peekRune()) {
		l.readRune()
	}
	literal := l.input[start:l.offset]
	l.readRune()
	return literal
}

func (l *lexer) readNumber(pos Position) (Token, error) {
	start := l.currentOffset()

	if l.ch == '0' && strings.ContainsRune("xXoObB", l.peekRune()) {
		base := unicode.ToLower(l.peekRune())
		l.readRune()
		l.readRune()
		digits := 0
		for isRadixDigit(l.ch, base) {
			digits++
			l.readRune()
		}
		if digits == 0 {
			return Token{}, l.errorAt(pos, "malformed numeric literal")
		}
		if isIdentifierStart(l.ch) || isDigit(l.ch) {
			return Token{}, l.errorAt(pos, "malformed numeric literal")
		}
		return Token{Type: tokenNumber, Literal: l.input[start:l.currentOffset()]}, nil
	}

	for isDigit(l.ch) {
		l.readRune()
	}
	if l.ch == '.' {
		l.readRune()
		for isDigit(l.ch) {
			l.readRune()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		l.readRune()
		if l.ch == '+' || l.ch == '-' {
			l.readRune()
		}
		if !isDigit(l.ch) {
			return Token{}, l.errorAt(pos, "malformed numeric literal: missing exponent digits")
		}
		for isDigit(l.ch) {
			l.readRune()
		}
	}
	if isIdentifierStart(l.ch) {
		return Token{}, l.errorAt(pos, "malformed numeric literal: identifier starts immediately after number")
	}
	return Token{Type: tokenNumber, Literal: l.input[start:l.currentOffset()]}, nil
}

func (l *lexer) readString(pos Position) (Token, error) {
	quote := l.ch
	start := l.currentOffset()
	var sb strings.Builder

	l.readRune()
	for {
		switch {
		case l.atEOF(), l.ch == '\n':
			return Token{}, l.errorAt(pos, "unterminated string literal")
		case l.ch == quote:
			l.readRune()
			return Token{Type: tokenString, Literal: l.input[start:l.currentOffset()], Value: sb.String()}, nil
		case l.ch == '\\':
			l.readRune()
			if err := l.readEscape(&sb, pos); err != nil {
				return Token{}, err
			}
		default:
			sb.WriteRune(l.ch)
			l.readRune()
		}
	}
}

// readEscape decodes the escape sequence starting at the current rune (the
// character after the backslash) and leaves the lexer after it.
func (l *lexer) readEscape(sb *strings.Builder, pos Position) error {
	switch l.ch {
	case 0:
		if l.atEOF() {
			return l.errorAt(pos, "unterminated string literal")
		}
		sb.WriteRune(0)
	case 'n':
		sb.WriteByte('\n')
	case 't':
		sb.WriteByte('\t')
	case 'r':
		sb.WriteByte('\r')
	case 'b':
		sb.WriteByte('\b')
	case 'f':
		sb.WriteByte('\f')
	case 'v':
		sb.WriteByte('\v')
	case '0':
		if isDigit(l.peekRune()) {
			sb.WriteRune(l.ch)
		} else {
			sb.WriteByte(0)
		}
	case '\r':
		if l.peekRune() == '\n' {
			l.readRune()
		}
	case '\n', '\u2028', '\u2029':
		// line continuation
	case 'x':
		code, ok := l.readHex(2)
		if !ok {
			return l.errorAt(pos, "malformed \\x escape in string literal")
		}
		sb.WriteRune(rune(code))
		return nil
	case 'u':
		code, ok := l.readUnicodeEscape()
		if !ok {
			return l.errorAt(pos, "malformed \\u escape in string literal")
		}
		sb.WriteRune(code)
		return nil
	default:
		sb.WriteRune(l.ch)
	}
	l.readRune()
	return nil
}

func (l *lexer) readHex(n int) (int64, bool) {
	start := l.offset
	end := start + n
	if end > len(l.input) {
		return 0, false
	}
	digits := l.input[start:end]
	for _, r := range digits {
		if !isRadixDigit(r, 'x') {
			return 0, false
		}
	}
	code, err := strconv.ParseInt(digits, 16, 32)
	if err != nil {
		return 0, false
	}
	for i := 0; i <= n; i++ {
		l.readRune()
	}
	return code, true
}

func (l *lexer) readUnicodeEscape() (rune, bool) {
	if l.peekRune() == '{' {
		l.readRune()
		start := l.offset
		end := strings.IndexByte(l.input[start:], '}')
		if end <= 0 {
			return 0, false
		}
		code, err := strconv.ParseInt(l.input[start:start+end], 16, 32)
		if err != nil || code > unicode.MaxRune {
			return 0, false
		}
		for i := 0; i <= end; i++ {
			l.readRune()
		}
		return rune(code), true
	}
	code, ok := l.readHex(4)
	if !ok {
		return 0, false
	}
	r := rune(code)
	// Combine surrogate pairs written as two escapes.
	if r >= 0xD800 && r <= 0xDBFF && l.ch == '\\' && l.peekRune() == 'u' {
		save := *l
		l.readRune()
		low, ok := l.readHex(4)
		if ok && low >= 0xDC00 && low <= 0xDFFF {
			return (r-0xD800)<<10 + (rune(low) - 0xDC00) + 0x10000, true
		}
		*l = save
	}
	return r, true
}

func (l *lexer) readRegex(pos Position) (Token, error) {
	start := l.currentOffset()
	inClass := false
	l.readRune()
	for {
		switch {
		case l.atEOF(), l.ch == '\n':
			return Token{}, l.errorAt(pos, "unterminated regular expression literal")
		case l.ch == '\\':
			l.readRune()
			if l.atEOF() || l.ch == '\n' {
				return Token{}, l.errorAt(pos, "unterminated regular expression literal")
			}
		case l.ch == '[':
			inClass = true
		case l.ch == ']':
			inClass = false
		case l.ch == '/' && !inClass:
			l.readRune()
			for isIdentifierRune(l.ch) && !l.atEOF() {
				l.readRune()
			}
			return Token{Type: tokenRegex, Literal: l.input[start:l.currentOffset()]}, nil
		}
		l.readRune()
	}
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isRadixDigit(r rune, base rune) bool {
	switch base {
	case 'x':
		return isDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
	case 'o':
		return r >= '0' && r <= '7'
	case 'b':
		return r == '0' || r == '1'
	}
	return false
}

func isIdentifierStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '$'
}

func isIdentifierRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '$'
}
