package quill

import (
	"errors"
	"strings"
	"testing"
)

func tokenTypes(t *testing.T, source string) []TokenType {
	t.Helper()
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("tokenize %q: %v", source, err)
	}
	types := make([]TokenType, 0, len(tokens))
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	return types
}

func sameTypes(a, b []TokenType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestTokenizeSlashDisambiguation(t *testing.T) {
	cases := []struct {
		source string
		want   []TokenType
	}{
		{"a / b", []TokenType{tokenIdent, tokenSlash, tokenIdent, tokenEOF}},
		{"a / b / c", []TokenType{tokenIdent, tokenSlash, tokenIdent, tokenSlash, tokenIdent, tokenEOF}},
		{"return /ab+c/gi", []TokenType{tokenReturn, tokenRegex, tokenEOF}},
		{"x = /a/", []TokenType{tokenIdent, tokenAssign, tokenRegex, tokenEOF}},
		{"(a) / 2", []TokenType{tokenLParen, tokenIdent, tokenRParen, tokenSlash, tokenNumber, tokenEOF}},
		{"f(/x/)", []TokenType{tokenIdent, tokenLParen, tokenRegex, tokenRParen, tokenEOF}},
		{"[/[/]/]", []TokenType{tokenLBracket, tokenRegex, tokenRBracket, tokenEOF}},
		{"a[0] /= 2", []TokenType{tokenIdent, tokenLBracket, tokenNumber, tokenRBracket, tokenSlashAssign, tokenNumber, tokenEOF}},
		{"{} /a/.test(s)", []TokenType{tokenLBrace, tokenRBrace, tokenRegex, tokenDot, tokenIdent, tokenLParen, tokenIdent, tokenRParen, tokenEOF}},
		{"typeof /a/", []TokenType{tokenTypeof, tokenRegex, tokenEOF}},
		{"this / 2", []TokenType{tokenThis, tokenSlash, tokenNumber, tokenEOF}},
	}
	for _, tc := range cases {
		if got := tokenTypes(t, tc.source); !sameTypes(got, tc.want) {
			t.Fatalf("%q: got %v want %v", tc.source, got, tc.want)
		}
	}
}

func TestTokenizeLexemesRejoinSource(t *testing.T) {
	source := `var total = items.reduce((a, b) => a + b.price * 1.5e2, 0) ?? -0x1F; if (/x[/]y/g.test(s)) { s += 'it\'s'; }`
	tokens, err := Tokenize(source)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	runes := []rune(source)
	var rebuilt strings.Builder
	for _, tok := range tokens {
		if tok.Type == tokenEOF {
			break
		}
		if tok.Pos.Line != 1 {
			t.Fatalf("unexpected line for %q: %d", tok.Literal, tok.Pos.Line)
		}
		at := string(runes[tok.Pos.Column-1:])
		if !strings.HasPrefix(at, tok.Literal) {
			t.Fatalf("token %q does not match source at column %d: %q", tok.Literal, tok.Pos.Column, at)
		}
		rebuilt.WriteString(tok.Literal)
	}
	if got, want := rebuilt.String(), strings.ReplaceAll(source, " ", ""); got != want {
		t.Fatalf("lexemes do not rejoin source:\n got %q\nwant %q", got, want)
	}
}

func TestTokenizePositionsAcrossLines(t *testing.T) {
	tokens, err := Tokenize("a\n  /* c\n */ b")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if tokens[1].Literal != "b" || tokens[1].Pos != (Position{Line: 3, Column: 5}) {
		t.Fatalf("unexpected token %+v", tokens[1])
	}
	if !tokens[1].newlineBefore {
		t.Fatalf("expected newline flag across block comment")
	}
}

func TestTokenizeStringEscapes(t *testing.T) {
	cases := map[string]string{
		`"a\nb"`:          "a\nb",
		`'A\x42'`:         "AB",
		`"\u{1F600}"`:     "\U0001F600",
		`"\uD83D\uDE00"`:  "\U0001F600",
		`'it\'s'`:         "it's",
		"\"a\\\nb\"":      "ab",
		`"\0"`:            "\x00",
		`"tab\there"`:     "tab\there",
		`"quote \" here"`: `quote " here`,
	}
	for source, want := range cases {
		tokens, err := Tokenize(source)
		if err != nil {
			t.Fatalf("tokenize %s: %v", source, err)
		}
		if tokens[0].Type != tokenString || tokens[0].Value != want {
			t.Fatalf("%s: got %q want %q", source, tokens[0].Value, want)
		}
	}
}

func TestTokenizeNumbers(t *testing.T) {
	for _, source := range []string{"0", "42", "3.25", ".5", "1e3", "2E-2", "0x1f", "0o17", "0b101"} {
		tokens, err := Tokenize(source)
		if err != nil {
			t.Fatalf("tokenize %s: %v", source, err)
		}
		if tokens[0].Type != tokenNumber || tokens[0].Literal != source {
			t.Fatalf("%s: unexpected token %+v", source, tokens[0])
		}
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		source string
		pos    Position
		msg    string
	}{
		{"x = 'open", Position{1, 5}, "unterminated string literal"},
		{"a\n/* never closed", Position{2, 1}, "unterminated block comment"},
		{"x = /abc", Position{1, 5}, "unterminated regular expression literal"},
		{"1e", Position{1, 1}, "missing exponent digits"},
		{"0x", Position{1, 1}, "malformed numeric literal"},
		{"3in", Position{1, 1}, "identifier starts immediately after number"},
		{`"\u12"`, Position{1, 1}, "malformed \\u escape"},
	}
	for _, tc := range cases {
		_, err := Tokenize(tc.source)
		var lexErr *LexError
		if !errors.As(err, &lexErr) {
			t.Fatalf("%q: expected LexError, got %v", tc.source, err)
		}
		if lexErr.Pos != tc.pos || !strings.Contains(lexErr.Message, tc.msg) {
			t.Fatalf("%q: unexpected error %+v", tc.source, lexErr)
		}
	}
}

func TestTokenizeUnknownCharacterIsDeferredToParser(t *testing.T) {
	tokens, err := Tokenize("a @ b")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	if tokens[1].Type != tokenIllegal || tokens[1].Literal != "@" {
		t.Fatalf("expected unknown token, got %+v", tokens[1])
	}
	_, err = Parse("a @ b")
	var parseErr *ParseError
	if !errors.As(err, &parseErr) || parseErr.Pos != (Position{1, 3}) {
		t.Fatalf("expected parse error at the unknown character, got %v", err)
	}
}

func TestTokenizeLongestPunctuatorMatch(t *testing.T) {
	want := []TokenType{tokenIdent, tokenUShrAssign, tokenIdent, tokenStrictNotEQ, tokenIdent, tokenNullishAssign, tokenIdent, tokenEOF}
	if got := tokenTypes(t, "a >>>= b !== c ??= d"); !sameTypes(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
	// `?.` followed by a digit is a conditional.
	want = []TokenType{tokenIdent, tokenQuestion, tokenNumber, tokenColon, tokenIdent, tokenEOF}
	if got := tokenTypes(t, "a?.5:b"); !sameTypes(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}

func FuzzTokenizeDoesNotPanic(f *testing.F) {
	f.Add("")
	f.Add("var a = /re/g.exec('x') / 2;")
	f.Add(`"\u{110000}"`)
	f.Add("/* open")
	f.Add("0x")
	f.Fuzz(func(t *testing.T, source string) {
		tokens, err := Tokenize(source)
		if err == nil && (len(tokens) == 0 || tokens[len(tokens)-1].Type != tokenEOF) {
			t.Fatalf("token stream must end with EOF")
		}
	})
}

func TestTokenNamesInDumps(t *testing.T) {
	tokens, err := Tokenize("a / b; return /abc/")
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	var names []string
	for _, tok := range tokens {
		names = append(names, tok.Type.Name())
	}
	if got := strings.Join(names, " "); !strings.HasPrefix(got, "IDENT SLASH IDENT SEMICOLON RETURN REGEX") {
		t.Fatalf("unexpected names %q", got)
	}

	punctuators := "= += -= *= %= **= <<= >>= >>>= &= |= ^= &&= ||= ??= + - * ** % ++ -- ! ~ < > <= >= == != === !== << >> >>> & | ^ && || ?? ? ?. => ... , : ; . ( ) { } [ ] x / y; x /= y"
	tokens, err = Tokenize(punctuators)
	if err != nil {
		t.Fatalf("tokenize: %v", err)
	}
	for _, tok := range tokens {
		for _, r := range tok.Type.Name() {
			if (r < 'A' || r > 'Z') && r != '_' {
				t.Fatalf("token %q has no descriptive name: %q", tok.Literal, tok.Type.Name())
			}
		}
	}
}
