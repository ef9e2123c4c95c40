package lexer

import "testing"

func tokenize(t *testing.T, src string) []Token {
	t.Helper()
	l := New(src)
	var toks []Token
	for {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("unexpected lex error: %v", err)
		}
		toks = append(toks, tok)
		if tok.Type == EOF {
			break
		}
	}
	return toks
}

func TestStringEscapes(t *testing.T) {
	cases := []struct {
		src  string
		want string
	}{
		{`"\\"`, "\\"},
		{`"\x1B"`, "\x1B"},
		{`"\132"`, "Z"},
		{`"\n\t"`, "\n\t"},
		{`"\""`, "\""},
	}
	for _, c := range cases {
		toks := tokenize(t, c.src)
		if len(toks) < 1 || toks[0].Type != STRING {
			t.Fatalf("src %q: expected STRING token, got %+v", c.src, toks)
		}
		if toks[0].Literal != c.want {
			t.Errorf("src %q: got %q, want %q", c.src, toks[0].Literal, c.want)
		}
	}
}

func TestLoneHexEscapeYieldsLiteralX(t *testing.T) {
	toks := tokenize(t, `"\x"`)
	if toks[0].Literal != "x" {
		t.Errorf("got %q, want %q", toks[0].Literal, "x")
	}
}

func TestUnterminatedStringIsLexerError(t *testing.T) {
	l := New(`BEGIN { printf "unfinished`)
	var lastErr error
	for {
		tok, err := l.NextToken()
		if err != nil {
			lastErr = err
			break
		}
		if tok.Type == EOF {
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected LexerError for unterminated string")
	}
	if _, ok := lastErr.(*LexerError); !ok {
		t.Errorf("expected *LexerError, got %T", lastErr)
	}
}

func TestUnterminatedStringByNewline(t *testing.T) {
	l := New("BEGIN { printf \"x\n\"}")
	var lastErr error
	for {
		tok, err := l.NextToken()
		if err != nil {
			lastErr = err
			break
		}
		if tok.Type == EOF {
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected LexerError for newline-terminated string")
	}
}

func TestTruncatedOctalEscapeAtEOF(t *testing.T) {
	// "foo\0 with no closing quote before EOF behaves as an unterminated string.
	l := New(`"foo\0`)
	var lastErr error
	for {
		_, err := l.NextToken()
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected LexerError")
	}
}

func TestTruncatedHexEscapeAtEOF(t *testing.T) {
	l := New(`"foo\xF`)
	var lastErr error
	for {
		_, err := l.NextToken()
		if err != nil {
			lastErr = err
			break
		}
	}
	if lastErr == nil {
		t.Fatal("expected LexerError")
	}
}

func TestRegexVsDivisionDisambiguation(t *testing.T) {
	// After '=', '/' starts a regex.
	toks := tokenize(t, `x = /foo/`)
	foundERE := false
	for _, tok := range toks {
		if tok.Type == ERE && tok.Literal == "foo" {
			foundERE = true
		}
	}
	if !foundERE {
		t.Errorf("expected ERE token after '=', got %+v", toks)
	}

	// After an identifier, '/' is division.
	toks = tokenize(t, `x / y`)
	for _, tok := range toks {
		if tok.Type == ERE {
			t.Errorf("expected division, got regex token in %+v", toks)
		}
	}
}

func TestNumericLiterals(t *testing.T) {
	toks := tokenize(t, `42 3.14 1e10 .5`)
	want := []string{"42", "3.14", "1e10", ".5"}
	var got []string
	for _, tok := range toks {
		if tok.Type == NUMBER {
			got = append(got, tok.Literal)
		}
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestKeywordsAndBuiltins(t *testing.T) {
	toks := tokenize(t, `BEGIN { print length($0) }`)
	types := []TokenType{BEGIN, LBRACE, PRINT, BUILTIN_FUNC_NAME, LPAREN, DOLLAR, NUMBER, RPAREN, RBRACE, EOF}
	if len(toks) != len(types) {
		t.Fatalf("got %d tokens, want %d: %+v", len(toks), len(types), toks)
	}
	for i, want := range types {
		if toks[i].Type != want {
			t.Errorf("token %d: got %v, want %v", i, toks[i].Type, want)
		}
	}
}
