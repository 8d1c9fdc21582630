package lexer

import "testing"

func TestNextToken(t *testing.T) {
	input := `int main() { return 42; }`

	tests := []struct {
		expectedType    TokenType
		expectedLiteral string
	}{
		{TokenInt_, "int"},
		{TokenIdent, "main"},
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenReturn, "return"},
		{TokenInt, "42"},
		{TokenSemicolon, ";"},
		{TokenRBrace, "}"},
		{TokenEOF, ""},
	}

	l := New(input)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, tt.expectedType, tok.Type)
		}

		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - literal wrong. expected=%q, got=%q",
				i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestOperators(t *testing.T) {
	input := `+ - * / % = == != < <= > >= && || ! & | ^ ~ << >> ? : ++ -- -> . ...`

	tests := []TokenType{
		TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent,
		TokenAssign, TokenEq, TokenNe, TokenLt, TokenLe, TokenGt, TokenGe,
		TokenAnd, TokenOr, TokenNot, TokenAmpersand, TokenPipe, TokenCaret,
		TokenTilde, TokenShl, TokenShr, TokenQuestion, TokenColon,
		TokenIncrement, TokenDecrement, TokenArrow, TokenDot, TokenEllipsis,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, expected, tok.Type)
		}
	}
}

func TestCompoundAssignOperators(t *testing.T) {
	input := `+= -= *= /= %= &= |= ^= <<= >>=`

	tests := []TokenType{
		TokenPlusAssign, TokenMinusAssign, TokenStarAssign, TokenSlashAssign,
		TokenPercentAssign, TokenAndAssign, TokenOrAssign, TokenXorAssign,
		TokenShlAssign, TokenShrAssign,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, expected, tok.Type)
		}
	}
}

func TestKeywords(t *testing.T) {
	input := `typedef struct union enum sizeof _Bool _Complex _Alignof _Alignas _Thread_local _Static_assert inline`

	tests := []TokenType{
		TokenTypedef, TokenStruct, TokenUnion, TokenEnum, TokenSizeof,
		TokenBool, TokenComplex, TokenAlignof, TokenAlignas, TokenThread,
		TokenStaticAssert, TokenInline,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, expected, tok.Type)
		}
	}
}

func TestNumbers(t *testing.T) {
	tests := []struct {
		input           string
		expectedType    TokenType
		expectedLiteral string
	}{
		{"42", TokenInt, "42"},
		{"0x2a", TokenInt, "0x2a"},
		{"0777", TokenInt, "0777"},
		{"42u", TokenInt, "42u"},
		{"42UL", TokenInt, "42UL"},
		{"3.14", TokenFloatLit, "3.14"},
		{".5", TokenFloatLit, ".5"},
		{"1e9", TokenFloatLit, "1e9"},
		{"1.5e-3", TokenFloatLit, "1.5e-3"},
		{"2.0f", TokenFloatLit, "2.0f"},
	}

	for _, tt := range tests {
		l := New(tt.input)
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Errorf("input %q - tokentype wrong. expected=%q, got=%q",
				tt.input, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Errorf("input %q - literal wrong. expected=%q, got=%q",
				tt.input, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestCharAndString(t *testing.T) {
	l := New(`'a' '\n' "hello"`)

	tok := l.NextToken()
	if tok.Type != TokenCharLit || tok.Literal != "a" {
		t.Fatalf("char literal: got %q %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != TokenCharLit || tok.Literal != `\n` {
		t.Fatalf("escaped char literal: got %q %q", tok.Type, tok.Literal)
	}
	tok = l.NextToken()
	if tok.Type != TokenString || tok.Literal != "hello" {
		t.Fatalf("string literal: got %q %q", tok.Type, tok.Literal)
	}
}

func TestComments(t *testing.T) {
	input := `int /* block
comment */ x; // line comment
int y;`

	tests := []TokenType{
		TokenInt_, TokenIdent, TokenSemicolon,
		TokenInt_, TokenIdent, TokenSemicolon,
		TokenEOF,
	}

	l := New(input)
	for i, expected := range tests {
		tok := l.NextToken()
		if tok.Type != expected {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q",
				i, expected, tok.Type)
		}
	}
}

func TestCoordinates(t *testing.T) {
	l := NewFile("test.c", "int\nx;")

	tok := l.NextToken()
	if tok.File != "test.c" || tok.Line != 1 {
		t.Fatalf("first token coordinate: got %s:%d", tok.File, tok.Line)
	}
	tok = l.NextToken()
	if tok.Line != 2 {
		t.Fatalf("second token line: expected 2, got %d", tok.Line)
	}
	if got := tok.Coord().String(); got != "test.c:2:1" {
		t.Fatalf("coordinate string: got %q", got)
	}
}

func TestEOFIdempotent(t *testing.T) {
	l := New("x")
	l.NextToken()
	for i := 0; i < 3; i++ {
		if tok := l.NextToken(); tok.Type != TokenEOF {
			t.Fatalf("expected EOF, got %q", tok.Type)
		}
	}
}
