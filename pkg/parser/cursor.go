package parser

import (
	"github.com/echopoint/wgtcc/pkg/lexer"
)

// TokenSource is the lexer interface the parser consumes.
type TokenSource interface {
	NextToken() lexer.Token
}

// cursor is a buffered token stream with one-token putback and bounded
// mark/release checkpoints. Tokens already read are kept so a release
// can rewind the stream to the marked position.
type cursor struct {
	src   TokenSource
	toks  []lexer.Token
	pos   int
	marks []int
}

func newCursor(src TokenSource) *cursor {
	return &cursor{src: src}
}

// next consumes and returns the next token. At end of input it keeps
// returning the EOF sentinel.
func (c *cursor) next() lexer.Token {
	if c.pos == len(c.toks) {
		if n := len(c.toks); n > 0 && c.toks[n-1].IsEOF() {
			return c.toks[n-1]
		}
		c.toks = append(c.toks, c.src.NextToken())
	}
	t := c.toks[c.pos]
	c.pos++
	return t
}

// peek returns the next token without consuming it.
func (c *cursor) peek() lexer.Token {
	t := c.next()
	c.putBack()
	return t
}

// putBack rewinds the stream by one token.
func (c *cursor) putBack() {
	if c.pos > 0 {
		c.pos--
	}
}

// test reports whether the next token has the given type.
func (c *cursor) test(t lexer.TokenType) bool {
	return c.peek().Type == t
}

// try consumes the next token if it has the given type.
func (c *cursor) try(t lexer.TokenType) bool {
	if c.test(t) {
		c.next()
		return true
	}
	return false
}

// mark pushes a checkpoint at the current position.
func (c *cursor) mark() {
	c.marks = append(c.marks, c.pos)
}

// release pops the innermost checkpoint and rewinds to it.
func (c *cursor) release() {
	n := len(c.marks)
	if n == 0 {
		return
	}
	c.pos = c.marks[n-1]
	c.marks = c.marks[:n-1]
}

// skipTo consumes tokens until one of the follow tags (or EOF) is next.
// The follow token itself is left in the stream.
func (c *cursor) skipTo(follow ...lexer.TokenType) {
	if len(follow) == 0 {
		return
	}
	for {
		t := c.peek()
		if t.IsEOF() {
			return
		}
		for _, f := range follow {
			if t.Type == f {
				return
			}
		}
		c.next()
	}
}
