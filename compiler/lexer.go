package compiler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: filters a character stream down to commands
// ---------------------------------------------------------------------------

// Lexer reads UTF-8 text and yields the commands in it. Everything that is
// not one of the eight command characters is skipped, including invalid
// UTF-8.
type Lexer struct {
	r      io.RuneReader
	offset int // byte offset of the next rune
	line   int // current line (1-based)
	col    int // column of the next rune (1-based)
}

// NewLexer creates a lexer reading from r. r is buffered unless it already
// implements io.RuneReader.
func NewLexer(r io.Reader) *Lexer {
	rr, ok := r.(io.RuneReader)
	if !ok {
		rr = bufio.NewReader(r)
	}
	return &Lexer{r: rr, line: 1, col: 1}
}

// NextToken returns the next command. It returns io.EOF once the input is
// exhausted; any other error comes from the underlying reader.
func (l *Lexer) NextToken() (Token, error) {
	for {
		pos := Position{Offset: l.offset, Line: l.line, Column: l.col}

		ch, size, err := l.r.ReadRune()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Token{}, io.EOF
			}
			return Token{}, fmt.Errorf("compiler: reading source at %s: %w", pos, err)
		}

		l.offset += size
		if ch == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}

		if cmd, ok := Decode(ch); ok {
			return Token{Cmd: cmd, Pos: pos}, nil
		}
	}
}

// Parse reads all commands from r.
func Parse(r io.Reader) ([]Token, error) {
	l := NewLexer(r)
	var tokens []Token
	for {
		tok, err := l.NextToken()
		if err == io.EOF {
			return tokens, nil
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

// ParseString reads all commands from src.
func ParseString(src string) []Token {
	// A strings.Reader never fails.
	tokens, _ := Parse(strings.NewReader(src))
	return tokens
}
