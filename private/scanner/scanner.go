// Package scanner implements a simple lexical scanner
// for the SQL statements rendered by package sqlm.
package scanner

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"
)

// Token is a lexical token for SQL.
type Token int

// Tokens
const (
	ILLEGAL     Token = iota // unexpected character
	EOF                      // End of input
	WS                       // White space
	COMMENT                  // SQL comment
	IDENT                    // identifer, which may be quoted
	LITERAL                  // string or numeric literal
	OP                       // operator
	PLACEHOLDER              // placeholder: ?, $1 or @name
)

func (t Token) String() string {
	switch t {
	case ILLEGAL:
		return "ILLEGAL"
	case EOF:
		return "EOF"
	case WS:
		return "WS"
	case COMMENT:
		return "COMMENT"
	case IDENT:
		return "IDENT"
	case LITERAL:
		return "LITERAL"
	case OP:
		return "OP"
	case PLACEHOLDER:
		return "PLACEHOLDER"
	default:
		return fmt.Sprintf("Token-%d", t)
	}
}

const (
	eof                 = rune(0)
	multiCharOperators  = "%&*+-/:<=>^|!~#"
	singleCharOperators = "(),;."
)

// Scanner is a simple lexical scanner for SQL statements.
type Scanner struct {
	r     *bufio.Reader
	err   error
	token Token
	text  string
}

// New returns a new scanner that takes its input from r.
func New(r io.Reader) *Scanner {
	return &Scanner{
		r: bufio.NewReader(r),
	}
}

// Token returns the token from the last scan.
func (s *Scanner) Token() Token {
	return s.token
}

// Text returns the token's text from the last scan.
func (s *Scanner) Text() string {
	return s.text
}

// Err returns the first non-EOF error that was
// encountered by the Scanner.
func (s *Scanner) Err() error {
	return s.err
}

// Scan the next SQL token.
func (s *Scanner) Scan() bool {
	ch := s.read()
	switch {
	case ch == eof:
		return s.setToken(EOF, "")
	case isWhitespace(ch):
		return s.scanWhile(WS, ch, isWhitespace)
	case ch == '-' && s.peek() == '-':
		return s.scanComment(ch)
	case ch == '[':
		return s.scanDelimited(IDENT, '[', ']')
	case ch == '`' || ch == '"':
		return s.scanDelimited(IDENT, ch, ch)
	case ch == '\'':
		return s.scanDelimited(LITERAL, ch, ch)
	case isStartIdent(ch):
		return s.scanWhile(IDENT, ch, isIdent)
	case isDigit(ch), ch == '.' && isDigit(s.peek()):
		return s.scanNumber(ch)
	case ch == '$' || ch == '?':
		return s.scanPlaceholder(ch, isDigit)
	case ch == '@':
		if !isStartIdent(s.peek()) {
			return s.setToken(OP, "@")
		}
		return s.scanPlaceholder(ch, isIdent)
	case strings.ContainsRune(singleCharOperators, ch):
		return s.setToken(OP, runeToString(ch))
	case strings.ContainsRune(multiCharOperators, ch):
		return s.scanWhile(OP, ch, isOperator)
	}
	return s.setToken(ILLEGAL, runeToString(ch))
}

func (s *Scanner) setToken(tok Token, text string) bool {
	s.token = tok
	s.text = text
	if tok == ILLEGAL {
		s.err = fmt.Errorf("unrecognised input near %q", text)
		return false
	}
	return tok != EOF
}

// scanWhile scans a token that starts with first and continues
// while accept reports true.
func (s *Scanner) scanWhile(tok Token, first rune, accept func(rune) bool) bool {
	var buf bytes.Buffer
	buf.WriteRune(first)
	for ch := s.read(); ch != eof; ch = s.read() {
		if !accept(ch) {
			s.unread(ch)
			break
		}
		buf.WriteRune(ch)
	}
	return s.setToken(tok, buf.String())
}

// scanComment scans a comment up to and including the end of the line.
func (s *Scanner) scanComment(first rune) bool {
	var buf bytes.Buffer
	buf.WriteRune(first)
	for ch := s.read(); ch != eof; ch = s.read() {
		buf.WriteRune(ch)
		if ch == '\n' {
			break
		}
	}
	return s.setToken(COMMENT, buf.String())
}

// scanDelimited scans a quoted identifier or string literal. A doubled
// end character is an escape.
func (s *Scanner) scanDelimited(tok Token, startCh rune, endCh rune) bool {
	var buf bytes.Buffer
	buf.WriteRune(startCh)
	for {
		ch := s.read()
		if ch == eof {
			return s.setToken(ILLEGAL, buf.String())
		}
		buf.WriteRune(ch)
		if ch != endCh {
			continue
		}
		if s.peek() != endCh {
			return s.setToken(tok, buf.String())
		}
		buf.WriteRune(s.read())
	}
}

// scanNumber scans a numeric literal with at most one decimal point.
func (s *Scanner) scanNumber(first rune) bool {
	seenPeriod := first == '.'
	return s.scanWhile(LITERAL, first, func(ch rune) bool {
		if ch == '.' && !seenPeriod {
			seenPeriod = true
			return true
		}
		return isDigit(ch)
	})
}

// scanPlaceholder scans ?, ?1, $1 and @name placeholders. A '$'
// without a number is an operator.
func (s *Scanner) scanPlaceholder(first rune, accept func(rune) bool) bool {
	s.scanWhile(PLACEHOLDER, first, accept)
	if s.text == "$" {
		s.token = OP
	}
	return true
}

func (s *Scanner) peek() rune {
	ch := s.read()
	s.unread(ch)
	return ch
}

func (s *Scanner) read() rune {
	ch, _, err := s.r.ReadRune()
	if err != nil {
		if err != io.EOF {
			s.err = err
		}
		return eof
	}
	return ch
}

func (s *Scanner) unread(ch rune) {
	if ch != eof {
		if err := s.r.UnreadRune(); err != nil {
			s.err = err
		}
	}
}

func isWhitespace(ch rune) bool {
	return unicode.IsSpace(ch)
}

func isDigit(ch rune) bool {
	return unicode.IsDigit(ch)
}

func isStartIdent(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isOperator(ch rune) bool {
	return strings.ContainsRune(multiCharOperators, ch)
}

func isIdent(ch rune) bool {
	return isStartIdent(ch) || unicode.IsDigit(ch)
}

func runeToString(ch rune) string {
	return string(ch)
}
