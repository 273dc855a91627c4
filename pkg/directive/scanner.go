package directive

import "unicode"

// scanner is a pull-based cursor over a directive string. It tracks open and
// close parenthesis counts so callers can classify characters by nesting
// depth. A scanner is single-use; Normalize creates one per invocation and
// holds no state between calls.
type scanner struct {
	input  []rune
	pos    int
	opens  int
	closes int
	last   rune // most recently consumed non-space rune, 0 before any
}

func newScanner(input string) *scanner {
	return &scanner{input: []rune(input)}
}

func (s *scanner) eof() bool {
	return s.pos >= len(s.input)
}

// peek returns the rune at the cursor without consuming it.
func (s *scanner) peek() rune {
	if s.eof() {
		return 0
	}
	return s.input[s.pos]
}

// advance consumes and returns the rune at the cursor, updating the
// parenthesis counters and the lookback rune.
func (s *scanner) advance() rune {
	r := s.input[s.pos]
	s.pos++

	switch r {
	case '(':
		s.opens++
	case ')':
		s.closes++
	}

	if !unicode.IsSpace(r) {
		s.last = r
	}

	return r
}

// depth is the current parenthesis nesting level.
func (s *scanner) depth() int {
	return s.opens - s.closes
}

// prev is the last non-space rune consumed, or 0 at the start of input.
func (s *scanner) prev() rune {
	return s.last
}

// isIdentRune reports whether r can appear in a table name or option value.
// Dots are included so namespace-qualified names scan as a single token.
func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
