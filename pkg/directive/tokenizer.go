package directive

import (
	"fmt"
	"strings"
	"unicode"
)

// Delimiter is the display separator used when a List is rendered as a
// single string. It can never occur inside a table name or option value.
const Delimiter = "|"

type (
	// List is a normalized directive list: one balanced, self-contained
	// substring per table directive, in input order. The zero value is an
	// empty list.
	List struct {
		tables []string
	}

	// ParseError reports a malformed directive string. It is fatal for the
	// whole batch; no table is provisioned when parsing fails.
	ParseError struct {
		Input string
		Pos   int // rune offset into Input, -1 when not positional
		Msg   string
	}
)

func (e *ParseError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("invalid directive: %s", e.Msg)
	}
	return fmt.Sprintf("invalid directive at offset %d: %s", e.Pos, e.Msg)
}

// Normalize splits a raw directive string into per-table directive
// substrings. Whitespace is classified by its neighbors and the current
// parenthesis depth:
//
//   - adjacent to '=', '(' or before ')': dropped entirely
//   - inside a clause (depth >= 1): collapsed to a single space separating
//     sibling options
//   - at depth 0: a boundary between independent table directives
//
// Every returned substring has balanced parentheses. Unbalanced input fails
// with *ParseError and never returns a partial result.
func Normalize(input string) (List, error) {
	s := newScanner(input)

	var (
		tables []string
		cur    strings.Builder
	)

	flush := func() {
		if cur.Len() > 0 {
			tables = append(tables, cur.String())
			cur.Reset()
		}
	}

	for !s.eof() {
		if unicode.IsSpace(s.peek()) {
			prev := s.prev()
			for !s.eof() && unicode.IsSpace(s.peek()) {
				s.advance()
			}
			if s.eof() {
				break // trailing run collapses to nothing
			}

			next := s.peek()
			switch {
			case prev == 0:
				// leading run, nothing emitted yet
			case prev == '=' || next == '=' || prev == '(' || next == '(' || next == ')':
				// spacing around option punctuation carries no meaning
			case s.depth() >= 1:
				cur.WriteRune(' ')
			default:
				flush()
			}
			continue
		}

		r := s.peek()
		if r == ')' && s.depth() == 0 {
			return List{}, &ParseError{Input: input, Pos: s.pos, Msg: "unmatched closing parenthesis"}
		}

		// A clause close followed directly by an identifier starts the next
		// table even when no whitespace separates them.
		if s.prev() == ')' && s.depth() == 0 && isIdentRune(r) {
			flush()
		}

		cur.WriteRune(s.advance())
	}

	if s.depth() != 0 {
		return List{}, &ParseError{Input: input, Pos: len(s.input), Msg: "unmatched opening parenthesis"}
	}

	flush()
	return List{tables: tables}, nil
}

// Len is the number of table directives in the list.
func (l List) Len() int {
	return len(l.tables)
}

// Tables returns a copy of the per-table directive substrings.
func (l List) Tables() []string {
	out := make([]string, len(l.tables))
	copy(out, l.tables)
	return out
}

// Table returns the directive substring at index i.
func (l List) Table(i int) string {
	return l.tables[i]
}

// Names returns the bare table name of each directive, with any options
// clause stripped.
func (l List) Names() []string {
	out := make([]string, len(l.tables))
	for i, tbl := range l.tables {
		if open := strings.IndexByte(tbl, '('); open >= 0 {
			out[i] = tbl[:open]
		} else {
			out[i] = tbl
		}
	}
	return out
}

// Join renders the list as a single delimiter-joined string.
func (l List) Join(delim string) string {
	return strings.Join(l.tables, delim)
}

func (l List) String() string {
	return l.Join(Delimiter)
}
