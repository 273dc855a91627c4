package directive

import (
	"strings"

	"github.com/pkg/errors"
)

type valueKind int

const (
	valueAbsent valueKind = iota
	valueScalar
	valueList
)

// OptionValue is the value of one option for one table directive: a scalar,
// an order-preserving list of scalars, or absent when the table's clause
// does not mention the option at all. Absence is a distinct state rather
// than an empty string, so it can never collide with user-supplied values.
type OptionValue struct {
	kind   valueKind
	scalar string
	items  []string
}

// Absent returns the value for an option a table did not specify.
func Absent() OptionValue {
	return OptionValue{kind: valueAbsent}
}

// ScalarValue wraps a single scalar option value.
func ScalarValue(s string) OptionValue {
	return OptionValue{kind: valueScalar, scalar: s}
}

// ListValue wraps a parenthesized list option value.
func ListValue(items []string) OptionValue {
	return OptionValue{kind: valueList, items: items}
}

// Present reports whether the option was specified at all.
func (v OptionValue) Present() bool {
	return v.kind != valueAbsent
}

// IsList reports whether the value is a parenthesized list.
func (v OptionValue) IsList() bool {
	return v.kind == valueList
}

// Scalar returns the scalar value, or "" when the value is absent or a list.
func (v OptionValue) Scalar() string {
	return v.scalar
}

// Items returns the list items in order. A scalar value is returned as a
// single-item list; an absent value returns nil.
func (v OptionValue) Items() []string {
	switch v.kind {
	case valueList:
		out := make([]string, len(v.items))
		copy(out, v.items)
		return out
	case valueScalar:
		return []string{v.scalar}
	default:
		return nil
	}
}

func (v OptionValue) String() string {
	switch v.kind {
	case valueScalar:
		return v.scalar
	case valueList:
		return "(" + strings.Join(v.items, " ") + ")"
	default:
		return "<absent>"
	}
}

// ExtractOption returns the value of key for each table directive in the
// list, in order. Key matching is case-insensitive and token-bounded: a key
// that is a substring of another key never matches. Scalar values run to the
// next option separator; values opening with '(' capture the full balanced
// sub-list.
func ExtractOption(list List, key string) ([]OptionValue, error) {
	values := make([]OptionValue, 0, list.Len())
	for _, tbl := range list.tables {
		v, err := extractOne(tbl, key)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// extractOne walks a single normalized directive's options clause option by
// option. The walk is capped at one step per clause byte; exceeding the cap
// means the input was not produced by Normalize and is reported as an
// internal error rather than looping forever.
func extractOne(table, key string) (OptionValue, error) {
	open := strings.IndexByte(table, '(')
	if open < 0 {
		return Absent(), nil
	}
	if !strings.HasSuffix(table, ")") {
		return OptionValue{}, errors.Errorf("directive %q: options clause is not terminated", table)
	}

	clause := table[open+1 : len(table)-1]

	var (
		i     int
		steps int
		limit = len(clause) + 1
	)

	for i < len(clause) {
		steps++
		if steps > limit {
			return OptionValue{}, errors.Errorf("directive %q: option scan did not terminate", table)
		}

		if clause[i] == ' ' || clause[i] == ',' {
			i++
			continue
		}

		// Read the option name up to '=' or the next separator.
		j := i
		for j < len(clause) && clause[j] != ' ' && clause[j] != '=' {
			j++
		}
		if j >= len(clause) || clause[j] == ' ' {
			// Bare token with no value; skip it.
			i = j
			continue
		}

		name := clause[i:j]
		j++ // consume '='

		var (
			scalar string
			items  []string
			isList bool
		)

		if j < len(clause) && clause[j] == '(' {
			end, err := matchParen(clause, j)
			if err != nil {
				return OptionValue{}, errors.Wrapf(err, "directive %q", table)
			}
			isList = true
			items = splitItems(clause[j+1 : end])
			j = end + 1
		} else {
			k := j
			for k < len(clause) && clause[k] != ' ' {
				k++
			}
			scalar = clause[j:k]
			j = k
		}

		if strings.EqualFold(name, key) {
			if isList {
				return ListValue(items), nil
			}
			return ScalarValue(scalar), nil
		}

		i = j
	}

	return Absent(), nil
}

// matchParen returns the index of the ')' balancing the '(' at start.
func matchParen(s string, start int) (int, error) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, errors.New("unbalanced list value")
}

// splitItems splits a list value body on spaces and commas, preserving order.
func splitItems(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ','
	})
}
