package directive

import "strings"

// FillDefault rewrites every table directive in the list to carry an
// explicit key=value setting. Tables with no options clause get one
// synthesized; tables whose clause lacks the key get it appended before the
// closing parenthesis; tables that already specify the key are left
// untouched. The operation is pure and idempotent, so downstream logic never
// needs to special-case "unspecified".
func FillDefault(list List, key, value string) (List, error) {
	out := make([]string, 0, len(list.tables))
	for _, tbl := range list.tables {
		filled, err := fillOne(tbl, key, value)
		if err != nil {
			return List{}, err
		}
		out = append(out, filled)
	}
	return List{tables: out}, nil
}

func fillOne(table, key, value string) (string, error) {
	open := strings.IndexByte(table, '(')
	if open < 0 {
		return table + "(" + key + "=" + value + ")", nil
	}

	existing, err := extractOne(table, key)
	if err != nil {
		return "", err
	}
	if existing.Present() {
		return table, nil
	}

	body := table[:len(table)-1]
	if strings.HasSuffix(body, "(") {
		return body + key + "=" + value + ")", nil
	}
	return body + " " + key + "=" + value + ")", nil
}
