package utils

import "strings"

// BacktickIdentifier adds backticks around an identifier, handling qualified
// names by backticking each dot-separated part.
//
// Examples:
//   - "table" -> "`table`"
//   - "database.table" -> "`database`.`table`"
//   - "`table`" -> "`table`" (already backticked, not double-backticked)
//   - "" -> ""
func BacktickIdentifier(name string) string {
	if name == "" {
		return ""
	}

	// A fully backticked string with no inner backticks is a single
	// identifier that may legitimately contain dots.
	if len(name) >= 2 && name[0] == '`' && name[len(name)-1] == '`' {
		inner := name[1 : len(name)-1]
		if !strings.Contains(inner, "`") {
			return name
		}
	}

	parts := strings.Split(name, ".")
	for i, part := range parts {
		if len(part) >= 2 && part[0] == '`' && part[len(part)-1] == '`' {
			continue
		}
		parts[i] = "`" + part + "`"
	}
	return strings.Join(parts, ".")
}

// BacktickQualifiedName formats a namespace-qualified name with backticks.
// An empty namespace backticks only the name.
//
// Examples:
//   - ("analytics", "events") -> "`analytics`.`events`"
//   - ("", "events") -> "`events`"
func BacktickQualifiedName(namespace, name string) string {
	if namespace != "" {
		return BacktickIdentifier(namespace) + "." + BacktickIdentifier(name)
	}
	return BacktickIdentifier(name)
}

// StripBackticks removes backticks from an identifier if present.
//
// Examples:
//   - "`table`" -> "table"
//   - "`db`.`table`" -> "db.table"
func StripBackticks(s string) string {
	return strings.ReplaceAll(s, "`", "")
}
