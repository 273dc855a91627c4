package utils

import (
	"fmt"
	"strings"
)

// SQLBuilder provides a fluent interface for building the DDL and DML
// statements stevedore issues against ClickHouse. It handles identifier
// backticking, cluster injection, and conditional clause building.
//
// Example usage:
//
//	sql := NewSQLBuilder().
//		Create("TABLE").
//		QualifiedName("serving", "trips").
//		OnCluster("production").
//		Engine("Memory").
//		String()
//	// Output: CREATE TABLE `serving`.`trips` ON CLUSTER `production` ENGINE = Memory;
type SQLBuilder struct {
	parts []string
}

// NewSQLBuilder creates a new SQLBuilder instance.
func NewSQLBuilder() *SQLBuilder {
	return &SQLBuilder{
		parts: make([]string, 0, 10),
	}
}

// Create adds a CREATE clause with the specified object type.
func (b *SQLBuilder) Create(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "CREATE", objectType)
	return b
}

// Drop adds a DROP clause with the specified object type.
func (b *SQLBuilder) Drop(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "DROP", objectType)
	return b
}

// Rename adds a RENAME clause with the specified object type.
func (b *SQLBuilder) Rename(objectType string) *SQLBuilder {
	b.parts = append(b.parts, "RENAME", objectType)
	return b
}

// IfExists adds an IF EXISTS clause after DROP operations.
func (b *SQLBuilder) IfExists() *SQLBuilder {
	b.parts = append(b.parts, "IF", "EXISTS")
	return b
}

// IfNotExists adds an IF NOT EXISTS clause after CREATE operations.
func (b *SQLBuilder) IfNotExists() *SQLBuilder {
	b.parts = append(b.parts, "IF", "NOT", "EXISTS")
	return b
}

// Name adds a backticked object name.
func (b *SQLBuilder) Name(name string) *SQLBuilder {
	if name != "" {
		b.parts = append(b.parts, BacktickIdentifier(name))
	}
	return b
}

// QualifiedName adds a namespace-qualified, backticked name. An empty
// namespace adds only the name.
func (b *SQLBuilder) QualifiedName(namespace, name string) *SQLBuilder {
	if qualified := BacktickQualifiedName(namespace, name); qualified != "" {
		b.parts = append(b.parts, qualified)
	}
	return b
}

// QualifiedTo adds a TO clause with a qualified name for rename operations.
func (b *SQLBuilder) QualifiedTo(namespace, name string) *SQLBuilder {
	if qualified := BacktickQualifiedName(namespace, name); qualified != "" {
		b.parts = append(b.parts, "TO", qualified)
	}
	return b
}

// OnCluster adds an ON CLUSTER clause if cluster is not empty.
func (b *SQLBuilder) OnCluster(cluster string) *SQLBuilder {
	if cluster != "" {
		b.parts = append(b.parts, "ON", "CLUSTER", BacktickIdentifier(cluster))
	}
	return b
}

// Engine adds an ENGINE clause with the specified engine expression.
func (b *SQLBuilder) Engine(engine string) *SQLBuilder {
	if engine != "" {
		b.parts = append(b.parts, "ENGINE", "=", engine)
	}
	return b
}

// Columns adds a parenthesized column definition list.
func (b *SQLBuilder) Columns(defs []string) *SQLBuilder {
	if len(defs) > 0 {
		b.parts = append(b.parts, "("+strings.Join(defs, ", ")+")")
	}
	return b
}

// PartitionBy adds a PARTITION BY clause over the given columns.
func (b *SQLBuilder) PartitionBy(cols []string) *SQLBuilder {
	if len(cols) > 0 {
		b.parts = append(b.parts, "PARTITION", "BY", columnTuple(cols))
	}
	return b
}

// OrderBy adds an ORDER BY clause over the given columns. MergeTree tables
// require one, so an empty column list emits ORDER BY tuple().
func (b *SQLBuilder) OrderBy(cols []string) *SQLBuilder {
	if len(cols) == 0 {
		b.parts = append(b.parts, "ORDER", "BY", "tuple()")
		return b
	}
	b.parts = append(b.parts, "ORDER", "BY", columnTuple(cols))
	return b
}

// Comment adds a COMMENT clause; the text is quoted and SQL-escaped.
func (b *SQLBuilder) Comment(comment string) *SQLBuilder {
	if comment != "" {
		escaped := strings.ReplaceAll(comment, "'", "\\'")
		b.parts = append(b.parts, "COMMENT", fmt.Sprintf("'%s'", escaped))
	}
	return b
}

// Raw adds raw SQL text. Use sparingly for constructs that don't fit the
// fluent pattern.
func (b *SQLBuilder) Raw(sql string) *SQLBuilder {
	if sql != "" {
		b.parts = append(b.parts, sql)
	}
	return b
}

// String builds the final SQL statement with a trailing semicolon.
func (b *SQLBuilder) String() string {
	if len(b.parts) == 0 {
		return ""
	}
	return strings.Join(b.parts, " ") + ";"
}

// StringWithoutSemicolon builds the statement without a trailing semicolon,
// useful when composing parts of larger statements.
func (b *SQLBuilder) StringWithoutSemicolon() string {
	return strings.Join(b.parts, " ")
}

func columnTuple(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = BacktickIdentifier(c)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}
