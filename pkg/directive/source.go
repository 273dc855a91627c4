package directive

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

var (
	// sourceLexer tokenizes source table lists. Source tables carry no
	// options, so the lexer only needs identifiers and dots.
	sourceLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
		{Name: "Dot", Pattern: `\.`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	sourceParser = participle.MustBuild[SourceList](
		participle.Lexer(sourceLexer),
		participle.Elide("Whitespace"),
		participle.UseLookahead(2),
	)
)

type (
	// SourceList is a parsed list of source table names.
	SourceList struct {
		Tables []*QualifiedName `parser:"@@*"`
	}

	// QualifiedName is a table name with an optional namespace qualifier.
	QualifiedName struct {
		Namespace *string `parser:"( @Ident Dot )?"`
		Name      string  `parser:"@Ident"`
	}
)

// ParseSources parses a whitespace-separated list of source table names,
// each optionally qualified with a namespace (e.g. "raw.trips fares").
func ParseSources(input string) (*SourceList, error) {
	list, err := sourceParser.ParseString("", input)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse source table list")
	}
	return list, nil
}

func (q *QualifiedName) String() string {
	if q.Namespace != nil && *q.Namespace != "" {
		return *q.Namespace + "." + q.Name
	}
	return q.Name
}
