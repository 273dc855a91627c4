// Package directive parses the free-form table directive lists that callers
// hand to stevedore.
//
// A directive list is a whitespace-separated sequence of table directives.
// Each directive is a (possibly namespace-qualified) table name with an
// optional parenthesized options clause, which may itself contain nested
// list values:
//
//	trips fares(partition=(region) orderby=(date) promote=yes)
//
// The grammar is context-sensitive: whitespace between two table names is a
// boundary, whitespace between sibling options inside a clause is a
// separator, and whitespace around option punctuation carries no meaning at
// all. Normalize resolves that ambiguity with a depth-tracking character
// scanner and produces a List of balanced, self-contained per-table
// substrings. ExtractOption and FillDefault then operate positionally on the
// normalized form, so downstream code never re-parses raw input.
//
// Source table lists carry no options and therefore have a regular grammar;
// they are parsed separately by ParseSources.
package directive
