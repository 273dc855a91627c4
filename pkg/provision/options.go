package provision

import (
	"fmt"
	"strings"

	"github.com/stevedore-sh/stevedore/pkg/consts"
)

// AppendMode controls how staged rows are moved into an existing
// destination table.
type AppendMode int

const (
	// AppendNone loads the destination directly; no append stage runs.
	AppendNone AppendMode = iota

	// AppendNormal appends staged rows and fails when the staged and
	// destination schemas are incompatible.
	AppendNormal

	// AppendForce appends staged rows, overriding compatibility checks.
	AppendForce
)

func (m AppendMode) String() string {
	switch m {
	case AppendNormal:
		return "normal"
	case AppendForce:
		return "force"
	default:
		return "none"
	}
}

// ParseAppendMode parses one of "none", "normal" or "force"
// (case-insensitive). An empty string means AppendNone.
func ParseAppendMode(s string) (AppendMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return AppendNone, nil
	case "normal":
		return AppendNormal, nil
	case "force":
		return AppendForce, nil
	default:
		return AppendNone, &ConfigError{Option: "append", Value: s, Reason: "must be one of none, normal, force"}
	}
}

// Options are the batch-level settings for one provisioning run. Per-table
// directive options override Promote and Append for individual tables.
type Options struct {
	// SourceNamespace is the namespace unqualified source names resolve to.
	SourceNamespace string

	// Namespace is the destination namespace for tables whose directive
	// does not qualify the destination name.
	Namespace string

	// Promote elevates loaded tables into globally shared scope.
	Promote bool

	// Persist writes promoted tables to durable columnar storage.
	Persist bool

	// Append is the default append mode for every table in the batch.
	Append AppendMode

	// PreserveLabels keeps source column labels; by default they are dropped.
	PreserveLabels bool

	// LowercaseColumns normalizes destination column names to lower case.
	LowercaseColumns bool

	// FastPromote loads into staging and swaps at promote time, minimizing
	// the window where the destination table is unavailable, at the cost of
	// a brief staged/destination coexistence.
	FastPromote bool

	// WidenText converts fixed-width text columns longer than WidenThreshold
	// to a variable-width type.
	WidenText bool

	// WidenThreshold is the byte length above which fixed-width text columns
	// are widened. Zero means the default (16).
	WidenThreshold int
}

// Validate normalizes the options and reports configuration problems.
// A widen threshold below the default is accepted but flagged with a
// warning, since narrow thresholds inflate table size.
func (o *Options) Validate() ([]string, error) {
	var warnings []string

	if o.Namespace == "" {
		o.Namespace = consts.DefaultNamespace
	}
	if o.SourceNamespace == "" {
		o.SourceNamespace = consts.DefaultNamespace
	}

	if o.WidenThreshold == 0 {
		o.WidenThreshold = consts.DefaultWidenThreshold
	}
	if o.WidenThreshold < 0 {
		return nil, &ConfigError{
			Option: "widen_threshold",
			Value:  fmt.Sprintf("%d", o.WidenThreshold),
			Reason: "must be a positive integer",
		}
	}
	if o.WidenThreshold < consts.DefaultWidenThreshold {
		warnings = append(warnings, fmt.Sprintf(
			"widen_threshold %d is below %d; widened tables will take more space",
			o.WidenThreshold, consts.DefaultWidenThreshold,
		))
	}

	return warnings, nil
}
