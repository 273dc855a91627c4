package provision

import (
	"strings"

	"github.com/stevedore-sh/stevedore/pkg/directive"
)

type (
	// Qualified is a namespace-qualified table name.
	Qualified struct {
		Namespace string
		Name      string
	}

	// Plan is the resolved action plan for one table, computed once from the
	// table's options and immutable afterward.
	Plan int

	// Status tracks a table's progress through the provisioning state
	// machine. A table is done when it has reached the last state its plan
	// requires; see TableRecord.Done.
	Status int

	// TableRecord is one table's provisioning request: where to read, where
	// to write, and how. Records are read-only after construction except for
	// status, which the orchestrator advances as the table executes.
	TableRecord struct {
		Source    Qualified
		Dest      Qualified
		Partition []string
		Order     []string
		Promote   bool
		Append    AppendMode

		plan       Plan
		status     Status
		failedStep string
		err        error
	}
)

const (
	// PlanDirect loads straight into the destination.
	PlanDirect Plan = iota

	// PlanAppend loads into staging, then appends into the destination.
	PlanAppend

	// PlanPromote loads and then promotes into globally shared scope; the
	// batch's fast-promote setting decides whether the load lands in staging.
	PlanPromote
)

const (
	StatusPending Status = iota
	StatusLoaded
	StatusStaged
	StatusAppended
	StatusPromoted
	StatusPersisted
	StatusExcluded
	StatusFailed
)

func (q Qualified) String() string {
	if q.Namespace == "" {
		return q.Name
	}
	return q.Namespace + "." + q.Name
}

func (p Plan) String() string {
	switch p {
	case PlanAppend:
		return "load-then-append"
	case PlanPromote:
		return "load-then-promote"
	default:
		return "load-direct"
	}
}

func (s Status) String() string {
	switch s {
	case StatusLoaded:
		return "loaded"
	case StatusStaged:
		return "staged"
	case StatusAppended:
		return "appended"
	case StatusPromoted:
		return "promoted"
	case StatusPersisted:
		return "persisted"
	case StatusExcluded:
		return "excluded"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Plan is the table's resolved action plan.
func (r *TableRecord) Plan() Plan {
	return r.plan
}

// Status is the furthest state the table has reached.
func (r *TableRecord) Status() Status {
	return r.status
}

// Err is the failure that stopped this table, if any.
func (r *TableRecord) Err() error {
	return r.err
}

// FailedStep names the step at which the table failed, or "" if it did not.
func (r *TableRecord) FailedStep() string {
	return r.failedStep
}

// Done reports whether the table completed every step its plan required.
func (r *TableRecord) Done() bool {
	switch r.status {
	case StatusFailed, StatusExcluded, StatusPending:
		return false
	}

	switch r.plan {
	case PlanAppend:
		return r.status == StatusAppended
	case PlanPromote:
		return r.status == StatusPromoted || r.status == StatusPersisted
	default:
		return r.status == StatusLoaded
	}
}

func (r *TableRecord) fail(step string, err error) {
	r.status = StatusFailed
	r.failedStep = step
	r.err = &OperationError{Table: r.Dest.String(), Step: step, Err: err}
}

func (r *TableRecord) exclude(reason string) {
	r.status = StatusExcluded
	r.err = &ValidationError{Table: r.Source.String(), Reason: reason}
}

// needsStaging reports whether the table's load must land in the staging
// namespace: always for appends, and for promotes when fast-promote is on
// (loading into staging avoids doubling memory pressure on the destination
// namespace during the swap).
func (r *TableRecord) needsStaging(fastPromote bool) bool {
	switch r.plan {
	case PlanAppend:
		return true
	case PlanPromote:
		return fastPromote
	default:
		return false
	}
}

// BuildRecords assembles TableRecords by positionally aligning the parsed
// source list with the normalized destination directives. Destinations
// beyond the directive list default to the source name under the batch's
// destination namespace. Batch-level promote and append defaults are pushed
// into the directives with FillDefault before extraction, so every table
// carries explicit values.
//
// BuildRecords also returns any notices produced while resolving options,
// such as promote flags downgraded because a table appends.
func BuildRecords(sources *directive.SourceList, dests directive.List, opts Options) ([]*TableRecord, []string, error) {
	if dests.Len() > len(sources.Tables) {
		return nil, nil, &ConfigError{
			Option: "out",
			Value:  dests.Join(" "),
			Reason: "more destination directives than source tables",
		}
	}

	dests, err := fillBatchDefaults(dests, opts)
	if err != nil {
		return nil, nil, err
	}

	partitions, err := directive.ExtractOption(dests, "partition")
	if err != nil {
		return nil, nil, err
	}
	orders, err := directive.ExtractOption(dests, "orderby")
	if err != nil {
		return nil, nil, err
	}
	promotes, err := directive.ExtractOption(dests, "promote")
	if err != nil {
		return nil, nil, err
	}
	appends, err := directive.ExtractOption(dests, "append")
	if err != nil {
		return nil, nil, err
	}

	names := dests.Names()

	var notes []string
	records := make([]*TableRecord, 0, len(sources.Tables))

	for i, src := range sources.Tables {
		rec := &TableRecord{
			Source:  qualify(src.String(), opts.SourceNamespace),
			Promote: opts.Promote,
			Append:  opts.Append,
		}

		if i < len(names) {
			rec.Dest = qualify(names[i], opts.Namespace)
			rec.Partition = columnSpec(partitions[i])
			rec.Order = columnSpec(orders[i])

			if rec.Promote, err = boolOption(promotes[i], "promote", opts.Promote); err != nil {
				return nil, nil, err
			}
			if appends[i].Present() {
				if rec.Append, err = ParseAppendMode(appends[i].Scalar()); err != nil {
					return nil, nil, err
				}
			}
		} else {
			rec.Dest = Qualified{Namespace: opts.Namespace, Name: src.Name}
		}

		// Promotion is meaningless after an append; resolve the conflict in
		// favor of the append and say so.
		if rec.Promote && rec.Append != AppendNone {
			rec.Promote = false
			notes = append(notes, "table "+rec.Dest.String()+": promote disabled because append mode is "+rec.Append.String())
		}

		rec.plan = resolvePlan(rec)
		records = append(records, rec)
	}

	return records, notes, nil
}

func fillBatchDefaults(dests directive.List, opts Options) (directive.List, error) {
	promoteDefault := "false"
	if opts.Promote {
		promoteDefault = "true"
	}

	dests, err := directive.FillDefault(dests, "promote", promoteDefault)
	if err != nil {
		return directive.List{}, err
	}
	return directive.FillDefault(dests, "append", opts.Append.String())
}

func resolvePlan(r *TableRecord) Plan {
	switch {
	case r.Append != AppendNone:
		return PlanAppend
	case r.Promote:
		return PlanPromote
	default:
		return PlanDirect
	}
}

// qualify splits an optionally namespace-qualified name, falling back to the
// provided default namespace.
func qualify(name, defaultNS string) Qualified {
	if ns, rest, ok := strings.Cut(name, "."); ok {
		return Qualified{Namespace: ns, Name: rest}
	}
	return Qualified{Namespace: defaultNS, Name: name}
}

// columnSpec interprets a partition or orderby option value: a list of
// column names, a single column, or the literal "none" meaning no spec.
func columnSpec(v directive.OptionValue) []string {
	if !v.Present() {
		return nil
	}
	if !v.IsList() && strings.EqualFold(v.Scalar(), "none") {
		return nil
	}
	return v.Items()
}

func boolOption(v directive.OptionValue, option string, def bool) (bool, error) {
	if !v.Present() {
		return def, nil
	}
	switch strings.ToLower(v.Scalar()) {
	case "true", "yes", "1":
		return true, nil
	case "false", "no", "0":
		return false, nil
	default:
		return false, &ConfigError{Option: option, Value: v.String(), Reason: "must be a boolean"}
	}
}
