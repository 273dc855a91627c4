package provision

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type (
	// Batch is the execution context for one provisioning run: options,
	// platform, and logger, created at batch start and discarded at batch
	// end. It carries no process-wide state.
	Batch struct {
		platform Platform
		opts     Options
		logger   *slog.Logger
		warnings []string
	}

	// TableResult is the outcome of one table's execution.
	TableResult struct {
		Record   *TableRecord
		Status   Status
		Err      error
		Duration time.Duration
	}

	// BatchResult aggregates per-table outcomes and counters for the run.
	BatchResult struct {
		Results []*TableResult

		// Notes are one-line informational notices produced during the run.
		Notes []string

		Loaded    int
		Appended  int
		Promoted  int
		Persisted int
		NetNew    int
		Failed    int
		Excluded  int
	}

	// Outcome classifies a finished batch for callers that need to
	// distinguish full, partial, and absent success.
	Outcome int

	// stagingScope lazily creates the staging namespace the first time a
	// table needs it and guarantees release at batch end. Creation is
	// guarded so a future worker pool can share one scope safely.
	stagingScope struct {
		platform Platform
		once     sync.Once
		handle   string
		err      error
	}
)

const (
	OutcomeSuccess Outcome = iota
	OutcomePartial
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePartial:
		return "partial"
	case OutcomeFailed:
		return "failed"
	default:
		return "success"
	}
}

// NewBatch validates the options and builds an execution context. Option
// warnings (e.g. a widen threshold below the default) are carried into the
// batch result's notes.
func NewBatch(platform Platform, opts Options, logger *slog.Logger) (*Batch, error) {
	warnings, err := opts.Validate()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Batch{
		platform: platform,
		opts:     opts,
		logger:   logger,
		warnings: warnings,
	}, nil
}

// Options returns the batch's validated options.
func (b *Batch) Options() Options {
	return b.opts
}

// Execute drives every record through its action plan, in input order, with
// per-table failure isolation. The staging namespace, if any table needed
// one, is released before Execute returns regardless of success or failure.
//
// Persistence runs as a final pass over promoted tables, and is suppressed
// for the whole batch when any table's load step failed.
func (b *Batch) Execute(ctx context.Context, records []*TableRecord) (*BatchResult, error) {
	res := &BatchResult{Notes: append([]string(nil), b.warnings...)}

	stage := &stagingScope{platform: b.platform}
	defer func() {
		if err := stage.release(context.WithoutCancel(ctx)); err != nil {
			b.logger.Error("failed to release staging namespace", "handle", stage.handle, "err", err)
		}
	}()

	valid := make([]*TableRecord, 0, len(records))
	for _, rec := range records {
		if reason, err := b.validate(ctx, rec); err != nil {
			return nil, err
		} else if reason != "" {
			rec.exclude(reason)
			res.Excluded++
			res.Results = append(res.Results, &TableResult{Record: rec, Status: StatusExcluded, Err: rec.Err()})
			b.logger.Warn("table excluded", "source", rec.Source.String(), "reason", reason)
			continue
		}
		valid = append(valid, rec)
	}

	loadFailed := false
	for _, rec := range valid {
		start := time.Now()
		b.provisionTable(ctx, rec, stage, res)

		if rec.status == StatusFailed {
			res.Failed++
			if rec.failedStep == stepLoad {
				loadFailed = true
			}
			b.logger.Error("table failed", "table", rec.Dest.String(), "step", rec.failedStep, "err", rec.err)
		}

		res.Results = append(res.Results, &TableResult{
			Record:   rec,
			Status:   rec.status,
			Err:      rec.err,
			Duration: time.Since(start),
		})
	}

	if b.opts.Persist {
		b.persistPromoted(ctx, valid, res, loadFailed)
	}

	return res, nil
}

const (
	stepLoad    = "load"
	stepAppend  = "append"
	stepPromote = "promote"
	stepPersist = "persist"
)

// validate checks per-table preconditions. It returns a non-empty exclusion
// reason for precondition failures, and a hard error only when the platform
// itself cannot be queried.
func (b *Batch) validate(ctx context.Context, rec *TableRecord) (string, error) {
	ok, err := b.platform.TableExists(ctx, rec.Source.Namespace, rec.Source.Name)
	if err != nil {
		return "", errors.Wrapf(err, "failed to check source table %s", rec.Source)
	}
	if !ok {
		return fmt.Sprintf("source table %s does not exist", rec.Source), nil
	}

	exists, err := b.platform.NamespaceExists(ctx, rec.Dest.Namespace)
	if err != nil {
		return "", errors.Wrapf(err, "failed to check namespace %s", rec.Dest.Namespace)
	}
	if !exists {
		return fmt.Sprintf("destination namespace %s is not assigned", rec.Dest.Namespace), nil
	}

	engine, err := b.platform.NamespaceEngine(ctx, rec.Dest.Namespace)
	if err != nil {
		return "", errors.Wrapf(err, "failed to resolve engine for namespace %s", rec.Dest.Namespace)
	}
	if required := b.platform.RequiredEngine(); engine != required {
		return fmt.Sprintf("destination namespace %s is backed by %s, not %s", rec.Dest.Namespace, engine, required), nil
	}

	return "", nil
}

// provisionTable runs one table's state machine. Failures mark the record
// and return; the caller continues with the next table.
func (b *Batch) provisionTable(ctx context.Context, rec *TableRecord, stage *stagingScope, res *BatchResult) {
	cols, err := b.platform.SchemaLookup(ctx, rec.Source.Namespace, rec.Source.Name)
	if err != nil {
		rec.fail(stepLoad, errors.Wrap(err, "schema lookup failed"))
		return
	}
	cols = ShapeSchema(cols, b.opts)

	loadNS, loadName := rec.Dest.Namespace, rec.Dest.Name
	staged := rec.needsStaging(b.opts.FastPromote)

	if staged {
		ns, err := stage.ensure(ctx)
		if err != nil {
			rec.fail(stepLoad, errors.Wrap(err, "failed to create staging namespace"))
			return
		}
		loadNS = ns
		if rec.plan == PlanAppend {
			// Unique suffix keeps append-path staged names from colliding
			// with each other or with promote-path staged tables.
			loadName = fmt.Sprintf("%s_%.8s", rec.Dest.Name, uuid.NewString())
		}
	}

	// The slow promote path clears the destination before loading; the fast
	// path defers the drop to promotion time to keep the old table readable.
	if rec.plan == PlanPromote && !b.opts.FastPromote {
		if err := b.dropIfExists(ctx, rec.Dest.Namespace, rec.Dest.Name); err != nil {
			rec.fail(stepLoad, err)
			return
		}
	}

	if err := b.platform.CreateTable(ctx, loadNS, loadName, cols, rec.Source.Namespace, rec.Source.Name); err != nil {
		rec.fail(stepLoad, err)
		return
	}

	if staged {
		rec.status = StatusStaged
	} else {
		rec.status = StatusLoaded
	}
	res.Loaded++

	switch rec.plan {
	case PlanDirect:
		res.NetNew++

	case PlanAppend:
		if err := b.platform.AppendRows(ctx, rec.Dest.Namespace, rec.Dest.Name, loadNS, loadName, rec.Append); err != nil {
			rec.fail(stepAppend, err)
			return
		}
		if err := b.platform.DropTable(ctx, loadNS, loadName); err != nil {
			rec.fail(stepAppend, errors.Wrap(err, "failed to drop staged intermediate"))
			return
		}
		rec.status = StatusAppended
		res.Appended++

	case PlanPromote:
		if b.opts.FastPromote {
			if err := b.dropIfExists(ctx, rec.Dest.Namespace, rec.Dest.Name); err != nil {
				rec.fail(stepPromote, err)
				return
			}
		}
		if err := b.platform.PromoteTable(ctx, rec.Dest.Name, loadNS, rec.Dest.Namespace); err != nil {
			rec.fail(stepPromote, err)
			return
		}
		rec.status = StatusPromoted
		res.Promoted++
	}
}

// persistPromoted writes every promoted table to durable storage. The pass
// is skipped batch-wide when any load failed, since the batch's contents are
// no longer what the caller asked to save.
func (b *Batch) persistPromoted(ctx context.Context, records []*TableRecord, res *BatchResult, loadFailed bool) {
	if loadFailed {
		res.Notes = append(res.Notes, "persistence skipped: one or more tables failed to load")
		return
	}
	if res.Promoted == 0 {
		return
	}

	for _, rec := range records {
		if rec.status != StatusPromoted {
			continue
		}

		if len(rec.Partition) > 0 && len(rec.Order) == 0 {
			res.Notes = append(res.Notes, "table "+rec.Dest.String()+": persisting with a partition spec but no order spec")
		}
		if len(rec.Order) > 0 && len(rec.Partition) == 0 {
			res.Notes = append(res.Notes, "table "+rec.Dest.String()+": persisting with an order spec but no partition spec")
		}

		// Replace any earlier persisted copy.
		if err := b.platform.DeleteBackingFile(ctx, rec.Dest.Namespace, rec.Dest.Name); err != nil {
			rec.fail(stepPersist, errors.Wrap(err, "failed to delete previous persisted copy"))
			res.Failed++
			continue
		}

		if err := b.platform.PersistTable(ctx, rec.Dest.Namespace, rec.Dest.Name, rec.Partition, rec.Order); err != nil {
			rec.fail(stepPersist, err)
			res.Failed++
			continue
		}

		rec.status = StatusPersisted
		res.Persisted++
	}

	// Reflect persist outcomes in the already-recorded results.
	for _, tr := range res.Results {
		tr.Status = tr.Record.status
		tr.Err = tr.Record.err
	}
}

func (b *Batch) dropIfExists(ctx context.Context, namespace, name string) error {
	exists, err := b.platform.TableExists(ctx, namespace, name)
	if err != nil {
		return errors.Wrapf(err, "failed to check for existing table %s.%s", namespace, name)
	}
	if !exists {
		return nil
	}
	return b.platform.DropTable(ctx, namespace, name)
}

// Outcome classifies the batch: success when every table completed, failed
// when none did, partial otherwise.
func (r *BatchResult) Outcome() Outcome {
	if len(r.Results) == 0 {
		return OutcomeSuccess
	}

	bad := r.Failed + r.Excluded
	switch {
	case bad == 0:
		return OutcomeSuccess
	case bad == len(r.Results):
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

func (s *stagingScope) ensure(ctx context.Context) (string, error) {
	s.once.Do(func() {
		s.handle, s.err = s.platform.CreateStagingNamespace(ctx)
	})
	return s.handle, s.err
}

func (s *stagingScope) release(ctx context.Context) error {
	if s.handle == "" || s.err != nil {
		return nil
	}
	return s.platform.ReleaseStagingNamespace(ctx, s.handle)
}
