package provision_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stevedore-sh/stevedore/pkg/provision"
	"github.com/stretchr/testify/require"
)

// fakePlatform is an in-memory provision.Platform that records every
// operation in order, so tests can assert on sequencing as well as outcomes.
type fakePlatform struct {
	ops []string

	namespaces map[string]string // namespace -> engine
	tables     map[string]bool
	persisted  map[string]bool

	stagingCreated  int
	stagingReleased int

	failOn map[string]error // op string prefix -> error
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		namespaces: map[string]string{
			"raw":     "Atomic",
			"serving": "Atomic",
		},
		tables:    map[string]bool{},
		persisted: map[string]bool{},
		failOn:    map[string]error{},
	}
}

func (f *fakePlatform) addTable(namespace, name string) {
	f.tables[namespace+"."+name] = true
}

func (f *fakePlatform) record(op string) error {
	f.ops = append(f.ops, op)
	for prefix, err := range f.failOn {
		if strings.HasPrefix(op, prefix) {
			return err
		}
	}
	return nil
}

func (f *fakePlatform) RequiredEngine() string { return "Atomic" }

func (f *fakePlatform) NamespaceExists(_ context.Context, namespace string) (bool, error) {
	_, ok := f.namespaces[namespace]
	return ok, nil
}

func (f *fakePlatform) NamespaceEngine(_ context.Context, namespace string) (string, error) {
	engine, ok := f.namespaces[namespace]
	if !ok {
		return "", errors.Errorf("namespace %s not found", namespace)
	}
	return engine, nil
}

func (f *fakePlatform) ListTables(_ context.Context, namespace string) ([]string, error) {
	var names []string
	for key := range f.tables {
		if ns, name, ok := strings.Cut(key, "."); ok && ns == namespace {
			names = append(names, name)
		}
	}
	return names, nil
}

func (f *fakePlatform) TableExists(_ context.Context, namespace, name string) (bool, error) {
	return f.tables[namespace+"."+name], nil
}

func (f *fakePlatform) SchemaLookup(_ context.Context, namespace, name string) ([]provision.Column, error) {
	if err := f.record("lookup " + namespace + "." + name); err != nil {
		return nil, err
	}
	return []provision.Column{
		{Name: "id", Kind: provision.ColumnOther, Type: "UInt64"},
		{Name: "city", Kind: provision.ColumnFixedText, Length: 32},
	}, nil
}

func (f *fakePlatform) CreateTable(_ context.Context, namespace, name string, _ []provision.Column, srcNamespace, srcName string) error {
	if err := f.record(fmt.Sprintf("create %s.%s from %s.%s", namespace, name, srcNamespace, srcName)); err != nil {
		return err
	}
	f.tables[namespace+"."+name] = true
	return nil
}

func (f *fakePlatform) DropTable(_ context.Context, namespace, name string) error {
	if err := f.record("drop " + namespace + "." + name); err != nil {
		return err
	}
	delete(f.tables, namespace+"."+name)
	return nil
}

func (f *fakePlatform) AppendRows(_ context.Context, namespace, name, srcNamespace, srcName string, mode provision.AppendMode) error {
	return f.record(fmt.Sprintf("append %s.%s <- %s.%s %s", namespace, name, srcNamespace, srcName, mode))
}

func (f *fakePlatform) PromoteTable(_ context.Context, name, fromNamespace, toNamespace string) error {
	if err := f.record(fmt.Sprintf("promote %s %s -> %s", name, fromNamespace, toNamespace)); err != nil {
		return err
	}
	if fromNamespace != toNamespace {
		delete(f.tables, fromNamespace+"."+name)
		f.tables[toNamespace+"."+name] = true
	}
	return nil
}

func (f *fakePlatform) PersistTable(_ context.Context, namespace, name string, _, _ []string) error {
	if err := f.record("persist " + namespace + "." + name); err != nil {
		return err
	}
	f.persisted[namespace+"."+name] = true
	return nil
}

func (f *fakePlatform) DeleteBackingFile(_ context.Context, namespace, name string) error {
	return f.record("delete-backing " + namespace + "." + name)
}

func (f *fakePlatform) CreateStagingNamespace(_ context.Context) (string, error) {
	if err := f.record("create-staging"); err != nil {
		return "", err
	}
	f.stagingCreated++
	handle := fmt.Sprintf("stage_%d", f.stagingCreated)
	f.namespaces[handle] = "Atomic"
	return handle, nil
}

func (f *fakePlatform) ReleaseStagingNamespace(_ context.Context, handle string) error {
	if err := f.record("release-staging " + handle); err != nil {
		return err
	}
	f.stagingReleased++
	delete(f.namespaces, handle)
	return nil
}

// opsMatching returns recorded operations beginning with prefix.
func (f *fakePlatform) opsMatching(prefix string) []string {
	var out []string
	for _, op := range f.ops {
		if strings.HasPrefix(op, prefix) {
			out = append(out, op)
		}
	}
	return out
}

func execute(t *testing.T, platform *fakePlatform, opts provision.Options, records []*provision.TableRecord) *provision.BatchResult {
	t.Helper()
	batch, err := provision.NewBatch(platform, opts, nil)
	require.NoError(t, err)

	res, err := batch.Execute(context.Background(), records)
	require.NoError(t, err)
	return res
}

func buildRecords(t *testing.T, sources, dests string, opts provision.Options) []*provision.TableRecord {
	t.Helper()
	records, _, err := provision.BuildRecords(sourceList(t, sources), destList(t, dests), opts)
	require.NoError(t, err)
	return records
}

func TestExecuteDirectLoad(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving"}
	res := execute(t, platform, opts, buildRecords(t, "trips", "", opts))

	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Equal(t, 1, res.Loaded)
	require.Equal(t, 1, res.NetNew)
	require.Equal(t, 0, res.Failed)
	require.True(t, platform.tables["serving.trips"])

	// A direct load never touches staging.
	require.Zero(t, platform.stagingCreated)
	require.Equal(t, provision.StatusLoaded, res.Results[0].Status)
}

func TestExecuteAppend(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("serving", "trips")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Append: provision.AppendNormal}
	res := execute(t, platform, opts, buildRecords(t, "trips", "", opts))

	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Equal(t, 1, res.Appended)
	require.Equal(t, provision.StatusAppended, res.Results[0].Status)

	// The staged load lands in the staging namespace under a uniquified name.
	creates := platform.opsMatching("create stage_1.trips_")
	require.Len(t, creates, 1)

	appends := platform.opsMatching("append serving.trips <- stage_1.trips_")
	require.Len(t, appends, 1)
	require.Contains(t, appends[0], "normal")

	// The staged intermediate is dropped and the staging namespace released.
	require.Len(t, platform.opsMatching("drop stage_1.trips_"), 1)
	require.Equal(t, 1, platform.stagingCreated)
	require.Equal(t, 1, platform.stagingReleased)
}

func TestExecuteAppendStagedNamesDoNotCollide(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("other", "trips")
	platform.namespaces["other"] = "Atomic"
	platform.addTable("serving", "trips")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Append: provision.AppendNormal}
	records := buildRecords(t, "raw.trips other.trips", "trips trips", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Equal(t, 2, res.Appended)

	// Two appends of the same destination name stage under distinct names in
	// one shared staging namespace.
	creates := platform.opsMatching("create stage_1.trips_")
	require.Len(t, creates, 2)
	require.NotEqual(t, creates[0], creates[1])
	require.Equal(t, 1, platform.stagingCreated)
}

func TestExecutePromoteSlowPath(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("serving", "trips") // existing copy to replace

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Promote: true}
	res := execute(t, platform, opts, buildRecords(t, "trips", "", opts))

	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Equal(t, 1, res.Promoted)
	require.Equal(t, provision.StatusPromoted, res.Results[0].Status)

	// Slow path drops the old copy before loading the replacement, and the
	// load goes straight into the destination namespace.
	require.Equal(t, []string{
		"lookup raw.trips",
		"drop serving.trips",
		"create serving.trips from raw.trips",
		"promote trips serving -> serving",
	}, platform.ops[:4])
	require.Zero(t, platform.stagingCreated)
}

func TestExecutePromoteFastPath(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("serving", "trips")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Promote: true, FastPromote: true}
	res := execute(t, platform, opts, buildRecords(t, "trips", "", opts))

	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Equal(t, 1, res.Promoted)

	// Fast path loads into staging first; the old copy survives until
	// promotion time.
	require.Equal(t, []string{
		"lookup raw.trips",
		"create-staging",
		"create stage_1.trips from raw.trips",
		"drop serving.trips",
		"promote trips stage_1 -> serving",
	}, platform.ops[:5])
	require.True(t, platform.tables["serving.trips"])
	require.Equal(t, 1, platform.stagingReleased)
}

func TestExecutePersist(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Promote: true, Persist: true}
	records := buildRecords(t, "trips", "trips(partition=month orderby=ts)", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Equal(t, 1, res.Persisted)
	require.Equal(t, provision.StatusPersisted, res.Results[0].Status)
	require.True(t, records[0].Done())

	// Any prior persisted copy is removed before writing the new one.
	deletes := platform.opsMatching("delete-backing serving.trips")
	persists := platform.opsMatching("persist serving.trips")
	require.Len(t, deletes, 1)
	require.Len(t, persists, 1)
}

func TestExecutePersistOnlyCoversPromoted(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("raw", "fares")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Persist: true}
	records := buildRecords(t, "trips fares", "trips(promote=true) fares", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Equal(t, 1, res.Persisted)

	// Only the promoted table is persisted; the direct load is not.
	require.Empty(t, platform.opsMatching("persist serving.fares"))
	require.Len(t, platform.opsMatching("persist serving.trips"), 1)
}

func TestExecutePersistSkippedAfterLoadFailure(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("raw", "fares")
	platform.failOn["create serving.fares"] = errors.New("out of memory")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Promote: true, Persist: true}
	records := buildRecords(t, "trips fares", "", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, provision.OutcomePartial, res.Outcome())
	require.Equal(t, 1, res.Promoted)
	require.Equal(t, 1, res.Failed)

	// Persistence is suppressed batch-wide; the promoted table stays promoted.
	require.Zero(t, res.Persisted)
	require.Empty(t, platform.opsMatching("persist"))
	require.Equal(t, provision.StatusPromoted, res.Results[0].Status)

	found := false
	for _, note := range res.Notes {
		if strings.Contains(note, "persistence skipped") {
			found = true
		}
	}
	require.True(t, found, "expected a persistence-skipped note, got %v", res.Notes)
}

func TestExecutePersistFailureIsPerTable(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("raw", "fares")
	platform.failOn["persist serving.trips"] = errors.New("disk full")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Promote: true, Persist: true}
	records := buildRecords(t, "trips fares", "", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, provision.OutcomePartial, res.Outcome())
	require.Equal(t, 1, res.Persisted)
	require.Equal(t, 1, res.Failed)

	var failed, persisted int
	for _, tr := range res.Results {
		switch tr.Status {
		case provision.StatusFailed:
			failed++
			require.Equal(t, "persist", tr.Record.FailedStep())
		case provision.StatusPersisted:
			persisted++
		}
	}
	require.Equal(t, 1, failed)
	require.Equal(t, 1, persisted)
}

func TestExecuteExcludesMissingSource(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "fares")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving"}
	records := buildRecords(t, "trips fares", "", opts)
	res := execute(t, platform, opts, records)

	// The missing table is excluded; the other proceeds normally.
	require.Equal(t, provision.OutcomePartial, res.Outcome())
	require.Equal(t, 1, res.Excluded)
	require.Equal(t, 1, res.Loaded)
	require.Equal(t, provision.StatusExcluded, res.Results[0].Status)

	var verr *provision.ValidationError
	require.ErrorAs(t, res.Results[0].Err, &verr)
	require.Contains(t, verr.Reason, "does not exist")
}

func TestExecuteExcludesUnassignedNamespace(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "nowhere"}
	records := buildRecords(t, "trips", "", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, provision.OutcomeFailed, res.Outcome())
	require.Equal(t, 1, res.Excluded)
	require.Empty(t, platform.opsMatching("create"))
}

func TestExecuteExcludesWrongEngine(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.namespaces["serving"] = "Replicated"

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving"}
	records := buildRecords(t, "trips", "", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, 1, res.Excluded)

	var verr *provision.ValidationError
	require.ErrorAs(t, res.Results[0].Err, &verr)
	require.Contains(t, verr.Reason, "Replicated")
}

func TestExecuteFailureIsolation(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "a")
	platform.addTable("raw", "b")
	platform.addTable("raw", "c")
	platform.failOn["create serving.b"] = errors.New("boom")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving"}
	records := buildRecords(t, "a b c", "", opts)
	res := execute(t, platform, opts, records)

	// b fails; a and c still load.
	require.Equal(t, provision.OutcomePartial, res.Outcome())
	require.Equal(t, 2, res.Loaded)
	require.Equal(t, 1, res.Failed)
	require.True(t, platform.tables["serving.a"])
	require.True(t, platform.tables["serving.c"])

	var operr *provision.OperationError
	require.ErrorAs(t, res.Results[1].Err, &operr)
	require.Equal(t, "load", operr.Step)
}

func TestExecuteStagingReleasedAfterFailure(t *testing.T) {
	platform := newFakePlatform()
	platform.addTable("raw", "trips")
	platform.addTable("serving", "trips")
	platform.failOn["append"] = errors.New("schema mismatch")

	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", Append: provision.AppendNormal}
	records := buildRecords(t, "trips", "", opts)
	res := execute(t, platform, opts, records)

	require.Equal(t, provision.OutcomeFailed, res.Outcome())
	require.Equal(t, provision.StatusFailed, res.Results[0].Status)
	require.Equal(t, "append", records[0].FailedStep())

	// Staging is always released, even when the table using it failed.
	require.Equal(t, 1, platform.stagingCreated)
	require.Equal(t, 1, platform.stagingReleased)
}

func TestExecuteEmptyBatch(t *testing.T) {
	platform := newFakePlatform()
	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving"}

	res := execute(t, platform, opts, nil)
	require.Equal(t, provision.OutcomeSuccess, res.Outcome())
	require.Empty(t, res.Results)
	require.Zero(t, platform.stagingCreated)
}

func TestExecuteCarriesOptionWarnings(t *testing.T) {
	platform := newFakePlatform()
	opts := provision.Options{SourceNamespace: "raw", Namespace: "serving", WidenThreshold: 4}

	res := execute(t, platform, opts, nil)
	require.Len(t, res.Notes, 1)
	require.Contains(t, res.Notes[0], "widen_threshold")
}
