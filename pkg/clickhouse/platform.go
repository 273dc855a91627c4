package clickhouse

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stevedore-sh/stevedore/pkg/provision"
	"github.com/stevedore-sh/stevedore/pkg/utils"
)

const (
	// requiredEngine is the database engine provisioning destinations must
	// be backed by.
	requiredEngine = "Atomic"

	// servingEngine is the table engine for in-memory serving copies.
	servingEngine = "Memory"

	// storeSuffix names the sibling database holding persisted MergeTree
	// copies of a namespace's tables.
	storeSuffix = "_store"

	// stagePrefix names per-batch staging databases.
	stagePrefix = "stv_stage_"
)

// Platform implements provision.Platform against ClickHouse.
type Platform struct {
	client  *Client
	cluster string
}

var _ provision.Platform = (*Platform)(nil)

// NewPlatform wraps a client as a provisioning platform. A non-empty
// cluster name is injected into every DDL statement for distributed
// deployments.
func NewPlatform(client *Client, cluster string) *Platform {
	return &Platform{client: client, cluster: cluster}
}

// RequiredEngine returns the database engine destinations must use.
func (p *Platform) RequiredEngine() string {
	return requiredEngine
}

// NamespaceExists reports whether a database with the given name exists.
func (p *Platform) NamespaceExists(ctx context.Context, namespace string) (bool, error) {
	rows, err := p.client.Query(ctx, "SELECT 1 FROM system.databases WHERE name = ?", namespace)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check database %s", namespace)
	}
	defer rows.Close()

	return rows.Next(), nil
}

// NamespaceEngine returns the engine backing the given database.
func (p *Platform) NamespaceEngine(ctx context.Context, namespace string) (string, error) {
	rows, err := p.client.Query(ctx, "SELECT engine FROM system.databases WHERE name = ?", namespace)
	if err != nil {
		return "", errors.Wrapf(err, "failed to query engine for database %s", namespace)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", errors.Errorf("database %s not found", namespace)
	}

	var engine string
	if err := rows.Scan(&engine); err != nil {
		return "", errors.Wrap(err, "failed to scan database engine")
	}
	return engine, nil
}

// ListTables returns the table names in a database, alphabetically.
func (p *Platform) ListTables(ctx context.Context, namespace string) ([]string, error) {
	rows, err := p.client.Query(ctx,
		"SELECT name FROM system.tables WHERE database = ? AND is_temporary = 0 ORDER BY name",
		namespace,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list tables in %s", namespace)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "failed to scan table name")
		}
		names = append(names, name)
	}
	return names, nil
}

// TableExists reports whether the table exists in the given database.
func (p *Platform) TableExists(ctx context.Context, namespace, name string) (bool, error) {
	rows, err := p.client.Query(ctx,
		"SELECT 1 FROM system.tables WHERE database = ? AND name = ?",
		namespace, name,
	)
	if err != nil {
		return false, errors.Wrapf(err, "failed to check table %s.%s", namespace, name)
	}
	defer rows.Close()

	return rows.Next(), nil
}

// SchemaLookup reads a table's column schema from system.columns, in
// declared order. FixedString(N) columns surface as fixed-width text of N
// bytes; String columns as variable-width text. ClickHouse carries display
// formats in the type itself, so Format is left empty. Column comments
// surface as labels.
func (p *Platform) SchemaLookup(ctx context.Context, namespace, name string) ([]provision.Column, error) {
	rows, err := p.client.Query(ctx,
		"SELECT name, type, comment FROM system.columns WHERE database = ? AND table = ? ORDER BY position",
		namespace, name,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to look up schema for %s.%s", namespace, name)
	}
	defer rows.Close()

	var cols []provision.Column
	for rows.Next() {
		var colName, colType, comment string
		if err := rows.Scan(&colName, &colType, &comment); err != nil {
			return nil, errors.Wrap(err, "failed to scan column")
		}

		col := provision.Column{
			Name:       colName,
			SourceName: colName,
			Type:       colType,
			Label:      comment,
		}

		switch {
		case colType == "String":
			col.Kind = provision.ColumnVarText
		case strings.HasPrefix(colType, "FixedString("):
			n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(colType, "FixedString("), ")"))
			if err != nil {
				return nil, errors.Wrapf(err, "unexpected type %q for column %s", colType, colName)
			}
			col.Kind = provision.ColumnFixedText
			col.Length = n
		default:
			col.Kind = provision.ColumnOther
		}

		cols = append(cols, col)
	}

	if len(cols) == 0 {
		return nil, errors.Errorf("table %s.%s has no columns", namespace, name)
	}
	return cols, nil
}

// CreateTable creates an in-memory table with the given schema and copies
// the source table's rows into it.
func (p *Platform) CreateTable(ctx context.Context, namespace, name string, schema []provision.Column, srcNamespace, srcName string) error {
	if err := p.client.Exec(ctx, createTableSQL(p.cluster, namespace, name, schema)); err != nil {
		return errors.Wrapf(err, "failed to create table %s.%s", namespace, name)
	}

	if err := p.client.Exec(ctx, copyRowsSQL(namespace, name, schema, srcNamespace, srcName)); err != nil {
		return errors.Wrapf(err, "failed to copy rows from %s.%s", srcNamespace, srcName)
	}
	return nil
}

// DropTable drops a table; dropping a missing table is not an error.
func (p *Platform) DropTable(ctx context.Context, namespace, name string) error {
	sql := utils.NewSQLBuilder().
		Drop("TABLE").
		IfExists().
		QualifiedName(namespace, name).
		OnCluster(p.cluster).
		String()

	return errors.Wrapf(p.client.Exec(ctx, sql), "failed to drop table %s.%s", namespace, name)
}

// AppendRows moves rows from a staged table into the destination. Normal
// mode verifies the two schemas match before inserting; force mode inserts
// the name-intersection of the columns, letting the server coerce types.
func (p *Platform) AppendRows(ctx context.Context, namespace, name, srcNamespace, srcName string, mode provision.AppendMode) error {
	switch mode {
	case provision.AppendNormal:
		match, err := p.schemasMatch(ctx, namespace, name, srcNamespace, srcName)
		if err != nil {
			return err
		}
		if !match {
			return errors.Errorf("schema of %s.%s is incompatible with %s.%s", srcNamespace, srcName, namespace, name)
		}

		sql := fmt.Sprintf("INSERT INTO %s SELECT * FROM %s",
			utils.BacktickQualifiedName(namespace, name),
			utils.BacktickQualifiedName(srcNamespace, srcName),
		)
		return errors.Wrapf(p.client.Exec(ctx, sql), "failed to append into %s.%s", namespace, name)

	case provision.AppendForce:
		common, err := p.commonColumns(ctx, namespace, name, srcNamespace, srcName)
		if err != nil {
			return err
		}
		if len(common) == 0 {
			return errors.Errorf("no common columns between %s.%s and %s.%s", srcNamespace, srcName, namespace, name)
		}

		list := backtickList(common)
		sql := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			utils.BacktickQualifiedName(namespace, name),
			list, list,
			utils.BacktickQualifiedName(srcNamespace, srcName),
		)
		return errors.Wrapf(p.client.Exec(ctx, sql), "failed to force-append into %s.%s", namespace, name)

	default:
		return errors.New("append called with mode none")
	}
}

// PromoteTable renames a table across databases, preserving its name. A
// same-database promote is a no-op: tables in a shared database are already
// globally visible.
func (p *Platform) PromoteTable(ctx context.Context, name, fromNamespace, toNamespace string) error {
	if fromNamespace == toNamespace {
		return nil
	}

	sql := utils.NewSQLBuilder().
		Rename("TABLE").
		QualifiedName(fromNamespace, name).
		QualifiedTo(toNamespace, name).
		OnCluster(p.cluster).
		String()

	return errors.Wrapf(p.client.Exec(ctx, sql), "failed to promote %s.%s to %s", fromNamespace, name, toNamespace)
}

// PersistTable materializes a durable MergeTree copy of the table in the
// namespace's sibling store database, carrying the partition and order
// specs when present.
func (p *Platform) PersistTable(ctx context.Context, namespace, name string, partition, order []string) error {
	store := namespace + storeSuffix

	createDB := utils.NewSQLBuilder().
		Create("DATABASE").
		IfNotExists().
		Name(store).
		OnCluster(p.cluster).
		String()
	if err := p.client.Exec(ctx, createDB); err != nil {
		return errors.Wrapf(err, "failed to create store database %s", store)
	}

	return errors.Wrapf(
		p.client.Exec(ctx, persistSQL(p.cluster, store, namespace, name, partition, order)),
		"failed to persist %s.%s", namespace, name,
	)
}

// DeleteBackingFile drops a previously persisted copy of the table, if any.
func (p *Platform) DeleteBackingFile(ctx context.Context, namespace, name string) error {
	return p.DropTable(ctx, namespace+storeSuffix, name)
}

// CreateStagingNamespace provisions a uniquely named transient database for
// this batch's staged loads.
func (p *Platform) CreateStagingNamespace(ctx context.Context) (string, error) {
	handle := fmt.Sprintf("%s%.8s", stagePrefix, uuid.NewString())

	sql := utils.NewSQLBuilder().
		Create("DATABASE").
		Name(handle).
		OnCluster(p.cluster).
		String()

	if err := p.client.Exec(ctx, sql); err != nil {
		return "", errors.Wrap(err, "failed to create staging database")
	}
	return handle, nil
}

// ReleaseStagingNamespace drops the staging database and everything in it.
func (p *Platform) ReleaseStagingNamespace(ctx context.Context, handle string) error {
	sql := utils.NewSQLBuilder().
		Drop("DATABASE").
		IfExists().
		Name(handle).
		OnCluster(p.cluster).
		String()

	return errors.Wrapf(p.client.Exec(ctx, sql), "failed to drop staging database %s", handle)
}

func (p *Platform) columnTypes(ctx context.Context, namespace, name string) ([][2]string, error) {
	rows, err := p.client.Query(ctx,
		"SELECT name, type FROM system.columns WHERE database = ? AND table = ? ORDER BY position",
		namespace, name,
	)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read columns of %s.%s", namespace, name)
	}
	defer rows.Close()

	var cols [][2]string
	for rows.Next() {
		var n, t string
		if err := rows.Scan(&n, &t); err != nil {
			return nil, errors.Wrap(err, "failed to scan column")
		}
		cols = append(cols, [2]string{n, t})
	}
	return cols, nil
}

func (p *Platform) schemasMatch(ctx context.Context, destNS, destName, srcNS, srcName string) (bool, error) {
	dest, err := p.columnTypes(ctx, destNS, destName)
	if err != nil {
		return false, err
	}
	src, err := p.columnTypes(ctx, srcNS, srcName)
	if err != nil {
		return false, err
	}

	if len(dest) != len(src) {
		return false, nil
	}
	for i := range dest {
		if dest[i] != src[i] {
			return false, nil
		}
	}
	return true, nil
}

func (p *Platform) commonColumns(ctx context.Context, destNS, destName, srcNS, srcName string) ([]string, error) {
	dest, err := p.columnTypes(ctx, destNS, destName)
	if err != nil {
		return nil, err
	}
	src, err := p.columnTypes(ctx, srcNS, srcName)
	if err != nil {
		return nil, err
	}

	inDest := make(map[string]bool, len(dest))
	for _, col := range dest {
		inDest[col[0]] = true
	}

	var common []string
	for _, col := range src {
		if inDest[col[0]] {
			common = append(common, col[0])
		}
	}
	return common, nil
}

// createTableSQL builds the CREATE TABLE statement for an in-memory copy.
func createTableSQL(cluster, namespace, name string, schema []provision.Column) string {
	defs := make([]string, len(schema))
	for i, col := range schema {
		def := utils.BacktickIdentifier(col.Name) + " " + columnType(col)
		if col.Label != "" {
			def += " COMMENT '" + strings.ReplaceAll(col.Label, "'", "\\'") + "'"
		}
		defs[i] = def
	}

	return utils.NewSQLBuilder().
		Create("TABLE").
		QualifiedName(namespace, name).
		OnCluster(cluster).
		Columns(defs).
		Engine(servingEngine).
		String()
}

// copyRowsSQL builds the INSERT ... SELECT moving source rows into the new
// table. Source columns are referenced by their original spelling so case
// normalization of destination names does not break the transfer.
func copyRowsSQL(namespace, name string, schema []provision.Column, srcNamespace, srcName string) string {
	selects := make([]string, len(schema))
	for i, col := range schema {
		selects[i] = utils.BacktickIdentifier(col.SourceName)
	}

	return fmt.Sprintf("INSERT INTO %s SELECT %s FROM %s;",
		utils.BacktickQualifiedName(namespace, name),
		strings.Join(selects, ", "),
		utils.BacktickQualifiedName(srcNamespace, srcName),
	)
}

// persistSQL builds the CREATE TABLE ... AS SELECT materializing a durable
// MergeTree copy.
func persistSQL(cluster, store, namespace, name string, partition, order []string) string {
	return utils.NewSQLBuilder().
		Create("TABLE").
		QualifiedName(store, name).
		OnCluster(cluster).
		Engine("MergeTree()").
		PartitionBy(partition).
		OrderBy(order).
		Raw("AS SELECT * FROM").
		QualifiedName(namespace, name).
		String()
}

func columnType(col provision.Column) string {
	switch col.Kind {
	case provision.ColumnFixedText:
		return fmt.Sprintf("FixedString(%d)", col.Length)
	case provision.ColumnVarText:
		return "String"
	default:
		return col.Type
	}
}

func backtickList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = utils.BacktickIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}
