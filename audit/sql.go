package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Column names of the audit metadata, in the order of Values and
// ScanTargets.
var Columns = []string{"id", "created_at", "created_by", "updated_at", "updated_by", "deleted_at"}

// NotDeleted is the predicate selecting live rows.
const NotDeleted = "deleted_at IS NULL"

// ErrInvalidTable is returned for table names that are not plain
// identifiers.
var ErrInvalidTable = errors.New("invalid table name")

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Values returns the metadata column values for an INSERT.
func (m *Metadata) Values() []any {
	return []any{m.ID, m.CreatedAt, m.CreatedBy, m.UpdatedAt, m.UpdatedBy, m.DeletedAt}
}

// ScanTargets returns the destinations for scanning the metadata columns.
func (m *Metadata) ScanTargets() []any {
	return []any{&m.ID, &m.CreatedAt, &m.CreatedBy, &m.UpdatedAt, &m.UpdatedBy, &m.DeletedAt}
}

// SoftDelete marks the live row id of table as deleted, stamping the
// auditor of ctx. It returns an error wrapping sql.ErrNoRows when no live
// row matches.
func SoftDelete(ctx context.Context, db Execer, table string, id uuid.UUID) error {
	if !identifier.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	t := now()
	query := fmt.Sprintf("UPDATE %s SET deleted_at = ?, updated_at = ?, updated_by = ? WHERE id = ? AND deleted_at IS NULL", table)
	return execOne(ctx, db, query, "soft delete", table, id, t, t, CurrentAuditor(ctx), id)
}

// Restore clears the deletion mark of row id of table. It returns an error
// wrapping sql.ErrNoRows when no deleted row matches.
func Restore(ctx context.Context, db Execer, table string, id uuid.UUID) error {
	if !identifier.MatchString(table) {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	query := fmt.Sprintf("UPDATE %s SET deleted_at = NULL, updated_at = ?, updated_by = ? WHERE id = ? AND deleted_at IS NOT NULL", table)
	return execOne(ctx, db, query, "restore", table, id, now(), CurrentAuditor(ctx), id)
}

func execOne(ctx context.Context, db Execer, query, op, table string, id uuid.UUID, args ...any) error {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, table, id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s %s: %w", op, table, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s %s: %w", op, table, id, sql.ErrNoRows)
	}
	return nil
}
