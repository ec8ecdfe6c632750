package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/audit"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

var selectColumns = strings.Join(audit.Columns, ", ") + ", tenant_id, email, name"

// Repository stores users in MySQL. Every query is scoped to a tenant and
// skips soft deleted rows unless stated otherwise.
type Repository struct {
	DB *sql.DB
}

// Insert stamps and stores u.
func (r Repository) Insert(ctx context.Context, u *User) error {
	u.BeforeCreate(ctx)

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", Table, selectColumns)
	args := append(u.Values(), u.TenantID, u.Email, u.Name)
	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		if isDuplicate(err) {
			return apperr.Duplicate("User", "email", u.Email)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// Get returns the live user id of tenant.
func (r Repository) Get(ctx context.Context, tenant string, id uuid.UUID) (*User, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ? AND tenant_id = ? AND %s", selectColumns, Table, audit.NotDeleted)

	u, err := scanUser(r.DB.QueryRowContext(ctx, query, id, tenant))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("User", "id", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// List returns one page of the live users of tenant ordered by creation
// time, and the total number of live users.
func (r Repository) List(ctx context.Context, tenant string, page, size int) ([]User, int64, error) {
	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE tenant_id = ? AND %s", Table, audit.NotDeleted)
	if err := r.DB.QueryRowContext(ctx, countQuery, tenant).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE tenant_id = ? AND %s ORDER BY created_at, id LIMIT ? OFFSET ?",
		selectColumns, Table, audit.NotDeleted)
	rows, err := r.DB.QueryContext(ctx, query, tenant, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return out, total, nil
}

// UpdateName renames the live user u and restamps it.
func (r Repository) UpdateName(ctx context.Context, u *User, name string) error {
	u.Name = name
	u.BeforeUpdate(ctx)

	query := fmt.Sprintf("UPDATE %s SET name = ?, updated_at = ?, updated_by = ? WHERE id = ? AND tenant_id = ? AND %s",
		Table, audit.NotDeleted)
	res, err := r.DB.ExecContext(ctx, query, u.Name, u.UpdatedAt, u.UpdatedBy, u.ID, u.TenantID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperr.NotFound("User", "id", u.ID)
	}
	return nil
}

// Owns reports whether tenant owns user id, deleted or not.
func (r Repository) Owns(ctx context.Context, tenant string, id uuid.UUID) (bool, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = ? AND tenant_id = ?", Table)
	if err := r.DB.QueryRowContext(ctx, query, id, tenant).Scan(&n); err != nil {
		return false, fmt.Errorf("check user owner: %w", err)
	}
	return n > 0, nil
}

// Delete soft deletes the live user id.
func (r Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return notFoundOnNoRows(audit.SoftDelete(ctx, r.DB, Table, id), id)
}

// Restore undoes Delete.
func (r Repository) Restore(ctx context.Context, id uuid.UUID) error {
	return notFoundOnNoRows(audit.Restore(ctx, r.DB, Table, id), id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*User, error) {
	var u User
	dest := append(u.ScanTargets(), &u.TenantID, &u.Email, &u.Name)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &u, nil
}

func notFoundOnNoRows(err error, id uuid.UUID) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("User", "id", id)
	}
	return err
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
