package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/reqctx"
)

var (
	userID    = uuid.MustParse("8f14e45f-ceea-467f-a0e6-5c1a4b3c9d21")
	createdAt = time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)
	rowCols   = []string{"id", "created_at", "created_by", "updated_at", "updated_by", "deleted_at", "tenant_id", "email", "name"}
)

func newMock(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return Repository{DB: db}, mock
}

func userContext(user, tenant string) context.Context {
	s := reqctx.New()
	s.BindPrincipal(user, tenant, true)
	return reqctx.NewContext(context.Background(), s)
}

func TestInsert(t *testing.T) {
	query := regexp.QuoteMeta("INSERT INTO users (id, created_at, created_by, updated_at, updated_by, deleted_at, tenant_id, email, name) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")

	t.Run("stored", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec(query).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "alice", sqlmock.AnyArg(), "alice", nil, "acme", "bob@acme.io", "Bob").
			WillReturnResult(sqlmock.NewResult(0, 1))

		u := &User{TenantID: "acme", Email: "bob@acme.io", Name: "Bob"}
		require.NoError(t, repo.Insert(userContext("alice", "acme"), u))
		assert.True(t, u.IsPersisted())
		assert.Equal(t, "alice", u.CreatedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec(query).WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'bob@acme.io'"})

		err := repo.Insert(context.Background(), &User{Email: "bob@acme.io"})
		kind, ok := apperr.KindOf(err)
		require.True(t, ok)
		assert.Equal(t, apperr.KindDuplicate, kind)
		assert.EqualError(t, err, "User already exists with email: 'bob@acme.io' [4009]")
	})

	t.Run("other driver error", func(t *testing.T) {
		repo, mock := newMock(t)
		boom := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
		mock.ExpectExec(query).WillReturnError(boom)

		err := repo.Insert(context.Background(), &User{})
		assert.ErrorIs(t, err, boom)
		_, ok := apperr.As(err)
		assert.False(t, ok)
	})
}

func TestGet(t *testing.T) {
	query := regexp.QuoteMeta("SELECT id, created_at, created_by, updated_at, updated_by, deleted_at, tenant_id, email, name FROM users WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL")

	t.Run("found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(query).
			WithArgs(userID, "acme").
			WillReturnRows(sqlmock.NewRows(rowCols).
				AddRow(userID.String(), createdAt, "alice", createdAt, "alice", nil, "acme", "bob@acme.io", "Bob"))

		u, err := repo.Get(context.Background(), "acme", userID)
		require.NoError(t, err)
		assert.Equal(t, userID, u.ID)
		assert.Equal(t, "Bob", u.Name)
		assert.False(t, u.IsDeleted())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows(rowCols))

		_, err := repo.Get(context.Background(), "acme", userID)
		assert.ErrorIs(t, err, apperr.ErrNotFound)
	})
}

func TestList(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE tenant_id = ? AND deleted_at IS NULL")).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE tenant_id = ? AND deleted_at IS NULL ORDER BY created_at, id LIMIT ? OFFSET ?")).
		WithArgs("acme", 2, 2).
		WillReturnRows(sqlmock.NewRows(rowCols).
			AddRow(userID.String(), createdAt, "alice", createdAt, "alice", nil, "acme", "carol@acme.io", "Carol"))

	got, total, err := repo.List(context.Background(), "acme", 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, got, 1)
	assert.Equal(t, "Carol", got[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateName(t *testing.T) {
	query := regexp.QuoteMeta("UPDATE users SET name = ?, updated_at = ?, updated_by = ? WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL")

	t.Run("updated", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec(query).
			WithArgs("Robert", sqlmock.AnyArg(), "alice", userID, "acme").
			WillReturnResult(sqlmock.NewResult(0, 1))

		u := &User{TenantID: "acme", Name: "Bob"}
		u.ID = userID
		require.NoError(t, repo.UpdateName(userContext("alice", "acme"), u, "Robert"))
		assert.Equal(t, "Robert", u.Name)
		assert.Equal(t, "alice", u.UpdatedBy)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("gone meanwhile", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec(query).WillReturnResult(sqlmock.NewResult(0, 0))

		u := &User{TenantID: "acme"}
		u.ID = userID
		assert.ErrorIs(t, repo.UpdateName(context.Background(), u, "Robert"), apperr.ErrNotFound)
	})
}

func TestDeleteAndRestore(t *testing.T) {
	del := regexp.QuoteMeta("UPDATE users SET deleted_at = ?")
	restore := regexp.QuoteMeta("UPDATE users SET deleted_at = NULL")

	tests := []struct {
		name    string
		query   string
		call    func(Repository) error
		result  driverResult
		wantErr error
	}{
		{name: "delete", query: del, call: func(r Repository) error { return r.Delete(context.Background(), userID) }, result: driverResult{rows: 1}},
		{name: "delete missing", query: del, call: func(r Repository) error { return r.Delete(context.Background(), userID) }, wantErr: apperr.ErrNotFound},
		{name: "restore", query: restore, call: func(r Repository) error { return r.Restore(context.Background(), userID) }, result: driverResult{rows: 1}},
		{name: "restore live", query: restore, call: func(r Repository) error { return r.Restore(context.Background(), userID) }, wantErr: apperr.ErrNotFound},
		{name: "driver error", query: del, call: func(r Repository) error { return r.Delete(context.Background(), userID) }, result: driverResult{err: errBoom}, wantErr: errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMock(t)
			exp := mock.ExpectExec(tt.query)
			if tt.result.err != nil {
				exp.WillReturnError(tt.result.err)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.result.rows))
			}

			err := tt.call(repo)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOwns(t *testing.T) {
	repo, mock := newMock(t)
	query := regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE id = ? AND tenant_id = ?")
	mock.ExpectQuery(query).WithArgs(userID, "acme").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1))
	mock.ExpectQuery(query).WithArgs(userID, "globex").WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(0))
	mock.ExpectQuery(query).WillReturnError(sql.ErrConnDone)

	owned, err := repo.Owns(context.Background(), "acme", userID)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = repo.Owns(context.Background(), "globex", userID)
	require.NoError(t, err)
	assert.False(t, owned)

	_, err = repo.Owns(context.Background(), "acme", userID)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

var errBoom = errors.New("lock wait timeout")

type driverResult struct {
	rows int64
	err  error
}
