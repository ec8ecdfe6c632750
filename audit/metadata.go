// Package audit provides the audit metadata embedded in persisted records:
// identity, creation and modification stamps, and soft deletion.
//
//	type User struct {
//		audit.Metadata
//		Email string
//	}
//
//	u.BeforeCreate(ctx) // assigns ID, CreatedAt/By, UpdatedAt/By
//	u.MarkAsDeleted()
package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/omnipulse/go-shared-kernel/reqctx"
)

// SystemAuditor is recorded when a write happens outside of a user request.
const SystemAuditor = "SYSTEM"

var (
	now   = func() time.Time { return time.Now().UTC() }
	newID = uuid.New
)

// CurrentAuditor returns the user of the request in ctx, or SystemAuditor
// when there is none or it is blank.
func CurrentAuditor(ctx context.Context) string {
	if id, ok := reqctx.UserID(ctx); ok && strings.TrimSpace(id) != "" {
		return id
	}
	return SystemAuditor
}

// Metadata is embedded in every audited record.
type Metadata struct {
	ID        uuid.UUID  `json:"id"`
	CreatedAt time.Time  `json:"createdAt"`
	CreatedBy string     `json:"createdBy"`
	UpdatedAt time.Time  `json:"updatedAt"`
	UpdatedBy string     `json:"updatedBy"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// Audited is implemented by every record embedding Metadata.
type Audited interface {
	AuditMetadata() *Metadata
}

// AuditMetadata implements Audited.
func (m *Metadata) AuditMetadata() *Metadata { return m }

// BeforeCreate stamps a record about to be inserted. An ID is assigned when
// the record has none.
func (m *Metadata) BeforeCreate(ctx context.Context) {
	if m.ID == uuid.Nil {
		m.ID = newID()
	}
	t := now()
	who := CurrentAuditor(ctx)
	m.CreatedAt, m.CreatedBy = t, who
	m.UpdatedAt, m.UpdatedBy = t, who
}

// BeforeUpdate stamps a record about to be updated. Creation stamps are
// never touched.
func (m *Metadata) BeforeUpdate(ctx context.Context) {
	m.UpdatedAt = now()
	m.UpdatedBy = CurrentAuditor(ctx)
}

// MarkAsDeleted soft deletes the record.
func (m *Metadata) MarkAsDeleted() {
	t := now()
	m.DeletedAt = &t
}

// Restore undoes MarkAsDeleted.
func (m *Metadata) Restore() { m.DeletedAt = nil }

// IsDeleted reports whether the record is soft deleted.
func (m *Metadata) IsDeleted() bool { return m.DeletedAt != nil }

// IsPersisted reports whether the record has been assigned an ID.
func (m *Metadata) IsPersisted() bool { return m.ID != uuid.Nil }

// SameEntity reports whether m and other identify the same record. Records
// without an ID are never the same entity, not even as themselves.
func (m *Metadata) SameEntity(other *Metadata) bool {
	if m == nil || other == nil {
		return false
	}
	return m.ID != uuid.Nil && m.ID == other.ID
}

func (m *Metadata) String() string {
	return fmt.Sprintf("{id=%s, deleted=%t}", m.ID, m.IsDeleted())
}
