// Package users is a small tenant scoped user service built on the kernel.
// It exists to exercise the kernel end to end: audited records with soft
// delete in MySQL, the logging aspect around service calls and the gin
// adapter in front of it.
package users

import "github.com/omnipulse/go-shared-kernel/audit"

// Table is the users table.
const Table = "users"

// User is an audited user record owned by a tenant.
type User struct {
	audit.Metadata
	TenantID string `json:"tenantId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

// CreateRequest is the body of a create call.
type CreateRequest struct {
	Email string `json:"email" binding:"required,email,max=255"`
	Name  string `json:"name" binding:"required,max=100"`
}

// UpdateRequest is the body of an update call.
type UpdateRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}
