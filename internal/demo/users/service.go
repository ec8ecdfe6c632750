package users

import (
	"context"

	"github.com/google/uuid"

	"github.com/omnipulse/go-shared-kernel/apperr"
	"github.com/omnipulse/go-shared-kernel/errcode"
	"github.com/omnipulse/go-shared-kernel/logging"
	"github.com/omnipulse/go-shared-kernel/reqctx"
	"github.com/omnipulse/go-shared-kernel/response"
)

const component = "UserService"

// MaxPageSize bounds List.
const MaxPageSize = 100

// Store is the persistence the service needs. Repository implements it.
type Store interface {
	Insert(ctx context.Context, u *User) error
	Get(ctx context.Context, tenant string, id uuid.UUID) (*User, error)
	List(ctx context.Context, tenant string, page, size int) ([]User, int64, error)
	UpdateName(ctx context.Context, u *User, name string) error
	Owns(ctx context.Context, tenant string, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) error
}

// Service implements the user use cases for the tenant of the request.
type Service struct {
	store  Store
	aspect *logging.Aspect
}

// NewService returns a Service over store. Calls are traced and logged
// through aspect.
func NewService(store Store, aspect *logging.Aspect) *Service {
	return &Service{store: store, aspect: aspect}
}

// Create stores a new user for the current tenant.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	return logging.Observe(ctx, s.aspect, component, "Create", []any{req}, func(ctx context.Context) (*User, error) {
		tenant, err := currentTenant(ctx)
		if err != nil {
			return nil, err
		}
		u := &User{TenantID: tenant, Email: req.Email, Name: req.Name}
		if err := s.store.Insert(ctx, u); err != nil {
			return nil, err
		}
		return u, nil
	})
}

// Get returns a live user of the current tenant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return logging.Observe(ctx, s.aspect, component, "Get", []any{id}, func(ctx context.Context) (*User, error) {
		tenant, err := currentTenant(ctx)
		if err != nil {
			return nil, err
		}
		return s.store.Get(ctx, tenant, id)
	})
}

// List returns one page of the current tenant's live users. page is zero
// based and size must be between 1 and MaxPageSize.
func (s *Service) List(ctx context.Context, page, size int) (response.Page[User], error) {
	return logging.Observe(ctx, s.aspect, component, "List", []any{page, size}, func(ctx context.Context) (response.Page[User], error) {
		if page < 0 || size < 1 || size > MaxPageSize {
			return response.Page[User]{}, apperr.Wrap(logging.ErrIllegalArgument,
				"Page must not be negative and size must be between 1 and 100", errcode.BadRequest)
		}
		tenant, err := currentTenant(ctx)
		if err != nil {
			return response.Page[User]{}, err
		}

		content, total, err := s.store.List(ctx, tenant, page, size)
		if err != nil {
			return response.Page[User]{}, err
		}
		return response.NewPage(content, page, size, total), nil
	})
}

// Rename changes the name of a live user of the current tenant.
func (s *Service) Rename(ctx context.Context, id uuid.UUID, req UpdateRequest) (*User, error) {
	return logging.Observe(ctx, s.aspect, component, "Rename", []any{id, req}, func(ctx context.Context) (*User, error) {
		tenant, err := currentTenant(ctx)
		if err != nil {
			return nil, err
		}
		u, err := s.store.Get(ctx, tenant, id)
		if err != nil {
			return nil, err
		}
		if err := s.store.UpdateName(ctx, u, req.Name); err != nil {
			return nil, err
		}
		return u, nil
	})
}

// Delete soft deletes a user of the current tenant.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return logging.ObserveErr(ctx, s.aspect, component, "Delete", []any{id}, func(ctx context.Context) error {
		if err := s.checkOwner(ctx, id); err != nil {
			return err
		}
		return s.store.Delete(ctx, id)
	})
}

// Restore undoes Delete.
func (s *Service) Restore(ctx context.Context, id uuid.UUID) error {
	return logging.ObserveErr(ctx, s.aspect, component, "Restore", []any{id}, func(ctx context.Context) error {
		if err := s.checkOwner(ctx, id); err != nil {
			return err
		}
		return s.store.Restore(ctx, id)
	})
}

// checkOwner hides users of other tenants behind a not found error.
func (s *Service) checkOwner(ctx context.Context, id uuid.UUID) error {
	tenant, err := currentTenant(ctx)
	if err != nil {
		return err
	}
	owned, err := s.store.Owns(ctx, tenant, id)
	if err != nil {
		return err
	}
	if !owned {
		return apperr.NotFound("User", "id", id)
	}
	return nil
}

func currentTenant(ctx context.Context) (string, error) {
	tenant, ok := reqctx.TenantID(ctx)
	if !ok || tenant == "" {
		return "", apperr.Unauthorized("Tenant context is required", nil)
	}
	return tenant, nil
}
