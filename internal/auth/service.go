package auth

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenant"
)

// TenantSource resolves tenants for login. Implemented by tenant.Repository.
type TenantSource interface {
	GetBySlug(ctx context.Context, slug string) (tenant.Tenant, error)
}

// Service wraps authentication business rules.
type Service struct {
	repo    Repository
	tenants TenantSource
}

// NewService constructs a new Service.
func NewService(repo Repository, tenants TenantSource) *Service {
	return &Service{repo: repo, tenants: tenants}
}

// Authenticate validates tenant/username/password credentials. Every failure
// mode returns the same credential error so callers cannot probe which check
// failed.
func (s *Service) Authenticate(ctx context.Context, tenantSlug, username, password string) (*Principal, error) {
	var principal *Principal
	var err error

	if tenantSlug == "" {
		principal, err = s.repo.FindPlatformOperator(ctx, username)
	} else {
		var t tenant.Tenant
		t, err = s.tenants.GetBySlug(ctx, tenantSlug)
		if err != nil || !t.IsActive {
			return nil, shared.ErrInvalidCredential
		}
		principal, err = s.repo.FindByUsername(ctx, t.ID, username)
	}
	if err != nil {
		return nil, shared.ErrInvalidCredential
	}
	if !principal.IsActive {
		return nil, shared.ErrInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword([]byte(principal.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredential
	}
	return principal, nil
}

// LoadPrincipal fetches an active principal by id for request authentication.
func (s *Service) LoadPrincipal(ctx context.Context, id int64) (*Principal, error) {
	principal, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredential
		}
		return nil, err
	}
	if !principal.IsActive {
		return nil, shared.ErrInvalidCredential
	}
	return principal, nil
}
