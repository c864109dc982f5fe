package principal

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// RepositoryPort defines data access methods for principal management.
type RepositoryPort interface {
	List(ctx context.Context, tenantID int64) ([]Principal, error)
	Insert(ctx context.Context, tenantID *int64, username, passwordHash string, superAdmin bool) (Principal, error)
	SetActive(ctx context.Context, tenantID, principalID int64, active bool) error
}

// SessionRevoker terminates sessions when an account is deactivated.
type SessionRevoker interface {
	RevokeAllForPrincipal(ctx context.Context, principalID int64) error
}

// Service handles principal management business logic.
type Service struct {
	repo     RepositoryPort
	sessions SessionRevoker
	logger   *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, sessions SessionRevoker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, sessions: sessions, logger: logger}
}

// List returns the tenant's principals.
func (s *Service) List(ctx context.Context, tenantID int64) ([]Principal, error) {
	return s.repo.List(ctx, tenantID)
}

// Create registers a new principal with a bcrypt password hash.
func (s *Service) Create(ctx context.Context, tenantID *int64, username, password string, superAdmin bool) (Principal, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(password) < 8 {
		return Principal{}, httpx.ErrValidation
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return Principal{}, err
	}
	return s.repo.Insert(ctx, tenantID, username, string(hash), superAdmin)
}

// Deactivate disables an account and terminates every session it holds.
func (s *Service) Deactivate(ctx context.Context, tenantID, principalID int64) error {
	if err := s.repo.SetActive(ctx, tenantID, principalID, false); err != nil {
		return err
	}
	if err := s.sessions.RevokeAllForPrincipal(ctx, principalID); err != nil {
		s.logger.Error("revoke sessions on deactivate", slog.Int64("principal_id", principalID), slog.Any("error", err))
	}
	return nil
}

// Reactivate restores a disabled account.
func (s *Service) Reactivate(ctx context.Context, tenantID, principalID int64) error {
	return s.repo.SetActive(ctx, tenantID, principalID, true)
}
