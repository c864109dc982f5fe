package projects

import (
	"context"
	"strings"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// RepositoryPort defines data access methods for projects.
type RepositoryPort interface {
	List(ctx context.Context, tenantID int64) ([]Project, error)
	Get(ctx context.Context, tenantID, projectID int64) (Project, error)
	Insert(ctx context.Context, p Project) (Project, error)
	UpdateStatus(ctx context.Context, tenantID, projectID int64, status string) error
}

// Service handles project business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns the tenant's projects.
func (s *Service) List(ctx context.Context, tenantID int64) ([]Project, error) {
	return s.repo.List(ctx, tenantID)
}

// Get fetches one project.
func (s *Service) Get(ctx context.Context, tenantID, projectID int64) (Project, error) {
	return s.repo.Get(ctx, tenantID, projectID)
}

// Create validates and persists a new draft project.
func (s *Service) Create(ctx context.Context, tenantID int64, code, name string) (Project, error) {
	code = strings.TrimSpace(strings.ToUpper(code))
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return Project{}, httpx.ErrValidation
	}
	return s.repo.Insert(ctx, Project{
		TenantID: tenantID,
		Code:     code,
		Name:     name,
		Status:   StatusDraft,
	})
}

// Archive moves a project to the archived status.
func (s *Service) Archive(ctx context.Context, tenantID, projectID int64) error {
	return s.repo.UpdateStatus(ctx, tenantID, projectID, StatusArchived)
}
