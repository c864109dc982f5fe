package rbac

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// GrantSource fetches a principal's role grants, keyed by principal and
// tenant. Implemented by Repository; tests use in-memory fakes.
type GrantSource interface {
	GrantsForPrincipal(ctx context.Context, principalID, tenantID int64) ([]RoleGrant, error)
	AllPermissionCodes(ctx context.Context) ([]string, error)
}

// Resolver reduces a principal's role set to a single comparable access rank
// plus an effective permission set. Results are request-scoped: callers must
// re-resolve on every request since assignments change between requests.
type Resolver struct {
	src    GrantSource
	logger *slog.Logger
}

// NewResolver constructs a Resolver.
func NewResolver(src GrantSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{src: src, logger: logger}
}

// Resolve computes the effective access for a principal within a tenant.
//
// A principal with zero effective grants resolves to the minimum rank, never
// an error. The super-admin override is the only branch that bypasses
// per-role aggregation; it grants the maximum rank and every known active
// permission code.
func (r *Resolver) Resolve(ctx context.Context, principalID, tenantID int64, isSuperAdmin bool) (Access, error) {
	if isSuperAdmin {
		codes, err := readWithRetry(ctx, func() ([]string, error) {
			return r.src.AllPermissionCodes(ctx)
		})
		if err != nil {
			return Access{}, err
		}
		return Access{Rank: MaxAccessLevel, PermissionCodes: codes, IsSuperAdmin: true}, nil
	}

	grants, err := readWithRetry(ctx, func() ([]RoleGrant, error) {
		return r.src.GrantsForPrincipal(ctx, principalID, tenantID)
	})
	if err != nil {
		return Access{}, err
	}

	rank := MinAccessLevel
	for _, g := range grants {
		if g.Effective() && g.Role.AccessLevel > rank {
			rank = g.Role.AccessLevel
		}
	}
	return Access{Rank: rank, PermissionCodes: EffectivePermissionCodes(grants)}, nil
}

const (
	readRetryAttempts = 3
	readRetryBase     = 50 * time.Millisecond
)

// readWithRetry retries read-only resolution calls on transient connection
// errors with capped backoff. Write paths are never retried: a retried
// rotate-and-issue could double-issue a successor.
func readWithRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var out T
	var err error
	for attempt := 0; attempt < readRetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return out, ctx.Err()
			case <-time.After(readRetryBase << (attempt - 1)):
			}
		}
		out, err = fn()
		if err == nil || !pgconn.SafeToRetry(err) {
			return out, err
		}
	}
	return out, err
}
