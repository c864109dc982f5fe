package tenant

import (
	"context"
	"log/slog"
)

// SecurityAuditor records security-relevant events. Implemented by the audit
// package; kept as an interface so the guard stays free of persistence
// concerns.
type SecurityAuditor interface {
	SecurityEvent(ctx context.Context, actorID int64, action, entity string, meta map[string]any)
}

// Guard enforces tenant scoping on every query it is handed. It is stateless
// per call; the classification table is read-only after construction.
type Guard struct {
	classes map[Kind]Class
	logger  *slog.Logger
	auditor SecurityAuditor
}

// NewGuard constructs a Guard over the fixed classification table.
func NewGuard(logger *slog.Logger, auditor SecurityAuditor) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		classes: Classification(),
		logger:  logger,
		auditor: auditor,
	}
}

// Scope applies the tenant boundary to a query.
//
// Tenant-scoped kinds get an equality predicate on tenant_id; an absent
// tenant id fails closed. Global kinds pass through unmodified, and supplying
// a tenant id for one is rejected as a caller bug so cross-tenant platform
// views cannot be silently narrowed.
func (g *Guard) Scope(q *Query, tenantID *int64) error {
	class, ok := g.classes[q.kind]
	if !ok {
		return &ScopeError{Kind: q.kind, Reason: "unknown entity kind"}
	}

	switch class {
	case ClassGlobal:
		if tenantID != nil {
			return &ScopeError{Kind: q.kind, Reason: "tenant filter supplied for global entity"}
		}
		return nil
	default:
		if tenantID == nil || *tenantID == 0 {
			return &ScopeError{Kind: q.kind, Reason: "tenant id required"}
		}
		if q.kind == KindRole {
			// System roles (tenant_id IS NULL) are visible to every
			// tenant as read-only templates.
			q.Where("(tenant_id = ? OR tenant_id IS NULL)", *tenantID)
		} else {
			q.Where("tenant_id = ?", *tenantID)
		}
		q.scoped = true
		return nil
	}
}

// ScopeCrossTenant is the audited escape hatch for platform-operator queries
// that intentionally span tenants. Every use is logged with the invoking
// principal and recorded as a security event.
func (g *Guard) ScopeCrossTenant(ctx context.Context, q *Query, principalID int64, reason string) error {
	if reason == "" {
		return &ScopeError{Kind: q.kind, Reason: "cross-tenant access requires a reason"}
	}
	class, ok := g.classes[q.kind]
	if !ok {
		return &ScopeError{Kind: q.kind, Reason: "unknown entity kind"}
	}
	if class == ClassGlobal {
		return &ScopeError{Kind: q.kind, Reason: "cross-tenant scope is meaningless for global entities"}
	}

	q.exempt = true
	g.logger.Warn("cross-tenant query",
		slog.Int64("principal_id", principalID),
		slog.String("entity", string(q.kind)),
		slog.String("reason", reason),
	)
	if g.auditor != nil {
		g.auditor.SecurityEvent(ctx, principalID, "tenant.cross_tenant_query", string(q.kind), map[string]any{
			"reason": reason,
		})
	}
	return nil
}
