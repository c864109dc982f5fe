package token

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

const purgeBatchSize = 500

// SecurityAuditor records security events raised by the lifecycle manager.
type SecurityAuditor interface {
	SecurityEvent(ctx context.Context, actorID int64, action, entity string, meta map[string]any)
}

// SessionBanner invalidates outstanding access credentials for a session.
// Implemented by Denylist.
type SessionBanner interface {
	Ban(ctx context.Context, sessionID string) error
}

// Service manages the refresh-token lifecycle: issuance, rotation-on-use,
// revocation and retention. Per-token state moves ISSUED to exactly one of
// ROTATED, REVOKED or EXPIRED; a rotated token's successor starts a fresh
// ISSUED state under the same session id.
type Service struct {
	repo     Repository
	banner   SessionBanner
	auditor  SecurityAuditor
	logger   *slog.Logger
	tokenTTL time.Duration
	now      func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, banner SessionBanner, auditor SecurityAuditor, logger *slog.Logger, tokenTTL time.Duration) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		banner:   banner,
		auditor:  auditor,
		logger:   logger,
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// Rotation is the result of a successful validate-and-rotate call. RawSecret
// is the successor's secret, returned exactly once.
type Rotation struct {
	PrincipalID int64
	TenantID    *int64
	SessionID   uuid.UUID
	RawSecret   string
	Token       RefreshToken
}

// Issue mints a new session credential for a principal. The raw secret is
// unrecoverable after this call; losing it requires re-authentication.
func (s *Service) Issue(ctx context.Context, principalID int64, tenantID *int64) (string, RefreshToken, error) {
	raw, err := NewSecret()
	if err != nil {
		return "", RefreshToken{}, err
	}
	now := s.now().UTC()
	rec := RefreshToken{
		ID:          uuid.New(),
		PrincipalID: principalID,
		TenantID:    tenantID,
		SessionID:   uuid.New(),
		SecretHash:  HashSecret(raw),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.tokenTTL),
	}
	if err := s.repo.Insert(ctx, rec); err != nil {
		return "", RefreshToken{}, err
	}
	return raw, rec, nil
}

// ValidateAndRotate exchanges a presented secret for a successor credential.
//
// The presented token is revoked and a successor sharing its session id is
// issued in one atomic step; of two concurrent presentations exactly one
// succeeds. Re-presenting an already revoked secret is treated as a
// credential-theft signal: the whole session chain is revoked before
// ErrReplaySuspected is returned. None of these failures is ever retried.
func (s *Service) ValidateAndRotate(ctx context.Context, raw string) (Rotation, error) {
	rec, err := s.repo.FindByHash(ctx, HashSecret(raw))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Rotation{}, shared.ErrInvalidCredential
		}
		return Rotation{}, err
	}

	now := s.now().UTC()
	if rec.RevokedAt != nil {
		s.flagReplay(ctx, rec)
		return Rotation{}, ErrReplaySuspected
	}
	if !now.Before(rec.ExpiresAt) {
		return Rotation{}, ErrExpired
	}

	rawNext, err := NewSecret()
	if err != nil {
		return Rotation{}, err
	}
	successor := RefreshToken{
		ID:          uuid.New(),
		PrincipalID: rec.PrincipalID,
		TenantID:    rec.TenantID,
		SessionID:   rec.SessionID,
		SecretHash:  HashSecret(rawNext),
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.tokenTTL),
	}

	rotated, err := s.repo.Rotate(ctx, rec.ID, successor)
	if err != nil {
		return Rotation{}, err
	}
	if !rotated {
		// Lost the race against a concurrent presentation.
		return Rotation{}, ErrRevoked
	}
	return Rotation{
		PrincipalID: successor.PrincipalID,
		TenantID:    successor.TenantID,
		SessionID:   successor.SessionID,
		RawSecret:   rawNext,
		Token:       successor,
	}, nil
}

// Revoke terminates a single token. Idempotent.
func (s *Service) Revoke(ctx context.Context, tokenID uuid.UUID) error {
	return s.repo.RevokeByID(ctx, tokenID)
}

// RevokeBySession terminates every token in a session chain and bans the
// session's outstanding access credentials. Idempotent.
func (s *Service) RevokeBySession(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.repo.RevokeBySession(ctx, sessionID); err != nil {
		return err
	}
	s.ban(ctx, sessionID)
	return nil
}

// RevokeAllForPrincipal terminates every session the principal holds.
// Idempotent.
func (s *Service) RevokeAllForPrincipal(ctx context.Context, principalID int64) error {
	sessions, err := s.repo.RevokeAllForPrincipal(ctx, principalID)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, sid := range sessions {
		sid := sid
		g.Go(func() error {
			s.ban(gctx, sid)
			return nil
		})
	}
	return g.Wait()
}

// PurgeExpired removes terminal-state tokens whose terminal timestamp is
// older than the retention window. It works in independently committed
// batches and stops cleanly on context cancellation; rerunning it is a
// no-op once the backlog is drained.
func (s *Service) PurgeExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-retention)
	var total int64
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, err := s.repo.DeleteTerminatedBefore(ctx, cutoff, purgeBatchSize)
		if err != nil {
			return total, err
		}
		total += n
		if n < purgeBatchSize {
			return total, nil
		}
	}
}

func (s *Service) flagReplay(ctx context.Context, rec RefreshToken) {
	s.logger.Warn("refresh token replay suspected",
		slog.Int64("principal_id", rec.PrincipalID),
		slog.String("session_id", rec.SessionID.String()),
	)
	if err := s.repo.RevokeBySession(ctx, rec.SessionID); err != nil {
		s.logger.Error("revoke session chain", slog.Any("error", err))
	}
	s.ban(ctx, rec.SessionID)
	if s.auditor != nil {
		s.auditor.SecurityEvent(ctx, rec.PrincipalID, "token.replay_suspected", "refresh_tokens", map[string]any{
			"session_id": rec.SessionID.String(),
			"token_id":   rec.ID.String(),
		})
	}
}

func (s *Service) ban(ctx context.Context, sessionID uuid.UUID) {
	if s.banner == nil {
		return
	}
	if err := s.banner.Ban(ctx, sessionID.String()); err != nil {
		s.logger.Error("ban session", slog.String("session_id", sessionID.String()), slog.Any("error", err))
	}
}
