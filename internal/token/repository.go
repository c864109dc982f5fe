package token

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Repository defines persistence operations for refresh tokens.
//
// Token rows are keyed by globally unique ids and secret hashes: the by-hash
// lookup is the authentication entry point and necessarily runs before a
// tenant is established, so these queries do not pass through the tenant
// guard. The tenant id stored on each row still scopes every business read.
type Repository interface {
	Insert(ctx context.Context, t RefreshToken) error
	FindByHash(ctx context.Context, hash string) (RefreshToken, error)
	// Rotate atomically revokes the predecessor iff it is still live and
	// inserts the successor in the same transaction. Returns false when a
	// concurrent presentation already rotated the predecessor.
	Rotate(ctx context.Context, predecessorID uuid.UUID, successor RefreshToken) (bool, error)
	RevokeByID(ctx context.Context, id uuid.UUID) error
	RevokeBySession(ctx context.Context, sessionID uuid.UUID) error
	// RevokeAllForPrincipal revokes every live token and returns the
	// affected session ids so callers can invalidate access credentials.
	RevokeAllForPrincipal(ctx context.Context, principalID int64) ([]uuid.UUID, error)
	// DeleteTerminatedBefore removes up to limit terminal-state rows whose
	// terminal timestamp precedes the cutoff. Each call commits
	// independently.
	DeleteTerminatedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const tokenColumns = `id, principal_id, tenant_id, session_id, secret_hash, issued_at, expires_at, revoked_at`

// Insert persists a freshly issued token.
func (r *PGRepository) Insert(ctx context.Context, t RefreshToken) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO refresh_tokens (`+tokenColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.PrincipalID, t.TenantID, t.SessionID, t.SecretHash, t.IssuedAt, t.ExpiresAt, t.RevokedAt)
	return err
}

// FindByHash fetches a token row by secret hash.
func (r *PGRepository) FindByHash(ctx context.Context, hash string) (RefreshToken, error) {
	var t RefreshToken
	err := r.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM refresh_tokens WHERE secret_hash = $1`, hash).
		Scan(&t.ID, &t.PrincipalID, &t.TenantID, &t.SessionID, &t.SecretHash, &t.IssuedAt, &t.ExpiresAt, &t.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RefreshToken{}, shared.ErrNotFound
		}
		return RefreshToken{}, err
	}
	return t, nil
}

// Rotate performs the atomic revoke-and-insert. The conditional UPDATE is
// the serialization point: of two concurrent presentations of one secret,
// exactly one sees RowsAffected == 1.
func (r *PGRepository) Rotate(ctx context.Context, predecessorID uuid.UUID, successor RefreshToken) (bool, error) {
	var rotated bool
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`,
			predecessorID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return nil
		}
		rotated = true
		_, err = tx.Exec(ctx,
			`INSERT INTO refresh_tokens (`+tokenColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			successor.ID, successor.PrincipalID, successor.TenantID, successor.SessionID,
			successor.SecretHash, successor.IssuedAt, successor.ExpiresAt, successor.RevokedAt)
		return err
	})
	if err != nil {
		return false, err
	}
	return rotated, nil
}

// RevokeByID sets revoked_at on a live token. Revoking an already revoked
// token is a no-op.
func (r *PGRepository) RevokeByID(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL`, id)
	return err
}

// RevokeBySession revokes every live token in a session chain.
func (r *PGRepository) RevokeBySession(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE session_id = $1 AND revoked_at IS NULL`,
		sessionID)
	return err
}

// RevokeAllForPrincipal revokes every live token owned by the principal.
func (r *PGRepository) RevokeAllForPrincipal(ctx context.Context, principalID int64) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE refresh_tokens SET revoked_at = now()
		 WHERE principal_id = $1 AND revoked_at IS NULL
		 RETURNING session_id`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	seen := make(map[uuid.UUID]struct{})
	var sessions []uuid.UUID
	for rows.Next() {
		var sid uuid.UUID
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		if _, ok := seen[sid]; ok {
			continue
		}
		seen[sid] = struct{}{}
		sessions = append(sessions, sid)
	}
	return sessions, rows.Err()
}

// DeleteTerminatedBefore deletes one batch of terminal rows past the cutoff.
// Live tokens are never touched, so the sweep is safe to run concurrently
// with issuance and validation.
func (r *PGRepository) DeleteTerminatedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM refresh_tokens WHERE id IN (
			SELECT id FROM refresh_tokens
			WHERE (revoked_at IS NOT NULL AND revoked_at < $1)
			   OR expires_at < $1
			LIMIT $2
		 )`, cutoff, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ Repository = (*PGRepository)(nil)
