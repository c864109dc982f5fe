// Package audit persists security-relevant events. Replay detection and the
// cross-tenant escape hatch both record here; the table is global so platform
// operators can review events across tenants.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Event represents a record stored in audit_events.
type Event struct {
	ActorID  int64
	TenantID *int64
	Action   string
	Entity   string
	EntityID string
	Meta     map[string]any
	At       time.Time
}

// Logger writes records into audit_events.
type Logger struct {
	pool *pgxpool.Pool
	log  *slog.Logger
}

// NewLogger returns a new audit Logger.
func NewLogger(pool *pgxpool.Pool, log *slog.Logger) *Logger {
	if log == nil {
		log = slog.Default()
	}
	return &Logger{pool: pool, log: log}
}

// Record persists the event.
func (l *Logger) Record(ctx context.Context, ev Event) error {
	if l == nil {
		return errors.New("audit logger not initialised")
	}
	if ev.Action == "" || ev.Entity == "" {
		return errors.New("audit event requires action/entity")
	}
	metaJSON, err := json.Marshal(ev.Meta)
	if err != nil {
		return err
	}
	var at *time.Time
	if !ev.At.IsZero() {
		at = &ev.At
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO audit_events (actor_id, tenant_id, action, entity, entity_id, meta, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()))`,
		ev.ActorID, ev.TenantID, ev.Action, ev.Entity, ev.EntityID, metaJSON, at)
	return err
}

// SecurityEvent records an event without an entity id, logging instead of
// failing on persistence errors. Security reporting must never break the
// request path it observes.
func (l *Logger) SecurityEvent(ctx context.Context, actorID int64, action, entity string, meta map[string]any) {
	if err := l.Record(ctx, Event{ActorID: actorID, Action: action, Entity: entity, EntityID: "-", Meta: meta}); err != nil {
		l.log.Error("record security event", slog.String("action", action), slog.Any("error", err))
	}
}
