// Package auditlog is the optional write-behind mirror described in
// SPEC_FULL.md §4.1: the in-memory Store stays authoritative, but when
// a Postgres DSN is configured, three append-only audit trails are
// mirrored for operator SQL queries. Grounded on
// sawpanic-cryptorun/internal/persistence/postgres/trades_repo.go's
// sqlx+lib/pq insert pattern, including its pq.Error unique-violation
// handling (code 23505).
package auditlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	_ "github.com/lib/pq" // postgres driver registration
)

// Sink mirrors audit rows to Postgres. A nil *Sink is valid and every
// method becomes a no-op, so callers never need a feature flag.
type Sink struct {
	db      *sqlx.DB
	timeout time.Duration
}

// Open connects to dsn and ensures the audit tables exist. Pass an
// empty dsn to get a no-op Sink (audit mirroring disabled).
func Open(dsn string, timeout time.Duration) (*Sink, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("reasoncard: connect audit db: %w", err)
	}
	s := &Sink{db: db, timeout: timeout}
	if err := s.migrate(context.Background()); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sink) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS reason_fetch_audit (
			id BIGSERIAL PRIMARY KEY,
			event_id TEXT NOT NULL,
			adapter TEXT NOT NULL,
			duration_ms BIGINT NOT NULL,
			candidate_count INT NOT NULL,
			err TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (event_id, adapter)
		);
		CREATE TABLE IF NOT EXISTS reason_status_transition_audit (
			id BIGSERIAL PRIMARY KEY,
			transition_id TEXT NOT NULL UNIQUE,
			report_id TEXT NOT NULL,
			from_status TEXT,
			to_status TEXT NOT NULL,
			note TEXT,
			changed_at TIMESTAMPTZ NOT NULL
		);
		CREATE TABLE IF NOT EXISTS notification_dispatch_audit (
			id BIGSERIAL PRIMARY KEY,
			notification_id TEXT NOT NULL UNIQUE,
			user_id TEXT NOT NULL,
			event_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			delta_annotation BOOLEAN NOT NULL,
			sent_at TIMESTAMPTZ NOT NULL,
			attributes JSONB
		);
	`)
	return err
}

// RecordFetch mirrors one adapter's fetch-duration record from the
// Reason Engine's commit step (spec.md §4.3.6).
func (s *Sink) RecordFetch(ctx context.Context, eventID, adapter string, d time.Duration, candidates int, fetchErr error) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	var errText sql.NullString
	if fetchErr != nil {
		errText = sql.NullString{String: fetchErr.Error(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reason_fetch_audit (event_id, adapter, duration_ms, candidate_count, err)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id, adapter) DO NOTHING`,
		eventID, adapter, d.Milliseconds(), candidates, errText)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return // already mirrored, not an error
		}
	}
}

// RecordTransition mirrors a ReasonStatusTransition row (spec.md §4.4).
func (s *Sink) RecordTransition(ctx context.Context, transitionID, reportID, from, to, note string, changedAt time.Time) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	_, _ = s.db.ExecContext(ctx, `
		INSERT INTO reason_status_transition_audit (transition_id, report_id, from_status, to_status, note, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (transition_id) DO NOTHING`,
		transitionID, reportID, from, to, note, changedAt)
}

// RecordNotification mirrors a dispatched Notification (spec.md §4.5).
func (s *Sink) RecordNotification(ctx context.Context, notificationID, userID, eventID, channel string, delta bool, sentAt time.Time, attrs map[string]interface{}) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	attrJSON, _ := json.Marshal(attrs)
	_, _ = s.db.ExecContext(ctx, `
		INSERT INTO notification_dispatch_audit (notification_id, user_id, event_id, channel, delta_annotation, sent_at, attributes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (notification_id) DO NOTHING`,
		notificationID, userID, eventID, channel, delta, sentAt, attrJSON)
}

func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	return s.db.Close()
}
