// Package journal keeps an audit trail of bulk order submissions.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	StatusPending   = "PENDING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	// StatusStale marks a submission whose response arrived after the
	// operator had already re-parsed.
	StatusStale = "STALE"
)

var ErrNotFound = errors.New("journal entry not found")

type Entry struct {
	ID         uuid.UUID  `json:"id"`
	VendorID   string     `json:"vendor_id"`
	SessionID  string     `json:"session_id"`
	BatchID    uuid.UUID  `json:"batch_id"`
	Source     string     `json:"source"`
	Orders     int        `json:"orders"`
	Status     string     `json:"status"`
	Created    int        `json:"created"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

type Outcome struct {
	Created int
	Err     error
	Stale   bool
}

func (o Outcome) Status() string {
	switch {
	case o.Stale:
		return StatusStale
	case o.Err != nil:
		return StatusFailed
	default:
		return StatusSucceeded
	}
}

type Journal interface {
	Start(ctx context.Context, e Entry) (uuid.UUID, error)
	Finish(ctx context.Context, id uuid.UUID, o Outcome) error
	Recent(ctx context.Context, vendorID string, limit int) ([]Entry, error)
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS bulk_submissions (
	id            uuid PRIMARY KEY,
	vendor_id     text NOT NULL,
	session_id    text NOT NULL,
	batch_id      uuid NOT NULL,
	source        text NOT NULL,
	order_count   integer NOT NULL,
	status        text NOT NULL,
	created_count integer NOT NULL DEFAULT 0,
	error         text NOT NULL DEFAULT '',
	created_at    timestamptz NOT NULL DEFAULT now(),
	finished_at   timestamptz
);
CREATE INDEX IF NOT EXISTS bulk_submissions_vendor_created_idx
	ON bulk_submissions (vendor_id, created_at DESC);
`

type PGJournal struct {
	db DBTX
}

func NewPG(db DBTX) *PGJournal {
	return &PGJournal{db: db}
}

func (j *PGJournal) EnsureSchema(ctx context.Context) error {
	_, err := j.db.Exec(ctx, schemaSQL)
	return err
}

func (j *PGJournal) Start(ctx context.Context, e Entry) (uuid.UUID, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := j.db.Exec(ctx, `
		INSERT INTO bulk_submissions (id, vendor_id, session_id, batch_id, source, order_count, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.VendorID, e.SessionID, e.BatchID, e.Source, e.Orders, StatusPending)
	if err != nil {
		return uuid.Nil, err
	}
	return e.ID, nil
}

func (j *PGJournal) Finish(ctx context.Context, id uuid.UUID, o Outcome) error {
	errText := ""
	if o.Err != nil {
		errText = o.Err.Error()
	}
	tag, err := j.db.Exec(ctx, `
		UPDATE bulk_submissions
		SET status = $2, created_count = $3, error = $4, finished_at = now()
		WHERE id = $1`,
		id, o.Status(), o.Created, errText)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (j *PGJournal) Recent(ctx context.Context, vendorID string, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := j.db.Query(ctx, `
		SELECT id, vendor_id, session_id, batch_id, source, order_count, status,
		       created_count, error, created_at, finished_at
		FROM bulk_submissions
		WHERE vendor_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, vendorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.VendorID, &e.SessionID, &e.BatchID, &e.Source, &e.Orders,
			&e.Status, &e.Created, &e.Error, &e.CreatedAt, &e.FinishedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Nop is used when no database is configured.
type Nop struct{}

func (Nop) Start(context.Context, Entry) (uuid.UUID, error) { return uuid.New(), nil }

func (Nop) Finish(context.Context, uuid.UUID, Outcome) error { return nil }

func (Nop) Recent(context.Context, string, int) ([]Entry, error) { return []Entry{}, nil }
