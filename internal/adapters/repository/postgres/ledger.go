package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/okian/ladder/internal/domain/dedupe"
)

const sizeTimeout = 2 * time.Second

// Ledger is a durable dedupe.Deduper over the applied_matches table, so a
// finalized match stays applied across restarts.
type Ledger struct {
	db *sqlx.DB
}

var _ dedupe.Deduper = (*Ledger)(nil)

// NewLedger returns a Ledger backed by db.
func NewLedger(db *sqlx.DB) *Ledger {
	return &Ledger{db: db}
}

// SeenAndRecord implements dedupe.Deduper. The primary key makes the
// check-and-insert atomic.
func (l *Ledger) SeenAndRecord(ctx context.Context, id string) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO applied_matches (match_id) VALUES ($1) ON CONFLICT (match_id) DO NOTHING`, id)
	if err != nil {
		return false, fmt.Errorf("record applied match %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record applied match %s rows affected: %w", id, err)
	}
	return n == 0, nil
}

// Unrecord implements dedupe.Deduper.
func (l *Ledger) Unrecord(ctx context.Context, id string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM applied_matches WHERE match_id = $1`, id); err != nil {
		return fmt.Errorf("unrecord applied match %s: %w", id, err)
	}
	return nil
}

// Size implements dedupe.Deduper. It reports 0 when the count cannot be read.
func (l *Ledger) Size() int64 {
	ctx, cancel := context.WithTimeout(context.Background(), sizeTimeout)
	defer cancel()

	var n int64
	if err := l.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM applied_matches`); err != nil {
		return 0
	}
	return n
}
