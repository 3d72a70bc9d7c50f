// Package postgres implements the ranking record store on PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/okian/ladder/internal/adapters/repository"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

const uniqueViolation = "23505"

const recordColumns = `id, player_id, season, total_points, matches_won, matches_played,
	win_rate, last_updated, created_at, updated_at`

// The update branch recomputes win_rate from the new counters with the same
// float8 arithmetic as model.WinRate.
const applyQuery = `INSERT INTO ranking_records AS r (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
ON CONFLICT (player_id, season) DO UPDATE SET
    total_points   = r.total_points + EXCLUDED.total_points,
    matches_won    = r.matches_won + EXCLUDED.matches_won,
    matches_played = r.matches_played + EXCLUDED.matches_played,
    win_rate       = CASE WHEN r.matches_played + EXCLUDED.matches_played > 0
        THEN FLOOR(CAST(((r.matches_won + EXCLUDED.matches_won)::float8
                   / (r.matches_played + EXCLUDED.matches_played)::float8) * 100 AS float8) + 0.5) / 100
        ELSE 0 END,
    last_updated   = COALESCE(EXCLUDED.last_updated, r.last_updated),
    updated_at     = EXCLUDED.updated_at
RETURNING ` + recordColumns

const insertQuery = `INSERT INTO ranking_records (` + recordColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING ` + recordColumns

const getQuery = `SELECT ` + recordColumns + ` FROM ranking_records WHERE player_id = $1 AND season = $2`

const pageQuery = `SELECT * FROM (
    SELECT ` + recordColumns + `,
        RANK() OVER (ORDER BY total_points DESC, win_rate DESC, matches_won DESC) AS rank
    FROM ranking_records
    WHERE season = $1
) ranked
ORDER BY rank, player_id
LIMIT $2 OFFSET $3`

// One statement sees one snapshot, so the record and its rank agree.
const rankQuery = `SELECT ` + recordColumns + `,
    1 + (SELECT COUNT(*) FROM ranking_records o
         WHERE o.season = r.season
           AND (o.total_points, o.win_rate, o.matches_won) > (r.total_points, r.win_rate, r.matches_won)) AS rank
FROM ranking_records r
WHERE r.player_id = $1 AND r.season = $2`

const countGreaterQuery = `SELECT COUNT(*) FROM ranking_records
WHERE season = $1 AND (total_points, win_rate, matches_won) > ($2, $3, $4)`

type recordRow struct {
	ID            string       `db:"id"`
	PlayerID      string       `db:"player_id"`
	Season        string       `db:"season"`
	TotalPoints   int          `db:"total_points"`
	MatchesWon    int          `db:"matches_won"`
	MatchesPlayed int          `db:"matches_played"`
	WinRate       float64      `db:"win_rate"`
	LastUpdated   sql.NullTime `db:"last_updated"`
	CreatedAt     time.Time    `db:"created_at"`
	UpdatedAt     time.Time    `db:"updated_at"`
}

type rankedRow struct {
	recordRow
	Rank int `db:"rank"`
}

func (r recordRow) toModel() model.Record {
	rec := model.Record{
		ID:            r.ID,
		PlayerID:      r.PlayerID,
		Season:        r.Season,
		TotalPoints:   r.TotalPoints,
		MatchesWon:    r.MatchesWon,
		MatchesPlayed: r.MatchesPlayed,
		WinRate:       r.WinRate,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LastUpdated.Valid {
		rec.LastUpdated = r.LastUpdated.Time
	}
	return rec
}

// Store implements repository.Store with sqlx.
type Store struct {
	db    *sqlx.DB
	newID func() string
}

var _ repository.Store = (*Store)(nil)

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// NewStore returns a Store backed by db.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, newID: uuid.NewString}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get implements repository.Store.
func (s *Store) Get(ctx context.Context, key model.Key) (model.Record, error) {
	defer observeQuery(time.Now())

	var row recordRow
	if err := s.db.GetContext(ctx, &row, getQuery, key.PlayerID, key.Season); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Record{}, repository.ErrNotFound
		}
		return model.Record{}, fmt.Errorf("get ranking record player=%s season=%s: %w", key.PlayerID, key.Season, err)
	}
	return row.toModel(), nil
}

// Insert implements repository.Store. A unique violation on
// (player_id, season) is reported as repository.ErrRecordConflict.
func (s *Store) Insert(ctx context.Context, rec model.Record) (model.Record, error) {
	defer observeApply(time.Now())

	if rec.ID == "" {
		rec.ID = s.newID()
	}
	var row recordRow
	err := s.db.QueryRowxContext(ctx, insertQuery,
		rec.ID, rec.PlayerID, rec.Season,
		rec.TotalPoints, rec.MatchesWon, rec.MatchesPlayed, rec.WinRate,
		nullTime(rec.LastUpdated), rec.CreatedAt, rec.UpdatedAt,
	).StructScan(&row)
	if err != nil {
		if isUniqueViolation(err) {
			metrics.RecordErrorByComponent("repository", "conflict")
			return model.Record{}, repository.ErrRecordConflict
		}
		return model.Record{}, fmt.Errorf("insert ranking record player=%s season=%s: %w", rec.PlayerID, rec.Season, err)
	}
	return row.toModel(), nil
}

// Apply implements repository.Store as one upsert statement, so the
// increment is atomic under concurrent writers.
func (s *Store) Apply(ctx context.Context, key model.Key, delta model.Delta, now time.Time) (model.Record, error) {
	defer observeApply(time.Now())

	var lastUpdated sql.NullTime
	if !delta.IsZero() {
		lastUpdated = sql.NullTime{Time: now, Valid: true}
	}

	var row recordRow
	err := s.db.QueryRowxContext(ctx, applyQuery,
		s.newID(), key.PlayerID, key.Season,
		delta.Points, delta.Won, delta.Played, model.WinRate(delta.Won, delta.Played),
		lastUpdated, now,
	).StructScan(&row)
	if err != nil {
		return model.Record{}, fmt.Errorf("apply ranking delta player=%s season=%s: %w", key.PlayerID, key.Season, err)
	}
	return row.toModel(), nil
}

// Page implements repository.Store. RANK() is standard competition ranking.
func (s *Store) Page(ctx context.Context, season string, offset, limit int) ([]repository.Entry, error) {
	defer observeQuery(time.Now())

	if limit < 1 || offset < 0 {
		return nil, repository.ErrInvalidLimit
	}

	var rows []rankedRow
	if err := s.db.SelectContext(ctx, &rows, pageQuery, season, limit, offset); err != nil {
		return nil, fmt.Errorf("page ranking records season=%s: %w", season, err)
	}

	out := make([]repository.Entry, 0, len(rows))
	for _, row := range rows {
		out = append(out, repository.Entry{Rank: row.Rank, Record: row.toModel()})
	}
	return out, nil
}

// Rank implements repository.Store.
func (s *Store) Rank(ctx context.Context, key model.Key) (repository.Entry, error) {
	defer observeQuery(time.Now())

	var row rankedRow
	if err := s.db.GetContext(ctx, &row, rankQuery, key.PlayerID, key.Season); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.Entry{}, repository.ErrNotFound
		}
		return repository.Entry{}, fmt.Errorf("rank player=%s season=%s: %w", key.PlayerID, key.Season, err)
	}
	return repository.Entry{Rank: row.Rank, Record: row.toModel()}, nil
}

// CountGreater implements repository.Store using a row comparison, which
// PostgreSQL evaluates lexicographically.
func (s *Store) CountGreater(ctx context.Context, season string, st model.Standing) (int, error) {
	defer observeQuery(time.Now())

	var n int
	if err := s.db.GetContext(ctx, &n, countGreaterQuery, season, st.Points, st.WinRate, st.Won); err != nil {
		return 0, fmt.Errorf("count ranking records ahead season=%s: %w", season, err)
	}
	return n, nil
}

// DeleteSeason implements repository.Store.
func (s *Store) DeleteSeason(ctx context.Context, season string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ranking_records WHERE season = $1`, season)
	if err != nil {
		return 0, fmt.Errorf("delete season=%s: %w", season, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete season=%s rows affected: %w", season, err)
	}
	return int(n), nil
}

// Seasons implements repository.Store.
func (s *Store) Seasons(ctx context.Context) ([]string, error) {
	var out []string
	if err := s.db.SelectContext(ctx, &out, `SELECT DISTINCT season FROM ranking_records ORDER BY season DESC`); err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	return out, nil
}

// Count implements repository.Store.
func (s *Store) Count(ctx context.Context, season string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM ranking_records WHERE season = $1`, season); err != nil {
		return 0, fmt.Errorf("count season=%s: %w", season, err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == uniqueViolation
	}
	return false
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

func observeApply(start time.Time) {
	metrics.RecordStoreApplyLatency(float64(time.Since(start).Milliseconds()))
}

func observeQuery(start time.Time) {
	metrics.RecordStoreQueryLatency(float64(time.Since(start).Milliseconds()))
}
