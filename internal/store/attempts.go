package store

import (
	"context"
	"fmt"

	"github.com/roach88/turtle/internal/ir"
	"github.com/roach88/turtle/internal/query"
)

// Attempt is one stored attempt report.
type Attempt struct {
	ID string `json:"id"`
	ir.Report
}

// Report inserts an attempt report. The row id is the report's content
// hash, and ON CONFLICT DO NOTHING makes duplicate writes silent, so a
// retried sink call is harmless.
//
// Implements session.Reporter.
func (s *Store) Report(ctx context.Context, r ir.Report) error {
	id, err := ir.ReportID(r)
	if err != nil {
		return fmt.Errorf("write attempt: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO attempts
		(id, session_id, level_id, attempt, succeeded, tier, source, elapsed_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		id,
		r.SessionID,
		r.LevelID,
		r.Attempt,
		boolToInt(r.Succeeded),
		int64(r.Tier),
		r.Source,
		r.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("write attempt: %w", err)
	}
	return nil
}

// attemptColumns is the column order scanAttempt expects.
var attemptColumns = []string{"id", "session_id", "level_id", "attempt", "succeeded", "tier", "source", "elapsed_ms"}

// AttemptFilter selects stored attempts. Zero fields match everything.
type AttemptFilter struct {
	LevelID   string
	SessionID string
	Tier      *ir.Tier
	Succeeded *bool
}

func (f AttemptFilter) predicate() query.Predicate {
	var and query.And
	if f.LevelID != "" {
		and.Predicates = append(and.Predicates, query.Equals{Field: "level_id", Value: f.LevelID})
	}
	if f.SessionID != "" {
		and.Predicates = append(and.Predicates, query.Equals{Field: "session_id", Value: f.SessionID})
	}
	if f.Tier != nil {
		and.Predicates = append(and.Predicates, query.Equals{Field: "tier", Value: int64(*f.Tier)})
	}
	if f.Succeeded != nil {
		and.Predicates = append(and.Predicates, query.Equals{Field: "succeeded", Value: *f.Succeeded})
	}
	if len(and.Predicates) == 0 {
		return nil
	}
	return and
}

// ListAttempts returns the attempts at a level, or at every level when
// levelID is empty.
func (s *Store) ListAttempts(ctx context.Context, levelID string) ([]Attempt, error) {
	return s.FindAttempts(ctx, AttemptFilter{LevelID: levelID})
}

// FindAttempts returns the attempts matching f, ordered by level, session,
// attempt and id.
//
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) FindAttempts(ctx context.Context, f AttemptFilter) ([]Attempt, error) {
	sqlText, args, err := query.Compile(query.Select{
		From:    "attempts",
		Columns: attemptColumns,
		Filter:  f.predicate(),
		OrderBy: []string{"level_id", "session_id", "attempt", "id"},
	})
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return attempts, nil
}

// LastAttempt returns the highest attempt number recorded for a session at
// a level, or 0. A restored session resumes its clock from here.
func (s *Store) LastAttempt(ctx context.Context, sessionID, levelID string) (int64, error) {
	var last int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(attempt), 0)
		FROM attempts
		WHERE session_id = ? AND level_id = ?
	`, sessionID, levelID).Scan(&last)
	if err != nil {
		return 0, fmt.Errorf("query last attempt: %w", err)
	}
	return last, nil
}

// TierCounts returns how many attempts ended in each tier, at one level or
// at every level when levelID is empty.
func (s *Store) TierCounts(ctx context.Context, levelID string) (map[ir.Tier]int, error) {
	q := `SELECT tier, COUNT(*) FROM attempts`
	var args []any
	if levelID != "" {
		q += ` WHERE level_id = ?`
		args = append(args, levelID)
	}
	q += ` GROUP BY tier ORDER BY tier ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query tier counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[ir.Tier]int)
	for rows.Next() {
		var tier int64
		var n int
		if err := rows.Scan(&tier, &n); err != nil {
			return nil, fmt.Errorf("scan tier count: %w", err)
		}
		counts[ir.Tier(tier)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tier counts: %w", err)
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row scanner) (Attempt, error) {
	var (
		a         Attempt
		succeeded int
		tier      int64
	)
	if err := row.Scan(
		&a.ID,
		&a.SessionID,
		&a.LevelID,
		&a.Attempt,
		&succeeded,
		&tier,
		&a.Source,
		&a.ElapsedMs,
	); err != nil {
		return Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.Succeeded = succeeded == 1
	a.Tier = ir.Tier(tier)
	return a, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
