package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/sadopc/strikesense/internal/session"
)

const sessionColumns = `s.id, s.preset_id, COALESCE(p.name, ''), s.mode, s.rounds, s.work_ms, s.rest_ms,
	s.rounds_completed, s.active_seconds, s.status, s.started_at, s.ended_at`

// StartSession opens a history row for a run of cfg.
func (s *Store) StartSession(presetID *int64, cfg session.Config, startedAt time.Time) (*Session, error) {
	res, err := s.db.Exec(
		`INSERT INTO sessions (preset_id, mode, rounds, work_ms, rest_ms, status, started_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		presetID, cfg.Mode.String(), cfg.Rounds, cfg.Work.Milliseconds(), cfg.Rest.Milliseconds(),
		StatusRunning, startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetSession(id)
}

// FinishSession closes a running session. Active time is stored in whole
// seconds.
func (s *Store) FinishSession(id int64, status string, roundsCompleted int, active time.Duration, endedAt time.Time) error {
	res, err := s.db.Exec(
		`UPDATE sessions SET status = ?, rounds_completed = ?, active_seconds = ?, ended_at = ?
		 WHERE id = ? AND status = ?`,
		status, roundsCompleted, int64(active.Round(time.Second)/time.Second), endedAt.UTC().Format(time.RFC3339),
		id, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("finish session %d: %w", id, err)
	}
	return expectAffected(res, "finish session", id)
}

// AbandonRunning marks sessions left open by a previous process.
func (s *Store) AbandonRunning() (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE sessions SET status = ?, ended_at = ? WHERE status = ?`,
		StatusAbandoned, now, StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("abandon running sessions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) GetSession(id int64) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT `+sessionColumns+` FROM sessions s LEFT JOIN presets p ON p.id = s.preset_id WHERE s.id = ?`, id,
	)
	sess, err := scanSession(row)
	if err != nil {
		return nil, fmt.Errorf("get session %d: %w", id, err)
	}
	return sess, nil
}

func (s *Store) ListSessions(f SessionFilter) ([]Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s LEFT JOIN presets p ON p.id = s.preset_id WHERE 1=1`
	var args []any

	if f.PresetID != nil {
		query += ` AND s.preset_id = ?`
		args = append(args, *f.PresetID)
	}
	if f.Status != "" {
		query += ` AND s.status = ?`
		args = append(args, f.Status)
	}
	if f.From != nil {
		query += ` AND s.started_at >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND s.started_at < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY s.started_at DESC, s.id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// GetDailyTotals sums finished sessions per UTC day in [from, to).
func (s *Store) GetDailyTotals(from, to time.Time) ([]DailyTotal, error) {
	rows, err := s.db.Query(`
		SELECT date(started_at) AS day, COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(active_seconds), 0)
		FROM sessions
		WHERE ended_at IS NOT NULL
		  AND started_at >= ? AND started_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily totals: %w", err)
	}
	defer rows.Close()

	var totals []DailyTotal
	for rows.Next() {
		var dt DailyTotal
		if err := rows.Scan(&dt.Date, &dt.Sessions, &dt.Completed, &dt.ActiveSeconds); err != nil {
			return nil, err
		}
		totals = append(totals, dt)
	}
	return totals, rows.Err()
}

func (s *Store) GetTodayTotal() (int64, error) {
	today := time.Now().UTC().Format("2006-01-02")
	var total sql.NullInt64
	err := s.db.QueryRow(`
		SELECT COALESCE(SUM(active_seconds), 0)
		FROM sessions
		WHERE date(started_at) = ? AND ended_at IS NOT NULL`, today,
	).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total.Int64, nil
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var mode, startedAt string
	var endedAt sql.NullString
	var presetID sql.NullInt64
	var work, rest int64
	err := row.Scan(&sess.ID, &presetID, &sess.PresetName, &mode, &sess.Rounds, &work, &rest,
		&sess.RoundsCompleted, &sess.ActiveSeconds, &sess.Status, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	sess.Work, sess.Rest = millis(work), millis(rest)
	if presetID.Valid {
		sess.PresetID = &presetID.Int64
	}
	sess.Mode, _ = session.ParseMode(mode)
	sess.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if endedAt.Valid {
		t, _ := time.Parse(time.RFC3339, endedAt.String)
		sess.EndedAt = &t
	}
	return sess, nil
}
