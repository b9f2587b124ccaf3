package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sadopc/strikesense/internal/session"
)

const presetColumns = `id, name, mode, rounds, work_ms, rest_ms, warning_ms, created_at, updated_at`

// CreatePreset stores cfg under name. Names are unique.
func (s *Store) CreatePreset(name string, cfg session.Config) (*Preset, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("insert preset %q: %w", name, err)
	}
	if err := checkPrecision(cfg); err != nil {
		return nil, fmt.Errorf("insert preset %q: %w", name, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO presets (name, mode, rounds, work_ms, rest_ms, warning_ms, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		name, cfg.Mode.String(), cfg.Rounds, cfg.Work.Milliseconds(), cfg.Rest.Milliseconds(), cfg.Warning.Milliseconds(), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert preset: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetPreset(id)
}

func (s *Store) GetPreset(id int64) (*Preset, error) {
	p, err := scanPreset(s.db.QueryRow(`SELECT `+presetColumns+` FROM presets WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("get preset %d: %w", id, err)
	}
	return p, nil
}

func (s *Store) GetPresetByName(name string) (*Preset, error) {
	p, err := scanPreset(s.db.QueryRow(`SELECT `+presetColumns+` FROM presets WHERE name = ? COLLATE NOCASE`, name))
	if err != nil {
		return nil, fmt.Errorf("get preset %q: %w", name, err)
	}
	return p, nil
}

func (s *Store) ListPresets() ([]Preset, error) {
	rows, err := s.db.Query(`SELECT ` + presetColumns + ` FROM presets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list presets: %w", err)
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	return presets, rows.Err()
}

func (s *Store) UpdatePreset(id int64, name string, cfg session.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("update preset %d: %w", id, err)
	}
	if err := checkPrecision(cfg); err != nil {
		return fmt.Errorf("update preset %d: %w", id, err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`UPDATE presets SET name = ?, mode = ?, rounds = ?, work_ms = ?, rest_ms = ?, warning_ms = ?, updated_at = ?
		 WHERE id = ?`,
		name, cfg.Mode.String(), cfg.Rounds, cfg.Work.Milliseconds(), cfg.Rest.Milliseconds(), cfg.Warning.Milliseconds(), now, id,
	)
	if err != nil {
		return fmt.Errorf("update preset %d: %w", id, err)
	}
	return expectAffected(res, "update preset", id)
}

// DeletePreset removes a preset. Recorded sessions keep their settings and
// lose only the link.
func (s *Store) DeletePreset(id int64) error {
	res, err := s.db.Exec(`DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete preset %d: %w", id, err)
	}
	return expectAffected(res, "delete preset", id)
}

// SavePreset creates name or overwrites it if it already exists.
func (s *Store) SavePreset(name string, cfg session.Config) (*Preset, error) {
	existing, err := s.GetPresetByName(name)
	if err != nil {
		return s.CreatePreset(name, cfg)
	}
	if err := s.UpdatePreset(existing.ID, name, cfg); err != nil {
		return nil, err
	}
	return s.GetPreset(existing.ID)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPreset(row scanner) (*Preset, error) {
	p := &Preset{}
	var mode, createdAt, updatedAt string
	var work, rest, warning int64
	if err := row.Scan(&p.ID, &p.Name, &mode, &p.Rounds, &work, &rest, &warning, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Work, p.Rest, p.Warning = millis(work), millis(rest), millis(warning)
	p.Mode, _ = session.ParseMode(mode)
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return p, nil
}

func expectAffected(res sql.Result, op string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %d: %w", op, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", op, id, sql.ErrNoRows)
	}
	return nil
}

// ErrPrecision rejects durations the store cannot keep exactly.
var ErrPrecision = errors.New("durations must be whole milliseconds")

// checkPrecision keeps preset durations exact: they are stored in whole
// milliseconds.
func checkPrecision(cfg session.Config) error {
	for _, d := range []time.Duration{cfg.Work, cfg.Rest, cfg.Warning} {
		if d%time.Millisecond != 0 {
			return fmt.Errorf("%w, got %s", ErrPrecision, d)
		}
	}
	return nil
}

func millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
