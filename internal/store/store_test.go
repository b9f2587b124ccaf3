package store

import (
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sadopc/strikesense/internal/session"
	"github.com/sadopc/strikesense/internal/timer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertSession is a test helper that inserts a finished session started
// startOffset seconds ago.
func insertSession(t *testing.T, s *Store, status string, startOffset, activeSecs int) int64 {
	t.Helper()
	start := time.Now().UTC().Add(time.Duration(-startOffset) * time.Second)
	end := start.Add(time.Duration(activeSecs) * time.Second)
	res, err := s.db.Exec(
		`INSERT INTO sessions (mode, rounds, work_ms, rest_ms, rounds_completed, active_seconds, status, started_at, ended_at)
		 VALUES ('round', 3, 60000, 30000, 3, ?, ?, ?, ?)`,
		activeSecs, status, start.Format(time.RFC3339), end.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("insert session: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func mustConfig(t *testing.T, mode session.Mode, rounds int, work, rest time.Duration) session.Config {
	t.Helper()
	cfg, err := session.New(mode, rounds, work, rest, 10*time.Second)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/strikesense.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreatePreset("Sparring", mustConfig(t, session.ModeRound, 6, 2*time.Minute, time.Minute)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: data survives, seeds are not duplicated.
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	presets, err := s2.ListPresets()
	if err != nil {
		t.Fatal(err)
	}
	if len(presets) != 4 {
		t.Fatalf("expected 4 presets after reopen, got %d", len(presets))
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestPragmasConfigured(t *testing.T) {
	s := newTestStore(t)
	var fk int
	s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if fk != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", fk)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Presets
// ============================================================

func TestSeededPresets(t *testing.T) {
	s := newTestStore(t)
	presets, err := s.ListPresets()
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]session.Config{
		"Boxing": session.NewRound(),
		"HIIT":   session.NewInterval(),
		"Tabata": session.NewTabata(),
	}
	if len(presets) != len(want) {
		t.Fatalf("expected %d seeded presets, got %d", len(want), len(presets))
	}
	for _, p := range presets {
		cfg, err := p.Config()
		if err != nil {
			t.Fatalf("preset %s: %v", p.Name, err)
		}
		if cfg != want[p.Name] {
			t.Fatalf("preset %s = %+v, want %+v", p.Name, cfg, want[p.Name])
		}
	}
}

func TestCreateAndGetPreset(t *testing.T) {
	s := newTestStore(t)
	cfg := mustConfig(t, session.ModeInterval, 10, 40*time.Second, 20*time.Second)
	p, err := s.CreatePreset("Legs", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == 0 || p.Name != "Legs" || p.Mode != session.ModeInterval {
		t.Fatalf("unexpected preset: %+v", p)
	}
	if p.Work != 40*time.Second || p.Rest != 20*time.Second || p.Warning != 10*time.Second {
		t.Fatalf("unexpected durations: %+v", p)
	}
	if p.CreatedAt.IsZero() {
		t.Fatal("CreatedAt should be set")
	}

	byName, err := s.GetPresetByName("legs")
	if err != nil {
		t.Fatal(err)
	}
	if byName.ID != p.ID {
		t.Fatal("lookup by name should ignore case")
	}
}

func TestCreatePresetDuplicateName(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.CreatePreset("Tabata", session.NewTabata()); err == nil {
		t.Fatal("expected error for duplicate preset name")
	}
}

func TestCreatePresetRejectsInvalidConfig(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreatePreset("Broken", session.Config{Rounds: 0, Work: time.Second})
	if !errors.Is(err, session.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestPresetSubSecondDurations(t *testing.T) {
	s := newTestStore(t)
	for _, tt := range []struct {
		name          string
		work, warning time.Duration
	}{
		{"Sprints", 1500 * time.Millisecond, 0},
		{"Flicks", 500 * time.Millisecond, 250 * time.Millisecond},
	} {
		cfg, err := session.New(session.ModeInterval, 3, tt.work, 0, tt.warning)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.SavePreset(tt.name, cfg); err != nil {
			t.Fatalf("save %s: %v", tt.name, err)
		}
		p, err := s.GetPresetByName(tt.name)
		if err != nil {
			t.Fatal(err)
		}
		got, err := p.Config()
		if err != nil {
			t.Fatalf("%s: stored config no longer valid: %v", tt.name, err)
		}
		if got != cfg {
			t.Fatalf("%s: stored %+v, want %+v", tt.name, got, cfg)
		}
	}
}

func TestPresetRejectsSubMillisecond(t *testing.T) {
	s := newTestStore(t)
	cfg, err := session.New(session.ModeRound, 2, time.Second+time.Microsecond, 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreatePreset("Odd", cfg); !errors.Is(err, ErrPrecision) {
		t.Fatalf("CreatePreset: expected ErrPrecision, got %v", err)
	}
	p, _ := s.GetPresetByName("Boxing")
	if err := s.UpdatePreset(p.ID, "Boxing", cfg); !errors.Is(err, ErrPrecision) {
		t.Fatalf("UpdatePreset: expected ErrPrecision, got %v", err)
	}
}

func TestMigrateSecondsToMillis(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := &Store{db: db}
	if err := s.migrateV1(); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`PRAGMA user_version = 1`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO presets (name, mode, rounds, work_seconds, rest_seconds, warning_seconds) VALUES ('Old', 'round', 4, 90, 30, 15)`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`INSERT INTO sessions (mode, rounds, work_seconds, rest_seconds, status, started_at) VALUES ('round', 4, 90, 30, 'stopped', '2024-05-01T07:00:00Z')`); err != nil {
		t.Fatal(err)
	}

	if err := s.migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	p, err := s.GetPresetByName("Old")
	if err != nil {
		t.Fatal(err)
	}
	if p.Work != 90*time.Second || p.Rest != 30*time.Second || p.Warning != 15*time.Second {
		t.Fatalf("migrated preset = %+v", p)
	}
	sessions, err := s.ListSessions(SessionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 || sessions[0].Work != 90*time.Second || sessions[0].Rest != 30*time.Second {
		t.Fatalf("migrated sessions = %+v", sessions)
	}

	var version int
	db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != currentVersion {
		t.Fatalf("user_version = %d, want %d", version, currentVersion)
	}
}

func TestGetPresetNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetPreset(999); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpdatePreset(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.GetPresetByName("Boxing")
	cfg := mustConfig(t, session.ModeRound, 12, 3*time.Minute, time.Minute)
	if err := s.UpdatePreset(p.ID, "Pro Boxing", cfg); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetPreset(p.ID)
	if got.Name != "Pro Boxing" || got.Rounds != 12 {
		t.Fatalf("update not applied: %+v", got)
	}

	if err := s.UpdatePreset(999, "Ghost", cfg); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSavePresetUpserts(t *testing.T) {
	s := newTestStore(t)
	first, err := s.SavePreset("Core", mustConfig(t, session.ModeInterval, 4, 45*time.Second, 15*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.SavePreset("Core", mustConfig(t, session.ModeInterval, 6, 45*time.Second, 15*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID != second.ID || second.Rounds != 6 {
		t.Fatalf("expected in-place update, got %+v then %+v", first, second)
	}
}

func TestDeletePresetKeepsHistory(t *testing.T) {
	s := newTestStore(t)
	p, _ := s.GetPresetByName("HIIT")
	cfg, _ := p.Config()
	sess, err := s.StartSession(&p.ID, cfg, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if sess.PresetName != "HIIT" {
		t.Fatalf("preset name = %q", sess.PresetName)
	}

	if err := s.DeletePreset(p.ID); err != nil {
		t.Fatal(err)
	}
	got, err := s.GetSession(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.PresetID != nil || got.Rounds != 8 {
		t.Fatalf("session after preset delete: %+v", got)
	}
	if err := s.DeletePreset(p.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete: expected sql.ErrNoRows, got %v", err)
	}
}

// ============================================================
// Sessions
// ============================================================

func TestStartAndFinishSession(t *testing.T) {
	s := newTestStore(t)
	cfg := session.NewTabata()
	start := time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)

	sess, err := s.StartSession(nil, cfg, start)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != StatusRunning || sess.EndedAt != nil || !sess.StartedAt.Equal(start) {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.Mode != session.ModeTabata || sess.Work != 20*time.Second || sess.Rest != 10*time.Second {
		t.Fatalf("config not copied: %+v", sess)
	}

	end := start.Add(4 * time.Minute)
	if err := s.FinishSession(sess.ID, StatusCompleted, 8, 230*time.Second, end); err != nil {
		t.Fatal(err)
	}
	got, _ := s.GetSession(sess.ID)
	if got.Status != StatusCompleted || got.RoundsCompleted != 8 || got.ActiveSeconds != 230 {
		t.Fatalf("unexpected finished session: %+v", got)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(end) {
		t.Fatalf("ended_at = %v", got.EndedAt)
	}

	// A finished session cannot be finished again.
	if err := s.FinishSession(sess.ID, StatusStopped, 1, time.Second, end); err == nil {
		t.Fatal("expected error finishing a closed session")
	}
}

func TestStartSessionKeepsSubSecond(t *testing.T) {
	s := newTestStore(t)
	cfg, err := session.New(session.ModeInterval, 2, 1500*time.Millisecond, 750*time.Millisecond, 0)
	if err != nil {
		t.Fatal(err)
	}
	sess, err := s.StartSession(nil, cfg, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if sess.Work != 1500*time.Millisecond || sess.Rest != 750*time.Millisecond {
		t.Fatalf("recorded %s/%s, want 1.5s/750ms", sess.Work, sess.Rest)
	}
}

func TestAbandonRunning(t *testing.T) {
	s := newTestStore(t)
	s.StartSession(nil, session.NewRound(), time.Now())
	s.StartSession(nil, session.NewRound(), time.Now())
	insertSession(t, s, StatusCompleted, 60, 30)

	n, err := s.AbandonRunning()
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("abandoned %d sessions, want 2", n)
	}
	running, _ := s.ListSessions(SessionFilter{Status: StatusRunning})
	if len(running) != 0 {
		t.Fatal("running sessions left behind")
	}
}

func TestListSessionsFilter(t *testing.T) {
	s := newTestStore(t)
	insertSession(t, s, StatusCompleted, 3*86400, 600)
	insertSession(t, s, StatusStopped, 2*86400, 120)
	newest := insertSession(t, s, StatusCompleted, 3600, 900)

	all, err := s.ListSessions(SessionFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].ID != newest {
		t.Fatalf("expected 3 sessions newest first, got %+v", all)
	}

	completed, _ := s.ListSessions(SessionFilter{Status: StatusCompleted})
	if len(completed) != 2 {
		t.Fatalf("expected 2 completed, got %d", len(completed))
	}

	from := time.Now().Add(-36 * time.Hour)
	recent, _ := s.ListSessions(SessionFilter{From: &from})
	if len(recent) != 1 {
		t.Fatalf("expected 1 recent session, got %d", len(recent))
	}

	limited, _ := s.ListSessions(SessionFilter{Limit: 2})
	if len(limited) != 2 {
		t.Fatalf("expected limit 2, got %d", len(limited))
	}
}

func TestGetDailyTotals(t *testing.T) {
	s := newTestStore(t)
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	for _, row := range []struct {
		offset time.Duration
		status string
		active int
	}{
		{8 * time.Hour, StatusCompleted, 600},
		{18 * time.Hour, StatusStopped, 100},
		{32 * time.Hour, StatusCompleted, 300},
	} {
		start := day.Add(row.offset)
		if _, err := s.db.Exec(
			`INSERT INTO sessions (mode, rounds, work_ms, rest_ms, active_seconds, status, started_at, ended_at)
			 VALUES ('round', 1, 60000, 0, ?, ?, ?, ?)`,
			row.active, row.status, start.Format(time.RFC3339), start.Add(time.Hour).Format(time.RFC3339),
		); err != nil {
			t.Fatal(err)
		}
	}
	// Still running: excluded.
	s.StartSession(nil, session.NewRound(), day.Add(9*time.Hour))

	totals, err := s.GetDailyTotals(day, day.AddDate(0, 0, 7))
	if err != nil {
		t.Fatal(err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected 2 days, got %+v", totals)
	}
	first := totals[0]
	if first.Date != "2024-06-03" || first.Sessions != 2 || first.Completed != 1 || first.ActiveSeconds != 700 {
		t.Fatalf("unexpected first day: %+v", first)
	}
	if totals[1].Date != "2024-06-04" || totals[1].ActiveSeconds != 300 {
		t.Fatalf("unexpected second day: %+v", totals[1])
	}
}

func TestGetTodayTotal(t *testing.T) {
	s := newTestStore(t)
	total, err := s.GetTodayTotal()
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Fatalf("expected 0, got %d", total)
	}

	insertSession(t, s, StatusCompleted, 0, 450)
	total, _ = s.GetTodayTotal()
	if total != 450 {
		t.Fatalf("expected 450, got %d", total)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)
	v, err := s.GetSetting("default_mode")
	if err != nil {
		t.Fatal(err)
	}
	if v != "round" {
		t.Fatalf("default_mode = %q", v)
	}
	if !s.GetBoolSetting("cues_enabled", false) {
		t.Fatal("cues should default to enabled")
	}
	if s.GetIntSetting("history_days", 0) != 7 {
		t.Fatal("history_days should default to 7")
	}
}

func TestSetSetting(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting("cues_bell", "false"); err != nil {
		t.Fatal(err)
	}
	if s.GetBoolSetting("cues_bell", true) {
		t.Fatal("setting not updated")
	}
	if err := s.SetSetting("custom", "x"); err != nil {
		t.Fatal(err)
	}
	if s.GetIntSetting("custom", 42) != 42 {
		t.Fatal("unparsable int should fall back")
	}
	if s.GetBoolSetting("missing", true) != true {
		t.Fatal("missing bool should fall back")
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	settings, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 6 {
		t.Fatalf("expected 6 settings, got %d", len(settings))
	}
	for i := 1; i < len(settings); i++ {
		if settings[i-1].Key > settings[i].Key {
			t.Fatal("settings should be sorted by key")
		}
	}
}

// ============================================================
// Recorder
// ============================================================

type fakeSource struct {
	mu      sync.Mutex
	cfg     session.Config
	elapsed time.Duration
}

func (f *fakeSource) Config() session.Config { return f.cfg }

func (f *fakeSource) ElapsedTime() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsed
}

func (f *fakeSource) set(d time.Duration) {
	f.mu.Lock()
	f.elapsed = d
	f.mu.Unlock()
}

func TestRecorderCompletedRun(t *testing.T) {
	s := newTestStore(t)
	preset, _ := s.GetPresetByName("Tabata")
	src := &fakeSource{cfg: session.NewTabata()}
	rec := NewRecorder(s, src, nil)
	rec.SetPreset(&preset.ID)

	rec.HandleEvent(timer.Started{})
	id := rec.Current()
	if id == 0 {
		t.Fatal("recorder did not open a session")
	}
	for round := 1; round <= 8; round++ {
		rec.HandleEvent(timer.RoundEnded{Round: round, Work: true})
		if round < 8 {
			rec.HandleEvent(timer.RoundEnded{Round: round, Work: false})
		}
	}
	src.set(230 * time.Second)
	if err := rec.HandleEvent(timer.Completed{}); err != nil {
		t.Fatal(err)
	}

	sess, err := s.GetSession(id)
	if err != nil {
		t.Fatal(err)
	}
	if sess.Status != StatusCompleted || sess.RoundsCompleted != 8 || sess.ActiveSeconds != 230 {
		t.Fatalf("unexpected session: %+v", sess)
	}
	if sess.PresetID == nil || *sess.PresetID != preset.ID {
		t.Fatal("session not linked to preset")
	}
	if rec.Current() != 0 {
		t.Fatal("recorder still holds a session")
	}
}

func TestRecorderStopThenRestart(t *testing.T) {
	s := newTestStore(t)
	src := &fakeSource{cfg: session.NewRound()}
	rec := NewRecorder(s, src, nil)

	rec.HandleEvent(timer.Started{})
	first := rec.Current()
	src.set(200 * time.Second)
	rec.HandleEvent(timer.RoundEnded{Round: 1, Work: true})
	rec.HandleEvent(timer.Stopped{})

	// Stop with nothing open is ignored.
	if err := rec.HandleEvent(timer.Stopped{}); err != nil {
		t.Fatal(err)
	}

	rec.HandleEvent(timer.Started{})
	second := rec.Current()
	if second == first {
		t.Fatal("restart should open a new row")
	}
	src.set(260 * time.Second)
	rec.HandleEvent(timer.Stopped{})

	a, _ := s.GetSession(first)
	b, _ := s.GetSession(second)
	if a.Status != StatusStopped || a.ActiveSeconds != 200 || a.RoundsCompleted != 1 {
		t.Fatalf("unexpected first run: %+v", a)
	}
	if b.ActiveSeconds != 60 || b.RoundsCompleted != 0 {
		t.Fatalf("second run should count only its own time: %+v", b)
	}
}

func TestRecorderWithEngine(t *testing.T) {
	s := newTestStore(t)
	cfg := mustConfig(t, session.ModeRound, 3, time.Minute, 30*time.Second)
	e, err := timer.New(cfg, timer.Options{TickInterval: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	defer e.Dispose()

	rec := NewRecorder(s, e, nil)
	e.AddEventListener(rec)
	e.Start()
	e.Skip() // work -> rest
	e.Skip() // rest -> round 2
	e.Stop()

	sessions, _ := s.ListSessions(SessionFilter{})
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	got := sessions[0]
	if got.Status != StatusStopped || got.RoundsCompleted != 1 || got.ActiveSeconds != 90 {
		t.Fatalf("unexpected session: %+v", got)
	}
}
