package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/strikesense/internal/store"
)

var csvHeader = []string{"ID", "Preset", "Mode", "Rounds", "Work", "Rest", "Rounds Done", "Start", "End", "Active (s)", "Active", "Status"}

func ToCSV(sessions []store.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, s := range sessions {
		endStr := ""
		if s.EndedAt != nil {
			endStr = s.EndedAt.Local().Format(time.RFC3339)
		}

		row := []string{
			fmt.Sprintf("%d", s.ID),
			presetName(s),
			s.Mode.String(),
			fmt.Sprintf("%d", s.Rounds),
			s.Work.String(),
			s.Rest.String(),
			fmt.Sprintf("%d", s.RoundsCompleted),
			s.StartedAt.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", s.ActiveSeconds),
			formatDuration(s.ActiveSeconds),
			s.Status,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

// presetName labels sessions run from an ad-hoc config.
func presetName(s store.Session) string {
	if s.PresetName == "" {
		return "Custom"
	}
	return s.PresetName
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
