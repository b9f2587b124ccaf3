package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/strikesense/internal/store"
)

type jsonExport struct {
	ExportedAt    string        `json:"exported_at"`
	Count         int           `json:"count"`
	ActiveSeconds int64         `json:"active_seconds"`
	Sessions      []jsonSession `json:"sessions"`
}

type jsonSession struct {
	ID              int64  `json:"id"`
	Preset          string `json:"preset"`
	PresetID        *int64 `json:"preset_id,omitempty"`
	Mode            string `json:"mode"`
	Rounds          int    `json:"rounds"`
	WorkMs          int64  `json:"work_ms"`
	RestMs          int64  `json:"rest_ms"`
	RoundsCompleted int    `json:"rounds_completed"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time,omitempty"`
	ActiveSeconds   int64  `json:"active_seconds"`
	Active          string `json:"active"`
	Status          string `json:"status"`
}

func ToJSON(sessions []store.Session, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(sessions),
	}

	for _, s := range sessions {
		endStr := ""
		if s.EndedAt != nil {
			endStr = s.EndedAt.Local().Format(time.RFC3339)
		}
		export.ActiveSeconds += s.ActiveSeconds

		export.Sessions = append(export.Sessions, jsonSession{
			ID:              s.ID,
			Preset:          presetName(s),
			PresetID:        s.PresetID,
			Mode:            s.Mode.String(),
			Rounds:          s.Rounds,
			WorkMs:          s.Work.Milliseconds(),
			RestMs:          s.Rest.Milliseconds(),
			RoundsCompleted: s.RoundsCompleted,
			StartTime:       s.StartedAt.Local().Format(time.RFC3339),
			EndTime:         endStr,
			ActiveSeconds:   s.ActiveSeconds,
			Active:          formatDuration(s.ActiveSeconds),
			Status:          s.Status,
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
