package export

import (
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/sadopc/strikesense/internal/store"
)

var pdfColumns = []struct {
	title string
	width float64
}{
	{"Date", 32},
	{"Preset", 38},
	{"Mode", 22},
	{"Rounds", 22},
	{"Work/Rest", 24},
	{"Active", 22},
	{"Status", 24},
}

// ToPDF writes a training report: one table row per session and a summary.
func ToPDF(sessions []store.Session, title, path string) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, title)
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, "Generated "+time.Now().Format("2006-01-02 15:04"))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range pdfColumns {
		pdf.CellFormat(c.width, 8, c.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 10)
	var active int64
	completed := 0
	for _, s := range sessions {
		active += s.ActiveSeconds
		if s.Status == store.StatusCompleted {
			completed++
		}
		cells := []string{
			s.StartedAt.Local().Format("2006-01-02 15:04"),
			presetName(s),
			s.Mode.String(),
			fmt.Sprintf("%d/%d", s.RoundsCompleted, s.Rounds),
			s.Work.String() + "/" + s.Rest.String(),
			formatDuration(s.ActiveSeconds),
			s.Status,
		}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 7, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(sessions) == 0 {
		pdf.Cell(0, 8, "No sessions recorded.")
		pdf.Ln(8)
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Sessions: %d   Completed: %d   Active time: %s", len(sessions), completed, formatDuration(active)))
	pdf.Ln(8)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write pdf file: %w", err)
	}
	return nil
}
