// Package render turns a ReportDocument into PDF or Word bytes.
package render

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/fieldreport/internal/models"
)

const (
	defaultSummary  = "Site visit completed successfully."
	defaultWorkItem = "No notes were recorded for this visit."
)

// captionOf returns the caption shown under a photo.
func captionOf(p models.Photo, index int) string {
	if c := strings.TrimSpace(p.Caption); c != "" {
		return c
	}
	return fmt.Sprintf("Photo %d", index+1)
}

// metaRows is the cover page table, in display order.
func metaRows(m models.ReportMeta) [][2]string {
	orDash := func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "-"
		}
		return s
	}
	return [][2]string{
		{"Client:", orDash(m.Client)},
		{"Site:", orDash(m.Site)},
		{"Technician:", orDash(m.Technician)},
		{"Date:", m.Date.UTC().Format("2006-01-02")},
		{"Time:", m.Date.UTC().Format("15:04 MST")},
		{"Units:", m.Units.Label()},
	}
}
