package report

import (
	"fmt"
	"strings"

	"github.com/markdave123-py/fieldreport/internal/core/units"
	"github.com/markdave123-py/fieldreport/internal/models"
)

const (
	DefaultTitle         = "Engineering Field Report"
	DefaultSummaryWindow = 5
	summaryMaxRunes      = 800

	scopeText = "This report documents site conditions, work performed, and final recommendations " +
		"following engineering best practices (DIN 5008; IEEE/IEC 82079-1:2019; NASA SP-7084)."
	resultsText         = "Results summarized based on test data and visual inspection."
	finalInspectionText = "Final inspection confirms equipment status and compliance with work scope."
)

var recommendations = []string{
	"Monitor vibration and temperature trends over next 7 days.",
	"Schedule preventive maintenance based on manufacturer guidance.",
	"Review parts inventory for critical spares.",
}

// Placement decides where uncategorized photos go.
type Placement string

const (
	PlaceLast        Placement = "last"
	PlaceBeforeFinal Placement = "before_final"
	PlaceOmit        Placement = "omit"
)

// Bucket groups photos by category in section order. Photos keep their
// submission order inside a bucket. Empty buckets are dropped.
func Bucket(photos []models.Photo, placement Placement) []models.PhotoSection {
	buckets := make(map[models.Category][]models.Photo, len(models.SectionOrder)+1)
	for _, p := range photos {
		cat := p.Category
		if cat == "" {
			cat = models.CategoryUncategorized
		}
		buckets[cat] = append(buckets[cat], p)
	}

	order := make([]models.Category, 0, len(models.SectionOrder)+1)
	for _, cat := range models.SectionOrder {
		if cat == models.CategoryFinal && placement == PlaceBeforeFinal {
			order = append(order, models.CategoryUncategorized)
		}
		order = append(order, cat)
	}
	if placement == PlaceLast || placement == "" {
		order = append(order, models.CategoryUncategorized)
	}

	var sections []models.PhotoSection
	for _, cat := range order {
		if len(buckets[cat]) == 0 {
			continue
		}
		sections = append(sections, models.PhotoSection{Category: cat, Title: cat.Title(), Photos: buckets[cat]})
	}
	return sections
}

// BuildDocument assembles the renderer-independent report from cleaned notes
// and bucketed photos.
func BuildDocument(meta models.ReportMeta, notes []string, sections []models.PhotoSection, summaryWindow int) *models.ReportDocument {
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = DefaultTitle
	}
	if meta.Units == "" {
		meta.Units = models.UnitsBoth
	}
	photoCount := 0
	for _, s := range sections {
		photoCount += len(s.Photos)
	}

	doc := &models.ReportDocument{
		Meta:            meta,
		Summary:         Summary(notes, summaryWindow),
		Scope:           scopeText,
		SiteConditions:  siteConditions(notes),
		WorkPerformed:   append([]string(nil), notes...),
		Results:         fmt.Sprintf("%d notes and %d photos were recorded during the visit. %s", len(notes), photoCount, resultsText),
		PhotoSections:   sections,
		FinalInspection: finalInspectionText,
		Recommendations: append([]string(nil), recommendations...),
	}
	if meta.Units != models.UnitsMetric {
		doc.UnitsReference = units.Reference()
	}
	return doc
}

// Summary joins the last window notes, capped at 800 runes.
func Summary(notes []string, window int) string {
	if window <= 0 {
		window = DefaultSummaryWindow
	}
	start := len(notes) - window
	if start < 0 {
		start = 0
	}
	var parts []string
	for _, n := range notes[start:] {
		if n = strings.TrimSpace(n); n != "" {
			parts = append(parts, n)
		}
	}
	s := strings.Join(parts, " ")
	if r := []rune(s); len(r) > summaryMaxRunes {
		s = string(r[:summaryMaxRunes-3]) + "..."
	}
	return s
}

// siteConditions picks the first note that talks about the site.
func siteConditions(notes []string) string {
	for _, n := range notes {
		if strings.Contains(strings.ToLower(n), "site") {
			return n
		}
	}
	if len(notes) > 0 {
		return notes[0]
	}
	return ""
}
