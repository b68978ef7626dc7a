package models

import (
	"time"
)

// Category is the report section a photo is placed into.
type Category string

const (
	CategoryCover         Category = "cover"
	CategoryBefore        Category = "before"
	CategoryDuring        Category = "during"
	CategoryAfter         Category = "after"
	CategoryFinal         Category = "final"
	CategoryUncategorized Category = "uncategorized"
)

// SectionOrder is the fixed order categorized photo sections are rendered in.
var SectionOrder = []Category{CategoryCover, CategoryBefore, CategoryDuring, CategoryAfter, CategoryFinal}

// Title returns the heading used for the category's photo section.
func (c Category) Title() string {
	switch c {
	case CategoryCover:
		return "Cover Photo"
	case CategoryBefore:
		return "Before"
	case CategoryDuring:
		return "During"
	case CategoryAfter:
		return "After"
	case CategoryFinal:
		return "Final"
	default:
		return "Additional Photos"
	}
}

// Photo is one submitted image held by a session until compilation.
type Photo struct {
	FileID     string    `json:"file_id"`
	SourceURL  string    `json:"source_url"`
	Content    []byte    `json:"content"`
	Caption    string    `json:"caption,omitempty"`
	Category   Category  `json:"category"`
	ReceivedAt time.Time `json:"received_at"`
}

// Session is the accumulating collection of notes and photos for one user.
type Session struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Notes     []string  `json:"notes"`
	Photos    []Photo   `json:"photos"`
	CreatedAt time.Time `json:"created_at"`
}

// IsEmpty reports whether the session holds nothing to compile.
func (s *Session) IsEmpty() bool {
	return s == nil || (len(s.Notes) == 0 && len(s.Photos) == 0)
}

// ReportRecord holds the per-user report counters used by the quota limiter.
type ReportRecord struct {
	UserID         int64     `db:"telegram_user_id" json:"telegram_user_id"`
	Username       string    `db:"telegram_username" json:"telegram_username"`
	DailyCount     int       `db:"daily_report_count" json:"daily_report_count"`
	LastReportDate string    `db:"last_report_date" json:"last_report_date"` // YYYY-MM-DD, UTC
	TotalReports   int       `db:"total_reports_generated" json:"total_reports_generated"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// MemoryFact is a key/value pattern remembered from a user's notes.
type MemoryFact struct {
	ID         string    `db:"id" json:"id"`
	UserID     int64     `db:"telegram_user_id" json:"telegram_user_id"`
	MemoryType string    `db:"memory_type" json:"memory_type"` // preference | fact | pattern
	Key        string    `db:"key_info" json:"key"`
	Value      string    `db:"value_info" json:"value"`
	Confidence float64   `db:"confidence_score" json:"confidence"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ReportFormat selects the renderer used for a compilation.
type ReportFormat string

const (
	FormatPDF       ReportFormat = "pdf"
	FormatFramedPDF ReportFormat = "framed-pdf"
	FormatDOCX      ReportFormat = "docx"
)

// Extension is the file extension of artifacts in this format.
func (f ReportFormat) Extension() string {
	if f == FormatDOCX {
		return "docx"
	}
	return "pdf"
}

// Units controls which unit systems the report advertises.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
	UnitsBoth     Units = "both"
)

// Label is the human readable form shown on the cover.
func (u Units) Label() string {
	switch u {
	case UnitsMetric:
		return "Metric"
	case UnitsImperial:
		return "Imperial"
	default:
		return "Metric & Imperial"
	}
}

// ReportMeta is the title block of a report.
type ReportMeta struct {
	Title      string
	Client     string
	Site       string
	Technician string
	Date       time.Time
	Units      Units
}

// PhotoSection is one rendered bucket of photos.
type PhotoSection struct {
	Category Category
	Title    string
	Photos   []Photo
}

// ReportDocument is the renderer-independent structure of a field report.
type ReportDocument struct {
	Meta            ReportMeta
	Summary         string
	Scope           string
	SiteConditions  string
	WorkPerformed   []string
	Results         string
	PhotoSections   []PhotoSection
	FinalInspection string
	Recommendations []string
	UnitsReference  []string
}

// ReportArtifact is the outcome of a successful compilation.
type ReportArtifact struct {
	ID          string
	Filename    string
	ContentType string
	Format      ReportFormat
	Bytes       []byte
	StorageURL  string // empty when the upload failed
	NoteCount   int
	PhotoCount  int
}

// GeneratedReport is the persisted history row of a delivered report.
type GeneratedReport struct {
	ID         string    `db:"id" json:"id"`
	UserID     int64     `db:"telegram_user_id" json:"telegram_user_id"`
	Filename   string    `db:"filename" json:"filename"`
	Format     string    `db:"format" json:"format"`
	StorageURL string    `db:"storage_url" json:"storage_url"`
	NoteCount  int       `db:"note_count" json:"note_count"`
	PhotoCount int       `db:"photo_count" json:"photo_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
