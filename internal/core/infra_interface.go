package core

import (
	"context"

	"github.com/markdave123-py/fieldreport/internal/models"
)

// DbClient defines all persistence operations the bot needs.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	GetReportRecord(ctx context.Context, userID int64) (*models.ReportRecord, error)
	SaveReportRecord(ctx context.Context, rec *models.ReportRecord) error
	ResetDailyCounts(ctx context.Context) (int64, error)

	InsertMemoryFact(ctx context.Context, fact *models.MemoryFact) error
	ListMemoryFacts(ctx context.Context, userID int64, limit int) ([]models.MemoryFact, error)
	PruneMemoryFacts(ctx context.Context, userID int64, keep int) (int64, error)

	InsertGeneratedReport(ctx context.Context, rep *models.GeneratedReport) error
	ListGeneratedReports(ctx context.Context, userID int64, limit int) ([]models.GeneratedReport, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
