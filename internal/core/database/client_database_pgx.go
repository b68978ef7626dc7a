package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/fieldreport/internal/config"
	"github.com/markdave123-py/fieldreport/internal/core"
	"github.com/markdave123-py/fieldreport/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (core.DbClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	dsn, err := buildDSN(cfg.DatabaseURL, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// buildDSN appends CA verification to the URL when a certificate is configured.
func buildDSN(databaseURL, sslCertPath string) (string, error) {
	if databaseURL == "" {
		return "", fmt.Errorf("DATABASE_URL is empty")
	}
	if sslCertPath == "" {
		return databaseURL, nil
	}
	if _, err := os.Stat(sslCertPath); err != nil {
		return "", fmt.Errorf("ssl cert not accessible at %q: %w", sslCertPath, err)
	}
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	q := u.Query()
	q.Set("sslmode", "verify-ca")
	q.Set("sslrootcert", sslCertPath)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Report records

func (c *DatabaseClient) GetReportRecord(ctx context.Context, userID int64) (*models.ReportRecord, error) {
	const q = `
		SELECT telegram_user_id, telegram_username, daily_report_count,
		       COALESCE(to_char(last_report_date, 'YYYY-MM-DD'), ''), total_reports_generated, updated_at
		FROM report_records
		WHERE telegram_user_id = $1
	`
	var r models.ReportRecord
	err := c.db.QueryRowContext(ctx, q, userID).Scan(
		&r.UserID, &r.Username, &r.DailyCount, &r.LastReportDate, &r.TotalReports, &r.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *DatabaseClient) SaveReportRecord(ctx context.Context, rec *models.ReportRecord) error {
	if rec == nil {
		return errors.New("nil report record")
	}
	const q = `
		INSERT INTO report_records
			(telegram_user_id, telegram_username, daily_report_count, last_report_date, total_reports_generated, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, '')::date, $5, COALESCE($6, now()))
		ON CONFLICT (telegram_user_id) DO UPDATE SET
			telegram_username       = EXCLUDED.telegram_username,
			daily_report_count      = EXCLUDED.daily_report_count,
			last_report_date        = EXCLUDED.last_report_date,
			total_reports_generated = EXCLUDED.total_reports_generated,
			updated_at              = EXCLUDED.updated_at
	`
	var updated interface{}
	if !rec.UpdatedAt.IsZero() {
		updated = rec.UpdatedAt
	}
	_, err := c.db.ExecContext(ctx, q,
		rec.UserID, rec.Username, rec.DailyCount, rec.LastReportDate, rec.TotalReports, updated)
	return err
}

func (c *DatabaseClient) ResetDailyCounts(ctx context.Context) (int64, error) {
	const q = `
		UPDATE report_records
		SET daily_report_count = 0, updated_at = now()
		WHERE daily_report_count <> 0
	`
	res, err := c.db.ExecContext(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Memory facts

func (c *DatabaseClient) InsertMemoryFact(ctx context.Context, fact *models.MemoryFact) error {
	if fact == nil {
		return errors.New("nil memory fact")
	}
	const q = `
		INSERT INTO user_memory
			(id, telegram_user_id, memory_type, key_info, value_info, confidence_score)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q,
		fact.ID, fact.UserID, fact.MemoryType, fact.Key, fact.Value, fact.Confidence,
	).Scan(&fact.CreatedAt)
}

// ListMemoryFacts returns the most confident facts first, newest first on ties.
func (c *DatabaseClient) ListMemoryFacts(ctx context.Context, userID int64, limit int) ([]models.MemoryFact, error) {
	const q = `
		SELECT id, telegram_user_id, memory_type, key_info, value_info, confidence_score, created_at
		FROM user_memory
		WHERE telegram_user_id = $1
		ORDER BY confidence_score DESC, created_at DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.MemoryFact
	for rows.Next() {
		var f models.MemoryFact
		if err := rows.Scan(&f.ID, &f.UserID, &f.MemoryType, &f.Key, &f.Value, &f.Confidence, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// PruneMemoryFacts deletes everything but the user's keep newest facts.
func (c *DatabaseClient) PruneMemoryFacts(ctx context.Context, userID int64, keep int) (int64, error) {
	const q = `
		DELETE FROM user_memory
		WHERE telegram_user_id = $1
		  AND id NOT IN (
			SELECT id FROM user_memory
			WHERE telegram_user_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		  )
	`
	res, err := c.db.ExecContext(ctx, q, userID, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Generated reports

func (c *DatabaseClient) InsertGeneratedReport(ctx context.Context, rep *models.GeneratedReport) error {
	if rep == nil {
		return errors.New("nil generated report")
	}
	const q = `
		INSERT INTO generated_reports
			(id, telegram_user_id, filename, format, storage_url, note_count, photo_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	return c.db.QueryRowContext(ctx, q,
		rep.ID, rep.UserID, rep.Filename, rep.Format, rep.StorageURL, rep.NoteCount, rep.PhotoCount,
	).Scan(&rep.CreatedAt)
}

func (c *DatabaseClient) ListGeneratedReports(ctx context.Context, userID int64, limit int) ([]models.GeneratedReport, error) {
	const q = `
		SELECT id, telegram_user_id, filename, format, storage_url, note_count, photo_count, created_at
		FROM generated_reports
		WHERE telegram_user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := c.db.QueryContext(ctx, q, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.GeneratedReport
	for rows.Next() {
		var r models.GeneratedReport
		if err := rows.Scan(
			&r.ID, &r.UserID, &r.Filename, &r.Format, &r.StorageURL, &r.NoteCount, &r.PhotoCount, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

var _ core.DbClient = (*DatabaseClient)(nil)
