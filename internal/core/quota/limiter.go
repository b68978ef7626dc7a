// Package quota enforces the per-user daily report limit.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/markdave123-py/fieldreport/internal/models"
)

const DefaultLimit = 2

const dateLayout = "2006-01-02"

// RecordStore persists report counters. GetReportRecord returns nil, nil when
// the user has never generated a report.
type RecordStore interface {
	GetReportRecord(ctx context.Context, userID int64) (*models.ReportRecord, error)
	SaveReportRecord(ctx context.Context, rec *models.ReportRecord) error
	ResetDailyCounts(ctx context.Context) (int64, error)
}

// Status is the outcome of a quota check.
type Status struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	Limit     int       `json:"limit"`
	ResetAt   time.Time `json:"reset_at"`
}

// QuotaExceededError is returned when the daily limit is used up.
type QuotaExceededError struct {
	Limit   int
	ResetAt time.Time
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily report limit of %d reached, resets at %s", e.Limit, e.ResetAt.Format(time.RFC3339))
}

// Evaluate applies the limit to rec at instant now. Counters from an earlier
// UTC calendar day count as zero. A nil record is a user with no reports.
func Evaluate(rec *models.ReportRecord, limit int, now time.Time) Status {
	now = now.UTC()
	used := 0
	if rec != nil && rec.LastReportDate == now.Format(dateLayout) {
		used = rec.DailyCount
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Allowed:   remaining > 0,
		Remaining: remaining,
		Limit:     limit,
		ResetAt:   NextReset(now),
	}
}

// NextReset returns the next UTC midnight strictly after now.
func NextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

type Limiter struct {
	store RecordStore
	limit int
	now   func() time.Time
}

func NewLimiter(store RecordStore, limit int) *Limiter {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Limiter{store: store, limit: limit, now: time.Now}
}

func (l *Limiter) Limit() int { return l.limit }

// Check evaluates rec against the configured limit at the current time.
func (l *Limiter) Check(rec *models.ReportRecord) Status {
	return Evaluate(rec, l.limit, l.now())
}

// Status loads the user's counters and evaluates them.
func (l *Limiter) Status(ctx context.Context, userID int64) (Status, error) {
	rec, err := l.store.GetReportRecord(ctx, userID)
	if err != nil {
		return Status{}, fmt.Errorf("load report record: %w", err)
	}
	return l.Check(rec), nil
}

// Allow returns a *QuotaExceededError when the user has no reports left today.
func (l *Limiter) Allow(ctx context.Context, userID int64) (Status, error) {
	st, err := l.Status(ctx, userID)
	if err != nil {
		return st, err
	}
	if !st.Allowed {
		return st, &QuotaExceededError{Limit: st.Limit, ResetAt: st.ResetAt}
	}
	return st, nil
}

// RecordUsage charges one report to the user. Call it once, only after the
// report has been generated.
func (l *Limiter) RecordUsage(ctx context.Context, userID int64, username string) (*models.ReportRecord, error) {
	rec, err := l.store.GetReportRecord(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load report record: %w", err)
	}
	now := l.now().UTC()
	next := Apply(rec, userID, username, now)
	if err := l.store.SaveReportRecord(ctx, next); err != nil {
		return nil, fmt.Errorf("save report record: %w", err)
	}
	return next, nil
}

// Apply returns the record after one more report at instant now.
func Apply(rec *models.ReportRecord, userID int64, username string, now time.Time) *models.ReportRecord {
	now = now.UTC()
	today := now.Format(dateLayout)

	next := &models.ReportRecord{UserID: userID, Username: username}
	if rec != nil {
		*next = *rec
		if username != "" {
			next.Username = username
		}
	}
	if next.LastReportDate == today {
		next.DailyCount++
	} else {
		next.DailyCount = 1
	}
	next.TotalReports++
	next.LastReportDate = today
	next.UpdatedAt = now
	return next
}

// Reset zeroes every daily counter.
func (l *Limiter) Reset(ctx context.Context) (int64, error) {
	n, err := l.store.ResetDailyCounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset daily counts: %w", err)
	}
	return n, nil
}
