package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"time"

	"github.com/markdave123-py/fieldreport/internal/core"
	"github.com/markdave123-py/fieldreport/internal/core/quota"
	"github.com/markdave123-py/fieldreport/internal/core/report"
	"github.com/markdave123-py/fieldreport/internal/core/session"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/metrics"
	"github.com/markdave123-py/fieldreport/internal/models"
)

const reportModule = "report"

// ErrReportNotFound is returned when a stored report cannot be located.
var ErrReportNotFound = errors.New("report not found")

// GenerateResult is what a successful report request hands back to the transport.
type GenerateResult struct {
	Artifact *models.ReportArtifact
	Quota    quota.Status
}

// ReportService runs the full report request: quota, compile, usage,
// history, session clear and memory.
type ReportService struct {
	sessions session.Store
	limiter  *quota.Limiter
	compiler *report.Compiler
	memory   *MemoryService
	db       core.DbClient
	storage  core.ObjectClient
	bucket   string
	units    models.Units
	log      logger.ILogger
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewReportService(
	sessions session.Store,
	limiter *quota.Limiter,
	compiler *report.Compiler,
	memory *MemoryService,
	db core.DbClient,
	storage core.ObjectClient,
	bucket string,
	units models.Units,
	log logger.ILogger,
	m *metrics.Metrics,
) *ReportService {
	return &ReportService{
		sessions: sessions, limiter: limiter, compiler: compiler, memory: memory,
		db: db, storage: storage, bucket: bucket, units: units,
		log: log, metrics: m, now: time.Now,
	}
}

// Generate compiles the user's session. On a render failure the session is
// kept and no quota is charged.
func (s *ReportService) Generate(ctx context.Context, userID int64, username string, format models.ReportFormat) (*GenerateResult, error) {
	sess, ok, err := s.sessions.Get(ctx, userID)
	if err != nil {
		s.metrics.ReportFailed("session")
		return nil, fmt.Errorf("load session: %w", err)
	}
	if !ok || sess.IsEmpty() {
		s.metrics.ReportFailed("empty")
		return nil, report.ErrEmptySession
	}

	if _, err := s.limiter.Allow(ctx, userID); err != nil {
		var qe *quota.QuotaExceededError
		if errors.As(err, &qe) {
			s.metrics.QuotaRejected()
			s.metrics.ReportFailed("quota")
		}
		return nil, err
	}

	if username == "" {
		username = sess.Username
	}
	meta := s.metadata(ctx, userID, username, sess.Notes)

	started := s.now()
	artifact, err := s.compiler.Compile(ctx, sess, meta, format)
	if err != nil {
		var re *report.RenderError
		if errors.As(err, &re) {
			s.metrics.ReportFailed("render")
		} else {
			s.metrics.ReportFailed("compile")
		}
		s.log.Error(reportModule, "Report compilation failed", map[string]interface{}{"user_id": userID, "error": err})
		return nil, err
	}
	s.metrics.ObserveReport(string(format), started)

	res := &GenerateResult{Artifact: artifact}
	rec, err := s.limiter.RecordUsage(ctx, userID, username)
	if err != nil {
		s.log.Error(reportModule, "Recording quota usage failed", map[string]interface{}{"user_id": userID, "error": err})
		res.Quota, _ = s.limiter.Status(ctx, userID)
	} else {
		res.Quota = s.limiter.Check(rec)
	}

	if err := s.db.InsertGeneratedReport(ctx, &models.GeneratedReport{
		ID:         artifact.ID,
		UserID:     userID,
		Filename:   artifact.Filename,
		Format:     string(artifact.Format),
		StorageURL: artifact.StorageURL,
		NoteCount:  artifact.NoteCount,
		PhotoCount: artifact.PhotoCount,
	}); err != nil {
		s.log.Warn(reportModule, "Saving report history failed", map[string]interface{}{"user_id": userID, "error": err})
	}

	if err := s.sessions.Clear(ctx, userID); err != nil {
		s.log.Error(reportModule, "Clearing session failed", map[string]interface{}{"user_id": userID, "error": err})
	} else {
		s.metrics.SessionEvent("clear")
	}

	if s.memory != nil {
		if _, err := s.memory.Remember(ctx, userID, sess.Notes); err != nil {
			s.log.Warn(reportModule, "Saving memory failed", map[string]interface{}{"user_id": userID, "error": err})
		}
	}
	return res, nil
}

func (s *ReportService) metadata(ctx context.Context, userID int64, username string, notes []string) models.ReportMeta {
	var facts []models.MemoryFact
	if s.memory != nil {
		var err error
		facts, err = s.memory.Recall(ctx, userID, 10)
		if err != nil {
			s.log.Warn(reportModule, "Loading memory failed", map[string]interface{}{"user_id": userID, "error": err})
		}
	}
	client, site := Prefill(notes, facts)
	if username == "" {
		username = strconv.FormatInt(userID, 10)
	}
	return models.ReportMeta{
		Client:     client,
		Site:       site,
		Technician: username,
		Date:       s.now(),
		Units:      s.units,
	}
}

func (s *ReportService) Quota(ctx context.Context, userID int64) (quota.Status, error) {
	return s.limiter.Status(ctx, userID)
}

func (s *ReportService) ResetQuotas(ctx context.Context) (int64, error) {
	return s.limiter.Reset(ctx)
}

func (s *ReportService) History(ctx context.Context, userID int64, limit int) ([]models.GeneratedReport, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.db.ListGeneratedReports(ctx, userID, limit)
}

// Download fetches a stored report of the user by filename.
func (s *ReportService) Download(ctx context.Context, userID int64, filename string) ([]byte, error) {
	if s.storage == nil || filename == "" || path.Base(filename) != filename {
		return nil, ErrReportNotFound
	}
	key := path.Join("reports", strconv.FormatInt(userID, 10), filename)
	data, err := s.storage.GetFile(ctx, s.bucket, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReportNotFound, err)
	}
	return data, nil
}
