// Package report compiles a session into a rendered, stored field report.
package report

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/markdave123-py/fieldreport/internal/core"
	"github.com/markdave123-py/fieldreport/internal/core/retry"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/metrics"
	"github.com/markdave123-py/fieldreport/internal/models"
	"golang.org/x/sync/errgroup"
)

const module = "compiler"

// Renderer turns a report document into bytes of one format.
type Renderer interface {
	Render(ctx context.Context, doc *models.ReportDocument) ([]byte, error)
	ContentType() string
}

// Storage is the part of the object client the compiler needs.
type Storage interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error)
}

type Options struct {
	Bucket           string
	SummaryWindow    int
	Placement        Placement
	NormalizeTimeout time.Duration
	RenderTimeout    time.Duration
	UploadTimeout    time.Duration
	RetryAttempts    int
	CleanConcurrency int
}

// Compiler builds reports. It never clears sessions or records quota usage.
type Compiler struct {
	opts       Options
	normalizer core.TextNormalizer
	titles     core.TitleGenerator
	storage    Storage
	renderers  map[models.ReportFormat]Renderer
	log        logger.ILogger
	metrics    *metrics.Metrics
	now        func() time.Time
}

// NewCompiler creates a compiler. normalizer, titles and storage may be nil:
// notes are then kept raw, the default title is used and nothing is uploaded.
func NewCompiler(opts Options, normalizer core.TextNormalizer, titles core.TitleGenerator, storage Storage, log logger.ILogger, m *metrics.Metrics) *Compiler {
	if opts.SummaryWindow <= 0 {
		opts.SummaryWindow = DefaultSummaryWindow
	}
	if opts.Placement == "" {
		opts.Placement = PlaceLast
	}
	if opts.CleanConcurrency <= 0 {
		opts.CleanConcurrency = 4
	}
	return &Compiler{
		opts:       opts,
		normalizer: normalizer,
		titles:     titles,
		storage:    storage,
		renderers:  map[models.ReportFormat]Renderer{},
		log:        log,
		metrics:    m,
		now:        time.Now,
	}
}

// Register binds a renderer to a format.
func (c *Compiler) Register(format models.ReportFormat, r Renderer) {
	c.renderers[format] = r
}

// Supports reports whether a renderer is registered for format.
func (c *Compiler) Supports(format models.ReportFormat) bool {
	_, ok := c.renderers[format]
	return ok
}

func (c *Compiler) Compile(ctx context.Context, sess models.Session, meta models.ReportMeta, format models.ReportFormat) (*models.ReportArtifact, error) {
	if sess.IsEmpty() {
		return nil, ErrEmptySession
	}
	renderer, ok := c.renderers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	notes := c.cleanNotes(ctx, sess.UserID, sess.Notes)
	sections := Bucket(sess.Photos, c.opts.Placement)
	if strings.TrimSpace(meta.Title) == "" {
		meta.Title = c.title(ctx, notes, sess.Photos, meta.Site)
	}
	if meta.Date.IsZero() {
		meta.Date = c.now()
	}
	doc := BuildDocument(meta, notes, sections, c.opts.SummaryWindow)

	renderCtx, cancel := withTimeout(ctx, c.opts.RenderTimeout)
	data, err := renderer.Render(renderCtx, doc)
	cancel()
	if err != nil {
		return nil, &RenderError{Format: format, Err: err}
	}
	if len(data) == 0 {
		return nil, &RenderError{Format: format, Err: fmt.Errorf("renderer produced no output")}
	}

	artifact := &models.ReportArtifact{
		ID:          uuid.NewString(),
		Filename:    c.filename(sess.UserID, format),
		ContentType: renderer.ContentType(),
		Format:      format,
		Bytes:       data,
		NoteCount:   len(sess.Notes),
		PhotoCount:  len(sess.Photos),
	}
	artifact.StorageURL = c.upload(ctx, sess.UserID, artifact)

	c.log.Info(module, "Report compiled", map[string]interface{}{
		"user_id": sess.UserID, "filename": artifact.Filename, "bytes": len(data),
		"notes": artifact.NoteCount, "photos": artifact.PhotoCount, "stored": artifact.StorageURL != "",
	})
	return artifact, nil
}

// cleanNotes normalizes notes in parallel. A note whose cleaning fails keeps
// its raw text.
func (c *Compiler) cleanNotes(ctx context.Context, userID int64, notes []string) []string {
	out := append([]string(nil), notes...)
	if c.normalizer == nil || len(notes) == 0 {
		return out
	}

	policy := retry.DefaultPolicy(c.opts.RetryAttempts, c.opts.NormalizeTimeout)
	var g errgroup.Group
	g.SetLimit(c.opts.CleanConcurrency)
	for i, raw := range notes {
		g.Go(func() error {
			cleaned, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
				return c.normalizer.Clean(ctx, raw)
			})
			if err != nil || strings.TrimSpace(cleaned) == "" && strings.TrimSpace(raw) != "" {
				c.metrics.NormalizationFellBack()
				c.log.Warn(module, "Note cleaning failed, keeping raw text", map[string]interface{}{
					"user_id": userID, "note": i, "error": err,
				})
				return nil
			}
			out[i] = cleaned
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Compiler) title(ctx context.Context, notes []string, photos []models.Photo, project string) string {
	if c.titles == nil {
		return DefaultTitle
	}
	captions := make([]string, 0, len(photos))
	for _, p := range photos {
		if p.Caption != "" {
			captions = append(captions, p.Caption)
		}
	}
	tctx, cancel := withTimeout(ctx, c.opts.NormalizeTimeout)
	defer cancel()
	t, err := c.titles.Titles(tctx, notes, captions, project)
	if err != nil || t == nil || strings.TrimSpace(t.ProjectTitle) == "" {
		c.log.Warn(module, "Title generation failed, using default", map[string]interface{}{"error": err})
		return DefaultTitle
	}
	return t.ProjectTitle
}

// filename is unique per call: user id, millisecond timestamp and a random suffix.
func (c *Compiler) filename(userID int64, format models.ReportFormat) string {
	return fmt.Sprintf("report_%d_%d_%s.%s", userID, c.now().UnixMilli(), uuid.NewString()[:8], format.Extension())
}

// upload stores the artifact and returns its URL, or "" when storage failed.
func (c *Compiler) upload(ctx context.Context, userID int64, a *models.ReportArtifact) string {
	if c.storage == nil {
		return ""
	}
	key := path.Join("reports", strconv.FormatInt(userID, 10), a.Filename)
	policy := retry.DefaultPolicy(c.opts.RetryAttempts, c.opts.UploadTimeout)

	url, err := retry.Do(ctx, policy, func(ctx context.Context) (string, error) {
		return c.storage.UploadFile(ctx, c.opts.Bucket, key, a.Bytes, a.ContentType)
	})
	if err != nil {
		c.metrics.UploadFailed()
		c.log.Error(module, "Report upload failed", map[string]interface{}{
			"user_id": userID, "key": key, "error": err,
		})
		return ""
	}
	return url
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
