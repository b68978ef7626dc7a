package services

import (
	"context"
	"fmt"

	"github.com/markdave123-py/fieldreport/internal/core/extractor"
	"github.com/markdave123-py/fieldreport/internal/core/session"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/metrics"
	"github.com/markdave123-py/fieldreport/internal/models"
)

const sessionModule = "session"

// Counts is a snapshot of what a session holds.
type Counts struct {
	Notes  int
	Photos int
}

type SessionService struct {
	store    session.Store
	splitter *extractor.NoteSplitter
	log      logger.ILogger
	metrics  *metrics.Metrics
}

func NewSessionService(store session.Store, splitter *extractor.NoteSplitter, log logger.ILogger, m *metrics.Metrics) *SessionService {
	return &SessionService{store: store, splitter: splitter, log: log, metrics: m}
}

func (s *SessionService) AddNote(ctx context.Context, userID int64, username, text string) (Counts, error) {
	if err := s.store.AppendNote(ctx, userID, username, text); err != nil {
		return Counts{}, fmt.Errorf("save note: %w", err)
	}
	s.metrics.SessionEvent("note")
	return s.Counts(ctx, userID)
}

func (s *SessionService) AddPhoto(ctx context.Context, userID int64, username string, photo models.Photo) (models.Category, Counts, error) {
	cat, err := s.store.AppendPhoto(ctx, userID, username, photo)
	if err != nil {
		return "", Counts{}, fmt.Errorf("save photo: %w", err)
	}
	s.metrics.SessionEvent("photo")
	s.log.Debug(sessionModule, "Photo stored", map[string]interface{}{
		"user_id": userID, "category": string(cat), "bytes": len(photo.Content),
	})
	c, err := s.Counts(ctx, userID)
	return cat, c, err
}

// AddDocument converts an attachment to text and appends it as notes.
func (s *SessionService) AddDocument(ctx context.Context, userID int64, username string, data []byte, contentType string) (int, Counts, error) {
	notes, err := s.splitter.Notes(ctx, data, contentType)
	if err != nil {
		return 0, Counts{}, fmt.Errorf("extract document: %w", err)
	}
	for _, n := range notes {
		if err := s.store.AppendNote(ctx, userID, username, n); err != nil {
			return 0, Counts{}, fmt.Errorf("save note: %w", err)
		}
	}
	s.metrics.SessionEvent("document")
	c, err := s.Counts(ctx, userID)
	return len(notes), c, err
}

func (s *SessionService) Counts(ctx context.Context, userID int64) (Counts, error) {
	sess, ok, err := s.store.Get(ctx, userID)
	if err != nil {
		return Counts{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return Counts{}, nil
	}
	return Counts{Notes: len(sess.Notes), Photos: len(sess.Photos)}, nil
}

func (s *SessionService) Clear(ctx context.Context, userID int64) error {
	if err := s.store.Clear(ctx, userID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.metrics.SessionEvent("clear")
	return nil
}
