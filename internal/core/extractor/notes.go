// Package extractor turns document attachments into note-sized text chunks.
package extractor

import (
	"context"
	"errors"

	"github.com/markdave123-py/fieldreport/internal/core"
	"golang.org/x/sync/errgroup"
)

const DefaultNoteTokens = 120

var (
	ErrEmptyDocument = errors.New("document is empty")
	ErrNoText        = errors.New("no text found in document")
)

// NoteSplitter runs the extract and chunk stages for one attachment.
type NoteSplitter struct {
	extractor    core.DocumentExtractor
	targetTokens int
}

func NewNoteSplitter(extractor core.DocumentExtractor, targetTokens int) *NoteSplitter {
	if targetTokens <= 0 {
		targetTokens = DefaultNoteTokens
	}
	return &NoteSplitter{extractor: extractor, targetTokens: targetTokens}
}

// Notes returns the attachment's text split into notes, in document order.
func (s *NoteSplitter) Notes(ctx context.Context, data []byte, contentType string) ([]string, error) {
	g, gctx := errgroup.WithContext(ctx)

	fragCh, err := s.extractor.ExtractText(gctx, g, data, contentType)
	if err != nil {
		return nil, err
	}
	chunkCh := streamChunk(gctx, g, fragCh, s.targetTokens)

	var notes []string
	g.Go(func() error {
		for c := range chunkCh {
			notes = append(notes, c)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(notes) == 0 {
		return nil, ErrNoText
	}
	return notes, nil
}
