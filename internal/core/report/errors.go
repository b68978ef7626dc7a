package report

import (
	"errors"
	"fmt"

	"github.com/markdave123-py/fieldreport/internal/models"
)

// ErrEmptySession is returned for a session with no notes and no photos.
var ErrEmptySession = errors.New("session is empty: send notes or photos first")

// ErrUnsupportedFormat is returned when no renderer is registered for a format.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// RenderError wraps a renderer failure. It is terminal for the compilation.
type RenderError struct {
	Format models.ReportFormat
	Err    error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("render %s: %v", e.Format, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }
