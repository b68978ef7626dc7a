package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docxParagraphs(t *testing.T, data []byte) []string {
	t.Helper()
	parsed, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var out []string
	for _, it := range parsed.Document.Body.Items {
		if p, ok := it.(*docx.Paragraph); ok {
			out = append(out, p.String())
		}
	}
	return out
}

func TestDOCXRenderer(t *testing.T) {
	r := NewDOCXRenderer(logger.NewNop())
	out, err := r.Render(context.Background(), sampleDoc(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("PK")))
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", r.ContentType())

	text := strings.Join(docxParagraphs(t, out), "\n")
	assert.Contains(t, text, "Pump Station Inspection")
	assert.Contains(t, text, "Acme Water")
	assert.Contains(t, text, "1. check bolt torque")
	assert.Contains(t, text, "before repair")
	assert.Contains(t, text, "[image unavailable] broken")
	assert.Less(t, strings.Index(text, "Before"), strings.Index(text, "After"))
	assert.Contains(t, text, "Monitor vibration.")
}

func TestDOCXRendererKeepsNoteTextVerbatim(t *testing.T) {
	doc := &models.ReportDocument{
		Meta:          models.ReportMeta{Title: "Engineering Field Report"},
		WorkPerformed: literalNotes,
	}
	out, err := NewDOCXRenderer(logger.NewNop()).Render(context.Background(), doc)
	require.NoError(t, err)

	paras := docxParagraphs(t, out)
	for i, note := range literalNotes {
		assert.Contains(t, paras, fmt.Sprintf("%d. %s", i+1, note))
	}
}

func TestDOCXRendererHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDOCXRenderer(logger.NewNop()).Render(ctx, sampleDoc(t))
	assert.ErrorIs(t, err, context.Canceled)
}
