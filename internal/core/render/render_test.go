package render

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
	"time"

	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testImage(t *testing.T, w, h int, asPNG bool) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if asPNG {
		require.NoError(t, png.Encode(&buf, img))
	} else {
		require.NoError(t, jpeg.Encode(&buf, img, nil))
	}
	return buf.Bytes()
}

func sampleDoc(t *testing.T) *models.ReportDocument {
	return &models.ReportDocument{
		Meta: models.ReportMeta{
			Title:      "Pump Station Inspection",
			Client:     "Acme Water",
			Site:       "North Plant",
			Technician: "ana",
			Date:       time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC),
			Units:      models.UnitsBoth,
		},
		Summary:        "Checked **bolt torque** at 25 °C.",
		Scope:          "This report documents site conditions.",
		SiteConditions: "Site: dry, 21 °C",
		WorkPerformed:  []string{"check bolt torque", "- replaced seal\n- tested `P1`"},
		Results:        "Results summarized.",
		PhotoSections: []models.PhotoSection{
			{Category: models.CategoryBefore, Title: "Before", Photos: []models.Photo{
				{FileID: "a", Caption: "before repair", Content: testImage(t, 800, 600, false)},
				{FileID: "b", Content: testImage(t, 40, 30, true)},
			}},
			{Category: models.CategoryAfter, Title: "After", Photos: []models.Photo{
				{FileID: "c", Caption: "broken", Content: []byte("not an image")},
			}},
		},
		FinalInspection: "Final inspection confirms equipment status.",
		Recommendations: []string{"Monitor vibration."},
		UnitsReference:  []string{"1 m = 3.28084 ft"},
	}
}

func TestDownscale(t *testing.T) {
	out, err := Downscale(testImage(t, 1000, 400, true), PhotoMaxWidth)
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 500, cfg.Width)
	assert.Equal(t, 200, cfg.Height)
}

func TestDownscaleKeepsSmallImages(t *testing.T) {
	out, err := Downscale(testImage(t, 120, 80, false), PhotoMaxWidth)
	require.NoError(t, err)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.Width)
}

func TestDownscaleRejectsGarbage(t *testing.T) {
	_, err := Downscale([]byte("nope"), PhotoMaxWidth)
	assert.Error(t, err)
}

func TestPDFRenderer(t *testing.T) {
	r := NewPDFRenderer(logger.NewNop())
	out, err := r.Render(context.Background(), sampleDoc(t))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
	assert.Equal(t, "application/pdf", r.ContentType())
}

func TestPDFRendererMinimalDocument(t *testing.T) {
	doc := &models.ReportDocument{Meta: models.ReportMeta{Title: "Engineering Field Report", Date: time.Now()}}
	out, err := NewPDFRenderer(logger.NewNop()).Render(context.Background(), doc)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestPDFRendererHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewPDFRenderer(logger.NewNop()).Render(ctx, sampleDoc(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuildHTML(t *testing.T) {
	doc := sampleDoc(t)
	doc.WorkPerformed = append(doc.WorkPerformed, "<script>alert(1)</script>")

	out, err := NewChromeRenderer("", logger.NewNop()).BuildHTML(doc)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, "<h1>Pump Station Inspection</h1>")
	assert.Contains(t, html, "Checked **bolt torque** at 25 °C.")
	assert.Contains(t, html, "- replaced seal\n- tested `P1`")
	assert.Contains(t, html, "data:image/jpeg;base64,")
	assert.Contains(t, html, "[image unavailable]")
	assert.Contains(t, html, "Acme Water")
	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Less(t, strings.Index(html, "<h2>Before</h2>"), strings.Index(html, "<h2>After</h2>"))
	assert.Less(t, strings.Index(html, "<h2>After</h2>"), strings.Index(html, "<h2>Final Inspection</h2>"))
}

// literalNotes are technician notes that a markdown parser would rewrite or drop.
var literalNotes = []string{
	"check bolt torque",
	"cut boards 2*4*8 long",
	"2024. annual service done",
	"manual at https://example.com/pump-manual",
	"    Pressure held at 5 bar",
	"replaced <valve> seal",
	"```\nfenced reading 7\n```",
}

func TestPDFRendererKeepsNoteTextVerbatim(t *testing.T) {
	doc := &models.ReportDocument{
		Meta:          models.ReportMeta{Title: "Engineering Field Report", Date: time.Now()},
		WorkPerformed: literalNotes,
	}
	pdf, err := NewPDFRenderer(logger.NewNop()).layout(context.Background(), doc)
	require.NoError(t, err)
	pdf.SetCompression(false)

	var buf bytes.Buffer
	require.NoError(t, pdf.Output(&buf))
	out := buf.String()

	for _, want := range []string{
		"(check bolt torque)",
		"(cut boards 2*4*8 long)",
		"(2024. annual service done)",
		"(manual at https://example.com/pump-manual)",
		"Pressure held at 5 bar)",
		"(replaced <valve> seal)",
		"(```)",
		"(fenced reading 7)",
	} {
		assert.Contains(t, out, want)
	}
}

func TestBuildHTMLKeepsNoteTextVerbatim(t *testing.T) {
	doc := &models.ReportDocument{
		Meta:          models.ReportMeta{Title: "Engineering Field Report", Date: time.Now()},
		WorkPerformed: literalNotes,
	}
	out, err := NewChromeRenderer("", nil).BuildHTML(doc)
	require.NoError(t, err)
	html := string(out)

	assert.Contains(t, html, `<li class="verbatim">cut boards 2*4*8 long</li>`)
	assert.Contains(t, html, `<li class="verbatim">2024. annual service done</li>`)
	assert.Contains(t, html, `<li class="verbatim">manual at https://example.com/pump-manual</li>`)
	assert.Contains(t, html, `<li class="verbatim">    Pressure held at 5 bar</li>`)
	assert.Contains(t, html, `<li class="verbatim">replaced &lt;valve&gt; seal</li>`)
	assert.Contains(t, html, "fenced reading 7")
	assert.NotContains(t, html, "<strong>")
	assert.NotContains(t, html, "<em>")
}

func TestBuildHTMLSkipsEmptySections(t *testing.T) {
	doc := sampleDoc(t)
	doc.PhotoSections = []models.PhotoSection{{Category: models.CategoryCover, Title: "Cover Photo"}}

	out, err := NewChromeRenderer("", nil).BuildHTML(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "Cover Photo")
}
