package render

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/fumiama/go-docx"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
)

const (
	docxTitleSize   = "44" // half-points
	docxHeadingSize = "28"
	docxBodySize    = "22"
	docxCaptionSize = "20"
	docxAccent      = "003366"
)

// DOCXRenderer builds an editable Word report with go-docx. Photos are
// embedded inline at their downscaled size.
type DOCXRenderer struct {
	log logger.ILogger
}

func NewDOCXRenderer(log logger.ILogger) *DOCXRenderer {
	return &DOCXRenderer{log: log}
}

func (r *DOCXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
}

func (r *DOCXRenderer) Render(ctx context.Context, doc *models.ReportDocument) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &docxBuilder{w: docx.New().WithDefaultTheme().WithA4Page(), log: r.log}
	b.cover(doc)

	b.heading("Executive Summary")
	b.text(orDefault(doc.Summary, defaultSummary))
	b.heading("Scope")
	b.text(doc.Scope)
	b.heading("Site Conditions")
	b.text("Environmental and operational conditions observed during the site visit are summarized below.")
	b.text(doc.SiteConditions)

	b.heading("Work Performed")
	if len(doc.WorkPerformed) == 0 {
		b.text(defaultWorkItem)
	}
	for i, note := range doc.WorkPerformed {
		p := b.w.AddParagraph()
		preserve(p.AddText(strconv.Itoa(i+1) + ". ").Bold().Color(docxAccent).Size(docxBodySize))
		preserve(p.AddText(note).Size(docxBodySize))
	}

	b.heading("Results")
	b.text(doc.Results)

	for _, sec := range doc.PhotoSections {
		if len(sec.Photos) == 0 {
			continue
		}
		b.heading(sec.Title)
		for i, photo := range sec.Photos {
			b.photo(photo, i)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	b.heading("Final Inspection")
	b.text(doc.FinalInspection)
	b.heading("Recommendations")
	for _, rec := range doc.Recommendations {
		b.text("• " + rec)
	}
	if len(doc.UnitsReference) > 0 {
		b.heading("Units Reference")
		for _, line := range doc.UnitsReference {
			b.text("• " + line)
		}
	}

	var buf bytes.Buffer
	if _, err := b.w.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write docx: %w", err)
	}
	return buf.Bytes(), nil
}

type docxBuilder struct {
	w   *docx.Docx
	log logger.ILogger
}

func (b *docxBuilder) cover(doc *models.ReportDocument) {
	b.w.AddParagraph().Justification("center").
		AddText(doc.Meta.Title).Bold().Size(docxTitleSize).Color(docxAccent)
	for _, row := range metaRows(doc.Meta) {
		p := b.w.AddParagraph().Justification("center")
		p.AddText(row[0] + " ").Bold().Size(docxBodySize)
		preserve(p.AddText(row[1]).Size(docxBodySize))
	}
	b.w.AddParagraph().AddPageBreaks()
}

func (b *docxBuilder) heading(title string) {
	b.w.AddParagraph().AddText(title).Bold().Size(docxHeadingSize).Color(docxAccent)
}

// text adds s as one paragraph. Line breaks become soft breaks and runs of
// spaces are kept.
func (b *docxBuilder) text(s string) {
	if s == "" {
		return
	}
	preserve(b.w.AddParagraph().AddText(s).Size(docxBodySize))
}

func (b *docxBuilder) photo(photo models.Photo, index int) {
	caption := captionOf(photo, index)
	img, err := Downscale(photo.Content, PhotoMaxWidth)
	if err == nil {
		_, err = b.w.AddParagraph().Justification("center").AddInlineDrawing(img)
	}
	if err != nil {
		if b.log != nil {
			b.log.Warn(module, "Photo skipped", map[string]interface{}{"file_id": photo.FileID, "error": err})
		}
		caption = "[image unavailable] " + caption
	}
	preserve(b.w.AddParagraph().Justification("center").
		AddText(caption).Italic().Size(docxCaptionSize).Color("666666"))
}

// preserve stops Word from collapsing leading and repeated spaces in r.
func preserve(r *docx.Run) {
	for _, c := range r.Children {
		if t, ok := c.(*docx.Text); ok {
			t.XMLSpace = "preserve"
		}
	}
}
