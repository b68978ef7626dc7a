package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
)

const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	marginLeft   = 20.0
	marginTop    = 15.0
	marginRight  = 15.0
	marginBottom = 15.0
	contentWidth = pageWidth - marginLeft - marginRight
	photoWidth   = 120.0
	module       = "render"
)

// PDFRenderer lays a report out with fpdf. Note text is written verbatim.
type PDFRenderer struct {
	log logger.ILogger
}

func NewPDFRenderer(log logger.ILogger) *PDFRenderer {
	return &PDFRenderer{log: log}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Render(ctx context.Context, doc *models.ReportDocument) ([]byte, error) {
	pdf, err := r.layout(ctx, doc)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *PDFRenderer) layout(ctx context.Context, doc *models.ReportDocument) (*fpdf.Fpdf, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, marginBottom)
	pdf.SetTitle(doc.Meta.Title, true)
	pdf.SetAuthor(doc.Meta.Technician, true)
	pdf.SetCreator("fieldreport", true)

	b := &pdfBuilder{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor(""), log: r.log}
	pdf.SetFooterFunc(b.footer)

	b.cover(doc)
	b.heading("Executive Summary")
	b.text(orDefault(doc.Summary, defaultSummary))
	b.heading("Scope")
	b.paragraph(doc.Scope)
	b.heading("Site Conditions")
	b.paragraph("Environmental and operational conditions observed during the site visit are summarized below.")
	b.text(doc.SiteConditions)

	b.heading("Work Performed")
	if len(doc.WorkPerformed) == 0 {
		b.paragraph(defaultWorkItem)
	}
	for i, note := range doc.WorkPerformed {
		b.numbered(i+1, note)
	}

	b.heading("Results")
	b.paragraph(doc.Results)

	for _, sec := range doc.PhotoSections {
		b.photoSection(sec)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}

	b.heading("Final Inspection")
	b.paragraph(doc.FinalInspection)
	b.heading("Recommendations")
	for _, rec := range doc.Recommendations {
		b.bullet(rec)
	}
	if len(doc.UnitsReference) > 0 {
		b.heading("Units Reference")
		for _, line := range doc.UnitsReference {
			b.bullet(line)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	return pdf, nil
}

type pdfBuilder struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	log    logger.ILogger
	images int
}

func (b *pdfBuilder) footer() {
	b.pdf.SetY(-12)
	b.pdf.SetFont("Arial", "I", 8)
	b.pdf.SetTextColor(120, 120, 120)
	b.pdf.CellFormat(0, 5, fmt.Sprintf("Page %d", b.pdf.PageNo()), "", 0, "R", false, 0, "")
	b.pdf.SetTextColor(0, 0, 0)
}

func (b *pdfBuilder) cover(doc *models.ReportDocument) {
	p := b.pdf
	p.AddPage()
	p.SetY(60)
	p.SetFont("Arial", "B", 22)
	p.SetTextColor(0, 51, 102)
	p.MultiCell(0, 10, b.tr(doc.Meta.Title), "", "C", false)
	p.SetDrawColor(74, 144, 226)
	p.SetLineWidth(0.8)
	p.Line(marginLeft+20, p.GetY()+3, pageWidth-marginRight-20, p.GetY()+3)
	p.SetLineWidth(0.2)
	p.SetDrawColor(0, 0, 0)
	p.SetTextColor(0, 0, 0)
	p.Ln(15)

	left := marginLeft + (contentWidth-120)/2
	for _, row := range metaRows(doc.Meta) {
		p.SetX(left)
		p.SetFont("Arial", "B", 11)
		p.CellFormat(35, 9, b.tr(row[0]), "1", 0, "L", false, 0, "")
		p.SetFont("Arial", "", 11)
		p.CellFormat(85, 9, b.tr(row[1]), "1", 1, "L", false, 0, "")
	}
	p.AddPage()
}

func (b *pdfBuilder) heading(title string) {
	p := b.pdf
	if p.GetY() > pageHeight-marginBottom-30 {
		p.AddPage()
	}
	p.Ln(4)
	p.SetFont("Arial", "B", 14)
	p.SetTextColor(0, 51, 102)
	p.SetFillColor(245, 245, 245)
	p.CellFormat(0, 9, b.tr(title), "L", 1, "L", true, 0, "")
	p.SetTextColor(0, 0, 0)
	p.SetFillColor(255, 255, 255)
	p.Ln(2)
}

func (b *pdfBuilder) paragraph(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	b.pdf.SetFont("Arial", "", 11)
	b.pdf.MultiCell(0, 6, b.tr(text), "", "J", false)
	b.pdf.Ln(2)
}

func (b *pdfBuilder) bullet(text string) {
	b.pdf.SetFont("Arial", "", 11)
	b.pdf.SetX(marginLeft + 4)
	b.pdf.CellFormat(5, 6, b.tr("•"), "", 0, "L", false, 0, "")
	b.pdf.MultiCell(0, 6, b.tr(text), "", "L", false)
}

func (b *pdfBuilder) numbered(n int, note string) {
	b.pdf.SetFont("Arial", "B", 11)
	b.pdf.SetTextColor(0, 51, 102)
	b.pdf.Write(6, fmt.Sprintf("%d. ", n))
	b.pdf.SetTextColor(0, 0, 0)
	b.pdf.SetFont("Arial", "", 11)
	b.pdf.MultiCell(0, 6, b.tr(note), "", "L", false)
	b.pdf.Ln(1)
}

// text writes s left aligned, keeping its spacing and line breaks.
func (b *pdfBuilder) text(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	b.pdf.SetFont("Arial", "", 11)
	b.pdf.MultiCell(0, 6, b.tr(s), "", "L", false)
	b.pdf.Ln(2)
}

func (b *pdfBuilder) photoSection(sec models.PhotoSection) {
	if len(sec.Photos) == 0 {
		return
	}
	b.heading(sec.Title)
	for i, photo := range sec.Photos {
		b.photo(photo, i)
	}
}

func (b *pdfBuilder) photo(photo models.Photo, index int) {
	p := b.pdf
	caption := b.tr(captionOf(photo, index))

	img, err := Downscale(photo.Content, PhotoMaxWidth)
	if err != nil {
		b.log.Warn(module, "Photo skipped", map[string]interface{}{"file_id": photo.FileID, "error": err})
		p.SetFont("Arial", "I", 10)
		p.MultiCell(0, 6, b.tr("[image unavailable] ")+caption, "", "C", false)
		return
	}

	b.images++
	name := fmt.Sprintf("photo-%d", b.images)
	opts := fpdf.ImageOptions{ImageType: "JPG", ReadDpi: false}
	info := p.RegisterImageOptionsReader(name, opts, bytes.NewReader(img))
	if info == nil || p.Err() {
		return
	}

	h := photoWidth * info.Height() / info.Width()
	if p.GetY()+h+12 > pageHeight-marginBottom {
		p.AddPage()
	}
	x := marginLeft + (contentWidth-photoWidth)/2
	p.ImageOptions(name, x, p.GetY(), photoWidth, h, true, opts, 0, "")
	p.Ln(1)
	p.SetFont("Arial", "I", 10)
	p.SetTextColor(102, 102, 102)
	p.MultiCell(0, 5, caption, "", "C", false)
	p.SetTextColor(0, 0, 0)
	p.Ln(4)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
