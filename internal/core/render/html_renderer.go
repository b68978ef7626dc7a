package render

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/base64"
	"fmt"
	"html/template"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
)

//go:embed templates/report.html.tmpl
var reportTemplate string

var reportHTML = template.Must(template.New("report").Parse(reportTemplate))

type htmlPhoto struct {
	Src     template.URL
	Caption string
}

type htmlSection struct {
	Title  string
	Photos []htmlPhoto
}

type htmlReport struct {
	Title           string
	FrameLabel      string
	Date            string
	Meta            [][2]string
	Summary         string
	Scope           string
	SiteConditions  string
	WorkPerformed   []string
	EmptyWork       string
	Results         string
	Sections        []htmlSection
	FinalInspection string
	Recommendations []string
	UnitsReference  []string
}

// ChromeRenderer prints an ISO 5457 framed HTML report through headless Chrome.
type ChromeRenderer struct {
	execPath string
	log      logger.ILogger
}

func NewChromeRenderer(execPath string, log logger.ILogger) *ChromeRenderer {
	return &ChromeRenderer{execPath: execPath, log: log}
}

func (r *ChromeRenderer) ContentType() string { return "application/pdf" }

func (r *ChromeRenderer) Render(ctx context.Context, doc *models.ReportDocument) ([]byte, error) {
	html, err := r.BuildHTML(doc)
	if err != nil {
		return nil, err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if r.execPath != "" {
		opts = append(opts, chromedp.ExecPath(r.execPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	var pdf []byte
	err = chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chrome print: %w", err)
	}
	return pdf, nil
}

// BuildHTML renders the framed HTML document that Chrome prints.
func (r *ChromeRenderer) BuildHTML(doc *models.ReportDocument) ([]byte, error) {
	data := htmlReport{
		Title:           doc.Meta.Title,
		FrameLabel:      "ENGINEERING REPORT",
		Date:            doc.Meta.Date.UTC().Format("2006-01-02"),
		Meta:            metaRows(doc.Meta),
		Summary:         orDefault(doc.Summary, defaultSummary),
		Scope:           doc.Scope,
		SiteConditions:  doc.SiteConditions,
		WorkPerformed:   doc.WorkPerformed,
		EmptyWork:       defaultWorkItem,
		Results:         doc.Results,
		FinalInspection: doc.FinalInspection,
		Recommendations: doc.Recommendations,
		UnitsReference:  doc.UnitsReference,
	}
	for _, sec := range doc.PhotoSections {
		if len(sec.Photos) == 0 {
			continue
		}
		hs := htmlSection{Title: sec.Title}
		for i, p := range sec.Photos {
			hp := htmlPhoto{Caption: captionOf(p, i)}
			if img, err := Downscale(p.Content, PhotoMaxWidth); err == nil {
				hp.Src = template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img))
			} else if r.log != nil {
				r.log.Warn(module, "Photo skipped", map[string]interface{}{"file_id": p.FileID, "error": err})
			}
			hs.Photos = append(hs.Photos, hp)
		}
		data.Sections = append(data.Sections, hs)
	}

	var buf bytes.Buffer
	if err := reportHTML.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("execute report template: %w", err)
	}
	return buf.Bytes(), nil
}
