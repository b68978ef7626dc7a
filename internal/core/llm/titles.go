package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/markdave123-py/fieldreport/internal/core"
)

const titlesPrompt = "You are an expert engineering report writer. " +
	"Generate professional, concise titles for engineering report sections."

type TitleGenerator struct {
	llm core.LLMProvider
}

func NewTitleGenerator(llm core.LLMProvider) *TitleGenerator {
	return &TitleGenerator{llm: llm}
}

func (t *TitleGenerator) Titles(ctx context.Context, notes, captions []string, project string) (*core.FrameTitles, error) {
	if project == "" {
		project = "Field Report"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "User Notes: %s\n", strings.Join(notes, ", "))
	fmt.Fprintf(&b, "Photo Captions: %s\n", strings.Join(captions, ", "))
	fmt.Fprintf(&b, "Project Name: %s\n\n", project)
	b.WriteString("Based on this field report content, generate a main project title for the cover page " +
		"and section titles for the report pages. Respond with a JSON object with the fields " +
		`"projectTitle" (string) and "sectionTitles" (array of strings).`)

	raw, err := t.llm.Generate(ctx, titlesPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var out core.FrameTitles
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return nil, fmt.Errorf("decode titles: %w", err)
	}
	out.ProjectTitle = strings.TrimSpace(out.ProjectTitle)
	if out.ProjectTitle == "" {
		return nil, fmt.Errorf("decode titles: %w", ErrEmptyCompletion)
	}
	return &out, nil
}

// stripFences removes a ```json fenced block wrapper some models add.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

var _ core.TitleGenerator = (*TitleGenerator)(nil)
