package core

import "context"

type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// TextNormalizer rewrites raw field notes into professional text.
type TextNormalizer interface {
	Clean(ctx context.Context, text string) (string, error)
}

// FrameTitles are the cover and section titles suggested for a report.
type FrameTitles struct {
	ProjectTitle  string   `json:"projectTitle"`
	SectionTitles []string `json:"sectionTitles"`
}

// TitleGenerator suggests report titles from the session content.
type TitleGenerator interface {
	Titles(ctx context.Context, notes, captions []string, project string) (*FrameTitles, error)
}
