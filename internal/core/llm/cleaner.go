package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/markdave123-py/fieldreport/internal/core"
)

const cleanerPrompt = "You are a text cleaning assistant for engineering field notes. " +
	"Fix spelling errors, remove extra spaces and write the note in a professional register. " +
	"Keep every measurement, unit and equipment name exactly as given. " +
	"Return ONLY the cleaned text, no explanations."

// ErrEmptyCompletion is returned when the model answers with nothing.
var ErrEmptyCompletion = errors.New("llm returned empty text")

// Cleaner normalizes a single note through an LLM.
type Cleaner struct {
	llm core.LLMProvider
}

func NewCleaner(llm core.LLMProvider) *Cleaner {
	return &Cleaner{llm: llm}
}

func (c *Cleaner) Clean(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}
	out, err := c.llm.Generate(ctx, cleanerPrompt, text)
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", ErrEmptyCompletion
	}
	return out, nil
}

var _ core.TextNormalizer = (*Cleaner)(nil)
