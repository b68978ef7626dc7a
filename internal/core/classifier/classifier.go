// Package classifier maps photo captions to report sections.
package classifier

import (
	"strings"

	"github.com/markdave123-py/fieldreport/internal/models"
)

type rule struct {
	category models.Category
	keywords []string
}

// rules are evaluated in order; the first category with a matching keyword wins.
var rules = []rule{
	{models.CategoryCover, []string{"cover", "title", "overview", "site overview", "front", "entrance"}},
	{models.CategoryBefore, []string{"before", "pre-repair", "pre repair", "initial", "as received"}},
	{models.CategoryDuring, []string{"during", "in-progress", "in progress", "install", "assembly", "repairing"}},
	{models.CategoryAfter, []string{"after", "post-repair", "post repair", "complete", "completed"}},
	{models.CategoryFinal, []string{"final", "inspection", "handover", "closeout", "sign-off", "sign off"}},
}

// Classify returns the category for a caption. It is pure and total.
func Classify(caption string) models.Category {
	text := strings.ToLower(strings.TrimSpace(caption))
	if text == "" {
		return models.CategoryUncategorized
	}
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(text, kw) {
				return r.category
			}
		}
	}
	return models.CategoryUncategorized
}
