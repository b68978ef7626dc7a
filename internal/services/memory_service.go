package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/markdave123-py/fieldreport/internal/core"
	"github.com/markdave123-py/fieldreport/internal/logger"
	"github.com/markdave123-py/fieldreport/internal/models"
)

const (
	memoryModule      = "memory"
	patternConfidence = 0.95
	patternType       = "pattern"
)

var memoryPatterns = []struct {
	key string
	re  *regexp.Regexp
}{
	{"client", regexp.MustCompile(`(?i)client[:\s]+([^,.\n]+)`)},
	{"site", regexp.MustCompile(`(?i)site[:\s]+([^,.\n]+)`)},
	{"equipment", regexp.MustCompile(`(?i)equipment[:\s]+([^,.\n]+)`)},
}

// ExtractPatterns finds client, site and equipment mentions in text. Each key
// yields at most one fact, taken from its first match.
func ExtractPatterns(text string) []models.MemoryFact {
	var out []models.MemoryFact
	for _, p := range memoryPatterns {
		m := p.re.FindStringSubmatch(text)
		if len(m) < 2 {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			out = append(out, models.MemoryFact{MemoryType: patternType, Key: p.key, Value: v})
		}
	}
	return out
}

type MemoryService struct {
	db       core.DbClient
	maxFacts int
	log      logger.ILogger
}

func NewMemoryService(db core.DbClient, maxFacts int, log logger.ILogger) *MemoryService {
	if maxFacts <= 0 {
		maxFacts = 50
	}
	return &MemoryService{db: db, maxFacts: maxFacts, log: log}
}

// Remember stores the patterns found in notes and prunes the user's oldest
// facts beyond the retention limit. It returns the number of facts saved.
func (s *MemoryService) Remember(ctx context.Context, userID int64, notes []string) (int, error) {
	seen := map[string]bool{}
	saved := 0
	for _, note := range notes {
		for _, fact := range ExtractPatterns(note) {
			k := fact.Key + "\x00" + strings.ToLower(fact.Value)
			if seen[k] {
				continue
			}
			seen[k] = true

			fact.ID = uuid.NewString()
			fact.UserID = userID
			fact.Confidence = patternConfidence
			if err := s.db.InsertMemoryFact(ctx, &fact); err != nil {
				return saved, fmt.Errorf("save memory fact: %w", err)
			}
			saved++
		}
	}
	if saved == 0 {
		return 0, nil
	}

	pruned, err := s.db.PruneMemoryFacts(ctx, userID, s.maxFacts)
	if err != nil {
		return saved, fmt.Errorf("prune memory facts: %w", err)
	}
	s.log.Debug(memoryModule, "Memory updated", map[string]interface{}{
		"user_id": userID, "saved": saved, "pruned": pruned,
	})
	return saved, nil
}

// Recall returns the user's most confident facts.
func (s *MemoryService) Recall(ctx context.Context, userID int64, limit int) ([]models.MemoryFact, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.db.ListMemoryFacts(ctx, userID, limit)
}

// Prefill picks a client and site from notes first, then from remembered facts.
func Prefill(notes []string, facts []models.MemoryFact) (client, site string) {
	for _, n := range notes {
		for _, f := range ExtractPatterns(n) {
			switch {
			case f.Key == "client" && client == "":
				client = f.Value
			case f.Key == "site" && site == "":
				site = f.Value
			}
		}
	}
	for _, f := range facts {
		switch {
		case f.Key == "client" && client == "":
			client = f.Value
		case f.Key == "site" && site == "":
			site = f.Value
		}
	}
	return client, site
}
