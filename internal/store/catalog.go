package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"unicode"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillprobe/internal/gaps"
	"github.com/abhisek/skillprobe/internal/recommend"
)

// Lookup strategies understood by the catalog.
const (
	StrategyKeyword = "keyword"
	StrategyHybrid  = "hybrid"
)

const (
	skillMatchWeight = 1.0
	interestWeight   = 0.25
)

var contentColumns = []string{"id", "title", "url", "skill", "difficulty", "minutes", "keywords"}

// Content is one catalog entry.
type Content struct {
	ID         string          `json:"id" yaml:"id"`
	Title      string          `json:"title" yaml:"title"`
	URL        string          `json:"url,omitempty" yaml:"url,omitempty"`
	Skill      string          `json:"skill,omitempty" yaml:"skill,omitempty"`
	Difficulty gaps.Difficulty `json:"difficulty" yaml:"difficulty"`
	Minutes    int             `json:"minutes,omitempty" yaml:"minutes,omitempty"`
	Keywords   []string        `json:"keywords,omitempty" yaml:"keywords,omitempty"`
}

// Validate checks required fields.
func (c Content) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("content has empty id")
	}
	if c.Title == "" {
		return fmt.Errorf("content %q: empty title", c.ID)
	}
	switch c.Difficulty {
	case gaps.Beginner, gaps.Intermediate, gaps.Advanced:
	default:
		return fmt.Errorf("content %q: unknown difficulty %q", c.ID, c.Difficulty)
	}
	if c.Minutes < 0 {
		return fmt.Errorf("content %q: negative minutes", c.ID)
	}
	return nil
}

func (c Content) toItem(score float64) recommend.ContentItem {
	return recommend.ContentItem{
		ID:         c.ID,
		Title:      c.Title,
		URL:        c.URL,
		Skill:      c.Skill,
		Difficulty: c.Difficulty,
		Minutes:    c.Minutes,
		Score:      score,
	}
}

// Catalog stores learning content and ranks it against discovery
// queries. It implements recommend.ContentLookup.
type Catalog struct {
	s *Store
}

var _ recommend.ContentLookup = (*Catalog)(nil)

// Upsert writes content entries in one transaction.
func (c *Catalog) Upsert(ctx context.Context, entries ...Content) error {
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return c.s.inTx(ctx, func(tx dialect.Tx) error {
		for _, e := range entries {
			keywords, err := json.Marshal(e.Keywords)
			if err != nil {
				return fmt.Errorf("encode keywords for %q: %w", e.ID, err)
			}
			ins := c.s.builder().Insert(tableContent).
				Columns(contentColumns...).
				Values(e.ID, e.Title, e.URL, e.Skill, string(e.Difficulty), e.Minutes, string(keywords)).
				OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues())
			if err := c.s.exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("upsert content %q: %w", e.ID, err)
			}
		}
		return nil
	})
}

// All returns every entry in insertion order.
func (c *Catalog) All(ctx context.Context) ([]Content, error) {
	sel := c.s.builder().Select(contentColumns...).
		From(c.s.builder().Table(tableContent)).
		OrderBy("seq")
	var out []Content
	err := c.s.query(ctx, sel, func(rows *entsql.Rows) error {
		var (
			e        Content
			diff     string
			keywords string
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.URL, &e.Skill, &diff, &e.Minutes, &keywords); err != nil {
			return fmt.Errorf("scan content: %w", err)
		}
		e.Difficulty = gaps.Difficulty(diff)
		if err := json.Unmarshal([]byte(keywords), &e.Keywords); err != nil {
			return fmt.Errorf("decode keywords for %q: %w", e.ID, err)
		}
		if len(e.Keywords) == 0 {
			e.Keywords = nil
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query content: %w", err)
	}
	return out, nil
}

// Lookup ranks catalog entries against query and returns at most topK
// with a positive score, best first. Entries whose skill appears in the
// query score highest; keyword overlap breaks the rest. The hybrid
// strategy also rewards entries matching the learner's interests.
func (c *Catalog) Lookup(ctx context.Context, query string, profile recommend.LearnerProfile, strategy string, topK int) ([]recommend.ContentItem, error) {
	switch strategy {
	case StrategyKeyword, StrategyHybrid:
	default:
		return nil, fmt.Errorf("unknown lookup strategy %q", strategy)
	}
	if topK <= 0 {
		return nil, nil
	}

	entries, err := c.All(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	qTokens := tokenSet(q)

	type scored struct {
		entry Content
		score float64
	}
	var ranked []scored
	for _, e := range entries {
		score := 0.0
		if e.Skill != "" && strings.Contains(q, strings.ToLower(e.Skill)) {
			score += skillMatchWeight
		}
		terms := tokenSet(e.Title + " " + strings.Join(e.Keywords, " "))
		if len(qTokens) > 0 {
			hits := 0
			for t := range qTokens {
				if terms[t] {
					hits++
				}
			}
			score += float64(hits) / float64(len(qTokens))
		}
		if strategy == StrategyHybrid {
			for _, interest := range profile.Interests {
				if terms[strings.ToLower(strings.TrimSpace(interest))] {
					score += interestWeight
				}
			}
		}
		if score > 0 {
			ranked = append(ranked, scored{entry: e, score: score})
		}
	}

	slices.SortStableFunc(ranked, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		}
		return 0
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	out := make([]recommend.ContentItem, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, r.entry.toItem(r.score))
	}
	return out, nil
}

func tokenSet(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = true
	}
	return out
}
