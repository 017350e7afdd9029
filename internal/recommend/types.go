package recommend

import (
	"context"
	"time"

	"github.com/abhisek/skillprobe/internal/gaps"
	"github.com/abhisek/skillprobe/internal/pipeline"
)

// ContentItem is one piece of learning material returned by a lookup.
type ContentItem struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	URL        string          `json:"url,omitempty"`
	Skill      string          `json:"skill,omitempty"`
	Difficulty gaps.Difficulty `json:"difficulty"`
	Minutes    int             `json:"minutes,omitempty"`
	Score      float64         `json:"score,omitempty"`
}

// LearnerProfile describes who recommendations are for.
type LearnerProfile struct {
	LearnerID string   `json:"learner_id"`
	Context   string   `json:"context,omitempty"` // e.g. "grade 8", appended to queries
	Interests []string `json:"interests,omitempty"`
}

// ContentLookup finds ranked learning material for a query.
type ContentLookup interface {
	Lookup(ctx context.Context, query string, profile LearnerProfile, strategy string, topK int) ([]ContentItem, error)
}

// ProgressRecord notes content a learner finished outside an assessment.
type ProgressRecord struct {
	LearnerID  string        `json:"learner_id"`
	ContentIDs []string      `json:"content_ids"`
	Elapsed    time.Duration `json:"elapsed"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// ProgressRecorder persists progress records.
type ProgressRecorder interface {
	RecordProgress(ctx context.Context, rec ProgressRecord) error
}

// Trigger says when the learner should be assessed again.
type Trigger string

const (
	TriggerAfterThreeItems Trigger = "after_completing_3_items"
	TriggerWeekly          Trigger = "weekly"
)

// Bundle is the output of one assess-and-recommend cycle.
type Bundle struct {
	LearnerID      string             `json:"learner_id"`
	Assessment     pipeline.Dashboard `json:"assessment"`
	Gaps           []gaps.LearningGap `json:"learning_gaps"`
	Content        []ContentItem      `json:"recommended_content"`
	Path           []string           `json:"learning_path"`
	TotalMinutes   int                `json:"total_estimated_minutes"`
	NextAssessment Trigger            `json:"next_assessment"`

	// Result is the full pipeline output, for the caller to persist.
	Result *pipeline.Result `json:"-"`
}
