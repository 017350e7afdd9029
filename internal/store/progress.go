package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillprobe/internal/recommend"
)

var progressColumns = []string{"learner_id", "content_ids", "elapsed_ms", "recorded_at"}

// ProgressRepo stores content completions. It implements
// recommend.ProgressRecorder.
type ProgressRepo struct {
	s *Store
}

var _ recommend.ProgressRecorder = (*ProgressRepo)(nil)

// RecordProgress appends rec.
func (r *ProgressRepo) RecordProgress(ctx context.Context, rec recommend.ProgressRecord) error {
	ids, err := json.Marshal(rec.ContentIDs)
	if err != nil {
		return fmt.Errorf("encode content ids: %w", err)
	}
	at := rec.RecordedAt
	if at.IsZero() {
		at = time.Now()
	}
	ins := r.s.builder().Insert(tableProgress).
		Columns(progressColumns...).
		Values(rec.LearnerID, string(ids), rec.Elapsed.Milliseconds(), at.UnixMilli())
	if err := r.s.exec(ctx, nil, ins); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// List returns the learner's progress records, oldest first.
func (r *ProgressRepo) List(ctx context.Context, learnerID string) ([]recommend.ProgressRecord, error) {
	sel := r.s.builder().Select(progressColumns...).
		From(r.s.builder().Table(tableProgress)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy("recorded_at", "seq")

	var out []recommend.ProgressRecord
	err := r.s.query(ctx, sel, func(rows *entsql.Rows) error {
		var (
			rec           recommend.ProgressRecord
			ids           string
			elapsed, atMs int64
		)
		if err := rows.Scan(&rec.LearnerID, &ids, &elapsed, &atMs); err != nil {
			return fmt.Errorf("scan progress: %w", err)
		}
		if err := json.Unmarshal([]byte(ids), &rec.ContentIDs); err != nil {
			return fmt.Errorf("decode content ids: %w", err)
		}
		rec.Elapsed = time.Duration(elapsed) * time.Millisecond
		rec.RecordedAt = time.UnixMilli(atMs).UTC()
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	return out, nil
}
