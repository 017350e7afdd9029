package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/skillprobe/internal/cat"
	"github.com/abhisek/skillprobe/internal/mastery"
	"github.com/abhisek/skillprobe/internal/recommend"
)

var assessmentColumns = []string{
	"id", "learner_id", "skill", "theta", "se", "overall",
	"session", "mastery", "bundle", "created_at",
}

// Assessment is one stored assess-and-recommend cycle.
type Assessment struct {
	ID        string
	LearnerID string
	Skill     string
	Theta     float64
	SE        float64 // +Inf when the ability was not estimable
	Overall   float64
	Session   cat.Session
	Mastery   mastery.State
	Bundle    recommend.Bundle
	CreatedAt time.Time
}

// AssessmentRepo stores assessment history per learner.
type AssessmentRepo struct {
	s *Store
}

// Save stores the bundle and its pipeline result under a new id.
func (r *AssessmentRepo) Save(ctx context.Context, skill string, b *recommend.Bundle) (*Assessment, error) {
	if b == nil || b.Result == nil {
		return nil, errors.New("save assessment: bundle has no pipeline result")
	}
	res := b.Result

	a := &Assessment{
		ID:        uuid.NewString(),
		LearnerID: b.LearnerID,
		Skill:     skill,
		Theta:     res.Session.Theta,
		SE:        res.Session.SE,
		Overall:   res.Overall,
		Session:   res.Session.Clone(),
		Mastery:   res.Mastery.Clone(),
		Bundle:    *b,
		CreatedAt: time.Now().UTC(),
	}
	a.Bundle.Result = nil

	session, err := json.Marshal(a.Session)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	state, err := json.Marshal(a.Mastery)
	if err != nil {
		return nil, fmt.Errorf("encode mastery: %w", err)
	}
	bundle, err := json.Marshal(a.Bundle)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}

	var se any
	if a.Session.Estimable() {
		se = a.SE
	}
	ins := r.s.builder().Insert(tableAssessments).
		Columns(assessmentColumns...).
		Values(a.ID, a.LearnerID, a.Skill, a.Theta, se, a.Overall,
			string(session), string(state), string(bundle), a.CreatedAt.UnixMilli())
	if err := r.s.exec(ctx, nil, ins); err != nil {
		return nil, fmt.Errorf("save assessment: %w", err)
	}
	return a, nil
}

// Latest returns the learner's most recent assessment, or nil if none.
func (r *AssessmentRepo) Latest(ctx context.Context, learnerID string) (*Assessment, error) {
	list, err := r.List(ctx, learnerID, 1)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// List returns up to limit assessments for the learner, newest first.
// A non-positive limit returns all of them.
func (r *AssessmentRepo) List(ctx context.Context, learnerID string, limit int) ([]Assessment, error) {
	sel := r.s.builder().Select(assessmentColumns...).
		From(r.s.builder().Table(tableAssessments)).
		Where(entsql.EQ("learner_id", learnerID)).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("seq"))
	if limit > 0 {
		sel.Limit(limit)
	}

	var out []Assessment
	err := r.s.query(ctx, sel, func(rows *entsql.Rows) error {
		var (
			a                      Assessment
			se                     sql.NullFloat64
			session, state, bundle string
			createdAt              int64
		)
		if err := rows.Scan(&a.ID, &a.LearnerID, &a.Skill, &a.Theta, &se, &a.Overall,
			&session, &state, &bundle, &createdAt); err != nil {
			return fmt.Errorf("scan assessment: %w", err)
		}
		a.SE = math.Inf(1)
		if se.Valid {
			a.SE = se.Float64
		}
		if err := json.Unmarshal([]byte(session), &a.Session); err != nil {
			return fmt.Errorf("decode session %s: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(state), &a.Mastery); err != nil {
			return fmt.Errorf("decode mastery %s: %w", a.ID, err)
		}
		if err := json.Unmarshal([]byte(bundle), &a.Bundle); err != nil {
			return fmt.Errorf("decode bundle %s: %w", a.ID, err)
		}
		a.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	return out, nil
}
