package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillprobe/internal/item"
)

var itemColumns = []string{"id", "skill", "a", "b", "prompt", "choices", "correct_index"}

// ItemRepo persists calibrated items. It implements item.Source.
type ItemRepo struct {
	s *Store
}

var _ item.Source = (*ItemRepo)(nil)

// Upsert validates and writes items in one transaction. Existing ids are
// overwritten in place and keep their original position.
func (r *ItemRepo) Upsert(ctx context.Context, items ...item.Item) error {
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return err
		}
	}
	return r.s.inTx(ctx, func(tx dialect.Tx) error {
		for _, it := range items {
			choices, err := json.Marshal(it.Choices)
			if err != nil {
				return fmt.Errorf("encode choices for %q: %w", it.ID, err)
			}
			var correct any
			if it.CorrectIndex != nil {
				correct = *it.CorrectIndex
			}
			ins := r.s.builder().Insert(tableItems).
				Columns(itemColumns...).
				Values(it.ID, it.Skill, it.A, it.B, it.Prompt, string(choices), correct).
				OnConflict(entsql.ConflictColumns("id"), entsql.ResolveWithNewValues())
			if err := r.s.exec(ctx, tx, ins); err != nil {
				return fmt.Errorf("upsert item %q: %w", it.ID, err)
			}
		}
		return nil
	})
}

// LoadItems returns the items of skill in insertion order.
func (r *ItemRepo) LoadItems(ctx context.Context, skill string) ([]item.Item, error) {
	sel := r.s.builder().Select(itemColumns...).
		From(r.s.builder().Table(tableItems)).
		Where(entsql.EQ("skill", skill)).
		OrderBy("seq")
	return r.list(ctx, sel)
}

// All returns every stored item in insertion order.
func (r *ItemRepo) All(ctx context.Context) ([]item.Item, error) {
	sel := r.s.builder().Select(itemColumns...).
		From(r.s.builder().Table(tableItems)).
		OrderBy("seq")
	return r.list(ctx, sel)
}

func (r *ItemRepo) list(ctx context.Context, sel *entsql.Selector) ([]item.Item, error) {
	var out []item.Item
	err := r.s.query(ctx, sel, func(rows *entsql.Rows) error {
		var (
			it      item.Item
			choices string
			correct sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.Skill, &it.A, &it.B, &it.Prompt, &choices, &correct); err != nil {
			return fmt.Errorf("scan item: %w", err)
		}
		if err := json.Unmarshal([]byte(choices), &it.Choices); err != nil {
			return fmt.Errorf("decode choices for %q: %w", it.ID, err)
		}
		if correct.Valid {
			it.CorrectIndex = item.Index(int(correct.Int64))
		}
		out = append(out, it)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	return out, nil
}

// Skills returns the distinct skills with at least one item, sorted.
func (r *ItemRepo) Skills(ctx context.Context) ([]string, error) {
	sel := r.s.builder().Select("skill").Distinct().
		From(r.s.builder().Table(tableItems)).
		OrderBy("skill")
	var out []string
	err := r.s.query(ctx, sel, func(rows *entsql.Rows) error {
		var skill string
		if err := rows.Scan(&skill); err != nil {
			return err
		}
		out = append(out, skill)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query skills: %w", err)
	}
	return out, nil
}
