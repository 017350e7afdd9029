package item

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Bank is an in-memory, insertion-ordered repository of items.
// It is read-only once handed to an engine and safe to share across
// concurrent sessions.
type Bank struct {
	items []Item
	byID  map[string]int
}

// NewBank builds a bank from items. Duplicate ids are rejected.
func NewBank(items ...Item) (*Bank, error) {
	b := &Bank{byID: make(map[string]int, len(items))}
	for _, it := range items {
		if err := b.add(it); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// MustBank is NewBank for fixtures; it panics on duplicate ids.
func MustBank(items ...Item) *Bank {
	b, err := NewBank(items...)
	if err != nil {
		panic(err)
	}
	return b
}

func (b *Bank) add(it Item) error {
	if _, dup := b.byID[it.ID]; dup {
		return fmt.Errorf("duplicate item id %q", it.ID)
	}
	b.byID[it.ID] = len(b.items)
	b.items = append(b.items, it)
	return nil
}

// Get returns the item with the given id.
func (b *Bank) Get(id string) (Item, bool) {
	if b == nil {
		return Item{}, false
	}
	i, ok := b.byID[id]
	if !ok {
		return Item{}, false
	}
	return b.items[i], true
}

// Len returns the number of items.
func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.items)
}

// All returns the items in insertion order. The slice is a copy.
func (b *Bank) All() []Item {
	if b == nil {
		return nil
	}
	out := make([]Item, len(b.items))
	copy(out, b.items)
	return out
}

// BySkill returns the items tagged with skill, in insertion order.
func (b *Bank) BySkill(skill string) []Item {
	if b == nil {
		return nil
	}
	var out []Item
	for _, it := range b.items {
		if it.Skill == skill {
			out = append(out, it)
		}
	}
	return out
}

// Skills returns the distinct skills in first-seen order.
func (b *Bank) Skills() []string {
	if b == nil {
		return nil
	}
	seen := make(map[string]bool)
	var out []string
	for _, it := range b.items {
		if !seen[it.Skill] {
			seen[it.Skill] = true
			out = append(out, it.Skill)
		}
	}
	return out
}

// LoadBank loads the items of every skill from src and merges them into a
// single bank. Skills are fetched concurrently; the merged order follows
// the skills argument.
func LoadBank(ctx context.Context, src Source, skills ...string) (*Bank, error) {
	results := make([][]Item, len(skills))

	g, ctx := errgroup.WithContext(ctx)
	for i, skill := range skills {
		g.Go(func() error {
			items, err := src.LoadItems(ctx, skill)
			if err != nil {
				return fmt.Errorf("load items for %q: %w", skill, err)
			}
			results[i] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Item
	for _, items := range results {
		all = append(all, items...)
	}
	return NewBank(all...)
}
