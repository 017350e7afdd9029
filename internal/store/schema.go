package store

import (
	"context"
	"fmt"
	"strings"

	"entgo.io/ent/dialect"
)

// Table names.
const (
	tableItems       = "items"
	tableContent     = "content"
	tableAssessments = "assessments"
	tableProgress    = "progress"
	tableLLMEvents   = "llm_events"
)

// serialPK is replaced with the dialect's auto-increment key.
const serialPK = "{{serial}}"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		seq {{serial}},
		id TEXT NOT NULL UNIQUE,
		skill TEXT NOT NULL,
		a DOUBLE PRECISION NOT NULL,
		b DOUBLE PRECISION NOT NULL,
		prompt TEXT NOT NULL DEFAULT '',
		choices TEXT NOT NULL DEFAULT '[]',
		correct_index INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_items_skill ON items (skill)`,
	`CREATE TABLE IF NOT EXISTS content (
		seq {{serial}},
		id TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		url TEXT NOT NULL DEFAULT '',
		skill TEXT NOT NULL DEFAULT '',
		difficulty TEXT NOT NULL,
		minutes INTEGER NOT NULL DEFAULT 0,
		keywords TEXT NOT NULL DEFAULT '[]'
	)`,
	`CREATE TABLE IF NOT EXISTS assessments (
		seq {{serial}},
		id TEXT NOT NULL UNIQUE,
		learner_id TEXT NOT NULL,
		skill TEXT NOT NULL,
		theta DOUBLE PRECISION NOT NULL,
		se DOUBLE PRECISION,
		overall DOUBLE PRECISION NOT NULL,
		session TEXT NOT NULL,
		mastery TEXT NOT NULL,
		bundle TEXT NOT NULL,
		created_at BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_assessments_learner ON assessments (learner_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS progress (
		seq {{serial}},
		learner_id TEXT NOT NULL,
		content_ids TEXT NOT NULL,
		elapsed_ms BIGINT NOT NULL,
		recorded_at BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS llm_events (
		seq {{serial}},
		provider TEXT NOT NULL,
		model TEXT NOT NULL,
		purpose TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		latency_ms BIGINT NOT NULL,
		success INTEGER NOT NULL,
		error_message TEXT NOT NULL DEFAULT '',
		request_body TEXT NOT NULL DEFAULT '',
		response_body TEXT NOT NULL DEFAULT '',
		created_at BIGINT NOT NULL
	)`,
}

func (s *Store) migrate(ctx context.Context) error {
	serial := "INTEGER PRIMARY KEY AUTOINCREMENT"
	if s.dialect == dialect.Postgres {
		serial = "BIGSERIAL PRIMARY KEY"
	}
	for _, stmt := range schema {
		stmt = strings.ReplaceAll(stmt, serialPK, serial)
		if err := s.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
