package store

import (
	"context"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/skillprobe/internal/llm"
)

var llmEventColumns = []string{
	"provider", "model", "purpose", "input_tokens", "output_tokens", "latency_ms",
	"success", "error_message", "request_body", "response_body", "created_at",
}

// QueryOpts filters event queries.
type QueryOpts struct {
	Limit   int
	Purpose string
}

// EventRepo stores LLM call events. It implements llm.EventSink.
type EventRepo struct {
	s *Store
}

var _ llm.EventSink = (*EventRepo)(nil)

// RecordLLMEvent appends ev.
func (r *EventRepo) RecordLLMEvent(ctx context.Context, ev llm.Event) error {
	success := 0
	if ev.Success {
		success = 1
	}
	at := ev.CreatedAt
	if at.IsZero() {
		at = time.Now()
	}
	ins := r.s.builder().Insert(tableLLMEvents).
		Columns(llmEventColumns...).
		Values(ev.Provider, ev.Model, ev.Purpose, ev.InputTokens, ev.OutputTokens, ev.LatencyMs,
			success, ev.ErrorMessage, ev.RequestBody, ev.ResponseBody, at.UnixMilli())
	if err := r.s.exec(ctx, nil, ins); err != nil {
		return fmt.Errorf("save LLM request event: %w", err)
	}
	return nil
}

// QueryLLMEvents returns events newest first.
func (r *EventRepo) QueryLLMEvents(ctx context.Context, opts QueryOpts) ([]llm.Event, error) {
	sel := r.s.builder().Select(llmEventColumns...).
		From(r.s.builder().Table(tableLLMEvents)).
		OrderBy(entsql.Desc("seq"))
	if opts.Purpose != "" {
		sel.Where(entsql.EQ("purpose", opts.Purpose))
	}
	if opts.Limit > 0 {
		sel.Limit(opts.Limit)
	}

	var out []llm.Event
	err := r.s.query(ctx, sel, func(rows *entsql.Rows) error {
		var (
			ev        llm.Event
			success   int
			createdAt int64
		)
		if err := rows.Scan(&ev.Provider, &ev.Model, &ev.Purpose, &ev.InputTokens, &ev.OutputTokens,
			&ev.LatencyMs, &success, &ev.ErrorMessage, &ev.RequestBody, &ev.ResponseBody, &createdAt); err != nil {
			return fmt.Errorf("scan LLM event: %w", err)
		}
		ev.Success = success != 0
		ev.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, ev)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query LLM events: %w", err)
	}
	return out, nil
}
