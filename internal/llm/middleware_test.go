package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/abhisek/skillprobe/internal/logger"
)

func fastRetry(attempts int) *RetryProvider {
	return &RetryProvider{
		cfg:   RetryConfig{MaxAttempts: attempts, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2},
		sleep: func(context.Context, time.Duration) error { return nil },
	}
}

func ok(body string) MockResponse {
	return MockResponse{Content: json.RawMessage(body)}
}

func fail(err error) MockResponse {
	return MockResponse{Err: err}
}

func TestRetry(t *testing.T) {
	unavailable := &ErrProviderUnavailable{Err: errors.New("503")}
	invalid := &ErrInvalidResponse{Err: errors.New("bad json")}

	tests := []struct {
		name      string
		responses []MockResponse
		attempts  int
		wantErr   bool
		wantCalls int
	}{
		{"first try", []MockResponse{ok(`{}`)}, 3, false, 1},
		{"transient then success", []MockResponse{fail(unavailable), ok(`{}`)}, 3, false, 2},
		{"rate limited then success", []MockResponse{fail(&ErrRateLimit{}), ok(`{}`)}, 3, false, 2},
		{"gives up after max attempts", []MockResponse{fail(unavailable), fail(unavailable), fail(unavailable), ok(`{}`)}, 3, true, 3},
		{"invalid retried once", []MockResponse{fail(invalid), ok(`{}`)}, 3, false, 2},
		{"invalid twice stops", []MockResponse{fail(invalid), fail(invalid), ok(`{}`)}, 3, true, 2},
		{"max tokens not retried", []MockResponse{fail(&ErrMaxTokensExceeded{}), ok(`{}`)}, 3, true, 1},
		{"canceled not retried", []MockResponse{fail(context.Canceled), ok(`{}`)}, 3, true, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockProvider(tt.responses...)
			r := fastRetry(tt.attempts)
			r.inner = mock

			_, err := r.Generate(context.Background(), Request{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantCalls, mock.CallCount())
		})
	}
}

func TestRetry_StopsWhenSleepCanceled(t *testing.T) {
	mock := NewMockProvider(fail(&ErrProviderUnavailable{}), ok(`{}`))
	r := fastRetry(3)
	r.inner = mock
	r.sleep = func(context.Context, time.Duration) error { return context.Canceled }

	_, err := r.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, mock.CallCount())
}

func TestRetry_Backoff(t *testing.T) {
	r := fastRetry(5)
	r.cfg = RetryConfig{InitialWait: 100 * time.Millisecond, MaxWait: 300 * time.Millisecond, Multiplier: 2}

	assert.Equal(t, 2*time.Second, r.backoff(0, &ErrRateLimit{RetryAfter: 2 * time.Second}))

	d := r.backoff(0, errors.New("x"))
	assert.InDelta(t, float64(100*time.Millisecond), float64(d), float64(20*time.Millisecond))

	d = r.backoff(4, errors.New("x"))
	assert.LessOrEqual(t, d, 360*time.Millisecond, "capped at MaxWait plus jitter")
}

func TestWithTimeout(t *testing.T) {
	var deadline bool
	inner := providerFunc(func(ctx context.Context, _ Request) (*Response, error) {
		_, deadline = ctx.Deadline()
		return &Response{}, nil
	})

	_, err := WithTimeout(inner, time.Second).Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.True(t, deadline)

	_, wrapped := WithTimeout(inner, 0).(*timeoutProvider)
	assert.False(t, wrapped)
}

type providerFunc func(ctx context.Context, req Request) (*Response, error)

func (f providerFunc) Generate(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}
func (f providerFunc) ModelID() string { return "func" }

type memorySink struct {
	events []Event
	err    error
}

func (m *memorySink) RecordLLMEvent(_ context.Context, ev Event) error {
	m.events = append(m.events, ev)
	return m.err
}

func TestLogging_RecordsSuccess(t *testing.T) {
	sink := &memorySink{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"clarity":0.5}`),
		Usage:   Usage{InputTokens: 10, OutputTokens: 4},
	})
	p := WithLogging(mock, sink, nil)

	ctx := WithPurpose(context.Background(), "grading")
	_, err := p.Generate(ctx, Request{
		System:   "be fair",
		Messages: []Message{{Role: RoleUser, Content: "my answer"}},
		Schema:   scoresSchema(),
	})
	require.NoError(t, err)

	require.Len(t, sink.events, 1)
	ev := sink.events[0]
	assert.Equal(t, "grading", ev.Purpose)
	assert.True(t, ev.Success)
	assert.Equal(t, 10, ev.InputTokens)
	assert.Equal(t, `{"clarity":0.5}`, ev.ResponseBody)
	assert.Contains(t, ev.RequestBody, "[system]\nbe fair")
	assert.Contains(t, ev.RequestBody, "[user]\nmy answer")
	assert.Contains(t, ev.RequestBody, "[schema: rubric-scores]")
}

func TestLogging_RecordsFailureAndSurvivesSinkError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := &memorySink{err: errors.New("db locked")}
	boom := &ErrProviderUnavailable{Err: errors.New("down")}
	p := WithLogging(NewMockProvider(fail(boom)), sink, logger.FromZap(zap.New(core)))

	_, err := p.Generate(context.Background(), Request{})
	assert.ErrorIs(t, err, boom)

	require.Len(t, sink.events, 1)
	assert.False(t, sink.events[0].Success)
	assert.Equal(t, "unknown", sink.events[0].Purpose)
	assert.NotEmpty(t, sink.events[0].ErrorMessage)
	assert.Equal(t, 1, logs.FilterMessage("failed to record LLM event").Len())
}

func TestMockProvider_EmptyQueue(t *testing.T) {
	m := NewMockProvider()
	_, err := m.Generate(context.Background(), Request{})
	var un *ErrProviderUnavailable
	assert.True(t, errors.As(err, &un))

	m.AddResponse(ok(`{"a":1}`))
	resp, err := m.Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, "mock", resp.Model)
	assert.Equal(t, 2, m.CallCount())
}

func TestPurpose(t *testing.T) {
	assert.Equal(t, "unknown", PurposeFrom(context.Background()))
	assert.Equal(t, "grading", PurposeFrom(WithPurpose(context.Background(), "grading")))
}
