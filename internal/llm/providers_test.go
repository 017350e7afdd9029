package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoresSchema() *Schema {
	return &Schema{
		Name: "rubric-scores",
		Definition: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"clarity": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			},
			"required":             []any{"clarity"},
			"additionalProperties": false,
		},
	}
}

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(
		option.WithAPIKey("test-key"),
		option.WithBaseURL(srv.URL),
		option.WithMaxRetries(0),
	)
	return &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}
}

func anthropicReply(text, stop string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": text}},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": stop,
			"usage":       map[string]any{"input_tokens": 50, "output_tokens": 12},
		})
	}
}

func anthropicError(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":  "error",
			"error": map[string]any{"type": "api_error", "message": "nope"},
		})
	}
}

func TestAnthropic_StructuredReply(t *testing.T) {
	p := newTestAnthropic(t, anthropicReply(`{"clarity":0.7}`, "end_turn"))

	resp, err := p.Generate(context.Background(), Request{
		System:    "grade",
		Messages:  []Message{{Role: RoleUser, Content: "answer"}},
		Schema:    scoresSchema(),
		MaxTokens: 128,
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"clarity":0.7}`, string(resp.Content))
	assert.Equal(t, 50, resp.Usage.InputTokens)
	assert.Equal(t, 62, resp.Usage.TotalTokens)
	assert.Equal(t, "end", resp.StopReason)
}

func TestAnthropic_SchemaViolation(t *testing.T) {
	p := newTestAnthropic(t, anthropicReply(`{"clarity":3}`, "end_turn"))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "answer"}},
		Schema:   scoresSchema(),
	})
	var inv *ErrInvalidResponse
	assert.True(t, errors.As(err, &inv), "got %T: %v", err, err)
}

func TestAnthropic_TruncatedStructuredReply(t *testing.T) {
	p := newTestAnthropic(t, anthropicReply(`{"clar`, "max_tokens"))

	_, err := p.Generate(context.Background(), Request{
		Messages: []Message{{Role: RoleUser, Content: "answer"}},
		Schema:   scoresSchema(),
	})
	var mt *ErrMaxTokensExceeded
	assert.True(t, errors.As(err, &mt), "got %T: %v", err, err)
}

func TestAnthropic_ErrorMapping(t *testing.T) {
	p := newTestAnthropic(t, anthropicError(http.StatusTooManyRequests))
	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var rl *ErrRateLimit
	assert.True(t, errors.As(err, &rl), "got %T: %v", err, err)

	p = newTestAnthropic(t, anthropicError(http.StatusInternalServerError))
	_, err = p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var un *ErrProviderUnavailable
	assert.True(t, errors.As(err, &un), "got %T: %v", err, err)
}

func TestNewAnthropicProvider(t *testing.T) {
	_, err := NewAnthropicProvider(AnthropicConfig{})
	assert.Error(t, err)

	p, err := NewAnthropicProvider(AnthropicConfig{APIKey: "k", Model: "claude-sonnet"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-20250514", p.ModelID())
}

func newTestOpenAI(t *testing.T, handler http.HandlerFunc) *OpenAIProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewOpenAIProvider(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)
	return p
}

func TestOpenAI_StructuredReply(t *testing.T) {
	var got openai.ChatCompletionRequest
	p := newTestOpenAI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-test",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": `{"clarity":0.4}`},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 40, "completion_tokens": 8, "total_tokens": 48},
		})
	})

	resp, err := p.Generate(context.Background(), Request{
		System:   "grade",
		Messages: []Message{{Role: RoleUser, Content: "answer"}},
		Schema:   scoresSchema(),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"clarity":0.4}`, string(resp.Content))
	assert.Equal(t, 48, resp.Usage.TotalTokens)

	require.Len(t, got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, got.Messages[0].Role)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "rubric-scores", got.ResponseFormat.JSONSchema.Name)
}

func TestOpenAI_RateLimit(t *testing.T) {
	p := newTestOpenAI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"type": "tokens", "message": "slow down", "code": "rate_limit_exceeded"},
		})
	})

	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	var rl *ErrRateLimit
	assert.True(t, errors.As(err, &rl), "got %T: %v", err, err)
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":  map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"reason": map[string]any{"type": []any{"string", "null"}},
			"level":  map[string]any{"type": "string", "enum": []any{"beginner", "advanced"}},
			"tags":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []any{"score"},
	})

	assert.Equal(t, "OBJECT", string(s.Type))
	require.Len(t, s.Properties, 4)
	score := s.Properties["score"]
	assert.Equal(t, "NUMBER", string(score.Type))
	require.NotNil(t, score.Minimum)
	assert.Equal(t, 1.0, *score.Maximum)

	reason := s.Properties["reason"]
	assert.Equal(t, "STRING", string(reason.Type))
	require.NotNil(t, reason.Nullable)
	assert.True(t, *reason.Nullable)

	assert.Equal(t, []string{"beginner", "advanced"}, s.Properties["level"].Enum)
	assert.Equal(t, "STRING", string(s.Properties["tags"].Items.Type))
	assert.Equal(t, []string{"score"}, s.Required)
}

func TestResolveModel(t *testing.T) {
	assert.Equal(t, "gemini-2.0-flash", resolveModel("gemini-flash", geminiAliases))
	assert.Equal(t, "claude-haiku-4-5-20251001", resolveModel("claude-haiku", anthropicAliases))
	assert.Equal(t, "custom-model-id", resolveModel("custom-model-id", anthropicAliases))
}
