// Package llmclient implements the optional LLM-service collaborator
// (spec §6.7/§4.12): a narrow complete/chat interface used to refine the
// Diff Builder's heuristic change classification and to generate
// catch-up briefings. Backed by mozilla-ai/any-llm-go, which fronts
// OpenAI, Anthropic, Gemini, Ollama and others behind one Go API.
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// Timeouts the core imposes on LLM calls (spec §7: "5 s classifier;
// 180 s vision"/completion). Callers derive a context from these rather
// than trusting the backend's own defaults.
const (
	ClassifierTimeout = 5 * time.Second
	CompletionTimeout = 180 * time.Second
)

// ErrUnavailable is returned by Client implementations that have no
// backend configured, letting callers degrade per spec §7 rather than
// special-casing a nil client.
var ErrUnavailable = errors.New("llmclient: no LLM backend configured")

// Message is one turn of a chat conversation.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Client is the narrow interface spec §6.7 names: a single-shot prompt
// completion and a multi-turn chat completion, both returning plain
// text. Implementations must enforce their own timeout.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}

// Provider is the any-llm-go-backed Client implementation.
type Provider struct {
	backend anyllmlib.Provider
	model   string
	enc     *tiktoken.Tiktoken
}

// New creates a Provider for the given backend name ("openai",
// "anthropic", "gemini", or "ollama") and default model. opts are
// passed through to any-llm-go (e.g. anyllmlib.WithAPIKey); without an
// API key option the backend falls back to its usual environment
// variable (OPENAI_API_KEY, ANTHROPIC_API_KEY, ...).
func New(backendName, model string, opts ...anyllmlib.Option) (*Provider, error) {
	if backendName == "" {
		return nil, fmt.Errorf("llmclient: backendName must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llmclient: model must not be empty")
	}

	backend, err := createBackend(backendName, opts...)
	if err != nil {
		return nil, fmt.Errorf("llmclient: create %q backend: %w", backendName, err)
	}

	// cl100k_base covers every model family wired below closely enough
	// for budgeting purposes; exact per-model vocabularies aren't worth
	// the extra dependency surface.
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("llmclient: load tokenizer: %w", err)
	}

	return &Provider{backend: backend, model: model, enc: enc}, nil
}

func createBackend(name string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: openai, anthropic, gemini, ollama", name)
	}
}

// CountTokens estimates the token cost of text using a cl100k_base
// encoding, for prompt-budgeting decisions ahead of a Complete/Chat
// call.
func (p *Provider) CountTokens(text string) int {
	return len(p.enc.Encode(text, nil, nil))
}

// Complete sends a single user-role prompt and returns the model's
// text reply.
func (p *Provider) Complete(ctx context.Context, prompt string) (string, error) {
	return p.Chat(ctx, p.model, []Message{{Role: "user", Content: prompt}})
}

// Chat sends messages to model (or the Provider's default model, if
// model is empty) and returns the assistant's text reply.
func (p *Provider) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	if model == "" {
		model = p.model
	}

	params := anyllmlib.CompletionParams{
		Model:    model,
		Messages: convertMessages(messages),
	}

	resp, err := p.backend.Completion(ctx, params)
	if err != nil {
		return "", fmt.Errorf("llmclient: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llmclient: empty choices in response")
	}
	return resp.Choices[0].Message.ContentString(), nil
}

func convertMessages(messages []Message) []anyllmlib.Message {
	out := make([]anyllmlib.Message, len(messages))
	for i, m := range messages {
		out[i] = anyllmlib.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// extractJSON pulls a JSON object out of a model response that may be
// wrapped in a markdown code fence, matching the original catch-up
// agent's tolerant parsing of LLM output.
func extractJSON(response string) (string, error) {
	trimmed := strings.TrimSpace(response)

	if idx := strings.Index(trimmed, "```json"); idx != -1 {
		start := idx + len("```json")
		rest := trimmed[start:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return strings.TrimSpace(rest), nil
	}
	if idx := strings.Index(trimmed, "```"); idx != -1 {
		start := idx + len("```")
		rest := trimmed[start:]
		if end := strings.Index(rest, "```"); end != -1 {
			return strings.TrimSpace(rest[:end]), nil
		}
		return strings.TrimSpace(rest), nil
	}

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("llmclient: no JSON object found in response")
	}
	return trimmed[start : end+1], nil
}
