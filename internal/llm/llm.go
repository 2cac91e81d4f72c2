package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	appI18n "github.com/pavelanni/shieldly/internal/i18n"
	"github.com/pavelanni/shieldly/internal/llm/prompts"
)

// Source says where a reply came from.
type Source string

const (
	SourceRules Source = "rules"
	SourceModel Source = "model"
)

// Reply is the helper's answer to one question.
type Reply struct {
	Topic  Topic  `json:"topic"`
	Text   string `json:"reply"`
	Source Source `json:"source"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

type modelReply struct {
	Topic Topic  `json:"topic"`
	Reply string `json:"reply"`
}

// Ask sends a child's question to the model and parses its JSON answer.
func (c *Client) Ask(ctx context.Context, lang, question string) (Reply, error) {
	topics := make([]string, len(Topics))
	for i, t := range Topics {
		topics[i] = string(t)
	}
	system, err := prompts.BuildHelperPrompt(lang, topics, question)
	if err != nil {
		return Reply{}, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Reply{}, errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var out modelReply
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return Reply{}, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if strings.TrimSpace(out.Reply) == "" {
		return Reply{}, errors.New("LLM returned an empty reply")
	}
	if !out.Topic.Valid() {
		out.Topic = Classify(question)
	}
	return Reply{Topic: out.Topic, Text: out.Reply, Source: SourceModel}, nil
}

// Asker answers questions with a model.
type Asker interface {
	Ask(ctx context.Context, lang, question string) (Reply, error)
}

// Helper answers safety questions. It uses the model when one is configured
// and falls back to canned, localized answers otherwise.
type Helper struct {
	model Asker // nil means rules only
}

// NewHelper returns a helper backed by model. A nil model gives a rules-only helper.
func NewHelper(model Asker) *Helper {
	return &Helper{model: model}
}

// Answer replies to question in lang. ctx must carry a localizer for lang.
func (h *Helper) Answer(ctx context.Context, lang, question string) Reply {
	if h != nil && h.model != nil {
		reply, err := h.model.Ask(ctx, lang, question)
		if err == nil {
			return reply
		}
		slog.Warn("helper model failed, using canned answer", "error", err)
	}
	return Canned(ctx, Classify(question))
}

// Canned returns the built-in answer for t in the context's language.
func Canned(ctx context.Context, t Topic) Reply {
	return Reply{Topic: t, Text: appI18n.T(ctx, t.MessageID()), Source: SourceRules}
}
