// Package gpt generates per-dimension narrative overrides through an
// OpenAI-compatible chat-completion endpoint. One request, one structured
// JSON response; any shortfall is a narrative-only failure.
package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/glowlab/dermascan/internal/core/domain"
)

type Client struct {
	client *openai.Client
	model  string
}

func New(apiKey, baseURL, model string) *Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

func (c *Client) Enrich(ctx context.Context, dims []domain.ReportDimension) (map[string]domain.Narrative, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildNarrativePrompt(dims)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, domain.WrapError(domain.ErrNarrative, "chat completion", err)
	}
	if len(resp.Choices) == 0 {
		return nil, domain.WrapError(domain.ErrNarrative, "chat completion", errors.New("no choices returned"))
	}

	overrides, err := parseNarrativeResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, domain.WrapError(domain.ErrNarrative, "parse response", err)
	}
	return overrides, nil
}

type narrativeResponse struct {
	Dimensions []struct {
		ID        string `json:"id"`
		Finding   string `json:"finding"`
		Mechanism string `json:"mechanism"`
		Action    string `json:"action"`
	} `json:"dimensions"`
}

// parseNarrativeResponse validates the vendor shape: entries missing any of
// the three text fields are dropped; an entirely unusable payload is an error.
func parseNarrativeResponse(raw string) (map[string]domain.Narrative, error) {
	var parsed narrativeResponse
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal narratives: %w", err)
	}

	overrides := make(map[string]domain.Narrative, len(parsed.Dimensions))
	for _, d := range parsed.Dimensions {
		if strings.TrimSpace(d.ID) == "" ||
			strings.TrimSpace(d.Finding) == "" ||
			strings.TrimSpace(d.Mechanism) == "" ||
			strings.TrimSpace(d.Action) == "" {
			continue
		}
		overrides[d.ID] = domain.Narrative{
			Finding:   d.Finding,
			Mechanism: d.Mechanism,
			Action:    d.Action,
		}
	}
	if len(overrides) == 0 {
		return nil, errors.New("no usable dimension narratives in response")
	}
	return overrides, nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
