// Package anthropic implements llm.Provider against the Anthropic Messages
// API, including tool use via content blocks.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fluux-agent/gateway/internal/llm"
	"go.uber.org/zap"
)

const (
	apiURL        = "https://api.anthropic.com/v1/messages"
	apiVersion    = "2023-06-01"
	defaultMaxTok = 4096
)

func init() {
	llm.RegisterFactory("anthropic", func(cfg llm.Config, logger *zap.Logger) llm.Provider {
		return New(cfg, logger)
	})
}

// Provider talks to the Anthropic Messages API.
type Provider struct {
	cfg    llm.Config
	client *http.Client
	logger *zap.Logger
}

// New constructs an Anthropic provider.
func New(cfg llm.Config, logger *zap.Logger) *Provider {
	if cfg.MaxTokensPerRequest == 0 {
		cfg.MaxTokensPerRequest = defaultMaxTok
	}
	return &Provider{
		cfg:    cfg,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}
}

func (p *Provider) Description() string {
	return fmt.Sprintf("anthropic (%s)", p.cfg.Model)
}

// Complete sends one Messages API request and normalizes the response.
func (p *Provider) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Response, error) {
	req := request{
		Model:     p.cfg.Model,
		MaxTokens: p.cfg.MaxTokensPerRequest,
		System:    systemPrompt,
		Messages:  make([]wireMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, toWireMessage(m))
	}
	if len(tools) > 0 {
		req.Tools = make([]wireTool, 0, len(tools))
		for _, t := range tools {
			req.Tools = append(req.Tools, wireTool{
				Name:        t.Name,
				Description: t.Description,
				InputSchema: normalizeSchema(t.InputSchema),
			})
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal anthropic request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build anthropic request: %w", err)
	}
	httpReq.Header.Set("x-api-key", p.cfg.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read anthropic response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, fmt.Errorf("parse anthropic response: %w", err)
	}

	return fromWireResponse(wr), nil
}

func normalizeSchema(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return map[string]interface{}{"type": "object", "properties": map[string]interface{}{}}
	}
	out := make(map[string]interface{}, len(schema))
	for k, v := range schema {
		out[k] = v
	}
	if _, ok := out["type"]; !ok {
		out["type"] = "object"
	}
	return out
}
