// Package ollama implements llm.Provider against Ollama's OpenAI-chat-style
// /api/chat endpoint, synthesizing tool-call IDs since that wire format
// doesn't assign them.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fluux-agent/gateway/internal/llm"
	"go.uber.org/zap"
)

const defaultHost = "http://localhost:11434"

func init() {
	llm.RegisterFactory("ollama", func(cfg llm.Config, logger *zap.Logger) llm.Provider {
		return New(cfg, logger)
	})
}

// Provider talks to an Ollama (or any OpenAI-chat-compatible) /api/chat endpoint.
type Provider struct {
	cfg    llm.Config
	host   string
	client *http.Client
	logger *zap.Logger
}

// New constructs an Ollama provider. cfg.Host defaults to localhost:11434
// and any trailing slash is stripped.
func New(cfg llm.Config, logger *zap.Logger) *Provider {
	host := cfg.Host
	if host == "" {
		host = defaultHost
	}
	host = strings.TrimRight(host, "/")
	return &Provider{
		cfg:    cfg,
		host:   host,
		client: &http.Client{Timeout: 120 * time.Second},
		logger: logger,
	}
}

func (p *Provider) Description() string {
	return fmt.Sprintf("%s (%s)", p.providerName(), p.cfg.Model)
}

func (p *Provider) providerName() string {
	if p.cfg.Provider != "" {
		return p.cfg.Provider
	}
	return "ollama"
}

// Complete builds an OpenAI-chat-style request, translating the normalized
// message list and tool definitions, and synthesizes a normalized response
// from whatever the endpoint returns.
func (p *Provider) Complete(ctx context.Context, systemPrompt string, messages []llm.Message, tools []llm.ToolDefinition) (*llm.Response, error) {
	var wireMessages []chatMessage
	if systemPrompt != "" {
		wireMessages = append(wireMessages, chatMessage{Role: "system", Content: systemPrompt})
	}
	for _, m := range messages {
		wireMessages = append(wireMessages, translateMessage(m)...)
	}

	var wireTools []toolDef
	for _, t := range tools {
		wireTools = append(wireTools, toolDef{
			Type: "function",
			Function: functionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	req := chatRequest{
		Model:    p.cfg.Model,
		Messages: wireMessages,
		Stream:   false,
		Tools:    wireTools,
		Options:  chatOptions{NumPredict: p.cfg.MaxTokensPerRequest},
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal ollama request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read ollama response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var wr chatResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return nil, fmt.Errorf("parse ollama response: %w", err)
	}

	return fromChatResponse(wr), nil
}

// translateMessage converts one normalized message into zero or more
// Ollama chat messages. A message carrying tool-use blocks becomes a
// single assistant message with tool_calls; a message carrying tool
// results becomes one "tool"-role message per result; everything else
// becomes a single message with joined text, and multimodal blocks are
// replaced with a placeholder since this wire format carries no images.
func translateMessage(m llm.Message) []chatMessage {
	if !m.Content.IsBlocks() {
		return []chatMessage{{Role: string(m.Role), Content: m.Content.Text}}
	}

	var textParts []string
	var toolCalls []llm.ToolUseBlock
	var toolResults []llm.ToolResultBlock

	for _, b := range m.Content.Blocks {
		switch v := b.(type) {
		case llm.TextBlock:
			textParts = append(textParts, v.Text)
		case llm.ToolUseBlock:
			toolCalls = append(toolCalls, v)
		case llm.ToolResultBlock:
			toolResults = append(toolResults, v)
		case llm.ImageBlock, llm.DocumentBlock:
			textParts = append(textParts, "[Unsupported: image/document content omitted]")
		}
	}

	if len(toolCalls) > 0 {
		wireCalls := make([]toolCall, 0, len(toolCalls))
		for _, tc := range toolCalls {
			wireCalls = append(wireCalls, toolCall{Function: functionCall{Name: tc.Name, Arguments: tc.Input}})
		}
		return []chatMessage{{
			Role:      "assistant",
			Content:   strings.Join(textParts, "\n"),
			ToolCalls: wireCalls,
		}}
	}

	if len(toolResults) > 0 {
		out := make([]chatMessage, 0, len(toolResults))
		for _, tr := range toolResults {
			out = append(out, chatMessage{Role: "tool", Content: tr.Content})
		}
		return out
	}

	return []chatMessage{{Role: string(m.Role), Content: strings.Join(textParts, "\n")}}
}

func fromChatResponse(wr chatResponse) *llm.Response {
	var blocks []llm.ContentBlock
	var toolCalls []llm.ToolUseBlock

	if wr.Message.Content != "" {
		blocks = append(blocks, llm.TextBlock{Text: wr.Message.Content})
	}
	for i, tc := range wr.Message.ToolCalls {
		// Ollama's wire format assigns no tool-call ID; synthesize a
		// stable-within-session one from the 0-based index.
		synth := llm.ToolUseBlock{
			ID:    fmt.Sprintf("local_tool_%d", i),
			Name:  tc.Function.Name,
			Input: tc.Function.Arguments,
		}
		toolCalls = append(toolCalls, synth)
		blocks = append(blocks, synth)
	}

	stop := llm.StopEndTurn
	if len(toolCalls) > 0 {
		stop = llm.StopToolUse
	} else {
		switch wr.DoneReason {
		case "", "stop":
			stop = llm.StopEndTurn
		case "length":
			stop = llm.StopMaxTokens
		default:
			stop = llm.StopOther(wr.DoneReason)
		}
	}

	return &llm.Response{
		Text:          wr.Message.Content,
		ContentBlocks: blocks,
		ToolCalls:     toolCalls,
		StopReason:    stop,
		InputTokens:   wr.PromptEvalCount,
		OutputTokens:  wr.EvalCount,
	}
}
