package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fluux-agent/gateway/internal/llm"
	"github.com/fluux-agent/gateway/internal/memory"
	"github.com/fluux-agent/gateway/internal/skill"
	"github.com/fluux-agent/gateway/internal/telemetry"
	"go.uber.org/zap"
)

// converse runs the agentic loop for a single inbound turn. If
// storeInbound is true the caller has not yet persisted the user's
// message (the common 1:1 case); groupchat and reaction handlers persist
// the inbound side themselves before calling in, so they pass false.
func (r *Runtime) converse(ctx context.Context, jid, body string, extraBlocks []llm.ContentBlock, storeInbound bool) (string, error) {
	history, err := r.memory.GetHistory(jid, HistoryTailLength)
	if err != nil {
		return "", fmt.Errorf("load history: %w", err)
	}

	if storeInbound {
		if err := r.memory.StoreMessage(jid, "user", body, "", "", nil, ""); err != nil {
			return "", fmt.Errorf("store inbound message: %w", err)
		}
	}

	systemPrompt, err := r.buildSystemPrompt(jid)
	if err != nil {
		return "", err
	}

	messages := historyToMessages(history)
	messages = append(messages, newUserTurn(body, extraBlocks))

	text, _, _, err := r.runAgenticLoop(ctx, jid, systemPrompt, messages)
	if err != nil {
		return "", err
	}

	if err := r.memory.StoreMessage(jid, "assistant", text, "", "", nil, ""); err != nil {
		r.logger.Warn("failed to store assistant reply", zap.Error(err))
	}
	return text, nil
}

func newUserTurn(body string, extraBlocks []llm.ContentBlock) llm.Message {
	if len(extraBlocks) == 0 {
		return llm.Message{Role: llm.RoleUser, Content: llm.TextContent(body)}
	}
	blocks := append([]llm.ContentBlock{}, extraBlocks...)
	if body != "" {
		blocks = append(blocks, llm.TextBlock{Text: body})
	}
	return llm.Message{Role: llm.RoleUser, Content: llm.BlockContent(blocks...)}
}

func historyToMessages(history []memory.Message) []llm.Message {
	out := make([]llm.Message, 0, len(history))
	for _, m := range history {
		role := llm.RoleUser
		if m.Role == "assistant" {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: llm.TextContent(m.Body)})
	}
	return out
}

// runAgenticLoop drives up to MaxToolRounds calls to the provider,
// executing any requested tools in between, then forces one final
// tools-disabled call if the bound is reached without a terminal
// response. It returns the final answer text and accumulated token
// counts.
func (r *Runtime) runAgenticLoop(ctx context.Context, jid, systemPrompt string, messages []llm.Message) (string, int, int, error) {
	var totalIn, totalOut int

	var tools []llm.ToolDefinition
	if !r.skills.IsEmpty() {
		tools = r.skills.ToolDefinitions()
	}

	for round := 0; round < MaxToolRounds; round++ {
		r.monitor.IncModelCall()
		resp, err := r.provider.Complete(ctx, systemPrompt, messages, tools)
		if err != nil {
			return "", totalIn, totalOut, fmt.Errorf("llm completion failed: %w", err)
		}
		totalIn += resp.InputTokens
		totalOut += resp.OutputTokens
		r.monitor.AddTokensUsed(resp.InputTokens + resp.OutputTokens)

		if resp.StopReason != llm.StopToolUse || len(resp.ToolCalls) == 0 {
			return resp.Text, totalIn, totalOut, nil
		}

		messages = append(messages, llm.Message{Role: llm.RoleAssistant, Content: llm.BlockContent(resp.ContentBlocks...)})

		var resultBlocks []llm.ContentBlock
		for _, call := range resp.ToolCalls {
			resultBlocks = append(resultBlocks, llm.ToolResultBlock{
				ToolUseID: call.ID,
				Content:   r.executeToolCall(ctx, jid, call),
			})
		}
		messages = append(messages, llm.Message{Role: llm.RoleUser, Content: llm.BlockContent(resultBlocks...)})
	}

	r.monitor.IncModelCall()
	resp, err := r.provider.Complete(ctx, systemPrompt, messages, nil)
	if err != nil {
		return "", totalIn, totalOut, fmt.Errorf("final forced completion failed: %w", err)
	}
	totalIn += resp.InputTokens
	totalOut += resp.OutputTokens
	r.monitor.AddTokensUsed(resp.InputTokens + resp.OutputTokens)
	return resp.Text, totalIn, totalOut, nil
}

func (r *Runtime) executeToolCall(ctx context.Context, jid string, call llm.ToolUseBlock) string {
	s, ok := r.skills.Get(call.Name)
	if !ok {
		return fmt.Sprintf("Error: unknown tool '%s'", call.Name)
	}
	input, err := json.Marshal(call.Input)
	if err != nil {
		return fmt.Sprintf("Error: could not encode arguments for '%s': %v", call.Name, err)
	}
	r.emit(telemetry.KindToolCall, jid, call.Name, "")
	r.monitor.IncToolCallTotal()
	start := time.Now()
	result, err := s.Execute(ctx, input, skill.Context{Jid: jid, BasePath: r.memory.BasePath()})
	r.monitor.RecordToolLatency(time.Since(start))
	if err != nil {
		r.monitor.IncToolCallFailed()
		return fmt.Sprintf("Error: %v", err)
	}
	r.monitor.IncToolCallSuccess()
	return result
}
