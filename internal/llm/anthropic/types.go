package anthropic

import "github.com/fluux-agent/gateway/internal/llm"

// request is the Anthropic Messages API request body.
type request struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Messages  []wireMessage `json:"messages"`
	Tools     []wireTool    `json:"tools,omitempty"`
}

type wireMessage struct {
	Role    string            `json:"role"`
	Content []wireContentBlock `json:"content"`
}

// wireContentBlock is Anthropic's polymorphic content element, tagged by Type.
type wireContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	ID    string                 `json:"id,omitempty"`
	Name  string                 `json:"name,omitempty"`
	Input map[string]interface{} `json:"input,omitempty"`

	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type wireTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"`
}

type wireResponse struct {
	Content    []wireContentBlock `json:"content"`
	StopReason string             `json:"stop_reason"`
	Usage      wireUsage          `json:"usage"`
}

type wireUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func toWireMessage(m llm.Message) wireMessage {
	wm := wireMessage{Role: string(m.Role)}
	if !m.Content.IsBlocks() {
		wm.Content = []wireContentBlock{{Type: "text", Text: m.Content.Text}}
		return wm
	}
	for _, b := range m.Content.Blocks {
		switch v := b.(type) {
		case llm.TextBlock:
			wm.Content = append(wm.Content, wireContentBlock{Type: "text", Text: v.Text})
		case llm.ToolUseBlock:
			wm.Content = append(wm.Content, wireContentBlock{Type: "tool_use", ID: v.ID, Name: v.Name, Input: v.Input})
		case llm.ToolResultBlock:
			wm.Content = append(wm.Content, wireContentBlock{Type: "tool_result", ToolUseID: v.ToolUseID, Content: v.Content})
		case llm.ImageBlock, llm.DocumentBlock:
			// Anthropic supports multimodal blocks natively; this module
			// only forwards text/tool blocks through the normalized model
			// and notes unsupported multimodal content as text instead,
			// matching the conservative behavior applied by the ollama
			// provider for the same case.
			wm.Content = append(wm.Content, wireContentBlock{Type: "text", Text: "[Unsupported: image/document content omitted]"})
		}
	}
	return wm
}

func fromWireResponse(wr wireResponse) *llm.Response {
	var text string
	var toolCalls []llm.ToolUseBlock
	var blocks []llm.ContentBlock
	for _, b := range wr.Content {
		switch b.Type {
		case "text":
			text += b.Text
			blocks = append(blocks, llm.TextBlock{Text: b.Text})
		case "tool_use":
			tc := llm.ToolUseBlock{ID: b.ID, Name: b.Name, Input: b.Input}
			toolCalls = append(toolCalls, tc)
			blocks = append(blocks, tc)
		}
	}

	stop := llm.StopEndTurn
	if len(toolCalls) > 0 {
		stop = llm.StopToolUse
	} else {
		switch wr.StopReason {
		case "end_turn", "stop_sequence", "":
			stop = llm.StopEndTurn
		case "max_tokens":
			stop = llm.StopMaxTokens
		default:
			stop = llm.StopOther(wr.StopReason)
		}
	}

	return &llm.Response{
		Text:          text,
		ContentBlocks: blocks,
		ToolCalls:     toolCalls,
		StopReason:    stop,
		InputTokens:   wr.Usage.InputTokens,
		OutputTokens:  wr.Usage.OutputTokens,
	}
}
