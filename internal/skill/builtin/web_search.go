package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fluux-agent/gateway/internal/skill"
)

// Searcher performs the actual web search; production deployments wire in
// a real search backend, the skill's own body stays a thin pass-through.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// WebSearch exposes a web-search tool to the model. Without a Searcher
// configured it reports that search is unavailable rather than failing
// the whole agentic loop.
type WebSearch struct {
	searcher Searcher
}

func NewWebSearch(searcher Searcher) *WebSearch {
	return &WebSearch{searcher: searcher}
}

func (w *WebSearch) Name() string        { return "web_search" }
func (w *WebSearch) Description() string { return "Search the web and return a summary of results." }

func (w *WebSearch) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{"type": "string", "description": "The search query"},
		},
		"required": []string{"query"},
	}
}

func (w *WebSearch) Execute(ctx context.Context, input json.RawMessage, skillCtx skill.Context) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parse web_search arguments: %w", err)
	}
	if w.searcher == nil {
		return "Web search is not configured.", nil
	}
	return w.searcher.Search(ctx, args.Query)
}
