// Package builtin provides the agent's first-party skills. Their
// LLM-facing contract (name/description/schema) is the in-scope part;
// the HTTP bodies stay deliberately thin, matching the spec's exclusion
// of scraping internals from implementation detail.
package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fluux-agent/gateway/internal/skill"
)

const maxFetchBytes = 64 * 1024

// URLFetch retrieves a URL and returns its body truncated to a safe size
// for inclusion in the model's context.
type URLFetch struct {
	client *http.Client
}

func NewURLFetch() *URLFetch {
	return &URLFetch{client: &http.Client{Timeout: 15 * time.Second}}
}

func (u *URLFetch) Name() string        { return "url_fetch" }
func (u *URLFetch) Description() string { return "Fetch the text content of a URL." }

func (u *URLFetch) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"url": map[string]interface{}{"type": "string", "description": "The URL to fetch"},
		},
		"required": []string{"url"},
	}
}

func (u *URLFetch) Execute(ctx context.Context, input json.RawMessage, skillCtx skill.Context) (string, error) {
	var args struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parse url_fetch arguments: %w", err)
	}
	if args.URL == "" {
		return "", fmt.Errorf("url_fetch requires a url")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
	if err != nil {
		return "", fmt.Errorf("build url_fetch request: %w", err)
	}
	resp, err := u.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("url_fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return "", fmt.Errorf("read url_fetch response: %w", err)
	}
	return string(body), nil
}
