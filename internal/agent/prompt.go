package agent

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"go.uber.org/zap"
)

// buildSystemPrompt assembles the workspace-context blocks (identity,
// personality, instructions, user profile, user memory) into one system
// prompt string. Each markdown block is validated by parsing it with
// goldmark before being folded in verbatim; a block that fails to parse
// is dropped with a logged warning rather than breaking the whole prompt.
func (r *Runtime) buildSystemPrompt(jid string) (string, error) {
	wc, err := r.memory.GetWorkspaceContext(jid)
	if err != nil {
		return "", fmt.Errorf("load workspace context: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, an XMPP-connected conversational agent.\n", r.cfg.Agent.Name)

	r.appendValidatedSection(&b, "Identity", wc.Identity)
	r.appendValidatedSection(&b, "Personality", wc.Personality)
	r.appendValidatedSection(&b, "Instructions", wc.Instructions)

	if wc.UserProfile != "" {
		r.appendValidatedSection(&b, "About this user", wc.UserProfile)
	}
	if wc.UserMemory != "" {
		r.appendValidatedSection(&b, "Notes and memory", wc.UserMemory)
	}

	if !r.skills.IsEmpty() {
		fmt.Fprintf(&b, "\n## Available tools\nYou may call: %s\n", strings.Join(r.skills.Names(), ", "))
	}

	return b.String(), nil
}

func (r *Runtime) appendValidatedSection(b *strings.Builder, title, content string) {
	content = strings.TrimSpace(content)
	if content == "" {
		return
	}
	if err := goldmark.Convert([]byte(content), &discardWriter{}); err != nil {
		r.logger.Warn("workspace context block failed markdown validation, skipping", zap.String("section", title), zap.Error(err))
		return
	}
	fmt.Fprintf(b, "\n## %s\n%s\n", title, content)
}

// discardWriter satisfies io.Writer while discarding goldmark's rendered
// HTML output; only the parse/render error is of interest here.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }
