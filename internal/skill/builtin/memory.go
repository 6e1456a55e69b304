package builtin

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fluux-agent/gateway/internal/skill"
)

// KnowledgeStore is the subset of the memory façade the save_memory skill
// needs: appending a durable knowledge entry for the calling JID.
type KnowledgeStore interface {
	KnowledgeStore(jid, key, content string) error
}

// SaveMemory lets the model persist a durable fact about the user beyond
// the rolling chat history, e.g. "user prefers email over XMPP for
// anything non-urgent".
type SaveMemory struct {
	store KnowledgeStore
}

func NewSaveMemory(store KnowledgeStore) *SaveMemory {
	return &SaveMemory{store: store}
}

func (m *SaveMemory) Name() string { return "save_memory" }
func (m *SaveMemory) Description() string {
	return "Save a durable fact or preference about this user for future conversations."
}

func (m *SaveMemory) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"key":     map[string]interface{}{"type": "string", "description": "Short label for this fact"},
			"content": map[string]interface{}{"type": "string", "description": "The fact to remember"},
		},
		"required": []string{"key", "content"},
	}
}

func (m *SaveMemory) Execute(ctx context.Context, input json.RawMessage, skillCtx skill.Context) (string, error) {
	var args struct {
		Key     string `json:"key"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal(input, &args); err != nil {
		return "", fmt.Errorf("parse save_memory arguments: %w", err)
	}
	if args.Key == "" || args.Content == "" {
		return "", fmt.Errorf("save_memory requires both key and content")
	}
	if err := m.store.KnowledgeStore(skillCtx.Jid, args.Key, args.Content); err != nil {
		return "", fmt.Errorf("save_memory: %w", err)
	}
	return "Saved.", nil
}
