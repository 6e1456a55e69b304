// Package skill defines the tool/skill contract the agent runtime's
// agentic loop calls into, and the registry skills are looked up through.
package skill

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/fluux-agent/gateway/internal/llm"
)

// Context carries the per-conversation state a skill needs to act on
// behalf of the user it is serving: which JID it's replying to, and where
// that JID's memory/files live on disk.
type Context struct {
	Jid      string
	BasePath string
}

// Skill is a callable tool exposed to the LLM. Execute receives the raw
// JSON arguments the model supplied (validated against InputSchema by the
// caller's provider, not by Skill itself) and the invoking conversation's
// Context.
type Skill interface {
	Name() string
	Description() string
	ParametersSchema() map[string]interface{}
	Execute(ctx context.Context, input json.RawMessage, skillCtx Context) (string, error)
}

// Registry holds the skills available to the agentic loop. It is
// populated at startup; Register takes the write lock and every read
// takes the read lock, so lookups are safe from any goroutine.
type Registry struct {
	mu     sync.RWMutex
	skills map[string]Skill
}

func NewRegistry() *Registry {
	return &Registry{skills: make(map[string]Skill)}
}

// Register adds a skill, replacing any previous registration under the
// same name (last write wins).
func (r *Registry) Register(s Skill) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skills[s.Name()] = s
}

func (r *Registry) Get(name string) (Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.skills[name]
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.skills)
}

func (r *Registry) IsEmpty() bool {
	return r.Len() == 0
}

// ToolDefinitions returns every registered skill's tool definition, sorted
// by name for deterministic prompts across requests.
func (r *Registry) ToolDefinitions() []llm.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]llm.ToolDefinition, 0, len(r.skills))
	for _, s := range r.skills {
		defs = append(defs, llm.ToolDefinition{
			Name:        s.Name(),
			Description: s.Description(),
			InputSchema: s.ParametersSchema(),
		})
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

// Names returns the registered skill names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.skills))
	for n := range r.skills {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
