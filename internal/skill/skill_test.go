package skill

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

type dummySkill struct{ query string }

func (d *dummySkill) Name() string        { return "dummy" }
func (d *dummySkill) Description() string { return "a dummy skill" }
func (d *dummySkill) ParametersSchema() map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": map[string]interface{}{"query": map[string]interface{}{"type": "string"}},
	}
}
func (d *dummySkill) Execute(ctx context.Context, input json.RawMessage, skillCtx Context) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	_ = json.Unmarshal(input, &args)
	return "result for: " + args.Query, nil
}

type failSkill struct{}

func (f *failSkill) Name() string                               { return "fail" }
func (f *failSkill) Description() string                        { return "always fails" }
func (f *failSkill) ParametersSchema() map[string]interface{}    { return map[string]interface{}{"type": "object"} }
func (f *failSkill) Execute(ctx context.Context, input json.RawMessage, skillCtx Context) (string, error) {
	return "", errors.New("intentional failure")
}

func TestRegistryEmpty(t *testing.T) {
	r := NewRegistry()
	if !r.IsEmpty() || r.Len() != 0 {
		t.Fatalf("new registry should be empty")
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	r.Register(&dummySkill{})
	s, ok := r.Get("dummy")
	if !ok || s.Name() != "dummy" {
		t.Fatalf("expected to find dummy skill")
	}
}

func TestGetNonexistent(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get("nope"); ok {
		t.Fatalf("expected not found")
	}
}

func TestDuplicateRegistrationReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register(&dummySkill{query: "a"})
	r.Register(&dummySkill{query: "b"})
	if r.Len() != 1 {
		t.Fatalf("len = %d, want 1", r.Len())
	}
}

func TestToolDefinitionsSortedByName(t *testing.T) {
	r := NewRegistry()
	r.Register(&namedSkill{"zebra"})
	r.Register(&namedSkill{"alpha"})
	r.Register(&namedSkill{"mid"})
	defs := r.ToolDefinitions()
	if len(defs) != 3 || defs[0].Name != "alpha" || defs[1].Name != "mid" || defs[2].Name != "zebra" {
		t.Fatalf("defs not sorted: %+v", defs)
	}
}

type namedSkill struct{ name string }

func (n *namedSkill) Name() string                            { return n.name }
func (n *namedSkill) Description() string                     { return "" }
func (n *namedSkill) ParametersSchema() map[string]interface{} { return map[string]interface{}{"type": "object"} }
func (n *namedSkill) Execute(ctx context.Context, input json.RawMessage, skillCtx Context) (string, error) {
	return "", nil
}

func TestExecuteSkill(t *testing.T) {
	r := NewRegistry()
	r.Register(&dummySkill{})
	s, _ := r.Get("dummy")
	out, err := s.Execute(context.Background(), json.RawMessage(`{"query":"hello"}`), Context{})
	if err != nil || out != "result for: hello" {
		t.Fatalf("out=%q err=%v", out, err)
	}
}

func TestExecuteSkillError(t *testing.T) {
	r := NewRegistry()
	r.Register(&failSkill{})
	s, _ := r.Get("fail")
	_, err := s.Execute(context.Background(), nil, Context{})
	if err == nil || err.Error() != "intentional failure" {
		t.Fatalf("err = %v", err)
	}
}

func TestNamesSorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&namedSkill{"b"})
	r.Register(&namedSkill{"a"})
	names := r.Names()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Fatalf("names = %v", names)
	}
}
