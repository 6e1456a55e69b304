package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fluux-agent/gateway/internal/skill"
)

type stubSkill struct {
	name   string
	result string
	err    error
}

func (s *stubSkill) Name() string                               { return s.name }
func (s *stubSkill) Description() string                        { return "stub" }
func (s *stubSkill) ParametersSchema() map[string]interface{}   { return map[string]interface{}{"type": "object"} }
func (s *stubSkill) Execute(ctx context.Context, input json.RawMessage, skillCtx skill.Context) (string, error) {
	return s.result, s.err
}

func TestRegistryHandlerExecuteSkillSuccess(t *testing.T) {
	reg := skill.NewRegistry()
	reg.Register(&stubSkill{name: "url_fetch", result: "ok"})
	h := registryHandler{registry: reg}

	resp, err := h.ExecuteSkill(context.Background(), &SkillRequest{Name: "url_fetch"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Result != "ok" || resp.Error != "" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestRegistryHandlerExecuteSkillUnknown(t *testing.T) {
	h := registryHandler{registry: skill.NewRegistry()}

	resp, err := h.ExecuteSkill(context.Background(), &SkillRequest{Name: "nope"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error == "" {
		t.Fatal("expected an error message for unknown skill")
	}
}

func TestRegistryHandlerExecuteSkillFailure(t *testing.T) {
	reg := skill.NewRegistry()
	reg.Register(&stubSkill{name: "broken", err: errors.New("boom")})
	h := registryHandler{registry: reg}

	resp, err := h.ExecuteSkill(context.Background(), &SkillRequest{Name: "broken"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Error != "boom" {
		t.Fatalf("resp.Error = %q, want boom", resp.Error)
	}
}
