package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadClientMode(t *testing.T) {
	path := writeConfig(t, `
server:
  host: xmpp.example.com
  port: 5222
client:
  jid: bot@example.com
  password: ${TEST_AGENT_PASSWORD}
agent:
  name: Assistant
  allowed_jids: ["alice@example.com"]
llm:
  provider: anthropic
  model: claude-sonnet
  api_key: ${TEST_AGENT_API_KEY}
`)
	os.Setenv("TEST_AGENT_PASSWORD", "secret-pw")
	os.Setenv("TEST_AGENT_API_KEY", "secret-key")
	defer os.Unsetenv("TEST_AGENT_PASSWORD")
	defer os.Unsetenv("TEST_AGENT_API_KEY")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode() != "client" {
		t.Fatalf("Mode() = %q, want client", cfg.Mode())
	}
	if cfg.Client.Password != "secret-pw" {
		t.Fatalf("Client.Password = %q", cfg.Client.Password)
	}
	if cfg.LLM.APIKey != "secret-key" {
		t.Fatalf("LLM.APIKey = %q", cfg.LLM.APIKey)
	}
	if cfg.Keepalive.PingInterval().Seconds() != 60 {
		t.Fatalf("default ping interval not applied")
	}
}

func TestLoadComponentMode(t *testing.T) {
	path := writeConfig(t, `
server:
  host: component.example.com
  port: 5347
component:
  domain: bot.example.com
  secret: sekrit
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode() != "component" {
		t.Fatalf("Mode() = %q, want component", cfg.Mode())
	}
}

func TestOperatorSurfacesDisabledByDefault(t *testing.T) {
	path := writeConfig(t, `
server:
  host: xmpp.example.com
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Operator.HTTP.Enabled || cfg.Operator.WebSocket.Enabled || cfg.Operator.GRPCSkills.Enabled {
		t.Fatalf("operator surfaces must default to disabled: %+v", cfg.Operator)
	}
}
