// Package config loads the daemon's single configuration object: server
// connection mode, LLM provider settings, agent identity/ACLs, memory
// backend, rooms, skills and keepalive tuning, plus the optional operator
// surfaces. Layered the way the teacher loads config: defaults, then a
// YAML file, then environment variables, with `${ENV}` expansion applied
// to secret fields after unmarshal.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Component ComponentConfig `mapstructure:"component"`
	Client    ClientConfig    `mapstructure:"client"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Agent     AgentConfig     `mapstructure:"agent"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	Rooms     []RoomConfig    `mapstructure:"rooms"`
	Skills    []string        `mapstructure:"skills"`
	Keepalive KeepaliveConfig `mapstructure:"keepalive"`
	Operator  OperatorConfig  `mapstructure:"operator"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Mode reports which connection variant this config selects.
func (c *Config) Mode() string {
	if c.Component.Domain != "" {
		return "component"
	}
	return "client"
}

// ComponentConfig configures XEP-0114 component-mode connections.
type ComponentConfig struct {
	Domain string `mapstructure:"domain"`
	Secret string `mapstructure:"secret"`
}

// ClientConfig configures ordinary client-mode (SASL) connections.
type ClientConfig struct {
	Jid       string `mapstructure:"jid"`
	Password  string `mapstructure:"password"`
	Resource  string `mapstructure:"resource"`
	TLSVerify bool   `mapstructure:"tls_verify"`
}

type LLMConfig struct {
	Provider  string `mapstructure:"provider"` // "anthropic" or "ollama"
	Model     string `mapstructure:"model"`
	APIKey    string `mapstructure:"api_key"`
	MaxTokens int    `mapstructure:"max_tokens"`
	Host      string `mapstructure:"host"` // optional, ollama-style providers
}

type AgentConfig struct {
	Name           string   `mapstructure:"name"`
	AllowedJids    []string `mapstructure:"allowed_jids"`
	AllowedDomains []string `mapstructure:"allowed_domains"`
}

type MemoryConfig struct {
	Backend string `mapstructure:"backend"` // "filesystem" is the only supported value today
	Path    string `mapstructure:"path"`
}

type RoomConfig struct {
	Jid  string `mapstructure:"jid"`
	Nick string `mapstructure:"nick"`
}

type KeepaliveConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	PingIntervalSec int  `mapstructure:"ping_interval_secs"`
	ReadTimeoutSec  int  `mapstructure:"read_timeout_secs"`
}

func (k KeepaliveConfig) PingInterval() time.Duration {
	return time.Duration(k.PingIntervalSec) * time.Second
}

func (k KeepaliveConfig) ReadTimeout() time.Duration {
	return time.Duration(k.ReadTimeoutSec) * time.Second
}

// OperatorConfig gates the supplemented operator surfaces; every one
// defaults to disabled so a bare deployment matches the wire-protocol
// daemon the spec describes with no additional attack surface.
type OperatorConfig struct {
	HTTP       HTTPOperatorConfig      `mapstructure:"http"`
	WebSocket  WebSocketOperatorConfig `mapstructure:"websocket"`
	GRPCSkills GRPCSkillsConfig        `mapstructure:"grpc_skills"`
}

type HTTPOperatorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type WebSocketOperatorConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

type GRPCSkillsConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Addr    string   `mapstructure:"addr"`
	Skills  []string `mapstructure:"skills"` // skill names served by the remote process
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the config file at path (YAML), applies defaults, allows
// environment variables to override, and expands `${ENV}` references in
// secret fields.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix("AGENT")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	expandSecrets(&cfg)
	return &cfg, nil
}

// Validate checks the semantic constraints Load's defaults/unmarshal can't
// express on their own: exactly one connection mode must be configured, the
// LLM provider must be one of the registered ones, and a memory path must
// be set. It does not touch the network or filesystem.
func (c *Config) Validate() error {
	var errs []string

	haveComponent := c.Component.Domain != ""
	haveClient := c.Client.Jid != ""
	switch {
	case haveComponent && haveClient:
		errs = append(errs, "both component.domain and client.jid are set; configure exactly one connection mode")
	case !haveComponent && !haveClient:
		errs = append(errs, "neither component.domain nor client.jid is set; configure exactly one connection mode")
	case haveComponent && c.Component.Secret == "":
		errs = append(errs, "component.domain is set but component.secret is empty")
	case haveClient && c.Client.Password == "":
		errs = append(errs, "client.jid is set but client.password is empty")
	}

	switch c.LLM.Provider {
	case "anthropic", "ollama":
	case "":
		errs = append(errs, "llm.provider is empty")
	default:
		errs = append(errs, fmt.Sprintf("llm.provider %q is not a known provider (anthropic, ollama)", c.LLM.Provider))
	}

	if c.Memory.Path == "" {
		errs = append(errs, "memory.path is empty")
	}

	if c.Operator.HTTP.Enabled && c.Operator.HTTP.Addr == "" {
		errs = append(errs, "operator.http.enabled is true but operator.http.addr is empty")
	}
	if c.Operator.WebSocket.Enabled && c.Operator.WebSocket.Addr == "" {
		errs = append(errs, "operator.websocket.enabled is true but operator.websocket.addr is empty")
	}
	if c.Operator.GRPCSkills.Enabled && c.Operator.GRPCSkills.Addr == "" {
		errs = append(errs, "operator.grpc_skills.enabled is true but operator.grpc_skills.addr is empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Watch loads the config at path, then watches it for changes using
// viper's fsnotify-backed WatchConfig. Every time the file is rewritten,
// onChange is called with the freshly reloaded config, or with a non-nil
// error if the rewritten file failed to load. The initial config is
// returned directly so the caller doesn't have to wait on the first
// callback to start up.
func Watch(path string, onChange func(*Config, error)) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	v.SetEnvPrefix("AGENT")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	expandSecrets(&cfg)

	v.OnConfigChange(func(fsnotify.Event) {
		var reloaded Config
		if err := v.Unmarshal(&reloaded); err != nil {
			onChange(nil, fmt.Errorf("unmarshal reloaded config: %w", err))
			return
		}
		expandSecrets(&reloaded)
		if err := reloaded.Validate(); err != nil {
			onChange(nil, err)
			return
		}
		onChange(&reloaded, nil)
	})
	v.WatchConfig()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5222)
	v.SetDefault("client.tls_verify", true)
	v.SetDefault("client.resource", "agent")
	v.SetDefault("llm.provider", "ollama")
	v.SetDefault("llm.max_tokens", 4096)
	v.SetDefault("memory.backend", "filesystem")
	v.SetDefault("memory.path", "./memory")
	v.SetDefault("keepalive.enabled", true)
	v.SetDefault("keepalive.ping_interval_secs", 60)
	v.SetDefault("keepalive.read_timeout_secs", 300)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("operator.http.enabled", false)
	v.SetDefault("operator.http.addr", "127.0.0.1:8080")
	v.SetDefault("operator.websocket.enabled", false)
	v.SetDefault("operator.websocket.addr", "127.0.0.1:8081")
	v.SetDefault("operator.grpc_skills.enabled", false)
	v.SetDefault("operator.grpc_skills.addr", "127.0.0.1:50051")
}

// expandSecrets applies ${ENV}-style expansion to fields that commonly
// carry secrets sourced from the environment rather than committed to
// the config file.
func expandSecrets(cfg *Config) {
	cfg.Component.Secret = os.ExpandEnv(cfg.Component.Secret)
	cfg.Client.Password = os.ExpandEnv(cfg.Client.Password)
	cfg.LLM.APIKey = os.ExpandEnv(cfg.LLM.APIKey)
}
