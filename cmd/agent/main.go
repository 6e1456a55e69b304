package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fluux-agent/gateway/internal/agent"
	"github.com/fluux-agent/gateway/internal/config"
	"github.com/fluux-agent/gateway/internal/files"
	"github.com/fluux-agent/gateway/internal/infrastructure/logger"
	"github.com/fluux-agent/gateway/internal/interfaces/http"
	"github.com/fluux-agent/gateway/internal/interfaces/wsadmin"
	"github.com/fluux-agent/gateway/internal/llm"
	"github.com/fluux-agent/gateway/internal/memory"
	"github.com/fluux-agent/gateway/internal/skill"
	"github.com/fluux-agent/gateway/internal/skill/builtin"
	"github.com/fluux-agent/gateway/internal/skill/remote"
	"github.com/fluux-agent/gateway/internal/supervisor"
	"github.com/fluux-agent/gateway/internal/telemetry"
	"github.com/fluux-agent/gateway/internal/xmpp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	// Registers themselves with internal/llm's factory registry on import.
	_ "github.com/fluux-agent/gateway/internal/llm/anthropic"
	_ "github.com/fluux-agent/gateway/internal/llm/ollama"
)

const (
	appName    = "fluux-agent"
	appVersion = "0.1.0"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:   appName,
		Short: "An XMPP-connected conversational agent backed by an LLM",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", appName, appVersion)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Run the agent daemon (default when no subcommand is given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(configPath)
		},
	})

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or validate the agent's configuration",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Load the config file and check it for semantic errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigValidate(configPath)
		},
	})
	root.AddCommand(configCmd)

	var gcMaxAge time.Duration
	memoryCmd := &cobra.Command{
		Use:   "memory",
		Short: "Inspect or maintain the on-disk memory store",
	}
	gcCmd := &cobra.Command{
		Use:   "gc",
		Short: "Prune archived sessions older than --max-age",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMemoryGC(configPath, gcMaxAge)
		},
	}
	gcCmd.Flags().DurationVar(&gcMaxAge, "max-age", 30*24*time.Hour, "remove archived sessions older than this")
	memoryCmd.AddCommand(gcCmd)
	root.AddCommand(memoryCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runConfigValidate loads the config at path and reports any semantic
// errors Load's defaulting/unmarshal step can't catch on its own.
func runConfigValidate(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Printf("%s: config is valid (mode=%s)\n", configPath, cfg.Mode())
	return nil
}

// runMemoryGC loads the config, opens the memory store it points at, and
// prunes archived session files older than maxAge.
func runMemoryGC(configPath string, maxAge time.Duration) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	memStore, err := memory.New(cfg.Memory.Path, filepath.Join(cfg.Memory.Path, "knowledge_index.db"))
	if err != nil {
		return fmt.Errorf("init memory store: %w", err)
	}
	removed, err := memStore.GC(maxAge)
	if err != nil {
		return fmt.Errorf("gc memory store: %w", err)
	}
	fmt.Printf("removed %d archived session file(s) older than %s\n", removed, maxAge)
	return nil
}

func runAgent(configPath string) error {
	var cfg *config.Config
	var atomicLevel zap.AtomicLevel
	var log *zap.Logger

	reload := func(c *config.Config, err error) {
		if err != nil {
			if log != nil {
				log.Warn("config reload failed, keeping previous config", zap.Error(err))
			}
			return
		}
		level, parseErr := zapcore.ParseLevel(c.Log.Level)
		if parseErr != nil {
			level = zapcore.InfoLevel
		}
		atomicLevel.SetLevel(level)
		if log != nil {
			log.Info("config reloaded", zap.String("log_level", level.String()))
		}
	}

	cfg, err := config.Watch(configPath, reload)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, atomicLevel, err = logger.NewLoggerWithLevel(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: "stdout",
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	log.Info("starting agent", zap.String("version", appVersion), zap.String("mode", cfg.Mode()))

	provider, err := llm.New(llm.Config{
		Provider:            cfg.LLM.Provider,
		Model:               cfg.LLM.Model,
		APIKey:              cfg.LLM.APIKey,
		Host:                cfg.LLM.Host,
		MaxTokensPerRequest: cfg.LLM.MaxTokens,
	}, log)
	if err != nil {
		return fmt.Errorf("init llm provider: %w", err)
	}

	memStore, err := memory.New(cfg.Memory.Path, filepath.Join(cfg.Memory.Path, "knowledge_index.db"))
	if err != nil {
		return fmt.Errorf("init memory store: %w", err)
	}

	downloader := files.NewDownloader(4)

	registry := buildSkillRegistry(cfg, memStore, log)

	broadcaster := telemetry.NewBroadcaster(128)

	rt := agent.New(agent.Deps{
		Config:    cfg,
		Logger:    log,
		Provider:  provider,
		Skills:    registry,
		Memory:    memStore,
		Files:     downloader,
		Telemetry: broadcaster,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopOperators := startOperatorSurfaces(cfg, rt, broadcaster, log)
	defer stopOperators()

	connector := buildConnector(cfg, log)
	sup := supervisor.New(supervisor.Config{
		InitialDelay:    time.Second,
		MaxDelay:        2 * time.Minute,
		Multiplier:      2.0,
		StabilityWindow: 60 * time.Second,
	}, log)

	runErr := make(chan error, 1)
	go func() {
		runErr <- sup.Run(ctx, func() supervisor.Session {
			return rt.NewSupervisorSession(connector, cfg.Keepalive.ReadTimeout())
		})
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
		<-runErr
	case err := <-runErr:
		if err != nil {
			log.Error("supervisor exited", zap.Error(err))
			return err
		}
	}

	log.Info("agent stopped")
	return nil
}

func buildConnector(cfg *config.Config, log *zap.Logger) xmpp.Connector {
	if cfg.Mode() == "component" {
		return xmpp.NewComponent(xmpp.ComponentConfig{
			Host:            cfg.Server.Host,
			Port:            cfg.Server.Port,
			ComponentDomain: cfg.Component.Domain,
			ComponentSecret: cfg.Component.Secret,
		}, log)
	}
	return xmpp.NewClient(xmpp.ClientConfig{
		Host:        cfg.Server.Host,
		Port:        cfg.Server.Port,
		JID:         cfg.Client.Jid,
		Password:    cfg.Client.Password,
		Resource:    cfg.Client.Resource,
		TLSVerify:   cfg.Client.TLSVerify,
		AllowedJids: cfg.Agent.AllowedJids,
	}, log)
}

func buildSkillRegistry(cfg *config.Config, memStore *memory.Store, log *zap.Logger) *skill.Registry {
	registry := skill.NewRegistry()

	wanted := make(map[string]bool, len(cfg.Skills))
	for _, name := range cfg.Skills {
		wanted[name] = true
	}
	allowAll := len(wanted) == 0

	if allowAll || wanted["url_fetch"] {
		registry.Register(builtin.NewURLFetch())
	}
	if allowAll || wanted["web_search"] {
		registry.Register(builtin.NewWebSearch(nil))
	}
	if allowAll || wanted["save_memory"] {
		registry.Register(builtin.NewSaveMemory(memStore))
	}

	if cfg.Operator.GRPCSkills.Enabled {
		conn, err := remote.Dial(cfg.Operator.GRPCSkills.Addr)
		if err != nil {
			log.Warn("could not dial remote skill server", zap.Error(err))
		} else {
			for _, name := range cfg.Operator.GRPCSkills.Skills {
				registry.Register(remote.New(conn, name, fmt.Sprintf("Remote skill %q", name), map[string]interface{}{
					"type": "object",
				}))
			}
		}
	}

	return registry
}

func startOperatorSurfaces(cfg *config.Config, rt *agent.Runtime, broadcaster *telemetry.Broadcaster, log *zap.Logger) func() {
	var stoppers []func()

	if cfg.Operator.HTTP.Enabled {
		srv := http.NewServer(cfg.Operator.HTTP.Addr, rt, broadcaster, log)
		srv.Start()
		stoppers = append(stoppers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(ctx)
		})
	}

	if cfg.Operator.WebSocket.Enabled {
		srv := wsadmin.NewServer(cfg.Operator.WebSocket.Addr, broadcaster, log)
		srv.Start()
		stoppers = append(stoppers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Stop(ctx)
		})
	}

	return func() {
		for _, stop := range stoppers {
			stop()
		}
	}
}
