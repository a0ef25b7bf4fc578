package main

import (
	"fmt"
	"log/slog"
	"os"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/spf13/cobra"

	"github.com/raciswarm/raciswarm"
	"github.com/raciswarm/raciswarm/archive"
	"github.com/raciswarm/raciswarm/config"
	"github.com/raciswarm/raciswarm/engine"
	"github.com/raciswarm/raciswarm/logging"
	"github.com/raciswarm/raciswarm/memory"
	"github.com/raciswarm/raciswarm/model"
	"github.com/raciswarm/raciswarm/model/anthropic"
	"github.com/raciswarm/raciswarm/model/openai"
)

var (
	settingsPath string
	swarmsPath   string
	verbose      bool
)

var rootCmd = &cobra.Command{
	Use:   "raciswarm",
	Short: "RACI agent swarm orchestrator",
	Long: `Raciswarm routes user requests to agent swarms organized by RACI roles
(Responsible, Accountable, Consulted, Informed) and drives the resulting
conversation: the Responsible agent frames the request, the Accountable
agent coordinates delegation, and control returns to the user when the
swarm produces its final reply.

Swarm topologies are declared in a YAML swarm file; runtime tuning (hop
limits, memory budget, archive path, model provider) comes from an
optional settings file and RACISWARM_* environment variables.`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "config", "c", "", "Path to settings file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&swarmsPath, "swarms", "s", "swarms.yaml", "Path to swarm definition file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(swarmsCmd)
	rootCmd.AddCommand(versionCmd)
}

// buildService assembles the orchestration service from the settings and
// swarm files referenced by the global flags.
func buildService() (*raciswarm.Service, *config.Settings, error) {
	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, nil, err
	}

	logger := buildLogger(settings)

	store := archive.Store(archive.NewInMemoryStore())
	if settings.Archive.Path != "" {
		s, err := archive.OpenSQLite(settings.Archive.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("opening archive: %w", err)
		}
		store = s
	}

	svc := raciswarm.New(func(o *raciswarm.Options) {
		o.Logger = logger
		o.Archive = store
		o.Memory = memory.NewManager(func(mo *memory.Options) {
			mo.Budget = settings.Memory.Budget
			mo.RecentWindow = settings.Memory.RecentWindow
			mo.Logger = logger
		})
		o.Engine = []func(eo *engine.Options){func(eo *engine.Options) {
			eo.HopLimit = settings.Engine.HopLimit
			eo.HopTimeout = settings.Engine.HopTimeout
			eo.RetryBackoff = settings.Engine.RetryBackoff
			eo.IdleTimeout = settings.Engine.IdleTimeout
		}}
	})

	file, err := config.Load(swarmsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading swarm file: %w", err)
	}
	if err := file.Apply(svc.Registry(), modelFactory(settings)); err != nil {
		return nil, nil, fmt.Errorf("applying swarm file: %w", err)
	}
	return svc, settings, nil
}

func buildLogger(settings *config.Settings) logging.Logger {
	level := slog.LevelInfo
	if verbose || settings.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	format := "text"
	if settings.Logging.JSON {
		format = "json"
	}
	return logging.NewSwarmLogger(&logging.Config{
		Level:  level,
		Format: format,
		Output: os.Stderr,
	})
}

// modelFactory returns the completion backend for model-backed agents.
func modelFactory(settings *config.Settings) config.ModelFactory {
	switch settings.Models.Provider {
	case "openai":
		return func(name string) model.Model {
			return openai.NewModel(func(o *openai.Options) {
				if name != "" {
					o.Model = name
				}
			})
		}
	case "anthropic":
		return func(name string) model.Model {
			return anthropic.NewModel(func(o *anthropic.Options) {
				if name != "" {
					o.Model = anthropicsdk.Model(name)
				}
				o.APIKey = settings.Models.APIKey
			})
		}
	default:
		return func(name string) model.Model {
			return model.NewMockModel(name)
		}
	}
}
