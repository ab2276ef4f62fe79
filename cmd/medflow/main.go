// Command medflow hosts the agent fleet and drives the analysis pipelines.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/medflow/agent"
	"github.com/hupe1980/medflow/config"
	"github.com/hupe1980/medflow/logging"
	"github.com/hupe1980/medflow/model"
	"github.com/hupe1980/medflow/model/auto"
	"github.com/hupe1980/medflow/pipeline"
	"github.com/hupe1980/medflow/registry"
)

// Registry names for the orchestrator agents.
const (
	nameSimpleOrchestrator = "simple_orchestrator"
	nameCancerPipeline     = "cancer_pipeline"
)

var cfgPath string

func main() {
	root := &cobra.Command{
		Use:           "medflow",
		Short:         "Multi-agent medical document analysis over the A2A protocol",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default medflow.yaml in . or ./config)")
	root.AddCommand(serveCmd(), upCmd(), runCmd(), cardCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

func newLogger(cfg *config.Config) logging.Logger {
	level := logging.LogLevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = logging.LogLevelDebug
	case "warn":
		level = logging.LogLevelWarn
	case "error":
		level = logging.LogLevelError
	}
	return logging.NewSlogLogger(level, cfg.Log.Format, false)
}

// loadRegistry prefers the registry file and falls back to the port map from
// the configuration, so commands work before `medflow up` has written one.
func loadRegistry(cfg *config.Config) *registry.Registry {
	if reg, err := registry.Load(cfg.RegistryPath); err == nil {
		return reg
	}
	return cfg.Registry()
}

func newCaller(cfg *config.Config, log logging.Logger) *pipeline.AgentCaller {
	return pipeline.NewAgentCaller(loadRegistry(cfg), func(o *pipeline.AgentCallerOptions) {
		o.Timeout = cfg.Client.Timeout
		o.Logger = log
	})
}

// newHandler builds the executor for a named agent. Deterministic agents
// need no model; orchestrators need a caller; everything else is an LLM
// agent behind the auto-detected provider.
func newHandler(cfg *config.Config, name string, log logging.Logger) (agent.Handler, error) {
	switch name {
	case agent.NameGrep:
		return agent.NewGrep(), nil
	case agent.NameChunk:
		return agent.NewChunk(), nil
	case nameSimpleOrchestrator:
		return pipeline.NewSimpleHandler(pipeline.NewSimple(newCaller(cfg, log), func(o *pipeline.SimpleOptions) {
			o.SummaryStyle = cfg.Pipeline.SummaryStyle
			o.Logger = log
		})), nil
	case nameCancerPipeline:
		return pipeline.NewCancerHandler(pipeline.NewCancer(newCaller(cfg, log), func(o *pipeline.CancerOptions) {
			o.CheckerAttempts = cfg.Pipeline.CheckerAttempts
			o.MaxChunks = cfg.Pipeline.MaxChunks
			o.Logger = log
		})), nil
	default:
		m, err := newModel(cfg)
		if err != nil {
			return nil, err
		}
		return agent.Lookup(m, name)
	}
}

func newModel(cfg *config.Config) (model.Model, error) {
	if cfg.LLM.Provider != "" {
		os.Setenv(auto.EnvProvider, cfg.LLM.Provider)
	}
	if cfg.LLM.Model != "" {
		os.Setenv(auto.EnvModel, cfg.LLM.Model)
	}
	return auto.New()
}
