package cmd

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"llmbridge/internal/config"
	"llmbridge/internal/logging"
	"llmbridge/internal/provider"
	providerfactory "llmbridge/internal/provider/factory"
	"llmbridge/internal/router"
	"llmbridge/internal/transport"
)

type commandContext struct {
	configPath string
	logLevel   string
	jsonOutput bool

	// transport replaces the network in tests.
	transport transport.Func
	logOutput io.Writer

	configOnce sync.Once
	config     config.Config
	configErr  error
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

// ensureConfig loads the config file when --config is set and falls back to
// OPENAI_API_KEY / GEMINI_API_KEY otherwise.
func (c *commandContext) ensureConfig() (config.Config, error) {
	c.configOnce.Do(func() {
		path := strings.TrimSpace(c.configPath)
		if path == "" {
			c.config, c.configErr = config.FromEnv()
			return
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cfg config.Config) (*slog.Logger, error) {
	level := cfg.Log.Level
	if strings.TrimSpace(c.logLevel) != "" {
		level = c.logLevel
	}
	out := c.logOutput
	if out == nil {
		out = os.Stderr
	}
	return logging.New(logging.Options{Level: level, Format: cfg.Log.Format, Writer: out})
}

// newRouter loads configuration and registers every enabled provider.
func (c *commandContext) newRouter(ctx context.Context) (*router.Router, config.Config, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	logger, err := c.logger(cfg)
	if err != nil {
		return nil, config.Config{}, nil, err
	}

	registry := provider.NewRegistry()
	opts := providerfactory.Options{Transport: c.transport, Logger: logger}
	if err := providerfactory.RegisterConfiguredProviders(ctx, cfg, registry, opts); err != nil {
		return nil, config.Config{}, nil, err
	}
	return router.New(registry), cfg, logger, nil
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
