package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"permanentes/internal/backend"
	"permanentes/internal/config"
	"permanentes/internal/logging"
)

type commandContext struct {
	configFlag   *string
	operatorFlag *string
	jsonFlag     *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag, operatorFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		operatorFlag: operatorFlag,
		jsonFlag:     jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// operator names who is acting, for listing ownership.
func (c *commandContext) operator() string {
	if c.operatorFlag != nil {
		if name := strings.TrimSpace(*c.operatorFlag); name != "" {
			return name
		}
	}
	if name := strings.TrimSpace(os.Getenv("USER")); name != "" {
		return name
	}
	return "anonymous"
}

// logger writes to the command's stderr so stdout stays parseable.
func (c *commandContext) logger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	level := "info"
	format := "console"
	if cfg != nil {
		level = cfg.Logging.Level
		format = cfg.Logging.Format
	}
	return logging.New(logging.Options{
		Level:  level,
		Format: format,
		Writer: cmd.ErrOrStderr(),
	})
}

// withServices opens the registry for the duration of fn.
func (c *commandContext) withServices(cmd *cobra.Command, fn func(context.Context, *backend.Services) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.logger(cmd, cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := backend.OpenServices(ctx, cfg, nil, logger)
	if err != nil {
		return err
	}
	defer svc.Registry.Close()
	return fn(ctx, svc)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func parseID(value, what string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", what, value)
	}
	return id, nil
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
