package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"crazypanel/internal/config"
	"crazypanel/internal/logging"
	"crazypanel/internal/notifications"
	"crazypanel/internal/poster"
	"crazypanel/internal/services"
	"crazypanel/internal/workflow"
)

type commandContext struct {
	configFlag *string
	apiURLFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configPath string
	configSeen bool
	configErr  error

	loggerOnce sync.Once
	log        *slog.Logger
}

func newCommandContext(configFlag, apiURLFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiURLFlag: apiURLFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "load", "", err)
			return
		}
		if override := strings.TrimSpace(c.apiURLValue()); override != "" {
			cfg.API.BaseURL = strings.TrimRight(override, "/")
			if err := cfg.Validate(); err != nil {
				c.configErr = services.Wrap(services.ErrConfiguration, "config", "--api-url", "", err)
				return
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = services.Wrap(services.ErrConfiguration, "config", "ensure directories", "", err)
			return
		}
		c.config, c.configPath, c.configSeen = cfg, path, exists
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) apiURLValue() string {
	if c.apiURLFlag == nil {
		return ""
	}
	return *c.apiURLFlag
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// logger builds the command logger once; the optional log file stays open
// for the life of the process.
func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		c.log = logging.NewNop()
		cfg, err := c.ensureConfig()
		if err != nil {
			return
		}
		if logger, err := logging.NewFromConfigTo(cfg, cmd.ErrOrStderr()); err == nil {
			c.log = logger
		}
	})
	return c.log
}

// coordinator wires the backend client, notifier, and stages from config.
func (c *commandContext) coordinator(cmd *cobra.Command, opts ...workflow.Option) (*workflow.Coordinator, *slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := c.logger(cmd)
	client := poster.New(cfg.API.BaseURL, poster.WithUserAgent(cfg.API.UserAgent))
	base := []workflow.Option{
		workflow.WithLogger(logger),
		workflow.WithNotifier(notifications.NewService(cfg)),
		workflow.WithDefaultAccount(cfg.Accounts.Default),
	}
	return workflow.New(client, append(base, opts...)...), logger, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
