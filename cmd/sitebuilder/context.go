package main

import (
	"context"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	sitebuilder "github.com/tgdscott/DoneCast-sub013"
	"github.com/tgdscott/DoneCast-sub013/internal/di"
)

type globalFlags struct {
	config  string
	baseURL string
	token   string
}

type commandContext struct {
	flags *globalFlags
	opts  []di.Option

	configOnce sync.Once
	config     sitebuilder.Config
	configErr  error
}

func newCommandContext(flags *globalFlags, opts []di.Option) *commandContext {
	return &commandContext{flags: flags, opts: opts}
}

func (c *commandContext) ensureConfig() (sitebuilder.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := sitebuilder.LoadConfig(strings.TrimSpace(c.flags.config))
		if err != nil {
			c.configErr = err
			return
		}
		if base := strings.TrimSpace(c.flags.baseURL); base != "" {
			cfg.API.BaseURL = strings.TrimRight(base, "/")
		}
		if token := strings.TrimSpace(c.flags.token); token != "" {
			cfg.API.Token = token
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) newModule(mutate func(*sitebuilder.Config)) (*sitebuilder.Module, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return sitebuilder.New(cfg, c.opts...)
}

// withHandlers builds the site command handlers and prints every result as JSON.
func (c *commandContext) withHandlers(cmd *cobra.Command, fn func(*sitebuilder.CommandHandlers) error) error {
	module, err := c.newModule(nil)
	if err != nil {
		return err
	}
	defer module.Close()

	var writeErr error
	handlers, err := module.Commands(sitebuilder.CommandOptions{
		Observer: func(_ context.Context, _ string, result any) {
			writeErr = writeJSON(cmd, result)
		},
	})
	if err != nil {
		return err
	}
	defer handlers.Close()
	if err := fn(handlers); err != nil {
		return err
	}
	return writeErr
}
