package main

import (
	"context"
	"strings"
	"sync"

	"clipforge/internal/apiclient"
	"clipforge/internal/config"
	"clipforge/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// daemonClient returns an API client when a running daemon answers on the
// configured bind address, nil otherwise.
func (c *commandContext) daemonClient(ctx context.Context) *apiclient.Client {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil
	}
	client := apiclient.New(cfg.API.Bind)
	if !client.Ping(ctx) {
		return nil
	}
	return client
}

// withStore hands commands a daemon client when one is reachable and a
// direct store handle otherwise. Commands use the client path so mutations
// go through the daemon that owns the database.
func (c *commandContext) withStore(fn func(client *apiclient.Client, store *queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	client := c.daemonClient(context.Background())
	if client != nil {
		return fn(client, nil)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(nil, store)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
