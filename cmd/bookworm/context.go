package main

import (
	"fmt"
	"sync"

	"github.com/samber/do/v2"

	"github.com/ablbsk/bookworm-api/internal/config"
	"github.com/ablbsk/bookworm-api/internal/di"
)

type globalFlags struct {
	config   string
	envFile  string
	dataPath string
	logLevel string
}

// args renders the global flags in the form config.Load parses.
func (f *globalFlags) args() []string {
	var args []string
	add := func(name, value string) {
		if value != "" {
			args = append(args, "--"+name, value)
		}
	}
	add("config", f.config)
	add("env-file", f.envFile)
	add("data-path", f.dataPath)
	add("log-level", f.logLevel)
	return args
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		c.config, c.configErr = config.Load(c.flags.args())
	})
	return c.config, c.configErr
}

// withContainer builds a DI container for one command and shuts it down
// afterwards, releasing the data directory lock.
func (c *commandContext) withContainer(fn func(do.Injector) error) (err error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}

	injector := di.NewContainer(cfg)
	defer func() {
		if shutdownErr := injector.Shutdown(); shutdownErr != nil && err == nil {
			err = fmt.Errorf("shutdown: %v", shutdownErr)
		}
	}()

	return fn(injector)
}
