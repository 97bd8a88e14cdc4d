package main

import (
	"os"

	"github.com/aapo-kossi/gym-eldorado/internal/eldorado"
	"github.com/aapo-kossi/gym-eldorado/internal/runner"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
)

// configFlags holds the configuration strings shared by the subcommands.
type configFlags struct {
	env, runner string
}

// add the configuration flags to flags, with defaults taken from the environment variables.
func (c *configFlags) add(flags *pflag.FlagSet, withRunner bool) {
	flags.StringVar(&c.env, "env", os.Getenv(envConfigVar),
		"Environment configuration, e.g. \"seed=1,players=4,pieces=3,difficulty=easy,max_steps=100000\". "+
			"Defaults to $"+envConfigVar+".")
	if withRunner {
		flags.StringVar(&c.runner, "runner", os.Getenv(runnerConfigVar),
			"Runner configuration, e.g. \"threads=4,queue=256,pin,spins=1024,debug\". "+
				"Defaults to $"+runnerConfigVar+".")
	}
}

func (c *configFlags) envConfig() (eldorado.Config, error) {
	cfg, err := eldorado.ConfigFromString(c.env)
	return cfg, errors.WithMessagef(err, "invalid --env=%q", c.env)
}

func (c *configFlags) runnerConfig() (runner.Config, error) {
	cfg, err := runner.ConfigFromString(c.runner)
	return cfg, errors.WithMessagef(err, "invalid --runner=%q", c.runner)
}
