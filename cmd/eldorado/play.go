package main

import (
	"context"
	"os"
	"time"

	"github.com/aapo-kossi/gym-eldorado/internal/batch"
	"github.com/aapo-kossi/gym-eldorado/internal/eldorado"
	"github.com/aapo-kossi/gym-eldorado/internal/sampler"
	"github.com/aapo-kossi/gym-eldorado/internal/ui/cli"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"k8s.io/klog/v2"
)

// playEpisodes plays numEpisodes with actions chosen by the random sampler, rendering every step
// with ui. It returns the rewards of the last step of each episode.
func playEpisodes(ctx context.Context, cfg eldorado.Config, ui *cli.UI, numEpisodes int,
	delay time.Duration) (returns []batch.Rewards, err error) {
	cfg.Render = true
	env, err := eldorado.New(cfg, eldorado.Slot{})
	if err != nil {
		return nil, err
	}
	env.SetRenderer(ui)
	samplers, err := sampler.New(1, cfg.Seed)
	if err != nil {
		return nil, err
	}
	slot := env.Slot()
	ui.Render(env)
	for len(returns) < numEpisodes {
		if ctx.Err() != nil {
			return returns, errors.Wrapf(ctx.Err(), "play interrupted")
		}
		samplers.SampleSingle(slot.Mask, 0)
		env.Step(samplers.Actions()[0])
		if *slot.Done {
			returns = append(returns, *slot.Rewards)
			klog.V(1).Infof("Episode %d finished after %d steps: rewards %v", len(returns), env.Steps(),
				*slot.Rewards)
		}
		if delay > 0 {
			time.Sleep(delay)
		}
	}
	return returns, nil
}

func newPlayCmd() *cobra.Command {
	var (
		cfgFlags    configFlags
		numEpisodes int
		delay       time.Duration
		color       bool
		clearScreen bool
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Render an environment played by the random sampler.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := cfgFlags.envConfig()
			if err != nil {
				return err
			}
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				color, clearScreen = false, false
			}
			_, err = playEpisodes(cmd.Context(), cfg, cli.New(os.Stdout, color, clearScreen), numEpisodes, delay)
			return err
		},
	}
	flags := cmd.Flags()
	cfgFlags.add(flags, false)
	flags.IntVar(&numEpisodes, "episodes", 1, "Number of episodes to play.")
	flags.DurationVar(&delay, "delay", 200*time.Millisecond, "Pause after each step.")
	flags.BoolVar(&color, "color", true, "Colored output, if writing to a terminal.")
	flags.BoolVar(&clearScreen, "clear", true, "Clear the screen before each step, if writing to a terminal.")
	return cmd
}
