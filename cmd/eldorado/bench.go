package main

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync/atomic"
	"time"

	"github.com/aapo-kossi/gym-eldorado/internal/eldorado"
	"github.com/aapo-kossi/gym-eldorado/internal/profilers"
	"github.com/aapo-kossi/gym-eldorado/internal/runner"
	"github.com/aapo-kossi/gym-eldorado/internal/sampler"
	"github.com/aapo-kossi/gym-eldorado/internal/ui/spinning"
	"github.com/aapo-kossi/gym-eldorado/internal/vecenv"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// Benchmark modes.
const (
	// modeSequential samples and steps the whole batch in the calling goroutine.
	modeSequential = "sequential"

	// modeAsync dispatches all samples and steps to the runner, and syncs only at the end.
	modeAsync = "async"

	// modeSync syncs the runner after every step.
	modeSync = "sync"
)

var benchModes = []string{modeSequential, modeAsync, modeSync}

// errSkipped is returned for combinations of parameters that don't make sense.
var errSkipped = errors.New("benchmark skipped")

type benchCase struct {
	NumEnvs, Threads int
	Mode             string
}

func (c benchCase) String() string {
	return fmt.Sprintf("n=%d/threads=%d/%s", c.NumEnvs, c.Threads, c.Mode)
}

type benchResult struct {
	benchCase
	Steps   int
	Elapsed time.Duration
}

// StepsPerSecond counts the steps of every environment.
func (r benchResult) StepsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Steps*r.NumEnvs) / r.Elapsed.Seconds()
}

// runBenchmark runs steps cycles of sample and step for the benchmark case. progress is
// incremented with the number of completed cycles, if not nil.
func runBenchmark(ctx context.Context, c benchCase, envCfg eldorado.Config, runnerCfg runner.Config,
	steps int, progress *atomic.Int64) (result benchResult, err error) {
	result.benchCase = c
	if !slices.Contains(benchModes, c.Mode) {
		return result, errors.Errorf("unknown benchmark mode %q, valid modes are %v", c.Mode, benchModes)
	}
	if c.Threads > c.NumEnvs || (c.Mode == modeSequential && c.Threads > 1) {
		return result, errSkipped
	}
	envs, err := vecenv.New(c.NumEnvs, envCfg)
	if err != nil {
		return result, err
	}
	samplers, err := sampler.New(c.NumEnvs, envCfg.Seed)
	if err != nil {
		return result, err
	}

	var sample, step, end func()
	if c.Mode == modeSequential {
		sample = func() { samplers.Sample(envs.SelectedActionMasks()) }
		step = func() { envs.Step(samplers.Actions()) }
		end = func() {}
	} else {
		runnerCfg.Threads = c.Threads
		r, err := runner.New(envs, samplers, runnerCfg)
		if err != nil {
			return result, err
		}
		defer r.Close()
		sample, end = r.Sample, r.Sync
		step = r.Step
		if c.Mode == modeSync {
			step = r.StepSync
		}
	}

	const checkEvery = 64
	start := time.Now()
	for result.Steps < steps {
		sample()
		step()
		result.Steps++
		if result.Steps%checkEvery == 0 {
			if progress != nil {
				progress.Add(checkEvery)
			}
			if ctx.Err() != nil {
				break
			}
		}
	}
	end()
	result.Elapsed = time.Since(start)
	if ctx.Err() != nil {
		return result, errors.Wrapf(ctx.Err(), "benchmark %s interrupted", c)
	}
	return result, nil
}

// benchCases returns all combinations of the parameters that make sense.
func benchCases(numEnvs, threads []int, modes []string) (cases []benchCase) {
	for _, mode := range modes {
		for _, n := range numEnvs {
			for _, t := range threads {
				if t > n || (mode == modeSequential && t > 1) {
					continue
				}
				cases = append(cases, benchCase{NumEnvs: n, Threads: t, Mode: mode})
			}
		}
	}
	return
}

func resultsTable(runID string, results []benchResult) string {
	header := lipgloss.NewStyle().Bold(true).Align(lipgloss.Center)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return lipgloss.NewStyle().Align(lipgloss.Right).Padding(0, 1)
		}).
		Headers("mode", "envs", "threads", "steps", "elapsed", "env steps/s")
	for _, r := range results {
		t.Row(r.Mode, fmt.Sprint(r.NumEnvs), fmt.Sprint(r.Threads), fmt.Sprint(r.Steps),
			r.Elapsed.Round(time.Millisecond).String(), fmt.Sprintf("%.0f", r.StepsPerSecond()))
	}
	return fmt.Sprintf("Benchmark run %s\n%s\n", runID, t.Render())
}

func newBenchCmd() *cobra.Command {
	var (
		cfgFlags configFlags
		numEnvs  []int
		threads  []int
		modes    []string
		steps    int
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure the throughput of the runner modes over batch sizes and thread counts.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			envCfg, err := cfgFlags.envConfig()
			if err != nil {
				return err
			}
			runnerCfg, err := cfgFlags.runnerConfig()
			if err != nil {
				return err
			}
			if steps <= 0 {
				return errors.Errorf("invalid --steps=%d", steps)
			}
			ctx := cmd.Context()
			if err := profilers.Setup(ctx); err != nil {
				return err
			}
			defer profilers.OnQuit()

			runID := uuid.NewString()
			cases := benchCases(numEnvs, threads, modes)
			klog.V(1).Infof("Benchmark run %s: %d cases, env config %+v, runner config %+v",
				runID, len(cases), envCfg, runnerCfg)
			var results []benchResult
			for _, c := range cases {
				var progress atomic.Int64
				spinner := spinning.New(ctx, os.Stderr, func() string {
					return fmt.Sprintf("%s: %d/%d steps", c, progress.Load(), steps)
				})
				result, err := runBenchmark(ctx, c, envCfg, runnerCfg, steps, &progress)
				spinner.Done()
				if errors.Is(err, errSkipped) {
					continue
				}
				if err != nil {
					return err
				}
				klog.V(1).Infof("%s: %.0f env steps/s", c, result.StepsPerSecond())
				results = append(results, result)
			}
			fmt.Print(resultsTable(runID, results))
			return nil
		},
	}
	flags := cmd.Flags()
	cfgFlags.add(flags, true)
	flags.IntSliceVar(&numEnvs, "num_envs", []int{1, 4, 16, 64, 256}, "Batch sizes to benchmark.")
	flags.IntSliceVar(&threads, "threads", []int{1, 2, 4}, "Number of worker threads to benchmark.")
	flags.StringSliceVar(&modes, "modes", benchModes, "Modes to benchmark: sequential, async or sync.")
	flags.IntVar(&steps, "steps", 10_000, "Sample and step cycles per benchmark.")
	return cmd
}
