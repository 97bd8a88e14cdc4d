package main

import (
	"fmt"
	"runtime"

	"github.com/aapo-kossi/gym-eldorado/internal/affinity"
	"github.com/aapo-kossi/gym-eldorado/internal/runner"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// partitionReport describes how numEnvs environments are split among the workers.
func partitionReport(numEnvs, threads int) (string, error) {
	if numEnvs <= 0 {
		return "", errors.Errorf("invalid --num_envs=%d", numEnvs)
	}
	if threads == 0 {
		threads = min(runtime.GOMAXPROCS(0), numEnvs)
	}
	partitions, err := runner.Partitions(numEnvs, threads)
	if err != nil {
		return "", err
	}
	report := fmt.Sprintf("%d environments, %d workers (GOMAXPROCS=%d, pinning supported=%v):\n",
		numEnvs, threads, runtime.GOMAXPROCS(0), affinity.Supported())
	for workerIdx, p := range partitions {
		report += fmt.Sprintf("  worker %d: %s, %d environments\n", workerIdx, p, p.Len())
	}
	return report, nil
}

func newCheckCmd() *cobra.Command {
	var numEnvs, threads int
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Show how environments are partitioned among the runner workers.",
		RunE: func(_ *cobra.Command, _ []string) error {
			report, err := partitionReport(numEnvs, threads)
			if err != nil {
				return err
			}
			fmt.Print(report)
			return nil
		},
	}
	cmd.Flags().IntVar(&numEnvs, "num_envs", 64, "Number of environments.")
	cmd.Flags().IntVar(&threads, "threads", 0, "Number of workers. 0 uses GOMAXPROCS, capped to --num_envs.")
	return cmd
}
