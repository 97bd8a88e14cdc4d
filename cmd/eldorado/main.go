// eldorado runs batches of El Dorado environments with the threaded runner.
//
// Subcommands:
//
//   - bench: measures the throughput of the sequential, async and sync modes.
//   - play: renders one environment played by the random sampler.
//   - check: shows how environments are partitioned among workers.
//
// Environment and runner configurations are given as strings like "players=2,difficulty=hard" and
// "threads=4,pin". Their defaults are read from ELDORADO_ENV_CONFIG and ELDORADO_RUNNER_CONFIG,
// which can be set in a .env file.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/aapo-kossi/gym-eldorado/internal/ui/spinning"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

const (
	envConfigVar    = "ELDORADO_ENV_CONFIG"
	runnerConfigVar = "ELDORADO_RUNNER_CONFIG"
)

// globalCtx is cancelled on interrupt (Ctrl+C).
var globalCtx = context.Background()

func main() {
	klog.InitFlags(nil)
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			klog.V(1).Infof("Loaded %q", envFile)
			break
		}
	}

	var cancel func()
	globalCtx, cancel = context.WithCancel(context.Background())
	spinning.SafeInterrupt(cancel, 3*time.Second)
	defer cancel()

	rootCmd := &cobra.Command{
		Use:          "eldorado",
		Short:        "Batched, multi-threaded El Dorado environments.",
		SilenceUsage: true,
	}
	// klog and profilers flags.
	rootCmd.PersistentFlags().AddGoFlagSet(flag.CommandLine)

	rootCmd.AddCommand(newBenchCmd(), newPlayCmd(), newCheckCmd())
	if err := rootCmd.ExecuteContext(globalCtx); err != nil {
		klog.Flush()
		cancel()
		os.Exit(1)
	}
	klog.Flush()
}
