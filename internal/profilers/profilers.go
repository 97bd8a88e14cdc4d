// Package profilers sets up profiling of the runner benchmarks.
//
// If linked, it installs the profiler flags in the standard flag set.
package profilers

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"

	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagProfiler   = flag.Int("prof", -1, "If set, runs the pprof HTTP server at the given port.")
	flagCPUProfile = flag.String("cpu_profile", "", "Write cpu profile to `file`.")
	flagMemProfile = flag.String("mem_profile", "", "Write heap profile to `file` on quit.")
	profilerAddr   string

	// globalCtx is set on the call to Setup.
	globalCtx context.Context
)

// Setup starts the HTTP (flag -prof) and CPU profilers (flag -cpu_profile), if they were
// configured. It should be followed by a deferred call to OnQuit.
func Setup(ctx context.Context) error {
	globalCtx = ctx
	if *flagProfiler >= 0 {
		setupHTTPProfiler()
	}
	if *flagCPUProfile != "" {
		if err := startCPUProfile(*flagCPUProfile); err != nil {
			return err
		}
	}
	return nil
}

// OnQuit stops the CPU profile and writes the heap profile, if configured. With the HTTP
// profiler, it keeps the program alive until the context given to Setup is done.
func OnQuit() {
	if *flagCPUProfile != "" {
		pprof.StopCPUProfile()
	}
	if *flagMemProfile != "" {
		if err := writeHeapProfile(*flagMemProfile); err != nil {
			klog.Errorf("Heap profile: %+v", err)
		}
	}
	if *flagProfiler >= 0 {
		httpProfilerOnQuit()
	}
}

// startCPUProfile creates the file at path and starts the CPU profiling there.
func startCPUProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create CPU profile")
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		return errors.Wrapf(err, "could not start CPU profile in %q", path)
	}
	klog.V(1).Infof("CPU profile written to %q", path)
	return nil
}

// writeHeapProfile after a garbage collection, so it reflects the live memory.
func writeHeapProfile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "could not create heap profile")
	}
	defer func() { _ = f.Close() }()
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		return errors.Wrapf(err, "could not write heap profile to %q", path)
	}
	return nil
}

func setupHTTPProfiler() {
	profilerAddr = fmt.Sprintf("localhost:%d", *flagProfiler)
	fmt.Printf("Starting profiler on %s/debug/pprof\n", profilerAddr)
	fmt.Printf("- You can access it with: $ go tool pprof %s/debug/pprof/heap\n", profilerAddr)
	fmt.Printf("- Program will be kept alive on end, you will have to interrupt it (Ctrl+C) to exit\n")
	go func() {
		klog.Fatal(http.ListenAndServe(profilerAddr, nil))
	}()
}

// httpProfilerOnQuit keeps the program alive until interrupted, so the profile can be read.
func httpProfilerOnQuit() {
	// Don't freeze on panic.
	if err := recover(); err != nil {
		panic(err)
	}
	if globalCtx.Err() != nil {
		// Already interrupted.
		return
	}
	for range 10 {
		runtime.GC()
	}
	fmt.Printf("- Program finished: kept alive with profiler opened at %s/debug/pprof\n", profilerAddr)
	fmt.Printf("- Interrupt (Ctrl+C) to exit\n")
	<-globalCtx.Done()
	fmt.Printf("... exiting ...\n")
}
