// Package spinning provides a spinning symbol, followed by a status line, to display while a
// long benchmark or episode is running. It also handles interrupts gracefully.
package spinning

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"k8s.io/klog/v2"
)

var (
	ThemeAscii = []rune(`|/-\`)
	ThemeMoon  = []rune("🌑🌒🌓🌔🌕🌖🌗🌘")

	// Theme defaults to ThemeAscii, but it can be set to anything else before calling New.
	Theme = ThemeAscii

	// Period between updates of the spinner.
	Period = 500 * time.Millisecond
)

// Spinning displays a spinner and a status line until Done is called.
type Spinning struct {
	wg     sync.WaitGroup
	cancel func()
}

// SafeInterrupt will capture SigInt (Ctrl+C) and SigTerm and call the provided onInterrupt.
// If the program hasn't exited after gracePeriod, it will call Reset to reset the terminal
// and exit.
func SafeInterrupt(onInterrupt func(), gracePeriod time.Duration) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigChan
		fmt.Println()
		klog.Errorf("Got interrupted (signal %q), shutting down... (%s)", s, gracePeriod)
		if onInterrupt != nil {
			go onInterrupt()
		}
		time.Sleep(gracePeriod)
		Reset(os.Stdout)
		klog.Fatalf("Graceful shutting down %s period expired, exiting.", gracePeriod)
	}()
}

// Reset terminal: make cursor visible, restore default terminal colors.
func Reset(w io.Writer) {
	_, _ = fmt.Fprint(w, "\033[?25h\033[39;49;0m\n")
}

// New starts a spinner on a separate goroutine, writing to w. If status is not nil, its
// result is displayed after the spinner, and refreshed at every update.
// It stops when the context is cancelled or Spinning.Done is called.
func New(ctx context.Context, w io.Writer, status func() string) *Spinning {
	s := &Spinning{}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(Period)
		defer ticker.Stop()
		// Hide the cursor while spinning, and on exit restore it and clear the status line.
		_, _ = fmt.Fprint(w, "\033[?25l")
		defer fmt.Fprint(w, "\r\033[0K\033[?25h")
		for idx := 0; ; idx = (idx + 1) % len(Theme) {
			line := string(Theme[idx])
			if status != nil {
				line += " " + strings.TrimSpace(status())
			}
			_, _ = fmt.Fprintf(w, "\r%s\033[0K", line)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

// Done stops the spinner and waits for it to clean up the line.
func (s *Spinning) Done() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
}
