package orchestrator

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/sideworks/side-runner/sandbox"
)

// Guard ties interruption signals to sandbox cleanup. The first signal
// cancels the batch context so the pipeline unwinds at its next stage
// boundary and the per-project finalizer tears the sandbox down; a second
// signal force-destroys the active sandbox and exits immediately. Finalize is
// the last line of defense: whatever sandbox is still current when the batch
// has settled gets destroyed there.
type Guard struct {
	logger      log.Logger
	sandboxes   sandbox.Manager
	keepSandbox bool

	cancel context.CancelFunc
	sigCh  chan os.Signal

	mu       sync.Mutex
	received os.Signal
}

// NewGuard ...
func NewGuard(logger log.Logger, sandboxes sandbox.Manager, keepSandbox bool) *Guard {
	return &Guard{
		logger:      logger,
		sandboxes:   sandboxes,
		keepSandbox: keepSandbox,
	}
}

// Watch installs the interruption handlers and returns the context the batch
// must run under.
func (g *Guard) Watch(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	g.cancel = cancel
	g.sigCh = make(chan os.Signal, 2)
	signal.Notify(g.sigCh, os.Interrupt, syscall.SIGTERM)
	go g.watch()
	return ctx
}

func (g *Guard) watch() {
	sig, ok := <-g.sigCh
	if !ok {
		return
	}
	g.mu.Lock()
	g.received = sig
	g.mu.Unlock()

	g.logger.Println()
	g.logger.Warnf("Received %s, cleaning up (repeat to force quit)", sig)
	g.cancel()

	if sig, ok = <-g.sigCh; !ok {
		return
	}
	g.teardown()
	os.Exit(signalStatus(sig))
}

// teardown removes the active sandbox. Failures are tolerated silently; the
// directory may already be gone.
func (g *Guard) teardown() {
	if g.keepSandbox {
		return
	}
	if pth := g.sandboxes.Current(); pth != "" {
		_ = g.sandboxes.Destroy(pth)
	}
}

// Finalize stops signal delivery, performs the guaranteed sandbox teardown
// and maps the batch outcome to the process exit status: 0 when every project
// succeeded, 1 when any failed, 128+signum when the run was interrupted.
func (g *Guard) Finalize(batchErr error) int {
	signal.Stop(g.sigCh)
	g.teardown()

	g.mu.Lock()
	sig := g.received
	g.mu.Unlock()

	if sig != nil {
		return signalStatus(sig)
	}
	if batchErr != nil {
		return 1
	}
	return 0
}

func signalStatus(sig os.Signal) int {
	if s, ok := sig.(syscall.Signal); ok {
		return 128 + int(s)
	}
	return 1
}
