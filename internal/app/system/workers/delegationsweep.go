// internal/app/system/workers/delegationsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/expensehub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Sweeper expires delegations whose expiring date has passed.
type Sweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// DelegationSweep is a background worker that deactivates expired temporary
// approvers and notifies them once.
type DelegationSweep struct {
	sweeper  Sweeper
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewDelegationSweep creates a new sweep worker that runs every interval.
func NewDelegationSweep(sweeper Sweeper, logger *zap.Logger, interval time.Duration) *DelegationSweep {
	return &DelegationSweep{
		sweeper:  sweeper,
		log:      logger,
		interval: interval,
		timeout:  timeouts.Batch(),
		stopCh:   make(chan struct{}),
	}
}

// Start runs one sweep immediately and then begins the background loop.
func (w *DelegationSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("delegation sweep worker started", zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *DelegationSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("delegation sweep worker stopped")
}

func (w *DelegationSweep) run() {
	defer w.wg.Done()

	w.sweep()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *DelegationSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	count, err := w.sweeper.SweepExpired(ctx)
	if err != nil {
		w.log.Error("delegation sweep failed", zap.Error(err))
		return
	}

	if count > 0 {
		w.log.Info("expired delegations", zap.Int("count", count))
	}
}
