package chainstate

import (
	"context"
	"fmt"
	"time"

	"github.com/bartossh/MetroWallet/logger"
)

const defaultInterval = time.Second * 10

// StatusReader reads the blockchain status from the node.
type StatusReader interface {
	BlockchainStatus(ctx context.Context) (Block, error)
}

// Tracker keeps the Reference up to date by polling the node.
type Tracker struct {
	ref      *Reference
	reader   StatusReader
	log      logger.Logger
	interval time.Duration
}

// NewTracker creates a new Tracker. Interval of zero uses the default of ten seconds.
func NewTracker(ref *Reference, reader StatusReader, log logger.Logger, interval time.Duration) *Tracker {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Tracker{ref: ref, reader: reader, log: log, interval: interval}
}

// Update reads the status once and stores it in the Reference.
// Blocks lower than the already known height are ignored.
func (t *Tracker) Update(ctx context.Context) error {
	b, err := t.reader.BlockchainStatus(ctx)
	if err != nil {
		return err
	}
	if current, ok := t.ref.LastBlock(); ok && current.Height > b.Height {
		return nil
	}
	t.ref.Set(b)
	return nil
}

// Run polls the node until the context is canceled.
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	if err := t.Update(ctx); err != nil {
		t.log.Warn(fmt.Sprintf("chain state tracker initial update failed: %s", err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Update(ctx); err != nil {
				t.log.Warn(fmt.Sprintf("chain state tracker update failed: %s", err))
			}
		}
	}
}
