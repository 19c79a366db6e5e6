package rpcclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
)

// DefaultPollInterval is how often the node is polled while waiting.
const DefaultPollInterval = time.Second

// ErrWaitTimeout is returned when a wait exceeds its timeout.
var ErrWaitTimeout = errors.New("timed out waiting")

// PollConfig controls a polling loop.
type PollConfig struct {
	// Ticker paces the polls. A fresh ticker.New(DefaultPollInterval) is
	// used when nil. The loop stops the ticker when it returns.
	Ticker ticker.Ticker

	// Clock measures the timeout. Defaults to the wall clock.
	Clock clock.Clock

	// Timeout bounds the whole wait. Zero waits until the context is
	// done.
	Timeout time.Duration
}

// Poll calls check once immediately and then on every tick until it
// reports done, returns an error, the timeout elapses or ctx is done.
func Poll(ctx context.Context, cfg *PollConfig,
	check func() (bool, error)) error {

	if cfg == nil {
		cfg = &PollConfig{}
	}

	t := cfg.Ticker
	if t == nil {
		t = ticker.New(DefaultPollInterval)
	}
	t.Resume()
	defer t.Stop()

	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	var timeout <-chan time.Time
	if cfg.Timeout > 0 {
		timeout = clk.TickAfter(cfg.Timeout)
	}

	for {
		done, err := check()
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-t.Ticks():
		case <-timeout:
			return fmt.Errorf("%w after %v", ErrWaitTimeout,
				cfg.Timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// WaitForConfirmation polls get_transaction until the transaction is
// committed. A rejected transaction returns ErrTxRejected with the node's
// reason.
func (c *Client) WaitForConfirmation(ctx context.Context, hash ckbhash.Hash,
	cfg *PollConfig) error {

	start := time.Now()
	lastStatus := TxStatus("")

	err := Poll(ctx, cfg, func() (bool, error) {
		result, err := c.GetTransaction(ctx, hash)
		switch {
		case IsNotFound(err):
			return false, nil
		case err != nil:
			return false, err
		}

		status := result.TxStatus.Status
		if status != lastStatus {
			log.Debugf("Transaction %v is %s", hash, status)
			lastStatus = status
		}

		switch status {
		case TxStatusCommitted:
			return true, nil

		case TxStatusRejected:
			reason := "unknown reason"
			if result.TxStatus.Reason != nil {
				reason = *result.TxStatus.Reason
			}
			return false, fmt.Errorf("%w: %v: %s", ErrTxRejected,
				hash, reason)
		}

		return false, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for %v: %w", hash, err)
	}

	log.Infof("Transaction %v committed after %v", hash,
		time.Since(start).Round(time.Millisecond))

	return nil
}
