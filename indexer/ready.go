package indexer

import (
	"context"
	"fmt"

	"github.com/ckb-labs/ckblab/rpcclient"
)

// WaitReady blocks until the indexer has caught up with the node's tip, so
// that cells created by a just confirmed transaction can be queried.
func WaitReady(ctx context.Context, backend Backend,
	cfg *rpcclient.PollConfig) error {

	err := rpcclient.Poll(ctx, cfg, func() (bool, error) {
		nodeTip, err := backend.GetTipBlockNumber(ctx)
		if err != nil {
			return false, err
		}

		indexerTip, err := backend.GetIndexerTip(ctx)
		switch {
		// The indexer has not processed any block yet.
		case rpcclient.IsNotFound(err):
			return false, nil

		case err != nil:
			return false, err
		}

		log.Tracef("Indexer at %d, node at %d",
			indexerTip.BlockNumber, nodeTip)

		return uint64(indexerTip.BlockNumber) >= nodeTip, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for indexer: %w", err)
	}

	return nil
}
