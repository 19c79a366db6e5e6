package rpcclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// OutputsValidator selects the node side checks of send_transaction.
type OutputsValidator string

const (
	// ValidatorPassthrough skips the well known script checks, which is
	// needed for custom scripts such as the lab locks.
	ValidatorPassthrough OutputsValidator = "passthrough"

	// ValidatorWellKnownScriptsOnly rejects outputs with unknown scripts.
	ValidatorWellKnownScriptsOnly OutputsValidator = "well_known_scripts_only"
)

// SendTransaction submits a transaction to the pool and returns its hash.
func (c *Client) SendTransaction(ctx context.Context,
	tx *ckbwire.Transaction) (ckbhash.Hash, error) {

	var hash ckbhash.Hash
	err := c.Call(
		ctx, "send_transaction", &hash, tx, ValidatorPassthrough,
	)
	if err != nil {
		return ckbhash.Hash{}, err
	}

	log.Debugf("Sent transaction %v", hash)

	return hash, nil
}

// GetTransaction returns a transaction with its status.
func (c *Client) GetTransaction(ctx context.Context,
	hash ckbhash.Hash) (*TransactionWithStatus, error) {

	var result TransactionWithStatus
	if err := c.Call(ctx, "get_transaction", &result, hash); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetTipBlockNumber returns the number of the node's tip block.
func (c *Client) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	var tip ckbutil.HexUint64
	if err := c.Call(ctx, "get_tip_block_number", &tip); err != nil {
		return 0, err
	}

	return uint64(tip), nil
}

// blockTxHashes is the part of a block GetBlockTxHashes decodes.
type blockTxHashes struct {
	Transactions []struct {
		Hash ckbhash.Hash `json:"hash"`
	} `json:"transactions"`
}

// GetBlockTxHashes returns the hashes of the transactions of a block, the
// cellbase first.
func (c *Client) GetBlockTxHashes(ctx context.Context,
	number uint64) ([]ckbhash.Hash, error) {

	var block blockTxHashes
	err := c.Call(
		ctx, "get_block_by_number", &block, ckbutil.HexUint64(number),
	)
	if err != nil {
		return nil, err
	}

	hashes := make([]ckbhash.Hash, len(block.Transactions))
	for i, tx := range block.Transactions {
		hashes[i] = tx.Hash
	}

	return hashes, nil
}

// GetIndexerTip returns the last block processed by the indexer.
func (c *Client) GetIndexerTip(ctx context.Context) (*IndexerTip, error) {
	var tip IndexerTip
	if err := c.Call(ctx, "get_indexer_tip", &tip); err != nil {
		return nil, err
	}

	return &tip, nil
}

// GetLiveCell returns a live cell. ErrNotFound is returned when the cell
// does not exist or was spent.
func (c *Client) GetLiveCell(ctx context.Context, outPoint ckbwire.OutPoint,
	withData bool) (*CellInfo, error) {

	var result LiveCellResult
	err := c.Call(ctx, "get_live_cell", &result, outPoint, withData)
	if err != nil {
		return nil, err
	}
	if result.Status != "live" || result.Cell == nil {
		return nil, fmt.Errorf("cell %v is %s: %w", outPoint,
			result.Status, ErrNotFound)
	}

	return result.Cell, nil
}

// GetCells returns one page of cells matching the search key. An empty
// cursor starts from the beginning.
func (c *Client) GetCells(ctx context.Context, searchKey *SearchKey,
	order Order, limit uint32, cursor []byte) (*CellsPage, error) {

	var cursorParam interface{}
	if len(cursor) > 0 {
		cursorParam = ckbutil.HexBytes(cursor)
	}

	var page CellsPage
	err := c.Call(
		ctx, "get_cells", &page, searchKey, order,
		ckbutil.HexUint64(limit), cursorParam,
	)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

// IsNotFound reports whether err means the node had no result.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
