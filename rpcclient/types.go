package rpcclient

import (
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
)

// TxStatus is the status the node reports for a transaction.
type TxStatus string

const (
	// TxStatusPending means the transaction is in the pool.
	TxStatusPending TxStatus = "pending"

	// TxStatusProposed means the transaction has been proposed in a
	// block and awaits commitment.
	TxStatusProposed TxStatus = "proposed"

	// TxStatusCommitted means the transaction is in the main chain.
	TxStatusCommitted TxStatus = "committed"

	// TxStatusRejected means the pool dropped the transaction.
	TxStatusRejected TxStatus = "rejected"

	// TxStatusUnknown means the node has never seen the transaction or
	// has forgotten it.
	TxStatusUnknown TxStatus = "unknown"
)

// TransactionStatus is the tx_status object of get_transaction.
type TransactionStatus struct {
	Status    TxStatus      `json:"status"`
	BlockHash *ckbhash.Hash `json:"block_hash"`
	Reason    *string       `json:"reason"`
}

// TransactionWithStatus is the result of get_transaction.
type TransactionWithStatus struct {
	Transaction *ckbwire.Transaction `json:"transaction"`
	TxStatus    TransactionStatus    `json:"tx_status"`
}

// IndexerTip is the block the indexer has processed up to.
type IndexerTip struct {
	BlockHash   ckbhash.Hash      `json:"block_hash"`
	BlockNumber ckbutil.HexUint64 `json:"block_number"`
}

// CellData is the data part of a live cell.
type CellData struct {
	Content ckbutil.HexBytes `json:"content"`
	Hash    ckbhash.Hash     `json:"hash"`
}

// CellInfo is a live cell as returned by get_live_cell.
type CellInfo struct {
	Output ckbwire.CellOutput `json:"output"`
	Data   *CellData          `json:"data"`
}

// LiveCellResult is the result of get_live_cell.
type LiveCellResult struct {
	Cell   *CellInfo `json:"cell"`
	Status string    `json:"status"`
}

// ScriptType selects which script of a cell a search key matches.
type ScriptType string

const (
	// ScriptTypeLock searches by lock script.
	ScriptTypeLock ScriptType = "lock"

	// ScriptTypeType searches by type script.
	ScriptTypeType ScriptType = "type"
)

// SearchMode selects how the search key script is matched.
type SearchMode string

const (
	// SearchModePrefix matches scripts whose args start with the key
	// args. This is the indexer default.
	SearchModePrefix SearchMode = "prefix"

	// SearchModeExact matches the script exactly.
	SearchModeExact SearchMode = "exact"
)

// Order is the order cells are returned in.
type Order string

const (
	// OrderAsc returns the oldest cells first.
	OrderAsc Order = "asc"

	// OrderDesc returns the newest cells first.
	OrderDesc Order = "desc"
)

// Range is a half open [start, end) range encoded as two hex quantities.
type Range [2]ckbutil.HexUint64

// SearchKeyFilter narrows a search.
type SearchKeyFilter struct {
	// Script filters by the other script of the cell: the type when
	// searching by lock and the lock when searching by type.
	Script *ckbwire.Script `json:"script,omitempty"`

	// ScriptLenRange filters by the serialized length of the other
	// script. [0, 1) selects cells without one.
	ScriptLenRange *Range `json:"script_len_range,omitempty"`

	// OutputDataLenRange filters by the length of the cell data.
	OutputDataLenRange *Range `json:"output_data_len_range,omitempty"`

	// OutputCapacityRange filters by capacity in shannons.
	OutputCapacityRange *Range `json:"output_capacity_range,omitempty"`
}

// SearchKey is the query of get_cells.
type SearchKey struct {
	Script           ckbwire.Script   `json:"script"`
	ScriptType       ScriptType       `json:"script_type"`
	ScriptSearchMode SearchMode       `json:"script_search_mode,omitempty"`
	Filter           *SearchKeyFilter `json:"filter,omitempty"`
	WithData         *bool            `json:"with_data,omitempty"`
}

// IndexerCell is one cell returned by get_cells.
type IndexerCell struct {
	Output      ckbwire.CellOutput `json:"output"`
	OutputData  ckbutil.HexBytes   `json:"output_data"`
	OutPoint    ckbwire.OutPoint   `json:"out_point"`
	BlockNumber ckbutil.HexUint64  `json:"block_number"`
	TxIndex     ckbutil.HexUint64  `json:"tx_index"`
}

// CellsPage is one page of get_cells results.
type CellsPage struct {
	Objects    []IndexerCell    `json:"objects"`
	LastCursor ckbutil.HexBytes `json:"last_cursor"`
}
