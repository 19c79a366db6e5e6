package ckbmock

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/ckb-labs/ckblab/signer"
	"github.com/ckb-labs/ckblab/txbuilder"
)

var (
	// ErrDeadCell is returned when a transaction spends a cell that is
	// not live.
	ErrDeadCell = errors.New("input cell is not live")

	// ErrUnknownDep is returned when a cell dep is not live.
	ErrUnknownDep = errors.New("cell dep is not live")
)

// FakeChain is an in-memory node and indexer. Every accepted transaction is
// committed in its own block right away. Transactions are checked for
// capacity conservation, occupied capacity and, for the default lock,
// signatures.
type FakeChain struct {
	mu sync.Mutex

	params *chainparams.Params

	cells map[ckbwire.OutPoint]*rpcclient.IndexerCell
	order []ckbwire.OutPoint

	txs map[ckbhash.Hash]*ckbwire.Transaction
	log []ckbhash.Hash

	tip     uint64
	nonce   uint32
	rejects map[ckbhash.Hash]string

	scripts map[ckbhash.Hash]ScriptVerifier
}

// ScriptVerifier stands in for the on-chain code of a script. It is called
// once per distinct script of a transaction whose code hash it was
// registered for.
type ScriptVerifier func(script *ckbwire.Script, s *txbuilder.Skeleton) error

// NewFakeChain returns an empty chain using the given params' default lock
// for signature checks. The params' cell deps are made live.
func NewFakeChain(params *chainparams.Params) *FakeChain {
	c := &FakeChain{
		params:  params,
		cells:   make(map[ckbwire.OutPoint]*rpcclient.IndexerCell),
		txs:     make(map[ckbhash.Hash]*ckbwire.Transaction),
		rejects: make(map[ckbhash.Hash]string),
		scripts: make(map[ckbhash.Hash]ScriptVerifier),
	}

	c.addCell(params.Secp256k1Blake160.Dep.OutPoint, ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(1_000),
	}, nil)

	return c
}

func (c *FakeChain) addCell(op ckbwire.OutPoint, out ckbwire.CellOutput,
	data []byte) {

	if data == nil {
		data = []byte{}
	}
	c.cells[op] = &rpcclient.IndexerCell{
		Output:      out,
		OutputData:  data,
		OutPoint:    op,
		BlockNumber: ckbutil.HexUint64(c.tip),
	}
	c.order = append(c.order, op)
}

// Fund creates a cell out of thin air, as a genesis allocation would.
func (c *FakeChain) Fund(lock *ckbwire.Script,
	capacity ckbutil.Capacity) ckbwire.OutPoint {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nonce++
	op := ckbwire.OutPoint{
		TxHash: ckbhash.Blake2b256(
			[]byte("genesis"), ckbutil.EncodeU32LE(c.nonce),
		),
	}
	c.addCell(op, ckbwire.CellOutput{Capacity: capacity, Lock: *lock}, nil)

	return op
}

// RegisterScript makes transactions run verify for every lock of their
// inputs and every type of their inputs and outputs with the given code
// hash.
func (c *FakeChain) RegisterScript(codeHash ckbhash.Hash,
	verify ScriptVerifier) {

	c.mu.Lock()
	defer c.mu.Unlock()

	c.scripts[codeHash] = verify
}

// GetCells implements the indexer search for exact script matches.
func (c *FakeChain) GetCells(_ context.Context, key *rpcclient.SearchKey,
	_ rpcclient.Order, limit uint32,
	cursor []byte) (*rpcclient.CellsPage, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	start := 0
	if len(cursor) == 4 {
		start = int(binary.BigEndian.Uint32(cursor))
	}

	page := &rpcclient.CellsPage{}
	pos := start
	for ; pos < len(c.order) && len(page.Objects) < int(limit); pos++ {
		cell, ok := c.cells[c.order[pos]]
		if !ok || !matchesKey(cell, key) {
			continue
		}
		page.Objects = append(page.Objects, *cell)
	}

	page.LastCursor = binary.BigEndian.AppendUint32(nil, uint32(pos))

	return page, nil
}

func inRange(r *rpcclient.Range, v uint64) bool {
	return r == nil || (v >= uint64(r[0]) && v < uint64(r[1]))
}

func matchesKey(cell *rpcclient.IndexerCell,
	key *rpcclient.SearchKey) bool {

	var script, other *ckbwire.Script
	switch key.ScriptType {
	case rpcclient.ScriptTypeLock:
		script, other = &cell.Output.Lock, cell.Output.Type
	case rpcclient.ScriptTypeType:
		script, other = cell.Output.Type, &cell.Output.Lock
	}
	if !script.Equals(&key.Script) {
		return false
	}

	f := key.Filter
	if f == nil {
		return true
	}
	if f.Script != nil && !f.Script.Equals(other) {
		return false
	}

	var otherLen uint64
	if other != nil {
		otherLen = uint64(len(other.Serialize()))
	}

	return inRange(f.ScriptLenRange, otherLen) &&
		inRange(f.OutputDataLenRange, uint64(len(cell.OutputData))) &&
		inRange(f.OutputCapacityRange, uint64(cell.Output.Capacity))
}

// GetTipBlockNumber returns the number of committed blocks.
func (c *FakeChain) GetTipBlockNumber(_ context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.tip, nil
}

// GetIndexerTip returns the chain tip, the fake indexer never lags.
func (c *FakeChain) GetIndexerTip(
	_ context.Context) (*rpcclient.IndexerTip, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	return &rpcclient.IndexerTip{BlockNumber: ckbutil.HexUint64(c.tip)}, nil
}

// GetLiveCell returns a live cell or rpcclient.ErrNotFound.
func (c *FakeChain) GetLiveCell(_ context.Context, op ckbwire.OutPoint,
	_ bool) (*rpcclient.CellInfo, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	cell, ok := c.cells[op]
	if !ok {
		return nil, fmt.Errorf("cell %v: %w", op, rpcclient.ErrNotFound)
	}

	return &rpcclient.CellInfo{
		Output: cell.Output,
		Data: &rpcclient.CellData{
			Content: cell.OutputData,
			Hash:    ckbhash.Blake2b256(cell.OutputData),
		},
	}, nil
}

// SendTransaction verifies and commits a transaction.
func (c *FakeChain) SendTransaction(_ context.Context,
	tx *ckbwire.Transaction) (ckbhash.Hash, error) {

	c.mu.Lock()
	defer c.mu.Unlock()

	hash := tx.Hash()
	if err := c.verify(tx); err != nil {
		c.rejects[hash] = err.Error()
		return ckbhash.Hash{}, fmt.Errorf("%w: %w", rpcclient.ErrTxRejected,
			err)
	}

	for _, in := range tx.Inputs {
		delete(c.cells, in.PreviousOutput)
	}

	c.tip++
	for i := range tx.Outputs {
		c.addCell(ckbwire.OutPoint{TxHash: hash, Index: uint32(i)},
			tx.Outputs[i], tx.OutputsData[i])
	}

	c.txs[hash] = tx.Copy()
	c.log = append(c.log, hash)

	return hash, nil
}

func (c *FakeChain) verify(tx *ckbwire.Transaction) error {
	if len(tx.Outputs) != len(tx.OutputsData) {
		return fmt.Errorf("%d outputs with %d data", len(tx.Outputs),
			len(tx.OutputsData))
	}

	for _, dep := range tx.CellDeps {
		if _, ok := c.cells[dep.OutPoint]; !ok {
			return fmt.Errorf("%w: %v", ErrUnknownDep, dep.OutPoint)
		}
	}

	s := txbuilder.NewSkeleton()
	s.CellDeps = tx.CellDeps
	s.Witnesses = tx.Witnesses
	for _, in := range tx.Inputs {
		cell, ok := c.cells[in.PreviousOutput]
		if !ok {
			return fmt.Errorf("%w: %v", ErrDeadCell, in.PreviousOutput)
		}
		err := s.AddInputs(txbuilder.Cell{
			OutPoint: cell.OutPoint,
			Output:   cell.Output,
			Data:     cell.OutputData,
		})
		if err != nil {
			return err
		}
	}
	for i := range tx.Outputs {
		s.AddOutput(tx.Outputs[i], tx.OutputsData[i])
	}

	if err := s.ValidateCapacity(); err != nil {
		return err
	}

	if err := c.runScripts(s); err != nil {
		return err
	}

	return signer.VerifyTransaction(s, &c.params.Secp256k1Blake160)
}

func (c *FakeChain) runScripts(s *txbuilder.Skeleton) error {
	seen := make(map[ckbhash.Hash]struct{})
	run := func(script *ckbwire.Script) error {
		if script == nil {
			return nil
		}
		verify, ok := c.scripts[script.CodeHash]
		if !ok {
			return nil
		}

		hash := script.Hash()
		if _, ok := seen[hash]; ok {
			return nil
		}
		seen[hash] = struct{}{}

		if err := verify(script, s); err != nil {
			return fmt.Errorf("script %v: %w", hash, err)
		}

		return nil
	}

	for i := range s.Inputs {
		if err := run(&s.Inputs[i].Output.Lock); err != nil {
			return err
		}
		if err := run(s.Inputs[i].Output.Type); err != nil {
			return err
		}
	}
	for i := range s.Outputs {
		if err := run(s.Outputs[i].Type); err != nil {
			return err
		}
	}

	return nil
}

// WaitForConfirmation returns at once for committed transactions.
func (c *FakeChain) WaitForConfirmation(_ context.Context, hash ckbhash.Hash,
	_ *rpcclient.PollConfig) error {

	c.mu.Lock()
	defer c.mu.Unlock()

	if reason, ok := c.rejects[hash]; ok {
		return fmt.Errorf("%w: %v: %s", rpcclient.ErrTxRejected, hash,
			reason)
	}
	if _, ok := c.txs[hash]; !ok {
		return fmt.Errorf("transaction %v: %w", hash,
			rpcclient.ErrNotFound)
	}

	return nil
}

// Transactions returns the committed transactions in order.
func (c *FakeChain) Transactions() []*ckbwire.Transaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	txs := make([]*ckbwire.Transaction, len(c.log))
	for i, hash := range c.log {
		txs[i] = c.txs[hash]
	}

	return txs
}

// LiveCells returns the live cells locked by lock.
func (c *FakeChain) LiveCells(lock *ckbwire.Script) []txbuilder.Cell {
	c.mu.Lock()
	defer c.mu.Unlock()

	var cells []txbuilder.Cell
	for _, op := range c.order {
		cell, ok := c.cells[op]
		if !ok || !cell.Output.Lock.Equals(lock) {
			continue
		}
		cells = append(cells, txbuilder.Cell{
			OutPoint: cell.OutPoint,
			Output:   cell.Output,
			Data:     cell.OutputData,
		})
	}

	return cells
}
