// Package indexer queries the node's built-in cell indexer for live cells
// and collects them into transaction inputs.
package indexer

import (
	"context"
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/ckb-labs/ckblab/txbuilder"
)

// DefaultPageSize is the number of cells fetched per get_cells call.
const DefaultPageSize = 100

// ErrEmptyQuery is returned for a query with neither lock nor type.
var ErrEmptyQuery = errors.New("query needs a lock or a type script")

// Backend is the part of the node RPC the indexer needs.
type Backend interface {
	// GetCells returns one page of live cells.
	GetCells(ctx context.Context, searchKey *rpcclient.SearchKey,
		order rpcclient.Order, limit uint32,
		cursor []byte) (*rpcclient.CellsPage, error)

	// GetTipBlockNumber returns the node's tip.
	GetTipBlockNumber(ctx context.Context) (uint64, error)

	// GetIndexerTip returns the indexer's tip.
	GetIndexerTip(ctx context.Context) (*rpcclient.IndexerTip, error)
}

// A compile time check to ensure the RPC client is a Backend.
var _ Backend = (*rpcclient.Client)(nil)

// TypeMode says how a query treats the type script of cells.
type TypeMode uint8

const (
	// TypeAny matches cells with or without any type script.
	TypeAny TypeMode = iota

	// TypeEmpty matches cells without a type script.
	TypeEmpty

	// TypeExact matches cells whose type script equals Query.Type.
	TypeExact
)

// DataMode says how a query treats cell data.
type DataMode uint8

const (
	// DataAny matches cells with any data.
	DataAny DataMode = iota

	// DataEmpty matches cells without data.
	DataEmpty
)

// Query selects live cells. With a lock the search runs by lock and the
// type mode filters further. Without a lock it runs by the type script.
type Query struct {
	Lock     *ckbwire.Script
	Type     *ckbwire.Script
	TypeMode TypeMode
	DataMode DataMode
	Order    rpcclient.Order
}

// PlainCells returns the query for cells of lock that only hold capacity.
func PlainCells(lock *ckbwire.Script) *Query {
	return &Query{Lock: lock, TypeMode: TypeEmpty, DataMode: DataEmpty}
}

// TypedCells returns the query for cells of lock carrying typeScript. A nil
// lock matches every owner.
func TypedCells(lock, typeScript *ckbwire.Script) *Query {
	return &Query{Lock: lock, Type: typeScript, TypeMode: TypeExact}
}

// searchKey translates the query to an indexer search key.
func (q *Query) searchKey() (*rpcclient.SearchKey, error) {
	withData := true
	key := &rpcclient.SearchKey{
		ScriptSearchMode: rpcclient.SearchModeExact,
		WithData:         &withData,
	}

	filter := &rpcclient.SearchKeyFilter{}
	switch {
	case q.Lock != nil:
		key.Script = *q.Lock
		key.ScriptType = rpcclient.ScriptTypeLock

		switch q.TypeMode {
		case TypeEmpty:
			filter.ScriptLenRange = &rpcclient.Range{0, 1}
		case TypeExact:
			filter.Script = q.Type
		}

	case q.Type != nil:
		key.Script = *q.Type
		key.ScriptType = rpcclient.ScriptTypeType

	default:
		return nil, ErrEmptyQuery
	}

	if q.DataMode == DataEmpty {
		filter.OutputDataLenRange = &rpcclient.Range{0, 1}
	}
	if *filter != (rpcclient.SearchKeyFilter{}) {
		key.Filter = filter
	}

	return key, nil
}

// Matches reports whether a cell satisfies the query. Results from the
// indexer are checked again with it.
func (q *Query) Matches(cell *txbuilder.Cell) bool {
	if q.Lock != nil && !cell.Output.Lock.Equals(q.Lock) {
		return false
	}

	switch {
	case q.Lock == nil && q.Type != nil:
		if !cell.HasType(q.Type) {
			return false
		}

	case q.TypeMode == TypeEmpty:
		if cell.Output.Type != nil {
			return false
		}

	case q.TypeMode == TypeExact:
		if !cell.HasType(q.Type) {
			return false
		}
	}

	if q.DataMode == DataEmpty && len(cell.Data) > 0 {
		return false
	}

	return true
}

// CellCollector pages through the live cells matching a query.
type CellCollector struct {
	backend  Backend
	query    *Query
	pageSize uint32
}

// NewCellCollector creates a collector for query.
func NewCellCollector(backend Backend, query *Query) *CellCollector {
	return &CellCollector{
		backend:  backend,
		query:    query,
		pageSize: DefaultPageSize,
	}
}

// Collect calls fn for every matching cell in indexer order until fn
// returns false, fn fails or the cells run out.
func (c *CellCollector) Collect(ctx context.Context,
	fn func(cell *txbuilder.Cell) (bool, error)) error {

	key, err := c.query.searchKey()
	if err != nil {
		return err
	}

	order := c.query.Order
	if order == "" {
		order = rpcclient.OrderAsc
	}

	var cursor []byte
	for {
		page, err := c.backend.GetCells(
			ctx, key, order, c.pageSize, cursor,
		)
		if err != nil {
			return fmt.Errorf("get cells: %w", err)
		}

		for i := range page.Objects {
			obj := &page.Objects[i]
			cell := &txbuilder.Cell{
				OutPoint: obj.OutPoint,
				Output:   obj.Output,
				Data:     []byte(obj.OutputData),
			}
			if !c.query.Matches(cell) {
				continue
			}

			more, err := fn(cell)
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}

		if len(page.Objects) < int(c.pageSize) ||
			len(page.LastCursor) == 0 {

			return nil
		}
		cursor = page.LastCursor
	}
}

// CollectAll returns every live cell matching query.
func CollectAll(ctx context.Context, backend Backend,
	query *Query) ([]txbuilder.Cell, error) {

	var cells []txbuilder.Cell
	err := NewCellCollector(backend, query).Collect(ctx,
		func(cell *txbuilder.Cell) (bool, error) {
			cells = append(cells, *cell)
			return true, nil
		},
	)
	if err != nil {
		return nil, err
	}

	return cells, nil
}

// CollectCapacity gathers plain cells of lock until their capacity reaches
// required. The cells and their total are returned, or an
// *txbuilder.ErrInsufficientCapacity when the lock owns too little.
func CollectCapacity(ctx context.Context, backend Backend,
	lock *ckbwire.Script, required ckbutil.Capacity) ([]txbuilder.Cell,
	ckbutil.Capacity, error) {

	var (
		cells []txbuilder.Cell
		total ckbutil.Capacity
	)
	if required == 0 {
		return nil, 0, nil
	}

	err := NewCellCollector(backend, PlainCells(lock)).Collect(ctx,
		func(cell *txbuilder.Cell) (bool, error) {
			var err error
			total, err = total.Add(cell.Capacity())
			if err != nil {
				return false, err
			}
			cells = append(cells, *cell)

			return total < required, nil
		},
	)
	if err != nil {
		return nil, 0, err
	}

	if total < required {
		return nil, 0, &txbuilder.ErrInsufficientCapacity{
			Required:  required,
			Available: total,
		}
	}

	log.Debugf("Collected %d cells holding %v for %v", len(cells), total,
		required)

	return cells, total, nil
}

// Balance returns the capacity held in the plain cells of lock.
func Balance(ctx context.Context, backend Backend,
	lock *ckbwire.Script) (ckbutil.Capacity, error) {

	cells, err := CollectAll(ctx, backend, PlainCells(lock))
	if err != nil {
		return 0, err
	}

	return txbuilder.SumCapacity(cells)
}
