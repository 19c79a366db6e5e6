// NOTE: forcetypeassert is skipped for the mock because the test would fail if
// the returned value doesn't match the type.
package ckbmock

import (
	"context"

	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/stretchr/testify/mock"
)

// MockBackend implements the indexer's view of the node RPC.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) GetCells(ctx context.Context,
	searchKey *rpcclient.SearchKey, order rpcclient.Order, limit uint32,
	cursor []byte) (*rpcclient.CellsPage, error) {

	args := m.Called(ctx, searchKey, order, limit, cursor)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*rpcclient.CellsPage), args.Error(1)
}

func (m *MockBackend) GetTipBlockNumber(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)

	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockBackend) GetIndexerTip(
	ctx context.Context) (*rpcclient.IndexerTip, error) {

	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*rpcclient.IndexerTip), args.Error(1)
}
