package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ckb-labs/ckblab/build"
	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbcfg"
	"github.com/ckb-labs/ckblab/deploystore"
	"github.com/ckb-labs/ckblab/labs"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/ckb-labs/ckblab/signer"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/ticker"
	"github.com/urfave/cli"
)

// splitChain talks to the node for everything but cell queries, which go to
// a separate indexer.
type splitChain struct {
	*rpcclient.Client

	indexer *rpcclient.Client
}

// A compile time check to ensure a split setup can back the labs.
var _ labs.Chain = (*splitChain)(nil)

// GetCells queries the indexer.
func (c *splitChain) GetCells(ctx context.Context,
	searchKey *rpcclient.SearchKey, order rpcclient.Order, limit uint32,
	cursor []byte) (*rpcclient.CellsPage, error) {

	return c.indexer.GetCells(ctx, searchKey, order, limit, cursor)
}

// GetIndexerTip asks the indexer how far it got.
func (c *splitChain) GetIndexerTip(
	ctx context.Context) (*rpcclient.IndexerTip, error) {

	return c.indexer.GetIndexerTip(ctx)
}

// session is the state a single command invocation works with.
type session struct {
	cfg       *ckbcfg.Config
	params    *chainparams.Params
	logWriter *build.RotatingLogWriter

	node  *rpcclient.Client
	chain labs.Chain
	store *deploystore.Store
}

// newSession loads the configuration and starts logging. Nothing talks to
// the node until connect is called.
func newSession(ctx *cli.Context) (*session, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	logWriter, err := initLogging(cfg)
	if err != nil {
		return nil, err
	}

	log.Debugf("ckblab %v (%v build), config %v, network %v",
		build.Version(), build.Deployment, cfg.ConfigFile, cfg.Network)

	return &session{
		cfg:       cfg,
		params:    cfg.ActiveParams,
		logWriter: logWriter,
	}, nil
}

// connect creates the RPC clients. On a devnet without a configured cell
// dep the default lock's dep group is looked up in the genesis block.
func (s *session) connect(ctx context.Context) error {
	node, err := rpcclient.New(s.cfg.NodeRPC())
	if err != nil {
		return err
	}
	s.node = node
	s.chain = node

	if idxCfg := s.cfg.IndexerRPC(); idxCfg != nil {
		idx, err := rpcclient.New(idxCfg)
		if err != nil {
			return err
		}
		s.chain = &splitChain{Client: node, indexer: idx}
	}

	if s.params.Secp256k1Blake160.Dep.OutPoint.TxHash.IsZero() {
		hashes, err := node.GetBlockTxHashes(ctx, 0)
		if err != nil {
			return fmt.Errorf("unable to read genesis block: %w", err)
		}

		dep, err := chainparams.GenesisDepGroup(hashes)
		if err != nil {
			return err
		}
		s.params.Secp256k1Blake160.Dep = dep

		log.Infof("Using genesis dep group %v for the default lock",
			dep.OutPoint)
	}

	return s.params.Validate()
}

// openStore opens the deployment registry in the data dir.
func (s *session) openStore() (*deploystore.Store, error) {
	if s.store != nil {
		return s.store, nil
	}

	store, err := deploystore.Open(s.cfg.DataDir, clock.NewDefaultClock())
	if err != nil {
		return nil, err
	}
	s.store = store

	return store, nil
}

// pollConfig paces a wait with the configured interval and timeout.
func (s *session) pollConfig() *rpcclient.PollConfig {
	return &rpcclient.PollConfig{
		Ticker:  ticker.New(s.cfg.PollInterval),
		Timeout: s.cfg.ConfirmTimeout,
	}
}

// env returns the lab environment signing with keys.
func (s *session) env(keys signer.KeyRing) (*labs.Env, error) {
	store, err := s.openStore()
	if err != nil {
		return nil, err
	}

	opts := labs.LabDescribeOptions()
	opts.Network = s.params.AddressPrefix

	return &labs.Env{
		Chain:        s.chain,
		Params:       s.params,
		Keys:         keys,
		Fee:          s.cfg.FixedFee(),
		Out:          os.Stdout,
		Describe:     opts,
		Store:        store,
		PollInterval: s.cfg.PollInterval,
		Timeout:      s.cfg.ConfirmTimeout,
	}, nil
}

// Close releases the store and flushes the log file.
func (s *session) Close() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Errorf("Unable to close deployment store: %v", err)
		}
	}

	if err := s.logWriter.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "unable to close log file: %v\n", err)
	}
}
