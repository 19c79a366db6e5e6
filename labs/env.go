// Package labs runs the tutorial flows against a CKB node: funding the lab
// accounts, sharing capacity between several accounts, deploying script
// code, minting and moving user defined tokens and spending cells guarded by
// a lock with several args.
package labs

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/deploystore"
	"github.com/ckb-labs/ckblab/describe"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/ckb-labs/ckblab/signer"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/lightningnetwork/lnd/ticker"
)

// DefaultFee is the fee every lab transaction pays.
const DefaultFee = ckbutil.Capacity(txbuilder.DefaultFixedFee)

// Chain is the node and indexer the labs talk to.
type Chain interface {
	indexer.Backend

	// SendTransaction submits a signed transaction.
	SendTransaction(ctx context.Context,
		tx *ckbwire.Transaction) (ckbhash.Hash, error)

	// WaitForConfirmation blocks until the transaction is committed.
	WaitForConfirmation(ctx context.Context, hash ckbhash.Hash,
		cfg *rpcclient.PollConfig) error

	// GetLiveCell returns a cell that is still unspent, wrapping
	// rpcclient.ErrNotFound otherwise.
	GetLiveCell(ctx context.Context, outPoint ckbwire.OutPoint,
		withData bool) (*rpcclient.CellInfo, error)
}

// A compile time check to ensure the RPC client can back the labs.
var _ Chain = (*rpcclient.Client)(nil)

// Env is what every lab step shares.
type Env struct {
	// Chain is the node the transactions go to.
	Chain Chain

	// Params names the network and its system scripts.
	Params *chainparams.Params

	// Keys signs the secp256k1 groups of every transaction.
	Keys signer.KeyRing

	// Fee is paid by every transaction. Zero means DefaultFee.
	Fee ckbutil.Capacity

	// Out receives the description of every transaction before it is
	// signed. Nil discards them.
	Out io.Writer

	// Describe selects what the descriptions show.
	Describe describe.Options

	// Store records deployments when set.
	Store *deploystore.Store

	// PollInterval paces confirmation and indexer polling. Zero means
	// rpcclient.DefaultPollInterval.
	PollInterval time.Duration

	// Timeout bounds each wait. Zero waits for the context.
	Timeout time.Duration
}

// LabDescribeOptions are the description toggles the labs use by default.
func LabDescribeOptions() describe.Options {
	return describe.Options{
		ShowInputs:     true,
		ShowInputData:  true,
		ShowOutputs:    true,
		ShowOutputData: true,
	}
}

func (e *Env) fee() ckbutil.Capacity {
	if e.Fee == 0 {
		return DefaultFee
	}

	return e.Fee
}

func (e *Env) pollConfig() *rpcclient.PollConfig {
	interval := e.PollInterval
	if interval == 0 {
		interval = rpcclient.DefaultPollInterval
	}

	return &rpcclient.PollConfig{
		Ticker:  ticker.New(interval),
		Timeout: e.Timeout,
	}
}

func (e *Env) printf(format string, args ...interface{}) {
	if e.Out != nil {
		fmt.Fprintf(e.Out, format, args...)
	}
}

// checkDeployment makes sure the code cell of d is live and still holds the
// recorded code.
func (e *Env) checkDeployment(ctx context.Context,
	d *deploystore.Deployment) error {

	cell, err := e.Chain.GetLiveCell(ctx, d.OutPoint, true)
	switch {
	case rpcclient.IsNotFound(err):
		return fmt.Errorf("%s at %v: %w", d.Name, d.OutPoint,
			ErrDeploymentSpent)

	case err != nil:
		return err
	}

	if cell.Data == nil ||
		ckbhash.Blake2b256(cell.Data.Content) != d.DataHash {

		return fmt.Errorf("%s at %v: cell data does not match code "+
			"hash %v", d.Name, d.OutPoint, d.DataHash)
	}

	return nil
}

// deployedOutPoints returns the code cells recorded for the network.
func (e *Env) deployedOutPoints() (map[ckbwire.OutPoint]struct{}, error) {
	recorded := make(map[ckbwire.OutPoint]struct{})
	if e.Store == nil {
		return recorded, nil
	}

	deployments, err := e.Store.List(e.Params.Name)
	if err != nil {
		return nil, err
	}
	for _, d := range deployments {
		recorded[d.OutPoint] = struct{}{}
	}

	return recorded, nil
}

// newSkeleton returns a skeleton depending on the default lock.
func (e *Env) newSkeleton() *txbuilder.Skeleton {
	s := txbuilder.NewSkeleton()
	s.AddCellDep(e.Params.Secp256k1Blake160.Dep)

	return s
}

// lock returns the default lock of an account.
func (e *Env) lock(a *Account) *ckbwire.Script {
	return e.Params.DefaultLock(a.LockArg[:])
}

// fund collects plain cells of owner to cover the outputs, the fee and a
// change cell, then adds the change cell for owner.
func (e *Env) fund(ctx context.Context, s *txbuilder.Skeleton,
	owner *ckbwire.Script) error {

	fee := e.fee()
	required, err := s.CapacityRequired(
		fee, txbuilder.PlainCellCapacity(owner),
	)
	if err != nil {
		return err
	}

	cells, _, err := indexer.CollectCapacity(ctx, e.Chain, owner, required)
	if err != nil {
		return err
	}
	if err := s.AddInputs(cells...); err != nil {
		return err
	}

	_, _, err = s.AddChange(owner, fee)

	return err
}

// finish adds the witness placeholders, describes, signs and sends the
// skeleton, then waits until the indexer has seen the transaction.
func (e *Env) finish(ctx context.Context, s *txbuilder.Skeleton,
	step string) (ckbhash.Hash, error) {

	s.AddDefaultWitnessPlaceholders()

	e.printf("[### %s\n", step)
	if e.Out != nil {
		if err := describe.Transaction(e.Out, s, e.Describe); err != nil {
			return ckbhash.Hash{}, err
		}
	}

	return e.sign(ctx, s, step)
}

// sign signs and sends an already described skeleton.
func (e *Env) sign(ctx context.Context, s *txbuilder.Skeleton,
	step string) (ckbhash.Hash, error) {

	if err := s.ValidateCapacity(); err != nil {
		return ckbhash.Hash{}, fmt.Errorf("%s: %w", step, err)
	}

	tx, err := signer.SignTransaction(
		s, &e.Params.Secp256k1Blake160, e.Keys,
	)
	if err != nil {
		return ckbhash.Hash{}, fmt.Errorf("%s: %w", step, err)
	}

	hash, err := e.Chain.SendTransaction(ctx, tx)
	if err != nil {
		return ckbhash.Hash{}, fmt.Errorf("%s: %w", step, err)
	}
	e.printf("Transaction Sent: %v\n", hash)
	log.Infof("%s: sent %v", step, hash)

	if err := e.Chain.WaitForConfirmation(
		ctx, hash, e.pollConfig(),
	); err != nil {
		return ckbhash.Hash{}, err
	}
	if err := indexer.WaitReady(ctx, e.Chain, e.pollConfig()); err != nil {
		return ckbhash.Hash{}, err
	}

	return hash, nil
}
