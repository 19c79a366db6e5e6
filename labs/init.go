package labs

import (
	"context"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/txbuilder"
	"golang.org/x/sync/errgroup"
)

// InitialFunding is what InitializeLab leaves each funded account.
var InitialFunding = ckbutil.CKBytes(100)

// recycleQuery matches every cell of lock without a type script, whatever
// its data.
func recycleQuery(lock *ckbwire.Script) *indexer.Query {
	return &indexer.Query{Lock: lock, TypeMode: indexer.TypeEmpty}
}

// InitializeLab resets the lab accounts: every untyped cell of Alice, Bob,
// Charlie and Daniel is spent, Alice, Bob and Charlie each get a fresh
// InitialFunding cell and whatever is left goes back to genesis. Genesis
// only pays in when the recycled capacity falls short. Code cells recorded
// in the deployment store are left alone.
func InitializeLab(ctx context.Context, env *Env,
	accounts *Accounts) (ckbhash.Hash, error) {

	recycle := []*Account{
		accounts.Alice, accounts.Bob, accounts.Charlie, accounts.Daniel,
	}
	fund := []*Account{accounts.Alice, accounts.Bob, accounts.Charlie}

	deployed, err := env.deployedOutPoints()
	if err != nil {
		return ckbhash.Hash{}, err
	}

	// The accounts are independent, query them side by side.
	recycled := make([][]txbuilder.Cell, len(recycle))
	g, gctx := errgroup.WithContext(ctx)
	for i, account := range recycle {
		i, lock := i, env.lock(account)
		g.Go(func() error {
			cells, err := indexer.CollectAll(
				gctx, env.Chain, recycleQuery(lock),
			)
			if err != nil {
				return err
			}
			for _, cell := range cells {
				if _, ok := deployed[cell.OutPoint]; ok {
					continue
				}
				recycled[i] = append(recycled[i], cell)
			}

			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ckbhash.Hash{}, err
	}

	s := env.newSkeleton()
	for i, cells := range recycled {
		if err := s.AddInputs(cells...); err != nil {
			return ckbhash.Hash{}, err
		}
		if len(cells) > 0 {
			log.Debugf("Recycling %d cells of %s", len(cells),
				recycle[i].Name)
		}
	}

	for _, account := range fund {
		s.AddOutput(ckbwire.CellOutput{
			Capacity: InitialFunding,
			Lock:     *env.lock(account),
		}, nil)
	}

	if err := env.fund(ctx, s, env.lock(accounts.Genesis)); err != nil {
		return ckbhash.Hash{}, err
	}

	env.printf("Now setting up Cells for lab exercise.\n")

	return env.finish(ctx, s, "Initialize lab")
}
