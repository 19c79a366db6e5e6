package labs

import (
	"context"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/txbuilder"
)

const multiAccountLab = "multi-account"

var (
	// Contribution is what Alice, Bob and Charlie each put into the
	// shared output.
	Contribution = ckbutil.CKBytes(100)

	// SharedCapacity is the capacity the three contributions add up to.
	SharedCapacity = ckbutil.CKBytes(300)
)

// ValidateMultiAccount checks a skeleton against the multi account lab: at
// least three inputs spread over Alice, Bob and Charlie, and a first output
// paying Daniel the shared capacity minus the fee.
func ValidateMultiAccount(env *Env, accounts *Accounts,
	s *txbuilder.Skeleton) error {

	fail := func(format string, args ...interface{}) error {
		return validationErr(multiAccountLab, "", format, args...)
	}

	if len(s.Inputs) < 3 {
		return fail("at least three input cells are required")
	}
	if len(s.Outputs) < 1 {
		return fail("at least one output cell is required")
	}

	fee := env.fee()
	if fee != DefaultFee {
		return fail("the fee must be exactly %v", DefaultFee)
	}

	want := SharedCapacity - fee
	if s.Outputs[0].Capacity != want {
		return fail("output 0 must hold %v, not %v", want,
			s.Outputs[0].Capacity)
	}

	in, err := s.InputCapacity()
	if err != nil {
		return err
	}
	out, err := s.OutputCapacity()
	if err != nil {
		return err
	}
	if out > in {
		return fail("outputs need %v but the inputs hold %v", out, in)
	}

	if !s.Outputs[0].Lock.Equals(env.lock(accounts.Daniel)) {
		return fail("output 0 must use Daniel's default lock")
	}

	for _, account := range []*Account{
		accounts.Alice, accounts.Bob, accounts.Charlie,
	} {
		lock := env.lock(account)

		var found bool
		for i := range s.Inputs {
			if s.Inputs[i].Output.Lock.Equals(lock) {
				found = true
				break
			}
		}
		if !found {
			return fail("an input with %s's default lock is "+
				"required", account.Name)
		}
	}

	return nil
}

// contribute adds cells of lock worth amount to the skeleton. Whatever the
// cells hold beyond amount goes back to lock as change, so when that would
// be less than a change cell needs, more is collected.
func contribute(ctx context.Context, env *Env, s *txbuilder.Skeleton,
	lock *ckbwire.Script, amount ckbutil.Capacity) error {

	cells, total, err := indexer.CollectCapacity(
		ctx, env.Chain, lock, amount,
	)
	if err != nil {
		return err
	}

	minChange := txbuilder.PlainCellCapacity(lock)
	if excess := total - amount; excess > 0 && excess < minChange {
		cells, total, err = indexer.CollectCapacity(
			ctx, env.Chain, lock, amount+minChange,
		)
		if err != nil {
			return err
		}
	}

	if err := s.AddInputs(cells...); err != nil {
		return err
	}
	if excess := total - amount; excess > 0 {
		s.AddOutput(ckbwire.CellOutput{
			Capacity: excess,
			Lock:     *lock.Copy(),
		}, nil)
	}

	return nil
}

// RunMultiAccount has Alice, Bob and Charlie each contribute to a single
// cell for Daniel, which also pays the fee.
func RunMultiAccount(ctx context.Context, env *Env,
	accounts *Accounts) (ckbhash.Hash, error) {

	s := env.newSkeleton()
	s.AddOutput(ckbwire.CellOutput{
		Capacity: SharedCapacity - env.fee(),
		Lock:     *env.lock(accounts.Daniel),
	}, nil)

	for _, account := range []*Account{
		accounts.Alice, accounts.Bob, accounts.Charlie,
	} {
		err := contribute(ctx, env, s, env.lock(account), Contribution)
		if err != nil {
			return ckbhash.Hash{}, err
		}
	}

	if err := ValidateMultiAccount(env, accounts, s); err != nil {
		return ckbhash.Hash{}, err
	}

	return env.finish(ctx, s, "Send from multiple accounts")
}
