package labs

import (
	"context"

	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/deploystore"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/locks"
	"github.com/ckb-labs/ckblab/txbuilder"
)

const occLockLab = "occ-lock"

var (
	// OCCCellCapacity is the capacity of each cell locked with the OCC
	// lock.
	OCCCellCapacity = ckbutil.CKBytes(500)

	// DefaultOCCArgs ask for three outputs of 1000 CKB.
	DefaultOCCArgs = locks.OCCLockArgs{
		Amount: ckbutil.CKBytes(1_000),
		Count:  3,
	}
)

// OCCLockLab locks cells with the OCC lock and spends them by creating the
// outputs its args demand.
type OCCLockLab struct {
	env    *Env
	owner  *Account
	binary *Binary
	args   locks.OCCLockArgs

	code *deploystore.Deployment
}

// NewOCCLockLab creates the lab for Daniel and the default args.
func NewOCCLockLab(env *Env, accounts *Accounts,
	binary *Binary) *OCCLockLab {

	return &OCCLockLab{
		env:    env,
		owner:  accounts.Daniel,
		binary: binary,
		args:   DefaultOCCArgs,
	}
}

// Lock returns the OCC lock used by the lab.
func (l *OCCLockLab) Lock() *ckbwire.Script {
	return locks.OCCLockScript(l.binary.DataHash(), l.args)
}

// Run executes every stage.
func (l *OCCLockLab) Run(ctx context.Context) error {
	if err := l.Deploy(ctx); err != nil {
		return err
	}
	if err := l.Create(ctx); err != nil {
		return err
	}

	return l.Consume(ctx)
}

// Deploy puts the OCC lock binary on chain.
func (l *OCCLockLab) Deploy(ctx context.Context) error {
	d, err := DeployCode(ctx, l.env, l.binary, l.owner)
	if err != nil {
		return err
	}
	l.code = d

	return nil
}

// Create locks two OCC cells.
func (l *OCCLockLab) Create(ctx context.Context) error {
	lock := l.Lock()

	s := l.env.newSkeleton()
	for i := 0; i < 2; i++ {
		s.AddOutput(ckbwire.CellOutput{
			Capacity: OCCCellCapacity,
			Lock:     *lock.Copy(),
		}, nil)
	}
	if err := l.env.fund(ctx, s, l.env.lock(l.owner)); err != nil {
		return err
	}

	_, err := l.env.finish(ctx, s, "Create cells with the OCC lock")

	return err
}

// Consume spends the OCC cells into the outputs the lock asks for, topped
// up from the owner.
func (l *OCCLockLab) Consume(ctx context.Context) error {
	owner := l.env.lock(l.owner)

	occCells, _, err := indexer.CollectCapacity(
		ctx, l.env.Chain, l.Lock(), 2*OCCCellCapacity,
	)
	if err != nil {
		return err
	}

	s := l.env.newSkeleton()
	s.AddCellDep(l.code.CellDep())
	if err := s.AddInputs(occCells...); err != nil {
		return err
	}
	for i := uint64(0); i < l.args.Count; i++ {
		s.AddOutput(ckbwire.CellOutput{
			Capacity: l.args.Amount,
			Lock:     *owner.Copy(),
		}, nil)
	}

	if err := l.env.fund(ctx, s, owner); err != nil {
		return err
	}
	if err := l.validate(s); err != nil {
		return err
	}

	_, err = l.env.finish(ctx, s, "Consume cells with the OCC lock")

	return err
}

func (l *OCCLockLab) validate(s *txbuilder.Skeleton) error {
	outputs := make([]ckbwire.CellOutput, len(s.Outputs))
	for i := range s.Outputs {
		outputs[i] = s.Outputs[i].CellOutput
	}
	if !l.args.Satisfied(outputs) {
		return validationErr(occLockLab, StageConsume, "%d outputs of "+
			"%v are required", l.args.Count, l.args.Amount)
	}

	return nil
}
