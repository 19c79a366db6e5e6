package labs

import (
	"context"

	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/deploystore"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/ckb-labs/ckblab/udt"
)

const sudtLab = "sudt"

// Stages of the token labs.
const (
	StageDeploy   = "deploy"
	StageCreate   = "create"
	StageTransfer = "transfer"
	StageConsume  = "consume"
)

// Allocation is an amount of tokens for an account.
type Allocation struct {
	Account *Account
	Amount  uint64
}

// SUDTPlan is what the sUDT lab mints, sends and burns.
type SUDTPlan struct {
	// Mint lists the token cells Alice creates.
	Mint []Allocation

	// Transfer lists what Alice sends out of her token cells. The rest
	// returns to her as token change.
	Transfer []Allocation
}

// DefaultSUDTPlan has Alice mint three cells of 100, 200 and 300 tokens,
// send 150 to Bob and 250 to Charlie and burn the 200 she has left.
func DefaultSUDTPlan(accounts *Accounts) *SUDTPlan {
	return &SUDTPlan{
		Mint: []Allocation{
			{accounts.Alice, 100},
			{accounts.Alice, 200},
			{accounts.Alice, 300},
		},
		Transfer: []Allocation{
			{accounts.Bob, 150},
			{accounts.Charlie, 250},
		},
	}
}

func sumAllocations(allocs []Allocation) ckbutil.TokenAmount {
	var total ckbutil.TokenAmount
	for _, a := range allocs {
		total = total.Add64(a.Amount)
	}

	return total
}

// SUDTLab walks Alice's token through its life: deploy the sUDT code, mint,
// transfer and burn.
type SUDTLab struct {
	env      *Env
	accounts *Accounts
	plan     *SUDTPlan
	binary   *Binary

	code       *deploystore.Deployment
	typeScript *ckbwire.Script
}

// NewSUDTLab creates the lab for the given sUDT binary. A nil plan means
// DefaultSUDTPlan.
func NewSUDTLab(env *Env, accounts *Accounts, binary *Binary,
	plan *SUDTPlan) *SUDTLab {

	if plan == nil {
		plan = DefaultSUDTPlan(accounts)
	}

	return &SUDTLab{
		env:      env,
		accounts: accounts,
		plan:     plan,
		binary:   binary,
	}
}

// TypeScript returns the token's type script once the code is deployed.
func (l *SUDTLab) TypeScript() *ckbwire.Script {
	return l.typeScript
}

func (l *SUDTLab) fail(stage, format string, args ...interface{}) error {
	return validationErr(sudtLab, stage, format, args...)
}

// Validate checks a skeleton against a stage of the lab.
func (l *SUDTLab) Validate(stage string, s *txbuilder.Skeleton) error {
	if len(s.Inputs) == 0 {
		return l.fail(stage, "at least one input cell is required")
	}
	if err := s.ValidateCapacity(); err != nil {
		return l.fail(stage, "%v", err)
	}

	switch stage {
	case StageDeploy:
		if len(s.Outputs) < 1 ||
			!s.Outputs[0].Lock.Equals(l.env.lock(l.accounts.Alice)) {

			return l.fail(stage, "output 0 must be locked by Alice")
		}
		if udt.CodeHash(s.Outputs[0].Data) != l.binary.DataHash() {
			return l.fail(stage, "output 0 must hold the sUDT binary")
		}

	case StageCreate:
		if !s.IsOwnerMode(l.typeScript) {
			return l.fail(stage, "only Alice can mint")
		}
		return l.checkTokenOutputs(stage, s, l.plan.Mint)

	case StageTransfer:
		if err := s.CheckTokenConservation(l.typeScript); err != nil {
			return l.fail(stage, "%v", err)
		}
		return l.checkTokenOutputs(stage, s, l.plan.Transfer)

	case StageConsume:
		in, err := s.InputTokens(l.typeScript)
		if err != nil {
			return err
		}
		if in.IsZero() {
			return l.fail(stage, "token cells must be consumed")
		}
		for i := range s.Outputs {
			if s.Outputs[i].Type != nil {
				return l.fail(stage, "output %d still carries a "+
					"type script", i)
			}
		}

	default:
		return l.fail(stage, "unknown stage")
	}

	return nil
}

// checkTokenOutputs checks the leading outputs hold the allocations, each in
// a cell funded with its occupied capacity.
func (l *SUDTLab) checkTokenOutputs(stage string, s *txbuilder.Skeleton,
	allocs []Allocation) error {

	if len(s.Outputs) < len(allocs) {
		return l.fail(stage, "%d token outputs are required",
			len(allocs))
	}

	for i, a := range allocs {
		out := &s.Outputs[i]
		if !out.Lock.Equals(l.env.lock(a.Account)) ||
			!out.Type.Equals(l.typeScript) {

			return l.fail(stage, "output %d must be a token cell "+
				"of %s", i, a.Account.Name)
		}

		amt, err := txbuilder.TokenAmountOf(out.Data)
		if err != nil {
			return l.fail(stage, "output %d: %v", i, err)
		}
		if !amt.Equals64(a.Amount) {
			return l.fail(stage, "output %d must hold %d tokens, "+
				"not %v", i, a.Amount, amt)
		}

		if out.Capacity < out.OccupiedCapacity() {
			return l.fail(stage, "output %d needs %v", i,
				out.OccupiedCapacity())
		}
	}

	return nil
}

// Run executes every stage.
func (l *SUDTLab) Run(ctx context.Context) error {
	if err := l.Deploy(ctx); err != nil {
		return err
	}
	if err := l.Create(ctx); err != nil {
		return err
	}
	if err := l.Transfer(ctx); err != nil {
		return err
	}

	return l.Consume(ctx)
}

// Deploy puts the sUDT binary on chain and derives Alice's token.
func (l *SUDTLab) Deploy(ctx context.Context) error {
	alice := l.env.lock(l.accounts.Alice)

	s := l.env.newSkeleton()
	s.AddOutput(codeOutput(l.binary, alice))
	if err := l.env.fund(ctx, s, alice); err != nil {
		return err
	}
	if err := l.Validate(StageDeploy, s); err != nil {
		return err
	}

	hash, err := l.env.finish(ctx, s, "Alice deploys the sUDT code")
	if err != nil {
		return err
	}

	l.code = deployment(l.binary, hash, 0)
	l.typeScript = udt.SUDTTypeScript(
		l.code.DataHash, ckbwire.HashTypeData1, alice.Hash(),
	)

	return l.env.record(l.code)
}

// UseDeployment skips Deploy, running the lab against code deployed
// earlier. ErrDeploymentSpent is returned when its code cell is gone.
func (l *SUDTLab) UseDeployment(ctx context.Context,
	d *deploystore.Deployment) error {

	if err := l.env.checkDeployment(ctx, d); err != nil {
		return err
	}

	l.code = d
	l.typeScript = udt.SUDTTypeScript(
		d.DataHash, ckbwire.HashTypeData1,
		l.env.lock(l.accounts.Alice).Hash(),
	)

	return nil
}

func (l *SUDTLab) tokenSkeleton() *txbuilder.Skeleton {
	s := l.env.newSkeleton()
	s.AddCellDep(l.code.CellDep())

	return s
}

func (l *SUDTLab) addTokenOutputs(s *txbuilder.Skeleton,
	allocs []Allocation) {

	for _, a := range allocs {
		s.AddOutput(udt.TokenOutput(
			l.env.lock(a.Account), l.typeScript,
			ckbutil.NewTokenAmount(a.Amount),
		))
	}
}

// Create mints the planned token cells, paid for by Alice.
func (l *SUDTLab) Create(ctx context.Context) error {
	s := l.tokenSkeleton()
	l.addTokenOutputs(s, l.plan.Mint)

	if err := l.env.fund(ctx, s, l.env.lock(l.accounts.Alice)); err != nil {
		return err
	}
	if err := l.Validate(StageCreate, s); err != nil {
		return err
	}

	_, err := l.env.finish(ctx, s, "Alice mints sUDT tokens")

	return err
}

// Transfer sends tokens out of Alice's token cells, returning the rest to
// her.
func (l *SUDTLab) Transfer(ctx context.Context) error {
	alice := l.env.lock(l.accounts.Alice)

	required := sumAllocations(l.plan.Transfer)

	candidates, err := indexer.CollectAll(
		ctx, l.env.Chain, indexer.TypedCells(alice, l.typeScript),
	)
	if err != nil {
		return err
	}
	tokenCells, _, err := txbuilder.CollectTokenCells(
		required, l.typeScript, candidates,
	)
	if err != nil {
		return err
	}

	s := l.tokenSkeleton()
	if err := s.AddInputs(tokenCells...); err != nil {
		return err
	}
	l.addTokenOutputs(s, l.plan.Transfer)

	_, err = s.AddTokenChange(
		l.typeScript, alice, udt.TokenCellCapacity(alice, l.typeScript),
	)
	if err != nil {
		return err
	}

	if err := l.env.fund(ctx, s, alice); err != nil {
		return err
	}
	if err := l.Validate(StageTransfer, s); err != nil {
		return err
	}

	_, err = l.env.finish(ctx, s, "Alice transfers sUDT tokens")

	return err
}

// Consume burns all of Alice's token cells, their capacity returns to her
// as a plain cell.
func (l *SUDTLab) Consume(ctx context.Context) error {
	alice := l.env.lock(l.accounts.Alice)

	tokenCells, err := indexer.CollectAll(
		ctx, l.env.Chain, indexer.TypedCells(alice, l.typeScript),
	)
	if err != nil {
		return err
	}

	s := l.tokenSkeleton()
	if err := s.AddInputs(tokenCells...); err != nil {
		return err
	}
	if err := l.env.fund(ctx, s, alice); err != nil {
		return err
	}
	if err := l.Validate(StageConsume, s); err != nil {
		return err
	}

	_, err = l.env.finish(ctx, s, "Alice burns her sUDT tokens")

	return err
}

// DeployedCode returns the sUDT code cell, nil before Deploy.
func (l *SUDTLab) DeployedCode() *deploystore.Deployment {
	return l.code
}
