package labs

import (
	"context"
	"errors"
	"fmt"

	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/deploystore"
	"github.com/ckb-labs/ckblab/indexer"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/ckb-labs/ckblab/udt"
)

const xudtLab = "xudt"

var (
	// DanielShare is what Alice sends Daniel so he can pay for his token
	// cells.
	DanielShare = ckbutil.CKBytes(10_000)

	// ErrRemainingCellNotFound is returned when the remaining amount
	// cell is not live.
	ErrRemainingCellNotFound = errors.New("remaining amount cell not found")
)

// TotalSupply is the xUDT supply the remaining amount cell starts with.
const TotalSupply uint32 = 21_000_000

// XUDTBinaries are the scripts the xUDT lab deploys.
type XUDTBinaries struct {
	// XUDT is the xUDT type script.
	XUDT *Binary

	// Extension caps the supply, it runs as an xUDT extension script.
	Extension *Binary

	// RemainingAmountLock guards the remaining amount cell.
	RemainingAmountLock *Binary
}

// XUDTPlan is what the xUDT lab mints and moves.
type XUDTPlan struct {
	// Mint lists the token cells Alice creates.
	Mint []Allocation

	// Transfer lists what Daniel sends out of his token cells.
	Transfer []Allocation
}

// DefaultXUDTPlan mints 100, 300 and 700 tokens to Alice and 900 to Daniel,
// who then sends 200 to Bob and 500 to Charlie.
func DefaultXUDTPlan(accounts *Accounts) *XUDTPlan {
	return &XUDTPlan{
		Mint: []Allocation{
			{accounts.Alice, 100},
			{accounts.Alice, 300},
			{accounts.Alice, 700},
			{accounts.Daniel, 900},
		},
		Transfer: []Allocation{
			{accounts.Bob, 200},
			{accounts.Charlie, 500},
		},
	}
}

// XUDTLab issues an xUDT with a capped supply tracked by a type id cell.
type XUDTLab struct {
	env      *Env
	accounts *Accounts
	plan     *XUDTPlan
	binaries *XUDTBinaries

	deps          []*deploystore.Deployment
	remainingType *ckbwire.Script
	typeScript    *ckbwire.Script
}

// NewXUDTLab creates the lab. A nil plan means DefaultXUDTPlan.
func NewXUDTLab(env *Env, accounts *Accounts, binaries *XUDTBinaries,
	plan *XUDTPlan) *XUDTLab {

	if plan == nil {
		plan = DefaultXUDTPlan(accounts)
	}

	return &XUDTLab{
		env:      env,
		accounts: accounts,
		plan:     plan,
		binaries: binaries,
	}
}

// TypeScript returns the xUDT type script once the code is deployed.
func (l *XUDTLab) TypeScript() *ckbwire.Script {
	return l.typeScript
}

// RemainingAmountType returns the type id of the remaining amount cell.
func (l *XUDTLab) RemainingAmountType() *ckbwire.Script {
	return l.remainingType
}

// remainingAmountLock returns the lock of the remaining amount cell.
func (l *XUDTLab) remainingAmountLock() *ckbwire.Script {
	return &ckbwire.Script{
		CodeHash: l.binaries.RemainingAmountLock.DataHash(),
		HashType: ckbwire.HashTypeData1,
		Args:     []byte{},
	}
}

// Run executes every stage.
func (l *XUDTLab) Run(ctx context.Context) error {
	steps := []func(context.Context) error{
		l.ShareCapacity, l.Deploy, l.Create, l.Transfer, l.Consume,
	}
	for _, step := range steps {
		if err := step(ctx); err != nil {
			return err
		}
	}

	return nil
}

// ShareCapacity has Alice send Daniel the capacity for his token cells.
func (l *XUDTLab) ShareCapacity(ctx context.Context) error {
	s := l.env.newSkeleton()
	s.AddOutput(ckbwire.CellOutput{
		Capacity: DanielShare,
		Lock:     *l.env.lock(l.accounts.Daniel),
	}, nil)
	if err := l.env.fund(ctx, s, l.env.lock(l.accounts.Alice)); err != nil {
		return err
	}

	_, err := l.env.finish(ctx, s, "Alice shares Daniel CKB")

	return err
}

// Deploy creates the remaining amount cell at output 0 holding the total
// supply, followed by code cells for the xUDT, extension and remaining
// amount lock binaries.
func (l *XUDTLab) Deploy(ctx context.Context) error {
	alice := l.env.lock(l.accounts.Alice)
	code := []*Binary{
		l.binaries.XUDT, l.binaries.Extension,
		l.binaries.RemainingAmountLock,
	}

	// The type id hashes the first input, so inputs come first.
	required := udt.RemainingAmountCellCapacity
	for _, b := range code {
		required += CodeCellCapacity(alice, len(b.Code))
	}
	required += txbuilder.PlainCellCapacity(alice) + l.env.fee()

	cells, _, err := indexer.CollectCapacity(
		ctx, l.env.Chain, alice, required,
	)
	if err != nil {
		return err
	}

	s := l.env.newSkeleton()
	if err := s.AddInputs(cells...); err != nil {
		return err
	}

	firstInput := ckbwire.CellInput{PreviousOutput: cells[0].OutPoint}
	l.remainingType = udt.TypeIDScript(&firstInput, 0)

	s.AddOutput(ckbwire.CellOutput{
		Capacity: udt.RemainingAmountCellCapacity,
		Lock:     *l.remainingAmountLock(),
		Type:     l.remainingType.Copy(),
	}, udt.EncodeRemainingAmount(TotalSupply))
	for _, b := range code {
		s.AddOutput(codeOutput(b, alice))
	}
	if _, _, err := s.AddChange(alice, l.env.fee()); err != nil {
		return err
	}

	hash, err := l.env.finish(ctx, s, "Alice deploys data and code cells")
	if err != nil {
		return err
	}

	l.deps = make([]*deploystore.Deployment, len(code))
	for i, b := range code {
		l.deps[i] = deployment(b, hash, i+1)
	}

	remaining := &deploystore.Deployment{
		Name:     "xudt-remaining-amount",
		OutPoint: ckbwire.OutPoint{TxHash: hash},
		DataHash: udt.CodeHash(udt.EncodeRemainingAmount(TotalSupply)),
		Size:     4,
	}
	typeHash := l.remainingType.Hash()
	remaining.TypeHash = &typeHash

	if err := l.env.record(append(l.deps, remaining)...); err != nil {
		return err
	}

	l.typeScript = l.xudtTypeScript()

	return nil
}

// xudtTypeScript returns Alice's xUDT type script. Its single extension is
// the supply cap, whose args commit to the remaining amount cell.
func (l *XUDTLab) xudtTypeScript() *ckbwire.Script {
	remainingHash := l.remainingType.Hash()
	extension := &ckbwire.Script{
		CodeHash: l.binaries.Extension.DataHash(),
		HashType: ckbwire.HashTypeData1,
		Args:     remainingHash[:],
	}

	return udt.XUDTTypeScript(
		l.binaries.XUDT.DataHash(), ckbwire.HashTypeData1,
		&udt.XUDTArgs{
			OwnerLockHash: l.env.lock(l.accounts.Alice).Hash(),
			Flags:         udt.XUDTFlagExtensionScripts,
			Extensions:    []*ckbwire.Script{extension},
		},
	)
}

// TokenCellCapacity returns the capacity of an xUDT cell under the default
// lock.
func (l *XUDTLab) TokenCellCapacity() ckbutil.Capacity {
	return udt.TokenCellCapacity(l.env.lock(l.accounts.Alice), l.typeScript)
}

func (l *XUDTLab) tokenSkeleton() *txbuilder.Skeleton {
	s := l.env.newSkeleton()
	for _, d := range l.deps {
		s.AddCellDep(d.CellDep())
	}

	return s
}

func (l *XUDTLab) fail(stage, format string, args ...interface{}) error {
	return validationErr(xudtLab, stage, format, args...)
}

// Create mints the planned token cells and lowers the remaining amount by
// what was minted.
func (l *XUDTLab) Create(ctx context.Context) error {
	s := l.tokenSkeleton()

	capacity := l.TokenCellCapacity()
	minted := sumAllocations(l.plan.Mint)
	for _, a := range l.plan.Mint {
		s.AddOutput(ckbwire.CellOutput{
			Capacity: capacity,
			Lock:     *l.env.lock(a.Account),
			Type:     l.typeScript.Copy(),
		}, udt.TokenData(ckbutil.NewTokenAmount(a.Amount)))
	}

	remainingCells, err := indexer.CollectAll(
		ctx, l.env.Chain, indexer.TypedCells(nil, l.remainingType),
	)
	if err != nil {
		return err
	}
	if len(remainingCells) != 1 {
		return fmt.Errorf("%w: %d cells carry %v",
			ErrRemainingCellNotFound, len(remainingCells),
			l.remainingType.Hash())
	}
	remainingCell := remainingCells[0]

	remaining, err := udt.DecodeRemainingAmount(remainingCell.Data)
	if err != nil {
		return err
	}
	left, err := udt.SpendSupply(remaining, minted)
	if err != nil {
		return l.fail(StageCreate, "%v", err)
	}

	if err := s.AddInputs(remainingCell); err != nil {
		return err
	}
	s.AddOutput(ckbwire.CellOutput{
		Capacity: udt.RemainingAmountCellCapacity,
		Lock:     *l.remainingAmountLock(),
		Type:     l.remainingType.Copy(),
	}, udt.EncodeRemainingAmount(left))

	if err := l.env.fund(ctx, s, l.env.lock(l.accounts.Alice)); err != nil {
		return err
	}
	if !s.IsOwnerMode(l.typeScript) {
		return l.fail(StageCreate, "only Alice can mint")
	}

	log.Infof("Minting %v tokens, %d left", minted, left)

	_, err = l.env.finish(ctx, s, "Alice creates xUDT cells")

	return err
}

// Transfer sends tokens out of Daniel's token cells with token change back
// to him.
func (l *XUDTLab) Transfer(ctx context.Context) error {
	daniel := l.env.lock(l.accounts.Daniel)

	tokenCells, err := indexer.CollectAll(
		ctx, l.env.Chain, indexer.TypedCells(daniel, l.typeScript),
	)
	if err != nil {
		return err
	}

	s := l.tokenSkeleton()
	if err := s.AddInputs(tokenCells...); err != nil {
		return err
	}

	capacity := l.TokenCellCapacity()
	for _, a := range l.plan.Transfer {
		s.AddOutput(ckbwire.CellOutput{
			Capacity: capacity,
			Lock:     *l.env.lock(a.Account),
			Type:     l.typeScript.Copy(),
		}, udt.TokenData(ckbutil.NewTokenAmount(a.Amount)))
	}

	_, err = s.AddTokenChange(l.typeScript, daniel, capacity)
	if err != nil {
		return err
	}
	if err := s.CheckTokenConservation(l.typeScript); err != nil {
		return l.fail(StageTransfer, "%v", err)
	}

	if err := l.env.fund(ctx, s, daniel); err != nil {
		return err
	}

	_, err = l.env.finish(ctx, s, "Daniel transfers xUDT cells")

	return err
}

// Consume burns every xUDT cell Alice holds into one plain cell.
func (l *XUDTLab) Consume(ctx context.Context) error {
	alice := l.env.lock(l.accounts.Alice)

	tokenCells, err := indexer.CollectAll(
		ctx, l.env.Chain, indexer.TypedCells(alice, l.typeScript),
	)
	if err != nil {
		return err
	}
	if len(tokenCells) == 0 {
		return l.fail(StageConsume, "Alice holds no xUDT cells")
	}

	s := l.tokenSkeleton()
	if err := s.AddInputs(tokenCells...); err != nil {
		return err
	}
	if _, _, err := s.AddChange(alice, l.env.fee()); err != nil {
		return err
	}

	_, err = l.env.finish(ctx, s, "Alice burns all her xUDT tokens")

	return err
}
