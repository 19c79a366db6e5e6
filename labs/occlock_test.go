package labs

import (
	"context"
	"testing"

	"github.com/ckb-labs/ckblab/ckbmock"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/locks"
	"github.com/ckb-labs/ckblab/rpcclient"
	"github.com/stretchr/testify/require"
)

func newOCCHarness(t *testing.T) (*testHarness, *OCCLockLab) {
	t.Helper()

	h := newTestHarness(t)
	binary := testBinary("occ-lock", 0x0c, 150)
	h.chain.RegisterScript(binary.DataHash(), ckbmock.VerifyOCCLock)
	h.fund(h.accounts.Daniel, 5_000)

	return h, NewOCCLockLab(h.env, h.accounts, binary)
}

func TestOCCLockLab(t *testing.T) {
	t.Parallel()

	h, lab := newOCCHarness(t)
	require.NoError(t, lab.Run(context.Background()))
	require.Len(t, h.chain.Transactions(), 3)

	args, err := locks.ParseOCCLockArgs(lab.Lock().Args)
	require.NoError(t, err)
	require.Equal(t, DefaultOCCArgs, args)

	require.Empty(t, h.chain.LiveCells(lab.Lock()))

	var paid int
	for _, c := range h.plainCapacities(h.accounts.Daniel) {
		if c == DefaultOCCArgs.Amount {
			paid++
		}
	}
	require.Equal(t, 3, paid)
}

func TestOCCLockRejectsShortSpend(t *testing.T) {
	t.Parallel()

	h, lab := newOCCHarness(t)

	ctx := context.Background()
	require.NoError(t, lab.Deploy(ctx))
	require.NoError(t, lab.Create(ctx))

	// Spend the two OCC cells back to Daniel without the outputs the
	// lock demands.
	occCells := h.chain.LiveCells(lab.Lock())
	require.Len(t, occCells, 2)

	daniel := h.env.lock(h.accounts.Daniel)
	s := h.env.newSkeleton()
	s.AddCellDep(lab.code.CellDep())
	require.NoError(t, s.AddInputs(occCells...))
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(1_000) - DefaultFee,
		Lock:     *daniel,
	}, nil)

	var vErr *ValidationError
	require.ErrorAs(t, lab.validate(s), &vErr)

	_, err := h.env.finish(ctx, s, "Short spend")
	require.ErrorIs(t, err, rpcclient.ErrTxRejected)
	require.ErrorIs(t, err, ckbmock.ErrLockNotSatisfied)
	require.Len(t, h.chain.LiveCells(lab.Lock()), 2)
}
