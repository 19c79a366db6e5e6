package txbuilder

import (
	"testing"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/stretchr/testify/require"
)

func tokenType(owner *ckbwire.Script) *ckbwire.Script {
	hash := owner.Hash()

	return &ckbwire.Script{
		CodeHash: ckbhash.Blake2b256([]byte("sudt")),
		HashType: ckbwire.HashTypeType,
		Args:     hash[:],
	}
}

func tokenCell(txByte byte, index uint32, lock, typ *ckbwire.Script,
	amt uint64) Cell {

	cell := testCell(txByte, index, lock, ckbutil.CKBytes(142))
	cell.Output.Type = typ
	cell.Data = ckbutil.EncodeU128LE(ckbutil.NewTokenAmount(amt))

	return cell
}

func TestTokenSums(t *testing.T) {
	t.Parallel()

	owner, alice, bob := testLock(1), testLock(2), testLock(3)
	typ := tokenType(owner)
	other := tokenType(alice)

	s := NewSkeleton()
	require.NoError(t, s.AddInputs(
		tokenCell(1, 0, alice, typ, 100),
		tokenCell(1, 1, alice, other, 5_000),
		tokenCell(1, 2, alice, typ, 50),
		testCell(1, 3, alice, ckbutil.CKBytes(100)),
	))
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(142),
		Lock:     *bob,
		Type:     typ,
	}, ckbutil.EncodeU128LE(ckbutil.NewTokenAmount(120)))

	in, err := s.InputTokens(typ)
	require.NoError(t, err)
	require.Equal(t, ckbutil.NewTokenAmount(150), in)

	out, err := s.OutputTokens(typ)
	require.NoError(t, err)
	require.Equal(t, ckbutil.NewTokenAmount(120), out)

	require.NoError(t, s.CheckTokenBalance(typ))
	var imbalance *ErrTokenImbalance
	require.ErrorAs(t, s.CheckTokenConservation(typ), &imbalance)

	idx, err := s.AddTokenChange(typ, alice, ckbutil.CKBytes(142))
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.NoError(t, s.CheckTokenConservation(typ))

	amt, err := TokenAmountOf(s.Outputs[idx].Data)
	require.NoError(t, err)
	require.Equal(t, ckbutil.NewTokenAmount(30), amt)

	// Nothing left to return.
	idx, err = s.AddTokenChange(typ, alice, ckbutil.CKBytes(142))
	require.NoError(t, err)
	require.Equal(t, -1, idx)
}

func TestTokenMintNeedsOwner(t *testing.T) {
	t.Parallel()

	owner, alice := testLock(1), testLock(2)
	typ := tokenType(owner)

	mint := func(inputLock *ckbwire.Script) *Skeleton {
		s := NewSkeleton()
		require.NoError(t, s.AddInputs(
			testCell(7, 0, inputLock, ckbutil.CKBytes(1000)),
		))
		s.AddOutput(ckbwire.CellOutput{
			Capacity: ckbutil.CKBytes(142),
			Lock:     *alice,
			Type:     typ,
		}, ckbutil.EncodeU128LE(ckbutil.NewTokenAmount(1_000)))

		return s
	}

	s := mint(owner)
	require.True(t, s.IsOwnerMode(typ))
	require.NoError(t, s.CheckTokenBalance(typ))

	s = mint(alice)
	require.False(t, s.IsOwnerMode(typ))
	var imbalance *ErrTokenImbalance
	require.ErrorAs(t, s.CheckTokenBalance(typ), &imbalance)
	require.True(t, imbalance.Inputs.IsZero())

	_, err := s.AddTokenChange(typ, alice, ckbutil.CKBytes(142))
	require.ErrorAs(t, err, &imbalance)
}

func TestShortTokenData(t *testing.T) {
	t.Parallel()

	alice := testLock(2)
	typ := tokenType(alice)

	cell := tokenCell(1, 0, alice, typ, 1)
	cell.Data = cell.Data[:8]

	s := NewSkeleton()
	require.NoError(t, s.AddInputs(cell))
	_, err := s.InputTokens(typ)
	require.Error(t, err)
}

func TestCollectTokenCells(t *testing.T) {
	t.Parallel()

	alice := testLock(2)
	typ := tokenType(testLock(1))
	candidates := []Cell{
		testCell(1, 0, alice, ckbutil.CKBytes(100)),
		tokenCell(1, 1, alice, typ, 300),
		tokenCell(1, 2, alice, typ, 400),
		tokenCell(1, 3, alice, typ, 500),
	}

	cells, total, err := CollectTokenCells(
		ckbutil.NewTokenAmount(500), typ, candidates,
	)
	require.NoError(t, err)
	require.Equal(t, candidates[1:3], cells)
	require.Equal(t, ckbutil.NewTokenAmount(700), total)

	_, total, err = CollectTokenCells(
		ckbutil.NewTokenAmount(1_201), typ, candidates,
	)
	var imbalance *ErrTokenImbalance
	require.ErrorAs(t, err, &imbalance)
	require.Equal(t, ckbutil.NewTokenAmount(1_200), total)
}
