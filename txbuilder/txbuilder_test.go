package txbuilder

import (
	"testing"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testCodeHash = ckbhash.MustHashFromStr(
	"0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8",
)

func testLock(b byte) *ckbwire.Script {
	args := make([]byte, 20)
	args[19] = b

	return &ckbwire.Script{
		CodeHash: testCodeHash,
		HashType: ckbwire.HashTypeType,
		Args:     args,
	}
}

func testCell(txByte byte, index uint32, lock *ckbwire.Script,
	capacity ckbutil.Capacity) Cell {

	var txHash ckbhash.Hash
	txHash[0] = txByte

	return Cell{
		OutPoint: ckbwire.OutPoint{TxHash: txHash, Index: index},
		Output: ckbwire.CellOutput{
			Capacity: capacity,
			Lock:     *lock,
		},
	}
}

func TestAddCellDepDedup(t *testing.T) {
	t.Parallel()

	s := NewSkeleton()
	dep := ckbwire.CellDep{DepType: ckbwire.DepTypeDepGroup}
	require.True(t, s.AddCellDep(dep))
	require.False(t, s.AddCellDep(dep))

	other := dep
	other.OutPoint.Index = 1
	s.AddCellDeps(dep, other, other)
	require.Equal(t, []ckbwire.CellDep{dep, other}, s.CellDeps)
}

func TestAddInputsDuplicate(t *testing.T) {
	t.Parallel()

	lock := testLock(1)
	a := testCell(1, 0, lock, ckbutil.CKBytes(100))
	b := testCell(1, 1, lock, ckbutil.CKBytes(100))

	s := NewSkeleton()
	require.NoError(t, s.AddInputs(a))
	require.ErrorIs(t, s.AddInputs(b, a), ErrDuplicateInput)
	require.ErrorIs(t, s.AddInputs(b, b), ErrDuplicateInput)
	require.Len(t, s.Inputs, 1)

	require.NoError(t, s.AddInputs(b))
	require.True(t, s.HasInput(b.OutPoint))
}

func TestCapacityRequired(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		inputs   ckbutil.Capacity
		outputs  ckbutil.Capacity
		fee      ckbutil.Capacity
		reserve  ckbutil.Capacity
		required ckbutil.Capacity
	}{{
		name:     "no inputs",
		outputs:  ckbutil.CKBytes(300),
		fee:      100_000,
		reserve:  ckbutil.CKBytes(61),
		required: ckbutil.CKBytes(361) + 100_000,
	}, {
		name:     "partially funded",
		inputs:   ckbutil.CKBytes(200),
		outputs:  ckbutil.CKBytes(300),
		fee:      100_000,
		required: ckbutil.CKBytes(100) + 100_000,
	}, {
		name:    "fully funded",
		inputs:  ckbutil.CKBytes(1000),
		outputs: ckbutil.CKBytes(300),
		fee:     100_000,
		reserve: ckbutil.CKBytes(61),
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			required, err := CapacityRequired(
				tc.inputs, tc.outputs, tc.fee, tc.reserve,
			)
			require.NoError(t, err)
			require.Equal(t, tc.required, required)
		})
	}
}

func TestAddChange(t *testing.T) {
	t.Parallel()

	alice, daniel := testLock(1), testLock(4)
	fee := ckbutil.Capacity(DefaultFixedFee)

	s := NewSkeleton()
	require.NoError(t, s.AddInputs(
		testCell(1, 0, alice, ckbutil.CKBytes(500)),
	))
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(300),
		Lock:     *daniel,
	}, nil)

	idx, change, err := s.AddChange(alice, fee)
	require.NoError(t, err)
	require.Equal(t, 1, idx)
	require.Equal(t, ckbutil.CKBytes(200)-fee, change)

	got, err := s.Fee()
	require.NoError(t, err)
	require.Equal(t, fee, got)
	require.NoError(t, s.ValidateCapacity())

	// 60.999 CKB left over cannot form a 61 CKB change cell.
	s = NewSkeleton()
	require.NoError(t, s.AddInputs(
		testCell(2, 0, alice, ckbutil.CKBytes(361)),
	))
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(300),
		Lock:     *daniel,
	}, nil)
	_, _, err = s.AddChange(alice, fee)
	var belowErr *ErrChangeBelowMinimum
	require.ErrorAs(t, err, &belowErr)
	require.Equal(t, ckbutil.CKBytes(61), belowErr.Minimum)

	// Outputs above inputs.
	s.Outputs[0].Capacity = ckbutil.CKBytes(400)
	_, _, err = s.AddChange(alice, fee)
	var capErr *ErrInsufficientCapacity
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, ckbutil.CKBytes(400)+fee, capErr.Required)
}

func TestValidateCapacity(t *testing.T) {
	t.Parallel()

	lock := testLock(1)
	s := NewSkeleton()
	require.ErrorIs(t, s.ValidateCapacity(), ErrNoInputs)

	require.NoError(t, s.AddInputs(
		testCell(1, 0, lock, ckbutil.CKBytes(100)),
	))
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(60),
		Lock:     *lock,
	}, nil)

	var underErr *ErrUnderfundedOutput
	require.ErrorAs(t, s.ValidateCapacity(), &underErr)
	require.Equal(t, ckbutil.CKBytes(61), underErr.Occupied)

	s.Outputs[0].Capacity = ckbutil.CKBytes(101)
	require.ErrorIs(t, s.ValidateCapacity(), ErrOutputsExceedInputs)

	s.Outputs[0].Capacity = ckbutil.CKBytes(100)
	require.NoError(t, s.ValidateCapacity())
}

func TestLockGroupsAndPlaceholders(t *testing.T) {
	t.Parallel()

	a, b := testLock(1), testLock(2)
	s := NewSkeleton()
	require.NoError(t, s.AddInputs(
		testCell(1, 0, a, ckbutil.CKBytes(100)),
		testCell(1, 1, b, ckbutil.CKBytes(100)),
		testCell(1, 2, a, ckbutil.CKBytes(100)),
	))

	groups := s.LockGroups()
	require.Len(t, groups, 2)
	require.Equal(t, a.Hash(), groups[0].LockHash)
	require.Equal(t, []int{0, 2}, groups[0].InputIndices)
	require.Equal(t, []int{1}, groups[1].InputIndices)

	extra := []byte{0xde, 0xad}
	s.Witnesses = [][]byte{nil, nil, nil, extra}
	s.AddDefaultWitnessPlaceholders()

	require.Len(t, s.Witnesses, 4)
	require.Len(t, s.Witnesses[0], 85)
	require.Len(t, s.Witnesses[1], 85)
	require.Empty(t, s.Witnesses[2])
	require.Equal(t, extra, s.Witnesses[3])

	args, err := ckbwire.DeserializeWitnessArgs(s.Witnesses[0])
	require.NoError(t, err)
	require.Equal(t, make([]byte, SignaturePlaceholderSize), args.Lock)

	// Type fields of an existing WitnessArgs survive.
	existing := (&ckbwire.WitnessArgs{InputType: []byte{1, 2}}).Serialize()
	args, err = ckbwire.DeserializeWitnessArgs(PlaceholderWitness(existing))
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2}, args.InputType)
	require.Len(t, args.Lock, SignaturePlaceholderSize)
}

func TestBuild(t *testing.T) {
	t.Parallel()

	lock := testLock(1)
	s := NewSkeleton()
	s.AddCellDep(ckbwire.CellDep{DepType: ckbwire.DepTypeDepGroup})
	cell := testCell(9, 3, lock, ckbutil.CKBytes(100))
	require.NoError(t, s.AddInputs(cell))
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(99),
		Lock:     *lock,
	}, []byte{7})
	s.AddDefaultWitnessPlaceholders()

	tx := s.Build()
	require.Len(t, tx.Inputs, 1)
	require.Equal(t, cell.OutPoint, tx.Inputs[0].PreviousOutput)
	require.Zero(t, tx.Inputs[0].Since)
	require.Equal(t, [][]byte{{7}}, tx.OutputsData)
	require.Len(t, tx.Witnesses, 1)

	// Witnesses are not committed to by the hash.
	hash := s.TxHash()
	s.Witnesses[0] = []byte{}
	require.Equal(t, hash, s.TxHash())

	// A copy is independent.
	cp := s.Copy()
	cp.Outputs[0].Data[0] = 8
	require.Equal(t, byte(7), s.Outputs[0].Data[0])
}

func TestFeeRate(t *testing.T) {
	t.Parallel()

	require.Equal(t, ckbutil.Capacity(1001), FeeRate(1000).FeeForSize(1001))
	require.Equal(t, ckbutil.Capacity(5), FeeRate(1500).FeeForSize(3))
	require.Equal(t, ckbutil.Capacity(0), FeeRate(0).FeeForSize(500))
	require.Equal(t, ckbutil.Capacity(100_000),
		DefaultFixedFee.FeeForSize(10_000))
}

func TestCalculateChangeAmount(t *testing.T) {
	t.Parallel()

	const (
		fee    = ckbutil.Capacity(1_000)
		feeChg = ckbutil.Capacity(1_100)
	)
	minChange := ckbutil.CKBytes(61)
	required := ckbutil.CKBytes(100)

	testCases := []struct {
		name      string
		input     ckbutil.Capacity
		change    ckbutil.Capacity
		newNeeded ckbutil.Capacity
		expectErr bool
	}{{
		name:      "fee not covered",
		input:     required + fee - 1,
		newNeeded: required + fee,
	}, {
		name:  "exact without change",
		input: required + fee,
	}, {
		name:      "leftover too small for change cell",
		input:     required + fee + 1,
		newNeeded: required + feeChg + minChange,
	}, {
		name:   "change cell",
		input:  required + feeChg + minChange,
		change: minChange,
	}, {
		name:   "large change",
		input:  ckbutil.CKBytes(1000),
		change: ckbutil.CKBytes(900) - feeChg,
	}}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			change, newNeeded, err := CalculateChangeAmount(
				tc.input, required, fee, feeChg, minChange,
				DefaultMaxFeeRatio,
			)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.change, change)
			require.Equal(t, tc.newNeeded, newNeeded)
		})
	}

	// Fees above the ratio are refused.
	_, _, err := CalculateChangeAmount(
		required+required, required, required, required, minChange,
		0.5,
	)
	require.ErrorContains(t, err, "exceeds max fee")

	_, _, err = CalculateChangeAmount(
		required+fee, required, fee, feeChg, minChange, 0,
	)
	require.ErrorContains(t, err, "maxFeeRatio")
}

func TestSelectCells(t *testing.T) {
	t.Parallel()

	lock := testLock(1)
	typed := testCell(1, 0, lock, ckbutil.CKBytes(1000))
	typed.Output.Type = testLock(9)
	cells := []Cell{
		typed,
		testCell(1, 1, lock, ckbutil.CKBytes(100)),
		testCell(1, 2, lock, ckbutil.CKBytes(100)),
	}

	total, selected, err := SelectCells(ckbutil.CKBytes(150), cells)
	require.NoError(t, err)
	require.Equal(t, ckbutil.CKBytes(200), total)
	require.Equal(t, cells[1:], selected)

	_, _, err = SelectCells(ckbutil.CKBytes(201), cells)
	var capErr *ErrInsufficientCapacity
	require.ErrorAs(t, err, &capErr)
	require.Equal(t, ckbutil.CKBytes(200), capErr.Available)

	total, selected, err = SelectCells(0, cells)
	require.NoError(t, err)
	require.Zero(t, total)
	require.Empty(t, selected)
}

func TestCompleteFixedFee(t *testing.T) {
	t.Parallel()

	alice, daniel := testLock(1), testLock(4)
	candidates := []Cell{
		testCell(1, 0, alice, ckbutil.CKBytes(100)),
		testCell(1, 1, alice, ckbutil.CKBytes(100)),
		testCell(1, 2, alice, ckbutil.CKBytes(100)),
	}

	s := NewSkeleton()
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(100),
		Lock:     *daniel,
	}, nil)

	fee, err := Complete(
		s, candidates, alice, DefaultFixedFee, DefaultMaxFeeRatio,
	)
	require.NoError(t, err)
	require.Equal(t, ckbutil.Capacity(DefaultFixedFee), fee)

	// The first cell only covers the output, the second pays for fee and
	// change.
	require.Len(t, s.Inputs, 2)
	require.Len(t, s.Outputs, 2)
	require.Equal(t, ckbutil.CKBytes(100)-fee, s.Outputs[1].Capacity)
	require.NoError(t, s.ValidateCapacity())

	// Both inputs share alice's lock: the group's first input carries the
	// placeholder, the other an empty witness.
	require.Len(t, s.Witnesses, len(s.Inputs))
	placeholder, err := ckbwire.DeserializeWitnessArgs(s.Witnesses[0])
	require.NoError(t, err)
	require.Equal(t, make([]byte, SignaturePlaceholderSize),
		placeholder.Lock)
	require.Empty(t, s.Witnesses[1])
}

func TestCompleteInsufficient(t *testing.T) {
	t.Parallel()

	alice := testLock(1)
	s := NewSkeleton()
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(100),
		Lock:     *alice,
	}, nil)

	_, err := CompleteWithFeeRate(s, []Cell{
		testCell(1, 0, alice, ckbutil.CKBytes(100)),
	}, alice, MinFeeRate)

	var capErr *ErrInsufficientCapacity
	require.ErrorAs(t, err, &capErr)
	require.Empty(t, s.Inputs)
}

// TestCompleteConservesCapacity checks that whatever cells and outputs are
// thrown at the selection, a completed transaction spends exactly its
// inputs on outputs plus the estimated fee and every output can hold
// itself.
func TestCompleteConservesCapacity(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		owner, receiver := testLock(1), testLock(2)

		numCells := rapid.IntRange(1, 20).Draw(t, "numCells")
		candidates := make([]Cell, numCells)
		for i := range candidates {
			ckb := rapid.Uint64Range(61, 5_000).Draw(t, "cellCKB")
			candidates[i] = testCell(
				1, uint32(i), owner, ckbutil.CKBytes(ckb),
			)
		}

		s := NewSkeleton()
		numOutputs := rapid.IntRange(1, 4).Draw(t, "numOutputs")
		for i := 0; i < numOutputs; i++ {
			ckb := rapid.Uint64Range(61, 3_000).Draw(t, "outputCKB")
			s.AddOutput(ckbwire.CellOutput{
				Capacity: ckbutil.CKBytes(ckb),
				Lock:     *receiver,
			}, nil)
		}

		var estimator FeeEstimator = DefaultFixedFee
		if rapid.Bool().Draw(t, "feeRate") {
			estimator = FeeRate(
				rapid.Uint64Range(1_000, 5_000).Draw(t, "rate"),
			)
		}

		fee, err := Complete(s, candidates, owner, estimator, 1.0)
		if err != nil {
			var capErr *ErrInsufficientCapacity
			require.ErrorAs(t, err, &capErr)
			return
		}

		in, err := s.InputCapacity()
		require.NoError(t, err)
		out, err := s.OutputCapacity()
		require.NoError(t, err)
		require.Equal(t, in, out+fee)

		size := s.Build().SerializeSize()
		require.Equal(t, estimator.FeeForSize(size), fee)
		require.NoError(t, s.ValidateCapacity())
		require.Len(t, s.Witnesses, len(s.Inputs))
	})
}
