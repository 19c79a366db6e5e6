package describe

import (
	"bytes"
	"strings"
	"testing"

	"github.com/ckb-labs/ckblab/address"
	"github.com/ckb-labs/ckblab/chainparams"
	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/ckb-labs/ckblab/ckbwire"
	"github.com/ckb-labs/ckblab/txbuilder"
	"github.com/stretchr/testify/require"
)

func testSkeleton(t *testing.T) *txbuilder.Skeleton {
	t.Helper()

	params := &chainparams.TestnetParams
	lock := params.DefaultLock(make([]byte, 20))

	s := txbuilder.NewSkeleton()
	s.AddCellDep(params.Secp256k1Blake160.Dep)
	require.NoError(t, s.AddInputs(txbuilder.Cell{
		OutPoint: ckbwire.OutPoint{
			TxHash: ckbhash.Blake2b256([]byte("in")),
		},
		Output: ckbwire.CellOutput{
			Capacity: ckbutil.CKBytes(200),
			Lock:     *lock,
		},
	}))
	s.AddOutput(ckbwire.CellOutput{
		Capacity: ckbutil.CKBytes(200) - 100_000,
		Lock:     *lock,
	}, bytes.Repeat([]byte{0xab}, 40))
	s.AddDefaultWitnessPlaceholders()

	return s
}

func TestTransaction(t *testing.T) {
	t.Parallel()

	s := testSkeleton(t)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.ShowWitnesses = true
	require.NoError(t, Transaction(&buf, s, opts))

	out := strings.ToLower(buf.String())
	for _, want := range []string{
		"cell deps", "inputs", "outputs", "witnesses",
		"200.00000000 ckb", "199.99900000 ckb", "0.00100000 ckb",
		"(40 bytes)",
	} {
		require.Contains(t, out, want)
	}
}

func TestTransactionToggles(t *testing.T) {
	t.Parallel()

	s := testSkeleton(t)

	var buf bytes.Buffer
	require.NoError(t, Transaction(&buf, s, Options{
		ShowOutputs: true,
		Network:     address.Testnet,
	}))

	out := buf.String()
	lower := strings.ToLower(out)
	require.NotContains(t, lower, "cell deps")
	require.NotContains(t, lower, "inputs ")
	require.NotContains(t, lower, "(40 bytes)")
	require.Contains(t, out, "ckt1")
	require.True(t, strings.HasSuffix(out, "Fee: 0.00100000 CKB\n"))
}

func TestTransactionOverspend(t *testing.T) {
	t.Parallel()

	s := testSkeleton(t)
	s.Outputs[0].Capacity = ckbutil.CKBytes(300)

	var buf bytes.Buffer
	require.NoError(t, Transaction(&buf, s, Options{}))
	require.Contains(t, buf.String(), "outputs exceed inputs")
}

func TestScriptString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "-", ScriptString(nil))

	script := &ckbwire.Script{
		CodeHash: ckbhash.MustHashFromStr(
			"0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8",
		),
		HashType: ckbwire.HashTypeType,
		Args:     []byte{0x01, 0x02},
	}
	require.Equal(t, "0x9bd7e06f..cce8 type 0x0102", ScriptString(script))
}

func TestCells(t *testing.T) {
	t.Parallel()

	s := testSkeleton(t)

	var buf bytes.Buffer
	require.NoError(t, Cells(&buf, "Live cells", s.Inputs, ""))
	require.Contains(t, strings.ToLower(buf.String()), "1 cells")
}
