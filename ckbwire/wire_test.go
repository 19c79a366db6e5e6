package ckbwire

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/ckb-labs/ckblab/ckbhash"
	"github.com/ckb-labs/ckblab/ckbutil"
	"github.com/stretchr/testify/require"
)

var secpCodeHash = ckbhash.MustHashFromStr(
	"0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8",
)

func testLock(fill byte) Script {
	return Script{
		CodeHash: secpCodeHash,
		HashType: HashTypeType,
		Args:     bytes.Repeat([]byte{fill}, 20),
	}
}

func TestScriptSerialize(t *testing.T) {
	t.Parallel()

	lock := testLock(0x01)
	b := lock.Serialize()

	// 16 byte header, 32 byte code hash, 1 byte hash type and a 4 byte
	// length prefix for the 20 byte args.
	require.Len(t, b, 73)
	require.Equal(t, "4900000010000000300000003100000", hex.EncodeToString(b)[:31])
	require.Equal(t, secpCodeHash[:], b[16:48])
	require.Equal(t, byte(HashTypeType), b[48])

	decoded, err := DeserializeScript(b)
	require.NoError(t, err)
	require.True(t, decoded.Equals(&lock))

	_, err = DeserializeScript(b[:40])
	require.Error(t, err)

	require.Equal(t, uint64(53), lock.OccupiedCapacity())
	other := testLock(0x02)
	require.NotEqual(t, lock.Hash(), other.Hash())
}

func TestScriptEquals(t *testing.T) {
	t.Parallel()

	a := testLock(1)
	b := testLock(1)
	require.True(t, a.Equals(&b))

	var nilScript *Script
	require.True(t, nilScript.Equals(nil))
	require.False(t, nilScript.Equals(&a))
	require.False(t, a.Equals(nil))

	b.HashType = HashTypeData1
	require.False(t, a.Equals(&b))

	cp := a.Copy()
	cp.Args[0] = 0xff
	require.Equal(t, byte(1), a.Args[0])
}

func TestScriptVecRoundTrip(t *testing.T) {
	t.Parallel()

	a, b := testLock(1), testLock(2)
	b.Args = nil
	encoded := SerializeScriptVec([]*Script{&a, &b})

	decoded, err := DeserializeScriptVec(encoded)
	require.NoError(t, err)
	require.Len(t, decoded, 2)
	require.True(t, decoded[0].Equals(&a))
	require.Equal(t, b.CodeHash, decoded[1].CodeHash)
	require.Empty(t, decoded[1].Args)

	empty, err := DeserializeScriptVec(SerializeScriptVec(nil))
	require.NoError(t, err)
	require.Empty(t, empty)
	require.Equal(t, []byte{4, 0, 0, 0}, SerializeScriptVec(nil))
}

func TestWitnessArgsPlaceholder(t *testing.T) {
	t.Parallel()

	w := WitnessArgs{Lock: make([]byte, 65)}
	b := w.Serialize()

	require.Len(t, b, 85)
	require.Equal(t,
		"55000000100000005500000055000000410000",
		hex.EncodeToString(b)[:38],
	)

	decoded, err := DeserializeWitnessArgs(b)
	require.NoError(t, err)
	require.Equal(t, w.Lock, decoded.Lock)
	require.Nil(t, decoded.InputType)
	require.Nil(t, decoded.OutputType)

	_, err = DeserializeWitnessArgs([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestOccupiedCapacity(t *testing.T) {
	t.Parallel()

	plain := CellOutput{Lock: testLock(1)}
	require.Equal(t, ckbutil.CKBytes(61), plain.OccupiedCapacity(nil))

	typed := CellOutput{Lock: testLock(1), Type: &Script{Args: make([]byte, 32)}}
	require.Equal(
		t, ckbutil.CKBytes(61+65+16),
		typed.OccupiedCapacity(make([]byte, 16)),
	)
}

func testTransaction() *Transaction {
	return &Transaction{
		CellDeps: []CellDep{{
			OutPoint: OutPoint{TxHash: ckbhash.Blake2b256([]byte("dep"))},
			DepType:  DepTypeDepGroup,
		}},
		Inputs: []CellInput{{
			PreviousOutput: OutPoint{
				TxHash: ckbhash.Blake2b256([]byte("in")),
				Index:  1,
			},
		}},
		Outputs: []CellOutput{{
			Capacity: ckbutil.CKBytes(100),
			Lock:     testLock(3),
		}},
		OutputsData: [][]byte{{}},
		Witnesses: [][]byte{
			(&WitnessArgs{Lock: make([]byte, 65)}).Serialize(),
		},
	}
}

func TestTransactionHashIgnoresWitnesses(t *testing.T) {
	t.Parallel()

	tx := testTransaction()
	hash := tx.Hash()

	signed := tx.Copy()
	signed.Witnesses[0] = (&WitnessArgs{
		Lock: bytes.Repeat([]byte{7}, 65),
	}).Serialize()
	require.Equal(t, hash, signed.Hash())
	require.Equal(t, tx.SerializeSize(), signed.SerializeSize())

	changed := tx.Copy()
	changed.Outputs[0].Capacity--
	require.NotEqual(t, hash, changed.Hash())

	// The copy must not share memory with the original.
	require.Equal(t, byte(0), tx.Witnesses[0][20])
}

func TestTransactionSerializeLayout(t *testing.T) {
	t.Parallel()

	tx := testTransaction()
	raw := tx.SerializeRaw()

	fields, err := deserializeTable(raw, 6)
	require.NoError(t, err)
	require.Equal(t, []byte{0, 0, 0, 0}, fields[0])
	require.Len(t, fields[1], 4+37)
	require.Len(t, fields[2], 4)
	require.Len(t, fields[3], 4+44)

	full := tx.Serialize()
	require.Equal(t, len(full)+4, tx.SerializeSize())

	txFields, err := deserializeTable(full, 2)
	require.NoError(t, err)
	require.Equal(t, raw, txFields[0])
}

func TestTransactionJSON(t *testing.T) {
	t.Parallel()

	tx := testTransaction()
	tx.Outputs[0].Type = &Script{HashType: HashTypeData1, Args: []byte{}}

	b, err := json.Marshal(tx)
	require.NoError(t, err)

	var generic map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &generic))
	require.Equal(t, "0x0", generic["version"])
	require.Equal(t, []interface{}{}, generic["header_deps"])

	deps := generic["cell_deps"].([]interface{})
	require.Equal(t, "dep_group", deps[0].(map[string]interface{})["dep_type"])

	outputs := generic["outputs"].([]interface{})
	out := outputs[0].(map[string]interface{})
	require.Equal(t, "0x2540be400", out["capacity"])
	require.Equal(t, "data1", out["type"].(map[string]interface{})["hash_type"])

	var decoded Transaction
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, tx.Hash(), decoded.Hash())
	require.Equal(t, tx.Witnesses, decoded.Witnesses)

	noType := testTransaction()
	b, err = json.Marshal(noType)
	require.NoError(t, err)
	require.Contains(t, string(b), `"type":null`)
}

func TestHashAndDepTypeText(t *testing.T) {
	t.Parallel()

	for _, ht := range []HashType{
		HashTypeData, HashTypeType, HashTypeData1, HashTypeData2,
	} {
		parsed, err := ParseHashType(ht.String())
		require.NoError(t, err)
		require.Equal(t, ht, parsed)
	}
	_, err := ParseHashType("data3")
	require.Error(t, err)
	_, err = HashType(3).MarshalText()
	require.Error(t, err)

	dt, err := ParseDepType("depGroup")
	require.NoError(t, err)
	require.Equal(t, DepTypeDepGroup, dt)
	_, err = ParseDepType("group")
	require.Error(t, err)
}
