package ckbhash

import (
	"encoding/hex"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestBlake2b256Vectors checks the personalized digest against values
// produced by the CKB reference implementation.
func TestBlake2b256Vectors(t *testing.T) {
	t.Parallel()

	// The empty input hash is a well known CKB constant.
	require.Equal(
		t,
		"0x44f4c69744d5f8c55d642062949dcae49bc4e7ef43d388c5a12f42b5633d163e",
		Blake2b256().String(),
	)
	require.Equal(t, Blake2b256(), Blake2b256(nil))
}

func TestBlake2b256Concatenation(t *testing.T) {
	t.Parallel()

	a := []byte("hello ")
	b := []byte("world")
	require.Equal(t, Blake2b256([]byte("hello world")), Blake2b256(a, b))

	hasher := NewHasher()
	_, _ = hasher.Write(a)
	_, _ = hasher.Write(b)
	sum := Blake2b256(a, b)
	require.Equal(t, sum[:], hasher.Sum(nil))
}

// TestBlake160LockArg derives the lock arg of a well known public key.
func TestBlake160LockArg(t *testing.T) {
	t.Parallel()

	pubKey, err := hex.DecodeString(
		"024a501efd328e062c8675f2365970728c859c592beeefd6be8ead3d901330bc01",
	)
	require.NoError(t, err)

	arg := Blake160(pubKey)
	require.Equal(
		t, "c8328aabcd9b9e8e64fbc566c4385c3bdeb219d7",
		hex.EncodeToString(arg[:]),
	)

	full := Blake2b256(pubKey)
	require.Equal(t, full[:Blake160Size], arg[:])
}

func TestHashFromStr(t *testing.T) {
	t.Parallel()

	const s = "0x9bd7e06f3ecf4be0f2fcd2188b23f1b9fcc88e5d4b65a8637b17723bbda3cce8"

	h, err := NewHashFromStr(s)
	require.NoError(t, err)
	require.Equal(t, s, h.String())

	noPrefix, err := NewHashFromStr(s[2:])
	require.NoError(t, err)
	require.Equal(t, h, noPrefix)

	_, err = NewHashFromStr("0x1234")
	require.Error(t, err)

	_, err = NewHashFromStr("0xzz")
	require.Error(t, err)

	require.Panics(t, func() { MustHashFromStr("0x00") })
	require.True(t, ZeroHash.IsZero())
	require.False(t, h.IsZero())
}

func TestHashJSON(t *testing.T) {
	t.Parallel()

	h := Blake2b256([]byte("cell"))
	b, err := json.Marshal(h)
	require.NoError(t, err)
	require.Equal(t, `"`+h.String()+`"`, string(b))

	var decoded Hash
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Equal(t, h, decoded)

	require.Error(t, json.Unmarshal([]byte(`"0x12"`), &decoded))
}
