package ckbutil

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"lukechampine.com/uint128"
	"pgregory.net/rapid"
)

func TestParseCKBytes(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		in        string
		expected  Capacity
		expectErr bool
	}{
		{in: "61", expected: CKBytes(61)},
		{in: "61 CKB", expected: CKBytes(61)},
		{in: "100.5", expected: 10_050_000_000},
		{in: "0.00000001", expected: 1},
		{in: "0.", expected: 0},
		{in: "1.123456789", expectErr: true},
		{in: "", expectErr: true},
		{in: "-1", expectErr: true},
		{in: "abc", expectErr: true},
		{in: "999999999999999999", expectErr: true},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.in, func(t *testing.T) {
			t.Parallel()

			c, err := ParseCKBytes(tc.in)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expected, c)
		})
	}
}

func TestCapacityString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "61.00000000 CKB", CKBytes(61).String())
	require.Equal(t, "0.00100000 CKB", Capacity(100_000).String())
	require.InDelta(t, 299.999, (CKBytes(300) - 100_000).ToCKBytes(), 0.01)
}

func TestCapacityArithmetic(t *testing.T) {
	t.Parallel()

	_, err := Capacity(math.MaxUint64).Add(1)
	require.ErrorIs(t, err, ErrCapacityOverflow)

	_, ok := CKBytes(1).SafeSub(CKBytes(2))
	require.False(t, ok)

	sum, err := SumCapacities(CKBytes(100), CKBytes(200), 5)
	require.NoError(t, err)
	require.Equal(t, CKBytes(300)+5, sum)
}

// TestParseStringRoundTrip makes sure every capacity survives formatting
// and parsing.
func TestParseStringRoundTrip(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		c := Capacity(rapid.Uint64Max(math.MaxUint64 / 2).Draw(t, "c"))

		parsed, err := ParseCKBytes(c.String())
		require.NoError(t, err)
		require.Equal(t, c, parsed)
	})
}

func TestU128Codec(t *testing.T) {
	t.Parallel()

	amt := NewTokenAmount(1000)
	b := EncodeU128LE(amt)
	require.Len(t, b, U128Size)
	require.Equal(t, byte(0xe8), b[0])
	require.Equal(t, byte(0x03), b[1])

	decoded, err := DecodeU128LE(append(b, 0xff))
	require.NoError(t, err)
	require.True(t, decoded.Equals(amt))

	_, err = DecodeU128LE(b[:15])
	require.Error(t, err)

	big := uint128.New(1, 2)
	decoded, err = DecodeU128LE(EncodeU128LE(big))
	require.NoError(t, err)
	require.True(t, decoded.Equals(big))

	parsed, err := ParseTokenAmount("340282366920938463463374607431768211455")
	require.NoError(t, err)
	require.True(t, parsed.Equals(uint128.Max))

	_, err = ParseTokenAmount("-5")
	require.Error(t, err)
}

func TestLittleEndianHelpers(t *testing.T) {
	t.Parallel()

	v, err := DecodeU64LE(EncodeU64LE(uint64(CKBytes(1000))))
	require.NoError(t, err)
	require.Equal(t, uint64(100_000_000_000), v)

	_, err = DecodeU64LE([]byte{1})
	require.Error(t, err)

	u, err := DecodeU32LE(EncodeU32LE(21_000_000))
	require.NoError(t, err)
	require.Equal(t, uint32(21_000_000), u)
}

func TestHexJSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Data HexBytes  `json:"data"`
		Num  HexUint64 `json:"num"`
	}

	b, err := json.Marshal(payload{Data: []byte{0xab, 0x01}, Num: 255})
	require.NoError(t, err)
	require.JSONEq(t, `{"data":"0xab01","num":"0xff"}`, string(b))

	var p payload
	require.NoError(t, json.Unmarshal(b, &p))
	require.Equal(t, HexBytes{0xab, 0x01}, p.Data)
	require.Equal(t, HexUint64(255), p.Num)

	require.Error(t, json.Unmarshal([]byte(`{"num":"12"}`), &p))
}
