package ckbutil

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"lukechampine.com/uint128"
)

// TokenAmount is a user defined token amount. SUDT and xUDT cells store it
// as a 16 byte little endian integer at the start of the cell data.
type TokenAmount = uint128.Uint128

// U128Size is the size of an encoded token amount.
const U128Size = 16

// NewTokenAmount returns a token amount from a uint64.
func NewTokenAmount(v uint64) TokenAmount {
	return uint128.From64(v)
}

// ParseTokenAmount parses a base 10 token amount.
func ParseTokenAmount(s string) (TokenAmount, error) {
	amt, err := uint128.FromString(strings.TrimSpace(s))
	if err != nil {
		return uint128.Zero, fmt.Errorf("invalid token amount %q: %w",
			s, err)
	}

	return amt, nil
}

// EncodeU128LE encodes a token amount as 16 little endian bytes.
func EncodeU128LE(amt TokenAmount) []byte {
	b := make([]byte, U128Size)
	amt.PutBytes(b)

	return b
}

// DecodeU128LE decodes the token amount stored in the first 16 bytes of
// data. Extra trailing bytes are ignored.
func DecodeU128LE(data []byte) (TokenAmount, error) {
	if len(data) < U128Size {
		return uint128.Zero, fmt.Errorf("token data too short: %d "+
			"bytes, need %d", len(data), U128Size)
	}

	return uint128.FromBytes(data[:U128Size]), nil
}

// EncodeU64LE encodes v as 8 little endian bytes.
func EncodeU64LE(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)

	return b
}

// DecodeU64LE decodes 8 little endian bytes.
func DecodeU64LE(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, fmt.Errorf("u64 needs 8 bytes, got %d", len(b))
	}

	return binary.LittleEndian.Uint64(b), nil
}

// EncodeU32LE encodes v as 4 little endian bytes.
func EncodeU32LE(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)

	return b
}

// DecodeU32LE decodes 4 little endian bytes.
func DecodeU32LE(b []byte) (uint32, error) {
	if len(b) < 4 {
		return 0, fmt.Errorf("u32 needs 4 bytes, got %d", len(b))
	}

	return binary.LittleEndian.Uint32(b), nil
}

// HexBytes is a byte slice that encodes to and from 0x prefixed hex.
type HexBytes []byte

// String returns the 0x prefixed hex form.
func (h HexBytes) String() string {
	return "0x" + hex.EncodeToString(h)
}

// MarshalText implements encoding.TextMarshaler.
func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexBytes) UnmarshalText(text []byte) error {
	b, err := DecodeHex(string(text))
	if err != nil {
		return err
	}
	*h = b

	return nil
}

// DecodeHex decodes a hex string with an optional 0x prefix.
func DecodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", s, err)
	}

	return b, nil
}

// HexUint64 is an integer that the node RPC encodes as a 0x prefixed hex
// quantity.
type HexUint64 uint64

// MarshalText implements encoding.TextMarshaler.
func (h HexUint64) MarshalText() ([]byte, error) {
	return []byte("0x" + strconv.FormatUint(uint64(h), 16)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *HexUint64) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("hex quantity %q missing 0x prefix", s)
	}

	v, err := strconv.ParseUint(s[2:], 16, 64)
	if err != nil {
		return fmt.Errorf("invalid hex quantity %q: %w", s, err)
	}
	*h = HexUint64(v)

	return nil
}
