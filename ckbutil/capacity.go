package ckbutil

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// ShannonPerCKByte is the number of shannons in one CKByte.
	ShannonPerCKByte = 100_000_000

	// ckbDecimals is the number of fractional digits of a CKByte.
	ckbDecimals = 8
)

// ErrCapacityOverflow is returned when a sum of capacities does not fit in
// 64 bits.
var ErrCapacityOverflow = errors.New("capacity overflow")

// Capacity is an amount of CKB expressed in shannons. One CKByte of
// capacity allows a cell to occupy one byte of on-chain state.
type Capacity uint64

// CKBytes returns the capacity of n whole CKBytes.
func CKBytes(n uint64) Capacity {
	return Capacity(n * ShannonPerCKByte)
}

// ToCKBytes returns the capacity as a floating point number of CKBytes. It is
// only meant for display.
func (c Capacity) ToCKBytes() float64 {
	return float64(c) / ShannonPerCKByte
}

// String formats the capacity with all eight decimals and the CKB unit.
func (c Capacity) String() string {
	whole := uint64(c) / ShannonPerCKByte
	frac := uint64(c) % ShannonPerCKByte

	return fmt.Sprintf("%d.%08d CKB", whole, frac)
}

// Add returns c + other, failing on overflow.
func (c Capacity) Add(other Capacity) (Capacity, error) {
	if uint64(c) > math.MaxUint64-uint64(other) {
		return 0, ErrCapacityOverflow
	}

	return c + other, nil
}

// SafeSub returns c - other and whether the subtraction did not underflow.
func (c Capacity) SafeSub(other Capacity) (Capacity, bool) {
	if other > c {
		return 0, false
	}

	return c - other, true
}

// SumCapacities adds up the given capacities, failing on overflow.
func SumCapacities(caps ...Capacity) (Capacity, error) {
	var total Capacity
	for _, c := range caps {
		var err error
		total, err = total.Add(c)
		if err != nil {
			return 0, err
		}
	}

	return total, nil
}

// ParseCKBytes parses a decimal CKByte amount such as "61" or "100.5" into
// a capacity. At most eight fractional digits are accepted.
func ParseCKBytes(s string) (Capacity, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "CKB")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	wholeStr, fracStr, hasFrac := strings.Cut(s, ".")
	if hasFrac && len(fracStr) > ckbDecimals {
		return 0, fmt.Errorf("amount %q has more than %d decimals",
			s, ckbDecimals)
	}

	whole, err := strconv.ParseUint(wholeStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if whole > math.MaxUint64/ShannonPerCKByte {
		return 0, ErrCapacityOverflow
	}

	var frac uint64
	if hasFrac && fracStr != "" {
		padded := fracStr + strings.Repeat("0", ckbDecimals-len(fracStr))
		frac, err = strconv.ParseUint(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}

	return CKBytes(whole).Add(Capacity(frac))
}

// ParseShannons parses a plain integer amount of shannons.
func ParseShannons(s string) (Capacity, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid shannon amount %q: %w", s, err)
	}

	return Capacity(v), nil
}
