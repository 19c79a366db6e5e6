package txbuilder

import (
	"fmt"

	"github.com/ckb-labs/ckblab/ckbutil"
)

const (
	// DefaultFixedFee is the flat fee, in shannons, every lab transaction
	// pays. It is well above what the minimum fee rate asks for a
	// transaction of a few kilobytes.
	DefaultFixedFee = FixedFee(100_000)

	// MinFeeRate is the node's default minimum fee rate in shannons per
	// 1000 bytes.
	MinFeeRate = FeeRate(1_000)
)

// FeeEstimator returns the fee a transaction of the given serialized size
// has to pay.
type FeeEstimator interface {
	// FeeForSize returns the fee for a transaction of size bytes.
	FeeForSize(size int) ckbutil.Capacity

	// String returns a human readable description of the estimator.
	String() string
}

// FixedFee pays the same fee regardless of the transaction size.
type FixedFee ckbutil.Capacity

// FeeForSize returns the fixed fee.
func (f FixedFee) FeeForSize(_ int) ckbutil.Capacity {
	return ckbutil.Capacity(f)
}

// String returns the fee as a capacity.
func (f FixedFee) String() string {
	return fmt.Sprintf("fixed %v", ckbutil.Capacity(f))
}

// FeeRate is a fee expressed in shannons per 1000 bytes of serialized
// transaction.
type FeeRate uint64

// FeeForSize returns the fee for size bytes, rounded up to the next
// shannon.
func (r FeeRate) FeeForSize(size int) ckbutil.Capacity {
	base := uint64(size) * uint64(r)
	fee := base / 1000
	if fee*1000 < base {
		fee++
	}

	return ckbutil.Capacity(fee)
}

// String returns the rate with its unit.
func (r FeeRate) String() string {
	return fmt.Sprintf("%d shannons/KB", uint64(r))
}

// A compile-time check to ensure both fee kinds satisfy FeeEstimator.
var (
	_ FeeEstimator = FixedFee(0)
	_ FeeEstimator = FeeRate(0)
)
