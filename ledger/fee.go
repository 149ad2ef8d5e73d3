package ledger

import (
	"math"
	"math/bits"
)

// DefaultFeeRate is the relay fee in satoshis per 1000 bytes.
const DefaultFeeRate uint64 = 1200

// Serialized sizes used for fee estimation.
const (
	// version(4) + locktime(4) + input count(1) + output count(1)
	TxOverheadSize = 10

	// prevout(36) + script len(1) + P2PKH unlock(~107) + sequence(4)
	P2PKHInputSize = 148

	// value(8) + script len(1) + P2PKH lock(25)
	P2PKHOutputSize = 34
)

// EstimateFee returns ceil(size * feeRate / 1000). A zero rate uses
// DefaultFeeRate.
func EstimateFee(size int, feeRate uint64) uint64 {
	if feeRate == 0 {
		feeRate = DefaultFeeRate
	}
	return (uint64(size)*feeRate + 999) / 1000
}

// EstimateTxSize estimates a transaction of P2PKH inputs and outputs plus
// an optional OP_RETURN output of opReturnLen script bytes.
func EstimateTxSize(numInputs, numOutputs, opReturnLen int) int {
	size := TxOverheadSize + numInputs*P2PKHInputSize + numOutputs*P2PKHOutputSize
	if opReturnLen > 0 {
		size += 8 + varIntSize(opReturnLen) + opReturnLen
	}
	return size
}

func varIntSize(n int) int {
	switch {
	case n < 0xfd:
		return 1
	case n <= 0xffff:
		return 3
	}
	return 5
}

// AddSats returns a+b and whether the sum fit in a uint64.
func AddSats(a, b uint64) (uint64, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// satAdd adds the values, saturating at math.MaxUint64. No real set of
// outputs reaches the ceiling, so a saturated requirement is never met.
func satAdd(vals ...uint64) uint64 {
	var sum uint64
	for _, v := range vals {
		s, ok := AddSats(sum, v)
		if !ok {
			return math.MaxUint64
		}
		sum = s
	}
	return sum
}
