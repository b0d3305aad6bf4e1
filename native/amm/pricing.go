// Package amm prices swaps against constant-product pools and validates
// aggregator route quotes.
package amm

import (
	"errors"
	"fmt"

	"intentengine/native/fixedpoint"
)

const (
	// PrimaryFeeNumerator is the primary direct pool's fee (0.25%).
	PrimaryFeeNumerator uint64 = 25
	// AlternateFeeNumerator is the alternate direct pool's fee (0.30%).
	AlternateFeeNumerator uint64 = 30
	// FeeDenominator scales fee numerators.
	FeeDenominator = fixedpoint.BpsDenominator
	// MaxSlippageBps bounds the slippage any swap may request.
	MaxSlippageBps uint64 = 5000
)

var (
	ErrInvalidFee            = errors.New("amm: fee numerator out of range")
	ErrInsufficientLiquidity = errors.New("amm: insufficient liquidity")
	ErrInvalidSlippage       = errors.New("amm: slippage out of range")
)

// SwapOutput computes the constant-product output with the fee taken from the
// input side:
//
//	out = floor(in*(D-f)*reserveOut / (reserveIn*D + in*(D-f)))
//
// Every product is formed before the single division.
func SwapOutput(amountIn, reserveIn, reserveOut, feeNumerator uint64) (uint64, error) {
	if feeNumerator >= FeeDenominator {
		return 0, fmt.Errorf("%w: %d", ErrInvalidFee, feeNumerator)
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, ErrInsufficientLiquidity
	}
	inWithFee, err := fixedpoint.U(amountIn).Mul(fixedpoint.U(FeeDenominator - feeNumerator))
	if err != nil {
		return 0, err
	}
	numerator, err := inWithFee.Mul(fixedpoint.U(reserveOut))
	if err != nil {
		return 0, err
	}
	scaledReserve, err := fixedpoint.U(reserveIn).Mul(fixedpoint.U(FeeDenominator))
	if err != nil {
		return 0, err
	}
	denominator, err := scaledReserve.Add(inWithFee)
	if err != nil {
		return 0, err
	}
	out, err := numerator.Div(denominator)
	if err != nil {
		return 0, err
	}
	return out.Uint64()
}

// MinimumOut returns floor(output*(10000-slippage)/10000).
func MinimumOut(output, slippageBps uint64) (uint64, error) {
	if slippageBps > fixedpoint.BpsDenominator {
		return 0, fmt.Errorf("%w: %d", ErrInvalidSlippage, slippageBps)
	}
	return fixedpoint.MulDiv(output, fixedpoint.BpsDenominator-slippageBps, fixedpoint.BpsDenominator)
}
