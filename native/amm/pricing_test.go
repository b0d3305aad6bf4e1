package amm

import (
	"errors"
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"intentengine/native/fixedpoint"
)

func TestSwapOutputMatchesFormula(t *testing.T) {
	// floor(10000*9975*2000000 / (1000000*10000 + 10000*9975))
	out, err := SwapOutput(10_000, 1_000_000, 2_000_000, PrimaryFeeNumerator)
	if err != nil {
		t.Fatalf("swap output: %v", err)
	}
	if out != 19_752 {
		t.Fatalf("expected 19752, got %d", out)
	}
}

func TestSwapOutputZeroInput(t *testing.T) {
	out, err := SwapOutput(0, 1_000, 1_000, PrimaryFeeNumerator)
	if err != nil {
		t.Fatalf("swap output: %v", err)
	}
	if out != 0 {
		t.Fatalf("expected zero output, got %d", out)
	}
}

func TestSwapOutputRejectsBadInputs(t *testing.T) {
	if _, err := SwapOutput(10, 0, 1_000, PrimaryFeeNumerator); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected insufficient liquidity, got %v", err)
	}
	if _, err := SwapOutput(10, 1_000, 1_000, FeeDenominator); !errors.Is(err, ErrInvalidFee) {
		t.Fatalf("expected invalid fee, got %v", err)
	}
}

func TestSwapOutputOverflowIsFatal(t *testing.T) {
	if _, err := SwapOutput(math.MaxUint64, 1, math.MaxUint64, PrimaryFeeNumerator); !errors.Is(err, fixedpoint.ErrOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestMinimumOut(t *testing.T) {
	got, err := MinimumOut(19_752, 100)
	if err != nil {
		t.Fatalf("minimum out: %v", err)
	}
	// floor(19752*9900/10000)
	if got != 19_554 {
		t.Fatalf("expected 19554, got %d", got)
	}
	if got, err := MinimumOut(19_752, 0); err != nil || got != 19_752 {
		t.Fatalf("zero slippage: got %d err %v", got, err)
	}
	if _, err := MinimumOut(1, 10_001); !errors.Is(err, ErrInvalidSlippage) {
		t.Fatalf("expected invalid slippage, got %v", err)
	}
}

func TestSwapOutputMonotonicity(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("non-decreasing in reserveOut", prop.ForAll(
		func(amountIn, reserveIn, outA, outB uint64) bool {
			lo, hi := outA, outB
			if lo > hi {
				lo, hi = hi, lo
			}
			low, err1 := SwapOutput(amountIn, reserveIn, lo, PrimaryFeeNumerator)
			high, err2 := SwapOutput(amountIn, reserveIn, hi, PrimaryFeeNumerator)
			return err1 == nil && err2 == nil && low <= high
		},
		gen.UInt64Range(0, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
	))

	properties.Property("non-increasing in reserveIn", prop.ForAll(
		func(amountIn, reserveOut, inA, inB uint64) bool {
			lo, hi := inA, inB
			if lo > hi {
				lo, hi = hi, lo
			}
			atLow, err1 := SwapOutput(amountIn, lo, reserveOut, PrimaryFeeNumerator)
			atHigh, err2 := SwapOutput(amountIn, hi, reserveOut, PrimaryFeeNumerator)
			return err1 == nil && err2 == nil && atHigh <= atLow
		},
		gen.UInt64Range(0, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
	))

	properties.Property("output never drains the pool", prop.ForAll(
		func(amountIn, reserveIn, reserveOut uint64) bool {
			out, err := SwapOutput(amountIn, reserveIn, reserveOut, AlternateFeeNumerator)
			return err == nil && out < reserveOut
		},
		gen.UInt64Range(0, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
		gen.UInt64Range(1, 1_000_000_000_000),
	))

	properties.TestingRun(t)
}
