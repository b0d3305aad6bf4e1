package lending

import (
	"errors"
	"fmt"

	"intentengine/native/fixedpoint"
)

var (
	// ErrInvalidCurve reports rate parameters that are not ordered
	// min <= optimal <= max or an optimal utilisation above 100%.
	ErrInvalidCurve = errors.New("lending: invalid rate curve")
	// ErrUtilizationOutOfRange reports a utilisation above 10000 bps.
	ErrUtilizationOutOfRange = errors.New("lending: utilization out of range")
	// ErrInvalidConversion reports a lending conversion factor that would not
	// pay lenders strictly less than borrowers.
	ErrInvalidConversion = errors.New("lending: conversion factor out of range")
)

// RateCurve shapes how the borrow rate reacts to pool utilisation. Every field
// is expressed in basis points.
type RateCurve struct {
	// MinRateBps is the borrow rate at zero utilisation.
	MinRateBps uint64
	// OptimalRateBps is the borrow rate at the kink.
	OptimalRateBps uint64
	// MaxRateBps is the borrow rate at full utilisation.
	MaxRateBps uint64
	// OptimalUtilizationBps is the utilisation where the slope changes.
	OptimalUtilizationBps uint64
}

// Validate ensures the curve is monotone and the kink lies within [0, 10000].
func (c RateCurve) Validate() error {
	if c.MinRateBps > c.OptimalRateBps || c.OptimalRateBps > c.MaxRateBps {
		return fmt.Errorf("%w: rates %d/%d/%d", ErrInvalidCurve, c.MinRateBps, c.OptimalRateBps, c.MaxRateBps)
	}
	if c.OptimalUtilizationBps > fixedpoint.BpsDenominator {
		return fmt.Errorf("%w: optimal utilization %d", ErrInvalidCurve, c.OptimalUtilizationBps)
	}
	return nil
}

// BorrowAPY evaluates the piecewise-linear curve at the supplied utilisation.
//
// Up to the kink the rate moves linearly from MinRateBps to OptimalRateBps;
// beyond it the rate moves from OptimalRateBps to MaxRateBps over the remaining
// utilisation range. Both segments truncate toward zero. A curve whose kink sits
// at zero utilisation only has the upper segment.
func (c RateCurve) BorrowAPY(utilizationBps uint64) (uint64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	if utilizationBps > fixedpoint.BpsDenominator {
		return 0, fmt.Errorf("%w: %d", ErrUtilizationOutOfRange, utilizationBps)
	}
	if utilizationBps <= c.OptimalUtilizationBps && c.OptimalUtilizationBps > 0 {
		step, err := fixedpoint.MulDiv(c.OptimalRateBps-c.MinRateBps, utilizationBps, c.OptimalUtilizationBps)
		if err != nil {
			return 0, err
		}
		return fixedpoint.AddUint64(c.MinRateBps, step)
	}
	span := fixedpoint.BpsDenominator - c.OptimalUtilizationBps
	if span == 0 {
		return c.OptimalRateBps, nil
	}
	excess := utilizationBps - c.OptimalUtilizationBps
	step, err := fixedpoint.MulDiv(c.MaxRateBps-c.OptimalRateBps, excess, span)
	if err != nil {
		return 0, err
	}
	return fixedpoint.AddUint64(c.OptimalRateBps, step)
}

// BorrowAPY evaluates a curve described by its individual parameters.
func BorrowAPY(utilizationBps, minRateBps, optimalRateBps, maxRateBps, optimalUtilizationBps uint64) (uint64, error) {
	curve := RateCurve{
		MinRateBps:            minRateBps,
		OptimalRateBps:        optimalRateBps,
		MaxRateBps:            maxRateBps,
		OptimalUtilizationBps: optimalUtilizationBps,
	}
	return curve.BorrowAPY(utilizationBps)
}

// Utilization computes borrowed/(available+borrowed) in basis points. When no
// liquidity exists the utilisation is defined as zero.
func Utilization(available, borrowed uint64) (uint64, error) {
	return UtilizationWide(fixedpoint.U(available), fixedpoint.U(borrowed))
}

// UtilizationWide is Utilization over 128-bit balances.
func UtilizationWide(available, borrowed fixedpoint.Wide) (uint64, error) {
	total, err := available.Add(borrowed)
	if err != nil {
		return 0, err
	}
	if total.IsZero() {
		return 0, nil
	}
	scaled, err := borrowed.Mul(fixedpoint.U(fixedpoint.BpsDenominator))
	if err != nil {
		return 0, err
	}
	ratio, err := scaled.Div(total)
	if err != nil {
		return 0, err
	}
	return ratio.Uint64()
}

// LendingAPY scales a borrow rate down to the yield paid to lenders. The
// conversion factor is a percentage in [1, 99], so the result is strictly
// below any positive borrow rate. A zero borrow rate yields zero.
func LendingAPY(borrowAPYBps, conversionPercent uint64) (uint64, error) {
	if conversionPercent == 0 || conversionPercent >= 100 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidConversion, conversionPercent)
	}
	return fixedpoint.MulDiv(borrowAPYBps, conversionPercent, 100)
}
