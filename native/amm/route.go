package amm

import (
	"errors"
	"fmt"
)

var (
	// ErrQuoteAmountMismatch reports a route quoted for a different input.
	ErrQuoteAmountMismatch = errors.New("amm: route input does not match requested amount")
	// ErrQuoteSlippageMismatch reports a route quoted with a different
	// slippage bound.
	ErrQuoteSlippageMismatch = errors.New("amm: route slippage does not match requested bound")
	// ErrQuoteRoutePlan reports a malformed route plan.
	ErrQuoteRoutePlan = errors.New("amm: invalid route plan")
)

// RouteStep is one hop of an aggregator route.
type RouteStep struct {
	AmmKey      [32]byte `json:"ammKey"`
	Label       string   `json:"label"`
	InputAsset  [20]byte `json:"inputAsset"`
	OutputAsset [20]byte `json:"outputAsset"`
	InAmount    uint64   `json:"inAmount"`
	OutAmount   uint64   `json:"outAmount"`
	FeeAmount   uint64   `json:"feeAmount"`
	FeeAsset    [20]byte `json:"feeAsset"`
	Percent     uint8    `json:"percent"`
}

// RouteQuote is an aggregator's pre-computed route. The engine does not price
// it; it only checks that it answers the question that was asked.
type RouteQuote struct {
	InputAsset     [20]byte
	OutputAsset    [20]byte
	InAmount       uint64
	OutAmount      uint64
	SlippageBps    uint64
	PriceImpactBps uint64
	RoutePlan      []RouteStep
}

// Validate checks the quote against the requested input and slippage bound.
func (q RouteQuote) Validate(amountIn, slippageBps uint64) error {
	if err := q.ValidateInput(amountIn); err != nil {
		return err
	}
	return q.CheckSlippage(slippageBps)
}

// CheckSlippage requires the route to have been quoted at exactly slippageBps.
func (q RouteQuote) CheckSlippage(slippageBps uint64) error {
	if q.SlippageBps != slippageBps {
		return fmt.Errorf("%w: quoted %d, requested %d", ErrQuoteSlippageMismatch, q.SlippageBps, slippageBps)
	}
	return nil
}

// ValidateInput checks the quoted input amount and the route plan only. When
// a plan is present its split percentages must sum to 100.
func (q RouteQuote) ValidateInput(amountIn uint64) error {
	if q.InAmount != amountIn {
		return fmt.Errorf("%w: quoted %d, requested %d", ErrQuoteAmountMismatch, q.InAmount, amountIn)
	}
	if len(q.RoutePlan) == 0 {
		return nil
	}
	total := 0
	for i, step := range q.RoutePlan {
		if step.Percent == 0 {
			return fmt.Errorf("%w: step %d carries no share", ErrQuoteRoutePlan, i)
		}
		total += int(step.Percent)
	}
	if total != 100 {
		return fmt.Errorf("%w: split sums to %d%%", ErrQuoteRoutePlan, total)
	}
	return nil
}
