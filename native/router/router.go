// Package router selects the settlement venue for an intent. Every decision is
// a pure function of its inputs.
package router

import "errors"

const (
	// DefaultLargeSwapThreshold is 1000 whole units of a six-decimal quote
	// asset. Swaps above it always route through the aggregator.
	DefaultLargeSwapThreshold uint64 = 1_000 * 1_000_000
	// DefaultLargeLendThreshold is 10000 whole units of a six-decimal asset.
	// Deposits above it go to the primary lender.
	DefaultLargeLendThreshold uint64 = 10_000 * 1_000_000
)

// ErrNoYieldQuotes is returned when BestYield is given nothing to compare.
var ErrNoYieldQuotes = errors.New("router: no yield quotes")

// Config parameterises the router.
type Config struct {
	LargeSwapThreshold uint64
	LargeLendThreshold uint64
	// MajorAssets lists the liquid assets. Any pair of two distinct major
	// assets is a major pair.
	MajorAssets [][20]byte
	// DirectVenue is the pool small major-pair swaps settle on. Zero selects
	// the primary pool.
	DirectVenue SwapVenue
}

// Router makes venue decisions.
type Router struct {
	largeSwap uint64
	largeLend uint64
	majors    map[[20]byte]struct{}
	direct    SwapVenue
}

// New constructs a router, falling back to the default thresholds for zero
// values.
func New(cfg Config) *Router {
	r := &Router{
		largeSwap: cfg.LargeSwapThreshold,
		largeLend: cfg.LargeLendThreshold,
		majors:    make(map[[20]byte]struct{}, len(cfg.MajorAssets)),
		direct:    cfg.DirectVenue,
	}
	if !r.direct.Direct() {
		r.direct = SwapVenuePrimaryAMM
	}
	if r.largeSwap == 0 {
		r.largeSwap = DefaultLargeSwapThreshold
	}
	if r.largeLend == 0 {
		r.largeLend = DefaultLargeLendThreshold
	}
	for _, asset := range cfg.MajorAssets {
		r.majors[asset] = struct{}{}
	}
	return r
}

// IsMajorPair reports whether both assets are distinct major assets.
func (r *Router) IsMajorPair(from, to [20]byte) bool {
	if r == nil || from == to {
		return false
	}
	_, fromMajor := r.majors[from]
	_, toMajor := r.majors[to]
	return fromMajor && toMajor
}

// ChooseSwapVenue sends large trades and exotic pairs to the aggregator and
// small trades on major pairs to the configured direct pool.
func (r *Router) ChooseSwapVenue(from, to [20]byte, amount uint64) SwapVenue {
	if r == nil {
		return SwapVenueAggregator
	}
	if amount > r.largeSwap {
		return SwapVenueAggregator
	}
	if r.IsMajorPair(from, to) {
		return r.direct
	}
	return SwapVenueAggregator
}

// ChooseLendingVenue sends large deposits to the primary lender and everything
// else to the secondary lender.
func (r *Router) ChooseLendingVenue(_ [20]byte, amount uint64) LendingVenue {
	threshold := DefaultLargeLendThreshold
	if r != nil {
		threshold = r.largeLend
	}
	if amount > threshold {
		return LendingVenuePrimary
	}
	return LendingVenueSecondary
}

// YieldQuote is one venue's current supplier yield.
type YieldQuote struct {
	Venue  LendingVenue
	APYBps uint64
}

// BestYield returns the quote with the highest yield. Ties keep the earliest
// quote.
func BestYield(quotes []YieldQuote) (YieldQuote, error) {
	if len(quotes) == 0 {
		return YieldQuote{}, ErrNoYieldQuotes
	}
	best := quotes[0]
	for _, quote := range quotes[1:] {
		if quote.APYBps > best.APYBps {
			best = quote
		}
	}
	return best, nil
}
