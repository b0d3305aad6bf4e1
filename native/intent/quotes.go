package intent

import (
	"fmt"

	"intentengine/native/amm"
	"intentengine/native/lending"
	"intentengine/native/router"
)

// YieldOffer pairs a venue with the reserve snapshot it reported.
type YieldOffer struct {
	Venue   router.LendingVenue
	Reserve lending.Reserve
}

// BestYield quotes every offer for asset and returns the highest supplier
// yield. Ties keep the earlier offer.
func BestYield(assetID [20]byte, offers ...YieldOffer) (router.YieldQuote, error) {
	quotes := make([]router.YieldQuote, 0, len(offers))
	for _, offer := range offers {
		if offer.Reserve == nil {
			continue
		}
		if offer.Reserve.ReserveAsset() != assetID {
			return router.YieldQuote{}, fmt.Errorf("%w: %s reserve is for a different asset", ErrInvalidAmount, offer.Venue)
		}
		quote, err := offer.Reserve.Quote()
		if err != nil {
			return router.YieldQuote{}, poolError(err)
		}
		quotes = append(quotes, router.YieldQuote{Venue: offer.Venue, APYBps: quote.LendingAPYBps})
	}
	return router.BestYield(quotes)
}

// SwapQuote is the expected result of a direct pool swap.
type SwapQuote struct {
	Venue      router.SwapVenue
	AmountIn   uint64
	Fee        uint64
	NetAmount  uint64
	AmountOut  uint64
	MinimumOut uint64
}

// QuoteDirectSwap previews a swap of amount on a direct pool, taking the
// protocol fee at feeBps first.
func QuoteDirectSwap(venue router.SwapVenue, pool amm.Pool, from, to [20]byte, amount, feeBps, slippageBps uint64) (SwapQuote, error) {
	if !venue.Direct() {
		return SwapQuote{}, ErrWrongVenue
	}
	if amount == 0 {
		return SwapQuote{}, ErrInvalidAmount
	}
	record := &Intent{FromAsset: from, ToAsset: to, Amount: amount}
	applied, err := feesFor(amount, feeBps)
	if err != nil {
		return SwapQuote{}, err
	}
	record.Fee = applied
	net, err := record.NetAmount()
	if err != nil {
		return SwapQuote{}, err
	}
	out, err := poolPricer{pool: pool}.expectedOut(record, net, venue)
	if err != nil {
		return SwapQuote{}, err
	}
	minOut, err := amm.MinimumOut(out, slippageBps)
	if err != nil {
		return SwapQuote{}, fmt.Errorf("%w: %v", ErrInvalidSlippage, err)
	}
	return SwapQuote{
		Venue:      venue,
		AmountIn:   amount,
		Fee:        applied,
		NetAmount:  net,
		AmountOut:  out,
		MinimumOut: minOut,
	}, nil
}
