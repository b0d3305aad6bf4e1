package intent

import (
	"errors"
	"fmt"

	"intentengine/core/types"
	"intentengine/native/amm"
	"intentengine/native/fixedpoint"
	"intentengine/native/lending"
	"intentengine/native/router"
)

// swapPricer produces the expected output of a swap on one family of venues.
type swapPricer interface {
	accepts(venue router.SwapVenue) bool
	expectedOut(record *Intent, netAmount uint64, venue router.SwapVenue) (uint64, error)
}

type aggregatorPricer struct {
	quote amm.RouteQuote
}

func (p aggregatorPricer) accepts(venue router.SwapVenue) bool {
	return venue == router.SwapVenueAggregator
}

func (p aggregatorPricer) expectedOut(record *Intent, netAmount uint64, _ router.SwapVenue) (uint64, error) {
	if p.quote.InputAsset != record.FromAsset || p.quote.OutputAsset != record.ToAsset {
		return 0, fmt.Errorf("%w: quote is for a different pair", ErrInvalidAmount)
	}
	if err := p.quote.Validate(netAmount, record.MaxSlippageBps); err != nil {
		return 0, quoteError(err)
	}
	return p.quote.OutAmount, nil
}

type poolPricer struct {
	pool amm.Pool
}

func (p poolPricer) accepts(venue router.SwapVenue) bool { return venue.Direct() }

func (p poolPricer) expectedOut(record *Intent, netAmount uint64, venue router.SwapVenue) (uint64, error) {
	out, err := p.pool.Quote(record.FromAsset, record.ToAsset, netAmount, poolFee(venue))
	if err != nil {
		return 0, poolError(err)
	}
	return out, nil
}

// poolFee returns the fee numerator, over amm.FeeDenominator, charged by a
// direct pool.
func poolFee(venue router.SwapVenue) uint64 {
	if venue == router.SwapVenueAlternateAMM {
		return amm.AlternateFeeNumerator
	}
	return amm.PrimaryFeeNumerator
}

func quoteError(err error) error {
	if errors.Is(err, amm.ErrQuoteSlippageMismatch) {
		return fmt.Errorf("%w: %v", ErrSlippageExceeded, err)
	}
	return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
}

func poolError(err error) error {
	if isArithmetic(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
}

func isArithmetic(err error) bool {
	return errors.Is(err, fixedpoint.ErrOverflow) ||
		errors.Is(err, fixedpoint.ErrUnderflow) ||
		errors.Is(err, fixedpoint.ErrDivisionByZero)
}

func venueError(err error) error {
	if errors.Is(err, ErrVenueFailed) || isArithmetic(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrVenueFailed, err)
}

// guard applies the checks every production settlement shares, in order:
// the intent must be pending, then unexpired.
func (e *Engine) guard(record *Intent) error {
	if record.Status != StatusPending {
		return fmt.Errorf("%w: status %s", ErrNotPending, record.Status)
	}
	if e.Now() >= record.ExpiresAt {
		return ErrIntentExpired
	}
	return nil
}

// collectFee moves the fee snapshotted at declaration to the treasury.
func collectFee(st *stage, cfg *ProtocolConfig, record *Intent) error {
	return st.Transfer(record.FromAsset, record.Owner, cfg.Treasury, record.Fee)
}

// finish records the outcome and books the intent as executed.
func (e *Engine) finish(st *stage, cfg *ProtocolConfig, record *Intent, output, yieldBps *uint64, evt *types.Event) error {
	profile, err := e.profileFor(st, record.Owner)
	if err != nil {
		return err
	}
	if err := release(profile); err != nil {
		return err
	}
	volume, err := fixedpoint.AddUint64(profile.TotalVolume, record.Amount)
	if err != nil {
		return err
	}
	fees, err := fixedpoint.AddUint64(cfg.TotalFees, record.Fee)
	if err != nil {
		return err
	}
	now := e.Now()
	record.Status = StatusExecuted
	record.ExecutedAt = &now
	record.ExecutionOutput = output
	record.ExecutionYieldBps = yieldBps
	profile.TotalVolume = volume
	cfg.TotalFees = fees
	cfg.IntentsExecuted++

	st.putIntent(record)
	st.putUser(profile)
	st.putProtocolConfig(cfg)
	st.emit(evt)
	return nil
}

func (e *Engine) settle(id [32]byte, fn func(st *stage, cfg *ProtocolConfig, record *Intent) error) (*Intent, error) {
	var settled *Intent
	err := e.run(func(st *stage) error {
		cfg, err := st.protocolConfig()
		if err != nil {
			return err
		}
		record, err := st.intent(id)
		if err != nil {
			return err
		}
		if err := fn(st, cfg, record); err != nil {
			return err
		}
		settled = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return settled.Clone(), nil
}

// ExecuteSwapAggregator settles a swap intent routed to the aggregator using
// the supplied route. The route must quote exactly the intent's net amount at
// exactly its slippage bound.
func (e *Engine) ExecuteSwapAggregator(id [32]byte, quote amm.RouteQuote) (*Intent, error) {
	return e.executeSwap(id, aggregatorPricer{quote: quote})
}

// ExecuteSwapDirect settles a swap intent routed to a direct pool, pricing the
// net amount against the supplied reserve snapshot.
func (e *Engine) ExecuteSwapDirect(id [32]byte, pool amm.Pool) (*Intent, error) {
	return e.executeSwap(id, poolPricer{pool: pool})
}

func (e *Engine) executeSwap(id [32]byte, pricer swapPricer) (*Intent, error) {
	return e.settle(id, func(st *stage, cfg *ProtocolConfig, record *Intent) error {
		if err := e.guard(record); err != nil {
			return err
		}
		if record.Kind != KindSwap || record.SwapVenue == nil || !pricer.accepts(*record.SwapVenue) {
			return ErrWrongVenue
		}
		venue := *record.SwapVenue
		net, err := record.NetAmount()
		if err != nil {
			return err
		}
		if err := collectFee(st, cfg, record); err != nil {
			return err
		}
		expected, err := pricer.expectedOut(record, net, venue)
		if err != nil {
			return err
		}
		minOut, err := amm.MinimumOut(expected, record.MaxSlippageBps)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidSlippage, err)
		}
		adapter, err := e.venues.swapAdapter(venue)
		if err != nil {
			return err
		}
		out, err := adapter.Swap(st, SwapOrder{
			IntentID:    record.ID,
			Owner:       record.Owner,
			Venue:       venue,
			FromAsset:   record.FromAsset,
			ToAsset:     record.ToAsset,
			AmountIn:    net,
			ExpectedOut: expected,
			MinimumOut:  minOut,
		})
		if err != nil {
			return venueError(err)
		}
		if out < minOut {
			return fmt.Errorf("%w: received %d, minimum %d", ErrSlippageExceeded, out, minOut)
		}
		return e.finish(st, cfg, record, &out, nil, NewSwapSettledEvent(record, venue.String(), net, out))
	})
}

// ExecuteLendPrimary settles a lend intent routed to the primary lender.
func (e *Engine) ExecuteLendPrimary(id [32]byte, reserve lending.PrimaryReserve) (*Intent, error) {
	return e.executeLend(id, router.LendingVenuePrimary, reserve)
}

// ExecuteLendSecondary settles a lend intent routed to the secondary lender.
func (e *Engine) ExecuteLendSecondary(id [32]byte, reserve lending.SecondaryReserve) (*Intent, error) {
	return e.executeLend(id, router.LendingVenueSecondary, reserve)
}

func (e *Engine) executeLend(id [32]byte, want router.LendingVenue, reserve lending.Reserve) (*Intent, error) {
	return e.settle(id, func(st *stage, cfg *ProtocolConfig, record *Intent) error {
		if err := e.guard(record); err != nil {
			return err
		}
		if record.Kind != KindLend || record.LendingVenue == nil || *record.LendingVenue != want {
			return ErrWrongVenue
		}
		if reserve.ReserveAsset() != record.FromAsset {
			return fmt.Errorf("%w: reserve is for a different asset", ErrInvalidAmount)
		}
		net, err := record.NetAmount()
		if err != nil {
			return err
		}
		if err := collectFee(st, cfg, record); err != nil {
			return err
		}
		quote, err := reserve.Quote()
		if err != nil {
			return poolError(err)
		}
		if quote.LendingAPYBps < record.MinYieldBps {
			return fmt.Errorf("%w: %d below %d", ErrYieldTooLow, quote.LendingAPYBps, record.MinYieldBps)
		}
		adapter, err := e.venues.lendingAdapter(want)
		if err != nil {
			return err
		}
		if err := adapter.Deposit(st, DepositOrder{
			IntentID: record.ID,
			Owner:    record.Owner,
			Venue:    want,
			Asset:    record.FromAsset,
			Amount:   net,
			YieldBps: quote.LendingAPYBps,
		}); err != nil {
			return venueError(err)
		}
		yield := quote.LendingAPYBps
		return e.finish(st, cfg, record, nil, &yield, NewLendSettledEvent(record, want.String(), net, yield))
	})
}

// ExecuteBuyAggregator settles a buy intent. The route must spend exactly the
// net quote amount, stay within the price impact bound and, when a target is
// set, fill at or below it.
func (e *Engine) ExecuteBuyAggregator(id [32]byte, quote amm.RouteQuote) (*Intent, error) {
	return e.settle(id, func(st *stage, cfg *ProtocolConfig, record *Intent) error {
		if err := e.guard(record); err != nil {
			return err
		}
		if record.Kind != KindBuy || record.SwapVenue == nil || *record.SwapVenue != router.SwapVenueAggregator {
			return ErrWrongVenue
		}
		if quote.InputAsset != record.FromAsset || quote.OutputAsset != record.ToAsset {
			return fmt.Errorf("%w: quote is for a different pair", ErrInvalidAmount)
		}
		net, err := record.NetAmount()
		if err != nil {
			return err
		}
		if err := quote.ValidateInput(net); err != nil {
			return quoteError(err)
		}
		if err := collectFee(st, cfg, record); err != nil {
			return err
		}
		if quote.PriceImpactBps > record.MaxPriceImpactBps {
			return fmt.Errorf("%w: price impact %d above %d", ErrSlippageExceeded, quote.PriceImpactBps, record.MaxPriceImpactBps)
		}
		if quote.OutAmount == 0 {
			return fmt.Errorf("%w: route delivers nothing", ErrSlippageExceeded)
		}
		if record.TargetPrice != nil {
			price, err := fixedpoint.MulDivCeil(net, PriceScale, quote.OutAmount)
			if err != nil {
				return err
			}
			if price > *record.TargetPrice {
				return fmt.Errorf("%w: %d above %d", ErrPriceAboveTarget, price, *record.TargetPrice)
			}
		}
		adapter, err := e.venues.swapAdapter(router.SwapVenueAggregator)
		if err != nil {
			return err
		}
		out, err := adapter.Swap(st, SwapOrder{
			IntentID:    record.ID,
			Owner:       record.Owner,
			Venue:       router.SwapVenueAggregator,
			FromAsset:   record.FromAsset,
			ToAsset:     record.ToAsset,
			AmountIn:    net,
			ExpectedOut: quote.OutAmount,
			MinimumOut:  quote.OutAmount,
		})
		if err != nil {
			return venueError(err)
		}
		if out < quote.OutAmount {
			return fmt.Errorf("%w: received %d, quoted %d", ErrSlippageExceeded, out, quote.OutAmount)
		}
		return e.finish(st, cfg, record, &out, nil, NewBuySettledEvent(record, router.SwapVenueAggregator.String(), net, out))
	})
}

// ExecuteSwapSimulated settles a swap with a caller-reported output. Only the
// fee moves. Available under the simplified profile only, and only to the
// intent's owner.
func (e *Engine) ExecuteSwapSimulated(caller [20]byte, id [32]byte, output uint64) (*Intent, error) {
	if e.params.Profile != ProfileSimplified {
		return nil, ErrUnsupportedOperation
	}
	return e.settle(id, func(st *stage, cfg *ProtocolConfig, record *Intent) error {
		if err := e.guard(record); err != nil {
			return err
		}
		if record.Kind != KindSwap {
			return ErrWrongVenue
		}
		if caller != record.Owner {
			return ErrUnauthorized
		}
		net, err := record.NetAmount()
		if err != nil {
			return err
		}
		if err := collectFee(st, cfg, record); err != nil {
			return err
		}
		venue := router.SwapVenueAggregator
		if record.SwapVenue != nil {
			venue = *record.SwapVenue
		}
		evt := NewSwapSettledEvent(record, venue.String(), net, output)
		evt.Attributes["simulated"] = "true"
		return e.finish(st, cfg, record, &output, nil, evt)
	})
}

// ExecuteLendSimulated settles a lend intent with a caller-reported yield.
// Only the fee moves. Available under the simplified profile only, and only to
// the intent's owner.
func (e *Engine) ExecuteLendSimulated(caller [20]byte, id [32]byte, yieldBps uint64) (*Intent, error) {
	if e.params.Profile != ProfileSimplified {
		return nil, ErrUnsupportedOperation
	}
	return e.settle(id, func(st *stage, cfg *ProtocolConfig, record *Intent) error {
		if err := e.guard(record); err != nil {
			return err
		}
		if record.Kind != KindLend {
			return ErrWrongVenue
		}
		if caller != record.Owner {
			return ErrUnauthorized
		}
		if yieldBps < record.MinYieldBps {
			return fmt.Errorf("%w: %d below %d", ErrYieldTooLow, yieldBps, record.MinYieldBps)
		}
		net, err := record.NetAmount()
		if err != nil {
			return err
		}
		if err := collectFee(st, cfg, record); err != nil {
			return err
		}
		venue := router.LendingVenueSecondary
		if record.LendingVenue != nil {
			venue = *record.LendingVenue
		}
		evt := NewLendSettledEvent(record, venue.String(), net, yieldBps)
		evt.Attributes["simulated"] = "true"
		return e.finish(st, cfg, record, nil, &yieldBps, evt)
	})
}
