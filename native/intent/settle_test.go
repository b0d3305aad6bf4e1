package intent

import (
	"errors"
	"fmt"
	"testing"

	"intentengine/native/amm"
	"intentengine/native/lending"
	"intentengine/native/router"
)

var testRates = lending.PercentRateConfig{
	OptimalUtilizationRate: 80,
	MinBorrowRate:          2,
	OptimalBorrowRate:      10,
	MaxBorrowRate:          50,
}

func testPool() amm.Pool {
	return amm.Pool{
		ID:           [32]byte{0x01},
		BaseAsset:    usdc,
		QuoteAsset:   sol,
		BaseReserve:  1_000_000_000,
		QuoteReserve: 2_000_000_000,
	}
}

type failingSwapVenue struct{}

func (failingSwapVenue) Swap(ledger Ledger, order SwapOrder) (uint64, error) {
	if err := ledger.Transfer(order.FromAsset, order.Owner, newTestAddress(0xEE), order.AmountIn); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("venue offline")
}

type shortSwapVenue struct{}

func (shortSwapVenue) Swap(_ Ledger, order SwapOrder) (uint64, error) {
	return order.MinimumOut - 1, nil
}

func TestExecuteSwapDirect(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	h.credit(t, alice, usdc, 10_000_000)
	h.credit(t, swapVenueAccounts[router.SwapVenuePrimaryAMM], sol, 100_000_000)

	settled, err := h.engine.ExecuteSwapDirect(record.ID, testPool())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if settled.Status != StatusExecuted || settled.ExecutedAt == nil || *settled.ExecutedAt != testNow {
		t.Fatalf("unexpected settled record %+v", settled)
	}
	if settled.ExecutionOutput == nil || *settled.ExecutionOutput != 19_694_288 {
		t.Fatalf("unexpected output %v", settled.ExecutionOutput)
	}
	if got := h.balance(t, treasury, usdc); got != 30_000 {
		t.Fatalf("treasury should hold the fee, got %d", got)
	}
	if got := h.balance(t, alice, usdc); got != 0 {
		t.Fatalf("owner should have spent the full amount, got %d", got)
	}
	if got := h.balance(t, alice, sol); got != 19_694_288 {
		t.Fatalf("owner should receive the output, got %d", got)
	}
	if got := h.balance(t, swapVenueAccounts[router.SwapVenuePrimaryAMM], usdc); got != 9_970_000 {
		t.Fatalf("venue should receive the net amount, got %d", got)
	}

	profile, _ := h.engine.User(alice)
	if profile.ActiveIntents != 0 || profile.TotalVolume != 10_000_000 {
		t.Fatalf("unexpected profile %+v", profile)
	}
	cfg, _ := h.engine.ProtocolConfig()
	if cfg.IntentsExecuted != 1 || cfg.TotalFees != 30_000 {
		t.Fatalf("unexpected protocol counters %+v", cfg)
	}
	evt := h.emitter.last()
	if evt == nil || evt.Type != EventTypeSwapSettled || evt.Attributes["amountIn"] != "9970000" || evt.Attributes["venue"] != "primary_amm" {
		t.Fatalf("unexpected event %+v", evt)
	}

	if _, err := h.engine.ExecuteSwapDirect(record.ID, testPool()); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected not pending on re-execution, got %v", err)
	}
	if _, err := h.engine.CancelIntent(alice, record.ID); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected not pending on cancel, got %v", err)
	}
}

func TestExecuteSwapAlternatePool(t *testing.T) {
	h := newHarness(t, DefaultParams())
	h.engine.router = router.New(router.Config{MajorAssets: [][20]byte{sol, usdc}, DirectVenue: router.SwapVenueAlternateAMM})
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	if *record.SwapVenue != router.SwapVenueAlternateAMM {
		t.Fatalf("expected alternate pool, got %s", record.SwapVenue)
	}
	h.credit(t, alice, usdc, 10_000_000)
	h.credit(t, swapVenueAccounts[router.SwapVenueAlternateAMM], sol, 100_000_000)
	settled, err := h.engine.ExecuteSwapDirect(record.ID, testPool())
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if *settled.ExecutionOutput != 19_684_514 {
		t.Fatalf("alternate pool should charge 30/10000, got %d", *settled.ExecutionOutput)
	}
}

func TestExecuteSwapWrongVenue(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	h.credit(t, alice, usdc, 10_000_000)

	quote := amm.RouteQuote{InputAsset: usdc, OutputAsset: sol, InAmount: 9_970_000, OutAmount: 19_000_000, SlippageBps: 100}
	_, err := h.engine.ExecuteSwapAggregator(record.ID, quote)
	if !errors.Is(err, ErrWrongVenue) {
		t.Fatalf("expected wrong venue, got %v", err)
	}
	if Classify(err) != ClassAuthorization {
		t.Fatalf("expected authorization class, got %s", Classify(err))
	}
	if got := h.balance(t, treasury, usdc); got != 0 {
		t.Fatalf("no fee may move on a venue mismatch, got %d", got)
	}
	stored, _ := h.engine.Intent(record.ID)
	if stored.Status != StatusPending {
		t.Fatalf("intent should remain pending, got %s", stored.Status)
	}

	lend, err := h.engine.CreateLendIntent(alice, LendRequest{Asset: usdc, Amount: 1_000, MinYieldBps: 100})
	if err != nil {
		t.Fatalf("create lend: %v", err)
	}
	if _, err := h.engine.ExecuteSwapDirect(lend.ID, testPool()); !errors.Is(err, ErrWrongVenue) {
		t.Fatalf("lend intent settled as swap: %v", err)
	}
	if _, err := h.engine.ExecuteLendPrimary(lend.ID, lending.PrimaryReserve{Asset: usdc, Config: testRates}); !errors.Is(err, ErrWrongVenue) {
		t.Fatalf("secondary lend settled on primary: %v", err)
	}
}

func TestExecuteSwapExpired(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	h.credit(t, alice, usdc, 10_000_000)
	h.credit(t, swapVenueAccounts[router.SwapVenuePrimaryAMM], sol, 100_000_000)

	h.now = record.ExpiresAt
	_, err := h.engine.ExecuteSwapDirect(record.ID, testPool())
	if !errors.Is(err, ErrIntentExpired) {
		t.Fatalf("expected expired, got %v", err)
	}
	if Classify(err) != ClassTemporal {
		t.Fatalf("expected temporal class, got %s", Classify(err))
	}

	h.now = record.ExpiresAt - 1
	if _, err := h.engine.ExecuteSwapDirect(record.ID, testPool()); err != nil {
		t.Fatalf("execute one second before expiry: %v", err)
	}
}

func TestExecuteSwapVenueFailureRollsBack(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	h.credit(t, alice, usdc, 10_000_000)
	h.engine.venues.Swap[router.SwapVenuePrimaryAMM] = failingSwapVenue{}
	emitted := len(h.emitter.events)

	_, err := h.engine.ExecuteSwapDirect(record.ID, testPool())
	if !errors.Is(err, ErrVenueFailed) {
		t.Fatalf("expected venue failure, got %v", err)
	}
	if got := h.balance(t, treasury, usdc); got != 0 {
		t.Fatalf("fee transfer must be rolled back, got %d", got)
	}
	if got := h.balance(t, alice, usdc); got != 10_000_000 {
		t.Fatalf("owner balance must be restored, got %d", got)
	}
	if len(h.emitter.events) != emitted {
		t.Fatalf("failed settlement emitted %v", h.emitter.eventTypes()[emitted:])
	}
	stored, _ := h.engine.Intent(record.ID)
	profile, _ := h.engine.User(alice)
	if stored.Status != StatusPending || profile.ActiveIntents != 1 || profile.TotalVolume != 0 {
		t.Fatalf("state changed after failure: %+v %+v", stored, profile)
	}
}

func TestExecuteSwapInsufficientVenueLiquidity(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	h.credit(t, alice, usdc, 10_000_000)

	_, err := h.engine.ExecuteSwapDirect(record.ID, testPool())
	if !errors.Is(err, ErrVenueFailed) || !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected venue failure caused by missing liquidity, got %v", err)
	}
	if got := h.balance(t, treasury, usdc); got != 0 {
		t.Fatalf("fee transfer must be rolled back, got %d", got)
	}
}

func TestExecuteSwapOwnerCannotPay(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	_, err := h.engine.ExecuteSwapDirect(record.ID, testPool())
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if Classify(err) != ClassFinancial {
		t.Fatalf("expected financial class, got %s", Classify(err))
	}
}

func TestExecuteSwapSlippageExceeded(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	h.credit(t, alice, usdc, 10_000_000)
	h.engine.venues.Swap[router.SwapVenuePrimaryAMM] = shortSwapVenue{}

	_, err := h.engine.ExecuteSwapDirect(record.ID, testPool())
	if !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected slippage exceeded, got %v", err)
	}
	if got := h.balance(t, treasury, usdc); got != 0 {
		t.Fatalf("fee transfer must be rolled back, got %d", got)
	}
}

func TestExecuteSwapPoolMismatch(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	h.credit(t, alice, usdc, 10_000_000)
	pool := testPool()
	pool.QuoteAsset = meme
	if _, err := h.engine.ExecuteSwapDirect(record.ID, pool); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
}

func TestExecuteSwapAggregator(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, meme, 10_000_000, 200)
	if *record.SwapVenue != router.SwapVenueAggregator {
		t.Fatalf("expected aggregator, got %s", record.SwapVenue)
	}
	h.credit(t, alice, usdc, 10_000_000)
	h.credit(t, swapVenueAccounts[router.SwapVenueAggregator], meme, 500_000_000)

	quote := amm.RouteQuote{
		InputAsset:  usdc,
		OutputAsset: meme,
		InAmount:    9_970_000,
		OutAmount:   400_000_000,
		SlippageBps: 200,
		RoutePlan: []amm.RouteStep{
			{Label: "pool-a", InputAsset: usdc, OutputAsset: meme, Percent: 60},
			{Label: "pool-b", InputAsset: usdc, OutputAsset: meme, Percent: 40},
		},
	}

	wrongAmount := quote
	wrongAmount.InAmount = 10_000_000
	if _, err := h.engine.ExecuteSwapAggregator(record.ID, wrongAmount); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("quote on gross amount should fail, got %v", err)
	}
	wrongSlippage := quote
	wrongSlippage.SlippageBps = 300
	if _, err := h.engine.ExecuteSwapAggregator(record.ID, wrongSlippage); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("quote with a different slippage should fail, got %v", err)
	}
	badPlan := quote
	badPlan.RoutePlan = []amm.RouteStep{{Percent: 70}}
	if _, err := h.engine.ExecuteSwapAggregator(record.ID, badPlan); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("malformed route should fail, got %v", err)
	}
	if got := h.balance(t, treasury, usdc); got != 0 {
		t.Fatalf("rejected quotes must not move the fee, got %d", got)
	}

	settled, err := h.engine.ExecuteSwapAggregator(record.ID, quote)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if *settled.ExecutionOutput != 400_000_000 {
		t.Fatalf("unexpected output %d", *settled.ExecutionOutput)
	}
	if got := h.balance(t, alice, meme); got != 400_000_000 {
		t.Fatalf("owner should receive the quoted output, got %d", got)
	}
}

func TestExecuteLendSecondary(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record, err := h.engine.CreateLendIntent(alice, LendRequest{Asset: usdc, Amount: 1_000_000, MinYieldBps: 700})
	if err != nil {
		t.Fatalf("create lend: %v", err)
	}
	if *record.LendingVenue != router.LendingVenueSecondary {
		t.Fatalf("expected secondary lender, got %s", record.LendingVenue)
	}
	h.credit(t, alice, usdc, 1_000_000)

	reserve := lending.SecondaryReserve{Asset: usdc, AvailableAmount: 200, BorrowedAmount: 800, Config: testRates}
	settled, err := h.engine.ExecuteLendSecondary(record.ID, reserve)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if settled.ExecutionYieldBps == nil || *settled.ExecutionYieldBps != 750 {
		t.Fatalf("unexpected yield %v", settled.ExecutionYieldBps)
	}
	if got := h.balance(t, lendingVenueAccounts[router.LendingVenueSecondary], usdc); got != 997_000 {
		t.Fatalf("venue should receive the net amount, got %d", got)
	}
	if got := h.balance(t, treasury, usdc); got != 3_000 {
		t.Fatalf("treasury should hold the fee, got %d", got)
	}
	if evt := h.emitter.last(); evt.Type != EventTypeLendSettled || evt.Attributes["yield"] != "750" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestExecuteLendYieldTooLow(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record, err := h.engine.CreateLendIntent(alice, LendRequest{Asset: usdc, Amount: 1_000_000, MinYieldBps: 800})
	if err != nil {
		t.Fatalf("create lend: %v", err)
	}
	h.credit(t, alice, usdc, 1_000_000)
	reserve := lending.SecondaryReserve{Asset: usdc, AvailableAmount: 200, BorrowedAmount: 800, Config: testRates}

	_, err = h.engine.ExecuteLendSecondary(record.ID, reserve)
	if !errors.Is(err, ErrYieldTooLow) {
		t.Fatalf("expected yield too low, got %v", err)
	}
	if got := h.balance(t, treasury, usdc); got != 0 {
		t.Fatalf("fee transfer must be rolled back, got %d", got)
	}
	if got := h.balance(t, alice, usdc); got != 1_000_000 {
		t.Fatalf("owner balance must be restored, got %d", got)
	}

	other := reserve
	other.Asset = sol
	if _, err := h.engine.ExecuteLendSecondary(record.ID, other); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected reserve asset mismatch, got %v", err)
	}
}

func TestExecuteLendPrimary(t *testing.T) {
	h := newHarness(t, DefaultParams())
	amount := router.DefaultLargeLendThreshold + 1_000_000
	record, err := h.engine.CreateLendIntent(alice, LendRequest{Asset: usdc, Amount: amount, MinYieldBps: 700})
	if err != nil {
		t.Fatalf("create lend: %v", err)
	}
	if *record.LendingVenue != router.LendingVenuePrimary {
		t.Fatalf("expected primary lender, got %s", record.LendingVenue)
	}
	h.credit(t, alice, usdc, amount)

	borrowed, err := lending.AmountToWad(800)
	if err != nil {
		t.Fatalf("wad: %v", err)
	}
	reserve := lending.PrimaryReserve{Asset: usdc, AvailableAmount: 200, BorrowedAmountWads: borrowed, Config: testRates}
	settled, err := h.engine.ExecuteLendPrimary(record.ID, reserve)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if *settled.ExecutionYieldBps != 700 {
		t.Fatalf("unexpected yield %d", *settled.ExecutionYieldBps)
	}
}

func TestExecuteBuyAggregator(t *testing.T) {
	target := uint64(498_500)
	h := newHarness(t, DefaultParams())
	record, err := h.engine.CreateBuyIntent(alice, BuyRequest{Asset: sol, QuoteAsset: usdc, QuoteAmount: 1_000_000, TargetPrice: &target, MaxPriceImpactBps: 100})
	if err != nil {
		t.Fatalf("create buy: %v", err)
	}
	if record.FromAsset != usdc || record.ToAsset != sol || record.Fee != 3_000 {
		t.Fatalf("unexpected record %+v", record)
	}
	h.credit(t, alice, usdc, 1_000_000)
	h.credit(t, swapVenueAccounts[router.SwapVenueAggregator], sol, 10_000_000)

	quote := amm.RouteQuote{InputAsset: usdc, OutputAsset: sol, InAmount: 997_000, OutAmount: 2_000_000, PriceImpactBps: 50}

	steep := quote
	steep.PriceImpactBps = 150
	if _, err := h.engine.ExecuteBuyAggregator(record.ID, steep); !errors.Is(err, ErrSlippageExceeded) {
		t.Fatalf("expected price impact rejection, got %v", err)
	}
	expensive := quote
	expensive.OutAmount = 1_999_999
	if _, err := h.engine.ExecuteBuyAggregator(record.ID, expensive); !errors.Is(err, ErrPriceAboveTarget) {
		t.Fatalf("expected price above target, got %v", err)
	}
	if got := h.balance(t, treasury, usdc); got != 0 {
		t.Fatalf("rejected buys must not move the fee, got %d", got)
	}

	settled, err := h.engine.ExecuteBuyAggregator(record.ID, quote)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if *settled.ExecutionOutput != 2_000_000 {
		t.Fatalf("unexpected output %d", *settled.ExecutionOutput)
	}
	if got := h.balance(t, alice, sol); got != 2_000_000 {
		t.Fatalf("owner should receive the bought asset, got %d", got)
	}
	if evt := h.emitter.last(); evt.Type != EventTypeBuySettled {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestBuyRouteChecksInputNotSlippage(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record, err := h.engine.CreateBuyIntent(alice, BuyRequest{Asset: sol, QuoteAsset: usdc, QuoteAmount: 1_000_000, MaxPriceImpactBps: 100})
	if err != nil {
		t.Fatalf("create buy: %v", err)
	}
	h.credit(t, alice, usdc, 1_000_000)
	h.credit(t, swapVenueAccounts[router.SwapVenueAggregator], sol, 10_000_000)

	short := amm.RouteQuote{InputAsset: usdc, OutputAsset: sol, InAmount: 996_999, OutAmount: 2_000_000}
	if _, err := h.engine.ExecuteBuyAggregator(record.ID, short); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected input mismatch, got %v", err)
	}
	split := amm.RouteQuote{
		InputAsset: usdc, OutputAsset: sol, InAmount: 997_000, OutAmount: 2_000_000,
		RoutePlan: []amm.RouteStep{{Percent: 70}},
	}
	if _, err := h.engine.ExecuteBuyAggregator(record.ID, split); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected broken split rejection, got %v", err)
	}

	quoted := amm.RouteQuote{InputAsset: usdc, OutputAsset: sol, InAmount: 997_000, OutAmount: 2_000_000, SlippageBps: 300}
	if _, err := h.engine.ExecuteBuyAggregator(record.ID, quoted); err != nil {
		t.Fatalf("route slippage does not bind buys: %v", err)
	}
}

func TestSimulatedExecutionRequiresSimplifiedProfile(t *testing.T) {
	h := newHarness(t, DefaultParams())
	record := h.swap(t, alice, usdc, sol, 10_000, 100)
	if _, err := h.engine.ExecuteSwapSimulated(alice, record.ID, 1); !errors.Is(err, ErrUnsupportedOperation) {
		t.Fatalf("expected unsupported, got %v", err)
	}
}

func TestSimulatedSwap(t *testing.T) {
	h := newHarness(t, SimplifiedParams())
	record := h.swap(t, alice, usdc, sol, 10_000_000, 100)
	if record.ExpiresAt != testNow+3600 {
		t.Fatalf("simplified swaps expire after an hour, got %d", record.ExpiresAt-testNow)
	}
	h.credit(t, alice, usdc, 10_000_000)

	if _, err := h.engine.ExecuteSwapSimulated(bob, record.ID, 5); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	settled, err := h.engine.ExecuteSwapSimulated(alice, record.ID, 19_000_000)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if *settled.ExecutionOutput != 19_000_000 {
		t.Fatalf("unexpected output %d", *settled.ExecutionOutput)
	}
	if got := h.balance(t, alice, usdc); got != 10_000_000-30_000 {
		t.Fatalf("only the fee should move, got %d", got)
	}
	if evt := h.emitter.last(); evt.Attributes["simulated"] != "true" {
		t.Fatalf("expected simulated marker, got %+v", evt)
	}
}

func TestSimulatedLend(t *testing.T) {
	h := newHarness(t, SimplifiedParams())
	record, err := h.engine.CreateLendIntent(alice, LendRequest{Asset: usdc, Amount: 1_000_000, MinYieldBps: 500})
	if err != nil {
		t.Fatalf("create lend: %v", err)
	}
	h.credit(t, alice, usdc, 1_000_000)
	if _, err := h.engine.ExecuteLendSimulated(alice, record.ID, 499); !errors.Is(err, ErrYieldTooLow) {
		t.Fatalf("expected yield too low, got %v", err)
	}
	settled, err := h.engine.ExecuteLendSimulated(alice, record.ID, 650)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if *settled.ExecutionYieldBps != 650 {
		t.Fatalf("unexpected yield %d", *settled.ExecutionYieldBps)
	}
	if _, err := h.engine.ExecuteLendSimulated(alice, record.ID, 650); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected not pending, got %v", err)
	}
}

func TestBestYield(t *testing.T) {
	borrowed, err := lending.AmountToWad(800)
	if err != nil {
		t.Fatalf("wad: %v", err)
	}
	best, err := BestYield(usdc,
		YieldOffer{Venue: router.LendingVenuePrimary, Reserve: lending.PrimaryReserve{Asset: usdc, AvailableAmount: 200, BorrowedAmountWads: borrowed, Config: testRates}},
		YieldOffer{Venue: router.LendingVenueSecondary, Reserve: lending.SecondaryReserve{Asset: usdc, AvailableAmount: 200, BorrowedAmount: 800, Config: testRates}},
	)
	if err != nil {
		t.Fatalf("best yield: %v", err)
	}
	if best.Venue != router.LendingVenueSecondary || best.APYBps != 750 {
		t.Fatalf("unexpected best yield %+v", best)
	}
	if _, err := BestYield(usdc); !errors.Is(err, router.ErrNoYieldQuotes) {
		t.Fatalf("expected no quotes, got %v", err)
	}
	if _, err := BestYield(sol, YieldOffer{Venue: router.LendingVenueSecondary, Reserve: lending.SecondaryReserve{Asset: usdc}}); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected asset mismatch, got %v", err)
	}
}

func TestQuoteDirectSwap(t *testing.T) {
	quote, err := QuoteDirectSwap(router.SwapVenuePrimaryAMM, testPool(), usdc, sol, 10_000_000, 30, 100)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if quote.Fee != 30_000 || quote.NetAmount != 9_970_000 || quote.AmountOut != 19_694_288 || quote.MinimumOut != 19_497_345 {
		t.Fatalf("unexpected quote %+v", quote)
	}
	if _, err := QuoteDirectSwap(router.SwapVenueAggregator, testPool(), usdc, sol, 10, 30, 100); !errors.Is(err, ErrWrongVenue) {
		t.Fatalf("expected wrong venue, got %v", err)
	}
}
