package intent

import (
	"fmt"

	"intentengine/native/router"
)

// Ledger moves balances inside the operation being settled. Every movement is
// discarded if the operation fails.
type Ledger interface {
	Balance(account, asset [20]byte) (uint64, error)
	Transfer(asset [20]byte, from, to [20]byte, amount uint64) error
}

// SwapOrder is what the coordinator asks a swap venue to fill.
type SwapOrder struct {
	IntentID  [32]byte
	Owner     [20]byte
	Venue     router.SwapVenue
	FromAsset [20]byte
	ToAsset   [20]byte
	AmountIn  uint64
	// ExpectedOut is the quoted or computed output before slippage.
	ExpectedOut uint64
	MinimumOut  uint64
}

// SwapVenueAdapter performs the venue side of a swap and reports the output
// actually delivered to the owner.
type SwapVenueAdapter interface {
	Swap(ledger Ledger, order SwapOrder) (uint64, error)
}

// DepositOrder is what the coordinator asks a lending venue to accept.
type DepositOrder struct {
	IntentID [32]byte
	Owner    [20]byte
	Venue    router.LendingVenue
	Asset    [20]byte
	Amount   uint64
	YieldBps uint64
}

// LendingVenueAdapter performs the venue side of a deposit.
type LendingVenueAdapter interface {
	Deposit(ledger Ledger, order DepositOrder) error
}

// LedgerSwapVenue settles swaps through a venue settlement account: the input
// moves from the owner to the account and the expected output moves back.
type LedgerSwapVenue struct {
	Account [20]byte
}

// Swap implements SwapVenueAdapter.
func (v LedgerSwapVenue) Swap(ledger Ledger, order SwapOrder) (uint64, error) {
	if err := ledger.Transfer(order.FromAsset, order.Owner, v.Account, order.AmountIn); err != nil {
		return 0, fmt.Errorf("deliver input: %w", err)
	}
	if err := ledger.Transfer(order.ToAsset, v.Account, order.Owner, order.ExpectedOut); err != nil {
		return 0, fmt.Errorf("deliver output: %w", err)
	}
	return order.ExpectedOut, nil
}

// LedgerLendingVenue moves deposits into a venue receiving account.
type LedgerLendingVenue struct {
	Account [20]byte
}

// Deposit implements LendingVenueAdapter.
func (v LedgerLendingVenue) Deposit(ledger Ledger, order DepositOrder) error {
	return ledger.Transfer(order.Asset, order.Owner, v.Account, order.Amount)
}

// Venues binds every venue to its adapter.
type Venues struct {
	Swap    map[router.SwapVenue]SwapVenueAdapter
	Lending map[router.LendingVenue]LendingVenueAdapter
}

// LedgerVenues builds ledger-backed adapters for every venue. The resolvers
// return each venue's settlement account.
func LedgerVenues(swapAccount func(router.SwapVenue) [20]byte, lendingAccount func(router.LendingVenue) [20]byte) Venues {
	venues := Venues{
		Swap:    make(map[router.SwapVenue]SwapVenueAdapter),
		Lending: make(map[router.LendingVenue]LendingVenueAdapter),
	}
	for _, v := range []router.SwapVenue{router.SwapVenueAggregator, router.SwapVenuePrimaryAMM, router.SwapVenueAlternateAMM} {
		venues.Swap[v] = LedgerSwapVenue{Account: swapAccount(v)}
	}
	for _, v := range []router.LendingVenue{router.LendingVenuePrimary, router.LendingVenueSecondary, router.LendingVenueYieldFarmA, router.LendingVenueYieldFarmB} {
		venues.Lending[v] = LedgerLendingVenue{Account: lendingAccount(v)}
	}
	return venues
}

func (v Venues) swapAdapter(venue router.SwapVenue) (SwapVenueAdapter, error) {
	adapter, ok := v.Swap[venue]
	if !ok || adapter == nil {
		return nil, fmt.Errorf("%w: no adapter for %s", ErrVenueFailed, venue)
	}
	return adapter, nil
}

func (v Venues) lendingAdapter(venue router.LendingVenue) (LendingVenueAdapter, error) {
	adapter, ok := v.Lending[venue]
	if !ok || adapter == nil {
		return nil, fmt.Errorf("%w: no adapter for %s", ErrVenueFailed, venue)
	}
	return adapter, nil
}
