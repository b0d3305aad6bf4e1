package router

import (
	"fmt"
	"strings"
)

// SwapVenue identifies the venue a swap intent settles against.
type SwapVenue uint8

const (
	SwapVenueAggregator SwapVenue = iota
	SwapVenuePrimaryAMM
	SwapVenueAlternateAMM
)

var swapVenueNames = map[SwapVenue]string{
	SwapVenueAggregator:   "aggregator",
	SwapVenuePrimaryAMM:   "primary_amm",
	SwapVenueAlternateAMM: "alternate_amm",
}

// Valid reports whether the venue is a known value.
func (v SwapVenue) Valid() bool {
	_, ok := swapVenueNames[v]
	return ok
}

func (v SwapVenue) String() string {
	if name, ok := swapVenueNames[v]; ok {
		return name
	}
	return fmt.Sprintf("swap_venue(%d)", uint8(v))
}

// Direct reports whether the venue is priced by the constant-product engine.
func (v SwapVenue) Direct() bool {
	return v == SwapVenuePrimaryAMM || v == SwapVenueAlternateAMM
}

// ParseSwapVenue resolves a venue name.
func ParseSwapVenue(name string) (SwapVenue, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for venue, candidate := range swapVenueNames {
		if candidate == normalized {
			return venue, nil
		}
	}
	return 0, fmt.Errorf("router: unknown swap venue %q", name)
}

// LendingVenue identifies the venue a lend intent settles against.
type LendingVenue uint8

const (
	LendingVenuePrimary LendingVenue = iota
	LendingVenueSecondary
	LendingVenueYieldFarmA
	LendingVenueYieldFarmB
)

var lendingVenueNames = map[LendingVenue]string{
	LendingVenuePrimary:    "primary_lender",
	LendingVenueSecondary:  "secondary_lender",
	LendingVenueYieldFarmA: "yield_farm_a",
	LendingVenueYieldFarmB: "yield_farm_b",
}

// Valid reports whether the venue is a known value.
func (v LendingVenue) Valid() bool {
	_, ok := lendingVenueNames[v]
	return ok
}

func (v LendingVenue) String() string {
	if name, ok := lendingVenueNames[v]; ok {
		return name
	}
	return fmt.Sprintf("lending_venue(%d)", uint8(v))
}

// ParseLendingVenue resolves a venue name.
func ParseLendingVenue(name string) (LendingVenue, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for venue, candidate := range lendingVenueNames {
		if candidate == normalized {
			return venue, nil
		}
	}
	return 0, fmt.Errorf("router: unknown lending venue %q", name)
}
