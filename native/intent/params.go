package intent

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"intentengine/native/fees"
	"intentengine/native/fixedpoint"
)

// Profile selects between the production rule set and the simplified devnet
// rule set.
type Profile string

const (
	ProfileProduction Profile = "production"
	ProfileSimplified Profile = "simplified"
)

const (
	// DefaultMaxActiveIntents caps a user's concurrently pending intents.
	DefaultMaxActiveIntents uint64 = 50
	// MaxSwapSlippageBps is the widest slippage bound any profile may allow.
	MaxSwapSlippageBps uint64 = 5_000
	// DefaultMinRiskScore is the lowest risk score accepted when a check runs.
	DefaultMinRiskScore uint8 = 70
	// PriceScale is the unit of bought asset a buy target price refers to.
	PriceScale uint64 = 1_000_000
)

// Params carries the engine's rule set.
type Params struct {
	Profile          Profile
	FeeBps           uint64
	MaxActiveIntents uint64
	MaxSlippageBps   uint64
	MinRiskScore     uint8
	SwapTTL          time.Duration
	LendTTL          time.Duration
	BuyTTL           time.Duration
}

// DefaultParams returns the production rule set.
func DefaultParams() Params {
	return Params{
		Profile:          ProfileProduction,
		FeeBps:           fees.DefaultProtocolFeeBps,
		MaxActiveIntents: DefaultMaxActiveIntents,
		MaxSlippageBps:   MaxSwapSlippageBps,
		MinRiskScore:     DefaultMinRiskScore,
		SwapTTL:          7 * 24 * time.Hour,
		LendTTL:          7 * 24 * time.Hour,
		BuyTTL:           7 * 24 * time.Hour,
	}
}

// SimplifiedParams returns the devnet rule set: short expiries, tighter
// slippage and caller-reported settlement results.
func SimplifiedParams() Params {
	p := DefaultParams()
	p.Profile = ProfileSimplified
	p.MaxSlippageBps = 1_000
	p.SwapTTL = time.Hour
	p.LendTTL = 2 * time.Hour
	p.BuyTTL = time.Hour
	return p
}

// ParamsForProfile returns the defaults of the named profile.
func ParamsForProfile(name string) (Params, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProfileProduction:
		return DefaultParams(), nil
	case ProfileSimplified:
		return SimplifiedParams(), nil
	default:
		return Params{}, fmt.Errorf("intent: unknown profile %q", name)
	}
}

// Validate checks the rule set is internally consistent.
func (p Params) Validate() error {
	if p.Profile != ProfileProduction && p.Profile != ProfileSimplified {
		return fmt.Errorf("intent: unknown profile %q", p.Profile)
	}
	if p.FeeBps > fixedpoint.BpsDenominator {
		return fmt.Errorf("intent: fee bps %d out of range", p.FeeBps)
	}
	if p.MaxActiveIntents == 0 || p.MaxActiveIntents > DefaultMaxActiveIntents {
		return fmt.Errorf("intent: max active intents %d outside [1, %d]", p.MaxActiveIntents, DefaultMaxActiveIntents)
	}
	if p.MaxSlippageBps > MaxSwapSlippageBps {
		return fmt.Errorf("intent: max slippage %d above %d", p.MaxSlippageBps, MaxSwapSlippageBps)
	}
	if p.MinRiskScore > 100 {
		return fmt.Errorf("intent: min risk score %d out of range", p.MinRiskScore)
	}
	if p.SwapTTL <= 0 || p.LendTTL <= 0 || p.BuyTTL <= 0 {
		return errors.New("intent: ttl values must be positive")
	}
	return nil
}

func (p Params) ttl(kind Kind) time.Duration {
	switch kind {
	case KindLend:
		return p.LendTTL
	case KindBuy:
		return p.BuyTTL
	default:
		return p.SwapTTL
	}
}
