package intent

import (
	"fmt"

	"intentengine/native/router"
)

// Kind enumerates the declared actions.
type Kind uint8

const (
	KindSwap Kind = iota
	KindLend
	KindBuy
)

func (k Kind) String() string {
	switch k {
	case KindSwap:
		return "swap"
	case KindLend:
		return "lend"
	case KindBuy:
		return "buy"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether the kind is a known value.
func (k Kind) Valid() bool { return k <= KindBuy }

// Status represents the intent lifecycle. StatusExpired is never stored; it is
// derived for Pending intents whose expiry has passed.
type Status uint8

const (
	StatusPending Status = iota
	StatusExecuted
	StatusCancelled
	StatusExpired
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusExecuted:
		return "executed"
	case StatusCancelled:
		return "cancelled"
	case StatusExpired:
		return "expired"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Valid reports whether the status may be persisted.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusExecuted, StatusCancelled:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition is possible.

// ProtocolConfig is the process-wide singleton.
type ProtocolConfig struct {
	Admin           [20]byte
	Treasury        [20]byte
	FeeBps          uint64
	TotalFees       uint64
	IntentsCreated  uint64
	IntentsExecuted uint64
	Paused          bool
}

// Clone returns a copy of the config.
func (c *ProtocolConfig) Clone() *ProtocolConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// UserProfile tracks one participant's intent accounting.
type UserProfile struct {
	Owner            [20]byte
	ActiveIntents    uint64
	TotalIntents     uint64
	TotalVolume      uint64
	RiskCheckEnabled bool
	CreatedAt        int64
}

// Clone returns a copy of the profile.
func (u *UserProfile) Clone() *UserProfile {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

// Intent is one declared action. The fee is fixed at creation from the fee
// rate in force at that moment.
type Intent struct {
	ID     [32]byte
	Owner  [20]byte
	Kind   Kind
	Status Status

	FromAsset [20]byte
	ToAsset   [20]byte
	Amount    uint64
	Fee       uint64

	// MaxSlippageBps bounds swap output. Zero for other kinds.
	MaxSlippageBps uint64
	// MinYieldBps is the lowest acceptable lending yield. Zero for other kinds.
	MinYieldBps uint64
	// TargetPrice is the highest acceptable buy price, in quote units per
	// PriceScale units of the bought asset. Nil when unconditional.
	TargetPrice       *uint64
	MaxPriceImpactBps uint64

	SwapVenue    *router.SwapVenue
	LendingVenue *router.LendingVenue

	CreatedAt int64
	ExpiresAt int64

	ExecutedAt        *int64
	CancelledAt       *int64
	ExecutionOutput   *uint64
	ExecutionYieldBps *uint64
}

// Clone returns a deep copy of the intent.
func (i *Intent) Clone() *Intent {
	if i == nil {
		return nil
	}
	clone := *i
	clone.TargetPrice = cloneUint64(i.TargetPrice)
	clone.ExecutedAt = cloneInt64(i.ExecutedAt)
	clone.CancelledAt = cloneInt64(i.CancelledAt)
	clone.ExecutionOutput = cloneUint64(i.ExecutionOutput)
	clone.ExecutionYieldBps = cloneUint64(i.ExecutionYieldBps)
	if i.SwapVenue != nil {
		v := *i.SwapVenue
		clone.SwapVenue = &v
	}
	if i.LendingVenue != nil {
		v := *i.LendingVenue
		clone.LendingVenue = &v
	}
	return &clone
}

// EffectiveStatus reports StatusExpired for Pending intents at or past expiry.
func (i *Intent) EffectiveStatus(now int64) Status {
	if i == nil {
		return StatusPending
	}
	if i.Status == StatusPending && now >= i.ExpiresAt {
		return StatusExpired
	}
	return i.Status
}

// NetAmount is the principal left after the protocol fee.
func (i *Intent) NetAmount() (uint64, error) {
	if i.Fee > i.Amount {
		return 0, fmt.Errorf("%w: fee %d exceeds amount %d", ErrInvalidAmount, i.Fee, i.Amount)
	}
	return i.Amount - i.Fee, nil
}

// SanitizeIntent validates a stored intent and returns a copy.
func SanitizeIntent(i *Intent) (*Intent, error) {
	if i == nil {
		return nil, fmt.Errorf("nil intent")
	}
	if !i.Kind.Valid() {
		return nil, fmt.Errorf("invalid intent kind: %d", i.Kind)
	}
	if !i.Status.Valid() {
		return nil, fmt.Errorf("invalid intent status: %d", i.Status)
	}
	if i.Fee > i.Amount {
		return nil, fmt.Errorf("intent fee %d exceeds amount %d", i.Fee, i.Amount)
	}
	if i.SwapVenue != nil && !i.SwapVenue.Valid() {
		return nil, fmt.Errorf("invalid swap venue: %d", *i.SwapVenue)
	}
	if i.LendingVenue != nil && !i.LendingVenue.Valid() {
		return nil, fmt.Errorf("invalid lending venue: %d", *i.LendingVenue)
	}
	return i.Clone(), nil
}

// SwapRequest declares a swap.
type SwapRequest struct {
	FromAsset      [20]byte
	ToAsset        [20]byte
	Amount         uint64
	MaxSlippageBps uint64
	RiskCheck      bool
}

// LendRequest declares a deposit with a yield floor.
type LendRequest struct {
	Asset       [20]byte
	Amount      uint64
	MinYieldBps uint64
}

// BuyRequest declares a purchase paid in QuoteAsset.
type BuyRequest struct {
	Asset             [20]byte
	QuoteAsset        [20]byte
	QuoteAmount       uint64
	TargetPrice       *uint64
	MaxPriceImpactBps uint64
	RiskCheck         bool
}

func cloneUint64(v *uint64) *uint64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
