package intent

import (
	"encoding/hex"
	"strconv"

	"intentengine/core/types"
	"intentengine/crypto"
)

const (
	EventTypeProtocolInitialized = "protocol.initialized"
	EventTypeProtocolPaused      = "protocol.paused"
	EventTypeProtocolUnpaused    = "protocol.unpaused"
	EventTypeUserInitialized     = "user.initialized"
	EventTypeUserRiskCheck       = "user.risk_check_updated"
	EventTypeIntentCreated       = "intent.created"
	EventTypeIntentCancelled     = "intent.cancelled"
	EventTypeSwapSettled         = "intent.swap_settled"
	EventTypeLendSettled         = "intent.lend_settled"
	EventTypeBuySettled          = "intent.buy_settled"
	EventTypeLedgerCredited      = "ledger.credited"
)

// FormatID renders an intent identifier as 0x-prefixed hex.
func FormatID(id [32]byte) string { return "0x" + hex.EncodeToString(id[:]) }

func account(raw [20]byte) string { return crypto.AccountAddress(raw).String() }

func asset(raw [20]byte) string { return crypto.AssetAddress(raw).String() }

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

// NewProtocolInitializedEvent returns the payload emitted once the singleton
// config exists.
func NewProtocolInitializedEvent(cfg *ProtocolConfig) *types.Event {
	return &types.Event{
		Type: EventTypeProtocolInitialized,
		Attributes: map[string]string{
			"admin":    account(cfg.Admin),
			"treasury": account(cfg.Treasury),
			"feeBps":   u64(cfg.FeeBps),
		},
	}
}

// NewPauseEvent returns the payload for a pause toggle.
func NewPauseEvent(cfg *ProtocolConfig) *types.Event {
	kind := EventTypeProtocolUnpaused
	if cfg.Paused {
		kind = EventTypeProtocolPaused
	}
	return &types.Event{Type: kind, Attributes: map[string]string{"admin": account(cfg.Admin)}}
}

func NewUserInitializedEvent(profile *UserProfile) *types.Event {
	return &types.Event{Type: EventTypeUserInitialized, Attributes: map[string]string{"owner": account(profile.Owner)}}
}

func NewRiskCheckEvent(profile *UserProfile) *types.Event {
	return &types.Event{
		Type: EventTypeUserRiskCheck,
		Attributes: map[string]string{
			"owner":   account(profile.Owner),
			"enabled": strconv.FormatBool(profile.RiskCheckEnabled),
		},
	}
}

// NewCreatedEvent returns the canonical payload for a newly declared intent.
func NewCreatedEvent(record *Intent) *types.Event {
	attrs := map[string]string{
		"intentId":  FormatID(record.ID),
		"owner":     account(record.Owner),
		"kind":      record.Kind.String(),
		"fromAsset": asset(record.FromAsset),
		"toAsset":   asset(record.ToAsset),
		"amount":    u64(record.Amount),
		"fee":       u64(record.Fee),
		"expiresAt": strconv.FormatInt(record.ExpiresAt, 10),
	}
	if record.SwapVenue != nil {
		attrs["venue"] = record.SwapVenue.String()
	}
	if record.LendingVenue != nil {
		attrs["venue"] = record.LendingVenue.String()
	}
	return &types.Event{Type: EventTypeIntentCreated, Attributes: attrs}
}

func NewCancelledEvent(record *Intent) *types.Event {
	return &types.Event{
		Type: EventTypeIntentCancelled,
		Attributes: map[string]string{
			"intentId": FormatID(record.ID),
			"owner":    account(record.Owner),
		},
	}
}

// NewSwapSettledEvent reports a settled swap. amountIn is the net principal
// after the protocol fee.
func NewSwapSettledEvent(record *Intent, venue string, amountIn, amountOut uint64) *types.Event {
	return &types.Event{
		Type: EventTypeSwapSettled,
		Attributes: map[string]string{
			"intentId":  FormatID(record.ID),
			"owner":     account(record.Owner),
			"venue":     venue,
			"fromAsset": asset(record.FromAsset),
			"toAsset":   asset(record.ToAsset),
			"amountIn":  u64(amountIn),
			"amountOut": u64(amountOut),
			"fee":       u64(record.Fee),
		},
	}
}

// NewLendSettledEvent reports a settled deposit.
func NewLendSettledEvent(record *Intent, venue string, amount, yieldBps uint64) *types.Event {
	return &types.Event{
		Type: EventTypeLendSettled,
		Attributes: map[string]string{
			"intentId": FormatID(record.ID),
			"owner":    account(record.Owner),
			"asset":    asset(record.FromAsset),
			"amount":   u64(amount),
			"yield":    u64(yieldBps),
			"venue":    venue,
			"fee":      u64(record.Fee),
		},
	}
}

func NewBuySettledEvent(record *Intent, venue string, amountIn, amountOut uint64) *types.Event {
	return &types.Event{
		Type: EventTypeBuySettled,
		Attributes: map[string]string{
			"intentId":   FormatID(record.ID),
			"owner":      account(record.Owner),
			"venue":      venue,
			"asset":      asset(record.ToAsset),
			"quoteAsset": asset(record.FromAsset),
			"amountIn":   u64(amountIn),
			"amountOut":  u64(amountOut),
			"fee":        u64(record.Fee),
		},
	}
}

func NewLedgerCreditedEvent(acct, assetID [20]byte, amount uint64) *types.Event {
	return &types.Event{
		Type: EventTypeLedgerCredited,
		Attributes: map[string]string{
			"account": account(acct),
			"asset":   asset(assetID),
			"amount":  u64(amount),
		},
	}
}
