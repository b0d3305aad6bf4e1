package state

import (
	"fmt"

	"intentengine/native/intent"
	"intentengine/native/router"
)

type storedProtocolConfig struct {
	Admin           [20]byte
	Treasury        [20]byte
	FeeBps          uint64
	TotalFees       uint64
	IntentsCreated  uint64
	IntentsExecuted uint64
	Paused          bool
}

type storedUserProfile struct {
	Owner            [20]byte
	ActiveIntents    uint64
	TotalIntents     uint64
	TotalVolume      uint64
	RiskCheckEnabled bool
	CreatedAt        uint64
}

// storedIntent flattens optional fields into presence flags since RLP has no
// notion of an absent scalar.
type storedIntent struct {
	ID                [32]byte
	Owner             [20]byte
	Kind              uint8
	Status            uint8
	FromAsset         [20]byte
	ToAsset           [20]byte
	Amount            uint64
	Fee               uint64
	MaxSlippageBps    uint64
	MinYieldBps       uint64
	HasTargetPrice    bool
	TargetPrice       uint64
	MaxPriceImpactBps uint64
	HasSwapVenue      bool
	SwapVenue         uint8
	HasLendingVenue   bool
	LendingVenue      uint8
	CreatedAt         uint64
	ExpiresAt         uint64
	HasExecutedAt     bool
	ExecutedAt        uint64
	HasCancelledAt    bool
	CancelledAt       uint64
	HasOutput         bool
	Output            uint64
	HasYield          bool
	YieldBps          uint64
}

type storedBalance struct {
	Amount uint64
}

func timestamp(v int64) (uint64, error) {
	if v < 0 {
		return 0, fmt.Errorf("state: negative timestamp %d", v)
	}
	return uint64(v), nil
}

func optionalTimestamp(v *int64) (bool, uint64, error) {
	if v == nil {
		return false, 0, nil
	}
	ts, err := timestamp(*v)
	return true, ts, err
}

func optionalUint(v *uint64) (bool, uint64) {
	if v == nil {
		return false, 0
	}
	return true, *v
}

func newStoredIntent(record *intent.Intent) (*storedIntent, error) {
	created, err := timestamp(record.CreatedAt)
	if err != nil {
		return nil, err
	}
	expires, err := timestamp(record.ExpiresAt)
	if err != nil {
		return nil, err
	}
	s := &storedIntent{
		ID:                record.ID,
		Owner:             record.Owner,
		Kind:              uint8(record.Kind),
		Status:            uint8(record.Status),
		FromAsset:         record.FromAsset,
		ToAsset:           record.ToAsset,
		Amount:            record.Amount,
		Fee:               record.Fee,
		MaxSlippageBps:    record.MaxSlippageBps,
		MinYieldBps:       record.MinYieldBps,
		MaxPriceImpactBps: record.MaxPriceImpactBps,
		CreatedAt:         created,
		ExpiresAt:         expires,
	}
	s.HasTargetPrice, s.TargetPrice = optionalUint(record.TargetPrice)
	s.HasOutput, s.Output = optionalUint(record.ExecutionOutput)
	s.HasYield, s.YieldBps = optionalUint(record.ExecutionYieldBps)
	if record.SwapVenue != nil {
		s.HasSwapVenue, s.SwapVenue = true, uint8(*record.SwapVenue)
	}
	if record.LendingVenue != nil {
		s.HasLendingVenue, s.LendingVenue = true, uint8(*record.LendingVenue)
	}
	if s.HasExecutedAt, s.ExecutedAt, err = optionalTimestamp(record.ExecutedAt); err != nil {
		return nil, err
	}
	if s.HasCancelledAt, s.CancelledAt, err = optionalTimestamp(record.CancelledAt); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *storedIntent) toIntent() (*intent.Intent, error) {
	if s == nil {
		return nil, fmt.Errorf("intent: nil storage record")
	}
	out := &intent.Intent{
		ID:                s.ID,
		Owner:             s.Owner,
		Kind:              intent.Kind(s.Kind),
		Status:            intent.Status(s.Status),
		FromAsset:         s.FromAsset,
		ToAsset:           s.ToAsset,
		Amount:            s.Amount,
		Fee:               s.Fee,
		MaxSlippageBps:    s.MaxSlippageBps,
		MinYieldBps:       s.MinYieldBps,
		MaxPriceImpactBps: s.MaxPriceImpactBps,
		CreatedAt:         int64(s.CreatedAt),
		ExpiresAt:         int64(s.ExpiresAt),
	}
	if s.HasTargetPrice {
		v := s.TargetPrice
		out.TargetPrice = &v
	}
	if s.HasSwapVenue {
		v := router.SwapVenue(s.SwapVenue)
		out.SwapVenue = &v
	}
	if s.HasLendingVenue {
		v := router.LendingVenue(s.LendingVenue)
		out.LendingVenue = &v
	}
	if s.HasExecutedAt {
		v := int64(s.ExecutedAt)
		out.ExecutedAt = &v
	}
	if s.HasCancelledAt {
		v := int64(s.CancelledAt)
		out.CancelledAt = &v
	}
	if s.HasOutput {
		v := s.Output
		out.ExecutionOutput = &v
	}
	if s.HasYield {
		v := s.YieldBps
		out.ExecutionYieldBps = &v
	}
	return intent.SanitizeIntent(out)
}

// IntentProtocolConfig loads the singleton protocol config.
func (m *Manager) IntentProtocolConfig() (*intent.ProtocolConfig, bool, error) {
	var stored storedProtocolConfig
	ok, err := m.KVGet(ProtocolConfigKey(), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &intent.ProtocolConfig{
		Admin:           stored.Admin,
		Treasury:        stored.Treasury,
		FeeBps:          stored.FeeBps,
		TotalFees:       stored.TotalFees,
		IntentsCreated:  stored.IntentsCreated,
		IntentsExecuted: stored.IntentsExecuted,
		Paused:          stored.Paused,
	}, true, nil
}

// IntentPutProtocolConfig stores the singleton protocol config.
func (m *Manager) IntentPutProtocolConfig(cfg *intent.ProtocolConfig) error {
	if cfg == nil {
		return fmt.Errorf("intent: nil protocol config")
	}
	return m.KVPut(ProtocolConfigKey(), &storedProtocolConfig{
		Admin:           cfg.Admin,
		Treasury:        cfg.Treasury,
		FeeBps:          cfg.FeeBps,
		TotalFees:       cfg.TotalFees,
		IntentsCreated:  cfg.IntentsCreated,
		IntentsExecuted: cfg.IntentsExecuted,
		Paused:          cfg.Paused,
	})
}

// IntentUser loads an owner's profile.
func (m *Manager) IntentUser(owner [20]byte) (*intent.UserProfile, bool, error) {
	var stored storedUserProfile
	ok, err := m.KVGet(UserKey(owner), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	return &intent.UserProfile{
		Owner:            stored.Owner,
		ActiveIntents:    stored.ActiveIntents,
		TotalIntents:     stored.TotalIntents,
		TotalVolume:      stored.TotalVolume,
		RiskCheckEnabled: stored.RiskCheckEnabled,
		CreatedAt:        int64(stored.CreatedAt),
	}, true, nil
}

// IntentPutUser stores an owner's profile.
func (m *Manager) IntentPutUser(profile *intent.UserProfile) error {
	if profile == nil {
		return fmt.Errorf("intent: nil user profile")
	}
	created, err := timestamp(profile.CreatedAt)
	if err != nil {
		return err
	}
	return m.KVPut(UserKey(profile.Owner), &storedUserProfile{
		Owner:            profile.Owner,
		ActiveIntents:    profile.ActiveIntents,
		TotalIntents:     profile.TotalIntents,
		TotalVolume:      profile.TotalVolume,
		RiskCheckEnabled: profile.RiskCheckEnabled,
		CreatedAt:        created,
	})
}

// IntentGet loads an intent record.
func (m *Manager) IntentGet(id [32]byte) (*intent.Intent, bool, error) {
	var stored storedIntent
	ok, err := m.KVGet(IntentKey(id), &stored)
	if err != nil || !ok {
		return nil, false, err
	}
	record, err := stored.toIntent()
	if err != nil {
		return nil, false, err
	}
	return record, true, nil
}

// IntentPut stores an intent record.
func (m *Manager) IntentPut(record *intent.Intent) error {
	sanitized, err := intent.SanitizeIntent(record)
	if err != nil {
		return err
	}
	stored, err := newStoredIntent(sanitized)
	if err != nil {
		return err
	}
	return m.KVPut(IntentKey(sanitized.ID), stored)
}

// IntentIndexAppend records id against its owner.
func (m *Manager) IntentIndexAppend(owner [20]byte, id [32]byte) error {
	return m.KVAppend(OwnerIndexKey(owner), id[:])
}

// IntentIndex lists an owner's intent ids in declaration order.
func (m *Manager) IntentIndex(owner [20]byte) ([][32]byte, error) {
	var raw [][]byte
	if err := m.KVGetList(OwnerIndexKey(owner), &raw); err != nil {
		return nil, err
	}
	out := make([][32]byte, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 32 {
			return nil, fmt.Errorf("intent: malformed index entry of %d bytes", len(entry))
		}
		var id [32]byte
		copy(id[:], entry)
		out = append(out, id)
	}
	return out, nil
}

// LedgerBalance returns the balance of asset held by account.
func (m *Manager) LedgerBalance(account, asset [20]byte) (uint64, error) {
	var stored storedBalance
	if _, err := m.KVGet(BalanceKey(account, asset), &stored); err != nil {
		return 0, err
	}
	return stored.Amount, nil
}

// LedgerSetBalance overwrites the balance of asset held by account. Zero
// balances are removed.
func (m *Manager) LedgerSetBalance(account, asset [20]byte, amount uint64) error {
	key := BalanceKey(account, asset)
	if amount == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, &storedBalance{Amount: amount})
}
