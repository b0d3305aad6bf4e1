package intent

import (
	"fmt"

	"intentengine/core/types"
	"intentengine/native/fixedpoint"
)

type engineState interface {
	IntentProtocolConfig() (*ProtocolConfig, bool, error)
	IntentPutProtocolConfig(*ProtocolConfig) error
	IntentUser(owner [20]byte) (*UserProfile, bool, error)
	IntentPutUser(*UserProfile) error
	IntentGet(id [32]byte) (*Intent, bool, error)
	IntentPut(*Intent) error
	IntentIndexAppend(owner [20]byte, id [32]byte) error
	IntentIndex(owner [20]byte) ([][32]byte, error)
	LedgerBalance(account, asset [20]byte) (uint64, error)
	LedgerSetBalance(account, asset [20]byte, amount uint64) error
}

type balanceKey struct {
	account [20]byte
	asset   [20]byte
}

type indexEntry struct {
	owner [20]byte
	id    [32]byte
}

// stage buffers every mutation of one operation. Nothing reaches the backing
// state until commit, so an operation that fails part-way leaves no trace.
type stage struct {
	base engineState

	config      *ProtocolConfig
	configDirty bool

	users      map[[20]byte]*UserProfile
	dirtyUsers map[[20]byte]struct{}

	intents      map[[32]byte]*Intent
	dirtyIntents map[[32]byte]struct{}

	index []indexEntry

	balances      map[balanceKey]uint64
	dirtyBalances map[balanceKey]struct{}

	events []*types.Event
}

func newStage(base engineState) *stage {
	return &stage{
		base:          base,
		users:         make(map[[20]byte]*UserProfile),
		dirtyUsers:    make(map[[20]byte]struct{}),
		intents:       make(map[[32]byte]*Intent),
		dirtyIntents:  make(map[[32]byte]struct{}),
		balances:      make(map[balanceKey]uint64),
		dirtyBalances: make(map[balanceKey]struct{}),
	}
}

func (s *stage) protocolConfig() (*ProtocolConfig, error) {
	if s.config != nil {
		return s.config.Clone(), nil
	}
	cfg, ok, err := s.base.IntentProtocolConfig()
	if err != nil {
		return nil, err
	}
	if !ok || cfg == nil {
		return nil, ErrNotInitialized
	}
	s.config = cfg.Clone()
	return cfg.Clone(), nil
}

func (s *stage) putProtocolConfig(cfg *ProtocolConfig) {
	s.config = cfg.Clone()
	s.configDirty = true
}

func (s *stage) user(owner [20]byte) (*UserProfile, bool, error) {
	if profile, ok := s.users[owner]; ok {
		return profile.Clone(), true, nil
	}
	profile, ok, err := s.base.IntentUser(owner)
	if err != nil || !ok || profile == nil {
		return nil, false, err
	}
	s.users[owner] = profile.Clone()
	return profile.Clone(), true, nil
}

func (s *stage) putUser(profile *UserProfile) {
	s.users[profile.Owner] = profile.Clone()
	s.dirtyUsers[profile.Owner] = struct{}{}
}

func (s *stage) intent(id [32]byte) (*Intent, error) {
	if record, ok := s.intents[id]; ok {
		return record.Clone(), nil
	}
	record, ok, err := s.base.IntentGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || record == nil {
		return nil, ErrIntentNotFound
	}
	s.intents[id] = record.Clone()
	return record.Clone(), nil
}

func (s *stage) intentExists(id [32]byte) (bool, error) {
	if _, ok := s.intents[id]; ok {
		return true, nil
	}
	_, ok, err := s.base.IntentGet(id)
	return ok, err
}

func (s *stage) putIntent(record *Intent) {
	s.intents[record.ID] = record.Clone()
	s.dirtyIntents[record.ID] = struct{}{}
}

func (s *stage) appendIndex(owner [20]byte, id [32]byte) {
	s.index = append(s.index, indexEntry{owner: owner, id: id})
}

// Balance implements Ledger.
func (s *stage) Balance(account, asset [20]byte) (uint64, error) {
	key := balanceKey{account: account, asset: asset}
	if amount, ok := s.balances[key]; ok {
		return amount, nil
	}
	amount, err := s.base.LedgerBalance(account, asset)
	if err != nil {
		return 0, err
	}
	s.balances[key] = amount
	return amount, nil
}

// Transfer implements Ledger.
func (s *stage) Transfer(asset [20]byte, from, to [20]byte, amount uint64) error {
	if amount == 0 || from == to {
		return nil
	}
	fromBalance, err := s.Balance(from, asset)
	if err != nil {
		return err
	}
	if fromBalance < amount {
		return fmt.Errorf("%w: balance %d, need %d", ErrInsufficientFunds, fromBalance, amount)
	}
	toBalance, err := s.Balance(to, asset)
	if err != nil {
		return err
	}
	credited, err := fixedpoint.AddUint64(toBalance, amount)
	if err != nil {
		return err
	}
	s.setBalance(from, asset, fromBalance-amount)
	s.setBalance(to, asset, credited)
	return nil
}

func (s *stage) credit(account, asset [20]byte, amount uint64) error {
	current, err := s.Balance(account, asset)
	if err != nil {
		return err
	}
	next, err := fixedpoint.AddUint64(current, amount)
	if err != nil {
		return err
	}
	s.setBalance(account, asset, next)
	return nil
}

func (s *stage) setBalance(account, asset [20]byte, amount uint64) {
	key := balanceKey{account: account, asset: asset}
	s.balances[key] = amount
	s.dirtyBalances[key] = struct{}{}
}

func (s *stage) emit(evt *types.Event) {
	if evt != nil {
		s.events = append(s.events, evt)
	}
}

func (s *stage) commit() error {
	if s.configDirty {
		if err := s.base.IntentPutProtocolConfig(s.config.Clone()); err != nil {
			return err
		}
	}
	for owner := range s.dirtyUsers {
		if err := s.base.IntentPutUser(s.users[owner].Clone()); err != nil {
			return err
		}
	}
	for id := range s.dirtyIntents {
		if err := s.base.IntentPut(s.intents[id].Clone()); err != nil {
			return err
		}
	}
	for _, entry := range s.index {
		if err := s.base.IntentIndexAppend(entry.owner, entry.id); err != nil {
			return err
		}
	}
	for key := range s.dirtyBalances {
		if err := s.base.LedgerSetBalance(key.account, key.asset, s.balances[key]); err != nil {
			return err
		}
	}
	return nil
}
