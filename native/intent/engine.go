package intent

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"intentengine/core/events"
	"intentengine/core/types"
	"intentengine/native/fees"
	"intentengine/native/fixedpoint"
	"intentengine/native/router"
)

var errCounterUnderflow = errors.New("intent: active intent counter underflow")

type intentEvent struct {
	evt *types.Event
}

func (e intentEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e intentEvent) Event() *types.Event { return e.evt }

// Engine implements the intent registry and settlement coordinator. Every
// public operation runs against a private stage and only reaches the backing
// state, and only emits events, once it has fully succeeded. Callers must not
// run two operations against the same state concurrently.
type Engine struct {
	state   engineState
	emitter events.Emitter
	params  Params
	router  *router.Router
	risk    RiskScorer
	venues  Venues
	nowFn   func() int64
}

// NewEngine creates an engine with the supplied rule set, a heuristic risk
// scorer and a no-op emitter.
func NewEngine(params Params, r *router.Router) *Engine {
	if r == nil {
		r = router.New(router.Config{})
	}
	return &Engine{
		emitter: events.NoopEmitter{},
		params:  params,
		router:  r,
		risk:    HeuristicScorer{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetRiskScorer replaces the risk scorer.
func (e *Engine) SetRiskScorer(scorer RiskScorer) {
	if scorer == nil {
		scorer = HeuristicScorer{}
	}
	e.risk = scorer
}

// SetVenues binds venue adapters.
func (e *Engine) SetVenues(venues Venues) { e.venues = venues }

// Params returns the engine's rule set.
func (e *Engine) Params() Params { return e.params }

// Now returns the engine clock in unix seconds.
func (e *Engine) Now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) run(fn func(st *stage) error) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	st := newStage(e.state)
	if err := fn(st); err != nil {
		return err
	}
	if err := st.commit(); err != nil {
		return err
	}
	for _, evt := range st.events {
		e.emitter.Emit(intentEvent{evt: evt})
	}
	return nil
}

// IntentID derives the identifier of an owner's seq-th intent.
func IntentID(owner [20]byte, seq uint64) [32]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return ethcrypto.Keccak256Hash([]byte("intent"), owner[:], buf[:])
}

// InitializeProtocol creates the singleton config with admin as its
// administrator.
func (e *Engine) InitializeProtocol(admin, treasury [20]byte) (*ProtocolConfig, error) {
	var created *ProtocolConfig
	err := e.run(func(st *stage) error {
		if treasury == ([20]byte{}) {
			return fmt.Errorf("%w: treasury must be set", ErrInvalidAccount)
		}
		if _, err := st.protocolConfig(); err == nil {
			return ErrAlreadyInitialized
		} else if !errors.Is(err, ErrNotInitialized) {
			return err
		}
		created = &ProtocolConfig{Admin: admin, Treasury: treasury, FeeBps: e.params.FeeBps}
		st.putProtocolConfig(created)
		st.emit(NewProtocolInitializedEvent(created))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// InitializeUser creates the caller's profile.
func (e *Engine) InitializeUser(owner [20]byte) (*UserProfile, error) {
	var created *UserProfile
	err := e.run(func(st *stage) error {
		if _, ok, err := st.user(owner); err != nil {
			return err
		} else if ok {
			return ErrUserExists
		}
		created = &UserProfile{Owner: owner, CreatedAt: e.Now()}
		st.putUser(created)
		st.emit(NewUserInitializedEvent(created))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created.Clone(), nil
}

// SetRiskCheck toggles the owner's standing risk-check opt-in.
func (e *Engine) SetRiskCheck(owner [20]byte, enabled bool) (*UserProfile, error) {
	var updated *UserProfile
	err := e.run(func(st *stage) error {
		profile, err := e.profileFor(st, owner)
		if err != nil {
			return err
		}
		profile.RiskCheckEnabled = enabled
		st.putUser(profile)
		st.emit(NewRiskCheckEvent(profile))
		updated = profile
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated.Clone(), nil
}

// Pause stops new intents from being declared.
func (e *Engine) Pause(caller [20]byte) error { return e.setPaused(caller, true) }

// Unpause resumes intent declaration.
func (e *Engine) Unpause(caller [20]byte) error { return e.setPaused(caller, false) }

func (e *Engine) setPaused(caller [20]byte, paused bool) error {
	return e.run(func(st *stage) error {
		cfg, err := st.protocolConfig()
		if err != nil {
			return err
		}
		if caller != cfg.Admin {
			return ErrUnauthorized
		}
		cfg.Paused = paused
		st.putProtocolConfig(cfg)
		st.emit(NewPauseEvent(cfg))
		return nil
	})
}

// Credit mints amount of asset into account. Administrator only.
func (e *Engine) Credit(caller, acct, assetID [20]byte, amount uint64) error {
	return e.run(func(st *stage) error {
		cfg, err := st.protocolConfig()
		if err != nil {
			return err
		}
		if caller != cfg.Admin {
			return ErrUnauthorized
		}
		if amount == 0 {
			return ErrInvalidAmount
		}
		if acct == ([20]byte{}) {
			return fmt.Errorf("%w: account must be set", ErrInvalidAccount)
		}
		if err := st.credit(acct, assetID, amount); err != nil {
			return err
		}
		st.emit(NewLedgerCreditedEvent(acct, assetID, amount))
		return nil
	})
}

// CreateSwapIntent declares a swap and selects its venue.
func (e *Engine) CreateSwapIntent(owner [20]byte, req SwapRequest) (*Intent, error) {
	var created *Intent
	err := e.run(func(st *stage) error {
		cfg, profile, err := e.admit(st, owner)
		if err != nil {
			return err
		}
		if req.Amount == 0 {
			return ErrInvalidAmount
		}
		if req.FromAsset == req.ToAsset {
			return fmt.Errorf("%w: source and destination assets match", ErrInvalidAmount)
		}
		if req.MaxSlippageBps > e.params.MaxSlippageBps {
			return fmt.Errorf("%w: %d exceeds %d", ErrInvalidSlippage, req.MaxSlippageBps, e.params.MaxSlippageBps)
		}
		if err := e.checkRisk(profile, req.RiskCheck, req.ToAsset); err != nil {
			return err
		}
		venue := e.router.ChooseSwapVenue(req.FromAsset, req.ToAsset, req.Amount)
		record := &Intent{
			Kind:           KindSwap,
			FromAsset:      req.FromAsset,
			ToAsset:        req.ToAsset,
			MaxSlippageBps: req.MaxSlippageBps,
			SwapVenue:      &venue,
		}
		created, err = e.declare(st, cfg, profile, record, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateLendIntent declares a deposit with a yield floor and selects its
// venue.
func (e *Engine) CreateLendIntent(owner [20]byte, req LendRequest) (*Intent, error) {
	var created *Intent
	err := e.run(func(st *stage) error {
		cfg, profile, err := e.admit(st, owner)
		if err != nil {
			return err
		}
		if req.Amount == 0 {
			return ErrInvalidAmount
		}
		if req.MinYieldBps == 0 || req.MinYieldBps > fixedpoint.BpsDenominator {
			return fmt.Errorf("%w: %d", ErrInvalidYieldBound, req.MinYieldBps)
		}
		venue := e.router.ChooseLendingVenue(req.Asset, req.Amount)
		record := &Intent{
			Kind:         KindLend,
			FromAsset:    req.Asset,
			ToAsset:      req.Asset,
			MinYieldBps:  req.MinYieldBps,
			LendingVenue: &venue,
		}
		created, err = e.declare(st, cfg, profile, record, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CreateBuyIntent declares a purchase of Asset paid in QuoteAsset. Buys always
// settle through the aggregator.
func (e *Engine) CreateBuyIntent(owner [20]byte, req BuyRequest) (*Intent, error) {
	var created *Intent
	err := e.run(func(st *stage) error {
		cfg, profile, err := e.admit(st, owner)
		if err != nil {
			return err
		}
		if req.QuoteAmount == 0 {
			return ErrInvalidAmount
		}
		if req.Asset == req.QuoteAsset {
			return fmt.Errorf("%w: asset and quote asset match", ErrInvalidAmount)
		}
		if req.MaxPriceImpactBps > e.params.MaxSlippageBps {
			return fmt.Errorf("%w: price impact %d exceeds %d", ErrInvalidSlippage, req.MaxPriceImpactBps, e.params.MaxSlippageBps)
		}
		if req.TargetPrice != nil && *req.TargetPrice == 0 {
			return fmt.Errorf("%w: target price must be positive", ErrInvalidAmount)
		}
		if err := e.checkRisk(profile, req.RiskCheck, req.Asset); err != nil {
			return err
		}
		venue := router.SwapVenueAggregator
		record := &Intent{
			Kind:              KindBuy,
			FromAsset:         req.QuoteAsset,
			ToAsset:           req.Asset,
			TargetPrice:       cloneUint64(req.TargetPrice),
			MaxPriceImpactBps: req.MaxPriceImpactBps,
			SwapVenue:         &venue,
		}
		created, err = e.declare(st, cfg, profile, record, req.QuoteAmount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// CancelIntent withdraws a pending intent. Only its owner may cancel it,
// including after it has expired.
func (e *Engine) CancelIntent(caller [20]byte, id [32]byte) (*Intent, error) {
	var cancelled *Intent
	err := e.run(func(st *stage) error {
		record, err := st.intent(id)
		if err != nil {
			return err
		}
		if record.Status != StatusPending {
			return fmt.Errorf("%w: status %s", ErrNotPending, record.Status)
		}
		if caller != record.Owner {
			return ErrUnauthorized
		}
		profile, err := e.profileFor(st, record.Owner)
		if err != nil {
			return err
		}
		if err := release(profile); err != nil {
			return err
		}
		now := e.Now()
		record.Status = StatusCancelled
		record.CancelledAt = &now
		st.putUser(profile)
		st.putIntent(record)
		st.emit(NewCancelledEvent(record))
		cancelled = record
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cancelled.Clone(), nil
}

// admit loads the records every declaration touches and applies the checks
// shared by all kinds, in order: capacity, then pause.
func (e *Engine) admit(st *stage, owner [20]byte) (*ProtocolConfig, *UserProfile, error) {
	cfg, err := st.protocolConfig()
	if err != nil {
		return nil, nil, err
	}
	profile, err := e.profileFor(st, owner)
	if err != nil {
		return nil, nil, err
	}
	if profile.ActiveIntents >= e.params.MaxActiveIntents {
		return nil, nil, fmt.Errorf("%w: %d active", ErrCapacityExceeded, profile.ActiveIntents)
	}
	if cfg.Paused {
		return nil, nil, ErrProtocolPaused
	}
	return cfg, profile, nil
}

func (e *Engine) profileFor(st *stage, owner [20]byte) (*UserProfile, error) {
	profile, ok, err := st.user(owner)
	if err != nil {
		return nil, err
	}
	if !ok {
		profile = &UserProfile{Owner: owner, CreatedAt: e.Now()}
	}
	return profile, nil
}

func (e *Engine) checkRisk(profile *UserProfile, requested bool, assetID [20]byte) error {
	if !requested && !profile.RiskCheckEnabled {
		return nil
	}
	score, err := e.risk.Score(assetID)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRiskCheckFailed, err)
	}
	if score < e.params.MinRiskScore {
		return fmt.Errorf("%w: score %d below %d", ErrRiskCheckFailed, score, e.params.MinRiskScore)
	}
	return nil
}

// declare snapshots the fee rate, stamps identity and expiry, and books the
// new intent against the owner and protocol counters.
func (e *Engine) declare(st *stage, cfg *ProtocolConfig, profile *UserProfile, record *Intent, amount uint64) (*Intent, error) {
	applied, err := fees.Apply(amount, cfg.FeeBps)
	if err != nil {
		return nil, err
	}
	id := IntentID(profile.Owner, profile.TotalIntents)
	exists, err := st.intentExists(id)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("intent: identifier %s already exists", FormatID(id))
	}
	now := e.Now()
	record.ID = id
	record.Owner = profile.Owner
	record.Status = StatusPending
	record.Amount = amount
	record.Fee = applied.Fee
	record.CreatedAt = now
	record.ExpiresAt = now + int64(e.params.ttl(record.Kind)/time.Second)

	profile.ActiveIntents++
	profile.TotalIntents++
	cfg.IntentsCreated++

	st.putIntent(record)
	st.appendIndex(profile.Owner, id)
	st.putUser(profile)
	st.putProtocolConfig(cfg)
	st.emit(NewCreatedEvent(record))
	return record.Clone(), nil
}

func feesFor(amount, feeBps uint64) (uint64, error) {
	applied, err := fees.Apply(amount, feeBps)
	if err != nil {
		return 0, err
	}
	return applied.Fee, nil
}

func release(profile *UserProfile) error {
	if profile.ActiveIntents == 0 {
		return errCounterUnderflow
	}
	profile.ActiveIntents--
	return nil
}

// ProtocolConfig returns the singleton config.
func (e *Engine) ProtocolConfig() (*ProtocolConfig, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return newStage(e.state).protocolConfig()
}

// User returns the owner's profile.
func (e *Engine) User(owner [20]byte) (*UserProfile, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	profile, ok, err := e.state.IntentUser(owner)
	if err != nil {
		return nil, err
	}
	if !ok || profile == nil {
		return nil, ErrUserNotFound
	}
	return profile.Clone(), nil
}

// Intent returns the stored intent.
func (e *Engine) Intent(id [32]byte) (*Intent, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return newStage(e.state).intent(id)
}

// IntentsByOwner returns every intent the owner declared, oldest first.
func (e *Engine) IntentsByOwner(owner [20]byte) ([]*Intent, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	ids, err := e.state.IntentIndex(owner)
	if err != nil {
		return nil, err
	}
	st := newStage(e.state)
	out := make([]*Intent, 0, len(ids))
	for _, id := range ids {
		record, err := st.intent(id)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// Balance returns an account's balance of asset.
func (e *Engine) Balance(acct, assetID [20]byte) (uint64, error) {
	if e == nil || e.state == nil {
		return 0, errNilState
	}
	return e.state.LedgerBalance(acct, assetID)
}
