package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"intentengine/core/events"
	"intentengine/core/state"
	"intentengine/crypto"
	"intentengine/native/amm"
	"intentengine/native/intent"
	"intentengine/native/lending"
	"intentengine/native/router"
	"intentengine/observability"
	"intentengine/observability/metrics"
	"intentengine/observability/otel"
	"intentengine/storage"
)

// Options configures a Node. Zero values fall back to the production rule set
// with heuristic risk scoring and ledger-backed venues at derived accounts.
type Options struct {
	Params    intent.Params
	Router    *router.Router
	Risk      intent.RiskScorer
	Venues    *intent.Venues
	Now       func() int64
	Logger    *slog.Logger
	HubBuffer int
}

// Node owns the database and serializes every engine operation. Each mutating
// call runs against a fresh write-buffered state manager; the buffer reaches
// the database, and its events reach subscribers, only when the call succeeds.
type Node struct {
	stateMu sync.Mutex

	db      storage.Database
	engine  *intent.Engine
	hub     *events.Hub
	emitter events.Emitter
	logger  *slog.Logger
	metrics *metrics.SettlementMetrics
}

// NewNode wires an engine over db.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("node: database required")
	}
	params := opts.Params
	if params.Profile == "" {
		params = intent.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	engine := intent.NewEngine(params, opts.Router)
	if opts.Risk != nil {
		engine.SetRiskScorer(opts.Risk)
	}
	if opts.Venues != nil {
		engine.SetVenues(*opts.Venues)
	} else {
		engine.SetVenues(intent.LedgerVenues(DefaultSwapAccount, DefaultLendingAccount))
	}
	if opts.Now != nil {
		engine.SetNowFunc(opts.Now)
	}
	hub := events.NewHub(opts.HubBuffer)
	return &Node{
		db:      db,
		engine:  engine,
		hub:     hub,
		emitter: events.Multi{hub, observability.Events(), logEmitter{logger: logger}},
		logger:  logger,
		metrics: metrics.Settlement(),
	}, nil
}

// DefaultSwapAccount derives the settlement account of a swap venue.
func DefaultSwapAccount(venue router.SwapVenue) [20]byte {
	return crypto.DeriveAddress("venue", []byte(venue.String()))
}

// DefaultLendingAccount derives the receiving account of a lending venue.
func DefaultLendingAccount(venue router.LendingVenue) [20]byte {
	return crypto.DeriveAddress("venue", []byte(venue.String()))
}

type logEmitter struct {
	logger *slog.Logger
}

func (l logEmitter) Emit(evt events.Event) {
	payload := events.PayloadOf(evt)
	if payload == nil {
		return
	}
	attrs := make([]any, 0, len(payload.Attributes)+1)
	attrs = append(attrs, slog.String("type", payload.Type))
	for k, v := range payload.Attributes {
		attrs = append(attrs, slog.String(k, v))
	}
	l.logger.Debug("event committed", attrs...)
}

// Hub exposes the live event stream.
func (n *Node) Hub() *events.Hub { return n.hub }

// Params returns the engine rule set.
func (n *Node) Params() intent.Params { return n.engine.Params() }

// Now returns the engine clock reading.
func (n *Node) Now() int64 { return n.engine.Now() }

func (n *Node) span(ctx context.Context, operation string) (context.Context, trace.Span) {
	return otel.Tracer().Start(ctx, "intent."+operation, trace.WithAttributes(attribute.String("intent.operation", operation)))
}

// apply runs fn as one atomic operation.
func (n *Node) apply(ctx context.Context, operation string, fn func(engine *intent.Engine) error) error {
	ctx, span := n.span(ctx, operation)
	defer span.End()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	start := time.Now()
	manager := state.NewManager(n.db)
	buffer := events.NewBuffer()
	n.engine.SetState(manager)
	n.engine.SetEmitter(buffer)
	defer n.engine.SetEmitter(events.NoopEmitter{})

	err := fn(n.engine)
	if err == nil {
		if commitErr := manager.Commit(); commitErr != nil {
			err = fmt.Errorf("node: %s: %w", operation, commitErr)
		}
	}
	if err != nil {
		manager.Discard()
		buffer.Discard()
		class := intent.Classify(err)
		n.metrics.ObserveOperation(operation, class.String(), time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, class.String())
		level := slog.LevelWarn
		if class == intent.ClassArithmetic || class == intent.ClassInternal {
			level = slog.LevelError
		}
		n.logger.Log(ctx, level, "operation rejected",
			slog.String("operation", operation),
			slog.String("class", class.String()),
			slog.Any("error", err))
		return err
	}
	emitted := buffer.Flush(n.emitter)
	n.metrics.ObserveOperation(operation, "ok", time.Since(start))
	span.SetAttributes(attribute.Int("intent.events", emitted))
	n.logger.Info("operation committed", slog.String("operation", operation), slog.Int("events", emitted))
	return nil
}

// view runs a read-only fn against committed state.
func (n *Node) view(ctx context.Context, operation string, fn func(engine *intent.Engine) error) error {
	_, span := n.span(ctx, operation)
	defer span.End()

	n.stateMu.Lock()
	defer n.stateMu.Unlock()

	n.engine.SetState(state.NewManager(n.db))
	if err := fn(n.engine); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Bootstrap initializes the protocol unless it already is. An existing
// configuration is left untouched.
func (n *Node) Bootstrap(ctx context.Context, admin, treasury [20]byte) (*intent.ProtocolConfig, error) {
	cfg, err := n.InitializeProtocol(ctx, admin, treasury)
	if errors.Is(err, intent.ErrAlreadyInitialized) {
		return n.ProtocolConfig(ctx)
	}
	return cfg, err
}

func (n *Node) InitializeProtocol(ctx context.Context, admin, treasury [20]byte) (*intent.ProtocolConfig, error) {
	var cfg *intent.ProtocolConfig
	err := n.apply(ctx, "initialize_protocol", func(engine *intent.Engine) (err error) {
		cfg, err = engine.InitializeProtocol(admin, treasury)
		return err
	})
	return cfg, err
}

func (n *Node) InitializeUser(ctx context.Context, owner [20]byte) (*intent.UserProfile, error) {
	var profile *intent.UserProfile
	err := n.apply(ctx, "initialize_user", func(engine *intent.Engine) (err error) {
		profile, err = engine.InitializeUser(owner)
		return err
	})
	return profile, err
}

func (n *Node) SetRiskCheck(ctx context.Context, owner [20]byte, enabled bool) (*intent.UserProfile, error) {
	var profile *intent.UserProfile
	err := n.apply(ctx, "set_risk_check", func(engine *intent.Engine) (err error) {
		profile, err = engine.SetRiskCheck(owner, enabled)
		return err
	})
	return profile, err
}

func (n *Node) Pause(ctx context.Context, caller [20]byte) error {
	return n.apply(ctx, "pause", func(engine *intent.Engine) error { return engine.Pause(caller) })
}

func (n *Node) Unpause(ctx context.Context, caller [20]byte) error {
	return n.apply(ctx, "unpause", func(engine *intent.Engine) error { return engine.Unpause(caller) })
}

// Credit mints amount of asset into acct. Admin only.
func (n *Node) Credit(ctx context.Context, caller, acct, asset [20]byte, amount uint64) error {
	return n.apply(ctx, "credit", func(engine *intent.Engine) error {
		return engine.Credit(caller, acct, asset, amount)
	})
}

func (n *Node) create(ctx context.Context, operation string, fn func(engine *intent.Engine) (*intent.Intent, error)) (*intent.Intent, error) {
	var record *intent.Intent
	err := n.apply(ctx, operation, func(engine *intent.Engine) (err error) {
		record, err = fn(engine)
		return err
	})
	return record, err
}

func (n *Node) CreateSwapIntent(ctx context.Context, owner [20]byte, req intent.SwapRequest) (*intent.Intent, error) {
	return n.create(ctx, "create_swap", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.CreateSwapIntent(owner, req)
	})
}

func (n *Node) CreateLendIntent(ctx context.Context, owner [20]byte, req intent.LendRequest) (*intent.Intent, error) {
	return n.create(ctx, "create_lend", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.CreateLendIntent(owner, req)
	})
}

func (n *Node) CreateBuyIntent(ctx context.Context, owner [20]byte, req intent.BuyRequest) (*intent.Intent, error) {
	return n.create(ctx, "create_buy", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.CreateBuyIntent(owner, req)
	})
}

func (n *Node) CancelIntent(ctx context.Context, caller [20]byte, id [32]byte) (*intent.Intent, error) {
	return n.create(ctx, "cancel", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.CancelIntent(caller, id)
	})
}

// execute applies a settlement and records it once committed.
func (n *Node) execute(ctx context.Context, operation string, fn func(engine *intent.Engine) (*intent.Intent, error)) (*intent.Intent, error) {
	record, err := n.create(ctx, operation, fn)
	if err != nil {
		return nil, err
	}
	n.metrics.RecordSettlement(record.Kind.String(), venueLabel(record), record.Amount, record.Fee)
	n.logger.Info("intent settled",
		slog.String("id", intent.FormatID(record.ID)),
		slog.String("kind", record.Kind.String()),
		slog.String("venue", venueLabel(record)),
		slog.Uint64("amount", record.Amount),
		slog.Uint64("fee", record.Fee))
	return record, nil
}

func venueLabel(record *intent.Intent) string {
	switch {
	case record.SwapVenue != nil:
		return record.SwapVenue.String()
	case record.LendingVenue != nil:
		return record.LendingVenue.String()
	default:
		return "none"
	}
}

func (n *Node) ExecuteSwapAggregator(ctx context.Context, id [32]byte, quote amm.RouteQuote) (*intent.Intent, error) {
	return n.execute(ctx, "execute_swap_aggregator", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.ExecuteSwapAggregator(id, quote)
	})
}

func (n *Node) ExecuteSwapDirect(ctx context.Context, id [32]byte, pool amm.Pool) (*intent.Intent, error) {
	return n.execute(ctx, "execute_swap_direct", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.ExecuteSwapDirect(id, pool)
	})
}

func (n *Node) ExecuteLendPrimary(ctx context.Context, id [32]byte, reserve lending.PrimaryReserve) (*intent.Intent, error) {
	return n.execute(ctx, "execute_lend_primary", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.ExecuteLendPrimary(id, reserve)
	})
}

func (n *Node) ExecuteLendSecondary(ctx context.Context, id [32]byte, reserve lending.SecondaryReserve) (*intent.Intent, error) {
	return n.execute(ctx, "execute_lend_secondary", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.ExecuteLendSecondary(id, reserve)
	})
}

func (n *Node) ExecuteBuyAggregator(ctx context.Context, id [32]byte, quote amm.RouteQuote) (*intent.Intent, error) {
	return n.execute(ctx, "execute_buy_aggregator", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.ExecuteBuyAggregator(id, quote)
	})
}

func (n *Node) ExecuteSwapSimulated(ctx context.Context, caller [20]byte, id [32]byte, output uint64) (*intent.Intent, error) {
	return n.execute(ctx, "execute_swap_simulated", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.ExecuteSwapSimulated(caller, id, output)
	})
}

func (n *Node) ExecuteLendSimulated(ctx context.Context, caller [20]byte, id [32]byte, yieldBps uint64) (*intent.Intent, error) {
	return n.execute(ctx, "execute_lend_simulated", func(engine *intent.Engine) (*intent.Intent, error) {
		return engine.ExecuteLendSimulated(caller, id, yieldBps)
	})
}

func (n *Node) ProtocolConfig(ctx context.Context) (*intent.ProtocolConfig, error) {
	var cfg *intent.ProtocolConfig
	err := n.view(ctx, "protocol_config", func(engine *intent.Engine) (err error) {
		cfg, err = engine.ProtocolConfig()
		return err
	})
	return cfg, err
}

func (n *Node) User(ctx context.Context, owner [20]byte) (*intent.UserProfile, error) {
	var profile *intent.UserProfile
	err := n.view(ctx, "user", func(engine *intent.Engine) (err error) {
		profile, err = engine.User(owner)
		return err
	})
	return profile, err
}

func (n *Node) Intent(ctx context.Context, id [32]byte) (*intent.Intent, error) {
	var record *intent.Intent
	err := n.view(ctx, "intent", func(engine *intent.Engine) (err error) {
		record, err = engine.Intent(id)
		return err
	})
	return record, err
}

func (n *Node) IntentsByOwner(ctx context.Context, owner [20]byte) ([]*intent.Intent, error) {
	var records []*intent.Intent
	err := n.view(ctx, "intents_by_owner", func(engine *intent.Engine) (err error) {
		records, err = engine.IntentsByOwner(owner)
		return err
	})
	return records, err
}

func (n *Node) Balance(ctx context.Context, acct, asset [20]byte) (uint64, error) {
	var balance uint64
	err := n.view(ctx, "balance", func(engine *intent.Engine) (err error) {
		balance, err = engine.Balance(acct, asset)
		return err
	})
	return balance, err
}
