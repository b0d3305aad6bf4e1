package rpc

import (
	"intentengine/crypto"
	"intentengine/native/intent"
	"intentengine/native/router"
)

// IntentView is the JSON shape of an intent. Status is reported as of the
// engine clock, so a pending intent past expiry reads as expired.
type IntentView struct {
	ID                string  `json:"id"`
	Owner             string  `json:"owner"`
	Kind              string  `json:"kind"`
	Status            string  `json:"status"`
	FromAsset         string  `json:"fromAsset"`
	ToAsset           string  `json:"toAsset"`
	Amount            uint64  `json:"amount"`
	Fee               uint64  `json:"fee"`
	MaxSlippageBps    uint64  `json:"maxSlippageBps,omitempty"`
	MinYieldBps       uint64  `json:"minYieldBps,omitempty"`
	TargetPrice       *uint64 `json:"targetPrice,omitempty"`
	MaxPriceImpactBps uint64  `json:"maxPriceImpactBps,omitempty"`
	SwapVenue         string  `json:"swapVenue,omitempty"`
	LendingVenue      string  `json:"lendingVenue,omitempty"`
	CreatedAt         int64   `json:"createdAt"`
	ExpiresAt         int64   `json:"expiresAt"`
	ExecutedAt        *int64  `json:"executedAt,omitempty"`
	CancelledAt       *int64  `json:"cancelledAt,omitempty"`
	ExecutionOutput   *uint64 `json:"executionOutput,omitempty"`
	ExecutionYieldBps *uint64 `json:"executionYieldBps,omitempty"`
}

func intentView(record *intent.Intent, now int64) IntentView {
	view := IntentView{
		ID:                intent.FormatID(record.ID),
		Owner:             crypto.AccountAddress(record.Owner).String(),
		Kind:              record.Kind.String(),
		Status:            record.EffectiveStatus(now).String(),
		FromAsset:         crypto.AssetAddress(record.FromAsset).String(),
		ToAsset:           crypto.AssetAddress(record.ToAsset).String(),
		Amount:            record.Amount,
		Fee:               record.Fee,
		MaxSlippageBps:    record.MaxSlippageBps,
		MinYieldBps:       record.MinYieldBps,
		TargetPrice:       record.TargetPrice,
		MaxPriceImpactBps: record.MaxPriceImpactBps,
		CreatedAt:         record.CreatedAt,
		ExpiresAt:         record.ExpiresAt,
		ExecutedAt:        record.ExecutedAt,
		CancelledAt:       record.CancelledAt,
		ExecutionOutput:   record.ExecutionOutput,
		ExecutionYieldBps: record.ExecutionYieldBps,
	}
	if record.SwapVenue != nil {
		view.SwapVenue = record.SwapVenue.String()
	}
	if record.LendingVenue != nil {
		view.LendingVenue = record.LendingVenue.String()
	}
	return view
}

// UserView is the JSON shape of an account's intent profile.
type UserView struct {
	Owner            string `json:"owner"`
	ActiveIntents    uint64 `json:"activeIntents"`
	TotalIntents     uint64 `json:"totalIntents"`
	TotalVolume      uint64 `json:"totalVolume"`
	RiskCheckEnabled bool   `json:"riskCheckEnabled"`
	CreatedAt        int64  `json:"createdAt"`
}

func userView(profile *intent.UserProfile) UserView {
	return UserView{
		Owner:            crypto.AccountAddress(profile.Owner).String(),
		ActiveIntents:    profile.ActiveIntents,
		TotalIntents:     profile.TotalIntents,
		TotalVolume:      profile.TotalVolume,
		RiskCheckEnabled: profile.RiskCheckEnabled,
		CreatedAt:        profile.CreatedAt,
	}
}

// ProtocolView reports the protocol configuration and its running counters.
type ProtocolView struct {
	Admin           string `json:"admin"`
	Treasury        string `json:"treasury"`
	FeeBps          uint64 `json:"feeBps"`
	TotalFees       uint64 `json:"totalFees"`
	IntentsCreated  uint64 `json:"intentsCreated"`
	IntentsExecuted uint64 `json:"intentsExecuted"`
	Paused          bool   `json:"paused"`
}

func protocolView(cfg *intent.ProtocolConfig) ProtocolView {
	return ProtocolView{
		Admin:           crypto.AccountAddress(cfg.Admin).String(),
		Treasury:        crypto.AccountAddress(cfg.Treasury).String(),
		FeeBps:          cfg.FeeBps,
		TotalFees:       cfg.TotalFees,
		IntentsCreated:  cfg.IntentsCreated,
		IntentsExecuted: cfg.IntentsExecuted,
		Paused:          cfg.Paused,
	}
}

// BalanceView is one account's ledger balance of one asset.
type BalanceView struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount"`
}

// YieldView is the best lending venue for an asset and the yield it pays.
type YieldView struct {
	Venue    string `json:"venue"`
	YieldBps uint64 `json:"yieldBps"`
}

// SwapQuoteView prices a swap against a direct pool before an intent is
// declared. MinimumOut applies the requested slippage bound.
type SwapQuoteView struct {
	Venue      string `json:"venue"`
	AmountIn   uint64 `json:"amountIn"`
	Fee        uint64 `json:"fee"`
	NetAmount  uint64 `json:"netAmount"`
	AmountOut  uint64 `json:"amountOut"`
	MinimumOut uint64 `json:"minimumOut"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func (s *Server) methodTable() map[string]method {
	return map[string]method{
		"intent_initializeProtocol":    {auth: true, fn: s.initializeProtocol},
		"intent_initializeUser":        {auth: true, fn: s.initializeUser},
		"intent_setRiskCheck":          {auth: true, fn: s.setRiskCheck},
		"intent_pause":                 {auth: true, fn: s.pause},
		"intent_unpause":               {auth: true, fn: s.unpause},
		"intent_createSwap":            {auth: true, fn: s.createSwap},
		"intent_createLend":            {auth: true, fn: s.createLend},
		"intent_createBuy":             {auth: true, fn: s.createBuy},
		"intent_cancel":                {auth: true, fn: s.cancel},
		"intent_executeSwapAggregator": {auth: true, fn: s.executeSwapAggregator},
		"intent_executeSwapDirect":     {auth: true, fn: s.executeSwapDirect},
		"intent_executeLendPrimary":    {auth: true, fn: s.executeLendPrimary},
		"intent_executeLendSecondary":  {auth: true, fn: s.executeLendSecondary},
		"intent_executeBuyAggregator":  {auth: true, fn: s.executeBuyAggregator},
		"intent_executeSwapSimulated":  {auth: true, fn: s.executeSwapSimulated},
		"intent_executeLendSimulated":  {auth: true, fn: s.executeLendSimulated},
		"ledger_credit":                {auth: true, fn: s.credit},
		"ledger_balance":               {fn: s.balance},
		"intent_get":                   {fn: s.getIntent},
		"intent_listByOwner":           {fn: s.listByOwner},
		"intent_getUser":               {fn: s.getUser},
		"intent_getProtocol":           {fn: s.getProtocol},
		"intent_bestYield":             {fn: s.bestYield},
		"intent_quoteSwap":             {fn: s.quoteSwap},
	}
}

func (s *Server) initializeProtocol(c *call) (interface{}, error) {
	var params struct {
		Treasury string `json:"treasury"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	treasury, err := parseAccount("treasury", params.Treasury)
	if err != nil {
		return nil, err
	}
	cfg, err := s.node.InitializeProtocol(c.ctx, c.caller, treasury)
	if err != nil {
		return nil, err
	}
	return protocolView(cfg), nil
}

func (s *Server) initializeUser(c *call) (interface{}, error) {
	if err := c.none(); err != nil {
		return nil, err
	}
	profile, err := s.node.InitializeUser(c.ctx, c.caller)
	if err != nil {
		return nil, err
	}
	return userView(profile), nil
}

func (s *Server) setRiskCheck(c *call) (interface{}, error) {
	var params struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	if params.Enabled == nil {
		return nil, invalidParams("enabled required", nil)
	}
	profile, err := s.node.SetRiskCheck(c.ctx, c.caller, *params.Enabled)
	if err != nil {
		return nil, err
	}
	return userView(profile), nil
}

func (s *Server) pause(c *call) (interface{}, error) {
	if err := c.none(); err != nil {
		return nil, err
	}
	if err := s.node.Pause(c.ctx, c.caller); err != nil {
		return nil, err
	}
	return okResult{OK: true}, nil
}

func (s *Server) unpause(c *call) (interface{}, error) {
	if err := c.none(); err != nil {
		return nil, err
	}
	if err := s.node.Unpause(c.ctx, c.caller); err != nil {
		return nil, err
	}
	return okResult{OK: true}, nil
}

func (s *Server) intentResult(record *intent.Intent, err error) (interface{}, error) {
	if err != nil {
		return nil, err
	}
	return intentView(record, s.node.Now()), nil
}

func (s *Server) createSwap(c *call) (interface{}, error) {
	var params struct {
		FromAsset      string `json:"fromAsset"`
		ToAsset        string `json:"toAsset"`
		Amount         uint64 `json:"amount"`
		MaxSlippageBps uint64 `json:"maxSlippageBps"`
		RiskCheck      bool   `json:"riskCheck"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	from, err := s.parseAsset("fromAsset", params.FromAsset)
	if err != nil {
		return nil, err
	}
	to, err := s.parseAsset("toAsset", params.ToAsset)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.CreateSwapIntent(c.ctx, c.caller, intent.SwapRequest{
		FromAsset:      from,
		ToAsset:        to,
		Amount:         params.Amount,
		MaxSlippageBps: params.MaxSlippageBps,
		RiskCheck:      params.RiskCheck,
	}))
}

func (s *Server) createLend(c *call) (interface{}, error) {
	var params struct {
		Asset       string `json:"asset"`
		Amount      uint64 `json:"amount"`
		MinYieldBps uint64 `json:"minYieldBps"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	asset, err := s.parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.CreateLendIntent(c.ctx, c.caller, intent.LendRequest{
		Asset:       asset,
		Amount:      params.Amount,
		MinYieldBps: params.MinYieldBps,
	}))
}

func (s *Server) createBuy(c *call) (interface{}, error) {
	var params struct {
		Asset             string  `json:"asset"`
		QuoteAsset        string  `json:"quoteAsset"`
		QuoteAmount       uint64  `json:"quoteAmount"`
		TargetPrice       *uint64 `json:"targetPrice,omitempty"`
		MaxPriceImpactBps uint64  `json:"maxPriceImpactBps"`
		RiskCheck         bool    `json:"riskCheck"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	asset, err := s.parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	quoteAsset, err := s.parseAsset("quoteAsset", params.QuoteAsset)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.CreateBuyIntent(c.ctx, c.caller, intent.BuyRequest{
		Asset:             asset,
		QuoteAsset:        quoteAsset,
		QuoteAmount:       params.QuoteAmount,
		TargetPrice:       params.TargetPrice,
		MaxPriceImpactBps: params.MaxPriceImpactBps,
		RiskCheck:         params.RiskCheck,
	}))
}

type idParams struct {
	ID string `json:"id"`
}

func (c *call) id() ([32]byte, error) {
	var params idParams
	if err := c.decode(&params); err != nil {
		return [32]byte{}, err
	}
	return parseID(params.ID)
}

func (s *Server) cancel(c *call) (interface{}, error) {
	id, err := c.id()
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.CancelIntent(c.ctx, c.caller, id))
}

func (s *Server) executeSwapAggregator(c *call) (interface{}, error) {
	var params struct {
		ID    string            `json:"id"`
		Quote *routeQuoteParams `json:"quote"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	id, err := parseID(params.ID)
	if err != nil {
		return nil, err
	}
	quote, err := s.routeQuote(params.Quote)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.ExecuteSwapAggregator(c.ctx, id, quote))
}

func (s *Server) executeBuyAggregator(c *call) (interface{}, error) {
	var params struct {
		ID    string            `json:"id"`
		Quote *routeQuoteParams `json:"quote"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	id, err := parseID(params.ID)
	if err != nil {
		return nil, err
	}
	quote, err := s.routeQuote(params.Quote)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.ExecuteBuyAggregator(c.ctx, id, quote))
}

func (s *Server) executeSwapDirect(c *call) (interface{}, error) {
	var params struct {
		ID   string      `json:"id"`
		Pool *poolParams `json:"pool"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	id, err := parseID(params.ID)
	if err != nil {
		return nil, err
	}
	pool, err := s.pool(params.Pool)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.ExecuteSwapDirect(c.ctx, id, pool))
}

func (s *Server) executeLendPrimary(c *call) (interface{}, error) {
	var params struct {
		ID      string                `json:"id"`
		Reserve *primaryReserveParams `json:"reserve"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	id, err := parseID(params.ID)
	if err != nil {
		return nil, err
	}
	reserve, err := s.primaryReserve(params.Reserve)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.ExecuteLendPrimary(c.ctx, id, reserve))
}

func (s *Server) executeLendSecondary(c *call) (interface{}, error) {
	var params struct {
		ID      string                  `json:"id"`
		Reserve *secondaryReserveParams `json:"reserve"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	id, err := parseID(params.ID)
	if err != nil {
		return nil, err
	}
	reserve, err := s.secondaryReserve(params.Reserve)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.ExecuteLendSecondary(c.ctx, id, reserve))
}

func (s *Server) executeSwapSimulated(c *call) (interface{}, error) {
	var params struct {
		ID             string `json:"id"`
		ExpectedOutput uint64 `json:"expectedOutput"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	id, err := parseID(params.ID)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.ExecuteSwapSimulated(c.ctx, c.caller, id, params.ExpectedOutput))
}

func (s *Server) executeLendSimulated(c *call) (interface{}, error) {
	var params struct {
		ID             string `json:"id"`
		ActualYieldBps uint64 `json:"actualYieldBps"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	id, err := parseID(params.ID)
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.ExecuteLendSimulated(c.ctx, c.caller, id, params.ActualYieldBps))
}

type balanceParams struct {
	Account string `json:"account"`
	Asset   string `json:"asset"`
	Amount  uint64 `json:"amount,omitempty"`
}

func (s *Server) credit(c *call) (interface{}, error) {
	var params balanceParams
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	account, err := parseAccount("account", params.Account)
	if err != nil {
		return nil, err
	}
	asset, err := s.parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	if err := s.node.Credit(c.ctx, c.caller, account, asset, params.Amount); err != nil {
		return nil, err
	}
	return s.balanceOf(c, account, asset)
}

func (s *Server) balance(c *call) (interface{}, error) {
	var params balanceParams
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	account, err := parseAccount("account", params.Account)
	if err != nil {
		return nil, err
	}
	asset, err := s.parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	return s.balanceOf(c, account, asset)
}

func (s *Server) balanceOf(c *call, account, asset [20]byte) (interface{}, error) {
	amount, err := s.node.Balance(c.ctx, account, asset)
	if err != nil {
		return nil, err
	}
	return BalanceView{
		Account: crypto.AccountAddress(account).String(),
		Asset:   crypto.AssetAddress(asset).String(),
		Amount:  amount,
	}, nil
}

func (s *Server) getIntent(c *call) (interface{}, error) {
	id, err := c.id()
	if err != nil {
		return nil, err
	}
	return s.intentResult(s.node.Intent(c.ctx, id))
}

func (s *Server) listByOwner(c *call) (interface{}, error) {
	var params struct {
		Owner string `json:"owner"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	owner, err := parseAccount("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	records, err := s.node.IntentsByOwner(c.ctx, owner)
	if err != nil {
		return nil, err
	}
	now := s.node.Now()
	views := make([]IntentView, 0, len(records))
	for _, record := range records {
		views = append(views, intentView(record, now))
	}
	return views, nil
}

func (s *Server) getUser(c *call) (interface{}, error) {
	var params struct {
		Owner string `json:"owner"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	owner, err := parseAccount("owner", params.Owner)
	if err != nil {
		return nil, err
	}
	profile, err := s.node.User(c.ctx, owner)
	if err != nil {
		return nil, err
	}
	return userView(profile), nil
}

func (s *Server) getProtocol(c *call) (interface{}, error) {
	if err := c.none(); err != nil {
		return nil, err
	}
	cfg, err := s.node.ProtocolConfig(c.ctx)
	if err != nil {
		return nil, err
	}
	return protocolView(cfg), nil
}

func (s *Server) bestYield(c *call) (interface{}, error) {
	var params struct {
		Asset     string                  `json:"asset"`
		Primary   *primaryReserveParams   `json:"primary,omitempty"`
		Secondary *secondaryReserveParams `json:"secondary,omitempty"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	asset, err := s.parseAsset("asset", params.Asset)
	if err != nil {
		return nil, err
	}
	var offers []intent.YieldOffer
	if params.Primary != nil {
		reserve, err := s.primaryReserve(params.Primary)
		if err != nil {
			return nil, err
		}
		offers = append(offers, intent.YieldOffer{Venue: router.LendingVenuePrimary, Reserve: reserve})
	}
	if params.Secondary != nil {
		reserve, err := s.secondaryReserve(params.Secondary)
		if err != nil {
			return nil, err
		}
		offers = append(offers, intent.YieldOffer{Venue: router.LendingVenueSecondary, Reserve: reserve})
	}
	if len(offers) == 0 {
		return nil, invalidParams("at least one reserve required", nil)
	}
	best, err := intent.BestYield(asset, offers...)
	if err != nil {
		return nil, err
	}
	return YieldView{Venue: best.Venue.String(), YieldBps: best.APYBps}, nil
}

func (s *Server) quoteSwap(c *call) (interface{}, error) {
	var params struct {
		AmountIn       uint64      `json:"amountIn"`
		Pool           *poolParams `json:"pool"`
		Venue          string      `json:"venue"`
		FromAsset      string      `json:"fromAsset,omitempty"`
		MaxSlippageBps uint64      `json:"maxSlippageBps"`
	}
	if err := c.decode(&params); err != nil {
		return nil, err
	}
	pool, err := s.pool(params.Pool)
	if err != nil {
		return nil, err
	}
	venue, err := router.ParseSwapVenue(params.Venue)
	if err != nil {
		return nil, invalidParams("invalid venue", err.Error())
	}
	from, to := pool.BaseAsset, pool.QuoteAsset
	if params.FromAsset != "" {
		if from, err = s.parseAsset("fromAsset", params.FromAsset); err != nil {
			return nil, err
		}
		if from == pool.QuoteAsset {
			to = pool.BaseAsset
		}
	}
	cfg, err := s.node.ProtocolConfig(c.ctx)
	if err != nil {
		return nil, err
	}
	quote, err := intent.QuoteDirectSwap(venue, pool, from, to, params.AmountIn, cfg.FeeBps, params.MaxSlippageBps)
	if err != nil {
		return nil, err
	}
	return SwapQuoteView{
		Venue:      quote.Venue.String(),
		AmountIn:   quote.AmountIn,
		Fee:        quote.Fee,
		NetAmount:  quote.NetAmount,
		AmountOut:  quote.AmountOut,
		MinimumOut: quote.MinimumOut,
	}, nil
}
