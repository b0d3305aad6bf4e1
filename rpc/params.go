package rpc

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"intentengine/crypto"
	"intentengine/native/amm"
	"intentengine/native/fixedpoint"
	"intentengine/native/lending"
)

type call struct {
	ctx    context.Context
	caller [20]byte
	params []json.RawMessage
}

type method struct {
	auth bool
	fn   func(c *call) (interface{}, error)
}

type paramError struct {
	message string
	detail  interface{}
}

func (e *paramError) Error() string { return e.message }

func invalidParams(message string, detail interface{}) error {
	return &paramError{message: message, detail: detail}
}

// decode reads the single parameter object into out. Unknown fields are
// rejected.
func (c *call) decode(out interface{}) error {
	if len(c.params) == 0 {
		return invalidParams("parameter object required", nil)
	}
	if len(c.params) > 1 {
		return invalidParams("too many parameters", nil)
	}
	dec := json.NewDecoder(bytes.NewReader(c.params[0]))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return invalidParams("invalid parameter object", err.Error())
	}
	return nil
}

// none accepts no parameters or a single empty object.
func (c *call) none() error {
	if len(c.params) == 0 {
		return nil
	}
	var empty struct{}
	return c.decode(&empty)
}

func parseID(raw string) ([32]byte, error) {
	var id [32]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return id, invalidParams("id required", nil)
	}
	decoded, err := hex.DecodeString(trimmed)
	if err != nil {
		return id, invalidParams("invalid id", err.Error())
	}
	if len(decoded) != len(id) {
		return id, invalidParams("id must be 32 bytes", len(decoded))
	}
	copy(id[:], decoded)
	return id, nil
}

func parseAccount(field, raw string) ([20]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return [20]byte{}, invalidParams(field+" required", nil)
	}
	addr, err := crypto.DecodePrefixed(trimmed, crypto.AccountPrefix)
	if err != nil {
		return [20]byte{}, invalidParams("invalid "+field, err.Error())
	}
	return addr.Raw(), nil
}

func (s *Server) parseAsset(field, raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, invalidParams(field+" required", nil)
	}
	id, err := s.assets.Asset(raw)
	if err != nil {
		return [20]byte{}, invalidParams("invalid "+field, err.Error())
	}
	return id, nil
}

func (s *Server) parseOptionalAsset(field, raw string) ([20]byte, error) {
	if strings.TrimSpace(raw) == "" {
		return [20]byte{}, nil
	}
	return s.parseAsset(field, raw)
}

type routeStepParams struct {
	AmmKey      string `json:"ammKey"`
	Label       string `json:"label"`
	InputAsset  string `json:"inputAsset"`
	OutputAsset string `json:"outputAsset"`
	InAmount    uint64 `json:"inAmount"`
	OutAmount   uint64 `json:"outAmount"`
	FeeAmount   uint64 `json:"feeAmount"`
	FeeAsset    string `json:"feeAsset,omitempty"`
	Percent     uint8  `json:"percent"`
}

type routeQuoteParams struct {
	InputAsset     string            `json:"inputAsset"`
	OutputAsset    string            `json:"outputAsset"`
	InAmount       uint64            `json:"inAmount"`
	OutAmount      uint64            `json:"outAmount"`
	SlippageBps    uint64            `json:"slippageBps"`
	PriceImpactBps uint64            `json:"priceImpactBps"`
	RoutePlan      []routeStepParams `json:"routePlan,omitempty"`
}

func (s *Server) routeQuote(p *routeQuoteParams) (amm.RouteQuote, error) {
	if p == nil {
		return amm.RouteQuote{}, invalidParams("quote required", nil)
	}
	in, err := s.parseAsset("quote.inputAsset", p.InputAsset)
	if err != nil {
		return amm.RouteQuote{}, err
	}
	out, err := s.parseAsset("quote.outputAsset", p.OutputAsset)
	if err != nil {
		return amm.RouteQuote{}, err
	}
	quote := amm.RouteQuote{
		InputAsset:     in,
		OutputAsset:    out,
		InAmount:       p.InAmount,
		OutAmount:      p.OutAmount,
		SlippageBps:    p.SlippageBps,
		PriceImpactBps: p.PriceImpactBps,
	}
	for i, step := range p.RoutePlan {
		field := fmt.Sprintf("quote.routePlan[%d]", i)
		converted := amm.RouteStep{
			Label:     step.Label,
			InAmount:  step.InAmount,
			OutAmount: step.OutAmount,
			FeeAmount: step.FeeAmount,
			Percent:   step.Percent,
		}
		if strings.TrimSpace(step.AmmKey) != "" {
			if converted.AmmKey, err = parseID(step.AmmKey); err != nil {
				return amm.RouteQuote{}, invalidParams("invalid "+field+".ammKey", nil)
			}
		}
		if converted.InputAsset, err = s.parseOptionalAsset(field+".inputAsset", step.InputAsset); err != nil {
			return amm.RouteQuote{}, err
		}
		if converted.OutputAsset, err = s.parseOptionalAsset(field+".outputAsset", step.OutputAsset); err != nil {
			return amm.RouteQuote{}, err
		}
		if converted.FeeAsset, err = s.parseOptionalAsset(field+".feeAsset", step.FeeAsset); err != nil {
			return amm.RouteQuote{}, err
		}
		quote.RoutePlan = append(quote.RoutePlan, converted)
	}
	return quote, nil
}

type poolParams struct {
	ID           string `json:"id,omitempty"`
	BaseAsset    string `json:"baseAsset"`
	QuoteAsset   string `json:"quoteAsset"`
	BaseReserve  uint64 `json:"baseReserve"`
	QuoteReserve uint64 `json:"quoteReserve"`
}

func (s *Server) pool(p *poolParams) (amm.Pool, error) {
	if p == nil {
		return amm.Pool{}, invalidParams("pool required", nil)
	}
	base, err := s.parseAsset("pool.baseAsset", p.BaseAsset)
	if err != nil {
		return amm.Pool{}, err
	}
	quote, err := s.parseAsset("pool.quoteAsset", p.QuoteAsset)
	if err != nil {
		return amm.Pool{}, err
	}
	pool := amm.Pool{BaseAsset: base, QuoteAsset: quote, BaseReserve: p.BaseReserve, QuoteReserve: p.QuoteReserve}
	if strings.TrimSpace(p.ID) != "" {
		if pool.ID, err = parseID(p.ID); err != nil {
			return amm.Pool{}, invalidParams("invalid pool.id", nil)
		}
	}
	return pool, nil
}

type primaryReserveParams struct {
	Asset              string                    `json:"asset"`
	AvailableAmount    uint64                    `json:"availableAmount"`
	BorrowedAmountWads string                    `json:"borrowedAmountWads"`
	Config             lending.PercentRateConfig `json:"config"`
}

func (s *Server) primaryReserve(p *primaryReserveParams) (lending.PrimaryReserve, error) {
	if p == nil {
		return lending.PrimaryReserve{}, invalidParams("reserve required", nil)
	}
	asset, err := s.parseAsset("reserve.asset", p.Asset)
	if err != nil {
		return lending.PrimaryReserve{}, err
	}
	borrowed := fixedpoint.U(0)
	if raw := strings.TrimSpace(p.BorrowedAmountWads); raw != "" {
		if borrowed, err = fixedpoint.ParseDecimal(raw); err != nil {
			return lending.PrimaryReserve{}, invalidParams("invalid reserve.borrowedAmountWads", err.Error())
		}
	}
	return lending.PrimaryReserve{
		Asset:              asset,
		AvailableAmount:    p.AvailableAmount,
		BorrowedAmountWads: borrowed,
		Config:             p.Config,
	}, nil
}

type secondaryReserveParams struct {
	Asset           string                    `json:"asset"`
	AvailableAmount uint64                    `json:"availableAmount"`
	BorrowedAmount  uint64                    `json:"borrowedAmount"`
	Config          lending.PercentRateConfig `json:"config"`
}

func (s *Server) secondaryReserve(p *secondaryReserveParams) (lending.SecondaryReserve, error) {
	if p == nil {
		return lending.SecondaryReserve{}, invalidParams("reserve required", nil)
	}
	asset, err := s.parseAsset("reserve.asset", p.Asset)
	if err != nil {
		return lending.SecondaryReserve{}, err
	}
	return lending.SecondaryReserve{
		Asset:           asset,
		AvailableAmount: p.AvailableAmount,
		BorrowedAmount:  p.BorrowedAmount,
		Config:          p.Config,
	}, nil
}
