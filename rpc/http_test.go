package rpc

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"

	"intentengine/core"
	"intentengine/crypto"
	"intentengine/native/intent"
	"intentengine/native/router"
)

func TestNewServerRequiresSecret(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	_, err := NewServer(env.node, ServerConfig{}, nil)
	require.Error(t, err)
	_, err = NewServer(nil, ServerConfig{JWTSecret: []byte("x")}, nil)
	require.Error(t, err)
}

func TestHealthzAndRequestID(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "ok")
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "fixed-id")
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, "fixed-id", rec.Header().Get(requestIDHeader))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	env.call(t, "", "intent_getProtocol", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "intent_rpc_requests_total")
}

func TestRejectsMalformedRequests(t *testing.T) {
	env := newTestEnv(t, ServerConfig{MaxBodyBytes: 64})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "-32700")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"intent_getProtocol","params":[{"padding":"`+strings.Repeat("x", 128)+`"}]}`))
	rec = httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestUnknownMethod(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	res := env.call(t, "", "intent_nope", nil)
	require.Equal(t, http.StatusNotFound, res.status)
	require.Equal(t, codeMethodNotFound, res.resp.Error.Code)
}

func TestMutationsRequireToken(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	params := map[string]interface{}{"asset": usdcAsset, "amount": 5_000, "minYieldBps": 300}

	res := env.call(t, "", "intent_createLend", params)
	require.Equal(t, http.StatusUnauthorized, res.status)
	require.Equal(t, codeUnauthorized, res.resp.Error.Code)

	forged, err := IssueToken([]byte("other-secret"), testIssuer, crypto.AccountAddress(aliceRaw), time.Hour, time.Now())
	require.NoError(t, err)
	res = env.call(t, forged, "intent_createLend", params)
	require.Equal(t, http.StatusUnauthorized, res.status)

	expired, err := IssueToken([]byte(testJWTSecret), testIssuer, crypto.AccountAddress(aliceRaw), time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	res = env.call(t, expired, "intent_createLend", params)
	require.Equal(t, http.StatusUnauthorized, res.status)

	wrongIssuer, err := IssueToken([]byte(testJWTSecret), "someone-else", crypto.AccountAddress(aliceRaw), time.Hour, time.Now())
	require.NoError(t, err)
	res = env.call(t, wrongIssuer, "intent_createLend", params)
	require.Equal(t, http.StatusUnauthorized, res.status)
}

func TestRejectedTokenIsMaskedInLogs(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	env := newTestEnvWithLogger(t, ServerConfig{}, logger)

	forged, err := IssueToken([]byte("other-secret"), testIssuer, crypto.AccountAddress(aliceRaw), time.Hour, time.Now())
	require.NoError(t, err)
	res := env.call(t, forged, "intent_cancel", map[string]string{"id": "0x01"})
	require.Equal(t, http.StatusUnauthorized, res.status)

	out := buf.String()
	require.Contains(t, out, "rpc authentication rejected")
	require.Contains(t, out, "Bearer [REDACTED]")
	require.NotContains(t, out, forged)
}

func TestCreateAndQueryIntent(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	token := tokenFor(t, aliceRaw)

	res := env.call(t, token, "intent_createLend", map[string]interface{}{"asset": usdcAsset, "amount": 1_000_000, "minYieldBps": 700})
	var created IntentView
	res.decode(t, &created)
	require.Equal(t, "lend", created.Kind)
	require.Equal(t, "pending", created.Status)
	require.Equal(t, aliceAddr, created.Owner)
	require.Equal(t, uint64(3_000), created.Fee)
	require.Equal(t, router.LendingVenueSecondary.String(), created.LendingVenue)

	var loaded IntentView
	env.call(t, "", "intent_get", map[string]string{"id": created.ID}).decode(t, &loaded)
	require.Equal(t, created, loaded)

	var listed []IntentView
	env.call(t, "", "intent_listByOwner", map[string]string{"owner": aliceAddr}).decode(t, &listed)
	require.Len(t, listed, 1)

	var user UserView
	env.call(t, "", "intent_getUser", map[string]string{"owner": aliceAddr}).decode(t, &user)
	require.Equal(t, uint64(1), user.ActiveIntents)

	var protocol ProtocolView
	env.call(t, "", "intent_getProtocol", nil).decode(t, &protocol)
	require.Equal(t, adminAddr, protocol.Admin)
	require.Equal(t, treasuryAddr, protocol.Treasury)
	require.Equal(t, uint64(1), protocol.IntentsCreated)

	var cancelled IntentView
	env.call(t, token, "intent_cancel", map[string]string{"id": created.ID}).decode(t, &cancelled)
	require.Equal(t, "cancelled", cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestEngineErrorsMapToCodes(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	alice := tokenFor(t, aliceRaw)

	res := env.call(t, alice, "intent_createSwap", map[string]interface{}{"fromAsset": usdcAsset, "toAsset": usdcAsset, "amount": 10, "maxSlippageBps": 50})
	require.Equal(t, codeInvalidParams, res.resp.Error.Code)
	require.Equal(t, "validation", res.errorData(t).Kind)

	res = env.call(t, alice, "intent_pause", nil)
	require.Equal(t, http.StatusForbidden, res.status)
	require.Equal(t, codeUnauthorized, res.resp.Error.Code)
	require.Equal(t, "authorization", res.errorData(t).Kind)

	var created IntentView
	env.call(t, alice, "intent_createLend", map[string]interface{}{"asset": usdcAsset, "amount": 5_000, "minYieldBps": 300}).decode(t, &created)
	env.call(t, alice, "intent_cancel", map[string]string{"id": created.ID})
	res = env.call(t, alice, "intent_cancel", map[string]string{"id": created.ID})
	require.Equal(t, codeTemporal, res.resp.Error.Code)
	require.Equal(t, "temporal", res.errorData(t).Kind)

	res = env.call(t, "", "intent_get", map[string]string{"id": intent.FormatID([32]byte{0xFF})})
	require.Equal(t, codeNotFound, res.resp.Error.Code)

	res = env.call(t, tokenFor(t, adminRaw), "intent_initializeProtocol", map[string]string{"treasury": treasuryAddr})
	require.Equal(t, codeConflict, res.resp.Error.Code)

	res = env.call(t, alice, "intent_createLend", map[string]interface{}{"asset": "nope", "amount": 1, "minYieldBps": 1})
	require.Equal(t, codeInvalidParams, res.resp.Error.Code)
	require.Equal(t, "invalid asset", res.resp.Error.Message)

	res = env.call(t, alice, "intent_createLend", map[string]interface{}{"asset": usdcAsset, "amount": 1, "minYieldBps": 1, "extra": true})
	require.Equal(t, codeInvalidParams, res.resp.Error.Code)
}

func TestDirectSwapSettlement(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	admin := tokenFor(t, adminRaw)
	alice := tokenFor(t, aliceRaw)

	var balance BalanceView
	env.call(t, admin, "ledger_credit", map[string]interface{}{"account": aliceAddr, "asset": usdcAsset, "amount": 10_000_000}).decode(t, &balance)
	require.Equal(t, uint64(10_000_000), balance.Amount)
	venueAccount := crypto.AccountAddress(core.DefaultSwapAccount(router.SwapVenuePrimaryAMM)).String()
	env.call(t, admin, "ledger_credit", map[string]interface{}{"account": venueAccount, "asset": solAsset, "amount": 100_000_000}).decode(t, &balance)

	res := env.call(t, alice, "ledger_credit", map[string]interface{}{"account": aliceAddr, "asset": usdcAsset, "amount": 1})
	require.Equal(t, codeUnauthorized, res.resp.Error.Code)

	var created IntentView
	env.call(t, alice, "intent_createSwap", map[string]interface{}{"fromAsset": usdcAsset, "toAsset": solAsset, "amount": 10_000_000, "maxSlippageBps": 100}).decode(t, &created)
	require.Equal(t, router.SwapVenuePrimaryAMM.String(), created.SwapVenue)

	pool := map[string]interface{}{"baseAsset": usdcAsset, "quoteAsset": solAsset, "baseReserve": 1_000_000_000, "quoteReserve": 2_000_000_000}
	var quote SwapQuoteView
	env.call(t, "", "intent_quoteSwap", map[string]interface{}{"amountIn": 10_000_000, "pool": pool, "venue": "primary_amm", "maxSlippageBps": 100}).decode(t, &quote)
	require.Equal(t, uint64(30_000), quote.Fee)
	require.Equal(t, uint64(19_694_288), quote.AmountOut)
	require.Equal(t, uint64(19_497_345), quote.MinimumOut)

	// Anyone authenticated may trigger settlement.
	var settled IntentView
	env.call(t, tokenFor(t, bobRaw), "intent_executeSwapDirect", map[string]interface{}{"id": created.ID, "pool": pool}).decode(t, &settled)
	require.Equal(t, "executed", settled.Status)
	require.NotNil(t, settled.ExecutionOutput)
	require.Equal(t, uint64(19_694_288), *settled.ExecutionOutput)

	env.call(t, "", "ledger_balance", map[string]string{"account": treasuryAddr, "asset": usdcAsset}).decode(t, &balance)
	require.Equal(t, uint64(30_000), balance.Amount)
	env.call(t, "", "ledger_balance", map[string]string{"account": aliceAddr, "asset": solAsset}).decode(t, &balance)
	require.Equal(t, uint64(19_694_288), balance.Amount)
}

func TestFinancialFailureRollsBack(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	alice := tokenFor(t, aliceRaw)

	var created IntentView
	env.call(t, alice, "intent_createSwap", map[string]interface{}{"fromAsset": usdcAsset, "toAsset": solAsset, "amount": 10_000_000, "maxSlippageBps": 100}).decode(t, &created)
	pool := map[string]interface{}{"baseAsset": usdcAsset, "quoteAsset": solAsset, "baseReserve": 1_000_000_000, "quoteReserve": 2_000_000_000}

	res := env.call(t, alice, "intent_executeSwapDirect", map[string]interface{}{"id": created.ID, "pool": pool})
	require.Equal(t, http.StatusUnprocessableEntity, res.status)
	require.Equal(t, codeFinancial, res.resp.Error.Code)
	require.Equal(t, "financial", res.errorData(t).Kind)

	var loaded IntentView
	env.call(t, "", "intent_get", map[string]string{"id": created.ID}).decode(t, &loaded)
	require.Equal(t, "pending", loaded.Status)
}

func TestBestYield(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	rates := map[string]interface{}{"optimalUtilizationRate": 80, "minBorrowRate": 2, "optimalBorrowRate": 10, "maxBorrowRate": 50}

	var best YieldView
	env.call(t, "", "intent_bestYield", map[string]interface{}{
		"asset":     usdcAsset,
		"primary":   map[string]interface{}{"asset": usdcAsset, "availableAmount": 200, "borrowedAmountWads": "800000000000000000000", "config": rates},
		"secondary": map[string]interface{}{"asset": usdcAsset, "availableAmount": 200, "borrowedAmount": 800, "config": rates},
	}).decode(t, &best)
	require.Equal(t, router.LendingVenueSecondary.String(), best.Venue)
	require.Equal(t, uint64(750), best.YieldBps)

	res := env.call(t, "", "intent_bestYield", map[string]interface{}{"asset": usdcAsset})
	require.Equal(t, codeInvalidParams, res.resp.Error.Code)
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, ServerConfig{RateLimitPerSecond: 0.001, RateLimitBurst: 1})
	res := env.call(t, "", "intent_getProtocol", nil)
	require.Nil(t, res.resp.Error)
	res = env.call(t, "", "intent_getProtocol", nil)
	require.Equal(t, http.StatusTooManyRequests, res.status)
	require.Equal(t, codeRateLimited, res.resp.Error.Code)
}

func TestEventsWebsocket(t *testing.T) {
	env := newTestEnv(t, ServerConfig{})
	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/events?types="+intent.EventTypeIntentCreated, nil)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "done")

	require.Eventually(t, func() bool { return env.node.Hub().Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)

	alice := tokenFor(t, aliceRaw)
	env.call(t, alice, "intent_initializeUser", nil)
	var created IntentView
	env.call(t, alice, "intent_createLend", map[string]interface{}{"asset": usdcAsset, "amount": 5_000, "minYieldBps": 300}).decode(t, &created)

	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	require.Contains(t, string(data), intent.EventTypeIntentCreated)
	require.Contains(t, string(data), created.ID)
}
