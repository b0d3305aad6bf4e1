package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"intentengine/core"
	"intentengine/crypto"
	"intentengine/native/router"
	"intentengine/storage"
)

const (
	testJWTSecret = "rpc-test-secret"
	testIssuer    = "rpc-tests"
	testNow       = int64(1_700_000_000)
)

func testRaw(fill byte) [20]byte {
	var raw [20]byte
	copy(raw[:], bytes.Repeat([]byte{fill}, 20))
	return raw
}

var (
	adminRaw    = testRaw(0xA1)
	treasuryRaw = testRaw(0xA2)
	aliceRaw    = testRaw(0xB1)
	bobRaw      = testRaw(0xB2)
	solRaw      = testRaw(0x10)
	usdcRaw     = testRaw(0x20)

	adminAddr    = crypto.AccountAddress(adminRaw).String()
	treasuryAddr = crypto.AccountAddress(treasuryRaw).String()
	aliceAddr    = crypto.AccountAddress(aliceRaw).String()
	solAsset     = crypto.AssetAddress(solRaw).String()
	usdcAsset    = crypto.AssetAddress(usdcRaw).String()
)

type testEnv struct {
	node    *core.Node
	server  *Server
	handler http.Handler
}

func newTestEnv(t testing.TB, cfg ServerConfig) *testEnv {
	t.Helper()
	return newTestEnvWithLogger(t, cfg, nil)
}

func newTestEnvWithLogger(t testing.TB, cfg ServerConfig, logger *slog.Logger) *testEnv {
	t.Helper()
	node, err := core.NewNode(storage.NewMemDB(), core.Options{
		Router: router.New(router.Config{MajorAssets: [][20]byte{solRaw, usdcRaw}}),
		Now:    func() int64 { return testNow },
	})
	require.NoError(t, err)
	_, err = node.Bootstrap(context.Background(), adminRaw, treasuryRaw)
	require.NoError(t, err)

	if len(cfg.JWTSecret) == 0 {
		cfg.JWTSecret = []byte(testJWTSecret)
		cfg.JWTIssuer = testIssuer
	}
	srv, err := NewServer(node, cfg, logger)
	require.NoError(t, err)
	return &testEnv{node: node, server: srv, handler: srv.Handler()}
}

func tokenFor(t testing.TB, raw [20]byte) string {
	t.Helper()
	token, err := IssueToken([]byte(testJWTSecret), testIssuer, crypto.AccountAddress(raw), time.Hour, time.Now())
	require.NoError(t, err)
	return token
}

type rpcResult struct {
	status int
	resp   RPCResponse
	raw    json.RawMessage
	header http.Header
}

func (r rpcResult) decode(t testing.TB, out interface{}) {
	t.Helper()
	require.Nil(t, r.resp.Error, "unexpected error %+v", r.resp.Error)
	require.NoError(t, json.Unmarshal(r.raw, out))
}

func (r rpcResult) errorData(t testing.TB) ErrorData {
	t.Helper()
	require.NotNil(t, r.resp.Error)
	encoded, err := json.Marshal(r.resp.Error.Data)
	require.NoError(t, err)
	var data ErrorData
	require.NoError(t, json.Unmarshal(encoded, &data))
	return data
}

func (e *testEnv) call(t testing.TB, token, method string, params interface{}) rpcResult {
	t.Helper()
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var envelope struct {
		RPCResponse
		Result json.RawMessage `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	envelope.RPCResponse.Result = nil
	return rpcResult{status: rec.Code, resp: envelope.RPCResponse, raw: envelope.Result, header: rec.Header()}
}
