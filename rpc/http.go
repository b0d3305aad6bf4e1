package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"intentengine/core"
	"intentengine/crypto"
	"intentengine/observability"
	"intentengine/observability/logging"
)

const (
	defaultMaxBodyBytes = 1 << 20 // 1 MiB
	defaultReadTimeout  = 15 * time.Second
	requestIDHeader     = "X-Request-ID"
)

// AssetResolver turns a symbol or bech32 identifier into an asset id.
type AssetResolver interface {
	Asset(ref string) ([20]byte, error)
}

type bech32Assets struct{}

func (bech32Assets) Asset(ref string) ([20]byte, error) {
	addr, err := crypto.DecodePrefixed(strings.TrimSpace(ref), crypto.AssetPrefix)
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

// ServerConfig carries the JSON-RPC server settings.
type ServerConfig struct {
	JWTSecret          []byte
	JWTIssuer          string
	RateLimitPerSecond float64
	RateLimitBurst     int
	ReadTimeout        time.Duration
	MaxBodyBytes       int64
	Assets             AssetResolver
}

type Server struct {
	node    *core.Node
	cfg     ServerConfig
	auth    *authenticator
	limiter *clientLimiter
	assets  AssetResolver
	logger  *slog.Logger
	methods map[string]method
	router  http.Handler

	serverMu   sync.Mutex
	httpServer *http.Server
}

// NewServer builds the JSON-RPC server for node.
func NewServer(node *core.Node, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, errors.New("rpc: node required")
	}
	if len(cfg.JWTSecret) == 0 {
		return nil, errors.New("rpc: JWT secret required")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	assets := cfg.Assets
	if assets == nil {
		assets = bech32Assets{}
	}
	s := &Server{
		node:    node,
		cfg:     cfg,
		auth:    newAuthenticator(cfg.JWTSecret, cfg.JWTIssuer),
		limiter: newClientLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst),
		assets:  assets,
		logger:  logger,
	}
	s.methods = s.methodTable()
	s.router = s.buildRouter()
	return s, nil
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/ws/events", s.handleEventsWS)
	r.Post("/", s.handle)

	return otelhttp.NewHandler(r, "intentd")
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

type requestIDKey struct{}

func requestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Serve accepts connections on listener until Shutdown.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadTimeout:       s.cfg.ReadTimeout,
		ReadHeaderTimeout: s.cfg.ReadTimeout,
	}
	s.serverMu.Lock()
	s.httpServer = srv
	s.serverMu.Unlock()
	s.logger.Info("JSON-RPC server listening", slog.String("address", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func methodModule(name string) string {
	if idx := strings.IndexByte(name, '_'); idx > 0 {
		return name[:idx]
	}
	return "unknown"
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	reader := http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	defer func() {
		_ = reader.Close()
	}()

	w.Header().Set("Content-Type", "application/json")

	body, err := io.ReadAll(reader)
	if err != nil {
		status := http.StatusBadRequest
		message := "failed to read request body"
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			status = http.StatusRequestEntityTooLarge
			message = fmt.Sprintf("request body exceeds %d bytes", s.cfg.MaxBodyBytes)
		}
		writeError(w, status, nil, codeInvalidRequest, message, err.Error())
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, nil, codeInvalidRequest, "request body required", nil)
		return
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		writeError(w, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	if req.Method == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "method required", nil)
		return
	}

	start := time.Now()
	module := methodModule(req.Method)
	code := s.dispatch(w, r, req)
	observability.ModuleMetrics().Observe(module, req.Method, code, time.Since(start))
}

// dispatch runs one request and returns the JSON-RPC error code written, or
// zero on success.
func (s *Server) dispatch(w http.ResponseWriter, r *http.Request, req *RPCRequest) int {
	m, ok := s.methods[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("unknown method %s", req.Method), nil)
		return codeMethodNotFound
	}
	if !s.limiter.allow(clientID(r)) {
		observability.ModuleMetrics().RecordThrottle(methodModule(req.Method), "rate_limit")
		writeError(w, http.StatusTooManyRequests, req.ID, codeRateLimited, "rate limit exceeded", nil)
		return codeRateLimited
	}
	call := &call{ctx: r.Context(), params: req.Params}
	if m.auth {
		caller, authErr := s.auth.caller(r)
		if authErr != nil {
			s.logger.Warn("rpc authentication rejected",
				slog.String("method", req.Method),
				slog.String("request_id", requestIDFrom(r.Context())),
				logging.MaskField("authorization", r.Header.Get("Authorization")),
				slog.String("reason", authErr.Message))
			writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
			return authErr.Code
		}
		call.caller = caller
	}
	result, err := m.fn(call)
	if err != nil {
		var pe *paramError
		if errors.As(err, &pe) {
			writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, pe.message, pe.detail)
			return codeInvalidParams
		}
		code, _ := engineErrorCode(err)
		s.logger.Debug("rpc call failed",
			slog.String("method", req.Method),
			slog.String("request_id", requestIDFrom(r.Context())),
			slog.Any("error", err))
		writeEngineError(w, req.ID, err)
		return code
	}
	writeResult(w, req.ID, result)
	return 0
}
