package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"intentengine/cmd/internal/passphrase"
	"intentengine/config"
	"intentengine/core"
	"intentengine/crypto"
	"intentengine/native/intent"
	"intentengine/native/router"
	"intentengine/observability/logging"
	telemetry "intentengine/observability/otel"
	"intentengine/rpc"
	"intentengine/storage"
)

const (
	shutdownTimeout     = 10 * time.Second
	defaultAdminPassEnv = "INTENTD_ADMIN_PASSPHRASE"
)

func main() {
	configFile := flag.String("config", "./intentd.toml", "Path to the configuration file")
	flag.Parse()

	if err := run(*configFile); err != nil {
		slog.Error("intentd exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// First start generates the keystore before the configured env name is
	// known, so it reads the default variable.
	passSource := passphrase.NewSource(defaultAdminPassEnv, "admin keystore passphrase")
	cfg, err := config.Load(configPath, config.WithKeystorePassphraseSource(passSource.Get))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.AdminPassphraseEnv != defaultAdminPassEnv {
		passSource = passphrase.NewSource(cfg.AdminPassphraseEnv, "admin keystore passphrase")
	}

	logger := logging.Setup("intentd", cfg.Environment, logging.Options{
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "intentd",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Metrics:     cfg.Telemetry.Metrics,
		Traces:      cfg.Telemetry.Traces,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	db, err := openDatabase(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	catalog, err := config.LoadVenues(cfg.VenuesFile)
	if err != nil {
		return err
	}
	params, err := cfg.EngineParams()
	if err != nil {
		return err
	}
	routerCfg, err := cfg.RouterConfig(catalog.Majors())
	if err != nil {
		return err
	}
	venues := intent.LedgerVenues(catalog.SwapAccount, catalog.LendingAccount)

	node, err := core.NewNode(db, core.Options{
		Params: params,
		Router: router.New(routerCfg),
		Risk:   intent.StaticScorer{Scores: catalog.RiskScores()},
		Venues: &venues,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("create node: %w", err)
	}

	if cfg.Engine.Bootstrap {
		if err := bootstrap(ctx, node, cfg, passSource, logger); err != nil {
			return err
		}
	}

	secret := strings.TrimSpace(os.Getenv(cfg.RPC.JWTSecretEnv))
	if secret == "" {
		return fmt.Errorf("JWT secret required; set %s", cfg.RPC.JWTSecretEnv)
	}
	server, err := rpc.NewServer(node, rpc.ServerConfig{
		JWTSecret:          []byte(secret),
		JWTIssuer:          cfg.RPC.JWTIssuer,
		RateLimitPerSecond: cfg.RPC.RateLimitPerSecond,
		RateLimitBurst:     cfg.RPC.RateLimitBurst,
		ReadTimeout:        time.Duration(cfg.RPC.ReadTimeoutSeconds) * time.Second,
		MaxBodyBytes:       cfg.RPC.MaxBodyBytes,
		Assets:             catalog,
	}, logger)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.RPC.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.RPC.ListenAddress, err)
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("rpc shutdown: %w", err)
	}
	return <-serveErr
}

func openDatabase(cfg *config.Config) (storage.Database, error) {
	if cfg.Database == config.DatabaseMemory {
		return storage.NewMemDB(), nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	return storage.NewLevelDB(filepath.Join(cfg.DataDir, "state"))
}

func bootstrap(ctx context.Context, node *core.Node, cfg *config.Config, passSource *passphrase.Source, logger *slog.Logger) error {
	pass, err := passSource.Get()
	if err != nil {
		return err
	}
	key, err := crypto.LoadFromKeystore(cfg.AdminKeystorePath, pass)
	if err != nil {
		return fmt.Errorf("load admin key: %w", err)
	}
	admin := key.PubKey().Address().Raw()
	treasury, ok, err := cfg.TreasuryAddress()
	if err != nil {
		return err
	}
	if !ok {
		treasury = admin
	}
	protocol, err := node.Bootstrap(ctx, admin, treasury)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	logger.Info("protocol ready",
		slog.String("admin", crypto.AccountAddress(protocol.Admin).String()),
		slog.String("treasury", crypto.AccountAddress(protocol.Treasury).String()),
		slog.Uint64("fee_bps", protocol.FeeBps))
	return nil
}
