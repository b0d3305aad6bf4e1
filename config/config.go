package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"intentengine/crypto"
	"intentengine/native/intent"
	"intentengine/native/router"
)

// Database backends.
const (
	DatabaseLevelDB = "leveldb"
	DatabaseMemory  = "memory"
)

// Config is the intentd configuration file.
type Config struct {
	Environment       string `toml:"Environment"`
	DataDir           string `toml:"DataDir"`
	Database          string `toml:"Database"`
	AdminKeystorePath string `toml:"AdminKeystorePath"`
	// AdminPassphraseEnv names the environment variable holding the admin
	// keystore passphrase.
	AdminPassphraseEnv string `toml:"AdminPassphraseEnv"`
	// VenuesFile points at the YAML asset and venue catalogue. Empty uses
	// the built-in defaults.
	VenuesFile string `toml:"VenuesFile"`

	Engine    EngineConfig    `toml:"engine"`
	Router    RouterConfig    `toml:"router"`
	RPC       RPCConfig       `toml:"rpc"`
	Logging   LoggingConfig   `toml:"logging"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// EngineConfig selects the rule set and fills the protocol identity used on
// first start.
type EngineConfig struct {
	Profile          string `toml:"Profile"`
	FeeBps           uint64 `toml:"FeeBps"`
	MaxActiveIntents uint64 `toml:"MaxActiveIntents"`
	MaxSlippageBps   uint64 `toml:"MaxSlippageBps"`
	MinRiskScore     uint8  `toml:"MinRiskScore"`
	SwapTTLSeconds   uint64 `toml:"SwapTTLSeconds"`
	LendTTLSeconds   uint64 `toml:"LendTTLSeconds"`
	BuyTTLSeconds    uint64 `toml:"BuyTTLSeconds"`
	// Bootstrap initialises the protocol with the admin key on first start.
	Bootstrap bool   `toml:"Bootstrap"`
	Treasury  string `toml:"Treasury"`
}

// RouterConfig overrides the venue-selection thresholds.
type RouterConfig struct {
	LargeSwapThreshold uint64 `toml:"LargeSwapThreshold"`
	LargeLendThreshold uint64 `toml:"LargeLendThreshold"`
	DirectVenue        string `toml:"DirectVenue"`
}

// RPCConfig configures the JSON-RPC server.
type RPCConfig struct {
	ListenAddress      string  `toml:"ListenAddress"`
	JWTSecretEnv       string  `toml:"JWTSecretEnv"`
	JWTIssuer          string  `toml:"JWTIssuer"`
	RateLimitPerSecond float64 `toml:"RateLimitPerSecond"`
	RateLimitBurst     int     `toml:"RateLimitBurst"`
	ReadTimeoutSeconds uint64  `toml:"ReadTimeoutSeconds"`
	MaxBodyBytes       int64   `toml:"MaxBodyBytes"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}

// TelemetryConfig configures the OTLP exporters.
type TelemetryConfig struct {
	Endpoint    string  `toml:"Endpoint"`
	Insecure    bool    `toml:"Insecure"`
	Traces      bool    `toml:"Traces"`
	Metrics     bool    `toml:"Metrics"`
	SampleRatio float64 `toml:"SampleRatio"`
	Headers     string  `toml:"Headers"`
}

// LoadOption adjusts how Load behaves.
type LoadOption func(*loadOptions)

type loadOptions struct {
	passphrase func() (string, error)
}

// WithKeystorePassphraseSource supplies the passphrase used to encrypt the
// admin keystore generated on first start. Without it the passphrase is read
// from AdminPassphraseEnv.
func WithKeystorePassphraseSource(source func() (string, error)) LoadOption {
	return func(o *loadOptions) {
		o.passphrase = source
	}
}

// Load loads the configuration from the given path, creating a default file
// and admin keystore when none exists.
func Load(path string, opts ...LoadOption) (*Config, error) {
	options := loadOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path, options)
	} else if err != nil {
		return nil, err
	}
	cfg := &Config{}
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown field %s", path, undecoded[0])
	}
	cfg.normalize(path)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration written on first start.
func Default() *Config {
	cfg := &Config{
		Environment: "local",
		DataDir:     "./intent-data",
		Database:    DatabaseLevelDB,
		Engine: EngineConfig{
			Profile:   string(intent.ProfileProduction),
			Bootstrap: true,
		},
		RPC: RPCConfig{
			ListenAddress: ":8645",
			JWTSecretEnv:  "INTENTD_JWT_SECRET",
		},
		Logging: LoggingConfig{Level: "info"},
	}
	cfg.normalize("")
	return cfg
}

func createDefault(path string, options loadOptions) (*Config, error) {
	cfg := Default()
	cfg.AdminKeystorePath = defaultKeystorePath(path)

	passphrase := os.Getenv(cfg.AdminPassphraseEnv)
	if options.passphrase != nil {
		value, err := options.passphrase()
		if err != nil {
			return nil, fmt.Errorf("admin keystore passphrase: %w", err)
		}
		passphrase = value
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := crypto.SaveToKeystore(cfg.AdminKeystorePath, key, passphrase); err != nil {
		return nil, err
	}
	if cfg.Engine.Treasury == "" {
		cfg.Engine.Treasury = key.PubKey().Address().String()
	}
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) normalize(path string) {
	c.Environment = strings.TrimSpace(c.Environment)
	c.Database = strings.ToLower(strings.TrimSpace(c.Database))
	if c.Database == "" {
		c.Database = DatabaseLevelDB
	}
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = "./intent-data"
	}
	if c.AdminKeystorePath == "" {
		c.AdminKeystorePath = defaultKeystorePath(path)
	}
	if c.AdminPassphraseEnv == "" {
		c.AdminPassphraseEnv = "INTENTD_ADMIN_PASSPHRASE"
	}
	c.Engine.Profile = strings.ToLower(strings.TrimSpace(c.Engine.Profile))
	if c.Engine.Profile == "" {
		c.Engine.Profile = string(intent.ProfileProduction)
	}
	if c.RPC.ListenAddress == "" {
		c.RPC.ListenAddress = ":8645"
	}
	if c.RPC.JWTSecretEnv == "" {
		c.RPC.JWTSecretEnv = "INTENTD_JWT_SECRET"
	}
	if c.RPC.JWTIssuer == "" {
		c.RPC.JWTIssuer = "intentd"
	}
	if c.RPC.RateLimitPerSecond <= 0 {
		c.RPC.RateLimitPerSecond = 20
	}
	if c.RPC.RateLimitBurst <= 0 {
		c.RPC.RateLimitBurst = 40
	}
	if c.RPC.ReadTimeoutSeconds == 0 {
		c.RPC.ReadTimeoutSeconds = 15
	}
	if c.RPC.MaxBodyBytes <= 0 {
		c.RPC.MaxBodyBytes = 1 << 20
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File != "" {
		if c.Logging.MaxSizeMB <= 0 {
			c.Logging.MaxSizeMB = 100
		}
		if c.Logging.MaxBackups <= 0 {
			c.Logging.MaxBackups = 5
		}
		if c.Logging.MaxAgeDays <= 0 {
			c.Logging.MaxAgeDays = 28
		}
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.Database {
	case DatabaseLevelDB, DatabaseMemory:
	default:
		return fmt.Errorf("config: unknown database %q", c.Database)
	}
	params, err := c.EngineParams()
	if err != nil {
		return err
	}
	if err := params.Validate(); err != nil {
		return fmt.Errorf("config: engine: %w", err)
	}
	if _, err := c.RouterDirectVenue(); err != nil {
		return err
	}
	if c.Engine.Treasury != "" {
		if _, err := crypto.DecodePrefixed(c.Engine.Treasury, crypto.AccountPrefix); err != nil {
			return fmt.Errorf("config: engine.Treasury: %w", err)
		}
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("config: telemetry.SampleRatio must be within [0, 1]")
	}
	return nil
}

// EngineParams resolves the engine rule set: the profile's defaults with any
// non-zero overrides applied.
func (c *Config) EngineParams() (intent.Params, error) {
	params, err := intent.ParamsForProfile(c.Engine.Profile)
	if err != nil {
		return intent.Params{}, fmt.Errorf("config: engine.Profile: %w", err)
	}
	if c.Engine.FeeBps != 0 {
		params.FeeBps = c.Engine.FeeBps
	}
	if c.Engine.MaxActiveIntents != 0 {
		params.MaxActiveIntents = c.Engine.MaxActiveIntents
	}
	if c.Engine.MaxSlippageBps != 0 {
		params.MaxSlippageBps = c.Engine.MaxSlippageBps
	}
	if c.Engine.MinRiskScore != 0 {
		params.MinRiskScore = c.Engine.MinRiskScore
	}
	if c.Engine.SwapTTLSeconds != 0 {
		params.SwapTTL = time.Duration(c.Engine.SwapTTLSeconds) * time.Second
	}
	if c.Engine.LendTTLSeconds != 0 {
		params.LendTTL = time.Duration(c.Engine.LendTTLSeconds) * time.Second
	}
	if c.Engine.BuyTTLSeconds != 0 {
		params.BuyTTL = time.Duration(c.Engine.BuyTTLSeconds) * time.Second
	}
	return params, nil
}

// RouterDirectVenue parses router.DirectVenue. Empty selects the primary pool.
func (c *Config) RouterDirectVenue() (router.SwapVenue, error) {
	if strings.TrimSpace(c.Router.DirectVenue) == "" {
		return router.SwapVenuePrimaryAMM, nil
	}
	venue, err := router.ParseSwapVenue(c.Router.DirectVenue)
	if err != nil {
		return 0, fmt.Errorf("config: router.DirectVenue: %w", err)
	}
	if !venue.Direct() {
		return 0, fmt.Errorf("config: router.DirectVenue %s is not a direct pool", venue)
	}
	return venue, nil
}

// RouterConfig builds the router configuration for the supplied major assets.
func (c *Config) RouterConfig(majors [][20]byte) (router.Config, error) {
	direct, err := c.RouterDirectVenue()
	if err != nil {
		return router.Config{}, err
	}
	return router.Config{
		LargeSwapThreshold: c.Router.LargeSwapThreshold,
		LargeLendThreshold: c.Router.LargeLendThreshold,
		MajorAssets:        majors,
		DirectVenue:        direct,
	}, nil
}

// TreasuryAddress returns the configured treasury, if any.
func (c *Config) TreasuryAddress() ([20]byte, bool, error) {
	if strings.TrimSpace(c.Engine.Treasury) == "" {
		return [20]byte{}, false, nil
	}
	addr, err := crypto.DecodePrefixed(c.Engine.Treasury, crypto.AccountPrefix)
	if err != nil {
		return [20]byte{}, false, err
	}
	return addr.Raw(), true, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	dir := filepath.Dir(configPath)
	if dir == "." || dir == "" {
		dir = ""
	}
	return filepath.Join(dir, "admin.keystore")
}
