package configloader

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

const (
	// PrivateKeyEnv overrides wallet.privateKey so the key doesn't have to live in the file.
	PrivateKeyEnv = "ESCROW_PRIVATE_KEY"
	// APITokenEnv overrides server.apiToken.
	APITokenEnv = "ESCROW_API_TOKEN"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         string `yaml:"port"`
	// APIToken, when set, must be sent as "Authorization: Bearer <token>" on /api routes.
	APIToken string `yaml:"apiToken"`
	// AllowedOrigins lists browser origins allowed by CORS; empty disables CORS.
	AllowedOrigins []string `yaml:"allowedOrigins"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Production bool   `yaml:"production"`
}

// NetworkConfig selects the chain the escrow is deployed on.
type NetworkConfig struct {
	Identifier string   `yaml:"identifier"` // e.g. "sepolia"
	RPCURL     string   `yaml:"rpcURL"`     // overrides the built-in primary RPC
	Fallbacks  []string `yaml:"fallbackRPCURLs"`
	ChainID    uint64   `yaml:"chainID"` // required for networks without a built-in definition
}

// TokenConfig identifies the ERC20 token escrowed by the contract.
type TokenConfig struct {
	Address string `yaml:"address"`
}

// EscrowConfig identifies the escrow contract, i.e. the allowance spender.
type EscrowConfig struct {
	Address string `yaml:"address"`
}

// WalletConfig holds the signing account.
type WalletConfig struct {
	PrivateKey string `yaml:"privateKey"`
}

// PerformanceConfig holds performance-related configurations.
type PerformanceConfig struct {
	MaxConcurrentRoutines    int `yaml:"max_concurrent_routines"`
	RPCCallTimeoutSeconds    int `yaml:"rpc_call_timeout_seconds"`
	ConnectionTimeoutSeconds int `yaml:"connection_timeout_seconds"`
}

// RPCClientConfig holds rate limiting for RPC calls.
type RPCClientConfig struct {
	RateLimit  float64 `yaml:"rateLimit"` // requests per second, 0 = unlimited
	BurstLimit int     `yaml:"burstLimit"`
}

// CacheConfig holds TTLs of the token read cache.
type CacheConfig struct {
	StateTTLSeconds        int `yaml:"stateTTLSeconds"`
	MetadataTTLMinutes     int `yaml:"metadataTTLMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// ApprovalConfig tunes the allowance prompt and submission.
type ApprovalConfig struct {
	DefaultPromptAmount   string `yaml:"defaultPromptAmount"`
	WaitForReceipt        bool   `yaml:"waitForReceipt"`
	ReceiptTimeoutSeconds int    `yaml:"receiptTimeoutSeconds"`
}

// SessionsConfig holds the lifetime of open prompts on the REST API.
type SessionsConfig struct {
	TTLMinutes int `yaml:"ttlMinutes"`
}

// DEXScreenerConfig holds DEXScreener API specific configurations.
type DEXScreenerConfig struct {
	Enabled              bool   `yaml:"enabled"`
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// TokenPriceServiceConfig holds configuration for the TokenPriceService.
type TokenPriceServiceConfig struct {
	CacheTTLMinutes int `yaml:"cacheTTLMinutes"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	SpecFile string `yaml:"specFile"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig            `yaml:"server"`
	Logging       LoggingConfig           `yaml:"logging"`
	Network       NetworkConfig           `yaml:"network"`
	Token         TokenConfig             `yaml:"token"`
	Escrow        EscrowConfig            `yaml:"escrow"`
	Wallet        WalletConfig            `yaml:"wallet"`
	Performance   PerformanceConfig       `yaml:"performance"`
	RPCClient     RPCClientConfig         `yaml:"rpcClient"`
	Cache         CacheConfig             `yaml:"cache"`
	Approval      ApprovalConfig          `yaml:"approval"`
	Sessions      SessionsConfig          `yaml:"sessions"`
	DEXScreener   DEXScreenerConfig       `yaml:"dexScreener"`
	TokenPriceSvc TokenPriceServiceConfig `yaml:"tokenPriceService"`
	Swagger       SwaggerConfig           `yaml:"swagger"`
}

// Load reads the YAML configuration file from the given path and unmarshals it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML configuration, applies env overrides and defaults, and validates it.
func Parse(data []byte) (*Config, error) {
	// booleans that default to true are preset so an omitted key keeps the default
	cfg := Config{Approval: ApprovalConfig{WaitForReceipt: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	if key, ok := os.LookupEnv(PrivateKeyEnv); ok && key != "" {
		cfg.Wallet.PrivateKey = key
	}
	if token, ok := os.LookupEnv(APITokenEnv); ok && token != "" {
		cfg.Server.APIToken = token
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
		logrus.Infof("server.port not set, defaulting to %s", cfg.Server.Port)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Network.Identifier == "" {
		cfg.Network.Identifier = "sepolia"
		logrus.Infof("network.identifier not set, defaulting to %s", cfg.Network.Identifier)
	}
	if cfg.Performance.MaxConcurrentRoutines <= 0 {
		cfg.Performance.MaxConcurrentRoutines = 4
	}
	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.ConnectionTimeoutSeconds <= 0 {
		cfg.Performance.ConnectionTimeoutSeconds = 10
	}
	if cfg.RPCClient.RateLimit > 0 && cfg.RPCClient.BurstLimit <= 0 {
		cfg.RPCClient.BurstLimit = 1
		logrus.Infof("rpcClient.burstLimit not set, defaulting to %d", cfg.RPCClient.BurstLimit)
	}
	if cfg.Cache.StateTTLSeconds <= 0 {
		cfg.Cache.StateTTLSeconds = 15
	}
	if cfg.Cache.MetadataTTLMinutes <= 0 {
		cfg.Cache.MetadataTTLMinutes = 60
	}
	if cfg.Cache.CleanupIntervalMinutes <= 0 {
		cfg.Cache.CleanupIntervalMinutes = 10
	}
	if cfg.Approval.DefaultPromptAmount == "" {
		cfg.Approval.DefaultPromptAmount = "0.1"
	}
	if cfg.Approval.ReceiptTimeoutSeconds <= 0 {
		cfg.Approval.ReceiptTimeoutSeconds = 120
	}
	if cfg.Sessions.TTLMinutes <= 0 {
		cfg.Sessions.TTLMinutes = 15
	}
	if cfg.DEXScreener.BaseURL == "" {
		cfg.DEXScreener.BaseURL = "https://api.dexscreener.com"
	}
	if cfg.DEXScreener.RequestTimeoutMillis <= 0 {
		cfg.DEXScreener.RequestTimeoutMillis = 10000
	}
	if cfg.TokenPriceSvc.CacheTTLMinutes <= 0 {
		cfg.TokenPriceSvc.CacheTTLMinutes = 5
	}
	if cfg.Swagger.SpecFile == "" {
		cfg.Swagger.SpecFile = "./docs/swagger.yaml"
	}
}

// Validate checks the fields that have no sensible default.
func (c *Config) Validate() error {
	var problems []string
	if c.Token.Address == "" {
		problems = append(problems, "token.address is required")
	}
	if c.Escrow.Address == "" {
		problems = append(problems, "escrow.address is required")
	}
	if c.Wallet.PrivateKey != "" && c.Server.APIToken == "" && !isLoopback(c.Server.Host) {
		problems = append(problems, fmt.Sprintf("server.host %q is not loopback: set server.apiToken (env %s) when a signing key is configured", c.Server.Host, APITokenEnv))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	if c.Wallet.PrivateKey == "" {
		logrus.Warnf("wallet.privateKey not set (env %s); approvals will be rejected as read-only", PrivateKeyEnv)
	}
	return nil
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ReadOnly reports whether no signing key is configured.
func (c *Config) ReadOnly() bool {
	return c.Wallet.PrivateKey == ""
}
