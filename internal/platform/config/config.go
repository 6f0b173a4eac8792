package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config captures process-level configuration for the vault server.
type Config struct {
	Addr      string
	LogFormat string // "json" or "text"

	// JWTSigningKey signs and verifies caller-identity tokens.
	JWTSigningKey string
	JWTIssuer     string

	// BootstrapAdmin is seeded into the member registry at startup so the
	// vault is administrable before any member exists.
	BootstrapAdmin string

	// SignatureThreshold is the initial global approval threshold.
	SignatureThreshold int

	// DevLedgerSeed funds the bootstrap admin's account on the in-memory
	// ledger so deposits work out of the box. Zero disables seeding; ignored
	// when an external ledger is wired in.
	DevLedgerSeed int64

	// TickInterval and GenesisTime define the wall-clock mapping of the tick
	// counter: tick = elapsed(GenesisTime) / TickInterval.
	TickInterval time.Duration
	GenesisTime  time.Time

	// EmergencySeedVote controls whether an emergency withdrawal's seeded
	// approval also writes a vote record for the proposer (closing the
	// double-count hole) or only bumps the counter (source-compatible).
	EmergencySeedVote bool

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig

	// PolicyFile is an optional TOML file with spending limits applied at
	// startup.
	PolicyFile string

	// RunnerSpec is the cron spec driving recurring-payment batch execution.
	// Empty disables the runner.
	RunnerSpec      string
	RunnerBatchSize int
}

// RedisConfig configures the optional vault-stats cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	StatsTTL     time.Duration
}

// PostgresConfig configures the optional transaction-history store.
// Empty URL falls back to the in-memory store.
type PostgresConfig struct {
	URL string
}

// KafkaConfig configures the optional audit-event sink.
// Empty brokers fall back to the in-memory sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads .env (if present) and builds the config from environment
// variables so main stays lean.
func Load() (Config, error) {
	// Missing .env is fine; explicit env always wins.
	_ = godotenv.Load()

	cfg := Config{
		Addr:               getEnv("QUORUM_ADDR", ":8080"),
		LogFormat:          getEnv("QUORUM_LOG_FORMAT", "text"),
		JWTSigningKey:      getEnv("QUORUM_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:          getEnv("QUORUM_JWT_ISSUER", "quorum-vault"),
		BootstrapAdmin:     getEnv("QUORUM_BOOTSTRAP_ADMIN", "vault-admin"),
		SignatureThreshold: getEnvInt("QUORUM_SIGNATURE_THRESHOLD", 2),
		DevLedgerSeed:      getEnvInt64("QUORUM_DEV_LEDGER_SEED", 1_000_000),
		TickInterval:       getEnvDuration("QUORUM_TICK_INTERVAL", time.Minute),
		EmergencySeedVote:  os.Getenv("QUORUM_EMERGENCY_SEED_VOTE") == "true",
		PolicyFile:         os.Getenv("QUORUM_POLICY_FILE"),
		RunnerSpec:         getEnv("QUORUM_RUNNER_SPEC", "@every 1m"),
		RunnerBatchSize:    getEnvInt("QUORUM_RUNNER_BATCH_SIZE", 50),
		Redis: RedisConfig{
			URL:          os.Getenv("QUORUM_REDIS_URL"),
			PoolSize:     getEnvInt("QUORUM_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("QUORUM_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getEnvDuration("QUORUM_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("QUORUM_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("QUORUM_REDIS_WRITE_TIMEOUT", 3*time.Second),
			StatsTTL:     getEnvDuration("QUORUM_STATS_CACHE_TTL", 5*time.Second),
		},
		Postgres: PostgresConfig{
			URL: os.Getenv("QUORUM_POSTGRES_URL"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("QUORUM_KAFKA_BROKERS")),
			Topic:   getEnv("QUORUM_KAFKA_TOPIC", "quorum.vault.audit"),
		},
	}

	genesis := getEnvInt64("QUORUM_GENESIS_UNIX", 0)
	if genesis == 0 {
		// Default genesis: start of the current year, so ticks are stable
		// across restarts without explicit configuration.
		now := time.Now().UTC()
		cfg.GenesisTime = time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	} else {
		cfg.GenesisTime = time.Unix(genesis, 0).UTC()
	}

	if cfg.SignatureThreshold < 1 {
		return Config{}, fmt.Errorf("signature threshold must be at least 1, got %d", cfg.SignatureThreshold)
	}
	return cfg, nil
}

// SpendingPolicy is the optional startup policy table.
type SpendingPolicy struct {
	Limits []MemberLimit `toml:"limits"`
}

// MemberLimit is one row of the policy table.
type MemberLimit struct {
	Principal string `toml:"principal"`
	Daily     int64  `toml:"daily"`
	Monthly   int64  `toml:"monthly"`
	Total     int64  `toml:"total"`
}

// LoadPolicy parses the spending-policy TOML file.
func LoadPolicy(path string) (SpendingPolicy, error) {
	var policy SpendingPolicy
	if _, err := toml.DecodeFile(path, &policy); err != nil {
		return SpendingPolicy{}, fmt.Errorf("decode policy file %s: %w", path, err)
	}
	return policy, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
