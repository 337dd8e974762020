package config

import (
	"time"

	"github.com/joho/godotenv"
)

// Config holds the runtime configuration for the trade ingestion service.
// It supports environment-based initialization, with sensible defaults.
type Config struct {
	ServiceName string // e.g. "trade-ingest"
	Env         string // e.g. "dev", "uat", "prod"
	LogLevel    string // "debug", "info", etc.

	// Ingestion behavior
	SourceMode      string   // "simulation", "api", "stream"
	Symbols         []string // allow-list; immutable after startup
	QuantityMin     int
	QuantityMax     int
	PriceMin        float64
	PriceMax        float64
	DelayMin        time.Duration // inter-arrival spacing, lower bound
	DelayMax        time.Duration // inter-arrival spacing, upper bound
	EmptyFetchPause time.Duration // pause when a source yields no data
	ErrorBackoff    time.Duration // pause after a transient iteration failure
	JoinTimeout     time.Duration // bounded wait for the worker on Stop
	QueueCapacity   int           // owned queue buffer size when none is injected

	// API source (simulated unless a base URL is configured)
	APIBaseURL  string
	APIKey      string // local fallback when Secrets Manager is unavailable
	APIPollRate int    // requests per second against the external API
	APIBurst    int

	// Stream source (placeholder unless a websocket URL is configured)
	StreamURL string

	// Dedupe guard for externally sourced candidates
	RedisAddr string // empty → in-memory guard
	RedisDB   int
	RedisPass string
	DedupeTTL time.Duration

	// Symbol reference data
	PostgresDSN string // empty → static allow-list from Symbols
	SymbolTable string

	// Egress sinks (each disabled when its URL is empty)
	NATSURL        string
	NATSSubject    string
	RabbitURL      string
	RabbitExchange string
	EgressWorkers  int

	// Ops HTTP server
	Port             int
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	HTTPBodyLimit    int

	// Secrets
	AWSRegion   string
	SecretsTTL  time.Duration
	CleanupFreq time.Duration
}

// Load loads configuration from environment variables and .env file if present.
func Load() *Config {
	// load .env silently (no error if missing)
	_ = godotenv.Load()

	cfg := &Config{
		ServiceName: GetEnv("SERVICE_NAME", "trade-ingest"),
		Env:         GetEnv("ENV", "dev"),
		LogLevel:    GetEnv("LOG_LEVEL", "info"),

		SourceMode:      GetEnv("SOURCE_MODE", "simulation"),
		Symbols:         GetEnvList("SYMBOLS", []string{"AAPL", "GOOGL", "MSFT", "TSLA", "AMZN"}),
		QuantityMin:     GetEnvInt("QUANTITY_MIN", 100),
		QuantityMax:     GetEnvInt("QUANTITY_MAX", 1000),
		PriceMin:        GetEnvFloat("PRICE_MIN", 50),
		PriceMax:        GetEnvFloat("PRICE_MAX", 500),
		DelayMin:        GetEnvDuration("DELAY_MIN", 500*time.Millisecond),
		DelayMax:        GetEnvDuration("DELAY_MAX", 2*time.Second),
		EmptyFetchPause: GetEnvDuration("EMPTY_FETCH_PAUSE", 1*time.Second),
		ErrorBackoff:    GetEnvDuration("ERROR_BACKOFF", 1*time.Second),
		JoinTimeout:     GetEnvDuration("JOIN_TIMEOUT", 2*time.Second),
		QueueCapacity:   GetEnvInt("QUEUE_CAPACITY", 1024),

		APIBaseURL:  GetEnv("API_BASE_URL", ""),
		APIKey:      GetEnv("API_KEY", ""),
		APIPollRate: GetEnvInt("API_POLL_RATE", 5),
		APIBurst:    GetEnvInt("API_BURST", 10),

		StreamURL: GetEnv("STREAM_URL", ""),

		RedisAddr: GetEnv("REDIS_ADDR", ""),
		RedisDB:   GetEnvInt("REDIS_DB", 0),
		RedisPass: GetEnv("REDIS_PASS", ""),
		DedupeTTL: GetEnvDuration("DEDUPE_TTL", 24*time.Hour),

		PostgresDSN: GetEnv("POSTGRES_DSN", ""),
		SymbolTable: GetEnv("SYMBOL_TABLE", "reference.ingest_symbols"),

		NATSURL:        GetEnv("NATS_URL", ""),
		NATSSubject:    GetEnv("NATS_SUBJECT", "evt.trade.ingested.v1"),
		RabbitURL:      GetEnv("RABBITMQ_URL", ""),
		RabbitExchange: GetEnv("RABBITMQ_EXCHANGE", "trade.events"),
		EgressWorkers:  GetEnvInt("EGRESS_WORKERS", 2),

		Port:             GetEnvInt("PORT", 8080),
		HTTPReadTimeout:  GetEnvDuration("HTTP_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: GetEnvDuration("HTTP_WRITE_TIMEOUT", 10*time.Second),
		HTTPIdleTimeout:  GetEnvDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		HTTPBodyLimit:    GetEnvInt("HTTP_BODY_LIMIT", 1*1024*1024),

		AWSRegion:   GetEnv("AWS_REGION", "us-east-2"),
		SecretsTTL:  GetEnvDuration("SECRETS_TTL", 10*time.Minute),
		CleanupFreq: GetEnvDuration("CACHE_CLEANUP_FREQ", 10*time.Minute),
	}

	return cfg
}
