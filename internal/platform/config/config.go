package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"onboarding/pkg/platform/lists"
)

// Config is the full runtime configuration, read from the environment.
type Config struct {
	Server       Server
	Log          Log
	Redis        RedisConfig
	Postgres     PostgresConfig
	Cloudinary   CloudinaryConfig
	Providers    ProvidersConfig
	Screening    ScreeningConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	Verification VerificationConfig
}

type Server struct {
	Addr           string        `env:"ONBOARDING_ADDR" envDefault:":8080"`
	JWTSigningKey  string        `env:"JWT_SIGNING_KEY"`
	JWTIssuer      string        `env:"JWT_ISSUER" envDefault:"onboarding"`
	AllowedOrigins []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`
	ReadTimeout    time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`
	WriteTimeout   time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"90s"`
}

type Log struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"`
}

// RedisConfig selects the Redis session store. Empty URL keeps sessions in memory.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// PostgresConfig selects the Postgres customer repository. Empty DSN keeps customers in memory.
type PostgresConfig struct {
	DSN          string        `env:"DATABASE_URL"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	Migrate      bool          `env:"DATABASE_MIGRATE" envDefault:"true"`
}

// CloudinaryConfig selects the Cloudinary object store. Empty URL keeps images in memory.
type CloudinaryConfig struct {
	URL    string `env:"CLOUDINARY_URL"`
	Folder string `env:"CLOUDINARY_FOLDER" envDefault:"onboarding"`
}

type ProvidersConfig struct {
	ExtractionURL    string        `env:"EXTRACTION_PROVIDER_URL"`
	FaceMatchURL     string        `env:"FACE_MATCH_PROVIDER_URL"`
	APIKey           string        `env:"PROVIDER_API_KEY"`
	Timeout          time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"30s"`
	BreakerFailures  int           `env:"PROVIDER_BREAKER_FAILURES" envDefault:"5"`
	BreakerSuccesses int           `env:"PROVIDER_BREAKER_SUCCESSES" envDefault:"2"`
	BreakerCooldown  time.Duration `env:"PROVIDER_BREAKER_COOLDOWN" envDefault:"30s"`
}

// KafkaConfig enables audit publishing to Kafka when brokers are set.
// ScreeningConfig points at the AML and credit providers used after
// registration. Screening is off unless both URLs are set.
type ScreeningConfig struct {
	AMLURL    string `env:"SCREENING_AML_URL"`
	CreditURL string `env:"SCREENING_CREDIT_URL"`
	APIKey    string `env:"SCREENING_API_KEY"`
	QueueSize int    `env:"SCREENING_QUEUE_SIZE" envDefault:"256"`
}

// Enabled reports whether both screening providers are configured.
func (c ScreeningConfig) Enabled() bool {
	return c.AMLURL != "" && c.CreditURL != ""
}

type KafkaConfig struct {
	Brokers     []string `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic  string   `env:"KAFKA_AUDIT_TOPIC" envDefault:"onboarding.audit"`
	Partitions  int32    `env:"KAFKA_AUDIT_PARTITIONS" envDefault:"3"`
	Replication int16    `env:"KAFKA_AUDIT_REPLICATION" envDefault:"1"`
}

// RateLimitConfig bounds requests per client and window. Zero disables a class.
type RateLimitConfig struct {
	Disabled       bool          `env:"RATELIMIT_DISABLED"`
	UploadRequests int           `env:"RATELIMIT_UPLOAD_REQUESTS" envDefault:"20"`
	ReadRequests   int           `env:"RATELIMIT_READ_REQUESTS" envDefault:"120"`
	Window         time.Duration `env:"RATELIMIT_WINDOW" envDefault:"1m"`
}

type VerificationConfig struct {
	SimilarityThreshold     float64       `env:"SIMILARITY_THRESHOLD" envDefault:"90"`
	MinExtractionConfidence float64       `env:"MIN_EXTRACTION_CONFIDENCE" envDefault:"0.7"`
	MaxDocuments            int           `env:"MAX_DOCUMENTS" envDefault:"2"`
	MaxImageBytes           int64         `env:"MAX_IMAGE_BYTES" envDefault:"10485760"`
	MaxSelfieAttempts       int           `env:"MAX_SELFIE_ATTEMPTS" envDefault:"5"`
	SessionTTL              time.Duration `env:"SESSION_TTL" envDefault:"30m"`
	ExternalCallTimeout     time.Duration `env:"EXTERNAL_CALL_TIMEOUT" envDefault:"30s"`
	MaxRetries              uint64        `env:"EXTERNAL_MAX_RETRIES" envDefault:"2"`
	RetryBaseBackoff        time.Duration `env:"EXTERNAL_RETRY_BACKOFF" envDefault:"100ms"`
	FinalizeLease           time.Duration `env:"FINALIZE_LEASE" envDefault:"2m"`
	SweepInterval           time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Server.AllowedOrigins = lists.Clean(cfg.Server.AllowedOrigins)
	cfg.Kafka.Brokers = lists.Clean(cfg.Kafka.Brokers)
	if cfg.Verification.MaxDocuments < 1 {
		return nil, fmt.Errorf("MAX_DOCUMENTS must be at least 1")
	}
	if cfg.Verification.SimilarityThreshold < 0 || cfg.Verification.SimilarityThreshold > 100 {
		return nil, fmt.Errorf("SIMILARITY_THRESHOLD must be within [0,100]")
	}
	if cfg.Verification.MinExtractionConfidence < 0 || cfg.Verification.MinExtractionConfidence > 1 {
		return nil, fmt.Errorf("MIN_EXTRACTION_CONFIDENCE must be within [0,1]")
	}
	if cfg.Verification.FinalizeLease <= cfg.Verification.ExternalCallTimeout {
		return nil, fmt.Errorf("FINALIZE_LEASE must exceed EXTERNAL_CALL_TIMEOUT")
	}
	if cfg.Screening.QueueSize < 1 {
		return nil, fmt.Errorf("SCREENING_QUEUE_SIZE must be at least 1")
	}
	if cfg.Verification.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return &cfg, nil
}
