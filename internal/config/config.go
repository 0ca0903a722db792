package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	KMS           KMSConfig
	Auth          AuthConfig
	Bucketing     BucketingConfig
}

type ServerConfig struct {
	Port         int
	TLSPort      int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	EnableTLS    bool
	AutoCert     bool
	AutoCertDir  string
	Domain       string
	Email        string
	CertFile     string
	KeyFile      string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
	Enabled  bool
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

type ElasticsearchConfig struct {
	URL      string
	Username string
	Password string
	Index    string
	Enabled  bool
}

type ClickhouseConfig struct {
	URL      string
	Username string
	Password string
	Database string
	Table    string
	Enabled  bool
}

type KMSConfig struct {
	Enabled         bool
	Region          string
	SealedMasterKey string // base64 ciphertext blob, decrypted at startup
}

// AuthConfig carries every tunable of the admin authentication core.
type AuthConfig struct {
	// MasterKey is the shared admin secret in development. In production it
	// is unsealed from KMS.SealedMasterKey instead and this field stays empty.
	MasterKey  string
	MasterSalt string

	// MasterVerifier selects the master-factor strategy: "derived" or "argon2".
	MasterVerifier   string
	MasterArgon2Hash string

	Issuer string

	SessionTTL               time.Duration
	EnforceOriginConsistency bool

	TOTPSkew uint

	MaxFailedAttempts int
	AttemptWindow     time.Duration
	BlockDuration     time.Duration

	EmergencyTTL  time.Duration
	OperatorToken string
}

type BucketingConfig struct {
	EventBuckets int
}

var (
	globalConfig *Config
	once         sync.Once
)

// LoadConfig reads .env (when present) and assembles the configuration from
// the environment. Safe to call multiple times.
func LoadConfig() *Config {
	once.Do(func() {
		_ = godotenv.Load()
		globalConfig = &Config{
			Environment: GetEnv("APP_ENV", "development"),
			Server: ServerConfig{
				Port:         getEnvInt("SERVER_PORT", 8080),
				TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
				EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     getEnvBool("SERVER_AUTO_CERT", false),
				AutoCertDir:  GetEnv("SERVER_AUTO_CERT_DIR", "/var/cache/autocert"),
				Domain:       GetEnv("SERVER_DOMAIN", ""),
				Email:        GetEnv("SERVER_ACME_EMAIL", ""),
				CertFile:     GetEnv("SERVER_CERT_FILE", ""),
				KeyFile:      GetEnv("SERVER_KEY_FILE", ""),
			},
			Logging: LoggingConfig{
				Level:  GetEnv("LOG_LEVEL", "info"),
				Format: GetEnv("LOG_FORMAT", "json"),
			},
			Redis: RedisConfig{
				URL:      GetEnv("REDIS_URL", "redis://localhost:6379"),
				Password: GetEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
				PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
				Enabled:  getEnvBool("REDIS_ENABLED", true),
			},
			Kafka: KafkaConfig{
				Brokers: splitList(GetEnv("KAFKA_BROKERS", "localhost:9092")),
				Topic:   GetEnv("KAFKA_SECURITY_EVENTS_TOPIC", "admin-security-events"),
				Enabled: getEnvBool("KAFKA_ENABLED", false),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:      GetEnv("ELASTICSEARCH_URL", "http://localhost:9200"),
				Username: GetEnv("ELASTICSEARCH_USERNAME", ""),
				Password: GetEnv("ELASTICSEARCH_PASSWORD", ""),
				Index:    GetEnv("ELASTICSEARCH_EVENTS_INDEX", "admin-security-events"),
				Enabled:  getEnvBool("ELASTICSEARCH_ENABLED", false),
			},
			Clickhouse: ClickhouseConfig{
				URL:      GetEnv("CLICKHOUSE_URL", "http://localhost:8123"),
				Username: GetEnv("CLICKHOUSE_USERNAME", "default"),
				Password: GetEnv("CLICKHOUSE_PASSWORD", ""),
				Database: GetEnv("CLICKHOUSE_DATABASE", "admin_audit"),
				Table:    GetEnv("CLICKHOUSE_EVENTS_TABLE", "admin_security_events"),
				Enabled:  getEnvBool("CLICKHOUSE_ENABLED", false),
			},
			KMS: KMSConfig{
				Enabled:         getEnvBool("KMS_ENABLED", false),
				Region:          GetEnv("AWS_REGION", "ap-south-1"),
				SealedMasterKey: GetEnv("KMS_SEALED_MASTER_KEY", ""),
			},
			Auth: AuthConfig{
				MasterKey:                GetEnv("AUTH_MASTER_KEY", ""),
				MasterSalt:               GetEnv("AUTH_MASTER_SALT", ""),
				MasterVerifier:           GetEnv("AUTH_MASTER_VERIFIER", "derived"),
				MasterArgon2Hash:         GetEnv("AUTH_MASTER_ARGON2_HASH", ""),
				Issuer:                   GetEnv("AUTH_TOTP_ISSUER", "ExamAdmin"),
				SessionTTL:               getEnvDuration("AUTH_SESSION_TTL", 2*time.Hour),
				EnforceOriginConsistency: getEnvBool("AUTH_ENFORCE_ORIGIN", false),
				TOTPSkew:                 uint(getEnvInt("AUTH_TOTP_SKEW", 1)),
				MaxFailedAttempts:        getEnvInt("AUTH_MAX_FAILED_ATTEMPTS", 3),
				AttemptWindow:            getEnvDuration("AUTH_ATTEMPT_WINDOW", 15*time.Minute),
				BlockDuration:            getEnvDuration("AUTH_BLOCK_DURATION", 15*time.Minute),
				EmergencyTTL:             getEnvDuration("AUTH_EMERGENCY_TTL", 15*time.Minute),
				OperatorToken:            GetEnv("AUTH_OPERATOR_TOKEN", ""),
			},
			Bucketing: BucketingConfig{
				EventBuckets: getEnvInt("EVENT_BUCKETS", 64),
			},
		}
	})
	return globalConfig
}

// Get returns the loaded configuration, loading it on first use.
func Get() *Config {
	if globalConfig == nil {
		return LoadConfig()
	}
	return globalConfig
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return !c.IsProduction()
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// Validate rejects configurations that cannot authenticate anyone.
func (c *Config) Validate() error {
	if c.Auth.MasterSalt == "" {
		return fmt.Errorf("AUTH_MASTER_SALT is required")
	}
	if c.Auth.MasterKey == "" && !c.KMS.Enabled {
		return fmt.Errorf("AUTH_MASTER_KEY is required when KMS is disabled")
	}
	switch c.Auth.MasterVerifier {
	case "derived":
	case "argon2":
		if c.Auth.MasterArgon2Hash == "" {
			return fmt.Errorf("AUTH_MASTER_ARGON2_HASH is required for the argon2 verifier")
		}
	default:
		return fmt.Errorf("unknown master verifier: %s", c.Auth.MasterVerifier)
	}
	if c.IsProduction() && c.Auth.OperatorToken == "" {
		return fmt.Errorf("AUTH_OPERATOR_TOKEN is required in production")
	}
	return nil
}

// GetEnv returns the environment value for key or a default.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
