package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	MongoURI               string
	AccommodationsDBHost   string
	AccommodationsDBPort   string
	MongoDBName            string
	MongoCollectionName    string
	AccommodationCacheHost string
	AccommodationCachePort string
	AccommodationCacheTTL  time.Duration
	MessageLedgerTTL       time.Duration

	RabbitMQUsername   string
	RabbitMQPassword   string
	RabbitMQHost       string
	RabbitMQPort       string
	RabbitMQAttempts   int
	RabbitMQRetryDelay time.Duration

	EventWorkers        int
	EventQueueSize      int
	EventHandlerTimeout time.Duration

	JaegerAddress  string
	LogFilePath    string
	SecretKey      string
	RBACModelPath  string
	RBACPolicyPath string
	AllowedOrigins []string

	parseErrors []error
}

// NewConfig reads the environment, after loading a .env file when one exists.
func NewConfig() *Config {
	_ = godotenv.Load()

	p := &envParser{}
	cfg := &Config{
		Port: getEnv("ACCOMMODATIONS_SERVICE_PORT", "8000"),

		MongoURI:               os.Getenv("MONGO_URI"),
		AccommodationsDBHost:   os.Getenv("ACCOMMODATIONS_DB_HOST"),
		AccommodationsDBPort:   getEnv("ACCOMMODATIONS_DB_PORT", "27017"),
		MongoDBName:            getEnv("MONGO_DB_NAME", "accommodations"),
		MongoCollectionName:    getEnv("MONGO_COLLECTION_NAME", "accommodations"),
		AccommodationCacheHost: os.Getenv("ACCOMMODATIONS_CACHE_HOST"),
		AccommodationCachePort: getEnv("ACCOMMODATIONS_CACHE_PORT", "6379"),
		AccommodationCacheTTL:  p.duration("ACCOMMODATIONS_CACHE_TTL", 30*time.Second),
		MessageLedgerTTL:       p.duration("MESSAGE_LEDGER_TTL", 24*time.Hour),

		RabbitMQUsername:   os.Getenv("RABBITMQ_USERNAME"),
		RabbitMQPassword:   os.Getenv("RABBITMQ_PASSWORD"),
		RabbitMQHost:       os.Getenv("RABBITMQ_HOST"),
		RabbitMQPort:       getEnv("RABBITMQ_PORT", "5672"),
		RabbitMQAttempts:   p.int("RABBITMQ_DIAL_ATTEMPTS", 10),
		RabbitMQRetryDelay: p.duration("RABBITMQ_RETRY_DELAY", 3*time.Second),

		EventWorkers:        p.int("EVENT_WORKERS", 1),
		EventQueueSize:      p.int("EVENT_QUEUE_SIZE", 64),
		EventHandlerTimeout: p.duration("EVENT_HANDLER_TIMEOUT", 30*time.Second),

		JaegerAddress:  os.Getenv("JAEGER_ADDRESS"),
		LogFilePath:    os.Getenv("LOG_FILE_PATH"),
		SecretKey:      os.Getenv("SECRET_KEY"),
		RBACModelPath:  getEnv("RBAC_MODEL_PATH", "./rbac_model.conf"),
		RBACPolicyPath: getEnv("RBAC_POLICY_PATH", "./policy.csv"),
		AllowedOrigins: splitCSV(getEnv("ALLOWED_ORIGIN", "*")),
	}
	cfg.parseErrors = p.errs
	return cfg
}

// MongoAddress prefers MONGO_URI and falls back to the host and port pair.
func (c *Config) MongoAddress() string {
	if c.MongoURI != "" {
		return c.MongoURI
	}
	return fmt.Sprintf("mongodb://%s:%s/", c.AccommodationsDBHost, c.AccommodationsDBPort)
}

func (c *Config) CacheEnabled() bool {
	return c.AccommodationCacheHost != ""
}

func (c *Config) Validate() error {
	if len(c.parseErrors) > 0 {
		return errors.Join(c.parseErrors...)
	}
	if c.MongoURI == "" && c.AccommodationsDBHost == "" {
		return errors.New("MONGO_URI or ACCOMMODATIONS_DB_HOST is required")
	}
	if c.RabbitMQHost == "" || c.RabbitMQUsername == "" || c.RabbitMQPassword == "" {
		return errors.New("RABBITMQ_HOST, RABBITMQ_USERNAME and RABBITMQ_PASSWORD are required")
	}
	if c.RabbitMQAttempts < 1 {
		return fmt.Errorf("RABBITMQ_DIAL_ATTEMPTS must be positive, got %d", c.RabbitMQAttempts)
	}
	if c.AccommodationCacheTTL <= 0 {
		return errors.New("ACCOMMODATIONS_CACHE_TTL must be a positive duration")
	}
	if c.MessageLedgerTTL <= 0 {
		return errors.New("MESSAGE_LEDGER_TTL must be a positive duration")
	}
	if c.EventWorkers < 1 {
		return fmt.Errorf("EVENT_WORKERS must be positive, got %d", c.EventWorkers)
	}
	if c.EventQueueSize < 1 {
		return fmt.Errorf("EVENT_QUEUE_SIZE must be positive, got %d", c.EventQueueSize)
	}
	if c.EventHandlerTimeout <= 0 {
		return errors.New("EVENT_HANDLER_TIMEOUT must be a positive duration")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

// envParser remembers values that are set but unparsable, so Validate can
// reject them instead of running with zero values.
type envParser struct {
	errs []error
}

func (p *envParser) int(key string, fallback int) int {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not an integer", key, val))
		return fallback
	}
	return n
}

func (p *envParser) duration(key string, fallback time.Duration) time.Duration {
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return fallback
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %q is not a duration", key, val))
		return fallback
	}
	return d
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}
