package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("MONGO_URI", "mongodb://mongo:27017/")
	t.Setenv("RABBITMQ_HOST", "rabbit")
	t.Setenv("RABBITMQ_USERNAME", "guest")
	t.Setenv("RABBITMQ_PASSWORD", "guest")
}

func TestNewConfig_Defaults(t *testing.T) {
	setRequired(t)

	cfg := NewConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mongodb://mongo:27017/", cfg.MongoAddress())
	assert.Equal(t, "accommodations", cfg.MongoDBName)
	assert.Equal(t, "5672", cfg.RabbitMQPort)
	assert.Equal(t, 1, cfg.EventWorkers)
	assert.Equal(t, 64, cfg.EventQueueSize)
	assert.Equal(t, 30*time.Second, cfg.EventHandlerTimeout)
	assert.False(t, cfg.CacheEnabled())
	assert.Equal(t, 30*time.Second, cfg.AccommodationCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.MessageLedgerTTL)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestNewConfig_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MONGO_URI", "")
	t.Setenv("ACCOMMODATIONS_DB_HOST", "accommodations_db")
	t.Setenv("ACCOMMODATIONS_DB_PORT", "27018")
	t.Setenv("ACCOMMODATIONS_CACHE_HOST", "accommodations_cache")
	t.Setenv("EVENT_WORKERS", "4")
	t.Setenv("EVENT_HANDLER_TIMEOUT", "5s")

	cfg := NewConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "mongodb://accommodations_db:27018/", cfg.MongoAddress())
	assert.True(t, cfg.CacheEnabled())
	assert.Equal(t, 4, cfg.EventWorkers)
	assert.Equal(t, 5*time.Second, cfg.EventHandlerTimeout)
}

func TestNewConfig_AllowedOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("ALLOWED_ORIGIN", "http://localhost:4200, https://airbnb.example.com")

	cfg := NewConfig()

	assert.Equal(t, []string{"http://localhost:4200", "https://airbnb.example.com"}, cfg.AllowedOrigins)
}

func TestValidate_NamesUnparsableValues(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCOMMODATIONS_CACHE_TTL", "thirty")
	t.Setenv("MESSAGE_LEDGER_TTL", "1day")

	err := NewConfig().Validate()

	require.Error(t, err)
	assert.ErrorContains(t, err, "ACCOMMODATIONS_CACHE_TTL")
	assert.ErrorContains(t, err, "MESSAGE_LEDGER_TTL")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(t *testing.T){
		"missing mongo": func(t *testing.T) {
			t.Setenv("MONGO_URI", "")
			t.Setenv("ACCOMMODATIONS_DB_HOST", "")
		},
		"missing broker": func(t *testing.T) {
			t.Setenv("RABBITMQ_HOST", "")
		},
		"bad worker count": func(t *testing.T) {
			t.Setenv("EVENT_WORKERS", "many")
		},
		"bad timeout": func(t *testing.T) {
			t.Setenv("EVENT_HANDLER_TIMEOUT", "soon")
		},
		"missing broker password": func(t *testing.T) {
			t.Setenv("RABBITMQ_PASSWORD", "")
		},
		"unparsable cache ttl": func(t *testing.T) {
			t.Setenv("ACCOMMODATIONS_CACHE_TTL", "thirty")
		},
		"unparsable ledger ttl": func(t *testing.T) {
			t.Setenv("MESSAGE_LEDGER_TTL", "1day")
		},
		"zero ledger ttl": func(t *testing.T) {
			t.Setenv("MESSAGE_LEDGER_TTL", "0s")
		},
		"negative cache ttl": func(t *testing.T) {
			t.Setenv("ACCOMMODATIONS_CACHE_TTL", "-1m")
		},
		"zero dial attempts": func(t *testing.T) {
			t.Setenv("RABBITMQ_DIAL_ATTEMPTS", "0")
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			setRequired(t)
			mutate(t)

			assert.Error(t, NewConfig().Validate())
		})
	}
}
