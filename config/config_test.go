package config

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("loads default configuration", func(t *testing.T) {
		cfg, err := Load(nil)

		require.NoError(t, err)
		assert.Equal(t, 8000, cfg.Port)
		assert.Equal(t, ":8000", cfg.Addr())
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, BACKEND_LOCAL, cfg.Model.Backend)
		assert.Equal(t, "ProsusAI/finbert", cfg.Model.Name)
		assert.Equal(t, runtime.NumCPU(), cfg.Workers)
		assert.Equal(t, 64, cfg.QueueSize)
		assert.Equal(t, time.Duration(0), cfg.InferenceTimeout)
		assert.Equal(t, 15*time.Second, cfg.HealthcheckInterval)
		assert.Equal(t, CACHE_NONE, cfg.Cache.Backend)
		assert.Equal(t, time.Hour, cfg.Cache.TTL)
	})

	t.Run("reads from environment variables", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("MODEL_BACKEND", "lexicon")
		t.Setenv("INFERENCE_TIMEOUT", "2s")
		t.Setenv("CACHE_BACKEND", "valkey")
		t.Setenv("VALKEY_INIT_ADDRESS", "localhost:6379")
		t.Setenv("VALKEY_TLS", "true")

		cfg, err := Load(nil)

		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, BACKEND_LEXICON, cfg.Model.Backend)
		assert.Equal(t, 2*time.Second, cfg.InferenceTimeout)
		assert.Equal(t, CACHE_VALKEY, cfg.Cache.Backend)
		assert.Equal(t, "localhost:6379", cfg.Cache.ValkeyAddress)
		assert.True(t, cfg.Cache.ValkeyTLS)
	})

	t.Run("flags take precedence over environment", func(t *testing.T) {
		t.Setenv("PORT", "9090")

		cfg, err := Load([]string{"--port", "7000", "--workers", "3", "--model-backend", "remote"})

		require.NoError(t, err)
		assert.Equal(t, 7000, cfg.Port)
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, BACKEND_REMOTE, cfg.Model.Backend)
	})

	t.Run("parses the label order", func(t *testing.T) {
		cfg, err := Load([]string{"--label-order", " positive, negative ,neutral"})

		require.NoError(t, err)
		assert.Equal(t, []string{"positive", "negative", "neutral"}, cfg.Model.LabelOrder)
	})

	t.Run("rejects a cache ttl that never expires", func(t *testing.T) {
		t.Setenv("CACHE_BACKEND", "memory")
		t.Setenv("CACHE_TTL", "0s")

		_, err := Load(nil)
		assert.Error(t, err)
	})

	t.Run("rejects unknown flags", func(t *testing.T) {
		_, err := Load([]string{"--nope"})
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Settings {
		cfg, err := Load(nil)
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"port out of range", func(s *Settings) { s.Port = 70000 }},
		{"unknown backend", func(s *Settings) { s.Model.Backend = "gpt" }},
		{"missing model name", func(s *Settings) { s.Model.Name = "" }},
		{"short label order", func(s *Settings) { s.Model.LabelOrder = []string{"positive", "negative"} }},
		{"zero workers", func(s *Settings) { s.Workers = 0 }},
		{"negative queue", func(s *Settings) { s.QueueSize = -1 }},
		{"negative timeout", func(s *Settings) { s.InferenceTimeout = -time.Second }},
		{"zero healthcheck interval", func(s *Settings) { s.HealthcheckInterval = 0 }},
		{"unknown cache", func(s *Settings) { s.Cache.Backend = "memcached" }},
		{"valkey without address", func(s *Settings) { s.Cache.Backend = CACHE_VALKEY }},
		{"zero cache ttl", func(s *Settings) { s.Cache.Backend = CACHE_MEMORY; s.Cache.TTL = 0 }},
		{"negative cache ttl", func(s *Settings) { s.Cache.Backend = CACHE_MEMORY; s.Cache.TTL = -time.Hour }},
		{"sub-second valkey ttl", func(s *Settings) {
			s.Cache.Backend = CACHE_VALKEY
			s.Cache.ValkeyAddress = "localhost:6379"
			s.Cache.TTL = 500 * time.Millisecond
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	t.Run("lexicon backend does not need a model name", func(t *testing.T) {
		cfg := valid()
		cfg.Model.Backend = BACKEND_LEXICON
		cfg.Model.Name = ""
		assert.NoError(t, cfg.Validate())
	})

	t.Run("ttl is ignored without a cache", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Backend = CACHE_NONE
		cfg.Cache.TTL = 0
		assert.NoError(t, cfg.Validate())
	})
}
