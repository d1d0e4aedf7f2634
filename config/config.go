package config

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BACKEND_LOCAL   = "local"
	BACKEND_REMOTE  = "remote"
	BACKEND_LEXICON = "lexicon"

	CACHE_NONE   = "none"
	CACHE_MEMORY = "memory"
	CACHE_VALKEY = "valkey"

	DEFAULT_MODEL_NAME  = "ProsusAI/finbert"
	DEFAULT_HF_ENDPOINT = "https://router.huggingface.co/hf-inference/models/"
)

type ModelSettings struct {
	Backend      string
	Name         string
	Dir          string
	OnnxFilename string
	APIToken     string
	Endpoint     string
	// LabelOrder is the model's id2label names by output position. The remote
	// backend uses it to place API label names; empty maps names directly.
	LabelOrder []string
}

type CacheSettings struct {
	Backend        string
	TTL            time.Duration
	ValkeyAddress  string
	ValkeyPassword string
	ValkeyTLS      bool
}

type Settings struct {
	Env                 string
	Port                int
	LogLevel            string
	Model               ModelSettings
	Workers             int
	QueueSize           int
	InferenceTimeout    time.Duration
	HealthcheckInterval time.Duration
	Cache               CacheSettings
}

// Addr is the listen address for the HTTP server.
func (s *Settings) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

type option struct {
	key   string
	env   string
	flag  string
	value any
	usage string
}

func options() []option {
	return []option{
		{"app_env", "APP_ENV", "env", "dev", "environment name, selects config/envs/.env.<env>"},
		{"port", "PORT", "port", 8000, "HTTP listen port"},
		{"log_level", "LOG_LEVEL", "log-level", "info", "debug, info, warn or error"},
		{"model_backend", "MODEL_BACKEND", "model-backend", BACKEND_LOCAL, "local, remote or lexicon"},
		{"model_name", "MODEL_NAME", "model", DEFAULT_MODEL_NAME, "Hugging Face model identifier"},
		{"model_dir", "MODEL_DIR", "model-dir", "./models", "directory downloaded models are stored in"},
		{"onnx_filename", "ONNX_FILENAME", "onnx-filename", "", "onnx file inside the model directory when it holds more than one"},
		{"hf_api_token", "HF_API_TOKEN", "hf-token", "", "Hugging Face token for downloads and the inference API"},
		{"model_label_order", "MODEL_LABEL_ORDER", "label-order", "", "comma separated id2label names of the model, e.g. positive,negative,neutral"},
		{"hf_inference_endpoint", "HF_INFERENCE_ENDPOINT", "hf-endpoint", DEFAULT_HF_ENDPOINT, "Hugging Face inference API base URL"},
		{"workers", "WORKERS", "workers", runtime.NumCPU(), "number of inference workers"},
		{"queue_size", "QUEUE_SIZE", "queue-size", 64, "pending inference jobs buffered before submitters block"},
		{"inference_timeout", "INFERENCE_TIMEOUT", "inference-timeout", time.Duration(0), "per request inference timeout, 0 disables it"},
		{"healthcheck_interval", "HEALTHCHECK_INTERVAL", "healthcheck-interval", 15 * time.Second, "model health probe interval"},
		{"cache_backend", "CACHE_BACKEND", "cache", CACHE_NONE, "none, memory or valkey"},
		{"cache_ttl", "CACHE_TTL", "cache-ttl", time.Hour, "lifetime of cached results"},
		{"valkey_init_address", "VALKEY_INIT_ADDRESS", "valkey-address", "", "valkey address host:port"},
		{"valkey_password", "VALKEY_PASSWORD", "valkey-password", "", "valkey password"},
		{"valkey_tls", "VALKEY_TLS", "valkey-tls", false, "connect to valkey over TLS"},
	}
}

// Load resolves settings from flags, then environment variables, then defaults.
func Load(args []string) (*Settings, error) {
	fs := pflag.NewFlagSet("analyzer", pflag.ContinueOnError)
	v := viper.New()

	for _, o := range options() {
		switch d := o.value.(type) {
		case string:
			fs.String(o.flag, d, o.usage)
		case int:
			fs.Int(o.flag, d, o.usage)
		case bool:
			fs.Bool(o.flag, d, o.usage)
		case time.Duration:
			fs.Duration(o.flag, d, o.usage)
		default:
			return nil, fmt.Errorf("unsupported option type %T for %s", o.value, o.key)
		}
		v.SetDefault(o.key, o.value)
		if err := v.BindEnv(o.key, o.env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", o.env, err)
		}
		if err := v.BindPFlag(o.key, fs.Lookup(o.flag)); err != nil {
			return nil, fmt.Errorf("failed to bind --%s: %w", o.flag, err)
		}
	}

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("failed to parse flags: %w", err)
	}

	s := &Settings{
		Env:      v.GetString("app_env"),
		Port:     v.GetInt("port"),
		LogLevel: v.GetString("log_level"),
		Model: ModelSettings{
			Backend:      v.GetString("model_backend"),
			Name:         v.GetString("model_name"),
			Dir:          v.GetString("model_dir"),
			OnnxFilename: v.GetString("onnx_filename"),
			APIToken:     v.GetString("hf_api_token"),
			Endpoint:     v.GetString("hf_inference_endpoint"),
			LabelOrder:   splitList(v.GetString("model_label_order")),
		},
		Workers:             v.GetInt("workers"),
		QueueSize:           v.GetInt("queue_size"),
		InferenceTimeout:    v.GetDuration("inference_timeout"),
		HealthcheckInterval: v.GetDuration("healthcheck_interval"),
		Cache: CacheSettings{
			Backend:        v.GetString("cache_backend"),
			TTL:            v.GetDuration("cache_ttl"),
			ValkeyAddress:  v.GetString("valkey_init_address"),
			ValkeyPassword: v.GetString("valkey_password"),
			ValkeyTLS:      v.GetBool("valkey_tls"),
		},
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("invalid port %d", s.Port)
	}
	switch s.Model.Backend {
	case BACKEND_LOCAL, BACKEND_REMOTE, BACKEND_LEXICON:
	default:
		return fmt.Errorf("invalid model backend %q", s.Model.Backend)
	}
	if s.Model.Backend != BACKEND_LEXICON && s.Model.Name == "" {
		return fmt.Errorf("model name is required for the %s backend", s.Model.Backend)
	}
	if n := len(s.Model.LabelOrder); n != 0 && n != 3 {
		return fmt.Errorf("label order needs 3 names, got %d", n)
	}
	if s.Workers < 1 {
		return fmt.Errorf("workers must be positive, got %d", s.Workers)
	}
	if s.QueueSize < 0 {
		return fmt.Errorf("queue size must not be negative, got %d", s.QueueSize)
	}
	if s.InferenceTimeout < 0 {
		return fmt.Errorf("inference timeout must not be negative")
	}
	if s.HealthcheckInterval <= 0 {
		return fmt.Errorf("healthcheck interval must be positive")
	}
	switch s.Cache.Backend {
	case CACHE_NONE, CACHE_MEMORY:
	case CACHE_VALKEY:
		if s.Cache.ValkeyAddress == "" {
			return fmt.Errorf("VALKEY_INIT_ADDRESS is required for the valkey cache")
		}
	default:
		return fmt.Errorf("invalid cache backend %q", s.Cache.Backend)
	}
	// valkey expiry has second resolution and go-cache never evicts a non-positive TTL
	if s.Cache.Backend != CACHE_NONE && s.Cache.TTL < time.Second {
		return fmt.Errorf("cache ttl must be at least 1s, got %s", s.Cache.TTL)
	}
	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// AppEnv reads APP_ENV before flags are parsed so the matching env file can be loaded first.
func AppEnv() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	return env
}
