package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/spacesedan/finsentiment/internal/models"
)

// Store is a byte-oriented key value store with expiry.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
	Close()
}

type Analyzer interface {
	Analyze(ctx context.Context, text string) (models.SentimentResult, error)
	ModelName() string
}

// Recorder receives cache lookup outcomes.
type Recorder interface {
	CacheLookup(hit bool)
}

// CachingAnalyzer memoizes results of a deterministic Analyzer. Store failures
// are logged and fall through to the wrapped analyzer.
type CachingAnalyzer struct {
	next     Analyzer
	store    Store
	ttl      time.Duration
	recorder Recorder
}

func NewCachingAnalyzer(next Analyzer, store Store, ttl time.Duration, recorder Recorder) *CachingAnalyzer {
	return &CachingAnalyzer{next: next, store: store, ttl: ttl, recorder: recorder}
}

func (c *CachingAnalyzer) ModelName() string {
	return c.next.ModelName()
}

func (c *CachingAnalyzer) Analyze(ctx context.Context, text string) (models.SentimentResult, error) {
	key := Key(c.next.ModelName(), text)

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		slog.Warn("[Cache] Lookup failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if ok {
		var cached models.SentimentResult
		if err := json.Unmarshal(raw, &cached); err == nil {
			c.record(true)
			return cached, nil
		}
		slog.Warn("[Cache] Dropping undecodable entry", slog.String("key", key))
	}
	c.record(false)

	result, err := c.next.Analyze(ctx, text)
	if err != nil {
		return result, err
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return result, nil
	}
	if err := c.store.Set(ctx, key, raw, c.ttl); err != nil {
		slog.Warn("[Cache] Store failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return result, nil
}

func (c *CachingAnalyzer) record(hit bool) {
	if c.recorder != nil {
		c.recorder.CacheLookup(hit)
	}
}

// Key namespaces entries by model so switching models never serves stale results.
func Key(modelName, text string) string {
	sum := sha256.Sum256([]byte(text))
	return "sentiment:" + modelName + ":" + hex.EncodeToString(sum[:])
}
