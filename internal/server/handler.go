package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spacesedan/finsentiment/internal/models"
	"github.com/spacesedan/finsentiment/internal/monitoring"
	"github.com/spacesedan/finsentiment/internal/worker"
)

type Analyzer interface {
	Analyze(ctx context.Context, text string) (models.SentimentResult, error)
}

// SentimentHandler serves POST /analyze.
type SentimentHandler struct {
	analyzer Analyzer
	pool     *worker.Pool
	timeout  time.Duration
	metrics  *monitoring.Metrics
}

func NewSentimentHandler(analyzer Analyzer, pool *worker.Pool, timeout time.Duration, metrics *monitoring.Metrics) *SentimentHandler {
	return &SentimentHandler{
		analyzer: analyzer,
		pool:     pool,
		timeout:  timeout,
		metrics:  metrics,
	}
}

// Analyze handles POST /analyze
func (h *SentimentHandler) Analyze(c *gin.Context) {
	text, err := parseText(c.Request.Body)
	if err != nil {
		slog.Debug("[SentimentHandler] Rejected request body",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.String("error", err.Error()))
		HandleError(c, err)
		return
	}

	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := worker.Run(ctx, h.pool, func(ctx context.Context) (models.SentimentResult, error) {
		return h.analyzer.Analyze(ctx, text)
	})
	if err != nil {
		slog.Error("[SentimentHandler] Analysis failed",
			slog.String("request_id", c.GetString(requestIDKey)),
			slog.Int("text_length", len(text)),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()))
		HandleError(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveInference(time.Since(start), result.Sentiment)
	}
	c.JSON(http.StatusOK, result)
}

// parseText reads the text field of a JSON object body. An empty body, a
// missing or null field and a non-string field all yield "".
func parseText(body io.Reader) (string, error) {
	if body == nil {
		return "", nil
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return "", nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	var req models.SentimentRequest
	if rawText, ok := fields["text"]; ok {
		if err := json.Unmarshal(rawText, &req.Text); err != nil {
			req.Text = ""
		}
	}
	return req.Text, nil
}
