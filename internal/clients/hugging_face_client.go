package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/spacesedan/finsentiment/internal/models"
)

type HuggingFaceConfig struct {
	Endpoint   string
	ModelName  string
	Token      string
	Timeout    time.Duration
	// LabelOrder is the model's id2label names by output position
	LabelOrder []string
}

// HuggingFaceModel runs the model on the hosted Hugging Face inference API
// instead of loading weights locally.
type HuggingFaceModel struct {
	Client     *http.Client
	url        string
	modelName  string
	token      string
	labelOrder []string
	newBackOff func() backoff.BackOff
}

func NewHuggingFaceModel(cfg HuggingFaceConfig) *HuggingFaceModel {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	slog.Info("[HuggingFaceClient] Initializing Client",
		slog.String("model", cfg.ModelName),
		slog.Duration("timeout", timeout))

	return &HuggingFaceModel{
		Client:     &http.Client{Timeout: timeout},
		url:        strings.TrimSuffix(cfg.Endpoint, "/") + "/" + cfg.ModelName,
		modelName:  cfg.ModelName,
		token:      cfg.Token,
		labelOrder: cfg.LabelOrder,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = INITIAL_BACKOFF
			b.MaxInterval = MAX_BACKOFF
			return backoff.WithMaxRetries(b, MAX_RETRIES)
		},
	}
}

func (h *HuggingFaceModel) Name() string {
	return "hf-api:" + h.modelName
}

// Logits returns log probabilities reordered from the API's label names into
// output-index order. Softmax of log probabilities gives back the probabilities.
// With a label order the names are placed by their position in it, matching
// the local backend's index mapping for the same model.
func (h *HuggingFaceModel) Logits(ctx context.Context, text string) ([]float64, error) {
	scores, err := h.classify(ctx, ClipRunes(text, HF_MAX_INPUT_CHARS))
	if err != nil {
		return nil, err
	}

	logits := make([]float64, len(models.Labels))
	seen := make([]bool, len(models.Labels))
	for _, s := range scores {
		i, err := h.labelIndex(s.Label)
		if err != nil {
			return nil, err
		}
		logits[i] = math.Log(s.Score)
		seen[i] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("response is missing label %s", models.Labels[i])
		}
	}
	return logits, nil
}

func (h *HuggingFaceModel) labelIndex(name string) (int, error) {
	if len(h.labelOrder) > 0 {
		for i, candidate := range h.labelOrder {
			if i < len(models.Labels) && strings.EqualFold(candidate, name) {
				return i, nil
			}
		}
		return -1, fmt.Errorf("unexpected label %q", name)
	}

	label, ok := models.ParseLabel(name)
	if !ok {
		return -1, fmt.Errorf("unexpected label %q", name)
	}
	return label.Index(), nil
}

func (h *HuggingFaceModel) classify(ctx context.Context, text string) ([]models.HFLabelScore, error) {
	var result []models.HFLabelScore
	start := time.Now()

	operation := func() error {
		var err error
		result, err = h.classifyOnce(ctx, text)
		if err != nil {
			slog.Warn("[HuggingFaceClient] Request failed",
				slog.String("error", err.Error()))
		}
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(h.newBackOff(), ctx)); err != nil {
		slog.Error("[HuggingFaceClient] Sentiment Analysis request failed",
			slog.Duration("elapsed", time.Since(start)))
		return nil, err
	}

	slog.Debug("[HuggingFaceClient] Sentiment Analysis request successful",
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

// classifyOnce marks errors that retrying cannot fix as permanent.
func (h *HuggingFaceModel) classifyOnce(ctx context.Context, text string) ([]models.HFLabelScore, error) {
	body, err := json.Marshal(models.HFInferenceRequest{Inputs: text})
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to marshal input: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("status code %d: %s", resp.StatusCode, apiError(respBody))
		// 503 means the model is still loading on the hosted side
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	scores, err := decodeScores(respBody)
	if err != nil {
		slog.Error("[HuggingFaceClient] Failed to unmarshal response",
			slog.String("error", err.Error()),
			getPreview(respBody),
			slog.Int("raw_response_length", len(respBody)))
		return nil, backoff.Permanent(err)
	}
	return scores, nil
}

// decodeScores accepts both the batched [[...]] and the flat [...] response shapes.
func decodeScores(body []byte) ([]models.HFLabelScore, error) {
	var batched [][]models.HFLabelScore
	if err := json.Unmarshal(body, &batched); err == nil {
		if len(batched) != 1 {
			return nil, fmt.Errorf("expected 1 result, got %d", len(batched))
		}
		return batched[0], nil
	}

	var flat []models.HFLabelScore
	if err := json.Unmarshal(body, &flat); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return flat, nil
}

func apiError(body []byte) string {
	var e models.HFErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return getPreview(body).Value.String()
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return slog.String("raw_response", raw)
}

// ClipRunes cuts s to at most n runes.
func ClipRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
