//go:build !NOORT || ALL

package clients

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/pipelines"
)

// HugotModel runs FinBERT in-process through an ONNX Runtime backed hugot
// text classification pipeline. The tokenizer truncates input to the model's
// maximum sequence length.
type HugotModel struct {
	session   *hugot.Session
	pipeline  *pipelines.TextClassificationPipeline
	modelName string
}

func NewHugotModel(cfg HugotConfig) (*HugotModel, error) {
	modelPath, err := ensureModel(cfg)
	if err != nil {
		return nil, err
	}

	patched, err := EnsureTruncation(modelPath, MAX_SEQUENCE_LENGTH)
	if err != nil {
		return nil, err
	}
	if patched {
		slog.Info("[HugotModel] Enabled tokenizer truncation",
			slog.Int("max_length", MAX_SEQUENCE_LENGTH))
	}

	session, err := hugot.NewORTSession()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize hugot session: %w", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath:    modelPath,
		Name:         PIPELINE_NAME,
		OnnxFilename: cfg.OnnxFilename,
	}
	// every class score, softmaxed, in output-index order
	config.Options = append(config.Options, pipelines.WithSoftmax(), pipelines.WithMultiLabel())

	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		_ = session.Destroy()
		return nil, fmt.Errorf("failed to initialize %s pipeline: %w", cfg.ModelName, err)
	}

	slog.Info("[HugotModel] Pipeline ready",
		slog.String("model", cfg.ModelName),
		slog.String("path", modelPath))

	return &HugotModel{
		session:   session,
		pipeline:  pipeline,
		modelName: cfg.ModelName,
	}, nil
}

func ensureModel(cfg HugotConfig) (string, error) {
	if err := os.MkdirAll(cfg.ModelDir, os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	modelPath := cfg.LocalModelPath()
	if _, err := os.Stat(modelPath); err == nil {
		slog.Info("[HugotModel] Using existing model", slog.String("path", modelPath))
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat model path: %w", err)
	}

	slog.Info("[HugotModel] Model not found, downloading...",
		slog.String("model", cfg.ModelName))
	start := time.Now()

	options := hugot.NewDownloadOptions()
	if cfg.AuthToken != "" {
		options.AuthToken = cfg.AuthToken
	}
	downloaded, err := hugot.DownloadModel(cfg.ModelName, cfg.ModelDir, options)
	if err != nil {
		return "", fmt.Errorf("failed to download %s: %w", cfg.ModelName, err)
	}

	slog.Info("[HugotModel] Model downloaded successfully",
		slog.String("path", downloaded),
		slog.Duration("elapsed", time.Since(start)))
	return downloaded, nil
}

func (m *HugotModel) Name() string {
	return "hugot:" + m.modelName
}

// Logits returns log probabilities. The pipeline only exposes softmaxed
// scores; their logs differ from the raw logits by a constant, which softmax
// cancels.
func (m *HugotModel) Logits(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	output, err := m.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, fmt.Errorf("pipeline run failed: %w", err)
	}
	if len(output.ClassificationOutputs) != 1 {
		return nil, fmt.Errorf("expected 1 classification output, got %d", len(output.ClassificationOutputs))
	}

	scores := output.ClassificationOutputs[0]
	logits := make([]float64, len(scores))
	for i, s := range scores {
		logits[i] = math.Log(float64(s.Score))
	}
	return logits, nil
}

func (m *HugotModel) Close() error {
	if m.session == nil {
		return nil
	}
	if err := m.session.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy hugot session: %w", err)
	}
	return nil
}
