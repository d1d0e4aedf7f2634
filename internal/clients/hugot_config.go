package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	PIPELINE_NAME = "finbertSentimentPipeline"

	// BERT position embeddings stop here, special tokens included
	MAX_SEQUENCE_LENGTH = 512

	TOKENIZER_FILENAME = "tokenizer.json"
)

var ErrNoRuntime = errors.New("built with NOORT, the local ONNX backend is unavailable")

type HugotConfig struct {
	ModelName    string
	ModelDir     string
	OnnxFilename string
	AuthToken    string
}

// LocalModelPath is where the hub download of ModelName lands inside ModelDir.
func (c HugotConfig) LocalModelPath() string {
	return filepath.Join(c.ModelDir, strings.ReplaceAll(c.ModelName, "/", "_"))
}

type truncationParams struct {
	Direction string `json:"direction"`
	MaxLength int    `json:"max_length"`
	Strategy  string `json:"strategy"`
	Stride    int    `json:"stride"`
}

// EnsureTruncation makes the tokenizer in modelPath cut encodings at
// maxLength tokens. Exported tokenizers usually ship with truncation disabled,
// and the pipeline encodes without a length cap. It reports whether the file
// was rewritten.
func EnsureTruncation(modelPath string, maxLength int) (bool, error) {
	path := filepath.Join(modelPath, TOKENIZER_FILENAME)

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat tokenizer: %w", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read tokenizer: %w", err)
	}

	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	want := truncationParams{
		Direction: "Right",
		MaxLength: maxLength,
		Strategy:  "LongestFirst",
	}
	if current, ok := doc["truncation"]; ok && string(current) != "null" {
		var existing truncationParams
		if err := json.Unmarshal(current, &existing); err != nil {
			return false, fmt.Errorf("failed to parse truncation settings: %w", err)
		}
		if existing.MaxLength > 0 && existing.MaxLength <= maxLength {
			return false, nil
		}
		existing.MaxLength = maxLength
		want = existing
	}

	truncation, err := json.Marshal(want)
	if err != nil {
		return false, err
	}
	doc["truncation"] = truncation

	patched, err := json.Marshal(doc)
	if err != nil {
		return false, fmt.Errorf("failed to encode tokenizer: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, patched, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write tokenizer: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("failed to replace tokenizer: %w", err)
	}
	return true, nil
}
