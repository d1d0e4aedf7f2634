package sentiment

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/spacesedan/finsentiment/internal/models"
)

var ErrInference = errors.New("inference failed")

// Model is a pretrained three-class sequence classifier. Logits tokenizes text,
// truncating it to the model's maximum sequence length, runs a forward pass and
// returns the raw scores in output-index order. Implementations must be safe
// for concurrent use.
type Model interface {
	Logits(ctx context.Context, text string) ([]float64, error)
	Name() string
}

// Analyzer maps text to a sentiment label and class probabilities. It holds
// only the read-only model handle.
type Analyzer struct {
	model Model
}

func NewAnalyzer(model Model) *Analyzer {
	return &Analyzer{model: model}
}

func (a *Analyzer) ModelName() string {
	return a.model.Name()
}

func (a *Analyzer) Analyze(ctx context.Context, text string) (models.SentimentResult, error) {
	logits, err := a.model.Logits(ctx, text)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("%w: %s: %w", ErrInference, a.model.Name(), err)
	}
	if len(logits) != len(models.Labels) {
		return models.SentimentResult{}, fmt.Errorf("%w: %s returned %d logits, want %d",
			ErrInference, a.model.Name(), len(logits), len(models.Labels))
	}

	probs, err := Softmax(logits)
	if err != nil {
		return models.SentimentResult{}, fmt.Errorf("%w: %s: %w", ErrInference, a.model.Name(), err)
	}

	return NewResult(probs), nil
}

// Softmax normalizes logits into a probability distribution. Negative infinity
// is allowed and maps to zero; NaN, positive infinity and all-negative-infinity
// inputs are rejected.
func Softmax(logits []float64) ([]float64, error) {
	if len(logits) == 0 {
		return nil, errors.New("softmax of empty vector")
	}

	peak := math.Inf(-1)
	for _, l := range logits {
		if math.IsNaN(l) || math.IsInf(l, 1) {
			return nil, fmt.Errorf("invalid logit %v", l)
		}
		if l > peak {
			peak = l
		}
	}
	if math.IsInf(peak, -1) {
		return nil, errors.New("all logits are -Inf")
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, l := range logits {
		probs[i] = math.Exp(l - peak)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs, nil
}

// NewResult builds a result from probabilities in output-index order. The
// first label reaching the maximum wins, so exact ties resolve
// Negative, then Neutral, then Positive.
func NewResult(probs []float64) models.SentimentResult {
	result := models.SentimentResult{
		Probabilities: make(map[models.Label]float64, len(models.Labels)),
	}

	best := -1
	for i, label := range models.Labels {
		result.Probabilities[label] = probs[i]
		if best < 0 || probs[i] > probs[best] {
			best = i
		}
	}

	result.Sentiment = models.Labels[best]
	result.Confidence = probs[best]
	result.Score = PolarityScore(result.Probabilities)
	return result
}

// PolarityScore collapses probabilities into [-1, 1]: positive mass adds,
// negative mass subtracts and neutral mass damps the difference by up to half.
func PolarityScore(probs map[models.Label]float64) float64 {
	positive := probs[models.LabelPositive]
	negative := probs[models.LabelNegative]
	neutral := probs[models.LabelNeutral]

	return (positive - negative) * (1 - neutral*0.5)
}
