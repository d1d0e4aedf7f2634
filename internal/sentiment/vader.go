package sentiment

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/jonreiter/govader"
	"github.com/russross/blackfriday/v2"
)

const LEXICON_MODEL_NAME = "vader-lexicon"

// probabilities below this are clamped before taking the log
const minProbability = 1e-9

var (
	markdownLinkPattern = regexp.MustCompile(`\[(.*?)\]\((https?:\/\/[^\s\)]+)\)`)
	urlPattern          = regexp.MustCompile(`https?://\S+|www\.\S+`)
	htmlTagPattern      = regexp.MustCompile(`<[^>]*>`)
)

// LexiconModel scores text with the VADER lexicon. It needs no model
// artifacts and stands in for FinBERT in development and tests.
type LexiconModel struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

func NewLexiconModel() *LexiconModel {
	return &LexiconModel{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

func (m *LexiconModel) Name() string {
	return LEXICON_MODEL_NAME
}

// Logits returns log proportions of negative, neutral and positive text. Text
// without any scored tokens is treated as fully neutral.
func (m *LexiconModel) Logits(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	proportions := []float64{0, 1, 0}
	if plain := ConvertMarkdownToText(text); plain != "" {
		scores := m.analyzer.PolarityScores(plain)
		if scores.Negative+scores.Neutral+scores.Positive > 0 {
			proportions = []float64{scores.Negative, scores.Neutral, scores.Positive}
		}
	}

	logits := make([]float64, len(proportions))
	for i, p := range proportions {
		logits[i] = math.Log(math.Max(p, minProbability))
	}
	return logits, nil
}

func RemoveLinks(input string) string {
	input = markdownLinkPattern.ReplaceAllString(input, "$1") // Keep only the text
	return urlPattern.ReplaceAllString(input, "")
}

func ConvertMarkdownToText(input string) string {
	output := blackfriday.Run([]byte(input), blackfriday.WithNoExtensions())
	rendered := htmlTagPattern.ReplaceAllString(string(output), " ")
	plainText := strings.Join(strings.Fields(rendered), " ")

	return strings.TrimSpace(RemoveLinks(plainText))
}
