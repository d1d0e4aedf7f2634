package models

import "strings"

type Label string

const (
	LabelNegative Label = "Negative"
	LabelNeutral  Label = "Neutral"
	LabelPositive Label = "Positive"
)

// Labels is indexed by model output position. Label names shipped with a model
// artifact are ignored.
var Labels = [3]Label{LabelNegative, LabelNeutral, LabelPositive}

// ParseLabel matches a label name case-insensitively.
func ParseLabel(name string) (Label, bool) {
	for _, l := range Labels {
		if strings.EqualFold(name, string(l)) {
			return l, true
		}
	}
	return "", false
}

// Index returns the model output position of l, or -1.
func (l Label) Index() int {
	for i, candidate := range Labels {
		if candidate == l {
			return i
		}
	}
	return -1
}

type SentimentRequest struct {
	Text string `json:"text"`
}

type SentimentResult struct {
	Sentiment     Label             `json:"sentiment"`
	Probabilities map[Label]float64 `json:"probabilities"`
	Confidence    float64           `json:"confidence"`
	Score         float64           `json:"score"`
}
