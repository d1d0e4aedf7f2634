package models

type HFInferenceRequest struct {
	Inputs string `json:"inputs"`
}

// HFLabelScore is one entry of a text-classification response from the
// Hugging Face inference API.
type HFLabelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type HFErrorResponse struct {
	Error         string  `json:"error"`
	EstimatedTime float64 `json:"estimated_time,omitempty"`
}
