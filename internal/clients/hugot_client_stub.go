//go:build NOORT && !ALL

package clients

import "context"

// HugotModel is unavailable in builds tagged NOORT.
type HugotModel struct{}

func NewHugotModel(HugotConfig) (*HugotModel, error) {
	return nil, ErrNoRuntime
}

func (m *HugotModel) Name() string { return "hugot:unavailable" }

func (m *HugotModel) Logits(context.Context, string) ([]float64, error) {
	return nil, ErrNoRuntime
}

func (m *HugotModel) Close() error { return nil }
