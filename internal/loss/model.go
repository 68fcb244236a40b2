package loss

import (
	"fmt"

	"github.com/samcharles93/grpo/internal/tensor"
)

// Model is the opaque forward capability of the policy network: given token
// and position ids it returns unnormalized next-token scores of shape
// (batch, seq, vocab). The loss core never looks inside.
type Model interface {
	Forward(ids, positions *tensor.IntGrid) (*tensor.Scores, error)
}

// ComputeLogprobs runs the model forward, realigns the scores so position i
// predicts token i, scales by the inverse sampling temperature and extracts
// the log-probability of each observed token.
func ComputeLogprobs(m Model, ids, positions *tensor.IntGrid, temperature float64) (*tensor.Grid, error) {
	if err := checkTemperature(temperature); err != nil {
		return nil, err
	}
	scores, err := m.Forward(ids, positions)
	if err != nil {
		return nil, fmt.Errorf("model forward: %w", err)
	}
	shifted := Shift(scores)
	scaled := shifted.Scale(float32(1.0 / temperature))
	return SelectiveLogProbs(scaled, ids), nil
}

// ComputeEntropy scales already-shifted scores by the inverse temperature and
// reduces per-position predictive entropy to a scalar over the loss mask.
func ComputeEntropy(shifted *tensor.Scores, mask *tensor.IntGrid, temperature float64) (float64, error) {
	if err := checkTemperature(temperature); err != nil {
		return 0, err
	}
	scaled := shifted.Scale(float32(1.0 / temperature))
	return MaskedSum(Entropy(scaled), mask), nil
}
