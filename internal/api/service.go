package api

import (
	"context"
	"fmt"

	"github.com/samcharles93/grpo/internal/loss"
)

// LossService evaluates GRPO losses for batches submitted over the API. It
// is stateless; each request carries everything the evaluation needs.
type LossService struct{}

func NewLossService() *LossService {
	return &LossService{}
}

// Compute validates the request and runs one loss evaluation. Validation
// failures unwrap to ErrInvalidRequest so the transport layer can map them
// to 400 responses.
func (s *LossService) Compute(ctx context.Context, req *LossRequest) (*LossResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := req.Batch.Validate(); err != nil {
		return nil, newInvalidRequest(err.Error())
	}
	if !req.Batch.HasScores() {
		return nil, newInvalidRequest("batch: scores payload is required")
	}

	temperature := req.Temperature
	if temperature == 0 {
		temperature = 1
	}
	if temperature < 0 {
		return nil, newInvalidRequest(fmt.Sprintf("temperature must be positive, got %g", temperature))
	}

	cfg, err := req.Variant.Build()
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}

	shifted, err := req.Batch.ScoresTensor()
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}
	mask := req.Batch.Mask()

	res, err := loss.GRPO(shifted, req.Batch.IDs(), req.Batch.AdvantagesGrid(), req.Batch.RefLogprobsGrid(), mask, temperature, cfg)
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}
	entropy, err := loss.ComputeEntropy(shifted, mask, temperature)
	if err != nil {
		return nil, newInvalidRequest(err.Error())
	}

	return &LossResponse{
		Object:        "loss.result",
		Loss:          res.Loss,
		Ratio:         res.Ratio,
		ClippedTokens: res.ClippedTokens,
		Entropy:       entropy,
		BatchSize:     req.Batch.BatchSize,
		SeqLen:        req.Batch.SeqLen,
		ValidTokens:   mask.CountNonZero(),
	}, nil
}
