package api

import (
	"github.com/samcharles93/grpo/internal/batch"
	"github.com/samcharles93/grpo/internal/loss"
)

// LossRequest is the body of POST /v1/loss: the loss variant to evaluate,
// the sampling temperature and one inline micro-batch. The batch must carry
// a shifted-scores payload since the service holds no model of its own.
type LossRequest struct {
	Variant     loss.VariantSpec `json:"variant"`
	Temperature float64          `json:"temperature,omitempty"`
	Batch       batch.Batch      `json:"batch"`
}

type LossResponse struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`

	Loss          float64 `json:"loss"`
	Ratio         float64 `json:"ratio"`
	ClippedTokens float64 `json:"clipped_tokens"`
	Entropy       float64 `json:"entropy"`

	BatchSize   int `json:"batch_size"`
	SeqLen      int `json:"seq_len"`
	ValidTokens int `json:"valid_tokens"`
}

type ResponseError struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Code    string `json:"code,omitempty"`
	Param   string `json:"param,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}
