// Package batch defines the interchange form of one training micro-batch:
// token ids, advantages, reference log-probabilities, the loss mask and
// (optionally) pre-computed shifted scores. The JSON codec is the boundary
// between the trainer's data plumbing and the loss core.
package batch

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/samcharles93/grpo/internal/tensor"
)

// Batch is the serialized micro-batch. All tensors are flattened row-major;
// lengths must match the declared dimensions. Scores holds f32 shifted
// scores; ScoresRaw holds the same payload in bf16/f16 little-endian bytes
// (base64 in JSON). Exactly one of the two may be set.
type Batch struct {
	BatchSize  int    `json:"batch_size"`
	SeqLen     int    `json:"seq_len"`
	VocabSize  int    `json:"vocab_size"`
	ScoreDType string `json:"score_dtype,omitempty"`

	TokenIDs    []int32   `json:"token_ids"`
	PositionIDs []int32   `json:"position_ids,omitempty"`
	Advantages  []float32 `json:"advantages"`
	RefLogprobs []float32 `json:"ref_logprobs"`
	LossMask    []int32   `json:"loss_mask"`

	Scores    []float32 `json:"scores,omitempty"`
	ScoresRaw []byte    `json:"scores_raw,omitempty"`
}

// Validate checks dimensions, tensor lengths and value ranges. It returns the
// first violation found.
func (b *Batch) Validate() error {
	if b.BatchSize <= 0 || b.SeqLen <= 0 || b.VocabSize <= 0 {
		return fmt.Errorf("batch: non-positive dimensions (%d, %d, %d)", b.BatchSize, b.SeqLen, b.VocabSize)
	}
	n := b.BatchSize * b.SeqLen
	if len(b.TokenIDs) != n {
		return fmt.Errorf("batch: token_ids length %d, want %d", len(b.TokenIDs), n)
	}
	if b.PositionIDs != nil && len(b.PositionIDs) != n {
		return fmt.Errorf("batch: position_ids length %d, want %d", len(b.PositionIDs), n)
	}
	if len(b.Advantages) != n {
		return fmt.Errorf("batch: advantages length %d, want %d", len(b.Advantages), n)
	}
	if len(b.RefLogprobs) != n {
		return fmt.Errorf("batch: ref_logprobs length %d, want %d", len(b.RefLogprobs), n)
	}
	if len(b.LossMask) != n {
		return fmt.Errorf("batch: loss_mask length %d, want %d", len(b.LossMask), n)
	}
	for i, id := range b.TokenIDs {
		if id < 0 || int(id) >= b.VocabSize {
			return fmt.Errorf("batch: token id %d at %d outside [0, %d)", id, i, b.VocabSize)
		}
	}
	for i, m := range b.LossMask {
		if m != 0 && m != 1 {
			return fmt.Errorf("batch: loss_mask value %d at %d, want 0 or 1", m, i)
		}
	}

	dtype, err := b.dtype()
	if err != nil {
		return err
	}
	switch dtype {
	case tensor.DTypeF32:
		if b.ScoresRaw != nil {
			return fmt.Errorf("batch: scores_raw present but score_dtype is f32")
		}
		if b.Scores != nil && len(b.Scores) != n*b.VocabSize {
			return fmt.Errorf("batch: scores length %d, want %d", len(b.Scores), n*b.VocabSize)
		}
	default:
		if b.Scores != nil {
			return fmt.Errorf("batch: f32 scores present but score_dtype is %s", dtype)
		}
		if b.ScoresRaw != nil && len(b.ScoresRaw) != n*b.VocabSize*2 {
			return fmt.Errorf("batch: scores_raw length %d, want %d", len(b.ScoresRaw), n*b.VocabSize*2)
		}
	}
	return nil
}

func (b *Batch) dtype() (tensor.DType, error) {
	switch b.ScoreDType {
	case "", "f32":
		return tensor.DTypeF32, nil
	case "bf16":
		return tensor.DTypeBF16, nil
	case "f16":
		return tensor.DTypeF16, nil
	default:
		return 0, fmt.Errorf("batch: unknown score_dtype %q", b.ScoreDType)
	}
}

// HasScores reports whether the batch carries a shifted-scores payload.
func (b *Batch) HasScores() bool {
	return b.Scores != nil || b.ScoresRaw != nil
}

// ScoresTensor builds the shifted-scores tensor. Validate must have passed.
func (b *Batch) ScoresTensor() (*tensor.Scores, error) {
	dtype, err := b.dtype()
	if err != nil {
		return nil, err
	}
	if dtype == tensor.DTypeF32 {
		if b.Scores == nil {
			return nil, fmt.Errorf("batch: no scores payload")
		}
		return tensor.NewScoresFromData(b.BatchSize, b.SeqLen, b.VocabSize, b.Scores), nil
	}
	if b.ScoresRaw == nil {
		return nil, fmt.Errorf("batch: no scores payload")
	}
	return tensor.NewScoresFromRaw(b.BatchSize, b.SeqLen, b.VocabSize, dtype, b.ScoresRaw)
}

// IDs returns the token id grid.
func (b *Batch) IDs() *tensor.IntGrid {
	return tensor.NewIntGridFromData(b.BatchSize, b.SeqLen, b.TokenIDs)
}

// Positions returns the position id grid, or nil when the batch carries none.
func (b *Batch) Positions() *tensor.IntGrid {
	if b.PositionIDs == nil {
		return nil
	}
	return tensor.NewIntGridFromData(b.BatchSize, b.SeqLen, b.PositionIDs)
}

// AdvantagesGrid returns the per-token advantage weights.
func (b *Batch) AdvantagesGrid() *tensor.Grid {
	return tensor.NewGridFromData(b.BatchSize, b.SeqLen, b.Advantages)
}

// RefLogprobsGrid returns the reference log-probabilities.
func (b *Batch) RefLogprobsGrid() *tensor.Grid {
	return tensor.NewGridFromData(b.BatchSize, b.SeqLen, b.RefLogprobs)
}

// Mask returns the loss mask grid.
func (b *Batch) Mask() *tensor.IntGrid {
	return tensor.NewIntGridFromData(b.BatchSize, b.SeqLen, b.LossMask)
}

// Decode parses and validates a batch from JSON bytes.
func Decode(data []byte) (*Batch, error) {
	var b Batch
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("batch: decode: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return &b, nil
}

// Encode serializes the batch to JSON bytes.
func (b *Batch) Encode() ([]byte, error) {
	data, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("batch: encode: %w", err)
	}
	return data, nil
}

// Load reads and validates a batch from a JSON file.
func Load(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	b, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// Save writes the batch to a JSON file.
func (b *Batch) Save(path string) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
