package batch

import (
	"fmt"
	"math/rand"

	"github.com/samcharles93/grpo/internal/loss"
	"github.com/samcharles93/grpo/internal/tensor"
	"github.com/samcharles93/grpo/internal/toy"
)

// Synthetic builds a reproducible batch backed by the toy model: random token
// ids, toy-model shifted scores in the requested dtype, reference
// log-probabilities perturbed away from the current policy, random advantages
// and a mask that excludes position 0 plus a short padding tail per row.
// Useful for smoke-testing the pipeline without trainer data.
func Synthetic(batchSize, seqLen, vocabSize int, seed int64, dtype tensor.DType) (*Batch, error) {
	rng := rand.New(rand.NewSource(seed))

	ids := tensor.NewIntGrid(batchSize, seqLen)
	for i := range ids.Data {
		ids.Data[i] = int32(rng.Intn(vocabSize))
	}

	model := toy.NewLM(vocabSize, 16, seqLen, seed)
	scores, err := model.Forward(ids, nil)
	if err != nil {
		return nil, fmt.Errorf("batch: synthetic forward: %w", err)
	}
	shifted := loss.Shift(scores)

	refs := loss.SelectiveLogProbs(shifted, ids)
	b := &Batch{
		BatchSize:   batchSize,
		SeqLen:      seqLen,
		VocabSize:   vocabSize,
		TokenIDs:    ids.Data,
		Advantages:  make([]float32, batchSize*seqLen),
		RefLogprobs: make([]float32, batchSize*seqLen),
		LossMask:    make([]int32, batchSize*seqLen),
	}
	for i := range b.Advantages {
		b.Advantages[i] = float32(rng.Float64()*2 - 1)
		b.RefLogprobs[i] = refs.Data[i] + float32(rng.NormFloat64()*0.05)
	}
	for bi := 0; bi < batchSize; bi++ {
		pad := 0
		if seqLen >= 2 {
			pad = rng.Intn(seqLen / 2)
		}
		for si := 1; si < seqLen-pad; si++ {
			b.LossMask[bi*seqLen+si] = 1
		}
	}

	switch dtype {
	case tensor.DTypeF32:
		b.Scores = shifted.Data
	case tensor.DTypeBF16:
		b.ScoreDType = "bf16"
		b.ScoresRaw = tensor.EncodeBF16(shifted.Data)
	case tensor.DTypeF16:
		b.ScoreDType = "f16"
		b.ScoresRaw = tensor.EncodeFP16(shifted.Data)
	default:
		return nil, fmt.Errorf("batch: synthetic scores dtype %v unsupported", dtype)
	}
	return b, nil
}
