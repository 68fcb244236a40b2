// Package toy provides a minimal deterministic language model used for
// testing and benchmarking the loss core. It is deliberately simplistic: an
// embedding lookup plus a learned position embedding projected back to vocab
// scores. It exists so the pipeline can be exercised end to end without a
// real checkpoint.
package toy

import (
	"github.com/samcharles93/grpo/internal/loss"
	"github.com/samcharles93/grpo/internal/tensor"
)

type LM struct {
	Vocab   int
	Hidden  int
	MaxSeq  int
	Emb     tensor.Mat // [Vocab x Hidden] token embeddings
	PosEmb  tensor.Mat // [MaxSeq x Hidden] position embeddings
	Proj    tensor.Mat // [Hidden x Vocab] projection to scores
	scratch []float32  // [Hidden]
}

// NewLM constructs a model with the given vocabulary, hidden size and maximum
// sequence length. Weights are filled with reproducible pseudo-random values
// derived from the seed; the same seed always yields the same model.
func NewLM(vocab, hidden, maxSeq int, seed int64) *LM {
	m := &LM{
		Vocab:   vocab,
		Hidden:  hidden,
		MaxSeq:  maxSeq,
		Emb:     tensor.NewMat(vocab, hidden),
		PosEmb:  tensor.NewMat(maxSeq, hidden),
		Proj:    tensor.NewMat(hidden, vocab),
		scratch: make([]float32, hidden),
	}
	tensor.FillRand(&m.Emb, seed+11)
	tensor.FillRand(&m.PosEmb, seed+17)
	tensor.FillRand(&m.Proj, seed+23)
	return m
}

var _ loss.Model = (*LM)(nil)

// Forward computes vocab scores for every (batch, seq) position. Token ids
// outside [0, Vocab) are reduced modulo Vocab and positions are reduced
// modulo MaxSeq, so any id grid is accepted. A nil positions grid falls back
// to the sequence index.
func (m *LM) Forward(ids, positions *tensor.IntGrid) (*tensor.Scores, error) {
	out := tensor.NewScores(ids.B, ids.S, m.Vocab)
	for b := 0; b < ids.B; b++ {
		for s := 0; s < ids.S; s++ {
			tok := wrap(int(ids.At(b, s)), m.Vocab)
			pos := wrap(s, m.MaxSeq)
			if positions != nil {
				pos = wrap(int(positions.At(b, s)), m.MaxSeq)
			}

			h := m.scratch
			copy(h, m.Emb.Row(tok))
			pe := m.PosEmb.Row(pos)
			for i := range h {
				h[i] += pe[i]
			}

			row := out.VocabRow(b, s)
			for j := 0; j < m.Vocab; j++ {
				var sum float32
				for i := 0; i < m.Hidden; i++ {
					sum += h[i] * m.Proj.Row(i)[j]
				}
				row[j] = sum
			}
		}
	}
	return out, nil
}

func wrap(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
