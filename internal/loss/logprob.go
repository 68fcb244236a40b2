package loss

import (
	"math"

	"github.com/samcharles93/grpo/internal/tensor"
)

// SelectiveLogProbs returns, for each (batch, seq) position, the
// log-probability the score distribution assigns to the token actually
// observed there: scores[b,s,ids[b,s]] - logsumexp(scores[b,s,:]).
//
// The numeric strategy is keyed on the score dtype and is part of the
// contract, not an optimization detail:
//
//   - f32 scores use the fused identity log_softmax(x_i) = x_i - logsumexp(x),
//     gathering the selected score and reducing each vocab row independently
//     so only one row-sized intermediate exists at a time.
//   - bf16/f16 scores materialize the normalized log-softmax of each decoded
//     row and gather the needed entry. The fused identity amplifies the
//     coarse mantissa of reduced-precision storage; normalizing first keeps
//     the result finite and <= 0.
//
// Token ids must lie in [0, vocab); violations panic.
func SelectiveLogProbs(scores *tensor.Scores, ids *tensor.IntGrid) *tensor.Grid {
	if scores.B != ids.B || scores.S != ids.S {
		panic("loss: scores and token ids disagree on (batch, seq)")
	}
	out := tensor.NewGrid(scores.B, scores.S)
	if scores.DType == tensor.DTypeF32 {
		selectiveLogProbsFused(scores, ids, out)
	} else {
		selectiveLogProbsNormalized(scores, ids, out)
	}
	return out
}

func selectiveLogProbsFused(scores *tensor.Scores, ids *tensor.IntGrid, out *tensor.Grid) {
	for b := 0; b < scores.B; b++ {
		for s := 0; s < scores.S; s++ {
			row := scores.VocabRow(b, s)
			id := ids.At(b, s)
			if id < 0 || int(id) >= scores.V {
				panic("loss: token id out of vocabulary range")
			}
			selected := row[id]
			out.Set(b, s, selected-logSumExp(row))
		}
	}
}

func selectiveLogProbsNormalized(scores *tensor.Scores, ids *tensor.IntGrid, out *tensor.Grid) {
	row := make([]float32, scores.V)
	for b := 0; b < scores.B; b++ {
		for s := 0; s < scores.S; s++ {
			scores.VocabRowTo(row, b, s)
			id := ids.At(b, s)
			if id < 0 || int(id) >= scores.V {
				panic("loss: token id out of vocabulary range")
			}
			logSoftmaxInPlace(row)
			out.Set(b, s, row[id])
		}
	}
}

// logSumExp computes log(sum(exp(x))) with max subtraction and float64
// accumulation.
func logSumExp(x []float32) float32 {
	maxv := x[0]
	for _, v := range x[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	for _, v := range x {
		sum += math.Exp(float64(v - maxv))
	}
	return maxv + float32(math.Log(sum))
}

// logSoftmaxInPlace replaces x with its normalized log-softmax.
func logSoftmaxInPlace(x []float32) {
	maxv := x[0]
	for _, v := range x[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sum float64
	for _, v := range x {
		sum += math.Exp(float64(v - maxv))
	}
	logZ := float32(math.Log(sum)) + maxv
	for i := range x {
		x[i] -= logZ
	}
}
