package loss

import (
	"math"
	"slices"

	"github.com/samcharles93/grpo/internal/tensor"
)

// Entropy returns the predictive entropy of the score distribution at every
// (batch, seq) position: logsumexp(x) - sum(softmax(x) * x) along the vocab
// axis. No masking is applied; that is the caller's responsibility.
func Entropy(scores *tensor.Scores) *tensor.Grid {
	out := tensor.NewGrid(scores.B, scores.S)
	row := make([]float32, scores.V)
	for b := 0; b < scores.B; b++ {
		for s := 0; s < scores.S; s++ {
			scores.VocabRowTo(row, b, s)
			out.Set(b, s, rowEntropy(row))
		}
	}
	return out
}

func rowEntropy(x []float32) float32 {
	maxv := x[0]
	for _, v := range x[1:] {
		if v > maxv {
			maxv = v
		}
	}
	var sumExp, weighted float64
	for _, v := range x {
		e := math.Exp(float64(v - maxv))
		sumExp += e
		weighted += e * float64(v)
	}
	lse := float64(maxv) + math.Log(sumExp)
	return float32(lse - weighted/sumExp)
}

// HighestEntropyMask narrows a loss mask to the top `percent` fraction of
// valid positions ranked by entropy. With n valid positions it keeps
// k = max(1, round(percent*n)) of them; the threshold is the k-th largest
// valid entropy, and positions tying with the threshold are all kept, so the
// selected count may exceed k. That inclusive behaviour is depended on
// downstream and must not be tightened to exact-k.
//
// Positions outside the original mask are never selected. A mask with no
// valid positions yields an all-false mask.
func HighestEntropyMask(scores *tensor.Scores, mask *tensor.IntGrid, percent float64) *tensor.IntGrid {
	if scores.B != mask.B || scores.S != mask.S {
		panic("loss: scores and mask disagree on (batch, seq)")
	}
	entropy := Entropy(scores)

	valid := make([]float32, 0, len(mask.Data))
	for i, m := range mask.Data {
		if m != 0 {
			valid = append(valid, entropy.Data[i])
		}
	}
	out := tensor.NewIntGrid(mask.B, mask.S)
	n := len(valid)
	if n == 0 {
		return out
	}

	k := int(math.Round(percent * float64(n)))
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}

	var threshold float32
	if k == n {
		// Sentinel below the minimum selects every valid position.
		threshold = slices.Min(valid) - 1
	} else {
		slices.Sort(valid)
		threshold = valid[n-k]
	}

	for i, m := range mask.Data {
		if m != 0 && entropy.Data[i] >= threshold {
			out.Data[i] = 1
		}
	}
	return out
}
