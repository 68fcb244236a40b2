package loss

import "github.com/samcharles93/grpo/internal/tensor"

// MaskedSum reduces a per-token grid to a scalar: the sum of values at
// positions where mask is non-zero. An all-zero mask yields exactly 0.
// Accumulation is in float64.
func MaskedSum(g *tensor.Grid, mask *tensor.IntGrid) float64 {
	if g.B != mask.B || g.S != mask.S {
		panic("loss: grid and mask disagree on (batch, seq)")
	}
	var sum float64
	for i, m := range mask.Data {
		if m != 0 {
			sum += float64(g.Data[i])
		}
	}
	return sum
}
