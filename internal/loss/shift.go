package loss

import "github.com/samcharles93/grpo/internal/tensor"

// Shift realigns raw model scores so that position i holds the distribution
// that predicted token i. The model emits, at position i, the distribution
// for token i+1; Shift drops the final position and prepends an all-zero
// vector for position 0, which has no prior context. The output shape equals
// the input shape.
func Shift(t *tensor.Scores) *tensor.Scores {
	if t.DType == tensor.DTypeF32 {
		out := make([]float32, t.B*t.S*t.V)
		for b := 0; b < t.B; b++ {
			src := t.Data[b*t.S*t.V : (b+1)*t.S*t.V]
			dst := out[b*t.S*t.V : (b+1)*t.S*t.V]
			copy(dst[t.V:], src[:len(src)-t.V])
		}
		return tensor.NewScoresFromData(t.B, t.S, t.V, out)
	}

	// Reduced-precision rows shift as raw bytes; an all-zero bf16/f16 row
	// decodes to an all-zero float row.
	rowBytes := t.V * 2
	out := make([]byte, len(t.Raw))
	for b := 0; b < t.B; b++ {
		src := t.Raw[b*t.S*rowBytes : (b+1)*t.S*rowBytes]
		dst := out[b*t.S*rowBytes : (b+1)*t.S*rowBytes]
		copy(dst[rowBytes:], src[:len(src)-rowBytes])
	}
	shifted, err := tensor.NewScoresFromRaw(t.B, t.S, t.V, t.DType, out)
	if err != nil {
		panic(err)
	}
	return shifted
}
