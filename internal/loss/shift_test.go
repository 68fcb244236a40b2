package loss

import (
	"testing"

	"github.com/samcharles93/grpo/internal/tensor"
)

func TestShiftRealignsPositions(t *testing.T) {
	b, s, v := 2, 4, 3
	scores := tensor.NewScores(b, s, v)
	tensor.FillRandScores(scores, 11, 2.0)

	shifted := Shift(scores)

	if shifted.B != b || shifted.S != s || shifted.V != v {
		t.Fatalf("shape changed: got (%d,%d,%d)", shifted.B, shifted.S, shifted.V)
	}
	for bi := 0; bi < b; bi++ {
		for vi := 0; vi < v; vi++ {
			if got := shifted.At(bi, 0, vi); got != 0 {
				t.Fatalf("position 0 not zero at batch %d vocab %d: %g", bi, vi, got)
			}
		}
		for si := 1; si < s; si++ {
			for vi := 0; vi < v; vi++ {
				want := scores.At(bi, si-1, vi)
				if got := shifted.At(bi, si, vi); got != want {
					t.Fatalf("batch %d pos %d vocab %d: got %g want %g", bi, si, vi, got, want)
				}
			}
		}
	}
}

func TestShiftRawBF16(t *testing.T) {
	b, s, v := 2, 3, 4
	f32 := tensor.NewScores(b, s, v)
	tensor.FillRandScores(f32, 5, 1.0)
	raw, err := f32.EncodeRaw(tensor.DTypeBF16)
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}

	shifted := Shift(raw)

	if shifted.DType != tensor.DTypeBF16 {
		t.Fatalf("dtype changed: got %v", shifted.DType)
	}
	for bi := 0; bi < b; bi++ {
		for vi := 0; vi < v; vi++ {
			if got := shifted.At(bi, 0, vi); got != 0 {
				t.Fatalf("position 0 not zero at batch %d vocab %d: %g", bi, vi, got)
			}
		}
		for si := 1; si < s; si++ {
			for vi := 0; vi < v; vi++ {
				want := raw.At(bi, si-1, vi)
				if got := shifted.At(bi, si, vi); got != want {
					t.Fatalf("batch %d pos %d vocab %d: got %g want %g", bi, si, vi, got, want)
				}
			}
		}
	}
}
