package loss

import (
	"testing"

	"github.com/samcharles93/grpo/internal/tensor"
)

func TestMaskedSumZeroMask(t *testing.T) {
	g := tensor.NewGridFromData(1, 4, []float32{1, -2, 3.5, 100})
	mask := tensor.NewIntGrid(1, 4)

	if got := MaskedSum(g, mask); got != 0 {
		t.Fatalf("all-zero mask must sum to exactly 0, got %g", got)
	}
}

func TestMaskedSumSelectsPositions(t *testing.T) {
	g := tensor.NewGridFromData(2, 3, []float32{1, 2, 3, 4, 5, 6})
	mask := tensor.NewIntGridFromData(2, 3, []int32{1, 0, 1, 0, 1, 0})

	if got, want := MaskedSum(g, mask), 9.0; got != want {
		t.Fatalf("got %g want %g", got, want)
	}
}

func TestMaskedSumLinearity(t *testing.T) {
	a := tensor.NewGridFromData(1, 4, []float32{1, 2, 3, 4})
	b := tensor.NewGridFromData(1, 4, []float32{10, 20, 30, 40})
	sum := tensor.NewGrid(1, 4)
	for i := range sum.Data {
		sum.Data[i] = a.Data[i] + b.Data[i]
	}
	mask := tensor.NewIntGridFromData(1, 4, []int32{1, 1, 0, 1})

	lhs := MaskedSum(sum, mask)
	rhs := MaskedSum(a, mask) + MaskedSum(b, mask)
	if !closeEnough(lhs, rhs, 1e-9) {
		t.Fatalf("masked sum is not additive: %g vs %g", lhs, rhs)
	}
}

func TestMaskedSumShapeMismatch(t *testing.T) {
	g := tensor.NewGrid(1, 4)
	mask := tensor.NewIntGrid(1, 5)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for shape mismatch")
		}
	}()
	MaskedSum(g, mask)
}
