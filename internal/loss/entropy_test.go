package loss

import (
	"math"
	"testing"

	"github.com/samcharles93/grpo/internal/tensor"
)

func TestEntropyNonNegative(t *testing.T) {
	scores := tensor.NewScores(3, 7, 32)
	tensor.FillRandScores(scores, 21, 8.0)

	entropy := Entropy(scores)

	for i, e := range entropy.Data {
		if e < 0 {
			t.Fatalf("position %d: negative entropy %g", i, e)
		}
		if math.IsNaN(float64(e)) || math.IsInf(float64(e), 0) {
			t.Fatalf("position %d: not finite: %g", i, e)
		}
	}
}

func TestEntropyUniformAndPeaked(t *testing.T) {
	v := 16
	scores := tensor.NewScores(1, 2, v)
	// Row 0 stays uniform (all zeros). Row 1 is sharply peaked.
	row := scores.VocabRow(0, 1)
	row[3] = 50

	entropy := Entropy(scores)

	if want := math.Log(float64(v)); !closeEnough(float64(entropy.At(0, 0)), want, 1e-6) {
		t.Fatalf("uniform row: got %g want %g", entropy.At(0, 0), want)
	}
	if got := float64(entropy.At(0, 1)); got > 1e-6 {
		t.Fatalf("peaked row: entropy should be near zero, got %g", got)
	}
}

func TestHighestEntropyMaskCardinality(t *testing.T) {
	b, s, v := 2, 8, 16
	scores := tensor.NewScores(b, s, v)
	tensor.FillRandScores(scores, 3, 6.0)

	mask := tensor.NewIntGrid(b, s)
	for i := range mask.Data {
		if i%2 == 0 {
			mask.Data[i] = 1
		}
	}
	n := mask.CountNonZero()

	for _, percent := range []float64{0.125, 0.25, 0.5, 0.75} {
		selected := HighestEntropyMask(scores, mask, percent)
		k := int(math.Round(percent * float64(n)))
		if k < 1 {
			k = 1
		}
		got := selected.CountNonZero()
		if got < k {
			t.Fatalf("percent %g: selected %d, want at least %d", percent, got, k)
		}
		for i := range selected.Data {
			if selected.Data[i] != 0 && mask.Data[i] == 0 {
				t.Fatalf("percent %g: position %d selected outside the valid mask", percent, i)
			}
		}
	}
}

func TestHighestEntropyMaskFullPercent(t *testing.T) {
	b, s, v := 1, 6, 8
	scores := tensor.NewScores(b, s, v)
	tensor.FillRandScores(scores, 9, 3.0)
	mask := tensor.NewIntGrid(b, s)
	for i := range mask.Data {
		mask.Data[i] = 1
	}

	selected := HighestEntropyMask(scores, mask, 1.0)

	if got := selected.CountNonZero(); got != b*s {
		t.Fatalf("percent 1.0 should keep every valid position, got %d of %d", got, b*s)
	}
}

func TestHighestEntropyMaskTiesInclusive(t *testing.T) {
	// Two identical rows tie on entropy; selecting the "top 1 of 2" must keep
	// both because they straddle the threshold with equal values.
	b, s, v := 1, 2, 4
	scores := tensor.NewScores(b, s, v)
	for si := 0; si < s; si++ {
		row := scores.VocabRow(0, si)
		row[0], row[1], row[2], row[3] = 1, 2, 3, 4
	}
	mask := tensor.NewIntGrid(b, s)
	mask.Data[0], mask.Data[1] = 1, 1

	selected := HighestEntropyMask(scores, mask, 0.5)

	if got := selected.CountNonZero(); got != 2 {
		t.Fatalf("tied entropies must all be kept: got %d selected, want 2", got)
	}
}

func TestHighestEntropyMaskEmptyMask(t *testing.T) {
	scores := tensor.NewScores(2, 3, 8)
	tensor.FillRandScores(scores, 1, 1.0)
	mask := tensor.NewIntGrid(2, 3)

	selected := HighestEntropyMask(scores, mask, 0.5)

	if got := selected.CountNonZero(); got != 0 {
		t.Fatalf("empty mask must select nothing, got %d", got)
	}
}
