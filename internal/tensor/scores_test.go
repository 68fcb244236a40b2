package tensor

import (
	"math"
	"testing"
)

func relClose(a, b float32, rel float64) bool {
	da := float64(a)
	db := float64(b)
	diff := math.Abs(da - db)
	scale := math.Max(1.0, math.Max(math.Abs(da), math.Abs(db)))
	return diff <= rel*scale
}

func TestScoresRowDecodeBF16(t *testing.T) {
	b, s, v := 2, 3, 32
	f32 := NewScores(b, s, v)
	FillRandScores(f32, 42, 5.0)

	raw, err := f32.EncodeRaw(DTypeBF16)
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}

	dst := make([]float32, v)
	for bi := 0; bi < b; bi++ {
		for si := 0; si < s; si++ {
			raw.VocabRowTo(dst, bi, si)
			want := f32.VocabRow(bi, si)
			for j := range dst {
				// bf16 is coarse; allow small relative error.
				if !relClose(dst[j], want[j], 5e-2) {
					t.Fatalf("row (%d,%d) col %d: bf16=%g f32=%g", bi, si, j, dst[j], want[j])
				}
			}
		}
	}
}

func TestScoresRowDecodeF16(t *testing.T) {
	b, s, v := 1, 2, 24
	f32 := NewScores(b, s, v)
	FillRandScores(f32, 7, 5.0)

	raw, err := f32.EncodeRaw(DTypeF16)
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}

	dst := make([]float32, v)
	for si := 0; si < s; si++ {
		raw.VocabRowTo(dst, 0, si)
		want := f32.VocabRow(0, si)
		for j := range dst {
			if !relClose(dst[j], want[j], 2e-2) {
				t.Fatalf("row (0,%d) col %d: f16=%g f32=%g", si, j, dst[j], want[j])
			}
		}
	}
}

func TestScoresScalePreservesDType(t *testing.T) {
	f32 := NewScores(1, 2, 16)
	FillRandScores(f32, 3, 2.0)
	raw, err := f32.EncodeRaw(DTypeBF16)
	if err != nil {
		t.Fatalf("EncodeRaw: %v", err)
	}

	scaled := raw.Scale(0.5)

	if scaled.DType != DTypeBF16 {
		t.Fatalf("dtype changed: got %v", scaled.DType)
	}
	for s := 0; s < 2; s++ {
		for v := 0; v < 16; v++ {
			want := raw.At(0, s, v) * 0.5
			if !relClose(scaled.At(0, s, v), want, 1e-2) {
				t.Fatalf("(0,%d,%d): got %g want about %g", s, v, scaled.At(0, s, v), want)
			}
		}
	}
}

func TestScoresScaleF32Exact(t *testing.T) {
	f32 := NewScoresFromData(1, 1, 4, []float32{1, -2, 4, 0})

	scaled := f32.Scale(0.25)

	want := []float32{0.25, -0.5, 1, 0}
	for i := range want {
		if scaled.Data[i] != want[i] {
			t.Fatalf("index %d: got %g want %g", i, scaled.Data[i], want[i])
		}
	}
	if f32.Data[0] != 1 {
		t.Fatal("Scale must not mutate its receiver")
	}
}

func TestNewScoresFromRawValidates(t *testing.T) {
	if _, err := NewScoresFromRaw(1, 2, 4, DTypeBF16, make([]byte, 15)); err == nil {
		t.Fatal("expected error for mismatched raw length")
	}
	if _, err := NewScoresFromRaw(1, 2, 4, DTypeF32, make([]byte, 32)); err == nil {
		t.Fatal("expected error for f32 raw tensor")
	}
	if _, err := NewScoresFromRaw(1, 2, 4, DTypeBF16, make([]byte, 16)); err != nil {
		t.Fatalf("valid raw tensor rejected: %v", err)
	}
}

func TestBF16RoundTripExactValues(t *testing.T) {
	// Values with short mantissas survive the bf16 round trip exactly.
	vals := []float32{0, 1, -1, 0.5, -2, 4, 128}
	raw := EncodeBF16(vals)
	for i, want := range vals {
		got := bf16ToF32(u16le(raw, i*2))
		if got != want {
			t.Fatalf("index %d: got %g want %g", i, got, want)
		}
	}
}

func TestFP16SpecialValues(t *testing.T) {
	inf := float32(math.Inf(1))
	raw := EncodeFP16([]float32{0, -0, 1, inf, -inf})
	got := make([]float32, 5)
	for i := range got {
		got[i] = fp16ToF32(u16le(raw, i*2))
	}
	if got[0] != 0 || got[2] != 1 {
		t.Fatalf("finite values mangled: %v", got)
	}
	if !math.IsInf(float64(got[3]), 1) || !math.IsInf(float64(got[4]), -1) {
		t.Fatalf("infinities mangled: %v", got)
	}
}
