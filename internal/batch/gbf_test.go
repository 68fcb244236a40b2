package batch

import (
	"path/filepath"
	"testing"

	"github.com/samcharles93/grpo/internal/tensor"
)

func TestGBFRoundTrip(t *testing.T) {
	t.Parallel()

	want, err := Synthetic(2, 8, 32, 99, tensor.DTypeBF16)
	if err != nil {
		t.Fatalf("synthetic: %v", err)
	}
	path := filepath.Join(t.TempDir(), "batch.gbf")
	if err := want.SaveGBF(path); err != nil {
		t.Fatalf("SaveGBF: %v", err)
	}

	got, err := LoadGBF(path)
	if err != nil {
		t.Fatalf("LoadGBF: %v", err)
	}
	if got.BatchSize != want.BatchSize || got.SeqLen != want.SeqLen || got.VocabSize != want.VocabSize {
		t.Fatalf("dims diverge: got (%d,%d,%d)", got.BatchSize, got.SeqLen, got.VocabSize)
	}
	if got.ScoreDType != "bf16" {
		t.Fatalf("score dtype: got %q", got.ScoreDType)
	}
	for i := range want.TokenIDs {
		if got.TokenIDs[i] != want.TokenIDs[i] {
			t.Fatalf("token ids diverge at %d", i)
		}
		if got.LossMask[i] != want.LossMask[i] {
			t.Fatalf("loss mask diverges at %d", i)
		}
		if got.Advantages[i] != want.Advantages[i] {
			t.Fatalf("advantages diverge at %d", i)
		}
		if got.RefLogprobs[i] != want.RefLogprobs[i] {
			t.Fatalf("ref logprobs diverge at %d", i)
		}
	}
	for i := range want.ScoresRaw {
		if got.ScoresRaw[i] != want.ScoresRaw[i] {
			t.Fatalf("raw scores diverge at %d", i)
		}
	}
}

func TestGBFRejectsUnknownDType(t *testing.T) {
	t.Parallel()

	b, err := Synthetic(1, 4, 8, 1, tensor.DTypeF32)
	if err != nil {
		t.Fatalf("synthetic: %v", err)
	}
	b.ScoreDType = "f64"
	if _, err := b.GBFPayload(); err == nil {
		t.Fatal("expected error for unknown dtype")
	}
}
