package toy

import (
	"testing"

	"github.com/samcharles93/grpo/internal/tensor"
)

func TestForwardDeterministic(t *testing.T) {
	ids := tensor.NewIntGridFromData(2, 3, []int32{1, 2, 3, 4, 5, 6})

	a, err := NewLM(32, 8, 16, 7).Forward(ids, nil)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	b, err := NewLM(32, 8, 16, 7).Forward(ids, nil)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	for i := range a.Data {
		if a.Data[i] != b.Data[i] {
			t.Fatalf("same seed produced different scores at %d", i)
		}
	}
}

func TestForwardShape(t *testing.T) {
	m := NewLM(64, 8, 32, 1)
	ids := tensor.NewIntGrid(3, 5)

	scores, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if scores.B != 3 || scores.S != 5 || scores.V != 64 {
		t.Fatalf("got shape (%d,%d,%d), want (3,5,64)", scores.B, scores.S, scores.V)
	}
}

func TestForwardPositionMatters(t *testing.T) {
	m := NewLM(32, 8, 16, 3)
	ids := tensor.NewIntGridFromData(1, 2, []int32{5, 5})

	scores, err := m.Forward(ids, nil)
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}

	same := true
	for v := 0; v < scores.V; v++ {
		if scores.At(0, 0, v) != scores.At(0, 1, v) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("identical tokens at different positions produced identical scores")
	}
}
