package tensor

import "testing"

func TestGridRowView(t *testing.T) {
	g := NewGrid(2, 3)
	g.Row(1)[2] = 7

	if got := g.At(1, 2); got != 7 {
		t.Fatalf("row view did not alias storage: got %g", got)
	}
}

func TestGridFromDataLengthMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for length mismatch")
		}
	}()
	NewGridFromData(2, 3, make([]float32, 5))
}

func TestIntGridCountNonZero(t *testing.T) {
	m := NewIntGridFromData(2, 3, []int32{1, 0, 1, 0, 0, 1})
	if got := m.CountNonZero(); got != 3 {
		t.Fatalf("got %d want 3", got)
	}
}

func TestScoresRowIndexOutOfRange(t *testing.T) {
	s := NewScores(1, 2, 4)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range row")
		}
	}()
	s.VocabRow(0, 2)
}
