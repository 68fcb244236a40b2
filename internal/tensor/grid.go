package tensor

// Grid is a dense row-major (batch, seq) matrix of float32 values.
//
// B and S are the batch and sequence dimensions. Stride is the number of
// elements between the starts of two consecutive batch rows (for row-major
// grids this equals S). Data holds the flattened values.
//
// Grid does not perform any memory safety beyond the checks performed by Go's
// slice types; out-of-range indices will panic.
type Grid struct {
	B, S   int
	Stride int
	Data   []float32
}

// NewGrid allocates a zero-initialised grid with the given dimensions.
func NewGrid(b, s int) *Grid {
	if b < 0 || s < 0 {
		panic("tensor: negative dimension for grid")
	}
	return &Grid{B: b, S: s, Stride: s, Data: make([]float32, b*s)}
}

// NewGridFromData creates a grid backed by existing data.
// It checks that the data length matches b*s.
func NewGridFromData(b, s int, data []float32) *Grid {
	if b*s != len(data) {
		panic("tensor: grid data length mismatch")
	}
	return &Grid{B: b, S: s, Stride: s, Data: data}
}

// At returns the value at (b, s).
func (g *Grid) At(b, s int) float32 {
	return g.Data[b*g.Stride+s]
}

// Set stores v at (b, s).
func (g *Grid) Set(b, s int, v float32) {
	g.Data[b*g.Stride+s] = v
}

// Row returns a view of batch row b. Modifications to the returned slice
// update the underlying grid.
func (g *Grid) Row(b int) []float32 {
	if b < 0 || b >= g.B {
		panic("tensor: grid row index out of range")
	}
	start := b * g.Stride
	return g.Data[start : start+g.S]
}

// SameShape reports whether g and o have identical batch and seq dimensions.
func (g *Grid) SameShape(o *Grid) bool {
	return g.B == o.B && g.S == o.S
}

// IntGrid is a dense row-major (batch, seq) matrix of int32 values, used for
// token ids and 0/1 loss masks.
type IntGrid struct {
	B, S   int
	Stride int
	Data   []int32
}

// NewIntGrid allocates a zero-initialised integer grid.
func NewIntGrid(b, s int) *IntGrid {
	if b < 0 || s < 0 {
		panic("tensor: negative dimension for grid")
	}
	return &IntGrid{B: b, S: s, Stride: s, Data: make([]int32, b*s)}
}

// NewIntGridFromData creates an integer grid backed by existing data.
func NewIntGridFromData(b, s int, data []int32) *IntGrid {
	if b*s != len(data) {
		panic("tensor: grid data length mismatch")
	}
	return &IntGrid{B: b, S: s, Stride: s, Data: data}
}

// At returns the value at (b, s).
func (g *IntGrid) At(b, s int) int32 {
	return g.Data[b*g.Stride+s]
}

// Set stores v at (b, s).
func (g *IntGrid) Set(b, s int, v int32) {
	g.Data[b*g.Stride+s] = v
}

// Row returns a view of batch row b.
func (g *IntGrid) Row(b int) []int32 {
	if b < 0 || b >= g.B {
		panic("tensor: grid row index out of range")
	}
	start := b * g.Stride
	return g.Data[start : start+g.S]
}

// CountNonZero returns the number of non-zero entries. For a 0/1 loss mask
// this is the number of valid positions.
func (g *IntGrid) CountNonZero() int {
	n := 0
	for _, v := range g.Data {
		if v != 0 {
			n++
		}
	}
	return n
}
