package tensor

import "math"

// Scores is a dense row-major (batch, seq, vocab) tensor of unnormalized
// model scores.
//
// DType describes the underlying element encoding. For f32 scores we keep
// Data populated for fast access. For f16/bf16 scores we keep Raw and decode
// row-by-row in VocabRowTo to reduce memory bandwidth pressure; downstream
// code never materializes more than one decoded vocab row per batch row at a
// time.
type Scores struct {
	B, S, V int

	DType DType
	Data  []float32
	Raw   []byte
}

// NewScores allocates a zero-initialised f32 scores tensor.
func NewScores(b, s, v int) *Scores {
	if b < 0 || s < 0 || v < 0 {
		panic("tensor: negative dimension for scores")
	}
	return &Scores{B: b, S: s, V: v, DType: DTypeF32, Data: make([]float32, b*s*v)}
}

// NewScoresFromData creates an f32 scores tensor backed by existing data.
func NewScoresFromData(b, s, v int, data []float32) *Scores {
	if b*s*v != len(data) {
		panic("tensor: scores data length mismatch")
	}
	return &Scores{B: b, S: s, V: v, DType: DTypeF32, Data: data}
}

// NewScoresFromRaw creates a scores tensor backed by raw bytes in the given
// dtype. The raw slice must contain exactly b*s*v elements.
func NewScoresFromRaw(b, s, v int, dtype DType, raw []byte) (*Scores, error) {
	if b < 0 || s < 0 || v < 0 {
		return nil, errNegativeDim
	}
	elemSize, ok := dtypeElemSize(dtype)
	if !ok {
		return nil, errUnsupportedDType
	}
	if dtype == DTypeF32 {
		return nil, errUnsupportedDType
	}
	want := b * s * v * elemSize
	if len(raw) != want {
		return nil, errRawSizeMismatch
	}
	return &Scores{B: b, S: s, V: v, DType: dtype, Raw: raw}, nil
}

// rowIndex flattens (b, s) into a row ordinal. Panics when out of range.
func (t *Scores) rowIndex(b, s int) int {
	if b < 0 || b >= t.B || s < 0 || s >= t.S {
		panic("tensor: scores row index out of range")
	}
	return b*t.S + s
}

// VocabRow returns the vocab-sized score vector at (b, s). For f32 tensors it
// is a view into the underlying data; for reduced-precision tensors a freshly
// decoded copy is returned.
func (t *Scores) VocabRow(b, s int) []float32 {
	row := t.rowIndex(b, s)
	if t.DType == DTypeF32 {
		start := row * t.V
		return t.Data[start : start+t.V]
	}
	dst := make([]float32, t.V)
	t.VocabRowTo(dst, b, s)
	return dst
}

// VocabRowTo decodes the vocab row at (b, s) into dst. dst must have length
// >= V.
func (t *Scores) VocabRowTo(dst []float32, b, s int) {
	row := t.rowIndex(b, s)
	if len(dst) < t.V {
		panic("tensor: scores row buffer too small")
	}
	if t.DType == DTypeF32 {
		start := row * t.V
		copy(dst[:t.V], t.Data[start:start+t.V])
		return
	}
	off := row * t.V * 2
	switch t.DType {
	case DTypeBF16:
		for j := 0; j < t.V; j++ {
			dst[j] = bf16ToF32(u16le(t.Raw, off+j*2))
		}
	case DTypeF16:
		for j := 0; j < t.V; j++ {
			dst[j] = fp16ToF32(u16le(t.Raw, off+j*2))
		}
	default:
		panic("tensor: unsupported dtype for row decode")
	}
}

// At returns the score for vocabulary entry v at (b, s).
func (t *Scores) At(b, s, v int) float32 {
	row := t.rowIndex(b, s)
	if v < 0 || v >= t.V {
		panic("tensor: vocab index out of range")
	}
	switch t.DType {
	case DTypeF32:
		return t.Data[row*t.V+v]
	case DTypeBF16:
		return bf16ToF32(u16le(t.Raw, (row*t.V+v)*2))
	case DTypeF16:
		return fp16ToF32(u16le(t.Raw, (row*t.V+v)*2))
	default:
		panic("tensor: unsupported dtype")
	}
}

// Scale returns a new tensor holding t with every element multiplied by
// factor. The result keeps the dtype of the input: reduced-precision scores
// are decoded, scaled and re-encoded with round-to-nearest-even, so the
// precision loss of the storage format is carried through exactly as the
// caller's tensors would carry it.
func (t *Scores) Scale(factor float32) *Scores {
	n := t.B * t.S * t.V
	switch t.DType {
	case DTypeF32:
		out := make([]float32, n)
		for i, v := range t.Data {
			out[i] = v * factor
		}
		return &Scores{B: t.B, S: t.S, V: t.V, DType: DTypeF32, Data: out}
	case DTypeBF16:
		out := make([]byte, n*2)
		for i := 0; i < n; i++ {
			v := bf16ToF32(u16le(t.Raw, i*2)) * factor
			putU16le(out, i*2, bf16FromF32Bits(math.Float32bits(v)))
		}
		return &Scores{B: t.B, S: t.S, V: t.V, DType: DTypeBF16, Raw: out}
	case DTypeF16:
		out := make([]byte, n*2)
		for i := 0; i < n; i++ {
			v := fp16ToF32(u16le(t.Raw, i*2)) * factor
			putU16le(out, i*2, float32ToFP16Bits(v))
		}
		return &Scores{B: t.B, S: t.S, V: t.V, DType: DTypeF16, Raw: out}
	default:
		panic("tensor: unsupported dtype")
	}
}

// EncodeRaw re-encodes an f32 scores tensor into the requested reduced
// precision. It is primarily used by tests and tooling that exercise the
// reduced-precision code paths.
func (t *Scores) EncodeRaw(dtype DType) (*Scores, error) {
	if t.DType != DTypeF32 {
		return nil, errUnsupportedDType
	}
	switch dtype {
	case DTypeBF16:
		return &Scores{B: t.B, S: t.S, V: t.V, DType: DTypeBF16, Raw: EncodeBF16(t.Data)}, nil
	case DTypeF16:
		return &Scores{B: t.B, S: t.S, V: t.V, DType: DTypeF16, Raw: EncodeFP16(t.Data)}, nil
	default:
		return nil, errUnsupportedDType
	}
}

var (
	errNegativeDim      = fmtError("tensor: negative dimension")
	errUnsupportedDType = fmtError("tensor: unsupported dtype")
	errRawSizeMismatch  = fmtError("tensor: raw data length mismatch")
)

type fmtError string

func (e fmtError) Error() string { return string(e) }
