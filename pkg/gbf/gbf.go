// Package gbf implements the GRPO batch file format: a compact binary
// container for one training micro-batch (token ids, advantages, reference
// log-probabilities, loss mask and optional shifted scores). Files are
// written once and mapped read-only; score payloads are exposed as zero-copy
// views into the mapping.
package gbf

import "encoding/binary"

const (
	Magic = "GBF\x00"

	// CurrentMajor changes only on breaking layout changes.
	CurrentMajor uint16 = 1
	CurrentMinor uint16 = 0

	headerSize   = 40
	sectionSize  = 24
	payloadAlign = 8
)

// Score payload encodings.
const (
	DTypeF32 uint8 = iota
	DTypeF16
	DTypeBF16
)

// Header flags.
const (
	FlagHasPositions uint8 = 1 << 0
	FlagHasScores    uint8 = 1 << 1
)

// Section types, in canonical file order.
const (
	SectionTokenIDs uint32 = iota + 1
	SectionPositionIDs
	SectionAdvantages
	SectionRefLogprobs
	SectionLossMask
	SectionScores
)

type Header struct {
	Magic        [4]byte
	Major        uint16
	Minor        uint16
	BatchSize    uint32
	SeqLen       uint32
	VocabSize    uint32
	ScoreDType   uint8
	Flags        uint8
	SectionCount uint32
	FileSize     uint64
}

func (h *Header) Valid() bool {
	if string(h.Magic[:]) != Magic {
		return false
	}
	if h.BatchSize == 0 || h.SeqLen == 0 || h.VocabSize == 0 {
		return false
	}
	return h.SectionCount > 0
}

func (h *Header) Compatible() bool {
	return h.Major == CurrentMajor
}

type Section struct {
	Type   uint32
	Offset uint64
	Size   uint64
}

func encodeHeader(dst []byte, h *Header) {
	copy(dst[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[4:6], h.Major)
	binary.LittleEndian.PutUint16(dst[6:8], h.Minor)
	binary.LittleEndian.PutUint32(dst[8:12], h.BatchSize)
	binary.LittleEndian.PutUint32(dst[12:16], h.SeqLen)
	binary.LittleEndian.PutUint32(dst[16:20], h.VocabSize)
	dst[20] = h.ScoreDType
	dst[21] = h.Flags
	// dst[22:24] reserved
	binary.LittleEndian.PutUint32(dst[24:28], h.SectionCount)
	// dst[28:32] reserved
	binary.LittleEndian.PutUint64(dst[32:40], h.FileSize)
}

func decodeHeader(src []byte) (Header, bool) {
	if len(src) < headerSize {
		return Header{}, false
	}
	var h Header
	copy(h.Magic[:], src[0:4])
	h.Major = binary.LittleEndian.Uint16(src[4:6])
	h.Minor = binary.LittleEndian.Uint16(src[6:8])
	h.BatchSize = binary.LittleEndian.Uint32(src[8:12])
	h.SeqLen = binary.LittleEndian.Uint32(src[12:16])
	h.VocabSize = binary.LittleEndian.Uint32(src[16:20])
	h.ScoreDType = src[20]
	h.Flags = src[21]
	h.SectionCount = binary.LittleEndian.Uint32(src[24:28])
	h.FileSize = binary.LittleEndian.Uint64(src[32:40])
	return h, true
}

func encodeSection(dst []byte, s Section) {
	binary.LittleEndian.PutUint32(dst[0:4], s.Type)
	// dst[4:8] reserved
	binary.LittleEndian.PutUint64(dst[8:16], s.Offset)
	binary.LittleEndian.PutUint64(dst[16:24], s.Size)
}

func decodeSection(src []byte) (Section, bool) {
	if len(src) < sectionSize {
		return Section{}, false
	}
	return Section{
		Type:   binary.LittleEndian.Uint32(src[0:4]),
		Offset: binary.LittleEndian.Uint64(src[8:16]),
		Size:   binary.LittleEndian.Uint64(src[16:24]),
	}, true
}

// Payload is the decoded content of a batch file. ScoresRaw (for f16/bf16
// payloads) is a view into the underlying mapping and is only valid until
// the file is closed.
type Payload struct {
	BatchSize  int
	SeqLen     int
	VocabSize  int
	ScoreDType uint8

	TokenIDs    []int32
	PositionIDs []int32
	Advantages  []float32
	RefLogprobs []float32
	LossMask    []uint8

	ScoresF32 []float32
	ScoresRaw []byte
}

func (p *Payload) tokens() int { return p.BatchSize * p.SeqLen }
