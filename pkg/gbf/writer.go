package gbf

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// WriteFile serializes the payload to path. Sections are laid out in
// canonical order, each aligned so readers can take typed views into the
// mapping.
func WriteFile(path string, p *Payload) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Encode serializes the payload into a single buffer.
func Encode(p *Payload) ([]byte, error) {
	if err := checkPayload(p); err != nil {
		return nil, err
	}

	var sections []Section
	var bodies [][]byte
	add := func(typ uint32, body []byte) {
		sections = append(sections, Section{Type: typ, Size: uint64(len(body))})
		bodies = append(bodies, body)
	}

	add(SectionTokenIDs, encodeI32(p.TokenIDs))
	if p.PositionIDs != nil {
		add(SectionPositionIDs, encodeI32(p.PositionIDs))
	}
	add(SectionAdvantages, encodeF32(p.Advantages))
	add(SectionRefLogprobs, encodeF32(p.RefLogprobs))
	add(SectionLossMask, append([]byte(nil), p.LossMask...))
	switch {
	case p.ScoresF32 != nil:
		add(SectionScores, encodeF32(p.ScoresF32))
	case p.ScoresRaw != nil:
		add(SectionScores, p.ScoresRaw)
	}

	dirStart := uint64(headerSize)
	off := align(dirStart + uint64(len(sections)*sectionSize))
	for i := range sections {
		sections[i].Offset = off
		off = align(off + sections[i].Size)
	}
	fileSize := off

	flags := uint8(0)
	if p.PositionIDs != nil {
		flags |= FlagHasPositions
	}
	if p.ScoresF32 != nil || p.ScoresRaw != nil {
		flags |= FlagHasScores
	}

	h := Header{
		Major:        CurrentMajor,
		Minor:        CurrentMinor,
		BatchSize:    uint32(p.BatchSize),
		SeqLen:       uint32(p.SeqLen),
		VocabSize:    uint32(p.VocabSize),
		ScoreDType:   p.ScoreDType,
		Flags:        flags,
		SectionCount: uint32(len(sections)),
		FileSize:     fileSize,
	}
	copy(h.Magic[:], Magic)

	out := make([]byte, fileSize)
	encodeHeader(out[:headerSize], &h)
	for i, s := range sections {
		encodeSection(out[int(dirStart)+i*sectionSize:], s)
		copy(out[s.Offset:], bodies[i])
	}
	return out, nil
}

func checkPayload(p *Payload) error {
	if p.BatchSize <= 0 || p.SeqLen <= 0 || p.VocabSize <= 0 {
		return fmt.Errorf("%w: non-positive dimensions", ErrBadPayload)
	}
	n := p.tokens()
	if len(p.TokenIDs) != n {
		return fmt.Errorf("%w: token ids length %d, want %d", ErrBadPayload, len(p.TokenIDs), n)
	}
	if p.PositionIDs != nil && len(p.PositionIDs) != n {
		return fmt.Errorf("%w: position ids length %d, want %d", ErrBadPayload, len(p.PositionIDs), n)
	}
	if len(p.Advantages) != n || len(p.RefLogprobs) != n || len(p.LossMask) != n {
		return fmt.Errorf("%w: per-token section length mismatch", ErrBadPayload)
	}
	if p.ScoresF32 != nil && p.ScoresRaw != nil {
		return fmt.Errorf("%w: both f32 and raw scores present", ErrBadPayload)
	}
	switch p.ScoreDType {
	case DTypeF32:
		if p.ScoresRaw != nil {
			return fmt.Errorf("%w: raw scores with f32 dtype", ErrBadPayload)
		}
		if p.ScoresF32 != nil && len(p.ScoresF32) != n*p.VocabSize {
			return fmt.Errorf("%w: scores length %d, want %d", ErrBadPayload, len(p.ScoresF32), n*p.VocabSize)
		}
	case DTypeF16, DTypeBF16:
		if p.ScoresF32 != nil {
			return fmt.Errorf("%w: f32 scores with reduced-precision dtype", ErrBadPayload)
		}
		if p.ScoresRaw != nil && len(p.ScoresRaw) != n*p.VocabSize*2 {
			return fmt.Errorf("%w: raw scores length %d, want %d", ErrBadPayload, len(p.ScoresRaw), n*p.VocabSize*2)
		}
	default:
		return fmt.Errorf("%w: unknown score dtype %d", ErrBadPayload, p.ScoreDType)
	}
	return nil
}

func align(off uint64) uint64 {
	return (off + payloadAlign - 1) &^ uint64(payloadAlign-1)
}

func encodeI32(vals []int32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], uint32(v))
	}
	return out
}

func encodeF32(vals []float32) []byte {
	out := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}
