package gbf

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

// File is an open batch file. When mmapped, section views alias the mapping
// and remain valid only until Close.
type File struct {
	Data     []byte
	Header   *Header
	Sections []Section
	mmapped  bool
}

// Open maps a batch file read-only and validates its structure. If mmap is
// unavailable, it falls back to ReadAt-based loading. The returned file must
// be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 < headerSize {
		return nil, ErrCorruptFile
	}
	if size64 > int64(int(^uint(0)>>1)) {
		// cannot index this file safely as []byte on this architecture.
		return nil, ErrCorruptFile
	}
	size := int(size64)

	// Prefer mmap where available for zero-copy score views.
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		gf, parseErr := parseFileData(data, true)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		return gf, nil
	}

	// Fallback path that does not require mmap support.
	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

// OpenReaderAt loads and validates a batch file from a random-access reader
// without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return parseFileData(data, false)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func parseFileData(data []byte, mmapped bool) (*File, error) {
	hdr, ok := decodeHeader(data)
	if !ok {
		return nil, ErrCorruptFile
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}

	dirStart := uint64(headerSize)
	dirEnd := dirStart + uint64(hdr.SectionCount)*sectionSize
	if dirEnd < dirStart || dirEnd > uint64(len(data)) {
		return nil, ErrCorruptFile
	}

	sections := make([]Section, hdr.SectionCount)
	for i := range sections {
		start := int(dirStart) + i*sectionSize
		sec, ok := decodeSection(data[start : start+sectionSize])
		if !ok {
			return nil, ErrCorruptFile
		}
		end := sec.Offset + sec.Size
		if end < sec.Offset || end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: section %d out of bounds", ErrCorruptFile, i)
		}
		if sec.Offset < dirEnd {
			return nil, fmt.Errorf("%w: section %d overlaps directory", ErrCorruptFile, i)
		}
		if sec.Offset%payloadAlign != 0 {
			return nil, fmt.Errorf("%w: section %d offset not %d-byte aligned", ErrCorruptFile, i, payloadAlign)
		}
		sections[i] = sec
	}

	return &File{Data: data, Header: &hdr, Sections: sections, mmapped: mmapped}, nil
}

// SectionData returns the raw bytes of the first section with the given
// type, or nil when absent. The slice aliases the mapping.
func (f *File) SectionData(typ uint32) []byte {
	for _, s := range f.Sections {
		if s.Type == typ {
			return f.Data[s.Offset : s.Offset+s.Size]
		}
	}
	return nil
}

// Payload decodes the file into a Payload. Typed sections are copied out of
// the mapping; raw reduced-precision scores stay a zero-copy view, so the
// payload must not outlive the file.
func (f *File) Payload() (*Payload, error) {
	h := f.Header
	p := &Payload{
		BatchSize:  int(h.BatchSize),
		SeqLen:     int(h.SeqLen),
		VocabSize:  int(h.VocabSize),
		ScoreDType: h.ScoreDType,
	}
	n := p.tokens()

	var err error
	if p.TokenIDs, err = f.sectionI32(SectionTokenIDs, n); err != nil {
		return nil, err
	}
	if h.Flags&FlagHasPositions != 0 {
		if p.PositionIDs, err = f.sectionI32(SectionPositionIDs, n); err != nil {
			return nil, err
		}
	}
	if p.Advantages, err = f.sectionF32(SectionAdvantages, n); err != nil {
		return nil, err
	}
	if p.RefLogprobs, err = f.sectionF32(SectionRefLogprobs, n); err != nil {
		return nil, err
	}
	maskData := f.SectionData(SectionLossMask)
	if len(maskData) != n {
		return nil, fmt.Errorf("%w: loss mask section", ErrCorruptFile)
	}
	p.LossMask = append([]byte(nil), maskData...)

	if h.Flags&FlagHasScores != 0 {
		raw := f.SectionData(SectionScores)
		switch h.ScoreDType {
		case DTypeF32:
			if p.ScoresF32, err = f.sectionF32(SectionScores, n*p.VocabSize); err != nil {
				return nil, err
			}
		case DTypeF16, DTypeBF16:
			if len(raw) != n*p.VocabSize*2 {
				return nil, fmt.Errorf("%w: scores section", ErrCorruptFile)
			}
			p.ScoresRaw = raw
		default:
			return nil, fmt.Errorf("%w: score dtype %d", ErrCorruptFile, h.ScoreDType)
		}
	}
	return p, nil
}

func (f *File) sectionI32(typ uint32, want int) ([]int32, error) {
	raw := f.SectionData(typ)
	if len(raw) != want*4 {
		return nil, fmt.Errorf("%w: section %d length", ErrCorruptFile, typ)
	}
	out := make([]int32, want)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func (f *File) sectionF32(typ uint32, want int) ([]float32, error) {
	raw := f.SectionData(typ)
	if len(raw) != want*4 {
		return nil, fmt.Errorf("%w: section %d length", ErrCorruptFile, typ)
	}
	out := make([]float32, want)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil || f.Data == nil {
		return nil
	}
	var err error
	if f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.Sections = nil
	f.mmapped = false
	return err
}
