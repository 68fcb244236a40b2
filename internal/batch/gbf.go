package batch

import (
	"fmt"

	"github.com/samcharles93/grpo/pkg/gbf"
)

// FromGBF builds a validated batch from a decoded binary payload. Raw score
// bytes are copied so the batch survives the backing file being closed.
func FromGBF(p *gbf.Payload) (*Batch, error) {
	b := &Batch{
		BatchSize:   p.BatchSize,
		SeqLen:      p.SeqLen,
		VocabSize:   p.VocabSize,
		TokenIDs:    p.TokenIDs,
		PositionIDs: p.PositionIDs,
		Advantages:  p.Advantages,
		RefLogprobs: p.RefLogprobs,
	}
	switch p.ScoreDType {
	case gbf.DTypeF32:
	case gbf.DTypeBF16:
		b.ScoreDType = "bf16"
	case gbf.DTypeF16:
		b.ScoreDType = "f16"
	default:
		return nil, fmt.Errorf("batch: gbf score dtype %d unsupported", p.ScoreDType)
	}

	b.LossMask = make([]int32, len(p.LossMask))
	for i, m := range p.LossMask {
		b.LossMask[i] = int32(m)
	}
	if p.ScoresF32 != nil {
		b.Scores = p.ScoresF32
	}
	if p.ScoresRaw != nil {
		b.ScoresRaw = append([]byte(nil), p.ScoresRaw...)
	}

	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// GBFPayload converts the batch into the binary file payload form. The batch
// must validate.
func (b *Batch) GBFPayload() (*gbf.Payload, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}
	p := &gbf.Payload{
		BatchSize:   b.BatchSize,
		SeqLen:      b.SeqLen,
		VocabSize:   b.VocabSize,
		TokenIDs:    b.TokenIDs,
		PositionIDs: b.PositionIDs,
		Advantages:  b.Advantages,
		RefLogprobs: b.RefLogprobs,
		ScoresF32:   b.Scores,
		ScoresRaw:   b.ScoresRaw,
	}
	switch b.ScoreDType {
	case "", "f32":
		p.ScoreDType = gbf.DTypeF32
	case "bf16":
		p.ScoreDType = gbf.DTypeBF16
	case "f16":
		p.ScoreDType = gbf.DTypeF16
	default:
		return nil, fmt.Errorf("batch: score_dtype %q unsupported in gbf", b.ScoreDType)
	}

	p.LossMask = make([]uint8, len(b.LossMask))
	for i, m := range b.LossMask {
		p.LossMask[i] = uint8(m)
	}
	return p, nil
}

// LoadGBF reads a batch from a binary batch file.
func LoadGBF(path string) (*Batch, error) {
	f, err := gbf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	p, err := f.Payload()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	b, err := FromGBF(p)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// SaveGBF writes the batch as a binary batch file.
func (b *Batch) SaveGBF(path string) error {
	p, err := b.GBFPayload()
	if err != nil {
		return err
	}
	return gbf.WriteFile(path, p)
}
