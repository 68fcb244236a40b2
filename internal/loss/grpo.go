package loss

import (
	"errors"
	"fmt"
	"math"

	"github.com/samcharles93/grpo/internal/tensor"
)

// ErrUnknownVariant reports a loss-variant configuration the dispatcher does
// not recognize. It is returned before any tensor work begins.
var ErrUnknownVariant = errors.New("loss: unknown GRPO variant")

// VariantConfig selects one of the two GRPO loss engines and carries its
// hyperparameters. The interface is sealed: ClipConfig and RatioConfig are
// the only implementations.
type VariantConfig interface {
	variant() string
}

// ClipConfig configures the clip-policy engine: the importance ratio is
// clamped to [0, ClipRatio], a second ratio is clamped to
// [1-EpsilonLow, 1+EpsilonHigh], and the per-token loss is the pessimistic
// maximum of the two surrogates.
type ClipConfig struct {
	EpsilonLow            float64
	EpsilonHigh           float64
	ClipRatio             float64
	HighestEntropyPercent float64
}

func (ClipConfig) variant() string { return "clip" }

// RatioConfig configures the ratio-policy engine: the raw importance ratio is
// clamped to [0, ClipRatio] and tokens whose raw ratio exceeded the ceiling
// are counted as clipped.
type RatioConfig struct {
	ClipRatio             float64
	HighestEntropyPercent float64
}

func (RatioConfig) variant() string { return "ratio" }

// Result carries the three scalars of one GRPO loss evaluation.
type Result struct {
	Loss          float64
	Ratio         float64
	ClippedTokens float64
}

// GRPO computes the policy-gradient training loss for one batch. shifted must
// already be realigned via Shift so that position i predicts token i. The
// returned loss and ratio are masked sums over the final mask (narrowed by
// entropy selection when the variant requests it); the clipped-token count is
// always reduced over the original mask.
func GRPO(
	shifted *tensor.Scores,
	ids *tensor.IntGrid,
	advantages *tensor.Grid,
	refLogprobs *tensor.Grid,
	mask *tensor.IntGrid,
	temperature float64,
	cfg VariantConfig,
) (Result, error) {
	switch c := cfg.(type) {
	case ClipConfig:
		if err := checkTemperature(temperature); err != nil {
			return Result{}, err
		}
		checkShapes(shifted, ids, advantages, refLogprobs, mask)
		return clipLoss(shifted, ids, advantages, refLogprobs, mask, temperature, c), nil
	case RatioConfig:
		if err := checkTemperature(temperature); err != nil {
			return Result{}, err
		}
		checkShapes(shifted, ids, advantages, refLogprobs, mask)
		return ratioLoss(shifted, ids, advantages, refLogprobs, mask, temperature, c), nil
	default:
		return Result{}, fmt.Errorf("%w: %T", ErrUnknownVariant, cfg)
	}
}

func clipLoss(
	shifted *tensor.Scores,
	ids *tensor.IntGrid,
	advantages *tensor.Grid,
	refLogprobs *tensor.Grid,
	mask *tensor.IntGrid,
	temperature float64,
	cfg ClipConfig,
) Result {
	scaled := shifted.Scale(float32(1.0 / temperature))
	logps := SelectiveLogProbs(scaled, ids)

	perToken := tensor.NewGrid(logps.B, logps.S)
	coef2Grid := tensor.NewGrid(logps.B, logps.S)
	clipped := tensor.NewGrid(logps.B, logps.S)

	for i := range logps.Data {
		adv := float64(advantages.Data[i])
		delta := float64(logps.Data[i]) - float64(refLogprobs.Data[i])

		coef1 := clamp(math.Exp(delta), 0, cfg.ClipRatio)
		coef2 := clamp(coef1, 1-cfg.EpsilonLow, 1+cfg.EpsilonHigh)

		loss1 := -coef1 * adv
		loss2 := -coef2 * adv
		perToken.Data[i] = float32(math.Max(loss1, loss2))
		coef2Grid.Data[i] = float32(coef2)
		if loss1 < loss2 {
			clipped.Data[i] = 1
		}
	}

	res := Result{ClippedTokens: MaskedSum(clipped, mask)}

	finalMask := mask
	if cfg.HighestEntropyPercent < 1.0 {
		finalMask = HighestEntropyMask(scaled, mask, cfg.HighestEntropyPercent)
	}
	res.Loss = MaskedSum(perToken, finalMask)
	res.Ratio = MaskedSum(coef2Grid, finalMask)
	return res
}

func ratioLoss(
	shifted *tensor.Scores,
	ids *tensor.IntGrid,
	advantages *tensor.Grid,
	refLogprobs *tensor.Grid,
	mask *tensor.IntGrid,
	temperature float64,
	cfg RatioConfig,
) Result {
	scaled := shifted.Scale(float32(1.0 / temperature))
	logps := SelectiveLogProbs(scaled, ids)

	perToken := tensor.NewGrid(logps.B, logps.S)
	ratioGrid := tensor.NewGrid(logps.B, logps.S)
	clipped := tensor.NewGrid(logps.B, logps.S)

	for i := range logps.Data {
		adv := float64(advantages.Data[i])
		delta := float64(logps.Data[i]) - float64(refLogprobs.Data[i])

		raw := math.Exp(delta)
		if raw > cfg.ClipRatio {
			clipped.Data[i] = 1
		}
		ratio := clamp(raw, 0, cfg.ClipRatio)
		ratioGrid.Data[i] = float32(ratio)
		perToken.Data[i] = float32(-ratio * adv)
	}

	res := Result{ClippedTokens: MaskedSum(clipped, mask)}

	finalMask := mask
	if cfg.HighestEntropyPercent < 1.0 {
		finalMask = HighestEntropyMask(scaled, mask, cfg.HighestEntropyPercent)
	}
	res.Loss = MaskedSum(perToken, finalMask)
	res.Ratio = MaskedSum(ratioGrid, finalMask)
	return res
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func checkTemperature(temperature float64) error {
	if temperature <= 0 {
		return fmt.Errorf("loss: temperature must be positive, got %g", temperature)
	}
	return nil
}

// checkShapes enforces the (batch, seq) contract across every input tensor.
// A violation is a programming error upstream, so it panics rather than
// returning an error.
func checkShapes(shifted *tensor.Scores, ids *tensor.IntGrid, advantages, refLogprobs *tensor.Grid, mask *tensor.IntGrid) {
	b, s := shifted.B, shifted.S
	if ids.B != b || ids.S != s {
		panic("loss: token ids disagree with scores on (batch, seq)")
	}
	if advantages.B != b || advantages.S != s {
		panic("loss: advantages disagree with scores on (batch, seq)")
	}
	if refLogprobs.B != b || refLogprobs.S != s {
		panic("loss: reference logprobs disagree with scores on (batch, seq)")
	}
	if mask.B != b || mask.S != s {
		panic("loss: loss mask disagrees with scores on (batch, seq)")
	}
}
