package loss

import "fmt"

// VariantSpec is the serialized form of a variant configuration: a type tag
// plus the union of both engines' hyperparameters. It is what config files
// and API requests carry; Build turns it into the concrete VariantConfig.
type VariantSpec struct {
	Type                  string  `json:"type" yaml:"type"`
	EpsilonLow            float64 `json:"epsilon_low" yaml:"epsilon_low"`
	EpsilonHigh           float64 `json:"epsilon_high" yaml:"epsilon_high"`
	ClipRatio             float64 `json:"clip_ratio" yaml:"clip_ratio"`
	HighestEntropyPercent float64 `json:"highest_entropy_percent" yaml:"highest_entropy_percent"`
}

// Build validates the spec and returns the matching engine configuration.
// An absent HighestEntropyPercent defaults to 1 (no entropy narrowing).
// Unknown type tags yield ErrUnknownVariant.
func (s VariantSpec) Build() (VariantConfig, error) {
	if s.ClipRatio <= 0 {
		return nil, fmt.Errorf("loss: clip_ratio must be positive, got %g", s.ClipRatio)
	}
	hep := s.HighestEntropyPercent
	if hep == 0 {
		hep = 1
	}
	if hep < 0 || hep > 1 {
		return nil, fmt.Errorf("loss: highest_entropy_percent must be in (0, 1], got %g", s.HighestEntropyPercent)
	}
	switch s.Type {
	case "clip":
		return ClipConfig{
			EpsilonLow:            s.EpsilonLow,
			EpsilonHigh:           s.EpsilonHigh,
			ClipRatio:             s.ClipRatio,
			HighestEntropyPercent: hep,
		}, nil
	case "ratio":
		return RatioConfig{
			ClipRatio:             s.ClipRatio,
			HighestEntropyPercent: hep,
		}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, s.Type)
	}
}
