package edgefx

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Mode selects the base edge detector.
// The ordinal of each mode equals the ordinal of its base-detector Stage.
type Mode uint8

const (
	// ModeDepth detects discontinuities in scene depth.
	ModeDepth Mode = iota

	// ModeColor detects luminance edges in the color frame.
	ModeColor

	// ModeNormal detects discontinuities in surface normals.
	ModeNormal

	// ModeCustom combines color and depth-normal cues and enables the
	// soft-blur/color-restore/bloom post effect when refined.
	ModeCustom

	modeCount
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeDepth:
		return "Depth"
	case ModeColor:
		return "Color"
	case ModeNormal:
		return "Normal"
	case ModeCustom:
		return "Custom"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}

// IsValid reports whether m is one of the four detection modes.
func (m Mode) IsValid() bool {
	return m < modeCount
}

// ParseMode parses a case-sensitive lower-case mode name.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "depth":
		return ModeDepth, nil
	case "color":
		return ModeColor, nil
	case "normal":
		return ModeNormal, nil
	case "custom":
		return ModeCustom, nil
	default:
		return 0, fmt.Errorf("%w: unknown mode %q", ErrInvalidConfig, s)
	}
}

// Default threshold values for hysteresis.
const (
	DefaultLowThreshold  float32 = 0.1
	DefaultHighThreshold float32 = 0.3
)

// Config is the per-frame configuration that drives orchestration.
// It is a plain value: the pipeline reads it once per frame and never
// retains it.
type Config struct {
	// Enabled turns the filter on. When false the source frame is copied
	// to the destination unchanged.
	Enabled bool

	// Mode selects the base detector.
	Mode Mode

	// Refine enables the Canny refinement stages and the post effects.
	Refine bool

	// CelShade composites a cel-shaded overlay. Only effective with Refine.
	CelShade bool

	// LowThreshold and HighThreshold parameterize hysteresis. Values outside
	// [0,1] are clamped. Low <= High is a convention, not enforced.
	LowThreshold  float32
	HighThreshold float32
}

// DefaultConfig returns an enabled Color-mode configuration without
// refinement and with the default thresholds.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Mode:          ModeColor,
		LowThreshold:  DefaultLowThreshold,
		HighThreshold: DefaultHighThreshold,
	}
}

// Normalized returns a copy of c with both thresholds clamped to [0,1].
// An unknown mode is left untouched; Validate reports it.
func (c Config) Normalized() Config {
	c.LowThreshold = clamp(c.LowThreshold, 0, 1)
	c.HighThreshold = clamp(c.HighThreshold, 0, 1)
	return c
}

// Validate reports configuration problems wrapped in ErrInvalidConfig.
// Threshold problems are recoverable by Normalized; an unknown mode is not.
func (c Config) Validate() error {
	if !c.Mode.IsValid() {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Mode)
	}
	if !inUnit(c.LowThreshold) || !inUnit(c.HighThreshold) {
		return fmt.Errorf("%w: thresholds (%g, %g) outside [0,1]",
			ErrInvalidConfig, c.LowThreshold, c.HighThreshold)
	}
	if c.LowThreshold > c.HighThreshold {
		return fmt.Errorf("%w: low threshold %g above high threshold %g",
			ErrInvalidConfig, c.LowThreshold, c.HighThreshold)
	}
	return nil
}

// celShading reports whether the cel-shade branch runs for c.
func (c Config) celShading() bool {
	return c.Refine && c.CelShade
}

// customEffect reports whether the Custom post-effect branch runs for c.
func (c Config) customEffect() bool {
	return c.Refine && c.Mode == ModeCustom && !c.CelShade
}

// String returns a compact description used in logs.
func (c Config) String() string {
	if !c.Enabled {
		return "Config[disabled]"
	}
	return fmt.Sprintf("Config[%s refine=%t cel=%t low=%g high=%g]",
		c.Mode, c.Refine, c.CelShade, c.LowThreshold, c.HighThreshold)
}

func clamp[T constraints.Float](v, lo, hi T) T {
	if v != v { // NaN
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func inUnit(v float32) bool {
	return v >= 0 && v <= 1
}
