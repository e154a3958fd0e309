package edgefx

import (
	"fmt"
	"sort"
)

// Stage identifies one compute kernel in the stage library.
//
// The first four stages are the base detectors and share ordinals with
// Mode. The rest are refinement and post-effect stages.
type Stage uint8

const (
	// StageDepth is the depth-discontinuity detector.
	StageDepth Stage = iota
	// StageColor is the luminance edge detector.
	StageColor
	// StageNormal is the normal-discontinuity detector.
	StageNormal
	// StageCustom is the combined detector.
	StageCustom

	// StageSmooth is the Gaussian smoothing pass of the Canny refinement.
	StageSmooth
	// StageGradient computes gradient magnitude and direction.
	StageGradient
	// StageNonMax thins edges by non-maximum suppression.
	StageNonMax
	// StageHysteresis applies double thresholding.
	StageHysteresis

	// StageSoftSmooth is the soft blur used by the post effects.
	StageSoftSmooth
	// StageColorRestore blends original color back under the edges.
	StageColorRestore
	// StageBloom adds a time-varying glow.
	StageBloom
	// StageCelShade quantizes the source into flat bands with an edge overlay.
	StageCelShade

	stageCount
)

var stageNames = [stageCount]string{
	StageDepth:        "Depth",
	StageColor:        "Color",
	StageNormal:       "Normal",
	StageCustom:       "Custom",
	StageSmooth:       "Smooth",
	StageGradient:     "Gradient",
	StageNonMax:       "NonMax",
	StageHysteresis:   "Hysteresis",
	StageSoftSmooth:   "SoftSmooth",
	StageColorRestore: "ColorRestore",
	StageBloom:        "Bloom",
	StageCelShade:     "CelShade",
}

// String returns the stage name.
func (s Stage) String() string {
	if s < stageCount {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", s)
}

// IsValid reports whether s names a stage in the library.
func (s Stage) IsValid() bool {
	return s < stageCount
}

// IsBaseDetector reports whether s is one of the four base detectors.
func (s Stage) IsBaseDetector() bool {
	return s <= StageCustom
}

// AllStages returns every stage in ordinal order.
func AllStages() []Stage {
	out := make([]Stage, stageCount)
	for i := range out {
		out[i] = Stage(i)
	}
	return out
}

// cannyStages is the fixed refinement order.
var cannyStages = [...]Stage{StageSmooth, StageGradient, StageNonMax, StageHysteresis}

// BaseStage returns the base-detector stage for the mode.
// The mapping is the identity on ordinals.
func (m Mode) BaseStage() Stage {
	return Stage(m)
}

// StageHandle is an opaque reference to a compiled kernel, owned by a device.
type StageHandle uint64

// StageResolver maps stages to device kernels.
type StageResolver interface {
	// ResolveStage returns the kernel handle for s, or false when the
	// device has no kernel for it.
	ResolveStage(s Stage) (StageHandle, bool)
}

// Catalog is the immutable mapping from stages to kernel handles,
// resolved once when a Pipeline is created.
type Catalog struct {
	handles  [stageCount]StageHandle
	resolved [stageCount]bool
}

// ResolveCatalog queries r for every stage. A nil resolver yields an
// empty catalog.
func ResolveCatalog(r StageResolver) *Catalog {
	c := &Catalog{}
	if r == nil {
		return c
	}
	for s := Stage(0); s < stageCount; s++ {
		if h, ok := r.ResolveStage(s); ok {
			c.handles[s] = h
			c.resolved[s] = true
		}
	}
	return c
}

// Handle returns the kernel handle for s.
func (c *Catalog) Handle(s Stage) (StageHandle, bool) {
	if c == nil || !s.IsValid() || !c.resolved[s] {
		return 0, false
	}
	return c.handles[s], true
}

// Empty reports whether no stage resolved.
func (c *Catalog) Empty() bool {
	if c == nil {
		return true
	}
	for _, ok := range c.resolved {
		if ok {
			return false
		}
	}
	return true
}

// Complete reports whether every stage resolved.
func (c *Catalog) Complete() bool {
	return len(c.Missing()) == 0
}

// Missing returns the unresolved stages in ordinal order.
func (c *Catalog) Missing() []Stage {
	var out []Stage
	for s := Stage(0); s < stageCount; s++ {
		if c == nil || !c.resolved[s] {
			out = append(out, s)
		}
	}
	return out
}

// RequiredStages returns the stages cfg would dispatch, deduplicated and
// sorted. A disabled config requires nothing.
func RequiredStages(cfg Config) []Stage {
	if !cfg.Enabled {
		return nil
	}
	set := map[Stage]bool{cfg.Mode.BaseStage(): true}
	if cfg.Refine {
		for _, s := range cannyStages {
			set[s] = true
		}
		switch {
		case cfg.customEffect():
			set[StageSoftSmooth] = true
			set[StageColorRestore] = true
			set[StageBloom] = true
		case cfg.celShading():
			set[StageSoftSmooth] = true
			set[StageCelShade] = true
		}
	}
	out := make([]Stage, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
