package software

import (
	"github.com/gogpu/edgefx"
	"github.com/gogpu/edgefx/internal/filter"
)

// kernels maps every stage to its CPU implementation.
var kernels = map[edgefx.Stage]filter.Kernel{
	edgefx.StageDepth:        filter.DepthEdges,
	edgefx.StageColor:        filter.ColorEdges,
	edgefx.StageNormal:       filter.NormalEdges,
	edgefx.StageCustom:       filter.CombinedEdges,
	edgefx.StageSmooth:       filter.Smooth,
	edgefx.StageGradient:     filter.Gradient,
	edgefx.StageNonMax:       filter.NonMax,
	edgefx.StageHysteresis:   filter.Hysteresis,
	edgefx.StageSoftSmooth:   filter.SoftSmooth,
	edgefx.StageColorRestore: filter.ColorRestore,
	edgefx.StageBloom:        filter.Bloom,
	edgefx.StageCelShade:     filter.CelShade,
}

// handleFor returns the kernel handle of s. Handles are offset by one so
// the zero handle is never valid.
func handleFor(s edgefx.Stage) edgefx.StageHandle {
	return edgefx.StageHandle(s) + 1
}

// stageFor inverts handleFor.
func stageFor(h edgefx.StageHandle) (edgefx.Stage, bool) {
	if h == 0 || h > edgefx.StageHandle(len(edgefx.AllStages())) {
		return 0, false
	}
	return edgefx.Stage(h - 1), true
}
