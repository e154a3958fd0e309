// Package edgefx provides a GPU edge-detection post-processing pipeline.
//
// # Overview
//
// edgefx detects edges in a rendered color frame, optionally aided by a
// depth+normal capture, using a sequence of compute dispatches. The result
// can be refined with a Canny-style filter chain and composited with
// mode-specific effects: soft blur, color restoration, bloom and a
// cel-shaded overlay.
//
// The package orchestrates; it does not compute pixels. Kernels live in a
// Device (see backend/software and backend/wgpu) and are referenced
// through an immutable stage Catalog resolved when the Pipeline is
// created.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/edgefx"
//	    "github.com/gogpu/edgefx/backend/software"
//	)
//
//	dev := software.New(software.Options{})
//	p, err := edgefx.NewPipeline(dev)
//	if err != nil {
//	    return err
//	}
//	defer p.Close()
//
//	cfg := edgefx.DefaultConfig()
//	cfg.Refine = true
//	report := p.Process(edgefx.Frame{Source: src, Destination: dst}, cfg)
//
// # Orchestration
//
// Each frame walks a fixed state machine:
//
//	Start -> BaseDetect -> {Composite | RefineEntry} -> CannyStages ->
//	PostBranch -> {CustomEffect | CelShade | PlainRefined} -> Composite -> End
//
// The base detector is chosen by Config.Mode. With Config.Refine the
// Smooth, Gradient, NonMax and Hysteresis stages follow. ModeCustom adds
// SoftSmooth, two ColorRestore passes and Bloom; Config.CelShade adds
// SoftSmooth and CelShade instead.
//
// # Resources
//
// Temporaries are acquired from a generation-tagged Pool through a
// per-frame arena that releases everything on every exit path. A failed
// acquisition, a missing kernel or a device error never fails the frame:
// the destination receives an unmodified copy of the source and the
// problem is sent to the Reporter. Missing kernels are reported once per
// pipeline.
//
// # Logging
//
// edgefx is silent by default. Use SetLogger to route debug tracing,
// lifecycle messages and fallback warnings to a slog.Logger.
package edgefx
