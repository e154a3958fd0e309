package edgefx

// Host is the render loop the pipeline is embedded in.
type Host interface {
	// SourceFrame returns the rendered color frame of the current frame.
	SourceFrame() *FrameBuffer

	// DestinationFrame returns the frame presented to the user.
	DestinationFrame() *FrameBuffer

	// RequestDepthNormalCapture asks the renderer to produce depth and
	// normals for the next frame when enable is true, depth only otherwise.
	RequestDepthNormalCapture(enable bool)
}

// DepthNormalSource is implemented by hosts that hand the depth+normal
// capture to the pipeline.
type DepthNormalSource interface {
	// DepthNormalFrame returns this frame's capture, or nil if none was
	// produced.
	DepthNormalFrame() *FrameBuffer
}

// WantsDepthNormals reports whether frames processed with cfg benefit
// from a depth+normal capture: the filter is on and at least one compute
// stage is bound.
func (p *Pipeline) WantsDepthNormals(cfg Config) bool {
	return cfg.Enabled && !p.catalog.Empty()
}

// RenderFrame runs one host frame: it requests the capture the next frame
// needs, then processes the current one. t is the animation clock in
// seconds.
func RenderFrame(host Host, p *Pipeline, cfg Config, t float32) Report {
	host.RequestDepthNormalCapture(p.WantsDepthNormals(cfg))

	frame := Frame{
		Source:      host.SourceFrame(),
		Destination: host.DestinationFrame(),
		Time:        t,
	}
	if dns, ok := host.(DepthNormalSource); ok {
		frame.DepthNormals = dns.DepthNormalFrame()
	}
	return p.Process(frame, cfg)
}
