package edgefx

import "log/slog"

// PipelineOption configures a Pipeline during creation.
// Use functional options to customize Pipeline behavior.
//
// Example:
//
//	// Kernels from the device, events logged through the package logger
//	p, err := edgefx.NewPipeline(dev)
//
//	// Custom reporter and a smaller buffer budget
//	p, err := edgefx.NewPipeline(dev,
//	    edgefx.WithReporter(myReporter),
//	    edgefx.WithPoolConfig(edgefx.PoolConfig{MaxMemoryMB: 64}))
type PipelineOption func(*pipelineOptions)

// pipelineOptions holds optional configuration for Pipeline creation.
type pipelineOptions struct {
	reporter Reporter
	logger   *slog.Logger
	pool     PoolConfig
	resolver StageResolver
}

// defaultPipelineOptions returns the default pipeline options.
func defaultPipelineOptions() pipelineOptions {
	return pipelineOptions{
		reporter: nil, // Will be a log reporter if nil
		resolver: nil, // Will be the device if it resolves stages
	}
}

// WithReporter sets the receiver of fallback events.
// By default events are written to the pipeline logger at Warn level.
func WithReporter(r Reporter) PipelineOption {
	return func(o *pipelineOptions) {
		o.reporter = r
	}
}

// WithLogger sets a logger for this pipeline and its device instead of the
// package logger returned by Logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(o *pipelineOptions) {
		o.logger = l
	}
}

// WithPoolConfig sets the limits of the pipeline's temporary buffer pool.
func WithPoolConfig(c PoolConfig) PipelineOption {
	return func(o *pipelineOptions) {
		o.pool = c
	}
}

// WithStageResolver resolves the stage catalog from r rather than from the
// device. Use this when kernels are provided separately from buffers.
//
// Example:
//
//	p, err := edgefx.NewPipeline(dev, edgefx.WithStageResolver(kernels))
func WithStageResolver(r StageResolver) PipelineOption {
	return func(o *pipelineOptions) {
		o.resolver = r
	}
}
