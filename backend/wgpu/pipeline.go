package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gogpu/edgefx"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Bind group slots shared by every stage.
const (
	bindParams   = 0
	bindSource   = 1
	bindAux      = 2
	bindOriginal = 3
	bindResult   = 4
)

// paramsSize is the size of the Params uniform in bytes.
const paramsSize = 32

// flagAux marks a bound DepthNormals or Blur input.
const flagAux = 1

// gpuParams mirrors the Params struct of the shader prelude.
type gpuParams struct {
	Width, Height, Flags uint32
	Low, High, Time      float32
}

// bytes serializes p in std140 order.
func (p gpuParams) bytes() []byte {
	b := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(b[0:], p.Width)
	binary.LittleEndian.PutUint32(b[4:], p.Height)
	binary.LittleEndian.PutUint32(b[8:], p.Flags)
	binary.LittleEndian.PutUint32(b[16:], math.Float32bits(p.Low))
	binary.LittleEndian.PutUint32(b[20:], math.Float32bits(p.High))
	binary.LittleEndian.PutUint32(b[24:], math.Float32bits(p.Time))
	return b
}

// kernel is one compiled stage.
type kernel struct {
	stage    edgefx.Stage
	module   hal.ShaderModule
	pipeline hal.ComputePipeline
}

// kernelSet owns the shared layouts and the per-stage pipelines.
type kernelSet struct {
	device     hal.Device
	bindLayout hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	kernels    map[edgefx.Stage]*kernel
}

// newKernelSet creates the shared layouts and a pipeline for every stage
// in stages. A stage whose pipeline cannot be created is left out and
// logged; layout failures are fatal.
func newKernelSet(device hal.Device, stages []edgefx.Stage) (*kernelSet, error) {
	ks := &kernelSet{device: device, kernels: make(map[edgefx.Stage]*kernel)}

	readOnly := &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeReadOnlyStorage}
	bindLayout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "edgefx_stage_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{Binding: bindParams, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform}},
			{Binding: bindSource, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: bindAux, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: bindOriginal, Visibility: gputypes.ShaderStageCompute, Buffer: readOnly},
			{Binding: bindResult, Visibility: gputypes.ShaderStageCompute, Buffer: &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeStorage}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create bind group layout: %w", err)
	}
	ks.bindLayout = bindLayout

	pipeLayout, err := device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label: "edgefx_stage_pipe_layout", BindGroupLayouts: []hal.BindGroupLayout{ks.bindLayout},
	})
	if err != nil {
		ks.destroy()
		return nil, fmt.Errorf("create pipeline layout: %w", err)
	}
	ks.pipeLayout = pipeLayout

	for _, s := range stages {
		k, err := ks.createKernel(s)
		if err != nil {
			slogger().Warn("wgpu: stage unavailable", "stage", s, "err", err)
			continue
		}
		ks.kernels[s] = k
	}
	return ks, nil
}

func (ks *kernelSet) createKernel(s edgefx.Stage) (*kernel, error) {
	source, err := stageShader(s)
	if err != nil {
		return nil, err
	}
	label := "edgefx_" + s.String()
	module, err := ks.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  label,
		Source: source,
	})
	if err != nil {
		return nil, fmt.Errorf("create shader module: %w", err)
	}
	pipeline, err := ks.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label: label, Layout: ks.pipeLayout,
		Compute: hal.ComputeState{Module: module, EntryPoint: "main"},
	})
	if err != nil {
		ks.device.DestroyShaderModule(module)
		return nil, fmt.Errorf("create compute pipeline: %w", err)
	}
	return &kernel{stage: s, module: module, pipeline: pipeline}, nil
}

// lookup returns the kernel of s.
func (ks *kernelSet) lookup(s edgefx.Stage) (*kernel, bool) {
	k, ok := ks.kernels[s]
	return k, ok
}

func (ks *kernelSet) destroy() {
	for s, k := range ks.kernels {
		ks.device.DestroyComputePipeline(k.pipeline)
		ks.device.DestroyShaderModule(k.module)
		delete(ks.kernels, s)
	}
	if ks.pipeLayout != nil {
		ks.device.DestroyPipelineLayout(ks.pipeLayout)
		ks.pipeLayout = nil
	}
	if ks.bindLayout != nil {
		ks.device.DestroyBindGroupLayout(ks.bindLayout)
		ks.bindLayout = nil
	}
}

// handleFor returns the kernel handle of s. Zero is never a valid handle.
func handleFor(s edgefx.Stage) edgefx.StageHandle {
	return edgefx.StageHandle(s) + 1
}

// stageFor inverts handleFor.
func stageFor(h edgefx.StageHandle) (edgefx.Stage, bool) {
	if h == 0 {
		return 0, false
	}
	s := edgefx.Stage(h - 1) //nolint:gosec // G115: range checked by IsValid
	return s, s.IsValid() && edgefx.StageHandle(s)+1 == h
}
