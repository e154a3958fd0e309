package wgpu

import (
	"embed"
	"fmt"

	"github.com/gogpu/edgefx"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"
)

//go:embed shaders/*.wgsl
var shaderFS embed.FS

// shaderFiles names the WGSL body of each stage.
var shaderFiles = map[edgefx.Stage]string{
	edgefx.StageDepth:        "depth.wgsl",
	edgefx.StageColor:        "color.wgsl",
	edgefx.StageNormal:       "normal.wgsl",
	edgefx.StageCustom:       "custom.wgsl",
	edgefx.StageSmooth:       "smooth.wgsl",
	edgefx.StageGradient:     "gradient.wgsl",
	edgefx.StageNonMax:       "nonmax.wgsl",
	edgefx.StageHysteresis:   "hysteresis.wgsl",
	edgefx.StageSoftSmooth:   "soft_smooth.wgsl",
	edgefx.StageColorRestore: "color_restore.wgsl",
	edgefx.StageBloom:        "bloom.wgsl",
	edgefx.StageCelShade:     "cel_shade.wgsl",
}

// shaderSource returns the complete WGSL of stage s: the shared prelude
// followed by the stage body.
func shaderSource(s edgefx.Stage) (string, error) {
	name, ok := shaderFiles[s]
	if !ok {
		return "", fmt.Errorf("wgpu: no shader for %s", s)
	}
	prelude, err := shaderFS.ReadFile("shaders/prelude.wgsl")
	if err != nil {
		return "", err
	}
	body, err := shaderFS.ReadFile("shaders/" + name)
	if err != nil {
		return "", err
	}
	return string(prelude) + "\n" + string(body), nil
}

// compileSPIRV compiles WGSL source to SPIR-V words.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, fmt.Errorf("failed to compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words
	code := make([]uint32, len(spirvBytes)/4)
	for i := range code {
		code[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return code, nil
}

// stageShader returns the module source for s: SPIR-V when naga compiles
// it, WGSL otherwise.
func stageShader(s edgefx.Stage) (hal.ShaderSource, error) {
	wgsl, err := shaderSource(s)
	if err != nil {
		return hal.ShaderSource{}, err
	}
	code, err := compileSPIRV(wgsl)
	if err != nil {
		slogger().Debug("wgpu: naga compile failed, passing WGSL to HAL", "stage", s, "err", err)
		return hal.ShaderSource{WGSL: wgsl}, nil
	}
	return hal.ShaderSource{SPIRV: code}, nil
}
