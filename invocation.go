package edgefx

import (
	"fmt"
	"strings"
)

// TileSize is the edge length of a compute workgroup tile in pixels.
const TileSize = 8

// Slot names a binding point of a kernel.
type Slot uint8

const (
	// SlotSource is the primary read-only input.
	SlotSource Slot = iota

	// SlotDepthNormals is the optional depth+normal capture.
	SlotDepthNormals

	// SlotBlur is the blurred auxiliary input of the post effects.
	SlotBlur

	// SlotOriginal is the unmodified color frame.
	SlotOriginal

	// SlotResult is the read-write output.
	SlotResult

	slotCount
)

var slotNames = [slotCount]string{
	SlotSource:       "Source",
	SlotDepthNormals: "DepthNormals",
	SlotBlur:         "Blur",
	SlotOriginal:     "Original",
	SlotResult:       "Result",
}

// String returns the slot name.
func (s Slot) String() string {
	if s < slotCount {
		return slotNames[s]
	}
	return fmt.Sprintf("Slot(%d)", s)
}

// Binding attaches a frame buffer to a slot.
type Binding struct {
	Slot   Slot
	Buffer *FrameBuffer
}

// Params are the scalar kernel parameters. Kernels ignore the fields they
// do not use.
type Params struct {
	// LowThreshold and HighThreshold parameterize hysteresis, in [0,1].
	LowThreshold  float32
	HighThreshold float32

	// Time is the animation clock in seconds, used by bloom.
	Time float32
}

// Invocation is one compute dispatch.
type Invocation struct {
	Stage  Stage
	Handle StageHandle

	Inputs []Binding
	Output Binding

	Params Params

	GridX uint32
	GridY uint32
}

// DispatchGrid returns the tile grid covering a width × height image.
func DispatchGrid(width, height int) (x, y uint32) {
	//nolint:gosec // G115: dimensions validated positive by Descriptor
	return uint32((width + TileSize - 1) / TileSize), uint32((height + TileSize - 1) / TileSize)
}

// Input returns the buffer bound to slot, or nil.
func (inv *Invocation) Input(slot Slot) *FrameBuffer {
	for _, b := range inv.Inputs {
		if b.Slot == slot {
			return b.Buffer
		}
	}
	return nil
}

// Validate checks the binding contract: the output must be live and
// random-write, inputs must be live, and all buffers share the output's
// dimensions.
func (inv *Invocation) Validate() error {
	out := inv.Output.Buffer
	if out == nil {
		return fmt.Errorf("%s: %w: no output", inv.Stage, ErrNilFrame)
	}
	if out.Released() {
		return fmt.Errorf("%s: output %w", inv.Stage, ErrBufferReleased)
	}
	if !out.RandomWrite() {
		return fmt.Errorf("%s: %w", inv.Stage, ErrNotRandomWrite)
	}
	for _, b := range inv.Inputs {
		if b.Buffer == nil {
			return fmt.Errorf("%s: %w: slot %s", inv.Stage, ErrNilFrame, b.Slot)
		}
		if b.Buffer.Released() {
			return fmt.Errorf("%s: input %s %w", inv.Stage, b.Slot, ErrBufferReleased)
		}
		if !b.Buffer.sameSize(out) {
			return fmt.Errorf("%s: %w: slot %s is %dx%d, output is %dx%d",
				inv.Stage, ErrSizeMismatch, b.Slot,
				b.Buffer.Width(), b.Buffer.Height(), out.Width(), out.Height())
		}
	}
	return nil
}

// String returns a compact description used in debug logs.
func (inv *Invocation) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[", inv.Stage)
	for i, b := range inv.Inputs {
		if i > 0 {
			sb.WriteString(" ")
		}
		fmt.Fprintf(&sb, "%s=#%d", b.Slot, b.Buffer.ID())
	}
	fmt.Fprintf(&sb, " -> #%d grid %dx%d]", inv.Output.Buffer.ID(), inv.GridX, inv.GridY)
	return sb.String()
}
