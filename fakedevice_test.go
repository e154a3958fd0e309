package edgefx

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

var errInjected = errors.New("injected allocation failure")

// fakeOp is one recorded device call.
type fakeOp struct {
	kind  string // "create", "destroy", "copy", "dispatch"
	stage Stage
	flip  bool
	src   BufferID
	dst   BufferID

	params Params
	inputs []Slot
}

// fakeDevice is a recording Device and StageResolver.
//
// Buffer contents are modelled as a string so that tests can check what
// ended up in the destination: copies move the string, flipped copies wrap
// it in "flip(...)" and dispatches write "Stage(input,...)".
type fakeDevice struct {
	mu sync.Mutex

	next     BufferID
	contents map[BufferID]string
	sizes    map[BufferID][2]int
	live     map[BufferID]bool

	ops []fakeOp

	// failCreate makes the n-th CreateBuffer call (1-based) fail.
	failCreate int
	creates    int

	// failDispatch makes dispatches of this stage fail.
	failDispatch    Stage
	failDispatchSet bool

	// stages limits ResolveStage; nil resolves everything.
	stages map[Stage]bool

	logger *slog.Logger

	// violations records any use of a destroyed or unknown buffer.
	violations []string
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		next:     100,
		contents: make(map[BufferID]string),
		sizes:    make(map[BufferID][2]int),
		live:     make(map[BufferID]bool),
	}
}

func (d *fakeDevice) Name() string { return "fake" }

func (d *fakeDevice) SetLogger(l *slog.Logger) { d.logger = l }

func (d *fakeDevice) ResolveStage(s Stage) (StageHandle, bool) {
	if d.stages != nil && !d.stages[s] {
		return 0, false
	}
	return StageHandle(1000 + int(s)), true
}

func (d *fakeDevice) CreateBuffer(desc Descriptor) (BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.creates++
	if d.failCreate > 0 && d.creates == d.failCreate {
		return 0, errInjected
	}
	d.next++
	id := d.next
	d.live[id] = true
	d.sizes[id] = [2]int{desc.Width, desc.Height}
	d.contents[id] = ""
	d.ops = append(d.ops, fakeOp{kind: "create", dst: id})
	return id, nil
}

func (d *fakeDevice) DestroyBuffer(id BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.live[id] {
		d.violations = append(d.violations, fmt.Sprintf("destroy of dead buffer #%d", id))
		return
	}
	delete(d.live, id)
	d.ops = append(d.ops, fakeOp{kind: "destroy", dst: id})
}

func (d *fakeDevice) CopyBuffer(src, dst BufferID, flip bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checkLocked(src, "copy source")
	d.checkLocked(dst, "copy destination")
	v := d.contents[src]
	if flip {
		v = "flip(" + v + ")"
	}
	d.contents[dst] = v
	d.ops = append(d.ops, fakeOp{kind: "copy", src: src, dst: dst, flip: flip})
	return nil
}

func (d *fakeDevice) Dispatch(inv *Invocation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failDispatchSet && inv.Stage == d.failDispatch {
		return fmt.Errorf("kernel %s failed", inv.Stage)
	}
	if inv.Handle != StageHandle(1000+int(inv.Stage)) {
		d.violations = append(d.violations, fmt.Sprintf("%s dispatched with handle %d", inv.Stage, inv.Handle))
	}
	out := inv.Output.Buffer.ID()
	d.checkLocked(out, "dispatch output")
	args := ""
	var slots []Slot
	for i, b := range inv.Inputs {
		slots = append(slots, b.Slot)
		d.checkLocked(b.Buffer.ID(), "dispatch input")
		if i > 0 {
			args += ","
		}
		args += d.contents[b.Buffer.ID()]
	}
	d.contents[out] = fmt.Sprintf("%s(%s)", inv.Stage, args)
	d.ops = append(d.ops, fakeOp{kind: "dispatch", stage: inv.Stage, dst: out, params: inv.Params, inputs: slots})
	return nil
}

func (d *fakeDevice) checkLocked(id BufferID, what string) {
	if !d.live[id] {
		d.violations = append(d.violations, fmt.Sprintf("%s #%d is not live", what, id))
	}
}

// external registers a host-owned buffer with the given contents.
func (d *fakeDevice) external(w, h int, contents string) *FrameBuffer {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.next++
	id := d.next
	d.live[id] = true
	d.sizes[id] = [2]int{w, h}
	d.contents[id] = contents
	return NewExternal(id, Descriptor{Width: w, Height: h, Format: FormatRGBA8, Label: contents})
}

func (d *fakeDevice) content(fb *FrameBuffer) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.contents[fb.ID()]
}

func (d *fakeDevice) count(kind string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, op := range d.ops {
		if op.kind == kind {
			n++
		}
	}
	return n
}

// dispatches returns the recorded dispatch ops.
func (d *fakeDevice) dispatches() []fakeOp {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []fakeOp
	for _, op := range d.ops {
		if op.kind == "dispatch" {
			out = append(out, op)
		}
	}
	return out
}

// recordingReporter collects events.
type recordingReporter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingReporter) Report(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recordingReporter) kinds() []ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ErrorKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}
