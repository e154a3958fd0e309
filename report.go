package edgefx

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// State is a step of the orchestration state machine.
type State uint8

// States in the order a fully refined frame visits them.
const (
	StateStart State = iota
	StateBaseDetect
	StateRefineEntry
	StateCannyStages
	StatePostBranch
	StateCustomEffect
	StateCelShade
	StatePlainRefined
	StateComposite
	StateEnd

	stateCount
)

var stateNames = [stateCount]string{
	StateStart:        "Start",
	StateBaseDetect:   "BaseDetect",
	StateRefineEntry:  "RefineEntry",
	StateCannyStages:  "CannyStages",
	StatePostBranch:   "PostBranch",
	StateCustomEffect: "CustomEffect",
	StateCelShade:     "CelShade",
	StatePlainRefined: "PlainRefined",
	StateComposite:    "Composite",
	StateEnd:          "End",
}

// String returns the state name.
func (s State) String() string {
	if s < stateCount {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// Report describes what one call to Pipeline.Process did.
type Report struct {
	// Frame is the pipeline's frame counter, starting at 1.
	Frame uint64

	// Config is the normalized configuration the frame ran with.
	Config Config

	// Path lists the visited states in order, ending with StateEnd.
	Path []State

	// Dispatches lists the stages dispatched, in order.
	Dispatches []Stage

	// Copies counts full-frame blits, including the final composite or
	// identity copy. FlippedCopies counts the vertically flipped ones.
	Copies        int
	FlippedCopies int

	// Acquired and Released count temporaries. They are equal whenever
	// Process returns.
	Acquired int
	Released int

	// FellBack is true when the destination received an identity copy
	// because of an error.
	FellBack bool

	// Err is the error that caused the fallback, or a clamped-threshold
	// ErrInvalidConfig that did not. Nil for a clean frame.
	Err error
}

// Kind returns the classification of r.Err.
func (r *Report) Kind() ErrorKind {
	return KindOf(r.Err)
}

// Identity reports whether the destination received an unmodified copy of
// the source, either because the filter was off or because of a fallback.
func (r *Report) Identity() bool {
	return r.FellBack || len(r.Dispatches) == 0
}

// String returns a compact one-line summary.
func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "frame %d:", r.Frame)
	for i, s := range r.Dispatches {
		if i == 0 {
			sb.WriteString(" ")
		} else {
			sb.WriteString(",")
		}
		sb.WriteString(s.String())
	}
	fmt.Fprintf(&sb, " copies=%d flipped=%d temps=%d/%d",
		r.Copies, r.FlippedCopies, r.Acquired, r.Released)
	if r.FellBack {
		fmt.Fprintf(&sb, " fallback=%s", r.Kind())
	}
	return sb.String()
}

// Event is a reportable, non-fatal pipeline problem.
type Event struct {
	Kind  ErrorKind
	Stage Stage // meaningful for KindMissingStageBinding only
	Frame uint64
	Err   error
}

// String returns a human-readable description.
func (e Event) String() string {
	if e.Kind == KindMissingStageBinding {
		return fmt.Sprintf("frame %d: %s (%s): %v", e.Frame, e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("frame %d: %s: %v", e.Frame, e.Kind, e.Err)
}

// Reporter receives pipeline events. Report is called on the goroutine
// that runs Process and must not block.
type Reporter interface {
	Report(Event)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Event)

// Report calls f(e).
func (f ReporterFunc) Report(e Event) { f(e) }

// logReporter writes events to a slog.Logger.
type logReporter struct {
	logger *slog.Logger
}

// NewLogReporter returns a Reporter writing warnings to l. A nil l uses
// the package logger at the time of each event.
func NewLogReporter(l *slog.Logger) Reporter {
	return &logReporter{logger: l}
}

func (r *logReporter) Report(e Event) {
	l := r.logger
	if l == nil {
		l = Logger()
	}
	attrs := []slog.Attr{
		slog.String("kind", e.Kind.String()),
		slog.Uint64("frame", e.Frame),
	}
	if e.Kind == KindMissingStageBinding {
		attrs = append(attrs, slog.String("stage", e.Stage.String()))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("err", e.Err.Error()))
	}
	l.LogAttrs(context.Background(), slog.LevelWarn, "edgefx: frame fell back to source", attrs...)
}
