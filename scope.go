package edgefx

import (
	"errors"
	"fmt"
	"log/slog"
)

// frameScope is the per-frame arena. Every temporary a frame acquires goes
// through it, and releaseAll runs on every exit path so an aborted frame
// leaves nothing outstanding.
type frameScope struct {
	pool *Pool
	log  *slog.Logger
	held []*FrameBuffer

	acquired int
	released int
}

func newFrameScope(pool *Pool, log *slog.Logger) *frameScope {
	return &frameScope{pool: pool, log: log}
}

// acquire takes a random-write or read-only temporary sized like ref.
func (s *frameScope) acquire(label string, ref *FrameBuffer, randomWrite bool) (*FrameBuffer, error) {
	fb, err := s.pool.Acquire(Descriptor{
		Width:       ref.Width(),
		Height:      ref.Height(),
		Format:      TemporaryFormat,
		RandomWrite: randomWrite,
		Label:       label,
	})
	if err != nil {
		return nil, fmt.Errorf("acquire %s: %w", label, err)
	}
	s.held = append(s.held, fb)
	s.acquired++
	s.log.Debug("edgefx: acquired", "label", label, "id", fb.ID(), "gen", fb.Generation())
	return fb, nil
}

// release returns fb to the pool and forgets it. Releasing nil is a no-op.
func (s *frameScope) release(fb *FrameBuffer) error {
	if fb == nil {
		return nil
	}
	idx := -1
	for i, h := range s.held {
		if h == fb {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: %s not held by frame", ErrBufferReleased, fb)
	}
	s.held = append(s.held[:idx], s.held[idx+1:]...)
	if err := s.pool.Release(fb); err != nil {
		return err
	}
	s.released++
	s.log.Debug("edgefx: released", "label", fb.Descriptor().Label, "id", fb.ID())
	return nil
}

// releaseAll force-releases everything still held, newest first.
func (s *frameScope) releaseAll() error {
	var errs []error
	for len(s.held) > 0 {
		fb := s.held[len(s.held)-1]
		if err := s.release(fb); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// outstanding returns the number of temporaries still held.
func (s *frameScope) outstanding() int {
	return len(s.held)
}
