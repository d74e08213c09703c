package chunk

import (
	"sync/atomic"
	"time"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
)

// Frame is one published visibility result. Frames are never mutated after they
// are handed off, so consumers may keep them.
type Frame struct {
	Seq      uint64
	Tick     uint64 // registry tick of the snapshot the pass used
	Pixels   []pipeline.Pixel
	Stats    pipeline.PassStats
	Duration time.Duration
}

// frameSlot is a single-slot handoff. A put over an unconsumed frame replaces it.
type frameSlot struct {
	frame atomic.Pointer[Frame]
}

// put stores f and reports whether an unconsumed frame was overwritten
func (s *frameSlot) put(f *Frame) bool {
	return s.frame.Swap(f) != nil
}

// take empties the slot
func (s *frameSlot) take() *Frame {
	return s.frame.Swap(nil)
}

func (s *frameSlot) pending() bool {
	return s.frame.Load() != nil
}
