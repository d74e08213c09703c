package chunk

import "time"

// Tuning holds the parameters that may change while a chunk runs
type Tuning struct {
	UpdateInterval  time.Duration
	BlendDuration   time.Duration
	IdleSleep       time.Duration
	BlurIterations  int
	OcclusionMargin int
}

// DefaultTuning returns the tuning used when none is configured
func DefaultTuning() Tuning {
	return Tuning{
		UpdateInterval:  100 * time.Millisecond,
		BlendDuration:   200 * time.Millisecond,
		IdleSleep:       time.Millisecond,
		BlurIterations:  1,
		OcclusionMargin: 2,
	}
}

func (t Tuning) normalized() Tuning {
	if t.UpdateInterval < 0 {
		t.UpdateInterval = 0
	}
	if t.IdleSleep <= 0 {
		t.IdleSleep = time.Millisecond
	}
	if t.BlurIterations < 0 {
		t.BlurIterations = 0
	}
	if t.OcclusionMargin < 0 {
		t.OcclusionMargin = 0
	}
	return t
}
