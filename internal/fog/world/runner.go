package world

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/chunk"
)

// TickHook runs on the update goroutine before the world ticks
type TickHook func(dt time.Duration) error

type command struct {
	fn   func(ctx context.Context) error
	done chan error
}

// Runner drives a world from a single update goroutine at a fixed tick rate.
// Other goroutines reach the world through Do, which queues work onto that
// goroutine between ticks.
type Runner struct {
	world    *World
	interval time.Duration
	hooks    []TickHook
	cmds     chan command
	ticks    atomic.Uint64
	ctx      context.Context
	logger   zerolog.Logger
}

// NewRunner creates a runner ticking tickRate times per second
func NewRunner(w *World, tickRate int, logger zerolog.Logger) (*Runner, error) {
	if tickRate <= 0 {
		return nil, fmt.Errorf("tick rate must be positive, got %d", tickRate)
	}
	return &Runner{
		world:    w,
		interval: time.Second / time.Duration(tickRate),
		cmds:     make(chan command),
		ctx:      context.Background(),
		logger:   logger.With().Str("component", "runner").Str("world_id", w.ID()).Logger(),
	}, nil
}

// AddHook registers a hook; call before Run
func (r *Runner) AddHook(h TickHook) {
	r.hooks = append(r.hooks, h)
}

// World returns the driven world
func (r *Runner) World() *World { return r.world }

// Ticks returns the number of ticks run so far
func (r *Runner) Ticks() uint64 { return r.ticks.Load() }

// Run ticks the world until ctx is cancelled. The world's workers are
// started by the caller.
func (r *Runner) Run(ctx context.Context) error {
	r.ctx = ctx
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info().Dur("interval", r.interval).Msg("Tick loop started")
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Uint64("ticks", r.ticks.Load()).Msg("Tick loop stopped")
			return ctx.Err()
		case cmd := <-r.cmds:
			cmd.done <- cmd.fn(ctx)
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			r.tick(dt)
		}
	}
}

func (r *Runner) tick(dt time.Duration) {
	for _, h := range r.hooks {
		if err := h(dt); err != nil {
			r.logger.Error().Err(err).Msg("Tick hook failed")
		}
	}
	r.world.Tick(dt)
	r.ticks.Add(1)
}

// Do runs fn on the update goroutine and waits for it
func (r *Runner) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	cmd := command{fn: fn, done: make(chan error, 1)}
	select {
	case r.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-cmd.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// paused stops the workers around fn and restarts them if they were running
func (r *Runner) paused(fn func() error) error {
	wasRunning := r.world.Manager().IsRunning()
	if wasRunning {
		r.world.Stop()
	}
	err := fn()
	if wasRunning {
		if serr := r.world.Start(r.ctx); serr != nil {
			return errors.Join(err, serr)
		}
	}
	return err
}

// SaveSlot saves the world between ticks, pausing the workers
func (r *Runner) SaveSlot(ctx context.Context, name string) error {
	return r.Do(ctx, func(ctx context.Context) error {
		return r.paused(func() error { return r.world.SaveSlot(ctx, name) })
	})
}

// LoadSlot restores the world between ticks, pausing the workers
func (r *Runner) LoadSlot(ctx context.Context, name string) error {
	return r.Do(ctx, func(ctx context.Context) error {
		return r.paused(func() error { return r.world.LoadSlot(ctx, name) })
	})
}

// ListSlots lists saved slots; the store is safe to read from any goroutine
func (r *Runner) ListSlots(ctx context.Context) ([]string, error) {
	return r.world.ListSlots(ctx)
}

// ApplyTuning applies new tuning between ticks
func (r *Runner) ApplyTuning(ctx context.Context, t chunk.Tuning) error {
	return r.Do(ctx, func(context.Context) error {
		r.world.ApplyTuning(t)
		return nil
	})
}

// Reset discards visibility state between ticks
func (r *Runner) Reset(ctx context.Context) error {
	return r.Do(ctx, func(context.Context) error { return r.world.Reset() })
}

// Rebake resamples obstacle heights between ticks, pausing the workers
func (r *Runner) Rebake(ctx context.Context) error {
	return r.Do(ctx, func(context.Context) error {
		return r.paused(r.world.Rebake)
	})
}

// SetHeight edits the ground height under a position between ticks, pausing the workers
func (r *Runner) SetHeight(ctx context.Context, pos mgl32.Vec3, height float32) error {
	return r.Do(ctx, func(context.Context) error {
		return r.paused(func() error { return r.world.SetHeight(pos, height) })
	})
}
