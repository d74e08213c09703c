package ui

import (
	"context"
	"fmt"
	"image/color"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog"
	"golang.org/x/image/font/basicfont"

	"github.com/mitchelldurbincs/FogOfWar/internal/config"
	"github.com/mitchelldurbincs/FogOfWar/internal/present"
	"github.com/mitchelldurbincs/FogOfWar/internal/ui/input"
	"github.com/mitchelldurbincs/FogOfWar/internal/ui/renderer"
)

// FrameSource is where the viewer reads fog frames; satisfied by the gRPC client
type FrameSource interface {
	Frame(ctx context.Context, chunkID int, withHeights bool) (present.Frame, error)
	SaveSlot(ctx context.Context, name string) error
	LoadSlot(ctx context.Context, name string) error
}

// Options configure the viewer
type Options struct {
	Width        int
	Height       int
	PollInterval time.Duration
	Chunks       int // number of chunks the source serves
	ShowHeights  bool
	Slot         string // quick save slot name
	Palette      present.Palette
	Logger       zerolog.Logger
}

// OptionsFromConfig builds viewer options from the loaded configuration
func OptionsFromConfig(cfg *config.Config, logger zerolog.Logger) (Options, error) {
	pal, err := present.PaletteFromConfig(cfg.Colors)
	if err != nil {
		return Options{}, err
	}
	grid := cfg.Fog.Chunk.Grid
	if grid <= 0 {
		grid = 1
	}
	return Options{
		Width:        cfg.Viewer.Width,
		Height:       cfg.Viewer.Height,
		PollInterval: time.Duration(cfg.Viewer.PollIntervalMS) * time.Millisecond,
		Chunks:       grid * grid,
		ShowHeights:  cfg.Viewer.ShowHeights,
		Slot:         "quicksave",
		Palette:      pal,
		Logger:       logger,
	}, nil
}

// Viewer is the ebiten game that displays one chunk at a time. Frames are
// fetched on a background goroutine so Update never blocks on the network.
type Viewer struct {
	source   FrameSource
	opts     Options
	input    *input.Handler
	renderer *renderer.FogRenderer
	logger   zerolog.Logger

	// owned by the ebiten goroutine
	chunk   int
	heights bool
	smooth  bool
	hud     bool
	fit     present.Fit

	mu      sync.Mutex
	frame   present.Frame
	have    bool
	lastErr error
	status  string
	polled  int
	wanted  int
	wantHts bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewViewer creates a viewer; call Start before running it
func NewViewer(source FrameSource, opts Options) *Viewer {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if opts.Chunks <= 0 {
		opts.Chunks = 1
	}
	return &Viewer{
		source:   source,
		opts:     opts,
		input:    input.NewHandler(),
		renderer: renderer.NewFogRenderer(opts.Palette, basicfont.Face7x13),
		logger:   opts.Logger.With().Str("component", "viewer").Logger(),
		heights:  opts.ShowHeights,
		wantHts:  opts.ShowHeights,
		hud:      true,
	}
}

// Start begins polling the source
func (v *Viewer) Start(ctx context.Context) {
	ctx, v.cancel = context.WithCancel(ctx)
	v.wg.Add(1)
	go v.poll(ctx)
}

// Close stops polling and waits for in-flight requests
func (v *Viewer) Close() {
	if v.cancel != nil {
		v.cancel()
	}
	v.wg.Wait()
}

func (v *Viewer) poll(ctx context.Context) {
	defer v.wg.Done()
	ticker := time.NewTicker(v.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		v.mu.Lock()
		id, withHeights := v.wanted, v.wantHts
		v.mu.Unlock()

		reqCtx, cancel := context.WithTimeout(ctx, 2*v.opts.PollInterval+time.Second)
		f, err := v.source.Frame(reqCtx, id, withHeights)
		cancel()

		v.mu.Lock()
		if err != nil {
			if v.lastErr == nil || v.lastErr.Error() != err.Error() {
				v.logger.Warn().Err(err).Int("chunk_id", id).Msg("Frame poll failed")
			}
			v.lastErr = err
		} else {
			v.frame, v.have, v.lastErr, v.polled = f, true, nil, id
		}
		v.mu.Unlock()
	}
}

// Update handles input
func (v *Viewer) Update() error {
	v.input.Update()
	for _, a := range v.input.Drain() {
		v.apply(a)
	}
	return nil
}

func (v *Viewer) apply(a input.Action) {
	switch a {
	case input.ActionToggleHeights:
		v.heights = !v.heights
	case input.ActionToggleSmooth:
		v.smooth = !v.smooth
	case input.ActionToggleHUD:
		v.hud = !v.hud
	case input.ActionNextChunk:
		v.chunk = (v.chunk + 1) % v.opts.Chunks
	case input.ActionPrevChunk:
		v.chunk = (v.chunk + v.opts.Chunks - 1) % v.opts.Chunks
	case input.ActionSaveSlot:
		v.slotAsync("save", v.source.SaveSlot)
	case input.ActionLoadSlot:
		v.slotAsync("load", v.source.LoadSlot)
	}

	v.mu.Lock()
	v.wanted, v.wantHts = v.chunk, v.heights
	v.mu.Unlock()
}

func (v *Viewer) slotAsync(verb string, op func(context.Context, string) error) {
	v.setStatus(fmt.Sprintf("%s %q...", verb, v.opts.Slot))
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := op(ctx, v.opts.Slot); err != nil {
			v.logger.Error().Err(err).Str("slot", v.opts.Slot).Msgf("Slot %s failed", verb)
			v.setStatus(fmt.Sprintf("%s failed: %v", verb, err))
			return
		}
		v.setStatus(fmt.Sprintf("%s %q done", verb, v.opts.Slot))
	}()
}

func (v *Viewer) setStatus(s string) {
	v.mu.Lock()
	v.status = s
	v.mu.Unlock()
}

// Draw renders the latest frame and the HUD
func (v *Viewer) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{R: 30, G: 30, B: 30, A: 255})

	v.mu.Lock()
	frame, have, lastErr, polled, status := v.frame, v.have, v.lastErr, v.polled, v.status
	v.mu.Unlock()

	if have {
		if !v.heights {
			frame.Heights = nil
		}
		fit, err := v.renderer.Draw(screen, frame, v.smooth)
		if err != nil {
			lastErr = err
		}
		v.fit = fit
	}

	if !v.hud {
		return
	}
	lines := []string{
		fmt.Sprintf("chunk %d/%d (showing %d)  blend %.2f", v.chunk, v.opts.Chunks, polled, frame.Blend),
		fmt.Sprintf("heights [H] %t  smooth [S] %t  save [F5] load [F9]", v.heights, v.smooth),
	}
	if have {
		mx, my := v.input.Cursor()
		if cx, cy, ok := v.fit.CellAt(mx, my); ok {
			vis, exp := present.Cell(frame.Pixels[cy*frame.TextureSize+cx], frame.Blend)
			lines = append(lines, fmt.Sprintf("cell (%d,%d) visible %d explored %d", cx, cy, vis, exp))
		}
	}
	if status != "" {
		lines = append(lines, status)
	}
	if lastErr != nil {
		lines = append(lines, "error: "+lastErr.Error())
	}
	v.renderer.DrawLines(screen, lines)
}

// Layout returns the fixed logical screen size
func (v *Viewer) Layout(outsideWidth, outsideHeight int) (int, int) {
	return v.opts.Width, v.opts.Height
}
