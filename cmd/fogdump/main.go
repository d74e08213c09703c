package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/FogOfWar/internal/config"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/world"
	"github.com/mitchelldurbincs/FogOfWar/internal/logging"
	"github.com/mitchelldurbincs/FogOfWar/internal/persist"
	"github.com/mitchelldurbincs/FogOfWar/internal/present"
	"github.com/mitchelldurbincs/FogOfWar/internal/scenario"
)

type dumpOptions struct {
	scenarioPath string
	steps        int
	dt           time.Duration
	out          string
	scale        int
	smooth       bool
	heights      bool
	slot         string
}

func main() {
	configPath := flag.String("config", "", "Path to config file")
	var o dumpOptions
	flag.StringVar(&o.scenarioPath, "scenario", "", "Scenario file to run (empty to use config default)")
	flag.IntVar(&o.steps, "steps", 0, "Number of steps (0 runs the scenario duration)")
	flag.DurationVar(&o.dt, "dt", 0, "Simulated time per step (0 uses the configured tick rate)")
	flag.StringVar(&o.out, "out", "fog.png", "PNG output path")
	flag.IntVar(&o.scale, "scale", 4, "Pixels per cell in the PNG")
	flag.BoolVar(&o.smooth, "smooth", false, "Bilinear scaling instead of nearest neighbour")
	flag.BoolVar(&o.heights, "heights", true, "Tint obstacle cells")
	flag.StringVar(&o.slot, "slot", "", "Also save the final state under this slot name")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	cfg := config.Get()
	if o.scenarioPath == "" {
		o.scenarioPath = cfg.Scenario.Path
	}
	logger := logging.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	if err := dump(cfg, o, logger); err != nil {
		logger.Fatal().Err(err).Msg("Dump failed")
	}
}

func dump(cfg *config.Config, o dumpOptions, logger zerolog.Logger) error {
	sc, err := scenario.Load(o.scenarioPath)
	if err != nil {
		return err
	}

	opts, err := world.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	opts.Query = sc.Field()
	opts.Logger = logger
	if o.slot != "" {
		store, err := persist.NewStore(world.PersistenceFromConfig(cfg.Persistence), logger)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Store = store
	}

	w, err := world.New(opts)
	if err != nil {
		return err
	}
	radius, los := world.DefaultShapes(cfg.Fog.Revealer)
	player := scenario.NewPlayer(sc, w, opts.Region.Orientation, scenario.Defaults{Radius: radius, LOS: los}, logger)

	dt := o.dt
	if dt <= 0 {
		dt = time.Second / time.Duration(cfg.Fog.Update.TickRate)
	}
	steps := o.steps
	if steps <= 0 {
		steps = int(time.Duration(sc.Duration*float64(time.Second)) / dt)
	}
	if steps <= 0 {
		return fmt.Errorf("scenario %q has no duration; pass -steps", sc.Name)
	}

	start := time.Now()
	lit := 0
	for i := 0; i < steps; i++ {
		if err := player.Advance(dt); err != nil {
			return err
		}
		stats, err := w.Step(dt)
		if err != nil {
			return err
		}
		lit = 0
		for _, s := range stats {
			lit += s.LitCells
		}
	}
	logger.Info().
		Str("scenario", sc.Name).
		Int("steps", steps).
		Dur("simulated", time.Duration(steps)*dt).
		Dur("elapsed", time.Since(start)).
		Int("lit_cells", lit).
		Msg("Scenario run complete")

	frames := make([]present.Frame, 0, w.Manager().Len())
	for _, c := range w.Manager().Chunks() {
		f, err := present.Capture(c)
		if err != nil {
			return fmt.Errorf("chunk %d: %w", c.ID(), err)
		}
		if o.heights {
			f.Heights = c.Heights()
		}
		frames = append(frames, f)
	}

	pal, err := present.PaletteFromConfig(cfg.Colors)
	if err != nil {
		return err
	}
	img, err := present.Mosaic(frames, w.Manager().Grid(), pal)
	if err != nil {
		return err
	}
	if o.scale > 1 {
		b := img.Bounds()
		img = present.Scale(img, b.Dx()*o.scale, b.Dy()*o.scale, o.smooth)
	}

	out, err := os.Create(o.out)
	if err != nil {
		return err
	}
	if err := present.WritePNG(out, img); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Info().Str("path", o.out).Int("width", img.Bounds().Dx()).Msg("Wrote fog image")

	if o.slot != "" {
		if err := w.SaveSlot(context.Background(), o.slot); err != nil {
			return err
		}
	}
	return nil
}
