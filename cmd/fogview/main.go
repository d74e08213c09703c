package main

import (
	"context"
	"flag"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/rs/zerolog/log"

	"github.com/mitchelldurbincs/FogOfWar/internal/config"
	"github.com/mitchelldurbincs/FogOfWar/internal/grpc/fogserver"
	"github.com/mitchelldurbincs/FogOfWar/internal/logging"
	"github.com/mitchelldurbincs/FogOfWar/internal/ui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	address := flag.String("addr", "", "Fog service address (empty to use config default)")
	slot := flag.String("slot", "quicksave", "Slot name used by F5/F9")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize config")
	}
	cfg := config.Get()
	if *address == "" {
		*address = cfg.Viewer.ServerAddress
	}
	logger := logging.Setup(cfg.Server.LogLevel, cfg.Server.LogFormat)

	client, err := fogserver.Dial(*address)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to fog service")
	}
	defer client.Close()

	opts, err := ui.OptionsFromConfig(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid viewer config")
	}
	opts.Slot = *slot

	viewer := ui.NewViewer(client, opts)
	viewer.Start(context.Background())
	defer viewer.Close()

	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowTitle(cfg.Viewer.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)

	logger.Info().Str("address", *address).Int("chunks", opts.Chunks).Msg("Starting fog viewer")
	if err := ebiten.RunGame(viewer); err != nil {
		logger.Error().Err(err).Msg("Viewer exited with error")
	}
}
