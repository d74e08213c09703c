package world

import (
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/FogOfWar/internal/config"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/chunk"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
	"github.com/mitchelldurbincs/FogOfWar/internal/persist"
)

// OptionsFromConfig maps the fog configuration onto world options. Query, Store
// and Logger are left for the caller.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	region, err := RegionFromConfig(cfg.Fog.Chunk)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Region:         region,
		Grid:           cfg.Fog.Chunk.Grid,
		VerticalExtent: float32(cfg.Fog.Height.VerticalExtent),
		Tuning:         TuningFromConfig(cfg.Fog),
		EventLogLevel:  zerolog.DebugLevel,
	}, nil
}

// RegionFromConfig builds the whole-region geometry
func RegionFromConfig(c config.ChunkConfig) (core.Geometry, error) {
	orientation, err := core.ParseOrientation(c.Orientation)
	if err != nil {
		return core.Geometry{}, err
	}
	g := core.Geometry{
		Origin:      mgl32.Vec2{float32(c.Origin[0]), float32(c.Origin[1])},
		Size:        float32(c.Size),
		TextureSize: c.TextureSize,
		Orientation: orientation,
	}
	return g, g.Validate()
}

// TuningFromConfig converts millisecond settings into chunk tuning
func TuningFromConfig(c config.FogConfig) chunk.Tuning {
	return chunk.Tuning{
		UpdateInterval:  time.Duration(c.Update.IntervalMS) * time.Millisecond,
		BlendDuration:   time.Duration(c.Update.BlendDurationMS) * time.Millisecond,
		IdleSleep:       time.Duration(c.Update.IdleSleepMS) * time.Millisecond,
		BlurIterations:  c.Update.BlurIterations,
		OcclusionMargin: c.Height.OcclusionMargin,
	}
}

// DefaultShapes returns the configured default radius and line-of-sight shapes
func DefaultShapes(c config.RevealerConfig) (revealer.Radius, revealer.LineOfSight) {
	return revealer.Radius{Radius: float32(c.Radius)}, revealer.LineOfSight{
		InnerRadius:   float32(c.LOS.InnerRadius),
		OuterRadius:   float32(c.LOS.OuterRadius),
		FieldOfView:   float32(c.LOS.FieldOfView),
		ReverseFacing: c.LOS.ReverseFacing,
		EyeHeight:     float32(c.LOS.EyeHeight),
	}
}

// PersistenceFromConfig maps the persistence section onto store settings
func PersistenceFromConfig(c config.PersistenceConfig) persist.PersistenceConfig {
	return persist.PersistenceConfig{
		Type:             persist.PersistenceType(c.Type),
		CompressionLevel: c.CompressionLevel,
		BaseDir:          c.Directory,
		SQLitePath:       c.SQLitePath,
		Endpoint:         c.Minio.Endpoint,
		AccessKeyID:      c.Minio.AccessKeyID,
		SecretAccessKey:  c.Minio.SecretAccessKey,
		Bucket:           c.Minio.Bucket,
		Prefix:           c.Minio.Prefix,
		UseSSL:           c.Minio.UseSSL,
	}
}
