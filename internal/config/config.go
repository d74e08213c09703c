package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Fog         FogConfig         `mapstructure:"fog"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
	Server      ServerConfig      `mapstructure:"server"`
	Colors      ColorsConfig      `mapstructure:"colors"`
	Viewer      ViewerConfig      `mapstructure:"viewer"`
	Scenario    ScenarioConfig    `mapstructure:"scenario"`
}

// FogConfig holds the visibility engine settings
type FogConfig struct {
	Chunk    ChunkConfig    `mapstructure:"chunk"`
	Update   UpdateConfig   `mapstructure:"update"`
	Revealer RevealerConfig `mapstructure:"revealer"`
	Height   HeightConfig   `mapstructure:"height"`
}

// ChunkConfig describes the fog region and how it is tiled
type ChunkConfig struct {
	Size        float64    `mapstructure:"size"`
	TextureSize int        `mapstructure:"texture_size"`
	Origin      [2]float64 `mapstructure:"origin"`
	Grid        int        `mapstructure:"grid"`
	Orientation string     `mapstructure:"orientation"`
}

// UpdateConfig holds worker scheduling settings
type UpdateConfig struct {
	IntervalMS      int `mapstructure:"interval_ms"`
	BlendDurationMS int `mapstructure:"blend_duration_ms"`
	IdleSleepMS     int `mapstructure:"idle_sleep_ms"`
	BlurIterations  int `mapstructure:"blur_iterations"`
	TickRate        int `mapstructure:"tick_rate"`
}

// RevealerConfig holds default revealer shapes
type RevealerConfig struct {
	Radius float64   `mapstructure:"radius"`
	LOS    LOSConfig `mapstructure:"los"`
}

// LOSConfig holds default line-of-sight parameters
type LOSConfig struct {
	InnerRadius   float64 `mapstructure:"inner_radius"`
	OuterRadius   float64 `mapstructure:"outer_radius"`
	FieldOfView   float64 `mapstructure:"field_of_view"`
	ReverseFacing bool    `mapstructure:"reverse_facing"`
	EyeHeight     float64 `mapstructure:"eye_height"`
}

// HeightConfig holds height sampling settings
type HeightConfig struct {
	VerticalExtent  float64 `mapstructure:"vertical_extent"`
	OcclusionMargin int     `mapstructure:"occlusion_margin"`
}

// PersistenceConfig selects and configures the save-slot store
type PersistenceConfig struct {
	Type             string      `mapstructure:"type"`
	Directory        string      `mapstructure:"directory"`
	SQLitePath       string      `mapstructure:"sqlite_path"`
	CompressionLevel int         `mapstructure:"compression_level"`
	Minio            MinioConfig `mapstructure:"minio"`
}

// MinioConfig holds S3-compatible object store settings
type MinioConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	UseSSL          bool   `mapstructure:"use_ssl"`
}

// ServerConfig holds process and gRPC settings
type ServerConfig struct {
	Host                  string `mapstructure:"host"`
	Port                  int    `mapstructure:"port"`
	LogLevel              string `mapstructure:"log_level"`
	LogFormat             string `mapstructure:"log_format"`
	EnableHealth          bool   `mapstructure:"enable_health"`
	GracefulShutdownDelay int    `mapstructure:"graceful_shutdown_delay"`
	MonitorIntervalSec    int    `mapstructure:"monitor_interval_sec"`
}

// ColorsConfig holds the fog palette as RGBA
type ColorsConfig struct {
	Fog        [4]int `mapstructure:"fog"`
	Explored   [4]int `mapstructure:"explored"`
	Background [4]int `mapstructure:"background"`
}

// ViewerConfig holds debug viewer settings
type ViewerConfig struct {
	Width          int    `mapstructure:"width"`
	Height         int    `mapstructure:"height"`
	Title          string `mapstructure:"title"`
	ServerAddress  string `mapstructure:"server_address"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms"`
	ShowHeights    bool   `mapstructure:"show_heights"`
}

// ScenarioConfig points at a scripted scenario file
type ScenarioConfig struct {
	Path string `mapstructure:"path"`
}

var (
	mu  sync.RWMutex
	cfg *Config
	v   *viper.Viper
)

// setViperDefaults sets all default values using Viper's SetDefault
func setViperDefaults(v *viper.Viper) {
	// Chunk defaults
	v.SetDefault("fog.chunk.size", 64.0)
	v.SetDefault("fog.chunk.texture_size", 128)
	v.SetDefault("fog.chunk.origin", []float64{0, 0})
	v.SetDefault("fog.chunk.grid", 1)
	v.SetDefault("fog.chunk.orientation", "xz")

	// Update defaults
	v.SetDefault("fog.update.interval_ms", 100)
	v.SetDefault("fog.update.blend_duration_ms", 200)
	v.SetDefault("fog.update.idle_sleep_ms", 1)
	v.SetDefault("fog.update.blur_iterations", 1)
	v.SetDefault("fog.update.tick_rate", 60)

	// Revealer defaults
	v.SetDefault("fog.revealer.radius", 8.0)
	v.SetDefault("fog.revealer.los.inner_radius", 2.0)
	v.SetDefault("fog.revealer.los.outer_radius", 16.0)
	v.SetDefault("fog.revealer.los.field_of_view", 60.0)
	v.SetDefault("fog.revealer.los.reverse_facing", false)
	v.SetDefault("fog.revealer.los.eye_height", 1.7)

	// Height defaults
	v.SetDefault("fog.height.vertical_extent", 32.0)
	v.SetDefault("fog.height.occlusion_margin", 2)

	// Persistence defaults
	v.SetDefault("persistence.type", "file")
	v.SetDefault("persistence.directory", "./saves")
	v.SetDefault("persistence.sqlite_path", "./saves/fog.db")
	v.SetDefault("persistence.compression_level", 3)
	v.SetDefault("persistence.minio.endpoint", "localhost:9000")
	v.SetDefault("persistence.minio.access_key_id", "")
	v.SetDefault("persistence.minio.secret_access_key", "")
	v.SetDefault("persistence.minio.bucket", "fog-slots")
	v.SetDefault("persistence.minio.prefix", "")
	v.SetDefault("persistence.minio.use_ssl", false)

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 50061)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")
	v.SetDefault("server.enable_health", true)
	v.SetDefault("server.graceful_shutdown_delay", 5)
	v.SetDefault("server.monitor_interval_sec", 30)

	// Color defaults
	v.SetDefault("colors.fog", []int{0, 0, 0, 255})
	v.SetDefault("colors.explored", []int{0, 0, 0, 160})
	v.SetDefault("colors.background", []int{70, 110, 70, 255})

	// Viewer defaults
	v.SetDefault("viewer.width", 768)
	v.SetDefault("viewer.height", 768)
	v.SetDefault("viewer.title", "Fog of War Viewer")
	v.SetDefault("viewer.server_address", "localhost:50061")
	v.SetDefault("viewer.poll_interval_ms", 50)
	v.SetDefault("viewer.show_heights", true)

	v.SetDefault("scenario.path", "")
}

// Init initializes the configuration
func Init(configPath string) error {
	nv := viper.New()

	// Set defaults before loading any config
	setViperDefaults(nv)

	if configPath != "" {
		nv.SetConfigFile(configPath)
	} else {
		nv.SetConfigName("config")
		nv.SetConfigType("yaml")
		nv.AddConfigPath(".")
		nv.AddConfigPath("./config")
		nv.AddConfigPath("/etc/fogofwar")
	}

	nv.SetEnvPrefix("FOW")
	nv.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	nv.AutomaticEnv()

	if err := nv.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath == "" && !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	c, err := decode(nv)
	if err != nil {
		return err
	}

	mu.Lock()
	v, cfg = nv, c
	mu.Unlock()
	return nil
}

func decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := Validate(c); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

// Get returns the global config instance
func Get() *Config {
	mu.RLock()
	c := cfg
	mu.RUnlock()
	if c != nil {
		return c
	}

	// Initialize with defaults if not already initialized
	if err := Init(""); err != nil {
		panic("failed to initialize config with defaults: " + err.Error())
	}
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// GetViper returns the viper instance for advanced usage
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	if v == nil {
		panic("config not initialized - call Init() first")
	}
	return v
}

// LoadEnvironmentConfig merges config.<env>.yaml over the loaded configuration
func LoadEnvironmentConfig(env string) error {
	if env == "" {
		return nil
	}

	envFile := fmt.Sprintf("config.%s.yaml", env)
	if _, err := os.Stat(envFile); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	vp := GetViper()
	vp.SetConfigFile(envFile)
	if err := vp.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error merging environment config %s: %w", envFile, err)
		}
	}

	return reload()
}

// Set allows runtime config updates. The change is rejected if it fails validation.
func Set(key string, value interface{}) error {
	vp := GetViper()
	prev := vp.Get(key)
	vp.Set(key, value)
	if err := reload(); err != nil {
		vp.Set(key, prev)
		return err
	}
	return nil
}

func reload() error {
	c, err := decode(GetViper())
	if err != nil {
		return err
	}
	mu.Lock()
	cfg = c
	mu.Unlock()
	return nil
}

// GetString gets a string value from config
func GetString(key string) string {
	return GetViper().GetString(key)
}

// GetInt gets an int value from config
func GetInt(key string) int {
	return GetViper().GetInt(key)
}

// GetBool gets a bool value from config
func GetBool(key string) bool {
	return GetViper().GetBool(key)
}

// GetFloat64 gets a float64 value from config
func GetFloat64(key string) float64 {
	return GetViper().GetFloat64(key)
}

// ConfigFilePath returns the path of the loaded config file
func ConfigFilePath() string {
	return GetViper().ConfigFileUsed()
}

// WatchConfig enables hot-reloading of the config file. onChange receives the new
// config, or the validation error when the edited file is rejected; a rejected
// file leaves the previous config in place.
func WatchConfig(onChange func(*Config, error)) {
	vp := GetViper()
	vp.OnConfigChange(func(e fsnotify.Event) {
		err := reload()
		if onChange != nil {
			onChange(Get(), err)
		}
	})
	vp.WatchConfig()
}

// Validate checks that the configuration is usable
func Validate(c *Config) error {
	// Validate chunk layout
	if c.Fog.Chunk.Size <= 0 {
		return fmt.Errorf("fog.chunk.size must be positive")
	}
	if c.Fog.Chunk.TextureSize <= 0 {
		return fmt.Errorf("fog.chunk.texture_size must be positive")
	}
	if c.Fog.Chunk.Grid < 1 {
		return fmt.Errorf("fog.chunk.grid must be at least 1")
	}
	switch strings.ToLower(c.Fog.Chunk.Orientation) {
	case "", "xz", "3d", "xy", "2d":
	default:
		return fmt.Errorf("fog.chunk.orientation must be one of xz, xy")
	}

	// Validate scheduling
	if c.Fog.Update.IntervalMS < 0 {
		return fmt.Errorf("fog.update.interval_ms must be non-negative")
	}
	if c.Fog.Update.BlendDurationMS < 0 {
		return fmt.Errorf("fog.update.blend_duration_ms must be non-negative")
	}
	if c.Fog.Update.IdleSleepMS < 0 {
		return fmt.Errorf("fog.update.idle_sleep_ms must be non-negative")
	}
	if c.Fog.Update.BlurIterations < 0 {
		return fmt.Errorf("fog.update.blur_iterations must be non-negative")
	}
	if c.Fog.Update.TickRate <= 0 {
		return fmt.Errorf("fog.update.tick_rate must be positive")
	}

	// Validate revealer defaults
	if c.Fog.Revealer.Radius < 0 {
		return fmt.Errorf("fog.revealer.radius must be non-negative")
	}
	los := c.Fog.Revealer.LOS
	if los.InnerRadius < 0 || los.OuterRadius < 0 {
		return fmt.Errorf("fog.revealer.los radii must be non-negative")
	}
	if los.FieldOfView < 0 || los.FieldOfView > 180 {
		return fmt.Errorf("fog.revealer.los.field_of_view must be between 0 and 180")
	}
	if los.EyeHeight < 0 {
		return fmt.Errorf("fog.revealer.los.eye_height must be non-negative")
	}

	// Validate height sampling
	if c.Fog.Height.VerticalExtent <= 0 {
		return fmt.Errorf("fog.height.vertical_extent must be positive")
	}
	if c.Fog.Height.OcclusionMargin < 0 || c.Fog.Height.OcclusionMargin > 255 {
		return fmt.Errorf("fog.height.occlusion_margin must be between 0 and 255")
	}

	// Validate persistence
	switch c.Persistence.Type {
	case "memory", "file", "sqlite", "minio":
	default:
		return fmt.Errorf("persistence.type must be one of memory, file, sqlite, minio")
	}
	if c.Persistence.Type == "minio" && c.Persistence.Minio.Bucket == "" {
		return fmt.Errorf("persistence.minio.bucket is required for the minio store")
	}

	// Validate server configuration
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.GracefulShutdownDelay < 0 {
		return fmt.Errorf("server.graceful_shutdown_delay must be non-negative")
	}

	// Validate viewer
	if c.Viewer.Width <= 0 || c.Viewer.Height <= 0 {
		return fmt.Errorf("viewer dimensions must be positive")
	}

	// Validate color values
	validateRGBA := func(rgba [4]int, name string) error {
		for i, v := range rgba {
			if v < 0 || v > 255 {
				return fmt.Errorf("%s[%d] must be between 0 and 255", name, i)
			}
		}
		return nil
	}
	if err := validateRGBA(c.Colors.Fog, "colors.fog"); err != nil {
		return err
	}
	if err := validateRGBA(c.Colors.Explored, "colors.explored"); err != nil {
		return err
	}
	if err := validateRGBA(c.Colors.Background, "colors.background"); err != nil {
		return err
	}

	return nil
}
