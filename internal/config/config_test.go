package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobals() {
	mu.Lock()
	cfg = nil
	v = nil
	mu.Unlock()
}

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")

	configContent := `
fog:
  chunk:
    size: 32
    texture_size: 64
    origin: [-16, -16]
    grid: 2
    orientation: xy
  update:
    interval_ms: 50
    blur_iterations: 3
  revealer:
    los:
      field_of_view: 45
server:
  port: 8080
colors:
  fog: [10, 20, 30, 255]
`

	err := os.WriteFile(configFile, []byte(configContent), 0644)
	require.NoError(t, err)

	resetGlobals()
	require.NoError(t, Init(configFile))

	c := Get()
	assert.Equal(t, 32.0, c.Fog.Chunk.Size)
	assert.Equal(t, 64, c.Fog.Chunk.TextureSize)
	assert.Equal(t, [2]float64{-16, -16}, c.Fog.Chunk.Origin)
	assert.Equal(t, 2, c.Fog.Chunk.Grid)
	assert.Equal(t, "xy", c.Fog.Chunk.Orientation)
	assert.Equal(t, 50, c.Fog.Update.IntervalMS)
	assert.Equal(t, 3, c.Fog.Update.BlurIterations)
	assert.Equal(t, 45.0, c.Fog.Revealer.LOS.FieldOfView)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, [4]int{10, 20, 30, 255}, c.Colors.Fog)

	// untouched keys keep their defaults
	assert.Equal(t, 200, c.Fog.Update.BlendDurationMS)
	assert.Equal(t, [4]int{0, 0, 0, 160}, c.Colors.Explored)
	assert.Equal(t, configFile, ConfigFilePath())
}

func TestInitWithDefaults(t *testing.T) {
	resetGlobals()

	err := Init("/non/existent/path/config.yaml")
	require.NoError(t, err)

	c := Get()
	require.NotNil(t, c)
	assert.Equal(t, 64.0, c.Fog.Chunk.Size)
	assert.Equal(t, 128, c.Fog.Chunk.TextureSize)
	assert.Equal(t, 1, c.Fog.Chunk.Grid)
	assert.Equal(t, "xz", c.Fog.Chunk.Orientation)
	assert.Equal(t, 100, c.Fog.Update.IntervalMS)
	assert.Equal(t, 32.0, c.Fog.Height.VerticalExtent)
	assert.Equal(t, "file", c.Persistence.Type)
	assert.Equal(t, 50061, c.Server.Port)
	assert.True(t, c.Server.EnableHealth)
}

func TestInitRejectsInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("fog:\n  chunk:\n    texture_size: 0\n"), 0644))

	resetGlobals()
	err := Init(configFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fog.chunk.texture_size")
}

func TestEnvironmentVariables(t *testing.T) {
	resetGlobals()

	t.Setenv("FOW_FOG_UPDATE_INTERVAL_MS", "250")
	t.Setenv("FOW_SERVER_PORT", "9090")
	t.Setenv("FOW_PERSISTENCE_TYPE", "sqlite")

	require.NoError(t, Init(""))

	c := Get()
	assert.Equal(t, 250, c.Fog.Update.IntervalMS)
	assert.Equal(t, 9090, c.Server.Port)
	assert.Equal(t, "sqlite", c.Persistence.Type)
}

func TestSet(t *testing.T) {
	resetGlobals()
	require.NoError(t, Init(""))

	require.NoError(t, Set("fog.update.blur_iterations", 4))
	require.NoError(t, Set("viewer.width", 1280))

	c := Get()
	assert.Equal(t, 4, c.Fog.Update.BlurIterations)
	assert.Equal(t, 1280, c.Viewer.Width)
}

func TestSetRejectsInvalidValue(t *testing.T) {
	resetGlobals()
	require.NoError(t, Init(""))

	err := Set("fog.revealer.los.field_of_view", 270)
	require.Error(t, err)

	assert.Equal(t, 60.0, Get().Fog.Revealer.LOS.FieldOfView)
	assert.Equal(t, 60.0, GetFloat64("fog.revealer.los.field_of_view"))
}

func TestGetHelpers(t *testing.T) {
	resetGlobals()
	require.NoError(t, Init(""))

	require.NoError(t, Set("test.string", "hello"))
	require.NoError(t, Set("test.int", 42))
	require.NoError(t, Set("test.bool", true))
	require.NoError(t, Set("test.float", 3.14))

	assert.Equal(t, "hello", GetString("test.string"))
	assert.Equal(t, 42, GetInt("test.int"))
	assert.Equal(t, true, GetBool("test.bool"))
	assert.Equal(t, 3.14, GetFloat64("test.float"))
}

func TestLoadEnvironmentConfig(t *testing.T) {
	tmpDir := t.TempDir()

	baseConfig := filepath.Join(tmpDir, "config.yaml")
	baseContent := `
fog:
  update:
    interval_ms: 100
server:
  port: 50061
`
	require.NoError(t, os.WriteFile(baseConfig, []byte(baseContent), 0644))

	envConfig := filepath.Join(tmpDir, "config.prod.yaml")
	envContent := `
fog:
  update:
    interval_ms: 40
server:
  port: 8080
  log_level: "error"
`
	require.NoError(t, os.WriteFile(envConfig, []byte(envContent), 0644))

	oldWd, _ := os.Getwd()
	_ = os.Chdir(tmpDir)
	defer func() { _ = os.Chdir(oldWd) }()

	resetGlobals()
	require.NoError(t, Init(baseConfig))

	require.NoError(t, LoadEnvironmentConfig("prod"))
	require.NoError(t, LoadEnvironmentConfig("missing"))

	c := Get()
	assert.Equal(t, 40, c.Fog.Update.IntervalMS)
	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "error", c.Server.LogLevel)
}

func TestWatchConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configFile := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configFile, []byte("fog:\n  update:\n    blur_iterations: 1\n"), 0644))

	resetGlobals()
	require.NoError(t, Init(configFile))

	changed := make(chan *Config, 8)
	WatchConfig(func(c *Config, err error) {
		if err == nil {
			changed <- c
		}
	})

	// give the watcher time to register before editing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(configFile, []byte("fog:\n  update:\n    blur_iterations: 5\n"), 0644))

	select {
	case c := <-changed:
		assert.Equal(t, 5, c.Fog.Update.BlurIterations)
	case <-time.After(5 * time.Second):
		t.Skip("file watcher did not fire in time on this platform")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		resetGlobals()
		require.NoError(t, Init(""))
		c := *Get()
		return &c
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"negative chunk size", func(c *Config) { c.Fog.Chunk.Size = -1 }, "fog.chunk.size"},
		{"zero grid", func(c *Config) { c.Fog.Chunk.Grid = 0 }, "fog.chunk.grid"},
		{"unknown orientation", func(c *Config) { c.Fog.Chunk.Orientation = "yz" }, "fog.chunk.orientation"},
		{"negative blur", func(c *Config) { c.Fog.Update.BlurIterations = -1 }, "fog.update.blur_iterations"},
		{"zero tick rate", func(c *Config) { c.Fog.Update.TickRate = 0 }, "fog.update.tick_rate"},
		{"fov out of range", func(c *Config) { c.Fog.Revealer.LOS.FieldOfView = 181 }, "field_of_view"},
		{"zero vertical extent", func(c *Config) { c.Fog.Height.VerticalExtent = 0 }, "vertical_extent"},
		{"unknown store", func(c *Config) { c.Persistence.Type = "redis" }, "persistence.type"},
		{"minio without bucket", func(c *Config) {
			c.Persistence.Type = "minio"
			c.Persistence.Minio.Bucket = ""
		}, "persistence.minio.bucket"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"bad color", func(c *Config) { c.Colors.Explored[3] = 300 }, "colors.explored[3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := Validate(c)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}

	assert.NoError(t, Validate(valid()))
}
