package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrSlotNotFound is returned when loading or deleting a slot that was never saved
	ErrSlotNotFound = errors.New("save slot not found")
	// ErrInvalidSlotName is returned for empty names or names containing path separators
	ErrInvalidSlotName = errors.New("invalid save slot name")
	// ErrInvalidPersistenceType is returned when an unknown persistence type is specified
	ErrInvalidPersistenceType = errors.New("invalid persistence type")
	// ErrStoreClosed is returned by operations on a closed store
	ErrStoreClosed = errors.New("store closed")
)

// PersistenceType represents the type of save-slot backend
type PersistenceType string

const (
	// PersistenceTypeMemory keeps slots in process memory
	PersistenceTypeMemory PersistenceType = "memory"
	// PersistenceTypeFile writes one compressed file per slot
	PersistenceTypeFile PersistenceType = "file"
	// PersistenceTypeSQLite stores compressed slots as blobs in a sqlite database
	PersistenceTypeSQLite PersistenceType = "sqlite"
	// PersistenceTypeMinio stores compressed slots as objects in an S3-compatible bucket
	PersistenceTypeMinio PersistenceType = "minio"
)

// PersistenceConfig contains configuration for the save-slot store
type PersistenceConfig struct {
	Type             PersistenceType
	CompressionLevel int

	// File-based config
	BaseDir string

	// SQLite config
	SQLitePath string

	// Minio config
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Prefix          string
	UseSSL          bool
}

// DefaultPersistenceConfig returns a default persistence configuration
func DefaultPersistenceConfig() PersistenceConfig {
	return PersistenceConfig{
		Type:             PersistenceTypeFile,
		CompressionLevel: 3,
		BaseDir:          "saves",
		SQLitePath:       "saves/fog.db",
		Bucket:           "fog-slots",
	}
}

// Store defines the interface for persisting chunk save slots
type Store interface {
	// Save writes a slot, replacing any previous slot with the same name
	Save(ctx context.Context, name string, slot Slot) error

	// Load reads a slot
	Load(ctx context.Context, name string) (Slot, error)

	// Delete removes a slot
	Delete(ctx context.Context, name string) error

	// List returns the saved slot names in lexical order
	List(ctx context.Context) ([]string, error)

	// Close cleanly shuts down the store
	Close() error

	// Stats returns persistence statistics
	Stats() PersistenceStats
}

// PersistenceStats contains statistics about persistence operations
type PersistenceStats struct {
	TotalSaved    int64
	TotalLoaded   int64
	TotalDeleted  int64
	BytesWritten  int64
	BytesRead     int64
	WriteErrors   int64
	ReadErrors    int64
	LastWriteTime time.Time
	LastReadTime  time.Time
}

// statsRecorder is embedded by stores to track PersistenceStats
type statsRecorder struct {
	mu    sync.Mutex
	stats PersistenceStats
}

func (r *statsRecorder) recordWrite(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.stats.WriteErrors++
		return
	}
	r.stats.TotalSaved++
	r.stats.BytesWritten += int64(n)
	r.stats.LastWriteTime = time.Now()
}

func (r *statsRecorder) recordRead(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		if !errors.Is(err, ErrSlotNotFound) {
			r.stats.ReadErrors++
		}
		return
	}
	r.stats.TotalLoaded++
	r.stats.BytesRead += int64(n)
	r.stats.LastReadTime = time.Now()
}

func (r *statsRecorder) recordDelete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.TotalDeleted++
}

// Stats returns a copy of the recorded statistics
func (r *statsRecorder) Stats() PersistenceStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// ValidateSlotName rejects names that cannot be used as a file name or object key
func ValidateSlotName(name string) error {
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidSlotName, name)
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q contains a path separator", ErrInvalidSlotName, name)
	}
	return nil
}

// NewStore creates the store selected by config.Type
func NewStore(config PersistenceConfig, logger zerolog.Logger) (Store, error) {
	switch config.Type {
	case PersistenceTypeMemory:
		return NewMemoryStore(config), nil
	case PersistenceTypeFile:
		return NewFileStore(config, logger)
	case PersistenceTypeSQLite:
		return NewSQLiteStore(config, logger)
	case PersistenceTypeMinio:
		return NewMinioStore(config, logger)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidPersistenceType, config.Type)
	}
}
