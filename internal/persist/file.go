package persist

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

const slotExt = ".fog"

// FileStore writes one zstd-compressed file per slot under a base directory
type FileStore struct {
	statsRecorder
	dir    string
	level  int
	logger zerolog.Logger
}

// NewFileStore creates the base directory if needed
func NewFileStore(config PersistenceConfig, logger zerolog.Logger) (*FileStore, error) {
	if config.BaseDir == "" {
		return nil, fmt.Errorf("file store: base directory is required")
	}
	if err := os.MkdirAll(config.BaseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	return &FileStore{
		dir:    config.BaseDir,
		level:  config.CompressionLevel,
		logger: logger.With().Str("component", "file_store").Logger(),
	}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+slotExt)
}

// Save writes to a temp file and renames it over the slot
func (s *FileStore) Save(ctx context.Context, name string, slot Slot) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := Marshal(slot, s.level)
	if err != nil {
		s.recordWrite(0, err)
		return err
	}

	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		s.recordWrite(0, err)
		return fmt.Errorf("create temp slot: %w", err)
	}
	tmpName := tmp.Name()
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if werr == nil {
		werr = cerr
	}
	if werr == nil {
		werr = os.Rename(tmpName, s.path(name))
	}
	if werr != nil {
		_ = os.Remove(tmpName)
		s.recordWrite(0, werr)
		return fmt.Errorf("write slot %s: %w", name, werr)
	}

	s.recordWrite(len(data), nil)
	s.logger.Debug().Str("slot", name).Int("bytes", len(data)).Msg("Saved slot")
	return nil
}

// Load implements Store
func (s *FileStore) Load(ctx context.Context, name string) (Slot, error) {
	if err := ValidateSlotName(name); err != nil {
		return Slot{}, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		err = fmt.Errorf("%w: %s", ErrSlotNotFound, name)
		s.recordRead(0, err)
		return Slot{}, err
	}
	if err != nil {
		s.recordRead(0, err)
		return Slot{}, fmt.Errorf("read slot %s: %w", name, err)
	}

	slot, err := Unmarshal(data)
	s.recordRead(len(data), err)
	if err != nil {
		s.logger.Error().Err(err).Str("slot", name).Msg("Failed to decode slot")
		return Slot{}, err
	}
	return slot, nil
}

// Delete implements Store
func (s *FileStore) Delete(ctx context.Context, name string) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	err := os.Remove(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	if err != nil {
		return err
	}
	s.recordDelete()
	return nil
}

// List implements Store
func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), slotExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), slotExt))
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Store
func (s *FileStore) Close() error {
	return nil
}
