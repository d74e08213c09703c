package persist

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
	"github.com/mitchelldurbincs/FogOfWar/internal/testutil"
)

func testSlot(size int, seed int64) Slot {
	rng := testutil.NewTestRNG(seed)
	n := size * size
	cs := pipeline.ChannelSet{
		TextureSize: size,
		Instant:     make([]byte, n),
		Explored:    make([]byte, n),
		Blur:        make([]byte, n),
	}
	rng.Read(cs.Instant)
	rng.Read(cs.Explored)
	rng.Read(cs.Blur)
	return Slot{
		Header: Header{
			WorldID: "world-1",
			ChunkID: 0,
			Tick:    42,
			SavedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		},
		Channels: cs,
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	for _, level := range []int{0, 1, 3, 4, 9} {
		slot := testSlot(16, int64(level))
		data, err := Marshal(slot, level)
		require.NoError(t, err)

		got, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Equal(t, slot.Channels, got.Channels)
		assert.Equal(t, FormatVersion, got.Header.Version)
		assert.Equal(t, 16, got.Header.TextureSize)
		assert.Equal(t, uint64(42), got.Header.Tick)
		assert.True(t, slot.Header.SavedAt.Equal(got.Header.SavedAt))
	}
}

func TestCodec_RejectsInvalidChannels(t *testing.T) {
	slot := testSlot(4, 1)
	slot.Channels.Blur = slot.Channels.Blur[:3]
	_, err := Marshal(slot, 0)
	assert.ErrorIs(t, err, core.ErrBufferSizeMismatch)
}

func TestCodec_Truncated(t *testing.T) {
	data, err := Marshal(testSlot(8, 2), 0)
	require.NoError(t, err)

	_, err = Unmarshal(data[:len(data)/2])
	assert.Error(t, err)

	_, err = Unmarshal([]byte("not zstd"))
	assert.Error(t, err)
}

func encodeRaw(t *testing.T, payload string) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte(payload))
	require.NoError(t, err)
	require.NoError(t, enc.Close())
	return buf.Bytes()
}

func TestCodec_RejectsBadHeaders(t *testing.T) {
	_, err := Unmarshal(encodeRaw(t, `{"version":99,"texture_size":2}`+"\n"+"abcdefghijkl"))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = Unmarshal(encodeRaw(t, `{"version":1,"texture_size":0}`+"\n"))
	assert.ErrorIs(t, err, ErrCorruptSlot)

	_, err = Unmarshal(encodeRaw(t, "{not json\n"))
	assert.ErrorIs(t, err, ErrCorruptSlot)

	_, err = Unmarshal(encodeRaw(t, `{"version":1,"texture_size":2}`+"\n"+"short"))
	assert.ErrorIs(t, err, ErrCorruptSlot)
}

func TestValidateSlotName(t *testing.T) {
	for _, name := range []string{"slot1", "chunk-0_autosave", "a.b"} {
		assert.NoError(t, ValidateSlotName(name), name)
	}
	for _, name := range []string{"", ".", "..", "a/b", `a\b`} {
		assert.ErrorIs(t, ValidateSlotName(name), ErrInvalidSlotName, name)
	}
}

// exerciseStore runs the common Store contract against an implementation
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)
	assert.ErrorIs(t, store.Delete(ctx, "missing"), ErrSlotNotFound)
	assert.ErrorIs(t, store.Save(ctx, "../escape", testSlot(2, 0)), ErrInvalidSlotName)

	first := testSlot(8, 10)
	second := testSlot(8, 11)
	require.NoError(t, store.Save(ctx, "b", first))
	require.NoError(t, store.Save(ctx, "a", first))
	require.NoError(t, store.Save(ctx, "a", second))

	got, err := store.Load(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, second.Channels, got.Channels, "second save replaces the first")

	names, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)

	require.NoError(t, store.Delete(ctx, "b"))
	names, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names)

	stats := store.Stats()
	assert.Equal(t, int64(3), stats.TotalSaved)
	assert.Equal(t, int64(1), stats.TotalLoaded)
	assert.Equal(t, int64(1), stats.TotalDeleted)
	assert.Positive(t, stats.BytesWritten)
	assert.Zero(t, stats.ReadErrors)

	require.NoError(t, store.Close())
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore(PersistenceConfig{}))
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(PersistenceConfig{BaseDir: filepath.Join(dir, "saves")}, testutil.NopLogger())
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFileStore_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(PersistenceConfig{BaseDir: dir}, testutil.NopLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.fog"), []byte("garbage"), 0o644))
	_, err = store.Load(context.Background(), "broken")
	assert.Error(t, err)
	assert.Equal(t, int64(1), store.Stats().ReadErrors)
}

func TestFileStore_RequiresDirectory(t *testing.T) {
	_, err := NewFileStore(PersistenceConfig{}, testutil.NopLogger())
	assert.Error(t, err)
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db", "fog.db")
	store, err := NewSQLiteStore(PersistenceConfig{SQLitePath: path}, testutil.NopLogger())
	require.NoError(t, err)
	exerciseStore(t, store)

	_, err = store.List(context.Background())
	assert.ErrorIs(t, err, ErrStoreClosed)
}

func TestSQLiteStore_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fog.db")
	cfg := PersistenceConfig{SQLitePath: path}
	ctx := context.Background()

	store, err := NewSQLiteStore(cfg, testutil.NopLogger())
	require.NoError(t, err)
	slot := testSlot(4, 5)
	require.NoError(t, store.Save(ctx, "persisted", slot))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(cfg, testutil.NopLogger())
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Load(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, slot.Channels, got.Channels)
	assert.Equal(t, "world-1", got.Header.WorldID)
}

func TestMinioStore_Keys(t *testing.T) {
	store, err := NewMinioStore(PersistenceConfig{
		Endpoint: "localhost:9000",
		Bucket:   "fog",
		Prefix:   "/worlds/alpha/",
	}, testutil.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, "worlds/alpha/slot1.fog", store.key("slot1"))

	bare, err := NewMinioStore(PersistenceConfig{Endpoint: "localhost:9000", Bucket: "fog"}, testutil.NopLogger())
	require.NoError(t, err)
	assert.Equal(t, "slot1.fog", bare.key("slot1"))

	_, err = NewMinioStore(PersistenceConfig{Endpoint: "localhost:9000"}, testutil.NopLogger())
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	dir := t.TempDir()
	logger := testutil.NopLogger()

	mem, err := NewStore(PersistenceConfig{Type: PersistenceTypeMemory}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, mem)

	file, err := NewStore(PersistenceConfig{Type: PersistenceTypeFile, BaseDir: dir}, logger)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, file)

	db, err := NewStore(PersistenceConfig{Type: PersistenceTypeSQLite, SQLitePath: filepath.Join(dir, "x.db")}, logger)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, db)
	require.NoError(t, db.Close())

	obj, err := NewStore(PersistenceConfig{Type: PersistenceTypeMinio, Endpoint: "localhost:9000", Bucket: "b"}, logger)
	require.NoError(t, err)
	assert.IsType(t, &MinioStore{}, obj)

	_, err = NewStore(PersistenceConfig{Type: "tape"}, logger)
	assert.ErrorIs(t, err, ErrInvalidPersistenceType)
}
