package persist

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
)

// FormatVersion is written into every slot header
const FormatVersion = 1

var (
	// ErrCorruptSlot is returned when slot data cannot be decoded
	ErrCorruptSlot = errors.New("corrupt save slot")
	// ErrUnsupportedVersion is returned for slots written by a newer format
	ErrUnsupportedVersion = errors.New("unsupported save slot version")
)

// Header describes a save slot. It is stored as one JSON line ahead of the channel planes.
type Header struct {
	Version     int       `json:"version"`
	WorldID     string    `json:"world_id"`
	ChunkID     int       `json:"chunk_id"`
	TextureSize int       `json:"texture_size"`
	Tick        uint64    `json:"tick"`
	SavedAt     time.Time `json:"saved_at"`
}

// Slot is one saved chunk
type Slot struct {
	Header   Header
	Channels pipeline.ChannelSet
}

// Encode writes the slot as zstd(header JSON + '\n' + instant + explored + blur)
func Encode(w io.Writer, slot Slot, level int) error {
	if err := slot.Channels.Validate(); err != nil {
		return err
	}
	slot.Header.Version = FormatVersion
	slot.Header.TextureSize = slot.Channels.TextureSize

	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(encoderLevel(level)))
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(enc)
	hb, err := json.Marshal(slot.Header)
	if err != nil {
		enc.Close()
		return fmt.Errorf("encode header: %w", err)
	}
	writes := [][]byte{hb, {'\n'}, slot.Channels.Instant, slot.Channels.Explored, slot.Channels.Blur}
	for _, b := range writes {
		if _, err := bw.Write(b); err != nil {
			enc.Close()
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// Decode reads a slot written by Encode
func Decode(r io.Reader) (Slot, error) {
	var slot Slot

	dec, err := zstd.NewReader(r)
	if err != nil {
		return slot, err
	}
	defer dec.Close()

	br := bufio.NewReader(dec)
	line, err := br.ReadBytes('\n')
	if err != nil {
		return slot, fmt.Errorf("%w: header: %v", ErrCorruptSlot, err)
	}
	if err := json.Unmarshal(line, &slot.Header); err != nil {
		return slot, fmt.Errorf("%w: header: %v", ErrCorruptSlot, err)
	}
	if slot.Header.Version > FormatVersion {
		return slot, fmt.Errorf("%w: %d", ErrUnsupportedVersion, slot.Header.Version)
	}
	size := slot.Header.TextureSize
	if size <= 0 || size > 1<<14 {
		return slot, fmt.Errorf("%w: texture size %d", ErrCorruptSlot, size)
	}

	n := size * size
	cs := pipeline.ChannelSet{
		TextureSize: size,
		Instant:     make([]byte, n),
		Explored:    make([]byte, n),
		Blur:        make([]byte, n),
	}
	for _, plane := range [][]byte{cs.Instant, cs.Explored, cs.Blur} {
		if _, err := io.ReadFull(br, plane); err != nil {
			return slot, fmt.Errorf("%w: channel data: %v", ErrCorruptSlot, err)
		}
	}
	slot.Channels = cs
	return slot, nil
}

// Marshal encodes a slot into memory
func Marshal(slot Slot, level int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, slot, level); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a slot from memory
func Unmarshal(data []byte) (Slot, error) {
	return Decode(bytes.NewReader(data))
}

// encoderLevel maps 1-4 onto zstd's named levels; anything else is the default
func encoderLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 0:
		return zstd.SpeedDefault
	case level == 1:
		return zstd.SpeedFastest
	case level == 2, level == 3:
		return zstd.SpeedDefault
	case level == 4:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
