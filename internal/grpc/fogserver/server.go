package fogserver

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/chunk"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/revealer"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/world"
	"github.com/mitchelldurbincs/FogOfWar/internal/persist"
	"github.com/mitchelldurbincs/FogOfWar/internal/present"
)

// Backend is the fog world the service reads from
type Backend interface {
	ID() string
	Manager() *world.Manager
	Registry() *revealer.Registry
}

// SlotController performs save-slot operations on the world's update goroutine
type SlotController interface {
	SaveSlot(ctx context.Context, name string) error
	LoadSlot(ctx context.Context, name string) error
	ListSlots(ctx context.Context) ([]string, error)
}

// TerrainController edits obstacle heights on the world's update goroutine
type TerrainController interface {
	SetHeight(ctx context.Context, pos mgl32.Vec3, height float32) error
	Rebake(ctx context.Context) error
}

// Server implements FogServiceServer
type Server struct {
	backend Backend
	slots   SlotController
	terrain TerrainController
	logger  zerolog.Logger
}

var _ FogServiceServer = (*Server)(nil)

// NewServer creates the service. A nil slot controller disables the slot methods.
func NewServer(backend Backend, slots SlotController, logger zerolog.Logger) *Server {
	return &Server{
		backend: backend,
		slots:   slots,
		logger:  logger.With().Str("component", "fog_service").Logger(),
	}
}

// WithTerrain enables the height editing methods
func (s *Server) WithTerrain(t TerrainController) *Server {
	s.terrain = t
	return s
}

func (s *Server) chunk(id *wrapperspb.UInt32Value) (*chunk.Chunk, error) {
	c, err := s.backend.Manager().Chunk(int(id.GetValue()))
	if err != nil {
		return nil, toStatus(err)
	}
	return c, nil
}

// LatestBuffer returns four bytes per cell in A,B,C,D order, row by row. The
// blend factor of the same frame is sent in the BlendHeader response header.
func (s *Server) LatestBuffer(ctx context.Context, req *wrapperspb.UInt32Value) (*wrapperspb.BytesValue, error) {
	c, err := s.chunk(req)
	if err != nil {
		return nil, err
	}
	px, blend := c.Presented()
	if px == nil {
		return nil, toStatus(present.ErrNoFrame)
	}
	header := metadata.Pairs(BlendHeader, strconv.FormatFloat(float64(blend), 'g', -1, 32))
	if err := grpc.SetHeader(ctx, header); err != nil {
		s.logger.Debug().Err(err).Msg("Blend header not sent")
	}
	out := make([]byte, 4*len(px))
	for i, p := range px {
		copy(out[4*i:], p[:])
	}
	return wrapperspb.Bytes(out), nil
}

// BlendFactor returns a chunk's current crossfade factor
func (s *Server) BlendFactor(ctx context.Context, req *wrapperspb.UInt32Value) (*wrapperspb.FloatValue, error) {
	c, err := s.chunk(req)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Float(c.BlendFactor()), nil
}

// Heights returns a chunk's quantized height grid
func (s *Server) Heights(ctx context.Context, req *wrapperspb.UInt32Value) (*wrapperspb.BytesValue, error) {
	c, err := s.chunk(req)
	if err != nil {
		return nil, err
	}
	return wrapperspb.Bytes(c.Heights()), nil
}

// Stats returns world and per-chunk counters
func (s *Server) Stats(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	m := s.backend.Manager()
	reg := s.backend.Registry()
	adds, removes := reg.Pending()
	region := m.Region()

	chunks := make([]any, 0, m.Len())
	for _, cs := range m.Stats() {
		chunks = append(chunks, map[string]any{
			"id":              cs.ID,
			"phase":           cs.Phase.String(),
			"active":          cs.Active,
			"passes":          cs.Passes,
			"failed_passes":   cs.FailedPasses,
			"published":       cs.Published,
			"dropped":         cs.Dropped,
			"last_pass_ms":    float64(cs.LastPass.Microseconds()) / 1000,
			"last_lit_cells":  cs.LastLitCells,
			"last_revealers":  cs.LastRevealers,
			"blend_factor":    cs.BlendFactor,
			"presented_seq":   cs.PresentedSeq,
			"presented_tick":  cs.PresentedTick,
			"pending_publish": cs.PendingPublish,
		})
	}

	out, err := structpb.NewStruct(map[string]any{
		"world_id":         s.backend.ID(),
		"grid":             m.Grid(),
		"texture_size":     region.TextureSize,
		"orientation":      region.Orientation.String(),
		"active_workers":   m.ActiveWorkers(),
		"active_revealers": reg.Active(),
		"pending_adds":     adds,
		"pending_removes":  removes,
		"chunks":           chunks,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode stats")
		return nil, status.Errorf(codes.Internal, "encode stats: %v", err)
	}
	return out, nil
}

// SaveSlot saves the world's visibility state under a slot name
func (s *Server) SaveSlot(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if s.slots == nil {
		return nil, status.Error(codes.Unimplemented, "save slots are not configured")
	}
	if err := s.slots.SaveSlot(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info().Str("slot", req.GetValue()).Msg("Slot saved over gRPC")
	return &emptypb.Empty{}, nil
}

// LoadSlot restores the world's visibility state from a slot
func (s *Server) LoadSlot(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if s.slots == nil {
		return nil, status.Error(codes.Unimplemented, "save slots are not configured")
	}
	if err := s.slots.LoadSlot(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info().Str("slot", req.GetValue()).Msg("Slot loaded over gRPC")
	return &emptypb.Empty{}, nil
}

// ListSlots returns the saved slot names
func (s *Server) ListSlots(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	if s.slots == nil {
		return nil, status.Error(codes.Unimplemented, "save slots are not configured")
	}
	names, err := s.slots.ListSlots(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	values := make([]any, len(names))
	for i, n := range names {
		values[i] = n
	}
	out, err := structpb.NewList(values)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode slots: %v", err)
	}
	return out, nil
}

// PointState reports the presented visibility of a world position
func (s *Server) PointState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pos, err := vec3(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	ps, err := s.backend.Manager().PointState(pos)
	if err != nil {
		return nil, toStatus(err)
	}
	out, err := structpb.NewStruct(map[string]any{
		"chunk_id": ps.ChunkID,
		"visible":  ps.Visible,
		"explored": ps.Explored,
	})
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode point state: %v", err)
	}
	return out, nil
}

// SetHeight overwrites the ground height under a world position
func (s *Server) SetHeight(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	if s.terrain == nil {
		return nil, status.Error(codes.Unimplemented, "terrain editing is not configured")
	}
	pos, err := vec3(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	height, err := number(req, "height")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.terrain.SetHeight(ctx, pos, height); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info().Interface("position", pos).Float32("height", height).Msg("Height set over gRPC")
	return &emptypb.Empty{}, nil
}

// Rebake resamples obstacle heights into every chunk
func (s *Server) Rebake(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if s.terrain == nil {
		return nil, status.Error(codes.Unimplemented, "terrain editing is not configured")
	}
	if err := s.terrain.Rebake(ctx); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info().Msg("Heights rebaked over gRPC")
	return &emptypb.Empty{}, nil
}

func vec3(st *structpb.Struct) (mgl32.Vec3, error) {
	var v mgl32.Vec3
	for i, key := range []string{"x", "y", "z"} {
		n, err := number(st, key)
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v[i] = n
	}
	return v, nil
}

func number(st *structpb.Struct, key string) (float32, error) {
	f, ok := st.GetFields()[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	n, ok := f.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("field %q must be a number", key)
	}
	return float32(n.NumberValue), nil
}

// toStatus maps fog errors onto gRPC codes
func toStatus(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, core.ErrChunkNotFound), errors.Is(err, persist.ErrSlotNotFound):
		code = codes.NotFound
	case errors.Is(err, persist.ErrInvalidSlotName):
		code = codes.InvalidArgument
	case errors.Is(err, core.ErrWorkerRunning), errors.Is(err, core.ErrUnsupportedConfiguration),
		errors.Is(err, core.ErrNilResource):
		code = codes.FailedPrecondition
	case errors.Is(err, present.ErrNoFrame):
		code = codes.Unavailable
	case errors.Is(err, context.Canceled):
		code = codes.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		code = codes.DeadlineExceeded
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}
