package fogserver

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/mitchelldurbincs/FogOfWar/internal/fog/core"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/pipeline"
	"github.com/mitchelldurbincs/FogOfWar/internal/fog/world"
	"github.com/mitchelldurbincs/FogOfWar/internal/present"
)

// Client calls the fog service
type Client struct {
	cc   grpc.ClientConnInterface
	conn *grpc.ClientConn
}

// Dial connects to a fog service without transport security
func Dial(address string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(address, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}
	return &Client{cc: conn, conn: conn}, nil
}

// NewClient wraps an existing connection
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Close closes a connection opened by Dial
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// LatestBuffer fetches and unpacks a chunk's presented pixels
func (c *Client) LatestBuffer(ctx context.Context, chunkID int, opts ...grpc.CallOption) ([]pipeline.Pixel, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, MethodLatestBuffer, wrapperspb.UInt32(uint32(chunkID)), out, opts...); err != nil {
		return nil, err
	}
	b := out.GetValue()
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of pixels", core.ErrBufferSizeMismatch, len(b))
	}
	px := make([]pipeline.Pixel, len(b)/4)
	for i := range px {
		copy(px[i][:], b[4*i:4*i+4])
	}
	return px, nil
}

// BlendFactor fetches a chunk's crossfade factor
func (c *Client) BlendFactor(ctx context.Context, chunkID int) (float32, error) {
	out := new(wrapperspb.FloatValue)
	if err := c.cc.Invoke(ctx, MethodBlendFactor, wrapperspb.UInt32(uint32(chunkID)), out); err != nil {
		return 0, err
	}
	return out.GetValue(), nil
}

// Heights fetches a chunk's quantized height grid
func (c *Client) Heights(ctx context.Context, chunkID int) ([]uint8, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, MethodHeights, wrapperspb.UInt32(uint32(chunkID)), out); err != nil {
		return nil, err
	}
	return out.GetValue(), nil
}

// Frame fetches everything needed to draw a chunk. The blend factor comes from
// the same LatestBuffer response as the pixels.
func (c *Client) Frame(ctx context.Context, chunkID int, withHeights bool) (present.Frame, error) {
	var md metadata.MD
	px, err := c.LatestBuffer(ctx, chunkID, grpc.Header(&md))
	if err != nil {
		return present.Frame{}, err
	}
	size := int(math.Round(math.Sqrt(float64(len(px)))))
	if size*size != len(px) {
		return present.Frame{}, fmt.Errorf("%w: %d pixels is not a square grid", core.ErrBufferSizeMismatch, len(px))
	}
	blend, err := blendFromHeader(md)
	if err != nil {
		return present.Frame{}, err
	}
	f := present.Frame{TextureSize: size, Pixels: px, Blend: blend}
	if withHeights {
		if f.Heights, err = c.Heights(ctx, chunkID); err != nil {
			return present.Frame{}, err
		}
	}
	return f, f.Validate()
}

func blendFromHeader(md metadata.MD) (float32, error) {
	vals := md.Get(BlendHeader)
	if len(vals) == 0 {
		return 0, fmt.Errorf("response is missing the %s header", BlendHeader)
	}
	f, err := strconv.ParseFloat(vals[0], 32)
	if err != nil {
		return 0, fmt.Errorf("parse %s header: %w", BlendHeader, err)
	}
	return float32(f), nil
}

// Stats fetches world and chunk counters
func (c *Client) Stats(ctx context.Context) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodStats, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SaveSlot asks the server to save its visibility state
func (c *Client) SaveSlot(ctx context.Context, name string) error {
	return c.cc.Invoke(ctx, MethodSaveSlot, wrapperspb.String(name), new(emptypb.Empty))
}

// LoadSlot asks the server to restore its visibility state
func (c *Client) LoadSlot(ctx context.Context, name string) error {
	return c.cc.Invoke(ctx, MethodLoadSlot, wrapperspb.String(name), new(emptypb.Empty))
}

// ListSlots returns the saved slot names
func (c *Client) ListSlots(ctx context.Context) ([]string, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, MethodListSlots, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(out.GetValues()))
	for _, v := range out.GetValues() {
		names = append(names, v.GetStringValue())
	}
	return names, nil
}

// PointState asks whether a world position is visible or explored
func (c *Client) PointState(ctx context.Context, pos mgl32.Vec3) (world.PointState, error) {
	in, err := structpb.NewStruct(map[string]any{"x": pos.X(), "y": pos.Y(), "z": pos.Z()})
	if err != nil {
		return world.PointState{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodPointState, in, out); err != nil {
		return world.PointState{}, err
	}
	f := out.GetFields()
	return world.PointState{
		ChunkID:  int(f["chunk_id"].GetNumberValue()),
		Visible:  f["visible"].GetBoolValue(),
		Explored: f["explored"].GetBoolValue(),
	}, nil
}

// SetHeight sets the ground height under a world position, in world units
func (c *Client) SetHeight(ctx context.Context, pos mgl32.Vec3, height float32) error {
	in, err := structpb.NewStruct(map[string]any{"x": pos.X(), "y": pos.Y(), "z": pos.Z(), "height": height})
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, MethodSetHeight, in, new(emptypb.Empty))
}

// Rebake asks the server to resample obstacle heights
func (c *Client) Rebake(ctx context.Context) error {
	return c.cc.Invoke(ctx, MethodRebake, &emptypb.Empty{}, new(emptypb.Empty))
}
