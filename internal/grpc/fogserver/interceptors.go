package fogserver

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// LoggingInterceptor logs every unary call; the frequent polling methods log at debug
func LoggingInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	logger = logger.With().Str("component", "grpc").Logger()
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		code := codes.OK
		if err != nil {
			if st, ok := status.FromError(err); ok {
				code = st.Code()
			}
		}

		ev := logger.Info()
		switch {
		case code == codes.Internal:
			ev = logger.Error()
		case info.FullMethod == MethodLatestBuffer || info.FullMethod == MethodBlendFactor ||
			info.FullMethod == MethodHeights || info.FullMethod == MethodPointState:
			ev = logger.Debug()
		}
		ev.Str("method", info.FullMethod).
			Str("code", code.String()).
			Dur("duration", time.Since(start)).
			Err(err).
			Msg("gRPC call")
		return resp, err
	}
}

// RecoveryInterceptor converts handler panics into Internal errors
func RecoveryInterceptor(logger zerolog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().
					Str("method", info.FullMethod).
					Interface("panic", r).
					Msg("Recovered from panic in gRPC handler")
				err = status.Errorf(codes.Internal, "internal server error")
			}
		}()
		return handler(ctx, req)
	}
}

// ServerOptions returns the interceptor chain used by the daemon
func ServerOptions(logger zerolog.Logger) []grpc.ServerOption {
	return []grpc.ServerOption{
		grpc.ChainUnaryInterceptor(
			LoggingInterceptor(logger),
			RecoveryInterceptor(logger),
		),
	}
}
