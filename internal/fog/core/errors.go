package core

import "errors"

var (
	ErrInvalidGeometry          = errors.New("invalid chunk geometry")
	ErrUnknownOrientation       = errors.New("unknown orientation")
	ErrBufferSizeMismatch       = errors.New("buffer size mismatch")
	ErrNilResource              = errors.New("required resource is nil")
	ErrWorkerRunning            = errors.New("chunk worker is running")
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")
	ErrChunkNotFound            = errors.New("chunk not found")
)
