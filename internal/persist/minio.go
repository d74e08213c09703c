package persist

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioStore keeps compressed slots as objects in an S3-compatible bucket
type MinioStore struct {
	statsRecorder
	client *minio.Client
	bucket string
	prefix string
	level  int
	logger zerolog.Logger

	bucketOnce sync.Once
	bucketErr  error
}

// NewMinioStore creates a client. The bucket is created on first save.
func NewMinioStore(config PersistenceConfig, logger zerolog.Logger) (*MinioStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("minio store: bucket is required")
	}
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(config.AccessKeyID, config.SecretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return &MinioStore{
		client: client,
		bucket: config.Bucket,
		prefix: strings.Trim(config.Prefix, "/"),
		level:  config.CompressionLevel,
		logger: logger.With().Str("component", "minio_store").Str("bucket", config.Bucket).Logger(),
	}, nil
}

func (s *MinioStore) key(name string) string {
	if s.prefix == "" {
		return name + slotExt
	}
	return path.Join(s.prefix, name+slotExt)
}

func (s *MinioStore) ensureBucket(ctx context.Context) error {
	s.bucketOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketErr = fmt.Errorf("failed to check bucket existence: %w", err)
			return
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
				s.bucketErr = fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
				return
			}
			s.logger.Info().Msg("Created bucket")
		}
	})
	return s.bucketErr
}

// Save implements Store
func (s *MinioStore) Save(ctx context.Context, name string, slot Slot) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if err := s.ensureBucket(ctx); err != nil {
		s.recordWrite(0, err)
		return err
	}
	data, err := Marshal(slot, s.level)
	if err != nil {
		s.recordWrite(0, err)
		return err
	}

	_, err = s.client.PutObject(ctx, s.bucket, s.key(name), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/zstd",
		UserMetadata: map[string]string{
			"world-id": slot.Header.WorldID,
			"chunk-id": fmt.Sprint(slot.Header.ChunkID),
		},
	})
	s.recordWrite(len(data), err)
	if err != nil {
		return fmt.Errorf("put object failed: %w", err)
	}
	return nil
}

// Load implements Store
func (s *MinioStore) Load(ctx context.Context, name string) (Slot, error) {
	if err := ValidateSlotName(name); err != nil {
		return Slot{}, err
	}
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(name), minio.GetObjectOptions{})
	if err != nil {
		err = s.translate(name, err)
		s.recordRead(0, err)
		return Slot{}, err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		err = s.translate(name, err)
		s.recordRead(0, err)
		return Slot{}, err
	}
	slot, err := Unmarshal(data)
	s.recordRead(len(data), err)
	return slot, err
}

// Delete implements Store
func (s *MinioStore) Delete(ctx context.Context, name string) error {
	if err := ValidateSlotName(name); err != nil {
		return err
	}
	if _, err := s.client.StatObject(ctx, s.bucket, s.key(name), minio.StatObjectOptions{}); err != nil {
		return s.translate(name, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object failed: %w", err)
	}
	s.recordDelete()
	return nil
}

// List implements Store
func (s *MinioStore) List(ctx context.Context) ([]string, error) {
	prefix := ""
	if s.prefix != "" {
		prefix = s.prefix + "/"
	}
	var names []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, s.translate("", obj.Err)
		}
		name := strings.TrimPrefix(obj.Key, prefix)
		if !strings.HasSuffix(name, slotExt) || strings.Contains(name, "/") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, slotExt))
	}
	sort.Strings(names)
	return names, nil
}

// Close implements Store
func (s *MinioStore) Close() error {
	return nil
}

func (s *MinioStore) translate(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrSlotNotFound, name)
	}
	return err
}
