package opener

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"

	"creditdesk/internal/ports"

	"github.com/minio/minio-go/v7"
)

type S3Client interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (*minio.Object, error)
}

// S3Opener streams uploaded sheets from object storage.
type S3Opener struct {
	Client   S3Client
	MaxBytes int64
}

func NewS3Opener(cli S3Client) *S3Opener {
	return &S3Opener{Client: cli, MaxBytes: DefaultMaxBytes}
}

func (s *S3Opener) Open(ctx context.Context, bucket, key string) (io.ReadCloser, ports.Meta, error) {
	log.Printf("[OPENER][S3][START] bucket=%q key=%q", bucket, key)
	obj, err := s.Client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ports.Meta{}, fmt.Errorf("s3 get %s/%s: %w", bucket, key, err)
	}
	// Stat issues the request; a missing object surfaces here.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		log.Printf("[OPENER][S3][ERR] stat: %v", err)
		return nil, ports.Meta{}, fmt.Errorf("s3 stat %s/%s: %w", bucket, key, err)
	}
	if err := checkSize(st.Size, s.MaxBytes); err != nil {
		_ = obj.Close()
		return nil, ports.Meta{}, err
	}

	meta := ports.Meta{
		Source:      "s3",
		Name:        path.Base(key),
		ContentType: st.ContentType,
		Size:        st.Size,
		Bucket:      bucket,
		Key:         key,
	}
	meta.Format = ports.FormatOf(key, st.ContentType)
	log.Printf("[OPENER][S3][OK] format=%q size=%d etag=%q", meta.Format, st.Size, st.ETag)
	return obj, meta, nil
}
