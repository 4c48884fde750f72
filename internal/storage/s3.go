package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	"videotube/internal/domain"
)

type putAPI interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleteAPI interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Service uploads profile media to Amazon S3 (or compatible APIs).
type S3Service struct {
	uploader putAPI
	deleter  deleteAPI
	opts     Options
}

func NewS3Service(client *s3.Client, opts Options) (*S3Service, error) {
	return newS3Service(manager.NewUploader(client), client, opts)
}

func newS3Service(uploader putAPI, deleter deleteAPI, opts Options) (*S3Service, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}
	opts.KeyPrefix = strings.Trim(opts.KeyPrefix, "/")
	opts.PublicURL = strings.TrimRight(opts.PublicURL, "/")
	return &S3Service{
		uploader: uploader,
		deleter:  deleter,
		opts:     opts,
	}, nil
}

func (s *S3Service) Upload(ctx context.Context, localPath string) (*domain.UploadResult, error) {
	if strings.TrimSpace(localPath) == "" {
		return nil, ErrEmptyPath
	}

	path := filepath.Clean(localPath)
	if fi, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("stat local path: %w", err)
	} else if fi.IsDir() {
		return nil, fmt.Errorf("local path must be a file")
	}

	mtype, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect content type %s: %w", path, err)
	}

	key := s.objectKey(path, mtype.Extension())

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.opts.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(mtype.String()),
	})
	closeErr := f.Close()
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", path, err)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close file %s: %w", path, closeErr)
	}

	return &domain.UploadResult{
		URL: s.objectURL(key, out),
		Key: key,
	}, nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("object key is required")
	}
	_, err := s.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (s *S3Service) objectKey(path, detectedExt string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		ext = detectedExt
	}
	name := uuid.NewString() + ext
	if s.opts.KeyPrefix == "" {
		return name
	}
	return s.opts.KeyPrefix + "/" + name
}

func (s *S3Service) objectURL(key string, out *manager.UploadOutput) string {
	if s.opts.PublicURL != "" {
		return s.opts.PublicURL + "/" + key
	}
	if out != nil && out.Location != "" {
		return out.Location
	}
	return fmt.Sprintf("s3://%s/%s", s.opts.Bucket, key)
}

var _ Uploader = (*S3Service)(nil)
