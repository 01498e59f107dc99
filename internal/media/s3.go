package media

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/cliptube/backend/internal/config"
)

// S3Storage implements Storage backed by an S3-compatible object store.
// Video assets are probed for duration before the upload.
type S3Storage struct {
	uploader *manager.Uploader
	probe    *DurationProbe
	bucket   string
	baseURL  string
}

// NewS3Storage configures an uploader targeting the provided object store.
func NewS3Storage(ctx context.Context, cfg config.ObjectStoreConfig, probe *DurationProbe) (*S3Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 storage: bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}

	if strings.TrimSpace(cfg.Endpoint) != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           cfg.Endpoint,
					SigningRegion: cfg.Region,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		loadOpts = append(loadOpts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 5 * 1024 * 1024
		u.LeavePartsOnError = false
	})

	return &S3Storage{
		uploader: uploader,
		probe:    probe,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimSuffix(cfg.PublicBaseURL, "/"),
	}, nil
}

// Upload pushes the file at localPath to the configured bucket and returns its
// public location. The local file is removed whether or not the upload
// succeeds.
func (s *S3Storage) Upload(ctx context.Context, localPath string) (UploadResult, error) {
	if s == nil {
		return UploadResult{}, ErrStorageUnavailable
	}
	if strings.TrimSpace(localPath) == "" {
		return UploadResult{}, fmt.Errorf("s3 storage: empty path")
	}
	defer os.Remove(localPath)

	ext := filepath.Ext(localPath)
	contentType := mime.TypeByExtension(ext)

	var result UploadResult
	if strings.HasPrefix(contentType, "video/") && s.probe != nil {
		duration, err := s.probe.Probe(ctx, localPath)
		if err != nil {
			return UploadResult{}, fmt.Errorf("probe video duration: %w", err)
		}
		result.Duration = duration
	}

	file, err := os.Open(localPath)
	if err != nil {
		return UploadResult{}, fmt.Errorf("s3 storage open %s: %w", localPath, err)
	}
	defer file.Close()

	key := uuid.NewString() + ext
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
		ACL:    s3types.ObjectCannedACLPublicRead,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.uploader.Upload(ctx, input); err != nil {
		return UploadResult{}, fmt.Errorf("s3 storage upload %s: %w", key, err)
	}

	if s.baseURL == "" {
		result.URL = key
	} else {
		result.URL = fmt.Sprintf("%s/%s", s.baseURL, key)
	}

	return result, nil
}

var _ Storage = (*S3Storage)(nil)
