package media

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

type S3Options struct {
	Bucket string
	Region string
	// Endpoint targets S3-compatible stores (MinIO, R2); path-style is used then.
	Endpoint      string
	PublicBaseURL string
}

// S3Host stores images as public objects. The object key is the reference.
type S3Host struct {
	client  *s3.Client
	bucket  string
	baseURL string
}

func NewS3Host(ctx context.Context, opt S3Options) (*S3Host, error) {
	cfg, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(opt.Region))
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
			o.UsePathStyle = true
		}
	})

	base := strings.TrimRight(opt.PublicBaseURL, "/")
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", opt.Bucket, opt.Region)
	}
	return &S3Host{client: client, bucket: opt.Bucket, baseURL: base}, nil
}

func (h *S3Host) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	ext := ""
	if m := mimetype.Lookup(in.ContentType); m != nil {
		ext = m.Extension()
	}
	key := path.Join(in.Folder, uuid.NewString()+ext)

	_, err := h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(in.Data),
		ContentType: aws.String(in.ContentType),
	})
	if err != nil {
		return Asset{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return Asset{URL: h.baseURL + "/" + key, PublicID: key}, nil
}

// Delete is idempotent on S3; missing keys succeed.
func (h *S3Host) Delete(ctx context.Context, ref string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(ref),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", ref, err)
	}
	return nil
}
