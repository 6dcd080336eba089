package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/duet-robotics/drc-backend/config"
	"github.com/duet-robotics/drc-backend/internal/media"
)

func OpenMedia(ctx context.Context, cfg config.MediaConfig, log *zap.Logger) (*media.Binder, error) {
	var host media.Host
	switch cfg.Driver {
	case "cloudinary":
		h, err := media.NewCloudinaryHost(media.CloudinaryOptions{
			URL:       cfg.CloudinaryURL,
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
		})
		if err != nil {
			return nil, err
		}
		host = h
	case "s3":
		h, err := media.NewS3Host(ctx, media.S3Options{
			Bucket:        cfg.S3Bucket,
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, err
		}
		host = h
	case "memory":
		log.Warn("media driver is in-memory; uploaded images are not persisted")
		host = media.NewMemoryHost()
	default:
		return nil, fmt.Errorf("unsupported media driver %q", cfg.Driver)
	}

	return media.NewBinder(host, log,
		media.WithMaxBytes(cfg.MaxUploadBytes),
		media.WithDefaultFolder(cfg.DefaultFolder),
	), nil
}
