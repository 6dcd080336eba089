package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

type CloudinaryOptions struct {
	URL       string // CLOUDINARY_URL form, takes precedence
	CloudName string
	APIKey    string
	APISecret string
}

type CloudinaryHost struct {
	cld *cloudinary.Cloudinary
}

func NewCloudinaryHost(opt CloudinaryOptions) (*CloudinaryHost, error) {
	var (
		cld *cloudinary.Cloudinary
		err error
	)
	if opt.URL != "" {
		cld, err = cloudinary.NewFromURL(opt.URL)
	} else {
		cld, err = cloudinary.NewFromParams(opt.CloudName, opt.APIKey, opt.APISecret)
	}
	if err != nil {
		return nil, fmt.Errorf("cloudinary init: %w", err)
	}
	cld.Config.URL.Secure = true
	return &CloudinaryHost{cld: cld}, nil
}

func (h *CloudinaryHost) Upload(ctx context.Context, in UploadInput) (Asset, error) {
	res, err := h.cld.Upload.Upload(ctx, bytes.NewReader(in.Data), uploader.UploadParams{
		Folder: in.Folder,
	})
	if err != nil {
		return Asset{}, fmt.Errorf("cloudinary upload: %w", err)
	}
	if res.Error.Message != "" {
		return Asset{}, errors.New("cloudinary upload: " + res.Error.Message)
	}
	return Asset{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

func (h *CloudinaryHost) Delete(ctx context.Context, ref string) error {
	res, err := h.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: ref})
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if res.Error.Message != "" {
		return errors.New("cloudinary destroy: " + res.Error.Message)
	}

	switch res.Result {
	case "ok":
		return nil
	case "not found":
		return ErrAssetNotFound
	default:
		return fmt.Errorf("cloudinary destroy: unexpected result %q", res.Result)
	}
}
