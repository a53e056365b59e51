package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/meinhoongagan/pt-buddy/config"
)

type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryUploader(cfg config.UploadConfig) (*CloudinaryUploader, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to init cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cld, folder: cfg.CloudinaryFolder}, nil
}

// Upload stores the image resized to a product thumbnail. Cloudinary appends
// the extension itself, so it is stripped from the public id.
func (u *CloudinaryUploader) Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error) {
	publicID := strings.TrimSuffix(key, path.Ext(key))

	resp, err := u.cld.Upload.Upload(ctx, r, uploader.UploadParams{
		PublicID:       publicID,
		Folder:         u.folder,
		Transformation: "c_limit,w_800,h_800",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload failed: %w", err)
	}
	if resp.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload failed: %s", resp.Error.Message)
	}
	return resp.SecureURL, nil
}
