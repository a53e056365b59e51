package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/meinhoongagan/pt-buddy/config"
	"github.com/meinhoongagan/pt-buddy/logger"
)

var ErrUploadsDisabled = errors.New("image uploads are not configured")

// Uploader stores a file and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, r io.Reader, key, contentType string) (string, error)
}

// Client is the uploader used by handlers. Init replaces it.
var Client Uploader = disabled{}

// Init selects the backend named by UPLOAD_DRIVER.
func Init(ctx context.Context, cfg *config.Config) error {
	var (
		u   Uploader
		err error
	)

	switch cfg.Upload.Driver {
	case "cloudinary":
		u, err = NewCloudinaryUploader(cfg.Upload)
	case "s3":
		u, err = NewS3Uploader(ctx, cfg.Upload)
	case "none", "":
		u = disabled{}
	default:
		return fmt.Errorf("unknown UPLOAD_DRIVER %q", cfg.Upload.Driver)
	}
	if err != nil {
		return err
	}

	Client = u
	logger.Info("storage initialised", "driver", cfg.Upload.Driver)
	return nil
}

// ObjectKey builds a unique key under prefix that keeps the file extension.
func ObjectKey(prefix, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("%s/%s%s", strings.Trim(prefix, "/"), uuid.NewString(), ext)
}

type disabled struct{}

func (disabled) Upload(context.Context, io.Reader, string, string) (string, error) {
	return "", ErrUploadsDisabled
}
