// Package storage keeps uploaded images (product photos, avatars) outside the database.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrUnsupportedType is returned for uploads that are not images
var ErrUnsupportedType = errors.New("unsupported file type")

// MaxImageSize caps a single uploaded image
const MaxImageSize = 5 << 20

// Storage persists an object and returns its public URL
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (string, error)
	Delete(ctx context.Context, key string) error
}

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ImageKey builds a unique object key for an image under prefix
// (e.g. "products/<id>"). Non image content types are rejected.
func ImageKey(prefix, contentType string) (string, error) {
	ext, ok := imageExt[strings.ToLower(strings.TrimSpace(contentType))]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, contentType)
	}
	name := time.Now().UTC().Format("20060102") + "-" + uuid.NewString() + ext
	return path.Join(prefix, name), nil
}
