// Package uploads stores user-supplied images and returns a public URL.
package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MaxImageSize is the largest accepted upload.
const MaxImageSize = 5 << 20

var (
	// ErrTooLarge is returned for uploads over MaxImageSize.
	ErrTooLarge = errors.New("file is too large")
	// ErrUnsupportedType is returned for content that is not an accepted image.
	ErrUnsupportedType = errors.New("only JPEG, PNG, GIF and WebP images are accepted")
)

var imageExt = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// PutOptions carries object metadata.
type PutOptions struct {
	ContentType string
}

// Store is a blob backend.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts *PutOptions) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// Image is the result of SaveImage.
type Image struct {
	Key         string
	URL         string
	ContentType string
	Size        int64
}

// SaveImage sniffs the content type of r, rejects anything that is not an
// accepted image or is larger than MaxImageSize, and stores it under
// prefix/YYYY/MM/<uuid><ext>.
func SaveImage(ctx context.Context, s Store, prefix string, r io.Reader) (Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return Image{}, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxImageSize {
		return Image{}, ErrTooLarge
	}
	ct := http.DetectContentType(data)
	ext, ok := imageExt[ct]
	if !ok {
		return Image{}, ErrUnsupportedType
	}

	now := time.Now().UTC()
	key := path.Join(
		strings.Trim(prefix, "/"),
		fmt.Sprintf("%04d/%02d", now.Year(), now.Month()),
		uuid.NewString()+ext,
	)
	if err := s.Put(ctx, key, bytes.NewReader(data), &PutOptions{ContentType: ct}); err != nil {
		return Image{}, fmt.Errorf("store upload: %w", err)
	}
	return Image{Key: key, URL: s.URL(key), ContentType: ct, Size: int64(len(data))}, nil
}
