// Package storage keeps uploaded images and hands back the reference that is
// stored in User.Image and Place.Image.
package storage

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"
)

var ErrUnsupportedType = errors.New("unsupported image type")

// Files stores an asset and deletes it again by reference.
type Files interface {
	Save(ctx context.Context, contentType string, r io.Reader) (ref string, err error)
	Delete(ctx context.Context, ref string) error
}

var mimeExt = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpeg",
	"image/jpg":  "jpg",
}

// newName returns "<uuid>.<ext>" for an accepted content type.
func newName(contentType string) (string, error) {
	ext, ok := mimeExt[contentType]
	if !ok {
		return "", ErrUnsupportedType
	}
	return uuid.NewString() + "." + ext, nil
}
