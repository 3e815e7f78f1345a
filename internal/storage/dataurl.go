package storage

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// MaxImageBytes caps decoded avatar uploads.
const MaxImageBytes = 3 << 20

var (
	ErrNotDataURL   = errors.New("storage: not a data url")
	ErrImageTooBig  = errors.New("storage: image exceeds size limit")
	ErrUnknownMedia = errors.New("storage: unsupported image type")
)

var imageExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Image holds a decoded inline upload.
type Image struct {
	ContentType string
	Extension   string
	Data        []byte
}

// ParseImageDataURL decodes a base64 data URL of a supported image type.
// Oversized or malformed payloads are rejected before decoding where
// possible.
func ParseImageDataURL(raw string) (Image, error) {
	rest, ok := strings.CutPrefix(raw, "data:")
	if !ok {
		return Image{}, ErrNotDataURL
	}

	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, ErrNotDataURL
	}

	contentType, encoding, _ := strings.Cut(meta, ";")
	if encoding != "base64" {
		return Image{}, ErrNotDataURL
	}

	ext, ok := imageExtensions[contentType]
	if !ok {
		return Image{}, fmt.Errorf("%w: %s", ErrUnknownMedia, contentType)
	}

	// Base64 expands by 4/3, so the encoded length bounds the decoded size.
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes {
		return Image{}, ErrImageTooBig
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("storage: decode image: %w", err)
	}

	if len(data) > MaxImageBytes {
		return Image{}, ErrImageTooBig
	}

	return Image{ContentType: contentType, Extension: ext, Data: data}, nil
}
