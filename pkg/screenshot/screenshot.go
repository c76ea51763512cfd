package screenshot

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"slices"
	"strings"

	"github.com/lehigh-university-libraries/alphaocr/internal/apperrors"
	"github.com/vincent-petithory/dataurl"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Image is a decoded screenshot fragment. It belongs to a single request.
type Image struct {
	Width  int
	Height int
	Format string

	// Raster is the decoded pixel buffer.
	Raster image.Image
	// Raw holds the encoded container bytes as received.
	Raw []byte
}

// Decode parses a data URL ("data:image/png;base64,....") into an Image.
func Decode(encoded string) (*Image, error) {
	encoded = strings.TrimSpace(encoded)
	if !strings.Contains(encoded, ",") {
		return nil, apperrors.Decode("Invalid image data: missing data URL separator", nil)
	}

	du, err := dataurl.DecodeString(encoded)
	if err != nil {
		return nil, apperrors.Decode("Invalid image data: payload is not a valid data URL", err)
	}

	if len(du.Data) == 0 {
		return nil, apperrors.Decode("Invalid image data: empty payload", nil)
	}

	return FromBytes(du.Data)
}

// FromBytes decodes raw container bytes (PNG, JPEG, GIF, WebP, BMP, TIFF).
func FromBytes(raw []byte) (*Image, error) {
	raster, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperrors.Decode("Invalid image data: not a decodable image", err)
	}

	bounds := raster.Bounds()
	return &Image{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: format,
		Raster: raster,
		Raw:    raw,
	}, nil
}

// Center returns the center of the image in pixel space.
func (i *Image) Center() (float64, float64) {
	return float64(i.Width) / 2, float64(i.Height) / 2
}

// PNG re-encodes the raster as PNG.
func (i *Image) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, i.Raster); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Encoded returns the raw bytes when their container is one of formats,
// otherwise a PNG re-encoding. The mime type matches the returned bytes.
func (i *Image) Encoded(formats ...string) ([]byte, string, error) {
	if slices.Contains(formats, i.Format) {
		return i.Raw, i.MimeType(), nil
	}
	data, err := i.PNG()
	if err != nil {
		return nil, "", err
	}
	return data, "image/png", nil
}

// MimeType returns the content type of the raw bytes.
func (i *Image) MimeType() string {
	switch i.Format {
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	case "bmp":
		return "image/bmp"
	case "tiff":
		return "image/tiff"
	default:
		return "image/png"
	}
}
