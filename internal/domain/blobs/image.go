package blobs

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/nfnt/resize"
)

// MaxPixels bounds the decoded size of an upload. Headers declaring more
// pixels are rejected before any pixel data is decoded.
const MaxPixels = 50_000_000

// Downscale checks that data is a JPEG, PNG or GIF image and shrinks it so
// neither side exceeds maxDim. GIFs and images already within bounds are
// returned untouched so animations survive. maxDim 0 disables resizing.
func Downscale(data []byte, maxDim uint) ([]byte, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrNotImage, cfg.Width, cfg.Height, MaxPixels)
	}
	contentType := "image/" + format

	if maxDim == 0 || format == "gif" || (uint(cfg.Width) <= maxDim && uint(cfg.Height) <= maxDim) {
		return data, contentType, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	thumb := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)

	var buf bytes.Buffer
	switch format {
	case "png":
		err = png.Encode(&buf, thumb)
	default:
		err = jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: 85})
		contentType = "image/jpeg"
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), contentType, nil
}
