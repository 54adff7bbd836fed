// Package avatar serves account thumbnails at the preferred avatar size.
package avatar

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const maxSourceBytes = 4 << 20

// Scaler fetches upstream thumbnails and re-encodes them as size×size PNGs.
type Scaler struct {
	client *http.Client
	log    *zap.Logger
}

func New(client *http.Client, log *zap.Logger) *Scaler {
	if client == nil {
		client = http.DefaultClient
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Scaler{client: client, log: log.Named("avatar")}
}

// Fetch downloads src and returns it scaled to fit a size×size square.
func (s *Scaler) Fetch(ctx context.Context, src string, size int) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "image/*")
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("avatar %s: %w", src, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("avatar %s: upstream status %d", src, resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes))
	if err != nil {
		return nil, fmt.Errorf("avatar %s: %w", src, err)
	}
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("avatar %s: decode: %w", src, err)
	}
	s.log.Debug("Scaling avatar",
		zap.String("src", src),
		zap.String("format", format),
		zap.Int("width", img.Bounds().Dx()),
		zap.Int("height", img.Bounds().Dy()),
		zap.Int("size", size))
	return Encode(Fit(img, size))
}

// Fit scales img to fit a size×size transparent square, centred and with
// its aspect ratio kept.
func Fit(img image.Image, size int) *image.NRGBA {
	if size < 1 {
		size = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, size, size))
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return dst
	}
	scale := math.Min(float64(size)/float64(w), float64(size)/float64(h))
	sw := max(1, int(math.Round(float64(w)*scale)))
	sh := max(1, int(math.Round(float64(h)*scale)))
	x0 := (size - sw) / 2
	y0 := (size - sh) / 2
	draw.CatmullRom.Scale(dst, image.Rect(x0, y0, x0+sw, y0+sh), img, b, draw.Over, nil)
	return dst
}

func Encode(img image.Image) ([]byte, error) {
	var out bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&out, img); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
