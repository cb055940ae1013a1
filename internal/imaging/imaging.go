// Package imaging normalizes uploaded supply photos.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"

	"github.com/piso3/piso/internal/model"
)

// MaxDimension is the maximum width or height of a stored photo.
const MaxDimension = 800

// MaxUploadBytes caps the size of an accepted upload.
const MaxUploadBytes = 5 << 20

// MaxPixels caps the decoded size of an upload, checked from the image
// header before any pixel buffer is allocated.
const MaxPixels = 40_000_000

const jpegQuality = 80

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// SupplyPhoto reads an uploaded JPEG or PNG, sniffing the format from its
// bytes, and returns it as a JPEG no larger than MaxDimension on either side.
// Transparent areas are flattened onto white.
func SupplyPhoto(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUploadBytes {
		return nil, model.Validation("photo exceeds %d MB", MaxUploadBytes>>20)
	}

	detected := http.DetectContentType(data)
	if !accepted[detected] {
		return nil, model.Validation("unsupported photo format %s, use JPEG or PNG", detected)
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, model.Validation("photo could not be decoded: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, model.Validation("photo is %dx%d pixels, at most %d megapixels are accepted",
			cfg.Width, cfg.Height, MaxPixels/1_000_000)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, model.Validation("photo could not be decoded: %v", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(src, MaxDimension), &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("encoding photo: %w", err)
	}
	return buf.Bytes(), nil
}

// fit scales src down to fit a maxDim square, preserving the aspect ratio,
// on a white canvas.
func fit(src image.Image, maxDim int) image.Image {
	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if w > maxDim || h > maxDim {
		if w > h {
			w, h = maxDim, max(1, h*maxDim/w)
		} else {
			w, h = max(1, w*maxDim/h), maxDim
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == bounds.Dx() && h == bounds.Dy() {
		draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Over)
		return dst
	}
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Over, nil)
	return dst
}
