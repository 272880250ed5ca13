// Package imagefile loads the image being annotated and manages its
// lifetime.
package imagefile

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidInput is returned for files that are not decodable images.
	ErrInvalidInput = errors.New("not a valid image file")
	// ErrClosed is returned when a released handle is used.
	ErrClosed = errors.New("image handle closed")
)

var imageExts = []string{"jpg", "jpeg", "png", "gif", "bmp", "tif", "tiff", "webp"}

// Extension returns the lower-case file extension without the dot.
func Extension(name string) string {
	ext := filepath.Ext(name)
	if len(ext) > 0 {
		return strings.ToLower(ext[1:])
	}
	return ""
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	ext := Extension(name)
	for _, e := range imageExts {
		if ext == e {
			return true
		}
	}
	return false
}

// Handle owns a decoded image. Close releases it; a closed handle yields
// no image.
type Handle struct {
	name string
	img  image.Image
}

// Open decodes the image at path. Files that are not images fail with
// ErrInvalidInput.
func Open(path string) (*Handle, error) {
	if !IsImageFile(path) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), ErrInvalidInput)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(bytes.NewReader(data), path)
}

// Decode reads an image from r. name is used for messages and to pick the
// WebP decoder.
func Decode(r io.Reader, name string) (*Handle, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil && Extension(name) == "webp" {
		img, err = webp.Decode(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %v", filepath.Base(name), ErrInvalidInput, err)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%s: %w: empty image", filepath.Base(name), ErrInvalidInput)
	}
	return &Handle{name: name, img: img}, nil
}

// Name returns the path or name the image was loaded from.
func (h *Handle) Name() string {
	return h.name
}

// Image returns the decoded image, or nil once the handle is closed.
func (h *Handle) Image() image.Image {
	return h.img
}

// Size returns the pixel dimensions of the image.
func (h *Handle) Size() (int, int) {
	if h.img == nil {
		return 0, 0
	}
	b := h.img.Bounds()
	return b.Dx(), b.Dy()
}

// FitSize returns the largest size with the aspect ratio of iw x ih that
// fits inside w x h. Small images are scaled up.
func FitSize(iw, ih, w, h int) (int, int) {
	if iw <= 0 || ih <= 0 || w <= 0 || h <= 0 {
		return 0, 0
	}
	scale := math.Min(float64(w)/float64(iw), float64(h)/float64(ih))
	fw := min(w, max(1, int(math.Round(float64(iw)*scale))))
	fh := min(h, max(1, int(math.Round(float64(ih)*scale))))
	return fw, fh
}

// Fit returns a copy scaled to fit inside w x h, preserving aspect ratio.
func (h *Handle) Fit(w, hgt int) (image.Image, error) {
	if h.img == nil {
		return nil, ErrClosed
	}
	if w <= 0 || hgt <= 0 {
		return nil, fmt.Errorf("fit: invalid size %dx%d", w, hgt)
	}
	b := h.img.Bounds()
	return h.Resize(FitSize(b.Dx(), b.Dy(), w, hgt))
}

// Resize returns a copy scaled to exactly w x h.
func (h *Handle) Resize(w, hgt int) (image.Image, error) {
	if h.img == nil {
		return nil, ErrClosed
	}
	if w <= 0 || hgt <= 0 {
		return nil, fmt.Errorf("resize: invalid size %dx%d", w, hgt)
	}
	return imaging.Resize(h.img, w, hgt, imaging.Lanczos), nil
}

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool {
	return h.img == nil
}

// Close releases the image. It is safe to call more than once.
func (h *Handle) Close() error {
	h.img = nil
	return nil
}
