package avatar

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Size is the edge of the square avatar in pixels.
const Size = 250

// MaxDimension bounds each side of an upload, checked from the header
// before any pixels are decoded.
const MaxDimension = 8192

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrTooLarge          = errors.New("image dimensions too large")
	ErrExtensionMismatch = errors.New("file extension does not match image type")
)

var extensions = map[string][]string{
	"image/jpeg": {".jpg", ".jpeg"},
	"image/png":  {".png"},
	"image/gif":  {".gif"},
	"image/bmp":  {".bmp"},
	"image/webp": {".webp"},
}

// AllowedExtension reports whether ext names a supported image type.
func AllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, exts := range extensions {
		if slices.Contains(exts, ext) {
			return true
		}
	}
	return false
}

// CheckExtension sniffs the file at path and fails with ErrExtensionMismatch
// when it is a supported image whose type disagrees with ext. Content that is
// not a supported image is left for Normalize to reject.
func CheckExtension(path, ext string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	exts, ok := extensions[mt.String()]
	if !ok {
		return nil
	}
	if !slices.Contains(exts, strings.ToLower(ext)) {
		return fmt.Errorf("%w: %s named %q", ErrExtensionMismatch, mt.String(), ext)
	}
	return nil
}

var encoders = map[string]func(io.Writer, image.Image) error{
	"image/jpeg": func(w io.Writer, m image.Image) error { return jpeg.Encode(w, m, &jpeg.Options{Quality: 90}) },
	"image/png":  png.Encode,
	"image/gif":  func(w io.Writer, m image.Image) error { return gif.Encode(w, m, nil) },
	"image/bmp":  bmp.Encode,
	// No webp encoder in x/image; the bytes become png.
	"image/webp": png.Encode,
}

// Normalize decodes the image at path, stretches it to Size×Size and writes
// the result back to path. ctx is checked between steps.
func Normalize(ctx context.Context, path string) error {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return fmt.Errorf("detect: %w", err)
	}
	encode, ok := encoders[mt.String()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, mt.String())
	}

	src, err := decodeFile(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	dst := Resize(src)
	if err := ctx.Err(); err != nil {
		return err
	}

	return overwrite(path, dst, encode)
}

// Resize stretches m to exactly Size×Size. Aspect ratio is not preserved and
// nothing is cropped.
func Resize(m image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, Size, Size))
	draw.CatmullRom.Scale(dst, dst.Bounds(), m, m.Bounds(), draw.Over, nil)
	return dst
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return nil, fmt.Errorf("decode header: %w", err)
	}
	if cfg.Width > MaxDimension || cfg.Height > MaxDimension {
		return nil, fmt.Errorf("%w: %dx%d", ErrTooLarge, cfg.Width, cfg.Height)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind: %w", err)
	}

	m, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return m, nil
}

// overwrite encodes m into a sibling temp file and renames it over path.
func overwrite(path string, m image.Image, encode func(io.Writer, image.Image) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".resize-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = encode(tmp, m); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace: %w", err)
	}
	return nil
}
