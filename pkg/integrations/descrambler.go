package integrations

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kerbaras/pocketepub/pkg/errs"
)

// DefaultJPEGQuality is used when no quality is configured.
const DefaultJPEGQuality = 90

// Descrambler reverses the tile scramble of image files in place.
type Descrambler struct {
	quality int
}

// NewDescrambler creates a Descrambler encoding JPEG output at quality.
func NewDescrambler(quality int) *Descrambler {
	if quality <= 0 || quality > 100 {
		quality = DefaultJPEGQuality
	}
	return &Descrambler{quality: quality}
}

// Process descrambles the image at path and atomically replaces it with the
// result. The output format follows the file extension, not the input bytes.
func (d *Descrambler) Process(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return errs.Wrap(errs.ErrFilesystem, "read "+path, err)
	}

	out, err := d.ProcessImage(bytes.NewReader(raw), filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	return WriteFileAtomic(path, out)
}

// ProcessImage decodes input, descrambles it and encodes it for ext.
func (d *Descrambler) ProcessImage(input io.Reader, ext string) ([]byte, error) {
	img, _, err := image.Decode(input)
	if err != nil {
		return nil, errs.Wrap(errs.ErrDecode, "decode image", err)
	}

	out := Descramble(toNRGBA(img))
	dropAlpha(out)

	return d.encode(out, ext)
}

func (d *Descrambler) encode(img image.Image, ext string) ([]byte, error) {
	var buf bytes.Buffer

	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: d.quality}); err != nil {
			return nil, errs.Wrap(errs.ErrEncode, "encode jpeg", err)
		}
	case ".png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, errs.Wrap(errs.ErrEncode, "encode png", err)
		}
	default:
		return nil, errs.Wrap(errs.ErrEncode, fmt.Sprintf("unsupported extension %q", ext), nil)
	}

	return buf.Bytes(), nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers never observe a partially written file.
func WriteFileAtomic(path string, data []byte) error {
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errs.Wrap(errs.ErrFilesystem, "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := write(tmp); err != nil {
		tmp.Close()
		if errs.KindOf(err) != nil {
			return err
		}
		return errs.Wrap(errs.ErrFilesystem, "write "+path, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Wrap(errs.ErrFilesystem, "close "+path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return errs.Wrap(errs.ErrFilesystem, "chmod "+path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.Wrap(errs.ErrFilesystem, "rename "+path, err)
	}
	return nil
}
