package texture

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/pkg/errors"
)

// EncodePNG returns img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "texture: png encode")
	}
	return buf.Bytes(), nil
}

// EncodeWebP writes img as lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return errors.Wrap(err, "texture: webp encode")
	}
	return nil
}

// SaveWebP writes img to path, creating parent directories.
func SaveWebP(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Wrapf(err, "texture: mkdir %s", filepath.Dir(path))
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "texture: create %s", path)
	}
	if err := EncodeWebP(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WebPName maps an image name such as "props\\chair.dds" to "chair.webp".
func WebPName(texName string) string {
	base := filepath.Base(strings.ReplaceAll(texName, "\\", "/"))
	return strings.ToLower(strings.TrimSuffix(base, filepath.Ext(base))) + ".webp"
}
