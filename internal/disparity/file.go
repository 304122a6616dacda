package disparity

import (
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// ImageTypes lists the accepted --type values.
var ImageTypes = []string{"jpeg", "jpg", "png", "bmp", "tiff", "tif", "webp"}

// OutputExtensions lists the file extensions the writer can encode.
var OutputExtensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff"}

// loadGray opens and decodes an image from the given file path and returns
// it as single-channel 8-bit gray. The returned Image aliases the decoded
// pixels.
func loadGray(path string, imageType string) (*accel.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer file.Close()

	decoded, err := decode(file, imageType)
	if err != nil {
		return nil, fmt.Errorf("could not decode image %s: %w", path, err)
	}

	bounds := decoded.Bounds()
	if bounds.Empty() {
		return nil, fmt.Errorf("image %s is empty", path)
	}

	gray, ok := decoded.(*image.Gray)
	if !ok || bounds.Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(gray, gray.Bounds(), decoded, bounds.Min, draw.Src)
	}

	img := &accel.Image{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Pitch:  gray.Stride,
		Format: accel.FormatU8,
		Data:   gray.Pix,
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return img, nil
}

func decode(r io.Reader, imageType string) (image.Image, error) {
	if imageType == "" {
		img, _, err := image.Decode(r)
		return img, err
	}
	switch strings.ToLower(imageType) {
	case "jpeg", "jpg":
		return jpeg.Decode(r)
	case "png":
		return png.Decode(r)
	case "bmp":
		return bmp.Decode(r)
	case "tiff", "tif":
		return tiff.Decode(r)
	case "webp":
		return webp.Decode(r)
	default:
		return nil, fmt.Errorf("unsupported image type specified: %s", imageType)
	}
}

// grayView exposes a FormatU8 accel.Image as an image.Gray without copying.
func grayView(img *accel.Image) *image.Gray {
	return &image.Gray{
		Pix:    img.Data,
		Stride: img.Pitch,
		Rect:   image.Rect(0, 0, img.Width, img.Height),
	}
}

// saveImage encodes img to path using the encoder that matches the file
// extension. A partially written file is removed on failure.
func saveImage(path string, img image.Image) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !supportedOutput(ext) {
		return fmt.Errorf("unsupported output extension %q", ext)
	}

	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create file: %w", err)
	}

	if err := encode(outFile, ext, img); err != nil {
		outFile.Close()
		os.Remove(path)
		return fmt.Errorf("could not encode %s: %w", path, err)
	}
	if err := outFile.Close(); err != nil {
		os.Remove(path)
		return fmt.Errorf("could not close %s: %w", path, err)
	}
	log.Printf("Wrote %s (%dx%d)", path, img.Bounds().Dx(), img.Bounds().Dy())
	return nil
}

func encode(w io.Writer, ext string, img image.Image) error {
	switch ext {
	case ".png":
		return png.Encode(w, img)
	case ".jpg", ".jpeg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	case ".bmp":
		return bmp.Encode(w, img)
	case ".tif", ".tiff":
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return fmt.Errorf("unsupported output extension %q", ext)
	}
}

func supportedOutput(ext string) bool {
	for _, e := range OutputExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
