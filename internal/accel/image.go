package accel

import (
	"encoding/binary"
	"fmt"
)

// Format is the pixel format of an Image.
type Format int

const (
	// FormatU8 is single-channel unsigned 8-bit gray.
	FormatU8 Format = iota + 1
	// FormatS16 is single-channel signed 16-bit, used for Q10.5 disparity.
	FormatS16
)

// BytesPerPixel returns the size of one sample in bytes.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatU8:
		return 1
	case FormatS16:
		return 2
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case FormatU8:
		return "U8"
	case FormatS16:
		return "S16"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// Size is an image resolution in pixels.
type Size struct {
	Width  int
	Height int
}

func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// Image is a pitch-linear view over a host buffer. The buffer is owned by
// whoever allocated it; an Image never copies it.
type Image struct {
	Width  int
	Height int
	// Pitch is the number of bytes between the starts of consecutive rows.
	Pitch  int
	Format Format
	Data   []byte
}

// NewImage allocates a tightly packed image.
func NewImage(width, height int, format Format) *Image {
	pitch := width * format.BytesPerPixel()
	return &Image{
		Width:  width,
		Height: height,
		Pitch:  pitch,
		Format: format,
		Data:   make([]byte, pitch*height),
	}
}

// Size returns the image resolution.
func (img *Image) Size() Size {
	return Size{Width: img.Width, Height: img.Height}
}

// Validate checks that the geometry fits the backing buffer.
func (img *Image) Validate() error {
	if img == nil {
		return fmt.Errorf("nil image")
	}
	bpp := img.Format.BytesPerPixel()
	if bpp == 0 {
		return fmt.Errorf("unsupported pixel format %s", img.Format)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}
	rowBytes := img.Width * bpp
	if img.Pitch < rowBytes {
		return fmt.Errorf("pitch %d is smaller than row size %d", img.Pitch, rowBytes)
	}
	if need := (img.Height-1)*img.Pitch + rowBytes; len(img.Data) < need {
		return fmt.Errorf("buffer holds %d bytes, %dx%d %s with pitch %d needs %d",
			len(img.Data), img.Width, img.Height, img.Format, img.Pitch, need)
	}
	return nil
}

// FullPitch reports whether the buffer spans a whole pitch for every row,
// including the last.
func (img *Image) FullPitch() bool {
	return len(img.Data) >= img.Height*img.Pitch
}

// Row returns the bytes of row y without the pitch padding.
func (img *Image) Row(y int) []byte {
	start := y * img.Pitch
	return img.Data[start : start+img.Width*img.Format.BytesPerPixel()]
}

// U8At returns the sample at (x, y) of a FormatU8 image.
func (img *Image) U8At(x, y int) uint8 {
	return img.Data[y*img.Pitch+x]
}

// S16At returns the sample at (x, y) of a FormatS16 image.
func (img *Image) S16At(x, y int) int16 {
	off := y*img.Pitch + 2*x
	return int16(binary.LittleEndian.Uint16(img.Data[off:]))
}

// SetS16 stores v at (x, y) of a FormatS16 image.
func (img *Image) SetS16(x, y int, v int16) {
	off := y*img.Pitch + 2*x
	binary.LittleEndian.PutUint16(img.Data[off:], uint16(v))
}
