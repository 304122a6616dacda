package accel

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when a resource is used after Close.
var ErrClosed = errors.New("resource already closed")

// SizeMismatchError reports images whose resolution differs from what the
// operation requires.
type SizeMismatchError struct {
	Want  Size
	Left  Size
	Right Size
}

func (e *SizeMismatchError) Error() string {
	if e.Left == e.Right {
		return fmt.Sprintf("image size %s does not match required %s", e.Left, e.Want)
	}
	return fmt.Sprintf("image sizes differ: left %s, right %s (required %s)", e.Left, e.Right, e.Want)
}

// FormatError reports an unsupported pixel format.
type FormatError struct {
	Want Format
	Got  Format
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("pixel format %s, want %s", e.Got, e.Want)
}
