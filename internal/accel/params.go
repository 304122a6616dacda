package accel

import "fmt"

// UniquenessDisabled turns the uniqueness test off.
const UniquenessDisabled = -1

// CreateParams are fixed when an estimator is created.
type CreateParams struct {
	MaxDisparity     int  `yaml:"maxDisparity"`
	DownscaleFactor  int  `yaml:"downscaleFactor"`
	IncludeDiagonals bool `yaml:"includeDiagonals"`
}

// DefaultCreateParams returns the estimator settings used by the driver.
func DefaultCreateParams() CreateParams {
	return CreateParams{
		MaxDisparity:     64,
		DownscaleFactor:  1,
		IncludeDiagonals: true,
	}
}

// Validate checks the creation parameters.
func (p CreateParams) Validate() error {
	if p.MaxDisparity <= 0 || p.MaxDisparity > 256 || p.MaxDisparity%4 != 0 {
		return fmt.Errorf("max disparity must be a positive multiple of 4 up to 256, got %d", p.MaxDisparity)
	}
	switch p.DownscaleFactor {
	case 1, 2, 4:
	default:
		return fmt.Errorf("downscale factor must be 1, 2 or 4, got %d", p.DownscaleFactor)
	}
	return nil
}

// OutputSize is the disparity map resolution for inputs of size in.
func (p CreateParams) OutputSize(in Size) Size {
	f := max(p.DownscaleFactor, 1)
	return Size{Width: in.Width / f, Height: in.Height / f}
}

// Params are supplied with every submission.
type Params struct {
	// MaxDisparity of 0 uses the estimator's creation value.
	MaxDisparity int `yaml:"maxDisparity"`
	MinDisparity int `yaml:"minDisparity"`
	// ConfidenceThreshold is accepted for compatibility. No confidence map
	// is produced.
	ConfidenceThreshold int `yaml:"confidenceThreshold"`
	P1                  int `yaml:"p1"`
	P2                  int `yaml:"p2"`
	// Uniqueness is a ratio in [0, 1], or UniquenessDisabled.
	Uniqueness float64 `yaml:"uniqueness"`
}

// DefaultParams returns the per-run settings used by the driver.
func DefaultParams() Params {
	return Params{
		MaxDisparity:        0,
		MinDisparity:        0,
		ConfidenceThreshold: 0,
		P1:                  3,
		P2:                  48,
		Uniqueness:          UniquenessDisabled,
	}
}

// UniquenessEnabled reports whether the uniqueness test is active.
func (p Params) UniquenessEnabled() bool {
	return p.Uniqueness != UniquenessDisabled
}

// Validate checks the runtime parameters against the estimator they will be
// submitted to.
func (p Params) Validate(c CreateParams) error {
	maxD := p.EffectiveMaxDisparity(c)
	if p.MaxDisparity < 0 || p.MaxDisparity > c.MaxDisparity {
		return fmt.Errorf("max disparity %d exceeds estimator limit %d", p.MaxDisparity, c.MaxDisparity)
	}
	if p.MinDisparity < 0 || p.MinDisparity >= maxD {
		return fmt.Errorf("min disparity %d outside [0, %d)", p.MinDisparity, maxD)
	}
	if p.P1 < 0 || p.P2 < p.P1 {
		return fmt.Errorf("penalties must satisfy 0 <= p1 <= p2, got p1=%d p2=%d", p.P1, p.P2)
	}
	if p.UniquenessEnabled() && (p.Uniqueness < 0 || p.Uniqueness > 1) {
		return fmt.Errorf("uniqueness must be %d or within [0, 1], got %g", UniquenessDisabled, p.Uniqueness)
	}
	if p.ConfidenceThreshold < 0 {
		return fmt.Errorf("confidence threshold must not be negative, got %d", p.ConfidenceThreshold)
	}
	return nil
}

// EffectiveMaxDisparity resolves the 0 sentinel against c.
func (p Params) EffectiveMaxDisparity(c CreateParams) int {
	if p.MaxDisparity == 0 {
		return c.MaxDisparity
	}
	return p.MaxDisparity
}
