package disparity

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/sokinpui/stereo-disparity/internal/accel"
)

// Config holds all the configuration parameters for a run, parsed from
// command-line flags and the optional estimator file.
type Config struct {
	LeftPath    string
	RightPath   string
	OutputPath  string
	ConfigPath  string
	ImageType   string
	Device      string
	Workers     int
	Colormap    bool
	Raw         bool
	DumpWrapped bool
	WrappedPath string
	// Quiet suppresses terminal output other than errors.
	Quiet bool

	Estimator accel.CreateParams
	Params    accel.Params
}

// FileConfig is the YAML estimator file.
type FileConfig struct {
	// Estimator parameters are fixed when the payload is created.
	Estimator accel.CreateParams `yaml:"estimator"`
	// Params are sent with the submission.
	Params accel.Params `yaml:"params"`
}

// DefaultFileConfig returns the estimator settings used when no file exists.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Estimator: accel.DefaultCreateParams(),
		Params:    accel.DefaultParams(),
	}
}

// LoadFileConfig reads the estimator file at path over the defaults.
// A missing file yields the defaults.
func LoadFileConfig(path string) (*FileConfig, error) {
	cfg := DefaultFileConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveFileConfig writes cfg as YAML to path, creating parent directories.
func SaveFileConfig(cfg *FileConfig, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}
	return nil
}

// Apply copies the estimator settings into c.
func (f *FileConfig) Apply(c *Config) {
	c.Estimator = f.Estimator
	c.Params = f.Params
}

// Validate checks the estimator settings.
func (f *FileConfig) Validate() error {
	if err := f.Estimator.Validate(); err != nil {
		return fmt.Errorf("estimator: %w", err)
	}
	if err := f.Params.Validate(f.Estimator); err != nil {
		return fmt.Errorf("params: %w", err)
	}
	return nil
}
