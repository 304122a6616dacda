package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/pflag"

	"github.com/sokinpui/stereo-disparity/internal/disparity"
	"github.com/sokinpui/stereo-disparity/internal/logger"
)

var stderr io.Writer = os.Stderr

type options struct {
	disparity.Config
	LogPath    string
	Verbose    bool
	InitConfig bool
}

func main() {
	opts := parseFlags()

	logFile, err := logger.Init(opts.LogPath, opts.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	code := run(opts)
	logFile.Close()
	os.Exit(code)
}

// run executes one invocation and returns the process exit status.
func run(opts *options) int {
	cfg := &opts.Config

	if opts.InitConfig {
		if err := disparity.SaveFileConfig(disparity.DefaultFileConfig(), cfg.ConfigPath); err != nil {
			return fail("Configuration error", err)
		}
		fmt.Printf("Wrote default estimator configuration to %s\n", cfg.ConfigPath)
		return 0
	}

	fileCfg, err := disparity.LoadFileConfig(cfg.ConfigPath)
	if err != nil {
		return fail("Configuration error", err)
	}
	fileCfg.Apply(cfg)

	if err = validateConfig(cfg, fileCfg); err != nil {
		return fail("Configuration error", err)
	}

	backend, err := disparity.NewBackend(cfg.Device, cfg.Workers)
	if err != nil {
		return fail("Application error", fmt.Errorf("%w: select device: %w", disparity.ErrEstimatorCreate, err))
	}

	if _, err = disparity.Run(cfg, backend); err != nil {
		return fail("Application error", err)
	}
	return 0
}

func fail(what string, err error) int {
	log.Printf("%s: %v", what, err)
	fmt.Fprintf(stderr, "%s: %v\n", what, err)
	return 1
}

// parseFlags defines and parses command-line flags, returning them
// in an options struct.
func parseFlags() *options {
	opts := &options{}
	cfg := &opts.Config

	pflag.StringVarP(&cfg.LeftPath, "left", "l", "left.png", "Path to the left (reference) image.")
	pflag.StringVarP(&cfg.RightPath, "right", "r", "right.png", "Path to the right image.")
	pflag.StringVarP(&cfg.OutputPath, "output", "o", "disparity.png", "Path of the disparity map to write (.png, .jpg, .bmp, .tiff).")
	pflag.StringVarP(&cfg.ConfigPath, "config", "c", "disparity.yaml", "Estimator configuration file. Defaults are used if it does not exist.")
	pflag.StringVar(&cfg.ImageType, "type", "", "Type of the input images (e.g., jpeg, png, bmp, tiff, webp). If not specified, it will be inferred.")
	pflag.StringVarP(&cfg.Device, "device", "d", "cpu", "Device to use for processing ("+strings.Join(disparity.Devices, ", ")+").")
	pflag.IntVarP(&cfg.Workers, "workers", "w", runtime.NumCPU(), "Number of CPU workers used by the estimator.")
	pflag.BoolVar(&cfg.Colormap, "colormap", false, "Render the disparity map with a color ramp instead of gray levels.")
	pflag.BoolVar(&cfg.Raw, "raw", false, "Write the raw Q10.5 samples as a 16-bit image.")
	pflag.BoolVar(&cfg.DumpWrapped, "dump-wrapped", false, "Read the wrapped left image back from the accelerator and save it.")
	pflag.StringVar(&cfg.WrappedPath, "wrapped-output", "left_wrapped.png", "Path used by --dump-wrapped.")
	pflag.BoolVarP(&cfg.Quiet, "quiet", "q", false, "Only print errors.")
	pflag.StringVar(&opts.LogPath, "log", "disparity.log", "Log file path.")
	pflag.BoolVarP(&opts.Verbose, "verbose", "v", false, "Also write log lines to stderr.")
	pflag.BoolVar(&opts.InitConfig, "init-config", false, "Write the default estimator configuration to --config and exit.")

	pflag.Parse()
	return opts
}

// validateConfig checks if the provided configuration is valid.
func validateConfig(cfg *disparity.Config, fileCfg *disparity.FileConfig) error {
	if cfg.LeftPath == "" || cfg.RightPath == "" {
		return fmt.Errorf("--left/-l and --right/-r must not be empty")
	}
	if cfg.OutputPath == "" {
		return fmt.Errorf("--output/-o must not be empty")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("--workers must be a positive integer")
	}
	if cfg.ImageType != "" && !contains(disparity.ImageTypes, strings.ToLower(cfg.ImageType)) {
		return fmt.Errorf("unsupported image type: %s", cfg.ImageType)
	}
	ext := strings.ToLower(filepath.Ext(cfg.OutputPath))
	if !contains(disparity.OutputExtensions, ext) {
		return fmt.Errorf("unsupported output extension %q. Supported extensions are %s", ext, strings.Join(disparity.OutputExtensions, ", "))
	}
	if cfg.Raw && ext != ".png" && ext != ".tif" && ext != ".tiff" {
		return fmt.Errorf("--raw needs a 16-bit capable output (.png or .tiff), got %q", ext)
	}
	if cfg.Raw && cfg.Colormap {
		return fmt.Errorf("--raw and --colormap are mutually exclusive")
	}
	if !contains(disparity.Devices, strings.ToLower(cfg.Device)) {
		return fmt.Errorf("unsupported device: %s. Supported devices are %s", cfg.Device, strings.Join(disparity.Devices, ", "))
	}
	return fileCfg.Validate()
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
