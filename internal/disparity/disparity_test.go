package disparity

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/sokinpui/stereo-disparity/internal/accel"
	"github.com/sokinpui/stereo-disparity/internal/accel/host"
)

// writePNG encodes img to dir/name and returns the path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("Failed to encode %s: %v", path, err)
	}
	return path
}

func gradient(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*3) % 256)})
		}
	}
	return img
}

// stereoPair returns a random texture and the same texture seen shift
// pixels to the left.
func stereoPair(w, h, shift int) (*image.Gray, *image.Gray) {
	rng := rand.New(rand.NewSource(42))
	left := image.NewGray(image.Rect(0, 0, w, h))
	right := image.NewGray(image.Rect(0, 0, w, h))
	for i := range left.Pix {
		left.Pix[i] = uint8(rng.Intn(256))
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			right.SetGray(x, y, left.GrayAt(min(x+shift, w-1), y))
		}
	}
	return left, right
}

func testConfig(dir, left, right string) *Config {
	return &Config{
		LeftPath:    left,
		RightPath:   right,
		OutputPath:  filepath.Join(dir, "disparity.png"),
		WrappedPath: filepath.Join(dir, "left_wrapped.png"),
		Quiet:       true,
		Estimator:   accel.DefaultCreateParams(),
		Params:      accel.DefaultParams(),
	}
}

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("Expected %s not to exist, stat error: %v", path, err)
	}
}

func TestRunWritesDisparityMap(t *testing.T) {
	dir := t.TempDir()
	left := writePNG(t, dir, "left.png", gradient(40, 30))
	right := writePNG(t, dir, "right.png", gradient(40, 30))
	cfg := testConfig(dir, left, right)
	backend := &fakeBackend{}

	res, err := Run(cfg, backend)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	info, err := os.Stat(cfg.OutputPath)
	if err != nil {
		t.Fatalf("Expected output file: %v", err)
	}
	if info.Size() == 0 {
		t.Error("Expected a non-empty output file")
	}

	if res.Size != (accel.Size{Width: 40, Height: 30}) {
		t.Errorf("Expected size 40x30, got %s", res.Size)
	}
	g := gradient(40, 30)
	for _, p := range []image.Point{{0, 0}, {5, 3}, {39, 29}} {
		want := float32(g.GrayAt(p.X, p.Y).Y) / 4
		if got := res.Disparity[p.Y*40+p.X]; got != want {
			t.Errorf("Pixel %v: expected disparity %v, got %v", p, want, got)
		}
	}

	if n := backend.created(); n != 5 {
		t.Errorf("Expected 5 accelerator resources, got %d", n)
	}
	if err := backend.checkReleased(); err != nil {
		t.Error(err)
	}
}

func TestRunMismatchedSizes(t *testing.T) {
	dir := t.TempDir()
	left := writePNG(t, dir, "left.png", gradient(40, 30))
	right := writePNG(t, dir, "right.png", gradient(41, 30))
	cfg := testConfig(dir, left, right)
	backend := &fakeBackend{}

	_, err := Run(cfg, backend)
	if !errors.Is(err, ErrWrap) {
		t.Fatalf("Expected ErrWrap, got %v", err)
	}
	var sizeErr *accel.SizeMismatchError
	if !errors.As(err, &sizeErr) {
		t.Errorf("Expected SizeMismatchError cause, got %v", err)
	}
	assertNoFile(t, cfg.OutputPath)
	if err := backend.checkReleased(); err != nil {
		t.Error(err)
	}
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	left := writePNG(t, dir, "left.png", gradient(8, 8))
	cfg := testConfig(dir, left, filepath.Join(dir, "missing.png"))
	backend := &fakeBackend{}

	_, err := Run(cfg, backend)
	if !errors.Is(err, ErrLoad) {
		t.Fatalf("Expected ErrLoad, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected the cause to be os.ErrNotExist, got %v", err)
	}
	if n := backend.created(); n != 0 {
		t.Errorf("Expected no accelerator resources before loading succeeds, got %d", n)
	}
	assertNoFile(t, cfg.OutputPath)
}

func TestRunCorruptInput(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "left.png")
	if err := os.WriteFile(bad, []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}
	right := writePNG(t, dir, "right.png", gradient(8, 8))
	backend := &fakeBackend{}

	if _, err := Run(testConfig(dir, bad, right), backend); !errors.Is(err, ErrLoad) {
		t.Fatalf("Expected ErrLoad, got %v", err)
	}
	if n := backend.created(); n != 0 {
		t.Errorf("Expected no accelerator resources, got %d", n)
	}
}

// TestRunReleasesResourcesOnFailure injects a failure at every backend call
// and checks the reported stage and that everything acquired is closed once.
func TestRunReleasesResourcesOnFailure(t *testing.T) {
	tests := []struct {
		failAt  string
		stage   error
		created int
	}{
		{failStream, ErrStream, 0},
		{failWrap, ErrWrap, 1},
		{failBuffer, ErrWrap, 3},
		{failCreate, ErrEstimatorCreate, 4},
		{failSubmit, ErrSubmit, 5},
		{failSync, ErrSync, 5},
		{failLock, ErrReadback, 5},
		{failLockInput, ErrReadback, 3},
	}
	for _, tt := range tests {
		t.Run(tt.failAt, func(t *testing.T) {
			dir := t.TempDir()
			left := writePNG(t, dir, "left.png", gradient(16, 12))
			right := writePNG(t, dir, "right.png", gradient(16, 12))
			cfg := testConfig(dir, left, right)
			cfg.DumpWrapped = true
			backend := &fakeBackend{failAt: tt.failAt}

			_, err := Run(cfg, backend)
			if !errors.Is(err, tt.stage) {
				t.Fatalf("Expected %v, got %v", tt.stage, err)
			}
			if !errors.Is(err, errInjected) {
				t.Errorf("Expected the injected cause to be preserved, got %v", err)
			}
			var stageErr *StageError
			if !errors.As(err, &stageErr) || stageErr.Op == "" {
				t.Errorf("Expected a StageError naming the operation, got %v", err)
			}

			if n := backend.created(); n != tt.created {
				t.Errorf("Expected %d resources created, got %d", tt.created, n)
			}
			if err := backend.checkReleased(); err != nil {
				t.Error(err)
			}
			assertNoFile(t, cfg.OutputPath)
		})
	}
}

func TestRunUnwritableOutput(t *testing.T) {
	dir := t.TempDir()
	left := writePNG(t, dir, "left.png", gradient(16, 12))
	right := writePNG(t, dir, "right.png", gradient(16, 12))
	cfg := testConfig(dir, left, right)
	cfg.OutputPath = filepath.Join(dir, "missing", "disparity.png")
	backend := &fakeBackend{}

	if _, err := Run(cfg, backend); !errors.Is(err, ErrWrite) {
		t.Fatalf("Expected ErrWrite, got %v", err)
	}
	if err := backend.checkReleased(); err != nil {
		t.Error(err)
	}
}

func TestRunDumpsWrappedLeftImage(t *testing.T) {
	dir := t.TempDir()
	src := gradient(16, 12)
	left := writePNG(t, dir, "left.png", src)
	right := writePNG(t, dir, "right.png", src)
	cfg := testConfig(dir, left, right)
	cfg.DumpWrapped = true

	if _, err := Run(cfg, &fakeBackend{}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	dumped, err := loadGray(cfg.WrappedPath, "png")
	if err != nil {
		t.Fatalf("Failed to read wrapped dump: %v", err)
	}
	for y := 0; y < 12; y++ {
		for x := 0; x < 16; x++ {
			if got, want := dumped.U8At(x, y), src.GrayAt(x, y).Y; got != want {
				t.Fatalf("Pixel (%d,%d): expected %d, got %d", x, y, want, got)
			}
		}
	}
}

// TestRunHostBackend runs the real CPU backend end to end on a shifted pair.
func TestRunHostBackend(t *testing.T) {
	const shift = 5
	dir := t.TempDir()
	l, r := stereoPair(64, 40, shift)
	cfg := testConfig(dir, writePNG(t, dir, "left.png", l), writePNG(t, dir, "right.png", r))
	cfg.Estimator.MaxDisparity = 16

	res, err := Run(cfg, host.New(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.Median < shift-0.5 || res.Stats.Median > shift+0.5 {
		t.Errorf("Expected median disparity near %d, got %.2f", shift, res.Stats.Median)
	}
}

func TestRunIdenticalViewsAreValid(t *testing.T) {
	dir := t.TempDir()
	l, _ := stereoPair(32, 24, 0)
	path := writePNG(t, dir, "left.png", l)
	cfg := testConfig(dir, path, path)
	cfg.Estimator.MaxDisparity = 16

	res, err := Run(cfg, host.New(2))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Stats.ValidRatio() != 1 || res.Stats.Max != 0 {
		t.Errorf("Expected every pixel valid at disparity 0, got %.1f%% valid, max %.2f",
			100*res.Stats.ValidRatio(), res.Stats.Max)
	}
}

// TestRunIsDeterministic checks that identical inputs give identical files.
func TestRunIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	l, r := stereoPair(48, 32, 3)
	left := writePNG(t, dir, "left.png", l)
	right := writePNG(t, dir, "right.png", r)

	var outputs [][]byte
	for i, name := range []string{"first.png", "second.png"} {
		cfg := testConfig(dir, left, right)
		cfg.Estimator.MaxDisparity = 16
		cfg.OutputPath = filepath.Join(dir, name)
		if _, err := Run(cfg, host.New(i+1)); err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
		data, err := os.ReadFile(cfg.OutputPath)
		if err != nil {
			t.Fatalf("Failed to read output: %v", err)
		}
		outputs = append(outputs, data)
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("Expected identical output files for identical inputs")
	}
}

func TestStageError(t *testing.T) {
	cause := errors.New("device lost")
	err := stageError(ErrSync, "synchronize stream", cause)

	if !errors.Is(err, ErrSync) || !errors.Is(err, cause) {
		t.Errorf("Expected %v to match both stage and cause", err)
	}
	if errors.Is(err, ErrSubmit) {
		t.Error("Expected no match for an unrelated stage")
	}
	if got, want := err.Error(), "sync error: synchronize stream: device lost"; got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
