package batch

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/pellet-mcp/internal/measure"
)

// writeSample writes <dir>/<name>.jpg showing a ruled grid and
// <dir>/<name>.png whose label covers the top-left quarter.
func writeSample(t *testing.T, dir, name string) string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create split: %v", err)
	}

	const size = 256
	photo := image.NewGray(image.Rect(0, 0, size, size))
	label := image.NewGray(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(230)
			if x%16 < 2 || y%16 < 2 {
				v = 40
			}
			photo.SetGray(x, y, color.Gray{Y: v})
			if x < size/2 && y < size/2 {
				label.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}

	path := filepath.Join(dir, name+".jpg")
	encode(t, path, func(f *os.File) error { return jpeg.Encode(f, photo, &jpeg.Options{Quality: 95}) })
	encode(t, filepath.Join(dir, name+".png"), func(f *os.File) error { return png.Encode(f, label) })
	return path
}

func encode(t *testing.T, path string, fn func(*os.File) error) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		t.Fatalf("failed to encode %s: %v", path, err)
	}
}

func newJob(root string) *Job {
	return &Job{
		Root:        root,
		Workers:     2,
		WorkingSize: 256,
		Slope:       measure.NewSlopeEstimator(),
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeSample(t, filepath.Join(root, "test"), "7.5")
	writeSample(t, filepath.Join(root, "train"), "12")
	writeSample(t, filepath.Join(root, "train"), "3")
	writeSample(t, filepath.Join(root, "other"), "1")

	paths, err := newJob(root).Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	want := []string{
		filepath.Join(root, "train", "12.jpg"),
		filepath.Join(root, "train", "3.jpg"),
		filepath.Join(root, "test", "7.5.jpg"),
	}
	if len(paths) != len(want) {
		t.Fatalf("got %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("paths[%d]: got %s, want %s", i, paths[i], want[i])
		}
	}
}

func TestCollect(t *testing.T) {
	root := t.TempDir()
	writeSample(t, filepath.Join(root, "train"), "12")
	writeSample(t, filepath.Join(root, "test"), "7.5")
	writeSample(t, filepath.Join(root, "train"), "3")

	samples, err := newJob(root).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(samples) != 3 {
		t.Fatalf("got %d samples, want 3", len(samples))
	}

	wantAreas := []float64{3, 7.5, 12}
	wantSplits := []string{"train", "test", "train"}
	for i, s := range samples {
		if s.Area != wantAreas[i] {
			t.Errorf("samples[%d].Area: got %v, want %v", i, s.Area, wantAreas[i])
		}
		if s.Split != wantSplits[i] {
			t.Errorf("samples[%d].Split: got %s, want %s", i, s.Split, wantSplits[i])
		}
		if math.Abs(s.LabelPixelArea-0.25) > 1e-9 {
			t.Errorf("samples[%d].LabelPixelArea: got %v, want 0.25", i, s.LabelPixelArea)
		}
		if s.Freq <= 0 {
			t.Errorf("samples[%d].Freq: got %v, want > 0", i, s.Freq)
		}
		if s.Slope < 0 || s.Slope >= 90 {
			t.Errorf("samples[%d].Slope: got %v, want [0, 90)", i, s.Slope)
		}
	}
}

func TestCollect_Errors(t *testing.T) {
	t.Run("name is not an area", func(t *testing.T) {
		root := t.TempDir()
		writeSample(t, filepath.Join(root, "train"), "pellet")
		if _, err := newJob(root).Collect(context.Background()); err == nil {
			t.Error("expected error for non-numeric file name")
		}
	})

	t.Run("missing label", func(t *testing.T) {
		root := t.TempDir()
		path := writeSample(t, filepath.Join(root, "train"), "4")
		if err := os.Remove(strings.TrimSuffix(path, ".jpg") + ".png"); err != nil {
			t.Fatal(err)
		}
		if _, err := newJob(root).Collect(context.Background()); err == nil {
			t.Error("expected error for missing label")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		root := t.TempDir()
		writeSample(t, filepath.Join(root, "train"), "4")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := newJob(root).Collect(ctx); err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}

func TestCollect_EmptyDataset(t *testing.T) {
	samples, err := newJob(t.TempDir()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(samples) != 0 {
		t.Errorf("got %d samples, want 0", len(samples))
	}
}

func TestWriteCSV(t *testing.T) {
	samples := []Sample{
		{Area: 3, Split: "train", Freq: 0.0156, Slope: 1.5, LabelPixelArea: 0.25},
		{Area: 7.5, Split: "test", Freq: 0.02, Slope: 0, LabelPixelArea: 0.1},
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, samples); err != nil {
		t.Fatalf("WriteCSV failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	want := [][]string{
		{"area", "train", "freq", "slope", "label_pixel_area"},
		{"3", "train", "0.0156", "1.5", "0.25"},
		{"7.5", "test", "0.02", "0", "0.1"},
	}
	if len(rows) != len(want) {
		t.Fatalf("got %d rows, want %d", len(rows), len(want))
	}
	for i := range want {
		if strings.Join(rows[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("row %d: got %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	writeSample(t, filepath.Join(root, "train"), "5")

	n, err := newJob(root).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d samples, want 1", n)
	}

	data, err := os.ReadFile(filepath.Join(root, "info.csv"))
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	if !strings.HasPrefix(string(data), "area,train,freq,slope,label_pixel_area\n") {
		t.Errorf("unexpected header: %q", string(data))
	}
}
