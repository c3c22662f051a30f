package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/measure"
	"github.com/ironsheep/pellet-mcp/internal/segment"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Image.WorkingSize != 256 {
		t.Errorf("WorkingSize: got %d, want 256", cfg.Image.WorkingSize)
	}
	if cfg.Segmentation.EdgeBlur.VarianceSize != 72 || cfg.Segmentation.EdgeBlur.Morphology.Closing != 33 {
		t.Errorf("edge blur defaults: got %+v", cfg.Segmentation.EdgeBlur)
	}
}

func TestLoadConfig_Missing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Scale.Method != measure.MethodPSD {
		t.Errorf("Method: got %q, want %q", cfg.Scale.Method, measure.MethodPSD)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pellet.yaml")
	data := `
scale:
  method: peaks
segmentation:
  strategy: fourier_gabor
  fourier_gabor:
    threshold: isodata
    post_process:
      opening: 3
pipeline:
  auto_align: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Scale.Method != measure.MethodPeaks {
		t.Errorf("Method: got %q", cfg.Scale.Method)
	}
	if cfg.Scale.NoiseFloor != measure.DefaultNoiseFloor {
		t.Errorf("NoiseFloor should keep its default, got %v", cfg.Scale.NoiseFloor)
	}
	fg := cfg.Segmentation.FourierGabor
	if fg.Threshold != segment.RuleIsodata || fg.Morphology.Opening != 3 || fg.Clusters != 3 {
		t.Errorf("fourier_gabor: got %+v", fg)
	}
	if !cfg.Pipeline.AutoAlign {
		t.Error("AutoAlign: got false, want true")
	}

	est, err := cfg.Estimator("", logger.Nop())
	if err != nil {
		t.Fatalf("Estimator failed: %v", err)
	}
	if _, ok := est.Segmenter.(*segment.FourierGabor); !ok {
		t.Errorf("segmenter: got %T, want *segment.FourierGabor", est.Segmenter)
	}
	if !est.AutoAlign || est.Scale.Method != measure.MethodPeaks {
		t.Errorf("estimator not configured: %+v", est)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"bad yaml", "scale: [\n"},
		{"bad method", "scale:\n  method: wavelet\n"},
		{"bad strategy", "segmentation:\n  strategy: unet\n"},
		{"bad floor", "scale:\n  noise_floor: 0.9\n"},
		{"bad threshold", "segmentation:\n  edge_blur:\n    threshold: otsu\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pellet.yaml")
	cfg := DefaultConfig()
	cfg.Segmentation.EdgeBlur.MinimumSize = 11
	cfg.Log.Level = "debug"

	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Segmentation.EdgeBlur.MinimumSize != 11 || loaded.Log.Level != "debug" {
		t.Errorf("round trip lost settings: %+v", loaded)
	}
}

func TestResolve(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv(EnvPath, path)
	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("env path: got level %q, want warn", cfg.Log.Level)
	}

	t.Setenv(EnvPath, "")
	cfg, err = Resolve("")
	if err != nil || cfg.Log.Level != "info" {
		t.Errorf("defaults: got %v, %v", cfg, err)
	}
}

func TestSegmenter_Independent(t *testing.T) {
	cfg := DefaultConfig()
	s, err := cfg.Segmenter(segment.StrategyEdgeBlur, nil)
	if err != nil {
		t.Fatalf("Segmenter failed: %v", err)
	}
	s.(*segment.EdgeBlur).Morphology.Opening = 0
	if cfg.Segmentation.EdgeBlur.Morphology.Opening != 14 {
		t.Error("adjusting a built segmenter changed the config")
	}
}
