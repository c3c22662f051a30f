// Package config provides configuration loading and management for
// pellet-mcp. It handles loading configuration from YAML files and provides
// default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/pellet-mcp/internal/area"
	"github.com/ironsheep/pellet-mcp/internal/imaging"
	"github.com/ironsheep/pellet-mcp/internal/logger"
	"github.com/ironsheep/pellet-mcp/internal/measure"
	"github.com/ironsheep/pellet-mcp/internal/segment"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "PELLET_MCP_CONFIG"

// Config represents the application configuration loaded from YAML
type Config struct {
	// Image ingestion
	Image struct {
		// WorkingSize is the side of the square the input is resized to
		// before measuring; 0 keeps the original size.
		WorkingSize int `yaml:"working_size"`
	} `yaml:"image"`

	// Scale estimation
	Scale struct {
		Method     measure.ScaleMethod `yaml:"method"`
		Sigma      float64             `yaml:"sigma"`
		NoiseFloor float64             `yaml:"noise_floor"`
	} `yaml:"scale"`

	// Slope estimation
	Slope struct {
		Canny measure.CannyOptions `yaml:"canny"`
		Hough measure.HoughOptions `yaml:"hough"`
	} `yaml:"slope"`

	// Segmentation
	Segmentation struct {
		Strategy     segment.Strategy     `yaml:"strategy"`
		EdgeBlur     segment.EdgeBlur     `yaml:"edge_blur"`
		FourierGabor segment.FourierGabor `yaml:"fourier_gabor"`
	} `yaml:"segmentation"`

	// Pipeline
	Pipeline struct {
		// AutoAlign de-rotates images to the grid before measuring.
		AutoAlign bool `yaml:"auto_align"`
	} `yaml:"pipeline"`

	// Logging
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Image.WorkingSize = imaging.DefaultWorkingSize

	cfg.Scale.Method = measure.MethodPSD
	cfg.Scale.Sigma = measure.DefaultScaleSigma
	cfg.Scale.NoiseFloor = measure.DefaultNoiseFloor

	cfg.Slope.Canny = measure.DefaultCannyOptions()
	cfg.Slope.Hough = measure.DefaultHoughOptions()

	cfg.Segmentation.Strategy = segment.StrategyEdgeBlur
	cfg.Segmentation.EdgeBlur = *segment.NewEdgeBlur()
	cfg.Segmentation.FourierGabor = *segment.NewFourierGabor()

	cfg.Pipeline.AutoAlign = false

	cfg.Log.Level = "info"

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// Resolve picks the config path from the flag value or PELLET_MCP_CONFIG and
// loads it. With neither set it returns the defaults.
func Resolve(flagPath string) (*Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(EnvPath)
	}
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadConfig(path)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.Image.WorkingSize < 0:
		return fmt.Errorf("image.working_size %d is negative", c.Image.WorkingSize)
	case c.Scale.Method != measure.MethodPSD && c.Scale.Method != measure.MethodPeaks:
		return fmt.Errorf("scale.method %q must be %q or %q", c.Scale.Method, measure.MethodPSD, measure.MethodPeaks)
	case c.Scale.NoiseFloor <= 0 || c.Scale.NoiseFloor >= 0.5:
		return fmt.Errorf("scale.noise_floor %v must be in (0, 0.5)", c.Scale.NoiseFloor)
	case c.Slope.Hough.Angles < 2:
		return fmt.Errorf("slope.hough.angles %d must be at least 2", c.Slope.Hough.Angles)
	case c.Slope.Canny.LowThreshold > c.Slope.Canny.HighThreshold:
		return fmt.Errorf("slope.canny thresholds: low %v above high %v", c.Slope.Canny.LowThreshold, c.Slope.Canny.HighThreshold)
	}
	if _, err := c.segmenterFor(c.Segmentation.Strategy); err != nil {
		return err
	}
	if c.Segmentation.EdgeBlur.Clusters < 1 || c.Segmentation.FourierGabor.Clusters < 1 {
		return fmt.Errorf("segmentation clusters must be at least 1")
	}
	for _, rule := range []segment.ThresholdMethod{c.Segmentation.EdgeBlur.Threshold, c.Segmentation.FourierGabor.Threshold} {
		switch rule {
		case "", segment.RuleKMeans, segment.RuleIsodata, segment.RuleTriangle:
		default:
			return fmt.Errorf("segmentation threshold %q must be %q, %q or %q",
				rule, segment.RuleKMeans, segment.RuleIsodata, segment.RuleTriangle)
		}
	}
	return nil
}

// ScaleEstimator builds the configured scale estimator.
func (c *Config) ScaleEstimator(log logger.Logger) measure.ScaleEstimator {
	return measure.ScaleEstimator{
		Method:     c.Scale.Method,
		Sigma:      c.Scale.Sigma,
		NoiseFloor: c.Scale.NoiseFloor,
		Logger:     log,
	}
}

// SlopeEstimator builds the configured slope estimator.
func (c *Config) SlopeEstimator(log logger.Logger) measure.SlopeEstimator {
	return measure.SlopeEstimator{
		Canny:  c.Slope.Canny,
		Hough:  c.Slope.Hough,
		Logger: log,
	}
}

// Segmenter builds a fresh segmenter for strategy, or for the configured
// strategy when it is empty. Each call returns an independent value that the
// caller may adjust.
func (c *Config) Segmenter(strategy segment.Strategy, log logger.Logger) (segment.Segmenter, error) {
	if strategy == "" {
		strategy = c.Segmentation.Strategy
	}
	s, err := c.segmenterFor(strategy)
	if err != nil {
		return nil, err
	}
	switch s := s.(type) {
	case *segment.EdgeBlur:
		s.Logger = log
	case *segment.FourierGabor:
		s.Logger = log
	}
	return s, nil
}

func (c *Config) segmenterFor(strategy segment.Strategy) (segment.Segmenter, error) {
	switch strategy {
	case "", segment.StrategyEdgeBlur:
		eb := c.Segmentation.EdgeBlur
		return &eb, nil
	case segment.StrategyFourierGabor:
		fg := c.Segmentation.FourierGabor
		return &fg, nil
	default:
		return nil, fmt.Errorf("segmentation.strategy %q must be %q or %q",
			strategy, segment.StrategyEdgeBlur, segment.StrategyFourierGabor)
	}
}

// Estimator builds the full measurement pipeline.
func (c *Config) Estimator(strategy segment.Strategy, log logger.Logger) (*area.Estimator, error) {
	seg, err := c.Segmenter(strategy, log)
	if err != nil {
		return nil, err
	}
	return &area.Estimator{
		Scale:     c.ScaleEstimator(log),
		Slope:     c.SlopeEstimator(log),
		Segmenter: seg,
		AutoAlign: c.Pipeline.AutoAlign,
		Logger:    log,
	}, nil
}
