// Package config provides configuration loading and management for phantomfuse.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Fusion parameters control the CT/phantom blending stage
	Fusion struct {
		// TransitionZCm is the axial sigmoid transition width in cm
		TransitionZCm float64 `yaml:"transitionZCm"`

		// TransitionXYCm is the in-plane sigmoid transition width in cm
		TransitionXYCm float64 `yaml:"transitionXYCm"`

		// AirThresholdHU: intensities below this are classified as air
		AirThresholdHU float64 `yaml:"airThresholdHU"`

		// BoneThresholdHU: intensities at or above this are classified as bone
		BoneThresholdHU float64 `yaml:"boneThresholdHU"`

		// MinOverlapVoxels is the smallest CT/phantom overlap worth fusing.
		// Below it fusion becomes a no-op and the reference grid is returned.
		MinOverlapVoxels int `yaml:"minOverlapVoxels"`

		// Workers is the number of goroutines used for independent
		// per-slice work (distance transforms, contour resampling)
		Workers int `yaml:"workers"`
	} `yaml:"fusion"`

	// Contour parameters control the per-slice body outline matching
	Contour struct {
		// Enabled toggles contour matching entirely
		Enabled bool `yaml:"enabled"`

		// BoundarySlices is how many slices at each axial boundary are
		// sampled to estimate the CT/phantom width ratio
		BoundarySlices int `yaml:"boundarySlices"`

		// RatioTolerance: boundary width ratios within this distance of 1
		// leave the CT untouched
		RatioTolerance float64 `yaml:"ratioTolerance"`

		// EdgeFadeFraction is the fraction of the axial extent, measured
		// from each boundary, over which the per-slice scale fades
		// linearly back to 1. Empirically chosen constant.
		EdgeFadeFraction float64 `yaml:"edgeFadeFraction"`

		// MinBodyWidth is the smallest in-plane body width (voxels) a
		// slice must have to contribute a width-ratio sample
		MinBodyWidth float64 `yaml:"minBodyWidth"`
	} `yaml:"contour"`

	// Encoder parameters control the MCNP geometry output
	Encoder struct {
		// DownsampleFactor is the integer per-axis reduction applied to
		// the fused grid before encoding
		DownsampleFactor int `yaml:"downsampleFactor"`

		// Particles is the particle history count written to the nps card
		Particles int `yaml:"particles"`
	} `yaml:"encoder"`

	// Output parameters
	Output struct {
		// SaveIntermediary determines whether the fused grid is persisted
		// alongside the geometry document
		SaveIntermediary bool `yaml:"saveIntermediary"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Fusion defaults follow Kollitz et al. (PMB 2022): 10 cm axial
	// transition, 2 cm in-plane transition.
	cfg.Fusion.TransitionZCm = 10.0
	cfg.Fusion.TransitionXYCm = 2.0
	cfg.Fusion.AirThresholdHU = -500
	cfg.Fusion.BoneThresholdHU = 100
	cfg.Fusion.MinOverlapVoxels = 64
	cfg.Fusion.Workers = runtime.NumCPU()

	cfg.Contour.Enabled = true
	cfg.Contour.BoundarySlices = 3
	cfg.Contour.RatioTolerance = 0.05
	cfg.Contour.EdgeFadeFraction = 0.3
	cfg.Contour.MinBodyWidth = 5

	cfg.Encoder.DownsampleFactor = 2
	cfg.Encoder.Particles = 100000

	cfg.Output.SaveIntermediary = true
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
