// Package config holds the process-wide engine configuration.
// Values are read once when the System initializes; later changes have no effect on allocated memory.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrInvalidConfig is returned by Validate when a limit or size is not usable.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the engine configuration. Zero values are never used directly; start from Default.
type Config struct {
	MaxEntityNumber                int `toml:"max_entity_number"`
	MaxLightNumber                 int `toml:"max_light_number"`
	MaxCameraNumber                int `toml:"max_camera_number"`
	MaxSkeletonNumber              int `toml:"max_skeleton_number"`
	MaxSkeletalBoneNumber          int `toml:"max_skeletal_bone_number"`
	MaxMaterialInstanceForEachType int `toml:"max_material_instance_for_each_type"`

	Memory   MemoryConfig   `toml:"memory"`
	Logging  LoggingConfig  `toml:"logging"`
	Renderer RendererConfig `toml:"renderer"`
	Loader   LoaderConfig   `toml:"loader"`
}

// MemoryConfig sizes the pre-allocated buffers, in MiB.
type MemoryConfig struct {
	CPUGenericMiB      float64 `toml:"cpu_generic_mib"`
	GPUInstanceDataMiB float64 `toml:"gpu_instance_data_mib"`
	GPUVertexDataMiB   float64 `toml:"gpu_vertex_data_mib"`
	UBOGenericMiB      float64 `toml:"ubo_generic_mib"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "json" or "console"
}

type RendererConfig struct {
	PresentMode   string `toml:"present_mode"` // "fifo" or "immediate"
	MSAA          int    `toml:"msaa"`         // 1 or 4
	ForceSoftware bool   `toml:"force_software"`
}

type LoaderConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Default returns the configuration used when no file is given.
//
// Returns:
//   - *Config: a fresh config populated with defaults
func Default() *Config {
	return &Config{
		MaxEntityNumber:                5000,
		MaxLightNumber:                 6,
		MaxCameraNumber:                30,
		MaxSkeletonNumber:              33,
		MaxSkeletalBoneNumber:          250,
		MaxMaterialInstanceForEachType: 500,
		Memory: MemoryConfig{
			CPUGenericMiB:      16,
			GPUInstanceDataMiB: 16,
			GPUVertexDataMiB:   16,
			UBOGenericMiB:      1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Renderer: RendererConfig{
			PresentMode: "fifo",
			MSAA:        1,
		},
		Loader: LoaderConfig{
			Workers:   4,
			QueueSize: 256,
		},
	}
}

// Load reads a TOML file on top of the defaults and validates the result.
//
// Parameters:
//   - path: the TOML file to read
//
// Returns:
//   - *Config: the loaded configuration
//   - error: error if the file cannot be read, parsed, or fails validation
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes TOML data on top of the defaults and validates the result.
//
// Parameters:
//   - data: TOML document
//
// Returns:
//   - *Config: the parsed configuration
//   - error: error if the document is malformed or fails validation
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every limit and buffer size is positive.
//
// Returns:
//   - error: an error wrapping ErrInvalidConfig naming the first offending field
func (c *Config) Validate() error {
	limits := []struct {
		name  string
		value int
	}{
		{"max_entity_number", c.MaxEntityNumber},
		{"max_light_number", c.MaxLightNumber},
		{"max_camera_number", c.MaxCameraNumber},
		{"max_skeleton_number", c.MaxSkeletonNumber},
		{"max_skeletal_bone_number", c.MaxSkeletalBoneNumber},
		{"max_material_instance_for_each_type", c.MaxMaterialInstanceForEachType},
	}
	for _, l := range limits {
		if l.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidConfig, l.name, l.value)
		}
	}

	sizes := []struct {
		name  string
		value float64
	}{
		{"memory.cpu_generic_mib", c.Memory.CPUGenericMiB},
		{"memory.gpu_instance_data_mib", c.Memory.GPUInstanceDataMiB},
		{"memory.gpu_vertex_data_mib", c.Memory.GPUVertexDataMiB},
		{"memory.ubo_generic_mib", c.Memory.UBOGenericMiB},
	}
	for _, s := range sizes {
		if s.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %g", ErrInvalidConfig, s.name, s.value)
		}
	}

	if c.Renderer.MSAA != 1 && c.Renderer.MSAA != 4 {
		return fmt.Errorf("%w: renderer.msaa must be 1 or 4, got %d", ErrInvalidConfig, c.Renderer.MSAA)
	}
	return nil
}

// Clone returns an independent copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// MiB converts a size in MiB to bytes, rounded down to a multiple of 16.
func MiB(size float64) int {
	return int(size*1024*1024) &^ 15
}
