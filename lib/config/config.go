// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/cadconv/lib/assembly"
	"github.com/bureau-foundation/cadconv/lib/clock"
	"github.com/bureau-foundation/cadconv/lib/convcache"
	"github.com/bureau-foundation/cadconv/lib/convert"
	"github.com/bureau-foundation/cadconv/lib/kernel"
	"github.com/bureau-foundation/cadconv/lib/mesh"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// EnvironmentVariable names the configuration file for Load.
const EnvironmentVariable = "CADCONV_CONFIG"

// ErrUnsupportedFormat is returned by LoadFile for an extension that is
// neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("config: unsupported file format")

// Config is the converter configuration.
type Config struct {
	Environment Environment `yaml:"environment" toml:"environment"`

	Mesh     MeshConfig     `yaml:"mesh" toml:"mesh"`
	Limits   LimitsConfig   `yaml:"limits" toml:"limits"`
	Input    InputConfig    `yaml:"input" toml:"input"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Assembly AssemblyConfig `yaml:"assembly" toml:"assembly"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty" toml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty" toml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty" toml:"production,omitempty"`
}

// MeshConfig configures tessellation.
type MeshConfig struct {
	LinearDeflection  float64 `yaml:"linear_deflection" toml:"linear_deflection"`
	AngularDeflection float64 `yaml:"angular_deflection" toml:"angular_deflection"`

	// Relative is accepted for compatibility; conversions record a
	// warning and tessellate with absolute deflection.
	Relative bool `yaml:"relative" toml:"relative"`

	// Parallel is passed to the kernel unchanged. Unset leaves the
	// kernel's default.
	Parallel *bool `yaml:"parallel,omitempty" toml:"parallel,omitempty"`

	// Attempts bounds the retry schedule.
	Attempts int `yaml:"attempts" toml:"attempts"`
}

// LimitsConfig holds the explosion thresholds.
type LimitsConfig struct {
	MaxTriangles  int `yaml:"max_triangles" toml:"max_triangles"`
	MaxPrimitives int `yaml:"max_primitives" toml:"max_primitives"`
}

// InputConfig selects which document attributes the kernel reads.
type InputConfig struct {
	ReadNames  bool `yaml:"read_names" toml:"read_names"`
	ReadColors bool `yaml:"read_colors" toml:"read_colors"`
	ReadLayers bool `yaml:"read_layers" toml:"read_layers"`
}

// OutputConfig configures the produced files.
type OutputConfig struct {
	// Format is glb, gltf, or obj.
	Format string `yaml:"format" toml:"format"`

	EmbedMetadata bool `yaml:"embed_metadata" toml:"embed_metadata"`

	// LinearUnit is the unit written to the output. Empty keeps the
	// document's unit.
	LinearUnit string `yaml:"linear_unit" toml:"linear_unit"`

	AllowMissingBounds bool `yaml:"allow_missing_bounds" toml:"allow_missing_bounds"`
}

// AssemblyConfig configures assembly metadata.
type AssemblyConfig struct {
	// NameOverridesFile is a JSON or JSONC object mapping label
	// entries to display names. Empty means no overrides.
	NameOverridesFile string `yaml:"name_overrides_file" toml:"name_overrides_file"`
}

// CacheConfig configures the conversion result cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Root    string `yaml:"root" toml:"root"`

	// Compression is auto, none, lz4, or zstd.
	Compression string `yaml:"compression" toml:"compression"`

	// MaxBytes is the eviction target for pruning. Zero means
	// unbounded.
	MaxBytes int64 `yaml:"max_bytes" toml:"max_bytes"`

	PoolSize int `yaml:"pool_size" toml:"pool_size"`
}

// ConfigOverrides contains fields that can be overridden per
// environment. Booleans are pointers so that an absent key leaves the
// base value alone.
type ConfigOverrides struct {
	Mesh   *MeshOverrides   `yaml:"mesh,omitempty" toml:"mesh,omitempty"`
	Limits *LimitsConfig    `yaml:"limits,omitempty" toml:"limits,omitempty"`
	Output *OutputOverrides `yaml:"output,omitempty" toml:"output,omitempty"`
	Cache  *CacheOverrides  `yaml:"cache,omitempty" toml:"cache,omitempty"`
}

type MeshOverrides struct {
	LinearDeflection  float64 `yaml:"linear_deflection" toml:"linear_deflection"`
	AngularDeflection float64 `yaml:"angular_deflection" toml:"angular_deflection"`
	Parallel          *bool   `yaml:"parallel,omitempty" toml:"parallel,omitempty"`
	Attempts          int     `yaml:"attempts" toml:"attempts"`
}

type OutputOverrides struct {
	Format             string `yaml:"format" toml:"format"`
	EmbedMetadata      *bool  `yaml:"embed_metadata,omitempty" toml:"embed_metadata,omitempty"`
	LinearUnit         string `yaml:"linear_unit" toml:"linear_unit"`
	AllowMissingBounds *bool  `yaml:"allow_missing_bounds,omitempty" toml:"allow_missing_bounds,omitempty"`
}

type CacheOverrides struct {
	Enabled     *bool  `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Root        string `yaml:"root" toml:"root"`
	Compression string `yaml:"compression" toml:"compression"`
	MaxBytes    int64  `yaml:"max_bytes" toml:"max_bytes"`
}

// Default returns the configuration that file values are merged over.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Environment: Development,
		Mesh: MeshConfig{
			LinearDeflection:  convert.DefaultLinearDeflection,
			AngularDeflection: convert.DefaultAngularDeflection,
			Attempts:          mesh.DefaultAttempts,
		},
		Limits: LimitsConfig{
			MaxTriangles:  mesh.DefaultMaxTriangles,
			MaxPrimitives: mesh.DefaultMaxPrimitives,
		},
		Input: InputConfig{ReadNames: true, ReadColors: true},
		Output: OutputConfig{
			Format:        string(kernel.OutputGLB),
			EmbedMetadata: true,
		},
		Cache: CacheConfig{
			Root:        filepath.Join(homeDir, ".cache", "cadconv"),
			Compression: convcache.CompressionAuto,
		},
	}
}

// Load loads the file named by CADCONV_CONFIG. It fails when the
// variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvironmentVariable)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your cadconv.yaml or cadconv.toml", EnvironmentVariable)
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from path, applies the matching
// environment section, and expands variables.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	overrides := cfg.Assembly.NameOverridesFile
	if overrides != "" && !filepath.IsAbs(overrides) {
		cfg.Assembly.NameOverridesFile = filepath.Join(filepath.Dir(path), overrides)
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	return nil
}

func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			strict := false
			overrides = &ConfigOverrides{
				Output: &OutputOverrides{AllowMissingBounds: &strict},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Mesh != nil {
		if overrides.Mesh.LinearDeflection != 0 {
			c.Mesh.LinearDeflection = overrides.Mesh.LinearDeflection
		}
		if overrides.Mesh.AngularDeflection != 0 {
			c.Mesh.AngularDeflection = overrides.Mesh.AngularDeflection
		}
		if overrides.Mesh.Parallel != nil {
			c.Mesh.Parallel = overrides.Mesh.Parallel
		}
		if overrides.Mesh.Attempts != 0 {
			c.Mesh.Attempts = overrides.Mesh.Attempts
		}
	}

	if overrides.Limits != nil {
		if overrides.Limits.MaxTriangles != 0 {
			c.Limits.MaxTriangles = overrides.Limits.MaxTriangles
		}
		if overrides.Limits.MaxPrimitives != 0 {
			c.Limits.MaxPrimitives = overrides.Limits.MaxPrimitives
		}
	}

	if overrides.Output != nil {
		if overrides.Output.Format != "" {
			c.Output.Format = overrides.Output.Format
		}
		if overrides.Output.EmbedMetadata != nil {
			c.Output.EmbedMetadata = *overrides.Output.EmbedMetadata
		}
		if overrides.Output.LinearUnit != "" {
			c.Output.LinearUnit = overrides.Output.LinearUnit
		}
		if overrides.Output.AllowMissingBounds != nil {
			c.Output.AllowMissingBounds = *overrides.Output.AllowMissingBounds
		}
	}

	if overrides.Cache != nil {
		if overrides.Cache.Enabled != nil {
			c.Cache.Enabled = *overrides.Cache.Enabled
		}
		if overrides.Cache.Root != "" {
			c.Cache.Root = overrides.Cache.Root
		}
		if overrides.Cache.Compression != "" {
			c.Cache.Compression = overrides.Cache.Compression
		}
		if overrides.Cache.MaxBytes != 0 {
			c.Cache.MaxBytes = overrides.Cache.MaxBytes
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Cache.Root = expandVars(c.Cache.Root, vars)
	vars["CADCONV_CACHE"] = c.Cache.Root
	c.Assembly.NameOverridesFile = expandVars(c.Assembly.NameOverridesFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces each pattern with the first non-empty of vars,
// the process environment, and the pattern's default.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if !positive(c.Mesh.LinearDeflection) {
		errs = append(errs, fmt.Errorf("mesh.linear_deflection must be positive, got %g", c.Mesh.LinearDeflection))
	}
	if !positive(c.Mesh.AngularDeflection) {
		errs = append(errs, fmt.Errorf("mesh.angular_deflection must be positive, got %g", c.Mesh.AngularDeflection))
	}
	if c.Mesh.Attempts < 1 {
		errs = append(errs, fmt.Errorf("mesh.attempts must be at least 1, got %d", c.Mesh.Attempts))
	}

	if c.Limits.MaxTriangles < 1 {
		errs = append(errs, fmt.Errorf("limits.max_triangles must be at least 1, got %d", c.Limits.MaxTriangles))
	}
	if c.Limits.MaxPrimitives < 1 {
		errs = append(errs, fmt.Errorf("limits.max_primitives must be at least 1, got %d", c.Limits.MaxPrimitives))
	}

	if _, err := kernel.ParseOutputFormat(c.Output.Format); err != nil {
		errs = append(errs, fmt.Errorf("output.format: %w", err))
	}

	if c.Cache.Enabled {
		if c.Cache.Root == "" {
			errs = append(errs, fmt.Errorf("cache.root is required when the cache is enabled"))
		}
		if c.Cache.Compression != "" && c.Cache.Compression != convcache.CompressionAuto {
			if _, err := convcache.ParseCompression(c.Cache.Compression); err != nil {
				errs = append(errs, fmt.Errorf("cache.compression: %w", err))
			}
		}
		if c.Cache.MaxBytes < 0 {
			errs = append(errs, fmt.Errorf("cache.max_bytes must not be negative, got %d", c.Cache.MaxBytes))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

func positive(value float64) bool {
	return value > 0 && !math.IsInf(value, 0)
}

// NameOverrides reads the configured override file. It returns nil
// when none is configured.
func (c *Config) NameOverrides() (assembly.NameOverrides, error) {
	if c.Assembly.NameOverridesFile == "" {
		return nil, nil
	}
	data, err := os.ReadFile(c.Assembly.NameOverridesFile)
	if err != nil {
		return nil, fmt.Errorf("config: reading name overrides: %w", err)
	}
	overrides, err := assembly.LoadNameOverrides(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", c.Assembly.NameOverridesFile, err)
	}
	return overrides, nil
}

// ConverterOptions returns the conversion options this configuration
// describes. The input format is left empty so that each request
// infers it from its file name.
func (c *Config) ConverterOptions() (convert.Options, error) {
	overrides, err := c.NameOverrides()
	if err != nil {
		return convert.Options{}, err
	}
	return convert.Options{
		OutputFormat: kernel.OutputFormat(c.Output.Format),
		Mesh: mesh.Params{
			LinearDeflection:  c.Mesh.LinearDeflection,
			AngularDeflection: c.Mesh.AngularDeflection,
			Relative:          c.Mesh.Relative,
			Parallel:          c.Mesh.Parallel,
		},
		Attempts: c.Mesh.Attempts,
		Thresholds: mesh.Thresholds{
			MaxTriangles:  c.Limits.MaxTriangles,
			MaxPrimitives: c.Limits.MaxPrimitives,
		},
		Read: kernel.ReadOptions{
			ReadNames:  c.Input.ReadNames,
			ReadColors: c.Input.ReadColors,
			ReadLayers: c.Input.ReadLayers,
		},
		LinearUnit:         c.Output.LinearUnit,
		NameOverrides:      overrides,
		EmbedMetadata:      c.Output.EmbedMetadata,
		AllowMissingBounds: c.Output.AllowMissingBounds,
	}, nil
}

// CacheConfig returns the convcache configuration, or false when the
// cache is disabled.
func (c *Config) CacheConfig(clk clock.Clock, logger *slog.Logger) (convcache.Config, bool) {
	if !c.Cache.Enabled {
		return convcache.Config{}, false
	}
	return convcache.Config{
		Root:        c.Cache.Root,
		Compression: c.Cache.Compression,
		PoolSize:    c.Cache.PoolSize,
		MaxBytes:    c.Cache.MaxBytes,
		Clock:       clk,
		Logger:      logger,
	}, true
}
