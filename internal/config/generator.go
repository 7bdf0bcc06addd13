package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/divitsinghall/Zero-Copy-Market-Data-Feed-Handler/internal/fsutil"
)

// Defaults point at the repository data directory so existing data
// layouts keep working without a config file.
const (
	DefaultInputPath        = "data/Multiple.Packets.pcap"
	DefaultOutputPath       = "data/StressTest.pcap"
	DefaultTargetSizeMB     = 500.0
	DefaultProgressInterval = 100 * time.Millisecond

	bytesPerMB = 1024 * 1024
)

// GeneratorConfig configures a stress-file generation run. Fields left nil
// fall back to the defaults returned by the Get* methods, so partial JSON
// files are safe.
type GeneratorConfig struct {
	InputPath    *string  `json:"input_path,omitempty"`
	OutputPath   *string  `json:"output_path,omitempty"`
	TargetSizeMB *float64 `json:"target_size_mb,omitempty"`

	// TargetBytes overrides TargetSizeMB with an exact byte count.
	TargetBytes *int64 `json:"target_bytes,omitempty"`

	ProgressInterval *string `json:"progress_interval,omitempty"` // duration string like "250ms"
	Verify           *bool   `json:"verify,omitempty"`
	DBPath           *string `json:"db_path,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt64(v int64) *int64       { return &v }

// DefaultGeneratorConfig returns a config with every field set to its default.
func DefaultGeneratorConfig() *GeneratorConfig {
	return &GeneratorConfig{
		InputPath:        ptrString(DefaultInputPath),
		OutputPath:       ptrString(DefaultOutputPath),
		TargetSizeMB:     ptrFloat64(DefaultTargetSizeMB),
		ProgressInterval: ptrString(DefaultProgressInterval.String()),
		Verify:           ptrBool(false),
		DBPath:           ptrString(""),
	}
}

// LoadGeneratorConfig loads a GeneratorConfig from a JSON file on fsys.
// The file must have a .json extension and be at most 1MB.
func LoadGeneratorConfig(fsys fsutil.FileSystem, path string) (*GeneratorConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := fsys.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := fsys.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &GeneratorConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *GeneratorConfig) Validate() error {
	if c.InputPath != nil && *c.InputPath == "" {
		return fmt.Errorf("input_path must not be empty")
	}
	if c.OutputPath != nil && *c.OutputPath == "" {
		return fmt.Errorf("output_path must not be empty")
	}
	if c.InputPath != nil && c.OutputPath != nil &&
		filepath.Clean(*c.InputPath) == filepath.Clean(*c.OutputPath) {
		return fmt.Errorf("output_path must differ from input_path (%s)", *c.InputPath)
	}

	if c.TargetSizeMB != nil && *c.TargetSizeMB <= 0 {
		return fmt.Errorf("target_size_mb must be positive, got %g", *c.TargetSizeMB)
	}
	if c.TargetBytes != nil && *c.TargetBytes <= 0 {
		return fmt.Errorf("target_bytes must be positive, got %d", *c.TargetBytes)
	}

	if c.ProgressInterval != nil && *c.ProgressInterval != "" {
		if _, err := time.ParseDuration(*c.ProgressInterval); err != nil {
			return fmt.Errorf("invalid progress_interval '%s': %w", *c.ProgressInterval, err)
		}
	}

	return nil
}

// Merge returns a copy of c with every field set in override replacing the
// corresponding field of c.
func (c *GeneratorConfig) Merge(override *GeneratorConfig) *GeneratorConfig {
	merged := *c
	if override == nil {
		return &merged
	}
	if override.InputPath != nil {
		merged.InputPath = override.InputPath
	}
	if override.OutputPath != nil {
		merged.OutputPath = override.OutputPath
	}
	if override.TargetSizeMB != nil {
		merged.TargetSizeMB = override.TargetSizeMB
		// An explicit size in MB wins over an inherited byte count.
		if override.TargetBytes == nil {
			merged.TargetBytes = nil
		}
	}
	if override.TargetBytes != nil {
		merged.TargetBytes = override.TargetBytes
	}
	if override.ProgressInterval != nil {
		merged.ProgressInterval = override.ProgressInterval
	}
	if override.Verify != nil {
		merged.Verify = override.Verify
	}
	if override.DBPath != nil {
		merged.DBPath = override.DBPath
	}
	return &merged
}

// GetInputPath returns the template capture path or the default.
func (c *GeneratorConfig) GetInputPath() string {
	if c.InputPath == nil {
		return DefaultInputPath
	}
	return *c.InputPath
}

// GetOutputPath returns the generated capture path or the default.
func (c *GeneratorConfig) GetOutputPath() string {
	if c.OutputPath == nil {
		return DefaultOutputPath
	}
	return *c.OutputPath
}

// GetTargetSizeMB returns the target size in megabytes or the default.
func (c *GeneratorConfig) GetTargetSizeMB() float64 {
	if c.TargetSizeMB == nil {
		return DefaultTargetSizeMB
	}
	return *c.TargetSizeMB
}

// GetTargetBytes returns target_bytes when set, otherwise target_size_mb
// converted with 1MB = 1024*1024 bytes.
func (c *GeneratorConfig) GetTargetBytes() int64 {
	if c.TargetBytes != nil {
		return *c.TargetBytes
	}
	return int64(c.GetTargetSizeMB() * bytesPerMB)
}

// GetProgressInterval parses and returns the ProgressInterval as a time.Duration.
func (c *GeneratorConfig) GetProgressInterval() time.Duration {
	if c.ProgressInterval == nil || *c.ProgressInterval == "" {
		return DefaultProgressInterval
	}
	d, err := time.ParseDuration(*c.ProgressInterval)
	if err != nil {
		return DefaultProgressInterval
	}
	return d
}

// GetVerify returns the verify value or the default.
func (c *GeneratorConfig) GetVerify() bool {
	if c.Verify == nil {
		return false
	}
	return *c.Verify
}

// GetDBPath returns the run ledger path; empty means no ledger.
func (c *GeneratorConfig) GetDBPath() string {
	if c.DBPath == nil {
		return ""
	}
	return *c.DBPath
}
