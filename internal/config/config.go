// Package config handles mapdump configuration loading and management.
package config

// Config holds all tool settings.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig holds batch conversion settings.
type PipelineConfig struct {
	SourceDir       string `yaml:"source_dir"`        // Directory scanned by batch
	SnapshotExt     string `yaml:"snapshot_ext"`      // Suffix of input files, matched case-sensitively
	OutputExt       string `yaml:"output_ext"`        // Suffix of output files
	Atomic          bool   `yaml:"atomic"`            // Write through a temp file and rename
	ContinueOnError bool   `yaml:"continue_on_error"` // Keep going after a failed file
	Progress        bool   `yaml:"progress"`          // Print a progress line per file
}

// SnapshotConfig holds decoder settings.
type SnapshotConfig struct {
	InternSize int    `yaml:"intern_size"` // Distinct names kept across a batch
	Charset    string `yaml:"charset"`     // Forces string decoding; empty follows the header
}

// OutputConfig holds encoder settings.
type OutputConfig struct {
	Frame    string `yaml:"frame"`     // "world" or "local"
	PinFrame bool   `yaml:"pin_frame"` // Force vertices to the world frame while encoding
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			SourceDir:       "map/src",
			SnapshotExt:     ".map",
			OutputExt:       ".json",
			Atomic:          true,
			ContinueOnError: false,
			Progress:        true,
		},
		Snapshot: SnapshotConfig{
			InternSize: 4096,
			Charset:    "",
		},
		Output: OutputConfig{
			Frame:    "world",
			PinFrame: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
