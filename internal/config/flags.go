package config

import "flag"

// Flags holds command-line overrides registered on a subcommand's FlagSet.
type Flags struct {
	Config          *string
	Debug           *bool
	LogFile         *string
	SnapshotExt     *string
	OutputExt       *string
	Charset         *string
	Frame           *string
	PinFrame        *bool
	NoAtomic        *bool
	ContinueOnError *bool
	Quiet           *bool
}

// RegisterFlags adds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		Config:          fs.String("config", "", "Path to config file"),
		Debug:           fs.Bool("debug", false, "Enable debug logging"),
		LogFile:         fs.String("log", "", "Write logs to this file as well"),
		SnapshotExt:     fs.String("ext", "", "Snapshot file suffix (default .map)"),
		OutputExt:       fs.String("out-ext", "", "Output file suffix (default .json)"),
		Charset:         fs.String("charset", "", "Decode snapshot strings as utf-8, shift-jis or euc-kr"),
		Frame:           fs.String("frame", "", "Coordinate frame: world or local"),
		PinFrame:        fs.Bool("pin-frame", false, "Force vertices to the world frame while encoding"),
		NoAtomic:        fs.Bool("no-atomic", false, "Write outputs in place instead of via temp file"),
		ContinueOnError: fs.Bool("keep-going", false, "Continue the batch after a failed file"),
		Quiet:           fs.Bool("q", false, "Do not print progress"),
	}
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.LogFile != "" {
		cfg.Logging.LogFile = *f.LogFile
	}
	if *f.SnapshotExt != "" {
		cfg.Pipeline.SnapshotExt = *f.SnapshotExt
	}
	if *f.OutputExt != "" {
		cfg.Pipeline.OutputExt = *f.OutputExt
	}
	if *f.Charset != "" {
		cfg.Snapshot.Charset = *f.Charset
	}
	if *f.Frame != "" {
		cfg.Output.Frame = *f.Frame
	}
	if *f.PinFrame {
		cfg.Output.PinFrame = true
	}
	if *f.NoAtomic {
		cfg.Pipeline.Atomic = false
	}
	if *f.ContinueOnError {
		cfg.Pipeline.ContinueOnError = true
	}
	if *f.Quiet {
		cfg.Pipeline.Progress = false
	}
}
