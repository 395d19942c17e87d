package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Faultbox/mapdump/pkg/encoding"
	"github.com/Faultbox/mapdump/pkg/scene"
)

// Validation errors.
var (
	ErrInvalidFrame     = errors.New("invalid coordinate frame")
	ErrInvalidExtension = errors.New("invalid file extension")
)

// Validate checks values that cannot be caught by YAML decoding.
func (c *Config) Validate() error {
	if _, err := c.Output.ParseFrame(); err != nil {
		return err
	}
	if _, err := c.Snapshot.ParseCharset(); err != nil {
		return err
	}
	for _, ext := range []string{c.Pipeline.SnapshotExt, c.Pipeline.OutputExt} {
		if ext == "" || !strings.HasPrefix(ext, ".") || strings.ContainsAny(ext, `/\`) {
			return fmt.Errorf("%w: %q", ErrInvalidExtension, ext)
		}
	}
	if c.Pipeline.SnapshotExt == c.Pipeline.OutputExt {
		return fmt.Errorf("%w: input and output both use %q", ErrInvalidExtension, c.Pipeline.OutputExt)
	}
	return nil
}

// ParseFrame returns the configured coordinate frame.
func (o OutputConfig) ParseFrame() (scene.Frame, error) {
	switch strings.ToLower(o.Frame) {
	case "", "world", "current":
		return scene.FrameWorld, nil
	case "local":
		return scene.FrameLocal, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidFrame, o.Frame)
	}
}

// ParseCharset returns the forced snapshot charset, or "" when strings
// should follow the snapshot header.
func (s SnapshotConfig) ParseCharset() (encoding.Charset, error) {
	if strings.TrimSpace(s.Charset) == "" {
		return "", nil
	}
	return encoding.ParseCharset(s.Charset)
}
