// Package pipeline converts directories of map snapshots to JSON dumps.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/Faultbox/mapdump/internal/logger"
	"github.com/Faultbox/mapdump/pkg/mapjson"
	"github.com/Faultbox/mapdump/pkg/scene"
	"github.com/Faultbox/mapdump/pkg/snapshot"
)

// Pipeline errors.
var (
	ErrNoDecoder   = errors.New("pipeline has no snapshot decoder")
	ErrSameSuffix  = errors.New("snapshot and output suffix are equal")
	ErrEmptySuffix = errors.New("empty file suffix")
)

// Options configures a Pipeline.
type Options struct {
	SnapshotExt     string // Input suffix, matched case-sensitively
	OutputExt       string // Replaces SnapshotExt in output names
	Atomic          bool   // Write through a temp file and rename on success
	ContinueOnError bool   // Convert remaining files after a failure

	Frame    scene.Frame
	PinFrame bool

	Progress Progress    // nil disables progress reporting
	Logger   *zap.Logger // nil uses the package logger
}

// DefaultOptions returns the batch defaults: .map to .json, atomic writes,
// abort on first failure.
func DefaultOptions() Options {
	return Options{
		SnapshotExt: ".map",
		OutputExt:   ".json",
		Atomic:      true,
	}
}

// Result summarises a batch run.
type Result struct {
	Matched   int      // Files with the snapshot suffix
	Converted []string // Output paths written, in order
	Failed    []string // Input names that failed
}

// Pipeline converts snapshots one file at a time.
type Pipeline struct {
	dec  snapshot.Decoder
	opts Options
}

// New returns a pipeline decoding with dec.
func New(dec snapshot.Decoder, opts Options) (*Pipeline, error) {
	if dec == nil {
		return nil, ErrNoDecoder
	}
	if opts.SnapshotExt == "" || opts.OutputExt == "" {
		return nil, ErrEmptySuffix
	}
	if opts.SnapshotExt == opts.OutputExt {
		return nil, fmt.Errorf("%w: %q", ErrSameSuffix, opts.OutputExt)
	}
	if opts.Progress == nil {
		opts.Progress = nopProgress{}
	}
	return &Pipeline{dec: dec, opts: opts}, nil
}

func (p *Pipeline) log() *zap.Logger {
	if p.opts.Logger != nil {
		return p.opts.Logger
	}
	return logger.Log
}

// OutputPath returns the dump path for a snapshot path.
func (p *Pipeline) OutputPath(snapshotPath string) string {
	return strings.TrimSuffix(snapshotPath, p.opts.SnapshotExt) + p.opts.OutputExt
}

// Match returns the snapshot names in dir, in lexical order.
func (p *Pipeline) Match(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading source directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), p.opts.SnapshotExt) {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Run converts every snapshot in dir, writing each dump next to its source.
// Files are converted strictly in sequence. By default the first failure
// stops the batch and outputs already written stay on disk. With
// ContinueOnError every file is attempted and the failures are returned
// together.
func (p *Pipeline) Run(ctx context.Context, dir string) (Result, error) {
	var res Result

	names, err := p.Match(dir)
	if err != nil {
		return res, err
	}
	res.Matched = len(names)
	p.log().Debug("batch start",
		zap.String("dir", dir),
		zap.Int("files", len(names)),
		zap.Bool("atomic", p.opts.Atomic))

	var errs error
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return res, multierr.Append(errs, err)
		}

		p.opts.Progress.Start(i+1, len(names), name)

		in := filepath.Join(dir, name)
		out := p.OutputPath(in)
		if err := p.convert(in, out); err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			if !p.opts.ContinueOnError {
				p.log().Error("conversion failed", zap.String("file", name), zap.Error(err))
				return res, err
			}
			p.log().Warn("conversion failed, continuing", zap.String("file", name), zap.Error(err))
			res.Failed = append(res.Failed, name)
			errs = multierr.Append(errs, err)
			continue
		}
		res.Converted = append(res.Converted, out)
	}

	if errs != nil {
		p.log().Warn("batch finished with failures",
			zap.Int("converted", len(res.Converted)),
			zap.Int("failed", len(res.Failed)))
		return res, errs
	}

	p.opts.Progress.Done()
	p.log().Info("batch complete", zap.Int("converted", len(res.Converted)))
	return res, nil
}

// convert decodes one snapshot and writes its full-variant dump.
func (p *Pipeline) convert(in, out string) error {
	m, err := p.decode(in)
	if err != nil {
		return err
	}

	return writeFile(out, p.opts.Atomic, func(f *os.File) error {
		enc := mapjson.NewEncoder(f, mapjson.Options{
			Variant:  mapjson.Full,
			Frame:    p.opts.Frame,
			PinFrame: p.opts.PinFrame,
		})
		if err := enc.Map(m); err != nil {
			return err
		}
		return enc.Flush()
	})
}

func (p *Pipeline) decode(path string) (*scene.Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot: %w", err)
	}
	defer f.Close()

	m, err := p.dec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return m, nil
}
