package main

import (
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/mapdump/internal/config"
	"github.com/Faultbox/mapdump/internal/logger"
	"github.com/Faultbox/mapdump/internal/pipeline"
	"github.com/Faultbox/mapdump/pkg/mapjson"
	"github.com/Faultbox/mapdump/pkg/snapshot"
)

func cmdBatch(args []string) error {
	cfg, fs, err := setup("batch", args, "batch [options] [dir]")
	if err != nil {
		return err
	}

	dir := cfg.Pipeline.SourceDir
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	frame, _ := cfg.Output.ParseFrame()
	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}

	progress := pipeline.MultiProgress{pipeline.LogProgress{Log: logger.Log}}
	if cfg.Pipeline.Progress {
		progress = append(progress, pipeline.NewConsoleProgress(os.Stdout))
	}

	p, err := pipeline.New(dec, pipeline.Options{
		SnapshotExt:     cfg.Pipeline.SnapshotExt,
		OutputExt:       cfg.Pipeline.OutputExt,
		Atomic:          cfg.Pipeline.Atomic,
		ContinueOnError: cfg.Pipeline.ContinueOnError,
		Frame:           frame,
		PinFrame:        cfg.Output.PinFrame,
		Progress:        progress,
	})
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	res, err := p.Run(ctx, dir)
	if len(res.Failed) > 0 {
		logger.Warn("some snapshots were not converted", zap.Strings("failed", res.Failed))
	}
	logger.Info("batch finished",
		zap.String("dir", dir),
		zap.Int("matched", res.Matched),
		zap.Int("converted", len(res.Converted)))
	if err != nil {
		if cfg.Pipeline.Progress {
			fmt.Println()
		}
		return err
	}
	return nil
}

func cmdDump(args []string) error {
	cfg, fs, err := setup("dump", args, "dump [options] <file.map>")
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	frame, _ := cfg.Output.ParseFrame()
	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}
	return pipeline.DumpFile(dec, fs.Arg(0), os.Stdout, frame, cfg.Output.PinFrame)
}

func cmdInfo(args []string) error {
	cfg, fs, err := setup("info", args, "info [options] <file.map>")
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	dec, err := newDecoder(cfg)
	if err != nil {
		return err
	}
	m, err := dec.DecodeFile(fs.Arg(0))
	if err != nil {
		return err
	}

	stats := m.Models.Stats()
	fmt.Printf("Snapshot:   %s\n", fs.Arg(0))
	fmt.Printf("Background: %s\n", m.BGName)
	fmt.Printf("Models:     %d\n", stats.Models)
	fmt.Printf("Meshes:     %d\n", stats.Meshes)
	fmt.Printf("Triangles:  %d\n", stats.Triangles)
	fmt.Printf("Vertices:   %d\n", stats.Vertices)
	fmt.Printf("Max depth:  %d\n", stats.MaxDepth)

	textures := make(map[string]int)
	for mesh := range m.Models.Meshes() {
		textures[mesh.TextureName]++
	}
	fmt.Printf("Textures:   %d\n", len(textures))
	return nil
}

func cmdVerify(args []string) error {
	_, fs, err := setup("verify", args, "verify [options] <file.json>")
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 1); err != nil {
		return err
	}

	doc, err := readDump(fs.Arg(0))
	if err != nil {
		return err
	}

	fmt.Printf("Dump:       %s\n", fs.Arg(0))
	if doc.BGName != "" {
		fmt.Printf("Background: %s\n", doc.BGName)
	}
	fmt.Printf("Meshes:     %d\n", len(doc.Meshes))
	fmt.Printf("Triangles:  %d\n", doc.TriangleCount())
	return nil
}

func cmdPack(args []string) error {
	_, fs, err := setup("pack", args, "pack [options] <file.json> <out.map>")
	if err != nil {
		return err
	}
	if err := requireArgs(fs, 2); err != nil {
		return err
	}

	doc, err := readDump(fs.Arg(0))
	if err != nil {
		return err
	}

	m := doc.ToMap()
	if err := snapshot.EncodeFile(fs.Arg(1), m, snapshot.EncodeOptions{Compress: true}); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	logger.Info("snapshot written",
		zap.String("path", fs.Arg(1)),
		zap.Int("meshes", len(doc.Meshes)),
		zap.Int("triangles", doc.TriangleCount()))
	return nil
}

func cmdConfig(args []string) error {
	if len(args) < 1 || args[0] != "init" {
		fmt.Fprintln(os.Stderr, "Usage: mapdump config init [-force] [path]")
		return errUsage
	}

	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	fs.Parse(args[1:])

	path, err := config.Init(fs.Arg(0), *force)
	if err != nil {
		return err
	}
	fmt.Printf("Config written to %s\n", path)
	return nil
}

// newDecoder builds the snapshot decoder described by cfg.
func newDecoder(cfg *config.Config) (*snapshot.BinaryDecoder, error) {
	dec, err := snapshot.NewDecoder(cfg.Snapshot.InternSize)
	if err != nil {
		return nil, err
	}
	charset, err := cfg.Snapshot.ParseCharset()
	if err != nil {
		return nil, err
	}
	dec.SetCharset(charset)
	return dec, nil
}

func readDump(path string) (*mapjson.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	doc, err := mapjson.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return doc, nil
}
