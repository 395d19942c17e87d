// mapdump converts map snapshots to JSON geometry dumps.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Faultbox/mapdump/internal/config"
	"github.com/Faultbox/mapdump/internal/logger"
)

var errUsage = errors.New("usage")

// logReady is set once setup has installed the logger.
var logReady bool

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "batch", "b":
		err = cmdBatch(args)
	case "dump", "d":
		err = cmdDump(args)
	case "info":
		err = cmdInfo(args)
	case "verify":
		err = cmdVerify(args)
	case "pack":
		err = cmdPack(args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil && !errors.Is(err, errUsage) {
		if logReady {
			logger.Error("command failed", zap.String("command", command), zap.Error(err))
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mapdump - map snapshot to JSON converter

Usage:
  mapdump <command> [options]

Commands:
  batch [dir]                    Convert every snapshot in dir (default from config)
  dump <file.map>                Write the mesh array of one snapshot to stdout
  info <file.map>                Show model tree statistics
  verify <file.json>             Parse a dump and count meshes and triangles
  pack <file.json> <out.map>     Build a snapshot from a dump
  config init [-force] [path]    Write the default config (default: user config dir)

Options (all commands):
  -config <path>   Config file (default ./mapdump.yaml)
  -debug           Debug logging
  -log <path>      Also log to a rotated file
  -ext / -out-ext  Snapshot and output suffixes
  -charset         Force snapshot strings to utf-8, shift-jis or euc-kr
  -frame           world or local
  -pin-frame       Force vertices to the world frame while encoding
  -no-atomic       Write outputs in place
  -keep-going      Continue the batch after a failed file
  -q               No progress output

Environment:
  MAPDUMP_* variables and a .env file override the config file.

Examples:
  mapdump batch map/src
  mapdump dump map/src/kmr_00.map > kmr_00.json
  mapdump dump -frame local kmr_00.map`)
}

// setup parses a command's flags and loads config and logging.
func setup(name string, args []string, usage string) (*config.Config, *flag.FlagSet, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mapdump %s\n", usage)
		fs.PrintDefaults()
	}
	fs.Parse(args)

	config.LoadDotEnv()

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	logReady = true
	logger.Debug("config loaded",
		zap.String("command", name),
		zap.String("frame", cfg.Output.Frame),
		zap.String("charset", cfg.Snapshot.Charset))
	logger.Sugar.Debugf("Config: %+v", cfg)

	return cfg, fs, nil
}

// requireArgs prints usage and returns errUsage when fs has fewer than n
// positional arguments.
func requireArgs(fs *flag.FlagSet, n int) error {
	if fs.NArg() < n {
		fs.Usage()
		return errUsage
	}
	return nil
}

// signalContext is cancelled on interrupt so a batch stops between files.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
