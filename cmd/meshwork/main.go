// meshwork is a command-line tool for triangle mesh processing: booleans,
// winding-number solidify, offsets, simplification, remeshing, smoothing
// and hole filling, driven either by single commands or pipeline scripts.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/chazu/meshwork/internal/config"
	"github.com/chazu/meshwork/internal/logger"
)

// command runs one subcommand with its own arguments.
type command func(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error

var commands = map[string]command{
	"run":      cmdRun,
	"demo":     cmdDemo,
	"info":     cmdInfo,
	"solidify": cmdSolidify,
	"dilate":   cmdDilate,
	"erode":    cmdErode,
	"simplify": cmdSimplify,
	"remesh":   cmdRemesh,
	"smooth":   cmdSmooth,
	"fill":     cmdFill,
	"config":   cmdConfig,
}

func main() {
	global := flag.NewFlagSet("meshwork", flag.ExitOnError)
	global.Usage = printUsage
	flags := config.RegisterFlags(global)
	global.Parse(os.Args[1:])

	if global.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	name := global.Arg(0)
	args := global.Args()[1:]

	switch name {
	case "help", "-h", "--help":
		printUsage()
		return
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger.Debug("starting", zap.String("command", name), zap.Strings("args", args))
	if err := cmd(ctx, cfg, args, os.Stdout); err != nil {
		logger.Error("command failed", zap.String("command", name), zap.Error(err))
		logger.Sync()
		stop()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshwork - triangle mesh processing

Usage:
  meshwork [global options] <command> [options]

Global options:
  -config <file>      YAML config (default ./meshwork.yaml)
  -log-level <level>  debug, info, warn, error
  -log-file <file>    Also write logs to a rotated file
  -reverse            Read and write OBJ with reversed winding

Commands:
  run [-kernel k] <script.lisp>     Evaluate and execute a pipeline script
  demo <in.obj> <out-dir>           Run the full demo pipeline on a mesh
  info <in.obj>                     Show mesh statistics
  solidify <in.obj> <out.obj>       Winding-number solidify
  dilate <in.obj> <out.obj>         Offset outward
  erode <in.obj> <out.obj>          Offset inward
  simplify <in.obj> <out.obj>       Reduce to a triangle count
  remesh <in.obj> <out.obj>         Isotropic remesh
  smooth <in.obj> <out.obj>         Implicit Laplacian smoothing
  fill <in.obj> <out.obj>           Fill boundary holes
  config [-o file]                  Write the effective config as YAML

Examples:
  meshwork info bunny.obj
  meshwork simplify -n 2000 bunny.obj bunny_small.obj
  meshwork -log-level debug demo bunny.obj ./out
  meshwork run model.lisp
  meshwork -log-level debug config -o meshwork.yaml`)
}
