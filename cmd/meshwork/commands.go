package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chazu/meshwork/internal/config"
	"github.com/chazu/meshwork/internal/logger"
	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/holefill"
	"github.com/chazu/meshwork/pkg/implicit"
	"github.com/chazu/meshwork/pkg/kernel"
	"github.com/chazu/meshwork/pkg/kernel/brep"
	"github.com/chazu/meshwork/pkg/kernel/sdfx"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/objio"
	"github.com/chazu/meshwork/pkg/remesh"
	"github.com/chazu/meshwork/pkg/simplify"
	"github.com/chazu/meshwork/pkg/smooth"
)

// errUsage marks bad command-line arguments.
var errUsage = errors.New("usage")

func usagef(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errUsage}, args...)...)
}

func readMesh(cfg *config.Config, path string) (*mesh.Mesh, error) {
	return objio.ReadFile(path, objio.ReadOptions{ReverseOrientation: cfg.OBJ.ReverseOrientation})
}

// writeMesh writes m as STL or OBJ depending on the extension of path.
func writeMesh(cfg *config.Config, path string, m *mesh.Mesh, out io.Writer) error {
	var err error
	if strings.EqualFold(filepath.Ext(path), ".stl") {
		err = objio.WriteSTL(path, m)
	} else {
		err = objio.WriteFile(path, m, objio.WriteOptions{ReverseOrientation: cfg.OBJ.ReverseOrientation})
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%d triangles)\n", path, m.TriangleCount())
	return nil
}

// inOut parses fs and returns its two positional file arguments.
func inOut(fs *flag.FlagSet, args []string) (string, string, error) {
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if fs.NArg() != 2 {
		return "", "", usagef("meshwork %s [options] <in.obj> <out.obj>", fs.Name())
	}
	return fs.Arg(0), fs.Arg(1), nil
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// transform reads in, applies op and writes the result to outPath.
func transform(ctx context.Context, cfg *config.Config, name, in, outPath string, out io.Writer,
	op func(context.Context, *mesh.Mesh) (*mesh.Mesh, error)) error {
	m, err := readMesh(cfg, in)
	if err != nil {
		return err
	}
	start := time.Now()
	res, err := op(ctx, m)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Info(name+" finished",
		zap.Int("triangles_in", m.TriangleCount()),
		zap.Int("triangles_out", res.TriangleCount()),
		zap.Duration("elapsed", time.Since(start)))
	return writeMesh(cfg, outPath, res, out)
}

// newKernel returns the solid backend called name.
func newKernel(name string, cfg *config.Config) (kernel.Kernel, error) {
	switch name {
	case "", "sdfx":
		k := sdfx.New()
		if cfg.Script.Cells > 0 {
			k.MeshCells = cfg.Script.Cells
		}
		return k, nil
	case "brep":
		k := brep.New()
		k.FillMethod = cfg.PipelineOptions().FillMethod
		return k, nil
	}
	return nil, usagef("unknown kernel %q (want sdfx or brep)", name)
}

func cmdRun(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("run", out)
	kernelName := fs.String("kernel", cfg.Script.Kernel, "Solid backend: sdfx or brep")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return usagef("meshwork run [-kernel sdfx|brep] <script.lisp>")
	}
	script := fs.Arg(0)
	k, err := newKernel(*kernelName, cfg)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(script)
	if err != nil {
		return err
	}

	res := newSession(k, cfg, filepath.Dir(script)).Evaluate(ctx, string(src))
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "%s: warning: %s\n", script, w.Error())
	}
	if len(res.Errors) > 0 {
		for _, e := range res.Errors {
			fmt.Fprintf(out, "%s: %s\n", script, e.Error())
		}
		return fmt.Errorf("%s: %d script errors", script, len(res.Errors))
	}
	for _, m := range res.Meshes {
		fmt.Fprintf(out, "%-16s %d triangles\n", m.Name, m.Triangles)
	}
	for _, f := range res.Files {
		fmt.Fprintf(out, "wrote %s\n", f)
	}
	return nil
}

func cmdInfo(_ context.Context, cfg *config.Config, args []string, out io.Writer) error {
	if len(args) != 1 {
		return usagef("meshwork info <in.obj>")
	}
	m, err := readMesh(cfg, args[0])
	if err != nil {
		return err
	}
	printStats(out, args[0], m)
	return nil
}

// cmdConfig writes the effective configuration, defaults merged with the
// config file and global flags, as YAML.
func cmdConfig(_ context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("config", out)
	path := fs.String("o", "", "Output file (default: the user config directory)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usagef("meshwork config [-o file]")
	}
	if *path == "" {
		*path = filepath.Join(config.ConfigDir(), "config.yaml")
		if err := cfg.Save(); err != nil {
			return err
		}
	} else if err := cfg.SaveTo(*path); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", *path)
	return nil
}

func printStats(out io.Writer, name string, m *mesh.Mesh) {
	b := m.Bounds()
	loops := holefill.BoundaryLoops(m)

	fmt.Fprintf(out, "Mesh:       %s\n", name)
	fmt.Fprintf(out, "Vertices:   %d\n", m.VertexCount())
	fmt.Fprintf(out, "Triangles:  %d\n", m.TriangleCount())
	fmt.Fprintf(out, "Edges:      %d\n", len(m.Edges()))
	fmt.Fprintf(out, "Groups:     %d\n", len(m.GroupIDs()))
	if m.HasAttributes() {
		fmt.Fprintf(out, "Normals:    %d\n", m.Normals().ElementCount())
		fmt.Fprintf(out, "UVs:        %d\n", m.UVs().ElementCount())
	}
	fmt.Fprintf(out, "Bounds:     (%g, %g, %g) - (%g, %g, %g)\n",
		b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	fmt.Fprintf(out, "Area:       %g\n", m.Area())
	fmt.Fprintf(out, "Closed:     %v\n", m.IsClosed())
	if m.IsClosed() {
		fmt.Fprintf(out, "Volume:     %g\n", m.Volume())
	}
	fmt.Fprintf(out, "Holes:      %d\n", len(loops))
	if n := m.NonManifoldEdgeCount(); n > 0 {
		fmt.Fprintf(out, "Non-manifold edges: %d\n", n)
	}
}

func cmdSolidify(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("solidify", out)
	voxels := fs.Int("voxels", cfg.Solidify.Voxels, "Cells along the longest axis")
	extend := fs.Float64("extend", cfg.Solidify.ExtendBounds, "Pad the bounds by this distance")
	threshold := fs.Float64("threshold", cfg.Solidify.WindingThreshold, "Winding number iso-value")
	in, outPath, err := inOut(fs, args)
	if err != nil {
		return err
	}
	return transform(ctx, cfg, "solidify", in, outPath, out, func(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
		s := implicit.NewSolidify(m)
		s.SetCellSizeAndExtendBounds(m.Bounds(), *extend, *voxels)
		s.WindingThreshold = *threshold
		s.SurfaceSearchSteps = cfg.Solidify.SearchSteps
		s.SolidAtBoundaries = cfg.Solidify.SolidAtBoundaries
		return s.Generate(ctx)
	})
}

func cmdDilate(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	return morphology(ctx, cfg, implicit.Dilate, args, out)
}

func cmdErode(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	return morphology(ctx, cfg, implicit.Erode, args, out)
}

func morphology(ctx context.Context, cfg *config.Config, op implicit.MorphologyOp, args []string, out io.Writer) error {
	fs := newFlagSet(op.String(), out)
	dist := fs.Float64("d", 0, "Offset distance (0 = fraction of the bounds diagonal)")
	voxels := fs.Int("voxels", cfg.Morphology.Voxels, "Cells along the longest axis")
	in, outPath, err := inOut(fs, args)
	if err != nil {
		return err
	}
	return transform(ctx, cfg, op.String(), in, outPath, out, func(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
		d := *dist
		if d <= 0 {
			d = cfg.Morphology.DistanceFraction * geom.Diagonal(m.Bounds())
		}
		mo := implicit.NewMorphology(m, op, d)
		mo.SetCellSizesAndDistance(m.Bounds(), d, *voxels)
		mo.SurfaceSearchSteps = cfg.Solidify.SearchSteps
		return mo.Generate(ctx)
	})
}

func cmdSimplify(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("simplify", out)
	target := fs.Int("n", cfg.Simplify.TargetTriangles, "Target triangle count")
	keep := fs.Bool("preserve-boundary", cfg.Simplify.PreserveBoundary, "Keep open borders in place")
	in, outPath, err := inOut(fs, args)
	if err != nil {
		return err
	}
	return transform(ctx, cfg, "simplify", in, outPath, out, func(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
		s := simplify.New(m)
		s.PreserveBoundary = *keep
		if err := s.SimplifyToTriangleCount(ctx, *target); err != nil {
			return nil, err
		}
		logger.Debug("simplify collapses", zap.Int("collapses", s.Collapses))
		return m, nil
	})
}

func cmdRemesh(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("remesh", out)
	edge := fs.Float64("edge", 0, "Target edge length (0 = fraction of the bounds diagonal)")
	passes := fs.Int("passes", cfg.Remesh.Passes, "Number of passes")
	fast := fs.Bool("fast", false, "Split first, then run a short pass sequence")
	in, outPath, err := inOut(fs, args)
	if err != nil {
		return err
	}
	return transform(ctx, cfg, "remesh", in, outPath, out, func(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
		l := *edge
		if l <= 0 {
			l = cfg.Remesh.EdgeLengthFraction * geom.Diagonal(m.Bounds())
		}
		r := remesh.New(m, l)
		r.Passes = *passes
		r.SmoothSpeed = cfg.Remesh.SmoothSpeed
		run := r.Remesh
		if *fast {
			run = r.FastestRemesh
		}
		if err := run(ctx); err != nil {
			return nil, err
		}
		logger.Debug("remesh stats",
			zap.Int("splits", r.Splits), zap.Int("collapses", r.Collapses), zap.Int("flips", r.Flips))
		return m, nil
	})
}

func cmdSmooth(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("smooth", out)
	iterations := fs.Int("iterations", cfg.Smooth.Iterations, "Solver iterations")
	smoothness := fs.Float64("smoothness", cfg.Smooth.Smoothness, "Smoothing strength")
	in, outPath, err := inOut(fs, args)
	if err != nil {
		return err
	}
	return transform(ctx, cfg, "smooth", in, outPath, out, func(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
		s := smooth.NewImplicit(m)
		s.Iterations = *iterations
		s.Smoothness = *smoothness
		s.PreserveBoundary = true
		if err := s.Smooth(ctx); err != nil {
			return nil, err
		}
		return m, nil
	})
}

func cmdFill(ctx context.Context, cfg *config.Config, args []string, out io.Writer) error {
	fs := newFlagSet("fill", out)
	name := fs.String("method", cfg.Boolean.FillMethod, "ear-clip, minimum-area or fan")
	in, outPath, err := inOut(fs, args)
	if err != nil {
		return err
	}
	method, err := holefill.ParseMethod(*name)
	if err != nil {
		return usagef("%v", err)
	}
	return transform(ctx, cfg, "fill", in, outPath, out, func(_ context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
		n, err := holefill.FillAll(m, method)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(out, "filled %d holes\n", n)
		return m, nil
	})
}
