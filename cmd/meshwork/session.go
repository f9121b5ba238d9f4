package main

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github.com/chazu/meshwork/internal/config"
	"github.com/chazu/meshwork/internal/logger"
	"github.com/chazu/meshwork/pkg/engine"
	"github.com/chazu/meshwork/pkg/graph"
	"github.com/chazu/meshwork/pkg/kernel"
	"github.com/chazu/meshwork/pkg/pipeline"
)

// session evaluates pipeline scripts and executes the resulting graphs.
// It keeps one engine, so a newer evaluation supersedes a stale one.
type session struct {
	engine *engine.Engine
	exec   *pipeline.Executor
	log    *zap.Logger
}

// meshSummary describes one named mesh of a run.
type meshSummary struct {
	Name      string
	Triangles int
	Vertices  int
	Closed    bool
}

// scriptResult is the outcome of one evaluation. The slices are never nil.
type scriptResult struct {
	Meshes   []meshSummary
	Files    []string
	Errors   []engine.EvalError
	Warnings []engine.EvalError
}

// newSession returns a session executing solids on k. Relative load and
// export paths resolve against baseDir.
func newSession(k kernel.Kernel, cfg *config.Config, baseDir string) *session {
	eng := engine.NewEngine()
	eng.Timeout = cfg.Script.Timeout
	exec := pipeline.New(k, cfg.PipelineOptions())
	exec.Logger = logger.Named("pipeline")
	exec.BaseDir = baseDir
	return &session{engine: eng, exec: exec, log: logger.Named("session")}
}

// Evaluate compiles source into a graph and runs it. Script and
// execution failures are reported in the result, not as an error.
func (s *session) Evaluate(ctx context.Context, source string) scriptResult {
	result := scriptResult{
		Meshes:   []meshSummary{},
		Files:    []string{},
		Errors:   []engine.EvalError{},
		Warnings: []engine.EvalError{},
	}

	g, evalErrs, err := s.engine.Evaluate(source)
	if err != nil {
		s.log.Warn("evaluation aborted", zap.Error(err))
		result.Errors = append(result.Errors, engine.EvalError{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		result.Errors = append(result.Errors, evalErrs...)
		return result
	}

	for _, f := range graph.Validate(g) {
		if f.Severity == graph.SeverityWarning {
			result.Warnings = append(result.Warnings, engine.EvalError{Message: f.Message})
		}
	}

	res, err := s.exec.Run(ctx, g)
	if err != nil {
		s.log.Warn("execution failed", zap.Error(err))
		result.Errors = append(result.Errors, engine.EvalError{Message: "execution failed: " + err.Error()})
		return result
	}

	for name, m := range res.Meshes {
		result.Meshes = append(result.Meshes, meshSummary{
			Name:      name,
			Triangles: m.TriangleCount(),
			Vertices:  m.VertexCount(),
			Closed:    m.IsClosed(),
		})
	}
	sort.Slice(result.Meshes, func(i, j int) bool { return result.Meshes[i].Name < result.Meshes[j].Name })
	result.Files = append(result.Files, res.Files...)
	return result
}
