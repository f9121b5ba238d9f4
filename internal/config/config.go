// Package config handles meshwork configuration loading and management.
package config

import (
	"time"

	"github.com/chazu/meshwork/pkg/holefill"
	"github.com/chazu/meshwork/pkg/pipeline"
)

// Config holds all tool settings.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Solidify   SolidifyConfig   `yaml:"solidify"`
	Morphology MorphologyConfig `yaml:"morphology"`
	Simplify   SimplifyConfig   `yaml:"simplify"`
	Remesh     RemeshConfig     `yaml:"remesh"`
	Smooth     SmoothConfig     `yaml:"smooth"`
	Boolean    BooleanConfig    `yaml:"boolean"`
	OBJ        OBJConfig        `yaml:"obj"`
	Script     ScriptConfig     `yaml:"script"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// SolidifyConfig holds winding-number remeshing settings.
type SolidifyConfig struct {
	Voxels            int     `yaml:"voxels"`
	ExtendBounds      float64 `yaml:"extend_bounds"`
	WindingThreshold  float64 `yaml:"winding_threshold"`
	SearchSteps       int     `yaml:"search_steps"`
	SolidAtBoundaries bool    `yaml:"solid_at_boundaries"`
}

// MorphologyConfig holds offset settings. DistanceFraction scales the
// bounds diagonal when no distance is given.
type MorphologyConfig struct {
	Voxels           int     `yaml:"voxels"`
	DistanceFraction float64 `yaml:"distance_fraction"`
}

// SimplifyConfig holds edge-collapse settings.
type SimplifyConfig struct {
	TargetTriangles  int  `yaml:"target_triangles"`
	PreserveBoundary bool `yaml:"preserve_boundary"`
}

// RemeshConfig holds isotropic remeshing settings.
type RemeshConfig struct {
	EdgeLengthFraction float64 `yaml:"edge_length_fraction"`
	Passes             int     `yaml:"passes"`
	SmoothSpeed        float64 `yaml:"smooth_speed"`
}

// SmoothConfig holds implicit smoothing settings.
type SmoothConfig struct {
	Iterations int     `yaml:"iterations"`
	Smoothness float64 `yaml:"smoothness"`
}

// BooleanConfig holds boolean settings.
type BooleanConfig struct {
	FillHoles  bool   `yaml:"fill_holes"`
	FillMethod string `yaml:"fill_method"`
}

// OBJConfig holds file format settings.
type OBJConfig struct {
	ReverseOrientation bool `yaml:"reverse_orientation"`
}

// ScriptConfig holds pipeline script settings.
type ScriptConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	Cells   int           `yaml:"cells"`
	// Kernel selects the solid backend: "sdfx" or "brep".
	Kernel string `yaml:"kernel"`
}

// Default returns a Config with the standard settings.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level: "info",
		},
		Solidify: SolidifyConfig{
			Voxels:            64,
			ExtendBounds:      2,
			WindingThreshold:  0.5,
			SearchSteps:       5,
			SolidAtBoundaries: true,
		},
		Morphology: MorphologyConfig{
			Voxels:           64,
			DistanceFraction: 0.1,
		},
		Simplify: SimplifyConfig{
			TargetTriangles:  5000,
			PreserveBoundary: true,
		},
		Remesh: RemeshConfig{
			EdgeLengthFraction: 0.01,
			Passes:             10,
			SmoothSpeed:        0.5,
		},
		Smooth: SmoothConfig{
			Iterations: 1,
			Smoothness: 100,
		},
		Boolean: BooleanConfig{
			FillHoles:  true,
			FillMethod: holefill.EarClip.String(),
		},
		Script: ScriptConfig{
			Timeout: 5 * time.Second,
			Cells:   64,
			Kernel:  "sdfx",
		},
	}
}

// PipelineOptions converts the operator sections to executor options.
// An unknown fill method falls back to ear clipping.
func (c *Config) PipelineOptions() pipeline.Options {
	method, err := holefill.ParseMethod(c.Boolean.FillMethod)
	if err != nil {
		method = holefill.EarClip
	}
	return pipeline.Options{
		SolidifyVoxels:     c.Solidify.Voxels,
		ExtendBounds:       c.Solidify.ExtendBounds,
		WindingThreshold:   c.Solidify.WindingThreshold,
		SearchSteps:        c.Solidify.SearchSteps,
		SolidAtBoundaries:  c.Solidify.SolidAtBoundaries,
		MorphologyVoxels:   c.Morphology.Voxels,
		RemeshEdgeFraction: c.Remesh.EdgeLengthFraction,
		RemeshPasses:       c.Remesh.Passes,
		SmoothSpeed:        c.Remesh.SmoothSpeed,
		SmoothIterations:   c.Smooth.Iterations,
		Smoothness:         c.Smooth.Smoothness,
		FillHoles:          c.Boolean.FillHoles,
		FillMethod:         method,
		ReverseOBJ:         c.OBJ.ReverseOrientation,
		Cells:              c.Script.Cells,
	}
}
