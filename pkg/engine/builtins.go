package engine

import (
	"fmt"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/meshwork/pkg/graph"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource transforms pipeline Lisp source code before passing it
// to zygomys. It performs two transformations:
//
//  1. Keyword conversion: :keyword -> "__kw_keyword" (string literal)
//     This avoids the need to register keyword symbols as globals, which
//     would conflict with user-defined variables of the same name.
//
//  2. Kebab-case to underscore: fill-holes -> fill_holes
//     zygomys does not allow hyphens in identifiers (it interprets them
//     as the subtraction operator). This converts kebab-case identifiers
//     to underscore form outside of strings and comments.
//
// Both transformations respect string literal boundaries and line comments.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		// Skip double-quoted string literals.
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// Skip backtick-quoted string literals.
		if b[i] == '`' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '`' {
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		// zygomys uses // for line comments, not the traditional Lisp ;.
		if b[i] == ';' {
			result = append(result, '/', '/')
			i++
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			// Preserve := (assignment operator).
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// Only when the hyphen sits between identifier characters; a
		// minus operator is left alone.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isIdentStartChar(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

func isIdentStartChar(c byte) bool {
	return isLetter(c)
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	kind graph.NodeKind
	name string // human-readable name for error messages
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(mesh %q)", n.name)
	}
	return fmt.Sprintf("(%s %s)", n.kind, n.id.Short())
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a v3.Vec.
type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW checks if a Sexp is a preprocessed keyword string.
// Returns the keyword name (without prefix) and true if it is.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
// Keywords are identified by the __kw_ prefix added during preprocessing.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	i := 0
	for i < len(args) {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			i++
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i += 2
		} else {
			// keyword at the end acts as a flag
			result.kw[name] = &zygo.SexpBool{Val: true}
			i++
		}
	}
	return result
}

// setFloat sets *dst from keyword key when present.
func (pa kwArgs) setFloat(form, key string, dst *float64) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", form, key, err)
	}
	*dst = f
	return nil
}

// setInt sets *dst from keyword key when present.
func (pa kwArgs) setInt(form, key string, dst *int) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	f, err := toFloat64(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", form, key, err)
	}
	if f != float64(int(f)) {
		return fmt.Errorf("%s: %s: expected integer, got %g", form, key, f)
	}
	*dst = int(f)
	return nil
}

// optFloat is setFloat for parameters whose zero is meaningful: *dst
// stays nil unless key is present.
func (pa kwArgs) optFloat(form, key string, dst **float64) error {
	if _, ok := pa.kw[key]; !ok {
		return nil
	}
	var f float64
	if err := pa.setFloat(form, key, &f); err != nil {
		return err
	}
	*dst = &f
	return nil
}

// optInt is the integer form of optFloat.
func (pa kwArgs) optInt(form, key string, dst **int) error {
	if _, ok := pa.kw[key]; !ok {
		return nil
	}
	var n int
	if err := pa.setInt(form, key, &n); err != nil {
		return err
	}
	*dst = &n
	return nil
}

// setBool sets *dst from keyword key when present.
func (pa kwArgs) setBool(form, key string, dst *bool) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	b, err := toBool(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", form, key, err)
	}
	*dst = b
	return nil
}

// setVec sets *dst from keyword key when present.
func (pa kwArgs) setVec(form, key string, dst *v3.Vec) error {
	v, ok := pa.kw[key]
	if !ok {
		return nil
	}
	vec, err := toVec3(v)
	if err != nil {
		return fmt.Errorf("%s: %s: %w", form, key, err)
	}
	*dst = vec
	return nil
}

// first returns the error of the first failing setter.
func first(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

// toBool extracts a bool from a SexpBool.
func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString extracts a keyword name or plain string from a Sexp.
// Handles both preprocessed keywords (__kw_fan) and plain strings ("fan").
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], nil
	}
	return str.S, nil
}

// toNodeRef extracts a node reference.
func toNodeRef(s zygo.Sexp) (*sexpNodeRef, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref, nil
	}
	return nil, fmt.Errorf("expected mesh, got %T (%s)", s, s.SexpString(nil))
}

// toVec3 extracts a v3.Vec from a sexpVec3.
func toVec3(s zygo.Sexp) (v3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

// ---------------------------------------------------------------------------
// Graph construction
// ---------------------------------------------------------------------------

// builder adds nodes to the graph under construction. Node IDs derive
// from the form name and a per-evaluation sequence number, so the same
// source always yields the same IDs.
type builder struct {
	g   *graph.Graph
	seq int
}

func (b *builder) add(form string, kind graph.NodeKind, data graph.NodeData, inputs ...*sexpNodeRef) *sexpNodeRef {
	b.seq++
	id := graph.NewNodeID(fmt.Sprintf("%s/%d", form, b.seq))
	ids := make([]graph.NodeID, len(inputs))
	for i, in := range inputs {
		ids[i] = in.id
	}
	b.g.AddNode(&graph.Node{ID: id, Kind: kind, Inputs: ids, Data: data})
	return &sexpNodeRef{id: id, kind: kind}
}

// unary parses the leading mesh argument of an operator form.
func unary(form string, pa kwArgs) (*sexpNodeRef, error) {
	if len(pa.positional) < 1 {
		return nil, fmt.Errorf("%s requires a mesh as first argument", form)
	}
	ref, err := toNodeRef(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", form, err)
	}
	return ref, nil
}

// binary parses two mesh arguments.
func binary(form string, args []zygo.Sexp) (*sexpNodeRef, *sexpNodeRef, error) {
	if len(args) != 2 {
		return nil, nil, fmt.Errorf("%s requires exactly 2 meshes, got %d arguments", form, len(args))
	}
	a, err := toNodeRef(args[0])
	if err != nil {
		return nil, nil, fmt.Errorf("%s: first: %w", form, err)
	}
	b, err := toNodeRef(args[1])
	if err != nil {
		return nil, nil, fmt.Errorf("%s: second: %w", form, err)
	}
	return a, b, nil
}

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// registerBuiltins installs the pipeline builtins into a zygomys
// environment. The builtins populate g during evaluation.
//
// Source code must be preprocessed with preprocessSource() before evaluation so
// that :keyword tokens are converted to recognizable string literals.
// Kebab-case forms are registered under their underscore names.
func registerBuiltins(env *zygo.Zlisp, g *graph.Graph) {
	b := &builder{g: g}

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, axis := range []string{"x", "y", "z"} {
			f, err := toFloat64(args[i])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %s: %w", axis, err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
	})

	// (load "part.obj" :reverse true)
	env.AddFunction("load", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("load requires a file path")
		}
		path, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("load: path: %w", err)
		}
		d := graph.LoadData{Path: path}
		if err := pa.setBool("load", "reverse", &d.Reverse); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("load", graph.NodeLoad, d), nil
	})

	// (sphere :radius 1 :phi 16 :theta 24 :center (vec3 0 0 0))
	env.AddFunction("sphere", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := graph.GenerateData{Generator: graph.GenSphere, Radius: 1, Phi: 16, Theta: 24}
		if err := first(
			pa.setFloat("sphere", "radius", &d.Radius),
			pa.setInt("sphere", "phi", &d.Phi),
			pa.setInt("sphere", "theta", &d.Theta),
			pa.setVec("sphere", "center", &d.Center),
		); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("sphere", graph.NodeGenerate, d), nil
	})

	// (grid-box :size (vec3 1 1 1) :steps 4 :center (vec3 0 0 0))
	env.AddFunction("grid_box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := graph.GenerateData{Generator: graph.GenGridBox, Size: v3.Vec{X: 1, Y: 1, Z: 1}, Steps: 4}
		if err := first(
			pa.setVec("grid-box", "size", &d.Size),
			pa.setInt("grid-box", "steps", &d.Steps),
			pa.setVec("grid-box", "center", &d.Center),
		); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("grid-box", graph.NodeGenerate, d), nil
	})

	// (box :size (vec3 1 1 1) :center (vec3 0 0 0))
	env.AddFunction("box", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		d := graph.GenerateData{Generator: graph.GenMinimalBox, Size: v3.Vec{X: 1, Y: 1, Z: 1}}
		if err := first(
			pa.setVec("box", "size", &d.Size),
			pa.setVec("box", "center", &d.Center),
		); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("box", graph.NodeGenerate, d), nil
	})

	// (sdf-box :size (vec3 1 2 3) :cells 64)
	// (sdf-cylinder :height 2 :radius 0.5)
	// (sdf-sphere :radius 1)
	solid := func(shape graph.SolidShape) builtin {
		form := shape.String()
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			d := graph.SolidData{Shape: shape, Size: v3.Vec{X: 1, Y: 1, Z: 1}, Height: 1, Radius: 0.5}
			if err := first(
				pa.setVec(form, "size", &d.Size),
				pa.setFloat(form, "height", &d.Height),
				pa.setFloat(form, "radius", &d.Radius),
				pa.setInt(form, "cells", &d.Cells),
			); err != nil {
				return zygo.SexpNull, err
			}
			return b.add(form, graph.NodeSolid, d), nil
		}
	}
	env.AddFunction("sdf_box", solid(graph.ShapeBox))
	env.AddFunction("sdf_cylinder", solid(graph.ShapeCylinder))
	env.AddFunction("sdf_sphere", solid(graph.ShapeSphere))

	// (translate m (vec3 1 0 0))
	// (rotate m (vec3 0 0 90))
	// (scale m 2)
	transform := func(form string) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			if len(args) != 2 {
				return zygo.SexpNull, fmt.Errorf("%s requires a mesh and an amount", form)
			}
			ref, err := toNodeRef(args[0])
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
			}
			var d graph.TransformData
			switch form {
			case "scale":
				s, err := toFloat64(args[1])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("scale: factor: %w", err)
				}
				d.Scale = s
			default:
				vec, err := toVec3(args[1])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: %w", form, err)
				}
				if form == "translate" {
					d.Translation = &vec
				} else {
					d.Rotation = &vec
				}
			}
			return b.add(form, graph.NodeTransform, d, ref), nil
		}
	}
	env.AddFunction("translate", transform("translate"))
	env.AddFunction("rotate", transform("rotate"))
	env.AddFunction("scale", transform("scale"))

	// (union a b), (difference a b), (intersect a b)
	// Two SDF solids combine in the kernel; anything else is a mesh boolean.
	combine := func(op graph.BooleanOp, shape graph.SolidShape) builtin {
		form := op.String()
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			a, c, err := binary(form, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			if g.IsSolid(a.id) && g.IsSolid(c.id) {
				return b.add(shape.String(), graph.NodeSolid, graph.SolidData{Shape: shape}, a, c), nil
			}
			return b.add(form, graph.NodeBoolean, graph.BooleanData{Op: op}, a, c), nil
		}
	}
	env.AddFunction("union", combine(graph.BoolUnion, graph.ShapeUnion))
	env.AddFunction("difference", combine(graph.BoolDifference, graph.ShapeDifference))
	env.AddFunction("intersect", combine(graph.BoolIntersect, graph.ShapeIntersection))

	// (solidify m :voxels 64 :extend 2 :threshold 0.5 :search-steps 5)
	env.AddFunction("solidify", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ref, err := unary("solidify", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		var d graph.SolidifyData
		if err := first(
			pa.setInt("solidify", "voxels", &d.Voxels),
			pa.optFloat("solidify", "extend", &d.ExtendBounds),
			pa.optFloat("solidify", "threshold", &d.WindingThreshold),
			pa.optInt("solidify", "search-steps", &d.SearchSteps),
		); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("solidify", graph.NodeSolidify, d, ref), nil
	})

	// (dilate m :distance 0.1 :voxels 64), likewise erode, close, open
	morphology := func(op string) builtin {
		return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
			pa := parseArgs(args)
			ref, err := unary(op, pa)
			if err != nil {
				return zygo.SexpNull, err
			}
			d := graph.MorphologyData{Op: op}
			if err := first(
				pa.setFloat(op, "distance", &d.Distance),
				pa.setInt(op, "voxels", &d.Voxels),
			); err != nil {
				return zygo.SexpNull, err
			}
			if _, ok := pa.kw["distance"]; !ok && len(pa.positional) > 1 {
				if d.Distance, err = toFloat64(pa.positional[1]); err != nil {
					return zygo.SexpNull, fmt.Errorf("%s: distance: %w", op, err)
				}
			}
			return b.add(op, graph.NodeMorphology, d, ref), nil
		}
	}
	for _, op := range []string{"dilate", "erode", "close", "open"} {
		env.AddFunction(op, morphology(op))
	}

	// (simplify m :triangles 5000 :preserve-boundary true)
	env.AddFunction("simplify", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ref, err := unary("simplify", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		d := graph.SimplifyData{Triangles: 5000, PreserveBoundary: true}
		if err := first(
			pa.setInt("simplify", "triangles", &d.Triangles),
			pa.setBool("simplify", "preserve-boundary", &d.PreserveBoundary),
		); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("simplify", graph.NodeSimplify, d, ref), nil
	})

	// (remesh m :edge-length 0.05 :passes 10)
	env.AddFunction("remesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ref, err := unary("remesh", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		var d graph.RemeshData
		if err := first(
			pa.setFloat("remesh", "edge-length", &d.EdgeLength),
			pa.setInt("remesh", "passes", &d.Passes),
		); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("remesh", graph.NodeRemesh, d, ref), nil
	})

	// (smooth m :iterations 1 :smoothness 100)
	env.AddFunction("smooth", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ref, err := unary("smooth", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		var d graph.SmoothData
		if err := first(
			pa.setInt("smooth", "iterations", &d.Iterations),
			pa.setFloat("smooth", "smoothness", &d.Smoothness),
		); err != nil {
			return zygo.SexpNull, err
		}
		return b.add("smooth", graph.NodeSmooth, d, ref), nil
	})

	// (fill-holes m :method :minimum-area)
	env.AddFunction("fill_holes", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		ref, err := unary("fill-holes", pa)
		if err != nil {
			return zygo.SexpNull, err
		}
		var d graph.FillHolesData
		if v, ok := pa.kw["method"]; ok {
			if d.Method, err = toKeywordString(v); err != nil {
				return zygo.SexpNull, fmt.Errorf("fill-holes: method: %w", err)
			}
		}
		return b.add("fill-holes", graph.NodeFillHoles, d, ref), nil
	})

	// (normals m)
	env.AddFunction("normals", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		ref, err := unary("normals", parseArgs(args))
		if err != nil {
			return zygo.SexpNull, err
		}
		return b.add("normals", graph.NodeNormals, graph.NormalsData{}, ref), nil
	})

	// (defmesh "name" expr)
	env.AddFunction("defmesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 2 {
			return zygo.SexpNull, fmt.Errorf("defmesh requires a name and a body expression")
		}
		meshName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh: name: %w", err)
		}
		ref, err := toNodeRef(args[1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh: body: %w", err)
		}
		if err := g.SetName(ref.id, meshName); err != nil {
			return zygo.SexpNull, fmt.Errorf("defmesh: %w", err)
		}
		g.AddRoot(ref.id)
		return &sexpNodeRef{id: ref.id, kind: ref.kind, name: meshName}, nil
	})

	// (mesh "name")
	env.AddFunction("mesh", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 1 {
			return zygo.SexpNull, fmt.Errorf("mesh requires a name argument")
		}
		meshName, err := toString(args[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("mesh: name: %w", err)
		}
		n := g.Lookup(meshName)
		if n == nil {
			return zygo.SexpNull, fmt.Errorf("mesh: no mesh named %q", meshName)
		}
		return &sexpNodeRef{id: n.ID, kind: n.Kind, name: meshName}, nil
	})

	// (export a b ... "out.obj")
	env.AddFunction("export", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) < 2 {
			return zygo.SexpNull, fmt.Errorf("export requires at least one mesh and a file path")
		}
		path, err := toString(args[len(args)-1])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("export: path: %w", err)
		}
		var inputs []*sexpNodeRef
		for i, a := range args[:len(args)-1] {
			ref, err := toNodeRef(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("export: mesh %d: %w", i, err)
			}
			inputs = append(inputs, ref)
		}
		ref := b.add("export", graph.NodeExport, graph.ExportData{Path: path}, inputs...)
		g.AddRoot(ref.id)
		return ref, nil
	})
}
