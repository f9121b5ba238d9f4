// Package objio reads and writes Wavefront OBJ meshes and exports STL.
// Normals and texture coordinates map to the mesh overlays, group lines
// to triangle groups.
package objio

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/mesh"
)

// ErrIO is returned for any failure to open, parse or write a file.
var ErrIO = errors.New("objio: i/o error")

// ReadOptions control OBJ import.
type ReadOptions struct {
	// ReverseOrientation flips every face, for files written with
	// clockwise winding.
	ReverseOrientation bool
}

type corner struct {
	v, vt, vn int
}

type reader struct {
	m *mesh.Mesh

	positions int
	uvs       []mesh.UV
	normals   []v3.Vec

	groups    map[string]int
	nextGroup int
	group     int
	grouped   bool

	faces []face
}

type face struct {
	corners []corner
	group   int
	line    int
}

// Read parses an OBJ stream into a new mesh. Polygons are triangulated
// as fans.
func Read(r io.Reader, opts ReadOptions) (*mesh.Mesh, error) {
	rd := &reader{m: mesh.New(), groups: make(map[string]int)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		if err := rd.parseLine(sc.Text(), line); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("objio: line %d: %v: %w", line, err, ErrIO)
	}
	if err := rd.build(); err != nil {
		return nil, err
	}
	if opts.ReverseOrientation {
		rd.m.ReverseOrientation()
	}
	return rd.m, nil
}

// ReadFile reads the OBJ file at path.
func ReadFile(path string, opts ReadOptions) (*mesh.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("objio: %v: %w", err, ErrIO)
	}
	defer f.Close()
	m, err := Read(f, opts)
	if err != nil {
		return nil, fmt.Errorf("objio: %s: %w", path, err)
	}
	return m, nil
}

// Load reads the file at path and appends its contents to dst. On
// failure dst is left unmodified.
func Load(path string, dst *mesh.Mesh, opts ReadOptions) error {
	src, err := ReadFile(path, opts)
	if err != nil {
		return err
	}
	if src.HasAttributes() {
		dst.EnableAttributes()
	}
	dst.AppendMesh(src, geom.Identity())
	return nil
}

func parseFloats(fields []string, n, line int) ([]float64, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("objio: line %d: expected %d values, got %d: %w", line, n, len(fields), ErrIO)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return nil, fmt.Errorf("objio: line %d: %v: %w", line, err, ErrIO)
		}
		out[i] = f
	}
	return out, nil
}

func (rd *reader) parseLine(text string, line int) error {
	if i := strings.IndexByte(text, '#'); i >= 0 {
		text = text[:i]
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "v":
		f, err := parseFloats(fields[1:], 3, line)
		if err != nil {
			return err
		}
		rd.m.AppendVertex(v3.Vec{X: f[0], Y: f[1], Z: f[2]})
		rd.positions++
	case "vt":
		f, err := parseFloats(fields[1:], 2, line)
		if err != nil {
			return err
		}
		rd.uvs = append(rd.uvs, mesh.UV{X: f[0], Y: f[1]})
	case "vn":
		f, err := parseFloats(fields[1:], 3, line)
		if err != nil {
			return err
		}
		rd.normals = append(rd.normals, v3.Vec{X: f[0], Y: f[1], Z: f[2]})
	case "f":
		return rd.parseFace(fields[1:], line)
	case "g", "o":
		name := "default"
		if len(fields) > 1 {
			name = strings.Join(fields[1:], " ")
		}
		rd.setGroup(name)
	}
	// s, usemtl, mtllib and unknown statements are ignored
	return nil
}

func (rd *reader) setGroup(name string) {
	rd.grouped = true
	if id, ok := rd.groups[name]; ok {
		rd.group = id
		return
	}
	id, err := strconv.Atoi(name)
	if err != nil || id < 0 {
		id = rd.nextGroup
	}
	for _, used := range rd.groups {
		if used == id {
			id = rd.nextGroup
			break
		}
	}
	rd.groups[name] = id
	if id >= rd.nextGroup {
		rd.nextGroup = id + 1
	}
	rd.group = id
}

// resolve turns a 1-based or negative relative OBJ index into a 0-based
// one.
func resolve(s string, count, line int) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("objio: line %d: bad index %q: %w", line, s, ErrIO)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	}
	return 0, fmt.Errorf("objio: line %d: index %d out of range: %w", line, i, ErrIO)
}

func (rd *reader) parseFace(tokens []string, line int) error {
	if len(tokens) < 3 {
		return fmt.Errorf("objio: line %d: face with %d corners: %w", line, len(tokens), ErrIO)
	}
	f := face{group: rd.group, line: line}
	for _, tok := range tokens {
		parts := strings.Split(tok, "/")
		if len(parts) > 3 {
			return fmt.Errorf("objio: line %d: bad corner %q: %w", line, tok, ErrIO)
		}
		c := corner{vt: -1, vn: -1}
		var err error
		if c.v, err = resolve(parts[0], rd.positions, line); err != nil {
			return err
		}
		if len(parts) > 1 && parts[1] != "" {
			if c.vt, err = resolve(parts[1], len(rd.uvs), line); err != nil {
				return err
			}
		}
		if len(parts) > 2 && parts[2] != "" {
			if c.vn, err = resolve(parts[2], len(rd.normals), line); err != nil {
				return err
			}
		}
		f.corners = append(f.corners, c)
	}
	rd.faces = append(rd.faces, f)
	return nil
}

func (rd *reader) build() error {
	m := rd.m
	if len(rd.uvs) > 0 || len(rd.normals) > 0 {
		m.EnableAttributes()
		for _, uv := range rd.uvs {
			m.UVs().AppendElement(uv)
		}
		for _, n := range rd.normals {
			m.Normals().AppendElement(n)
		}
	}
	if rd.grouped {
		m.EnableTriangleGroups()
	}
	for _, f := range rd.faces {
		for i := 1; i+1 < len(f.corners); i++ {
			tri := [3]corner{f.corners[0], f.corners[i], f.corners[i+1]}
			if err := rd.addTriangle(tri, f.group); err != nil {
				return fmt.Errorf("objio: line %d: %w", f.line, err)
			}
		}
	}
	return nil
}

func (rd *reader) addTriangle(tri [3]corner, group int) error {
	m := rd.m
	a, b, c := tri[0].v, tri[1].v, tri[2].v
	if a == b || b == c || c == a {
		// degenerate faces carry no area
		return nil
	}
	tid, err := m.AppendTriangleGroup(a, b, c, group)
	if errors.Is(err, mesh.ErrInvalidTopology) {
		// an edge already has two faces: give this one its own vertices
		na := m.AppendVertex(m.Vertex(a))
		nb := m.AppendVertex(m.Vertex(b))
		nc := m.AppendVertex(m.Vertex(c))
		tid, err = m.AppendTriangleGroup(na, nb, nc, group)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrIO)
	}
	if tri[0].vt >= 0 && tri[1].vt >= 0 && tri[2].vt >= 0 {
		if err := m.UVs().SetTriangle(tid, [3]int{tri[0].vt, tri[1].vt, tri[2].vt}); err != nil {
			return fmt.Errorf("%v: %w", err, ErrIO)
		}
	}
	if tri[0].vn >= 0 && tri[1].vn >= 0 && tri[2].vn >= 0 {
		if err := m.Normals().SetTriangle(tid, [3]int{tri[0].vn, tri[1].vn, tri[2].vn}); err != nil {
			return fmt.Errorf("%v: %w", err, ErrIO)
		}
	}
	return nil
}
