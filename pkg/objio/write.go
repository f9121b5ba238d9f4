package objio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"

	"github.com/chazu/meshwork/pkg/mesh"
)

// WriteOptions control OBJ export.
type WriteOptions struct {
	// ReverseOrientation writes faces clockwise and negates normals.
	ReverseOrientation bool
}

// offsets tracks the running 1-based index bases when several meshes
// share one file.
type offsets struct {
	v, vt, vn int
}

// Write writes m as OBJ to w.
func Write(w io.Writer, m *mesh.Mesh, opts WriteOptions) error {
	return WriteMeshes(w, []*mesh.Mesh{m}, opts)
}

// WriteMeshes writes several meshes into a single OBJ stream. Indices of
// later meshes continue after the elements of earlier ones.
func WriteMeshes(w io.Writer, meshes []*mesh.Mesh, opts WriteOptions) error {
	bw := bufio.NewWriter(w)
	var off offsets
	for _, m := range meshes {
		if m == nil {
			continue
		}
		off = writeMesh(bw, m, off, opts)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("objio: %v: %w", err, ErrIO)
	}
	return nil
}

// WriteFile writes m to the OBJ file at path.
func WriteFile(path string, m *mesh.Mesh, opts WriteOptions) error {
	return WriteMeshesFile(path, []*mesh.Mesh{m}, opts)
}

// WriteMeshesFile writes meshes to the OBJ file at path.
func WriteMeshesFile(path string, meshes []*mesh.Mesh, opts WriteOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("objio: %v: %w", err, ErrIO)
	}
	if err := WriteMeshes(f, meshes, opts); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("objio: %v: %w", err, ErrIO)
	}
	return nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeMesh(bw *bufio.Writer, m *mesh.Mesh, off offsets, opts WriteOptions) offsets {
	index := make(map[int]int, m.VertexCount())
	for i, vid := range m.VertexIDs() {
		p := m.Vertex(vid)
		index[vid] = off.v + i + 1
		fmt.Fprintf(bw, "v %s %s %s\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	}

	var uvs, normals int
	if m.HasAttributes() {
		uvs = m.UVs().ElementCount()
		for i := 0; i < uvs; i++ {
			uv := m.UVs().Element(i)
			fmt.Fprintf(bw, "vt %s %s\n", formatFloat(uv.X), formatFloat(uv.Y))
		}
		normals = m.Normals().ElementCount()
		for i := 0; i < normals; i++ {
			n := m.Normals().Element(i)
			if opts.ReverseOrientation {
				n = n.Neg()
			}
			fmt.Fprintf(bw, "vn %s %s %s\n", formatFloat(n.X), formatFloat(n.Y), formatFloat(n.Z))
		}
	}

	tids := m.TriangleIDs()
	grouped := m.HasTriangleGroups() && len(m.GroupIDs()) > 1
	if grouped {
		sort.SliceStable(tids, func(i, j int) bool {
			return m.TriangleGroup(tids[i]) < m.TriangleGroup(tids[j])
		})
	}

	order := [3]int{0, 1, 2}
	if opts.ReverseOrientation {
		order = [3]int{0, 2, 1}
	}
	group := mesh.InvalidID
	for _, tid := range tids {
		if grouped {
			if g := m.TriangleGroup(tid); g != group {
				group = g
				fmt.Fprintf(bw, "g %d\n", g)
			}
		}
		tri := m.Triangle(tid)
		var uvTri, nTri [3]int
		var hasUV, hasN bool
		if m.HasAttributes() {
			uvTri, hasUV = m.UVs().Triangle(tid)
			nTri, hasN = m.Normals().Triangle(tid)
		}
		bw.WriteString("f")
		for _, k := range order {
			v := index[tri[k]]
			switch {
			case hasUV && hasN:
				fmt.Fprintf(bw, " %d/%d/%d", v, off.vt+uvTri[k]+1, off.vn+nTri[k]+1)
			case hasUV:
				fmt.Fprintf(bw, " %d/%d", v, off.vt+uvTri[k]+1)
			case hasN:
				fmt.Fprintf(bw, " %d//%d", v, off.vn+nTri[k]+1)
			default:
				fmt.Fprintf(bw, " %d", v)
			}
		}
		bw.WriteString("\n")
	}

	return offsets{v: off.v + m.VertexCount(), vt: off.vt + uvs, vn: off.vn + normals}
}

// Triangles returns the faces of m as an sdfx triangle soup.
func Triangles(m *mesh.Mesh) []*sdf.Triangle3 {
	out := make([]*sdf.Triangle3, 0, m.TriangleCount())
	for _, tid := range m.TriangleIDs() {
		a, b, c := m.TriangleVertices(tid)
		out = append(out, &sdf.Triangle3{a, b, c})
	}
	return out
}

// WriteSTL writes m as a binary STL file.
func WriteSTL(path string, m *mesh.Mesh) error {
	if err := render.SaveSTL(path, Triangles(m)); err != nil {
		return fmt.Errorf("objio: %v: %w", err, ErrIO)
	}
	return nil
}
