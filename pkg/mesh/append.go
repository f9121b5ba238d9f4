package mesh

import (
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
)

// Transform applies m44 to every vertex and normal. A mirroring transform
// also reverses triangle orientation so that normals stay outward.
func (m *Mesh) Transform(m44 sdf.M44) {
	for vid, live := range m.vertexLive {
		if live {
			m.vertices[vid] = m44.MulPosition(m.vertices[vid])
		}
	}
	if m.normals != nil {
		for i, n := range m.normals.elements {
			m.normals.elements[i] = geom.TransformNormal(m44, n)
		}
	}
	if geom.FlipsOrientation(m44) {
		for tid, live := range m.triangleLive {
			if !live {
				continue
			}
			t := m.triangles[tid]
			m.triangles[tid] = Triangle{t[0], t[2], t[1]}
			for _, o := range m.overlays() {
				o.reverseTriangle(tid)
			}
		}
	}
	m.touch()
}

// Translate moves every vertex by d.
func (m *Mesh) Translate(d v3.Vec) {
	for vid, live := range m.vertexLive {
		if live {
			m.vertices[vid] = m.vertices[vid].Add(d)
		}
	}
	m.touch()
}

// AppendMesh copies the live contents of src into m, placing it with
// m44. Triangle groups of src are shifted past the groups already in m.
// Overlays present in both meshes are carried across. It returns the map
// from src vertex IDs to the new IDs in m.
func (m *Mesh) AppendMesh(src *Mesh, m44 sdf.M44) map[int]int {
	vmap := make(map[int]int, src.vertexCount)
	for vid, live := range src.vertexLive {
		if live {
			vmap[vid] = m.AppendVertex(m44.MulPosition(src.vertices[vid]))
		}
	}
	groupOffset := 0
	if src.groups != nil {
		m.EnableTriangleGroups()
		groupOffset = m.MaxGroupID()
	}
	flip := geom.FlipsOrientation(m44)

	normalMap := appendElements(m.normals, src.normals, func(n v3.Vec) v3.Vec { return geom.TransformNormal(m44, n) })
	uvMap := appendElements(m.uvs, src.uvs, nil)
	colorMap := appendElements(m.colors, src.colors, nil)

	for tid, live := range src.triangleLive {
		if !live {
			continue
		}
		st := src.triangles[tid]
		t := Triangle{vmap[st[0]], vmap[st[1]], vmap[st[2]]}
		if flip {
			t = Triangle{t[0], t[2], t[1]}
		}
		nt := m.addTriangle(t, src.TriangleGroup(tid)+groupOffset)
		copyCorners(m.normals, src.normals, normalMap, tid, nt, flip)
		copyCorners(m.uvs, src.uvs, uvMap, tid, nt, flip)
		copyCorners(m.colors, src.colors, colorMap, tid, nt, flip)
	}
	return vmap
}

// appendElements copies every element of src into dst and returns the
// element ID map. It returns nil when either overlay is missing.
func appendElements[T any](dst, src *Overlay[T], fn func(T) T) []int {
	if dst == nil || src == nil {
		return nil
	}
	emap := make([]int, len(src.elements))
	for i, e := range src.elements {
		if fn != nil {
			e = fn(e)
		}
		emap[i] = dst.AppendElement(e)
	}
	return emap
}

func copyCorners[T any](dst, src *Overlay[T], emap []int, srcTid, dstTid int, flip bool) {
	if emap == nil {
		return
	}
	e, ok := src.Triangle(srcTid)
	if !ok {
		return
	}
	c := [3]int{emap[e[0]], emap[e[1]], emap[e[2]]}
	if flip {
		c = [3]int{c[0], c[2], c[1]}
	}
	dst.tris[dstTid] = c
}
