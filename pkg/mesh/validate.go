package mesh

import "fmt"

// Validate checks the structural invariants of the mesh: live triangles
// reference live, distinct vertices; adjacency lists match the triangle
// table; overlay corner mappings are all-or-nothing and in range.
func (m *Mesh) Validate() error {
	count := 0
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		count++
		t := m.triangles[tid]
		for _, v := range t {
			if !m.IsVertex(v) {
				return fmt.Errorf("mesh: triangle %d references vertex %d: %w", tid, v, ErrInvalidTopology)
			}
			if !containsInt(m.vertexTris[v], tid) {
				return fmt.Errorf("mesh: vertex %d missing triangle %d in adjacency: %w", v, tid, ErrInvalidTopology)
			}
		}
		if t[0] == t[1] || t[1] == t[2] || t[2] == t[0] {
			return fmt.Errorf("mesh: triangle %d is degenerate: %w", tid, ErrInvalidTopology)
		}
	}
	if count != m.triCount {
		return fmt.Errorf("mesh: triangle count %d, found %d live: %w", m.triCount, count, ErrInvalidTopology)
	}
	vcount := 0
	for vid, live := range m.vertexLive {
		if !live {
			if len(m.vertexTris[vid]) != 0 {
				return fmt.Errorf("mesh: dead vertex %d has triangles: %w", vid, ErrInvalidTopology)
			}
			continue
		}
		vcount++
		for _, tid := range m.vertexTris[vid] {
			if !m.IsTriangle(tid) || !m.triangles[tid].Contains(vid) {
				return fmt.Errorf("mesh: vertex %d lists stale triangle %d: %w", vid, tid, ErrInvalidTopology)
			}
		}
	}
	if vcount != m.vertexCount {
		return fmt.Errorf("mesh: vertex count %d, found %d live: %w", m.vertexCount, vcount, ErrInvalidTopology)
	}
	if err := validateOverlay(m, m.normals, "normal"); err != nil {
		return err
	}
	if err := validateOverlay(m, m.uvs, "uv"); err != nil {
		return err
	}
	return validateOverlay(m, m.colors, "color")
}

func validateOverlay[T any](m *Mesh, o *Overlay[T], name string) error {
	if o == nil {
		return nil
	}
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		e := o.tris[tid]
		set := 0
		for _, id := range e {
			if id != InvalidID {
				set++
				if id < 0 || id >= len(o.elements) {
					return fmt.Errorf("mesh: %s overlay triangle %d element %d out of range: %w", name, tid, id, ErrInvalidTopology)
				}
			}
		}
		if set != 0 && set != 3 {
			return fmt.Errorf("mesh: %s overlay triangle %d partially set: %w", name, tid, ErrInvalidTopology)
		}
	}
	return nil
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
