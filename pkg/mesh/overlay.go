package mesh

import (
	"fmt"

	v2 "github.com/deadsy/sdfx/vec/v2"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// UV is a texture coordinate.
type UV = v2.Vec

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Overlay stores per-corner attribute elements for a mesh. Each triangle
// is either fully set (three valid element IDs) or fully unset.
type Overlay[T any] struct {
	mesh     *Mesh
	elements []T
	tris     [][3]int
	flip     func(T) T
}

var unsetCorners = [3]int{InvalidID, InvalidID, InvalidID}

func newOverlay[T any](m *Mesh, flip func(T) T) *Overlay[T] {
	o := &Overlay[T]{mesh: m, flip: flip}
	o.grow(len(m.triangles))
	return o
}

func (o *Overlay[T]) grow(n int) {
	for len(o.tris) < n {
		o.tris = append(o.tris, unsetCorners)
	}
}

func (o *Overlay[T]) unsetTriangle(tid int) {
	o.tris[tid] = unsetCorners
}

func (o *Overlay[T]) reverseTriangle(tid int) {
	t := o.tris[tid]
	o.tris[tid] = [3]int{t[0], t[2], t[1]}
}

func (o *Overlay[T]) flipElements() {
	if o.flip == nil {
		return
	}
	for i, e := range o.elements {
		o.elements[i] = o.flip(e)
	}
}

func (o *Overlay[T]) clone(m *Mesh) *Overlay[T] {
	c := &Overlay[T]{mesh: m, flip: o.flip}
	c.elements = append([]T(nil), o.elements...)
	c.tris = append([][3]int(nil), o.tris...)
	return c
}

// ElementCount returns the number of elements.
func (o *Overlay[T]) ElementCount() int { return len(o.elements) }

// AppendElement adds an element and returns its ID.
func (o *Overlay[T]) AppendElement(v T) int {
	o.elements = append(o.elements, v)
	return len(o.elements) - 1
}

// Element returns element eid. The ID is not checked.
func (o *Overlay[T]) Element(eid int) T {
	return o.elements[eid]
}

// SetElement overwrites element eid.
func (o *Overlay[T]) SetElement(eid int, v T) error {
	if eid < 0 || eid >= len(o.elements) {
		return fmt.Errorf("mesh: overlay element %d: %w", eid, ErrNotFound)
	}
	o.elements[eid] = v
	return nil
}

// SetTriangle maps the corners of tid to three elements.
func (o *Overlay[T]) SetTriangle(tid int, elems [3]int) error {
	if !o.mesh.IsTriangle(tid) {
		return fmt.Errorf("mesh: overlay triangle %d: %w", tid, ErrInvalidTopology)
	}
	for _, e := range elems {
		if e < 0 || e >= len(o.elements) {
			return fmt.Errorf("mesh: overlay triangle %d: element %d: %w", tid, e, ErrInvalidTopology)
		}
	}
	o.tris[tid] = elems
	return nil
}

// UnsetTriangle clears the corner mapping of tid.
func (o *Overlay[T]) UnsetTriangle(tid int) {
	if tid >= 0 && tid < len(o.tris) {
		o.tris[tid] = unsetCorners
	}
}

// Triangle returns the element IDs of tid's corners and whether they are
// set.
func (o *Overlay[T]) Triangle(tid int) ([3]int, bool) {
	if tid < 0 || tid >= len(o.tris) || o.tris[tid][0] == InvalidID {
		return unsetCorners, false
	}
	return o.tris[tid], true
}

// IsSetTriangle reports whether tid has a corner mapping.
func (o *Overlay[T]) IsSetTriangle(tid int) bool {
	_, ok := o.Triangle(tid)
	return ok
}

// TriangleElements returns the three element values of tid.
func (o *Overlay[T]) TriangleElements(tid int) ([3]T, bool) {
	var out [3]T
	e, ok := o.Triangle(tid)
	if !ok {
		return out, false
	}
	for i := 0; i < 3; i++ {
		out[i] = o.elements[e[i]]
	}
	return out, true
}

// SetCount returns the number of live triangles with a corner mapping.
func (o *Overlay[T]) SetCount() int {
	n := 0
	for tid, live := range o.mesh.triangleLive {
		if live && o.tris[tid][0] != InvalidID {
			n++
		}
	}
	return n
}

// EnableAttributes allocates the normal and UV overlays. Calling it again
// has no effect.
func (m *Mesh) EnableAttributes() {
	if m.normals == nil {
		m.normals = newOverlay(m, func(n v3.Vec) v3.Vec { return n.Neg() })
	}
	if m.uvs == nil {
		m.uvs = newOverlay[UV](m, nil)
	}
}

// EnableVertexColors allocates the color overlay. Calling it again has no
// effect.
func (m *Mesh) EnableVertexColors() {
	if m.colors == nil {
		m.colors = newOverlay[Color](m, nil)
	}
}

// HasAttributes reports whether the normal and UV overlays exist.
func (m *Mesh) HasAttributes() bool { return m.normals != nil && m.uvs != nil }

// HasVertexColors reports whether the color overlay exists.
func (m *Mesh) HasVertexColors() bool { return m.colors != nil }

// DiscardAttributes drops every overlay.
func (m *Mesh) DiscardAttributes() {
	m.normals = nil
	m.uvs = nil
	m.colors = nil
}

// Normals returns the normal overlay, or nil when attributes are disabled.
func (m *Mesh) Normals() *Overlay[v3.Vec] { return m.normals }

// UVs returns the UV overlay, or nil when attributes are disabled.
func (m *Mesh) UVs() *Overlay[UV] { return m.uvs }

// Colors returns the color overlay, or nil when colors are disabled.
func (m *Mesh) Colors() *Overlay[Color] { return m.colors }
