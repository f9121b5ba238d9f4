// Package mesh provides the indexed triangle mesh used by every operator in
// meshwork. Vertices and triangles live in arenas addressed by stable
// integer IDs; removing an element tombstones its slot and puts the ID on a
// free list. Optional attribute overlays (normals, UVs, colors) store their
// own elements and map each triangle's three corners to element IDs, so
// seams and hard edges do not duplicate topology.
package mesh

import (
	"errors"
	"fmt"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"

	"github.com/chazu/meshwork/pkg/geom"
)

// InvalidID marks an absent vertex, triangle, group or overlay element.
const InvalidID = -1

var (
	// ErrInvalidTopology is returned when an operation references a vertex
	// or triangle that is not live, or would break the mesh structure.
	ErrInvalidTopology = errors.New("mesh: invalid topology")

	// ErrNotFound is returned when an ID does not name a live element.
	ErrNotFound = errors.New("mesh: not found")
)

// Triangle holds the three vertex IDs of a triangle in counter-clockwise
// order.
type Triangle [3]int

// Contains reports whether v is one of the triangle's vertices.
func (t Triangle) Contains(v int) bool {
	return t[0] == v || t[1] == v || t[2] == v
}

// Index returns the corner holding v, or -1.
func (t Triangle) Index(v int) int {
	for i := 0; i < 3; i++ {
		if t[i] == v {
			return i
		}
	}
	return -1
}

// overlayHooks lets the mesh keep every overlay's per-triangle table in
// step with triangle allocation, removal and orientation changes.
type overlayHooks interface {
	grow(n int)
	unsetTriangle(tid int)
	reverseTriangle(tid int)
	flipElements()
}

// Mesh is an indexed triangle mesh with tombstoned vertex and triangle
// slots. The zero value is not usable; call New.
type Mesh struct {
	vertices     []v3.Vec
	vertexLive   []bool
	vertexFree   []int
	vertexTris   [][]int
	vertexCount  int
	triangles    []Triangle
	triangleLive []bool
	triangleFree []int
	triCount     int

	groups []int

	normals *Overlay[v3.Vec]
	uvs     *Overlay[UV]
	colors  *Overlay[Color]

	stamp uint64
}

// New returns an empty mesh with no overlays.
func New() *Mesh {
	return &Mesh{}
}

// ChangeStamp returns a counter that advances on every change to vertex
// positions or topology. Spatial structures record it at build time.
func (m *Mesh) ChangeStamp() uint64 {
	return m.stamp
}

func (m *Mesh) touch() {
	m.stamp++
}

// VertexCount returns the number of live vertices.
func (m *Mesh) VertexCount() int { return m.vertexCount }

// TriangleCount returns the number of live triangles.
func (m *Mesh) TriangleCount() int { return m.triCount }

// MaxVertexID returns one past the largest vertex slot ever allocated.
func (m *Mesh) MaxVertexID() int { return len(m.vertices) }

// MaxTriangleID returns one past the largest triangle slot ever allocated.
func (m *Mesh) MaxTriangleID() int { return len(m.triangles) }

// IsVertex reports whether vid names a live vertex.
func (m *Mesh) IsVertex(vid int) bool {
	return vid >= 0 && vid < len(m.vertices) && m.vertexLive[vid]
}

// IsTriangle reports whether tid names a live triangle.
func (m *Mesh) IsTriangle(tid int) bool {
	return tid >= 0 && tid < len(m.triangles) && m.triangleLive[tid]
}

// IsCompact reports whether the mesh has no tombstoned slots.
func (m *Mesh) IsCompact() bool {
	return m.vertexCount == len(m.vertices) && m.triCount == len(m.triangles)
}

// Vertex returns the position of a live vertex. The ID is not checked.
func (m *Mesh) Vertex(vid int) v3.Vec {
	return m.vertices[vid]
}

// LookupVertex returns the position of vid or ErrNotFound.
func (m *Mesh) LookupVertex(vid int) (v3.Vec, error) {
	if !m.IsVertex(vid) {
		return v3.Vec{}, fmt.Errorf("mesh: vertex %d: %w", vid, ErrNotFound)
	}
	return m.vertices[vid], nil
}

// Triangle returns the vertex IDs of a live triangle. The ID is not checked.
func (m *Mesh) Triangle(tid int) Triangle {
	return m.triangles[tid]
}

// LookupTriangle returns the vertex IDs of tid or ErrNotFound.
func (m *Mesh) LookupTriangle(tid int) (Triangle, error) {
	if !m.IsTriangle(tid) {
		return Triangle{}, fmt.Errorf("mesh: triangle %d: %w", tid, ErrNotFound)
	}
	return m.triangles[tid], nil
}

// TriangleVertices returns the three corner positions of tid.
func (m *Mesh) TriangleVertices(tid int) (v3.Vec, v3.Vec, v3.Vec) {
	t := m.triangles[tid]
	return m.vertices[t[0]], m.vertices[t[1]], m.vertices[t[2]]
}

// VertexIDs returns the live vertex IDs in increasing order.
func (m *Mesh) VertexIDs() []int {
	ids := make([]int, 0, m.vertexCount)
	for vid, live := range m.vertexLive {
		if live {
			ids = append(ids, vid)
		}
	}
	return ids
}

// TriangleIDs returns the live triangle IDs in increasing order.
func (m *Mesh) TriangleIDs() []int {
	ids := make([]int, 0, m.triCount)
	for tid, live := range m.triangleLive {
		if live {
			ids = append(ids, tid)
		}
	}
	return ids
}

// AppendVertex adds a vertex and returns its ID. Tombstoned slots are
// reused before the arena grows.
func (m *Mesh) AppendVertex(p v3.Vec) int {
	var vid int
	if n := len(m.vertexFree); n > 0 {
		vid = m.vertexFree[n-1]
		m.vertexFree = m.vertexFree[:n-1]
		m.vertices[vid] = p
		m.vertexLive[vid] = true
		m.vertexTris[vid] = m.vertexTris[vid][:0]
	} else {
		vid = len(m.vertices)
		m.vertices = append(m.vertices, p)
		m.vertexLive = append(m.vertexLive, true)
		m.vertexTris = append(m.vertexTris, nil)
	}
	m.vertexCount++
	m.touch()
	return vid
}

// SetVertex moves a live vertex.
func (m *Mesh) SetVertex(vid int, p v3.Vec) error {
	if !m.IsVertex(vid) {
		return fmt.Errorf("mesh: set vertex %d: %w", vid, ErrNotFound)
	}
	m.vertices[vid] = p
	m.touch()
	return nil
}

// AppendTriangle adds triangle (a, b, c). It fails with ErrInvalidTopology
// if a vertex is not live, the triangle is degenerate, or one of its edges
// already has two triangles.
func (m *Mesh) AppendTriangle(a, b, c int) (int, error) {
	return m.AppendTriangleGroup(a, b, c, 0)
}

// AppendTriangleGroup is AppendTriangle with an explicit triangle group.
// The group is ignored when triangle groups are not enabled.
func (m *Mesh) AppendTriangleGroup(a, b, c, group int) (int, error) {
	tri := Triangle{a, b, c}
	for _, v := range tri {
		if !m.IsVertex(v) {
			return InvalidID, fmt.Errorf("mesh: append triangle (%d,%d,%d): vertex %d not live: %w", a, b, c, v, ErrInvalidTopology)
		}
	}
	if a == b || b == c || c == a {
		return InvalidID, fmt.Errorf("mesh: append triangle (%d,%d,%d): repeated vertex: %w", a, b, c, ErrInvalidTopology)
	}
	for i := 0; i < 3; i++ {
		if len(m.EdgeTriangles(tri[i], tri[(i+1)%3])) >= 2 {
			return InvalidID, fmt.Errorf("mesh: append triangle (%d,%d,%d): non-manifold edge (%d,%d): %w",
				a, b, c, tri[i], tri[(i+1)%3], ErrInvalidTopology)
		}
	}
	return m.addTriangle(tri, group), nil
}

// addTriangle allocates a triangle slot without validation.
func (m *Mesh) addTriangle(tri Triangle, group int) int {
	var tid int
	if n := len(m.triangleFree); n > 0 {
		tid = m.triangleFree[n-1]
		m.triangleFree = m.triangleFree[:n-1]
		m.triangles[tid] = tri
		m.triangleLive[tid] = true
	} else {
		tid = len(m.triangles)
		m.triangles = append(m.triangles, tri)
		m.triangleLive = append(m.triangleLive, true)
		if m.groups != nil {
			m.groups = append(m.groups, 0)
		}
		for _, o := range m.overlays() {
			o.grow(len(m.triangles))
		}
	}
	if m.groups != nil {
		m.groups[tid] = group
	}
	for _, o := range m.overlays() {
		o.unsetTriangle(tid)
	}
	for _, v := range tri {
		m.vertexTris[v] = append(m.vertexTris[v], tid)
	}
	m.triCount++
	m.touch()
	return tid
}

// replaceTriangle rewrites the vertices of a live triangle in place,
// keeping its ID and group and clearing its overlay entries.
func (m *Mesh) replaceTriangle(tid int, tri Triangle) {
	old := m.triangles[tid]
	for _, v := range old {
		m.detach(v, tid)
	}
	m.triangles[tid] = tri
	for _, v := range tri {
		m.vertexTris[v] = append(m.vertexTris[v], tid)
	}
	for _, o := range m.overlays() {
		o.unsetTriangle(tid)
	}
	m.touch()
}

func (m *Mesh) detach(vid, tid int) {
	list := m.vertexTris[vid]
	for i, t := range list {
		if t == tid {
			list[i] = list[len(list)-1]
			m.vertexTris[vid] = list[:len(list)-1]
			return
		}
	}
}

// RemoveTriangle tombstones a live triangle. When removeIsolated is set,
// vertices left without triangles are removed as well.
func (m *Mesh) RemoveTriangle(tid int, removeIsolated bool) error {
	if !m.IsTriangle(tid) {
		return fmt.Errorf("mesh: remove triangle %d: %w", tid, ErrNotFound)
	}
	tri := m.triangles[tid]
	m.removeTriangle(tid)
	if removeIsolated {
		for _, v := range tri {
			if len(m.vertexTris[v]) == 0 {
				m.removeVertex(v)
			}
		}
	}
	return nil
}

func (m *Mesh) removeTriangle(tid int) {
	for _, v := range m.triangles[tid] {
		m.detach(v, tid)
	}
	for _, o := range m.overlays() {
		o.unsetTriangle(tid)
	}
	m.triangleLive[tid] = false
	m.triangleFree = append(m.triangleFree, tid)
	m.triCount--
	m.touch()
}

// RemoveVertex tombstones a live vertex together with every triangle that
// references it.
func (m *Mesh) RemoveVertex(vid int) error {
	if !m.IsVertex(vid) {
		return fmt.Errorf("mesh: remove vertex %d: %w", vid, ErrNotFound)
	}
	tris := append([]int(nil), m.vertexTris[vid]...)
	for _, tid := range tris {
		m.removeTriangle(tid)
	}
	m.removeVertex(vid)
	return nil
}

func (m *Mesh) removeVertex(vid int) {
	m.vertexLive[vid] = false
	m.vertexTris[vid] = m.vertexTris[vid][:0]
	m.vertexFree = append(m.vertexFree, vid)
	m.vertexCount--
	m.touch()
}

// RemoveIsolatedVertices removes every live vertex with no triangles and
// returns how many were removed.
func (m *Mesh) RemoveIsolatedVertices() int {
	n := 0
	for vid, live := range m.vertexLive {
		if live && len(m.vertexTris[vid]) == 0 {
			m.removeVertex(vid)
			n++
		}
	}
	return n
}

// EnableTriangleGroups allocates triangle group storage. Existing
// triangles start in group 0. Calling it again has no effect.
func (m *Mesh) EnableTriangleGroups() {
	if m.groups != nil {
		return
	}
	m.groups = make([]int, len(m.triangles))
}

// HasTriangleGroups reports whether triangle groups are enabled.
func (m *Mesh) HasTriangleGroups() bool { return m.groups != nil }

// DiscardTriangleGroups drops triangle group storage.
func (m *Mesh) DiscardTriangleGroups() { m.groups = nil }

// TriangleGroup returns the group of tid, or 0 when groups are disabled.
func (m *Mesh) TriangleGroup(tid int) int {
	if m.groups == nil || !m.IsTriangle(tid) {
		return 0
	}
	return m.groups[tid]
}

// SetTriangleGroup assigns tid to group. Groups are enabled on demand.
func (m *Mesh) SetTriangleGroup(tid, group int) error {
	if !m.IsTriangle(tid) {
		return fmt.Errorf("mesh: set triangle group %d: %w", tid, ErrNotFound)
	}
	m.EnableTriangleGroups()
	m.groups[tid] = group
	return nil
}

// MaxGroupID returns one past the largest group in use, or 0.
func (m *Mesh) MaxGroupID() int {
	maxGroup := -1
	if m.groups == nil {
		return 0
	}
	for tid, live := range m.triangleLive {
		if live && m.groups[tid] > maxGroup {
			maxGroup = m.groups[tid]
		}
	}
	return maxGroup + 1
}

// GroupIDs returns the distinct groups of live triangles in first-seen
// order.
func (m *Mesh) GroupIDs() []int {
	seen := make(map[int]bool)
	var ids []int
	for tid, live := range m.triangleLive {
		if !live {
			continue
		}
		g := m.TriangleGroup(tid)
		if !seen[g] {
			seen[g] = true
			ids = append(ids, g)
		}
	}
	return ids
}

// ReverseOrientation flips the winding of every triangle and overlay
// triangle and negates the normal overlay's elements.
func (m *Mesh) ReverseOrientation() {
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
	if m.normals != nil {
		m.normals.flipElements()
	}
	m.touch()
}

// Bounds returns the bounding box of the live vertices. An empty mesh
// returns an inverted box.
func (m *Mesh) Bounds() sdf.Box3 {
	b := geom.EmptyBox()
	for vid, live := range m.vertexLive {
		if live {
			b = geom.Include(b, m.vertices[vid])
		}
	}
	return b
}

// Copy returns a deep copy that preserves every ID, free slot and overlay.
func (m *Mesh) Copy() *Mesh {
	c := &Mesh{
		vertices:     append([]v3.Vec(nil), m.vertices...),
		vertexLive:   append([]bool(nil), m.vertexLive...),
		vertexFree:   append([]int(nil), m.vertexFree...),
		vertexTris:   make([][]int, len(m.vertexTris)),
		vertexCount:  m.vertexCount,
		triangles:    append([]Triangle(nil), m.triangles...),
		triangleLive: append([]bool(nil), m.triangleLive...),
		triangleFree: append([]int(nil), m.triangleFree...),
		triCount:     m.triCount,
	}
	for i, list := range m.vertexTris {
		c.vertexTris[i] = append([]int(nil), list...)
	}
	if m.groups != nil {
		c.groups = append([]int(nil), m.groups...)
	}
	if m.normals != nil {
		c.normals = m.normals.clone(c)
	}
	if m.uvs != nil {
		c.uvs = m.uvs.clone(c)
	}
	if m.colors != nil {
		c.colors = m.colors.clone(c)
	}
	return c
}

func (m *Mesh) overlays() []overlayHooks {
	var hooks []overlayHooks
	if m.normals != nil {
		hooks = append(hooks, m.normals)
	}
	if m.uvs != nil {
		hooks = append(hooks, m.uvs)
	}
	if m.colors != nil {
		hooks = append(hooks, m.colors)
	}
	return hooks
}
