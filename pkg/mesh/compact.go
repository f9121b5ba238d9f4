package mesh

// CompactOptions selects what CompactCopy carries into the dense copy.
type CompactOptions struct {
	Attributes bool // normal, UV and color overlays
	Groups     bool // triangle groups
}

// KeepAll carries overlays and triangle groups.
var KeepAll = CompactOptions{Attributes: true, Groups: true}

// CompactMap records where each source ID landed in a compacted copy.
// Entries for dead source slots hold InvalidID.
type CompactMap struct {
	Vertices  []int
	Triangles []int
}

// CompactCopy returns a copy of src with contiguous vertex, triangle and
// overlay element IDs. Vertices and triangles keep their relative order;
// overlay elements are renumbered in order of first reference and
// unreferenced elements are dropped.
func CompactCopy(src *Mesh, opts CompactOptions) (*Mesh, CompactMap) {
	dst := New()
	cm := CompactMap{
		Vertices:  make([]int, len(src.vertices)),
		Triangles: make([]int, len(src.triangles)),
	}
	for vid, live := range src.vertexLive {
		cm.Vertices[vid] = InvalidID
		if live {
			cm.Vertices[vid] = dst.AppendVertex(src.vertices[vid])
		}
	}
	if opts.Groups && src.groups != nil {
		dst.EnableTriangleGroups()
	}
	if opts.Attributes {
		if src.normals != nil || src.uvs != nil {
			dst.EnableAttributes()
		}
		if src.colors != nil {
			dst.EnableVertexColors()
		}
	}
	for tid, live := range src.triangleLive {
		cm.Triangles[tid] = InvalidID
		if !live {
			continue
		}
		t := src.triangles[tid]
		cm.Triangles[tid] = dst.addTriangle(Triangle{cm.Vertices[t[0]], cm.Vertices[t[1]], cm.Vertices[t[2]]}, src.TriangleGroup(tid))
	}
	if opts.Attributes {
		compactOverlay(dst.normals, src.normals, cm.Triangles)
		compactOverlay(dst.uvs, src.uvs, cm.Triangles)
		compactOverlay(dst.colors, src.colors, cm.Triangles)
	}
	return dst, cm
}

func compactOverlay[T any](dst, src *Overlay[T], triMap []int) {
	if dst == nil || src == nil {
		return
	}
	emap := make(map[int]int)
	for tid, nt := range triMap {
		if nt == InvalidID {
			continue
		}
		e, ok := src.Triangle(tid)
		if !ok {
			continue
		}
		var out [3]int
		for i, id := range e {
			ne, seen := emap[id]
			if !seen {
				ne = dst.AppendElement(src.elements[id])
				emap[id] = ne
			}
			out[i] = ne
		}
		dst.tris[nt] = out
	}
}

// Compact returns a dense copy of m keeping overlays and groups.
func (m *Mesh) Compact() *Mesh {
	c, _ := CompactCopy(m, KeepAll)
	return c
}
