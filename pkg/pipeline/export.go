package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chazu/meshwork/pkg/geom"
	"github.com/chazu/meshwork/pkg/graph"
	"github.com/chazu/meshwork/pkg/mesh"
	"github.com/chazu/meshwork/pkg/objio"
)

// export writes meshes to d.Path. OBJ files keep one object per mesh; STL
// files hold the combined triangles.
func (e *Executor) export(d graph.ExportData, meshes []*mesh.Mesh) error {
	path := e.path(d.Path)
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}

	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".stl":
		err = objio.WriteSTL(path, combine(meshes))
	default:
		err = objio.WriteMeshesFile(path, meshes, objio.WriteOptions{ReverseOrientation: e.Options.ReverseOBJ})
	}
	if err != nil {
		return err
	}
	e.written = append(e.written, path)
	e.Logger.Info("exported", zap.String("path", path), zap.Int("meshes", len(meshes)))
	return nil
}

// combine appends meshes into one.
func combine(meshes []*mesh.Mesh) *mesh.Mesh {
	if len(meshes) == 1 {
		return meshes[0]
	}
	out := mesh.New()
	for _, m := range meshes {
		out.AppendMesh(m, geom.Identity())
	}
	return out
}
