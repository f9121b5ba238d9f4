package sdfx

import (
	"context"
	"errors"
	"math"
	"testing"

	v3 "github.com/deadsy/sdfx/vec/v3"
)

func TestBox(t *testing.T) {
	k := New()
	box, err := k.Box(v3.Vec{X: 2, Y: 1, Z: 0.5})
	if err != nil {
		t.Fatalf("Box failed: %v", err)
	}
	mesh, err := k.ToMesh(context.Background(), box, 32)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.TriangleCount() == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	if !mesh.HasAttributes() {
		t.Fatal("expected vertex normals")
	}
	if v := mesh.Volume(); math.Abs(v-1) > 0.1 {
		t.Errorf("box volume = %f, expected ~1", v)
	}
	t.Logf("box triangle count: %d", mesh.TriangleCount())
}

func TestBadPrimitives(t *testing.T) {
	k := New()
	if _, err := k.Box(v3.Vec{X: -1, Y: 1, Z: 1}); err == nil {
		t.Error("expected error for negative box size")
	}
	if _, err := k.Cylinder(1, -2); err == nil {
		t.Error("expected error for negative radius")
	}
	if _, err := k.Sphere(0); err == nil {
		t.Error("expected error for zero radius")
	}
}

func TestSphere(t *testing.T) {
	k := New()
	s, err := k.Sphere(1)
	if err != nil {
		t.Fatalf("Sphere failed: %v", err)
	}
	mesh, err := k.ToMesh(context.Background(), s, 32)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if !mesh.IsClosed() {
		t.Error("sphere mesh is not closed")
	}
	want := 4.0 / 3.0 * math.Pi
	if v := mesh.Volume(); math.Abs(v-want) > 0.05*want {
		t.Errorf("sphere volume = %f, expected ~%f", v, want)
	}
}

func TestDifference(t *testing.T) {
	k := New()
	box, err := k.Box(v3.Vec{X: 1, Y: 1, Z: 1})
	if err != nil {
		t.Fatal(err)
	}
	cyl, err := k.Cylinder(1.2, 0.2)
	if err != nil {
		t.Fatal(err)
	}
	boxMesh, err := k.ToMesh(context.Background(), box, 32)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}
	diffMesh, err := k.ToMesh(context.Background(), k.Difference(box, cyl), 32)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	if diffMesh.Volume() >= boxMesh.Volume() {
		t.Fatalf("difference volume %f should be below box volume %f", diffMesh.Volume(), boxMesh.Volume())
	}
	t.Logf("box triangles: %d, difference triangles: %d", boxMesh.TriangleCount(), diffMesh.TriangleCount())
}

func TestUnionIntersection(t *testing.T) {
	k := New()
	a, _ := k.Box(v3.Vec{X: 1, Y: 1, Z: 1})
	b := k.Translate(a, v3.Vec{X: 0.5})
	u, err := k.ToMesh(context.Background(), k.Union(a, b), 32)
	if err != nil {
		t.Fatal(err)
	}
	in, err := k.ToMesh(context.Background(), k.Intersection(a, b), 32)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(u.Volume()-1.5) > 0.1 {
		t.Errorf("union volume = %f, expected ~1.5", u.Volume())
	}
	if math.Abs(in.Volume()-0.5) > 0.1 {
		t.Errorf("intersection volume = %f, expected ~0.5", in.Volume())
	}
}

func TestTranslate(t *testing.T) {
	k := New()
	box, _ := k.Box(v3.Vec{X: 10, Y: 10, Z: 10})
	bb := k.Translate(box, v3.Vec{X: 100, Y: 200, Z: 300}).BoundingBox()

	const tol = 0.5
	expectMin := v3.Vec{X: 95, Y: 195, Z: 295}
	expectMax := v3.Vec{X: 105, Y: 205, Z: 305}
	if bb.Min.Sub(expectMin).Length() > tol {
		t.Errorf("min = %v, expected ~%v", bb.Min, expectMin)
	}
	if bb.Max.Sub(expectMax).Length() > tol {
		t.Errorf("max = %v, expected ~%v", bb.Max, expectMax)
	}
}

func TestRotate(t *testing.T) {
	k := New()
	box, _ := k.Box(v3.Vec{X: 100, Y: 10, Z: 10})

	// A long box along X rotated 90 degrees around Z should extend along Y instead.
	size := k.Rotate(box, v3.Vec{Z: 90}).BoundingBox().Size()

	const tol = 1.0
	if math.Abs(size.X-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", size.X)
	}
	if math.Abs(size.Y-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", size.Y)
	}
}

func TestScale(t *testing.T) {
	k := New()
	s, _ := k.Sphere(1)
	size := k.Scale(s, 3).BoundingBox().Size()
	if math.Abs(size.X-6) > 1e-9 {
		t.Errorf("scaled extent = %f, expected 6", size.X)
	}
}

func TestToMeshCanceled(t *testing.T) {
	k := New()
	s, _ := k.Sphere(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := k.ToMesh(ctx, s, 16); !errors.Is(err, context.Canceled) {
		t.Errorf("ToMesh error = %v, want context.Canceled", err)
	}
}
