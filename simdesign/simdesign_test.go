// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package simdesign_test

import (
	"os"
	"testing"

	"github.com/js-arias/simcat/simdesign"
)

func TestDesign(t *testing.T) {
	name := "tmp-design-parameters-for-test.tab"
	d := simdesign.New(name)
	testDesign(t, d, nil, name)

	if err := d.SetNEdges(1); err != nil {
		t.Fatalf("nedges: unexpected error: %v", err)
	}
	if err := d.SetNTrees(10); err != nil {
		t.Fatalf("ntrees: unexpected error: %v", err)
	}
	if err := d.SetNTests(20); err != nil {
		t.Fatalf("ntests: unexpected error: %v", err)
	}
	if err := d.SetNReps(5); err != nil {
		t.Fatalf("nreps: unexpected error: %v", err)
	}
	if err := d.SetNSnps(500); err != nil {
		t.Fatalf("nsnps: unexpected error: %v", err)
	}
	if err := d.SetChunk(100); err != nil {
		t.Fatalf("chunk: unexpected error: %v", err)
	}
	if err := d.SetTheta(0.01, 0.1); err != nil {
		t.Fatalf("theta: unexpected error: %v", err)
	}
	if err := d.SetEdges("slider"); err != nil {
		t.Fatalf("edges: unexpected error: %v", err)
	}
	if err := d.SetScale(2_000_000); err != nil {
		t.Fatalf("scale: unexpected error: %v", err)
	}
	d.SetSeed(998)

	defer os.Remove(name)
	if err := d.Write(); err != nil {
		t.Fatalf("error when writing data: %v", err)
	}

	nd, err := simdesign.Read(name)
	if err != nil {
		t.Fatalf("error when reading data: %v", err)
	}
	testDesign(t, nd, d, name)
}

func TestDesignInvalid(t *testing.T) {
	d := simdesign.New("invalid-values.tab")

	if err := d.SetNEdges(-1); err == nil {
		t.Errorf("nedges: expecting error for value %d", -1)
	}
	if err := d.SetNTrees(0); err == nil {
		t.Errorf("ntrees: expecting error for value %d", 0)
	}
	if err := d.SetTheta(0.1, 0.01); err == nil {
		t.Errorf("theta: expecting error for range %g-%g", 0.1, 0.01)
	}
	if err := d.SetTheta(0, 0.01); err == nil {
		t.Errorf("theta: expecting error for min %g", 0.0)
	}
	if err := d.SetEdges("poisson"); err == nil {
		t.Errorf("edges: expecting error for function %q", "poisson")
	}
	if err := d.SetScale(0); err == nil {
		t.Errorf("scale: expecting error for value %g", 0.0)
	}
}

func testDesign(t testing.TB, d, want *simdesign.Design, name string) {
	t.Helper()

	if want == nil {
		want = simdesign.New(name)
	}

	if d.Name() != want.Name() {
		t.Errorf("name: got %q, want %q", d.Name(), want.Name())
	}
	if d.Edges() != want.Edges() {
		t.Errorf("edges: got %q, want %q", d.Edges(), want.Edges())
	}
	if d.NEdges() != want.NEdges() {
		t.Errorf("nedges: got %d, want %d", d.NEdges(), want.NEdges())
	}
	if d.NTrees() != want.NTrees() {
		t.Errorf("ntrees: got %d, want %d", d.NTrees(), want.NTrees())
	}
	if d.NTests() != want.NTests() {
		t.Errorf("ntests: got %d, want %d", d.NTests(), want.NTests())
	}
	if d.NReps() != want.NReps() {
		t.Errorf("nreps: got %d, want %d", d.NReps(), want.NReps())
	}
	if d.NSnps() != want.NSnps() {
		t.Errorf("nsnps: got %d, want %d", d.NSnps(), want.NSnps())
	}
	if d.Chunk() != want.Chunk() {
		t.Errorf("chunk: got %d, want %d", d.Chunk(), want.Chunk())
	}
	if d.Scale() != want.Scale() {
		t.Errorf("scale: got %g, want %g", d.Scale(), want.Scale())
	}
	if d.Seed() != want.Seed() {
		t.Errorf("seed: got %d, want %d", d.Seed(), want.Seed())
	}
	gMin, gMax := d.Theta()
	wMin, wMax := want.Theta()
	if gMin != wMin || gMax != wMax {
		t.Errorf("theta: got %g-%g, want %g-%g", gMin, gMax, wMin, wMax)
	}
}
