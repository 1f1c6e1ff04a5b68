// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package sims_test

import (
	"bytes"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/js-arias/simcat/admix"
	"github.com/js-arias/simcat/countdb"
	"github.com/js-arias/simcat/simdesign"
	"github.com/js-arias/simcat/sims"
	"github.com/js-arias/timetree"
)

const balanced = "((a:1,b:1):1,(c:1.5,d:1.5):0.5);"

func makeTree(t testing.TB) *timetree.Tree {
	t.Helper()

	c, err := timetree.Newick(strings.NewReader(balanced), "balanced", 2_000_000)
	if err != nil {
		t.Fatalf("unable to parse newick tree: %v", err)
	}
	return c.Tree(c.Names()[0])
}

func treeTSV(t testing.TB, tt *timetree.Tree) string {
	t.Helper()

	tc := timetree.NewCollection()
	if err := tc.Add(tt); err != nil {
		t.Fatalf("unable to build tree collection: %v", err)
	}
	var buf bytes.Buffer
	if err := tc.TSV(&buf); err != nil {
		t.Fatalf("unable to write tree collection: %v", err)
	}
	return buf.String()
}

func makeDesign(t testing.TB) *simdesign.Design {
	t.Helper()

	d := simdesign.New("design.tab")
	if err := d.SetNTrees(2); err != nil {
		t.Fatalf("unable to set ntrees: %v", err)
	}
	if err := d.SetNTests(3); err != nil {
		t.Fatalf("unable to set ntests: %v", err)
	}
	if err := d.SetNReps(2); err != nil {
		t.Fatalf("unable to set nreps: %v", err)
	}
	if err := d.SetNSnps(20); err != nil {
		t.Fatalf("unable to set nsnps: %v", err)
	}
	if err := d.SetChunk(5); err != nil {
		t.Fatalf("unable to set chunk: %v", err)
	}
	if err := d.SetTheta(0.0001, 0.0001); err != nil {
		t.Fatalf("unable to set theta: %v", err)
	}
	return d
}

func runSpace(t testing.TB, sp *sims.Space, tsv, name string) *countdb.DB {
	t.Helper()

	db, err := countdb.Create(name, sp.Metadata(tsv))
	if err != nil {
		t.Fatalf("unable to create database: %v", err)
	}
	if err := sp.Enumerate(db); err != nil {
		t.Fatalf("unable to enumerate labels: %v", err)
	}
	if err := sp.Run(db, nil); err != nil {
		t.Fatalf("unable to run simulations: %v", err)
	}
	return db
}

func TestSpace(t *testing.T) {
	tt := makeTree(t)
	d := makeDesign(t)

	sp, err := sims.NewSpace(tt, d)
	if err != nil {
		t.Fatalf("unable to create space: %v", err)
	}

	// two trees, three draws, two replicates,
	// no admixture
	if v := sp.NumValues(); v != 12 {
		t.Fatalf("simulations: got %d, want 12", v)
	}
	if c := sp.NumCandidates(); c != 18 {
		t.Errorf("candidate edges: got %d, want 18", c)
	}

	m := sp.Metadata(treeTSV(t, tt))
	if m.NTips != 4 {
		t.Errorf("metadata terminals: got %d, want 4", m.NTips)
	}
	if m.NQuarts != 1 {
		t.Errorf("metadata quartets: got %d, want 1", m.NQuarts)
	}
	if m.NValues != 12 {
		t.Errorf("metadata simulations: got %d, want 12", m.NValues)
	}

	// the stored tree must rebuild the same space
	rc, err := timetree.ReadTSV(strings.NewReader(m.Tree))
	if err != nil {
		t.Fatalf("unable to read the stored tree: %v", err)
	}
	rt := rc.Tree(rc.Names()[0])
	if rt == nil {
		t.Fatalf("stored tree collection without trees")
	}
	if rt.Name() != tt.Name() {
		t.Errorf("stored tree: got name %q, want %q", rt.Name(), tt.Name())
	}
	rsp, err := sims.NewSpace(rt, d)
	if err != nil {
		t.Fatalf("unable to rebuild space from the stored tree: %v", err)
	}
	if v := rsp.NumValues(); v != sp.NumValues() {
		t.Errorf("rebuilt space: got %d simulations, want %d", v, sp.NumValues())
	}
	if c := rsp.NumCandidates(); c != sp.NumCandidates() {
		t.Errorf("rebuilt space: got %d candidate edges, want %d", c, sp.NumCandidates())
	}

	name := filepath.Join(t.TempDir(), "sims.db")
	db, err := countdb.Create(name, m)
	if err != nil {
		t.Fatalf("unable to create database: %v", err)
	}
	defer db.Close()

	if err := sp.Enumerate(db); err != nil {
		t.Fatalf("unable to enumerate labels: %v", err)
	}
	n, err := db.NumLabels()
	if err != nil {
		t.Fatalf("unable to count labels: %v", err)
	}
	if n != 12 {
		t.Fatalf("labels: got %d, want 12", n)
	}

	at, err := admix.New(tt, d.Scale())
	if err != nil {
		t.Fatalf("unable to scale tree: %v", err)
	}
	want := make([]float64, 0, len(at.Internal()))
	for _, in := range at.Internal() {
		want = append(want, at.Height(in))
	}

	ls, err := db.Labels(0, 12)
	if err != nil {
		t.Fatalf("unable to read labels: %v", err)
	}
	for i, l := range ls {
		if l.ID != int64(i) {
			t.Errorf("label %d: ID %d", i, l.ID)
		}
		// tree major order
		if wt := i / 6; l.Tree != wt {
			t.Errorf("label %d: tree %d, want %d", i, l.Tree, wt)
		}
		if l.Theta != 0.0001 {
			t.Errorf("label %d: theta %.6g, want 0.0001", i, l.Theta)
		}
		// without the slider the input heights are used
		if !reflect.DeepEqual(l.Heights, want) {
			t.Errorf("label %d: node heights %v, want %v", i, l.Heights, want)
		}
		if len(l.Sources) != 0 {
			t.Errorf("label %d: %d admixture events, want 0", i, len(l.Sources))
		}
	}

	// run on the space rebuilt from the stored tree
	sims.SetCPU(2)
	var progress []int64
	if err := rsp.Run(db, func(done, total int64) {
		if total != 12 {
			t.Errorf("report: total %d, want 12", total)
		}
		progress = append(progress, done)
	}); err != nil {
		t.Fatalf("unable to run simulations: %v", err)
	}
	if len(progress) == 0 || progress[len(progress)-1] != 12 {
		t.Errorf("progress reports: got %v, want a final report of 12", progress)
	}

	cp, err := db.Checkpoint()
	if err != nil {
		t.Fatalf("unable to read checkpoint: %v", err)
	}
	if cp != 12 {
		t.Errorf("checkpoint: got %d, want 12", cp)
	}

	for i := int64(0); i < 12; i++ {
		ms, err := db.Counts(i)
		if err != nil {
			t.Fatalf("unable to read counts for %d: %v", i, err)
		}
		var sum uint32
		for _, r := range ms[0] {
			for _, v := range r {
				sum += v
			}
		}
		if sum != 20 {
			t.Errorf("simulation %d: %d sites, want 20", i, sum)
		}
	}

	// a finished database is not simulated again
	if err := sp.Run(db, func(done, total int64) {
		t.Errorf("report on a finished database: done %d", done)
	}); err != nil {
		t.Fatalf("unable to run on a finished database: %v", err)
	}
}

func TestSpaceIncompleteLabels(t *testing.T) {
	tt := makeTree(t)
	d := makeDesign(t)

	sp, err := sims.NewSpace(tt, d)
	if err != nil {
		t.Fatalf("unable to create space: %v", err)
	}
	tsv := treeTSV(t, tt)

	tmp := t.TempDir()
	full := runSpace(t, sp, tsv, filepath.Join(tmp, "full.db"))
	defer full.Close()
	ls, err := full.Labels(0, 12)
	if err != nil {
		t.Fatalf("unable to read labels: %v", err)
	}

	// an interrupted enumeration
	// leaves full metadata and a label prefix
	db, err := countdb.Create(filepath.Join(tmp, "partial.db"), sp.Metadata(tsv))
	if err != nil {
		t.Fatalf("unable to create database: %v", err)
	}
	defer db.Close()
	if err := db.AddLabels(ls[:5]); err != nil {
		t.Fatalf("unable to add labels: %v", err)
	}

	if err := sp.Run(db, func(done, total int64) {
		t.Errorf("report on an incomplete database: done %d", done)
	}); err == nil {
		t.Fatalf("expecting error on an incomplete enumeration")
	}

	// enumerating again completes the labels
	// keeping the stored prefix
	if err := sp.Enumerate(db); err != nil {
		t.Fatalf("unable to finish the enumeration: %v", err)
	}
	n, err := db.NumLabels()
	if err != nil {
		t.Fatalf("unable to count labels: %v", err)
	}
	if n != 12 {
		t.Fatalf("labels after resume: got %d, want 12", n)
	}
	got, err := db.Labels(0, 12)
	if err != nil {
		t.Fatalf("unable to read labels: %v", err)
	}
	if !reflect.DeepEqual(got, ls) {
		t.Errorf("labels after resume differ from a full enumeration")
	}

	if err := sp.Run(db, nil); err != nil {
		t.Fatalf("unable to run simulations: %v", err)
	}
	cp, err := db.Checkpoint()
	if err != nil {
		t.Fatalf("unable to read checkpoint: %v", err)
	}
	if cp != 12 {
		t.Errorf("checkpoint: got %d, want 12", cp)
	}
}

func TestSpaceDeterminism(t *testing.T) {
	tt := makeTree(t)
	d := makeDesign(t)
	tsv := treeTSV(t, tt)

	tmp := t.TempDir()
	var dbs [2]*countdb.DB
	for i := range dbs {
		sp, err := sims.NewSpace(tt, d)
		if err != nil {
			t.Fatalf("unable to create space: %v", err)
		}
		dbs[i] = runSpace(t, sp, tsv, filepath.Join(tmp, fmt.Sprintf("sims-%d.db", i)))
		defer dbs[i].Close()
	}

	for id := int64(0); id < 12; id++ {
		a, err := dbs[0].Counts(id)
		if err != nil {
			t.Fatalf("unable to read counts for %d: %v", id, err)
		}
		b, err := dbs[1].Counts(id)
		if err != nil {
			t.Fatalf("unable to read counts for %d: %v", id, err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Errorf("simulation %d: counts differ between runs", id)
		}
	}
}

func TestSpaceAdmixture(t *testing.T) {
	tt := makeTree(t)
	d := makeDesign(t)
	if err := d.SetNEdges(1); err != nil {
		t.Fatalf("unable to set nedges: %v", err)
	}
	if err := d.SetEdges("slider"); err != nil {
		t.Fatalf("unable to set edges: %v", err)
	}
	if err := d.SetNTrees(1); err != nil {
		t.Fatalf("unable to set ntrees: %v", err)
	}
	if err := d.SetNTests(1); err != nil {
		t.Fatalf("unable to set ntests: %v", err)
	}

	sp, err := sims.NewSpace(tt, d)
	if err != nil {
		t.Fatalf("unable to create space: %v", err)
	}

	// 18 candidate edges, one tree, one draw,
	// two replicates
	if v := sp.NumValues(); v != 36 {
		t.Fatalf("simulations: got %d, want 36", v)
	}

	db := runSpace(t, sp, treeTSV(t, tt), filepath.Join(t.TempDir(), "sims.db"))
	defer db.Close()

	ls, err := db.Labels(0, 36)
	if err != nil {
		t.Fatalf("unable to read labels: %v", err)
	}
	if len(ls) != 36 {
		t.Fatalf("labels: got %d, want 36", len(ls))
	}
	for _, l := range ls {
		if len(l.Sources) != 1 {
			t.Fatalf("label %d: %d admixture events, want 1", l.ID, len(l.Sources))
		}
		if l.Sources[0] == l.Targets[0] {
			t.Errorf("label %d: admixture edge on a single branch", l.ID)
		}
		if p := l.Props[0]; p < 0 || p > 1 {
			t.Errorf("label %d: admixture proportion %.6g", l.ID, p)
		}
		if l.TStarts[0] >= l.TEnds[0] {
			t.Errorf("label %d: migration interval [%.6g, %.6g]", l.ID, l.TStarts[0], l.TEnds[0])
		}
	}

	cp, err := db.Checkpoint()
	if err != nil {
		t.Fatalf("unable to read checkpoint: %v", err)
	}
	if cp != 36 {
		t.Errorf("checkpoint: got %d, want 36", cp)
	}
}
