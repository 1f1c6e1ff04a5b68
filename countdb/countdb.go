// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package countdb implements an SQLite database
// to store labeled site count matrices
// produced by coalescent simulations.
//
// The database keeps three tables:
// the metadata of the simulation set,
// one label row per simulation
// with the sampled demographic parameters,
// and one site count matrix
// per simulation and quartet.
// Labels are written when the simulation space is enumerated,
// so an interrupted run can be resumed
// from the first simulation without counts.
package countdb

import (
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/js-arias/simcat/admix"
	"github.com/js-arias/simcat/coalescent"

	_ "modernc.org/sqlite"
)

// Metadata stores the parameters
// shared by all simulations in a database.
type Metadata struct {
	// Tree is the source tree collection
	// in the TSV format of the timetree package.
	Tree string

	// Internal is the list of internal node IDs
	// of the source tree,
	// in the order used by the node heights
	// of each label.
	Internal []int

	NSnps   int     // sites per simulation
	NTips   int     // terminals in the tree
	NQuarts int     // quartets per simulation
	NEdges  int     // admixture events per simulation
	NValues int64   // total number of simulations
	Seed    uint64  // seed of the random number generator
	Scale   float64 // years per coalescent unit
}

// A Label stores the sampled parameters
// of a single simulation.
//
// The admixture fields have one element per admixture event;
// they are empty if the simulations have no admixture.
type Label struct {
	ID      int64
	Tree    int       // index of the sampled tree
	Theta   float64   // population scaled mutation rate
	Heights []float64 // internal node heights, coalescent units
	Sources []int     // admixture source nodes
	Targets []int     // admixture destination nodes
	Props   []float64 // admixture proportions
	TStarts []float64 // admixture start times
	TEnds   []float64 // admixture end times
}

// Scenario returns the simulation parameters of a label
// as an admixture scenario
// with fixed migration intervals and rates.
func (l Label) Scenario() (admix.Scenario, error) {
	n := len(l.Sources)
	for _, x := range []int{len(l.Targets), len(l.Props), len(l.TStarts), len(l.TEnds)} {
		if x != n {
			return admix.Scenario{}, fmt.Errorf("label %d: admixture fields of different size", l.ID)
		}
	}

	sc := admix.Scenario{
		Theta:  l.Theta,
		Events: make([]admix.Event, n),
	}
	for i := range sc.Events {
		sc.Events[i] = admix.Event{
			Source: l.Sources[i],
			Dest:   l.Targets[i],
			Start:  l.TStarts[i],
			End:    l.TEnds[i],
			Rate:   l.Props[i],
		}
	}
	return sc, nil
}

// A DB is a database of labeled simulations.
type DB struct {
	db   *sql.DB
	meta Metadata
}

func openSQL(name string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", name+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, fmt.Errorf("on database %q: %v", name, err)
	}
	// modernc.org/sqlite does not support
	// concurrent writers.
	db.SetMaxOpenConns(1)
	return db, nil
}

// Create creates a new database
// with the indicated file name and metadata.
// It is an error if the file already exists.
func Create(name string, m Metadata) (*DB, error) {
	if _, err := os.Stat(name); err == nil {
		return nil, fmt.Errorf("database %q already exists", name)
	}

	db, err := openSQL(name)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("on database %q: %v", name, err)
	}
	if err := writeMetadata(db, m); err != nil {
		db.Close()
		return nil, fmt.Errorf("on database %q: %v", name, err)
	}
	return &DB{db: db, meta: m}, nil
}

// Open opens an existing database.
func Open(name string) (*DB, error) {
	if _, err := os.Stat(name); err != nil {
		return nil, fmt.Errorf("on database %q: %v", name, err)
	}

	db, err := openSQL(name)
	if err != nil {
		return nil, err
	}
	m, err := readMetadata(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("on database %q: %v", name, err)
	}
	return &DB{db: db, meta: m}, nil
}

// Close closes the database.
func (db *DB) Close() error {
	return db.db.Close()
}

// Metadata returns the metadata of the database.
func (db *DB) Metadata() Metadata {
	return db.meta
}

func writeMetadata(db *sql.DB, m Metadata) error {
	in, err := json.Marshal(m.Internal)
	if err != nil {
		return err
	}
	rows := map[string]string{
		"version":  strconv.Itoa(SchemaVersion),
		"tree":     m.Tree,
		"internal": string(in),
		"nsnps":    strconv.Itoa(m.NSnps),
		"ntips":    strconv.Itoa(m.NTips),
		"nquarts":  strconv.Itoa(m.NQuarts),
		"nedges":   strconv.Itoa(m.NEdges),
		"nvalues":  strconv.FormatInt(m.NValues, 10),
		"seed":     strconv.FormatUint(m.Seed, 10),
		"scale":    strconv.FormatFloat(m.Scale, 'g', -1, 64),
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for k, v := range rows {
		if _, err := tx.Exec("INSERT INTO metadata (key, value) VALUES (?, ?)", k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func readMetadata(db *sql.DB) (Metadata, error) {
	rows, err := db.Query("SELECT key, value FROM metadata")
	if err != nil {
		return Metadata{}, err
	}
	defer rows.Close()

	kv := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return Metadata{}, err
		}
		kv[k] = v
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, err
	}

	if v := kv["version"]; v != strconv.Itoa(SchemaVersion) {
		return Metadata{}, fmt.Errorf("unknown schema version %q", v)
	}

	var m Metadata
	m.Tree = kv["tree"]
	if err := json.Unmarshal([]byte(kv["internal"]), &m.Internal); err != nil {
		return Metadata{}, fmt.Errorf("metadata field %q: %v", "internal", err)
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"nsnps", &m.NSnps},
		{"ntips", &m.NTips},
		{"nquarts", &m.NQuarts},
		{"nedges", &m.NEdges},
	} {
		v, err := strconv.Atoi(kv[f.key])
		if err != nil {
			return Metadata{}, fmt.Errorf("metadata field %q: %v", f.key, err)
		}
		*f.dst = v
	}
	m.NValues, err = strconv.ParseInt(kv["nvalues"], 10, 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata field %q: %v", "nvalues", err)
	}
	m.Seed, err = strconv.ParseUint(kv["seed"], 10, 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata field %q: %v", "seed", err)
	}
	m.Scale, err = strconv.ParseFloat(kv["scale"], 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("metadata field %q: %v", "scale", err)
	}
	return m, nil
}

// AddLabels adds a block of labels to the database
// in a single transaction.
// Labels already stored are kept,
// so an interrupted enumeration
// can be finished by enumerating again.
func (db *DB) AddLabels(ls []Label) error {
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for _, l := range ls {
		cols, err := labelJSON(l)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("label %d: %v", l.ID, err)
		}
		_, err = tx.Exec(`
			INSERT OR IGNORE INTO labels
			(id, tree, theta, node_heights, admix_sources, admix_targets, admix_props, admix_tstarts, admix_tends)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			l.ID, l.Tree, l.Theta, cols[0], cols[1], cols[2], cols[3], cols[4], cols[5])
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("label %d: %v", l.ID, err)
		}
	}
	return tx.Commit()
}

func labelJSON(l Label) ([6]string, error) {
	var cols [6]string
	for i, v := range []any{l.Heights, l.Sources, l.Targets, l.Props, l.TStarts, l.TEnds} {
		b, err := json.Marshal(v)
		if err != nil {
			return cols, err
		}
		cols[i] = string(b)
	}
	return cols, nil
}

// Labels returns the labels with IDs
// in the interval [start, end).
func (db *DB) Labels(start, end int64) ([]Label, error) {
	rows, err := db.db.Query(`
		SELECT id, tree, theta, node_heights, admix_sources, admix_targets, admix_props, admix_tstarts, admix_tends
		FROM labels
		WHERE id >= ? AND id < ?
		ORDER BY id`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ls []Label
	for rows.Next() {
		var l Label
		var cols [6]string
		err := rows.Scan(&l.ID, &l.Tree, &l.Theta, &cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5])
		if err != nil {
			return nil, err
		}
		for i, v := range []any{&l.Heights, &l.Sources, &l.Targets, &l.Props, &l.TStarts, &l.TEnds} {
			if err := json.Unmarshal([]byte(cols[i]), v); err != nil {
				return nil, fmt.Errorf("label %d: %v", l.ID, err)
			}
		}
		ls = append(ls, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ls, nil
}

// NumLabels returns the number of labels in the database.
func (db *DB) NumLabels() (int64, error) {
	var n int64
	err := db.db.QueryRow("SELECT COUNT(*) FROM labels").Scan(&n)
	return n, err
}

// AddCounts stores the site count matrices of a simulation,
// one matrix per quartet.
// Adding counts for a simulation that already has them
// replaces the stored matrices.
func (db *DB) AddCounts(id int64, ms []coalescent.Matrix) error {
	if len(ms) != db.meta.NQuarts {
		return fmt.Errorf("simulation %d: got %d matrices, want %d", id, len(ms), db.meta.NQuarts)
	}

	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	for q, m := range ms {
		_, err := tx.Exec("INSERT OR REPLACE INTO counts (id, quartet, matrix) VALUES (?, ?, ?)",
			id, q, encodeMatrix(m))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("simulation %d: %v", id, err)
		}
	}
	return tx.Commit()
}

// Counts returns the site count matrices of a simulation.
func (db *DB) Counts(id int64) ([]coalescent.Matrix, error) {
	rows, err := db.db.Query("SELECT quartet, matrix FROM counts WHERE id = ? ORDER BY quartet", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ms := make([]coalescent.Matrix, db.meta.NQuarts)
	n := 0
	for rows.Next() {
		var q int
		var b []byte
		if err := rows.Scan(&q, &b); err != nil {
			return nil, err
		}
		if q < 0 || q >= len(ms) {
			return nil, fmt.Errorf("simulation %d: invalid quartet %d", id, q)
		}
		m, err := decodeMatrix(b)
		if err != nil {
			return nil, fmt.Errorf("simulation %d, quartet %d: %v", id, q, err)
		}
		ms[q] = m
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("simulation %d: no counts stored", id)
	}
	if n != len(ms) {
		return nil, fmt.Errorf("simulation %d: got %d matrices, want %d", id, n, len(ms))
	}
	return ms, nil
}

// NumCounts returns the number of simulations
// with stored count matrices.
func (db *DB) NumCounts() (int64, error) {
	var n int64
	err := db.db.QueryRow("SELECT COUNT(*) FROM counts WHERE quartet = 0").Scan(&n)
	return n, err
}

// Checkpoint returns the ID of the first simulation
// without stored counts.
// If all simulations have counts,
// it returns the total number of simulations.
func (db *DB) Checkpoint() (int64, error) {
	var id int64
	err := db.db.QueryRow(`
		SELECT COALESCE(MIN(l.id), (SELECT COUNT(*) FROM labels))
		FROM labels l
		LEFT JOIN counts c ON l.id = c.id AND c.quartet = 0
		WHERE c.id IS NULL`).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return id, nil
}

func encodeMatrix(m coalescent.Matrix) []byte {
	b := make([]byte, 0, 16*16*4)
	for _, r := range m {
		for _, v := range r {
			b = binary.BigEndian.AppendUint32(b, v)
		}
	}
	return b
}

func decodeMatrix(b []byte) (coalescent.Matrix, error) {
	var m coalescent.Matrix
	if len(b) != 16*16*4 {
		return m, fmt.Errorf("invalid matrix blob: %d bytes", len(b))
	}
	for i := range m {
		for j := range m[i] {
			m[i][j] = binary.BigEndian.Uint32(b[(i*16+j)*4:])
		}
	}
	return m, nil
}
