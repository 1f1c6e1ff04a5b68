// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

package countdb

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current version
// of the database schema.
const SchemaVersion = 1

// The database stores the metadata of a simulation set,
// the label of each simulation
// (inserted when the simulation space is enumerated),
// and a site count matrix per simulation and quartet
// (inserted as the simulations are run).
const schema = `
CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS labels (
    id INTEGER PRIMARY KEY,
    tree INTEGER NOT NULL,        -- index of the sampled tree
    theta REAL NOT NULL,
    node_heights TEXT NOT NULL,   -- JSON array, coalescent units
    admix_sources TEXT NOT NULL,  -- JSON array, node IDs
    admix_targets TEXT NOT NULL,  -- JSON array, node IDs
    admix_props TEXT NOT NULL,    -- JSON array
    admix_tstarts TEXT NOT NULL,  -- JSON array, coalescent units
    admix_tends TEXT NOT NULL     -- JSON array, coalescent units
);

CREATE TABLE IF NOT EXISTS counts (
    id INTEGER NOT NULL REFERENCES labels(id),
    quartet INTEGER NOT NULL,
    matrix BLOB NOT NULL,         -- 16x16 big endian uint32
    PRIMARY KEY (id, quartet)
);
`

// initSchema creates the database tables.
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("unable to initialize schema: %v", err)
	}
	return nil
}
