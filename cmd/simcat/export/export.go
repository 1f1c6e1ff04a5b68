// Copyright © 2025 J. Salvador Arias <jsalarias@gmail.com>
// All rights reserved.
// Distributed under BSD2 license that can be found in the LICENSE file.

// Package export implements a command to export
// the simulation database of a SimCat project
// into an Arrow IPC file.
package export

import (
	"fmt"
	"os"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/ipc"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/js-arias/command"
	"github.com/js-arias/simcat/coalescent"
	"github.com/js-arias/simcat/countdb"
	"github.com/js-arias/simcat/project"
)

var Command = &command.Command{
	Usage: "export [-o|--output <file>] <project-file>",
	Short: "export a simulation database for training",
	Long: `
Command export reads the simulation database of a SimCat project and writes
the labels and the site count matrices of the finished simulations into an
Arrow IPC file, ready to be consumed by a machine learning pipeline.

The argument of the command is the name of the project file.

Each row of the output stores a simulation: the ID, the index of the sampled
tree, the value of theta, the internal node heights, the parameters of each
admixture event, and the site count matrices of every four taxon subset of
the tree, flattened in row major order and concatenated by quartet.

By default, the output file has the name of the database with the '.arrow'
extension. A different name can be defined with the flag --output, or -o.
	`,
	SetFlags: setFlags,
	Run:      run,
}

// rows per record batch
const batchSize = 1000

var output string

func setFlags(c *command.Command) {
	c.Flags().StringVar(&output, "output", "", "")
	c.Flags().StringVar(&output, "o", "", "")
}

func run(c *command.Command, args []string) error {
	if len(args) < 1 {
		return c.UsageError("expecting project file")
	}

	p, err := project.Read(args[0])
	if err != nil {
		return err
	}

	dbFile := p.Path(project.Database)
	if dbFile == "" {
		return fmt.Errorf("database not defined in project %q", args[0])
	}
	db, err := countdb.Open(dbFile)
	if err != nil {
		return err
	}
	defer db.Close()

	if output == "" {
		output = dbFile + ".arrow"
	}

	done, err := db.Checkpoint()
	if err != nil {
		return err
	}
	if done == 0 {
		return fmt.Errorf("database %q without finished simulations", dbFile)
	}

	if err := writeArrow(db, done); err != nil {
		return err
	}
	fmt.Fprintf(c.Stdout(), "%s: %d simulations\n", output, done)
	return nil
}

func makeSchema(m countdb.Metadata) *arrow.Schema {
	fields := []arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "tree", Type: arrow.PrimitiveTypes.Int32},
		{Name: "theta", Type: arrow.PrimitiveTypes.Float64},
		{Name: "heights", Type: arrow.FixedSizeListOf(int32(len(m.Internal)), arrow.PrimitiveTypes.Float64)},
	}
	if m.NEdges > 0 {
		n := int32(m.NEdges)
		fields = append(fields,
			arrow.Field{Name: "sources", Type: arrow.FixedSizeListOf(n, arrow.PrimitiveTypes.Int32)},
			arrow.Field{Name: "targets", Type: arrow.FixedSizeListOf(n, arrow.PrimitiveTypes.Int32)},
			arrow.Field{Name: "props", Type: arrow.FixedSizeListOf(n, arrow.PrimitiveTypes.Float64)},
			arrow.Field{Name: "tstarts", Type: arrow.FixedSizeListOf(n, arrow.PrimitiveTypes.Float64)},
			arrow.Field{Name: "tends", Type: arrow.FixedSizeListOf(n, arrow.PrimitiveTypes.Float64)},
		)
	}
	fields = append(fields, arrow.Field{
		Name: "counts",
		Type: arrow.FixedSizeListOf(int32(m.NQuarts*16*16), arrow.PrimitiveTypes.Uint32),
	})
	return arrow.NewSchema(fields, nil)
}

func writeArrow(db *countdb.DB, done int64) (err error) {
	m := db.Metadata()
	schema := makeSchema(m)

	f, err := os.Create(output)
	if err != nil {
		return err
	}
	defer func() {
		e := f.Close()
		if e != nil && err == nil {
			err = e
		}
	}()

	w, err := ipc.NewFileWriter(f, ipc.WithSchema(schema))
	if err != nil {
		return fmt.Errorf("on file %q: %v", output, err)
	}
	defer func() {
		e := w.Close()
		if e != nil && err == nil {
			err = fmt.Errorf("on file %q: %v", output, e)
		}
	}()

	b := array.NewRecordBuilder(memory.DefaultAllocator, schema)
	defer b.Release()

	for start := int64(0); start < done; start += batchSize {
		end := start + batchSize
		if end > done {
			end = done
		}
		ls, err := db.Labels(start, end)
		if err != nil {
			return err
		}
		for _, l := range ls {
			cm, err := db.Counts(l.ID)
			if err != nil {
				return err
			}
			appendRow(b, m, l, flatten(cm))
		}

		rec := b.NewRecord()
		if err := w.Write(rec); err != nil {
			rec.Release()
			return fmt.Errorf("on file %q: %v", output, err)
		}
		rec.Release()
	}
	return nil
}

func appendRow(b *array.RecordBuilder, m countdb.Metadata, l countdb.Label, counts []uint32) {
	fi := 0
	b.Field(fi).(*array.Int64Builder).Append(l.ID)
	fi++
	b.Field(fi).(*array.Int32Builder).Append(int32(l.Tree))
	fi++
	b.Field(fi).(*array.Float64Builder).Append(l.Theta)
	fi++

	hb := b.Field(fi).(*array.FixedSizeListBuilder)
	hb.Append(true)
	hb.ValueBuilder().(*array.Float64Builder).AppendValues(l.Heights, nil)
	fi++

	if m.NEdges > 0 {
		sb := b.Field(fi).(*array.FixedSizeListBuilder)
		sb.Append(true)
		sv := sb.ValueBuilder().(*array.Int32Builder)
		for _, s := range l.Sources {
			sv.Append(int32(s))
		}
		fi++

		tb := b.Field(fi).(*array.FixedSizeListBuilder)
		tb.Append(true)
		tv := tb.ValueBuilder().(*array.Int32Builder)
		for _, t := range l.Targets {
			tv.Append(int32(t))
		}
		fi++

		for _, vals := range [][]float64{l.Props, l.TStarts, l.TEnds} {
			vb := b.Field(fi).(*array.FixedSizeListBuilder)
			vb.Append(true)
			vb.ValueBuilder().(*array.Float64Builder).AppendValues(vals, nil)
			fi++
		}
	}

	cb := b.Field(fi).(*array.FixedSizeListBuilder)
	cb.Append(true)
	cb.ValueBuilder().(*array.Uint32Builder).AppendValues(counts, nil)
}

// flatten concatenates the count matrices of a simulation
// in row major order.
func flatten(cm []coalescent.Matrix) []uint32 {
	vals := make([]uint32, 0, len(cm)*16*16)
	for _, m := range cm {
		for _, r := range m {
			vals = append(vals, r[:]...)
		}
	}
	return vals
}
