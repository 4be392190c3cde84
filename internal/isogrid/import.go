package isogrid

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Import ingests tab-delimited isochrone tables into the grid. Each
// file carries a header row naming feh, alpha_fe and age columns plus
// every parameter in Params (in any order); consecutive rows sharing a
// (feh, alpha_fe, age) triple form one isochrone. Lines starting with
// '#' are skipped.
func (g *DB) Import(paths ...string) error {
	for _, path := range paths {
		if err := g.importFile(path); err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
	}
	return nil
}

func (g *DB) importFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.Comment = '#'
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("reading header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range append([]string{"feh", "alpha_fe", "age"}, Params...) {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("header missing column %q", required)
		}
	}

	var (
		cur      Track
		curCell  [3]float64
		haveCell bool
		line     = 1
	)
	flush := func() error {
		if !haveCell {
			return nil
		}
		return g.AddIsochrone(curCell[0], curCell[1], curCell[2], cur)
	}

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		field := func(name string) (float64, error) {
			v, err := strconv.ParseFloat(rec[col[name]], 64)
			if err != nil {
				return 0, fmt.Errorf("line %d: parsing %s: %w", line, name, err)
			}
			return v, nil
		}

		var cell [3]float64
		for i, name := range []string{"feh", "alpha_fe", "age"} {
			v, err := field(name)
			if err != nil {
				return err
			}
			cell[i] = v
		}

		if haveCell && cell != curCell {
			if err := flush(); err != nil {
				return err
			}
			cur = nil
		}
		curCell, haveCell = cell, true

		node := make(Node, len(Params))
		for i, name := range Params {
			v, err := field(name)
			if err != nil {
				return err
			}
			node[i] = v
		}
		cur = append(cur, node)
	}

	return flush()
}
