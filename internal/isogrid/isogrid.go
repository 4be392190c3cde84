// Package isogrid stores and queries tabulated isochrone grids.
// A grid holds isochrones keyed by ([Fe/H], [alpha/Fe], age); each
// isochrone is an ordered track of stellar models indexed by increasing
// initial mass. Queries snap to the nearest grid cell and report the
// realized parameter triple alongside the track.
package isogrid

import (
	"database/sql"
	"errors"
	"fmt"
	"math"

	_ "modernc.org/sqlite" // SQLite driver
)

// ErrOutOfRange reports a query outside the grid's coverage envelope.
var ErrOutOfRange = errors.New("isogrid: requested point outside grid coverage")

// Params is the ordered list of parameters carried by every track node.
// Names are grid-native: Mini is initial mass, logT/logg/logL are the
// usual log-scale surface parameters, and the rest are absolute
// magnitudes in 2MASS and Gaia bands.
var Params = []string{
	"Mini", "FeHini", "logT", "logg", "logL",
	"J", "H", "Ks", "G", "G_BPbr", "G_BPft", "G_RP",
}

// paramCols maps Params (by position) to sqlite column names.
var paramCols = []string{
	"mini", "feh_ini", "log_t", "log_g", "log_l",
	"mag_j", "mag_h", "mag_ks", "mag_g", "mag_bpbr", "mag_bpft", "mag_rp",
}

// KnownFilters are the photometric band names that may appear in an
// observation spec: 2MASS, SkyMapper, and Gaia DR2.
var KnownFilters = []string{
	"J", "H", "Ks",
	"u", "v", "g", "r", "i", "z",
	"G", "G_BPbr", "G_BPft", "G_RP",
}

// IsFilter reports whether name is a known photometric band.
func IsFilter(name string) bool {
	for _, f := range KnownFilters {
		if f == name {
			return true
		}
	}
	return false
}

// ParamIndex returns the position of name in Params, or -1.
func ParamIndex(name string) int {
	for i, p := range Params {
		if p == name {
			return i
		}
	}
	return -1
}

// Node is one stellar model on a track: a dense vector addressed
// through Params.
type Node []float64

// Track is an isochrone: nodes ordered by non-decreasing initial mass.
type Track []Node

// Column extracts one parameter along the track.
func (t Track) Column(param int) []float64 {
	col := make([]float64, len(t))
	for i, n := range t {
		col[i] = n[param]
	}
	return col
}

// MaxMass returns the initial mass of the last node.
func (t Track) MaxMass() float64 {
	return t[len(t)-1][0]
}

// Realized is the grid cell actually matched by a query. It may differ
// from the requested point due to grid resolution.
type Realized struct {
	FeH     float64
	AlphaFe float64
	Age     float64
}

// Querier is the narrow grid contract the sampler depends on.
type Querier interface {
	Schema() []string
	Query(feh, alphaFe, age float64) (Track, Realized, error)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS isochrones (
    iso_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    feh      REAL NOT NULL,
    alpha_fe REAL NOT NULL,
    age      REAL NOT NULL,
    UNIQUE (feh, alpha_fe, age)
);

CREATE TABLE IF NOT EXISTS models (
    iso_id   INTEGER NOT NULL REFERENCES isochrones(iso_id) ON DELETE CASCADE,
    seq      INTEGER NOT NULL,
    mini     REAL NOT NULL,
    feh_ini  REAL NOT NULL,
    log_t    REAL NOT NULL,
    log_g    REAL NOT NULL,
    log_l    REAL NOT NULL,
    mag_j    REAL NOT NULL,
    mag_h    REAL NOT NULL,
    mag_ks   REAL NOT NULL,
    mag_g    REAL NOT NULL,
    mag_bpbr REAL NOT NULL,
    mag_bpft REAL NOT NULL,
    mag_rp   REAL NOT NULL,
    PRIMARY KEY (iso_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_iso_cell ON isochrones(alpha_fe, feh, age);
`

// DB is a sqlite-backed isochrone grid.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens an existing grid database (creating the schema if absent).
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("opening grid database: %w", err)
	}
	// SQLite works best with a single writer
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing grid schema: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Close closes the underlying database.
func (g *DB) Close() error {
	return g.db.Close()
}

// Path returns the filesystem path the grid was opened from.
func (g *DB) Path() string {
	return g.path
}

// Schema returns the ordered parameter names available on every node.
func (g *DB) Schema() []string {
	schema := make([]string, len(Params))
	copy(schema, Params)
	return schema
}

// AddIsochrone stores one isochrone at the given grid cell. The track
// must have at least two nodes and non-decreasing initial mass.
func (g *DB) AddIsochrone(feh, alphaFe, age float64, track Track) error {
	if len(track) < 2 {
		return fmt.Errorf("isogrid: track at (%g, %g, %g) has %d nodes, need at least 2",
			feh, alphaFe, age, len(track))
	}
	for i, n := range track {
		if len(n) != len(Params) {
			return fmt.Errorf("isogrid: node %d has %d values, schema has %d",
				i, len(n), len(Params))
		}
		if i > 0 && n[0] < track[i-1][0] {
			return fmt.Errorf("isogrid: track at (%g, %g, %g) has decreasing mass at node %d",
				feh, alphaFe, age, i)
		}
	}

	tx, err := g.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`INSERT INTO isochrones (feh, alpha_fe, age) VALUES (?, ?, ?)`,
		feh, alphaFe, age)
	if err != nil {
		return fmt.Errorf("inserting isochrone (%g, %g, %g): %w", feh, alphaFe, age, err)
	}
	isoID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading isochrone id: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO models
		(iso_id, seq, mini, feh_ini, log_t, log_g, log_l,
		 mag_j, mag_h, mag_ks, mag_g, mag_bpbr, mag_bpft, mag_rp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing model insert: %w", err)
	}
	defer stmt.Close()

	for seq, n := range track {
		args := make([]any, 0, len(n)+2)
		args = append(args, isoID, seq)
		for _, v := range n {
			args = append(args, v)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("inserting model %d: %w", seq, err)
		}
	}
	return tx.Commit()
}

// Query returns the track at the grid cell nearest to the requested
// point, plus the realized parameter triple. Points beyond half a grid
// step past the extreme cells are out of range.
func (g *DB) Query(feh, alphaFe, age float64) (Track, Realized, error) {
	alphas, err := g.distinct(`SELECT DISTINCT alpha_fe FROM isochrones ORDER BY alpha_fe`)
	if err != nil {
		return nil, Realized{}, err
	}
	if len(alphas) == 0 {
		return nil, Realized{}, fmt.Errorf("isogrid: grid is empty")
	}
	alphaReal, ok := nearest(alphas, alphaFe, 0.25)
	if !ok {
		return nil, Realized{}, fmt.Errorf("%w: [alpha/Fe]=%g", ErrOutOfRange, alphaFe)
	}

	fehs, err := g.distinct(`SELECT DISTINCT feh FROM isochrones WHERE alpha_fe = ? ORDER BY feh`, alphaReal)
	if err != nil {
		return nil, Realized{}, err
	}
	fehReal, ok := nearest(fehs, feh, 0.25)
	if !ok {
		return nil, Realized{}, fmt.Errorf("%w: [Fe/H]=%g", ErrOutOfRange, feh)
	}

	ages, err := g.distinct(`SELECT DISTINCT age FROM isochrones WHERE alpha_fe = ? AND feh = ? ORDER BY age`,
		alphaReal, fehReal)
	if err != nil {
		return nil, Realized{}, err
	}
	ageReal, ok := nearest(ages, age, 0.5)
	if !ok {
		return nil, Realized{}, fmt.Errorf("%w: age=%g Gyr", ErrOutOfRange, age)
	}

	var isoID int64
	err = g.db.QueryRow(`SELECT iso_id FROM isochrones WHERE alpha_fe = ? AND feh = ? AND age = ?`,
		alphaReal, fehReal, ageReal).Scan(&isoID)
	if err != nil {
		return nil, Realized{}, fmt.Errorf("looking up isochrone: %w", err)
	}

	rows, err := g.db.Query(`SELECT mini, feh_ini, log_t, log_g, log_l,
		mag_j, mag_h, mag_ks, mag_g, mag_bpbr, mag_bpft, mag_rp
		FROM models WHERE iso_id = ? ORDER BY seq`, isoID)
	if err != nil {
		return nil, Realized{}, fmt.Errorf("loading track: %w", err)
	}
	defer rows.Close()

	var track Track
	for rows.Next() {
		node := make(Node, len(Params))
		dest := make([]any, len(node))
		for i := range node {
			dest[i] = &node[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, Realized{}, fmt.Errorf("scanning model: %w", err)
		}
		track = append(track, node)
	}
	if err := rows.Err(); err != nil {
		return nil, Realized{}, fmt.Errorf("reading track: %w", err)
	}

	return track, Realized{FeH: fehReal, AlphaFe: alphaReal, Age: ageReal}, nil
}

// Coverage summarizes the grid contents.
type Coverage struct {
	FeHMin, FeHMax float64
	AgeMin, AgeMax float64
	AlphaFe        []float64
	Isochrones     int
	Nodes          int
}

// Info reports the grid's coverage.
func (g *DB) Info() (Coverage, error) {
	var c Coverage
	err := g.db.QueryRow(`SELECT MIN(feh), MAX(feh), MIN(age), MAX(age), COUNT(*) FROM isochrones`).
		Scan(&c.FeHMin, &c.FeHMax, &c.AgeMin, &c.AgeMax, &c.Isochrones)
	if err != nil {
		return Coverage{}, fmt.Errorf("querying coverage: %w", err)
	}
	if err := g.db.QueryRow(`SELECT COUNT(*) FROM models`).Scan(&c.Nodes); err != nil {
		return Coverage{}, fmt.Errorf("counting models: %w", err)
	}
	alphas, err := g.distinct(`SELECT DISTINCT alpha_fe FROM isochrones ORDER BY alpha_fe`)
	if err != nil {
		return Coverage{}, err
	}
	c.AlphaFe = alphas
	return c, nil
}

func (g *DB) distinct(query string, args ...any) ([]float64, error) {
	rows, err := g.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying grid axis: %w", err)
	}
	defer rows.Close()

	var vals []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scanning grid axis: %w", err)
		}
		vals = append(vals, v)
	}
	return vals, rows.Err()
}

// nearest returns the value in sorted vals closest to x. Requests more
// than half the edge spacing beyond the extreme values (or singleTol
// for a single-valued axis) are rejected.
func nearest(vals []float64, x float64, singleTol float64) (float64, bool) {
	n := len(vals)
	lowTol, highTol := singleTol, singleTol
	if n > 1 {
		lowTol = (vals[1] - vals[0]) / 2
		highTol = (vals[n-1] - vals[n-2]) / 2
	}
	if x < vals[0]-lowTol || x > vals[n-1]+highTol {
		return 0, false
	}

	best := vals[0]
	for _, v := range vals[1:] {
		if math.Abs(v-x) < math.Abs(best-x) {
			best = v
		}
	}
	return best, true
}
