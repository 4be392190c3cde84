// Package dataset persists synthetic stellar populations. A dataset is
// written wholesale after one generator run and never mutated: a
// configuration section recording how the sample was drawn, and one
// equal-length array per tracked parameter plus age and phase.
package dataset

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nordlund/starsynth/internal/popmodel"
	"github.com/nordlund/starsynth/internal/sampler"
)

// noneValue is how an absent grid source is persisted.
const noneValue = "None"

// Config is the generation record stored with every dataset.
type Config struct {
	Bursts   popmodel.Bursts
	IMFAlpha float64
	NS       int
	FeHMean  float64
	FeHDisp  float64
	Seed     uint64
	GridPath string // empty persists as "None"
}

// Synthetic is a generated population: the configuration plus one
// array per parameter, indexed by draw order. Data holds every grid
// parameter plus "age" and "phase".
type Synthetic struct {
	Config Config
	Params []string // grid schema order, without age/phase
	Data   map[string][]float64
}

// FromResult assembles a Synthetic from a completed sampling run.
func FromResult(cfg Config, res *sampler.Result) *Synthetic {
	data := make(map[string][]float64, len(res.Schema)+2)
	for i, param := range res.Schema {
		col := make([]float64, len(res.Stars))
		for s, star := range res.Stars {
			col[s] = star.Values[i]
		}
		data[param] = col
	}
	age := make([]float64, len(res.Stars))
	phase := make([]float64, len(res.Stars))
	for s, star := range res.Stars {
		age[s] = star.Age
		phase[s] = float64(star.Phase)
	}
	data["age"] = age
	data["phase"] = phase

	return &Synthetic{
		Config: cfg,
		Params: append([]string(nil), res.Schema...),
		Data:   data,
	}
}

// NS returns the number of stars.
func (s *Synthetic) NS() int {
	return len(s.Data["age"])
}

// Validate checks that every array has the same length as the target
// count in the configuration.
func (s *Synthetic) Validate() error {
	for name, col := range s.Data {
		if len(col) != s.Config.NS {
			return fmt.Errorf("dataset: array %q has %d values, config says %d",
				name, len(col), s.Config.NS)
		}
	}
	for _, param := range s.Params {
		if _, ok := s.Data[param]; !ok {
			return fmt.Errorf("dataset: schema parameter %q has no array", param)
		}
	}
	return nil
}

const schemaSQL = `
CREATE TABLE config (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE params (
    pos  INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE arrays (
    param TEXT NOT NULL,
    sid   INTEGER NOT NULL,
    value REAL NOT NULL,
    PRIMARY KEY (param, sid)
);
`

// Write persists the dataset to a new sqlite file. Writing over an
// existing file is refused; datasets are immutable once generated.
func Write(path string, s *Synthetic) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("dataset: %s already exists", path)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return fmt.Errorf("creating dataset file: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("initializing dataset schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for key, value := range configMap(s.Config) {
		if _, err := tx.Exec(`INSERT INTO config (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("writing config %q: %w", key, err)
		}
	}
	for pos, name := range s.Params {
		if _, err := tx.Exec(`INSERT INTO params (pos, name) VALUES (?, ?)`, pos, name); err != nil {
			return fmt.Errorf("writing schema entry %q: %w", name, err)
		}
	}

	stmt, err := tx.Prepare(`INSERT INTO arrays (param, sid, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing array insert: %w", err)
	}
	defer stmt.Close()

	for name, col := range s.Data {
		for sid, v := range col {
			if _, err := stmt.Exec(name, sid, v); err != nil {
				return fmt.Errorf("writing %s[%d]: %w", name, sid, err)
			}
		}
	}
	return tx.Commit()
}

// Read loads a persisted dataset.
func Read(path string) (*Synthetic, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}
	defer db.Close()

	cfgVals := map[string]string{}
	rows, err := db.Query(`SELECT key, value FROM config`)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning config: %w", err)
		}
		cfgVals[k] = v
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := parseConfig(cfgVals)
	if err != nil {
		return nil, err
	}

	var params []string
	rows, err = db.Query(`SELECT name FROM params ORDER BY pos`)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning schema: %w", err)
		}
		params = append(params, name)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	data := map[string][]float64{}
	rows, err = db.Query(`SELECT param, value FROM arrays ORDER BY param, sid`)
	if err != nil {
		return nil, fmt.Errorf("reading arrays: %w", err)
	}
	for rows.Next() {
		var param string
		var v float64
		if err := rows.Scan(&param, &v); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning arrays: %w", err)
		}
		data[param] = append(data[param], v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading arrays: %w", err)
	}

	s := &Synthetic{Config: cfg, Params: params, Data: data}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func configMap(c Config) map[string]string {
	grid := c.GridPath
	if grid == "" {
		grid = noneValue
	}
	return map[string]string{
		"t_bursts":  encodeBursts(c.Bursts),
		"imf_alpha": strconv.FormatFloat(c.IMFAlpha, 'g', -1, 64),
		"ns":        strconv.Itoa(c.NS),
		"feh_mean":  strconv.FormatFloat(c.FeHMean, 'g', -1, 64),
		"feh_disp":  strconv.FormatFloat(c.FeHDisp, 'g', -1, 64),
		"seed":      strconv.FormatUint(c.Seed, 10),
		"gridpath":  grid,
	}
}

func parseConfig(vals map[string]string) (Config, error) {
	var c Config
	var err error

	if c.Bursts, err = decodeBursts(vals["t_bursts"]); err != nil {
		return Config{}, err
	}
	if c.IMFAlpha, err = strconv.ParseFloat(vals["imf_alpha"], 64); err != nil {
		return Config{}, fmt.Errorf("dataset: parsing imf_alpha: %w", err)
	}
	if c.NS, err = strconv.Atoi(vals["ns"]); err != nil {
		return Config{}, fmt.Errorf("dataset: parsing ns: %w", err)
	}
	if c.FeHMean, err = strconv.ParseFloat(vals["feh_mean"], 64); err != nil {
		return Config{}, fmt.Errorf("dataset: parsing feh_mean: %w", err)
	}
	if c.FeHDisp, err = strconv.ParseFloat(vals["feh_disp"], 64); err != nil {
		return Config{}, fmt.Errorf("dataset: parsing feh_disp: %w", err)
	}
	if c.Seed, err = strconv.ParseUint(vals["seed"], 10, 64); err != nil {
		return Config{}, fmt.Errorf("dataset: parsing seed: %w", err)
	}
	if v := vals["gridpath"]; v != noneValue {
		c.GridPath = v
	}
	return c, nil
}

// encodeBursts flattens a burst table to "t0:t1:w;t0:t1:w;...".
func encodeBursts(b popmodel.Bursts) string {
	rows := make([]string, len(b))
	for i, burst := range b {
		rows[i] = fmt.Sprintf("%s:%s:%s",
			strconv.FormatFloat(burst.TLow, 'g', -1, 64),
			strconv.FormatFloat(burst.THigh, 'g', -1, 64),
			strconv.FormatFloat(burst.Weight, 'g', -1, 64))
	}
	return strings.Join(rows, ";")
}

func decodeBursts(s string) (popmodel.Bursts, error) {
	if s == "" {
		return nil, errors.New("dataset: empty burst table in config")
	}
	var b popmodel.Bursts
	for _, row := range strings.Split(s, ";") {
		fields := strings.Split(row, ":")
		if len(fields) != 3 {
			return nil, fmt.Errorf("dataset: malformed burst row %q", row)
		}
		var burst popmodel.Burst
		var err error
		if burst.TLow, err = strconv.ParseFloat(fields[0], 64); err != nil {
			return nil, fmt.Errorf("dataset: parsing burst row %q: %w", row, err)
		}
		if burst.THigh, err = strconv.ParseFloat(fields[1], 64); err != nil {
			return nil, fmt.Errorf("dataset: parsing burst row %q: %w", row, err)
		}
		if burst.Weight, err = strconv.ParseFloat(fields[2], 64); err != nil {
			return nil, fmt.Errorf("dataset: parsing burst row %q: %w", row, err)
		}
		b = append(b, burst)
	}
	return b, nil
}
