package observe

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteTSV(t *testing.T) {
	obs := &Observed{
		Params: []string{"plx", "logT"},
		Values: map[string][]float64{
			"plx":  {10.0, 2.5},
			"logT": {5011.87, 5623.41},
		},
		Unc: map[string][]float64{
			"plx":  {0.3, 0.3},
			"logT": {100, 100},
		},
	}

	var buf bytes.Buffer
	if err := WriteTSV(&buf, obs); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}

	if got, want := lines[0], "#sid\tplx\tplx_unc\tlogT\tlogT_unc"; got != want {
		t.Errorf("header = %q, want %q", got, want)
	}

	row := strings.Split(lines[1], "\t")
	if len(row) != 5 {
		t.Fatalf("row has %d fields, want 5", len(row))
	}
	if row[0] != "0" {
		t.Errorf("star id = %q, want 0", row[0])
	}
	if got, want := row[1], "   10.0000"; got != want {
		t.Errorf("plx field = %q, want fixed-width %q", got, want)
	}
	if got, want := row[3], " 5011.8700"; got != want {
		t.Errorf("logT field = %q, want fixed-width %q", got, want)
	}

	row2 := strings.Split(lines[2], "\t")
	if row2[0] != "1" {
		t.Errorf("second star id = %q, want 1", row2[0])
	}
}

func TestWriteTSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	obs := &Observed{
		Params: []string{"logg"},
		Values: map[string][]float64{"logg": {}},
		Unc:    map[string][]float64{"logg": {}},
	}
	if err := WriteTSV(&buf, obs); err != nil {
		t.Fatalf("WriteTSV: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 1 {
		t.Errorf("got %d lines, want header only", len(lines))
	}
}
