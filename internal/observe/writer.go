package observe

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// WriteTSV writes the observed catalog as a tab-delimited table: a
// header row with each parameter followed by its uncertainty column,
// one row per star labeled by star id, fixed-width floats. The fields
// are joined by hand; encoding/csv would quote the space-padded
// numbers.
func WriteTSV(w io.Writer, obs *Observed) error {
	bw := bufio.NewWriter(w)

	header := make([]string, 0, 1+2*len(obs.Params))
	header = append(header, "#sid")
	for _, p := range obs.Params {
		header = append(header, p, p+"_unc")
	}
	if _, err := bw.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	ns := 0
	if len(obs.Params) > 0 {
		ns = len(obs.Values[obs.Params[0]])
	}
	row := make([]string, 0, len(header))
	for sid := 0; sid < ns; sid++ {
		row = row[:0]
		row = append(row, strconv.Itoa(sid))
		for _, p := range obs.Params {
			row = append(row,
				fmt.Sprintf("%10.4f", obs.Values[p][sid]),
				fmt.Sprintf("%10.4f", obs.Unc[p][sid]))
		}
		if _, err := bw.WriteString(strings.Join(row, "\t") + "\n"); err != nil {
			return fmt.Errorf("writing star %d: %w", sid, err)
		}
	}

	return bw.Flush()
}

// WriteTSVFile writes the observed catalog to path.
func WriteTSVFile(path string, obs *Observed) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating catalog file: %w", err)
	}
	if err := WriteTSV(f, obs); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
