// Package audit appends tuning snapshots to a CSV log so a run leaves a
// reviewable trail: when each compensator shape was reached and what the
// phase looked like at the marker frequencies.
package audit

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Record is one logged snapshot. PhaseDeg carries one readout per marker
// frequency, in the same order the markers are configured.
type Record struct {
	At       time.Time
	PhaseDeg []float64
	Blocks   string
	Note     string
}

// Header names the log columns for the given marker frequencies.
func Header(markers []float64) []string {
	cols := []string{"timestamp"}
	for _, f := range markers {
		cols = append(cols, fmt.Sprintf("phase_%ghz_deg", f))
	}
	return append(cols, "blocks", "note")
}

// Append writes rec to the CSV log at path, creating the file with a
// header row first when needed. The phase count must match markers.
func Append(path string, markers []float64, rec Record) error {
	if len(rec.PhaseDeg) != len(markers) {
		return fmt.Errorf("audit: %d phase readouts for %d markers", len(rec.PhaseDeg), len(markers))
	}

	info, statErr := os.Stat(path)
	fresh := statErr != nil || info.Size() == 0

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(Header(markers)); err != nil {
			return err
		}
	}

	row := make([]string, 0, len(markers)+3)
	row = append(row, rec.At.Format(time.RFC3339))
	for _, p := range rec.PhaseDeg {
		row = append(row, strconv.FormatFloat(p, 'f', 2, 64))
	}
	row = append(row, rec.Blocks, rec.Note)
	if err := w.Write(row); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
