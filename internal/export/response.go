package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/pkarhu/comptune/internal/bode"
)

// WriteResponseCSV writes a curve in the mag/phase measured-data schema,
// so exported responses load back through the measured reader. Rows with
// non-finite values are dropped.
func WriteResponseCSV(w io.Writer, c bode.Curve) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"freq_hz", "mag_db", "phase_deg"}); err != nil {
		return err
	}
	for i := range c.FreqHz {
		if !finiteRow(c, i) {
			continue
		}
		row := []string{
			strconv.FormatFloat(c.FreqHz[i], 'g', -1, 64),
			strconv.FormatFloat(c.MagDB[i], 'g', -1, 64),
			strconv.FormatFloat(c.PhaseDeg[i], 'g', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ResponseJSON is the JSON export shape: the response arrays plus enough
// context to know what produced them.
type ResponseJSON struct {
	GeneratedAt time.Time `json:"generated_at"`
	Blocks      string    `json:"blocks"`
	FreqHz      []float64 `json:"freq_hz"`
	MagDB       []float64 `json:"mag_db"`
	PhaseDeg    []float64 `json:"phase_deg"`
}

// WriteResponseJSON writes the curve as indented JSON. Rows with
// non-finite values are dropped; the JSON encoder has no encoding for
// them.
func WriteResponseJSON(w io.Writer, blocks string, c bode.Curve) error {
	out := ResponseJSON{
		GeneratedAt: time.Now(),
		Blocks:      blocks,
	}
	for i := range c.FreqHz {
		if !finiteRow(c, i) {
			continue
		}
		out.FreqHz = append(out.FreqHz, c.FreqHz[i])
		out.MagDB = append(out.MagDB, c.MagDB[i])
		out.PhaseDeg = append(out.PhaseDeg, c.PhaseDeg[i])
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func finiteRow(c bode.Curve, i int) bool {
	for _, v := range []float64{c.FreqHz[i], c.MagDB[i], c.PhaseDeg[i]} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
