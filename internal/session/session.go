// Package session wires the tuning engine together: the live compensator
// under edit, a frozen reference cascade to compare against, the shared
// undo/redo log, the evaluation grid, and the measured plant response.
package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gonum.org/v1/gonum/interp"

	"github.com/pkarhu/comptune/internal/audit"
	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/bode"
	"github.com/pkarhu/comptune/internal/cascade"
	"github.com/pkarhu/comptune/internal/config"
	"github.com/pkarhu/comptune/internal/grid"
	"github.com/pkarhu/comptune/internal/history"
	"github.com/pkarhu/comptune/internal/measured"
	"github.com/pkarhu/comptune/internal/preset"
)

// Session owns one tuning run. All methods run on the caller's goroutine;
// nothing here is safe for concurrent use.
type Session struct {
	Settings *config.Settings
	Grid     *grid.Grid

	reg  *block.Registry
	hist *history.Log
	comp *cascade.Compensator
	ref  *cascade.Compensator

	// Measured is nil until a data file is loaded.
	Measured *measured.Data
}

// New builds a session from validated settings. The compensator starts
// empty with its initial state committed, so the very first edit can be
// undone.
func New(s *config.Settings, reg *block.Registry) (*Session, error) {
	g, err := s.Grid()
	if err != nil {
		return nil, err
	}
	hist := history.New(history.DefaultCapacity)
	return &Session{
		Settings: s,
		Grid:     g,
		reg:      reg,
		hist:     hist,
		comp:     cascade.New(cascade.WithHistory(hist)),
		ref:      cascade.New(),
	}, nil
}

// Compensator exposes the live cascade.
func (s *Session) Compensator() *cascade.Compensator { return s.comp }

// Reference exposes the frozen comparison cascade.
func (s *Session) Reference() *cascade.Compensator { return s.ref }

// History exposes the undo/redo log.
func (s *Session) History() *history.Log { return s.hist }

// Registry exposes the block type registry.
func (s *Session) Registry() *block.Registry { return s.reg }

// AddBlock instantiates a registered type with its schema defaults and
// appends it to the cascade.
func (s *Session) AddBlock(typ string) error {
	in, err := s.reg.Instantiate(typ, nil)
	if err != nil {
		return err
	}
	if err := s.comp.Append(in); err != nil {
		return err
	}
	log.Debug().Str("type", typ).Int("blocks", s.comp.Len()).Msg("block added")
	return nil
}

// RemoveBlock deletes the block at index.
func (s *Session) RemoveBlock(index int) error {
	return s.comp.Remove(index)
}

// MoveBlock relocates a block within the cascade.
func (s *Session) MoveBlock(from, to int) error {
	return s.comp.Move(from, to)
}

// SetParam updates one parameter of the block at index.
func (s *Session) SetParam(index int, name string, value float64) error {
	return s.comp.SetParam(index, name, value)
}

// ToggleEnabled flips the enabled flag of the block at index.
func (s *Session) ToggleEnabled(index int) error {
	if index < 0 || index >= s.comp.Len() {
		return fmt.Errorf("%w: block %d (len %d)", cascade.ErrIndexOutOfRange, index, s.comp.Len())
	}
	return s.comp.SetEnabled(index, !s.comp.Blocks()[index].Enabled)
}

// Undo reverts the last mutation and returns its action label.
func (s *Session) Undo() (string, error) {
	undone := ""
	if e, ok := s.hist.Current(); ok {
		undone = e.Action
	}
	e, err := s.hist.Undo()
	if err != nil {
		return "", err
	}
	s.comp.Restore(e.Blocks)
	log.Debug().Str("action", undone).Msg("undo")
	return undone, nil
}

// Redo re-applies the next mutation and returns its action label.
func (s *Session) Redo() (string, error) {
	e, err := s.hist.Redo()
	if err != nil {
		return "", err
	}
	s.comp.Restore(e.Blocks)
	log.Debug().Str("action", e.Action).Msg("redo")
	return e.Action, nil
}

// CopyToReference freezes the live cascade as the comparison baseline.
func (s *Session) CopyToReference() {
	s.ref.Restore(s.comp.Blocks())
	log.Debug().Int("blocks", s.ref.Len()).Msg("reference updated")
}

// CurrentCurve evaluates the live cascade over the session grid. A
// returned *block.SingularityError is advisory: the curve is still valid
// away from the flagged points.
func (s *Session) CurrentCurve() (bode.Curve, error) {
	return s.curve(s.comp)
}

// ReferenceCurve evaluates the frozen reference cascade over the grid.
func (s *Session) ReferenceCurve() (bode.Curve, error) {
	return s.curve(s.ref)
}

func (s *Session) curve(c *cascade.Compensator) (bode.Curve, error) {
	h, err := c.Evaluate(s.Grid.Omega)
	if err != nil && !advisory(err) {
		return bode.Curve{}, err
	}
	return bode.FromResponse(s.Grid.Hz, h), err
}

func advisory(err error) bool {
	var se *block.SingularityError
	return errors.As(err, &se)
}

// LoadPreset replaces the cascade from a preset file as a single
// undoable step.
func (s *Session) LoadPreset(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	blocks, err := preset.Unmarshal(data, s.reg)
	if err != nil {
		return err
	}
	s.comp.Load(blocks, "load "+filepath.Base(path))
	log.Info().Str("path", path).Int("blocks", len(blocks)).Msg("preset loaded")
	return nil
}

// LoadBuiltin replaces the cascade from a named built-in preset as a
// single undoable step.
func (s *Session) LoadBuiltin(name string) error {
	blocks, err := preset.Builtin(name, s.reg)
	if err != nil {
		return err
	}
	s.comp.Load(blocks, "preset "+name)
	log.Info().Str("preset", name).Int("blocks", len(blocks)).Msg("preset loaded")
	return nil
}

// SavePreset writes the live cascade to path.
func (s *Session) SavePreset(path string) error {
	data, err := preset.Marshal(s.comp)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("preset saved")
	return nil
}

// LoadMeasured reads and processes a measured response CSV. A returned
// *block.SingularityError is advisory; the data is loaded regardless.
func (s *Session) LoadMeasured(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	samples, err := measured.ReadCSV(f)
	if err != nil {
		return err
	}
	data, perr := measured.Process(samples, s.measuredOptions())
	if data == nil {
		return perr
	}
	s.Measured = data
	log.Info().Str("path", path).Int("points", len(data.FreqHz)).Msg("measured data loaded")
	return perr
}

// ReprocessMeasured re-derives the processed curves after an unwrap or
// smoothing setting change. No-op without loaded data.
func (s *Session) ReprocessMeasured() error {
	if s.Measured == nil {
		return nil
	}
	data, perr := measured.Process(s.Measured.Samples, s.measuredOptions())
	if data == nil {
		return perr
	}
	s.Measured = data
	return perr
}

func (s *Session) measuredOptions() measured.Options {
	opts := measured.Options{Unwrap: s.Settings.UnwrapMeasured}
	if s.Settings.SmoothEnabled {
		opts.SmoothWindow = s.Settings.SmoothWindow
	}
	return opts
}

// MeasuredDisplay returns the measured curve decimated for plotting,
// forward or inverse. ok is false while no data is loaded.
func (s *Session) MeasuredDisplay(inverse bool) (bode.Curve, bool) {
	if s.Measured == nil {
		return bode.Curve{}, false
	}
	c := s.Measured.Fwd
	if inverse {
		c = s.Measured.Inv
	}
	return measured.DisplayCurve(c, s.Settings.MeasBins), true
}

// ReportRow compares the reference and live responses at one frequency.
type ReportRow struct {
	FreqHz        float64
	RefMagDB      float64
	MagDB         float64
	DeltaMagDB    float64
	RefPhaseDeg   float64
	PhaseDeg      float64
	DeltaPhaseDeg float64
}

// ReportRows interpolates both cascade responses at the configured
// report frequencies. Frequencies outside the grid clamp to the nearest
// edge value.
func (s *Session) ReportRows() ([]ReportRow, error) {
	cur, err := s.CurrentCurve()
	if err != nil && !advisory(err) {
		return nil, err
	}
	ref, err := s.ReferenceCurve()
	if err != nil && !advisory(err) {
		return nil, err
	}

	var magC, phC, magR, phR interp.PiecewiseLinear
	if err := magC.Fit(s.Grid.Hz, cur.MagDB); err != nil {
		return nil, err
	}
	if err := phC.Fit(s.Grid.Hz, cur.PhaseDeg); err != nil {
		return nil, err
	}
	if err := magR.Fit(s.Grid.Hz, ref.MagDB); err != nil {
		return nil, err
	}
	if err := phR.Fit(s.Grid.Hz, ref.PhaseDeg); err != nil {
		return nil, err
	}

	rows := make([]ReportRow, len(s.Settings.ReportFreqsHz))
	for i, f := range s.Settings.ReportFreqsHz {
		r := ReportRow{
			FreqHz:      f,
			RefMagDB:    magR.Predict(f),
			MagDB:       magC.Predict(f),
			RefPhaseDeg: phR.Predict(f),
			PhaseDeg:    phC.Predict(f),
		}
		r.DeltaMagDB = r.MagDB - r.RefMagDB
		r.DeltaPhaseDeg = r.PhaseDeg - r.RefPhaseDeg
		rows[i] = r
	}
	return rows, nil
}

// PhaseAt interpolates the live unwrapped phase at the given
// frequencies. Singular cascades yield NaN at the poisoned points.
func (s *Session) PhaseAt(freqs []float64) ([]float64, error) {
	cur, err := s.CurrentCurve()
	if err != nil && !advisory(err) {
		return nil, err
	}
	var ph interp.PiecewiseLinear
	if err := ph.Fit(s.Grid.Hz, cur.PhaseDeg); err != nil {
		return nil, err
	}
	out := make([]float64, len(freqs))
	for i, f := range freqs {
		out[i] = ph.Predict(f)
	}
	return out, nil
}

// SnapshotRecord captures the tuning state for the append-only log:
// timestamp, phase readouts at the marker frequencies, the block list,
// and the operator's note.
func (s *Session) SnapshotRecord(note string) (audit.Record, error) {
	phases, err := s.PhaseAt(s.Settings.MarkerFreqsHz)
	if err != nil {
		return audit.Record{}, err
	}
	return audit.Record{
		At:       time.Now(),
		PhaseDeg: phases,
		Blocks:   s.comp.Summary(),
		Note:     note,
	}, nil
}

// LogSnapshot appends a snapshot record to the configured tuning log and
// returns it.
func (s *Session) LogSnapshot(note string) (audit.Record, error) {
	rec, err := s.SnapshotRecord(note)
	if err != nil {
		return rec, err
	}
	if err := audit.Append(s.Settings.LogFile, s.Settings.MarkerFreqsHz, rec); err != nil {
		return rec, err
	}
	log.Info().Str("file", s.Settings.LogFile).Str("note", note).Msg("snapshot logged")
	return rec, nil
}
