package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pkarhu/comptune/internal/grid"
)

const (
	DefaultFreqMin      = 0.1
	DefaultFreqMax      = 100.0
	DefaultGridPoints   = 2000
	DefaultMeasBins     = 400
	DefaultSmoothWindow = 41
	MinGridPoints       = 10
	MaxSmoothWindow     = 301
)

// ErrInvalid marks settings that fail validation.
var ErrInvalid = errors.New("config: invalid settings")

// Settings is the explicit configuration object handed to the core. The
// core never reads ambient state; everything tunable arrives through this
// value.
type Settings struct {
	FreqMinHz      float64   `yaml:"freq_min_hz"`
	FreqMaxHz      float64   `yaml:"freq_max_hz"`
	GridPoints     int       `yaml:"grid_points"`
	LogAxis        bool      `yaml:"log_axis"`
	MeasBins       int       `yaml:"meas_bins"`
	SmoothEnabled  bool      `yaml:"smooth_enabled"`
	SmoothWindow   int       `yaml:"smooth_window"`
	UnwrapMeasured bool      `yaml:"unwrap_measured"`
	ReportFreqsHz  []float64 `yaml:"report_freqs_hz"`
	MarkerFreqsHz  []float64 `yaml:"marker_freqs_hz"`
	DataFile       string    `yaml:"data_file"`
	PresetFile     string    `yaml:"preset_file"`
	LogFile        string    `yaml:"log_file"`
}

func DefaultSettings() *Settings {
	return &Settings{
		FreqMinHz:      DefaultFreqMin,
		FreqMaxHz:      DefaultFreqMax,
		GridPoints:     DefaultGridPoints,
		LogAxis:        true,
		MeasBins:       DefaultMeasBins,
		SmoothEnabled:  false,
		SmoothWindow:   DefaultSmoothWindow,
		UnwrapMeasured: true,
		ReportFreqsHz:  []float64{0.5, 1, 3, 10},
		MarkerFreqsHz:  []float64{1, 3},
		DataFile:       "transfer_measured.csv",
		PresetFile:     "compensator_preset.json",
		LogFile:        "tuning_log.csv",
	}
}

// Load reads settings from a YAML file, overlaying the defaults so older
// files missing newer keys stay loadable.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func Save(path string, s *Settings) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings against the ranges the tuner can work
// with. MeasBins 0 disables decimation; SmoothWindow stays bounded even
// while smoothing is off because it seeds the window editor.
func (s *Settings) Validate() error {
	if !(s.FreqMinHz > 0) || !(s.FreqMaxHz > s.FreqMinHz) {
		return fmt.Errorf("%w: frequency range [%g, %g] Hz", ErrInvalid, s.FreqMinHz, s.FreqMaxHz)
	}
	if s.GridPoints < MinGridPoints {
		return fmt.Errorf("%w: grid points %d < %d", ErrInvalid, s.GridPoints, MinGridPoints)
	}
	if s.MeasBins != 0 && s.MeasBins < 10 {
		return fmt.Errorf("%w: meas bins %d (0 or >= 10)", ErrInvalid, s.MeasBins)
	}
	if s.SmoothWindow < 5 || s.SmoothWindow > MaxSmoothWindow || s.SmoothWindow%2 == 0 {
		return fmt.Errorf("%w: smooth window %d (odd, 5..%d)", ErrInvalid, s.SmoothWindow, MaxSmoothWindow)
	}
	for _, f := range s.ReportFreqsHz {
		if !(f > 0) {
			return fmt.Errorf("%w: report frequency %g Hz", ErrInvalid, f)
		}
	}
	for _, f := range s.MarkerFreqsHz {
		if !(f > 0) {
			return fmt.Errorf("%w: marker frequency %g Hz", ErrInvalid, f)
		}
	}
	return nil
}

// Grid builds the evaluation axis these settings describe.
func (s *Settings) Grid() (*grid.Grid, error) {
	return grid.New(s.FreqMinHz, s.FreqMaxHz, s.GridPoints, s.LogAxis)
}
