package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math/cmplx"
	"math/rand"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/bode"
	"github.com/pkarhu/comptune/internal/cascade"
	"github.com/pkarhu/comptune/internal/config"
	"github.com/pkarhu/comptune/internal/export"
	"github.com/pkarhu/comptune/internal/grid"
	"github.com/pkarhu/comptune/internal/preset"
	"github.com/pkarhu/comptune/internal/session"
	"github.com/pkarhu/comptune/internal/tui"
)

var (
	configFile string
	verbose    bool

	presetFile  string
	builtinName string
	dataFile    string
	showInverse bool

	svgWidth  int
	svgHeight int

	genPoints int
	genNoise  float64
	genSchema string
	genSeed   int64

	noteText string
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "comptune",
		Short: "frequency-domain compensator tuning workbench",
		RunE:  runTune,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			} else {
				zerolog.SetGlobalLevel(zerolog.WarnLevel)
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "settings file (yaml)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "debug logging")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "interactive tuner",
		RunE:  runTune,
	}
	tuneCmd.Flags().StringVar(&presetFile, "preset", "", "preset file to load on start")
	tuneCmd.Flags().StringVar(&builtinName, "builtin", "", "built-in preset to load on start")
	tuneCmd.Flags().StringVar(&dataFile, "data", "", "measured response file to load on start")

	evalCmd := &cobra.Command{
		Use:   "eval",
		Short: "print the cascade response at the report frequencies",
		RunE:  runEval,
	}
	evalCmd.Flags().StringVar(&presetFile, "preset", "", "preset file")
	evalCmd.Flags().StringVar(&builtinName, "builtin", "", "built-in preset")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv",
		Short: "export the cascade response to CSV",
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVar(&presetFile, "preset", "", "preset file")
	exportCSVCmd.Flags().StringVar(&builtinName, "builtin", "", "built-in preset")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json",
		Short: "export the cascade response to JSON",
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVar(&presetFile, "preset", "", "preset file")
	exportJSONCmd.Flags().StringVar(&builtinName, "builtin", "", "built-in preset")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [file]",
		Short: "render the cascade response to a Bode SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVar(&presetFile, "preset", "", "preset file")
	exportSVGCmd.Flags().StringVar(&builtinName, "builtin", "", "built-in preset")
	exportSVGCmd.Flags().StringVar(&dataFile, "data", "", "measured response file to overlay")
	exportSVGCmd.Flags().BoolVar(&showInverse, "inverse", false, "overlay the inverse of the measured response")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 1000, "image width in px")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 620, "image height in px")

	genCmd := &cobra.Command{
		Use:   "gen [file]",
		Short: "synthesize a measured response file",
		Args:  cobra.MaximumNArgs(1),
		RunE:  genMeasured,
	}
	genCmd.Flags().StringVar(&presetFile, "preset", "", "preset file to use as the plant")
	genCmd.Flags().StringVar(&builtinName, "builtin", "", "built-in preset to use as the plant")
	genCmd.Flags().IntVar(&genPoints, "points", 240, "number of frequency points")
	genCmd.Flags().Float64Var(&genNoise, "noise", 0.03, "relative noise level")
	genCmd.Flags().StringVar(&genSchema, "schema", "bode", "column schema: rect or bode")
	genCmd.Flags().Int64Var(&genSeed, "seed", time.Now().UnixNano(), "random seed")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in presets",
		RunE:  listPresets,
	}

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "append a phase snapshot to the tuning log",
		RunE:  runSnapshot,
	}
	snapshotCmd.Flags().StringVar(&presetFile, "preset", "", "preset file")
	snapshotCmd.Flags().StringVar(&builtinName, "builtin", "", "built-in preset")
	snapshotCmd.Flags().StringVar(&noteText, "note", "", "free-text note for the log row")

	initCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "write a settings file with defaults",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	rootCmd.AddCommand(tuneCmd, evalCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd, genCmd, presetsCmd, snapshotCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newSession() (*session.Session, error) {
	settings := config.DefaultSettings()
	if configFile != "" {
		s, err := config.Load(configFile)
		if err != nil {
			return nil, err
		}
		settings = s
	}
	return session.New(settings, block.Default)
}

// loadCascade applies --builtin or --preset to a fresh session.
func loadCascade(sess *session.Session) error {
	switch {
	case builtinName != "" && presetFile != "":
		return fmt.Errorf("use either --builtin or --preset, not both")
	case builtinName != "":
		return sess.LoadBuiltin(builtinName)
	case presetFile != "":
		return sess.LoadPreset(presetFile)
	}
	return nil
}

func isSingular(err error) bool {
	var se *block.SingularityError
	return errors.As(err, &se)
}

func runTune(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	if err := loadCascade(sess); err != nil {
		return err
	}

	// An explicit --data file must exist; the settings default is only
	// picked up when it is already on disk.
	path := dataFile
	if path == "" {
		if _, err := os.Stat(sess.Settings.DataFile); err == nil {
			path = sess.Settings.DataFile
		}
	}
	if path != "" {
		if err := sess.LoadMeasured(path); err != nil && !isSingular(err) {
			return err
		}
	}

	return tui.Run(sess)
}

func runEval(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	if err := loadCascade(sess); err != nil {
		return err
	}

	cur, err := currentCurve(sess)
	if err != nil {
		return err
	}
	rows, err := sess.ReportRows()
	if err != nil && !isSingular(err) {
		return err
	}

	fmt.Printf("cascade: %s\n", sess.Compensator().Summary())
	fmt.Printf("grid: %g-%g Hz, %d points\n\n", sess.Settings.FreqMinHz, sess.Settings.FreqMaxHz, sess.Settings.GridPoints)

	graph := asciigraph.Plot(cur.MagDB,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("magnitude (dB)"),
	)
	fmt.Println(graph)
	fmt.Println()

	graph = asciigraph.Plot(cur.PhaseDeg,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("phase (deg)"),
	)
	fmt.Println(graph)
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FREQ_HZ\tMAG_DB\tPHASE_DEG")
	for _, r := range rows {
		fmt.Fprintf(w, "%.4g\t%.3f\t%.2f\n", r.FreqHz, r.MagDB, r.PhaseDeg)
	}
	return w.Flush()
}

func currentCurve(sess *session.Session) (bode.Curve, error) {
	cur, err := sess.CurrentCurve()
	if err != nil && !isSingular(err) {
		return bode.Curve{}, err
	}
	return cur, nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	if err := loadCascade(sess); err != nil {
		return err
	}
	cur, err := currentCurve(sess)
	if err != nil {
		return err
	}
	return export.WriteResponseCSV(os.Stdout, cur)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	if err := loadCascade(sess); err != nil {
		return err
	}
	cur, err := currentCurve(sess)
	if err != nil {
		return err
	}
	return export.WriteResponseJSON(os.Stdout, sess.Compensator().Summary(), cur)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	if err := loadCascade(sess); err != nil {
		return err
	}
	cur, err := currentCurve(sess)
	if err != nil {
		return err
	}

	series := []export.Series{{Name: "current", Color: export.ColorCurrent, Curve: cur}}
	if dataFile != "" {
		if err := sess.LoadMeasured(dataFile); err != nil && !isSingular(err) {
			return err
		}
		if mc, ok := sess.MeasuredDisplay(showInverse); ok {
			name := "measured"
			if showInverse {
				name = "measured inverse"
			}
			series = append(series, export.Series{Name: name, Color: export.ColorMeasured, Curve: mc})
		}
	}

	svg := export.BodeSVG(series, svgWidth, svgHeight)
	if svg == "" {
		return fmt.Errorf("nothing to draw")
	}
	if err := os.WriteFile(args[0], []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", args[0])
	return nil
}

// demoPlant is a lightly damped resonance behind a lag, the shape most
// tuning sessions start from.
func demoPlant() ([]*block.Instance, error) {
	g, err := block.Instantiate("gain", map[string]float64{"K": 0.8})
	if err != nil {
		return nil, err
	}
	res, err := block.Instantiate("sos", map[string]float64{"fn": 12, "zeta": 0.12, "K": 1})
	if err != nil {
		return nil, err
	}
	lag, err := block.Instantiate("leadlag", map[string]float64{"T": 0.05, "a": 0.25})
	if err != nil {
		return nil, err
	}
	return []*block.Instance{g, res, lag}, nil
}

func genMeasured(cmd *cobra.Command, args []string) error {
	settings := config.DefaultSettings()
	if configFile != "" {
		s, err := config.Load(configFile)
		if err != nil {
			return err
		}
		settings = s
	}

	var blocks []*block.Instance
	var err error
	switch {
	case builtinName != "":
		blocks, err = preset.Builtin(builtinName, block.Default)
	case presetFile != "":
		raw, rerr := os.ReadFile(presetFile)
		if rerr != nil {
			return rerr
		}
		blocks, err = preset.Unmarshal(raw, block.Default)
	default:
		blocks, err = demoPlant()
	}
	if err != nil {
		return err
	}

	c := cascade.New()
	c.Load(blocks, "gen")

	g, err := grid.New(settings.FreqMinHz, settings.FreqMaxHz, genPoints, true)
	if err != nil {
		return err
	}
	h, err := c.Evaluate(g.Omega)
	if err != nil && !isSingular(err) {
		return err
	}

	rng := rand.New(rand.NewSource(genSeed))
	if genNoise > 0 {
		for i, v := range h {
			s := genNoise * cmplx.Abs(v)
			h[i] = v + complex(rng.NormFloat64()*s, rng.NormFloat64()*s)
		}
	}

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	defer w.Flush()

	switch genSchema {
	case "rect":
		if err := w.Write([]string{"freq_hz", "h_real", "h_imag"}); err != nil {
			return err
		}
		for i, f := range g.Hz {
			row := []string{
				strconv.FormatFloat(f, 'g', -1, 64),
				strconv.FormatFloat(real(h[i]), 'g', -1, 64),
				strconv.FormatFloat(imag(h[i]), 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	case "bode":
		mag := bode.MagDB(h)
		phase := bode.PhaseDeg(h)
		if err := w.Write([]string{"freq_hz", "mag_db", "phase_deg"}); err != nil {
			return err
		}
		for i, f := range g.Hz {
			row := []string{
				strconv.FormatFloat(f, 'g', -1, 64),
				strconv.FormatFloat(mag[i], 'g', -1, 64),
				strconv.FormatFloat(phase[i], 'g', -1, 64),
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown schema %q (rect or bode)", genSchema)
	}

	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tBLOCKS")
	for _, name := range preset.ListBuiltins() {
		blocks, err := preset.Builtin(name, block.Default)
		if err != nil {
			return err
		}
		c := cascade.New()
		c.Load(blocks, "")
		fmt.Fprintf(w, "%s\t%s\n", name, c.Summary())
	}
	return w.Flush()
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	sess, err := newSession()
	if err != nil {
		return err
	}
	if err := loadCascade(sess); err != nil {
		return err
	}
	rec, err := sess.LogSnapshot(noteText)
	if err != nil {
		return err
	}
	fmt.Printf("logged snapshot at %s to %s\n", rec.At.Format(time.RFC3339), sess.Settings.LogFile)
	return nil
}

func writeConfig(cmd *cobra.Command, args []string) error {
	path := "comptune.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.Save(path, config.DefaultSettings()); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}
