// Package tui is the interactive tuner: a block-list editor with live
// Bode charts, driven entirely by the keyboard.
package tui

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/bode"
	"github.com/pkarhu/comptune/internal/preset"
	"github.com/pkarhu/comptune/internal/session"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green   = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("213"))
	blue    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

type state int

const (
	stateBlocks state = iota
	statePicker
	statePrompt
)

type promptKind int

const (
	promptNone promptKind = iota
	promptLoadData
	promptLoadPreset
	promptSavePreset
	promptNote
)

// pickItem is one row of the add picker: either a block type or a
// built-in starter preset.
type pickItem struct {
	typ    string
	preset string
}

type model struct {
	sess *session.Session

	state    state
	cursor   int
	paramCur int

	picker    []pickItem
	pickerCur int

	prompt promptKind
	input  textinput.Model

	showMeasured bool
	showInverse  bool

	cur          bode.Curve
	ref          bode.Curve
	rows         []session.ReportRow
	markerPhases []float64

	status string
	warn   string

	width  int
	height int
}

// Run starts the interactive tuner on the given session.
func Run(sess *session.Session) error {
	p := tea.NewProgram(newModel(sess), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(sess *session.Session) model {
	m := model{
		sess:         sess,
		showMeasured: sess.Measured != nil,
		width:        100,
		height:       40,
	}
	m.refresh()
	return m
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	if m.state == statePrompt {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case statePicker:
		return m.pickerKey(msg)
	case statePrompt:
		return m.promptKey(msg)
	}
	return m.blocksKey(msg)
}

func (m model) blocksKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
			m.paramCur = 0
		}
	case "down", "j":
		if m.cursor < m.sess.Compensator().Len()-1 {
			m.cursor++
			m.paramCur = 0
		}
	case "tab":
		m.cycleParam(1)
	case "shift+tab":
		m.cycleParam(-1)
	case "left":
		m.adjustParam(-1, false)
	case "right":
		m.adjustParam(1, false)
	case "shift+left":
		m.adjustParam(-1, true)
	case "shift+right":
		m.adjustParam(1, true)
	case "a":
		m.openPicker()
	case "d":
		m.removeBlock()
	case "e":
		m.toggleBlock()
	case "K", "shift+up":
		m.moveBlock(-1)
	case "J", "shift+down":
		m.moveBlock(1)
	case "u":
		if action, err := m.sess.Undo(); err != nil {
			m.status = err.Error()
		} else {
			m.status = "undo: " + action
			m.clampCursor()
			m.refresh()
		}
	case "r":
		if action, err := m.sess.Redo(); err != nil {
			m.status = err.Error()
		} else {
			m.status = "redo: " + action
			m.clampCursor()
			m.refresh()
		}
	case "c":
		m.sess.CopyToReference()
		m.status = "reference frozen from current"
		m.refresh()
	case "i":
		m.showInverse = !m.showInverse
		if m.showInverse {
			m.status = "measured overlay: inverse"
		} else {
			m.status = "measured overlay: forward"
		}
	case "g":
		m.showMeasured = !m.showMeasured
	case "w":
		m.sess.Settings.SmoothEnabled = !m.sess.Settings.SmoothEnabled
		if err := m.sess.ReprocessMeasured(); err != nil && !isSingular(err) {
			m.sess.Settings.SmoothEnabled = !m.sess.Settings.SmoothEnabled
			m.status = err.Error()
		} else if m.sess.Settings.SmoothEnabled {
			m.status = fmt.Sprintf("phase smoothing on (window %d)", m.sess.Settings.SmoothWindow)
		} else {
			m.status = "phase smoothing off"
		}
	case "o":
		return m.openPrompt(promptLoadData, "data file", m.sess.Settings.DataFile)
	case "l":
		return m.openPrompt(promptLoadPreset, "load preset", m.sess.Settings.PresetFile)
	case "s":
		return m.openPrompt(promptSavePreset, "save preset", m.sess.Settings.PresetFile)
	case "n":
		return m.openPrompt(promptNote, "snapshot note", "")
	}
	return m, nil
}

func (m model) pickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.state = stateBlocks
	case "up", "k":
		if m.pickerCur > 0 {
			m.pickerCur--
		}
	case "down", "j":
		if m.pickerCur < len(m.picker)-1 {
			m.pickerCur++
		}
	case "enter", " ":
		item := m.picker[m.pickerCur]
		if item.typ != "" {
			if err := m.sess.AddBlock(item.typ); err != nil {
				m.status = err.Error()
			} else {
				m.cursor = m.sess.Compensator().Len() - 1
				m.paramCur = 0
				m.status = "added " + item.typ
			}
		} else {
			if err := m.sess.LoadBuiltin(item.preset); err != nil {
				m.status = err.Error()
			} else {
				m.cursor = 0
				m.paramCur = 0
				m.status = "loaded preset " + item.preset
			}
		}
		m.state = stateBlocks
		m.refresh()
	}
	return m, nil
}

func (m model) promptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.commitPrompt()
		m.state = stateBlocks
		m.refresh()
		return m, nil
	case "esc":
		m.state = stateBlocks
		m.status = ""
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *model) commitPrompt() {
	value := m.input.Value()
	switch m.prompt {
	case promptLoadData:
		err := m.sess.LoadMeasured(value)
		switch {
		case err == nil:
			m.showMeasured = true
			m.status = fmt.Sprintf("loaded %s (%d points)", value, len(m.sess.Measured.FreqHz))
		case isSingular(err):
			m.showMeasured = true
			m.status = fmt.Sprintf("loaded %s; zero-magnitude points excluded from the inverse", value)
		default:
			m.status = err.Error()
		}
	case promptLoadPreset:
		if err := m.sess.LoadPreset(value); err != nil {
			m.status = err.Error()
		} else {
			m.cursor = 0
			m.paramCur = 0
			m.status = "loaded " + value
		}
	case promptSavePreset:
		if err := m.sess.SavePreset(value); err != nil {
			m.status = err.Error()
		} else {
			m.status = "saved " + value
		}
	case promptNote:
		if _, err := m.sess.LogSnapshot(value); err != nil {
			m.status = err.Error()
		} else {
			m.status = "snapshot logged to " + m.sess.Settings.LogFile
		}
	}
	m.prompt = promptNone
}

func (m *model) openPicker() {
	m.picker = m.picker[:0]
	for _, t := range m.sess.Registry().Types() {
		m.picker = append(m.picker, pickItem{typ: t})
	}
	for _, p := range preset.ListBuiltins() {
		m.picker = append(m.picker, pickItem{preset: p})
	}
	m.pickerCur = 0
	m.state = statePicker
}

func (m model) openPrompt(kind promptKind, label, value string) (tea.Model, tea.Cmd) {
	ti := textinput.New()
	ti.Prompt = label + ": "
	ti.SetValue(value)
	ti.CharLimit = 128
	ti.Width = 48
	ti.Focus()
	m.input = ti
	m.prompt = kind
	m.state = statePrompt
	return m, textinput.Blink
}

func (m *model) cycleParam(dir int) {
	blocks := m.sess.Compensator().Blocks()
	if m.cursor >= len(blocks) {
		return
	}
	n := len(blocks[m.cursor].Block.Schema())
	if n == 0 {
		return
	}
	m.paramCur = (m.paramCur + dir + n) % n
}

func (m *model) adjustParam(dir float64, coarse bool) {
	blocks := m.sess.Compensator().Blocks()
	if m.cursor >= len(blocks) {
		return
	}
	in := blocks[m.cursor]
	specs := in.Block.Schema()
	if m.paramCur >= len(specs) {
		m.paramCur = 0
	}
	sp := specs[m.paramCur]
	cur := in.Params[sp.Name]

	var next float64
	if sp.Scale == block.ScaleLog {
		factor := 1.02
		if coarse {
			factor = 1.2
		}
		if dir < 0 {
			factor = 1 / factor
		}
		next = cur * factor
	} else {
		step := (sp.Max - sp.Min) / 200
		if coarse {
			step = (sp.Max - sp.Min) / 20
		}
		next = cur + dir*step
	}
	if next < sp.Min {
		next = sp.Min
	}
	if next > sp.Max {
		next = sp.Max
	}
	if next == cur {
		return
	}
	if err := m.sess.SetParam(m.cursor, sp.Name, next); err != nil {
		m.status = err.Error()
		return
	}
	m.status = fmt.Sprintf("%s.%s = %.4g%s", in.Type(), sp.Name, next, sp.Unit)
	m.refresh()
}

func (m *model) removeBlock() {
	if m.sess.Compensator().Len() == 0 {
		return
	}
	name := m.sess.Compensator().Blocks()[m.cursor].Type()
	if err := m.sess.RemoveBlock(m.cursor); err != nil {
		m.status = err.Error()
		return
	}
	m.status = "removed " + name
	m.clampCursor()
	m.refresh()
}

func (m *model) toggleBlock() {
	if m.sess.Compensator().Len() == 0 {
		return
	}
	if err := m.sess.ToggleEnabled(m.cursor); err != nil {
		m.status = err.Error()
		return
	}
	in := m.sess.Compensator().Blocks()[m.cursor]
	if in.Enabled {
		m.status = "enabled " + in.Type()
	} else {
		m.status = "disabled " + in.Type()
	}
	m.refresh()
}

func (m *model) moveBlock(dir int) {
	to := m.cursor + dir
	if to < 0 || to >= m.sess.Compensator().Len() {
		return
	}
	if err := m.sess.MoveBlock(m.cursor, to); err != nil {
		m.status = err.Error()
		return
	}
	m.cursor = to
	m.refresh()
}

func (m *model) clampCursor() {
	if n := m.sess.Compensator().Len(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.paramCur = 0
}

// refresh re-evaluates the cached curves and report after any change to
// the cascade or settings.
func (m *model) refresh() {
	var err error
	m.cur, err = m.sess.CurrentCurve()
	m.warn = ""
	if isSingular(err) {
		m.warn = "undamped resonance sits on a grid point; flagged points plot as gaps"
	}
	m.ref, _ = m.sess.ReferenceCurve()
	m.rows, _ = m.sess.ReportRows()
	m.markerPhases, _ = m.sess.PhaseAt(m.sess.Settings.MarkerFreqsHz)
}

func isSingular(err error) bool {
	var se *block.SingularityError
	return errors.As(err, &se)
}
