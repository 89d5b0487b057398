package tui

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/pkarhu/comptune/internal/block"
	"github.com/pkarhu/comptune/internal/config"
	"github.com/pkarhu/comptune/internal/session"
)

func newTestModel(t *testing.T) model {
	t.Helper()
	sess, err := session.New(config.DefaultSettings(), block.Default)
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	return newModel(sess)
}

func press(t *testing.T, m model, keys ...string) model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case "tab":
			msg = tea.KeyMsg{Type: tea.KeyTab}
		case "up":
			msg = tea.KeyMsg{Type: tea.KeyUp}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		case "left":
			msg = tea.KeyMsg{Type: tea.KeyLeft}
		case "right":
			msg = tea.KeyMsg{Type: tea.KeyRight}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		next, _ := m.Update(msg)
		m = next.(model)
	}
	return m
}

func almostEqual(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func TestAddBlockThroughPicker(t *testing.T) {
	m := newTestModel(t)

	m = press(t, m, "a")
	if m.state != statePicker {
		t.Fatalf("state after a = %d, want picker", m.state)
	}
	if len(m.picker) != 8 {
		t.Fatalf("picker has %d rows, want 4 block types + 4 presets", len(m.picker))
	}
	if m.picker[0].typ != "gain" {
		t.Errorf("first picker row = %+v, want gain", m.picker[0])
	}

	m = press(t, m, "enter")
	if m.state != stateBlocks {
		t.Fatalf("state after enter = %d, want blocks", m.state)
	}
	if got := m.sess.Compensator().Len(); got != 1 {
		t.Fatalf("cascade length = %d, want 1", got)
	}
	if typ := m.sess.Compensator().Blocks()[0].Type(); typ != "gain" {
		t.Errorf("added block type = %s", typ)
	}
	if !m.sess.History().CanUndo() {
		t.Error("add not undoable")
	}
}

func TestPickerLoadsBuiltinPreset(t *testing.T) {
	m := newTestModel(t)

	// Rows 0..3 are the block types, row 4 is the first builtin.
	m = press(t, m, "a", "down", "down", "down", "down")
	if got := m.picker[m.pickerCur].preset; got != "default" {
		t.Fatalf("picker row = %q, want the default preset", got)
	}
	m = press(t, m, "enter")
	if got := m.sess.Compensator().Len(); got != 5 {
		t.Fatalf("cascade length = %d, want 5", got)
	}
	if !strings.Contains(m.status, "default") {
		t.Errorf("status = %q", m.status)
	}
}

func TestPickerEscapeLeavesCascadeAlone(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "a", "esc")
	if m.state != stateBlocks {
		t.Fatalf("state = %d, want blocks", m.state)
	}
	if got := m.sess.Compensator().Len(); got != 0 {
		t.Errorf("cascade length = %d, want 0", got)
	}
}

func TestParamAdjustAndUndo(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "a", "enter")

	m = press(t, m, "right")
	got := m.sess.Compensator().Blocks()[0].Params["K"]
	if !almostEqual(got, 1.02, 1e-12) {
		t.Fatalf("K after fine step = %v, want 1.02", got)
	}

	m = press(t, m, "u")
	got = m.sess.Compensator().Blocks()[0].Params["K"]
	if !almostEqual(got, 1.0, 1e-12) {
		t.Fatalf("K after undo = %v, want 1", got)
	}
	if !strings.HasPrefix(m.status, "undo: set") {
		t.Errorf("status = %q", m.status)
	}

	m = press(t, m, "r")
	got = m.sess.Compensator().Blocks()[0].Params["K"]
	if !almostEqual(got, 1.02, 1e-12) {
		t.Fatalf("K after redo = %v, want 1.02", got)
	}
}

func TestToggleAndRemove(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "a", "enter", "e")
	if m.sess.Compensator().Blocks()[0].Enabled {
		t.Fatal("block still enabled after e")
	}
	m = press(t, m, "d")
	if got := m.sess.Compensator().Len(); got != 0 {
		t.Fatalf("cascade length after d = %d, want 0", got)
	}
}

func TestPromptOpensAndCancels(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "o")
	if m.state != statePrompt {
		t.Fatalf("state after o = %d, want prompt", m.state)
	}
	if got := m.input.Value(); got != m.sess.Settings.DataFile {
		t.Errorf("prompt preset value = %q, want %q", got, m.sess.Settings.DataFile)
	}
	m = press(t, m, "esc")
	if m.state != stateBlocks {
		t.Fatalf("state after esc = %d, want blocks", m.state)
	}
}

func TestSavePresetPrompt(t *testing.T) {
	m := newTestModel(t)
	path := filepath.Join(t.TempDir(), "p.json")
	m.sess.Settings.PresetFile = path

	m = press(t, m, "a", "enter", "s", "enter")
	if m.state != stateBlocks {
		t.Fatalf("state = %d, want blocks", m.state)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("preset file not written: %v", err)
	}
	if !strings.Contains(m.status, "saved") {
		t.Errorf("status = %q", m.status)
	}
}

func TestQuitCommand(t *testing.T) {
	m := newTestModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("q did not quit")
	}
	_ = next
}

func TestWindowSizeShrinksCharts(t *testing.T) {
	m := newTestModel(t)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 30})
	m = next.(model)
	if got := m.chartWidth(); got != 46 {
		t.Errorf("chart width = %d, want 46", got)
	}
	magH, phH := m.chartHeights()
	if magH != 7 || phH != 5 {
		t.Errorf("chart heights = %d,%d, want 7,5", magH, phH)
	}
}

func TestViewRendersMainSections(t *testing.T) {
	m := newTestModel(t)
	m = press(t, m, "a", "enter")

	v := m.View()
	for _, want := range []string{"comptune", "magnitude (dB)", "phase (deg)", "blocks", "gain"} {
		if !strings.Contains(v, want) {
			t.Errorf("view missing %q", want)
		}
	}
}
