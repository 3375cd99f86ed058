package tui

import (
	"encoding/binary"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/profile"
	"github.com/sanya94592-stack/ecu-editor/internal/session"
)

func testSession(t *testing.T) *session.Session {
	t.Helper()
	p := &profile.ECUProfile{
		Name:         "Test",
		Size:         64,
		ChecksumAddr: 56,
		Maps: []profile.MapDefinition{
			{Name: "Fuel", Offset: 0, Rows: 2, Cols: 2, Factor: 0.01, Min: 0.7, Max: 1.3, Unit: "x"},
			{Name: "Ignition", Offset: 16, Rows: 2, Cols: 3, Factor: 0.5, Min: 0, Max: 50, Unit: "deg"},
		},
	}
	image := make([]byte, p.Size)
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint16(image[i*2:], 100)
	}
	s, err := session.Load(image, p)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var (
	enter = tea.KeyMsg{Type: tea.KeyEnter}
	esc   = tea.KeyMsg{Type: tea.KeyEsc}
)

func send(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func TestOpenMap(t *testing.T) {
	m := New(testSession(t), nil)

	m, _ = send(t, m, runes("j"), runes("k"), enter)
	if m.Screen != ScreenGrid {
		t.Fatalf("Screen = %v, want grid", m.Screen)
	}
	if m.Current.Name() != "Fuel" {
		t.Errorf("opened %q, want Fuel", m.Current.Name())
	}
	if m.Pending[1][1] != 1.00 {
		t.Errorf("Pending[1][1] = %v, want 1.00", m.Pending[1][1])
	}
	if m.Dirty() {
		t.Error("freshly opened map should not be dirty")
	}
	if !strings.Contains(m.View(), "Fuel") {
		t.Error("grid view should name the map")
	}
}

func TestCursorStaysInGrid(t *testing.T) {
	m := New(testSession(t), nil)
	m, _ = send(t, m, enter, runes("h"), runes("k"))
	if m.Row != 0 || m.Col != 0 {
		t.Errorf("cursor = [%d,%d], want [0,0]", m.Row, m.Col)
	}
	m, _ = send(t, m, runes("l"), runes("l"), runes("l"), runes("j"), runes("j"))
	if m.Row != 1 || m.Col != 1 {
		t.Errorf("cursor = [%d,%d], want [1,1]", m.Row, m.Col)
	}
}

func TestStepAndApply(t *testing.T) {
	s := testSession(t)
	m := New(s, nil)

	m, _ = send(t, m, enter, runes("+"), runes("+"))
	if !m.Dirty() {
		t.Fatal("stepped map should be dirty")
	}
	if s.State() != session.StateLoaded {
		t.Fatalf("session changed before apply: %v", s.State())
	}

	m, _ = send(t, m, runes("a"))
	if m.Err != nil {
		t.Fatalf("apply error = %v", m.Err)
	}
	if m.Dirty() {
		t.Error("map should be clean after apply")
	}
	if s.State() != session.StateEdited {
		t.Errorf("session state = %v, want edited", s.State())
	}

	cm, err := s.DecodeMap("Fuel")
	if err != nil {
		t.Fatalf("DecodeMap() error = %v", err)
	}
	if cm.Values[0][0] < 1.019 || cm.Values[0][0] > 1.021 {
		t.Errorf("decoded [0,0] = %v, want 1.02", cm.Values[0][0])
	}
}

func TestEditCellRejectsUnsafeValue(t *testing.T) {
	m := New(testSession(t), nil)
	m, _ = send(t, m, enter, enter)
	if !m.Editing {
		t.Fatal("enter on grid should start editing")
	}

	m.Input.SetValue("1.5")
	m, _ = send(t, m, enter)
	if !ecuerr.IsOutOfRange(m.Err) {
		t.Errorf("Err = %v, want OutOfRangeError", m.Err)
	}
	if !m.Editing {
		t.Error("rejected value should keep the input open")
	}
	if m.Pending[0][0] != 1.00 {
		t.Errorf("Pending[0][0] = %v, want unchanged", m.Pending[0][0])
	}

	m.Input.SetValue("abc")
	m, _ = send(t, m, enter)
	if !ecuerr.IsParseError(m.Err) {
		t.Errorf("Err = %v, want ParseError", m.Err)
	}

	m.Input.SetValue("1.25")
	m, _ = send(t, m, enter)
	if m.Err != nil || m.Editing {
		t.Fatalf("valid value: Err = %v, Editing = %v", m.Err, m.Editing)
	}
	if m.Pending[0][0] < 1.249 || m.Pending[0][0] > 1.251 {
		t.Errorf("Pending[0][0] = %v, want 1.25", m.Pending[0][0])
	}

	m, _ = send(t, m, esc)
	if m.Screen != ScreenGrid || m.Err == nil {
		t.Error("leaving a dirty grid should be refused")
	}
	m, _ = send(t, m, runes("r"), esc)
	if m.Screen != ScreenMaps {
		t.Error("discard then esc should return to the map list")
	}
}

func TestEditCancel(t *testing.T) {
	m := New(testSession(t), nil)
	m, _ = send(t, m, enter, enter)
	m.Input.SetValue("1.1")
	m, _ = send(t, m, esc)
	if m.Editing || m.Dirty() {
		t.Errorf("cancel: Editing = %v, Dirty = %v", m.Editing, m.Dirty())
	}
}

func TestUndo(t *testing.T) {
	s := testSession(t)
	m := New(s, nil)

	m, _ = send(t, m, runes("u"))
	if m.Status != "Nothing to undo" {
		t.Errorf("Status = %q", m.Status)
	}

	m, _ = send(t, m, enter, runes("-"), runes("a"), runes("u"))
	if m.Err != nil {
		t.Fatalf("undo error = %v", m.Err)
	}
	if m.Pending[0][0] != 1.00 {
		t.Errorf("after undo Pending[0][0] = %v, want 1.00", m.Pending[0][0])
	}
	if len(s.History()) != 0 {
		t.Errorf("history length = %d, want 0", len(s.History()))
	}
}

func TestQuitAsksWhenUnsaved(t *testing.T) {
	m := New(testSession(t), nil)

	// nothing edited yet
	_, cmd := send(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("clean session should quit immediately")
	}

	m, _ = send(t, m, enter, runes("+"), runes("a"), esc)
	m, cmd = send(t, m, runes("q"))
	if cmd != nil || !m.ConfirmQuit {
		t.Fatal("first q with unsaved edits should ask for confirmation")
	}
	if !strings.Contains(m.View(), "Press q again") {
		t.Error("confirmation prompt not shown")
	}

	_, cmd = send(t, m, runes("q"))
	if cmd == nil {
		t.Fatal("second q should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("second q should return tea.Quit")
	}
}

func TestSave(t *testing.T) {
	s := testSession(t)
	var saved []byte
	var stateDuringSave session.State
	m := New(s, func(s *session.Session) (string, error) {
		out, err := s.Finalize()
		saved = out
		stateDuringSave = s.State()
		return "test.bin", err
	})

	m, cmd := send(t, m, runes("s"))
	if cmd != nil {
		t.Fatal("save should complete inside Update without a command")
	}
	if m.Err != nil {
		t.Fatalf("save error = %v", m.Err)
	}
	if !strings.Contains(m.Status, "test.bin") {
		t.Errorf("Status = %q", m.Status)
	}
	if len(saved) != 64 || stateDuringSave != session.StateSaved || s.State() != session.StateSaved {
		t.Errorf("save did not finalize: len %d, state %v", len(saved), s.State())
	}

	// the session is settled before the next message, so rendering is safe
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	out := m.View()
	if !strings.Contains(out, "state: saved") {
		t.Error("view should show the saved state right after saving")
	}
	// field 56 lies inside the summed region of a 64-byte image
	if !strings.Contains(out, "not verifiable") || strings.Contains(out, "checksum stale") {
		t.Error("view should not report a checksum field inside the summed region as stale")
	}
}

func TestSaveError(t *testing.T) {
	m := New(testSession(t), func(*session.Session) (string, error) {
		return "", errors.New("disk full")
	})
	m, cmd := send(t, m, runes("s"))
	if cmd != nil || m.Err == nil {
		t.Errorf("save error not surfaced: Err = %v", m.Err)
	}
}

func TestSaveDisabled(t *testing.T) {
	m := New(testSession(t), nil)
	m, cmd := send(t, m, runes("s"))
	if cmd != nil || m.Err == nil {
		t.Error("save without SaveFunc should report an error")
	}
}

func TestListView(t *testing.T) {
	m := New(testSession(t), nil)
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	out := m.View()
	for _, want := range []string{"Fuel", "Ignition", "Profile Test", "state: loaded"} {
		if !strings.Contains(out, want) {
			t.Errorf("list view missing %q", want)
		}
	}
}
