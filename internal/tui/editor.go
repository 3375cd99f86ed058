package tui

import (
	"errors"
	"fmt"
	"math"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/sanya94592-stack/ecu-editor/internal/codec"
	"github.com/sanya94592-stack/ecu-editor/internal/csvmap"
	"github.com/sanya94592-stack/ecu-editor/internal/ecuerr"
	"github.com/sanya94592-stack/ecu-editor/internal/logging"
	"github.com/sanya94592-stack/ecu-editor/internal/session"
	"github.com/sanya94592-stack/ecu-editor/internal/validation"
)

// Screen identifies what the editor is showing
type Screen int

const (
	ScreenMaps Screen = iota
	ScreenGrid
)

// SaveFunc persists the session and returns a short description of what was
// written, e.g. the file name and checksum.
type SaveFunc func(s *session.Session) (string, error)

// Model is the interactive map editor. Cell edits are buffered in Pending
// and only reach the session when applied, so the session sees whole-map
// edits exactly as the CLI and API do.
type Model struct {
	Session *session.Session
	Screen  Screen

	MapCursor int

	// Grid state
	Current  *codec.CalibrationMap // as decoded from the session
	Pending  codec.Matrix          // working copy with unapplied edits
	Row, Col int
	Editing  bool
	Input    textinput.Model

	Status string
	Err    error

	ConfirmQuit bool

	Width  int
	Height int

	Help      help.Model
	ListKeys  listKeyMap
	GridKeys  gridKeyMap
	InputKeys inputKeyMap

	save SaveFunc
}

// New creates an editor for a loaded session. save may be nil, in which case
// saving is disabled.
func New(s *session.Session, save SaveFunc) Model {
	input := textinput.New()
	input.Placeholder = "value"
	input.CharLimit = 24
	input.Width = 16
	input.Prompt = "› "
	input.PromptStyle = FocusedInputStyle

	return Model{
		Session:   s,
		Screen:    ScreenMaps,
		Input:     input,
		Width:     MinTerminalWidth,
		Height:    MinTerminalHeight,
		Help:      help.New(),
		ListKeys:  newListKeys(),
		GridKeys:  newGridKeys(),
		InputKeys: newInputKeys(),
		save:      save,
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.Editing {
			return m.updateInput(msg)
		}
		if m.Screen == ScreenGrid {
			return m.updateGrid(msg)
		}
		return m.updateList(msg)
	}

	if m.Editing {
		var cmd tea.Cmd
		m.Input, cmd = m.Input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	maps := m.Session.Maps()

	if !key.Matches(msg, m.ListKeys.Quit) {
		m.ConfirmQuit = false
	}

	switch {
	case key.Matches(msg, m.ListKeys.Quit):
		return m.quit()

	case key.Matches(msg, m.ListKeys.Up):
		if m.MapCursor > 0 {
			m.MapCursor--
		}

	case key.Matches(msg, m.ListKeys.Down):
		if m.MapCursor < len(maps)-1 {
			m.MapCursor++
		}

	case key.Matches(msg, m.ListKeys.Open):
		if len(maps) == 0 {
			return m, nil
		}
		if err := m.openMap(maps[m.MapCursor].Name); err != nil {
			m.setError(err)
			return m, nil
		}
		m.Screen = ScreenGrid

	case key.Matches(msg, m.ListKeys.Undo):
		m.undo()

	case key.Matches(msg, m.ListKeys.Save):
		return m.startSave()

	case key.Matches(msg, m.ListKeys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
	}
	return m, nil
}

func (m Model) updateGrid(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.GridKeys.Quit) {
		m.ConfirmQuit = false
	}

	switch {
	case key.Matches(msg, m.GridKeys.Quit):
		return m.quit()

	case key.Matches(msg, m.GridKeys.Up):
		if m.Row > 0 {
			m.Row--
		}
	case key.Matches(msg, m.GridKeys.Down):
		if m.Row < m.Pending.Rows()-1 {
			m.Row++
		}
	case key.Matches(msg, m.GridKeys.Left):
		if m.Col > 0 {
			m.Col--
		}
	case key.Matches(msg, m.GridKeys.Right):
		if m.Col < m.Pending.Cols()-1 {
			m.Col++
		}

	case key.Matches(msg, m.GridKeys.Edit):
		m.Editing = true
		m.Input.SetValue(m.formatCell(m.Pending[m.Row][m.Col]))
		m.Input.CursorEnd()
		return m, m.Input.Focus()

	case key.Matches(msg, m.GridKeys.Inc):
		m.setCell(m.Pending[m.Row][m.Col] + m.Current.Def.Factor)
	case key.Matches(msg, m.GridKeys.Dec):
		m.setCell(m.Pending[m.Row][m.Col] - m.Current.Def.Factor)

	case key.Matches(msg, m.GridKeys.Reset):
		m.Pending = m.Current.Values.Clone()
		m.Err = nil
		m.Status = "Discarded pending changes"

	case key.Matches(msg, m.GridKeys.Apply):
		m.apply()

	case key.Matches(msg, m.GridKeys.Undo):
		m.undo()

	case key.Matches(msg, m.GridKeys.Save):
		if m.Dirty() {
			m.Status = ""
			m.Err = errors.New("apply or discard pending changes before saving")
			return m, nil
		}
		return m.startSave()

	case key.Matches(msg, m.GridKeys.Back):
		if m.Dirty() {
			m.Status = ""
			m.Err = errors.New("apply (a) or discard (r) pending changes first")
			return m, nil
		}
		m.Screen = ScreenMaps
		m.Current = nil
		m.Pending = nil
		m.Err = nil

	case key.Matches(msg, m.GridKeys.Help):
		m.Help.ShowAll = !m.Help.ShowAll
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.InputKeys.Cancel):
		m.Editing = false
		m.Input.Blur()
		return m, nil

	case key.Matches(msg, m.InputKeys.Confirm):
		v, err := csvmap.ParseCell(m.Input.Value(), m.Row, m.Col)
		if err != nil {
			m.setError(err)
			return m, nil
		}
		if m.setCell(v) {
			m.Editing = false
			m.Input.Blur()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

// openMap decodes name from the session into a fresh working copy
func (m *Model) openMap(name string) error {
	cm, err := m.Session.DecodeMap(name)
	if err != nil {
		return err
	}
	m.Current = cm
	m.Pending = cm.Values.Clone()
	if m.Row >= m.Pending.Rows() {
		m.Row = 0
	}
	if m.Col >= m.Pending.Cols() {
		m.Col = 0
	}
	m.Err = nil
	m.Status = ""
	return nil
}

// setCell stores v at the cursor after snapping it to the raw grid and
// checking it against the map's bounds. It reports whether v was accepted.
func (m *Model) setCell(v float64) bool {
	def := m.Current.Def
	raw, rounded, ok := codec.ToRaw(v, def.Factor)
	if !ok {
		m.setError(&ecuerr.ValueOverflowError{Map: def.Name, Row: m.Row, Col: m.Col, Value: v, Raw: rounded})
		return false
	}
	v = float64(raw) * def.Factor
	if !validation.InBounds(v, def) {
		m.setError(&ecuerr.OutOfRangeError{Map: def.Name, Row: m.Row, Col: m.Col, Value: v, Min: def.Min, Max: def.Max})
		return false
	}
	m.Pending[m.Row][m.Col] = v
	m.Err = nil
	m.Status = ""
	return true
}

// apply hands the working copy to the session
func (m *Model) apply() {
	if !m.Dirty() {
		m.Status = "No pending changes"
		return
	}
	name := m.Current.Name()
	if err := m.Session.ApplyEdit(name, m.Pending); err != nil {
		m.setError(err)
		if ecuerr.IsValidationError(err) {
			all := validation.ValidateAll(m.Pending, m.Current.Def)
			m.Status = fmt.Sprintf("%d cell(s) rejected, nothing written", len(all))
		}
		return
	}
	if err := m.openMap(name); err != nil {
		m.setError(err)
		return
	}
	m.Status = fmt.Sprintf("Applied %s", name)
}

func (m *Model) undo() {
	rec, err := m.Session.Undo()
	if errors.Is(err, session.ErrNothingToUndo) {
		m.Err = nil
		m.Status = "Nothing to undo"
		return
	}
	if err != nil {
		m.setError(err)
		return
	}
	if m.Current != nil {
		if err := m.openMap(m.Current.Name()); err != nil {
			m.setError(err)
			return
		}
	}
	m.Status = "Undid edit to " + rec.Map
}

// startSave runs the SaveFunc inside Update. The session is only ever used
// from the update loop, never from a tea.Cmd goroutine.
func (m Model) startSave() (tea.Model, tea.Cmd) {
	if m.save == nil {
		m.Status = ""
		m.Err = errors.New("saving is disabled")
		return m, nil
	}
	summary, err := m.save(m.Session)
	if err != nil {
		m.setError(err)
		return m, nil
	}
	m.Err = nil
	m.Status = "Saved " + summary
	return m, nil
}

// quit exits, asking once more when the session has unsaved edits
func (m Model) quit() (tea.Model, tea.Cmd) {
	unsaved := m.Session.State() == session.StateEdited || m.Dirty()
	if unsaved && !m.ConfirmQuit {
		m.ConfirmQuit = true
		m.Err = nil
		m.Status = ""
		return m, nil
	}
	return m, tea.Quit
}

func (m *Model) setError(err error) {
	m.Status = ""
	m.Err = err
	logging.Debug("Editor error", zap.Error(err))
}

// Dirty reports whether the grid holds edits not yet applied to the session.
func (m Model) Dirty() bool {
	if m.Current == nil {
		return false
	}
	return !m.Pending.Equal(m.Current.Values, validation.Tolerance)
}

func (m Model) formatCell(v float64) string {
	d := csvmap.Decimals(m.Current.Def.Factor)
	return fmt.Sprintf("%.*f", d, roundTo(v, d))
}

// roundTo trims float noise such as 1.1500000000000001
func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
