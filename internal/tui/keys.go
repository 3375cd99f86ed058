package tui

import "github.com/charmbracelet/bubbles/key"

// listKeyMap is active on the map list screen
type listKeyMap struct {
	Up   key.Binding
	Down key.Binding
	Open key.Binding
	Undo key.Binding
	Save key.Binding
	Help key.Binding
	Quit key.Binding
}

func (k listKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Undo, k.Save, k.Help, k.Quit}
}

func (k listKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open},
		{k.Undo, k.Save, k.Help, k.Quit},
	}
}

// gridKeyMap is active while a map grid is shown
type gridKeyMap struct {
	Up    key.Binding
	Down  key.Binding
	Left  key.Binding
	Right key.Binding
	Edit  key.Binding
	Inc   key.Binding
	Dec   key.Binding
	Apply key.Binding
	Reset key.Binding
	Undo  key.Binding
	Save  key.Binding
	Back  key.Binding
	Help  key.Binding
	Quit  key.Binding
}

func (k gridKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Inc, k.Dec, k.Apply, k.Save, k.Back, k.Help}
}

func (k gridKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Edit, k.Inc, k.Dec, k.Reset},
		{k.Apply, k.Undo, k.Save},
		{k.Back, k.Help, k.Quit},
	}
}

// inputKeyMap is active while a cell value is being typed
type inputKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

func newListKeys() listKeyMap {
	return listKeyMap{
		Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Open: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "open map")),
		Undo: key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Save: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Help: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit: key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func newGridKeys() gridKeyMap {
	return gridKeyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Left:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "left")),
		Right: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "right")),
		Edit:  key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit cell")),
		Inc:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "step up")),
		Dec:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "step down")),
		Apply: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "apply")),
		Reset: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "discard")),
		Undo:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
		Save:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Back:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "maps")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func newInputKeys() inputKeyMap {
	return inputKeyMap{
		Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "set value")),
		Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}
