package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	NextTab  key.Binding
	PrevTab  key.Binding
	Up       key.Binding
	Down     key.Binding
	Refresh  key.Binding
	New      key.Binding
	Edit     key.Binding
	Delete   key.Binding
	Approve  key.Binding
	Reject   key.Binding
	Cancel   key.Binding
	Filter   key.Binding
	PrevYear key.Binding
	NextYear key.Binding
	Import   key.Binding
	Export   key.Binding
	Balances key.Binding
	Search   key.Binding
	Location key.Binding
	Shift    key.Binding
	WeekOff  key.Binding
	Prune    key.Binding
	Reset    key.Binding
	SignIn   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		NextTab:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next tab")),
		PrevTab:  key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "prev tab")),
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		New:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Delete:   key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Approve:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "approve")),
		Reject:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "reject")),
		Cancel:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cancel leave")),
		Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "status filter")),
		PrevYear: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev year")),
		NextYear: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next year")),
		Import:   key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import")),
		Export:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		Balances: key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "balances")),
		Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		Location: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "assign location")),
		Shift:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "assign shift")),
		WeekOff:  key.NewBinding(key.WithKeys("W"), key.WithHelp("W", "assign week-off")),
		Prune:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prune log")),
		Reset:    key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "reset local data")),
		SignIn:   key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "sign in")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// dialogKeyMap is active while a form or detail dialog has focus.
type dialogKeyMap struct {
	Submit    key.Binding
	Close     key.Binding
	NextField key.Binding
	PrevField key.Binding
	Delete    key.Binding
	Detail    key.Binding
}

func defaultDialogKeys() dialogKeyMap {
	return dialogKeyMap{
		Submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
		Close:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		NextField: key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		PrevField: key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Delete:    key.NewBinding(key.WithKeys("ctrl+d"), key.WithHelp("ctrl+d", "delete")),
		Detail:    key.NewBinding(key.WithKeys("ctrl+e"), key.WithHelp("ctrl+e", "employee details")),
	}
}

// tabHelp lists the bindings shown in the footer for a tab.
func (k keyMap) tabHelp(t tab) []key.Binding {
	common := []key.Binding{k.NextTab, k.Refresh, k.Help, k.Quit}
	switch t {
	case tabOrganizations, tabLeaveTypes:
		return append([]key.Binding{k.New, k.Edit, k.Delete}, common...)
	case tabHolidays:
		return append([]key.Binding{k.New, k.Edit, k.Delete, k.PrevYear, k.NextYear, k.Import, k.Export}, common...)
	case tabApplications:
		return append([]key.Binding{k.New, k.Approve, k.Reject, k.Cancel, k.Filter, k.Balances, k.Export}, common...)
	case tabEmployees:
		return append([]key.Binding{k.Edit, k.Search, k.Balances, k.Location, k.Shift, k.WeekOff}, common...)
	case tabAssignments:
		return append([]key.Binding{k.Edit, k.Location, k.Shift, k.WeekOff}, common...)
	case tabActivity:
		return append([]key.Binding{k.Prune, k.Reset}, common...)
	}
	return common
}
