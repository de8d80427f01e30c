package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/attendly/hrdesk/internal/modal"
)

// Every dialog the console can show. Each is registered once with the
// coordinator; its content is rebuilt each time it opens.
const (
	dlgSignIn      modal.DialogID = "sign-in"
	dlgOrgForm     modal.DialogID = "organization-form"
	dlgHolidayForm modal.DialogID = "holiday-form"
	dlgTypeForm    modal.DialogID = "leave-type-form"
	dlgConfirm     modal.DialogID = "confirm"
	dlgDecision    modal.DialogID = "leave-decision"
	dlgBalances    modal.DialogID = "leave-balances"
	dlgApplyLeave  modal.DialogID = "apply-leave"
	dlgAdjust      modal.DialogID = "balance-adjust"
	dlgAssign      modal.DialogID = "assign"
	dlgEmployee    modal.DialogID = "employee-detail"
	dlgPath        modal.DialogID = "file-path"
	dlgSearch      modal.DialogID = "employee-search"
	dlgHelp        modal.DialogID = "help"
)

var allDialogs = []modal.DialogID{
	dlgSignIn, dlgOrgForm, dlgHolidayForm, dlgTypeForm, dlgConfirm, dlgDecision,
	dlgBalances, dlgApplyLeave, dlgAdjust, dlgAssign, dlgEmployee, dlgPath, dlgSearch, dlgHelp,
}

type field struct {
	key   string
	label string
	input textinput.Model
}

// dialog is the content of one open dialog: a form when it has fields,
// a read-only panel otherwise.
type dialog struct {
	title  string
	fields []field
	focus  int
	lines  []string
	hint   string
	err    string
	// submit runs on enter in a form.
	submit func(vals map[string]string) tea.Cmd
	// keys handles dialog-specific keys; it reports whether it consumed msg.
	keys func(msg tea.KeyMsg) (tea.Cmd, bool)
	// onClose runs instead of a plain close on esc.
	onClose func() tea.Cmd
}

func newField(key, label, value, placeholder string) field {
	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = placeholder
	in.CharLimit = 256
	in.Width = 36
	_ = in.Cursor.SetMode(cursor.CursorStatic)
	in.SetValue(value)
	return field{key: key, label: label, input: in}
}

func secretField(key, label string) field {
	f := newField(key, label, "", "paste token")
	f.input.EchoMode = textinput.EchoPassword
	f.input.CharLimit = 4096
	return f
}

func (d *dialog) values() map[string]string {
	out := make(map[string]string, len(d.fields))
	for _, f := range d.fields {
		out[f.key] = strings.TrimSpace(f.input.Value())
	}
	return out
}

func (d *dialog) setFocus(i int) {
	if len(d.fields) == 0 {
		return
	}
	i = (i + len(d.fields)) % len(d.fields)
	for j := range d.fields {
		if j == i {
			d.fields[j].input.Focus()
		} else {
			d.fields[j].input.Blur()
		}
	}
	d.focus = i
}

// update routes a key to the dialog. Enter submits, tab moves between
// fields, and anything else goes to the focused input.
func (d *dialog) update(msg tea.KeyMsg, dk dialogKeyMap) (tea.Cmd, bool) {
	if d.keys != nil {
		if cmd, ok := d.keys(msg); ok {
			return cmd, true
		}
	}
	if len(d.fields) == 0 {
		return nil, false
	}
	switch {
	case key.Matches(msg, dk.Submit):
		if d.submit == nil {
			return nil, true
		}
		d.err = ""
		return d.submit(d.values()), true
	case key.Matches(msg, dk.NextField):
		d.setFocus(d.focus + 1)
		return nil, true
	case key.Matches(msg, dk.PrevField):
		d.setFocus(d.focus - 1)
		return nil, true
	}
	var cmd tea.Cmd
	d.fields[d.focus].input, cmd = d.fields[d.focus].input.Update(msg)
	return cmd, true
}

func (d *dialog) view(state modal.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.title))
	b.WriteString("\n\n")
	for _, line := range d.lines {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if len(d.lines) > 0 && len(d.fields) > 0 {
		b.WriteString("\n")
	}
	for i, f := range d.fields {
		label := labelStyle
		if i == d.focus {
			label = focusLabel
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, label.Render(f.label), f.input.View()))
		b.WriteString("\n")
	}
	if d.err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(d.err))
		b.WriteString("\n")
	}
	if d.hint != "" {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(d.hint))
	}
	style := dialogStyle
	if state == modal.Opening || state == modal.Closing {
		style = transitionStyle
	}
	return style.Render(strings.TrimRight(b.String(), "\n"))
}
