package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/attendly/hrdesk/internal/hrapi"
	"github.com/attendly/hrdesk/internal/modal"
)

func (a *App) install(id modal.DialogID, d *dialog) {
	d.setFocus(0)
	a.dialogs[id] = d
	a.tk.mount(id)
}

func (a *App) openDialog(id modal.DialogID, d *dialog) tea.Cmd {
	a.install(id, d)
	if err := a.coord.Open(id); err != nil {
		return a.handleErr(err)
	}
	return nil
}

func (a *App) closeDialog(id modal.DialogID) tea.Cmd {
	if err := a.coord.Close(id); err != nil {
		return a.handleErr(err)
	}
	return nil
}

// switchDialog replaces from with to. A nil d keeps to's previous content.
func (a *App) switchDialog(from, to modal.DialogID, d *dialog) tea.Cmd {
	if d != nil {
		a.install(to, d)
	}
	if err := a.coord.Switch(from, to, 0); err != nil {
		return a.handleErr(err)
	}
	return nil
}

// switchForward switches to a nested dialog that returns to from when it
// is dismissed.
func (a *App) switchForward(from, to modal.DialogID, d *dialog) tea.Cmd {
	a.returnTo[to] = from
	return a.switchDialog(from, to, d)
}

// dismiss closes id, or switches back to the dialog it was reached from.
func (a *App) dismiss(id modal.DialogID) tea.Cmd {
	if back, ok := a.returnTo[id]; ok {
		delete(a.returnTo, id)
		return a.switchDialog(id, back, a.rebuild(back))
	}
	return a.closeDialog(id)
}

// rebuild refreshes read-only dialogs before they are shown again. Forms
// keep what the user typed.
func (a *App) rebuild(id modal.DialogID) *dialog {
	switch id {
	case dlgBalances:
		return a.balancesDialog()
	case dlgEmployee:
		return a.employeeDialog(a.detailFor)
	}
	return nil
}

// confirm stacks a yes/no dialog over whatever is showing.
func (a *App) confirm(title, message string, yes tea.Cmd) tea.Cmd {
	d := &dialog{title: title, lines: []string{message}, hint: "y confirm · n/esc cancel"}
	d.keys = func(m tea.KeyMsg) (tea.Cmd, bool) {
		switch m.String() {
		case "y", "Y":
			return yes, true
		case "n", "N":
			return a.closeDialog(dlgConfirm), true
		}
		return nil, false
	}
	return a.openDialog(dlgConfirm, d)
}

func formHint(editing bool) string {
	if editing {
		return "enter save · tab next field · ctrl+d delete · esc cancel"
	}
	return "enter save · tab next field · esc cancel"
}

// onDelete binds ctrl+d in an edit form.
func (a *App) onDelete(fn func() tea.Cmd) func(tea.KeyMsg) (tea.Cmd, bool) {
	return func(m tea.KeyMsg) (tea.Cmd, bool) {
		if key.Matches(m, a.dkeys.Delete) {
			return fn(), true
		}
		return nil, false
	}
}

func (a *App) openOrgForm(o hrapi.Organization) tea.Cmd {
	editing := o.ID != ""
	title := "New organization"
	if editing {
		title = "Edit organization"
	}
	d := &dialog{
		title: title,
		fields: []field{
			newField("name", "Name", o.Name, "Acme Industries"),
			newField("code", "Code", o.Code, "ACME"),
			newField("timezone", "Timezone", o.Timezone, "Asia/Kolkata"),
		},
		hint: formHint(editing),
	}
	d.submit = func(v map[string]string) tea.Cmd {
		next := o
		next.Name, next.Code, next.Timezone = v["name"], v["code"], v["timezone"]
		if next.Timezone != "" {
			if _, err := time.LoadLocation(next.Timezone); err != nil {
				d.err = fmt.Sprintf("unknown timezone %q", next.Timezone)
				return nil
			}
		}
		return a.do(job{
			dialogs: []modal.DialogID{dlgOrgForm},
			ok:      "organization saved",
			run: func(ctx context.Context) error {
				_, err := a.svc.Organizations.Save(ctx, next)
				return err
			},
			reload: []tea.Cmd{a.loadOrgs()},
		})
	}
	if editing {
		d.keys = a.onDelete(func() tea.Cmd { return a.confirmDeleteOrg(o, dlgOrgForm) })
	}
	return a.openDialog(dlgOrgForm, d)
}

func (a *App) openHolidayForm(h hrapi.Holiday) tea.Cmd {
	editing := h.ID != ""
	title := "New holiday"
	if editing {
		title = "Edit holiday"
	}
	loc := ""
	if h.LocationID != "" {
		loc = a.locationName(h.LocationID)
	}
	d := &dialog{
		title: title,
		fields: []field{
			newField("name", "Name", h.Name, "Independence Day"),
			newField("date", "Date", h.Date.String(), "YYYY-MM-DD"),
			newField("optional", "Optional", yesNo(h.Optional), "yes/no"),
			newField("location", "Location", loc, "blank for all locations"),
		},
		hint: formHint(editing),
	}
	d.submit = func(v map[string]string) tea.Cmd {
		date, err := hrapi.ParseDate(v["date"])
		if err != nil {
			d.err = "date: use YYYY-MM-DD"
			return nil
		}
		next := h
		next.Name, next.Date, next.Optional, next.LocationID = v["name"], date, truthy(v["optional"]), ""
		if v["location"] != "" {
			id, _, ok := a.targetByRef(hrapi.KindLocation, v["location"])
			if !ok {
				d.err = fmt.Sprintf("unknown location %q", v["location"])
				return nil
			}
			next.LocationID = id
		}
		return a.do(job{
			dialogs: []modal.DialogID{dlgHolidayForm},
			ok:      "holiday saved",
			run: func(ctx context.Context) error {
				_, err := a.svc.Holidays.Save(ctx, next)
				return err
			},
			reload: []tea.Cmd{a.loadHolidays()},
		})
	}
	if editing {
		d.keys = a.onDelete(func() tea.Cmd { return a.confirmDeleteHoliday(h, dlgHolidayForm) })
	}
	return a.openDialog(dlgHolidayForm, d)
}

func (a *App) openTypeForm(t hrapi.LeaveType) tea.Cmd {
	editing := t.ID != ""
	title := "New leave type"
	if editing {
		title = "Edit leave type"
	}
	d := &dialog{
		title: title,
		fields: []field{
			newField("name", "Name", t.Name, "Casual leave"),
			newField("code", "Code", t.Code, "CL"),
			newField("quota", "Annual quota", fmtDays(t.AnnualQuota), "12"),
			newField("paid", "Paid", yesNo(t.IsPaid), "yes/no"),
			newField("doc", "Needs document", yesNo(t.RequiresDoc), "yes/no"),
		},
		hint: formHint(editing),
	}
	d.submit = func(v map[string]string) tea.Cmd {
		quota, err := strconv.ParseFloat(v["quota"], 64)
		if err != nil {
			d.err = "annual quota must be a number"
			return nil
		}
		next := t
		next.Name, next.Code, next.AnnualQuota = v["name"], v["code"], quota
		next.IsPaid, next.RequiresDoc = truthy(v["paid"]), truthy(v["doc"])
		return a.do(job{
			dialogs: []modal.DialogID{dlgTypeForm},
			ok:      "leave type saved",
			run: func(ctx context.Context) error {
				_, err := a.svc.Leave.SaveType(ctx, next)
				return err
			},
			reload: []tea.Cmd{a.loadLeaveTypes()},
		})
	}
	if editing {
		d.keys = a.onDelete(func() tea.Cmd { return a.confirmDeleteType(t, dlgTypeForm) })
	}
	return a.openDialog(dlgTypeForm, d)
}

func (a *App) openDecision(l hrapi.LeaveApplication, approve bool) tea.Cmd {
	title, label, ok := "Reject leave", "Reason", "leave rejected"
	if approve {
		title, label, ok = "Approve leave", "Note", "leave approved"
	}
	d := &dialog{
		title: title,
		lines: []string{
			labelStyle.Render("Employee") + a.employeeLabel(l.EmployeeID, l.EmployeeName),
			labelStyle.Render("Type") + a.leaveTypeName(l.LeaveTypeID),
			labelStyle.Render("Dates") + fmt.Sprintf("%s to %s (%s day(s))", a.fmtDate(l.StartDate), a.fmtDate(l.EndDate), fmtDays(l.Days)),
			labelStyle.Render("Reason") + l.Reason,
		},
		fields: []field{newField("note", label, "", "")},
		hint:   "enter confirm · esc cancel",
	}
	d.submit = func(v map[string]string) tea.Cmd {
		note := v["note"]
		return a.do(job{
			dialogs: []modal.DialogID{dlgDecision},
			ok:      ok,
			run: func(ctx context.Context) error {
				var err error
				if approve {
					_, err = a.svc.Leave.Approve(ctx, l.ID, note)
				} else {
					_, err = a.svc.Leave.Reject(ctx, l.ID, note)
				}
				return err
			},
			reload: []tea.Cmd{a.loadApps()},
		})
	}
	return a.openDialog(dlgDecision, d)
}

func (a *App) openApplyLeave() tea.Cmd {
	delete(a.returnTo, dlgApplyLeave)
	return a.openDialog(dlgApplyLeave, a.applyDialog(hrapi.Employee{}))
}

func (a *App) applyDialog(e hrapi.Employee) *dialog {
	today := a.today().String()
	d := &dialog{
		title: "Apply leave",
		fields: []field{
			newField("employee", "Employee", e.Code, "employee code"),
			newField("type", "Leave type", "", "CL"),
			newField("from", "From", today, "YYYY-MM-DD"),
			newField("to", "To", today, "YYYY-MM-DD"),
			newField("startHalf", "Half day start", "no", "yes/no"),
			newField("endHalf", "Half day end", "no", "yes/no"),
			newField("reason", "Reason", "", ""),
		},
		hint: "enter submit · tab next field · esc back",
	}
	d.submit = func(v map[string]string) tea.Cmd {
		emp, ok := a.employeeByRef(v["employee"])
		if !ok {
			d.err = fmt.Sprintf("unknown employee %q", v["employee"])
			return nil
		}
		lt, ok := a.leaveTypeByRef(v["type"])
		if !ok {
			d.err = fmt.Sprintf("unknown leave type %q", v["type"])
			return nil
		}
		from, err := hrapi.ParseDate(v["from"])
		if err != nil {
			d.err = "from: use YYYY-MM-DD"
			return nil
		}
		to := from
		if v["to"] != "" {
			if to, err = hrapi.ParseDate(v["to"]); err != nil {
				d.err = "to: use YYYY-MM-DD"
				return nil
			}
		}
		in := hrapi.LeaveApplicationInput{
			EmployeeID:  emp.ID,
			LeaveTypeID: lt.ID,
			StartDate:   from,
			EndDate:     to,
			StartHalf:   truthy(v["startHalf"]),
			EndHalf:     truthy(v["endHalf"]),
			Reason:      v["reason"],
		}
		return a.do(job{
			dialogs: []modal.DialogID{dlgApplyLeave},
			ok:      "leave request submitted for " + emp.Name,
			run: func(ctx context.Context) error {
				_, err := a.svc.Leave.Apply(ctx, in)
				return err
			},
			reload: []tea.Cmd{a.loadApps(), a.loadBalances(emp)},
		})
	}
	return d
}

func (a *App) adjustDialog(e hrapi.Employee) *dialog {
	d := &dialog{
		title: "Adjust balance",
		lines: []string{labelStyle.Render("Employee") + fmt.Sprintf("%s (%s)", e.Name, e.Code)},
		fields: []field{
			newField("type", "Leave type", "", "CL"),
			newField("amount", "Days (+/-)", "", "1.5"),
			newField("reason", "Reason", "", "carry forward"),
		},
		hint: "enter apply · esc back",
	}
	d.submit = func(v map[string]string) tea.Cmd {
		lt, ok := a.leaveTypeByRef(v["type"])
		if !ok {
			d.err = fmt.Sprintf("unknown leave type %q", v["type"])
			return nil
		}
		amount, err := strconv.ParseFloat(v["amount"], 64)
		if err != nil {
			d.err = "days must be a number"
			return nil
		}
		adj := hrapi.BalanceAdjustment{EmployeeID: e.ID, LeaveTypeID: lt.ID, Amount: amount, Reason: v["reason"]}
		return a.do(job{
			dialogs: []modal.DialogID{dlgAdjust},
			ok:      fmt.Sprintf("%s balance adjusted by %+g", lt.Code, amount),
			run: func(ctx context.Context) error {
				_, err := a.svc.Leave.Adjust(ctx, adj)
				return err
			},
			reload: []tea.Cmd{a.loadBalances(e)},
		})
	}
	return d
}

func (a *App) openBalances(e hrapi.Employee) tea.Cmd {
	a.resetBalances(e)
	delete(a.returnTo, dlgBalances)
	return tea.Batch(a.openDialog(dlgBalances, a.balancesDialog()), a.loadBalances(e))
}

func (a *App) resetBalances(e hrapi.Employee) {
	a.balanceFor, a.balances = e, nil
	a.balancesReady, a.balancesStale = false, false
}

func (a *App) balancesDialog() *dialog {
	e := a.balanceFor
	d := &dialog{
		title: "Leave balance · " + e.Name,
		lines: a.balanceLines(),
		hint:  "a apply leave · j adjust · p save PDF · esc close",
	}
	d.keys = func(m tea.KeyMsg) (tea.Cmd, bool) {
		switch m.String() {
		case "a":
			return a.switchForward(dlgBalances, dlgApplyLeave, a.applyDialog(e)), true
		case "j":
			return a.switchForward(dlgBalances, dlgAdjust, a.adjustDialog(e)), true
		case "p":
			def := fmt.Sprintf("leave-balance-%s.pdf", strings.ToLower(e.Code))
			return a.openPath("Save balance report", def, func(path string) tea.Cmd { return a.exportBalances(e, path) }), true
		}
		return nil, false
	}
	return d
}

func (a *App) balanceLines() []string {
	lines := []string{hintStyle.Render(strings.TrimSpace(a.balanceFor.Code + " " + a.balanceFor.Department))}
	switch {
	case !a.balancesReady:
		return append(lines, "loading...")
	case len(a.balances) == 0:
		return append(lines, "No leave balances on record.")
	}
	lines = append(lines, fmt.Sprintf("%-18s %8s %6s %8s %10s", "Type", "Entitled", "Used", "Pending", "Available"))
	for _, b := range a.balances {
		name := b.LeaveTypeName
		if name == "" {
			name = a.leaveTypeName(b.LeaveTypeID)
		}
		lines = append(lines, fmt.Sprintf("%-18.18s %8s %6s %8s %10s",
			name, fmtDays(b.Entitled), fmtDays(b.Used), fmtDays(b.Pending), fmtDays(b.Available)))
	}
	if a.balancesStale {
		lines = append(lines, staleStyle.Render("offline · cached balances"))
	}
	return lines
}

func (a *App) openEmployee(e hrapi.Employee) tea.Cmd {
	a.detailFor = e
	delete(a.returnTo, dlgEmployee)
	return a.openDialog(dlgEmployee, a.employeeDialog(e))
}

func (a *App) employeeDialog(e hrapi.Employee) *dialog {
	status := "active"
	if !e.Active {
		status = "inactive"
	}
	row := func(label, value string) string { return labelStyle.Render(label) + value }
	d := &dialog{
		title: e.Name,
		lines: []string{
			row("Code", e.Code),
			row("Email", e.Email),
			row("Department", e.Department),
			row("Designation", e.Designation),
			row("Location", a.locationName(e.LocationID)),
			row("Shift", a.shiftName(e.ShiftID)),
			row("Week-off", a.policyName(e.WeekOffPolicyID)),
			row("Status", status),
		},
		hint: "b leave balance · esc close",
	}
	d.keys = func(m tea.KeyMsg) (tea.Cmd, bool) {
		if m.String() != "b" {
			return nil, false
		}
		a.resetBalances(e)
		return tea.Batch(a.switchForward(dlgEmployee, dlgBalances, a.balancesDialog()), a.loadBalances(e)), true
	}
	return d
}

func (a *App) openAssign(kind hrapi.AssignmentKind, employees, target string) tea.Cmd {
	delete(a.returnTo, dlgAssign)
	return a.openDialog(dlgAssign, a.assignDialog(kind, employees, target))
}

func (a *App) assignDialog(kind hrapi.AssignmentKind, employees, target string) *dialog {
	d := &dialog{
		title: "Assign " + string(kind),
		fields: []field{
			newField("employees", "Employees", employees, "E001, E002"),
			newField("target", strings.ToUpper(string(kind[:1]))+string(kind[1:]), target, "name"),
			newField("from", "Effective from", a.today().String(), "YYYY-MM-DD"),
		},
		hint: "enter assign · ctrl+e employee details · esc cancel",
	}
	d.keys = func(m tea.KeyMsg) (tea.Cmd, bool) {
		if !key.Matches(m, a.dkeys.Detail) {
			return nil, false
		}
		refs := splitRefs(d.values()["employees"])
		if len(refs) == 0 {
			d.err = "enter an employee code first"
			return nil, true
		}
		e, ok := a.employeeByRef(refs[0])
		if !ok {
			d.err = fmt.Sprintf("unknown employee %q", refs[0])
			return nil, true
		}
		a.detailFor = e
		return a.switchForward(dlgAssign, dlgEmployee, a.employeeDialog(e)), true
	}
	d.submit = func(v map[string]string) tea.Cmd {
		refs := splitRefs(v["employees"])
		if len(refs) == 0 {
			d.err = "at least one employee is required"
			return nil
		}
		ids := make([]string, 0, len(refs))
		for _, ref := range refs {
			e, ok := a.employeeByRef(ref)
			if !ok {
				d.err = fmt.Sprintf("unknown employee %q", ref)
				return nil
			}
			ids = append(ids, e.ID)
		}
		targetID, name, ok := a.targetByRef(kind, v["target"])
		if !ok {
			d.err = fmt.Sprintf("unknown %s %q", kind, v["target"])
			return nil
		}
		from, err := hrapi.ParseDate(v["from"])
		if err != nil {
			d.err = "effective from: use YYYY-MM-DD"
			return nil
		}
		req := hrapi.AssignRequest{EmployeeIDs: ids, TargetID: targetID, EffectiveFrom: from}
		return a.do(job{
			dialogs: []modal.DialogID{dlgAssign},
			ok:      fmt.Sprintf("%s %s assigned to %d employee(s)", kind, name, len(ids)),
			run: func(ctx context.Context) error {
				_, err := a.svc.Assignments.Assign(ctx, kind, req)
				return err
			},
			reload: []tea.Cmd{a.loadEmployees(), a.loadTargets()},
		})
	}
	return d
}

func (a *App) openSignIn() tea.Cmd {
	if a.isVisible(dlgSignIn) {
		return nil
	}
	d := &dialog{
		title:  "Sign in",
		lines:  []string{"Paste a bearer token issued by the HR backend."},
		fields: []field{secretField("token", "Token")},
		hint:   "enter sign in · esc cancel",
	}
	if !a.session.Persistent() {
		d.lines = append(d.lines, hintStyle.Render("The token is kept for this session only."))
	}
	d.submit = func(v map[string]string) tea.Cmd {
		tok := v["token"]
		if tok == "" {
			d.err = "token is required"
			return nil
		}
		return a.do(job{
			dialogs: []modal.DialogID{dlgSignIn},
			ok:      "signed in",
			run: func(context.Context) error {
				_, err := a.session.SignIn(tok)
				return err
			},
			reload: []tea.Cmd{a.loadAll()},
		})
	}
	return a.openDialog(dlgSignIn, d)
}

func (a *App) openSearch() tea.Cmd {
	d := &dialog{
		title:  "Find employee",
		fields: []field{newField("q", "Name or code", a.search, "priya")},
		hint:   "enter filter · empty clears · esc cancel",
	}
	d.submit = func(v map[string]string) tea.Cmd {
		a.search = v["q"]
		a.table.SetCursor(0)
		if a.search == "" {
			a.setStatus("search cleared", false)
		} else {
			a.setStatus(fmt.Sprintf("%d match(es) for %q", len(a.visibleEmployees()), a.search), false)
		}
		return a.closeDialog(dlgSearch)
	}
	return a.openDialog(dlgSearch, d)
}

func (a *App) toggleHelp() tea.Cmd {
	if a.isVisible(dlgHelp) {
		return a.closeDialog(dlgHelp)
	}
	return a.openDialog(dlgHelp, a.helpDialog())
}

func (a *App) helpDialog() *dialog {
	bindings := append(a.keys.tabHelp(a.tab), a.keys.PrevTab, a.keys.SignIn)
	lines := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		lines = append(lines, fmt.Sprintf("%-10s %s", h.Key, h.Desc))
	}
	d := &dialog{title: a.tab.String() + " keys", lines: lines, hint: "? close"}
	d.keys = func(m tea.KeyMsg) (tea.Cmd, bool) {
		if key.Matches(m, a.keys.Help) {
			return a.closeDialog(dlgHelp), true
		}
		return nil, false
	}
	return d
}

// openPath asks for a file path and hands it to run.
func (a *App) openPath(title, def string, run func(path string) tea.Cmd) tea.Cmd {
	d := &dialog{
		title:  title,
		fields: []field{newField("path", "File", def, "holidays.xlsx")},
		hint:   "enter continue · esc cancel",
	}
	d.submit = func(v map[string]string) tea.Cmd {
		path := expandPath(v["path"])
		if path == "" {
			d.err = "file path is required"
			return nil
		}
		return run(path)
	}
	return a.openDialog(dlgPath, d)
}

func splitRefs(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "y", "yes", "true", "1":
		return true
	}
	return false
}
