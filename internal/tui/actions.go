package tui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/attendly/hrdesk/internal/export"
	"github.com/attendly/hrdesk/internal/hrapi"
	"github.com/attendly/hrdesk/internal/modal"
)

const pruneAfter = 30 * 24 * time.Hour

// job is a mutation started from one or more dialogs.
type job struct {
	dialogs []modal.DialogID
	ok      string
	run     func(ctx context.Context) error
	reload  []tea.Cmd
}

func (a *App) do(j job) tea.Cmd {
	return func() tea.Msg {
		if err := j.run(a.ctx); err != nil {
			return resultMsg{dialogs: j.dialogs, err: err}
		}
		return resultMsg{dialogs: j.dialogs, status: j.ok, next: tea.Batch(j.reload...)}
	}
}

// tabKey handles the current tab's action keys.
func (a *App) tabKey(m tea.KeyMsg) (tea.Cmd, bool) {
	k := a.keys
	id, hasRow := a.selected()
	switch a.tab {
	case tabOrganizations:
		o, found := find(a.orgs, func(o hrapi.Organization) bool { return hasRow && o.ID == id })
		switch {
		case key.Matches(m, k.New):
			return a.openOrgForm(hrapi.Organization{Timezone: a.cfg.UI.Timezone}), true
		case key.Matches(m, k.Edit) && found:
			return a.openOrgForm(o), true
		case key.Matches(m, k.Delete) && found:
			return a.confirmDeleteOrg(o, ""), true
		}

	case tabHolidays:
		h, found := find(a.holidays, func(h hrapi.Holiday) bool { return hasRow && h.ID == id })
		switch {
		case key.Matches(m, k.New):
			return a.openHolidayForm(hrapi.Holiday{Date: a.defaultHolidayDate()}), true
		case key.Matches(m, k.Edit) && found:
			return a.openHolidayForm(h), true
		case key.Matches(m, k.Delete) && found:
			return a.confirmDeleteHoliday(h, ""), true
		case key.Matches(m, k.PrevYear):
			a.year--
			return a.loadHolidays(), true
		case key.Matches(m, k.NextYear):
			a.year++
			return a.loadHolidays(), true
		case key.Matches(m, k.Import):
			return a.openPath("Import holidays", "holidays.xlsx", a.importHolidays), true
		case key.Matches(m, k.Export):
			return a.openPath("Export holidays", fmt.Sprintf("holidays-%d.xlsx", a.year), a.exportHolidays), true
		}

	case tabLeaveTypes:
		t, found := find(a.leaveTypes, func(t hrapi.LeaveType) bool { return hasRow && t.ID == id })
		switch {
		case key.Matches(m, k.New):
			return a.openTypeForm(hrapi.LeaveType{IsPaid: true}), true
		case key.Matches(m, k.Edit) && found:
			return a.openTypeForm(t), true
		case key.Matches(m, k.Delete) && found:
			return a.confirmDeleteType(t, ""), true
		}

	case tabApplications:
		app, found := find(a.apps, func(l hrapi.LeaveApplication) bool { return hasRow && l.ID == id })
		switch {
		case key.Matches(m, k.New):
			return a.openApplyLeave(), true
		case key.Matches(m, k.Filter):
			a.appFilter = (a.appFilter + 1) % len(appStatusFilters)
			a.table.SetCursor(0)
			return a.loadApps(), true
		case key.Matches(m, k.Export):
			return a.openPath("Export leave requests", "leave-requests.xlsx", a.exportApps), true
		case !found:
		case key.Matches(m, k.Approve), key.Matches(m, k.Reject):
			if app.Status != hrapi.StatusPending {
				a.setStatus("only pending requests can be decided", true)
				return nil, true
			}
			return a.openDecision(app, key.Matches(m, k.Approve)), true
		case key.Matches(m, k.Cancel):
			return a.confirmCancelLeave(app), true
		case key.Matches(m, k.Balances):
			e, ok := a.employeeByID(app.EmployeeID)
			if !ok {
				e = hrapi.Employee{ID: app.EmployeeID, Name: a.employeeLabel(app.EmployeeID, app.EmployeeName)}
			}
			return a.openBalances(e), true
		}

	case tabEmployees:
		if key.Matches(m, k.Search) {
			return a.openSearch(), true
		}
		e, found := a.employeeByID(id)
		if !hasRow || !found {
			break
		}
		switch {
		case key.Matches(m, k.Edit):
			return a.openEmployee(e), true
		case key.Matches(m, k.Balances):
			return a.openBalances(e), true
		case key.Matches(m, k.Location):
			return a.openAssign(hrapi.KindLocation, e.Code, ""), true
		case key.Matches(m, k.Shift):
			return a.openAssign(hrapi.KindShift, e.Code, ""), true
		case key.Matches(m, k.WeekOff):
			return a.openAssign(hrapi.KindWeekOff, e.Code, ""), true
		}

	case tabAssignments:
		switch {
		case key.Matches(m, k.Location):
			a.assignKind = hrapi.KindLocation
		case key.Matches(m, k.Shift):
			a.assignKind = hrapi.KindShift
		case key.Matches(m, k.WeekOff):
			a.assignKind = hrapi.KindWeekOff
		case key.Matches(m, k.Edit) && hasRow:
			_, name, _ := a.targetByRef(a.assignKind, id)
			return a.openAssign(a.assignKind, "", name), true
		default:
			return nil, false
		}
		a.table.SetCursor(0)
		return nil, true

	case tabActivity:
		switch {
		case key.Matches(m, k.Prune):
			return a.confirm("Prune activity log", "Remove entries older than 30 days?", a.pruneActions), true
		case key.Matches(m, k.Reset):
			return a.confirm("Reset local data", "Clear the offline cache and the activity log?", a.do(job{
				dialogs: []modal.DialogID{dlgConfirm},
				ok:      "local data cleared",
				run:     a.svc.Maintenance.Reset,
				reload:  []tea.Cmd{a.loadActions()},
			})), true
		}
	}
	return nil, false
}

func (a *App) pruneActions() tea.Msg {
	n, err := a.svc.Maintenance.PruneActions(a.ctx, pruneAfter)
	if err != nil {
		return resultMsg{dialogs: []modal.DialogID{dlgConfirm}, err: err}
	}
	return resultMsg{
		dialogs: []modal.DialogID{dlgConfirm},
		status:  fmt.Sprintf("pruned %d entr%s", n, plural(n, "y", "ies")),
		next:    a.loadActions(),
	}
}

func (a *App) confirmDeleteOrg(o hrapi.Organization, parent modal.DialogID) tea.Cmd {
	return a.confirm("Delete organization",
		fmt.Sprintf("Delete %s (%s)? This cannot be undone.", o.Name, o.Code),
		a.do(job{
			dialogs: withParent(parent),
			ok:      "organization deleted",
			run:     func(ctx context.Context) error { return a.svc.Organizations.Delete(ctx, o.ID) },
			reload:  []tea.Cmd{a.loadOrgs()},
		}))
}

func (a *App) confirmDeleteHoliday(h hrapi.Holiday, parent modal.DialogID) tea.Cmd {
	return a.confirm("Delete holiday",
		fmt.Sprintf("Delete %s on %s?", h.Name, a.fmtDate(h.Date)),
		a.do(job{
			dialogs: withParent(parent),
			ok:      "holiday deleted",
			run:     func(ctx context.Context) error { return a.svc.Holidays.Delete(ctx, h.ID) },
			reload:  []tea.Cmd{a.loadHolidays()},
		}))
}

func (a *App) confirmDeleteType(t hrapi.LeaveType, parent modal.DialogID) tea.Cmd {
	return a.confirm("Delete leave type",
		fmt.Sprintf("Delete %s (%s)? Existing balances may stop resolving.", t.Name, t.Code),
		a.do(job{
			dialogs: withParent(parent),
			ok:      "leave type deleted",
			run:     func(ctx context.Context) error { return a.svc.Leave.DeleteType(ctx, t.ID) },
			reload:  []tea.Cmd{a.loadLeaveTypes()},
		}))
}

func (a *App) confirmCancelLeave(l hrapi.LeaveApplication) tea.Cmd {
	return a.confirm("Cancel leave",
		fmt.Sprintf("Cancel %s's %s leave from %s?", a.employeeLabel(l.EmployeeID, l.EmployeeName), a.leaveTypeName(l.LeaveTypeID), a.fmtDate(l.StartDate)),
		a.do(job{
			dialogs: []modal.DialogID{dlgConfirm},
			ok:      "leave cancelled",
			run: func(ctx context.Context) error {
				_, err := a.svc.Leave.Cancel(ctx, l.ID)
				return err
			},
			reload: []tea.Cmd{a.loadApps()},
		}))
}

// withParent lists the confirm dialog and, when it was stacked on a form,
// the form under it.
func withParent(parent modal.DialogID) []modal.DialogID {
	if parent == "" {
		return []modal.DialogID{dlgConfirm}
	}
	return []modal.DialogID{dlgConfirm, parent}
}

func (a *App) importHolidays(path string) tea.Cmd {
	reload := a.loadHolidays()
	log := a.log
	return func() tea.Msg {
		fail := func(err error) tea.Msg { return resultMsg{dialogs: []modal.DialogID{dlgPath}, err: err} }
		f, err := os.Open(path)
		if err != nil {
			return fail(err)
		}
		defer f.Close()
		hols, rowErrs, err := export.ReadHolidays(f, filepath.Base(path))
		if err != nil {
			return fail(err)
		}
		res, err := a.svc.Holidays.Import(a.ctx, hols)
		if err != nil {
			return fail(err)
		}
		for _, re := range rowErrs {
			log.Warnw("holiday row skipped", "file", path, "row", re.Row, "err", re.Err)
		}
		for _, hf := range res.Failed {
			log.Warnw("holiday not created", "name", hf.Holiday.Name, "date", hf.Holiday.Date, "err", hf.Err)
		}
		status := fmt.Sprintf("imported %d holiday(s), skipped %d duplicate(s)", res.Created, res.Skipped)
		if n := len(rowErrs) + len(res.Failed); n > 0 {
			status += fmt.Sprintf(", %d failed (see log)", n)
		}
		return resultMsg{dialogs: []modal.DialogID{dlgPath}, status: status, next: reload}
	}
}

func (a *App) exportHolidays(path string) tea.Cmd {
	year, hols := a.year, a.holidays
	return a.do(job{
		dialogs: []modal.DialogID{dlgPath},
		ok:      "wrote " + path,
		run: func(context.Context) error {
			return writeFile(path, func(w io.Writer) error { return export.HolidaysXLSX(w, year, hols) })
		},
	})
}

func (a *App) exportApps(path string) tea.Cmd {
	apps := a.apps
	names := make(map[string]string, len(a.leaveTypes))
	for _, t := range a.leaveTypes {
		names[t.ID] = t.Name
	}
	return a.do(job{
		dialogs: []modal.DialogID{dlgPath},
		ok:      "wrote " + path,
		run: func(context.Context) error {
			return writeFile(path, func(w io.Writer) error { return export.ApplicationsXLSX(w, apps, names) })
		},
	})
}

func (a *App) exportBalances(e hrapi.Employee, path string) tea.Cmd {
	bals, now := a.balances, a.now().In(a.tz)
	return a.do(job{
		dialogs: []modal.DialogID{dlgPath},
		ok:      "wrote " + path,
		run: func(context.Context) error {
			return writeFile(path, func(w io.Writer) error { return export.BalanceReportPDF(w, e, bals, now) })
		},
	})
}

func writeFile(path string, fn func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func expandPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

func find[T any](xs []T, match func(T) bool) (T, bool) {
	for _, x := range xs {
		if match(x) {
			return x, true
		}
	}
	var zero T
	return zero, false
}

func plural(n int64, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func (a *App) today() hrapi.Date {
	y, m, d := a.now().In(a.tz).Date()
	return hrapi.NewDate(y, m, d)
}

func (a *App) defaultHolidayDate() hrapi.Date {
	if t := a.today(); t.Year() == a.year {
		return t
	}
	return hrapi.NewDate(a.year, time.January, 1)
}
