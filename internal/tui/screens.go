package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/attendly/hrdesk/internal/hrapi"
	"github.com/attendly/hrdesk/internal/service"
)

type tab int

const (
	tabOrganizations tab = iota
	tabHolidays
	tabLeaveTypes
	tabApplications
	tabEmployees
	tabAssignments
	tabActivity
	tabCount
)

func (t tab) String() string {
	switch t {
	case tabOrganizations:
		return "Organizations"
	case tabHolidays:
		return "Holidays"
	case tabLeaveTypes:
		return "Leave types"
	case tabApplications:
		return "Leave requests"
	case tabEmployees:
		return "Employees"
	case tabAssignments:
		return "Assignments"
	case tabActivity:
		return "Activity"
	}
	return "?"
}

var appStatusFilters = []string{hrapi.StatusPending, hrapi.StatusApproved, hrapi.StatusRejected, hrapi.StatusCancelled, ""}

func (a *App) columns() []table.Column {
	switch a.tab {
	case tabOrganizations:
		return []table.Column{{Title: "Code", Width: 10}, {Title: "Name", Width: 32}, {Title: "Timezone", Width: 18}}
	case tabHolidays:
		return []table.Column{{Title: "Date", Width: 12}, {Title: "Day", Width: 4}, {Title: "Name", Width: 32}, {Title: "Optional", Width: 9}, {Title: "Location", Width: 12}}
	case tabLeaveTypes:
		return []table.Column{{Title: "Code", Width: 8}, {Title: "Name", Width: 24}, {Title: "Paid", Width: 5}, {Title: "Quota", Width: 6}, {Title: "Docs", Width: 5}}
	case tabApplications:
		return []table.Column{{Title: "Employee", Width: 22}, {Title: "Type", Width: 16}, {Title: "From", Width: 11}, {Title: "To", Width: 11}, {Title: "Days", Width: 5}, {Title: "Status", Width: 10}}
	case tabEmployees:
		return []table.Column{{Title: "Code", Width: 8}, {Title: "Name", Width: 22}, {Title: "Department", Width: 16}, {Title: "Location", Width: 14}, {Title: "Shift", Width: 12}, {Title: "Week-off", Width: 14}}
	case tabAssignments:
		return []table.Column{{Title: "Name", Width: 24}, {Title: "Detail", Width: 32}, {Title: "Employees", Width: 9}}
	case tabActivity:
		return []table.Column{{Title: "When", Width: 17}, {Title: "Actor", Width: 10}, {Title: "Resource", Width: 20}, {Title: "Action", Width: 9}, {Title: "Target", Width: 24}, {Title: "Outcome", Width: 8}}
	}
	return nil
}

// rows builds the current tab's rows and the id behind each row.
func (a *App) rows() ([]table.Row, []string) {
	var (
		rows []table.Row
		ids  []string
	)
	add := func(id string, cells ...string) {
		rows = append(rows, cells)
		ids = append(ids, id)
	}
	switch a.tab {
	case tabOrganizations:
		for _, o := range a.orgs {
			add(o.ID, o.Code, o.Name, o.Timezone)
		}
	case tabHolidays:
		for _, h := range a.holidays {
			add(h.ID, a.fmtDate(h.Date), h.Date.Weekday().String()[:3], h.Name, yesNo(h.Optional), h.LocationID)
		}
	case tabLeaveTypes:
		for _, t := range a.leaveTypes {
			add(t.ID, t.Code, t.Name, yesNo(t.IsPaid), fmtDays(t.AnnualQuota), yesNo(t.RequiresDoc))
		}
	case tabApplications:
		for _, l := range a.apps {
			add(l.ID, a.employeeLabel(l.EmployeeID, l.EmployeeName), a.leaveTypeName(l.LeaveTypeID),
				a.fmtDate(l.StartDate), a.fmtDate(l.EndDate), fmtDays(l.Days), l.Status)
		}
	case tabEmployees:
		for _, e := range a.visibleEmployees() {
			add(e.ID, e.Code, e.Name, e.Department, a.locationName(e.LocationID), a.shiftName(e.ShiftID), a.policyName(e.WeekOffPolicyID))
		}
	case tabAssignments:
		switch a.assignKind {
		case hrapi.KindLocation:
			for _, l := range a.locations {
				add(l.ID, l.Name, fmt.Sprintf("%s (%dm)", l.Address, l.RadiusMeters), strconv.Itoa(a.countAssigned(l.ID)))
			}
		case hrapi.KindShift:
			for _, s := range a.shifts {
				add(s.ID, s.Name, fmt.Sprintf("%s-%s, %dmin grace", s.Start, s.End, s.GraceMinutes), strconv.Itoa(a.countAssigned(s.ID)))
			}
		case hrapi.KindWeekOff:
			for _, p := range a.policies {
				add(p.ID, p.Name, strings.Join(p.Days, ", "), strconv.Itoa(a.countAssigned(p.ID)))
			}
		}
	case tabActivity:
		for _, act := range a.actions {
			add(act.ID, act.CreatedAt.In(a.tz).Format("2006-01-02 15:04"), act.Actor, act.Resource, act.Action, act.Target, act.Outcome)
		}
	}
	return rows, ids
}

func (a *App) visibleEmployees() []hrapi.Employee {
	if a.search == "" {
		return a.employees
	}
	return service.RankEmployees(a.employees, a.search, 0)
}

func (a *App) countAssigned(targetID string) int {
	n := 0
	for _, e := range a.employees {
		var got string
		switch a.assignKind {
		case hrapi.KindLocation:
			got = e.LocationID
		case hrapi.KindShift:
			got = e.ShiftID
		case hrapi.KindWeekOff:
			got = e.WeekOffPolicyID
		}
		if got == targetID {
			n++
		}
	}
	return n
}

func (a *App) employeeLabel(id, name string) string {
	if name != "" {
		return name
	}
	if e, ok := a.employeeByID(id); ok {
		return e.Name
	}
	return id
}

func (a *App) employeeByID(id string) (hrapi.Employee, bool) {
	for _, e := range a.employees {
		if e.ID == id {
			return e, true
		}
	}
	return hrapi.Employee{}, false
}

// employeeByRef resolves an employee code, id or exact name.
func (a *App) employeeByRef(ref string) (hrapi.Employee, bool) {
	ref = strings.TrimSpace(ref)
	for _, e := range a.employees {
		if strings.EqualFold(e.Code, ref) || e.ID == ref || strings.EqualFold(e.Name, ref) {
			return e, true
		}
	}
	return hrapi.Employee{}, false
}

func (a *App) leaveTypeName(id string) string {
	for _, t := range a.leaveTypes {
		if t.ID == id {
			return t.Name
		}
	}
	return id
}

func (a *App) leaveTypeByRef(ref string) (hrapi.LeaveType, bool) {
	for _, t := range a.leaveTypes {
		if strings.EqualFold(t.Code, ref) || t.ID == ref || strings.EqualFold(t.Name, ref) {
			return t, true
		}
	}
	return hrapi.LeaveType{}, false
}

func (a *App) locationName(id string) string {
	for _, l := range a.locations {
		if l.ID == id {
			return l.Name
		}
	}
	return id
}

func (a *App) shiftName(id string) string {
	for _, s := range a.shifts {
		if s.ID == id {
			return s.Name
		}
	}
	return id
}

func (a *App) policyName(id string) string {
	for _, p := range a.policies {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

// targetByRef resolves an assignment target of the given kind by id or name.
func (a *App) targetByRef(kind hrapi.AssignmentKind, ref string) (id, name string, ok bool) {
	match := func(cid, cname string) bool { return cid == ref || strings.EqualFold(cname, ref) }
	switch kind {
	case hrapi.KindLocation:
		for _, l := range a.locations {
			if match(l.ID, l.Name) {
				return l.ID, l.Name, true
			}
		}
	case hrapi.KindShift:
		for _, s := range a.shifts {
			if match(s.ID, s.Name) {
				return s.ID, s.Name, true
			}
		}
	case hrapi.KindWeekOff:
		for _, p := range a.policies {
			if match(p.ID, p.Name) {
				return p.ID, p.Name, true
			}
		}
	}
	return "", "", false
}

func (a *App) fmtDate(d hrapi.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.Format(a.cfg.UI.DateFormat)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func fmtDays(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
