// Package tui is the hrdesk terminal console.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/attendly/hrdesk/internal/config"
	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
	"github.com/attendly/hrdesk/internal/logging"
	"github.com/attendly/hrdesk/internal/modal"
	"github.com/attendly/hrdesk/internal/service"
	"github.com/attendly/hrdesk/internal/session"
)

// App is the root bubbletea model. All dialogs go through coord; the
// toolkit turns its Show/Hide calls into animation messages.
type App struct {
	ctx     context.Context
	cfg     config.Config
	svc     Services
	session *session.Session
	tz      *time.Location
	now     func() time.Time
	log     *logging.Logger

	coord       *modal.Coordinator
	layer       *modal.Layer
	tk          *toolkit
	stopCleanup func()

	keys   keyMap
	dkeys  dialogKeyMap
	help   help.Model
	table  table.Model
	width  int
	height int

	tab       tab
	rowIDs    []string
	status    string
	statusErr bool
	stale     map[tab]time.Time

	dialogs   map[modal.DialogID]*dialog
	animating map[modal.DialogID]bool
	// returnTo maps a dialog reached through Switch to the one it came from.
	returnTo map[modal.DialogID]modal.DialogID

	orgs       []hrapi.Organization
	holidays   []hrapi.Holiday
	leaveTypes []hrapi.LeaveType
	apps       []hrapi.LeaveApplication
	employees  []hrapi.Employee
	locations  []hrapi.Location
	shifts     []hrapi.Shift
	policies   []hrapi.WeekOffPolicy
	actions    []repository.Action

	year       int
	appFilter  int
	search     string
	assignKind hrapi.AssignmentKind
	balanceFor hrapi.Employee
	balances   []hrapi.LeaveBalance
	detailFor  hrapi.Employee

	balancesReady bool
	balancesStale bool
}

// Services are the backend operations the console drives.
type Services struct {
	Organizations *service.OrganizationService
	Holidays      *service.HolidayService
	Leave         *service.LeaveService
	Assignments   *service.AssignmentService
	Directory     *service.DirectoryService
	Audit         *service.Audit
	Maintenance   *service.MaintenanceService
}

func New(ctx context.Context, cfg config.Config, sess *session.Session, svc Services) *App {
	tz, err := time.LoadLocation(cfg.UI.Timezone)
	if err != nil {
		tz = time.Local
	}
	a := &App{
		ctx:        ctx,
		cfg:        cfg,
		svc:        svc,
		session:    sess,
		tz:         tz,
		now:        time.Now,
		log:        logging.L().With("component", "tui"),
		layer:      modal.NewLayer(),
		tk:         newToolkit(),
		keys:       defaultKeys(),
		dkeys:      defaultDialogKeys(),
		help:       help.New(),
		stale:      map[tab]time.Time{},
		dialogs:    map[modal.DialogID]*dialog{},
		animating:  map[modal.DialogID]bool{},
		returnTo:   map[modal.DialogID]modal.DialogID{},
		assignKind: hrapi.KindLocation,
	}
	a.year = a.now().In(tz).Year()
	a.coord = modal.New(a.layer, a.tk,
		modal.WithConfig(modal.Config{
			SettleDelay:     cfg.Modal.SettleDelay,
			SecondaryDelay:  cfg.Modal.SecondaryDelay,
			CleanupInterval: cfg.Modal.CleanupInterval,
			AwaitHidden:     cfg.Modal.AwaitHidden,
		}),
		modal.WithObserver(a.observe),
	)
	for _, id := range allDialogs {
		opts := []modal.DialogOption{modal.OnHidden(a.onHidden)}
		if id == dlgHelp {
			opts = append(opts, modal.WithoutBackdrop())
		}
		if err := a.coord.Register(id, opts...); err != nil {
			a.log.Errorw("register dialog", "dialog", id, "err", err)
		}
	}
	a.table = table.New(
		table.WithFocused(true),
		table.WithStyles(tableStyles()),
		table.WithHeight(15),
	)
	a.refreshTable()
	return a
}

// Attach connects the app to a running program so dialog animations can
// report back.
func (a *App) Attach(send func(tea.Msg)) { a.tk.attach(send) }

// Shutdown stops the backdrop sweep and tears the coordinator down. Safe to
// call more than once.
func (a *App) Shutdown() {
	if a.stopCleanup != nil {
		a.stopCleanup()
		a.stopCleanup = nil
	}
	a.coord.Teardown()
	a.tk.unmountAll()
}

// Run starts the console and blocks until the user quits.
func Run(ctx context.Context, cfg config.Config, sess *session.Session, svc Services) error {
	app := New(ctx, cfg, sess, svc)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	app.Attach(p.Send)
	defer app.Shutdown()
	_, err := p.Run()
	return err
}

func (a *App) Init() tea.Cmd {
	a.stopCleanup = a.coord.RegisterCleanupInterval(a.cfg.Modal.CleanupInterval)
	if _, ok := a.session.Claims(); !ok {
		return a.openSignIn()
	}
	return a.loadAll()
}

func (a *App) loadAll() tea.Cmd {
	return tea.Batch(a.loadEmployees(), a.loadLeaveTypes(), a.loadTargets(), a.loadTab(a.tab))
}

func (a *App) loadTab(t tab) tea.Cmd {
	switch t {
	case tabOrganizations:
		return a.loadOrgs()
	case tabHolidays:
		return a.loadHolidays()
	case tabLeaveTypes:
		return a.loadLeaveTypes()
	case tabApplications:
		return a.loadApps()
	case tabEmployees, tabAssignments:
		return tea.Batch(a.loadEmployees(), a.loadTargets())
	case tabActivity:
		return a.loadActions()
	}
	return nil
}

func (a *App) loadOrgs() tea.Cmd {
	return func() tea.Msg {
		l, err := a.svc.Organizations.List(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return orgsMsg(l)
	}
}

func (a *App) loadHolidays() tea.Cmd {
	year := a.year
	return func() tea.Msg {
		l, err := a.svc.Holidays.List(a.ctx, year)
		if err != nil {
			return errMsg{err}
		}
		return holidaysMsg{year: year, Listing: l}
	}
}

func (a *App) loadLeaveTypes() tea.Cmd {
	return func() tea.Msg {
		l, err := a.svc.Leave.Types(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return leaveTypesMsg(l)
	}
}

func (a *App) loadApps() tea.Cmd {
	status := appStatusFilters[a.appFilter]
	return func() tea.Msg {
		l, err := a.svc.Leave.Applications(a.ctx, hrapi.LeaveFilter{Status: status})
		if err != nil {
			return errMsg{err}
		}
		return appsMsg{status: status, Listing: l}
	}
}

func (a *App) loadEmployees() tea.Cmd {
	return func() tea.Msg {
		l, err := a.svc.Directory.Employees(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return employeesMsg(l)
	}
}

func (a *App) loadTargets() tea.Cmd {
	return func() tea.Msg {
		locs, err := a.svc.Assignments.Locations(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		shifts, err := a.svc.Assignments.Shifts(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		pols, err := a.svc.Assignments.WeekOffPolicies(a.ctx)
		if err != nil {
			return errMsg{err}
		}
		return targetsMsg{
			locations: locs.Items,
			shifts:    shifts.Items,
			policies:  pols.Items,
			stale:     locs.Stale || shifts.Stale || pols.Stale,
			fetchedAt: locs.FetchedAt,
		}
	}
}

func (a *App) loadActions() tea.Cmd {
	return func() tea.Msg {
		list, err := a.svc.Audit.Recent(a.ctx, repository.ActionFilter{Limit: 200})
		if err != nil {
			return errMsg{err}
		}
		return actionsMsg(list)
	}
}

func (a *App) loadBalances(emp hrapi.Employee) tea.Cmd {
	return func() tea.Msg {
		l, err := a.svc.Leave.Balances(a.ctx, emp.ID)
		if err != nil {
			return errMsg{err}
		}
		return balancesMsg{employeeID: emp.ID, Listing: l}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = m.Width, m.Height
		a.help.Width = m.Width
		a.table.SetHeight(max(m.Height-6, 4))
	case tea.KeyMsg:
		cmd = a.handleKey(m)
	case transitionMsg:
		a.animating[m.id] = true
		done := transitionDoneMsg(m)
		cmd = tea.Tick(a.cfg.Modal.Transition, func(time.Time) tea.Msg { return done })
	case transitionDoneMsg:
		delete(a.animating, m.id)
		if m.show {
			a.coord.Shown(m.id)
		} else {
			a.coord.Hidden(m.id)
		}
	case stackChangedMsg:
	case dialogHiddenMsg:
		a.dialogHidden(modal.DialogID(m))
	case orgsMsg:
		a.orgs = m.Items
		a.markStale(tabOrganizations, m.Stale, m.FetchedAt)
	case holidaysMsg:
		if m.year == a.year {
			a.holidays = m.Items
			a.markStale(tabHolidays, m.Stale, m.FetchedAt)
		}
	case leaveTypesMsg:
		a.leaveTypes = m.Items
		a.markStale(tabLeaveTypes, m.Stale, m.FetchedAt)
	case appsMsg:
		if m.status == appStatusFilters[a.appFilter] {
			a.apps = m.Items
			a.markStale(tabApplications, m.Stale, m.FetchedAt)
		}
	case employeesMsg:
		a.employees = m.Items
		a.markStale(tabEmployees, m.Stale, m.FetchedAt)
	case targetsMsg:
		a.locations, a.shifts, a.policies = m.locations, m.shifts, m.policies
		a.markStale(tabAssignments, m.stale, m.fetchedAt)
	case actionsMsg:
		a.actions = m
	case balancesMsg:
		if m.employeeID == a.balanceFor.ID {
			a.balances = m.Items
			a.balancesReady, a.balancesStale = true, m.Stale
			if d := a.dialogs[dlgBalances]; d != nil {
				d.lines = a.balanceLines()
			}
		}
	case resultMsg:
		cmd = a.handleResult(m)
	case statusMsg:
		a.setStatus(string(m), false)
	case errMsg:
		cmd = a.handleErr(m.error)
	}
	a.refreshTable()
	return a, cmd
}

func (a *App) handleKey(m tea.KeyMsg) tea.Cmd {
	if m.String() == "ctrl+c" {
		return a.quit()
	}
	if top, ok := a.coord.Top(); ok {
		if cmd, handled := a.dialogKey(top, m); handled {
			return cmd
		}
	}
	// A switch between dialogs is in flight: the screen stays inert until
	// the next dialog opens.
	if a.coord.Pending() > 0 {
		return nil
	}
	return a.screenKey(m)
}

func (a *App) dialogKey(id modal.DialogID, m tea.KeyMsg) (tea.Cmd, bool) {
	passive := id == dlgHelp
	d := a.dialogs[id]
	st, _ := a.coord.State(id)
	if d == nil || st == modal.Closing || st == modal.Closed {
		return nil, !passive
	}
	if key.Matches(m, a.dkeys.Close) {
		if d.onClose != nil {
			return d.onClose(), true
		}
		return a.dismiss(id), true
	}
	cmd, handled := d.update(m, a.dkeys)
	if passive && !handled {
		return nil, false
	}
	return cmd, true
}

func (a *App) screenKey(m tea.KeyMsg) tea.Cmd {
	k := a.keys
	switch {
	case key.Matches(m, k.Quit):
		return a.quit()
	case key.Matches(m, k.NextTab):
		return a.switchTab((a.tab + 1) % tabCount)
	case key.Matches(m, k.PrevTab):
		return a.switchTab((a.tab + tabCount - 1) % tabCount)
	case key.Matches(m, k.Help):
		return a.toggleHelp()
	case key.Matches(m, k.SignIn):
		return a.openSignIn()
	case key.Matches(m, k.Refresh):
		a.setStatus("refreshing...", false)
		return a.loadTab(a.tab)
	}
	// The help panel locks the body; nothing below it moves.
	if a.layer.ScrollLocked() {
		return nil
	}
	if cmd, ok := a.tabKey(m); ok {
		return cmd
	}
	var cmd tea.Cmd
	a.table, cmd = a.table.Update(m)
	return cmd
}

func (a *App) switchTab(t tab) tea.Cmd {
	a.tab = t
	a.table.SetCursor(0)
	a.refreshTable()
	if a.isVisible(dlgHelp) {
		a.install(dlgHelp, a.helpDialog())
	}
	return a.loadTab(t)
}

func (a *App) quit() tea.Cmd {
	a.Shutdown()
	return tea.Quit
}

// selected returns the id behind the highlighted row.
func (a *App) selected() (string, bool) {
	i := a.table.Cursor()
	if i < 0 || i >= len(a.rowIDs) {
		return "", false
	}
	return a.rowIDs[i], true
}

func (a *App) refreshTable() {
	rows, ids := a.rows()
	// Clear rows first: SetColumns renders the existing rows against the
	// new column set.
	a.table.SetRows(nil)
	a.table.SetColumns(a.columns())
	a.table.SetRows(rows)
	a.rowIDs = ids
	if c := a.table.Cursor(); c >= len(rows) {
		a.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (a *App) markStale(t tab, stale bool, at time.Time) {
	if stale {
		a.stale[t] = at
		return
	}
	delete(a.stale, t)
}

func (a *App) setStatus(s string, isErr bool) {
	a.status, a.statusErr = s, isErr
}

func (a *App) handleErr(err error) tea.Cmd {
	a.log.Warnw("request failed", "err", err)
	a.setStatus(hrapi.UserMessage(err), true)
	if needsSignIn(err) {
		return a.openSignIn()
	}
	return nil
}

func needsSignIn(err error) bool {
	return errors.Is(err, hrapi.ErrUnauthorized) ||
		errors.Is(err, session.ErrNoToken) ||
		errors.Is(err, session.ErrExpired)
}

func (a *App) handleResult(m resultMsg) tea.Cmd {
	if m.err != nil {
		if len(m.dialogs) > 0 {
			if d := a.dialogs[m.dialogs[0]]; d != nil && a.isVisible(m.dialogs[0]) {
				a.log.Warnw("dialog action failed", "dialog", m.dialogs[0], "err", m.err)
				d.err = hrapi.UserMessage(m.err)
				if needsSignIn(m.err) {
					return a.openSignIn()
				}
				return nil
			}
		}
		return a.handleErr(m.err)
	}
	a.setStatus(m.status, false)
	cmds := []tea.Cmd{m.next}
	for _, id := range m.dialogs {
		cmds = append(cmds, a.dismiss(id))
	}
	return tea.Batch(cmds...)
}

func (a *App) isVisible(id modal.DialogID) bool {
	st, err := a.coord.State(id)
	return err == nil && (st == modal.Opening || st == modal.Open)
}

// observe runs on whichever goroutine moved the dialog.
func (a *App) observe(tr modal.Transition) {
	a.log.Debugw("dialog transition", "dialog", tr.Dialog, "from", tr.From, "to", tr.To, "forced", tr.Forced)
	a.tk.post(stackChangedMsg(tr))
}

func (a *App) onHidden(id modal.DialogID) error {
	a.tk.post(dialogHiddenMsg(id))
	return nil
}

// dialogHidden drops content that must not outlive the dialog. A dialog
// reopened since the hook fired is left alone.
func (a *App) dialogHidden(id modal.DialogID) {
	if st, err := a.coord.State(id); err != nil || st != modal.Closed {
		return
	}
	if id == dlgSignIn {
		delete(a.dialogs, id)
		return
	}
	if d := a.dialogs[id]; d != nil {
		d.err = ""
	}
}

func (a *App) View() string {
	base := lipgloss.JoinVertical(lipgloss.Left, a.header(), a.table.View(), a.footer())
	width, height := a.width, a.height
	if width == 0 {
		width, height = lipgloss.Width(base), lipgloss.Height(base)
	}
	if a.layer.Len() > 0 {
		base = dim(base)
	}
	depth := 0
	for _, id := range a.coord.Stack() {
		d := a.dialogs[id]
		if d == nil {
			continue
		}
		st, _ := a.coord.State(id)
		if id == dlgHelp {
			base = placeTopRight(base, a.helpView(d), width, height)
			continue
		}
		base = placeCentered(base, d.view(st), width, height, depth)
		depth++
	}
	return base
}

func (a *App) header() string {
	tabs := make([]string, 0, tabCount)
	for t := tab(0); t < tabCount; t++ {
		style := tabStyle
		if t == a.tab {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(a.tabLabel(t)))
	}
	who := "not signed in"
	if c, ok := a.session.Claims(); ok {
		who = c.Name
		if c.Org != "" {
			who += " · " + c.Org
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, append(tabs, "  ", hintStyle.Render(who))...)
}

func (a *App) tabLabel(t tab) string {
	switch t {
	case tabHolidays:
		return fmt.Sprintf("%s %d", t, a.year)
	case tabApplications:
		if s := appStatusFilters[a.appFilter]; s != "" {
			return fmt.Sprintf("%s (%s)", t, s)
		}
		return fmt.Sprintf("%s (all)", t)
	case tabAssignments:
		return fmt.Sprintf("%s: %s", t, a.assignKind)
	case tabEmployees:
		if a.search != "" {
			return fmt.Sprintf("%s /%s", t, a.search)
		}
	}
	return t.String()
}

func (a *App) footer() string {
	var lines []string
	if at, ok := a.stale[a.tab]; ok {
		lines = append(lines, staleStyle.Render("offline · showing data cached "+at.In(a.tz).Format("02 Jan 15:04")))
	}
	if a.status != "" {
		style := statusStyle
		if a.statusErr {
			style = errorStyle
		}
		lines = append(lines, style.Render(a.status))
	}
	lines = append(lines, a.help.ShortHelpView(a.keys.tabHelp(a.tab)))
	return strings.Join(lines, "\n")
}

func (a *App) helpView(d *dialog) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(d.title))
	for _, line := range d.lines {
		b.WriteString("\n")
		b.WriteString(line)
	}
	b.WriteString("\n\n")
	b.WriteString(hintStyle.Render(d.hint))
	return panelStyle.Render(b.String())
}

type orgsMsg service.Listing[hrapi.Organization]

type holidaysMsg struct {
	year int
	service.Listing[hrapi.Holiday]
}

type leaveTypesMsg service.Listing[hrapi.LeaveType]

type appsMsg struct {
	status string
	service.Listing[hrapi.LeaveApplication]
}

type employeesMsg service.Listing[hrapi.Employee]

type targetsMsg struct {
	locations []hrapi.Location
	shifts    []hrapi.Shift
	policies  []hrapi.WeekOffPolicy
	stale     bool
	fetchedAt time.Time
}

type actionsMsg []repository.Action

type balancesMsg struct {
	employeeID string
	service.Listing[hrapi.LeaveBalance]
}

// resultMsg reports a mutation started from dialogs. On success every
// listed dialog is dismissed; on failure the first one shows the error.
type resultMsg struct {
	dialogs []modal.DialogID
	status  string
	err     error
	next    tea.Cmd
}

type statusMsg string

type errMsg struct{ error }
