package hrapi

import (
	"context"
	"net/http"
	"net/url"
)

// AssignmentKind selects which attendance assignment endpoint to use.
type AssignmentKind string

const (
	KindLocation AssignmentKind = "location"
	KindShift    AssignmentKind = "shift"
	KindWeekOff  AssignmentKind = "week-off"
)

func (k AssignmentKind) path() string {
	return "/attendance/" + string(k) + "-assignments"
}

func (c *Client) ListEmployees(ctx context.Context, query string) ([]Employee, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	return get[[]Employee](ctx, c, "/employees", q)
}

func (c *Client) GetEmployee(ctx context.Context, id string) (Employee, error) {
	return get[Employee](ctx, c, "/employees/"+esc(id), nil)
}

func (c *Client) ListLocations(ctx context.Context) ([]Location, error) {
	return get[[]Location](ctx, c, "/attendance/locations", nil)
}

func (c *Client) ListShifts(ctx context.Context) ([]Shift, error) {
	return get[[]Shift](ctx, c, "/attendance/shifts", nil)
}

func (c *Client) ListWeekOffPolicies(ctx context.Context) ([]WeekOffPolicy, error) {
	return get[[]WeekOffPolicy](ctx, c, "/attendance/week-off-policies", nil)
}

// ListAssignments lists assignments of one kind, optionally for one employee.
func (c *Client) ListAssignments(ctx context.Context, kind AssignmentKind, employeeID string) ([]Assignment, error) {
	q := url.Values{}
	if employeeID != "" {
		q.Set("employeeId", employeeID)
	}
	return get[[]Assignment](ctx, c, kind.path(), q)
}

func (c *Client) Assign(ctx context.Context, kind AssignmentKind, req AssignRequest) ([]Assignment, error) {
	return send[[]Assignment](ctx, c, http.MethodPost, kind.path(), req)
}

func (c *Client) Unassign(ctx context.Context, kind AssignmentKind, id string) error {
	return c.do(ctx, http.MethodDelete, kind.path()+"/"+esc(id), nil, nil, nil)
}
