package hrapi

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

func (c *Client) ListHolidays(ctx context.Context, year int) ([]Holiday, error) {
	q := url.Values{}
	if year > 0 {
		q.Set("year", strconv.Itoa(year))
	}
	return get[[]Holiday](ctx, c, "/leave/holidays", q)
}

func (c *Client) CreateHoliday(ctx context.Context, h Holiday) (Holiday, error) {
	return send[Holiday](ctx, c, http.MethodPost, "/leave/holidays", h)
}

func (c *Client) UpdateHoliday(ctx context.Context, h Holiday) (Holiday, error) {
	return send[Holiday](ctx, c, http.MethodPut, "/leave/holidays/"+esc(h.ID), h)
}

func (c *Client) DeleteHoliday(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/leave/holidays/"+esc(id), nil, nil, nil)
}

func (c *Client) ListLeaveTypes(ctx context.Context) ([]LeaveType, error) {
	return get[[]LeaveType](ctx, c, "/leave/types", nil)
}

func (c *Client) CreateLeaveType(ctx context.Context, t LeaveType) (LeaveType, error) {
	return send[LeaveType](ctx, c, http.MethodPost, "/leave/types", t)
}

func (c *Client) UpdateLeaveType(ctx context.Context, t LeaveType) (LeaveType, error) {
	return send[LeaveType](ctx, c, http.MethodPut, "/leave/types/"+esc(t.ID), t)
}

func (c *Client) DeleteLeaveType(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/leave/types/"+esc(id), nil, nil, nil)
}

func (c *Client) ListLeaveBalances(ctx context.Context, employeeID string) ([]LeaveBalance, error) {
	q := url.Values{}
	if employeeID != "" {
		q.Set("employeeId", employeeID)
	}
	return get[[]LeaveBalance](ctx, c, "/leave/balances", q)
}

func (c *Client) AdjustLeaveBalance(ctx context.Context, adj BalanceAdjustment) (LeaveBalance, error) {
	return send[LeaveBalance](ctx, c, http.MethodPost, "/leave/balances/adjust", adj)
}

func (c *Client) ListLeaveApplications(ctx context.Context, f LeaveFilter) ([]LeaveApplication, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", f.Status)
	}
	if f.EmployeeID != "" {
		q.Set("employeeId", f.EmployeeID)
	}
	return get[[]LeaveApplication](ctx, c, "/leave/requests", q)
}

func (c *Client) ApplyLeave(ctx context.Context, in LeaveApplicationInput) (LeaveApplication, error) {
	return send[LeaveApplication](ctx, c, http.MethodPost, "/leave/requests", in)
}

type decisionBody struct {
	Reason string `json:"reason,omitempty"`
}

func (c *Client) ApproveLeave(ctx context.Context, id, note string) (LeaveApplication, error) {
	return send[LeaveApplication](ctx, c, http.MethodPost, "/leave/requests/"+esc(id)+"/approve", decisionBody{Reason: note})
}

func (c *Client) RejectLeave(ctx context.Context, id, reason string) (LeaveApplication, error) {
	return send[LeaveApplication](ctx, c, http.MethodPost, "/leave/requests/"+esc(id)+"/reject", decisionBody{Reason: reason})
}

func (c *Client) CancelLeave(ctx context.Context, id string) (LeaveApplication, error) {
	return send[LeaveApplication](ctx, c, http.MethodPost, "/leave/requests/"+esc(id)+"/cancel", decisionBody{})
}
