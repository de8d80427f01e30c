package hrapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

type staticTokens string

func (s staticTokens) Token(context.Context) (string, error) { return string(s), nil }

type failingTokens struct{ err error }

func (f failingTokens) Token(context.Context) (string, error) { return "", f.err }

func writeEnvelope(w http.ResponseWriter, status int, data any, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	env := map[string]any{"success": status < 300 && code == "", "requestId": "srv-1"}
	if data != nil {
		env["data"] = data
	}
	if code != "" {
		env["error"] = map[string]string{"code": code, "message": message}
	}
	_ = json.NewEncoder(w).Encode(env)
}

func newTestClient(t *testing.T, tokens TokenSource, routes func(r chi.Router)) *Client {
	t.Helper()
	r := chi.NewRouter()
	r.Route("/api/v1", routes)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/v1/", tokens, WithTimeout(5*time.Second))
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api/v1", nil)
	require.Error(t, err)
}

func TestListHolidaysSendsHeadersAndDecodes(t *testing.T) {
	c := newTestClient(t, staticTokens("tok-1"), func(r chi.Router) {
		r.Get("/leave/holidays", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok-1" || r.Header.Get("X-Request-ID") == "" {
				writeEnvelope(w, http.StatusUnauthorized, nil, "unauthorized", "authentication required")
				return
			}
			require.Equal(t, "2026", r.URL.Query().Get("year"))
			writeEnvelope(w, http.StatusOK, []map[string]any{
				{"id": "h1", "name": "Pongal", "date": "2026-01-14"},
				{"id": "h2", "name": "Republic Day", "date": "2026-01-26T00:00:00Z", "optional": true},
			}, "", "")
		})
	})

	hols, err := c.ListHolidays(context.Background(), 2026)
	require.NoError(t, err)
	require.Len(t, hols, 2)
	require.Equal(t, NewDate(2026, time.January, 14), hols[0].Date)
	require.Equal(t, "2026-01-26", hols[1].Date.String())
	require.True(t, hols[1].Optional)
}

func TestRequestIDFromContext(t *testing.T) {
	var seen atomic.Value
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		r.Get("/leave/types", func(w http.ResponseWriter, r *http.Request) {
			seen.Store(r.Header.Get("X-Request-ID"))
			writeEnvelope(w, http.StatusOK, []LeaveType{{ID: "lt1", Name: "Casual", Code: "CL"}}, "", "")
		})
	})

	ctx := WithRequestID(context.Background(), "req-fixed")
	types, err := c.ListLeaveTypes(ctx)
	require.NoError(t, err)
	require.Equal(t, "CL", types[0].Code)
	require.Equal(t, "req-fixed", seen.Load())
	require.Equal(t, "req-fixed", RequestIDFrom(ctx))
}

func TestErrorEnvelopeBecomesAPIError(t *testing.T) {
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		r.Post("/leave/requests/{id}/approve", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusConflict, nil, "leave_not_pending", "leave request is not pending")
		})
	})

	_, err := c.ApproveLeave(context.Background(), "la-9", "")
	require.ErrorIs(t, err, ErrConflict)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusConflict, apiErr.Status)
	require.Equal(t, "leave_not_pending", apiErr.Code)
	require.Equal(t, "srv-1", apiErr.RequestID)
	require.Equal(t, "leave request is not pending", UserMessage(err))
	require.Contains(t, err.Error(), "/leave/requests/la-9/approve")
}

func TestUnauthorizedWithoutBody(t *testing.T) {
	c := newTestClient(t, staticTokens("stale"), func(r chi.Router) {
		r.Get("/organizations", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	})

	_, err := c.ListOrganizations(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Contains(t, UserMessage(err), "Sign in again")
}

func TestSuccessFalseOnOK(t *testing.T) {
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		r.Post("/leave/balances/adjust", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"invalid_amount","message":"amount must be non-zero"}}`))
		})
	})

	_, err := c.AdjustLeaveBalance(context.Background(), BalanceAdjustment{EmployeeID: "e1", LeaveTypeID: "lt1"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	require.Equal(t, "invalid_amount", apiErr.Code)
}

func TestNonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		r.Get("/attendance/shifts", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "upstream unavailable", http.StatusBadGateway)
		})
	})

	_, err := c.ListShifts(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadGateway, apiErr.Status)
	require.Equal(t, "upstream unavailable", apiErr.Message)
}

func TestLongErrorBodyCutOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("é", 200)
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		r.Get("/organizations", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, body, http.StatusServiceUnavailable)
		})
	})

	_, err := c.ListOrganizations(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.True(t, utf8.ValidString(apiErr.Message))
	require.Equal(t, strings.Repeat("é", 120)+"…", apiErr.Message)
	require.True(t, utf8.ValidString(UserMessage(err)))
}

func TestTokenErrorSkipsRequest(t *testing.T) {
	var hits atomic.Int32
	expired := errors.New("token expired")
	c := newTestClient(t, failingTokens{err: expired}, func(r chi.Router) {
		r.Get("/employees", func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			writeEnvelope(w, http.StatusOK, []Employee{}, "", "")
		})
	})

	_, err := c.ListEmployees(context.Background(), "")
	require.ErrorIs(t, err, expired)
	require.Zero(t, hits.Load())
}

func TestApplyLeaveSendsBody(t *testing.T) {
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		r.Post("/leave/requests", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var in map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			require.Equal(t, "2026-04-06", in["startDate"])
			require.Equal(t, "2026-04-07", in["endDate"])
			writeEnvelope(w, http.StatusCreated, LeaveApplication{
				ID: "la-1", EmployeeID: in["employeeId"].(string), Status: StatusPending, Days: 2,
				StartDate: NewDate(2026, time.April, 6), EndDate: NewDate(2026, time.April, 7),
			}, "", "")
		})
	})

	app, err := c.ApplyLeave(context.Background(), LeaveApplicationInput{
		EmployeeID:  "e-7",
		LeaveTypeID: "lt-cl",
		StartDate:   NewDate(2026, time.April, 6),
		EndDate:     NewDate(2026, time.April, 7),
		Reason:      "family function",
	})
	require.NoError(t, err)
	require.Equal(t, "la-1", app.ID)
	require.Equal(t, "e-7", app.EmployeeID)
	require.Equal(t, StatusPending, app.Status)
}

func TestAssignUsesKindPath(t *testing.T) {
	var gotPath atomic.Value
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		assign := func(w http.ResponseWriter, r *http.Request) {
			gotPath.Store(r.URL.Path)
			var req AssignRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			out := make([]Assignment, 0, len(req.EmployeeIDs))
			for i, id := range req.EmployeeIDs {
				out = append(out, Assignment{ID: "as-" + string(rune('a'+i)), EmployeeID: id, TargetID: req.TargetID, EffectiveFrom: req.EffectiveFrom})
			}
			writeEnvelope(w, http.StatusCreated, out, "", "")
		}
		r.Post("/attendance/shift-assignments", assign)
		r.Post("/attendance/week-off-assignments", assign)
		r.Delete("/attendance/location-assignments/{id}", func(w http.ResponseWriter, r *http.Request) {
			gotPath.Store(r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		})
	})

	got, err := c.Assign(context.Background(), KindShift, AssignRequest{
		EmployeeIDs:   []string{"e1", "e2"},
		TargetID:      "night",
		EffectiveFrom: NewDate(2026, time.May, 1),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "/api/v1/attendance/shift-assignments", gotPath.Load())
	require.Equal(t, "night", got[1].TargetID)

	_, err = c.Assign(context.Background(), KindWeekOff, AssignRequest{EmployeeIDs: []string{"e1"}, TargetID: "sat-sun"})
	require.NoError(t, err)
	require.Equal(t, "/api/v1/attendance/week-off-assignments", gotPath.Load())

	require.NoError(t, c.Unassign(context.Background(), KindLocation, "as-9"))
	require.Equal(t, "/api/v1/attendance/location-assignments/as-9", gotPath.Load())
}

func TestEmployeeAndAssignmentLookups(t *testing.T) {
	c := newTestClient(t, staticTokens("tok"), func(r chi.Router) {
		r.Get("/employees/{id}", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, Employee{ID: chi.URLParam(r, "id"), Code: "E001", Name: "Priya Raman"}, "", "")
		})
		r.Get("/attendance/location-assignments", func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "e1", r.URL.Query().Get("employeeId"))
			writeEnvelope(w, http.StatusOK, []Assignment{{ID: "as-1", EmployeeID: "e1", TargetID: "blr"}}, "", "")
		})
	})

	e, err := c.GetEmployee(context.Background(), "e1")
	require.NoError(t, err)
	require.Equal(t, "Priya Raman", e.Name)

	got, err := c.ListAssignments(context.Background(), KindLocation, "e1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "blr", got[0].TargetID)
}

func TestDateJSON(t *testing.T) {
	var h Holiday
	require.NoError(t, json.Unmarshal([]byte(`{"id":"h","date":null}`), &h))
	require.True(t, h.Date.IsZero())

	b, err := json.Marshal(Holiday{ID: "h", Date: NewDate(2026, time.August, 15)})
	require.NoError(t, err)
	require.Contains(t, string(b), `"date":"2026-08-15"`)

	require.Error(t, json.Unmarshal([]byte(`{"date":"15/08/2026"}`), &h))
}
