package hrapi

import (
	"encoding/json"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a calendar day, sent as YYYY-MM-DD.
type Date struct {
	time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD or RFC3339.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, err
	}
	y, m, d := t.Date()
	return NewDate(y, m, d), nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	Timezone  string    `json:"timezone"`
	CreatedAt time.Time `json:"createdAt"`
}

type Holiday struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Date       Date   `json:"date"`
	Optional   bool   `json:"optional"`
	LocationID string `json:"locationId,omitempty"`
}

type LeaveType struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Code        string  `json:"code"`
	IsPaid      bool    `json:"isPaid"`
	RequiresDoc bool    `json:"requiresDoc"`
	AnnualQuota float64 `json:"annualQuota"`
}

type LeaveBalance struct {
	EmployeeID    string  `json:"employeeId"`
	LeaveTypeID   string  `json:"leaveTypeId"`
	LeaveTypeName string  `json:"leaveTypeName"`
	Entitled      float64 `json:"entitled"`
	Used          float64 `json:"used"`
	Pending       float64 `json:"pending"`
	Available     float64 `json:"available"`
}

type BalanceAdjustment struct {
	EmployeeID  string  `json:"employeeId"`
	LeaveTypeID string  `json:"leaveTypeId"`
	Amount      float64 `json:"amount"`
	Reason      string  `json:"reason"`
}

// Leave application statuses.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
	StatusCancelled = "cancelled"
)

type LeaveApplication struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employeeId"`
	EmployeeName string    `json:"employeeName"`
	LeaveTypeID  string    `json:"leaveTypeId"`
	StartDate    Date      `json:"startDate"`
	EndDate      Date      `json:"endDate"`
	StartHalf    bool      `json:"startHalf"`
	EndHalf      bool      `json:"endHalf"`
	Days         float64   `json:"days"`
	Reason       string    `json:"reason"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

type LeaveApplicationInput struct {
	EmployeeID  string `json:"employeeId"`
	LeaveTypeID string `json:"leaveTypeId"`
	StartDate   Date   `json:"startDate"`
	EndDate     Date   `json:"endDate"`
	StartHalf   bool   `json:"startHalf"`
	EndHalf     bool   `json:"endHalf"`
	Reason      string `json:"reason"`
}

type LeaveFilter struct {
	Status     string
	EmployeeID string
}

type Employee struct {
	ID              string `json:"id"`
	Code            string `json:"code"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	Department      string `json:"department"`
	Designation     string `json:"designation"`
	LocationID      string `json:"locationId,omitempty"`
	ShiftID         string `json:"shiftId,omitempty"`
	WeekOffPolicyID string `json:"weekOffPolicyId,omitempty"`
	Active          bool   `json:"active"`
}

type Location struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Address      string  `json:"address"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radiusMeters"`
}

type Shift struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Start        string `json:"start"` // "09:30"
	End          string `json:"end"`
	GraceMinutes int    `json:"graceMinutes"`
}

type WeekOffPolicy struct {
	ID   string   `json:"id"`
	Name string   `json:"name"`
	Days []string `json:"days"`
}

// Assignment binds an employee to a location, shift or week-off policy.
type Assignment struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employeeId"`
	TargetID      string `json:"targetId"`
	EffectiveFrom Date   `json:"effectiveFrom"`
}

// AssignRequest assigns several employees at once.
type AssignRequest struct {
	EmployeeIDs   []string `json:"employeeIds"`
	TargetID      string   `json:"targetId"`
	EffectiveFrom Date     `json:"effectiveFrom"`
}
