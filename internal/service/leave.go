package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
)

// LeaveService covers leave types, balances and applications. Balance
// arithmetic is the backend's job; only form-level checks happen here.
type LeaveService struct {
	API   *hrapi.Client
	Cache *repository.ListCacheRepo
	Audit *Audit
}

func (s *LeaveService) Types(ctx context.Context) (Listing[hrapi.LeaveType], error) {
	return cachedList(ctx, s.Cache, "leave-types", s.API.ListLeaveTypes)
}

func (s *LeaveService) SaveType(ctx context.Context, t hrapi.LeaveType) (hrapi.LeaveType, error) {
	t.Name = strings.TrimSpace(t.Name)
	t.Code = strings.ToUpper(strings.TrimSpace(t.Code))
	if t.Name == "" || t.Code == "" {
		return t, fmt.Errorf("%w: leave type name and code are required", ErrInvalidInput)
	}
	if t.AnnualQuota < 0 {
		return t, fmt.Errorf("%w: annual quota cannot be negative", ErrInvalidInput)
	}
	action := "update"
	if t.ID == "" {
		action = "create"
	}
	var saved hrapi.LeaveType
	err := s.Audit.Run(ctx, "leave-types", action, t.Code, func(ctx context.Context) error {
		var err error
		if t.ID == "" {
			saved, err = s.API.CreateLeaveType(ctx, t)
		} else {
			saved, err = s.API.UpdateLeaveType(ctx, t)
		}
		return err
	})
	if err != nil {
		return t, err
	}
	invalidate(ctx, s.Cache, "leave-types")
	return saved, nil
}

func (s *LeaveService) DeleteType(ctx context.Context, id string) error {
	err := s.Audit.Run(ctx, "leave-types", "delete", id, func(ctx context.Context) error {
		return s.API.DeleteLeaveType(ctx, id)
	})
	if err == nil {
		invalidate(ctx, s.Cache, "leave-types")
	}
	return err
}

func (s *LeaveService) Balances(ctx context.Context, employeeID string) (Listing[hrapi.LeaveBalance], error) {
	return cachedList(ctx, s.Cache, "leave-balances/"+employeeID, func(ctx context.Context) ([]hrapi.LeaveBalance, error) {
		return s.API.ListLeaveBalances(ctx, employeeID)
	})
}

func (s *LeaveService) Adjust(ctx context.Context, adj hrapi.BalanceAdjustment) (hrapi.LeaveBalance, error) {
	if adj.EmployeeID == "" || adj.LeaveTypeID == "" {
		return hrapi.LeaveBalance{}, fmt.Errorf("%w: employee and leave type are required", ErrInvalidInput)
	}
	if adj.Amount == 0 {
		return hrapi.LeaveBalance{}, fmt.Errorf("%w: adjustment amount cannot be zero", ErrInvalidInput)
	}
	if strings.TrimSpace(adj.Reason) == "" {
		return hrapi.LeaveBalance{}, fmt.Errorf("%w: a reason is required for balance adjustments", ErrInvalidInput)
	}
	var bal hrapi.LeaveBalance
	target := fmt.Sprintf("%s/%s %+g", adj.EmployeeID, adj.LeaveTypeID, adj.Amount)
	err := s.Audit.Run(ctx, "leave-balances", "adjust", target, func(ctx context.Context) error {
		var err error
		bal, err = s.API.AdjustLeaveBalance(ctx, adj)
		return err
	})
	if err == nil {
		invalidate(ctx, s.Cache, "leave-balances/")
	}
	return bal, err
}

func (s *LeaveService) Applications(ctx context.Context, f hrapi.LeaveFilter) (Listing[hrapi.LeaveApplication], error) {
	key := "leave-applications/" + f.Status + "/" + f.EmployeeID
	return cachedList(ctx, s.Cache, key, func(ctx context.Context) ([]hrapi.LeaveApplication, error) {
		return s.API.ListLeaveApplications(ctx, f)
	})
}

func (s *LeaveService) Apply(ctx context.Context, in hrapi.LeaveApplicationInput) (hrapi.LeaveApplication, error) {
	switch {
	case in.EmployeeID == "" || in.LeaveTypeID == "":
		return hrapi.LeaveApplication{}, fmt.Errorf("%w: employee and leave type are required", ErrInvalidInput)
	case in.StartDate.IsZero() || in.EndDate.IsZero():
		return hrapi.LeaveApplication{}, fmt.Errorf("%w: start and end dates are required", ErrInvalidInput)
	case in.EndDate.Before(in.StartDate.Time):
		return hrapi.LeaveApplication{}, fmt.Errorf("%w: end date is before start date", ErrInvalidInput)
	case in.StartDate.Equal(in.EndDate.Time) && in.StartHalf && in.EndHalf:
		return hrapi.LeaveApplication{}, fmt.Errorf("%w: a single day cannot start and end on a half", ErrInvalidInput)
	}
	var app hrapi.LeaveApplication
	err := s.Audit.Run(ctx, "leave-applications", "apply", in.EmployeeID, func(ctx context.Context) error {
		var err error
		app, err = s.API.ApplyLeave(ctx, in)
		return err
	})
	if err == nil {
		s.invalidateLeave(ctx)
	}
	return app, err
}

func (s *LeaveService) Approve(ctx context.Context, id, note string) (hrapi.LeaveApplication, error) {
	return s.decide(ctx, "approve", id, func(ctx context.Context) (hrapi.LeaveApplication, error) {
		return s.API.ApproveLeave(ctx, id, note)
	})
}

func (s *LeaveService) Reject(ctx context.Context, id, reason string) (hrapi.LeaveApplication, error) {
	if strings.TrimSpace(reason) == "" {
		return hrapi.LeaveApplication{}, fmt.Errorf("%w: a rejection reason is required", ErrInvalidInput)
	}
	return s.decide(ctx, "reject", id, func(ctx context.Context) (hrapi.LeaveApplication, error) {
		return s.API.RejectLeave(ctx, id, reason)
	})
}

func (s *LeaveService) Cancel(ctx context.Context, id string) (hrapi.LeaveApplication, error) {
	return s.decide(ctx, "cancel", id, func(ctx context.Context) (hrapi.LeaveApplication, error) {
		return s.API.CancelLeave(ctx, id)
	})
}

func (s *LeaveService) decide(ctx context.Context, action, id string, call func(context.Context) (hrapi.LeaveApplication, error)) (hrapi.LeaveApplication, error) {
	var app hrapi.LeaveApplication
	err := s.Audit.Run(ctx, "leave-applications", action, id, func(ctx context.Context) error {
		var err error
		app, err = call(ctx)
		return err
	})
	if err == nil {
		s.invalidateLeave(ctx)
	}
	return app, err
}

func (s *LeaveService) invalidateLeave(ctx context.Context) {
	invalidate(ctx, s.Cache, "leave-applications/")
	invalidate(ctx, s.Cache, "leave-balances/")
}
