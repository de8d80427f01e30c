package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
)

// AssignmentService binds employees to locations, shifts and week-off policies.
type AssignmentService struct {
	API   *hrapi.Client
	Cache *repository.ListCacheRepo
	Audit *Audit
}

func (s *AssignmentService) Locations(ctx context.Context) (Listing[hrapi.Location], error) {
	return cachedList(ctx, s.Cache, "locations", s.API.ListLocations)
}

func (s *AssignmentService) Shifts(ctx context.Context) (Listing[hrapi.Shift], error) {
	return cachedList(ctx, s.Cache, "shifts", s.API.ListShifts)
}

func (s *AssignmentService) WeekOffPolicies(ctx context.Context) (Listing[hrapi.WeekOffPolicy], error) {
	return cachedList(ctx, s.Cache, "week-off-policies", s.API.ListWeekOffPolicies)
}

// Assign assigns every employee in req, dropping blanks and duplicates.
func (s *AssignmentService) Assign(ctx context.Context, kind hrapi.AssignmentKind, req hrapi.AssignRequest) ([]hrapi.Assignment, error) {
	seen := map[string]bool{}
	ids := req.EmployeeIDs[:0:0]
	for _, id := range req.EmployeeIDs {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	req.EmployeeIDs = ids
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: select at least one employee", ErrInvalidInput)
	}
	if req.TargetID == "" {
		return nil, fmt.Errorf("%w: select a %s", ErrInvalidInput, kind)
	}
	var out []hrapi.Assignment
	target := fmt.Sprintf("%s <- %d employee(s)", req.TargetID, len(ids))
	err := s.Audit.Run(ctx, string(kind)+"-assignments", "assign", target, func(ctx context.Context) error {
		var err error
		out, err = s.API.Assign(ctx, kind, req)
		return err
	})
	if err == nil {
		invalidate(ctx, s.Cache, "assignments/"+string(kind)+"/")
		invalidate(ctx, s.Cache, "employees")
	}
	return out, err
}
