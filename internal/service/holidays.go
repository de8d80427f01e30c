package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
)

// HolidayService manages the holiday calendar.
type HolidayService struct {
	API   *hrapi.Client
	Cache *repository.ListCacheRepo
	Audit *Audit
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Created int
	Skipped int
	Failed  []ImportFailure
}

type ImportFailure struct {
	Holiday hrapi.Holiday
	Err     error
}

// List returns the year's holidays sorted by date.
func (s *HolidayService) List(ctx context.Context, year int) (Listing[hrapi.Holiday], error) {
	l, err := cachedList(ctx, s.Cache, "holidays/"+strconv.Itoa(year), func(ctx context.Context) ([]hrapi.Holiday, error) {
		return s.API.ListHolidays(ctx, year)
	})
	if err != nil {
		return l, err
	}
	sort.SliceStable(l.Items, func(i, j int) bool { return l.Items[i].Date.Before(l.Items[j].Date.Time) })
	return l, nil
}

func (s *HolidayService) Save(ctx context.Context, h hrapi.Holiday) (hrapi.Holiday, error) {
	h.Name = strings.TrimSpace(h.Name)
	if h.Name == "" {
		return h, fmt.Errorf("%w: holiday name is required", ErrInvalidInput)
	}
	if h.Date.IsZero() {
		return h, fmt.Errorf("%w: holiday date is required", ErrInvalidInput)
	}
	action := "update"
	if h.ID == "" {
		action = "create"
	}
	var saved hrapi.Holiday
	err := s.Audit.Run(ctx, "holidays", action, h.Date.String()+" "+h.Name, func(ctx context.Context) error {
		var err error
		if h.ID == "" {
			saved, err = s.API.CreateHoliday(ctx, h)
		} else {
			saved, err = s.API.UpdateHoliday(ctx, h)
		}
		return err
	})
	if err != nil {
		return h, err
	}
	invalidate(ctx, s.Cache, "holidays/")
	return saved, nil
}

func (s *HolidayService) Delete(ctx context.Context, id string) error {
	err := s.Audit.Run(ctx, "holidays", "delete", id, func(ctx context.Context) error {
		return s.API.DeleteHoliday(ctx, id)
	})
	if err == nil {
		invalidate(ctx, s.Cache, "holidays/")
	}
	return err
}

// Import creates holidays that do not exist yet. A holiday already present
// on the same date with the same name (case-insensitive) is skipped.
func (s *HolidayService) Import(ctx context.Context, hols []hrapi.Holiday) (ImportResult, error) {
	var res ImportResult
	existing := map[string]bool{}
	years := map[int]bool{}
	for _, h := range hols {
		years[h.Date.Year()] = true
	}
	for y := range years {
		current, err := s.API.ListHolidays(ctx, y)
		if err != nil {
			return res, fmt.Errorf("list %d holidays: %w", y, err)
		}
		for _, h := range current {
			existing[holidayKey(h)] = true
		}
	}

	for _, h := range hols {
		h.ID = ""
		if existing[holidayKey(h)] {
			res.Skipped++
			continue
		}
		if _, err := s.Save(ctx, h); err != nil {
			res.Failed = append(res.Failed, ImportFailure{Holiday: h, Err: err})
			continue
		}
		existing[holidayKey(h)] = true
		res.Created++
	}
	return res, nil
}

func holidayKey(h hrapi.Holiday) string {
	return h.Date.String() + "|" + strings.ToLower(strings.TrimSpace(h.Name))
}
