package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/attendly/hrdesk/internal/database/repository"
	"github.com/attendly/hrdesk/internal/hrapi"
)

// OrganizationService manages organizations.
type OrganizationService struct {
	API   *hrapi.Client
	Cache *repository.ListCacheRepo
	Audit *Audit
}

func (s *OrganizationService) List(ctx context.Context) (Listing[hrapi.Organization], error) {
	return cachedList(ctx, s.Cache, "organizations", s.API.ListOrganizations)
}

// Save creates the organization when it has no ID and updates it otherwise.
func (s *OrganizationService) Save(ctx context.Context, o hrapi.Organization) (hrapi.Organization, error) {
	o.Name = strings.TrimSpace(o.Name)
	o.Code = strings.ToUpper(strings.TrimSpace(o.Code))
	if o.Name == "" || o.Code == "" {
		return o, fmt.Errorf("%w: organization name and code are required", ErrInvalidInput)
	}
	action := "update"
	if o.ID == "" {
		action = "create"
	}
	var saved hrapi.Organization
	err := s.Audit.Run(ctx, "organizations", action, o.Code, func(ctx context.Context) error {
		var err error
		if o.ID == "" {
			saved, err = s.API.CreateOrganization(ctx, o)
		} else {
			saved, err = s.API.UpdateOrganization(ctx, o)
		}
		return err
	})
	if err != nil {
		return o, err
	}
	invalidate(ctx, s.Cache, "organizations")
	return saved, nil
}

func (s *OrganizationService) Delete(ctx context.Context, id string) error {
	err := s.Audit.Run(ctx, "organizations", "delete", id, func(ctx context.Context) error {
		return s.API.DeleteOrganization(ctx, id)
	})
	if err == nil {
		invalidate(ctx, s.Cache, "organizations")
	}
	return err
}
