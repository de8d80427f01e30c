package hrapi

import (
	"context"
	"net/http"
)

func (c *Client) ListOrganizations(ctx context.Context) ([]Organization, error) {
	return get[[]Organization](ctx, c, "/organizations", nil)
}

func (c *Client) CreateOrganization(ctx context.Context, o Organization) (Organization, error) {
	return send[Organization](ctx, c, http.MethodPost, "/organizations", o)
}

func (c *Client) UpdateOrganization(ctx context.Context, o Organization) (Organization, error) {
	return send[Organization](ctx, c, http.MethodPut, "/organizations/"+esc(o.ID), o)
}

func (c *Client) DeleteOrganization(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/organizations/"+esc(id), nil, nil, nil)
}
