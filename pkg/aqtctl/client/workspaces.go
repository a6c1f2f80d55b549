package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
)

func (c *Client) ListWorkspaces(ctx context.Context, token string) ([]models.Workspace, error) {
	var resp []models.Workspace
	if err := c.do(ctx, token, http.MethodGet, "/v1/workspaces", "workspaces", nil, &resp, nil); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Client) GetResource(ctx context.Context, token, resourceID string) (*models.ResourceDetails, error) {
	if resourceID == "" {
		return nil, errors.New("resource id is required")
	}
	var resp models.ResourceDetails
	endpoint := "/v1/resources/" + url.PathEscape(resourceID)
	if err := c.do(ctx, token, http.MethodGet, endpoint, "resource", nil, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
