package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
)

func jobStatusMapper(status int) error {
	switch status {
	case http.StatusNotFound:
		return errdefs.ErrJobNotFound
	case http.StatusGone:
		return errdefs.ErrJobExpired
	case http.StatusUnprocessableEntity:
		return errdefs.ErrInvalidJobID
	}
	return nil
}

// FetchJobState performs a single GET of the job's result endpoint.
func (c *Client) FetchJobState(ctx context.Context, token string, jobID uuid.UUID) (models.JobState, error) {
	var resp models.ResultResponse
	endpoint := "/v1/result/" + url.PathEscape(jobID.String())
	if err := c.do(ctx, token, http.MethodGet, endpoint, "result", nil, &resp, jobStatusMapper); err != nil {
		return models.JobState{}, err
	}
	if err := resp.Response.Validate(); err != nil {
		return models.JobState{}, fmt.Errorf("invalid job state for %s: %w", jobID, err)
	}
	return resp.Response, nil
}

// SubmitJob posts a job to the given workspace and resource.
func (c *Client) SubmitJob(ctx context.Context, token, workspaceID, resourceID string, job models.JobSubmission) (*models.SubmitJobResponse, error) {
	if workspaceID == "" || resourceID == "" {
		return nil, errors.New("workspace and resource are required")
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}
	var resp models.SubmitJobResponse
	endpoint := fmt.Sprintf("/v1/submit/%s/%s", url.PathEscape(workspaceID), url.PathEscape(resourceID))
	if err := c.do(ctx, token, http.MethodPost, endpoint, "submit", job, &resp, nil); err != nil {
		return nil, err
	}
	return &resp, nil
}
