package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/jobs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
	"github.com/aqt/aqt-connector/pkg/utils"
)

var errNoToken = fmt.Errorf("%w: user not authenticated, please log in", errdefs.ErrNotAuthenticated)

// LogIn returns a valid access token, authenticating if the cached one is
// missing or invalid. New tokens are stored if the configuration says so.
func LogIn(ctx context.Context, a *App) (string, error) {
	return a.Auth.GetOrRefreshAccessToken(ctx, a.Config.StoreAccessToken)
}

// GetAccessToken returns the cached access token if it is valid and ""
// otherwise. It never starts an authentication flow.
func GetAccessToken(ctx context.Context, a *App) (string, error) {
	return a.Auth.GetAccessToken(ctx)
}

// LogOut removes stored tokens.
func LogOut(a *App) error {
	return a.Auth.ClearAccessToken()
}

func resolveToken(ctx context.Context, a *App, apiToken string) (string, error) {
	if apiToken != "" {
		return apiToken, nil
	}
	token, err := a.Auth.GetOrRefreshAccessToken(ctx, a.Config.StoreAccessToken)
	if err != nil {
		return "", err
	}
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

// FetchJobState returns the current state of a job. apiToken, when set, is
// used as is; otherwise a cached or freshly obtained token is used.
func FetchJobState(ctx context.Context, a *App, jobID uuid.UUID, apiToken string) (models.JobState, error) {
	token, err := resolveToken(ctx, a, apiToken)
	if err != nil {
		return models.JobState{}, err
	}
	return a.Jobs.FetchJobState(ctx, token, jobID)
}

type WaitOptions struct {
	// APIToken bypasses token resolution. A rejected APIToken is never
	// refreshed.
	APIToken      string
	QueryInterval time.Duration
	MaxAttempts   int
	Wait          utils.WaitFunc
	Out           io.Writer
}

// WaitForFinalState blocks until the job is final. If the API rejects a
// resolved token mid-wait, the token is refreshed once and the wait is
// restarted.
func WaitForFinalState(ctx context.Context, a *App, jobID uuid.UUID, opts WaitOptions) (models.JobState, error) {
	waitOpts := jobs.WaitOptions{
		QueryInterval: opts.QueryInterval,
		MaxAttempts:   opts.MaxAttempts,
		Wait:          opts.Wait,
		Out:           opts.Out,
	}
	if opts.APIToken != "" {
		return a.Jobs.WaitForResult(ctx, opts.APIToken, jobID, waitOpts)
	}

	token, err := resolveToken(ctx, a, "")
	if err != nil {
		return models.JobState{}, err
	}
	state, err := a.Jobs.WaitForResult(ctx, token, jobID, waitOpts)
	if err == nil || !errors.Is(err, errdefs.ErrNotAuthenticated) {
		return state, err
	}

	a.logger().Infow("Access token rejected while waiting, refreshing", "jobID", jobID)
	refreshed, rErr := a.Auth.GetOrRefreshAccessToken(ctx, a.Config.StoreAccessToken)
	if rErr != nil {
		return models.JobState{}, rErr
	}
	if refreshed == "" || refreshed == token {
		return models.JobState{}, err
	}
	return a.Jobs.WaitForResult(ctx, refreshed, jobID, waitOpts)
}

func SubmitJob(ctx context.Context, a *App, workspaceID, resourceID string, job models.JobSubmission, apiToken string) (*models.SubmitJobResponse, error) {
	token, err := resolveToken(ctx, a, apiToken)
	if err != nil {
		return nil, err
	}
	return a.Jobs.SubmitJob(ctx, token, workspaceID, resourceID, job)
}

func ListWorkspaces(ctx context.Context, a *App, apiToken string) ([]models.Workspace, error) {
	token, err := resolveToken(ctx, a, apiToken)
	if err != nil {
		return nil, err
	}
	return a.Jobs.ListWorkspaces(ctx, token)
}

func GetResource(ctx context.Context, a *App, resourceID, apiToken string) (*models.ResourceDetails, error) {
	token, err := resolveToken(ctx, a, apiToken)
	if err != nil {
		return nil, err
	}
	return a.Jobs.GetResource(ctx, token, resourceID)
}
