package cmd

import (
	"bytes"
	"context"

	"github.com/google/uuid"

	"github.com/aqt/aqt-connector/pkg/aqtctl/app"
	"github.com/aqt/aqt-connector/pkg/aqtctl/config"
	"github.com/aqt/aqt-connector/pkg/aqtctl/jobs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
)

type fakeAuth struct {
	cached    string
	loginWith string
	loginErr  error
	cleared   bool
}

func (f *fakeAuth) GetAccessToken(context.Context) (string, error) { return f.cached, nil }

func (f *fakeAuth) GetOrRefreshAccessToken(context.Context, bool) (string, error) {
	if f.loginErr != nil {
		return "", f.loginErr
	}
	if f.cached != "" {
		return f.cached, nil
	}
	return f.loginWith, nil
}

func (f *fakeAuth) ClearAccessToken() error {
	f.cleared = true
	f.cached = ""
	return nil
}

type fakeJobs struct {
	state      models.JobState
	err        error
	tokens     []string
	waitOpts   jobs.WaitOptions
	submitted  *models.JobSubmission
	workspaces []models.Workspace
	resource   *models.ResourceDetails
}

func (f *fakeJobs) FetchJobState(_ context.Context, token string, _ uuid.UUID) (models.JobState, error) {
	f.tokens = append(f.tokens, token)
	return f.state, f.err
}

func (f *fakeJobs) WaitForResult(_ context.Context, token string, _ uuid.UUID, opts jobs.WaitOptions) (models.JobState, error) {
	f.tokens = append(f.tokens, token)
	f.waitOpts = opts
	return f.state, f.err
}

func (f *fakeJobs) SubmitJob(_ context.Context, token, workspaceID, resourceID string, job models.JobSubmission) (*models.SubmitJobResponse, error) {
	f.tokens = append(f.tokens, token)
	f.submitted = &job
	if f.err != nil {
		return nil, f.err
	}
	return &models.SubmitJobResponse{
		Job: models.BasicJobMetadata{
			JobID:       uuid.MustParse("7f2d1c4e-0b6a-4f0e-9c52-3a8e6b1d2f90"),
			JobType:     job.JobType,
			Label:       job.Label,
			WorkspaceID: workspaceID,
			ResourceID:  resourceID,
		},
		Response: models.Queued(),
	}, nil
}

func (f *fakeJobs) ListWorkspaces(_ context.Context, token string) ([]models.Workspace, error) {
	f.tokens = append(f.tokens, token)
	return f.workspaces, f.err
}

func (f *fakeJobs) GetResource(_ context.Context, token, _ string) (*models.ResourceDetails, error) {
	f.tokens = append(f.tokens, token)
	return f.resource, f.err
}

type harness struct {
	auth *fakeAuth
	jobs *fakeJobs
	out  *bytes.Buffer
	err  *bytes.Buffer
	cfg  config.Config
}

func newHarness() *harness {
	return &harness{
		auth: &fakeAuth{},
		jobs: &fakeJobs{},
		out:  &bytes.Buffer{},
		err:  &bytes.Buffer{},
	}
}

func (h *harness) config() Config {
	return Config{
		ConfigPath:   "/tmp/nonexistent-aqtctl-test-config.yaml",
		OutputWriter: h.out,
		ErrWriter:    h.err,
		NewApp: func(cfg config.Config, _ ...app.Option) (*app.App, error) {
			h.cfg = cfg
			return &app.App{Config: cfg, Auth: h.auth, Jobs: h.jobs}, nil
		},
	}
}

func (h *harness) run(args ...string) error {
	root := NewRootCommand(h.config())
	root.SetOut(h.out)
	root.SetErr(h.err)
	root.SetArgs(args)
	return root.Execute()
}
