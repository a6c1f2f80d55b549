package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
	"github.com/aqt/aqt-connector/pkg/metrics"
	"github.com/aqt/aqt-connector/pkg/system"
	"github.com/aqt/aqt-connector/pkg/utils"
)

const (
	DefaultQueryInterval = time.Second
	DefaultMaxAttempts   = 600
)

// API is the part of the ARNICA HTTP client the service depends on.
type API interface {
	FetchJobState(ctx context.Context, token string, jobID uuid.UUID) (models.JobState, error)
	SubmitJob(ctx context.Context, token, workspaceID, resourceID string, job models.JobSubmission) (*models.SubmitJobResponse, error)
	ListWorkspaces(ctx context.Context, token string) ([]models.Workspace, error)
	GetResource(ctx context.Context, token, resourceID string) (*models.ResourceDetails, error)
}

// WaitOptions tunes WaitForResult. Zero values select the defaults.
type WaitOptions struct {
	// QueryInterval is the mean time between polls. Each wait is drawn
	// uniformly from [0.5, 1.5] times this value.
	QueryInterval time.Duration
	// MaxAttempts bounds the number of fetches.
	MaxAttempts int
	// Wait sleeps between polls. Defaults to utils.Sleep.
	Wait utils.WaitFunc
	// Out receives one line per transient error. Defaults to io.Discard.
	Out io.Writer
}

func (o WaitOptions) withDefaults() WaitOptions {
	if o.QueryInterval <= 0 {
		o.QueryInterval = DefaultQueryInterval
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.Wait == nil {
		o.Wait = utils.Sleep
	}
	if o.Out == nil {
		o.Out = io.Discard
	}
	return o
}

type Service struct {
	api API
	log *zap.SugaredLogger
}

func NewService(api API, log *zap.SugaredLogger) *Service {
	return &Service{api: api, log: system.OrNop(log)}
}

// FetchJobState performs a single state lookup.
func (s *Service) FetchJobState(ctx context.Context, token string, jobID uuid.UUID) (models.JobState, error) {
	return s.api.FetchJobState(ctx, token, jobID)
}

// WaitForResult polls until the job is final. Transient request errors are
// reported to opts.Out and retried; any other error ends the wait. After
// MaxAttempts fetches without a final state an *errdefs.TimeoutError is
// returned.
func (s *Service) WaitForResult(ctx context.Context, token string, jobID uuid.UUID, opts WaitOptions) (models.JobState, error) {
	opts = opts.withDefaults()
	log := s.log.With(system.JobFields(jobID.String(), 0)...)

	for attempt := 1; ; attempt++ {
		state, err := s.api.FetchJobState(ctx, token, jobID)
		switch {
		case err != nil && errdefs.IsTransient(err):
			metrics.JobPollAttempts.WithLabelValues("transient_error").Inc()
			metrics.JobPollTransientErrors.Inc()
			log.Warnw("Transient error while fetching job state", "attempt", attempt, "error", err)
			_, _ = fmt.Fprintf(opts.Out, "Transient (RequestError) error encountered while fetching job state: %v.\n", err)
		case err != nil:
			metrics.JobPollAttempts.WithLabelValues("error").Inc()
			return models.JobState{}, err
		case state.IsFinal():
			metrics.JobPollAttempts.WithLabelValues(string(state.Status)).Inc()
			log.Debugw("Job reached final state", "attempt", attempt, "status", state.Status)
			return state, nil
		default:
			metrics.JobPollAttempts.WithLabelValues(string(state.Status)).Inc()
			log.Debugw("Job not finished yet", "attempt", attempt, "status", state.Status)
		}

		if attempt >= opts.MaxAttempts {
			metrics.JobWaitTimeouts.Inc()
			return models.JobState{}, &errdefs.TimeoutError{Attempts: attempt}
		}
		if err := opts.Wait(ctx, utils.Jitter(opts.QueryInterval)); err != nil {
			return models.JobState{}, err
		}
	}
}

func (s *Service) SubmitJob(ctx context.Context, token, workspaceID, resourceID string, job models.JobSubmission) (*models.SubmitJobResponse, error) {
	resp, err := s.api.SubmitJob(ctx, token, workspaceID, resourceID, job)
	if err != nil {
		return nil, err
	}
	s.log.Infow("Job submitted", "jobID", resp.Job.JobID, "workspace", workspaceID, "resource", resourceID)
	return resp, nil
}

func (s *Service) ListWorkspaces(ctx context.Context, token string) ([]models.Workspace, error) {
	return s.api.ListWorkspaces(ctx, token)
}

func (s *Service) GetResource(ctx context.Context, token, resourceID string) (*models.ResourceDetails, error) {
	if resourceID == "" {
		return nil, errors.New("resource id is required")
	}
	return s.api.GetResource(ctx, token, resourceID)
}
