package jobs

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
	"github.com/aqt/aqt-connector/pkg/metrics"
	"github.com/aqt/aqt-connector/pkg/system"
)

type fetchCall struct {
	token string
	jobID uuid.UUID
}

// apiSpy answers FetchJobState from a script; the last entry repeats.
type apiSpy struct {
	answers []answer
	calls   []fetchCall
}

type answer struct {
	state models.JobState
	err   error
}

func (a *apiSpy) FetchJobState(_ context.Context, token string, jobID uuid.UUID) (models.JobState, error) {
	a.calls = append(a.calls, fetchCall{token: token, jobID: jobID})
	i := len(a.calls) - 1
	if i >= len(a.answers) {
		i = len(a.answers) - 1
	}
	return a.answers[i].state, a.answers[i].err
}

func (a *apiSpy) SubmitJob(_ context.Context, _, workspaceID, resourceID string, _ models.JobSubmission) (*models.SubmitJobResponse, error) {
	return &models.SubmitJobResponse{
		Job:      models.BasicJobMetadata{JobID: uuid.New(), WorkspaceID: workspaceID, ResourceID: resourceID},
		Response: models.Queued(),
	}, nil
}

func (a *apiSpy) ListWorkspaces(context.Context, string) ([]models.Workspace, error) {
	return []models.Workspace{{ID: "default"}}, nil
}

func (a *apiSpy) GetResource(_ context.Context, _, resourceID string) (*models.ResourceDetails, error) {
	return &models.ResourceDetails{ID: resourceID}, nil
}

func queuedThenFinished(queued int) []answer {
	answers := make([]answer, 0, queued+1)
	for i := 0; i < queued; i++ {
		answers = append(answers, answer{state: models.Queued()})
	}
	return append(answers, answer{state: finished()})
}

func finished() models.JobState {
	return models.Finished(models.JobResult{0: {{0, 0}}})
}

type waitSpy struct {
	durations []time.Duration
}

func (w *waitSpy) wait(_ context.Context, d time.Duration) error {
	w.durations = append(w.durations, d)
	return nil
}

func newTestService(api API) *Service {
	return NewService(api, system.NewTestLogger())
}

func TestWaitForResultInvokesAPIWithTokenAndJobID(t *testing.T) {
	api := &apiSpy{answers: []answer{{state: finished()}}}
	jobID := uuid.New()

	_, err := newTestService(api).WaitForResult(context.Background(), "some-token", jobID, WaitOptions{})
	require.NoError(t, err)
	require.Len(t, api.calls, 1)
	assert.Equal(t, fetchCall{token: "some-token", jobID: jobID}, api.calls[0])
}

func TestWaitForResultReturnsFinalStates(t *testing.T) {
	for _, state := range []models.JobState{finished(), models.Failed("boom"), models.Cancelled()} {
		t.Run(string(state.Status), func(t *testing.T) {
			api := &apiSpy{answers: []answer{{state: state}}}
			ws := &waitSpy{}
			got, err := newTestService(api).WaitForResult(context.Background(), "t", uuid.New(), WaitOptions{Wait: ws.wait})
			require.NoError(t, err)
			assert.Equal(t, state, got)
			assert.Empty(t, ws.durations)
		})
	}
}

func TestWaitForResultPollsUntilFinished(t *testing.T) {
	api := &apiSpy{answers: queuedThenFinished(2)}
	ws := &waitSpy{}

	got, err := newTestService(api).WaitForResult(context.Background(), "t", uuid.New(), WaitOptions{Wait: ws.wait})
	require.NoError(t, err)
	assert.True(t, got.IsFinal())
	assert.Len(t, api.calls, 3)
	assert.Len(t, ws.durations, 2)
}

func TestWaitForResultOngoingIsNotFinal(t *testing.T) {
	api := &apiSpy{answers: []answer{{state: models.Ongoing(0)}, {state: models.Ongoing(1)}, {state: finished()}}}
	ws := &waitSpy{}
	_, err := newTestService(api).WaitForResult(context.Background(), "t", uuid.New(), WaitOptions{Wait: ws.wait})
	require.NoError(t, err)
	assert.Len(t, api.calls, 3)
}

func TestWaitForResultJittersWaits(t *testing.T) {
	for _, interval := range []time.Duration{time.Second, 2 * time.Second, 5 * time.Second} {
		t.Run(interval.String(), func(t *testing.T) {
			api := &apiSpy{answers: queuedThenFinished(10)}
			ws := &waitSpy{}

			_, err := newTestService(api).WaitForResult(context.Background(), "t", uuid.New(), WaitOptions{
				QueryInterval: interval,
				Wait:          ws.wait,
			})
			require.NoError(t, err)
			require.Len(t, ws.durations, 10)

			allEqual := true
			for _, d := range ws.durations {
				assert.GreaterOrEqual(t, d, interval/2)
				assert.LessOrEqual(t, d, interval+interval/2)
				if d != interval {
					allEqual = false
				}
			}
			assert.False(t, allEqual, "waits should vary")
		})
	}
}

func TestWaitForResultContinuesOnTransientErrors(t *testing.T) {
	transient := errdefs.NewRequestError(errors.New("Simulated transient error"))
	api := &apiSpy{answers: []answer{{err: transient}, {err: transient}, {state: finished()}}}
	var out bytes.Buffer
	before := testutil.ToFloat64(metrics.JobPollTransientErrors)
	log, logs := system.NewObservedLogger(zapcore.WarnLevel)
	jobID := uuid.New()

	got, err := NewService(api, log).WaitForResult(context.Background(), "t", jobID, WaitOptions{
		Wait: (&waitSpy{}).wait,
		Out:  &out,
	})
	require.NoError(t, err)
	assert.Equal(t, finished(), got)
	assert.Len(t, api.calls, 3)

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, "Transient (RequestError) error encountered while fetching job state: Simulated transient error.", line)
	}
	assert.Equal(t, before+2, testutil.ToFloat64(metrics.JobPollTransientErrors))

	warnings := logs.FilterMessage("Transient error while fetching job state").All()
	require.Len(t, warnings, 2)
	for i, entry := range warnings {
		fields := entry.ContextMap()
		assert.Equal(t, jobID.String(), fields["jobID"])
		assert.EqualValues(t, i+1, fields["attempt"])
	}
}

func TestWaitForResultTimesOutAfterMaxAttempts(t *testing.T) {
	api := &apiSpy{answers: []answer{{err: errdefs.NewRequestError(errors.New("down"))}}}
	ws := &waitSpy{}
	before := testutil.ToFloat64(metrics.JobWaitTimeouts)

	_, err := newTestService(api).WaitForResult(context.Background(), "t", uuid.New(), WaitOptions{
		MaxAttempts: 5,
		Wait:        ws.wait,
	})
	require.ErrorIs(t, err, errdefs.ErrTimeout)
	var timeout *errdefs.TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 5, timeout.Attempts)
	assert.Equal(t, "timed out after 5 attempts waiting for job to finish", err.Error())
	assert.Len(t, api.calls, 5)
	assert.Len(t, ws.durations, 4)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.JobWaitTimeouts))
}

func TestWaitForResultTimesOutWhileQueued(t *testing.T) {
	api := &apiSpy{answers: []answer{{state: models.Queued()}}}
	_, err := newTestService(api).WaitForResult(context.Background(), "t", uuid.New(), WaitOptions{
		MaxAttempts: 3,
		Wait:        (&waitSpy{}).wait,
	})
	require.ErrorIs(t, err, errdefs.ErrTimeout)
	assert.Len(t, api.calls, 3)
}

func TestWaitForResultStopsOnNonTransientErrors(t *testing.T) {
	for _, wantErr := range []error{
		errdefs.ErrNotAuthenticated,
		errdefs.ErrJobNotFound,
		errdefs.ErrJobExpired,
		errdefs.ErrInvalidJobID,
		errdefs.ErrUnknownServer,
		errors.New("runtime failure"),
	} {
		t.Run(wantErr.Error(), func(t *testing.T) {
			api := &apiSpy{answers: []answer{{err: wantErr}}}
			ws := &waitSpy{}
			var out bytes.Buffer
			_, err := newTestService(api).WaitForResult(context.Background(), "t", uuid.New(), WaitOptions{Wait: ws.wait, Out: &out})
			require.ErrorIs(t, err, wantErr)
			assert.Len(t, api.calls, 1)
			assert.Empty(t, ws.durations)
			assert.Empty(t, out.String())
		})
	}
}

func TestWaitForResultHonoursCancellation(t *testing.T) {
	api := &apiSpy{answers: []answer{{state: models.Queued()}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(api).WaitForResult(ctx, "t", uuid.New(), WaitOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Len(t, api.calls, 1)
}

func TestWaitOptionsDefaults(t *testing.T) {
	opts := WaitOptions{}.withDefaults()
	assert.Equal(t, DefaultQueryInterval, opts.QueryInterval)
	assert.Equal(t, DefaultMaxAttempts, opts.MaxAttempts)
	assert.NotNil(t, opts.Wait)
	assert.NotNil(t, opts.Out)
}

func TestServicePassThroughs(t *testing.T) {
	svc := newTestService(&apiSpy{})

	resp, err := svc.SubmitJob(context.Background(), "t", "ws", "sim", models.JobSubmission{})
	require.NoError(t, err)
	assert.Equal(t, "ws", resp.Job.WorkspaceID)

	ws, err := svc.ListWorkspaces(context.Background(), "t")
	require.NoError(t, err)
	assert.Len(t, ws, 1)

	res, err := svc.GetResource(context.Background(), "t", "ibex")
	require.NoError(t, err)
	assert.Equal(t, "ibex", res.ID)

	_, err = svc.GetResource(context.Background(), "t", "")
	require.Error(t, err)
}
