package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobStatus is the discriminant of JobState.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusOngoing   JobStatus = "ongoing"
	JobStatusFinished  JobStatus = "finished"
	JobStatusError     JobStatus = "error"
	JobStatusCancelled JobStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s JobStatus) Valid() bool {
	switch s {
	case JobStatusQueued, JobStatusOngoing, JobStatusFinished, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// IsFinal reports whether no further transition follows s.
func (s JobStatus) IsFinal() bool {
	switch s {
	case JobStatusFinished, JobStatusError, JobStatusCancelled:
		return true
	}
	return false
}

// JobType is the kind of a submitted job.
type JobType string

const JobTypeQuantumCircuit JobType = "quantum_circuit"

// Bit is a single measured qubit value, 0 or 1.
type Bit uint8

func (b Bit) MarshalJSON() ([]byte, error) {
	return json.Marshal(int(b))
}

func (b *Bit) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if v != 0 && v != 1 {
		return fmt.Errorf("invalid bit value %d", v)
	}
	*b = Bit(v)
	return nil
}

// StatusChange records when a job moved to a new status.
type StatusChange struct {
	NewStatus JobStatus `json:"new_status"`
	Timestamp time.Time `json:"timestamp"`
}

// JobResult maps circuit index to the measured shots of that circuit.
type JobResult map[int][][]Bit

// JobState is the tagged union of job states. Status selects which of the
// variant fields is meaningful:
//
//	queued     no payload
//	ongoing    FinishedCount
//	finished   Result
//	error      Message
//	cancelled  no payload
type JobState struct {
	Status        JobStatus      `json:"status" yaml:"status"`
	TimingData    []StatusChange `json:"timing_data,omitempty" yaml:"timing_data,omitempty"`
	FinishedCount int            `json:"finished_count,omitempty" yaml:"finished_count,omitempty"`
	Result        JobResult      `json:"result,omitempty" yaml:"result,omitempty"`
	Message       string         `json:"message,omitempty" yaml:"message,omitempty"`
}

func Queued() JobState { return JobState{Status: JobStatusQueued} }

func Ongoing(finishedCount int) JobState {
	return JobState{Status: JobStatusOngoing, FinishedCount: finishedCount}
}

func Finished(result JobResult) JobState {
	return JobState{Status: JobStatusFinished, Result: result}
}

func Failed(message string) JobState {
	return JobState{Status: JobStatusError, Message: message}
}

func Cancelled() JobState { return JobState{Status: JobStatusCancelled} }

// IsFinal reports whether the job reached a terminal state.
func (s JobState) IsFinal() bool {
	return s.Status.IsFinal()
}

// Validate checks the variant specific fields against the discriminant.
func (s JobState) Validate() error {
	switch s.Status {
	case JobStatusQueued, JobStatusCancelled:
		return nil
	case JobStatusOngoing:
		if s.FinishedCount < 0 {
			return fmt.Errorf("ongoing job: finished_count must be >= 0, got %d", s.FinishedCount)
		}
		return nil
	case JobStatusFinished:
		if s.Result == nil {
			return errors.New("finished job: result is required")
		}
		return nil
	case JobStatusError:
		return nil
	default:
		return fmt.Errorf("unknown job status %q", s.Status)
	}
}

func (s JobState) MarshalJSON() ([]byte, error) {
	out := map[string]any{"status": s.Status}
	if len(s.TimingData) > 0 {
		out["timing_data"] = s.TimingData
	}
	switch s.Status {
	case JobStatusOngoing:
		out["finished_count"] = s.FinishedCount
	case JobStatusFinished:
		out["result"] = s.Result
	case JobStatusError:
		out["message"] = s.Message
	}
	return json.Marshal(out)
}

func (s *JobState) UnmarshalJSON(data []byte) error {
	var raw struct {
		Status        JobStatus      `json:"status"`
		TimingData    []StatusChange `json:"timing_data"`
		FinishedCount *int           `json:"finished_count"`
		Result        JobResult      `json:"result"`
		Message       *string        `json:"message"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	state := JobState{Status: raw.Status, TimingData: raw.TimingData}
	switch raw.Status {
	case JobStatusOngoing:
		if raw.FinishedCount == nil {
			return errors.New("ongoing job: finished_count is required")
		}
		state.FinishedCount = *raw.FinishedCount
	case JobStatusFinished:
		state.Result = raw.Result
	case JobStatusError:
		// An empty message is a valid answer, a missing one is not.
		if raw.Message == nil {
			return errors.New("failed job: message is required")
		}
		state.Message = *raw.Message
	}
	if err := state.Validate(); err != nil {
		return err
	}
	*s = state
	return nil
}

// BasicJobMetadata describes a submitted job.
type BasicJobMetadata struct {
	JobID       uuid.UUID `json:"job_id"`
	JobType     JobType   `json:"job_type"`
	Label       string    `json:"label,omitempty"`
	ResourceID  string    `json:"resource_id"`
	WorkspaceID string    `json:"workspace_id"`
}

// ResultResponse is the body of the result endpoint.
type ResultResponse struct {
	Job      BasicJobMetadata `json:"job"`
	Response JobState         `json:"response"`
}

// SubmitJobResponse is the body of the submit endpoint.
type SubmitJobResponse struct {
	Job      BasicJobMetadata `json:"job"`
	Response JobState         `json:"response"`
}
