package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestJobStatusIsFinal(t *testing.T) {
	tests := []struct {
		status JobStatus
		final  bool
	}{
		{JobStatusQueued, false},
		{JobStatusOngoing, false},
		{JobStatusFinished, true},
		{JobStatusError, true},
		{JobStatusCancelled, true},
		{JobStatus("unknown"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.final, tt.status.IsFinal())
			assert.Equal(t, tt.final, JobState{Status: tt.status}.IsFinal())
		})
	}
}

func TestJobStateUnmarshal(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    JobState
		wantErr string
	}{
		{
			name: "queued",
			body: `{"status":"queued"}`,
			want: Queued(),
		},
		{
			name: "ongoing",
			body: `{"status":"ongoing","finished_count":3}`,
			want: Ongoing(3),
		},
		{
			name: "finished",
			body: `{"status":"finished","result":{"0":[[0,1],[1,1]]}}`,
			want: Finished(JobResult{0: {{0, 1}, {1, 1}}}),
		},
		{
			name: "error",
			body: `{"status":"error","message":"calibration failed"}`,
			want: Failed("calibration failed"),
		},
		{
			name: "cancelled",
			body: `{"status":"cancelled"}`,
			want: Cancelled(),
		},
		{
			name:    "unknown status",
			body:    `{"status":"paused"}`,
			wantErr: "unknown job status",
		},
		{
			name:    "ongoing without count",
			body:    `{"status":"ongoing"}`,
			wantErr: "finished_count is required",
		},
		{
			name:    "negative count",
			body:    `{"status":"ongoing","finished_count":-1}`,
			wantErr: "must be >= 0",
		},
		{
			name:    "finished without result",
			body:    `{"status":"finished"}`,
			wantErr: "result is required",
		},
		{
			name: "error with empty message",
			body: `{"status":"error","message":""}`,
			want: Failed(""),
		},
		{
			name:    "error without message",
			body:    `{"status":"error"}`,
			wantErr: "message is required",
		},
		{
			name:    "invalid bit",
			body:    `{"status":"finished","result":{"0":[[2]]}}`,
			wantErr: "invalid bit value",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var state JobState
			err := json.Unmarshal([]byte(tt.body), &state)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestJobStateTimingData(t *testing.T) {
	body := `{"status":"queued","timing_data":[{"new_status":"queued","timestamp":"2024-05-01T10:00:00Z"}]}`
	var state JobState
	require.NoError(t, json.Unmarshal([]byte(body), &state))
	require.Len(t, state.TimingData, 1)
	assert.Equal(t, JobStatusQueued, state.TimingData[0].NewStatus)
	assert.Equal(t, 2024, state.TimingData[0].Timestamp.Year())
}

func TestJobStateMarshalKeepsZeroFinishedCount(t *testing.T) {
	data, err := json.Marshal(Ongoing(0))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ongoing","finished_count":0}`, string(data))

	data, err = json.Marshal(Finished(JobResult{1: {{1, 0}}}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"finished","result":{"1":[[1,0]]}}`, string(data))
}

func TestResultResponseDecode(t *testing.T) {
	body := `{
		"job": {
			"job_id": "98d265ec-99fb-4edd-90d0-3d745307bf7b",
			"job_type": "quantum_circuit",
			"label": "bell",
			"resource_id": "simulator_noise",
			"workspace_id": "default"
		},
		"response": {"status": "ongoing", "finished_count": 1}
	}`
	var resp ResultResponse
	require.NoError(t, json.Unmarshal([]byte(body), &resp))
	assert.Equal(t, "98d265ec-99fb-4edd-90d0-3d745307bf7b", resp.Job.JobID.String())
	assert.Equal(t, JobTypeQuantumCircuit, resp.Job.JobType)
	assert.Equal(t, Ongoing(1), resp.Response)
}

func TestJobStateDecodeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 50).Draw(t, "count")
		shots := rapid.SliceOfN(rapid.SliceOfN(rapid.IntRange(0, 1), 1, 4), 1, 8).Draw(t, "shots")

		result := JobResult{}
		for circuit := 0; circuit < count%3+1; circuit++ {
			rows := make([][]Bit, len(shots))
			for i, shot := range shots {
				rows[i] = make([]Bit, len(shot))
				for j, v := range shot {
					rows[i][j] = Bit(v)
				}
			}
			result[circuit] = rows
		}

		for _, state := range []JobState{Ongoing(count), Finished(result)} {
			data, err := json.Marshal(state)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var decoded JobState
			if err := json.Unmarshal(data, &decoded); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if decoded.Status != state.Status || decoded.IsFinal() != state.IsFinal() {
				t.Fatalf("status changed: %v -> %v", state.Status, decoded.Status)
			}
			if decoded.FinishedCount != state.FinishedCount || len(decoded.Result) != len(state.Result) {
				t.Fatalf("payload changed for %v", state.Status)
			}
		}
	})
}
