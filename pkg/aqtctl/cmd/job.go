package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aqt/aqt-connector/pkg/aqtctl/app"
	"github.com/aqt/aqt-connector/pkg/aqtctl/errdefs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/jobs"
	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
	"github.com/aqt/aqt-connector/pkg/aqtctl/output"
)

func NewJobCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "job",
		Short: "Submit jobs and inspect their state",
	}
	cmd.AddCommand(
		newJobStatusCommand(),
		newJobWaitCommand(),
		newJobSubmitCommand(),
	)
	return cmd
}

func newJobStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status JOB_ID",
		Short: "Show the current state of a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			state, err := app.FetchJobState(cmd.Context(), a, jobID, rt.apiToken)
			if err != nil {
				return err
			}
			return rt.writeResult(state, func(w io.Writer) {
				output.WriteJobStateTable(w, jobID.String(), state)
			})
		},
	}
}

func newJobWaitCommand() *cobra.Command {
	var (
		interval    time.Duration
		maxAttempts int
	)

	cmd := &cobra.Command{
		Use:   "wait JOB_ID",
		Short: "Wait until a job reaches a final state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}
			if maxAttempts <= 0 {
				return fmt.Errorf("max-attempts must be positive, got %d", maxAttempts)
			}
			jobID, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			state, err := app.WaitForFinalState(cmd.Context(), a, jobID, app.WaitOptions{
				APIToken:      rt.apiToken,
				QueryInterval: interval,
				MaxAttempts:   maxAttempts,
				Out:           rt.ErrWriter(),
			})
			if err != nil {
				return err
			}
			return rt.writeResult(state, func(w io.Writer) {
				output.WriteJobStateTable(w, jobID.String(), state)
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", jobs.DefaultQueryInterval, "Base interval between state queries")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", jobs.DefaultMaxAttempts, "Maximum number of state queries")
	return cmd
}

func newJobSubmitCommand() *cobra.Command {
	var (
		workspace string
		resource  string
		file      string
		label     string
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a circuit job from a JSON or YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			job, err := readSubmission(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			if label != "" {
				job.Label = label
			}
			a, err := rt.App()
			if err != nil {
				return err
			}
			resp, err := app.SubmitJob(cmd.Context(), a, workspace, resource, job, rt.apiToken)
			if err != nil {
				return err
			}
			return rt.writeResult(resp, func(w io.Writer) {
				output.WriteSubmitTable(w, resp)
			})
		},
	}

	cmd.Flags().StringVar(&workspace, "workspace", "", "Workspace ID")
	cmd.Flags().StringVar(&resource, "resource", "", "Resource ID")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Job file (JSON or YAML, - for stdin)")
	cmd.Flags().StringVar(&label, "label", "", "Job label override")
	_ = cmd.MarkFlagRequired("workspace")
	_ = cmd.MarkFlagRequired("resource")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseJobID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", errdefs.ErrInvalidJobID, raw)
	}
	return id, nil
}

// readSubmission decodes a job file. Files ending in .yaml or .yml are read
// as YAML, everything else as JSON. A bare circuit list is accepted as well.
func readSubmission(stdin io.Reader, path string) (models.JobSubmission, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return models.JobSubmission{}, fmt.Errorf("failed to read job file: %w", err)
	}

	isYAML := strings.EqualFold(filepath.Ext(path), ".yaml") || strings.EqualFold(filepath.Ext(path), ".yml")
	unmarshal := json.Unmarshal
	if isYAML {
		unmarshal = yaml.Unmarshal
	}

	var job models.JobSubmission
	if err := unmarshal(data, &job); err == nil && len(job.Payload.Circuits) > 0 {
		if job.JobType == "" {
			job.JobType = models.JobTypeQuantumCircuit
		}
		return job, nil
	}
	var circuits []models.QuantumCircuit
	if err := unmarshal(data, &circuits); err != nil {
		return models.JobSubmission{}, fmt.Errorf("failed to parse job file: %w", err)
	}
	return models.NewCircuitSubmission("", circuits...), nil
}
