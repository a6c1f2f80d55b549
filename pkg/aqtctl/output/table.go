package output

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/aqt/aqt-connector/pkg/aqtctl/models"
)

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
}

func WriteWorkspaceTable(w io.Writer, workspaces []models.Workspace) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "WORKSPACE\tACCEPTING_JOBS\tRESOURCE\tNAME\tTYPE")
	for _, ws := range workspaces {
		if len(ws.Resources) == 0 {
			_, _ = fmt.Fprintf(tw, "%s\t%t\t-\t-\t-\n", ws.ID, ws.AcceptingJobSubmissions)
			continue
		}
		for _, r := range ws.Resources {
			_, _ = fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n", ws.ID, ws.AcceptingJobSubmissions, r.ID, r.Name, string(r.Type))
		}
	}
	_ = tw.Flush()
}

func WriteResourceTable(w io.Writer, r *models.ResourceDetails) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSTATUS\tQUBITS\tUPDATED")
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n", r.ID, r.Name, string(r.Type), string(r.Status), r.AvailableQubits, formatTime(r.StatusUpdatedAt))
	_ = tw.Flush()
}

// WriteJobStateTable prints the state of one job. For finished jobs each
// circuit is listed with its shot count.
func WriteJobStateTable(w io.Writer, jobID string, state models.JobState) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "JOB\tSTATUS\tDETAIL")
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", jobID, string(state.Status), stateDetail(state))
	_ = tw.Flush()

	if state.Status != models.JobStatusFinished || len(state.Result) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	tw = newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "CIRCUIT\tSHOTS\tSAMPLE")
	indices := make([]int, 0, len(state.Result))
	for i := range state.Result {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	for _, i := range indices {
		shots := state.Result[i]
		sample := "-"
		if len(shots) > 0 {
			sample = formatShot(shots[0])
		}
		_, _ = fmt.Fprintf(tw, "%d\t%d\t%s\n", i, len(shots), sample)
	}
	_ = tw.Flush()
}

func WriteSubmitTable(w io.Writer, resp *models.SubmitJobResponse) {
	tw := newTabWriter(w)
	_, _ = fmt.Fprintln(tw, "JOB\tWORKSPACE\tRESOURCE\tLABEL\tSTATUS")
	_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", resp.Job.JobID, resp.Job.WorkspaceID, resp.Job.ResourceID, dash(resp.Job.Label), string(resp.Response.Status))
	_ = tw.Flush()
}

func stateDetail(state models.JobState) string {
	switch state.Status {
	case models.JobStatusOngoing:
		return fmt.Sprintf("%d circuits finished", state.FinishedCount)
	case models.JobStatusFinished:
		return fmt.Sprintf("%d circuits", len(state.Result))
	case models.JobStatusError:
		return state.Message
	default:
		return "-"
	}
}

func formatShot(shot []models.Bit) string {
	var sb strings.Builder
	for _, b := range shot {
		if b == 1 {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
