package endpoints

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/jobs"
	"github.com/jackzampolin/binder/internal/svcctx"
)

// CancelResponse reports the outcome of cancelling an active job.
type CancelResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// DeleteJobEndpoint handles DELETE /api/v1/jobs/{id}. Active jobs are
// cancelled; finished jobs have their record removed.
type DeleteJobEndpoint struct{}

func (e *DeleteJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/v1/jobs/{id}", e.handler
}

func (e *DeleteJobEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Cancel or delete a job
//	@Description	Cancel a queued or running job, or remove a finished job's record
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	CancelResponse
//	@Success		204	"No Content"
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/v1/jobs/{id} [delete]
func (e *DeleteJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return
	}

	jm := svcctx.JobManagerFrom(r.Context())
	if jm == nil {
		writeError(w, http.StatusServiceUnavailable, "job manager not initialized")
		return
	}

	record, err := jm.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "job not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	switch record.Status {
	case jobs.StatusQueued, jobs.StatusRunning:
		scheduler := svcctx.SchedulerFrom(r.Context())
		if scheduler == nil {
			writeError(w, http.StatusServiceUnavailable, "scheduler not initialized")
			return
		}
		if err := scheduler.Cancel(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, CancelResponse{JobID: id, Status: string(jobs.StatusCancelled)})

	default:
		if err := jm.Delete(r.Context(), id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (e *DeleteJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Cancel an active job or delete a finished one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CancelResponse
			if err := client.Delete(cmd.Context(), "/api/v1/jobs/"+args[0], &resp); err != nil {
				return err
			}
			if resp.JobID == "" {
				fmt.Println("Job deleted")
				return nil
			}
			return api.Output(resp)
		},
	}
}
