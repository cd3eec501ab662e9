package endpoints

import (
	"encoding/json"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/jobs"
	"github.com/jackzampolin/binder/internal/jobs/assemble"
	"github.com/jackzampolin/binder/internal/svcctx"
)

// EnqueueResponse is the response for a successful job submission.
type EnqueueResponse struct {
	JobID  string `json:"job_id"`
	Client string `json:"client,omitempty"`
	Status string `json:"status"`
}

// EnqueuePacketEndpoint handles POST /api/v1/packets/enqueue.
type EnqueuePacketEndpoint struct{}

func (e *EnqueuePacketEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/packets/enqueue", e.handler
}

func (e *EnqueuePacketEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Enqueue a packet assembly
//	@Description	Submit a packet run as a background job and return immediately
//	@Tags			packets
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AssembleRequest	true	"Assembly request"
//	@Success		202		{object}	EnqueueResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/v1/packets/enqueue [post]
func (e *EnqueuePacketEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req AssembleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Client == "" {
		writeError(w, http.StatusBadRequest, "client is required")
		return
	}

	man, err := requestManifest(req.Manifest)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	source, status, err := buildSource(r.Context(), req.Source)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	scheduler := svcctx.SchedulerFrom(r.Context())
	if scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not initialized")
		return
	}

	job, err := assemble.New(assemble.Config{
		Client:   req.Client,
		Manifest: man,
		Source:   source,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	jobID, err := scheduler.Submit(r.Context(), job, jobs.PriorityForType(assemble.JobType))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueResponse{
		JobID:  jobID,
		Client: req.Client,
		Status: string(jobs.StatusQueued),
	})
}

func (e *EnqueuePacketEndpoint) Command(getServerURL func() string) *cobra.Command {
	var manifestPath, sourceType string
	cmd := &cobra.Command{
		Use:   "enqueue <client> <source-path>",
		Short: "Enqueue a packet assembly job",
		Long: `Submit a packet run as a background job.

The command returns a job ID immediately.
Use 'binder api jobs get <job-id>' to check progress.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := manifestArg(manifestPath)
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var resp EnqueueResponse
			err = client.Post(cmd.Context(), "/api/v1/packets/enqueue", AssembleRequest{
				Client:   args[0],
				Manifest: raw,
				Source:   SourceSpec{Type: sourceType, Path: args[1]},
			}, &resp)
			if err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Manifest file (.json, .yaml, or .yml)")
	cmd.Flags().StringVar(&sourceType, "source-type", "local", "Source type: local or dropbox")
	return cmd
}
