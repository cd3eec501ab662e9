package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/jobs"
	"github.com/jackzampolin/binder/internal/jobs/ocrextract"
	"github.com/jackzampolin/binder/internal/svcctx"
)

// OCRExtractRequest describes a pattern-based page extraction job.
type OCRExtractRequest struct {
	// InputPath is the PDF to scan, as seen by the server.
	InputPath string `json:"input_path"`

	// Pattern is the text to look for on each page.
	Pattern string `json:"pattern"`

	// UseRegex treats Pattern as a regular expression.
	UseRegex bool `json:"use_regex,omitempty"`

	// CaseSensitive disables the default case folding.
	CaseSensitive bool `json:"case_sensitive,omitempty"`

	// Suffix names the output file next to the input.
	Suffix string `json:"suffix,omitempty"`
}

// OCRExtractEndpoint handles POST /api/v1/ocr/extract.
type OCRExtractEndpoint struct{}

func (e *OCRExtractEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/ocr/extract", e.handler
}

func (e *OCRExtractEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Enqueue an OCR page extraction
//	@Description	Scan a PDF for pages matching a pattern and write the matches to a new PDF
//	@Tags			ocr
//	@Accept			json
//	@Produce		json
//	@Param			request	body		OCRExtractRequest	true	"Extraction request"
//	@Success		202		{object}	EnqueueResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/v1/ocr/extract [post]
func (e *OCRExtractEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req OCRExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	job, err := ocrextract.New(ocrextract.Config{
		InputPath:     req.InputPath,
		Pattern:       req.Pattern,
		UseRegex:      req.UseRegex,
		CaseSensitive: req.CaseSensitive,
		Suffix:        req.Suffix,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	scheduler := svcctx.SchedulerFrom(r.Context())
	if scheduler == nil {
		writeError(w, http.StatusServiceUnavailable, "scheduler not initialized")
		return
	}

	jobID, err := scheduler.Submit(r.Context(), job, jobs.PriorityForType(ocrextract.JobType))
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to enqueue job: %v", err))
		return
	}

	writeJSON(w, http.StatusAccepted, EnqueueResponse{
		JobID:  jobID,
		Status: string(jobs.StatusQueued),
	})
}

func (e *OCRExtractEndpoint) Command(getServerURL func() string) *cobra.Command {
	var (
		useRegex      bool
		caseSensitive bool
		suffix        string
	)

	cmd := &cobra.Command{
		Use:   "extract <input-path> <pattern>",
		Short: "Enqueue an OCR page extraction job",
		Long: `Scan a PDF for pages whose OCR text matches a pattern and write the
matching pages to a new PDF next to the input.

The input path is interpreted on the server. Use 'binder api jobs get
<job-id>' to check progress.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := OCRExtractRequest{
				InputPath:     args[0],
				Pattern:       args[1],
				UseRegex:      useRegex,
				CaseSensitive: caseSensitive,
				Suffix:        suffix,
			}

			client := api.NewClient(getServerURL())
			var resp EnqueueResponse
			if err := client.Post(cmd.Context(), "/api/v1/ocr/extract", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}

	cmd.Flags().BoolVar(&useRegex, "regex", false, "treat the pattern as a regular expression")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match case exactly")
	cmd.Flags().StringVar(&suffix, "suffix", "", "suffix for the output file name")
	return cmd
}
