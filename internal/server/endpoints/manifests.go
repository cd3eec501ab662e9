package endpoints

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/manifest"
)

// DefaultManifestEndpoint handles GET /api/v1/manifests/default.
type DefaultManifestEndpoint struct{}

func (e *DefaultManifestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/manifests/default", e.handler
}

func (e *DefaultManifestEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get the default manifest
//	@Description	Returns the built-in manifest document in its wire form
//	@Tags			manifests
//	@Produce		json
//	@Success		200	{object}	manifest.Document
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/v1/manifests/default [get]
func (e *DefaultManifestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	doc, err := manifest.DefaultDocument()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (e *DefaultManifestEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "default",
		Short: "Show the built-in default manifest",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var doc manifest.Document
			if err := client.Get(cmd.Context(), "/api/v1/manifests/default", &doc); err != nil {
				return err
			}
			return api.Output(doc)
		},
	}
}

// ValidateManifestResponse reports the outcome of manifest validation.
type ValidateManifestResponse struct {
	Valid bool   `json:"valid"`
	Name  string `json:"name,omitempty"`
	Slots int    `json:"slots,omitempty"`
}

// ValidateManifestEndpoint handles POST /api/v1/manifests/validate. The
// body is a manifest document in JSON form.
type ValidateManifestEndpoint struct{}

func (e *ValidateManifestEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/manifests/validate", e.handler
}

func (e *ValidateManifestEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Validate a manifest
//	@Description	Schema-validate and compile a manifest document without running an assembly
//	@Tags			manifests
//	@Accept			json
//	@Produce		json
//	@Param			manifest	body		manifest.Document	true	"Manifest document"
//	@Success		200			{object}	ValidateManifestResponse
//	@Failure		400			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/v1/manifests/validate [post]
func (e *ValidateManifestEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read request body: %v", err))
		return
	}

	m, err := manifest.ParseJSON(data)
	if err != nil {
		var verr *manifest.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, ValidateManifestResponse{
		Valid: true,
		Name:  m.Name(),
		Slots: m.Len(),
	})
}

func (e *ValidateManifestEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate a manifest file",
		Long: `Validate a manifest file against the manifest schema without running
an assembly. YAML manifests are converted to JSON before submission.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := manifestArg(args[0])
			if err != nil {
				return err
			}
			if raw == nil {
				return fmt.Errorf("manifest path is required")
			}

			client := api.NewClient(getServerURL())
			var resp ValidateManifestResponse
			if err := client.Post(cmd.Context(), "/api/v1/manifests/validate", raw, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
