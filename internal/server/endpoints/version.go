package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/version"
)

// VersionResponse carries build metadata.
type VersionResponse struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
}

// VersionEndpoint handles GET /api/v1/version.
type VersionEndpoint struct{}

func (e *VersionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/version", e.handler
}

func (e *VersionEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Server version
//	@Description	Build metadata of the running server
//	@Tags			system
//	@Produce		json
//	@Success		200	{object}	VersionResponse
//	@Router			/api/v1/version [get]
func (e *VersionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{
		Version: version.GitRelease,
		Commit:  version.GitCommit,
		Date:    version.GitCommitDate,
		Go:      version.GoInfo,
	})
}

func (e *VersionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the running server's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp VersionResponse
			if err := client.Get(cmd.Context(), "/api/v1/version", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
