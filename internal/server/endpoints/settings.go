package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/config"
	"github.com/jackzampolin/binder/internal/svcctx"
)

// SettingsResponse contains the server's active configuration. Secret
// fields keep their ${ENV_VAR} placeholder syntax unresolved.
type SettingsResponse struct {
	Settings *config.Config `json:"settings"`
}

// SettingsEndpoint handles GET /api/v1/settings.
type SettingsEndpoint struct{}

func (e *SettingsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/v1/settings", e.handler
}

func (e *SettingsEndpoint) RequiresInit() bool { return false }

// handler godoc
//
//	@Summary		Get server settings
//	@Description	Returns the active configuration with secret placeholders unresolved
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/v1/settings [get]
func (e *SettingsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cm := svcctx.ConfigFrom(r.Context())
	if cm == nil {
		writeError(w, http.StatusServiceUnavailable, "config manager not initialized")
		return
	}

	cfg := cm.Get()
	writeJSON(w, http.StatusOK, SettingsResponse{Settings: cfg})
}

func (e *SettingsEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "settings",
		Short: "Show server settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SettingsResponse
			if err := client.Get(cmd.Context(), "/api/v1/settings", &resp); err != nil {
				return err
			}
			return api.Output(resp.Settings)
		},
	}
}
