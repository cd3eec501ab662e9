package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jackzampolin/binder/internal/api"
	"github.com/jackzampolin/binder/internal/assembly"
	"github.com/jackzampolin/binder/internal/dropbox"
	"github.com/jackzampolin/binder/internal/index"
	"github.com/jackzampolin/binder/internal/manifest"
	"github.com/jackzampolin/binder/internal/packet"
	"github.com/jackzampolin/binder/internal/svcctx"
)

// SourceSpec names the folder a packet is assembled from.
type SourceSpec struct {
	// Type is "local" for a directory on the server's disk or "dropbox"
	// for a folder in the configured Dropbox account.
	Type string `json:"type"`

	// Path is a directory path (local), a Dropbox folder path, or a
	// Dropbox shared link. Relative Dropbox paths are joined onto the
	// configured root folder.
	Path string `json:"path"`
}

// AssembleRequest is the request body for packet assembly.
type AssembleRequest struct {
	Client   string          `json:"client"`
	Manifest json.RawMessage `json:"manifest,omitempty" swaggertype:"object"`
	Source   SourceSpec      `json:"source"`
}

// SlotResolution is the wire form of one slot's resolution outcome.
type SlotResolution struct {
	Position       int    `json:"position"`
	Name           string `json:"name"`
	Required       bool   `json:"required"`
	Path           string `json:"path,omitempty"`
	Missing        bool   `json:"missing,omitempty"`
	Reason         string `json:"reason,omitempty"`
	CandidateCount int    `json:"candidate_count"`
}

// DropDetail is the wire form of one file excluded during assembly.
type DropDetail struct {
	Position int    `json:"position"`
	Name     string `json:"name"`
	File     string `json:"file"`
	Reason   string `json:"reason"`
}

// PacketResponse is the full result contract of a completed run.
type PacketResponse struct {
	Path            string           `json:"path"`
	PresenceMask    string           `json:"presence_mask"`
	MissingRequired []int            `json:"missing_required"`
	Resolutions     []SlotResolution `json:"resolutions"`
	Dropped         []DropDetail     `json:"dropped"`
}

// PacketErrorResponse reports a failed run with gate detail when available.
type PacketErrorResponse struct {
	Error        string `json:"error"`
	Stage        string `json:"stage,omitempty"`
	Positions    []int  `json:"positions,omitempty"`
	PresenceMask string `json:"presence_mask,omitempty"`
}

// AssemblePacketEndpoint handles POST /api/v1/packets.
type AssemblePacketEndpoint struct{}

func (e *AssemblePacketEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/v1/packets", e.handler
}

func (e *AssemblePacketEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Assemble a packet
//	@Description	Resolve the manifest against the source folder and merge the result into one PDF, synchronously
//	@Tags			packets
//	@Accept			json
//	@Produce		json
//	@Param			request	body		AssembleRequest	true	"Assembly request"
//	@Success		200		{object}	PacketResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		422		{object}	PacketErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/v1/packets [post]
func (e *AssemblePacketEndpoint) handler(w http.ResponseWriter, r *http.Request) {
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

	packets := svcctx.PacketsFrom(r.Context())
	if packets == nil {
		writeError(w, http.StatusServiceUnavailable, "packet service not initialized")
		return
	}

	report, err := packets.Run(r.Context(), packet.Request{Client: req.Client, Manifest: man}, source)
	if err != nil {
		writeRunError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, packetResponse(report))
}

func (e *AssemblePacketEndpoint) Command(getServerURL func() string) *cobra.Command {
	var manifestPath, sourceType string
	cmd := &cobra.Command{
		Use:   "assemble <client> <source-path>",
		Short: "Assemble a packet synchronously",
		Long: `Assemble a packet for a client from a source folder.

The source is a local directory on the server by default; pass
--source-type dropbox for a Dropbox folder path or shared link.
Without --manifest the server's built-in default manifest is used.

This command blocks until the packet is assembled. For long runs,
prefer 'binder api packets enqueue' and poll the returned job.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := manifestArg(manifestPath)
			if err != nil {
				return err
			}

			client := api.NewClient(getServerURL())
			var resp PacketResponse
			err = client.Post(cmd.Context(), "/api/v1/packets", AssembleRequest{
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

// requestManifest builds the run's manifest: the embedded default when the
// request carries none, otherwise the schema-validated request document.
func requestManifest(raw json.RawMessage) (*manifest.Manifest, error) {
	if len(raw) == 0 {
		return manifest.Default()
	}
	return manifest.ParseJSON(raw)
}

// buildSource constructs the index provider named by the spec. The second
// return value is the HTTP status to use when err is non-nil.
func buildSource(ctx context.Context, spec SourceSpec) (index.Provider, int, error) {
	if spec.Path == "" {
		return nil, http.StatusBadRequest, errors.New("source.path is required")
	}

	switch spec.Type {
	case "local":
		return index.NewFS(spec.Path, svcctx.LoggerFrom(ctx)), 0, nil

	case "dropbox":
		client := svcctx.DropboxFrom(ctx)
		if client == nil {
			return nil, http.StatusServiceUnavailable, errors.New("dropbox is not configured")
		}

		root := spec.Path
		if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
			resolved, err := client.ResolveSharedLink(ctx, root)
			if err != nil {
				return nil, http.StatusBadGateway, fmt.Errorf("resolving shared link: %w", err)
			}
			root = resolved
		} else if !strings.HasPrefix(root, "/") {
			var base string
			if cm := svcctx.ConfigFrom(ctx); cm != nil {
				base = cm.Get().Dropbox.Root
			}
			root = strings.TrimRight(base, "/") + "/" + root
		}
		return dropbox.NewFolder(client, root), 0, nil

	default:
		return nil, http.StatusBadRequest, fmt.Errorf("unknown source type %q (want local or dropbox)", spec.Type)
	}
}

// packetResponse flattens a run report into the wire contract.
func packetResponse(report *packet.Report) PacketResponse {
	resolutions := make([]SlotResolution, 0, len(report.Resolutions))
	for _, res := range report.Resolutions {
		resolutions = append(resolutions, SlotResolution{
			Position:       res.Slot.Position,
			Name:           res.Slot.Name,
			Required:       res.Slot.Required,
			Path:           res.CandidatePath,
			Missing:        res.Missing,
			Reason:         res.Reason,
			CandidateCount: res.CandidateCount,
		})
	}

	dropped := make([]DropDetail, 0, len(report.Dropped))
	for _, d := range report.Dropped {
		dropped = append(dropped, DropDetail{
			Position: d.Slot.Position,
			Name:     d.Slot.Name,
			File:     d.LocalPath,
			Reason:   d.Reason,
		})
	}

	return PacketResponse{
		Path:            report.Artifact.Path,
		PresenceMask:    report.Artifact.PresenceMask,
		MissingRequired: report.Artifact.MissingRequired,
		Resolutions:     resolutions,
		Dropped:         dropped,
	}
}

// writeRunError maps pipeline failures onto HTTP statuses: gate failures
// and empty merges are 422 with detail, bad manifests 400, the rest 500.
func writeRunError(w http.ResponseWriter, err error) {
	var missing *packet.RequiredMissingError
	var validation *manifest.ValidationError

	switch {
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, PacketErrorResponse{
			Error:        missing.Error(),
			Stage:        missing.Stage,
			Positions:    missing.Positions,
			PresenceMask: missing.Mask,
		})
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.Is(err, assembly.ErrEmpty):
		writeJSON(w, http.StatusUnprocessableEntity, PacketErrorResponse{Error: err.Error()})
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// manifestArg reads a manifest file for a CLI request body, converting
// YAML documents to JSON.
func manifestArg(path string) (json.RawMessage, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return json.RawMessage(data), nil
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parsing manifest: %w", err)
		}
		raw, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("converting manifest to JSON: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported manifest format %q (want .json, .yaml, or .yml)", filepath.Ext(path))
	}
}
