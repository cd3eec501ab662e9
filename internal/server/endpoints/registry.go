// Package endpoints defines the HTTP API endpoints and their CLI
// counterparts. Each endpoint implements api.Endpoint: one route, one
// handler, and one cobra command that calls the route over HTTP.
package endpoints

import (
	"github.com/jackzampolin/binder/internal/api"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	SwaggerSpecPath string
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// System endpoints
		&HealthEndpoint{},
		&VersionEndpoint{},

		// Packet endpoints
		&AssemblePacketEndpoint{},
		&EnqueuePacketEndpoint{},

		// Job endpoints
		&ListJobsEndpoint{},
		&GetJobEndpoint{},
		&DeleteJobEndpoint{},

		// OCR endpoints
		&OCRExtractEndpoint{},

		// Manifest endpoints
		&DefaultManifestEndpoint{},
		&ValidateManifestEndpoint{},

		// Settings endpoint
		&SettingsEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{SpecPath: cfg.SwaggerSpecPath},
		&SwaggerUIEndpoint{},
	}
}
