package config

// Config holds binder configuration.
// Stored at: ~/.binder/config.yaml
type Config struct {
	Server    ServerCfg    `mapstructure:"server" yaml:"server" json:"server"`
	Jobs      JobsCfg      `mapstructure:"jobs" yaml:"jobs" json:"jobs"`
	Gotenberg GotenbergCfg `mapstructure:"gotenberg" yaml:"gotenberg" json:"gotenberg"`
	Dropbox   DropboxCfg   `mapstructure:"dropbox" yaml:"dropbox" json:"dropbox"`
	OCR       OCRCfg       `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Assembly  AssemblyCfg  `mapstructure:"assembly" yaml:"assembly" json:"assembly"`
	Status    StatusCfg    `mapstructure:"status" yaml:"status" json:"status"`
}

// ServerCfg configures the HTTP API server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host" json:"host"`
	Port string `mapstructure:"port" yaml:"port" json:"port"`
}

// JobsCfg configures the background job system.
type JobsCfg struct {
	Workers int `mapstructure:"workers" yaml:"workers" json:"workers"` // Concurrent job executors
}

// GotenbergCfg holds Gotenberg conversion container configuration.
type GotenbergCfg struct {
	// Managed controls whether the server starts and owns the container.
	// When false, URL must point at an existing Gotenberg instance.
	Managed bool `mapstructure:"managed" yaml:"managed" json:"managed"`
	// ContainerName is the Docker container name (default: binder-gotenberg)
	ContainerName string `mapstructure:"container_name" yaml:"container_name" json:"container_name"`
	// Image is the Docker image to use (default: gotenberg/gotenberg:8)
	Image string `mapstructure:"image" yaml:"image" json:"image"`
	// Port is the host port to bind (default: 3000)
	Port string `mapstructure:"port" yaml:"port" json:"port"`
	// URL overrides the conversion endpoint (default: derived from Port)
	URL string `mapstructure:"url" yaml:"url" json:"url"`
	// Retries is the attempt count for transient conversion failures
	Retries uint `mapstructure:"retries" yaml:"retries" json:"retries"`
	// TimeoutSeconds bounds one conversion request
	TimeoutSeconds int `mapstructure:"timeout_seconds" yaml:"timeout_seconds" json:"timeout_seconds"`
}

// DropboxCfg configures the Dropbox index provider.
type DropboxCfg struct {
	// Token is the access token (supports ${ENV_VAR} syntax)
	Token string `mapstructure:"token" yaml:"token" json:"token"`
	// Root is the folder path packets are assembled from
	Root string `mapstructure:"root" yaml:"root" json:"root"`
	// TokenServiceURL points at a token refresh service; when set it is
	// used instead of the static token
	TokenServiceURL string `mapstructure:"token_service_url" yaml:"token_service_url" json:"token_service_url"`
	// TokenServiceSignature authenticates to the token service (supports ${ENV_VAR} syntax)
	TokenServiceSignature string `mapstructure:"token_service_signature" yaml:"token_service_signature" json:"token_service_signature"`
	// TokenServiceName identifies which service's token to fetch
	TokenServiceName string `mapstructure:"token_service_name" yaml:"token_service_name" json:"token_service_name"`
}

// OCRCfg configures pattern-based page extraction.
type OCRCfg struct {
	DPI  int    `mapstructure:"dpi" yaml:"dpi" json:"dpi"`   // Render resolution, 100-600
	Lang string `mapstructure:"lang" yaml:"lang" json:"lang"` // Tesseract language code
}

// AssemblyCfg configures separator page rendering.
type AssemblyCfg struct {
	SeparatorFont     string `mapstructure:"separator_font" yaml:"separator_font" json:"separator_font"`
	SeparatorFontSize int    `mapstructure:"separator_font_size" yaml:"separator_font_size" json:"separator_font_size"`
	SeparatorPaper    string `mapstructure:"separator_paper" yaml:"separator_paper" json:"separator_paper"`
}

// StatusCfg configures packet progress delivery.
type StatusCfg struct {
	// WebhookURL receives progress updates; empty disables the webhook
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url" json:"webhook_url"`
	// Retries is the delivery attempt count per update
	Retries uint `mapstructure:"retries" yaml:"retries" json:"retries"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Jobs: JobsCfg{
			Workers: 4,
		},
		Gotenberg: GotenbergCfg{
			Managed:        true,
			ContainerName:  "binder-gotenberg",
			Image:          "gotenberg/gotenberg:8",
			Port:           "3000",
			Retries:        3,
			TimeoutSeconds: 120,
		},
		Dropbox: DropboxCfg{
			Token: "${DROPBOX_ACCESS_TOKEN}",
		},
		OCR: OCRCfg{
			DPI:  300,
			Lang: "eng",
		},
		Assembly: AssemblyCfg{
			SeparatorFont:     "Helvetica-Bold",
			SeparatorFontSize: 28,
			SeparatorPaper:    "Letter",
		},
		Status: StatusCfg{
			Retries: 3,
		},
	}
}

// GotenbergBaseURL returns the conversion endpoint, deriving it from the
// container port when no explicit URL is configured.
func (c *Config) GotenbergBaseURL() string {
	if c.Gotenberg.URL != "" {
		return c.Gotenberg.URL
	}
	return "http://localhost:" + c.Gotenberg.Port
}

// DropboxConfigured reports whether any Dropbox credentials are present.
func (c *Config) DropboxConfigured() bool {
	return ResolveEnvVars(c.Dropbox.Token) != "" || c.Dropbox.TokenServiceURL != ""
}
