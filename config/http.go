package config

import "time"

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8000"`

	// BaseURL is the base URL of the service, used to build the
	// absolute download link in webhook notifications.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8000"`

	// ReadTimeout bounds request reads. Uploads can be large, so the
	// default is generous.
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"60s"`

	// MaxUploadBytes caps the total size of a multipart upload request.
	MaxUploadBytes int64 `env:"HTTP_MAX_UPLOAD_BYTES" envDefault:"268435456"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.ReadTimeout < time.Second {
		h.ReadTimeout = time.Second
	}
	const minUpload = 1 << 20
	if h.MaxUploadBytes < minUpload {
		h.MaxUploadBytes = minUpload
	}
}
