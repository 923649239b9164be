package analytics

import "time"

// Config holds the analytics service endpoints and delivery settings.
// Empty URLs disable the respective client; tracking becomes a no-op and
// reporting returns ErrDisabled.
type Config struct {
	IngestURL string `env:"ANALYTICS_INGEST_URL" envDefault:""`
	QueryURL  string `env:"ANALYTICS_QUERY_URL" envDefault:""`
	APIKey    string `env:"ANALYTICS_API_KEY" envDefault:""`

	// BufferSize bounds the delivery queue. A full queue drops events
	// instead of blocking callers.
	BufferSize int `env:"ANALYTICS_BUFFER_SIZE" envDefault:"256"`

	// DeliverTimeout bounds a single ingestion request.
	DeliverTimeout time.Duration `env:"ANALYTICS_DELIVER_TIMEOUT" envDefault:"5s"`
}

// Enabled reports whether event ingestion is configured.
func (c Config) Enabled() bool { return c.IngestURL != "" }
