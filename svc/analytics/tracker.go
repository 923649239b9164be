package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Event is one tracked occurrence with a free-form property bag.
type Event struct {
	Name  string         `json:"name"`
	Props map[string]any `json:"props,omitempty"`
	At    time.Time      `json:"at"`
}

// Client queues events on a buffered channel and delivers them to the
// ingestion endpoint from a background worker. Track never blocks: when
// the buffer is full the event is dropped and counted.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger

	queue   chan Event
	dropped atomic.Uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets the HTTP client used for delivery.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates the tracking client and starts its delivery worker.
// With no ingest URL configured the client stays inert and Track is a
// cheap no-op.
func NewClient(cfg Config, opts ...ClientOption) *Client {
	bufferSize := cfg.BufferSize
	if bufferSize <= 0 {
		bufferSize = 256
	}

	c := &Client{
		cfg:   cfg,
		http:  &http.Client{Timeout: cfg.DeliverTimeout},
		log:   slog.New(slog.DiscardHandler),
		queue: make(chan Event, bufferSize),
	}
	for _, opt := range opts {
		opt(c)
	}

	if cfg.Enabled() {
		c.wg.Add(1)
		go c.deliverLoop()
	}

	return c
}

// Track enqueues an event for delivery. Never blocks.
func (c *Client) Track(_ context.Context, event string, props map[string]any) {
	if !c.cfg.Enabled() {
		return
	}

	select {
	case c.queue <- Event{Name: event, Props: props, At: time.Now()}:
	default:
		c.dropped.Add(1)
		c.log.Debug("analytics buffer full, event dropped", slog.String("event", event))
	}
}

// Dropped returns how many events were discarded due to a full buffer.
func (c *Client) Dropped() uint64 { return c.dropped.Load() }

// Close stops accepting events and waits for the queue to drain.
func (c *Client) Close() error {
	c.closeOnce.Do(func() { close(c.queue) })
	c.wg.Wait()
	return nil
}

func (c *Client) deliverLoop() {
	defer c.wg.Done()
	for event := range c.queue {
		c.deliver(event)
	}
}

func (c *Client) deliver(event Event) {
	body, err := json.Marshal(event)
	if err != nil {
		c.log.Warn("analytics event marshal failed", slog.Any("error", err))
		return
	}

	timeout := c.cfg.DeliverTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.IngestURL, bytes.NewReader(body))
	if err != nil {
		c.log.Warn("analytics request build failed", slog.Any("error", err))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("analytics delivery failed", slog.String("event", event.Name), slog.Any("error", err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		c.log.Warn("analytics delivery rejected",
			slog.String("event", event.Name),
			slog.Int("status", resp.StatusCode))
	}
}
