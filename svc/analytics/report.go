package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ReportRequest selects which events to count and over what date range.
type ReportRequest struct {
	Events []string  `json:"events,omitempty"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
}

// Report is the query API's aggregation: per-event counts plus total.
type Report struct {
	Counts map[string]int `json:"counts"`
	Total  int            `json:"total"`
}

// ReportClient queries the analytics service's aggregation API.
type ReportClient struct {
	cfg  Config
	http *http.Client
}

// ReportOption configures the ReportClient.
type ReportOption func(*ReportClient)

// WithReportHTTPClient sets the HTTP client used for queries.
func WithReportHTTPClient(hc *http.Client) ReportOption {
	return func(r *ReportClient) {
		if hc != nil {
			r.http = hc
		}
	}
}

// NewReportClient creates a reporting client.
func NewReportClient(cfg Config, opts ...ReportOption) *ReportClient {
	r := &ReportClient{cfg: cfg, http: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EventCounts returns event counts for the requested range.
func (r *ReportClient) EventCounts(ctx context.Context, req ReportRequest) (Report, error) {
	if r.cfg.QueryURL == "" {
		return Report{}, ErrDisabled
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Report{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.QueryURL, bytes.NewReader(body))
	if err != nil {
		return Report{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.http.Do(httpReq)
	if err != nil {
		return Report{}, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("%w: unexpected status %d", ErrQueryFailed, resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	return report, nil
}
