package analytics

import "errors"

var (
	// ErrDisabled indicates the analytics endpoint is not configured
	ErrDisabled = errors.New("analytics.disabled")

	// ErrQueryFailed indicates the query API rejected the request
	ErrQueryFailed = errors.New("analytics.query_failed")
)
