package auth

import (
	"html/template"
	"net/http"
)

// Message types delivered to the opener window from the popup shim.
const (
	msgAuthSuccess = "LINKEDIN_AUTH_SUCCESS"
	msgAuthError   = "LINKEDIN_AUTH_ERROR"
)

// popupShimTmpl is rendered on the callback URL when the flow ran in a
// popup. It hands the outcome to the opener via postMessage, restricted
// to the configured origin, then closes itself. When the opener is gone
// (closed or navigated away) the page degrades to a plain link back home.
var popupShimTmpl = template.Must(template.New("popup_shim").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Success}}Signed in{{else}}Sign-in failed{{end}}</title>
</head>
<body>
<p>{{.Message}}</p>
<p><a href="/">Return to the site</a></p>
<script>
(function () {
	var payload = {{.Payload}};
	if (window.opener && !window.opener.closed) {
		window.opener.postMessage(payload, {{.AllowedOrigin}});
		window.setTimeout(function () { window.close(); }, {{.CloseDelayMS}});
	}
})();
</script>
</body>
</html>
`))

// errorPageTmpl is rendered on the callback URL for a failed
// redirect-strategy flow, where there is no opener to notify.
var errorPageTmpl = template.Must(template.New("auth_error").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Sign-in failed</title>
</head>
<body>
<h1>Sign-in failed</h1>
<p>{{.Message}}</p>
{{if .Retryable}}<p><a href="/auth/linkedin?retry=1">Try again</a></p>{{end}}
<p><a href="/">Return to the site</a></p>
</body>
</html>
`))

type popupShimData struct {
	Success       bool
	Message       string
	Payload       map[string]any
	AllowedOrigin string
	CloseDelayMS  int64
}

// renderPopupShim writes the postMessage shim page for a popup-strategy
// outcome.
func (s *Service) renderPopupShim(w http.ResponseWriter, outcome CallbackOutcome) {
	data := popupShimData{
		AllowedOrigin: s.cfg.AllowedOrigin,
		CloseDelayMS:  s.cfg.PopupCloseDelay.Milliseconds(),
	}

	if outcome.Succeeded() {
		data.Success = true
		data.Message = "You are signed in. This window will close shortly."
		data.Payload = map[string]any{
			"type": msgAuthSuccess,
			"user": outcome.User,
		}
	} else {
		data.Message = outcome.Err.Message
		data.Payload = map[string]any{
			"type":      msgAuthError,
			"error":     outcome.Err,
			"retryable": outcome.Err.Retryable,
		}
		// Security terminals close immediately; nothing to read or retry.
		if outcome.Security {
			data.CloseDelayMS = 0
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := popupShimTmpl.Execute(w, data); err != nil {
		s.log.Warn("popup shim render failed", "error", err)
	}
}

type errorPageData struct {
	Message   string
	Retryable bool
}

// renderErrorPage writes the full-page failure view for a
// redirect-strategy outcome.
func (s *Service) renderErrorPage(w http.ResponseWriter, flowErr *FlowError) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := errorPageTmpl.Execute(w, errorPageData{
		Message:   flowErr.Message,
		Retryable: flowErr.Retryable,
	}); err != nil {
		s.log.Warn("error page render failed", "error", err)
	}
}

// noStore marks an auth response as uncacheable.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
