package auth

import (
	"net/http"
	"strconv"

	"github.com/anamartins/folio/pkg/useragent"
)

// Strategy is how the OAuth handshake reaches the provider: a child popup
// window or a full-page redirect.
type Strategy string

const (
	StrategyPopup    Strategy = "popup"
	StrategyRedirect Strategy = "redirect"
)

// EnvSnapshot is the environment the strategy decision is made from.
// It is captured once per request so repeated selection is stable.
type EnvSnapshot struct {
	ViewportWidth int
	UserAgent     useragent.UserAgent
}

// SnapshotFromRequest captures the client environment. The viewport width
// comes from the vw query parameter the page script appends; it is zero
// when absent.
func SnapshotFromRequest(r *http.Request) EnvSnapshot {
	width, _ := strconv.Atoi(r.URL.Query().Get("vw"))
	return EnvSnapshot{
		ViewportWidth: width,
		UserAgent:     useragent.Parse(r.UserAgent()),
	}
}

// SelectStrategy picks the handshake strategy. Redirect wins on small
// viewports and mobile-class devices; popup otherwise. Pure function of
// the snapshot.
func (c Config) SelectStrategy(env EnvSnapshot) Strategy {
	if env.ViewportWidth > 0 && env.ViewportWidth <= c.SmallViewportWidth {
		return StrategyRedirect
	}
	if env.UserAgent.IsMobile() || env.UserAgent.IsTablet() {
		return StrategyRedirect
	}
	return StrategyPopup
}
