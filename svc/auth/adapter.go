package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"
)

// OAuth provider identifiers used across the auth flow.
const OAuthProviderLinkedIn = "linkedin"

// ProviderAdapter abstracts provider-specific OAuth behavior behind a
// minimal interface. Implementations encapsulate all protocol details
// (oauth2.Config, token exchange, profile API calls) and expose only the
// primitives the flow needs.
type ProviderAdapter interface {
	// ProviderID returns a stable provider identifier used for logging.
	ProviderID() string

	// AuthURL builds the provider authorization URL for the given state token.
	AuthURL(state string) (string, error)

	// ResolveProfile performs the end-to-end exchange for an authorization
	// code: code -> access token -> normalized profile. Token exchange
	// failures return ErrInvalidCode; a profile missing required fields
	// returns ErrNoProfile.
	ResolveProfile(ctx context.Context, code string) (UserRecord, error)
}

const linkedinUserinfoURL = "https://api.linkedin.com/v2/userinfo"

type linkedInAdapter struct {
	conf        *oauth2.Config
	httpClient  *http.Client
	userinfoURL string
}

// NewLinkedInAdapter creates a ProviderAdapter for LinkedIn's OpenID
// Connect endpoints.
func NewLinkedInAdapter(cfg Config) ProviderAdapter {
	return &linkedInAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     linkedin.Endpoint,
		},
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		userinfoURL: linkedinUserinfoURL,
	}
}

func (a *linkedInAdapter) ProviderID() string { return OAuthProviderLinkedIn }

func (a *linkedInAdapter) AuthURL(state string) (string, error) {
	if a.conf.ClientID == "" {
		return "", NewFlowError(KindConfigurationMissing, "Sign-in is not configured.", "missing LinkedIn client id", false)
	}
	return a.conf.AuthCodeURL(state), nil
}

// liUserinfo is LinkedIn's OIDC userinfo response shape.
type liUserinfo struct {
	Sub        string `json:"sub"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Email      string `json:"email"`
	Picture    string `json:"picture"`
	Locale     struct {
		Country  string `json:"country"`
		Language string `json:"language"`
	} `json:"locale"`
}

func (a *linkedInAdapter) ResolveProfile(ctx context.Context, code string) (UserRecord, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	token, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return UserRecord{}, ErrInvalidCode
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.userinfoURL, nil)
	if err != nil {
		return UserRecord{}, fmt.Errorf("build userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return UserRecord{}, fmt.Errorf("fetch linkedin profile: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return UserRecord{}, fmt.Errorf("fetch linkedin profile: unexpected status %d", resp.StatusCode)
	}

	var info liUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return UserRecord{}, errors.Join(ErrNoProfile, err)
	}

	name := info.Name
	if name == "" && (info.GivenName != "" || info.FamilyName != "") {
		name = info.GivenName
		if info.FamilyName != "" {
			if name != "" {
				name += " "
			}
			name += info.FamilyName
		}
	}

	record := UserRecord{
		ID:       info.Sub,
		Name:     name,
		Email:    info.Email,
		Picture:  info.Picture,
		Location: info.Locale.Country,
	}
	if !record.Valid() {
		return UserRecord{}, ErrNoProfile
	}

	return record, nil
}
