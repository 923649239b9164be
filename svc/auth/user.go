package auth

import (
	"encoding/json"
	"strings"
)

// UserRecord is the authenticated user profile persisted in the session.
// Only ID and Name are required; everything else is best-effort data the
// provider may or may not return.
type UserRecord struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email,omitempty"`
	Headline         string `json:"headline,omitempty"`
	Location         string `json:"location,omitempty"`
	Picture          string `json:"picture,omitempty"`
	PublicProfileURL string `json:"publicProfileUrl,omitempty"`
}

// Valid reports whether the record passes the required-field shape check.
// Records failing it must be treated as absent.
func (u UserRecord) Valid() bool {
	return strings.TrimSpace(u.ID) != "" && strings.TrimSpace(u.Name) != ""
}

// decodeUserRecord parses a stored record. Parse failures and shape-check
// failures both yield ok=false so the caller purges the stored value.
func decodeUserRecord(data []byte) (UserRecord, bool) {
	if len(data) == 0 {
		return UserRecord{}, false
	}
	var u UserRecord
	if err := json.Unmarshal(data, &u); err != nil {
		return UserRecord{}, false
	}
	if !u.Valid() {
		return UserRecord{}, false
	}
	return u, true
}
