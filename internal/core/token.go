package core

import "time"

// Authorization header schemes used by access tokens.
const (
	TokenTypeBearer = "Bearer"
	TokenTypeBasic  = "Basic"
)

// AccessToken is the result of a successful credential request.
type AccessToken struct {
	// Token is the raw credential value placed in the Authorization header.
	Token string `json:"token"`

	// Type is the Authorization scheme to use with Token.
	Type string `json:"type"`

	// ExpiresOn indicates when this token becomes invalid.
	// Zero means the token does not expire (e.g. a PAT).
	ExpiresOn time.Time `json:"expires_on"`
}

// Valid reports whether the token is usable at the given instant,
// with a small safety margin so callers never send a nearly-expired token.
func (t AccessToken) Valid(now time.Time) bool {
	if t.Token == "" {
		return false
	}
	if t.ExpiresOn.IsZero() {
		return true
	}
	return now.Add(30 * time.Second).Before(t.ExpiresOn)
}
