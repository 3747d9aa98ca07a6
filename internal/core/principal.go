package core

// Principal represents the authenticated identity of the caller.
// It is produced by a Verifier after validating an inbound Entra ID token.
type Principal struct {
	// ID is the stable subject identifier ('oid' claim, falling back to 'sub').
	ID string `json:"id"`

	// Email is the caller's mail address, if the token carries one.
	Email string `json:"email,omitempty"`

	// Name is the caller's display name.
	Name string `json:"name,omitempty"`

	// PreferredUsername is the UPN-style login name.
	PreferredUsername string `json:"preferred_username,omitempty"`

	// Claims are the raw claims extracted from the inbound token.
	Claims map[string]any `json:"-"`
}
