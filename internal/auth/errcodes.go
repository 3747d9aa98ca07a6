package auth

// Entra ID error codes that mean the user must complete an interactive step
// before the requested token can be issued. Everything the token endpoint
// returns that is not listed here is a fatal delegation failure: treating a
// misconfigured client secret as "please re-authenticate" would send the user
// through a pointless prompt loop.
//
// The table is intentionally explicit instead of being inferred from error
// message text, which varies across provider versions and locales.
var interactionRequiredCodes = map[int]struct{}{
	50076: {}, // multi-factor authentication required
	50079: {}, // MFA enrollment required
	50158: {}, // external security challenge not satisfied
	53000: {}, // conditional access: compliant device required
	53001: {}, // conditional access: domain-joined device required
	53002: {}, // conditional access: location not allowed
	53003: {}, // blocked by conditional access, satisfiable interactively
	65001: {}, // user or admin consent required
}

// interactionRequiredError is the OAuth2 error string Entra ID uses when a
// token cannot be issued silently.
const interactionRequiredError = "interaction_required"

func isInteractionRequired(oauthError string, codes []int) bool {
	if oauthError == interactionRequiredError {
		return true
	}
	for _, code := range codes {
		if _, ok := interactionRequiredCodes[code]; ok {
			return true
		}
	}
	return false
}
