package fcm

import "firebase.google.com/go/v4/messaging"

// TokenFate classifies what a per-token delivery error means for the token.
type TokenFate int

const (
	// TokenRetained: the failure counts against the campaign but the token
	// stays registered. This is the default for every unrecognized code.
	TokenRetained TokenFate = iota
	// TokenDead: the provider reports the token as permanently invalid and it
	// must be removed from the owning user record.
	TokenDead
)

// ClassifyTokenError maps a provider per-token error onto a fate.
// Only registration-token-not-registered drives cleanup; unknown codes are
// treated as non-fatal.
func ClassifyTokenError(err error) TokenFate {
	if err == nil {
		return TokenRetained
	}
	if messaging.IsRegistrationTokenNotRegistered(err) {
		return TokenDead
	}
	return TokenRetained
}
