package interfaces

import "context"

// TokenSource provides a valid LINE WORKS access token, exchanging a signed
// assertion when no cached token is usable.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Directory looks up LINE WORKS user profiles
type Directory interface {
	DisplayName(ctx context.Context, accessToken, userID string) (string, error)
}
