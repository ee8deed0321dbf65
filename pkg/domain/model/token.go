package model

import "time"

// AccessToken is a bearer credential for the LINE WORKS API with its
// pre-computed expiry. ExpiresAt already includes the early-expiry margin,
// so the token is usable strictly before ExpiresAt.
type AccessToken struct {
	Token     string `masq:"secret"`
	ExpiresAt time.Time
}

// Valid reports whether the token can still be used at the given time
func (x *AccessToken) Valid(now time.Time) bool {
	return x != nil && x.Token != "" && now.Before(x.ExpiresAt)
}
