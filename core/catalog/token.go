package catalog

import "time"

// tokenSafetyMargin is subtracted from the advertised token lifetime so
// a token is refreshed before it can expire mid-request.
const tokenSafetyMargin = 60 * time.Second

// Token is a cached bearer credential. Tokens are values: handing one
// to a request and later replacing the cache entry does not invalidate
// the copy already attached to the in-flight request.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Valid reports whether the token can still be attached to a request
// at the given instant.
func (t Token) Valid(now time.Time) bool {
	return t.Value != "" && now.Before(t.ExpiresAt)
}

// NewToken builds a token from an access_token/expires_in pair,
// applying the safety margin.
func NewToken(value string, expiresIn int, now time.Time) Token {
	return Token{
		Value:     value,
		ExpiresAt: now.Add(time.Duration(expiresIn)*time.Second - tokenSafetyMargin),
	}
}
