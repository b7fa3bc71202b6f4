package domain

import "time"

// Identity is the user sub-record carried inside a session token.
type Identity struct {
	Username string `json:"username"`
	// Password is part of the claims shape but the gateway never populates it.
	Password string `json:"password,omitempty"`
	UCode    string `json:"ucode"`
}

// Claims is the session payload signed into the cookie token.
type Claims struct {
	User    Identity  `json:"user"`
	Expires time.Time `json:"expires"`
}

// IsExpired reports whether the session is stale at the reference time.
// A claims record without an expiry is never a valid session.
func (c *Claims) IsExpired(reference time.Time) bool {
	if c == nil || c.Expires.IsZero() {
		return true
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	return !c.Expires.After(reference)
}

// Public strips the identity of anything that must not leave the server.
func (i Identity) Public() Identity {
	i.Password = ""
	return i
}

// WholeSecond rounds t up to the next whole second. Token expiries are
// carried at second precision, so every expiry is stored that way.
func WholeSecond(t time.Time) time.Time {
	truncated := t.Truncate(time.Second)
	if truncated.Equal(t) {
		return t
	}
	return truncated.Add(time.Second)
}
