package session

import (
	"time"

	"github.com/valyala/fasthttp"
)

// CookieName is the cookie the browser carries the session token in.
// Clients look it up by this name, so it is not configurable.
const CookieName = "session"

// CookiePolicy defines how session cookies are issued.
type CookiePolicy struct {
	Path   string
	Domain string
	Secure bool
	// CrossSite is set when the UI and the API live on different sites.
	CrossSite bool
}

// normalize applies safe defaults without breaking callers
func (p CookiePolicy) normalize() CookiePolicy {
	if p.Path == "" {
		p.Path = "/"
	}
	if p.CrossSite {
		// browsers drop SameSite=None cookies that are not Secure
		p.Secure = true
	}
	return p
}

func (p CookiePolicy) build(value string, expires time.Time) *fasthttp.Cookie {
	cookie := fasthttp.AcquireCookie()
	cookie.SetKey(CookieName)
	cookie.SetValue(value)
	cookie.SetPath(p.Path)
	if p.Domain != "" {
		cookie.SetDomain(p.Domain)
	}
	cookie.SetExpire(expires)
	cookie.SetHTTPOnly(true)
	cookie.SetSecure(p.Secure)
	if p.CrossSite {
		cookie.SetSameSite(fasthttp.CookieSameSiteNoneMode)
	} else {
		cookie.SetSameSite(fasthttp.CookieSameSiteLaxMode)
	}
	return cookie
}
