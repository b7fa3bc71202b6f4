package session

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/mudai/domain"
	"github.com/fastygo/mudai/internal/token"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// memoryExchange is a cookie jar where writes are visible to later reads.
type memoryExchange struct {
	jar     map[string]string
	written []*fasthttp.Cookie
}

func newMemoryExchange() *memoryExchange {
	return &memoryExchange{jar: map[string]string{}}
}

func (e *memoryExchange) Cookie(name string) string {
	return e.jar[name]
}

func (e *memoryExchange) SetCookie(cookie *fasthttp.Cookie) {
	stored := &fasthttp.Cookie{}
	stored.CopyTo(cookie)
	e.written = append(e.written, stored)
	e.jar[string(stored.Key())] = string(stored.Value())
}

func (e *memoryExchange) last() *fasthttp.Cookie {
	if len(e.written) == 0 {
		return nil
	}
	return e.written[len(e.written)-1]
}

func newTestManager(t *testing.T, clock *testClock, policy CookiePolicy) *Manager {
	t.Helper()
	codec, err := token.NewCodec(token.Config{Secret: "test-secret", Horizon: time.Hour}, token.WithClock(clock.Now))
	require.NoError(t, err)
	return NewManager(codec, Config{TTL: time.Hour, Cookie: policy}, nil, WithClock(clock.Now))
}

var alice = domain.Identity{Username: "alice", UCode: "AB12"}

func TestManager_EstablishAndCurrent(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})
	ex := newMemoryExchange()

	claims, err := manager.Establish(ex, alice)
	require.NoError(t, err)
	require.True(t, clock.now.Add(time.Hour).Equal(claims.Expires))

	cookie := ex.last()
	require.NotNil(t, cookie)
	require.Equal(t, CookieName, string(cookie.Key()))
	require.True(t, cookie.HTTPOnly())
	require.Equal(t, "/", string(cookie.Path()))
	require.Equal(t, fasthttp.CookieSameSiteLaxMode, cookie.SameSite())
	require.True(t, claims.Expires.Equal(cookie.Expire()))

	current, ok := manager.Current(ex)
	require.True(t, ok)
	require.Equal(t, "alice", current.User.Username)
	require.Equal(t, "AB12", current.User.UCode)
}

func TestManager_SubSecondClockKeepsCookieAndTokenAligned(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 400_000_000, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})
	ex := newMemoryExchange()

	claims, err := manager.Establish(ex, alice)
	require.NoError(t, err)
	require.True(t, time.Date(2026, 5, 1, 10, 0, 1, 0, time.UTC).Equal(claims.Expires))

	// just before the cookie expires the token is still accepted
	clock.now = time.Date(2026, 5, 1, 10, 0, 0, 900_000_000, time.UTC)
	current, ok := manager.Current(ex)
	require.True(t, ok)
	require.True(t, claims.Expires.Equal(current.Expires))
}

func TestManager_EstablishRequiresUsername(t *testing.T) {
	clock := &testClock{now: time.Now()}
	manager := newTestManager(t, clock, CookiePolicy{})

	_, err := manager.Establish(newMemoryExchange(), domain.Identity{UCode: "X"})
	require.ErrorIs(t, err, domain.ErrInvalidPayload)
}

func TestManager_CurrentWithoutCookie(t *testing.T) {
	clock := &testClock{now: time.Now()}
	manager := newTestManager(t, clock, CookiePolicy{})

	claims, outcome := manager.Lookup(newMemoryExchange())
	require.Nil(t, claims)
	require.Equal(t, Absent, outcome)
}

func TestManager_ExpiredSessionIsAbsentToCallers(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})
	ex := newMemoryExchange()

	_, err := manager.Establish(ex, alice)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)

	_, ok := manager.Current(ex)
	require.False(t, ok)

	_, outcome := manager.Lookup(ex)
	require.Equal(t, Invalid, outcome)
}

func TestManager_TamperedCookieIsInvalid(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})
	ex := newMemoryExchange()

	_, err := manager.Establish(ex, alice)
	require.NoError(t, err)

	parts := strings.Split(ex.jar[CookieName], ".")
	parts[1] = strings.ToUpper(parts[1][:4]) + parts[1][4:] + "x"
	ex.jar[CookieName] = strings.Join(parts, ".")

	_, outcome := manager.Lookup(ex)
	require.Equal(t, Invalid, outcome)
}

func TestManager_DestroyThenCurrent(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})
	ex := newMemoryExchange()

	_, err := manager.Establish(ex, alice)
	require.NoError(t, err)

	manager.Destroy(ex)

	cookie := ex.last()
	require.Empty(t, cookie.Value())
	require.True(t, cookie.Expire().Before(clock.now))

	_, outcome := manager.Lookup(ex)
	require.Equal(t, Absent, outcome)
}

func TestManager_RefreshSlidesExpiry(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})
	ex := newMemoryExchange()

	established, err := manager.Establish(ex, alice)
	require.NoError(t, err)
	before := ex.jar[CookieName]

	clock.Advance(20 * time.Minute)
	require.Equal(t, Active, manager.Refresh(ex))

	after := ex.jar[CookieName]
	require.NotEqual(t, before, after)

	refreshed, ok := manager.Current(ex)
	require.True(t, ok)
	require.True(t, refreshed.Expires.After(established.Expires))
	require.True(t, clock.now.Add(time.Hour).Equal(refreshed.Expires))
	require.Equal(t, established.User, refreshed.User)
	require.True(t, refreshed.Expires.Equal(ex.last().Expire()))
}

func TestManager_RefreshStrictlyIncreasesWithFrozenClock(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})
	ex := newMemoryExchange()

	established, err := manager.Establish(ex, alice)
	require.NoError(t, err)

	require.Equal(t, Active, manager.Refresh(ex))
	refreshed, ok := manager.Current(ex)
	require.True(t, ok)
	require.True(t, refreshed.Expires.After(established.Expires))
}

func TestManager_RefreshLeavesAbsentAndInvalidAlone(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})

	empty := newMemoryExchange()
	require.Equal(t, Absent, manager.Refresh(empty))
	require.Empty(t, empty.written)

	bogus := newMemoryExchange()
	bogus.jar[CookieName] = "garbage"
	require.Equal(t, Invalid, manager.Refresh(bogus))
	require.Empty(t, bogus.written)
}

func TestManager_CrossSitePolicy(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{CrossSite: true, Domain: "example.com"})
	ex := newMemoryExchange()

	_, err := manager.Establish(ex, alice)
	require.NoError(t, err)

	cookie := ex.last()
	require.Equal(t, fasthttp.CookieSameSiteNoneMode, cookie.SameSite())
	require.True(t, cookie.Secure())
	require.Equal(t, "example.com", string(cookie.Domain()))
	require.Equal(t, "session", string(cookie.Key()))

	// destroy clears the same cookie it issued
	manager.Destroy(ex)
	require.Equal(t, "session", string(ex.last().Key()))
	require.Empty(t, ex.jar["session"])
}

func TestRequestExchange_ReadsResponseCookiesFirst(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
	manager := newTestManager(t, clock, CookiePolicy{})

	// issue a token through one request
	first := &fasthttp.RequestCtx{}
	_, err := manager.Establish(FromRequestCtx(first), alice)
	require.NoError(t, err)

	issued := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(issued)
	issued.SetKey(CookieName)
	require.True(t, first.Response.Header.Cookie(issued))

	// the browser presents it on the next request
	second := &fasthttp.RequestCtx{}
	second.Request.Header.SetCookie(CookieName, string(issued.Value()))
	ex := FromRequestCtx(second)

	current, ok := manager.Current(ex)
	require.True(t, ok)
	require.Equal(t, "alice", current.User.Username)

	manager.Destroy(ex)
	_, ok = manager.Current(ex)
	require.False(t, ok)
}
