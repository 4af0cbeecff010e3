package session

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// DefaultCookieMaxAge is the lifetime of credential cookies.
const DefaultCookieMaxAge = 7 * 24 * time.Hour

type CookieOptions struct {
	MaxAge time.Duration
	Secure bool
}

// CookieSubstrate reads credentials from the request cookies and writes them
// as Set-Cookie headers on the response. Writes made during the request are
// visible to later reads of the same substrate.
type CookieSubstrate struct {
	r       *http.Request
	w       http.ResponseWriter
	opts    CookieOptions
	overlay map[string]*string
}

func NewCookieSubstrate(r *http.Request, w http.ResponseWriter, opts CookieOptions) *CookieSubstrate {
	if opts.MaxAge <= 0 {
		opts.MaxAge = DefaultCookieMaxAge
	}
	return &CookieSubstrate{r: r, w: w, opts: opts, overlay: make(map[string]*string)}
}

func (c *CookieSubstrate) Name() string { return "cookie" }

func (c *CookieSubstrate) Get(_ context.Context, key string) (string, bool, error) {
	if value, ok := c.overlay[key]; ok {
		if value == nil || *value == "" {
			return "", false, nil
		}
		return *value, true, nil
	}
	if c.r == nil {
		return "", false, nil
	}
	cookie, err := c.r.Cookie(key)
	if err != nil {
		return "", false, nil
	}
	value, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		value = cookie.Value
	}
	if value == "" {
		return "", false, nil
	}
	return value, true, nil
}

func (c *CookieSubstrate) Set(_ context.Context, key, value string) error {
	c.overlay[key] = &value
	if c.w == nil {
		return nil
	}
	http.SetCookie(c.w, &http.Cookie{
		Name:     key,
		Value:    url.QueryEscape(value),
		Path:     "/",
		MaxAge:   int(c.opts.MaxAge.Seconds()),
		Expires:  time.Now().Add(c.opts.MaxAge),
		Secure:   c.opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *CookieSubstrate) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.overlay[key] = nil
		if c.w == nil {
			continue
		}
		http.SetCookie(c.w, &http.Cookie{
			Name:     key,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			Secure:   c.opts.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return nil
}

// EnsureClientID returns the id that scopes the volatile substrate of the
// calling browser, issuing a new one when the request carries none.
func EnsureClientID(w http.ResponseWriter, r *http.Request, name string, opts CookieOptions) string {
	if cookie, err := r.Cookie(name); err == nil && cookie.Value != "" {
		if _, err := uuid.Parse(cookie.Value); err == nil {
			return cookie.Value
		}
	}
	id := uuid.NewString()
	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = DefaultCookieMaxAge
	}
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    id,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   opts.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	// later handlers in this request see the same id
	r.AddCookie(&http.Cookie{Name: name, Value: id})
	return id
}
