package middleware

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Cookies writes the session cookies. Both are HttpOnly and SameSite=Strict.
type Cookies struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c *Cookies) SetAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(AccessCookie, token, int(c.AccessTTL.Seconds())))
}

func (c *Cookies) SetRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(RefreshCookie, token, int(c.RefreshTTL.Seconds())))
}

// ClearAccess expires only the access cookie so the client can still refresh.
func (c *Cookies) ClearAccess(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", -1))
}

func (c *Cookies) ClearAll(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie(AccessCookie, "", -1))
	http.SetCookie(w, c.cookie(RefreshCookie, "", -1))
}

func (c *Cookies) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// CookieValue returns the named cookie's value, or "" when absent.
func CookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
