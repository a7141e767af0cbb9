package middleware

import (
	"net/http"
	"strings"
)

// Gate lets requests for public paths through and redirects every other
// request that carries no refresh cookie to loginPath. The cookie is only
// checked for presence; the token service verifies it where it is used.
func Gate(loginPath string, publicPrefixes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions || isPublic(r.URL.Path, loginPath, publicPrefixes) {
				next.ServeHTTP(w, r)
				return
			}
			if CookieValue(r, RefreshCookie) == "" {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isPublic(path, loginPath string, prefixes []string) bool {
	if path == loginPath {
		return true
	}
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
