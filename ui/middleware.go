package ui

import (
	"net/http"
	"strings"
)

// requireSession gates the protected routes. Browsers get redirected to
// the login page; API callers get a JSON 401.
func (a *App) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.sessions.Active() {
			next.ServeHTTP(w, r)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/") || strings.HasPrefix(r.URL.Path, "/export/") {
			a.writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error":    "Not logged in",
				"redirect": "/login",
			})
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
}
