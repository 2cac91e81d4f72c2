package i18n

import "net/http"

// LangCookie is the cookie that remembers a chosen UI language.
const LangCookie = "lang"

// Middleware resolves the request language and injects a localizer for it
// into the request context. Preference order: ?lang=, the lang cookie, then
// Accept-Language.
func (c *Catalog) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var prefs []string
		prefs = append(prefs, r.URL.Query().Get("lang"))
		if ck, err := r.Cookie(LangCookie); err == nil {
			prefs = append(prefs, ck.Value)
		}
		prefs = append(prefs, r.Header.Get("Accept-Language"))

		lang := c.Match(prefs...)
		next.ServeHTTP(w, r.WithContext(c.Context(r.Context(), lang)))
	})
}
