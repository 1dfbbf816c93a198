package api

import (
	"fmt"
	"html/template"
	"net/http"
)

// The rendering layer proper lives in the SPA; these handlers serve the
// shell and the two fixed surfaces the orchestrator can route to.

var shellTmpl = template.Must(template.New("shell").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.AppName}}</title></head>
<body data-authenticated="{{.Authenticated}}" data-admin="{{.IsAdmin}}">
<div id="app">Loading {{.AppName}}…</div>
<script src="/assets/app.js" defer></script>
</body></html>
`))

var noticeTmpl = template.Must(template.New("notice").Parse(`<!doctype html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body><h1>{{.Title}}</h1><p>{{.Message}}</p>{{if .Detail}}<pre>{{.Detail}}</pre>{{end}}</body></html>
`))

// handleIndex is the embedded entry point: the host portal POSTs the
// member-session parameters into the iframe, standalone visitors GET it.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	token := r.FormValue("AUTH_ID")
	domain := r.FormValue("DOMAIN")
	dec := s.authorizeRequest(r.Context(), token, domain)

	if !dec.Allowed() {
		http.Redirect(w, r, "/denied?reason="+dec.Reason, http.StatusSeeOther)
		return
	}

	// Maintenance switch: non-admins get the unavailable surface.
	if s.appSettings.Disabled && (dec.Principal == nil || !dec.Principal.IsAdmin) {
		http.Redirect(w, r, "/unavailable", http.StatusSeeOther)
		return
	}

	if dec.Principal != nil && dec.Principal.Identity != nil {
		if token, err := s.sessions.Issue(dec.Principal); err == nil {
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				Secure:   true,
				SameSite: http.SameSiteNoneMode,
			})
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = shellTmpl.Execute(w, map[string]any{
		"AppName":       s.appSettings.AppName,
		"Authenticated": dec.Authenticated,
		"IsAdmin":       dec.Principal != nil && dec.Principal.IsAdmin,
	})
}

// handleDenied renders the fixed access-denied surface. Raw reason detail
// is shown only with the debug flag.
func (s *Server) handleDenied(w http.ResponseWriter, r *http.Request) {
	detail := ""
	if s.appSettings.Debug {
		detail = r.URL.Query().Get("reason")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	_ = noticeTmpl.Execute(w, map[string]any{
		"Title":   "Access denied",
		"Message": fmt.Sprintf("You do not have access to %s. Contact your portal administrator.", s.appSettings.AppName),
		"Detail":  detail,
	})
}

// handleUnavailable renders the fixed temporarily-unavailable surface with
// the configured message and the allow-list's last-updated timestamp.
func (s *Server) handleUnavailable(w http.ResponseWriter, r *http.Request) {
	detail := ""
	if list, err := s.evaluator.ReadAllowList(r.Context()); err == nil && list.LastUpdated != nil {
		detail = "Last configuration change: " + list.LastUpdated.Format("2006-01-02 15:04 MST")
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusServiceUnavailable)
	_ = noticeTmpl.Execute(w, map[string]any{
		"Title":   "Temporarily unavailable",
		"Message": s.appSettings.UnavailableMessage,
		"Detail":  detail,
	})
}
