package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

// registerSession registers the SPA entry point: the single call every
// protected page makes before rendering.
func (s *Server) registerSession(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "createSession",
		Method:      http.MethodPost,
		Path:        "/api/session",
		Tags:        []string{"Auth"},
	}, s.handleSession)

	// The host portal loads the iframe with a GET carrying the same
	// parameters; accept both.
	huma.Register(api, huma.Operation{
		OperationID: "getSession",
		Method:      http.MethodGet,
		Path:        "/api/session",
		Tags:        []string{"Auth"},
	}, s.handleSession)
}

func (s *Server) handleSession(ctx context.Context, input *SessionInput) (*SessionOutput, error) {
	dec := s.authorizeRequest(ctx, input.AuthID, input.Domain)

	out := &SessionOutput{}
	out.Body.Outcome = string(dec.Outcome)
	out.Body.Mode = dec.Mode.String()
	out.Body.Authenticated = dec.Authenticated
	out.Body.AccessGranted = dec.AccessGranted
	out.Body.Reason = dec.Reason

	if !dec.Allowed() {
		// The denial is a normal terminal state, not an HTTP error: the
		// SPA reads the outcome and routes to the denied surface.
		return out, nil
	}

	if dec.Principal != nil && dec.Principal.Identity != nil {
		out.Body.IsAdmin = dec.Principal.IsAdmin
		out.Body.User = &SessionUser{
			ID:          dec.Principal.Identity.ID,
			Name:        dec.Principal.Identity.Name,
			Email:       dec.Principal.Identity.Email,
			Departments: dec.Principal.Identity.Departments,
		}

		token, err := s.sessions.Issue(dec.Principal)
		if err != nil {
			return nil, huma.NewError(http.StatusInternalServerError, "failed to issue session")
		}
		out.Body.SessionToken = token
		cookie := http.Cookie{
			Name:     sessionCookie,
			Value:    token,
			Path:     "/",
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteNoneMode, // the app renders inside a cross-origin iframe
		}
		out.SetCookie = cookie.String()
	}
	return out, nil
}
