// Package api is the HTTP surface of the gateway: the session entry point
// the SPA calls on load, the admin-only allow-list management endpoints,
// the install flow, and the fixed denied/unavailable pages.
package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/google/uuid"

	"github.com/portalgate/portalgate/internal/audit"
	"github.com/portalgate/portalgate/internal/authz"
	"github.com/portalgate/portalgate/internal/config"
	"github.com/portalgate/portalgate/internal/gate"
	"github.com/portalgate/portalgate/internal/portal"
	"github.com/portalgate/portalgate/internal/store"
)

const sessionCookie = "portalgate_session"

// Server is the HTTP API server.
type Server struct {
	orch        *authz.Orchestrator
	sessions    *authz.SessionManager
	evaluator   *gate.Evaluator
	directory   portal.Directory
	admin       *authz.AdminResolver
	store       store.Store
	appSettings *config.AppSettings
	version     string
}

// ServerOption configures the API server.
type ServerOption func(*Server)

// WithAppSettings sets the operator display settings.
func WithAppSettings(s *config.AppSettings) ServerOption {
	return func(srv *Server) { srv.appSettings = s }
}

// WithVersion sets the version string reported by /api/capabilities.
func WithVersion(v string) ServerOption {
	return func(srv *Server) { srv.version = v }
}

// NewServer creates a new API server.
func NewServer(orch *authz.Orchestrator, sessions *authz.SessionManager, evaluator *gate.Evaluator, directory portal.Directory, admin *authz.AdminResolver, st store.Store, opts ...ServerOption) *Server {
	s := &Server{
		orch:        orch,
		sessions:    sessions,
		evaluator:   evaluator,
		directory:   directory,
		admin:       admin,
		store:       st,
		appSettings: config.DefaultAppSettings(),
		version:     "dev",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var humaJSONFormat = huma.Format{
	Marshal: func(w io.Writer, v any) error {
		return json.NewEncoder(w).Encode(v)
	},
	Unmarshal: json.Unmarshal,
}

// newHumaConfig creates the huma configuration for the API.
func newHumaConfig() huma.Config {
	registry := huma.NewMapRegistry("#/components/schemas/", huma.DefaultSchemaNamer)
	cfg := huma.Config{
		OpenAPI: &huma.OpenAPI{
			OpenAPI: "3.1.0",
			Info: &huma.Info{
				Title:   "Portal Gate API",
				Version: "0.1.0",
			},
			Components: &huma.Components{
				Schemas: registry,
			},
		},
		OpenAPIPath:   "",
		DocsPath:      "",
		SchemasPath:   "",
		Formats:       map[string]huma.Format{"application/json": humaJSONFormat, "json": humaJSONFormat},
		DefaultFormat: "application/json",
	}
	// The host portal appends parameters we don't parse.
	cfg.AllowAdditionalPropertiesByDefault = true
	cfg.FieldsOptionalByDefault = true
	return cfg
}

// Router returns the configured HTTP handler with all endpoints.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public huma routes (no session required).
	public := humago.New(mux, newHumaConfig())
	s.registerPublic(public)
	s.registerSession(public)
	s.registerInstall(public)

	// Admin-only huma routes.
	admin := humago.New(mux, newHumaConfig())
	admin.UseMiddleware(s.requireAdmin(admin))
	s.registerAccess(admin)
	s.registerDirectory(admin)

	// Prometheus metrics, served by promhttp directly.
	mux.Handle("GET /metrics", MetricsHandler())

	// Page routes: the SPA entry point and the fixed surfaces.
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/denied", s.handleDenied)
	mux.HandleFunc("/unavailable", s.handleUnavailable)

	// HTTP-level middleware (outermost applied last).
	var handler http.Handler = mux
	handler = requestLogger(handler)
	handler = recoverer(handler)
	handler = requestMeta(handler)
	return handler
}

// registerPublic registers the health and capabilities endpoints.
func (s *Server) registerPublic(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/healthz",
		Tags:        []string{"Meta"},
	}, func(ctx context.Context, input *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "ok"
		return out, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getCapabilities",
		Method:      http.MethodGet,
		Path:        "/api/capabilities",
		Tags:        []string{"Meta"},
	}, func(ctx context.Context, input *struct{}) (*CapabilitiesOutput, error) {
		settings, err := s.store.ReadInstallerSettings(ctx)
		if err != nil {
			return nil, huma.NewError(http.StatusInternalServerError, "settings unavailable")
		}
		out := &CapabilitiesOutput{}
		out.Body.AppName = s.appSettings.AppName
		out.Body.Mode = s.orch.Mode().String()
		out.Body.Installed = settings.Installed()
		out.Body.Version = s.version
		return out, nil
	})
}

// authorizeRequest runs the full chain for one inbound request and records
// the decision metric.
func (s *Server) authorizeRequest(ctx context.Context, token, domain string) authz.Decision {
	dec := s.orch.Authorize(ctx, authz.Request{
		Embedded:  authz.EmbeddedCredential{Token: token, Domain: domain},
		RequestID: requestIDFrom(ctx),
		IP:        remoteIPFrom(ctx),
	})
	authzDecisionsTotal.WithLabelValues(dec.Mode.String(), string(dec.Outcome), dec.Reason).Inc()
	return dec
}

// principalFromSession validates a session token from the Authorization
// header or the session cookie. Returns nil when no valid session exists.
func (s *Server) principalFromSession(hctx huma.Context) *authz.Principal {
	token := ""
	if h := hctx.Header("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	} else if c := hctx.Header("Cookie"); c != "" {
		req := http.Request{Header: http.Header{"Cookie": []string{c}}}
		if cookie, err := req.Cookie(sessionCookie); err == nil {
			token = cookie.Value
		}
	}
	if token == "" {
		return nil
	}
	principal, err := s.sessions.Validate(token)
	if err != nil {
		slog.Debug("session validation failed", "error", err)
		return nil
	}
	return principal
}

// requireAdmin gates the management endpoints: a valid admin session, or a
// fresh authorization that resolves to an admin. Non-admins are rejected
// before any mutation method is reached.
func (s *Server) requireAdmin(api huma.API) func(ctx huma.Context, next func(huma.Context)) {
	return func(hctx huma.Context, next func(huma.Context)) {
		principal := s.principalFromSession(hctx)
		if principal == nil {
			dec := s.authorizeRequest(hctx.Context(), hctx.Query("AUTH_ID"), hctx.Query("DOMAIN"))
			if !dec.Allowed() || dec.Principal == nil {
				_ = huma.WriteErr(api, hctx, http.StatusUnauthorized, "authentication required")
				return
			}
			principal = dec.Principal
		}

		if !principal.IsAdmin {
			audit.Event{
				RequestID: requestIDFrom(hctx.Context()),
				Actor:     principal.DisplayName(),
				UserID:    principal.UserID(),
				Action:    "access_admin_endpoint",
				Status:    "denied",
				Reason:    "not_admin",
			}.Warn("Audit Log: Admin Endpoint Denied")
			_ = huma.WriteErr(api, hctx, http.StatusForbidden, "administrator access required")
			return
		}

		next(huma.WithContext(hctx, authz.WithPrincipal(hctx.Context(), principal)))
	}
}

// installerCredential loads the persisted installer credential for
// directory browsing on behalf of an admin session.
func (s *Server) installerCredential(ctx context.Context) (portal.Credential, error) {
	settings, err := s.store.ReadInstallerSettings(ctx)
	if err != nil {
		return portal.Credential{}, err
	}
	if !settings.Installed() {
		return portal.Credential{}, authz.ErrNotInstalled
	}
	cred := *settings.Credential
	if cred.Domain == "" {
		cred.Domain = settings.Domain
	}
	return cred, nil
}

// actorStamp converts the acting principal into a document stamp.
func actorStamp(ctx context.Context) store.Stamp {
	p := authz.PrincipalFromContext(ctx)
	if p == nil || p.Identity == nil {
		return store.Stamp{}
	}
	return store.Stamp{ID: p.Identity.ID, Name: p.Identity.Name}
}

// --- HTTP-level middleware ---

type metaKey struct{}

type requestMetadata struct {
	id string
	ip string
}

// requestMeta attaches a request ID and the client IP to the context.
func requestMeta(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		ip := r.Header.Get("X-Forwarded-For")
		if ip != "" {
			if idx := strings.Index(ip, ","); idx > 0 {
				ip = ip[:idx]
			}
			ip = strings.TrimSpace(ip)
		} else {
			ip, _, _ = net.SplitHostPort(r.RemoteAddr)
		}
		w.Header().Set("X-Request-ID", id)
		ctx := context.WithValue(r.Context(), metaKey{}, requestMetadata{id: id, ip: ip})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requestIDFrom(ctx context.Context) string {
	m, _ := ctx.Value(metaKey{}).(requestMetadata)
	return m.id
}

func remoteIPFrom(ctx context.Context) string {
	m, _ := ctx.Value(metaKey{}).(requestMetadata)
	return m.ip
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		slog.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", sw.status),
			slog.Duration("duration", time.Since(start)),
		)
		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(sw.status)).Inc()
	})
}

func recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("panic in handler", slog.Any("panic", rec), slog.String("path", r.URL.Path))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
