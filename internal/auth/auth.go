package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"

	"github.com/faisal-mohamed/rfdb-new/internal/config"
)

// Logger defines the logging interface compatible with the application logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Header names read in dev mode.
const (
	HeaderUserID   = "X-User-Id"
	HeaderUserRole = "X-User-Role"
)

// Caller is the authenticated identity behind a request.
type Caller struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Role  Role   `json:"role"`
}

type callerKey struct{}

// WithCaller returns ctx carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// FromContext returns the caller stored by RequireAuth.
func FromContext(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}

// Auth authenticates API and MCP requests. In dev mode the identity comes
// from the X-User-Id and X-User-Role headers; otherwise a bearer token issued
// by the configured OpenID Connect provider is required.
type Auth struct {
	verifier  *oidc.IDTokenVerifier
	roleClaim string
	logger    Logger
	devMode   bool
}

// New creates a new Auth. In oidc mode it contacts the issuer to discover
// its signing keys.
func New(ctx context.Context, cfg config.AuthConfig, logger Logger) (*Auth, error) {
	a := &Auth{roleClaim: cfg.RoleClaim, logger: logger, devMode: cfg.Mode == "dev"}
	if a.roleClaim == "" {
		a.roleClaim = "role"
	}
	if a.devMode {
		return a, nil
	}
	if cfg.Issuer == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, err
	}
	// Access tokens often carry an API audience rather than the client id.
	a.verifier = provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.ClientID == "",
	})
	return a, nil
}

// NewWithVerifier creates an oidc mode Auth around an existing verifier.
func NewWithVerifier(verifier *oidc.IDTokenVerifier, roleClaim string, logger Logger) *Auth {
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &Auth{verifier: verifier, roleClaim: roleClaim, logger: logger}
}

// Authenticate resolves the caller of r.
func (a *Auth) Authenticate(r *http.Request) (Caller, error) {
	if a.devMode {
		c := Caller{
			ID:   strings.TrimSpace(r.Header.Get(HeaderUserID)),
			Role: ParseRole(r.Header.Get(HeaderUserRole)),
		}
		if c.ID == "" {
			c.ID = "dev-user"
		}
		if r.Header.Get(HeaderUserRole) == "" {
			c.Role = RoleAdmin
		}
		return c, nil
	}

	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Caller{}, errors.New("missing bearer token")
	}
	token, err := a.verifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		return Caller{}, err
	}

	var claims map[string]any
	if err := token.Claims(&claims); err != nil {
		return Caller{}, errors.New("failed to parse token claims")
	}
	c := Caller{ID: token.Subject, Role: RoleViewer}
	if email, ok := claims["email"].(string); ok {
		c.Email = email
	}
	c.Role = roleFromClaim(claims[a.roleClaim])
	return c, nil
}

// RequireAuth is middleware that rejects unauthenticated requests with 401
// and stores the Caller in the request context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := a.Authenticate(r)
		if err != nil {
			if a.logger != nil {
				a.logger.Debug("authentication failed", "path", r.URL.Path, "error", err)
			}
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"type":"about:blank","title":"Unauthorized","status":401,"detail":"invalid or missing credentials"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// roleFromClaim accepts a single role or a list and picks the most
// privileged known role.
func roleFromClaim(v any) Role {
	var candidates []string
	switch val := v.(type) {
	case string:
		candidates = []string{val}
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	}
	best := RoleViewer
	for _, c := range candidates {
		if r := ParseRole(c); r.rank() > best.rank() {
			best = r
		}
	}
	return best
}
