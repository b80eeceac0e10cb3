package httpapi

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
)

// SessionCookie is the cookie carrying the session token of browser requests.
const SessionCookie = "__session"

// SessionClaims are the claims of an identity provider session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	SessionID       string `json:"sid"`
	AuthorizedParty string `json:"azp,omitempty"`
}

// SessionVerifier validates RS256 session tokens against the instance public key.
type SessionVerifier struct {
	key    *rsa.PublicKey
	leeway time.Duration
}

// NewSessionVerifier creates a SessionVerifier from a PEM encoded RSA public key.
func NewSessionVerifier(pemKey string) (*SessionVerifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("invalid session public key: %w", err)
	}
	return &SessionVerifier{key: key, leeway: 5 * time.Second}, nil
}

// Verify parses and validates a session token.
func (v *SessionVerifier) Verify(token string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return v.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token subject is required")
	}
	return claims, nil
}

type sessionClaimsKey struct{}

// WithSession stores the session claims in ctx.
func WithSession(ctx context.Context, claims *SessionClaims) context.Context {
	return context.WithValue(ctx, sessionClaimsKey{}, claims)
}

// SessionFromContext returns the claims of the authenticated session, if any.
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey{}).(*SessionClaims)
	return claims, ok && claims != nil
}

// RouteGuardArgs are the mandatory args to build the route guard.
type RouteGuardArgs struct {
	// PublicRoutes are path patterns reachable without a session. A pattern follows path.Match
	// syntax; a trailing "/**" matches the path itself and everything below it.
	PublicRoutes []string

	// Sessions validates session tokens. Nil rejects every protected request.
	Sessions sessionVerifier

	// SignInURL is where unauthenticated page requests are redirected.
	SignInURL string
}

// NewRouteGuard builds the middleware rejecting unauthenticated requests to protected routes.
func NewRouteGuard(args RouteGuardArgs) (func(http.Handler) http.Handler, error) {
	for _, p := range args.PublicRoutes {
		if _, err := path.Match(strings.TrimSuffix(p, "/**"), ""); err != nil {
			return nil, fmt.Errorf("invalid public route pattern %q: %w", p, err)
		}
	}
	if args.SignInURL == "" {
		return nil, errors.New("empty sign-in url")
	}
	g := &routeGuard{publicRoutes: args.PublicRoutes, sessions: args.Sessions, signInURL: args.SignInURL}
	return g.wrap, nil
}

type routeGuard struct {
	publicRoutes []string
	sessions     sessionVerifier
	signInURL    string
}

func (g *routeGuard) wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := r.URL.Path
		if bypassesGuard(p) || g.isPublic(p) {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := g.authenticate(r)
		if err != nil {
			log.WithField("path", p).WithError(err).Debug("rejecting unauthenticated request")
			g.reject(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims)))
	})
}

func (g *routeGuard) authenticate(r *http.Request) (*SessionClaims, error) {
	token, err := sessionToken(r)
	if err != nil {
		return nil, err
	}
	if g.sessions == nil {
		return nil, errors.New("authentication not configured")
	}
	return g.sessions.Verify(token)
}

func (g *routeGuard) reject(w http.ResponseWriter, r *http.Request, err error) {
	if isAPIRoute(r.URL.Path) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: unauthorizedMessage(err)})
		return
	}
	target, perr := url.Parse(g.signInURL)
	if perr != nil {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: unauthorizedMessage(err)})
		return
	}
	q := target.Query()
	q.Set("redirect_url", r.URL.RequestURI())
	target.RawQuery = q.Encode()
	http.Redirect(w, r, target.String(), http.StatusFound)
}

func (g *routeGuard) isPublic(p string) bool {
	for _, pattern := range g.publicRoutes {
		if prefix, ok := strings.CutSuffix(pattern, "/**"); ok {
			if p == prefix || strings.HasPrefix(p, prefix+"/") {
				return true
			}
			continue
		}
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// bypassesGuard reports whether the request never reaches the guard: framework internals and
// static files. API routes are always guarded.
func bypassesGuard(p string) bool {
	if isAPIRoute(p) {
		return false
	}
	if p == "/_next" || strings.HasPrefix(p, "/_next/") {
		return true
	}
	return path.Ext(p) != ""
}

func isAPIRoute(p string) bool {
	for _, prefix := range []string{"/api", "/trpc"} {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}

var errMissingSession = errors.New("missing session token")

func sessionToken(r *http.Request) (string, error) {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", errors.New("invalid Authorization header format (expected 'Bearer <token>')")
		}
		return parts[1], nil
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value, nil
	}
	return "", errMissingSession
}

func unauthorizedMessage(err error) string {
	if errors.Is(err, errMissingSession) {
		return "Missing session token"
	}
	return "Invalid or expired session"
}

type sessionVerifier interface {
	// Verify validates a session token and returns its claims.
	Verify(token string) (*SessionClaims, error)
}
