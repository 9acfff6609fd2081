package middleware

import (
	"context"
	"net/http"
	"strings"

	adminauth "github.com/adminkit/adminauth"
	"github.com/adminkit/adminauth/token"
)

type claimsContextKey struct{}
type accountContextKey struct{}

// ClaimsFromContext returns the verified token claims attached by Guard.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*token.Claims)
	return claims, ok
}

// AccountFromContext returns the account view attached by Guard.
func AccountFromContext(ctx context.Context) (*adminauth.AccountView, bool) {
	view, ok := ctx.Value(accountContextKey{}).(*adminauth.AccountView)
	return view, ok
}

// Guard verifies the bearer token and its session on every request and
// attaches the claims and account view to the request context.
func Guard(engine *adminauth.Engine) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				unauthorized(w, "authentication required")
				return
			}

			bearer, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "authentication required")
				return
			}

			ctx := adminauth.WithClientIP(r.Context(), remoteIP(r))
			ctx = adminauth.WithUserAgent(ctx, r.UserAgent())

			claims, view, err := engine.Verify(ctx, bearer)
			if err != nil {
				unauthorized(w, adminauth.PublicMessage(err))
				return
			}

			ctx = context.WithValue(ctx, claimsContextKey{}, claims)
			ctx = context.WithValue(ctx, accountContextKey{}, view)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequirePermission gates a handler on one permission. It must run inside
// Guard; without an account view on the context the request is denied.
func RequirePermission(engine *adminauth.Engine, perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			view, ok := AccountFromContext(r.Context())
			if !ok || engine == nil {
				unauthorized(w, "authentication required")
				return
			}
			if err := engine.Require(view, perm); err != nil {
				http.Error(w, adminauth.PublicMessage(err), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}
	tok := value[len(bearer):]
	return tok, tok != ""
}

func remoteIP(r *http.Request) string {
	host := r.RemoteAddr
	if i := strings.LastIndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return strings.Trim(host, "[]")
}

func unauthorized(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusUnauthorized)
}
