package httpapi

import (
	"context"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/and161185/talentgate/internal/model"
)

// Gate messages. Token failures share one message regardless of cause.
const (
	MsgNoToken       = "no authorization token provided"
	MsgBadAuthFormat = "invalid authorization format, use Bearer token"
	MsgInvalidToken  = "invalid or expired token"
	MsgAdminRequired = "access denied, admin privileges required"
)

// TokenValidator is the part of the auth service the gate depends on.
type TokenValidator interface {
	ValidateToken(ctx context.Context, tok string) (*model.Claims, error)
}

// Authenticate requires "Authorization: Bearer <token>" and attaches the
// verified claims to the request context.
func Authenticate(v TokenValidator, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				Fail(w, http.StatusUnauthorized, MsgNoToken)
				return
			}
			parts := strings.Split(header, " ")
			if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
				Fail(w, http.StatusUnauthorized, MsgBadAuthFormat)
				return
			}
			claims, err := v.ValidateToken(r.Context(), parts[1])
			if err != nil {
				log.Debug("gate rejected token", zap.Error(err), zap.String("path", r.URL.Path))
				Fail(w, http.StatusUnauthorized, MsgInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims, parts[1])))
		})
	}
}

// RequireAdmin rejects requests whose claims lack the admin flag. It must
// run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := ClaimsFromContext(r.Context())
		if !ok || !c.IsAdmin {
			Fail(w, http.StatusForbidden, MsgAdminRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequestLogger logs one line per request with metadata only.
func RequestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			log.Info("http",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("dur", time.Since(start)),
				zap.String("remote", r.RemoteAddr),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Recoverer turns panics into a 500 envelope.
func Recoverer(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error("panic",
						zap.Any("reason", rec),
						zap.ByteString("stack", debug.Stack()),
						zap.String("path", r.URL.Path),
					)
					Fail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// SecureHeaders sets the usual hardening headers.
func SecureHeaders(production bool, log *zap.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'none'",
		SSLRedirect:           production,
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         !production,
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				log.Warn("secure headers blocked request", zap.Error(err))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit allows limit requests per window and client IP, answering
// excess requests with a 429 envelope.
func RateLimit(limit int, window time.Duration, msg string, log *zap.Logger) func(http.Handler) http.Handler {
	return httprate.Limit(limit, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			log.Warn("rate limit exceeded",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
				zap.Int("limit", limit),
				zap.Duration("window", window),
			)
			Fail(w, http.StatusTooManyRequests, msg)
		}),
	)
}
