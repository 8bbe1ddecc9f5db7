package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/utafrali/rocketshoes/internal/session"
	"github.com/utafrali/rocketshoes/pkg/httputil"
	"github.com/utafrali/rocketshoes/pkg/logger"
	"github.com/utafrali/rocketshoes/pkg/middleware"
)

// SessionHeader carries the storefront session ID in both directions.
const SessionHeader = middleware.SessionIDHeader

type mintedKey struct{}

// sessionMinted reports whether the request's session ID was generated by
// SessionFromHeader rather than sent by the client.
func sessionMinted(ctx context.Context) bool {
	minted, _ := ctx.Value(mintedKey{}).(bool)
	return minted
}

// SessionFromHeader reads the session ID from X-Session-ID, minting a new one
// when the header is absent, and echoes it on the response so the storefront
// can keep it. Malformed IDs are rejected with 400.
func SessionFromHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		sid := strings.TrimSpace(r.Header.Get(SessionHeader))
		if sid == "" {
			sid = session.NewID()
			ctx = context.WithValue(ctx, mintedKey{}, true)
		} else if !session.ValidID(sid) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_SESSION", Message: SessionHeader + " is malformed"},
			})
			return
		}
		w.Header().Set(SessionHeader, sid)
		ctx = logger.WithSessionID(ctx, sid)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ContentTypeJSON enforces that requests with a body have Content-Type: application/json.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
