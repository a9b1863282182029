package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/catchyfabric/market-backend/internal/auditlog"
	"github.com/catchyfabric/market-backend/pkg/logger"
)

const (
	requestIDHeader    = "X-Request-Id"
	maxRequestIDLength = 128
	maxUserAgentLength = 512
)

// RequestID tags the request with an id and records the client fingerprint
// used by audit entries.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" || len(reqID) > maxRequestIDLength {
				reqID = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}
			agent := r.UserAgent()
			if len(agent) > maxUserAgentLength {
				agent = agent[:maxUserAgentLength]
			}
			ctx = auditlog.WithRequestInfo(ctx, auditlog.RequestInfo{
				UserAgent: agent,
				IPAddress: clientIP(r),
			})

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
