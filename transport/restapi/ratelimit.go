package restapi

import (
	"fmt"
	"net"
	"net/http"

	"github.com/sahyadri/presensi/pkg/ratelimit"
	"github.com/sahyadri/presensi/pkg/respbuilder"
)

// callerID buckets requests by the remote host, ignoring the ephemeral port.
func callerID(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// rateLimiter rejects callers that exceeded their inbound request cap.
// This guards the service itself; outbound pacing lives in the dispatcher.
func rateLimiter(gov *ratelimit.Governor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := callerID(r)
			if !gov.Allow(caller) {
				resp := respbuilder.Error(r.Context(), respbuilder.ErrRateLimited,
					fmt.Errorf("caller %s exceeded the request cap, retry later", caller))
				respbuilder.WriteJSON(http.StatusTooManyRequests, w, r, resp)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
