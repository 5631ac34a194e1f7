package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/AnshRaj112/mooddrop-backend/pkg/clientip"
	"golang.org/x/time/rate"
)

// Community write limit: per-IP, 1 write every 2s, burst 5. Device cooldowns
// are keyed by the client-chosen device id, so this bounds what one address
// can post across many ids.
const (
	communityWriteEvery = 2 * time.Second
	communityWriteBurst = 5
)

var communityLimiters = newIPLimiters(rate.Every(communityWriteEvery), communityWriteBurst)

func isCommunityWrite(r *http.Request) bool {
	return r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/drops")
}

// CommunityWriteRateLimit applies to POST /api/drops and its sub-routes only.
func CommunityWriteRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isCommunityWrite(r) {
			next.ServeHTTP(w, r)
			return
		}
		if !communityLimiters.get(clientip.RealClientIP(r)).Allow() {
			w.Header().Set("Retry-After", "2")
			tooManyRequests(w, "Too many posts from this network. Please slow down.")
			return
		}
		next.ServeHTTP(w, r)
	})
}
