package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestDeviceID(t *testing.T) {
	var seen string
	h := DeviceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = DeviceIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/vault/echoes", nil)
	req.Header.Set(DeviceIDHeader, "6F9619FF-8B86-D011-B42D-00C04FC964FF")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "6f9619ff-8b86-d011-b42d-00c04fc964ff", seen)

	req = httptest.NewRequest(http.MethodGet, "/ws/drops?device_id=6f9619ff-8b86-d011-b42d-00c04fc964ff", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	for _, bad := range []string{"", "not-a-uuid", "../../etc"} {
		seen = ""
		req = httptest.NewRequest(http.MethodGet, "/api/vault/echoes", nil)
		req.Header.Set(DeviceIDHeader, bad)
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Empty(t, seen)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://www.mooddrop.app"})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/drops", nil)
	req.Header.Set("Origin", "https://WWW.mooddrop.app")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://WWW.mooddrop.app", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), DeviceIDHeader)

	req = httptest.NewRequest(http.MethodGet, "/api/drops", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHostCheck(t *testing.T) {
	h := HostCheck("api.mooddrop.app")(okHandler)

	req := httptest.NewRequest(http.MethodGet, "http://api.mooddrop.app:8080/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "http://other.host/health", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCommunityWriteRateLimit(t *testing.T) {
	h := CommunityWriteRateLimit(okHandler)
	post := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "203.0.113.7:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	for range communityWriteBurst {
		require.Equal(t, http.StatusOK, post("/api/drops"))
	}
	assert.Equal(t, http.StatusTooManyRequests, post("/api/drops/abc/reactions"))
	// other routes are not limited
	assert.Equal(t, http.StatusOK, post("/api/vault/echoes"))
}

func TestIPLimitersSweep(t *testing.T) {
	l := newIPLimiters(1, 1)
	l.get("a")
	l.sweep(time.Now().Add(limiterTTL + time.Minute))
	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries)
}

func TestRedisRateLimit_FailsOpen(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	rec := httptest.NewRecorder()
	RedisRateLimit(client)(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drops", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get(headerXContentTypeOptions))
	assert.Equal(t, "DENY", rec.Header().Get(headerXFrameOptions))
}
