package clientip

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRealClientIP(t *testing.T) {
	t.Cleanup(func() { TrustProxy(false) })

	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.7:5123"
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.Header.Set("X-Real-IP", "198.51.100.4")

	assert.Equal(t, "10.0.0.7", RealClientIP(r))

	TrustProxy(true)
	assert.Equal(t, "203.0.113.9", RealClientIP(r))

	r.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "198.51.100.4", RealClientIP(r))

	r.Header.Del("X-Real-IP")
	assert.Equal(t, "10.0.0.7", RealClientIP(r))
}

func TestRealClientIP_NoPort(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = " 192.0.2.1 "
	assert.Equal(t, "192.0.2.1", RealClientIP(r))
}
