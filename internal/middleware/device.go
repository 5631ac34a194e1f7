package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// DeviceIDHeader carries the opaque id a client generates once per install.
const DeviceIDHeader = "X-Device-ID"

type deviceIDKey struct{}

// DeviceID rejects requests without a valid device id and stores the
// canonical id in the request context. Browsers cannot set headers on
// websocket upgrades, so a device_id query parameter is accepted too.
func DeviceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get(DeviceIDHeader))
		if raw == "" {
			raw = strings.TrimSpace(r.URL.Query().Get("device_id"))
		}
		id, err := uuid.Parse(raw)
		if raw == "" || err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"success":false,"message":"A valid X-Device-ID header is required"}`))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithDeviceID(r.Context(), id.String())))
	})
}

// WithDeviceID returns ctx carrying id.
func WithDeviceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, deviceIDKey{}, id)
}

// DeviceIDFromContext returns the id stored by DeviceID.
func DeviceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceIDKey{}).(string)
	return id, ok && id != ""
}
