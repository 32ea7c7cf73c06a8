package http

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Device identification.
const (
	DeviceHeader = "X-Device-ID"
	DeviceCookie = "intake_device"
)

// deviceCookieAge keeps a device's answers reachable across browser restarts.
const deviceCookieAge = 365 * 24 * time.Hour

type deviceKey struct{}

// DeviceMiddleware resolves the device of a request from the X-Device-ID header
// or the intake_device cookie, issuing a new cookie when neither is present.
func DeviceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		device := strings.TrimSpace(r.Header.Get(DeviceHeader))
		if device == "" {
			if c, err := r.Cookie(DeviceCookie); err == nil {
				device = c.Value
			}
		}
		if device == "" {
			device = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     DeviceCookie,
				Value:    device,
				Path:     "/",
				MaxAge:   int(deviceCookieAge.Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), deviceKey{}, device)))
	})
}

// Device returns the device ID resolved by DeviceMiddleware.
func Device(ctx context.Context) string {
	device, _ := ctx.Value(deviceKey{}).(string)
	return device
}

// ClientIP returns the public address of the client, or "" when the request comes
// from a loopback or private network and the locator should use its own view.
// Forwarding headers are honored only through WithTrustedProxy, which rewrites
// RemoteAddr before the request gets here.
func ClientIP(r *http.Request) string {
	raw := r.RemoteAddr
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil || addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() {
		return ""
	}
	return addr.String()
}
