package auth

import (
	"net/http"
	"time"
)

const (
	// DeviceCookieName is the long-lived server-issued device identifier.
	// One of the identity layers; losing it only removes one layer, the
	// device key and fingerprint hashes still apply.
	DeviceCookieName = "device_id"
	// SessionCookieName carries the claim session id between the claim and
	// attend requests.
	SessionCookieName = "session_id"
)

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain string // Empty string = current host only
	Secure bool   // HTTPS only
}

// SetDeviceCookie sets the long-lived device id cookie. HttpOnly so page
// scripts cannot read one browser's id and replay it from another.
func SetDeviceCookie(w http.ResponseWriter, deviceID string, ttl time.Duration, config CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    deviceID,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(ttl),
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetSessionCookie sets the short-lived claim session cookie
func SetSessionCookie(w http.ResponseWriter, sessionID string, expiresAt time.Time, config CookieConfig) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionID,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  expiresAt,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// GetDeviceCookie retrieves the device id from cookies, empty if absent
func GetDeviceCookie(r *http.Request) string {
	cookie, err := r.Cookie(DeviceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// GetSessionCookie retrieves the claim session id from cookies, empty if absent
func GetSessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
