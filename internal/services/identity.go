package services

import (
	"strings"

	"github.com/rollcall-app/rollcall/internal/models"
)

// NormalizeIdentity canonicalizes a submitted device identity tuple:
// every signal is trimmed and lower-cased, and whitespace-only signals become
// empty. Pure function, no I/O. Normalizing identically on every submission
// is what makes the per-layer uniqueness checks sound: an empty signal is
// absent and is skipped by its check entirely, so two devices that both lack
// a signal are never compared on it.
func NormalizeIdentity(raw models.DeviceIdentity) models.DeviceIdentity {
	return models.DeviceIdentity{
		DeviceID:    normalizeSignal(raw.DeviceID),
		DeviceKey:   normalizeSignal(raw.DeviceKey),
		Fingerprint: normalizeSignal(raw.Fingerprint),
		DeviceGroup: normalizeSignal(raw.DeviceGroup),
		IPAddress:   normalizeSignal(raw.IPAddress),
	}
}

func normalizeSignal(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
