package models

import "time"

// DeviceIdentity is the tuple of independent identity signals submitted with
// one attendance attempt. No single layer is authoritative; each non-empty
// layer is an independent uniqueness constraint scoped to the event. An empty
// layer is absent and never participates in matching.
type DeviceIdentity struct {
	// DeviceID is the long-lived server-issued cookie value.
	DeviceID string
	// DeviceKey is a client-generated persistent random key that survives
	// cookie loss.
	DeviceKey string
	// Fingerprint is a hash of browser/GPU/screen signals, unique per
	// browser profile.
	Fingerprint string
	// DeviceGroup is a hash of a narrower, more stable signal subset meant
	// to match across profiles on the same physical hardware. Heuristic
	// only, not a security boundary.
	DeviceGroup string
	// IPAddress is the request's network address.
	IPAddress string
}

// IdentityLayer names one signal of the device identity tuple.
type IdentityLayer string

const (
	LayerDeviceGroup IdentityLayer = "device_group"
	LayerDeviceKey   IdentityLayer = "device_key"
	LayerFingerprint IdentityLayer = "fingerprint"
	LayerDeviceID    IdentityLayer = "device_id"
	LayerIPAddress   IdentityLayer = "ip_address"
)

// Layers returns the identity tuple as (layer, value) pairs in guard check
// order. Check order only decides which duplicate is reported first; all
// layers are equally authoritative.
func (d *DeviceIdentity) Layers() []LayerValue {
	return []LayerValue{
		{LayerDeviceGroup, d.DeviceGroup},
		{LayerDeviceKey, d.DeviceKey},
		{LayerFingerprint, d.Fingerprint},
		{LayerDeviceID, d.DeviceID},
		{LayerIPAddress, d.IPAddress},
	}
}

// LayerValue pairs an identity layer with its submitted value.
type LayerValue struct {
	Layer IdentityLayer
	Value string
}

// SubmissionFingerprint is one row of the dedup ledger: the full identity
// tuple of an accepted submission for an event.
type SubmissionFingerprint struct {
	ID        string
	EventID   string
	Identity  DeviceIdentity
	CreatedAt time.Time
}
