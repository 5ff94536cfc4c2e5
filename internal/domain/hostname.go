package domain

import "fmt"

// Hard defaults used when neither the hostname entry nor the global
// defaults set a field. A TTL of 1 means "automatic" at Cloudflare.
const (
	DefaultTTL     = 1
	DefaultProxied = true
	DefaultUseA    = true
	DefaultUseAAAA = false
)

// HostnameConfig is the desired state for one hostname entry, or the
// global defaults. Nil fields are unset and fall through to the next tier.
type HostnameConfig struct {
	ZoneID  *string
	TTL     *int
	Proxied *bool
	UseA    *bool
	UseAAAA *bool
}

// Settings is a HostnameConfig with every tier applied
type Settings struct {
	ZoneID  string
	TTL     int
	Proxied bool
	UseA    bool
	UseAAAA bool
}

// Resolve picks the entry value, else the global value, else fallback
func Resolve[T any](entry, global *T, fallback T) T {
	if entry != nil {
		return *entry
	}
	if global != nil {
		return *global
	}
	return fallback
}

// ResolveSettings applies entry > global > hard default to every field.
// The zone id has no hard default and an absent one is a configuration error.
func ResolveSettings(entry, global HostnameConfig) (Settings, error) {
	zoneID := Resolve(entry.ZoneID, global.ZoneID, "")
	if zoneID == "" {
		return Settings{}, NewError(ErrConfig, "resolve zone id", fmt.Errorf("no zone_id set for entry or globally"))
	}
	return Settings{
		ZoneID:  zoneID,
		TTL:     Resolve(entry.TTL, global.TTL, DefaultTTL),
		Proxied: Resolve(entry.Proxied, global.Proxied, DefaultProxied),
		UseA:    Resolve(entry.UseA, global.UseA, DefaultUseA),
		UseAAAA: Resolve(entry.UseAAAA, global.UseAAAA, DefaultUseAAAA),
	}, nil
}

// Uses reports whether the family is requested
func (s Settings) Uses(f IPFamily) bool {
	if f == IPv6 {
		return s.UseAAAA
	}
	return s.UseA
}

// Merge returns c with every unset field filled from other
func (c HostnameConfig) Merge(other HostnameConfig) HostnameConfig {
	if c.ZoneID == nil {
		c.ZoneID = other.ZoneID
	}
	if c.TTL == nil {
		c.TTL = other.TTL
	}
	if c.Proxied == nil {
		c.Proxied = other.Proxied
	}
	if c.UseA == nil {
		c.UseA = other.UseA
	}
	if c.UseAAAA == nil {
		c.UseAAAA = other.UseAAAA
	}
	return c
}

// Ptr returns a pointer to v, for building HostnameConfig literals
func Ptr[T any](v T) *T {
	return &v
}

// Cloudflare accepts 1 (automatic) or an explicit TTL in this range
const (
	MinTTL = 30
	MaxTTL = 86400
)

// ValidateTTL rejects TTLs Cloudflare would refuse
func ValidateTTL(ttl int) error {
	if ttl == DefaultTTL || (ttl >= MinTTL && ttl <= MaxTTL) {
		return nil
	}
	return NewError(ErrConfig, "validate ttl", fmt.Errorf("ttl %d must be 1 (automatic) or between %d and %d", ttl, MinTTL, MaxTTL))
}
