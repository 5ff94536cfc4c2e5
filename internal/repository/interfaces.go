package repository

import (
	"context"

	"cf-ddns/internal/domain"
)

// ZoneRepository maps zone identifiers to their base domain. Implementations
// memoize per instance; one instance lives for one run.
type ZoneRepository interface {
	// ZoneName returns the base domain name of the zone
	ZoneName(ctx context.Context, zoneID string) (string, error)
}

// IPRepository is the public IP oracle. Implementations memoize successful
// lookups per instance; failures are not cached.
type IPRepository interface {
	// PublicIP returns the caller's current public address for the family
	PublicIP(ctx context.Context, family domain.IPFamily) (string, error)
}

// DNSRecordRepository defines the record operations of the reconciler.
// Nothing here is cached: every call goes to the provider.
type DNSRecordRepository interface {
	// ListRecords returns every record published under name, all types
	ListRecords(ctx context.Context, zoneID, name string) ([]domain.DNSRecord, error)

	// CreateRecord creates a new address record
	CreateRecord(ctx context.Context, zoneID string, record domain.DNSRecord) (*domain.DNSRecord, error)

	// UpdateRecord replaces name, content, proxied and ttl of an existing record
	UpdateRecord(ctx context.Context, zoneID, recordID string, record domain.DNSRecord) (*domain.DNSRecord, error)
}
