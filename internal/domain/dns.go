package domain

import "strings"

// RecordType is a DNS record type as reported by the provider
type RecordType string

const (
	RecordTypeA    RecordType = "A"
	RecordTypeAAAA RecordType = "AAAA"
)

// IPFamily selects which public address is measured and published
type IPFamily int

const (
	IPv4 IPFamily = iota
	IPv6
)

// Families lists the address families in reconciliation order
var Families = []IPFamily{IPv4, IPv6}

func (f IPFamily) String() string {
	switch f {
	case IPv4:
		return "IPv4"
	case IPv6:
		return "IPv6"
	default:
		return "unknown"
	}
}

// RecordType returns the address record type published for the family
func (f IPFamily) RecordType() RecordType {
	if f == IPv6 {
		return RecordTypeAAAA
	}
	return RecordTypeA
}

// ParseIPFamily accepts "ipv4"/"v4"/"a" and "ipv6"/"v6"/"aaaa" in any case
func ParseIPFamily(s string) (IPFamily, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ipv4", "v4", "4", "a":
		return IPv4, true
	case "ipv6", "v6", "6", "aaaa":
		return IPv6, true
	}
	return 0, false
}

// Zone represents a Cloudflare zone (domain)
type Zone struct {
	ID   string
	Name string
}

// DNSRecord is a provider-side record as observed at fetch time
type DNSRecord struct {
	ID      string
	Name    string
	Type    RecordType
	Content string
	TTL     int
	Proxied bool
}

// Matches reports whether the record already carries the desired state
func (r DNSRecord) Matches(content string, proxied bool, ttl int) bool {
	return r.Proxied == proxied && r.Content == content && r.TTL == ttl
}

// FindRecords returns the records of the given type in provider order
func FindRecords(records []DNSRecord, recordType RecordType) []DNSRecord {
	var out []DNSRecord
	for _, r := range records {
		if r.Type == recordType {
			out = append(out, r)
		}
	}
	return out
}

// FQDN composes the published name for a hostname prefix under a zone.
// An empty prefix or "@" denotes the zone apex.
func FQDN(name, baseDomain string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == "@" {
		return baseDomain
	}
	return name + "." + baseDomain
}
