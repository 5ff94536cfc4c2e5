package cloudflare

import "context"

// Client defines the Cloudflare API operations the reconciler consumes.
// Provider-reported failures come back as a Response with Success=false;
// a non-nil error means the call itself failed (transport, encoding).
type Client interface {
	GetZone(ctx context.Context, zoneID string) (*ZoneResponse, error)
	ListDNSRecords(ctx context.Context, zoneID string, filter DNSRecordFilter) (*RecordListResponse, error)
	CreateDNSRecord(ctx context.Context, zoneID string, input CreateDNSRecordInput) (*RecordResponse, error)
	UpdateDNSRecord(ctx context.Context, zoneID, recordID string, input UpdateDNSRecordInput) (*RecordResponse, error)
}

// Response is the API envelope: a success flag, human-readable messages
// and a typed result that is only meaningful when Success is true.
// StatusCode and Codes describe a failed envelope when they are known.
type Response[T any] struct {
	Success    bool
	Errors     []string
	Messages   []string
	Codes      []int
	StatusCode int
	Result     T
}

// NotFound reports a failed envelope saying the requested object does not exist
func (r *Response[T]) NotFound() bool {
	if r.Success {
		return false
	}
	if r.StatusCode == 404 {
		return true
	}
	for _, code := range r.Codes {
		switch code {
		case codeNoRoute, codeInvalidObjectID, codeInvalidZoneIDTag:
			return true
		}
	}
	return false
}

type (
	ZoneResponse       = Response[Zone]
	RecordListResponse = Response[[]DNSRecord]
	RecordResponse     = Response[DNSRecord]
)

// Succeeded wraps a result in a successful envelope
func Succeeded[T any](result T) *Response[T] {
	return &Response[T]{Success: true, Result: result}
}

// Failed builds an unsuccessful envelope carrying the provider's messages
func Failed[T any](errs ...string) *Response[T] {
	return &Response[T]{Success: false, Errors: errs}
}

// Zone represents a Cloudflare zone (domain)
type Zone struct {
	ID   string
	Name string
}

// DNSRecord represents a DNS record from Cloudflare
type DNSRecord struct {
	ID      string
	Name    string
	Type    string
	Content string
	TTL     int
	Proxied bool
}

// DNSRecordFilter represents filters for listing DNS records
type DNSRecordFilter struct {
	Name string
	Type string
}

// CreateDNSRecordInput represents input for creating a DNS record
type CreateDNSRecordInput struct {
	Name    string
	Type    string
	Content string
	TTL     int
	Proxied bool
}

// UpdateDNSRecordInput represents input for patching a DNS record
type UpdateDNSRecordInput struct {
	Name    string
	Type    string
	Content string
	TTL     int
	Proxied bool
}
