package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/cloudflare/cloudflare-go"
	"github.com/hashicorp/go-cleanhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "cf-ddns"

// cloudflareClient implements the Client interface using cloudflare-go SDK
type cloudflareClient struct {
	api *cloudflare.API
}

// Option customizes the underlying SDK client
type Option func(*[]cloudflare.Option)

// WithBaseURL points the client at another API root, e.g. a test server
func WithBaseURL(baseURL string) Option {
	return func(opts *[]cloudflare.Option) {
		*opts = append(*opts, cloudflare.BaseURL(baseURL))
	}
}

// WithUserAgent sets the User-Agent sent with every request
func WithUserAgent(ua string) Option {
	return func(opts *[]cloudflare.Option) {
		*opts = append(*opts, cloudflare.UserAgent(ua))
	}
}

func sdkOptions(opts []Option) []cloudflare.Option {
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Transport = &envelopeTransport{next: httpClient.Transport}

	sdkOpts := []cloudflare.Option{
		cloudflare.HTTPClient(httpClient),
		// failures surface to the caller on the first attempt
		cloudflare.UsingRetryPolicy(0, 0, 0),
	}
	for _, opt := range opts {
		opt(&sdkOpts)
	}
	return sdkOpts
}

// NewClient creates a new Cloudflare client using API token
func NewClient(apiToken string, opts ...Option) (Client, error) {
	api, err := cloudflare.NewWithAPIToken(apiToken, sdkOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudflare client: %w", err)
	}

	return &cloudflareClient{
		api: api,
	}, nil
}

// NewClientWithKey creates a new Cloudflare client using API key and email
func NewClientWithKey(apiKey, email string, opts ...Option) (Client, error) {
	api, err := cloudflare.New(apiKey, email, sdkOptions(opts)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudflare client: %w", err)
	}

	return &cloudflareClient{
		api: api,
	}, nil
}

// GetZone returns a zone by its ID
func (c *cloudflareClient) GetZone(ctx context.Context, zoneID string) (*ZoneResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cloudflare.GetZone")
	defer span.End()

	span.SetAttributes(attribute.String("zone_id", zoneID))

	ctx, watch := watchEnvelopes(ctx)
	zone, err := c.api.ZoneDetails(ctx, zoneID)
	if f, ok := watch.failed(); ok {
		recordFailure(span, f)
		return failedFrom[Zone](f), nil
	}
	if err != nil {
		recordFailure(span, err)
		if msgs, ok := providerMessages(err); ok {
			return Failed[Zone](msgs...), nil
		}
		return nil, fmt.Errorf("failed to get zone %s: %w", zoneID, err)
	}

	span.SetAttributes(attribute.String("zone_name", zone.Name))
	return Succeeded(Zone{ID: zone.ID, Name: zone.Name}), nil
}

// ListDNSRecords returns the DNS records of a zone matching the filter.
// The SDK pages through the full result set, 100 records per page.
func (c *cloudflareClient) ListDNSRecords(ctx context.Context, zoneID string, filter DNSRecordFilter) (*RecordListResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cloudflare.ListDNSRecords")
	defer span.End()

	span.SetAttributes(
		attribute.String("zone_id", zoneID),
		attribute.String("record_name", filter.Name),
		attribute.String("record_type", filter.Type),
	)

	listParams := cloudflare.ListDNSRecordsParams{}
	if filter.Name != "" {
		listParams.Name = filter.Name
	}
	if filter.Type != "" {
		listParams.Type = filter.Type
	}

	ctx, watch := watchEnvelopes(ctx)
	records, _, err := c.api.ListDNSRecords(ctx, cloudflare.ZoneIdentifier(zoneID), listParams)
	if f, ok := watch.failed(); ok {
		recordFailure(span, f)
		return failedFrom[[]DNSRecord](f), nil
	}
	if err != nil {
		recordFailure(span, err)
		if msgs, ok := providerMessages(err); ok {
			return Failed[[]DNSRecord](msgs...), nil
		}
		return nil, fmt.Errorf("failed to list dns records: %w", err)
	}

	result := make([]DNSRecord, len(records))
	for i, r := range records {
		result[i] = mapCloudflareRecord(r)
	}

	span.SetAttributes(attribute.Int("record_count", len(result)))
	return Succeeded(result), nil
}

// CreateDNSRecord creates a new DNS record
func (c *cloudflareClient) CreateDNSRecord(ctx context.Context, zoneID string, input CreateDNSRecordInput) (*RecordResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cloudflare.CreateDNSRecord")
	defer span.End()

	span.SetAttributes(
		attribute.String("zone_id", zoneID),
		attribute.String("record_name", input.Name),
		attribute.String("record_type", input.Type),
		attribute.String("record_content", input.Content),
		attribute.Int("record_ttl", input.TTL),
		attribute.Bool("record_proxied", input.Proxied),
	)

	proxied := input.Proxied
	ctx, watch := watchEnvelopes(ctx)
	record, err := c.api.CreateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.CreateDNSRecordParams{
		Name:    input.Name,
		Type:    input.Type,
		Content: input.Content,
		TTL:     input.TTL,
		Proxied: &proxied,
	})
	if f, ok := watch.failed(); ok {
		recordFailure(span, f)
		return failedFrom[DNSRecord](f), nil
	}
	if err != nil {
		recordFailure(span, err)
		if msgs, ok := providerMessages(err); ok {
			return Failed[DNSRecord](msgs...), nil
		}
		return nil, fmt.Errorf("failed to create dns record %s (%s): %w", input.Name, input.Type, err)
	}

	span.SetAttributes(attribute.String("record_id", record.ID))
	return Succeeded(mapCloudflareRecord(record)), nil
}

// UpdateDNSRecord patches an existing DNS record
func (c *cloudflareClient) UpdateDNSRecord(ctx context.Context, zoneID, recordID string, input UpdateDNSRecordInput) (*RecordResponse, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "cloudflare.UpdateDNSRecord")
	defer span.End()

	span.SetAttributes(
		attribute.String("zone_id", zoneID),
		attribute.String("record_id", recordID),
		attribute.String("record_name", input.Name),
		attribute.String("record_type", input.Type),
		attribute.String("record_content", input.Content),
		attribute.Int("record_ttl", input.TTL),
		attribute.Bool("record_proxied", input.Proxied),
	)

	// Proxied is always sent so that switching it off is not dropped as omitempty.
	proxied := input.Proxied
	ctx, watch := watchEnvelopes(ctx)
	record, err := c.api.UpdateDNSRecord(ctx, cloudflare.ZoneIdentifier(zoneID), cloudflare.UpdateDNSRecordParams{
		ID:      recordID,
		Name:    input.Name,
		Type:    input.Type,
		Content: input.Content,
		TTL:     input.TTL,
		Proxied: &proxied,
	})
	if f, ok := watch.failed(); ok {
		recordFailure(span, f)
		return failedFrom[DNSRecord](f), nil
	}
	if err != nil {
		recordFailure(span, err)
		if msgs, ok := providerMessages(err); ok {
			return Failed[DNSRecord](msgs...), nil
		}
		return nil, fmt.Errorf("failed to update dns record %s (id=%s): %w", input.Name, recordID, err)
	}

	return Succeeded(mapCloudflareRecord(record)), nil
}

// messagesError is satisfied by the SDK's typed API errors
type messagesError interface {
	ErrorMessages() []string
}

// providerMessages extracts the envelope messages when err is an API-level
// failure reported by Cloudflare. Transport errors are never converted.
func providerMessages(err error) ([]string, bool) {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return nil, false
	}
	var me messagesError
	if !errors.As(err, &me) {
		return nil, false
	}
	msgs := me.ErrorMessages()
	if len(msgs) == 0 {
		msgs = []string{err.Error()}
	}
	return msgs, true
}

func recordFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// mapCloudflareRecord maps cloudflare-go DNSRecord to our DNSRecord
func mapCloudflareRecord(r cloudflare.DNSRecord) DNSRecord {
	proxied := false
	if r.Proxied != nil {
		proxied = *r.Proxied
	}
	return DNSRecord{
		ID:      r.ID,
		Name:    r.Name,
		Type:    r.Type,
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: proxied,
	}
}
