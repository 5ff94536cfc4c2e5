package repository

import (
	"context"
	"fmt"

	"cf-ddns/external_resource/cloudflare"
	"cf-ddns/internal/domain"
)

// dnsRepository implements DNSRecordRepository using Cloudflare client
type dnsRepository struct {
	client cloudflare.Client
}

// NewDNSRepository creates a new DNS repository
func NewDNSRepository(client cloudflare.Client) DNSRecordRepository {
	return &dnsRepository{
		client: client,
	}
}

// ListRecords returns all DNS records for a name, in provider order
func (r *dnsRepository) ListRecords(ctx context.Context, zoneID, name string) ([]domain.DNSRecord, error) {
	op := fmt.Sprintf("get dns records (zone: %s, name: %s)", zoneID, name)

	resp, err := r.client.ListDNSRecords(ctx, zoneID, cloudflare.DNSRecordFilter{Name: name})
	if err != nil {
		return nil, providerError(op, err)
	}
	if !resp.Success {
		return nil, envelopeError(op, resp.Errors)
	}

	result := make([]domain.DNSRecord, len(resp.Result))
	for i, rec := range resp.Result {
		result[i] = mapToDomainRecord(rec)
	}

	return result, nil
}

// CreateRecord creates a new DNS record
func (r *dnsRepository) CreateRecord(ctx context.Context, zoneID string, record domain.DNSRecord) (*domain.DNSRecord, error) {
	op := fmt.Sprintf("create %s record for %s", record.Type, record.Name)

	resp, err := r.client.CreateDNSRecord(ctx, zoneID, cloudflare.CreateDNSRecordInput{
		Name:    record.Name,
		Type:    string(record.Type),
		Content: record.Content,
		TTL:     record.TTL,
		Proxied: record.Proxied,
	})
	if err != nil {
		return nil, providerError(op, err)
	}
	if !resp.Success {
		return nil, envelopeError(op, resp.Errors)
	}

	result := mapToDomainRecord(resp.Result)
	return &result, nil
}

// UpdateRecord updates an existing DNS record
func (r *dnsRepository) UpdateRecord(ctx context.Context, zoneID, recordID string, record domain.DNSRecord) (*domain.DNSRecord, error) {
	op := fmt.Sprintf("update %s record for %s", record.Type, record.Name)

	resp, err := r.client.UpdateDNSRecord(ctx, zoneID, recordID, cloudflare.UpdateDNSRecordInput{
		Name:    record.Name,
		Type:    string(record.Type),
		Content: record.Content,
		TTL:     record.TTL,
		Proxied: record.Proxied,
	})
	if err != nil {
		return nil, providerError(op, err)
	}
	if !resp.Success {
		return nil, envelopeError(op, resp.Errors)
	}

	result := mapToDomainRecord(resp.Result)
	return &result, nil
}

// mapToDomainRecord maps external resource record to domain record
func mapToDomainRecord(r cloudflare.DNSRecord) domain.DNSRecord {
	return domain.DNSRecord{
		ID:      r.ID,
		Name:    r.Name,
		Type:    domain.RecordType(r.Type),
		Content: r.Content,
		TTL:     r.TTL,
		Proxied: r.Proxied,
	}
}
