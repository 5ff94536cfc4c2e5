package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cf-ddns/external_resource/cloudflare"
	"cf-ddns/internal/domain"

	"golang.org/x/sync/singleflight"
)

// zoneRepository implements ZoneRepository using Cloudflare client
type zoneRepository struct {
	client cloudflare.Client

	mu    sync.RWMutex
	names map[string]string
	group singleflight.Group
}

// NewZoneRepository creates a zone resolver with an empty cache
func NewZoneRepository(client cloudflare.Client) ZoneRepository {
	return &zoneRepository{
		client: client,
		names:  make(map[string]string),
	}
}

// ZoneName returns the zone's base domain, asking Cloudflare at most once
// per zone id. A rename at the provider during the run is not observed.
func (r *zoneRepository) ZoneName(ctx context.Context, zoneID string) (string, error) {
	if name, ok := r.cached(zoneID); ok {
		return name, nil
	}

	v, err, _ := r.group.Do(zoneID, func() (interface{}, error) {
		if name, ok := r.cached(zoneID); ok {
			return name, nil
		}
		name, err := r.fetch(ctx, zoneID)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.names[zoneID] = name
		r.mu.Unlock()
		return name, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *zoneRepository) cached(zoneID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[zoneID]
	return name, ok
}

func (r *zoneRepository) fetch(ctx context.Context, zoneID string) (string, error) {
	op := fmt.Sprintf("get zone details (zone: %s)", zoneID)

	resp, err := r.client.GetZone(ctx, zoneID)
	if err != nil {
		return "", providerError(op, err)
	}
	if !resp.Success {
		if resp.NotFound() {
			return "", unknownZoneError(op, resp.Errors)
		}
		return "", envelopeError(op, resp.Errors)
	}
	if resp.Result.Name == "" {
		return "", domain.NewError(domain.ErrProtocol, op, errors.New("zone has no name"))
	}
	return resp.Result.Name, nil
}
