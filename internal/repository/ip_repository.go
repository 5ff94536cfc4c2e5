package repository

import (
	"context"
	"errors"
	"fmt"
	"net/netip"
	"sync"

	"cf-ddns/external_resource/ipecho"
	"cf-ddns/internal/domain"

	"golang.org/x/sync/singleflight"
)

// Endpoints are the echo URLs queried per family. Empty fields fall back
// to the Cloudflare trace endpoints.
type Endpoints struct {
	IPv4 string
	IPv6 string
}

func (e Endpoints) url(family domain.IPFamily) string {
	if family == domain.IPv6 {
		if e.IPv6 != "" {
			return e.IPv6
		}
		return ipecho.IPv6TraceURL
	}
	if e.IPv4 != "" {
		return e.IPv4
	}
	return ipecho.IPv4TraceURL
}

// ipRepository implements IPRepository on top of an echo endpoint
type ipRepository struct {
	client    ipecho.Client
	endpoints Endpoints

	mu    sync.RWMutex
	addrs map[domain.IPFamily]string
	group singleflight.Group
}

// NewIPRepository creates an IP oracle with an empty cache
func NewIPRepository(client ipecho.Client, endpoints Endpoints) IPRepository {
	return &ipRepository{
		client:    client,
		endpoints: endpoints,
		addrs:     make(map[domain.IPFamily]string),
	}
}

// PublicIP returns the current public address of the family. The network
// is hit at most once per family on success; a failure is retried on the
// next call. There is no fallback from one family to the other.
func (r *ipRepository) PublicIP(ctx context.Context, family domain.IPFamily) (string, error) {
	if ip, ok := r.cached(family); ok {
		return ip, nil
	}

	v, err, _ := r.group.Do(family.String(), func() (interface{}, error) {
		if ip, ok := r.cached(family); ok {
			return ip, nil
		}
		ip, err := r.fetch(ctx, family)
		if err != nil {
			return "", err
		}
		r.mu.Lock()
		r.addrs[family] = ip
		r.mu.Unlock()
		return ip, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *ipRepository) cached(family domain.IPFamily) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ip, ok := r.addrs[family]
	return ip, ok
}

func (r *ipRepository) fetch(ctx context.Context, family domain.IPFamily) (string, error) {
	url := r.endpoints.url(family)
	op := fmt.Sprintf("get %s address", family)

	raw, err := r.client.Lookup(ctx, url)
	if err != nil {
		var connErr *ipecho.ConnectError
		switch {
		case errors.As(err, &connErr):
			return "", domain.NewError(domain.ErrNetwork, op, fmt.Errorf("connection error, check %s connectivity: %w", family, err))
		case errors.Is(err, ipecho.ErrNoIP):
			return "", domain.NewError(domain.ErrProtocol, op, err)
		default:
			return "", domain.NewError(domain.ErrNetwork, op, err)
		}
	}

	ip, err := normalizeIP(raw, family)
	if err != nil {
		return "", domain.NewError(domain.ErrProtocol, op, fmt.Errorf("%s answered %q: %w", url, raw, err))
	}
	return ip, nil
}

// normalizeIP checks the family and returns the canonical text form, which
// is also what Cloudflare reports as record content.
func normalizeIP(raw string, family domain.IPFamily) (string, error) {
	addr, err := netip.ParseAddr(raw)
	if err != nil {
		return "", err
	}
	if addr.Zone() != "" {
		return "", errors.New("zoned address")
	}
	switch family {
	case domain.IPv4:
		addr = addr.Unmap()
		if !addr.Is4() {
			return "", errors.New("not an IPv4 address")
		}
	case domain.IPv6:
		if !addr.Is6() || addr.Is4In6() {
			return "", errors.New("not an IPv6 address")
		}
	}
	return addr.String(), nil
}
