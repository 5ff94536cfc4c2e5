package repository

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cf-ddns/external_resource/cloudflare"
	"cf-ddns/external_resource/ipecho"
	"cf-ddns/internal/domain"
)

type fakeCloudflare struct {
	zones     map[string]string
	zoneErr   error
	zoneFail  []string
	zoneCalls atomic.Int32
	delay     time.Duration

	records []cloudflare.DNSRecord
	failed  []string
}

func (f *fakeCloudflare) GetZone(ctx context.Context, zoneID string) (*cloudflare.ZoneResponse, error) {
	f.zoneCalls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.zoneErr != nil {
		return nil, f.zoneErr
	}
	if f.zoneFail != nil {
		return cloudflare.Failed[cloudflare.Zone](f.zoneFail...), nil
	}
	name, ok := f.zones[zoneID]
	if !ok {
		resp := cloudflare.Failed[cloudflare.Zone]("Could not route to /zones/" + zoneID + ", perhaps your object identifier is invalid?")
		resp.StatusCode = 404
		resp.Codes = []int{7003}
		return resp, nil
	}
	return cloudflare.Succeeded(cloudflare.Zone{ID: zoneID, Name: name}), nil
}

func (f *fakeCloudflare) ListDNSRecords(ctx context.Context, zoneID string, filter cloudflare.DNSRecordFilter) (*cloudflare.RecordListResponse, error) {
	if f.failed != nil {
		return cloudflare.Failed[[]cloudflare.DNSRecord](f.failed...), nil
	}
	var out []cloudflare.DNSRecord
	for _, r := range f.records {
		if r.Name == filter.Name {
			out = append(out, r)
		}
	}
	return cloudflare.Succeeded(out), nil
}

func (f *fakeCloudflare) CreateDNSRecord(ctx context.Context, zoneID string, in cloudflare.CreateDNSRecordInput) (*cloudflare.RecordResponse, error) {
	if f.failed != nil {
		return cloudflare.Failed[cloudflare.DNSRecord](f.failed...), nil
	}
	return cloudflare.Succeeded(cloudflare.DNSRecord{
		ID: "new", Name: in.Name, Type: in.Type, Content: in.Content, TTL: in.TTL, Proxied: in.Proxied,
	}), nil
}

func (f *fakeCloudflare) UpdateDNSRecord(ctx context.Context, zoneID, recordID string, in cloudflare.UpdateDNSRecordInput) (*cloudflare.RecordResponse, error) {
	if f.failed != nil {
		return cloudflare.Failed[cloudflare.DNSRecord](f.failed...), nil
	}
	return cloudflare.Succeeded(cloudflare.DNSRecord{
		ID: recordID, Name: in.Name, Type: in.Type, Content: in.Content, TTL: in.TTL, Proxied: in.Proxied,
	}), nil
}

type fakeEcho struct {
	mu      sync.Mutex
	answers map[string][]string
	errs    map[string][]error
	calls   map[string]int
}

func newFakeEcho() *fakeEcho {
	return &fakeEcho{
		answers: make(map[string][]string),
		errs:    make(map[string][]error),
		calls:   make(map[string]int),
	}
}

// Lookup pops the next queued error for url, otherwise the next answer
func (f *fakeEcho) Lookup(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[url]++
	if errs := f.errs[url]; len(errs) > 0 {
		f.errs[url] = errs[1:]
		return "", errs[0]
	}
	answers := f.answers[url]
	if len(answers) == 0 {
		return "", ipecho.ErrNoIP
	}
	if len(answers) > 1 {
		f.answers[url] = answers[1:]
	}
	return answers[0], nil
}

func (f *fakeEcho) count(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

func TestZoneNameIsCachedPerZone(t *testing.T) {
	cf := &fakeCloudflare{zones: map[string]string{"z1": "example.com", "z2": "example.org"}}
	repo := NewZoneRepository(cf)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		name, err := repo.ZoneName(ctx, "z1")
		if err != nil {
			t.Fatalf("ZoneName(z1) error = %v", err)
		}
		if name != "example.com" {
			t.Fatalf("ZoneName(z1) = %q, want example.com", name)
		}
	}
	if _, err := repo.ZoneName(ctx, "z2"); err != nil {
		t.Fatalf("ZoneName(z2) error = %v", err)
	}

	if got := cf.zoneCalls.Load(); got != 2 {
		t.Errorf("GetZone called %d times, want 2", got)
	}
}

func TestZoneNameConcurrentCallersShareOneLookup(t *testing.T) {
	cf := &fakeCloudflare{zones: map[string]string{"z1": "example.com"}, delay: 20 * time.Millisecond}
	repo := NewZoneRepository(cf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if name, err := repo.ZoneName(context.Background(), "z1"); err != nil || name != "example.com" {
				t.Errorf("ZoneName() = %q, %v", name, err)
			}
		}()
	}
	wg.Wait()

	if got := cf.zoneCalls.Load(); got != 1 {
		t.Errorf("GetZone called %d times, want 1", got)
	}
}

func TestZoneNameErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown zone", func(t *testing.T) {
		repo := NewZoneRepository(&fakeCloudflare{zones: map[string]string{}})
		_, err := repo.ZoneName(ctx, "missing")
		if !errors.Is(err, domain.ErrProvider) || errors.Is(err, domain.ErrAPI) {
			t.Fatalf("error = %v, want ErrProvider", err)
		}
		if !strings.Contains(err.Error(), "unknown zone") {
			t.Errorf("error = %v, want it to name the unknown zone", err)
		}
	})

	t.Run("api failure", func(t *testing.T) {
		repo := NewZoneRepository(&fakeCloudflare{zoneFail: []string{"Authentication error"}})
		_, err := repo.ZoneName(ctx, "z1")
		if !errors.Is(err, domain.ErrAPI) {
			t.Fatalf("error = %v, want ErrAPI", err)
		}
	})

	t.Run("failure is not cached", func(t *testing.T) {
		cf := &fakeCloudflare{zones: map[string]string{}}
		repo := NewZoneRepository(cf)
		repo.ZoneName(ctx, "z1")
		cf.zones["z1"] = "example.com"
		name, err := repo.ZoneName(ctx, "z1")
		if err != nil || name != "example.com" {
			t.Fatalf("ZoneName() = %q, %v after recovery", name, err)
		}
	})

	t.Run("transport failure", func(t *testing.T) {
		repo := NewZoneRepository(&fakeCloudflare{zoneErr: &net.DNSError{Err: "no such host", Name: "api.cloudflare.com"}})
		_, err := repo.ZoneName(ctx, "z1")
		if !errors.Is(err, domain.ErrNetwork) {
			t.Fatalf("error = %v, want ErrNetwork", err)
		}
	})

	t.Run("client failure", func(t *testing.T) {
		repo := NewZoneRepository(&fakeCloudflare{zoneErr: errors.New("decode body")})
		_, err := repo.ZoneName(ctx, "z1")
		if !errors.Is(err, domain.ErrProvider) {
			t.Fatalf("error = %v, want ErrProvider", err)
		}
	})

	t.Run("empty name", func(t *testing.T) {
		repo := NewZoneRepository(&fakeCloudflare{zones: map[string]string{"z1": ""}})
		_, err := repo.ZoneName(ctx, "z1")
		if !errors.Is(err, domain.ErrProtocol) {
			t.Fatalf("error = %v, want ErrProtocol", err)
		}
	})
}

func TestPublicIPIsCachedPerFamily(t *testing.T) {
	echo := newFakeEcho()
	echo.answers[ipecho.IPv4TraceURL] = []string{"203.0.113.7", "203.0.113.8"}
	echo.answers[ipecho.IPv6TraceURL] = []string{"2001:db8::1"}
	repo := NewIPRepository(echo, Endpoints{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ip, err := repo.PublicIP(ctx, domain.IPv4)
		if err != nil || ip != "203.0.113.7" {
			t.Fatalf("PublicIP(IPv4) = %q, %v", ip, err)
		}
	}
	ip, err := repo.PublicIP(ctx, domain.IPv6)
	if err != nil || ip != "2001:db8::1" {
		t.Fatalf("PublicIP(IPv6) = %q, %v", ip, err)
	}

	if got := echo.count(ipecho.IPv4TraceURL); got != 1 {
		t.Errorf("IPv4 endpoint hit %d times, want 1", got)
	}
	if got := echo.count(ipecho.IPv6TraceURL); got != 1 {
		t.Errorf("IPv6 endpoint hit %d times, want 1", got)
	}
}

func TestPublicIPFailureIsRetried(t *testing.T) {
	echo := newFakeEcho()
	echo.errs[ipecho.IPv4TraceURL] = []error{&ipecho.StatusError{URL: ipecho.IPv4TraceURL, StatusCode: 503}}
	echo.answers[ipecho.IPv4TraceURL] = []string{"203.0.113.7"}
	repo := NewIPRepository(echo, Endpoints{})

	_, err := repo.PublicIP(context.Background(), domain.IPv4)
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("first call error = %v, want ErrNetwork", err)
	}
	ip, err := repo.PublicIP(context.Background(), domain.IPv4)
	if err != nil || ip != "203.0.113.7" {
		t.Fatalf("second call = %q, %v", ip, err)
	}
	if got := echo.count(ipecho.IPv4TraceURL); got != 2 {
		t.Errorf("endpoint hit %d times, want 2", got)
	}
}

func TestPublicIPErrors(t *testing.T) {
	const v6 = "https://v6.test/trace"

	tests := []struct {
		name     string
		family   domain.IPFamily
		answer   string
		err      error
		wantKind error
	}{
		{
			name:     "connect failure",
			family:   domain.IPv6,
			err:      &ipecho.ConnectError{URL: v6, Err: errors.New("network is unreachable")},
			wantKind: domain.ErrNetwork,
		},
		{
			name:     "no ip line",
			family:   domain.IPv6,
			err:      ipecho.ErrNoIP,
			wantKind: domain.ErrProtocol,
		},
		{
			name:     "garbage address",
			family:   domain.IPv6,
			answer:   "not-an-ip",
			wantKind: domain.ErrProtocol,
		},
		{
			name:     "wrong family",
			family:   domain.IPv6,
			answer:   "203.0.113.7",
			wantKind: domain.ErrProtocol,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			echo := newFakeEcho()
			if tt.err != nil {
				echo.errs[v6] = []error{tt.err}
			} else {
				echo.answers[v6] = []string{tt.answer}
			}
			repo := NewIPRepository(echo, Endpoints{IPv6: v6})

			_, err := repo.PublicIP(context.Background(), tt.family)
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("error = %v, want %v", err, tt.wantKind)
			}
		})
	}
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		raw     string
		family  domain.IPFamily
		want    string
		wantErr bool
	}{
		{"203.0.113.7", domain.IPv4, "203.0.113.7", false},
		{"::ffff:203.0.113.7", domain.IPv4, "203.0.113.7", false},
		{"2001:DB8:0:0::1", domain.IPv6, "2001:db8::1", false},
		{"2001:db8::1", domain.IPv4, "", true},
		{"::ffff:203.0.113.7", domain.IPv6, "", true},
		{"fe80::1%eth0", domain.IPv6, "", true},
		{"", domain.IPv4, "", true},
	}

	for _, tt := range tests {
		got, err := normalizeIP(tt.raw, tt.family)
		if (err != nil) != tt.wantErr {
			t.Errorf("normalizeIP(%q, %v) error = %v, wantErr %v", tt.raw, tt.family, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("normalizeIP(%q, %v) = %q, want %q", tt.raw, tt.family, got, tt.want)
		}
	}
}

func TestDNSRepository(t *testing.T) {
	ctx := context.Background()
	cf := &fakeCloudflare{records: []cloudflare.DNSRecord{
		{ID: "r1", Name: "home.example.com", Type: "A", Content: "198.51.100.1", TTL: 1, Proxied: true},
		{ID: "r2", Name: "home.example.com", Type: "TXT", Content: "hello"},
		{ID: "r3", Name: "www.example.com", Type: "A", Content: "198.51.100.2"},
	}}
	repo := NewDNSRepository(cf)

	records, err := repo.ListRecords(ctx, "z1", "home.example.com")
	if err != nil {
		t.Fatalf("ListRecords() error = %v", err)
	}
	if len(records) != 2 || records[0].ID != "r1" || records[0].Type != domain.RecordTypeA {
		t.Fatalf("ListRecords() = %+v", records)
	}

	created, err := repo.CreateRecord(ctx, "z1", domain.DNSRecord{
		Name: "home.example.com", Type: domain.RecordTypeAAAA, Content: "2001:db8::1", TTL: 1, Proxied: false,
	})
	if err != nil {
		t.Fatalf("CreateRecord() error = %v", err)
	}
	if created.ID != "new" || created.Type != domain.RecordTypeAAAA || created.Proxied {
		t.Errorf("CreateRecord() = %+v", created)
	}

	updated, err := repo.UpdateRecord(ctx, "z1", "r1", domain.DNSRecord{
		Name: "home.example.com", Type: domain.RecordTypeA, Content: "203.0.113.7", TTL: 1, Proxied: true,
	})
	if err != nil {
		t.Fatalf("UpdateRecord() error = %v", err)
	}
	if updated.ID != "r1" || updated.Content != "203.0.113.7" {
		t.Errorf("UpdateRecord() = %+v", updated)
	}

	cf.failed = []string{"Record already exists."}
	_, err = repo.CreateRecord(ctx, "z1", domain.DNSRecord{Name: "home.example.com", Type: domain.RecordTypeA})
	if !errors.Is(err, domain.ErrAPI) {
		t.Fatalf("CreateRecord() error = %v, want ErrAPI", err)
	}
	if want := "Record already exists."; err == nil || !strings.Contains(err.Error(), want) {
		t.Errorf("error %v should carry provider message %q", err, want)
	}
}
