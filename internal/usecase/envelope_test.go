package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"cf-ddns/external_resource/cloudflare"
	"cf-ddns/internal/domain"
)

// A failed record listing served with HTTP 200 must fail the hostname
// instead of reading as "no records" and creating one.
func TestFailedListingOn2xxDoesNotCreate(t *testing.T) {
	var creates atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/zones/z1":
			fmt.Fprint(w, `{"success":true,"errors":[],"messages":[],"result":{"id":"z1","name":"example.com"}}`)
		case r.Method == http.MethodGet && r.URL.Path == "/zones/z1/dns_records":
			fmt.Fprint(w, `{"success":false,"errors":[{"code":9999,"message":"listing failed"}],"messages":[],"result":[]}`)
		case r.Method == http.MethodPost:
			creates.Add(1)
			fmt.Fprint(w, `{"success":true,"errors":[],"messages":[],"result":{"id":"r1"}}`)
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	cf, err := cloudflare.NewClient("test-token", cloudflare.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	uc := newTestUsecase(cf, newFakeEcho("203.0.113.7", ""), Options{})

	result, err := uc.CommitRecord(context.Background(), "home", domain.HostnameConfig{ZoneID: domain.Ptr("z1")})
	if !errors.Is(err, domain.ErrAPI) {
		t.Fatalf("CommitRecord() = %+v, %v; want ErrAPI", result, err)
	}
	if got := creates.Load(); got != 0 {
		t.Errorf("creates = %d, want 0", got)
	}
}

func TestUnknownZoneIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"success":false,"errors":[{"code":7003,"message":"Could not route to /zones/nope, perhaps your object identifier is invalid?"}],"messages":[],"result":null}`)
	}))
	defer server.Close()

	cf, err := cloudflare.NewClient("test-token", cloudflare.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewClient() failed: %v", err)
	}
	uc := newTestUsecase(cf, newFakeEcho("203.0.113.7", ""), Options{})

	_, err = uc.CommitRecord(context.Background(), "home", domain.HostnameConfig{ZoneID: domain.Ptr("nope")})
	if !errors.Is(err, domain.ErrProvider) {
		t.Fatalf("error = %v, want ErrProvider", err)
	}
}
