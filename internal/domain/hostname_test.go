package domain

import (
	"errors"
	"testing"
)

func TestResolve(t *testing.T) {
	entry, global := 300, 120

	if got := Resolve(&entry, &global, 1); got != 300 {
		t.Errorf("entry should win, got %d", got)
	}
	if got := Resolve(nil, &global, 1); got != 120 {
		t.Errorf("global should win over default, got %d", got)
	}
	if got := Resolve[int](nil, nil, 1); got != 1 {
		t.Errorf("default expected, got %d", got)
	}

	f := false
	if got := Resolve(&f, Ptr(true), true); got != false {
		t.Error("an explicit false entry must not fall through")
	}
}

func TestResolveSettings(t *testing.T) {
	tests := []struct {
		name    string
		entry   HostnameConfig
		global  HostnameConfig
		want    Settings
		wantErr bool
	}{
		{
			name:   "hard defaults",
			global: HostnameConfig{ZoneID: Ptr("z1")},
			want:   Settings{ZoneID: "z1", TTL: 1, Proxied: true, UseA: true, UseAAAA: false},
		},
		{
			name:   "entry overrides global",
			entry:  HostnameConfig{ZoneID: Ptr("z2"), TTL: Ptr(300), UseAAAA: Ptr(true)},
			global: HostnameConfig{ZoneID: Ptr("z1"), TTL: Ptr(120), Proxied: Ptr(false)},
			want:   Settings{ZoneID: "z2", TTL: 300, Proxied: false, UseA: true, UseAAAA: true},
		},
		{
			name:  "entry only",
			entry: HostnameConfig{ZoneID: Ptr("z3"), UseA: Ptr(false)},
			want:  Settings{ZoneID: "z3", TTL: 1, Proxied: true, UseA: false, UseAAAA: false},
		},
		{
			name:    "missing zone id",
			entry:   HostnameConfig{TTL: Ptr(60)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveSettings(tt.entry, tt.global)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ErrConfig) {
					t.Errorf("expected ErrConfig, got %v", err)
				}
				return
			}
			if got != tt.want {
				t.Errorf("ResolveSettings() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	c := HostnameConfig{TTL: Ptr(60)}
	merged := c.Merge(HostnameConfig{ZoneID: Ptr("z1"), TTL: Ptr(300), UseAAAA: Ptr(true)})

	if *merged.TTL != 60 {
		t.Errorf("TTL = %d, want 60", *merged.TTL)
	}
	if *merged.ZoneID != "z1" || !*merged.UseAAAA {
		t.Errorf("unset fields not filled: %+v", merged)
	}
	if merged.Proxied != nil || merged.UseA != nil {
		t.Error("fields unset on both sides must stay unset")
	}
}

func TestReportExitCode(t *testing.T) {
	r := &Report{Hostnames: []HostnameReport{
		{Hostname: "b", Result: &Result{A: Skipped, AAAA: Skipped}},
		{Hostname: "a", Result: &Result{A: Created}},
	}}
	r.Sort()

	if r.Hostnames[0].Hostname != "a" {
		t.Errorf("Sort() did not order by name: %+v", r.Hostnames)
	}
	if r.ExitCode() != 0 || r.Failed() != 0 {
		t.Errorf("all-success report must exit 0, got %d", r.ExitCode())
	}
	if r.Changed() != 1 {
		t.Errorf("Changed() = %d, want 1", r.Changed())
	}

	r.Hostnames = append(r.Hostnames, HostnameReport{Hostname: "c", Err: errors.New("boom")})
	if r.ExitCode() != 1 || r.Failed() != 1 {
		t.Errorf("report with a failure must exit 1, got %d", r.ExitCode())
	}
}

func TestValidateTTL(t *testing.T) {
	for _, ttl := range []int{1, 30, 300, 86400} {
		if err := ValidateTTL(ttl); err != nil {
			t.Errorf("ValidateTTL(%d) = %v, want nil", ttl, err)
		}
	}
	for _, ttl := range []int{0, -1, 2, 29, 86401} {
		if err := ValidateTTL(ttl); !errors.Is(err, ErrConfig) {
			t.Errorf("ValidateTTL(%d) = %v, want ErrConfig", ttl, err)
		}
	}
}
