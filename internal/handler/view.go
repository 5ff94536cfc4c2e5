package handler

import (
	"fmt"

	"cf-ddns/internal/domain"
)

// ReportView is the JSON shape of a run report
type ReportView struct {
	Failed    int            `json:"failed"`
	Changed   int            `json:"changed"`
	Hostnames []HostnameView `json:"hostnames"`
}

// HostnameView is the JSON shape of one hostname's outcome
type HostnameView struct {
	Hostname  string            `json:"hostname"`
	FQDN      string            `json:"fqdn,omitempty"`
	A         string            `json:"a,omitempty"`
	AAAA      string            `json:"aaaa,omitempty"`
	Addresses map[string]string `json:"addresses,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// NewReportView renders a report
func NewReportView(report *domain.Report) ReportView {
	v := ReportView{
		Failed:    report.Failed(),
		Changed:   report.Changed(),
		Hostnames: make([]HostnameView, 0, len(report.Hostnames)),
	}
	for _, h := range report.Hostnames {
		v.Hostnames = append(v.Hostnames, NewHostnameView(h.Hostname, h.Result, h.Err))
	}
	return v
}

// NewHostnameView renders either the result or the error of a hostname
func NewHostnameView(hostname string, result *domain.Result, err error) HostnameView {
	v := HostnameView{Hostname: hostname}
	if err != nil {
		v.Error = err.Error()
		return v
	}
	v.FQDN = result.FQDN
	v.A = result.A.String()
	v.AAAA = result.AAAA.String()
	if len(result.Addresses) > 0 {
		v.Addresses = make(map[string]string, len(result.Addresses))
		for t, ip := range result.Addresses {
			v.Addresses[string(t)] = ip
		}
	}
	return v
}

// ParseOverrides reads optional zone_id, ttl, proxied, a and aaaa from
// decoded JSON arguments. Absent keys stay unset.
func ParseOverrides(arguments map[string]interface{}) (domain.HostnameConfig, error) {
	var cfg domain.HostnameConfig

	if v, ok := arguments["zone_id"]; ok {
		s, ok := v.(string)
		if !ok || s == "" {
			return cfg, fmt.Errorf("zone_id must be a non-empty string")
		}
		cfg.ZoneID = &s
	}
	if v, ok := arguments["ttl"]; ok {
		// JSON numbers decode as float64
		f, ok := v.(float64)
		if !ok || f != float64(int(f)) {
			return cfg, fmt.Errorf("ttl must be an integer")
		}
		ttl := int(f)
		if err := domain.ValidateTTL(ttl); err != nil {
			return cfg, err
		}
		cfg.TTL = &ttl
	}
	for key, dst := range map[string]**bool{"proxied": &cfg.Proxied, "a": &cfg.UseA, "aaaa": &cfg.UseAAAA} {
		if v, ok := arguments[key]; ok {
			b, ok := v.(bool)
			if !ok {
				return cfg, fmt.Errorf("%s must be a boolean", key)
			}
			*dst = &b
		}
	}
	return cfg, nil
}
