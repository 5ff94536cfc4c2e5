package usecase

import (
	"context"
	"sort"

	"cf-ddns/internal/domain"

	"golang.org/x/sync/errgroup"
)

// SyncAll reconciles every hostname in name order. A failing hostname is
// logged and recorded in the report; the loop never stops early.
func (u *ddnsUsecase) SyncAll(ctx context.Context, hostnames map[string]domain.HostnameConfig) *domain.Report {
	names := make([]string, 0, len(hostnames))
	for name := range hostnames {
		names = append(names, name)
	}
	sort.Strings(names)

	report := &domain.Report{Hostnames: make([]domain.HostnameReport, len(names))}

	if u.concurrency < 2 {
		for i, name := range names {
			report.Hostnames[i] = u.syncOne(ctx, name, hostnames[name])
		}
		return report
	}

	// each goroutine owns one slot, so the report stays in name order
	var g errgroup.Group
	g.SetLimit(u.concurrency)
	for i, name := range names {
		g.Go(func() error {
			report.Hostnames[i] = u.syncOne(ctx, name, hostnames[name])
			return nil
		})
	}
	g.Wait()

	return report
}

func (u *ddnsUsecase) syncOne(ctx context.Context, name string, cfg domain.HostnameConfig) domain.HostnameReport {
	result, err := u.CommitRecord(ctx, name, cfg)
	if err != nil {
		u.log.Error(err, "failed to update hostname", "hostname", name)
		return domain.HostnameReport{Hostname: name, Err: err}
	}
	return domain.HostnameReport{Hostname: name, Result: result}
}
