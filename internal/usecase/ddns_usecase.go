package usecase

import (
	"context"
	"fmt"

	"cf-ddns/internal/domain"
	"cf-ddns/internal/repository"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const tracerName = "cf-ddns"

// ddnsUsecase implements DDNSUsecase interface
type ddnsUsecase struct {
	zoneRepo repository.ZoneRepository
	ipRepo   repository.IPRepository
	dnsRepo  repository.DNSRecordRepository

	global      domain.HostnameConfig
	concurrency int
	log         logr.Logger
}

// NewDDNSUsecase creates a reconciler. The repositories should be fresh so
// that caches do not outlive the run.
func NewDDNSUsecase(
	zoneRepo repository.ZoneRepository,
	ipRepo repository.IPRepository,
	dnsRepo repository.DNSRecordRepository,
	opts Options,
) DDNSUsecase {
	return &ddnsUsecase{
		zoneRepo:    zoneRepo,
		ipRepo:      ipRepo,
		dnsRepo:     dnsRepo,
		global:      opts.Global,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
	}
}

// PublicIP returns the current public address of the family
func (u *ddnsUsecase) PublicIP(ctx context.Context, family domain.IPFamily) (string, error) {
	return u.ipRepo.PublicIP(ctx, family)
}

// CommitRecord brings the hostname's A and AAAA records in line with the
// current public addresses. The first failure aborts the hostname; writes
// already applied for the other family stay in place.
func (u *ddnsUsecase) CommitRecord(ctx context.Context, hostname string, cfg domain.HostnameConfig) (*domain.Result, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ddns.CommitRecord")
	defer span.End()

	span.SetAttributes(attribute.String("hostname", hostname))

	result, err := u.commit(ctx, hostname, cfg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, domain.WrapHostname(hostname, err)
	}

	span.SetAttributes(
		attribute.String("fqdn", result.FQDN),
		attribute.String("a", result.A.String()),
		attribute.String("aaaa", result.AAAA.String()),
	)
	return result, nil
}

func (u *ddnsUsecase) commit(ctx context.Context, hostname string, cfg domain.HostnameConfig) (*domain.Result, error) {
	settings, err := domain.ResolveSettings(cfg, u.global)
	if err != nil {
		return nil, err
	}
	log := u.log.WithValues("hostname", hostname, "zone_id", settings.ZoneID)

	baseDomain, err := u.zoneRepo.ZoneName(ctx, settings.ZoneID)
	if err != nil {
		return nil, domain.WrapOp("resolve zone", err)
	}

	fqdn := domain.FQDN(hostname, baseDomain)
	log = log.WithValues("fqdn", fqdn)
	result := &domain.Result{
		Hostname:  hostname,
		FQDN:      fqdn,
		Addresses: make(map[domain.RecordType]string),
	}

	if !settings.UseA && !settings.UseAAAA {
		log.Info("both A and AAAA records are disabled, nothing to do")
		return result, nil
	}

	records, err := u.dnsRepo.ListRecords(ctx, settings.ZoneID, fqdn)
	if err != nil {
		return nil, err
	}
	log.V(2).Info("fetched records", "count", len(records), "records", records)

	for _, family := range domain.Families {
		if !settings.Uses(family) {
			continue
		}
		outcome, ip, err := u.commitFamily(ctx, log, settings, fqdn, family, records)
		if err != nil {
			return nil, err
		}
		result.Set(family, outcome)
		result.Addresses[family.RecordType()] = ip
	}

	return result, nil
}

func (u *ddnsUsecase) commitFamily(
	ctx context.Context,
	log logr.Logger,
	settings domain.Settings,
	fqdn string,
	family domain.IPFamily,
	records []domain.DNSRecord,
) (domain.Outcome, string, error) {
	recordType := family.RecordType()
	log = log.WithValues("type", recordType)

	matching := domain.FindRecords(records, recordType)
	if len(matching) > 1 {
		ignored := make([]string, 0, len(matching)-1)
		for _, r := range matching[1:] {
			ignored = append(ignored, r.ID)
		}
		log.Info("WARNING: multiple records of the same type, only the first one is managed",
			"record_id", matching[0].ID, "ignored", ignored)
	}

	ip, err := u.ipRepo.PublicIP(ctx, family)
	if err != nil {
		return domain.Skipped, "", domain.WrapOp(fmt.Sprintf("get %s address", family), err)
	}

	desired := domain.DNSRecord{
		Name:    fqdn,
		Type:    recordType,
		Content: ip,
		TTL:     settings.TTL,
		Proxied: settings.Proxied,
	}

	if len(matching) == 0 {
		created, err := u.dnsRepo.CreateRecord(ctx, settings.ZoneID, desired)
		if err != nil {
			return domain.Skipped, "", err
		}
		log.Info("created record", "record_id", created.ID, "content", ip)
		return domain.Created, ip, nil
	}

	existing := matching[0]
	if existing.Matches(ip, settings.Proxied, settings.TTL) {
		log.V(1).Info("record up to date", "record_id", existing.ID, "content", ip)
		return domain.Unchanged, ip, nil
	}

	if _, err := u.dnsRepo.UpdateRecord(ctx, settings.ZoneID, existing.ID, desired); err != nil {
		return domain.Skipped, "", err
	}
	log.Info("updated record", "record_id", existing.ID,
		"from", existing.Content, "to", ip, "proxied", settings.Proxied, "ttl", settings.TTL)
	return domain.Updated, ip, nil
}
