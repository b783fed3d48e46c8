package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flowershop/admin-api/internal/domain"
)

type stubHealthRepository struct {
	report domain.HealthReport
	err    error
	calls  int
}

func (s *stubHealthRepository) Collect(context.Context) (domain.HealthReport, error) {
	s.calls++
	return s.report, s.err
}

func TestSystemServiceHealthReportEnrichesMetadata(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 5, 0, 0, time.UTC)
	repo := &stubHealthRepository{report: domain.HealthReport{
		Checks: map[string]domain.HealthCheck{
			"mongo":   {Status: domain.HealthStatusOK},
			"storage": {Status: domain.HealthStatusDegraded},
		},
	}}
	svc, err := NewSystemService(SystemServiceDeps{
		HealthRepository: repo,
		Clock:            func() time.Time { return now },
		Build:            BuildInfo{Environment: "prod"},
	})
	if err != nil {
		t.Fatalf("NewSystemService: %v", err)
	}

	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected degraded, got %q", report.Status)
	}
	if report.Environment != "prod" || !report.GeneratedAt.Equal(now) {
		t.Fatalf("expected metadata, got %+v", report)
	}
}

func TestSystemServiceHealthReportKeepsCollectedStatus(t *testing.T) {
	repo := &stubHealthRepository{report: domain.HealthReport{
		Status: domain.HealthStatusError,
		Checks: map[string]domain.HealthCheck{"mongo": {Status: domain.HealthStatusError}},
	}}
	svc, _ := NewSystemService(SystemServiceDeps{HealthRepository: repo})
	report, err := svc.HealthReport(context.Background())
	if err != nil {
		t.Fatalf("HealthReport: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected error status, got %q", report.Status)
	}
}

func TestSystemServiceHealthReportPropagatesError(t *testing.T) {
	repo := &stubHealthRepository{err: errors.New("boom")}
	svc, _ := NewSystemService(SystemServiceDeps{HealthRepository: repo})
	if _, err := svc.HealthReport(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if repo.calls != 1 {
		t.Fatalf("expected one collect, got %d", repo.calls)
	}
}

func TestNewSystemServiceRequiresRepository(t *testing.T) {
	if _, err := NewSystemService(SystemServiceDeps{}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildInfoUptime(t *testing.T) {
	started := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	info := BuildInfo{StartedAt: started}
	if got := info.Uptime(started.Add(90*time.Second + 400*time.Millisecond)); got != 90*time.Second {
		t.Fatalf("expected 1m30s, got %s", got)
	}
	if got := info.Uptime(started.Add(-time.Minute)); got != 0 {
		t.Fatalf("expected zero uptime for a clock behind StartedAt, got %s", got)
	}
	if got := (BuildInfo{}).Uptime(started); got != 0 {
		t.Fatalf("expected zero uptime without StartedAt, got %s", got)
	}
}
