package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/qrtrack/internal/analytics"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/repository"
)

func newTestAnalytics(qrRepo *mockQRRepo, scanRepo *mockScanRepo) *AnalyticsService {
	svc := NewAnalyticsService(qrRepo, scanRepo, 30, 50, time.UTC, testLogger())
	svc.now = func() time.Time { return time.Date(2026, 3, 31, 12, 0, 0, 0, time.UTC) }
	return svc
}

// TestAnalyticsService_Report_Window проверяет параметры выборки окна.
func TestAnalyticsService_Report_Window(t *testing.T) {
	var got repository.ScanWindow
	qrRepo := &mockQRRepo{listByOwnerFn: func(_ context.Context, ownerID string, _, _ int) ([]*model.QRRecord, int, error) {
		return []*model.QRRecord{{ID: testQRID, OwnerID: ownerID, Type: model.ContentURL, ScanCount: 1}}, 1, nil
	}}
	scanRepo := &mockScanRepo{listWindowFn: func(_ context.Context, w repository.ScanWindow) ([]model.ScanEvent, error) {
		got = w
		return []model.ScanEvent{{QRCodeID: testQRID, ScannedAt: time.Date(2026, 3, 30, 9, 0, 0, 0, time.UTC)}}, nil
	}}

	report, err := newTestAnalytics(qrRepo, scanRepo).Report(context.Background(), "owner-1", ReportQuery{})
	if err != nil {
		t.Fatalf("Report() ошибка: %v", err)
	}
	if got.OwnerID != "owner-1" || got.Limit != 50 || got.QRCodeID != nil {
		t.Errorf("ScanWindow = %+v", got)
	}
	if want := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC); !got.Since.Equal(want) {
		t.Errorf("Since = %v, ожидалось %v", got.Since, want)
	}
	if report.TotalScans != 1 || report.Daily.Provenance != analytics.Measured {
		t.Errorf("TotalScans = %d, Daily.Provenance = %q", report.TotalScans, report.Daily.Provenance)
	}
}

// TestAnalyticsService_Report_SingleQR — отчёт по чужому коду недоступен.
func TestAnalyticsService_Report_SingleQR(t *testing.T) {
	qrRepo := &mockQRRepo{getByIDFn: func(_ context.Context, id string) (*model.QRRecord, error) {
		return &model.QRRecord{ID: id, OwnerID: "owner-2"}, nil
	}}
	svc := newTestAnalytics(qrRepo, &mockScanRepo{})

	id := testQRID
	if _, err := svc.Report(context.Background(), "owner-1", ReportQuery{QRID: &id}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report() = %v, ожидалась ErrNotFound", err)
	}
}

func TestAnalyticsService_Report_InvalidDays(t *testing.T) {
	svc := newTestAnalytics(&mockQRRepo{}, &mockScanRepo{})
	for _, d := range []int{-1, 31} {
		if _, err := svc.Report(context.Background(), "owner-1", ReportQuery{Days: d}); !errors.Is(err, ErrValidation) {
			t.Errorf("Report(days=%d) = %v, ожидалась ErrValidation", d, err)
		}
	}
}

// TestAnalyticsService_Report_Estimated — без событий ряд оценивается по счётчику.
func TestAnalyticsService_Report_Estimated(t *testing.T) {
	qrRepo := &mockQRRepo{listByOwnerFn: func(_ context.Context, ownerID string, _, _ int) ([]*model.QRRecord, int, error) {
		return []*model.QRRecord{{
			ID: testQRID, OwnerID: ownerID, Type: model.ContentURL, ScanCount: 500,
			CreatedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		}}, 1, nil
	}}
	report, err := newTestAnalytics(qrRepo, &mockScanRepo{}).Report(context.Background(), "owner-1", ReportQuery{Days: 7})
	if err != nil {
		t.Fatalf("Report() ошибка: %v", err)
	}
	if report.Daily.Provenance != analytics.Estimated {
		t.Errorf("Daily.Provenance = %q, ожидался %q", report.Daily.Provenance, analytics.Estimated)
	}
	if len(report.Daily.Points) != 7 {
		t.Errorf("точек = %d, ожидалось 7", len(report.Daily.Points))
	}
}

// TestAnalyticsService_Report_GeoSpreadBeyondLimit — при выборке, упёршейся
// в лимит, эвристика географии считается по объёму всего окна.
func TestAnalyticsService_Report_GeoSpreadBeyondLimit(t *testing.T) {
	qrRepo := &mockQRRepo{listByOwnerFn: func(_ context.Context, ownerID string, _, _ int) ([]*model.QRRecord, int, error) {
		return []*model.QRRecord{{ID: testQRID, OwnerID: ownerID, Type: model.ContentURL, ScanCount: 200}}, 1, nil
	}}

	countries := []string{"Norway", "Sweden", "Denmark", "Finland", "Germany", "France",
		"Spain", "Italy", "Poland", "Estonia", "Latvia", "Lithuania"}
	var gotCountWindow repository.ScanWindow
	scanRepo := &mockScanRepo{
		listWindowFn: func(_ context.Context, w repository.ScanWindow) ([]model.ScanEvent, error) {
			events := make([]model.ScanEvent, w.Limit)
			for i := range events {
				events[i] = model.ScanEvent{
					QRCodeID:  testQRID,
					IP:        "unknown",
					Country:   countries[i%2],
					ScannedAt: time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC).Add(time.Duration(i) * time.Hour),
				}
			}
			return events, nil
		},
		countryCountsFn: func(_ context.Context, w repository.ScanWindow) (map[string]int, error) {
			gotCountWindow = w
			counts := make(map[string]int, len(countries))
			for i := 0; i < 200; i++ {
				counts[countries[i%len(countries)]]++
			}
			return counts, nil
		},
	}

	report, err := newTestAnalytics(qrRepo, scanRepo).Report(context.Background(), "owner-1", ReportQuery{})
	if err != nil {
		t.Fatalf("Report() ошибка: %v", err)
	}
	if gotCountWindow.OwnerID != "owner-1" || gotCountWindow.Limit != 0 {
		t.Errorf("CountryCounts window = %+v", gotCountWindow)
	}

	sec := report.Security
	if sec.TotalScans != 200 || sec.SampledScans != 50 || sec.DistinctCountries != 12 {
		t.Errorf("TotalScans = %d, SampledScans = %d, DistinctCountries = %d",
			sec.TotalScans, sec.SampledScans, sec.DistinctCountries)
	}
	found := false
	for _, a := range sec.Alerts {
		if a.Kind == analytics.AlertGeoSpread {
			found = true
		}
	}
	if !found {
		t.Errorf("алерт geo_spread не выдан: %+v", sec.Alerts)
	}
}

// TestAnalyticsService_Report_NoCountBelowLimit — неполная выборка уже описывает всё окно.
func TestAnalyticsService_Report_NoCountBelowLimit(t *testing.T) {
	scanRepo := &mockScanRepo{
		listWindowFn: func(context.Context, repository.ScanWindow) ([]model.ScanEvent, error) {
			return []model.ScanEvent{{QRCodeID: testQRID, Country: "Norway"}}, nil
		},
		countryCountsFn: func(context.Context, repository.ScanWindow) (map[string]int, error) {
			t.Error("CountryCounts не должен вызываться")
			return nil, nil
		},
	}
	report, err := newTestAnalytics(&mockQRRepo{}, scanRepo).Report(context.Background(), "owner-1", ReportQuery{})
	if err != nil {
		t.Fatalf("Report() ошибка: %v", err)
	}
	if report.Security.TotalScans != 1 {
		t.Errorf("TotalScans = %d, ожидалось 1", report.Security.TotalScans)
	}
}
