// analytics.go — выборка окна событий владельца и построение отчёта.
// Окно: до AnalyticsWindowDays дней и не более AnalyticsMaxEvents
// самых свежих событий, по всем кодам владельца или по одному коду.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrtrack/internal/analytics"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/repository"
)

var analyticsReportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "qt_analytics_report_duration_seconds",
	Help:    "Длительность построения аналитического отчёта.",
	Buckets: prometheus.DefBuckets,
})

// maxReportQRCodes — предел QR-кодов владельца в сводке отчёта.
const maxReportQRCodes = 500

// ReportQuery — параметры отчёта.
type ReportQuery struct {
	// QRID — ограничить отчёт одним QR-кодом
	QRID *string
	// Days — длина окна; 0 — значение по умолчанию
	Days int
}

// AnalyticsService — сервис аналитики сканирований.
type AnalyticsService struct {
	qrRepo     repository.QRCodeRepository
	scanRepo   repository.ScanEventRepository
	windowDays int
	maxEvents  int
	loc        *time.Location
	logger     *slog.Logger
	now        func() time.Time
}

// NewAnalyticsService создаёт сервис аналитики.
func NewAnalyticsService(
	qrRepo repository.QRCodeRepository,
	scanRepo repository.ScanEventRepository,
	windowDays, maxEvents int,
	loc *time.Location,
	logger *slog.Logger,
) *AnalyticsService {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsService{
		qrRepo:     qrRepo,
		scanRepo:   scanRepo,
		windowDays: windowDays,
		maxEvents:  maxEvents,
		loc:        loc,
		logger:     logger.With(slog.String("component", "analytics_service")),
		now:        time.Now,
	}
}

// Report строит отчёт по QR-кодам владельца.
func (s *AnalyticsService) Report(ctx context.Context, ownerID string, q ReportQuery) (*analytics.Report, error) {
	start := time.Now()
	defer func() { analyticsReportDuration.Observe(time.Since(start).Seconds()) }()

	days := q.Days
	if days == 0 {
		days = s.windowDays
	}
	if days < 1 || days > s.windowDays {
		return nil, fmt.Errorf("%w: days должен быть в диапазоне 1-%d", ErrValidation, s.windowDays)
	}

	qrs, err := s.ownerCodes(ctx, ownerID, q.QRID)
	if err != nil {
		return nil, err
	}

	w := analytics.Window{End: s.now().In(s.loc), Days: days, Location: s.loc}
	events, err := s.scanRepo.ListWindow(ctx, repository.ScanWindow{
		OwnerID:  ownerID,
		QRCodeID: q.QRID,
		Since:    w.Start(),
		Limit:    s.maxEvents,
	})
	if err != nil {
		return nil, fmt.Errorf("выборка событий: %w", err)
	}

	vol := analytics.VolumeOf(events)
	if len(events) >= s.maxEvents {
		counts, err := s.scanRepo.CountryCounts(ctx, repository.ScanWindow{
			OwnerID:  ownerID,
			QRCodeID: q.QRID,
			Since:    w.Start(),
		})
		if err != nil {
			return nil, fmt.Errorf("подсчёт объёма окна: %w", err)
		}
		vol = analytics.Volume{Countries: counts}
		for _, n := range counts {
			vol.Total += n
		}
	}

	report := analytics.BuildWithVolume(events, qrs, w, vol)

	s.logger.Debug("Отчёт построен",
		slog.String("owner_id", ownerID),
		slog.Int("events", len(events)),
		slog.Int("window_scans", vol.Total),
		slog.Int("qr_codes", len(qrs)),
		slog.String("daily_provenance", string(report.Daily.Provenance)),
	)
	return &report, nil
}

// ownerCodes возвращает QR-коды отчёта. Чужой или несуществующий код — ErrNotFound.
func (s *AnalyticsService) ownerCodes(ctx context.Context, ownerID string, qrID *string) ([]model.QRRecord, error) {
	if qrID != nil {
		if _, err := uuid.Parse(*qrID); err != nil {
			return nil, ErrNotFound
		}
		qr, err := s.qrRepo.GetByID(ctx, *qrID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrNotFound
			}
			return nil, fmt.Errorf("получение QR-кода: %w", err)
		}
		if qr.OwnerID != ownerID {
			return nil, ErrNotFound
		}
		return []model.QRRecord{*qr}, nil
	}

	items, _, err := s.qrRepo.ListByOwner(ctx, ownerID, maxReportQRCodes, 0)
	if err != nil {
		return nil, fmt.Errorf("список QR-кодов: %w", err)
	}
	out := make([]model.QRRecord, 0, len(items))
	for _, qr := range items {
		out = append(out, *qr)
	}
	return out, nil
}
