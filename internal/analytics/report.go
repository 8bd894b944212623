package analytics

import (
	"sort"
	"time"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// QRSummary — сводка по одному QR-коду в отчёте.
type QRSummary struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Type          model.ContentType `json:"type"`
	ActionLabel   string            `json:"actionLabel"`
	LifetimeScans int64             `json:"lifetimeScans"`
	WindowScans   int               `json:"windowScans"`
	LastScanAt    *time.Time        `json:"lastScanAt,omitempty"`
}

// Report — итоговый аналитический отчёт по окну событий.
type Report struct {
	GeneratedAt   time.Time      `json:"generatedAt"`
	WindowStart   time.Time      `json:"windowStart"`
	WindowEnd     time.Time      `json:"windowEnd"`
	WindowDays    int            `json:"windowDays"`
	TotalScans    int            `json:"totalScans"`
	LifetimeScans int64          `json:"lifetimeScans"`
	Devices       Breakdown      `json:"devices"`
	Browsers      Breakdown      `json:"browsers"`
	TimeOfDay     Breakdown      `json:"timeOfDay"`
	Geography     Breakdown      `json:"geography"`
	Security      SecurityReport `json:"security"`
	Daily         Series         `json:"daily"`
	QRCodes       []QRSummary    `json:"qrCodes"`
}

// Build строит отчёт из окна событий и QR-кодов владельца.
// Если в окне нет событий, а счётчики ненулевые, дневной ряд
// оценивается по счётчикам и помечается Estimated.
func Build(events []model.ScanEvent, qrs []model.QRRecord, w Window) Report {
	return BuildWithVolume(events, qrs, w, VolumeOf(events))
}

// BuildWithVolume строит отчёт, когда events — ограниченная выборка,
// а vol — объём всего окна из хранилища.
func BuildWithVolume(events []model.ScanEvent, qrs []model.QRRecord, w Window, vol Volume) Report {
	r := Report{
		GeneratedAt: time.Now().UTC(),
		WindowStart: w.Start(),
		WindowEnd:   w.End,
		WindowDays:  w.Days,
		TotalScans:  len(events),
		Devices:     DeviceBreakdown(events),
		Browsers:    BrowserBreakdown(events),
		TimeOfDay:   TimeOfDayBreakdown(events, w.loc()),
		Geography:   AggregateGeography(events),
		Security:    DetectAnomaliesWithVolume(events, vol),
		QRCodes:     summarize(events, qrs),
	}

	for i := range qrs {
		r.LifetimeScans += qrs[i].ScanCount
	}

	if len(events) == 0 && r.LifetimeScans > 0 {
		estimates := make([]Series, 0, len(qrs))
		for i := range qrs {
			estimates = append(estimates, EstimateDailySeries(Counter{
				QRID:      qrs[i].ID,
				ScanCount: qrs[i].ScanCount,
				CreatedAt: qrs[i].CreatedAt,
			}, w))
		}
		r.Daily = SumSeries(estimates...)
	} else {
		r.Daily = DailySeries(events, w)
	}

	return r
}

// summarize формирует сводки по QR-кодам, отсортированные по числу
// сканирований в окне.
func summarize(events []model.ScanEvent, qrs []model.QRRecord) []QRSummary {
	byID := make(map[string]*QRSummary, len(qrs))
	out := make([]QRSummary, len(qrs))
	for i := range qrs {
		out[i] = QRSummary{
			ID:            qrs[i].ID,
			Title:         qrs[i].Title,
			Type:          qrs[i].Type,
			ActionLabel:   qrs[i].Type.ActionLabel(),
			LifetimeScans: qrs[i].ScanCount,
		}
		byID[qrs[i].ID] = &out[i]
	}

	for i := range events {
		s, ok := byID[events[i].QRCodeID]
		if !ok {
			continue
		}
		s.WindowScans++
		at := events[i].ScannedAt
		if s.LastScanAt == nil || at.After(*s.LastScanAt) {
			s.LastScanAt = &at
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WindowScans > out[j].WindowScans
	})
	return out
}
