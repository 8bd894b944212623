package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Пороги эвристик безопасности.
const (
	// SuspiciousIPThreshold — сканирований с одного IP, после которых IP подозрителен.
	SuspiciousIPThreshold = 10
	// RapidScanInterval — интервал между соседними сканированиями, считающийся быстрым.
	RapidScanInterval = 60 * time.Second
	// RapidScanThreshold — количество быстрых пар, после которого выдаётся алерт.
	RapidScanThreshold = 5
	// GeoSpreadCountries — количество различных стран для алерта.
	GeoSpreadCountries = 10
	// GeoSpreadMinScans — минимальный объём сканирований для алерта по географии.
	GeoSpreadMinScans = 50
)

// AlertKind — вид аномалии.
type AlertKind string

const (
	AlertBlockedScans  AlertKind = "blocked_scans"
	AlertSuspiciousIP  AlertKind = "suspicious_ip"
	AlertRapidScanning AlertKind = "rapid_scanning"
	AlertGeoSpread     AlertKind = "geo_spread"
)

// Alert — сработавшая эвристика.
type Alert struct {
	Kind     AlertKind `json:"kind"`
	Severity string    `json:"severity"`
	Subject  string    `json:"subject,omitempty"`
	Count    int       `json:"count"`
	Message  string    `json:"message"`
}

// IPCount — количество сканирований с одного IP.
type IPCount struct {
	IP    string `json:"ip"`
	Count int    `json:"count"`
}

// SecurityReport — результат проверки окна событий на аномалии.
// TotalScans — объём всего окна, SampledScans — событий в выборке,
// по которой считаются IP и быстрые пары.
type SecurityReport struct {
	Provenance        Provenance `json:"provenance"`
	TotalScans        int        `json:"totalScans"`
	SampledScans      int        `json:"sampledScans"`
	BlockedScans      int        `json:"blockedScans"`
	SuspiciousIPs     []IPCount  `json:"suspiciousIps"`
	RapidScanPairs    int        `json:"rapidScanPairs"`
	DistinctCountries int        `json:"distinctCountries"`
	Alerts            []Alert    `json:"alerts"`
}

// Volume — объём окна, посчитанный в хранилище без лимита выборки.
type Volume struct {
	// Total — все сканирования окна
	Total int
	// Countries — количество сканирований по стране в том виде, как она записана
	Countries map[string]int
}

// VolumeOf считает объём по самим событиям.
func VolumeOf(events []model.ScanEvent) Volume {
	v := Volume{Total: len(events), Countries: make(map[string]int)}
	for i := range events {
		v.Countries[events[i].Country]++
	}
	return v
}

// DetectAnomalies применяет независимые эвристики к окну событий.
// Повторы scan_id не удаляются: каждое событие учитывается.
func DetectAnomalies(events []model.ScanEvent) SecurityReport {
	return DetectAnomaliesWithVolume(events, VolumeOf(events))
}

// DetectAnomaliesWithVolume — то же, но эвристика географии использует
// объём всего окна, а не только выборку events.
func DetectAnomaliesWithVolume(events []model.ScanEvent, vol Volume) SecurityReport {
	r := SecurityReport{
		Provenance:    Measured,
		TotalScans:    max(vol.Total, len(events)),
		SampledScans:  len(events),
		SuspiciousIPs: []IPCount{},
		Alerts:        []Alert{},
	}

	ipCounts := make(map[string]int)
	countries := make(map[string]struct{})
	for i := range events {
		ev := &events[i]
		if ev.Blocked {
			r.BlockedScans++
		}
		if ev.IP != "" && ev.IP != model.UnknownLocation {
			ipCounts[ev.IP]++
		}
		if c := NormalizeCountry(ev.Country); c != model.UnknownLocation {
			countries[c] = struct{}{}
		}
	}
	for raw, n := range vol.Countries {
		if c := NormalizeCountry(raw); n > 0 && c != model.UnknownLocation {
			countries[c] = struct{}{}
		}
	}
	r.DistinctCountries = len(countries)

	if r.BlockedScans > 0 {
		r.Alerts = append(r.Alerts, Alert{
			Kind:     AlertBlockedScans,
			Severity: "high",
			Count:    r.BlockedScans,
			Message:  fmt.Sprintf("%d blocked scan(s) in the window", r.BlockedScans),
		})
	}

	for ip, n := range ipCounts {
		if n > SuspiciousIPThreshold {
			r.SuspiciousIPs = append(r.SuspiciousIPs, IPCount{IP: ip, Count: n})
		}
	}
	sort.Slice(r.SuspiciousIPs, func(i, j int) bool {
		if r.SuspiciousIPs[i].Count != r.SuspiciousIPs[j].Count {
			return r.SuspiciousIPs[i].Count > r.SuspiciousIPs[j].Count
		}
		return r.SuspiciousIPs[i].IP < r.SuspiciousIPs[j].IP
	})
	for _, s := range r.SuspiciousIPs {
		r.Alerts = append(r.Alerts, Alert{
			Kind:     AlertSuspiciousIP,
			Severity: "medium",
			Subject:  s.IP,
			Count:    s.Count,
			Message:  fmt.Sprintf("%d scans from %s", s.Count, s.IP),
		})
	}

	r.RapidScanPairs = countRapidPairs(events)
	if r.RapidScanPairs > RapidScanThreshold {
		r.Alerts = append(r.Alerts, Alert{
			Kind:     AlertRapidScanning,
			Severity: "medium",
			Count:    r.RapidScanPairs,
			Message:  fmt.Sprintf("%d scans less than %s apart", r.RapidScanPairs, RapidScanInterval),
		})
	}

	if r.DistinctCountries > GeoSpreadCountries && r.TotalScans > GeoSpreadMinScans {
		r.Alerts = append(r.Alerts, Alert{
			Kind:     AlertGeoSpread,
			Severity: "low",
			Count:    r.DistinctCountries,
			Message:  fmt.Sprintf("scans from %d countries", r.DistinctCountries),
		})
	}

	return r
}

// countRapidPairs считает соседние по времени пары событий с интервалом меньше RapidScanInterval.
func countRapidPairs(events []model.ScanEvent) int {
	if len(events) < 2 {
		return 0
	}
	times := make([]time.Time, len(events))
	for i := range events {
		times[i] = events[i].ScannedAt
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	n := 0
	for i := 1; i < len(times); i++ {
		if times[i].Sub(times[i-1]) < RapidScanInterval {
			n++
		}
	}
	return n
}
