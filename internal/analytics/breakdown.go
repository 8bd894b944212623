package analytics

import (
	"math"
	"time"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Provenance — происхождение значения: измерено по событиям
// или оценено по накопительным счётчикам.
type Provenance string

const (
	Measured  Provenance = "measured"
	Estimated Provenance = "estimated"
)

// Share — доля одной категории.
type Share struct {
	Label      string `json:"label"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// Breakdown — распределение событий по категориям.
type Breakdown struct {
	Provenance Provenance `json:"provenance"`
	Items      []Share    `json:"items"`
}

var (
	deviceOrder  = []string{string(DeviceMobile), string(DeviceDesktop), string(DeviceTablet)}
	browserOrder = []string{string(BrowserChrome), string(BrowserSafari), string(BrowserFirefox), string(BrowserEdge), string(BrowserOther)}
	bucketOrder  = []string{string(BucketMorning), string(BucketDay), string(BucketEvening), string(BucketNight)}
)

// DeviceBreakdown считает распределение по классам устройств.
func DeviceBreakdown(events []model.ScanEvent) Breakdown {
	counts := make(map[string]int, len(deviceOrder))
	for i := range events {
		counts[string(ClassifyDevice(events[i].UserAgent))]++
	}
	return fixedBreakdown(deviceOrder, counts, len(events))
}

// BrowserBreakdown считает распределение по браузерам.
func BrowserBreakdown(events []model.ScanEvent) Breakdown {
	counts := make(map[string]int, len(browserOrder))
	for i := range events {
		counts[string(ClassifyBrowser(events[i].UserAgent))]++
	}
	return fixedBreakdown(browserOrder, counts, len(events))
}

// TimeOfDayBreakdown считает распределение по частям суток.
func TimeOfDayBreakdown(events []model.ScanEvent, loc *time.Location) Breakdown {
	counts := make(map[string]int, len(bucketOrder))
	for i := range events {
		counts[string(BucketOf(events[i].ScannedAt, loc))]++
	}
	return fixedBreakdown(bucketOrder, counts, len(events))
}

// fixedBreakdown строит распределение с фиксированным набором категорий,
// включая нулевые.
func fixedBreakdown(order []string, counts map[string]int, total int) Breakdown {
	items := make([]Share, 0, len(order))
	for _, label := range order {
		items = append(items, Share{
			Label:      label,
			Count:      counts[label],
			Percentage: percent(counts[label], total),
		})
	}
	return Breakdown{Provenance: Measured, Items: items}
}

// percent — округлённая доля count от total в процентах.
func percent(count, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(count) * 100 / float64(total)))
}
