// Пакет analytics — вычисление аналитики сканирований из набора ScanEvent.
// Все функции чистые: доступ к хранилищу выполняет сервисный слой,
// сюда передаётся уже выбранное окно событий.
package analytics

import (
	"strings"
	"time"
)

// Device — класс устройства по User-Agent.
type Device string

const (
	DeviceMobile  Device = "mobile"
	DeviceTablet  Device = "tablet"
	DeviceDesktop Device = "desktop"
)

// Browser — семейство браузера по User-Agent.
type Browser string

const (
	BrowserEdge    Browser = "edge"
	BrowserFirefox Browser = "firefox"
	BrowserSafari  Browser = "safari"
	BrowserChrome  Browser = "chrome"
	BrowserOther   Browser = "other"
)

// TimeBucket — часть суток по локальному времени сканирования.
type TimeBucket string

const (
	BucketMorning TimeBucket = "morning"
	BucketDay     TimeBucket = "day"
	BucketEvening TimeBucket = "evening"
	BucketNight   TimeBucket = "night"
)

var (
	tabletMarkers = []string{"ipad", "tablet", "kindle", "silk/", "playbook"}
	mobileMarkers = []string{"mobile", "iphone", "ipod", "android", "blackberry", "iemobile", "opera mini", "windows phone"}
)

// ClassifyDevice определяет класс устройства. Планшет проверяется раньше
// мобильного: UA планшетов часто содержат и мобильные маркеры.
// Android без "mobile" — планшет.
func ClassifyDevice(ua string) Device {
	s := strings.ToLower(ua)
	if containsAny(s, tabletMarkers) || (strings.Contains(s, "android") && !strings.Contains(s, "mobile")) {
		return DeviceTablet
	}
	if containsAny(s, mobileMarkers) {
		return DeviceMobile
	}
	return DeviceDesktop
}

// ClassifyBrowser определяет семейство браузера.
// Порядок: Edge, Firefox, Safari (если нет "chrome/"), Chrome/Chromium.
// Edge и большинство Android-браузеров содержат "safari/" и "chrome/",
// поэтому порядок проверок важен.
func ClassifyBrowser(ua string) Browser {
	s := strings.ToLower(ua)
	switch {
	case containsAny(s, []string{"edg/", "edge/", "edga/", "edgios/"}):
		return BrowserEdge
	case containsAny(s, []string{"firefox/", "fxios/"}):
		return BrowserFirefox
	case strings.Contains(s, "safari/") && !strings.Contains(s, "chrome/"):
		return BrowserSafari
	case containsAny(s, []string{"chrome/", "chromium/"}):
		return BrowserChrome
	default:
		return BrowserOther
	}
}

// BucketOf возвращает часть суток для момента t в часовом поясе loc.
// morning [6,12), day [12,18), evening [18,24), night [0,6).
func BucketOf(t time.Time, loc *time.Location) TimeBucket {
	if loc == nil {
		loc = time.UTC
	}
	h := t.In(loc).Hour()
	switch {
	case h >= 6 && h < 12:
		return BucketMorning
	case h >= 12 && h < 18:
		return BucketDay
	case h >= 18:
		return BucketEvening
	default:
		return BucketNight
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
