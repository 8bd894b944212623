package model

import "time"

// UnknownLocation — значение-заглушка для неопределённых IP и геоданных.
const UnknownLocation = "unknown"

// ScanEvent — одно сканирование QR-кода (таблица scan_events).
// Записи только добавляются, не изменяются и не удаляются.
type ScanEvent struct {
	// ID — UUID записи
	ID string
	// QRCodeID — UUID QR-кода
	QRCodeID string
	// ScanID — идентификатор из tracking URL
	ScanID string
	// IP — IP-адрес клиента или "unknown"
	IP string
	// UserAgent — заголовок User-Agent
	UserAgent string
	// Country — страна или "unknown"
	Country string
	// City — город или "unknown"
	City string
	// Latitude, Longitude — координаты, если известны
	Latitude  *float64
	Longitude *float64
	// Blocked — сканирование помечено как заблокированное
	Blocked bool
	// BlockReason — причина блокировки
	BlockReason *string
	// ScannedAt — время сканирования
	ScannedAt time.Time
}
