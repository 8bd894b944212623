package model

import "time"

// DesignSettings — настройки оформления QR-кода.
// Хранятся в JSONB-столбце design_settings.
type DesignSettings struct {
	// ForegroundColor — цвет модулей (#RRGGBB)
	ForegroundColor string `json:"foregroundColor,omitempty"`
	// BackgroundColor — цвет фона (#RRGGBB)
	BackgroundColor string `json:"backgroundColor,omitempty"`
	// Size — размер изображения в пикселях
	Size int `json:"size,omitempty"`
	// ErrorCorrection — уровень коррекции ошибок (L, M, Q, H)
	ErrorCorrection string `json:"errorCorrection,omitempty"`
	// TrackAnalytics — оборачивать ли payload в tracking URL.
	// nil трактуется как true.
	TrackAnalytics *bool `json:"trackAnalytics,omitempty"`
}

// Tracked возвращает true, если аналитика не отключена явно.
func (d DesignSettings) Tracked() bool {
	return d.TrackAnalytics == nil || *d.TrackAnalytics
}

// QRRecord — запись QR-кода в таблице qr_codes.
type QRRecord struct {
	// ID — UUID QR-кода
	ID string
	// OwnerID — идентификатор владельца (sub из JWT)
	OwnerID string
	// Title — название, заданное владельцем
	Title string
	// Type — тип содержимого
	Type ContentType
	// Content — строка, закодированная в изображении (tracking URL или payload)
	Content string
	// OriginalValue — исходное значение, введённое владельцем
	OriginalValue string
	// Design — настройки оформления
	Design DesignSettings
	// Active — принимает ли QR-код сканирования
	Active bool
	// ScanCount — накопительный счётчик сканирований.
	// Уменьшается только явным сбросом.
	ScanCount int64
	// CreatedAt — время создания
	CreatedAt time.Time
	// UpdatedAt — время последнего обновления
	UpdatedAt time.Time
}
