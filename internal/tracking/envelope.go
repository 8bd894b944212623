// Пакет tracking — обёртка payload в tracking URL и разбор параметров сканирования.
// Tracking URL указывает на публичный endpoint сканирования и несёт четыре
// параметра: type, value, scan_id, qr_id.
package tracking

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Имена query-параметров tracking URL.
const (
	ParamType   = "type"
	ParamValue  = "value"
	ParamScanID = "scan_id"
	ParamQRID   = "qr_id"
)

// ErrMissingParams — в запросе отсутствует один из обязательных параметров.
var ErrMissingParams = errors.New("отсутствуют обязательные параметры tracking URL")

// Target — результат построения tracking URL.
type Target struct {
	// URL — ссылка, кодируемая в QR-код
	URL string
	// ScanID — сгенерированный идентификатор сканирования
	ScanID string
}

// Envelope строит tracking URL относительно базового адреса сервиса.
// Базовый адрес задаётся конфигурацией (QT_TRACKING_BASE_URL).
type Envelope struct {
	base  *url.URL
	newID func() string
}

// Option — опция конструктора Envelope.
type Option func(*Envelope)

// WithIDGenerator подменяет генератор scan_id (используется в тестах).
func WithIDGenerator(fn func() string) Option {
	return func(e *Envelope) {
		e.newID = fn
	}
}

// New создаёт Envelope. baseURL — абсолютный http(s) адрес endpoint сканирования,
// например https://qr.example.com/api/track.
func New(baseURL string, opts ...Option) (*Envelope, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("некорректный базовый URL %q: %w", baseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("базовый URL %q должен быть абсолютным http(s) адресом", baseURL)
	}
	u.RawQuery = ""
	u.Fragment = ""

	e := &Envelope{base: u, newID: NewScanID}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// NewScanID возвращает идентификатор сканирования: UUIDv7
// (миллисекундная метка времени + случайные биты).
func NewScanID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Build строит tracking URL для QR-кода. В value передаётся исходное
// значение владельца, а не отформатированный payload: резолвер
// формирует действие сам.
func (e *Envelope) Build(qrID string, t model.ContentType, originalValue string) Target {
	scanID := e.newID()

	q := url.Values{}
	q.Set(ParamType, string(t))
	q.Set(ParamValue, originalValue)
	q.Set(ParamScanID, scanID)
	q.Set(ParamQRID, qrID)

	u := *e.base
	u.RawQuery = q.Encode()
	return Target{URL: u.String(), ScanID: scanID}
}

// EncodeContent возвращает строку для кодирования в изображение.
// При включённой аналитике — tracking URL и scan_id, иначе —
// отформатированный payload и пустой scan_id.
func (e *Envelope) EncodeContent(qrID string, t model.ContentType, originalValue, formatted string, design model.DesignSettings) (content, scanID string) {
	if !design.Tracked() {
		return formatted, ""
	}
	target := e.Build(qrID, t, originalValue)
	return target.URL, target.ScanID
}

// Params — разобранные параметры tracking URL.
type Params struct {
	Type   model.ContentType
	Value  string
	ScanID string
	QRID   string
}

// ParseQuery извлекает параметры из query-строки.
// Любой отсутствующий или пустой параметр — ErrMissingParams.
func ParseQuery(q url.Values) (Params, error) {
	p := Params{
		Type:   model.ParseContentType(q.Get(ParamType)),
		Value:  q.Get(ParamValue),
		ScanID: q.Get(ParamScanID),
		QRID:   q.Get(ParamQRID),
	}

	var missing []string
	if p.Type == "" {
		missing = append(missing, ParamType)
	}
	if p.Value == "" {
		missing = append(missing, ParamValue)
	}
	if p.ScanID == "" {
		missing = append(missing, ParamScanID)
	}
	if p.QRID == "" {
		missing = append(missing, ParamQRID)
	}
	if len(missing) > 0 {
		return Params{}, fmt.Errorf("%w: %s", ErrMissingParams, strings.Join(missing, ", "))
	}
	return p, nil
}
