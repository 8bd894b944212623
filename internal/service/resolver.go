// resolver.go — обработка сканирования tracking URL:
// разбор → валидация → запись события → выбор действия.
//
// Запись события — best-effort: ошибка хранилища логируется и
// учитывается в метриках, но не влияет на ответ пользователю.
// Отказ возможен только для структурно некорректной ссылки.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/payload"
	"github.com/bigkaa/qrtrack/internal/repository"
	"github.com/bigkaa/qrtrack/internal/tracking"
)

// Метрики сканирований.
var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qt_scans_total",
			Help: "Общее количество обработанных сканирований.",
		},
		[]string{"type", "outcome"},
	)
	scanPersistFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "qt_scan_persist_failures_total",
			Help: "Количество сканирований, которые не удалось записать.",
		},
		[]string{"stage"},
	)
)

// BlockReasonInactive — причина блокировки сканирования выключенного QR-кода.
const BlockReasonInactive = "qr_inactive"

// ScanStore — запись события сканирования вместе с увеличением счётчика.
type ScanStore interface {
	RecordScan(ctx context.Context, ev *model.ScanEvent) error
}

// QRLookup — чтение QR-кода по id без проверки владельца.
type QRLookup interface {
	Lookup(ctx context.Context, id string) (*model.QRRecord, error)
}

// TrackRequest — входящий запрос сканирования.
type TrackRequest struct {
	Query     url.Values
	ClientIP  string
	UserAgent string
	Country   string
	City      string
}

// Outcome — результат обработки сканирования.
// Если RedirectURL не пуст — клиент перенаправляется, иначе
// содержимое возвращается inline.
type Outcome struct {
	Params      tracking.Params
	RedirectURL string
	Content     string
	// Tracked — событие сканирования записано.
	Tracked bool
}

// ScanResolver — сервис обработки сканирований.
type ScanResolver struct {
	store          ScanStore
	lookup         QRLookup
	persistTimeout time.Duration
	logger         *slog.Logger
	now            func() time.Time
}

// NewScanResolver создаёт ScanResolver.
// persistTimeout — сколько ответ ждёт записи сканирования.
func NewScanResolver(store ScanStore, lookup QRLookup, persistTimeout time.Duration, logger *slog.Logger) *ScanResolver {
	return &ScanResolver{
		store:          store,
		lookup:         lookup,
		persistTimeout: persistTimeout,
		logger:         logger.With(slog.String("component", "scan_resolver")),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Resolve обрабатывает сканирование. Единственная возвращаемая ошибка —
// ErrInvalidTrackingData; в этом случае ничего не записывается.
func (s *ScanResolver) Resolve(ctx context.Context, req TrackRequest) (*Outcome, error) {
	params, err := tracking.ParseQuery(req.Query)
	if err != nil {
		s.logger.Debug("Некорректная tracking-ссылка", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrInvalidTrackingData, err)
	}

	out := &Outcome{Params: params}
	out.Tracked = s.persist(ctx, params, req)

	if target, ok := Dispatch(params.Type, params.Value); ok {
		out.RedirectURL = target
		scansTotal.WithLabelValues(typeLabel(params.Type), "redirect").Inc()
	} else {
		out.Content = params.Value
		scansTotal.WithLabelValues(typeLabel(params.Type), "inline").Inc()
	}
	return out, nil
}

// persist записывает событие не дольше persistTimeout. Возвращает true,
// если запись подтверждена до истечения срока.
func (s *ScanResolver) persist(ctx context.Context, p tracking.Params, req TrackRequest) bool {
	log := s.logger.With(slog.String("qr_id", p.QRID), slog.String("scan_id", p.ScanID))

	ctx, cancel := context.WithTimeout(ctx, s.persistTimeout)
	defer cancel()

	done := make(chan bool, 1)
	go func() { done <- s.record(ctx, p, req, log) }()

	select {
	case ok := <-done:
		return ok
	case <-ctx.Done():
		scanPersistFailuresTotal.WithLabelValues("timeout").Inc()
		log.Warn("Сканирование не записано: истёк срок ожидания",
			slog.Duration("timeout", s.persistTimeout),
			slog.String("error", ctx.Err().Error()),
		)
		return false
	}
}

// record проверяет статус QR-кода и сохраняет событие.
func (s *ScanResolver) record(ctx context.Context, p tracking.Params, req TrackRequest, log *slog.Logger) bool {

	ev := &model.ScanEvent{
		ID:        uuid.NewString(),
		QRCodeID:  p.QRID,
		ScanID:    p.ScanID,
		IP:        orUnknown(req.ClientIP),
		UserAgent: req.UserAgent,
		Country:   orUnknown(req.Country),
		City:      orUnknown(req.City),
		ScannedAt: s.now(),
	}

	if s.lookup != nil {
		qr, err := s.lookup.Lookup(ctx, p.QRID)
		switch {
		case err == nil && !qr.Active:
			reason := BlockReasonInactive
			ev.Blocked = true
			ev.BlockReason = &reason
		case err != nil && !errors.Is(err, ErrNotFound):
			log.Warn("Не удалось проверить статус QR-кода", slog.String("error", err.Error()))
		}
	}

	if err := s.store.RecordScan(ctx, ev); err != nil {
		stage := "store"
		if errors.Is(err, repository.ErrNotFound) {
			stage = "unknown_qr"
		}
		scanPersistFailuresTotal.WithLabelValues(stage).Inc()
		log.Warn("Сканирование не записано", slog.String("error", err.Error()))
		return false
	}

	log.Debug("Сканирование записано",
		slog.String("type", string(p.Type)),
		slog.Bool("blocked", ev.Blocked),
	)
	return true
}

// Dispatch возвращает адрес перенаправления для типов с действием.
// url — только http(s), без схемы добавляется https://;
// phone — tel:, email — mailto:, sms — sms:. Остальные типы — inline.
func Dispatch(t model.ContentType, value string) (string, bool) {
	switch t {
	case model.ContentURL:
		target := payload.FormatURL(value)
		u, err := url.Parse(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return "", false
		}
		return target, true
	case model.ContentPhone, model.ContentEmail, model.ContentSMS:
		return payload.Format(t, value), true
	default:
		return "", false
	}
}

func typeLabel(t model.ContentType) string {
	if t.Known() {
		return string(t)
	}
	return "other"
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return model.UnknownLocation
	}
	return s
}
