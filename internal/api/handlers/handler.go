// handler.go — сборка обработчиков и регистрация маршрутов на chi.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/service"
)

// APIHandler объединяет health, tracking и обработчики API владельца.
type APIHandler struct {
	health    *HealthHandler
	track     *TrackHandler
	qrCodes   *QRCodeHandler
	analytics *AnalyticsHandler
	payloads  *PayloadHandler
	logger    *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	track *TrackHandler,
	qrCodes *QRCodeHandler,
	analytics *AnalyticsHandler,
	payloads *PayloadHandler,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:    health,
		track:     track,
		qrCodes:   qrCodes,
		analytics: analytics,
		payloads:  payloads,
		logger:    logger.With(slog.String("component", "api_handler")),
	}
}

// Mount регистрирует маршруты. Health, metrics и /api/track публичные,
// /api/v1 закрыт middleware auth (nil — без аутентификации).
func (h *APIHandler) Mount(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Get("/health/live", h.health.HealthLive)
	r.Get("/health/ready", h.health.HealthReady)
	r.Get("/metrics", h.health.GetMetrics)

	r.Get("/api/track", h.track.Track)
	r.Post("/api/track", h.track.Track)

	r.Route("/api/v1", func(r chi.Router) {
		if auth != nil {
			r.Use(auth)
		}

		r.Post("/qr-codes", h.qrCodes.Create)
		r.Get("/qr-codes", h.qrCodes.List)
		r.Get("/qr-codes/{id}", h.qrCodes.Get)
		r.Delete("/qr-codes/{id}", h.qrCodes.Delete)
		r.Post("/qr-codes/{id}/reset-scans", h.qrCodes.ResetScans)
		r.Put("/qr-codes/{id}/active", h.qrCodes.SetActive)

		r.Get("/analytics", h.analytics.Report)
		r.Post("/payloads/format", h.payloads.Format)
	})
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// maxBodyBytes — предел тела JSON-запроса API владельца.
const maxBodyBytes = 1 << 20

// decodeJSON читает тело запроса. Неизвестные поля — ошибка.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// handleServiceError маппит ошибки сервисного слоя в ответы API владельца.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		apierrors.NotFound(w, notFoundMsg)
	case errors.Is(err, service.ErrValidation):
		apierrors.ValidationError(w, err.Error())
	case errors.Is(err, service.ErrConflict):
		apierrors.Conflict(w, err.Error())
	default:
		logger.Error("Внутренняя ошибка", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
	}
}

// Параметры пагинации списка QR-кодов.
const (
	defaultLimit = 50
	maxLimit     = 200
)

// paginationParams разбирает limit и offset. Некорректные значения — ошибка.
func paginationParams(r *http.Request) (limit, offset int, err error) {
	limit, offset = defaultLimit, 0
	q := r.URL.Query()

	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 {
			return 0, 0, errors.New("limit должен быть положительным числом")
		}
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset должен быть неотрицательным числом")
		}
	}
	return limit, offset, nil
}
