// analytics.go — GET /api/v1/analytics?qr_id=&days=.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bigkaa/qrtrack/internal/analytics"
	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/service"
)

// AnalyticsReporter — построение аналитического отчёта.
type AnalyticsReporter interface {
	Report(ctx context.Context, ownerID string, q service.ReportQuery) (*analytics.Report, error)
}

// AnalyticsHandler — обработчик аналитики.
type AnalyticsHandler struct {
	reporter AnalyticsReporter
	logger   *slog.Logger
}

// NewAnalyticsHandler создаёт обработчик аналитики.
func NewAnalyticsHandler(reporter AnalyticsReporter, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		reporter: reporter,
		logger:   logger.With(slog.String("component", "analytics_handler")),
	}
}

// Report возвращает отчёт по всем QR-кодам владельца или по одному (qr_id).
func (h *AnalyticsHandler) Report(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var q service.ReportQuery
	params := r.URL.Query()
	if id := params.Get("qr_id"); id != "" {
		q.QRID = &id
	}
	if v := params.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			apierrors.ValidationError(w, "days должен быть целым числом")
			return
		}
		q.Days = days
	}

	report, err := h.reporter.Report(r.Context(), ownerID, q)
	if err != nil {
		handleServiceError(w, h.logger, err, "QR-код не найден")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
