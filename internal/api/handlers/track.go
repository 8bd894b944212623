// track.go — публичный endpoint обработки сканирований /api/track.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/api/middleware"
	"github.com/bigkaa/qrtrack/internal/service"
	"github.com/bigkaa/qrtrack/internal/tracking"
)

// ScanResolver — обработка сканирования.
type ScanResolver interface {
	Resolve(ctx context.Context, req service.TrackRequest) (*service.Outcome, error)
}

// TrackHandler — обработчик /api/track.
type TrackHandler struct {
	resolver ScanResolver
	logger   *slog.Logger
}

// NewTrackHandler создаёт обработчик сканирований.
func NewTrackHandler(resolver ScanResolver, logger *slog.Logger) *TrackHandler {
	return &TrackHandler{
		resolver: resolver,
		logger:   logger.With(slog.String("component", "track_handler")),
	}
}

type trackResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Content string `json:"content"`
	ScanID  string `json:"scanId"`
	Tracked bool   `json:"tracked"`
}

// Track обрабатывает GET и POST. Параметры берутся из query; для POST
// form-тело только дополняет параметры, которых нет в query.
func (h *TrackHandler) Track(w http.ResponseWriter, r *http.Request) {
	params, err := trackParams(r)
	if err != nil {
		apierrors.InvalidTrackingData(w)
		return
	}

	country, city := middleware.ClientLocation(r)
	out, err := h.resolver.Resolve(r.Context(), service.TrackRequest{
		Query:     params,
		ClientIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		Country:   country,
		City:      city,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidTrackingData) {
			apierrors.InvalidTrackingData(w)
			return
		}
		h.logger.Error("Ошибка обработки сканирования", slog.String("error", err.Error()))
		apierrors.TrackingInternalError(w)
		return
	}

	if out.RedirectURL != "" {
		http.Redirect(w, r, out.RedirectURL, http.StatusTemporaryRedirect)
		return
	}

	writeJSON(w, http.StatusOK, trackResponse{
		Message: "QR code scanned successfully",
		Type:    string(out.Params.Type),
		Content: out.Content,
		ScanID:  out.Params.ScanID,
		Tracked: out.Tracked,
	})
}

// trackParams собирает tracking-параметры запроса. Значения query имеют приоритет.
func trackParams(r *http.Request) (url.Values, error) {
	params := r.URL.Query()
	if r.Method != http.MethodPost {
		return params, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	for _, key := range []string{tracking.ParamType, tracking.ParamValue, tracking.ParamScanID, tracking.ParamQRID} {
		if params.Get(key) == "" {
			if v := r.PostForm.Get(key); v != "" {
				params.Set(key, v)
			}
		}
	}
	return params, nil
}
