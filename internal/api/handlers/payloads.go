// payloads.go — предпросмотр содержимого QR-кода без сохранения.
package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/payload"
)

// PayloadHandler — обработчик /api/v1/payloads/format.
type PayloadHandler struct {
	logger *slog.Logger
}

// NewPayloadHandler создаёт обработчик предпросмотра.
func NewPayloadHandler(logger *slog.Logger) *PayloadHandler {
	return &PayloadHandler{logger: logger.With(slog.String("component", "payload_handler"))}
}

type formatRequest struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type formatResponse struct {
	Type        string `json:"type"`
	Payload     string `json:"payload"`
	ActionLabel string `json:"actionLabel"`
}

// Format возвращает строку, которая была бы закодирована без tracking-обёртки.
func (h *PayloadHandler) Format(w http.ResponseWriter, r *http.Request) {
	var req formatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		apierrors.ValidationError(w, "Пустое значение")
		return
	}

	t := model.ParseContentType(req.Type)
	writeJSON(w, http.StatusOK, formatResponse{
		Type:        string(t),
		Payload:     payload.Format(t, req.Value),
		ActionLabel: t.ActionLabel(),
	})
}
