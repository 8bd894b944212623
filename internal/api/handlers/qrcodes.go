// qrcodes.go — API владельца для QR-кодов.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
	"github.com/bigkaa/qrtrack/internal/api/middleware"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/service"
)

// QRManager — операции над QR-кодами владельца.
type QRManager interface {
	Create(ctx context.Context, ownerID string, in service.CreateQRInput) (*model.QRRecord, error)
	Get(ctx context.Context, ownerID, id string) (*model.QRRecord, error)
	List(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error)
	ResetScanCount(ctx context.Context, ownerID, id string) (*model.QRRecord, error)
	SetActive(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// QRCodeHandler — обработчик /api/v1/qr-codes.
type QRCodeHandler struct {
	qrs    QRManager
	logger *slog.Logger
}

// NewQRCodeHandler создаёт обработчик QR-кодов.
func NewQRCodeHandler(qrs QRManager, logger *slog.Logger) *QRCodeHandler {
	return &QRCodeHandler{
		qrs:    qrs,
		logger: logger.With(slog.String("component", "qr_handler")),
	}
}

const qrNotFoundMsg = "QR-код не найден"

type createQRRequest struct {
	Title  string               `json:"title"`
	Type   string               `json:"type"`
	Value  string               `json:"value"`
	Design model.DesignSettings `json:"design"`
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

type qrCodeResponse struct {
	ID            string               `json:"id"`
	Title         string               `json:"title"`
	Type          string               `json:"type"`
	Content       string               `json:"content"`
	OriginalValue string               `json:"originalValue"`
	Design        model.DesignSettings `json:"design"`
	Active        bool                 `json:"active"`
	ScanCount     int64                `json:"scanCount"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

type qrCodeListResponse struct {
	Items  []qrCodeResponse `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

func toQRCodeResponse(qr *model.QRRecord) qrCodeResponse {
	return qrCodeResponse{
		ID:            qr.ID,
		Title:         qr.Title,
		Type:          string(qr.Type),
		Content:       qr.Content,
		OriginalValue: qr.OriginalValue,
		Design:        qr.Design,
		Active:        qr.Active,
		ScanCount:     qr.ScanCount,
		CreatedAt:     qr.CreatedAt,
		UpdatedAt:     qr.UpdatedAt,
	}
}

// owner возвращает sub владельца или отвечает 401.
func owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	sub := middleware.OwnerFromContext(r.Context())
	if sub == "" {
		apierrors.Unauthorized(w, "Требуется аутентификация")
		return "", false
	}
	return sub, true
}

// Create — POST /api/v1/qr-codes.
func (h *QRCodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var req createQRRequest
	if err := decodeJSON(w, r, &req); err != nil {
		apierrors.ValidationError(w, "Некорректное тело запроса")
		return
	}

	qr, err := h.qrs.Create(r.Context(), ownerID, service.CreateQRInput{
		Title:  req.Title,
		Type:   model.ParseContentType(req.Type),
		Value:  req.Value,
		Design: req.Design,
	})
	if err != nil {
		handleServiceError(w, h.logger, err, qrNotFoundMsg)
		return
	}
	writeJSON(w, http.StatusCreated, toQRCodeResponse(qr))
}

// List — GET /api/v1/qr-codes?limit=&offset=.
func (h *QRCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	limit, offset, err := paginationParams(r)
	if err != nil {
		apierrors.ValidationError(w, err.Error())
		return
	}

	items, total, err := h.qrs.List(r.Context(), ownerID, limit, offset)
	if err != nil {
		handleServiceError(w, h.logger, err, qrNotFoundMsg)
		return
	}

	resp := qrCodeListResponse{
		Items:  make([]qrCodeResponse, 0, len(items)),
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}
	for _, qr := range items {
		resp.Items = append(resp.Items, toQRCodeResponse(qr))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get — GET /api/v1/qr-codes/{id}.
func (h *QRCodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	qr, err := h.qrs.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err, qrNotFoundMsg)
		return
	}
	writeJSON(w, http.StatusOK, toQRCodeResponse(qr))
}

// Delete — DELETE /api/v1/qr-codes/{id}. История сканирований удаляется каскадно.
func (h *QRCodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	if err := h.qrs.Delete(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.logger, err, qrNotFoundMsg)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetScans — POST /api/v1/qr-codes/{id}/reset-scans.
func (h *QRCodeHandler) ResetScans(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}
	qr, err := h.qrs.ResetScanCount(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.logger, err, qrNotFoundMsg)
		return
	}
	writeJSON(w, http.StatusOK, toQRCodeResponse(qr))
}

// SetActive — PUT /api/v1/qr-codes/{id}/active, тело {"active": bool}.
func (h *QRCodeHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := owner(w, r)
	if !ok {
		return
	}

	var req setActiveRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Active == nil {
		apierrors.ValidationError(w, "Ожидается тело {\"active\": true|false}")
		return
	}

	qr, err := h.qrs.SetActive(r.Context(), ownerID, chi.URLParam(r, "id"), *req.Active)
	if err != nil {
		handleServiceError(w, h.logger, err, qrNotFoundMsg)
		return
	}
	writeJSON(w, http.StatusOK, toQRCodeResponse(qr))
}
