// Пакет errors — конструкторы HTTP-ответов с ошибками.
// API владельца: {"error": {"code": "...", "message": "..."}}.
// Публичный tracking endpoint: {"error": "..."}.
package errors

import (
	"encoding/json"
	"net/http"
)

// Коды ошибок API владельца.
const (
	CodeValidationError = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeUnauthorized    = "UNAUTHORIZED"
	CodeConflict        = "CONFLICT"
	CodeInternalError   = "INTERNAL_ERROR"
)

// Сообщения публичного tracking endpoint.
const (
	MessageInvalidTrackingData = "Invalid tracking data"
	MessageInternalServerError = "Internal server error"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type plainErrorBody struct {
	Error string `json:"error"`
}

// WriteError записывает ответ ошибки в формате API владельца.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// WritePlain записывает ответ ошибки в плоском формате {"error": message}.
func WritePlain(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(plainErrorBody{Error: message})
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// NotFound — 404 ресурс не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// Conflict — 409 конфликт.
func Conflict(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusConflict, CodeConflict, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}

// InvalidTrackingData — 400 для tracking endpoint.
func InvalidTrackingData(w http.ResponseWriter) {
	WritePlain(w, http.StatusBadRequest, MessageInvalidTrackingData)
}

// TrackingInternalError — 500 для tracking endpoint.
func TrackingInternalError(w http.ResponseWriter) {
	WritePlain(w, http.StatusInternalServerError, MessageInternalServerError)
}
