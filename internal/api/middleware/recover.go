// recover.go — перехват паники в обработчиках.
package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	apierrors "github.com/bigkaa/qrtrack/internal/api/errors"
)

// TrackPath — публичный путь обработки сканирований.
const TrackPath = "/api/track"

// Recoverer перехватывает панику и отвечает 500. Для tracking endpoint
// используется плоский формат ошибки, для остальных — формат API владельца.
func Recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("Паника в обработчике",
					slog.Any("panic", rec),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())),
				)

				if strings.HasPrefix(r.URL.Path, TrackPath) {
					apierrors.TrackingInternalError(w)
					return
				}
				apierrors.InternalError(w, "Внутренняя ошибка сервера")
			}()

			next.ServeHTTP(w, r)
		})
	}
}
