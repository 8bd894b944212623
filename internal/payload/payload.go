// Пакет payload — форматирование содержимого QR-кода по типу.
// Чистые функции: без ввода-вывода и без ошибок. Некорректный ввод
// даёт payload с пустыми полями, неизвестный тип — исходную строку.
package payload

import (
	"regexp"
	"strings"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Префиксы схем для типов с однострочным payload.
const (
	prefixMailto = "mailto:"
	prefixTel    = "tel:"
	prefixSMS    = "sms:"
	prefixHTTPS  = "https://"
)

// schemeRe — URL уже содержит схему вида "scheme://".
var schemeRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// Format возвращает строку для кодирования в QR-код.
// Для составных типов (wifi, vcard, event, crypto) raw — поля,
// разделённые двоеточием; "\:" внутри поля — литеральное двоеточие.
func Format(t model.ContentType, raw string) string {
	switch t {
	case model.ContentURL:
		return FormatURL(raw)
	case model.ContentEmail:
		return withPrefix(raw, prefixMailto)
	case model.ContentPhone:
		return withPrefix(raw, prefixTel)
	case model.ContentSMS:
		return withPrefix(raw, prefixSMS)
	case model.ContentWiFi:
		return ParseWiFi(raw).Payload()
	case model.ContentVCard:
		return ParseContact(raw).Payload()
	case model.ContentEvent:
		return ParseEvent(raw).Payload()
	case model.ContentCrypto:
		return ParsePayment(raw).Payload()
	default:
		return raw
	}
}

// FormatURL добавляет https://, если у адреса нет схемы.
func FormatURL(raw string) string {
	if raw == "" || HasScheme(raw) {
		return raw
	}
	return prefixHTTPS + raw
}

// HasScheme сообщает, начинается ли строка со схемы вида "scheme://".
func HasScheme(raw string) bool {
	return schemeRe.MatchString(raw)
}

// withPrefix добавляет префикс, если его ещё нет (без учёта регистра).
func withPrefix(raw, prefix string) string {
	if len(raw) >= len(prefix) && strings.EqualFold(raw[:len(prefix)], prefix) {
		return raw
	}
	return prefix + raw
}

// splitFields разбивает строку по двоеточиям с учётом экранирования "\:".
// Остальные обратные слэши сохраняются как есть.
func splitFields(raw string) []string {
	var (
		fields []string
		cur    strings.Builder
	)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '\\' && i+1 < len(raw) && raw[i+1] == ':':
			cur.WriteByte(':')
			i++
		case c == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(fields, cur.String())
}

// field возвращает i-е поле или пустую строку.
func field(fields []string, i int) string {
	if i < len(fields) {
		return fields[i]
	}
	return ""
}
