// Пакет model — доменные модели qrtrack.
// ContentType — семантический тип содержимого QR-кода.
package model

import "strings"

// ContentType — тип содержимого QR-кода. Определяет правила форматирования
// payload, действие при сканировании и подпись действия в аналитике.
type ContentType string

// Поддерживаемые типы содержимого.
const (
	ContentURL    ContentType = "url"
	ContentText   ContentType = "text"
	ContentEmail  ContentType = "email"
	ContentPhone  ContentType = "phone"
	ContentSMS    ContentType = "sms"
	ContentWiFi   ContentType = "wifi"
	ContentVCard  ContentType = "vcard"
	ContentEvent  ContentType = "event"
	ContentCrypto ContentType = "crypto"
)

// contentTypeAliases — альтернативные имена типов, встречающиеся в ссылках.
var contentTypeAliases = map[string]ContentType{
	"telefon": ContentPhone,
}

// ParseContentType нормализует строку в ContentType.
// Неизвестные значения сохраняются как есть (в нижнем регистре):
// форматтер пропускает их без изменений, резолвер отдаёт содержимое inline.
func ParseContentType(s string) ContentType {
	v := strings.ToLower(strings.TrimSpace(s))
	if alias, ok := contentTypeAliases[v]; ok {
		return alias
	}
	return ContentType(v)
}

// Known сообщает, входит ли тип в закрытый набор поддерживаемых.
func (t ContentType) Known() bool {
	switch t {
	case ContentURL, ContentText, ContentEmail, ContentPhone, ContentSMS,
		ContentWiFi, ContentVCard, ContentEvent, ContentCrypto:
		return true
	}
	return false
}

// ActionLabel возвращает подпись действия для конечного пользователя.
func (t ContentType) ActionLabel() string {
	switch t {
	case ContentURL:
		return "Open website"
	case ContentText:
		return "Show text"
	case ContentEmail:
		return "Send email"
	case ContentPhone:
		return "Call number"
	case ContentSMS:
		return "Send SMS"
	case ContentWiFi:
		return "Join Wi-Fi"
	case ContentVCard:
		return "Save contact"
	case ContentEvent:
		return "Add to calendar"
	case ContentCrypto:
		return "Send payment"
	default:
		return "Show content"
	}
}
