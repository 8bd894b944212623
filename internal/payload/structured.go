package payload

import "strings"

// DefaultWiFiSecurity — тип защиты сети, если не задан.
const DefaultWiFiSecurity = "WPA"

// WiFi — параметры подключения к сети.
type WiFi struct {
	SSID     string
	Password string
	Security string
}

// ParseWiFi разбирает "SSID:PASSWORD:SECURITY".
func ParseWiFi(raw string) WiFi {
	f := splitFields(raw)
	return WiFi{SSID: field(f, 0), Password: field(f, 1), Security: field(f, 2)}
}

// Payload возвращает строку в грамматике WIFI:T:..;S:..;P:..;;
func (w WiFi) Payload() string {
	security := w.Security
	if security == "" {
		security = DefaultWiFiSecurity
	}
	return "WIFI:T:" + escapeWiFi(security) +
		";S:" + escapeWiFi(w.SSID) +
		";P:" + escapeWiFi(w.Password) + ";;"
}

// wifiEscaper экранирует спецсимволы грамматики WIFI.
var wifiEscaper = strings.NewReplacer(
	`\`, `\\`,
	`;`, `\;`,
	`,`, `\,`,
	`:`, `\:`,
	`"`, `\"`,
)

func escapeWiFi(s string) string {
	return wifiEscaper.Replace(s)
}

// Contact — контактная карточка.
type Contact struct {
	Name  string
	Phone string
	Email string
	Org   string
}

// ParseContact разбирает "NAME:PHONE:EMAIL:ORG".
func ParseContact(raw string) Contact {
	f := splitFields(raw)
	return Contact{Name: field(f, 0), Phone: field(f, 1), Email: field(f, 2), Org: field(f, 3)}
}

// Payload возвращает vCard 3.0, по одному полю на строку.
func (c Contact) Payload() string {
	return strings.Join([]string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:" + escapeLine(c.Name),
		"TEL:" + escapeLine(c.Phone),
		"EMAIL:" + escapeLine(c.Email),
		"ORG:" + escapeLine(c.Org),
		"END:VCARD",
	}, "\n")
}

// Event — событие календаря.
type Event struct {
	Title       string
	Start       string
	Location    string
	Description string
}

// ParseEvent разбирает "TITLE:DATETIME:LOCATION:DESCRIPTION".
func ParseEvent(raw string) Event {
	f := splitFields(raw)
	return Event{Title: field(f, 0), Start: field(f, 1), Location: field(f, 2), Description: field(f, 3)}
}

// Payload возвращает блок VEVENT.
func (e Event) Payload() string {
	return strings.Join([]string{
		"BEGIN:VEVENT",
		"SUMMARY:" + escapeLine(e.Title),
		"DTSTART:" + escapeLine(e.Start),
		"LOCATION:" + escapeLine(e.Location),
		"DESCRIPTION:" + escapeLine(e.Description),
		"END:VEVENT",
	}, "\n")
}

// Payment — платёжный URI криптовалюты.
type Payment struct {
	Currency string
	Address  string
	Amount   string
}

// ParsePayment разбирает "CURRENCY:ADDRESS:AMOUNT".
func ParsePayment(raw string) Payment {
	f := splitFields(raw)
	return Payment{Currency: field(f, 0), Address: field(f, 1), Amount: field(f, 2)}
}

// Payload возвращает "<currency>:<address>[?amount=<amount>]".
func (p Payment) Payload() string {
	s := p.Currency + ":" + p.Address
	if p.Amount != "" {
		s += "?amount=" + p.Amount
	}
	return s
}

// lineEscaper не даёт значению поля разорвать построчную структуру записи.
var lineEscaper = strings.NewReplacer("\r\n", `\n`, "\n", `\n`, "\r", `\n`)

func escapeLine(s string) string {
	return lineEscaper.Replace(s)
}
