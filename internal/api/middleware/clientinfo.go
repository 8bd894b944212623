// clientinfo.go — извлечение IP и геолокации клиента из заголовков edge-прокси.
package middleware

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// Заголовки геолокации, которые проставляют edge-прокси (Cloudflare, Vercel).
const (
	HeaderCFCountry     = "CF-IPCountry"
	HeaderVercelCountry = "X-Vercel-IP-Country"
	HeaderVercelCity    = "X-Vercel-IP-City"
)

// ClientIP возвращает IP клиента: первый адрес X-Forwarded-For,
// затем X-Real-IP, затем адрес соединения. Пустая строка, если ничего нет.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if r.RemoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientLocation возвращает страну и город клиента из заголовков edge-прокси.
// Cloudflare помечает неизвестную страну как "XX" — такое значение отбрасывается.
func ClientLocation(r *http.Request) (country, city string) {
	country = strings.TrimSpace(r.Header.Get(HeaderCFCountry))
	if strings.EqualFold(country, "XX") {
		country = ""
	}
	if country == "" {
		country = strings.TrimSpace(r.Header.Get(HeaderVercelCountry))
	}

	// Vercel кодирует город в URL-формате.
	city = strings.TrimSpace(r.Header.Get(HeaderVercelCity))
	if decoded, err := url.QueryUnescape(city); err == nil {
		city = decoded
	}
	return country, city
}
