// Пакет config — загрузка и валидация конфигурации qrtrack
// из переменных окружения (префикс QT_).
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// ServiceName — имя сервиса в health-ответах и метриках зависимостей.
const ServiceName = "qrtrack"

// Config содержит все параметры конфигурации qrtrack.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- HTTP Server Timeouts ---

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration

	// Таймаут graceful shutdown
	ShutdownTimeout time.Duration

	// --- PostgreSQL ---

	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	// --- Tracking ---

	// TrackingBaseURL — публичный адрес endpoint сканирования,
	// на который указывают tracking URL в QR-кодах.
	TrackingBaseURL string
	// ScanPersistTimeout — предел ожидания записи сканирования перед ответом
	ScanPersistTimeout time.Duration

	// --- JWT ---

	// JWTJWKSURL — JWKS endpoint внешнего провайдера идентификации
	JWTJWKSURL string
	// JWTIssuer — ожидаемый issuer (пусто — не проверяется)
	JWTIssuer string
	// JWTLeeway — допустимое отклонение часов
	JWTLeeway time.Duration
	// JWKSCACertPath — опциональный CA-сертификат для JWKS endpoint
	JWKSCACertPath string
	// JWKSClientTimeout — таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// JWKSRefreshInterval — интервал обновления ключей
	JWKSRefreshInterval time.Duration

	// --- Кэш ---

	CacheMaxSize int
	CacheTTL     time.Duration

	// --- Аналитика ---

	// AnalyticsWindowDays — окно аналитики в днях (и его максимум)
	AnalyticsWindowDays int
	// AnalyticsMaxEvents — предел выборки событий на аккаунт
	AnalyticsMaxEvents int
	// AnalyticsLocation — часовой пояс для частей суток и дневного ряда
	AnalyticsLocation *time.Location

	// --- Topologymetrics ---

	DephealthGroup         string
	DephealthCheckInterval time.Duration
	DephealthIsEntry       bool
}

// Load загружает конфигурацию из переменных окружения.
// Возвращает ошибку, если обязательные переменные не заданы
// или значения некорректны.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// QT_PORT — порт HTTP-сервера (по умолчанию 8080)
	cfg.Port, err = getEnvInt("QT_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("QT_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("QT_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	cfg.LogLevel, err = parseLogLevel(getEnvDefault("QT_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("QT_LOG_LEVEL: %w", err)
	}

	cfg.LogFormat = getEnvDefault("QT_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("QT_LOG_FORMAT: недопустимый формат %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- HTTP Server Timeouts ---

	cfg.HTTPReadTimeout, err = getEnvDuration("QT_HTTP_READ_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QT_HTTP_READ_TIMEOUT: %w", err)
	}
	cfg.HTTPWriteTimeout, err = getEnvDuration("QT_HTTP_WRITE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QT_HTTP_WRITE_TIMEOUT: %w", err)
	}
	cfg.HTTPIdleTimeout, err = getEnvDuration("QT_HTTP_IDLE_TIMEOUT", 120*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QT_HTTP_IDLE_TIMEOUT: %w", err)
	}
	cfg.ShutdownTimeout, err = getEnvDuration("QT_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QT_SHUTDOWN_TIMEOUT: %w", err)
	}

	// --- PostgreSQL ---

	if cfg.DBHost, err = getEnvRequired("QT_DB_HOST"); err != nil {
		return nil, err
	}
	cfg.DBPort, err = getEnvInt("QT_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("QT_DB_PORT: %w", err)
	}
	if cfg.DBName, err = getEnvRequired("QT_DB_NAME"); err != nil {
		return nil, err
	}
	if cfg.DBUser, err = getEnvRequired("QT_DB_USER"); err != nil {
		return nil, err
	}
	if cfg.DBPassword, err = getEnvRequired("QT_DB_PASSWORD"); err != nil {
		return nil, err
	}
	cfg.DBSSLMode = getEnvDefault("QT_DB_SSL_MODE", "disable")

	// --- Tracking ---

	// QT_TRACKING_BASE_URL — обязательный, абсолютный http(s) URL
	if cfg.TrackingBaseURL, err = getEnvRequired("QT_TRACKING_BASE_URL"); err != nil {
		return nil, err
	}
	if u, perr := url.Parse(cfg.TrackingBaseURL); perr != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("QT_TRACKING_BASE_URL: ожидается абсолютный http(s) URL, получено %q", cfg.TrackingBaseURL)
	}
	cfg.ScanPersistTimeout, err = getEnvDuration("QT_SCAN_PERSIST_TIMEOUT", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("QT_SCAN_PERSIST_TIMEOUT: %w", err)
	}
	if cfg.ScanPersistTimeout <= 0 {
		return nil, fmt.Errorf("QT_SCAN_PERSIST_TIMEOUT: значение должно быть > 0")
	}

	// --- JWT ---

	if cfg.JWTJWKSURL, err = getEnvRequired("QT_JWT_JWKS_URL"); err != nil {
		return nil, err
	}
	cfg.JWTIssuer = getEnvDefault("QT_JWT_ISSUER", "")
	cfg.JWKSCACertPath = getEnvDefault("QT_JWKS_CA_CERT", "")
	cfg.JWTLeeway, err = getEnvDuration("QT_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QT_JWT_LEEWAY: %w", err)
	}
	cfg.JWKSClientTimeout, err = getEnvDuration("QT_JWKS_CLIENT_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QT_JWKS_CLIENT_TIMEOUT: %w", err)
	}
	cfg.JWKSRefreshInterval, err = getEnvDuration("QT_JWKS_REFRESH_INTERVAL", 15*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("QT_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// --- Кэш ---

	cfg.CacheMaxSize, err = getEnvInt("QT_CACHE_MAX_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("QT_CACHE_MAX_SIZE: %w", err)
	}
	if cfg.CacheMaxSize < 1 {
		return nil, fmt.Errorf("QT_CACHE_MAX_SIZE: значение должно быть >= 1")
	}
	cfg.CacheTTL, err = getEnvDuration("QT_CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("QT_CACHE_TTL: %w", err)
	}

	// --- Аналитика ---

	cfg.AnalyticsWindowDays, err = getEnvInt("QT_ANALYTICS_WINDOW_DAYS", 30)
	if err != nil {
		return nil, fmt.Errorf("QT_ANALYTICS_WINDOW_DAYS: %w", err)
	}
	if cfg.AnalyticsWindowDays < 1 || cfg.AnalyticsWindowDays > 366 {
		return nil, fmt.Errorf("QT_ANALYTICS_WINDOW_DAYS: значение %d вне диапазона 1-366", cfg.AnalyticsWindowDays)
	}
	cfg.AnalyticsMaxEvents, err = getEnvInt("QT_ANALYTICS_MAX_EVENTS", 50)
	if err != nil {
		return nil, fmt.Errorf("QT_ANALYTICS_MAX_EVENTS: %w", err)
	}
	if cfg.AnalyticsMaxEvents < 1 {
		return nil, fmt.Errorf("QT_ANALYTICS_MAX_EVENTS: значение должно быть >= 1")
	}
	tz := getEnvDefault("QT_ANALYTICS_TIMEZONE", "UTC")
	cfg.AnalyticsLocation, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("QT_ANALYTICS_TIMEZONE: неизвестный часовой пояс %q", tz)
	}

	// --- Topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("QT_DEPHEALTH_GROUP", "qrtrack")
	cfg.DephealthCheckInterval, err = getEnvDuration("QT_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("QT_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}
	cfg.DephealthIsEntry, err = getEnvBool("DEPHEALTH_ISENTRY", false)
	if err != nil {
		return nil, fmt.Errorf("DEPHEALTH_ISENTRY: %w", err)
	}

	return cfg, nil
}

// DatabaseDSN возвращает строку подключения к PostgreSQL для pgxpool.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword, c.DBSSLMode,
	)
}

// DatabaseURL возвращает URL подключения к PostgreSQL с указанной схемой
// ("postgres" — для метрик зависимостей, "pgx5" — для golang-migrate).
func (c *Config) DatabaseURL(scheme string) string {
	u := url.URL{
		Scheme:   scheme,
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     fmt.Sprintf("%s:%d", c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	return d, nil
}

func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q (допустимые: true, false, 1, 0)", val)
	}
	return b, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
