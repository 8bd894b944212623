// Пакет service — бизнес-логика qrtrack.
// CacheService — LRU-кэш записей QR-кодов с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// Prometheus-метрики кэша.
var (
	cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qt_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш QR-кодов.",
	})
	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qt_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша QR-кодов.",
	})
)

// CacheService — per-instance LRU-кэш QR-кодов с автоматическим TTL.
// Используется на горячем пути сканирования для проверки статуса кода.
type CacheService struct {
	cache *expirable.LRU[string, *model.QRRecord]
}

// NewCacheService создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCacheService(maxSize int, ttl time.Duration) *CacheService {
	return &CacheService{cache: expirable.NewLRU[string, *model.QRRecord](maxSize, nil, ttl)}
}

// Get возвращает QR-код из кэша. Обновляет метрики hit/miss.
func (c *CacheService) Get(id string) (*model.QRRecord, bool) {
	val, ok := c.cache.Get(id)
	if ok {
		cacheHitsTotal.Inc()
		return val, true
	}
	cacheMissesTotal.Inc()
	return nil, false
}

// Set добавляет или обновляет запись.
func (c *CacheService) Set(id string, record *model.QRRecord) {
	c.cache.Add(id, record)
}

// Delete инвалидирует запись.
func (c *CacheService) Delete(id string) {
	c.cache.Remove(id)
}
