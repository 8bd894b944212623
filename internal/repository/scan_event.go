package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

const scanColumns = `se.id, se.qr_code_id, se.scan_id, se.ip_address, se.user_agent,
	se.country, se.city, se.latitude, se.longitude, se.is_blocked, se.block_reason, se.scanned_at`

// ScanWindow — параметры выборки событий для аналитики.
type ScanWindow struct {
	// OwnerID — владелец QR-кодов (обязателен)
	OwnerID string
	// QRCodeID — фильтр по одному QR-коду (nil — все коды владельца)
	QRCodeID *string
	// Since — нижняя граница scanned_at
	Since time.Time
	// Limit — максимум событий (самые свежие)
	Limit int
}

// ScanEventRepository — доступ к таблице scan_events.
// События только добавляются.
type ScanEventRepository interface {
	// Insert сохраняет событие сканирования.
	Insert(ctx context.Context, ev *model.ScanEvent) error
	// ListWindow возвращает события окна, новые первыми.
	ListWindow(ctx context.Context, w ScanWindow) ([]model.ScanEvent, error)
	// CountryCounts возвращает число событий окна по странам. Limit не применяется.
	CountryCounts(ctx context.Context, w ScanWindow) (map[string]int, error)
}

type scanEventRepo struct {
	db DBTX
}

// NewScanEventRepository создаёт репозиторий событий сканирования.
func NewScanEventRepository(db DBTX) ScanEventRepository {
	return &scanEventRepo{db: db}
}

func (r *scanEventRepo) Insert(ctx context.Context, ev *model.ScanEvent) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO scan_events (id, qr_code_id, scan_id, ip_address, user_agent,
			country, city, latitude, longitude, is_blocked, block_reason, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		ev.ID, ev.QRCodeID, ev.ScanID, ev.IP, ev.UserAgent,
		ev.Country, ev.City, ev.Latitude, ev.Longitude, ev.Blocked, ev.BlockReason, ev.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("ошибка записи события сканирования: %w", err)
	}
	return nil
}

// windowWhere строит условие WHERE окна и его аргументы.
func windowWhere(w ScanWindow) (string, []any) {
	conds := []string{"q.owner_id = $1", "se.scanned_at >= $2"}
	args := []any{w.OwnerID, w.Since}
	if w.QRCodeID != nil {
		args = append(args, *w.QRCodeID)
		conds = append(conds, fmt.Sprintf("se.qr_code_id = $%d", len(args)))
	}
	return strings.Join(conds, " AND "), args
}

func (r *scanEventRepo) ListWindow(ctx context.Context, w ScanWindow) ([]model.ScanEvent, error) {
	where, args := windowWhere(w)
	args = append(args, w.Limit)

	query := fmt.Sprintf(
		`SELECT %s FROM scan_events se
		JOIN qr_codes q ON q.id = se.qr_code_id
		WHERE %s
		ORDER BY se.scanned_at DESC
		LIMIT $%d`,
		scanColumns, where, len(args),
	)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ошибка выборки событий сканирования: %w", err)
	}
	defer rows.Close()

	result := []model.ScanEvent{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("ошибка сканирования события: %w", err)
		}
		result = append(result, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return result, nil
}

func (r *scanEventRepo) CountryCounts(ctx context.Context, w ScanWindow) (map[string]int, error) {
	where, args := windowWhere(w)
	rows, err := r.db.Query(ctx,
		`SELECT se.country, COUNT(*) FROM scan_events se
		JOIN qr_codes q ON q.id = se.qr_code_id
		WHERE `+where+`
		GROUP BY se.country`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка подсчёта событий по странам: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			country string
			n       int
		)
		if err := rows.Scan(&country, &n); err != nil {
			return nil, fmt.Errorf("ошибка чтения счётчика страны: %w", err)
		}
		counts[country] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации результатов: %w", err)
	}
	return counts, nil
}

func scanEvent(row pgx.Row) (model.ScanEvent, error) {
	var ev model.ScanEvent
	err := row.Scan(
		&ev.ID, &ev.QRCodeID, &ev.ScanID, &ev.IP, &ev.UserAgent,
		&ev.Country, &ev.City, &ev.Latitude, &ev.Longitude, &ev.Blocked, &ev.BlockReason, &ev.ScannedAt,
	)
	return ev, err
}

// ScanRecorder записывает событие и увеличивает счётчик QR-кода в одной транзакции.
type ScanRecorder struct {
	tx *TxRunner
}

// NewScanRecorder создаёт ScanRecorder.
func NewScanRecorder(tx *TxRunner) *ScanRecorder {
	return &ScanRecorder{tx: tx}
}

// RecordScan сохраняет событие и увеличивает scan_count.
// Неизвестный или некорректный qr_code_id — ErrNotFound, ничего не записывается.
func (s *ScanRecorder) RecordScan(ctx context.Context, ev *model.ScanEvent) error {
	if _, err := uuid.Parse(ev.QRCodeID); err != nil {
		return ErrNotFound
	}
	return s.tx.RunInTx(ctx, func(tx pgx.Tx) error {
		if err := NewQRCodeRepository(tx).IncrementScanCount(ctx, ev.QRCodeID); err != nil {
			return err
		}
		return NewScanEventRepository(tx).Insert(ctx, ev)
	})
}
