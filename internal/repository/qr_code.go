package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/qrtrack/internal/domain/model"
)

// qrColumns — столбцы таблицы qr_codes для SELECT/RETURNING.
const qrColumns = `id, owner_id, title, content_type, content, original_value,
	design_settings, is_active, scan_count, created_at, updated_at`

// QRCodeRepository — доступ к таблице qr_codes.
type QRCodeRepository interface {
	// Create сохраняет новый QR-код. CreatedAt/UpdatedAt заполняются из БД.
	Create(ctx context.Context, qr *model.QRRecord) error
	// GetByID возвращает QR-код по UUID или ErrNotFound.
	GetByID(ctx context.Context, id string) (*model.QRRecord, error)
	// ListByOwner возвращает QR-коды владельца (новые первыми) и их общее количество.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error)
	// IncrementScanCount увеличивает счётчик сканирований на 1.
	IncrementScanCount(ctx context.Context, id string) error
	// ResetScanCount обнуляет счётчик QR-кода владельца.
	ResetScanCount(ctx context.Context, ownerID, id string) (*model.QRRecord, error)
	// SetActive включает или выключает приём сканирований.
	SetActive(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error)
	// Delete удаляет QR-код владельца вместе с его событиями.
	Delete(ctx context.Context, ownerID, id string) error
}

type qrCodeRepo struct {
	db DBTX
}

// NewQRCodeRepository создаёт репозиторий QR-кодов.
func NewQRCodeRepository(db DBTX) QRCodeRepository {
	return &qrCodeRepo{db: db}
}

func (r *qrCodeRepo) Create(ctx context.Context, qr *model.QRRecord) error {
	design, err := json.Marshal(qr.Design)
	if err != nil {
		return fmt.Errorf("ошибка сериализации design_settings: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`INSERT INTO qr_codes (id, owner_id, title, content_type, content, original_value,
			design_settings, is_active, scan_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8, $9)
		RETURNING created_at, updated_at`,
		qr.ID, qr.OwnerID, qr.Title, string(qr.Type), qr.Content, qr.OriginalValue,
		string(design), qr.Active, qr.ScanCount,
	).Scan(&qr.CreatedAt, &qr.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("QR-код %s: %w", qr.ID, ErrConflict)
		}
		return fmt.Errorf("ошибка создания QR-кода: %w", err)
	}
	return nil
}

func (r *qrCodeRepo) GetByID(ctx context.Context, id string) (*model.QRRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM qr_codes WHERE id = $1`, qrColumns)
	qr, err := scanQR(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения QR-кода: %w", err)
	}
	return qr, nil
}

func (r *qrCodeRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM qr_codes WHERE owner_id = $1 ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`,
		qrColumns,
	)
	rows, err := r.db.Query(ctx, query, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("ошибка получения списка QR-кодов: %w", err)
	}
	defer rows.Close()

	var result []*model.QRRecord
	for rows.Next() {
		qr, err := scanQR(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("ошибка сканирования QR-кода: %w", err)
		}
		result = append(result, qr)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("ошибка итерации результатов: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM qr_codes WHERE owner_id = $1`, ownerID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("ошибка подсчёта QR-кодов: %w", err)
	}

	return result, total, nil
}

func (r *qrCodeRepo) IncrementScanCount(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE qr_codes SET scan_count = scan_count + 1 WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("ошибка увеличения счётчика сканирований: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *qrCodeRepo) ResetScanCount(ctx context.Context, ownerID, id string) (*model.QRRecord, error) {
	query := fmt.Sprintf(
		`UPDATE qr_codes SET scan_count = 0, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 RETURNING %s`, qrColumns)
	qr, err := scanQR(r.db.QueryRow(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка сброса счётчика сканирований: %w", err)
	}
	return qr, nil
}

func (r *qrCodeRepo) SetActive(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error) {
	query := fmt.Sprintf(
		`UPDATE qr_codes SET is_active = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 RETURNING %s`, qrColumns)
	qr, err := scanQR(r.db.QueryRow(ctx, query, id, ownerID, active))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка обновления статуса QR-кода: %w", err)
	}
	return qr, nil
}

func (r *qrCodeRepo) Delete(ctx context.Context, ownerID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM qr_codes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return fmt.Errorf("ошибка удаления QR-кода: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// scanQR читает строку qr_codes в порядке qrColumns.
func scanQR(row pgx.Row) (*model.QRRecord, error) {
	var (
		qr       model.QRRecord
		typ      string
		rawStyle []byte
	)
	if err := row.Scan(
		&qr.ID, &qr.OwnerID, &qr.Title, &typ, &qr.Content, &qr.OriginalValue,
		&rawStyle, &qr.Active, &qr.ScanCount, &qr.CreatedAt, &qr.UpdatedAt,
	); err != nil {
		return nil, err
	}
	qr.Type = model.ContentType(typ)
	if len(rawStyle) > 0 {
		if err := json.Unmarshal(rawStyle, &qr.Design); err != nil {
			return nil, fmt.Errorf("ошибка разбора design_settings: %w", err)
		}
	}
	return &qr, nil
}
