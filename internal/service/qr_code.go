// qr_code.go — управление QR-кодами владельца: создание с форматированием
// payload и tracking-обёрткой, чтение, сброс счётчика, включение/выключение.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/payload"
	"github.com/bigkaa/qrtrack/internal/repository"
	"github.com/bigkaa/qrtrack/internal/tracking"
)

const maxTitleLength = 255

// CreateQRInput — параметры создания QR-кода.
type CreateQRInput struct {
	Title  string
	Type   model.ContentType
	Value  string
	Design model.DesignSettings
}

// QRService — сервис QR-кодов.
type QRService struct {
	repo     repository.QRCodeRepository
	cache    *CacheService
	envelope *tracking.Envelope
	logger   *slog.Logger
}

// NewQRService создаёт сервис QR-кодов.
func NewQRService(
	repo repository.QRCodeRepository,
	cache *CacheService,
	envelope *tracking.Envelope,
	logger *slog.Logger,
) *QRService {
	return &QRService{
		repo:     repo,
		cache:    cache,
		envelope: envelope,
		logger:   logger.With(slog.String("component", "qr_service")),
	}
}

// Create форматирует payload, оборачивает его в tracking URL
// (если аналитика не отключена) и сохраняет QR-код.
func (s *QRService) Create(ctx context.Context, ownerID string, in CreateQRInput) (*model.QRRecord, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("%w: не задан владелец", ErrValidation)
	}
	if !in.Type.Known() {
		return nil, fmt.Errorf("%w: неподдерживаемый тип содержимого %q", ErrValidation, in.Type)
	}
	if strings.TrimSpace(in.Value) == "" {
		return nil, fmt.Errorf("%w: пустое значение", ErrValidation)
	}
	if utf8.RuneCountInString(in.Title) > maxTitleLength {
		return nil, fmt.Errorf("%w: название длиннее %d символов", ErrValidation, maxTitleLength)
	}

	id := uuid.NewString()
	formatted := payload.Format(in.Type, in.Value)
	content, scanID := s.envelope.EncodeContent(id, in.Type, in.Value, formatted, in.Design)

	qr := &model.QRRecord{
		ID:            id,
		OwnerID:       ownerID,
		Title:         in.Title,
		Type:          in.Type,
		Content:       content,
		OriginalValue: in.Value,
		Design:        in.Design,
		Active:        true,
	}
	if err := s.repo.Create(ctx, qr); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%w: QR-код '%s' уже существует", ErrConflict, id)
		}
		return nil, fmt.Errorf("создание QR-кода: %w", err)
	}
	s.cache.Set(qr.ID, qr)

	s.logger.Info("QR-код создан",
		slog.String("qr_id", qr.ID),
		slog.String("owner_id", ownerID),
		slog.String("type", string(qr.Type)),
		slog.Bool("tracked", in.Design.Tracked()),
		slog.String("scan_id", scanID),
	)
	return qr, nil
}

// Get возвращает QR-код владельца. Чужой код — ErrNotFound.
func (s *QRService) Get(ctx context.Context, ownerID, id string) (*model.QRRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	qr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение QR-кода: %w", err)
	}
	if qr.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	s.cache.Set(qr.ID, qr)
	return qr, nil
}

// Lookup возвращает QR-код по id через кэш, без проверки владельца.
// Используется на пути сканирования.
func (s *QRService) Lookup(ctx context.Context, id string) (*model.QRRecord, error) {
	if qr, ok := s.cache.Get(id); ok {
		return qr, nil
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	qr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение QR-кода: %w", err)
	}
	s.cache.Set(qr.ID, qr)
	return qr, nil
}

// List возвращает QR-коды владельца с пагинацией.
func (s *QRService) List(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error) {
	items, total, err := s.repo.ListByOwner(ctx, ownerID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("список QR-кодов: %w", err)
	}
	return items, total, nil
}

// ResetScanCount обнуляет счётчик сканирований. История событий не меняется.
func (s *QRService) ResetScanCount(ctx context.Context, ownerID, id string) (*model.QRRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	qr, err := s.repo.ResetScanCount(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("сброс счётчика: %w", err)
	}
	s.cache.Set(qr.ID, qr)

	s.logger.Info("Счётчик сканирований сброшен",
		slog.String("qr_id", id),
		slog.String("owner_id", ownerID),
	)
	return qr, nil
}

// SetActive включает или выключает QR-код.
func (s *QRService) SetActive(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	qr, err := s.repo.SetActive(ctx, ownerID, id, active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("изменение статуса QR-кода: %w", err)
	}
	s.cache.Set(qr.ID, qr)

	s.logger.Info("Статус QR-кода изменён",
		slog.String("qr_id", id),
		slog.Bool("active", active),
	)
	return qr, nil
}

// Delete удаляет QR-код владельца.
func (s *QRService) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("удаление QR-кода: %w", err)
	}
	s.cache.Delete(id)

	s.logger.Info("QR-код удалён", slog.String("qr_id", id))
	return nil
}
