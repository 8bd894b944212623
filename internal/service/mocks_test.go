package service

import (
	"context"
	"io"
	"log/slog"

	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/repository"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockQRRepo — мок QRCodeRepository для unit-тестов.
type mockQRRepo struct {
	createFn      func(ctx context.Context, qr *model.QRRecord) error
	getByIDFn     func(ctx context.Context, id string) (*model.QRRecord, error)
	listByOwnerFn func(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error)
	resetFn       func(ctx context.Context, ownerID, id string) (*model.QRRecord, error)
	setActiveFn   func(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error)
	deleteFn      func(ctx context.Context, ownerID, id string) error
}

func (m *mockQRRepo) Create(ctx context.Context, qr *model.QRRecord) error {
	if m.createFn != nil {
		return m.createFn(ctx, qr)
	}
	return nil
}

func (m *mockQRRepo) GetByID(ctx context.Context, id string) (*model.QRRecord, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockQRRepo) ListByOwner(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error) {
	if m.listByOwnerFn != nil {
		return m.listByOwnerFn(ctx, ownerID, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockQRRepo) IncrementScanCount(_ context.Context, _ string) error {
	return nil
}

func (m *mockQRRepo) ResetScanCount(ctx context.Context, ownerID, id string) (*model.QRRecord, error) {
	if m.resetFn != nil {
		return m.resetFn(ctx, ownerID, id)
	}
	return nil, repository.ErrNotFound
}

func (m *mockQRRepo) SetActive(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error) {
	if m.setActiveFn != nil {
		return m.setActiveFn(ctx, ownerID, id, active)
	}
	return nil, repository.ErrNotFound
}

func (m *mockQRRepo) Delete(ctx context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return nil
}

// mockScanRepo — мок ScanEventRepository.
type mockScanRepo struct {
	listWindowFn    func(ctx context.Context, w repository.ScanWindow) ([]model.ScanEvent, error)
	countryCountsFn func(ctx context.Context, w repository.ScanWindow) (map[string]int, error)
}

func (m *mockScanRepo) Insert(_ context.Context, _ *model.ScanEvent) error {
	return nil
}

func (m *mockScanRepo) ListWindow(ctx context.Context, w repository.ScanWindow) ([]model.ScanEvent, error) {
	if m.listWindowFn != nil {
		return m.listWindowFn(ctx, w)
	}
	return nil, nil
}

func (m *mockScanRepo) CountryCounts(ctx context.Context, w repository.ScanWindow) (map[string]int, error) {
	if m.countryCountsFn != nil {
		return m.countryCountsFn(ctx, w)
	}
	return nil, nil
}

// mockScanStore — мок ScanStore, запоминает записанные события.
type mockScanStore struct {
	recorded []*model.ScanEvent
	err      error
}

func (m *mockScanStore) RecordScan(_ context.Context, ev *model.ScanEvent) error {
	if m.err != nil {
		return m.err
	}
	m.recorded = append(m.recorded, ev)
	return nil
}

// mockLookup — мок QRLookup.
type mockLookup struct {
	lookupFn func(ctx context.Context, id string) (*model.QRRecord, error)
}

func (m *mockLookup) Lookup(ctx context.Context, id string) (*model.QRRecord, error) {
	if m.lookupFn != nil {
		return m.lookupFn(ctx, id)
	}
	return nil, ErrNotFound
}
