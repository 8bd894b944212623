package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/qrtrack/internal/analytics"
	"github.com/bigkaa/qrtrack/internal/api/middleware"
	"github.com/bigkaa/qrtrack/internal/domain/model"
	"github.com/bigkaa/qrtrack/internal/service"
	"github.com/bigkaa/qrtrack/internal/tracking"
)

const (
	testOwner = "owner-1"
	testQRID  = "0190b2a4-7c1e-7a3b-9f00-1234567890ab"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- Моки ---

type mockResolver struct {
	resolveFn func(ctx context.Context, req service.TrackRequest) (*service.Outcome, error)
}

func (m *mockResolver) Resolve(ctx context.Context, req service.TrackRequest) (*service.Outcome, error) {
	return m.resolveFn(ctx, req)
}

type mockQRManager struct {
	createFn    func(ctx context.Context, ownerID string, in service.CreateQRInput) (*model.QRRecord, error)
	getFn       func(ctx context.Context, ownerID, id string) (*model.QRRecord, error)
	listFn      func(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error)
	resetFn     func(ctx context.Context, ownerID, id string) (*model.QRRecord, error)
	setActiveFn func(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error)
	deleteFn    func(ctx context.Context, ownerID, id string) error
}

func (m *mockQRManager) Create(ctx context.Context, ownerID string, in service.CreateQRInput) (*model.QRRecord, error) {
	return m.createFn(ctx, ownerID, in)
}

func (m *mockQRManager) Get(ctx context.Context, ownerID, id string) (*model.QRRecord, error) {
	return m.getFn(ctx, ownerID, id)
}

func (m *mockQRManager) List(ctx context.Context, ownerID string, limit, offset int) ([]*model.QRRecord, int, error) {
	return m.listFn(ctx, ownerID, limit, offset)
}

func (m *mockQRManager) ResetScanCount(ctx context.Context, ownerID, id string) (*model.QRRecord, error) {
	return m.resetFn(ctx, ownerID, id)
}

func (m *mockQRManager) SetActive(ctx context.Context, ownerID, id string, active bool) (*model.QRRecord, error) {
	return m.setActiveFn(ctx, ownerID, id, active)
}

func (m *mockQRManager) Delete(ctx context.Context, ownerID, id string) error {
	return m.deleteFn(ctx, ownerID, id)
}

type mockReporter struct {
	reportFn func(ctx context.Context, ownerID string, q service.ReportQuery) (*analytics.Report, error)
}

func (m *mockReporter) Report(ctx context.Context, ownerID string, q service.ReportQuery) (*analytics.Report, error) {
	return m.reportFn(ctx, ownerID, q)
}

type mockChecker struct{ status string }

func (m mockChecker) CheckReady() (string, string) { return m.status, "" }

// fakeAuth подставляет владельца testOwner, если есть заголовок X-Test-Owner.
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Test-Owner") != "" {
			r = r.WithContext(middleware.WithClaims(r.Context(), &middleware.AuthClaims{Subject: testOwner}))
		}
		next.ServeHTTP(w, r)
	})
}

func newTestRouter(res ScanResolver, qrs QRManager, rep AnalyticsReporter) http.Handler {
	if res == nil {
		res = &mockResolver{}
	}
	if qrs == nil {
		qrs = &mockQRManager{}
	}
	if rep == nil {
		rep = &mockReporter{}
	}
	api := NewAPIHandler(
		NewHealthHandler(mockChecker{status: "ok"}),
		NewTrackHandler(res, testLogger()),
		NewQRCodeHandler(qrs, testLogger()),
		NewAnalyticsHandler(rep, testLogger()),
		NewPayloadHandler(testLogger()),
		testLogger(),
	)
	r := chi.NewRouter()
	api.Mount(r, fakeAuth)
	return r
}

func do(h http.Handler, method, target, body string, authed bool) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if authed {
		req.Header.Set("X-Test-Owner", "1")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sampleQR() *model.QRRecord {
	return &model.QRRecord{
		ID:            testQRID,
		OwnerID:       testOwner,
		Title:         "Меню",
		Type:          model.ContentURL,
		Content:       "https://track.test/api/track?type=url",
		OriginalValue: "example.com",
		Active:        true,
		ScanCount:     3,
		CreatedAt:     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// --- /api/track ---

func TestTrack_Redirect(t *testing.T) {
	var got service.TrackRequest
	res := &mockResolver{resolveFn: func(_ context.Context, req service.TrackRequest) (*service.Outcome, error) {
		got = req
		return &service.Outcome{RedirectURL: "https://example.com", Tracked: true}, nil
	}}
	h := newTestRouter(res, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/track?type=url&value=example.com&scan_id=s&qr_id=q", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPhone)")
	req.Header.Set("CF-IPCountry", "NO")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("ожидался 307, получен %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://example.com" {
		t.Errorf("Location = %q", loc)
	}
	if got.ClientIP != "203.0.113.9" || got.Country != "NO" || got.UserAgent != "Mozilla/5.0 (iPhone)" {
		t.Errorf("метаданные клиента переданы неверно: %+v", got)
	}
	if got.Query.Get(tracking.ParamQRID) != "q" {
		t.Errorf("qr_id не передан: %v", got.Query)
	}
}

func TestTrack_InlinePost(t *testing.T) {
	res := &mockResolver{resolveFn: func(_ context.Context, req service.TrackRequest) (*service.Outcome, error) {
		if req.Query.Get(tracking.ParamValue) != "hello" {
			t.Errorf("value из тела не передан: %v", req.Query)
		}
		return &service.Outcome{
			Params:  tracking.Params{Type: model.ContentText, Value: "hello", ScanID: "scan-1", QRID: testQRID},
			Content: "hello",
			Tracked: false,
		}, nil
	}}
	h := newTestRouter(res, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/track",
		strings.NewReader("type=text&value=hello&scan_id=scan-1&qr_id="+testQRID))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	var body trackResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Type != "text" || body.Content != "hello" || body.ScanID != "scan-1" || body.Tracked {
		t.Errorf("неожиданный ответ: %+v", body)
	}
}

func TestTrack_PostBodyDoesNotOverrideQuery(t *testing.T) {
	res := &mockResolver{resolveFn: func(_ context.Context, req service.TrackRequest) (*service.Outcome, error) {
		if got := req.Query.Get(tracking.ParamValue); got != "hello" {
			t.Errorf("value = %q, ожидалось значение из query", got)
		}
		if got := req.Query.Get(tracking.ParamScanID); got != "scan-from-body" {
			t.Errorf("scan_id = %q, ожидалось дополнение из тела", got)
		}
		return &service.Outcome{
			Params:  tracking.Params{Type: model.ContentText, Value: "hello", ScanID: "scan-from-body", QRID: testQRID},
			Content: "hello",
		}, nil
	}}
	h := newTestRouter(res, nil, nil)

	req := httptest.NewRequest(http.MethodPost,
		"/api/track?type=text&value=hello&qr_id="+testQRID,
		strings.NewReader("value=evil&scan_id=scan-from-body"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
}

func TestTrack_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantMsg  string
	}{
		{"нет параметров", service.ErrInvalidTrackingData, http.StatusBadRequest, "Invalid tracking data"},
		{"внутренняя ошибка", errors.New("boom"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := &mockResolver{resolveFn: func(context.Context, service.TrackRequest) (*service.Outcome, error) {
				return nil, tt.err
			}}
			rec := do(newTestRouter(res, nil, nil), http.MethodGet, "/api/track", "", false)
			if rec.Code != tt.wantCode {
				t.Fatalf("ожидался %d, получен %d", tt.wantCode, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %q, ожидалось %q", body["error"], tt.wantMsg)
			}
		})
	}
}

// --- /api/v1/qr-codes ---

func TestQRCodes_RequireOwner(t *testing.T) {
	h := newTestRouter(nil, nil, nil)
	for _, path := range []string{"/api/v1/qr-codes", "/api/v1/analytics"} {
		rec := do(h, http.MethodGet, path, "", false)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: ожидался 401, получен %d", path, rec.Code)
		}
	}
}

func TestQRCodes_Create(t *testing.T) {
	qrs := &mockQRManager{createFn: func(_ context.Context, ownerID string, in service.CreateQRInput) (*model.QRRecord, error) {
		if ownerID != testOwner {
			t.Errorf("owner = %q", ownerID)
		}
		if in.Type != model.ContentPhone {
			t.Errorf("telefon должен стать phone, получен %q", in.Type)
		}
		if in.Design.Tracked() {
			t.Error("trackAnalytics=false не передан")
		}
		qr := sampleQR()
		qr.Type = in.Type
		return qr, nil
	}}
	h := newTestRouter(nil, qrs, nil)

	rec := do(h, http.MethodPost, "/api/v1/qr-codes",
		`{"title":"Звонок","type":"telefon","value":"+4712345678","design":{"trackAnalytics":false}}`, true)
	if rec.Code != http.StatusCreated {
		t.Fatalf("ожидался 201, получен %d: %s", rec.Code, rec.Body.String())
	}
	var body qrCodeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.ID != testQRID || body.Type != "phone" {
		t.Errorf("неожиданный ответ: %+v", body)
	}
}

func TestQRCodes_CreateValidation(t *testing.T) {
	qrs := &mockQRManager{createFn: func(context.Context, string, service.CreateQRInput) (*model.QRRecord, error) {
		return nil, service.ErrValidation
	}}
	h := newTestRouter(nil, qrs, nil)

	if rec := do(h, http.MethodPost, "/api/v1/qr-codes", `{"type":"url"`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("битый JSON: ожидался 400, получен %d", rec.Code)
	}
	if rec := do(h, http.MethodPost, "/api/v1/qr-codes", `{"type":"url","value":""}`, true); rec.Code != http.StatusBadRequest {
		t.Errorf("ошибка валидации: ожидался 400, получен %d", rec.Code)
	}
}

func TestQRCodes_List(t *testing.T) {
	qrs := &mockQRManager{listFn: func(_ context.Context, _ string, limit, offset int) ([]*model.QRRecord, int, error) {
		if limit != 10 || offset != 20 {
			t.Errorf("limit/offset = %d/%d", limit, offset)
		}
		return []*model.QRRecord{sampleQR()}, 21, nil
	}}
	h := newTestRouter(nil, qrs, nil)

	rec := do(h, http.MethodGet, "/api/v1/qr-codes?limit=10&offset=20", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	var body qrCodeListResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 21 || len(body.Items) != 1 {
		t.Errorf("неожиданный ответ: %+v", body)
	}

	if rec := do(h, http.MethodGet, "/api/v1/qr-codes?limit=-1", "", true); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=-1: ожидался 400, получен %d", rec.Code)
	}
}

func TestQRCodes_GetNotFound(t *testing.T) {
	qrs := &mockQRManager{getFn: func(context.Context, string, string) (*model.QRRecord, error) {
		return nil, service.ErrNotFound
	}}
	rec := do(newTestRouter(nil, qrs, nil), http.MethodGet, "/api/v1/qr-codes/"+testQRID, "", true)
	if rec.Code != http.StatusNotFound {
		t.Errorf("ожидался 404, получен %d", rec.Code)
	}
}

func TestQRCodes_ResetAndActivate(t *testing.T) {
	qrs := &mockQRManager{
		resetFn: func(_ context.Context, _ string, id string) (*model.QRRecord, error) {
			qr := sampleQR()
			qr.ID = id
			qr.ScanCount = 0
			return qr, nil
		},
		setActiveFn: func(_ context.Context, _ string, _ string, active bool) (*model.QRRecord, error) {
			qr := sampleQR()
			qr.Active = active
			return qr, nil
		},
		deleteFn: func(context.Context, string, string) error { return nil },
	}
	h := newTestRouter(nil, qrs, nil)

	rec := do(h, http.MethodPost, "/api/v1/qr-codes/"+testQRID+"/reset-scans", "", true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"scanCount":0`) {
		t.Errorf("reset-scans: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodPut, "/api/v1/qr-codes/"+testQRID+"/active", `{"active":false}`, true)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"active":false`) {
		t.Errorf("active: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodPut, "/api/v1/qr-codes/"+testQRID+"/active", `{}`, true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("active без поля: ожидался 400, получен %d", rec.Code)
	}

	rec = do(h, http.MethodDelete, "/api/v1/qr-codes/"+testQRID, "", true)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete: ожидался 204, получен %d", rec.Code)
	}
}

// --- /api/v1/analytics ---

func TestAnalytics_Report(t *testing.T) {
	rep := &mockReporter{reportFn: func(_ context.Context, ownerID string, q service.ReportQuery) (*analytics.Report, error) {
		if q.QRID == nil || *q.QRID != testQRID || q.Days != 7 {
			t.Errorf("неожиданный запрос: %+v", q)
		}
		return &analytics.Report{WindowDays: 7, TotalScans: 2}, nil
	}}
	h := newTestRouter(nil, nil, rep)

	rec := do(h, http.MethodGet, "/api/v1/analytics?qr_id="+testQRID+"&days=7", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"totalScans":2`) {
		t.Errorf("неожиданный ответ: %s", rec.Body.String())
	}

	if rec := do(h, http.MethodGet, "/api/v1/analytics?days=week", "", true); rec.Code != http.StatusBadRequest {
		t.Errorf("days=week: ожидался 400, получен %d", rec.Code)
	}
}

// --- /api/v1/payloads/format ---

func TestPayloads_Format(t *testing.T) {
	h := newTestRouter(nil, nil, nil)
	rec := do(h, http.MethodPost, "/api/v1/payloads/format", `{"type":"email","value":"a@b.no"}`, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидался 200, получен %d", rec.Code)
	}
	var body formatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Payload != "mailto:a@b.no" || body.ActionLabel != "Send email" {
		t.Errorf("неожиданный ответ: %+v", body)
	}
}

// --- health ---

func TestHealthReady(t *testing.T) {
	tests := []struct {
		status   string
		wantCode int
	}{
		{"ok", http.StatusOK},
		{"degraded", http.StatusOK},
		{"fail", http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		h := NewHealthHandler(mockChecker{status: tt.status})
		rec := httptest.NewRecorder()
		h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if rec.Code != tt.wantCode {
			t.Errorf("%s: ожидался %d, получен %d", tt.status, tt.wantCode, rec.Code)
		}
	}

	h := NewHealthHandler(nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("без checker: ожидался 503, получен %d", rec.Code)
	}
}

func TestHealthLive(t *testing.T) {
	rec := do(newTestRouter(nil, nil, nil), http.MethodGet, "/health/live", "", false)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"service":"qrtrack"`) {
		t.Errorf("live: %d %s", rec.Code, rec.Body.String())
	}
}
