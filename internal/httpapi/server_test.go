package httpapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/septivank/utility-metering-api/internal/anomaly"
	"github.com/septivank/utility-metering-api/internal/config"
	"github.com/septivank/utility-metering-api/internal/db"
	"github.com/septivank/utility-metering-api/internal/httpapi"
	"github.com/septivank/utility-metering-api/internal/mq"
	"github.com/septivank/utility-metering-api/internal/repository"
	"github.com/septivank/utility-metering-api/internal/service"
	"github.com/septivank/utility-metering-api/internal/validator"
	"github.com/septivank/utility-metering-api/internal/vision"
	"github.com/septivank/utility-metering-api/tools/timeparser"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type fakeRepo struct {
	measures []*db.Measure
}

func (r *fakeRepo) InsertMeasure(ctx context.Context, measure *db.Measure) error {
	stored := *measure
	r.measures = append(r.measures, &stored)
	return nil
}

func (r *fakeRepo) HasMeasureInWindow(ctx context.Context, customerCode string, measureType db.MeasureType, start, end time.Time) (bool, error) {
	for _, m := range r.measures {
		if m.CustomerCode == customerCode && m.MeasureType == measureType &&
			timeparser.SameMonth(m.MeasureDatetime, start) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) GetMeasureByUUID(ctx context.Context, measureUUID string) (*db.Measure, error) {
	for _, m := range r.measures {
		if m.MeasureUUID == measureUUID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, repository.ErrMeasureNotFound
}

func (r *fakeRepo) ConfirmMeasure(ctx context.Context, measureUUID string, confirmedValue decimal.Decimal) error {
	for _, m := range r.measures {
		if m.MeasureUUID == measureUUID {
			if m.HasConfirmed {
				return repository.ErrAlreadyConfirmed
			}
			m.MeasureValue = confirmedValue
			m.HasConfirmed = true
			return nil
		}
	}
	return repository.ErrMeasureNotFound
}

func (r *fakeRepo) ListMeasuresByCustomer(ctx context.Context, customerCode string, measureType *db.MeasureType) ([]db.Measure, error) {
	var out []db.Measure
	for _, m := range r.measures {
		if m.CustomerCode != customerCode {
			continue
		}
		if measureType != nil && m.MeasureType != *measureType {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeRepo) RecentConfirmedValues(ctx context.Context, customerCode string, measureType db.MeasureType, limit int) ([]float64, error) {
	return nil, nil
}

type fakeStore struct{}

func (fakeStore) Save(fileName string, data []byte) error { return nil }

func (fakeStore) URLFor(scheme, host, fileName string) string {
	return fmt.Sprintf("%s://%s/files/%s", scheme, host, fileName)
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(ctx context.Context, image []byte, measureType db.MeasureType) (vision.Extraction, error) {
	return vision.Extraction{Value: decimal.RequireFromString("123.45"), ID: "u-1"}, nil
}

func newTestServer(t *testing.T) (*httpapi.Server, *fakeRepo) {
	t.Helper()

	repo := &fakeRepo{}
	cfg := &config.Config{
		ServicePort: 8080,
		Vision:      config.VisionConfig{TimeoutSeconds: 5},
		Storage:     config.StorageConfig{Dir: t.TempDir(), PublicPrefix: "/files"},
		HTTP:        config.HTTPConfig{BodyLimit: "16M", CORSAllowOrigins: "*"},
	}

	svc := service.NewMeasureService(
		repo,
		fakeStore{},
		fakeExtractor{},
		mq.NopPublisher{},
		anomaly.NewDetector(3.0, 3),
		validator.NewValidator(),
		cfg,
		zap.NewNop(),
	)

	return httpapi.NewServer(svc, cfg, zap.NewNop()), repo
}

func doJSON(server *httpapi.Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echoHeaderContentType, "application/json")
	}
	req.Host = "localhost:8080"
	rec := httptest.NewRecorder()
	server.Echo().ServeHTTP(rec, req)
	return rec
}

const echoHeaderContentType = "Content-Type"

const validUploadBody = `{
	"customer_code": "C1",
	"image": "data:image/jpeg;base64,QUJD",
	"measure_datetime": "2024-03-15T10:00:00Z",
	"measure_type": "WATER"
}`

func TestUploadEndpoint_Success(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(server, http.MethodPost, "/measures/upload", validUploadBody)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		ImageURL     string  `json:"image_url"`
		MeasureValue float64 `json:"measure_value"`
		MeasureUUID  string  `json:"measure_uuid"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.MeasureUUID != "u-1" {
		t.Errorf("Expected measure_uuid 'u-1', got '%s'", resp.MeasureUUID)
	}
	if resp.MeasureValue != 123.45 {
		t.Errorf("Expected measure_value 123.45, got %v", resp.MeasureValue)
	}
	if resp.ImageURL != "http://localhost:8080/files/u-1.jpg" {
		t.Errorf("Unexpected image_url: %s", resp.ImageURL)
	}
}

func TestUploadEndpoint_MissingField(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(server, http.MethodPost, "/measures/upload", `{"customer_code": "C1"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ErrorCode != service.CodeInvalidData {
		t.Errorf("Expected error_code INVALID_DATA, got '%s'", resp.ErrorCode)
	}
}

func TestUploadEndpoint_DuplicateMonth(t *testing.T) {
	server, _ := newTestServer(t)

	if rec := doJSON(server, http.MethodPost, "/measures/upload", validUploadBody); rec.Code != http.StatusOK {
		t.Fatalf("Failed first upload: %d", rec.Code)
	}

	rec := doJSON(server, http.MethodPost, "/measures/upload", validUploadBody)

	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", rec.Code)
	}

	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ErrorCode != service.CodeDoubleReport {
		t.Errorf("Expected error_code DOUBLE_REPORT, got '%s'", resp.ErrorCode)
	}
}

func TestConfirmEndpoint_NumberAndString(t *testing.T) {
	server, _ := newTestServer(t)

	if rec := doJSON(server, http.MethodPost, "/measures/upload", validUploadBody); rec.Code != http.StatusOK {
		t.Fatalf("Failed upload: %d", rec.Code)
	}

	// JSON number form
	rec := doJSON(server, http.MethodPatch, "/measures/confirm", `{"measure_uuid": "u-1", "confirmed_value": 130.5}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success {
		t.Error("Expected success: true")
	}

	// Second confirmation is rejected
	rec = doJSON(server, http.MethodPatch, "/measures/confirm", `{"measure_uuid": "u-1", "confirmed_value": "131"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("Expected status 409, got %d", rec.Code)
	}
}

func TestConfirmEndpoint_UnknownUUID(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(server, http.MethodPatch, "/measures/confirm", `{"measure_uuid": "missing", "confirmed_value": 1}`)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
}

func TestListEndpoint_Success(t *testing.T) {
	server, _ := newTestServer(t)

	if rec := doJSON(server, http.MethodPost, "/measures/upload", validUploadBody); rec.Code != http.StatusOK {
		t.Fatalf("Failed upload: %d", rec.Code)
	}

	rec := doJSON(server, http.MethodGet, "/measures/C1/list?measure_type=water", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		CustomerCode string `json:"customer_code"`
		Measures     []struct {
			MeasureUUID  string `json:"measure_uuid"`
			HasConfirmed bool   `json:"has_confirmed"`
		} `json:"measures"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	if resp.CustomerCode != "C1" {
		t.Errorf("Expected customer_code C1, got '%s'", resp.CustomerCode)
	}
	if len(resp.Measures) != 1 || resp.Measures[0].MeasureUUID != "u-1" || resp.Measures[0].HasConfirmed {
		t.Errorf("Unexpected measures payload: %+v", resp.Measures)
	}
}

func TestListEndpoint_EmptyCustomer(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(server, http.MethodGet, "/measures/nobody/list", "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rec.Code)
	}
}

func TestListEndpoint_UnsupportedFilter(t *testing.T) {
	server, _ := newTestServer(t)

	rec := doJSON(server, http.MethodGet, "/measures/C1/list?measure_type=OIL", "")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected status 400, got %d", rec.Code)
	}

	var resp struct {
		ErrorCode string `json:"error_code"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.ErrorCode != service.CodeInvalidType {
		t.Errorf("Expected error_code INVALID_TYPE, got '%s'", resp.ErrorCode)
	}
}
