package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scansheet/ocr-service/internal/extract"
	"github.com/scansheet/ocr-service/internal/models"
)

type stubBackend struct {
	state  extract.State
	result models.OCRResult
	gotImg models.ImageData
	calls  int
}

func (s *stubBackend) Configure(opts extract.Options) {}
func (s *stubBackend) Ready() bool                    { return s.state == extract.StateReady }
func (s *stubBackend) State() extract.State           { return s.state }

func (s *stubBackend) Extract(ctx context.Context, img models.ImageData) models.OCRResult {
	s.calls++
	s.gotImg = img
	return s.result
}

func successResult() models.OCRResult {
	rec := models.NewRecord()
	rec.Set("item", "Milk")
	return models.Extracted([]*models.Record{rec})
}

func testHandler() (*Handler, *stubBackend, *stubBackend) {
	cloud := &stubBackend{state: extract.StateReady, result: successResult()}
	local := &stubBackend{state: extract.StateUnconfigured, result: successResult()}
	h := &Handler{
		config: &models.Config{AI: models.AIConfig{DefaultBackend: "cloud"}},
		cloud:  cloud,
		local:  local,
	}
	return h, cloud, local
}

func TestExtractJSONBody(t *testing.T) {
	h, cloud, local := testHandler()

	body := `{"mimeType":"image/png","data":"aGVsbG8="}`
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Extract(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, cloud.calls)
	assert.Equal(t, 0, local.calls)
	assert.Equal(t, "aGVsbG8=", cloud.gotImg.Data)

	var resp ExtractResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "cloud", resp.Backend)
	require.Len(t, resp.Data, 1)
}

func TestExtractJSONBackendSelector(t *testing.T) {
	h, cloud, local := testHandler()

	body := `{"mimeType":"image/png","data":"aGVsbG8=","backend":"local"}`
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Extract(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, cloud.calls)
	assert.Equal(t, 1, local.calls)
}

func TestExtractMultipartUpload(t *testing.T) {
	h, cloud, _ := testHandler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", "scan.png")
	require.NoError(t, err)
	_, err = fw.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/extract", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	h.Extract(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, 1, cloud.calls)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("fake image bytes")), cloud.gotImg.Data)
}

func TestExtractUnknownBackend(t *testing.T) {
	h, cloud, local := testHandler()

	body := `{"data":"aGVsbG8=","backend":"mainframe"}`
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Extract(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, 0, cloud.calls)
	assert.Equal(t, 0, local.calls)
}

func TestExtractMissingImageData(t *testing.T) {
	h, _, _ := testHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(`{"backend":"cloud"}`))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Extract(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExtractFailureResultStillOK(t *testing.T) {
	h, cloud, _ := testHandler()
	cloud.result = models.Failed(extract.QuotaExceeded.Message())

	body := `{"data":"aGVsbG8="}`
	req := httptest.NewRequest(http.MethodPost, "/api/extract", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	h.Extract(rr, req)

	// Extraction failures are payload-level, not transport-level.
	require.Equal(t, http.StatusOK, rr.Code)
	var resp ExtractResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, extract.QuotaExceeded.Message(), resp.Error)
}

func TestHealthReportsBackendStates(t *testing.T) {
	h, _, _ := testHandler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	h.Health(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "cloud", resp.Backends["default"])
	assert.Equal(t, "ready", resp.Backends["cloud"])
	assert.Equal(t, "unconfigured", resp.Backends["local"])
}

func TestGetExtractionsWithoutDatabase(t *testing.T) {
	h, _, _ := testHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/extractions", nil)
	rr := httptest.NewRecorder()

	h.GetExtractions(rr, req)

	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
